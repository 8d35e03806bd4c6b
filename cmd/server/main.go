package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"tenanthub/internal/config"
	"tenanthub/internal/engine"
	"tenanthub/internal/handlers"
	"tenanthub/internal/messaging"
	"tenanthub/internal/middleware"
	"tenanthub/internal/storage"
	"tenanthub/internal/storage/memory"
	"tenanthub/internal/storage/mongo"
	"tenanthub/internal/storage/postgres"
	"tenanthub/internal/utils"
	"tenanthub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	middleware.Configure(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// Initialize storage backend
	store, err := newStore(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize %s storage: %v", cfg.Database.Type, err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Printf("Error closing storage: %v", err)
		}
	}()

	// Initialize components
	metrics := utils.NewMetricsCollector()
	broker := messaging.NewBroker(metrics)

	// Initialize actor system and engine
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, store, broker, metrics)

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Create server instance
	server := handlers.NewServer(eng, broker, store, hub, metrics)

	// Set up HTTP handlers with authentication where required
	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	mux.HandleFunc("/auth/register", middleware.ApplyJWTMiddleware(server.HandleRegister(), "/auth/register"))
	mux.HandleFunc("/auth/login", middleware.ApplyJWTMiddleware(server.HandleLogin(), "/auth/login"))
	mux.HandleFunc("/conversations", middleware.ApplyJWTMiddleware(server.HandleConversations(), "/conversations"))
	mux.HandleFunc("/messages", middleware.ApplyJWTMiddleware(server.HandleMessages(), "/messages"))
	mux.HandleFunc("/ws", middleware.ApplyJWTMiddleware(server.HandleWebSocket(), "/ws"))

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	handler := middleware.CORSMiddleware(corsConfig)(mux)

	// Start server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s (database: %s)", serverAddr, cfg.Database.Type)
	if err := http.ListenAndServe(serverAddr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// newStore selects the storage backend from configuration.
func newStore(cfg *config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Type {
	case "mongo":
		return mongo.NewStore(cfg.URI, cfg.Name)
	case "postgres":
		return postgres.NewStore(cfg.URI)
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}
