package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"tenanthub/internal/engine"
	"tenanthub/internal/messaging"
	"tenanthub/internal/middleware"
	"tenanthub/internal/models"
	"tenanthub/internal/storage"
	"tenanthub/internal/utils"
	"tenanthub/internal/websocket"
)

// Server holds all server dependencies for the HTTP layer
type Server struct {
	Engine  *engine.Engine
	Broker  *messaging.Broker
	Store   storage.Store
	Hub     *websocket.Hub
	Metrics *utils.MetricsCollector

	wsMu    sync.Mutex
	wsFeeds map[string]*userFeed
}

// userFeed is the shared conversation-list session for one signed-in user,
// reference counted across that user's websocket connections.
type userFeed struct {
	session *messaging.Session
	refs    int
}

// NewServer creates a new Server instance with the given components
func NewServer(
	eng *engine.Engine,
	broker *messaging.Broker,
	store storage.Store,
	hub *websocket.Hub,
	metrics *utils.MetricsCollector,
) *Server {
	return &Server{
		Engine:  eng,
		Broker:  broker,
		Store:   store,
		Hub:     hub,
		Metrics: metrics,
		wsFeeds: make(map[string]*userFeed),
	}
}

// sessionFor builds a request-scoped messaging facade for the authenticated
// caller. The display snapshot rides in the token claims, so no user lookup
// is needed per request.
func (s *Server) sessionFor(r *http.Request) (*messaging.Session, *models.User, bool) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		return nil, nil, false
	}
	user := &models.User{
		ID:     claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		Avatar: claims.Avatar,
	}
	session := messaging.NewSession(s.Engine, nil)
	session.SetUser(user)
	return session, user, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*utils.AppError); ok {
		writeJSON(w, utils.AppErrorToHTTPStatus(appErr.Code), map[string]string{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
