package main

import (
	"context"
	"log"
	"time"

	"tenanthub/simulator"
)

func main() {
	config := simulator.SimConfig{
		NumTenants:       20,
		NumLandlords:     5,
		SimulationTime:   10 * time.Minute,
		MessageFrequency: 120.0,
		ImagePercentage:  0.1,
		DisconnectRate:   0.01,
		ReconnectRate:    0.05,
		ZipfS:            1.07,
		ServerURL:        "http://localhost:8080",
	}

	sim := simulator.NewChatSimulator(config)
	ctx, cancel := context.WithTimeout(context.Background(), config.SimulationTime)
	defer cancel()

	log.Printf("Starting simulation with configuration:")
	log.Printf("- Server URL: %s", config.ServerURL)
	log.Printf("- Tenants: %d, landlords: %d", config.NumTenants, config.NumLandlords)
	log.Printf("- Simulation time: %v", config.SimulationTime)
	log.Printf("- Message frequency: %.2f messages/user/hour", config.MessageFrequency)
	log.Printf("- Image percentage: %.1f%%", config.ImagePercentage*100)
	log.Printf("- Disconnect rate: %.2f", config.DisconnectRate)
	log.Printf("- Reconnect rate: %.2f", config.ReconnectRate)
	log.Printf("- Zipf parameter: %.2f", config.ZipfS)

	if err := sim.Run(ctx); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	metrics := sim.GetMetrics()
	log.Printf("\nSimulation completed. Final metrics:")
	log.Printf("- Total users: %d", metrics.TotalUsers)
	log.Printf("- Active users at end: %d", metrics.ActiveUsers)
	log.Printf("- Conversations: %d", metrics.TotalConvos)
	log.Printf("- Messages sent: %d (images: %d)", metrics.TotalMessages, metrics.ImageMessages)
	log.Printf("- Error count: %d", metrics.ErrorCount)
}
