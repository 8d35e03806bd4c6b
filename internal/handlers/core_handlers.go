package handlers

import (
	"net/http"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only allow GET requests
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snapshot := s.Metrics.Snapshot()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "healthy",
			"requests":      snapshot.Requests,
			"errors":        snapshot.Errors,
			"messages_sent": snapshot.MessagesSent,
			"subscriptions": snapshot.Subscriptions,
			"uptime":        snapshot.Uptime.String(),
		})
	}
}
