package handlers

import (
	"encoding/json"
	"net/http"

	"tenanthub/internal/models"
)

// SendMessageRequest represents a request to send a message into a
// conversation
type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	Type           string `json:"type"`
}

// HandleMessages handles sending and retrieving conversation messages
func (s *Server) HandleMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.Metrics.IncrementRequests()

			session, _, ok := s.sessionFor(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			var req SendMessageRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			if req.ConversationID == "" {
				http.Error(w, "Conversation ID required", http.StatusBadRequest)
				return
			}

			msg, err := session.SendMessage(req.ConversationID, req.Content, models.MessageType(req.Type))
			if err != nil {
				s.Metrics.IncrementErrors()
				writeError(w, err)
				return
			}

			writeJSON(w, http.StatusOK, msg)

		case http.MethodGet:
			s.Metrics.IncrementRequests()

			if _, _, ok := s.sessionFor(r); !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			conversationID := r.URL.Query().Get("conversationId")
			if conversationID == "" {
				http.Error(w, "Conversation ID required", http.StatusBadRequest)
				return
			}

			messages, err := s.Engine.Messages(conversationID)
			if err != nil {
				s.Metrics.IncrementErrors()
				writeError(w, err)
				return
			}

			writeJSON(w, http.StatusOK, messages)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
