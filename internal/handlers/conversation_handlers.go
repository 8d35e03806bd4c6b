package handlers

import (
	"encoding/json"
	"net/http"

	"tenanthub/internal/models"
)

// CreateConversationRequest represents a request to start (or find) a
// conversation with a contact
type CreateConversationRequest struct {
	ContactUserID  string                    `json:"contactUserId"`
	ContactDetails models.ParticipantDetails `json:"contactDetails"`
}

// HandleConversations handles creating and listing conversations
func (s *Server) HandleConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.Metrics.IncrementRequests()

			session, _, ok := s.sessionFor(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			var req CreateConversationRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			if req.ContactUserID == "" {
				http.Error(w, "Contact user ID required", http.StatusBadRequest)
				return
			}

			id, err := session.CreateConversation(req.ContactUserID, req.ContactDetails)
			if err != nil {
				s.Metrics.IncrementErrors()
				writeError(w, err)
				return
			}

			writeJSON(w, http.StatusOK, map[string]string{"id": id})

		case http.MethodGet:
			s.Metrics.IncrementRequests()

			_, user, ok := s.sessionFor(r)
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			conversations, err := s.Engine.Conversations(user.ID)
			if err != nil {
				s.Metrics.IncrementErrors()
				writeError(w, err)
				return
			}

			writeJSON(w, http.StatusOK, conversations)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
