package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"tenanthub/internal/messaging"
	"tenanthub/internal/middleware"
	"tenanthub/internal/models"
	"tenanthub/internal/websocket"

	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by the CORS layer for API routes; the
		// websocket handshake is authenticated by token instead.
		return true
	},
}

// Outbound event payloads pushed to portal clients.
type conversationsEvent struct {
	Type          string                `json:"type"`
	Conversations []models.Conversation `json:"conversations"`
}

type messagesEvent struct {
	Type           string           `json:"type"`
	ConversationID string           `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// HandleWebSocket upgrades the connection and bridges it to the messaging
// facade: conversation-list updates fan out to every connection of the user
// through the hub, while each connection follows at most one conversation
// feed of its own choosing.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		user := &models.User{
			ID:     claims.UserID,
			Name:   claims.Name,
			Email:  claims.Email,
			Avatar: claims.Avatar,
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for user %s: %v", user.ID, err)
			return
		}

		client := &websocket.Client{
			Hub:    s.Hub,
			UserID: user.ID,
			Conn:   conn,
			Send:   make(chan []byte, 256),
		}

		// One conversation-list session per signed-in identity, shared by
		// all of that user's connections and torn down with the last one.
		session := s.retainUserSession(user)

		// Each connection gets its own feed view; switching conversations
		// replaces the subscription rather than accumulating them.
		view := messaging.NewMessageView(s.Engine, s.Broker)
		view.OnChange = func(conversationID string, messages []models.Message) {
			payload, err := json.Marshal(messagesEvent{
				Type:           "messages",
				ConversationID: conversationID,
				Messages:       messages,
			})
			if err != nil {
				return
			}
			select {
			case client.Send <- payload:
			default:
				log.Printf("Send channel full for client of user %s. Feed update dropped.", user.ID)
			}
		}

		client.OnControl = func(control websocket.ControlMessage) {
			switch control.Action {
			case "subscribe":
				view.SetConversation(control.ConversationID)
			case "unsubscribe":
				view.SetConversation("")
			case "send":
				if _, err := session.SendMessage(control.ConversationID, control.Content, models.MessageType(control.Type)); err != nil {
					payload, _ := json.Marshal(errorEvent{Type: "error", Error: err.Error()})
					select {
					case client.Send <- payload:
					default:
					}
				}
			default:
				log.Printf("Unknown control action %q from user %s", control.Action, user.ID)
			}
		}

		client.Hub.Register <- client

		go client.WritePump()
		go func() {
			client.ReadPump()
			// Connection is gone; release the per-connection feed view and
			// this connection's share of the user session.
			view.Close()
			s.releaseUserSession(user.ID)
		}()
	}
}

// retainUserSession returns the shared conversation-list session for the
// user, creating and subscribing it when this is the user's first
// connection.
func (s *Server) retainUserSession(user *models.User) *messaging.Session {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if feed, ok := s.wsFeeds[user.ID]; ok {
		feed.refs++
		return feed.session
	}

	session := messaging.NewSession(s.Engine, s.Broker)
	userID := user.ID
	session.OnChange = func(conversations []models.Conversation) {
		payload, err := json.Marshal(conversationsEvent{
			Type:          "conversations",
			Conversations: conversations,
		})
		if err != nil {
			return
		}
		s.Hub.SendToUser(userID, payload)
	}
	session.SetUser(user)

	s.wsFeeds[userID] = &userFeed{session: session, refs: 1}
	return session
}

// releaseUserSession drops one connection's reference and closes the shared
// session when no connections remain.
func (s *Server) releaseUserSession(userID string) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	feed, ok := s.wsFeeds[userID]
	if !ok {
		return
	}
	feed.refs--
	if feed.refs <= 0 {
		feed.session.Close()
		delete(s.wsFeeds, userID)
	}
}
