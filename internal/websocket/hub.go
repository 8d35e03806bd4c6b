package websocket

import (
	"log"
	"sync"
	"time"
)

// Delivery addresses a payload to every active connection of one user.
type Delivery struct {
	TargetUserID string
	Payload      []byte
}

// Hub maintains the set of active clients and fans messaging events out to
// them. A user may hold several connections (multiple tabs); each gets its
// own Client.
type Hub struct {
	// Registered clients. Maps user ID to a set of active client connections.
	Clients map[string]map[*Client]bool

	// Channel for sending payloads to a specific user's connections.
	Deliver chan *Delivery

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Deliver:    make(chan *Delivery),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[string]map[*Client]bool),
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	log.Println("WebSocket hub started.")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.Clients[client.UserID]; !ok {
				h.Clients[client.UserID] = make(map[*Client]bool)
			}
			h.Clients[client.UserID][client] = true
			log.Printf("WebSocket client registered for user %s. Total connections for user: %d", client.UserID, len(h.Clients[client.UserID]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.Clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.Clients, client.UserID)
						log.Printf("WebSocket client unregistered. User %s has no more connections.", client.UserID)
					} else {
						log.Printf("WebSocket client unregistered for user %s. Remaining connections: %d", client.UserID, len(userClients))
					}
				}
			}
			h.mu.Unlock()

		case delivery := <-h.Deliver:
			h.mu.RLock()
			if userClients, ok := h.Clients[delivery.TargetUserID]; ok {
				for client := range userClients {
					select {
					case client.Send <- delivery.Payload:
					default:
						log.Printf("Send channel full for client of user %s. Payload dropped for this client.", client.UserID)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SendToUser queues a payload for every active connection of the user.
func (h *Hub) SendToUser(targetUserID string, payload []byte) {
	delivery := &Delivery{
		TargetUserID: targetUserID,
		Payload:      payload,
	}
	select {
	case h.Deliver <- delivery:
	case <-time.After(1 * time.Second):
		log.Printf("Timeout queuing payload for user %s. Hub might be busy or blocked.", targetUserID)
	}
}
