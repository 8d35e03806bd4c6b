package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var messageTemplates = []string{
	"Hi, is the apartment still available?",
	"When would be a good time for a viewing?",
	"The kitchen faucet is leaking again.",
	"Rent for this month has been transferred.",
	"Could you send over the lease renewal?",
	"Thanks, see you then.",
	"The heating stopped working last night.",
	"I will be out of town next week.",
	"Is parking included in the rent?",
	"Sounds good to me.",
}

// simulateMessages drives the main load: connected users send messages into
// their open conversations at the configured per-user rate.
func (s *ChatSimulator) simulateMessages(ctx context.Context) {
	log.Printf("Starting message simulation...")

	// Convert messages/user/hour into a global tick interval
	s.mu.RLock()
	numUsers := len(s.tenants) + len(s.landlords)
	s.mu.RUnlock()
	if numUsers == 0 || s.config.MessageFrequency <= 0 {
		log.Printf("No users or zero frequency, skipping message simulation")
		return
	}

	messagesPerSecond := s.config.MessageFrequency * float64(numUsers) / 3600.0
	if messagesPerSecond <= 0 {
		messagesPerSecond = 1
	}
	interval := time.Duration(float64(time.Second) / messagesPerSecond)
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Message simulation stopped")
			return
		case <-ticker.C:
			user, conversationID, err := s.pickSender()
			if err != nil {
				continue
			}

			msgType := "text"
			content := messageTemplates[rand.Intn(len(messageTemplates))]
			if rand.Float64() < s.config.ImagePercentage {
				msgType = "image"
				content = fmt.Sprintf("/uploads/photo_%d.jpg", rand.Intn(1000))
			}

			data := map[string]interface{}{
				"conversationId": conversationID,
				"content":        content,
				"type":           msgType,
			}

			start := time.Now()
			resp, err := s.makeRequest("POST", "/messages", user.Token, data)
			s.recordRequestMetrics(start, err)
			if err != nil {
				var errResp ErrorResponse
				if json.Unmarshal(resp, &errResp) == nil && errResp.Code != "" {
					log.Printf("Send failed for %s: %s (%s)", user.Name, errResp.Error, errResp.Code)
				} else {
					log.Printf("Send failed for %s: %v", user.Name, err)
				}
				continue
			}

			s.stats.mu.Lock()
			s.stats.TotalMessages++
			if msgType == "image" {
				s.stats.ImageMessages++
			}
			s.stats.mu.Unlock()

			// Occasionally read the feed back, like a client refreshing
			if rand.Float64() < 0.2 {
				s.readFeed(user, conversationID)
			}
		}
	}
}

// pickSender selects a random connected user that has at least one
// conversation open.
func (s *ChatSimulator) pickSender() (*SimulatedUser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.allUsers()
	if len(users) == 0 {
		return nil, "", fmt.Errorf("no users")
	}

	// Bounded tries to find a connected user with conversations
	for i := 0; i < 10; i++ {
		user := users[rand.Intn(len(users))]
		if !user.IsConnected || len(user.Conversations) == 0 {
			continue
		}
		conversationID := user.Conversations[rand.Intn(len(user.Conversations))]
		return user, conversationID, nil
	}
	return nil, "", fmt.Errorf("no eligible sender found")
}

func (s *ChatSimulator) readFeed(user *SimulatedUser, conversationID string) {
	start := time.Now()
	_, err := s.makeRequest("GET", "/messages?conversationId="+conversationID, user.Token, nil)
	s.recordRequestMetrics(start, err)
	if err != nil {
		log.Printf("Feed read failed for %s: %v", user.Name, err)
	}
}
