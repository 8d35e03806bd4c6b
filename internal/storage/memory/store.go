// Package memory is the in-process storage backend used in development and
// tests. Semantics mirror the mongo backend, including the deterministic
// pair-key create-if-absent.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"github.com/google/uuid"
)

type Store struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation // pair key -> conversation
	messages      map[string][]models.Message     // conversation id -> messages
	users         map[string]*models.User         // user id -> user
	emailIndex    map[string]string               // email -> user id
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.Message),
		users:         make(map[string]*models.User),
		emailIndex:    make(map[string]string),
	}
}

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.PairKey(conv.Participants[0], conv.Participants[1])
	if existing, ok := s.conversations[key]; ok {
		return existing.ID, nil
	}

	now := time.Now().UTC()
	stored := cloneConversation(conv)
	stored.ID = key
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.conversations[key] = stored
	return stored.ID, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, utils.NewConversationNotFoundError(id)
	}
	return cloneConversation(conv), nil
}

func (s *Store) FindByParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Conversation
	for _, conv := range s.conversations {
		if conv.HasParticipant(userID) {
			result = append(result, *cloneConversation(conv))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) UpdateLastMessage(ctx context.Context, conversationID string, preview *models.MessagePreview, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return utils.NewConversationNotFoundError(conversationID)
	}
	previewCopy := *preview
	conv.LastMessage = &previewCopy
	conv.UpdatedAt = at
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], *msg)
	return nil
}

func (s *Store) GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationID]
	result := make([]models.Message, len(stored))
	copy(result, stored)

	// The feed contract: Timestamp ascending, store write time breaks ties.
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.emailIndex[user.Email]; ok && existingID != user.ID {
		return utils.NewAppError(utils.ErrUserAlreadyExists, "User already exists: "+user.Email, nil)
	}

	userCopy := *user
	s.users[user.ID] = &userCopy
	s.emailIndex[user.Email] = user.ID
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, utils.NewUserNotFoundError(id)
	}
	userCopy := *user
	return &userCopy, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return nil, utils.NewUserNotFoundError(email)
	}
	userCopy := *s.users[id]
	return &userCopy, nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

func cloneConversation(conv *models.Conversation) *models.Conversation {
	clone := *conv
	clone.ParticipantDetails = make(map[string]models.ParticipantDetails, len(conv.ParticipantDetails))
	for id, details := range conv.ParticipantDetails {
		clone.ParticipantDetails[id] = details
	}
	if conv.LastMessage != nil {
		preview := *conv.LastMessage
		clone.LastMessage = &preview
	}
	return &clone
}
