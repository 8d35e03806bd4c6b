// Package storage defines the persistence boundary of the messaging
// subsystem. The hosted document store is treated as an opaque collaborator:
// implementations only have to honor the contracts below, the coordination
// logic lives above them.
package storage

import (
	"context"
	"time"

	"tenanthub/internal/models"
)

// ConversationStore persists two-party conversation records.
type ConversationStore interface {
	// CreateConversation writes conv if no conversation for its participant
	// pair exists and returns the canonical conversation id either way.
	// Implementations derive the document key from the sorted participant
	// pair so the write is an atomic create-if-absent; a concurrent caller
	// racing on the same pair gets the same id back.
	CreateConversation(ctx context.Context, conv *models.Conversation) (string, error)

	// GetConversation returns the conversation by id, or an AppError with
	// code CONVERSATION_NOT_FOUND.
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// FindByParticipant returns every conversation containing userID,
	// most recently updated first. The store's query language only supports
	// single-value array membership, so pair lookups scan this result set
	// client-side.
	FindByParticipant(ctx context.Context, userID string) ([]models.Conversation, error)

	// UpdateLastMessage replaces the denormalized preview on the
	// conversation and bumps UpdatedAt.
	UpdateLastMessage(ctx context.Context, conversationID string, preview *models.MessagePreview, at time.Time) error
}

// MessageStore persists immutable messages.
type MessageStore interface {
	// SaveMessage assigns the message a store id and write time and appends
	// it. The caller sets Timestamp; the store never reorders it.
	SaveMessage(ctx context.Context, msg *models.Message) error

	// GetConversationMessages returns the full feed for a conversation
	// ordered by Timestamp ascending, CreatedAt breaking ties.
	GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
}

// UserStore persists portal accounts.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is the full persistence surface the server wires up.
type Store interface {
	ConversationStore
	MessageStore
	UserStore

	Close(ctx context.Context) error
}
