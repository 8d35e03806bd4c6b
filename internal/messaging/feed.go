package messaging

import (
	"context"
	"log"
	"time"

	"tenanthub/internal/models"
	"tenanthub/internal/storage"
	"tenanthub/internal/utils"
)

// Feed appends messages to conversations and keeps the denormalized preview
// on the conversation record current.
type Feed struct {
	messages      storage.MessageStore
	conversations storage.ConversationStore
}

func NewFeed(messages storage.MessageStore, conversations storage.ConversationStore) *Feed {
	return &Feed{messages: messages, conversations: conversations}
}

// SendMessage appends a message and refreshes the owning conversation's
// preview. The two writes are sequential, not atomic: when the preview
// update fails after the append succeeded, the message is durable and the
// stale preview corrects itself on the next successful send, so that failure
// is logged rather than returned.
func (f *Feed) SendMessage(
	ctx context.Context,
	conversationID, senderID, senderName, content string,
	msgType models.MessageType,
) (*models.Message, error) {
	if msgType == "" {
		msgType = models.MessageText
	}
	if !msgType.Valid() {
		return nil, utils.NewInvalidMessageTypeError(string(msgType))
	}
	if conversationID == "" {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "conversation id is required", nil)
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		Type:           msgType,
		Timestamp:      now.UnixMilli(),
	}

	if err := f.messages.SaveMessage(ctx, msg); err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to send message", err)
	}

	if err := f.conversations.UpdateLastMessage(ctx, conversationID, msg.Preview(), now); err != nil {
		log.Printf("Message %s stored but preview update failed for conversation %s: %v", msg.ID, conversationID, err)
	}

	return msg, nil
}

// Messages returns the conversation's feed in ascending timestamp order.
func (f *Feed) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	messages, err := f.messages.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to load messages", err)
	}
	return messages, nil
}
