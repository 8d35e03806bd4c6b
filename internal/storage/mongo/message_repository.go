package mongo

import (
	"context"
	"fmt"
	"time"

	"tenanthub/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageDocument represents the MongoDB document structure for messages
type MessageDocument struct {
	ID             string    `bson:"_id"`
	ConversationID string    `bson:"conversationId"`
	SenderID       string    `bson:"senderId"`
	SenderName     string    `bson:"senderName"`
	Content        string    `bson:"content"`
	Type           string    `bson:"type"`
	Timestamp      int64     `bson:"timestamp"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// SaveMessage appends a new message document. The store assigns the id and
// the write time; the caller-set Timestamp is stored untouched.
func (s *Store) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	doc := MessageDocument{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		Type:           string(msg.Type),
		Timestamp:      msg.Timestamp,
		CreatedAt:      msg.CreatedAt,
	}

	_, err := s.Messages.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	return nil
}

// GetConversationMessages retrieves the full feed for a conversation, ordered
// by the client-set timestamp ascending with the store write time breaking
// ties. The sort happens server-side; nothing re-sorts on the way out.
func (s *Store) GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	filter := bson.M{"conversationId": conversationID}
	opts := options.Find().SetSort(bson.D{
		{Key: "timestamp", Value: 1},
		{Key: "createdAt", Value: 1},
	})

	cursor, err := s.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %v", err)
		}

		messages = append(messages, models.Message{
			ID:             doc.ID,
			ConversationID: doc.ConversationID,
			SenderID:       doc.SenderID,
			SenderName:     doc.SenderName,
			Content:        doc.Content,
			Type:           models.MessageType(doc.Type),
			Timestamp:      doc.Timestamp,
			CreatedAt:      doc.CreatedAt,
		})
	}

	return messages, nil
}
