package mongo

import (
	"context"
	"fmt"
	"time"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationDocument represents the MongoDB document structure for conversations
type ConversationDocument struct {
	ID                 string                                   `bson:"_id"`
	Participants       []string                                 `bson:"participants"`
	ParticipantDetails map[string]models.ParticipantDetails     `bson:"participantDetails"`
	LastMessage        *models.MessagePreview                   `bson:"lastMessage,omitempty"`
	CreatedAt          time.Time                                `bson:"createdAt"`
	UpdatedAt          time.Time                                `bson:"updatedAt"`
}

// CreateConversation writes the conversation under its deterministic pair key.
// The upsert on _id makes the write an atomic create-if-absent: when two
// callers race on the same pair, exactly one document is created and both get
// its id back.
func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) (string, error) {
	now := time.Now().UTC()
	doc := ConversationDocument{
		ID:                 models.PairKey(conv.Participants[0], conv.Participants[1]),
		Participants:       []string{conv.Participants[0], conv.Participants[1]},
		ParticipantDetails: conv.ParticipantDetails,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$setOnInsert": doc}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored ConversationDocument
	if err := s.Conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return "", fmt.Errorf("failed to create conversation: %v", err)
	}

	return stored.ID, nil
}

// GetConversation retrieves a conversation by its id
func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var doc ConversationDocument

	err := s.Conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %v", err)
	}

	return doc.toModel(), nil
}

// FindByParticipant retrieves all conversations containing the given user,
// most recently updated first. The store's filter language only supports
// single-value array membership, so callers looking for a specific pair scan
// this result client-side.
func (s *Store) FindByParticipant(ctx context.Context, userID string) ([]models.Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := s.Conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get user conversations: %v", err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	for cursor.Next(ctx) {
		var doc ConversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode conversation: %v", err)
		}
		conversations = append(conversations, *doc.toModel())
	}

	return conversations, nil
}

// UpdateLastMessage replaces the denormalized preview and bumps updatedAt
func (s *Store) UpdateLastMessage(ctx context.Context, conversationID string, preview *models.MessagePreview, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"lastMessage": preview,
		"updatedAt":   at,
	}}

	result, err := s.Conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return fmt.Errorf("failed to update conversation preview: %v", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewConversationNotFoundError(conversationID)
	}

	return nil
}

func (doc *ConversationDocument) toModel() *models.Conversation {
	conv := &models.Conversation{
		ID:                 doc.ID,
		ParticipantDetails: doc.ParticipantDetails,
		LastMessage:        doc.LastMessage,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	if len(doc.Participants) == 2 {
		conv.Participants = [2]string{doc.Participants[0], doc.Participants[1]}
	}
	return conv
}
