package actors

import (
	"context"
	"log"
	"time"

	"tenanthub/internal/messaging"
	"tenanthub/internal/models"
	"tenanthub/internal/storage"
	"tenanthub/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Message types for MessagingActor
type (
	CreateConversationMsg struct {
		CurrentUserID  string                    `json:"currentUserId"`
		ContactUserID  string                    `json:"contactUserId"`
		CurrentDetails models.ParticipantDetails `json:"currentDetails"`
		ContactDetails models.ParticipantDetails `json:"contactDetails"`
	}

	SendMessageMsg struct {
		ConversationID string             `json:"conversationId"`
		SenderID       string             `json:"senderId"`
		SenderName     string             `json:"senderName"`
		Content        string             `json:"content"`
		Type           models.MessageType `json:"type"`
	}

	GetConversationsMsg struct {
		UserID string `json:"userId"`
	}

	GetMessagesMsg struct {
		ConversationID string `json:"conversationId"`
	}

	// ConversationCreated is the response to CreateConversationMsg.
	ConversationCreated struct {
		ID string `json:"id"`
	}
)

const storeTimeout = 5 * time.Second

// MessagingActor serializes all conversation and message writes. Running
// creation through a single actor mailbox closes the read-then-write window
// between two concurrent callers checking for an existing conversation, on
// top of the store's own pair-keyed create-if-absent.
type MessagingActor struct {
	directory *messaging.Directory
	feed      *messaging.Feed
	broker    *messaging.Broker
	store     storage.Store
	metrics   *utils.MetricsCollector
}

func NewMessagingActor(store storage.Store, broker *messaging.Broker, metrics *utils.MetricsCollector) *MessagingActor {
	return &MessagingActor{
		directory: messaging.NewDirectory(store),
		feed:      messaging.NewFeed(store, store),
		broker:    broker,
		store:     store,
		metrics:   metrics,
	}
}

func (a *MessagingActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *CreateConversationMsg:
		a.handleCreateConversation(context, msg)
	case *SendMessageMsg:
		a.handleSendMessage(context, msg)
	case *GetConversationsMsg:
		a.handleGetConversations(context, msg)
	case *GetMessagesMsg:
		a.handleGetMessages(context, msg)
	}
}

func (a *MessagingActor) handleCreateConversation(actorCtx actor.Context, msg *CreateConversationMsg) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	id, err := a.directory.CreateConversation(ctx, msg.CurrentUserID, msg.ContactUserID, msg.CurrentDetails, msg.ContactDetails)
	if err != nil {
		actorCtx.Respond(asAppError(err))
		return
	}

	a.publishConversationLists(ctx, msg.CurrentUserID, msg.ContactUserID)

	a.metrics.AddOperationLatency("create_conversation", time.Since(startTime))
	actorCtx.Respond(&ConversationCreated{ID: id})
}

func (a *MessagingActor) handleSendMessage(actorCtx actor.Context, msg *SendMessageMsg) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	sent, err := a.feed.SendMessage(ctx, msg.ConversationID, msg.SenderID, msg.SenderName, msg.Content, msg.Type)
	if err != nil {
		actorCtx.Respond(asAppError(err))
		return
	}
	a.metrics.IncrementMessagesSent()

	// Push the refreshed feed to live subscribers, then the refreshed
	// conversation lists to both participants so previews update.
	feed, err := a.feed.Messages(ctx, msg.ConversationID)
	if err != nil {
		log.Printf("Failed to reload feed for conversation %s: %v", msg.ConversationID, err)
	} else {
		a.broker.PublishMessages(msg.ConversationID, feed)
	}

	conv, err := a.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		log.Printf("Failed to load conversation %s for fan-out: %v", msg.ConversationID, err)
	} else {
		a.publishConversationLists(ctx, msg.SenderID, conv.OtherParticipant(msg.SenderID))
	}

	a.metrics.AddOperationLatency("send_message", time.Since(startTime))
	actorCtx.Respond(sent)
}

func (a *MessagingActor) handleGetConversations(actorCtx actor.Context, msg *GetConversationsMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	conversations, err := a.store.FindByParticipant(ctx, msg.UserID)
	if err != nil {
		actorCtx.Respond(asAppError(err))
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	actorCtx.Respond(conversations)
}

func (a *MessagingActor) handleGetMessages(actorCtx actor.Context, msg *GetMessagesMsg) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	messages, err := a.feed.Messages(ctx, msg.ConversationID)
	if err != nil {
		actorCtx.Respond(asAppError(err))
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	actorCtx.Respond(messages)
}

func (a *MessagingActor) publishConversationLists(ctx context.Context, userIDs ...string) {
	for _, userID := range userIDs {
		conversations, err := a.store.FindByParticipant(ctx, userID)
		if err != nil {
			log.Printf("Failed to reload conversation list for user %s: %v", userID, err)
			continue
		}
		a.broker.PublishConversations(userID, conversations)
	}
}

func asAppError(err error) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewAppError(utils.ErrDatabase, "messaging operation failed", err)
}
