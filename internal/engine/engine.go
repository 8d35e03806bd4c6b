package engine

import (
	"time"

	"tenanthub/internal/engine/actors"
	"tenanthub/internal/messaging"
	"tenanthub/internal/models"
	"tenanthub/internal/storage"
	"tenanthub/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine coordinates communication with the messaging actor and implements
// messaging.Dispatcher for the facade and the HTTP layer.
type Engine struct {
	system         *actor.ActorSystem
	context        *actor.RootContext
	messagingActor *actor.PID
	requestTimeout time.Duration
}

func NewEngine(system *actor.ActorSystem, store storage.Store, broker *messaging.Broker, metrics *utils.MetricsCollector) *Engine {
	context := system.Root

	messagingProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewMessagingActor(store, broker, metrics)
	})
	messagingPID := context.Spawn(messagingProps)

	return &Engine{
		system:         system,
		context:        context,
		messagingActor: messagingPID,
		requestTimeout: 5 * time.Second,
	}
}

// GetMessagingActor returns the PID of the messaging actor
func (e *Engine) GetMessagingActor() *actor.PID {
	return e.messagingActor
}

func (e *Engine) request(msg interface{}) (interface{}, error) {
	future := e.context.RequestFuture(e.messagingActor, msg, e.requestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError("messaging")
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

// CreateConversation finds or creates the conversation between the two users.
func (e *Engine) CreateConversation(currentUserID, contactUserID string, currentDetails, contactDetails models.ParticipantDetails) (string, error) {
	result, err := e.request(&actors.CreateConversationMsg{
		CurrentUserID:  currentUserID,
		ContactUserID:  contactUserID,
		CurrentDetails: currentDetails,
		ContactDetails: contactDetails,
	})
	if err != nil {
		return "", err
	}
	return result.(*actors.ConversationCreated).ID, nil
}

// SendMessage appends a message to the conversation.
func (e *Engine) SendMessage(conversationID, senderID, senderName, content string, msgType models.MessageType) (*models.Message, error) {
	result, err := e.request(&actors.SendMessageMsg{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		Type:           msgType,
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Message), nil
}

// Conversations returns the user's conversation list, most recent first.
func (e *Engine) Conversations(userID string) ([]models.Conversation, error) {
	result, err := e.request(&actors.GetConversationsMsg{UserID: userID})
	if err != nil {
		return nil, err
	}
	return result.([]models.Conversation), nil
}

// Messages returns the conversation's feed, timestamp ascending.
func (e *Engine) Messages(conversationID string) ([]models.Message, error) {
	result, err := e.request(&actors.GetMessagesMsg{ConversationID: conversationID})
	if err != nil {
		return nil, err
	}
	return result.([]models.Message), nil
}
