package engine

import (
	"testing"
	"time"

	"tenanthub/internal/engine/actors"
	"tenanthub/internal/messaging"
	"tenanthub/internal/models"
	"tenanthub/internal/storage/memory"
	"tenanthub/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
)

func newTestEngine() *Engine {
	system := actor.NewActorSystem()
	store := memory.NewStore()
	metrics := utils.NewMetricsCollector()
	broker := messaging.NewBroker(metrics)
	return NewEngine(system, store, broker, metrics)
}

func TestEngineDispatch(t *testing.T) {
	eng := newTestEngine()

	// Step 1: Create a conversation through the engine
	id, err := eng.CreateConversation("tenant1", "landlord1",
		models.ParticipantDetails{Name: "Terry Tenant"},
		models.ParticipantDetails{Name: "Lana Landlord"})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	assert.NotEmpty(t, id)

	// Step 2: Send a message
	msg, err := eng.SendMessage(id, "tenant1", "Terry Tenant", "hello", models.MessageText)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	assert.Equal(t, "hello", msg.Content)

	// Step 3: Both reads come back through the same actor
	conversations, err := eng.Conversations("tenant1")
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	assert.Len(t, conversations, 1)

	messages, err := eng.Messages(id)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	assert.Len(t, messages, 1)
}

func TestEngineSurfacesActorErrors(t *testing.T) {
	eng := newTestEngine()

	_, err := eng.CreateConversation("tenant1", "tenant1",
		models.ParticipantDetails{}, models.ParticipantDetails{})
	if err == nil {
		t.Fatal("Expected self-conversation to be rejected")
	}
	assert.True(t, utils.IsErrorCode(err, utils.ErrSelfConversation))
}

func TestEngineExposesMessagingActor(t *testing.T) {
	eng := newTestEngine()

	// A direct future against the exposed PID behaves like the wrapped calls
	pid := eng.GetMessagingActor()
	if pid == nil {
		t.Fatal("Expected a spawned messaging actor PID")
	}

	future := eng.context.RequestFuture(pid, &actors.GetConversationsMsg{UserID: "nobody"}, 5*time.Second)
	result, err := future.Result()
	if err != nil {
		t.Fatalf("Direct actor request failed: %v", err)
	}
	conversations, ok := result.([]models.Conversation)
	if !ok {
		t.Fatalf("Unexpected response: %#v", result)
	}
	assert.Empty(t, conversations)
}
