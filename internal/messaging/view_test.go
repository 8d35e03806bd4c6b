package messaging

import (
	"testing"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestMessageViewFollowsConversation(t *testing.T) {
	dispatcher := &spyDispatcher{
		messages: []models.Message{{ID: "m1", ConversationID: "conv1", Content: "hello"}},
	}
	broker := NewBroker(nil)
	view := NewMessageView(dispatcher, broker)
	defer view.Close()

	var changes []string
	view.OnChange = func(conversationID string, _ []models.Message) {
		changes = append(changes, conversationID)
	}

	view.SetConversation("conv1")
	assert.False(t, view.Loading())
	assert.Len(t, view.Messages(), 1)
	assert.Equal(t, []string{"conv1"}, changes)

	// Live feed update replaces the messages
	broker.PublishMessages("conv1", []models.Message{{ID: "m1"}, {ID: "m2"}})
	assert.Len(t, view.Messages(), 2)
}

func TestMessageViewSwitchReplacesSubscription(t *testing.T) {
	dispatcher := &spyDispatcher{}
	metrics := utils.NewMetricsCollector()
	broker := NewBroker(metrics)
	view := NewMessageView(dispatcher, broker)
	defer view.Close()

	view.SetConversation("conv1")
	view.SetConversation("conv2")
	assert.Equal(t, int64(1), metrics.Snapshot().Subscriptions)

	// A publish for the abandoned conversation must not reach the view
	broker.PublishMessages("conv1", []models.Message{{ID: "stale"}})
	assert.Empty(t, view.Messages())

	broker.PublishMessages("conv2", []models.Message{{ID: "m1"}})
	assert.Len(t, view.Messages(), 1)
}

func TestMessageViewReset(t *testing.T) {
	dispatcher := &spyDispatcher{
		messages: []models.Message{{ID: "m1"}},
	}
	metrics := utils.NewMetricsCollector()
	broker := NewBroker(metrics)
	view := NewMessageView(dispatcher, broker)

	view.SetConversation("conv1")
	assert.Len(t, view.Messages(), 1)

	// Empty id resets the view without opening a subscription
	view.SetConversation("")
	assert.Empty(t, view.Messages())
	assert.False(t, view.Loading())
	assert.Equal(t, int64(0), metrics.Snapshot().Subscriptions)
}

func TestMessageViewFeedErrorDegradesToEmpty(t *testing.T) {
	dispatcher := &spyDispatcher{
		feedErr: utils.NewAppError(utils.ErrDatabase, "listener failed", nil),
	}
	view := NewMessageView(dispatcher, NewBroker(nil))
	defer view.Close()

	view.SetConversation("conv1")
	assert.False(t, view.Loading())
	assert.Empty(t, view.Messages())
}
