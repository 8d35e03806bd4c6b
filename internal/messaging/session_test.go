package messaging

import (
	"testing"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"

	"github.com/stretchr/testify/assert"
)

// spyDispatcher records calls and returns canned results.
type spyDispatcher struct {
	createCalls int
	sendCalls   int
	listCalls   int
	feedCalls   int

	createResult  string
	createErr     error
	sendErr       error
	conversations []models.Conversation
	listErr       error
	messages      []models.Message
	feedErr       error

	// onList, when set, runs inside Conversations before it returns. Used
	// to interleave an identity switch with a load still in flight.
	onList func()
}

func (d *spyDispatcher) CreateConversation(currentUserID, contactUserID string, currentDetails, contactDetails models.ParticipantDetails) (string, error) {
	d.createCalls++
	return d.createResult, d.createErr
}

func (d *spyDispatcher) SendMessage(conversationID, senderID, senderName, content string, msgType models.MessageType) (*models.Message, error) {
	d.sendCalls++
	if d.sendErr != nil {
		return nil, d.sendErr
	}
	return &models.Message{ConversationID: conversationID, SenderID: senderID, SenderName: senderName, Content: content, Type: msgType}, nil
}

func (d *spyDispatcher) Conversations(userID string) ([]models.Conversation, error) {
	d.listCalls++
	if d.onList != nil {
		d.onList()
	}
	return d.conversations, d.listErr
}

func (d *spyDispatcher) Messages(conversationID string) ([]models.Message, error) {
	d.feedCalls++
	return d.messages, d.feedErr
}

func testUser(id, name string) *models.User {
	return &models.User{ID: id, Name: name, Email: id + "@test.com", Avatar: "/avatars/default.png"}
}

func TestSessionUnauthenticatedOperationsFail(t *testing.T) {
	dispatcher := &spyDispatcher{}
	session := NewSession(dispatcher, NewBroker(nil))

	// No user signed in: both operations fail before reaching the dispatcher
	_, err := session.CreateConversation("bob", models.ParticipantDetails{})
	if err == nil {
		t.Fatal("Expected unauthenticated error")
	}
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthenticated))
	assert.Equal(t, 0, dispatcher.createCalls)

	_, err = session.SendMessage("conv1", "hello", models.MessageText)
	assert.True(t, utils.IsErrorCode(err, utils.ErrUnauthenticated))
	assert.Equal(t, 0, dispatcher.sendCalls)

	// Loading never clears while unauthenticated
	assert.True(t, session.Loading())
	assert.Empty(t, session.Conversations())
}

func TestSessionSetUserSubscribesAndLoads(t *testing.T) {
	dispatcher := &spyDispatcher{
		conversations: []models.Conversation{{ID: "alice_bob"}},
	}
	broker := NewBroker(nil)
	session := NewSession(dispatcher, broker)

	var changes int
	session.OnChange = func([]models.Conversation) { changes++ }

	session.SetUser(testUser("alice", "Alice"))
	defer session.Close()

	assert.False(t, session.Loading())
	assert.Equal(t, 1, dispatcher.listCalls)
	assert.Len(t, session.Conversations(), 1)
	assert.Equal(t, 1, changes)

	// Live update through the broker replaces the list
	broker.PublishConversations("alice", []models.Conversation{{ID: "alice_bob"}, {ID: "alice_carol"}})
	assert.Len(t, session.Conversations(), 2)
	assert.Equal(t, 2, changes)
}

func TestSessionInitialLoadErrorDegradesToEmpty(t *testing.T) {
	dispatcher := &spyDispatcher{
		listErr: utils.NewAppError(utils.ErrDatabase, "listener failed", nil),
	}
	session := NewSession(dispatcher, NewBroker(nil))
	session.SetUser(testUser("alice", "Alice"))
	defer session.Close()

	// The failure is swallowed: empty list, loading cleared, no error surfaced
	assert.False(t, session.Loading())
	assert.Empty(t, session.Conversations())
	assert.NoError(t, session.Err())
}

func TestSessionIdentitySwitchReplacesSubscription(t *testing.T) {
	dispatcher := &spyDispatcher{}
	metrics := utils.NewMetricsCollector()
	broker := NewBroker(metrics)
	session := NewSession(dispatcher, broker)

	session.SetUser(testUser("alice", "Alice"))
	assert.Equal(t, int64(1), metrics.Snapshot().Subscriptions)

	// Switching identities tears down the old subscription first
	session.SetUser(testUser("bob", "Bob"))
	assert.Equal(t, int64(1), metrics.Snapshot().Subscriptions)

	// Updates for the old identity no longer reach the session
	broker.PublishConversations("alice", []models.Conversation{{ID: "alice_carol"}})
	assert.Empty(t, session.Conversations())

	broker.PublishConversations("bob", []models.Conversation{{ID: "bob_carol"}})
	assert.Len(t, session.Conversations(), 1)

	// Signing out leaves no subscription behind
	session.SetUser(nil)
	assert.Equal(t, int64(0), metrics.Snapshot().Subscriptions)
}

func TestSessionSignOutReturnsToIdle(t *testing.T) {
	dispatcher := &spyDispatcher{
		conversations: []models.Conversation{{ID: "alice_bob"}},
	}
	broker := NewBroker(nil)
	session := NewSession(dispatcher, broker)

	session.SetUser(testUser("alice", "Alice"))
	assert.Len(t, session.Conversations(), 1)
	assert.False(t, session.Loading())

	// Sign-out: the previous identity's list must not stay readable, and
	// the session is back to the never-clearing loading state.
	session.SetUser(nil)
	assert.Empty(t, session.Conversations())
	assert.True(t, session.Loading())

	// A late publish for the old identity changes nothing.
	broker.PublishConversations("alice", []models.Conversation{{ID: "alice_carol"}})
	assert.Empty(t, session.Conversations())
	assert.True(t, session.Loading())
}

func TestSessionStaleLoadDoesNotClobberNewIdentity(t *testing.T) {
	dispatcher := &spyDispatcher{}
	broker := NewBroker(nil)
	session := NewSession(dispatcher, broker)

	// Alice's initial load is slow: while it is in flight, the identity
	// switches to Bob. The load that started for Alice must be dropped
	// rather than overwrite Bob's list.
	switched := false
	dispatcher.conversations = []models.Conversation{{ID: "alice_carol"}}
	dispatcher.onList = func() {
		if switched {
			return
		}
		switched = true
		dispatcher.conversations = []models.Conversation{{ID: "bob_carol"}}
		session.SetUser(testUser("bob", "Bob"))
		dispatcher.conversations = []models.Conversation{{ID: "alice_carol"}}
	}
	session.SetUser(testUser("alice", "Alice"))
	defer session.Close()

	if assert.Len(t, session.Conversations(), 1) {
		assert.Equal(t, "bob_carol", session.Conversations()[0].ID)
	}
	assert.False(t, session.Loading())
}

func TestSessionErrorSlot(t *testing.T) {
	dispatcher := &spyDispatcher{
		sendErr: utils.NewAppError(utils.ErrConversationNotFound, "Conversation not found", nil),
	}
	session := NewSession(dispatcher, nil)
	session.SetUser(testUser("alice", "Alice"))

	_, err := session.SendMessage("missing", "hello", models.MessageText)
	if err == nil {
		t.Fatal("Expected send to fail")
	}

	// The failure stays in the slot until cleared explicitly
	assert.Error(t, session.Err())

	dispatcher.sendErr = nil
	_, err = session.SendMessage("conv1", "hello again", models.MessageText)
	assert.NoError(t, err)
	assert.Error(t, session.Err(), "a later success must not clear the slot")

	session.ClearError()
	assert.NoError(t, session.Err())
}

func TestSessionRequestScopedWithoutBroker(t *testing.T) {
	dispatcher := &spyDispatcher{createResult: "alice_bob"}
	metrics := utils.NewMetricsCollector()

	// nil broker: no subscription is opened, operations still work
	session := NewSession(dispatcher, nil)
	session.SetUser(testUser("alice", "Alice"))
	assert.Equal(t, int64(0), metrics.Snapshot().Subscriptions)

	id, err := session.CreateConversation("bob", models.ParticipantDetails{Name: "Bob"})
	assert.NoError(t, err)
	assert.Equal(t, "alice_bob", id)
	assert.Equal(t, 1, dispatcher.createCalls)
}

func TestSessionSenderSnapshotFromUser(t *testing.T) {
	dispatcher := &spyDispatcher{}
	session := NewSession(dispatcher, nil)
	session.SetUser(testUser("alice", "Alice"))

	msg, err := session.SendMessage("conv1", "hello", "")
	assert.NoError(t, err)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "Alice", msg.SenderName)
}
