package messaging

import (
	"sync"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"
)

// Dispatcher is the operation surface the facade delegates to. The actor
// engine implements it; tests substitute spies.
type Dispatcher interface {
	CreateConversation(currentUserID, contactUserID string, currentDetails, contactDetails models.ParticipantDetails) (string, error)
	SendMessage(conversationID, senderID, senderName, content string, msgType models.MessageType) (*models.Message, error)
	Conversations(userID string) ([]models.Conversation, error)
	Messages(conversationID string) ([]models.Message, error)
}

// Session is the application-facing messaging facade for one signed-in
// identity: it owns the conversation-list subscription tied to that identity
// and derives sender snapshots from the authenticated user record.
//
// Lifecycle per identity: idle (no user) -> subscribing -> live ->
// unsubscribed, and straight back to subscribing when the identity changes.
// Teardown of the previous subscription always happens before the
// replacement is registered; a leaked listener keeping a stale callback
// alive is a correctness bug, not a cleanup nicety.
type Session struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	broker     *Broker // nil for request-scoped sessions that need no live list

	user          *models.User
	conversations []models.Conversation
	loading       bool
	err           error
	unsubscribe   func()

	// OnChange, when set, is invoked after every conversation-list update
	// with the fresh list. Set it before SetUser.
	OnChange func([]models.Conversation)
}

// NewSession returns a facade with no authenticated user. The loading flag
// starts true and is only cleared by the first delivery for an authenticated
// identity; with no user it stays true indefinitely, mirroring the portal's
// long-standing behavior.
func NewSession(dispatcher Dispatcher, broker *Broker) *Session {
	return &Session{
		dispatcher: dispatcher,
		broker:     broker,
		loading:    true,
	}
}

// SetUser switches the session to a new identity. The previous subscription
// is always torn down first; passing nil returns the session to idle.
func (s *Session) SetUser(user *models.User) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.user = user
	// Losing or changing the identity returns the session to idle: the old
	// list must not stay readable, and loading holds until the new
	// identity's first delivery.
	s.conversations = nil
	s.loading = true
	if user == nil || s.broker == nil {
		s.mu.Unlock()
		return
	}

	userID := user.ID
	s.unsubscribe = s.broker.SubscribeConversations(userID, func(conversations []models.Conversation) {
		s.deliver(userID, conversations)
	})
	s.mu.Unlock()

	// Initial load. A failure here degrades to an empty list rather than
	// surfacing; a transient listener error must not take down the caller.
	conversations, err := s.dispatcher.Conversations(userID)
	if err != nil {
		conversations = nil
	}
	s.deliver(userID, conversations)
}

func (s *Session) deliver(userID string, conversations []models.Conversation) {
	s.mu.Lock()
	// A stale delivery for an identity we already switched away from must
	// not clobber the current list.
	if s.user == nil || s.user.ID != userID {
		s.mu.Unlock()
		return
	}
	s.conversations = conversations
	s.loading = false
	onChange := s.OnChange
	s.mu.Unlock()

	if onChange != nil {
		onChange(conversations)
	}
}

// CreateConversation starts (or finds) a conversation with the contact,
// deriving the current user's display snapshot from the authenticated
// record. It fails before any store call when no user is signed in.
func (s *Session) CreateConversation(contactUserID string, contactDetails models.ParticipantDetails) (string, error) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	if user == nil {
		err := utils.NewUnauthenticatedError("createConversation")
		s.setErr(err)
		return "", err
	}

	id, err := s.dispatcher.CreateConversation(user.ID, contactUserID, user.Details(), contactDetails)
	if err != nil {
		s.setErr(err)
		return "", err
	}
	return id, nil
}

// SendMessage sends content into the conversation, deriving the sender name
// from the authenticated record. It fails before any store call when no user
// is signed in.
func (s *Session) SendMessage(conversationID, content string, msgType models.MessageType) (*models.Message, error) {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()

	if user == nil {
		err := utils.NewUnauthenticatedError("sendMessage")
		s.setErr(err)
		return nil, err
	}

	msg, err := s.dispatcher.SendMessage(conversationID, user.ID, user.Name, content, msgType)
	if err != nil {
		s.setErr(err)
		return nil, err
	}
	return msg, nil
}

// Conversations returns the latest delivered conversation list.
func (s *Session) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversations
}

// Loading reports whether the first delivery for the current identity is
// still outstanding.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last failure from CreateConversation or SendMessage. It is
// cleared only by ClearError, never automatically.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearError resets the error slot.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Close tears down the live subscription. The session can be reused by
// calling SetUser again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}
