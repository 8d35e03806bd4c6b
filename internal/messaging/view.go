package messaging

import (
	"sync"

	"tenanthub/internal/models"
)

// MessageView is the per-conversation half of the facade: it follows exactly
// one conversation's live feed at a time. Switching conversations always
// tears down the previous subscription before registering the next one, so
// two live feeds can never write into the same view concurrently.
type MessageView struct {
	mu         sync.Mutex
	dispatcher Dispatcher
	broker     *Broker

	conversationID string
	messages       []models.Message
	loading        bool
	unsubscribe    func()

	// OnChange, when set, is invoked after every feed update with the
	// conversation id and the fresh ordered feed. Set it before
	// SetConversation.
	OnChange func(conversationID string, messages []models.Message)
}

func NewMessageView(dispatcher Dispatcher, broker *Broker) *MessageView {
	return &MessageView{dispatcher: dispatcher, broker: broker}
}

// SetConversation points the view at a conversation. An empty id resets the
// view to an empty feed without subscribing.
func (v *MessageView) SetConversation(conversationID string) {
	v.mu.Lock()
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	v.conversationID = conversationID
	if conversationID == "" {
		v.messages = nil
		v.loading = false
		v.mu.Unlock()
		return
	}

	v.loading = true
	v.unsubscribe = v.broker.SubscribeMessages(conversationID, func(messages []models.Message) {
		v.deliver(conversationID, messages)
	})
	v.mu.Unlock()

	// Initial load; listener errors degrade to an empty feed.
	messages, err := v.dispatcher.Messages(conversationID)
	if err != nil {
		messages = nil
	}
	v.deliver(conversationID, messages)
}

func (v *MessageView) deliver(conversationID string, messages []models.Message) {
	v.mu.Lock()
	// A stale delivery for a conversation we already switched away from
	// must not clobber the current feed.
	if v.conversationID != conversationID {
		v.mu.Unlock()
		return
	}
	v.messages = messages
	v.loading = false
	onChange := v.OnChange
	v.mu.Unlock()

	if onChange != nil {
		onChange(conversationID, messages)
	}
}

// Messages returns the latest delivered feed, timestamp ascending.
func (v *MessageView) Messages() []models.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.messages
}

// Loading reports whether the first delivery for the current conversation is
// still outstanding.
func (v *MessageView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Close tears down the live subscription.
func (v *MessageView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
	v.conversationID = ""
}
