package messaging

import (
	"sync"

	"tenanthub/internal/models"
	"tenanthub/internal/utils"
)

// Broker is the live-subscription source for the messaging layer. Writers
// publish refreshed result sets after every successful store write; consumers
// register a callback and get an unsubscribe func back. Unsubscribing removes
// the callback from the registry; a publish that already snapshotted the
// callback set may still deliver once more, so consumers that switch targets
// guard against stale deliveries on their side.
type Broker struct {
	mu      sync.RWMutex
	nextID  uint64
	metrics *utils.MetricsCollector

	// userID -> subscription id -> conversation-list callback
	conversationSubs map[string]map[uint64]func([]models.Conversation)
	// conversationID -> subscription id -> feed callback
	messageSubs map[string]map[uint64]func([]models.Message)
}

func NewBroker(metrics *utils.MetricsCollector) *Broker {
	return &Broker{
		metrics:          metrics,
		conversationSubs: make(map[string]map[uint64]func([]models.Conversation)),
		messageSubs:      make(map[string]map[uint64]func([]models.Message)),
	}
}

// SubscribeConversations registers a callback for a user's conversation list.
// The returned unsubscribe func is idempotent and safe to call concurrently
// with publishes.
func (b *Broker) SubscribeConversations(userID string, callback func([]models.Conversation)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if _, ok := b.conversationSubs[userID]; !ok {
		b.conversationSubs[userID] = make(map[uint64]func([]models.Conversation))
	}
	b.conversationSubs[userID][id] = callback
	if b.metrics != nil {
		b.metrics.SubscriptionOpened()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.conversationSubs[userID]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.conversationSubs, userID)
				}
			}
			if b.metrics != nil {
				b.metrics.SubscriptionClosed()
			}
		})
	}
}

// SubscribeMessages registers a callback for a conversation's message feed.
func (b *Broker) SubscribeMessages(conversationID string, callback func([]models.Message)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if _, ok := b.messageSubs[conversationID]; !ok {
		b.messageSubs[conversationID] = make(map[uint64]func([]models.Message))
	}
	b.messageSubs[conversationID][id] = callback
	if b.metrics != nil {
		b.metrics.SubscriptionOpened()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.messageSubs[conversationID]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.messageSubs, conversationID)
				}
			}
			if b.metrics != nil {
				b.metrics.SubscriptionClosed()
			}
		})
	}
}

// PublishConversations delivers a refreshed conversation list to every
// subscriber for the user.
func (b *Broker) PublishConversations(userID string, conversations []models.Conversation) {
	b.mu.RLock()
	callbacks := make([]func([]models.Conversation), 0, len(b.conversationSubs[userID]))
	for _, callback := range b.conversationSubs[userID] {
		callbacks = append(callbacks, callback)
	}
	b.mu.RUnlock()

	// Deliver outside the lock so a callback can unsubscribe or resubscribe.
	for _, callback := range callbacks {
		callback(conversations)
	}
}

// PublishMessages delivers a refreshed feed to every subscriber for the
// conversation.
func (b *Broker) PublishMessages(conversationID string, messages []models.Message) {
	b.mu.RLock()
	callbacks := make([]func([]models.Message), 0, len(b.messageSubs[conversationID]))
	for _, callback := range b.messageSubs[conversationID] {
		callbacks = append(callbacks, callback)
	}
	b.mu.RUnlock()

	for _, callback := range callbacks {
		callback(messages)
	}
}
