package models

import "time"

// MessageType discriminates how message content is interpreted.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageImage
}

// Message is a single content unit belonging to one conversation. Messages
// are immutable once written.
//
// Timestamp is the client-set logical send time in epoch millis and orders
// the feed; CreatedAt is the store-assigned write time, used only for audit
// and ordering ties.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	Timestamp      int64       `json:"timestamp"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Preview returns the denormalized copy of the message that is stored on the
// owning conversation record.
func (m *Message) Preview() *MessagePreview {
	return &MessagePreview{
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Type:       m.Type,
		Timestamp:  m.Timestamp,
	}
}
