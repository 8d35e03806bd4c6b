package models

import (
	"sort"
	"strings"
	"time"
)

// ParticipantDetails is the display snapshot captured for each participant
// when a conversation is created. It is not a live join against the user
// record; renames after creation do not propagate here.
type ParticipantDetails struct {
	Name   string `json:"name" bson:"name"`
	Avatar string `json:"avatar" bson:"avatar"`
	Email  string `json:"email" bson:"email"`
}

// MessagePreview is the denormalized copy of the most recent message kept on
// the conversation record so list views need no second query.
type MessagePreview struct {
	SenderID   string      `json:"senderId" bson:"senderId"`
	SenderName string      `json:"senderName" bson:"senderName"`
	Content    string      `json:"content" bson:"content"`
	Type       MessageType `json:"type" bson:"type"`
	Timestamp  int64       `json:"timestamp" bson:"timestamp"`
}

// Conversation is a two-party messaging thread between a tenant and a
// landlord. Participants are stored as a fixed array but looked up
// order-independently.
type Conversation struct {
	ID                 string                        `json:"id"`
	Participants       [2]string                     `json:"participants"`
	ParticipantDetails map[string]ParticipantDetails `json:"participantDetails"`
	LastMessage        *MessagePreview               `json:"lastMessage,omitempty"`
	CreatedAt          time.Time                     `json:"createdAt"`
	UpdatedAt          time.Time                     `json:"updatedAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// PairKey derives the deterministic conversation identifier for an unordered
// pair of user ids. Using it as the document key turns conversation creation
// into an atomic create-if-absent write, which is what enforces the
// at-most-one-conversation-per-pair invariant across concurrent callers.
func PairKey(userID1, userID2 string) string {
	pair := []string{userID1, userID2}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}
