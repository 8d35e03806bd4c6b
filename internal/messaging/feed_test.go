package messaging

import (
	"context"
	"testing"

	"tenanthub/internal/models"
	"tenanthub/internal/storage/memory"
	"tenanthub/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestFeedSendUpdatesPreview(t *testing.T) {
	store := memory.NewStore()
	directory := NewDirectory(store)
	feed := NewFeed(store, store)
	ctx := context.Background()

	convID, err := directory.CreateConversation(ctx, "alice", "bob",
		models.ParticipantDetails{Name: "Alice"}, models.ParticipantDetails{Name: "Bob"})
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg, err := feed.SendMessage(ctx, convID, "alice", "Alice", "the heating is broken", models.MessageText)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	assert.NotEmpty(t, msg.ID)
	assert.Greater(t, msg.Timestamp, int64(0))

	// The conversation record carries the denormalized preview
	conv, err := store.GetConversation(ctx, convID)
	assert.NoError(t, err)
	if conv.LastMessage == nil {
		t.Fatal("Expected lastMessage preview to be set")
	}
	assert.Equal(t, "the heating is broken", conv.LastMessage.Content)
	assert.Equal(t, "alice", conv.LastMessage.SenderID)
	assert.Equal(t, "Alice", conv.LastMessage.SenderName)
	assert.Equal(t, msg.Timestamp, conv.LastMessage.Timestamp)

	// A newer message replaces the preview
	msg2, err := feed.SendMessage(ctx, convID, "bob", "Bob", "I will send someone over", models.MessageText)
	assert.NoError(t, err)

	conv, err = store.GetConversation(ctx, convID)
	assert.NoError(t, err)
	assert.Equal(t, "I will send someone over", conv.LastMessage.Content)
	assert.Equal(t, msg2.Timestamp, conv.LastMessage.Timestamp)

	messages, err := feed.Messages(ctx, convID)
	assert.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, "the heating is broken", messages[0].Content)
}

func TestFeedDefaultsToTextType(t *testing.T) {
	store := memory.NewStore()
	feed := NewFeed(store, store)
	ctx := context.Background()

	convID, err := NewDirectory(store).CreateConversation(ctx, "alice", "bob",
		models.ParticipantDetails{}, models.ParticipantDetails{})
	assert.NoError(t, err)

	msg, err := feed.SendMessage(ctx, convID, "alice", "Alice", "hello", "")
	assert.NoError(t, err)
	assert.Equal(t, models.MessageText, msg.Type)
}

func TestFeedRejectsUnknownType(t *testing.T) {
	store := memory.NewStore()
	feed := NewFeed(store, store)

	_, err := feed.SendMessage(context.Background(), "conv1", "alice", "Alice", "hello", "video")
	if err == nil {
		t.Fatal("Expected unknown message type to be rejected")
	}
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidMessageType))
}

func TestFeedSurvivesPreviewFailure(t *testing.T) {
	store := memory.NewStore()
	feed := NewFeed(store, store)
	ctx := context.Background()

	// No conversation record exists, so the preview write fails after the
	// append succeeded. The message is still durable and returned.
	msg, err := feed.SendMessage(ctx, "orphan", "alice", "Alice", "hello", models.MessageText)
	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	messages, err := feed.Messages(ctx, "orphan")
	assert.NoError(t, err)
	assert.Len(t, messages, 1)
}
