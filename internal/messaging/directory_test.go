package messaging

import (
	"context"
	"testing"

	"tenanthub/internal/models"
	"tenanthub/internal/storage/memory"
	"tenanthub/internal/utils"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryCreateAndFind(t *testing.T) {
	store := memory.NewStore()
	directory := NewDirectory(store)
	ctx := context.Background()

	aliceDetails := models.ParticipantDetails{Name: "Alice", Email: "alice@test.com"}
	bobDetails := models.ParticipantDetails{Name: "Bob", Email: "bob@test.com"}

	id, err := directory.CreateConversation(ctx, "alice", "bob", aliceDetails, bobDetails)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	assert.NotEmpty(t, id)

	// The lookup finds it regardless of argument order
	found, err := directory.FindExisting(ctx, "bob", "alice")
	assert.NoError(t, err)
	if found == nil {
		t.Fatal("Expected to find the conversation")
	}
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "Alice", found.ParticipantDetails["alice"].Name)
	assert.Equal(t, "Bob", found.ParticipantDetails["bob"].Name)

	// A second create with reversed roles returns the same id, no new record
	id2, err := directory.CreateConversation(ctx, "bob", "alice", bobDetails, aliceDetails)
	assert.NoError(t, err)
	assert.Equal(t, id, id2)

	convs, err := store.FindByParticipant(ctx, "alice")
	assert.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestDirectoryFindMissing(t *testing.T) {
	directory := NewDirectory(memory.NewStore())

	found, err := directory.FindExisting(context.Background(), "alice", "bob")
	assert.NoError(t, err)
	assert.Nil(t, found, "absence is not an error")
}

func TestDirectoryRejectsSelfConversation(t *testing.T) {
	directory := NewDirectory(memory.NewStore())

	_, err := directory.CreateConversation(context.Background(), "alice", "alice",
		models.ParticipantDetails{}, models.ParticipantDetails{})
	if err == nil {
		t.Fatal("Expected self-conversation to be rejected")
	}
	assert.True(t, utils.IsErrorCode(err, utils.ErrSelfConversation))
}

func TestDirectoryRejectsEmptyParticipants(t *testing.T) {
	directory := NewDirectory(memory.NewStore())

	_, err := directory.CreateConversation(context.Background(), "", "bob",
		models.ParticipantDetails{}, models.ParticipantDetails{})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = directory.CreateConversation(context.Background(), "alice", "",
		models.ParticipantDetails{}, models.ParticipantDetails{})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}
