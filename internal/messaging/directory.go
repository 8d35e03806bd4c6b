package messaging

import (
	"context"
	"time"

	"tenanthub/internal/models"
	"tenanthub/internal/storage"
	"tenanthub/internal/utils"
)

// Directory maps a pair of user ids to a single canonical conversation,
// creating one only when none exists.
type Directory struct {
	conversations storage.ConversationStore
}

func NewDirectory(conversations storage.ConversationStore) *Directory {
	return &Directory{conversations: conversations}
}

// FindExisting returns the conversation between the two users, or nil when
// none exists. Argument order does not matter.
//
// The store's filter language supports only single-value array membership,
// so this queries by the first participant and scans the result for the
// second. The first match in store iteration order wins.
func (d *Directory) FindExisting(ctx context.Context, userID1, userID2 string) (*models.Conversation, error) {
	candidates, err := d.conversations.FindByParticipant(ctx, userID1)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrDatabase, "failed to look up conversations", err)
	}

	for i := range candidates {
		if candidates[i].HasParticipant(userID2) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// CreateConversation returns the id of the conversation between the current
// user and the contact, creating it when none exists. Calling it twice for
// the same pair yields the same id; the second call performs zero writes.
func (d *Directory) CreateConversation(
	ctx context.Context,
	currentUserID, contactUserID string,
	currentDetails, contactDetails models.ParticipantDetails,
) (string, error) {
	if currentUserID == "" || contactUserID == "" {
		return "", utils.NewAppError(utils.ErrInvalidInput, "both participant ids are required", nil)
	}
	if currentUserID == contactUserID {
		return "", utils.NewAppError(utils.ErrSelfConversation, "cannot start a conversation with yourself", nil)
	}

	existing, err := d.FindExisting(ctx, currentUserID, contactUserID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	conv := &models.Conversation{
		Participants: [2]string{currentUserID, contactUserID},
		ParticipantDetails: map[string]models.ParticipantDetails{
			currentUserID: currentDetails,
			contactUserID: contactDetails,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	// The store keys the document on the sorted pair, so even if another
	// caller raced past the lookup above, this resolves to the same record.
	id, err := d.conversations.CreateConversation(ctx, conv)
	if err != nil {
		return "", utils.NewAppError(utils.ErrDatabase, "failed to create conversation", err)
	}
	return id, nil
}
