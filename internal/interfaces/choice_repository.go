package interfaces

import (
	"context"

	"plotforge/internal/models"

	"github.com/google/uuid"
)

// ChoiceRepository is the ledger of choices offered at chapter slots.
//
//go:generate mockery --name ChoiceRepository --output ../mocks --outpkg mocks --case=underscore
type ChoiceRepository interface {
	// ReplaceForSlot deletes every choice row of the slot and inserts the
	// offered set, attaching them to chapterID. Offered choices without a
	// canonical id are assigned "choice_<ordinal>" (1-based). Calling twice
	// with the same N-item input leaves exactly N rows.
	ReplaceForSlot(ctx context.Context, querier DBTX, slot models.ChapterSlot, chapterID uuid.UUID, offered []models.GeneratedChoice) ([]*models.Choice, error)

	// ListForSlot returns the slot's choices in insertion order.
	ListForSlot(ctx context.Context, querier DBTX, slot models.ChapterSlot) ([]*models.Choice, error)

	// GetSelected returns the slot's selected choice or models.ErrNotFound.
	GetSelected(ctx context.Context, querier DBTX, slot models.ChapterSlot) (*models.Choice, error)

	// MarkSelected sets the selected flag on exactly one choice of the slot
	// and clears it on the slot's other choices. Selections on other slots
	// are untouched.
	MarkSelected(ctx context.Context, querier DBTX, slot models.ChapterSlot, choiceID string, userID *uuid.UUID) error
}
