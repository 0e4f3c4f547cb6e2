package interfaces

import (
	"context"
	"encoding/json"

	"plotforge/internal/models"

	"github.com/google/uuid"
)

// ChapterRepository is the version store for chapter slots. Every query here
// is scoped by the full (story, branch, chapter number) key; omitting the
// branch filter would let two branches collide on version numbers for the
// same chapter-number slot.
//
//go:generate mockery --name ChapterRepository --output ../mocks --outpkg mocks --case=underscore
type ChapterRepository interface {
	// NextVersion returns 1 + the max existing version for the slot, or 1.
	NextVersion(ctx context.Context, querier DBTX, slot models.ChapterSlot) (int, error)

	// Deactivate clears the active flag on every row in the slot.
	Deactivate(ctx context.Context, querier DBTX, slot models.ChapterSlot) error

	// Activate inserts the chapter row with the active flag set.
	Activate(ctx context.Context, querier DBTX, chapter *models.Chapter) error

	// WriteNewActiveVersion deactivates the slot and inserts chapter as the
	// new active row in a single transaction. chapter.Version must equal the
	// version the caller computed via NextVersion; if another writer advanced
	// the slot in between, models.ErrPersistenceConflict is returned and no
	// rows change.
	WriteNewActiveVersion(ctx context.Context, querier DBTX, chapter *models.Chapter) error

	// GetActive returns the active row for the slot or models.ErrNotFound.
	GetActive(ctx context.Context, querier DBTX, slot models.ChapterSlot) (*models.Chapter, error)

	// GetByID returns a chapter row by identity or models.ErrNotFound.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Chapter, error)

	// ListActiveThrough returns the active chapters of a branch with
	// chapter_number <= throughChapter, in chapter-number order.
	ListActiveThrough(ctx context.Context, querier DBTX, storyID uuid.UUID, branchNumber, throughChapter int) ([]*models.Chapter, error)

	// UpdateDNAByID attaches a continuity record to the exact chapter row.
	// Keyed by row identity, not by slot, so a stale extraction finishing
	// after a rewrite cannot clobber the newer version's record.
	UpdateDNAByID(ctx context.Context, querier DBTX, chapterID uuid.UUID, dna json.RawMessage) error

	// EarliestBranchNumber returns the branch number of the story's
	// earliest-created chapter row, or models.ErrNotFound when the story has
	// no chapters.
	EarliestBranchNumber(ctx context.Context, querier DBTX, storyID uuid.UUID) (int, error)

	// MaxBranchNumber returns the highest branch number referenced by the
	// story's chapters, or models.ErrNotFound when the story has no chapters.
	MaxBranchNumber(ctx context.Context, querier DBTX, storyID uuid.UUID) (int, error)
}
