package interfaces

import (
	"context"

	"plotforge/internal/models"

	"github.com/google/uuid"
)

// BranchRepository persists branch rows and clones branch history on fork.
//
//go:generate mockery --name BranchRepository --output ../mocks --outpkg mocks --case=underscore
type BranchRepository interface {
	// Create inserts a new branch row.
	Create(ctx context.Context, querier DBTX, branch *models.Branch) error

	// GetByNumber returns the branch row or models.ErrBranchNotFound.
	GetByNumber(ctx context.Context, querier DBTX, storyID uuid.UUID, branchNumber int) (*models.Branch, error)

	// ListByStory returns the story's branch rows ordered by branch number.
	ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]*models.Branch, error)

	// ClonePrefix duplicates the active chapter row and all choice rows of
	// every slot in fromBranch with chapter_number <= throughChapter into
	// toBranch, assigning fresh identities and preserving chapter number,
	// content, active flag and selection flags verbatim. Not idempotent;
	// callers invoke it exactly once per fork. fromBranch rows are read-only
	// inputs.
	ClonePrefix(ctx context.Context, querier DBTX, storyID uuid.UUID, fromBranch, toBranch, throughChapter int) error
}
