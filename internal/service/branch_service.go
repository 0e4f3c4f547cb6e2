// Package service contains the gameplay orchestration: advancing stories and
// managing their branch structure.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BranchService allocates branch numbers, forks branches and renders the
// branch tree. Branch numbers are story-local integers; the trunk is derived
// from existing data rather than assumed, so legacy stories whose chapters
// started on a different number keep working.
type BranchService struct {
	db       interfaces.DBTX
	txm      interfaces.TxManager
	branches interfaces.BranchRepository
	chapters interfaces.ChapterRepository
	logger   *zap.Logger
}

// NewBranchService creates the branch manager.
func NewBranchService(db interfaces.DBTX, txm interfaces.TxManager, branches interfaces.BranchRepository, chapters interfaces.ChapterRepository, logger *zap.Logger) *BranchService {
	return &BranchService{
		db:       db,
		txm:      txm,
		branches: branches,
		chapters: chapters,
		logger:   logger.Named("BranchService"),
	}
}

// ResolveTrunk returns the story's trunk branch number: the branch of the
// earliest-created chapter, or the default when the story has no chapters.
func (s *BranchService) ResolveTrunk(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int, error) {
	n, err := s.chapters.EarliestBranchNumber(ctx, querier, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.TrunkBranchNumber, nil
		}
		return 0, fmt.Errorf("failed to resolve trunk branch: %w", err)
	}
	return n, nil
}

// EnsureExists verifies that branchNumber names a real branch of the story:
// the trunk, a branch row, or a legacy branch referenced by chapters.
// Anything else is models.ErrBranchNotFound, so an advance can never fabricate
// a timeline out of a typo.
func (s *BranchService) EnsureExists(ctx context.Context, storyID uuid.UUID, branchNumber int) error {
	trunk, err := s.ResolveTrunk(ctx, s.db, storyID)
	if err != nil {
		return err
	}
	if branchNumber == trunk {
		return nil
	}

	_, err = s.branches.GetByNumber(ctx, s.db, storyID, branchNumber)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrBranchNotFound) {
		return fmt.Errorf("failed to look up branch: %w", err)
	}

	// Branches may predate branch rows; chapters referencing the number are
	// proof enough.
	rows, err := s.chapters.ListActiveThrough(ctx, s.db, storyID, branchNumber, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("failed to look up branch chapters: %w", err)
	}
	if len(rows) > 0 {
		return nil
	}
	return fmt.Errorf("%w: branch %d of story %s", models.ErrBranchNotFound, branchNumber, storyID)
}

// AllocateBranchNumber returns the next free branch number for the story.
func (s *BranchService) AllocateBranchNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int, error) {
	maxN, err := s.chapters.MaxBranchNumber(ctx, querier, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.FirstForkBranchNumber, nil
		}
		return 0, fmt.Errorf("failed to allocate branch number: %w", err)
	}
	if maxN < models.TrunkBranchNumber {
		maxN = models.TrunkBranchNumber
	}
	return maxN + 1, nil
}

// Fork creates a new branch that duplicates fromBranch up to and including
// forkChapter. fromBranch 0 means "the story's trunk". The clone copies only
// active chapter rows (with their choice sets) and runs exactly once inside
// one transaction, so a failed fork leaves no partial branch behind.
func (s *BranchService) Fork(ctx context.Context, storyID uuid.UUID, fromBranch, forkChapter int, label string) (*models.Branch, error) {
	var branch *models.Branch
	err := s.txm.WithTx(ctx, func(tx interfaces.DBTX) error {
		if fromBranch == 0 {
			trunk, err := s.ResolveTrunk(ctx, tx, storyID)
			if err != nil {
				return err
			}
			fromBranch = trunk
		}

		number, err := s.AllocateBranchNumber(ctx, tx, storyID)
		if err != nil {
			return err
		}

		parent := fromBranch
		branch = &models.Branch{
			ID:           uuid.New(),
			StoryID:      storyID,
			BranchNumber: number,
			ParentBranch: &parent,
			ForkChapter:  forkChapter,
			Label:        label,
			CreatedAt:    time.Now(),
		}
		if err := s.branches.Create(ctx, tx, branch); err != nil {
			return fmt.Errorf("failed to create branch row: %w", err)
		}

		if err := s.branches.ClonePrefix(ctx, tx, storyID, fromBranch, number, forkChapter); err != nil {
			return fmt.Errorf("failed to clone branch prefix: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Branch forked",
		zap.String("storyID", storyID.String()),
		zap.Int("fromBranch", fromBranch),
		zap.Int("newBranch", branch.BranchNumber),
		zap.Int("forkChapter", forkChapter))
	return branch, nil
}

// BranchTree returns every branch of the story with its active chapters. The
// trunk may predate branch rows (stories created before forking existed), so
// it is synthesized when no row describes it.
func (s *BranchService) BranchTree(ctx context.Context, storyID uuid.UUID) ([]*models.BranchNode, error) {
	rows, err := s.branches.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	trunk, err := s.ResolveTrunk(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}

	nodes := make([]*models.BranchNode, 0, len(rows)+1)
	seenTrunk := false
	for _, b := range rows {
		if b.BranchNumber == trunk {
			seenTrunk = true
		}
		nodes = append(nodes, &models.BranchNode{
			BranchNumber: b.BranchNumber,
			ParentBranch: b.ParentBranch,
			ForkChapter:  b.ForkChapter,
			Label:        b.Label,
		})
	}
	if !seenTrunk {
		nodes = append([]*models.BranchNode{{BranchNumber: trunk, Label: "trunk"}}, nodes...)
	}

	for _, node := range nodes {
		chapters, err := s.chapters.ListActiveThrough(ctx, s.db, storyID, node.BranchNumber, int(^uint(0)>>1))
		if err != nil {
			return nil, fmt.Errorf("failed to list branch chapters: %w", err)
		}
		node.Chapters = chapters
	}
	return nodes, nil
}
