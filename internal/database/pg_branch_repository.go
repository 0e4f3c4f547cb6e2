package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.BranchRepository = (*pgBranchRepository)(nil)

type pgBranchRepository struct {
	logger *zap.Logger
}

func NewPgBranchRepository(logger *zap.Logger) interfaces.BranchRepository {
	return &pgBranchRepository{logger: logger.Named("PgBranchRepo")}
}

const createBranchQuery = `
INSERT INTO story_branches (id, story_id, branch_number, parent_branch, fork_chapter, label, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const getBranchByNumberQuery = `
SELECT id, story_id, branch_number, parent_branch, fork_chapter, label, created_at
FROM story_branches
WHERE story_id = $1 AND branch_number = $2`

const listBranchesByStoryQuery = `
SELECT id, story_id, branch_number, parent_branch, fork_chapter, label, created_at
FROM story_branches
WHERE story_id = $1
ORDER BY branch_number`

// cloneChaptersQuery duplicates the active chapter rows of the source branch
// prefix into the target branch with fresh identities. Chapter number,
// content, active flag and DNA are preserved verbatim.
const cloneChaptersQuery = `
INSERT INTO story_chapters
    (id, story_id, branch_number, chapter_number, version, is_active, title, content, word_count, summary, dna, created_at)
SELECT gen_random_uuid(), story_id, $3, chapter_number, version, is_active, title, content, word_count, summary, dna, $5
FROM story_chapters
WHERE story_id = $1 AND branch_number = $2 AND chapter_number <= $4 AND is_active`

// cloneChoicesQuery duplicates all choice rows of the prefix, re-pointing the
// chapter back-reference at the cloned chapter row for the same slot.
// Selection flags are preserved verbatim.
const cloneChoicesQuery = `
INSERT INTO chapter_choices
    (id, story_id, branch_number, chapter_number, chapter_id, choice_id, title, description, impact, choice_type, is_selected, selected_at, user_id, created_at)
SELECT gen_random_uuid(), cc.story_id, $3, cc.chapter_number, nc.id, cc.choice_id, cc.title, cc.description, cc.impact, cc.choice_type, cc.is_selected, cc.selected_at, cc.user_id, $5
FROM chapter_choices cc
JOIN story_chapters nc
    ON nc.story_id = cc.story_id
    AND nc.branch_number = $3
    AND nc.chapter_number = cc.chapter_number
    AND nc.is_active
WHERE cc.story_id = $1 AND cc.branch_number = $2 AND cc.chapter_number <= $4`

// Create inserts a new branch row.
func (r *pgBranchRepository) Create(ctx context.Context, querier interfaces.DBTX, branch *models.Branch) error {
	if branch.ID == uuid.Nil {
		branch.ID = uuid.New()
	}
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = time.Now()
	}

	_, err := querier.Exec(ctx, createBranchQuery,
		branch.ID, branch.StoryID, branch.BranchNumber,
		branch.ParentBranch, branch.ForkChapter, branch.Label, branch.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create branch", zap.Error(err),
			zap.String("storyID", branch.StoryID.String()), zap.Int("branch", branch.BranchNumber))
		return fmt.Errorf("failed to create branch %d for story %s: %w", branch.BranchNumber, branch.StoryID, err)
	}
	r.logger.Info("Branch created",
		zap.String("storyID", branch.StoryID.String()),
		zap.Int("branch", branch.BranchNumber),
		zap.Int("forkChapter", branch.ForkChapter))
	return nil
}

// GetByNumber returns the branch row for a story-local branch number.
func (r *pgBranchRepository) GetByNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, branchNumber int) (*models.Branch, error) {
	var branch models.Branch
	err := pgxscan.Get(ctx, querier, &branch, getBranchByNumberQuery, storyID, branchNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrBranchNotFound
		}
		r.logger.Error("Failed to get branch", zap.Error(err), zap.String("storyID", storyID.String()), zap.Int("branch", branchNumber))
		return nil, fmt.Errorf("failed to get branch %d for story %s: %w", branchNumber, storyID, err)
	}
	return &branch, nil
}

// ListByStory returns the story's branch rows.
func (r *pgBranchRepository) ListByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]*models.Branch, error) {
	var branchRows []*models.Branch
	err := pgxscan.Select(ctx, querier, &branchRows, listBranchesByStoryQuery, storyID)
	if err != nil {
		r.logger.Error("Failed to list branches", zap.Error(err), zap.String("storyID", storyID.String()))
		return nil, fmt.Errorf("failed to list branches for story %s: %w", storyID, err)
	}
	return branchRows, nil
}

// ClonePrefix copies the active chapter rows and all choice rows with
// chapter_number <= throughChapter from fromBranch into toBranch. Source rows
// are read-only inputs. Not idempotent: call exactly once per fork.
func (r *pgBranchRepository) ClonePrefix(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, fromBranch, toBranch, throughChapter int) error {
	return WithTx(ctx, querier, func(tx pgx.Tx) error {
		now := time.Now()
		chapterTag, err := tx.Exec(ctx, cloneChaptersQuery, storyID, fromBranch, toBranch, throughChapter, now)
		if err != nil {
			return fmt.Errorf("failed to clone chapters from branch %d to %d: %w", fromBranch, toBranch, err)
		}
		choiceTag, err := tx.Exec(ctx, cloneChoicesQuery, storyID, fromBranch, toBranch, throughChapter, now)
		if err != nil {
			return fmt.Errorf("failed to clone choices from branch %d to %d: %w", fromBranch, toBranch, err)
		}

		r.logger.Info("Branch prefix cloned",
			zap.String("storyID", storyID.String()),
			zap.Int("fromBranch", fromBranch),
			zap.Int("toBranch", toBranch),
			zap.Int("throughChapter", throughChapter),
			zap.Int64("chapters", chapterTag.RowsAffected()),
			zap.Int64("choices", choiceTag.RowsAffected()))
		return nil
	})
}
