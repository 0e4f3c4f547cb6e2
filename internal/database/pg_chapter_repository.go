package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.ChapterRepository = (*pgChapterRepository)(nil)

type pgChapterRepository struct {
	logger *zap.Logger
}

func NewPgChapterRepository(logger *zap.Logger) interfaces.ChapterRepository {
	return &pgChapterRepository{logger: logger.Named("PgChapterRepo")}
}

// Every slot query filters on (story_id, branch_number, chapter_number).
// Dropping the branch filter would let two branches collide on version
// numbers for the same chapter-number slot.

const nextVersionQuery = `
SELECT COALESCE(MAX(version), 0) + 1
FROM story_chapters
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3`

const deactivateSlotQuery = `
UPDATE story_chapters
SET is_active = FALSE
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3 AND is_active`

const insertChapterQuery = `
INSERT INTO story_chapters
    (id, story_id, branch_number, chapter_number, version, is_active, title, content, word_count, summary, dna, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const getActiveChapterQuery = `
SELECT id, story_id, branch_number, chapter_number, version, is_active, title, content, word_count, summary, dna, created_at
FROM story_chapters
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3 AND is_active`

const getChapterByIDQuery = `
SELECT id, story_id, branch_number, chapter_number, version, is_active, title, content, word_count, summary, dna, created_at
FROM story_chapters
WHERE id = $1`

const listActiveThroughQuery = `
SELECT id, story_id, branch_number, chapter_number, version, is_active, title, content, word_count, summary, dna, created_at
FROM story_chapters
WHERE story_id = $1 AND branch_number = $2 AND chapter_number <= $3 AND is_active
ORDER BY chapter_number`

const updateDNAByIDQuery = `
UPDATE story_chapters
SET dna = $2
WHERE id = $1`

const earliestBranchNumberQuery = `
SELECT branch_number
FROM story_chapters
WHERE story_id = $1
ORDER BY created_at, chapter_number
LIMIT 1`

const maxBranchNumberQuery = `
SELECT MAX(branch_number)
FROM story_chapters
WHERE story_id = $1`

// NextVersion returns 1 + max existing version for the slot, or 1.
func (r *pgChapterRepository) NextVersion(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) (int, error) {
	var next int
	err := querier.QueryRow(ctx, nextVersionQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber).Scan(&next)
	if err != nil {
		r.logger.Error("Failed to compute next version", zap.Error(err), zap.String("slot", slot.String()))
		return 0, fmt.Errorf("failed to compute next version for %s: %w", slot, err)
	}
	return next, nil
}

// Deactivate clears the active flag on every row in the slot.
func (r *pgChapterRepository) Deactivate(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) error {
	_, err := querier.Exec(ctx, deactivateSlotQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber)
	if err != nil {
		r.logger.Error("Failed to deactivate slot", zap.Error(err), zap.String("slot", slot.String()))
		return fmt.Errorf("failed to deactivate slot %s: %w", slot, err)
	}
	return nil
}

// Activate inserts the chapter row with the active flag set.
func (r *pgChapterRepository) Activate(ctx context.Context, querier interfaces.DBTX, chapter *models.Chapter) error {
	prepareChapterRow(chapter)
	chapter.IsActive = true

	_, err := querier.Exec(ctx, insertChapterQuery,
		chapter.ID, chapter.StoryID, chapter.BranchNumber, chapter.ChapterNumber,
		chapter.Version, chapter.IsActive, chapter.Title, chapter.Content,
		chapter.WordCount, chapter.Summary, chapter.DNA, chapter.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrPersistenceConflict
		}
		r.logger.Error("Failed to insert chapter row", zap.Error(err), zap.String("slot", chapter.Slot().String()))
		return fmt.Errorf("failed to insert chapter row for %s: %w", chapter.Slot(), err)
	}
	return nil
}

// WriteNewActiveVersion deactivates the slot and inserts the new active row
// in one transaction. A concurrent reader never observes the slot with zero
// or two active rows. If another writer advanced the slot version since the
// caller computed chapter.Version, models.ErrPersistenceConflict is returned.
func (r *pgChapterRepository) WriteNewActiveVersion(ctx context.Context, querier interfaces.DBTX, chapter *models.Chapter) error {
	slot := chapter.Slot()
	return WithTx(ctx, querier, func(tx pgx.Tx) error {
		var current int
		if err := tx.QueryRow(ctx, nextVersionQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber).Scan(&current); err != nil {
			return fmt.Errorf("failed to re-check slot version for %s: %w", slot, err)
		}
		// Compare-and-swap: the version the caller computed must still be
		// the next free one.
		if chapter.Version != current {
			r.logger.Warn("Slot version advanced by concurrent writer",
				zap.String("slot", slot.String()),
				zap.Int("expected", chapter.Version), zap.Int("actual", current))
			return models.ErrPersistenceConflict
		}

		if err := r.Deactivate(ctx, tx, slot); err != nil {
			return err
		}
		return r.Activate(ctx, tx, chapter)
	})
}

// GetActive returns the active row for the slot.
func (r *pgChapterRepository) GetActive(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) (*models.Chapter, error) {
	var chapter models.Chapter
	err := pgxscan.Get(ctx, querier, &chapter, getActiveChapterQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get active chapter", zap.Error(err), zap.String("slot", slot.String()))
		return nil, fmt.Errorf("failed to get active chapter for %s: %w", slot, err)
	}
	return &chapter, nil
}

// GetByID retrieves a chapter row by its unique ID.
func (r *pgChapterRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Chapter, error) {
	var chapter models.Chapter
	err := pgxscan.Get(ctx, querier, &chapter, getChapterByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get chapter by ID", zap.Error(err), zap.String("chapterID", id.String()))
		return nil, fmt.Errorf("failed to get chapter %s: %w", id, err)
	}
	return &chapter, nil
}

// ListActiveThrough returns active chapters with chapter_number <= through.
func (r *pgChapterRepository) ListActiveThrough(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, branchNumber, throughChapter int) ([]*models.Chapter, error) {
	var chapters []*models.Chapter
	err := pgxscan.Select(ctx, querier, &chapters, listActiveThroughQuery, storyID, branchNumber, throughChapter)
	if err != nil {
		r.logger.Error("Failed to list active chapters", zap.Error(err), zap.String("storyID", storyID.String()), zap.Int("branch", branchNumber))
		return nil, fmt.Errorf("failed to list active chapters: %w", err)
	}
	return chapters, nil
}

// UpdateDNAByID attaches the continuity record to the exact chapter row.
func (r *pgChapterRepository) UpdateDNAByID(ctx context.Context, querier interfaces.DBTX, chapterID uuid.UUID, dna json.RawMessage) error {
	tag, err := querier.Exec(ctx, updateDNAByIDQuery, chapterID, dna)
	if err != nil {
		r.logger.Error("Failed to update chapter DNA", zap.Error(err), zap.String("chapterID", chapterID.String()))
		return fmt.Errorf("failed to update DNA for chapter %s: %w", chapterID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// EarliestBranchNumber returns the branch of the story's first chapter row.
func (r *pgChapterRepository) EarliestBranchNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int, error) {
	var branch int
	err := querier.QueryRow(ctx, earliestBranchNumberQuery, storyID).Scan(&branch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, fmt.Errorf("failed to resolve earliest branch for story %s: %w", storyID, err)
	}
	return branch, nil
}

// MaxBranchNumber returns the highest branch number the story's chapters use.
func (r *pgChapterRepository) MaxBranchNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int, error) {
	var branch *int
	err := querier.QueryRow(ctx, maxBranchNumberQuery, storyID).Scan(&branch)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve max branch for story %s: %w", storyID, err)
	}
	if branch == nil {
		return 0, models.ErrNotFound
	}
	return *branch, nil
}

func prepareChapterRow(chapter *models.Chapter) {
	if chapter.ID == uuid.Nil {
		chapter.ID = uuid.New()
	}
	if chapter.CreatedAt.IsZero() {
		chapter.CreatedAt = time.Now()
	}
	if chapter.WordCount == 0 && chapter.Content != "" {
		chapter.WordCount = len(strings.Fields(chapter.Content))
	}
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
