package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"plotforge/internal/choices"
	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.ChoiceRepository = (*pgChoiceRepository)(nil)

type pgChoiceRepository struct {
	logger *zap.Logger
}

func NewPgChoiceRepository(logger *zap.Logger) interfaces.ChoiceRepository {
	return &pgChoiceRepository{logger: logger.Named("PgChoiceRepo")}
}

const deleteChoicesForSlotQuery = `
DELETE FROM chapter_choices
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3`

const insertChoiceQuery = `
INSERT INTO chapter_choices
    (id, story_id, branch_number, chapter_number, chapter_id, choice_id, title, description, impact, choice_type, is_selected, selected_at, user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const listChoicesForSlotQuery = `
SELECT id, story_id, branch_number, chapter_number, chapter_id, choice_id, title, description, impact, choice_type, is_selected, selected_at, user_id, created_at
FROM chapter_choices
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3
ORDER BY created_at, choice_id`

const getSelectedChoiceQuery = `
SELECT id, story_id, branch_number, chapter_number, chapter_id, choice_id, title, description, impact, choice_type, is_selected, selected_at, user_id, created_at
FROM chapter_choices
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3 AND is_selected
LIMIT 1`

const clearSelectionQuery = `
UPDATE chapter_choices
SET is_selected = FALSE, selected_at = NULL
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3 AND is_selected AND choice_id <> $4`

const markSelectedQuery = `
UPDATE chapter_choices
SET is_selected = TRUE, selected_at = $5, user_id = COALESCE($6, user_id)
WHERE story_id = $1 AND branch_number = $2 AND chapter_number = $3 AND choice_id = $4`

// ReplaceForSlot deletes every choice row of the slot, then inserts the
// offered set. Full replace, not a merge: repeating the call with the same
// input leaves exactly the input's cardinality present.
func (r *pgChoiceRepository) ReplaceForSlot(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot, chapterID uuid.UUID, offered []models.GeneratedChoice) ([]*models.Choice, error) {
	inserted := make([]*models.Choice, 0, len(offered))

	err := WithTx(ctx, querier, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteChoicesForSlotQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber); err != nil {
			return fmt.Errorf("failed to delete existing choices for %s: %w", slot, err)
		}

		now := time.Now()
		for i, gc := range offered {
			choiceID := gc.ID
			if choiceID == "" {
				choiceID = choices.CanonicalID(i + 1)
			}
			choiceType := gc.ChoiceType
			if choiceType == "" {
				choiceType = models.ChoiceTypeNarrative
			}

			row := &models.Choice{
				ID:            uuid.New(),
				StoryID:       slot.StoryID,
				BranchNumber:  slot.BranchNumber,
				ChapterNumber: slot.ChapterNumber,
				ChapterID:     chapterID,
				ChoiceID:      choiceID,
				Title:         gc.Title,
				Description:   gc.Description,
				Impact:        gc.Impact,
				ChoiceType:    choiceType,
				CreatedAt:     now,
			}
			if _, err := tx.Exec(ctx, insertChoiceQuery,
				row.ID, row.StoryID, row.BranchNumber, row.ChapterNumber, row.ChapterID,
				row.ChoiceID, row.Title, row.Description, row.Impact, row.ChoiceType,
				row.IsSelected, row.SelectedAt, row.UserID, row.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert choice %s for %s: %w", row.ChoiceID, slot, err)
			}
			inserted = append(inserted, row)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to replace choices", zap.Error(err), zap.String("slot", slot.String()))
		return nil, err
	}

	r.logger.Debug("Choices replaced", zap.String("slot", slot.String()), zap.Int("count", len(inserted)))
	return inserted, nil
}

// ListForSlot returns the slot's choices.
func (r *pgChoiceRepository) ListForSlot(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) ([]*models.Choice, error) {
	var rows []*models.Choice
	err := pgxscan.Select(ctx, querier, &rows, listChoicesForSlotQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber)
	if err != nil {
		r.logger.Error("Failed to list choices", zap.Error(err), zap.String("slot", slot.String()))
		return nil, fmt.Errorf("failed to list choices for %s: %w", slot, err)
	}
	return rows, nil
}

// GetSelected returns the slot's selected choice, if any.
func (r *pgChoiceRepository) GetSelected(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) (*models.Choice, error) {
	var row models.Choice
	err := pgxscan.Get(ctx, querier, &row, getSelectedChoiceQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get selected choice", zap.Error(err), zap.String("slot", slot.String()))
		return nil, fmt.Errorf("failed to get selected choice for %s: %w", slot, err)
	}
	return &row, nil
}

// MarkSelected sets the selected flag on exactly one choice of the slot.
// Selection is a per-slot concept; other slots are untouched.
func (r *pgChoiceRepository) MarkSelected(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot, choiceID string, userID *uuid.UUID) error {
	return WithTx(ctx, querier, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearSelectionQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber, choiceID); err != nil {
			return fmt.Errorf("failed to clear prior selection for %s: %w", slot, err)
		}
		tag, err := tx.Exec(ctx, markSelectedQuery, slot.StoryID, slot.BranchNumber, slot.ChapterNumber, choiceID, time.Now(), userID)
		if err != nil {
			return fmt.Errorf("failed to mark choice %s selected for %s: %w", choiceID, slot, err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrInvalidChoice
		}
		return nil
	})
}
