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
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	logger *zap.Logger
}

func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{logger: logger.Named("PgStoryRepo")}
}

const createStoryQuery = `
INSERT INTO stories (id, user_id, title, outline, genre, tone, current_chapter, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const getStoryByIDQuery = `
SELECT id, user_id, title, outline, genre, tone, current_chapter, created_at, updated_at
FROM stories
WHERE id = $1`

const bumpCurrentChapterQuery = `
UPDATE stories
SET current_chapter = GREATEST(current_chapter, $2), updated_at = $3
WHERE id = $1`

// Create inserts a new story record.
func (r *pgStoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	now := time.Now()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now

	_, err := querier.Exec(ctx, createStoryQuery,
		story.ID, story.UserID, story.Title, story.Outline,
		story.Genre, story.Tone, story.CurrentChapter,
		story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.Error(err), zap.String("storyID", story.ID.String()))
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()))
	return nil
}

// GetByID retrieves a story by its ID.
func (r *pgStoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	err := pgxscan.Get(ctx, querier, &story, getStoryByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Story not found", zap.String("storyID", id.String()))
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return &story, nil
}

// BumpCurrentChapter raises the chapter pointer monotonically.
func (r *pgStoryRepository) BumpCurrentChapter(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, chapterNumber int) error {
	tag, err := querier.Exec(ctx, bumpCurrentChapterQuery, id, chapterNumber, time.Now())
	if err != nil {
		r.logger.Error("Failed to bump current chapter", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("failed to bump current chapter for story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}
