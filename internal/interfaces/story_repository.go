package interfaces

import (
	"context"

	"plotforge/internal/models"

	"github.com/google/uuid"
)

// StoryRepository persists story aggregates.
//
//go:generate mockery --name StoryRepository --output ../mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	// Create inserts a new story record.
	Create(ctx context.Context, querier DBTX, story *models.Story) error

	// GetByID returns the story or models.ErrStoryNotFound.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)

	// BumpCurrentChapter raises the story's chapter pointer to chapterNumber
	// if it is higher than the stored value. The pointer never decreases.
	BumpCurrentChapter(ctx context.Context, querier DBTX, id uuid.UUID, chapterNumber int) error
}
