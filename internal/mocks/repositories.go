// Package mocks provides testify mocks for the interfaces package.
package mocks

import (
	"context"
	"encoding/json"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}

func (m *StoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StoryRepository) BumpCurrentChapter(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, chapterNumber int) error {
	args := m.Called(ctx, querier, id, chapterNumber)
	return args.Error(0)
}

// Mock ChapterRepository
type ChapterRepository struct {
	mock.Mock
}

func (m *ChapterRepository) NextVersion(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) (int, error) {
	args := m.Called(ctx, querier, slot)
	return args.Int(0), args.Error(1)
}

func (m *ChapterRepository) Deactivate(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) error {
	args := m.Called(ctx, querier, slot)
	return args.Error(0)
}

func (m *ChapterRepository) Activate(ctx context.Context, querier interfaces.DBTX, chapter *models.Chapter) error {
	args := m.Called(ctx, querier, chapter)
	return args.Error(0)
}

func (m *ChapterRepository) WriteNewActiveVersion(ctx context.Context, querier interfaces.DBTX, chapter *models.Chapter) error {
	args := m.Called(ctx, querier, chapter)
	return args.Error(0)
}

func (m *ChapterRepository) GetActive(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) (*models.Chapter, error) {
	args := m.Called(ctx, querier, slot)
	ch, _ := args.Get(0).(*models.Chapter)
	return ch, args.Error(1)
}

func (m *ChapterRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Chapter, error) {
	args := m.Called(ctx, querier, id)
	ch, _ := args.Get(0).(*models.Chapter)
	return ch, args.Error(1)
}

func (m *ChapterRepository) ListActiveThrough(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, branchNumber, throughChapter int) ([]*models.Chapter, error) {
	args := m.Called(ctx, querier, storyID, branchNumber, throughChapter)
	chapters, _ := args.Get(0).([]*models.Chapter)
	return chapters, args.Error(1)
}

func (m *ChapterRepository) UpdateDNAByID(ctx context.Context, querier interfaces.DBTX, chapterID uuid.UUID, dna json.RawMessage) error {
	args := m.Called(ctx, querier, chapterID, dna)
	return args.Error(0)
}

func (m *ChapterRepository) EarliestBranchNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int, error) {
	args := m.Called(ctx, querier, storyID)
	return args.Int(0), args.Error(1)
}

func (m *ChapterRepository) MaxBranchNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int, error) {
	args := m.Called(ctx, querier, storyID)
	return args.Int(0), args.Error(1)
}

// Mock ChoiceRepository
type ChoiceRepository struct {
	mock.Mock
}

func (m *ChoiceRepository) ReplaceForSlot(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot, chapterID uuid.UUID, offered []models.GeneratedChoice) ([]*models.Choice, error) {
	args := m.Called(ctx, querier, slot, chapterID, offered)
	rows, _ := args.Get(0).([]*models.Choice)
	return rows, args.Error(1)
}

func (m *ChoiceRepository) ListForSlot(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) ([]*models.Choice, error) {
	args := m.Called(ctx, querier, slot)
	rows, _ := args.Get(0).([]*models.Choice)
	return rows, args.Error(1)
}

func (m *ChoiceRepository) GetSelected(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot) (*models.Choice, error) {
	args := m.Called(ctx, querier, slot)
	row, _ := args.Get(0).(*models.Choice)
	return row, args.Error(1)
}

func (m *ChoiceRepository) MarkSelected(ctx context.Context, querier interfaces.DBTX, slot models.ChapterSlot, choiceID string, userID *uuid.UUID) error {
	args := m.Called(ctx, querier, slot, choiceID, userID)
	return args.Error(0)
}

// Mock BranchRepository
type BranchRepository struct {
	mock.Mock
}

func (m *BranchRepository) Create(ctx context.Context, querier interfaces.DBTX, branch *models.Branch) error {
	args := m.Called(ctx, querier, branch)
	return args.Error(0)
}

func (m *BranchRepository) GetByNumber(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, branchNumber int) (*models.Branch, error) {
	args := m.Called(ctx, querier, storyID, branchNumber)
	b, _ := args.Get(0).(*models.Branch)
	return b, args.Error(1)
}

func (m *BranchRepository) ListByStory(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) ([]*models.Branch, error) {
	args := m.Called(ctx, querier, storyID)
	rows, _ := args.Get(0).([]*models.Branch)
	return rows, args.Error(1)
}

func (m *BranchRepository) ClonePrefix(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID, fromBranch, toBranch, throughChapter int) error {
	args := m.Called(ctx, querier, storyID, fromBranch, toBranch, throughChapter)
	return args.Error(0)
}
