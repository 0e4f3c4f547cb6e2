package mocks

import (
	"context"
	"encoding/json"
	"time"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock AIClient
type AIClient struct {
	mock.Mock
}

func (m *AIClient) GenerateChapter(ctx context.Context, req models.GenerationRequest) (*models.GeneratedChapter, error) {
	args := m.Called(ctx, req)
	ch, _ := args.Get(0).(*models.GeneratedChapter)
	return ch, args.Error(1)
}

func (m *AIClient) ExtractDNA(ctx context.Context, chapterText string, chapterNumber int) (json.RawMessage, error) {
	args := m.Called(ctx, chapterText, chapterNumber)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

// Mock DNATaskPublisher
type DNATaskPublisher struct {
	mock.Mock
}

func (m *DNATaskPublisher) PublishDNATask(ctx context.Context, payload interfaces.DNAExtractionTaskPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// Mock SlotLocker
type SlotLocker struct {
	mock.Mock
}

func (m *SlotLocker) Acquire(ctx context.Context, slot models.ChapterSlot, ttl time.Duration) (string, error) {
	args := m.Called(ctx, slot, ttl)
	return args.String(0), args.Error(1)
}

func (m *SlotLocker) Release(ctx context.Context, slot models.ChapterSlot, token string) error {
	args := m.Called(ctx, slot, token)
	return args.Error(0)
}
