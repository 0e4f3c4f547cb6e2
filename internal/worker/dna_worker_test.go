package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"plotforge/internal/dna"
	"plotforge/internal/interfaces"
	"plotforge/internal/limiter"
	"plotforge/internal/mocks"
	"plotforge/internal/models"
	"plotforge/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProcessor(chapters *mocks.ChapterRepository, ai *mocks.AIClient) *worker.DNAProcessor {
	tracker := dna.NewTracker(ai, zap.NewNop())
	return worker.NewDNAProcessor(nil, chapters, tracker, limiter.NewPool(1), zap.NewNop())
}

func task(chapterID uuid.UUID) interfaces.DNAExtractionTaskPayload {
	return interfaces.DNAExtractionTaskPayload{
		TaskID:        uuid.NewString(),
		StoryID:       uuid.New(),
		ChapterID:     chapterID,
		BranchNumber:  1,
		ChapterNumber: 2,
		ChosenOption:  "Take the left door",
	}
}

func TestProcessStoresContinuityRecord(t *testing.T) {
	chapters := new(mocks.ChapterRepository)
	ai := new(mocks.AIClient)
	p := newProcessor(chapters, ai)

	chapterID := uuid.New()
	chapter := &models.Chapter{
		ID:            chapterID,
		StoryID:       uuid.New(),
		BranchNumber:  1,
		ChapterNumber: 2,
		Content:       "The vault door was already open.",
	}
	chapters.On("GetByID", mock.Anything, mock.Anything, chapterID).Return(chapter, nil)

	priorDNA, _ := json.Marshal(models.ContinuityRecord{
		PlotThreads: []models.PlotThread{{ThreadID: "t_key", Description: "Recover the key", Status: models.ThreadStatusOngoing}},
	})
	chapters.On("ListActiveThrough", mock.Anything, mock.Anything, chapter.StoryID, 1, 1).
		Return([]*models.Chapter{{ID: uuid.New(), ChapterNumber: 1, DNA: priorDNA}}, nil)

	ai.On("ExtractDNA", mock.Anything, chapter.Content, 2).Return(json.RawMessage(`{
		"scene_state": "inside the vault",
		"plot_threads": [{"thread_id": "t_key", "description": "Recover the key", "status": "resolved"}]
	}`), nil)

	chapters.On("UpdateDNAByID", mock.Anything, mock.Anything, chapterID, mock.MatchedBy(func(raw json.RawMessage) bool {
		var rec models.ContinuityRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return false
		}
		return rec.ExtractionStatus == models.ExtractionStatusOK &&
			rec.Evolution != nil && len(rec.Evolution.Continued) == 1
	})).Return(nil)

	require.NoError(t, p.Process(context.Background(), task(chapterID)))
	chapters.AssertNumberOfCalls(t, "UpdateDNAByID", 1)
}

func TestProcessSkipsMissingChapter(t *testing.T) {
	chapters := new(mocks.ChapterRepository)
	ai := new(mocks.AIClient)
	p := newProcessor(chapters, ai)

	chapterID := uuid.New()
	chapters.On("GetByID", mock.Anything, mock.Anything, chapterID).Return(nil, models.ErrNotFound)

	// A vanished row is not a retryable failure.
	require.NoError(t, p.Process(context.Background(), task(chapterID)))
	ai.AssertNotCalled(t, "ExtractDNA", mock.Anything, mock.Anything, mock.Anything)
	chapters.AssertNotCalled(t, "UpdateDNAByID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessStoresFallbackWhenExtractionFails(t *testing.T) {
	chapters := new(mocks.ChapterRepository)
	ai := new(mocks.AIClient)
	p := newProcessor(chapters, ai)

	chapterID := uuid.New()
	chapter := &models.Chapter{
		ID: chapterID, StoryID: uuid.New(), BranchNumber: 1, ChapterNumber: 2,
		Content: "Nothing was where it should be.",
	}
	chapters.On("GetByID", mock.Anything, mock.Anything, chapterID).Return(chapter, nil)
	chapters.On("ListActiveThrough", mock.Anything, mock.Anything, chapter.StoryID, 1, 1).Return(nil, nil)
	ai.On("ExtractDNA", mock.Anything, chapter.Content, 2).Return(nil, errors.New("model offline"))

	chapters.On("UpdateDNAByID", mock.Anything, mock.Anything, chapterID, mock.MatchedBy(func(raw json.RawMessage) bool {
		var rec models.ContinuityRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return false
		}
		return rec.ExtractionStatus == models.ExtractionStatusFallback &&
			rec.EndingGenetics.FinalSceneContext != ""
	})).Return(nil)

	// The fallback record is stored and the task is consumed, not retried.
	require.NoError(t, p.Process(context.Background(), task(chapterID)))
}

func TestProcessReturnsErrorWhenStoreFails(t *testing.T) {
	chapters := new(mocks.ChapterRepository)
	ai := new(mocks.AIClient)
	p := newProcessor(chapters, ai)

	chapterID := uuid.New()
	chapter := &models.Chapter{ID: chapterID, StoryID: uuid.New(), BranchNumber: 1, ChapterNumber: 2, Content: "x"}
	chapters.On("GetByID", mock.Anything, mock.Anything, chapterID).Return(chapter, nil)
	chapters.On("ListActiveThrough", mock.Anything, mock.Anything, chapter.StoryID, 1, 1).Return(nil, nil)
	ai.On("ExtractDNA", mock.Anything, "x", 2).Return(json.RawMessage(`{}`), nil)
	chapters.On("UpdateDNAByID", mock.Anything, mock.Anything, chapterID, mock.Anything).
		Return(errors.New("connection reset"))

	err := p.Process(context.Background(), task(chapterID))
	assert.Error(t, err)
}
