package dna_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"plotforge/internal/dna"
	"plotforge/internal/mocks"
	"plotforge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractSuccess(t *testing.T) {
	ai := new(mocks.AIClient)
	tracker := dna.NewTracker(ai, zap.NewNop())

	raw := json.RawMessage(`{
		"scene_state": "The crypt has collapsed",
		"active_characters": ["Mara", "The", "Jo", "Warden", "mara"],
		"plot_threads": [
			{"thread_id": "t_key", "description": "Recover the key", "status": "ongoing"},
			"Confront the Warden"
		],
		"emotional_state": "dread",
		"ending_genetics": {"cliffhanger_type": "revelation", "emotional_charge": "high"}
	}`)
	ai.On("ExtractDNA", context.Background(), "Deep beneath the city the crypt gave way.", 3).
		Return(raw, nil)

	record, err := tracker.Extract(context.Background(), "Deep beneath the city the crypt gave way.", 3, nil, "choice_2")

	require.NoError(t, err)
	assert.Equal(t, models.ExtractionStatusOK, record.ExtractionStatus)
	assert.Equal(t, 3, record.ChapterNumber)
	assert.Equal(t, "choice_2", record.ChosenOption)

	// Common words, short tokens and case-duplicates are filtered out.
	assert.Equal(t, []string{"Mara", "Warden"}, record.ActiveCharacters)

	require.Len(t, record.PlotThreads, 2)
	assert.Equal(t, "t_key", record.PlotThreads[0].ThreadID)
	// Bare-string threads get a generated id and the default status.
	assert.True(t, strings.HasPrefix(record.PlotThreads[1].ThreadID, "thread_"))
	assert.Equal(t, models.ThreadStatusOngoing, record.PlotThreads[1].Status)
	assert.Equal(t, "Confront the Warden", record.PlotThreads[1].Description)

	// Missing final scene context is seeded from the chapter tail.
	assert.Equal(t, "Deep beneath the city the crypt gave way.", record.EndingGenetics.FinalSceneContext)
	assert.Equal(t, "revelation", record.EndingGenetics.CliffhangerType)

	require.NotNil(t, record.Evolution)
	assert.ElementsMatch(t, []string{"Recover the key", "Confront the Warden"}, record.Evolution.New)
}

func TestExtractFallbackOnCollaboratorError(t *testing.T) {
	ai := new(mocks.AIClient)
	tracker := dna.NewTracker(ai, zap.NewNop())

	ai.On("ExtractDNA", context.Background(), "The last candle went out.", 5).
		Return(nil, errors.New("upstream timeout"))

	record, err := tracker.Extract(context.Background(), "The last candle went out.", 5, nil, "")

	require.ErrorIs(t, err, models.ErrContinuityExtractionFailed)
	require.NotNil(t, record)
	assert.Equal(t, models.ExtractionStatusFallback, record.ExtractionStatus)
	assert.NotEmpty(t, record.EndingGenetics.FinalSceneContext)
	assert.Empty(t, record.PlotThreads)
	assert.NotNil(t, record.Evolution)
}

func TestExtractFallbackOnUnparseableOutput(t *testing.T) {
	ai := new(mocks.AIClient)
	tracker := dna.NewTracker(ai, zap.NewNop())

	ai.On("ExtractDNA", context.Background(), "She ran.", 2).
		Return(json.RawMessage(`not json at all`), nil)

	record, err := tracker.Extract(context.Background(), "She ran.", 2, nil, "")

	require.ErrorIs(t, err, models.ErrContinuityExtractionFailed)
	require.NotNil(t, record)
	assert.Equal(t, models.ExtractionStatusFallback, record.ExtractionStatus)
	assert.Equal(t, "She ran.", record.EndingGenetics.FinalSceneContext)
}

func TestExtractFallbackTailIsBounded(t *testing.T) {
	ai := new(mocks.AIClient)
	tracker := dna.NewTracker(ai, zap.NewNop())

	long := strings.Repeat("word ", 500) + "ending"
	ai.On("ExtractDNA", context.Background(), long, 1).Return(nil, errors.New("down"))

	record, _ := tracker.Extract(context.Background(), long, 1, nil, "")

	words := strings.Fields(record.EndingGenetics.FinalSceneContext)
	assert.Len(t, words, 100)
	assert.Equal(t, "ending", words[len(words)-1])
}
