// Package dna extracts and tracks per-chapter continuity records ("plot DNA")
// so forked or resumed storylines stay factually consistent.
package dna

import (
	"context"
	"encoding/json"
	"strings"

	"plotforge/internal/interfaces"
	"plotforge/internal/models"

	"go.uber.org/zap"
)

// fallbackTailWords is how much of the chapter tail seeds the fallback
// record's final scene context.
const fallbackTailWords = 100

// Tracker validates extraction output and computes thread evolution. It never
// fails hard: a collaborator error degrades to a fallback record so a missing
// or degraded record can never block chapter generation.
type Tracker struct {
	ai     interfaces.AIClient
	logger *zap.Logger
}

// NewTracker creates a Tracker around the extraction collaborator.
func NewTracker(ai interfaces.AIClient, logger *zap.Logger) *Tracker {
	return &Tracker{
		ai:     ai,
		logger: logger.Named("DNATracker"),
	}
}

// Extract obtains the continuity record for a chapter and attaches the
// evolution diff relative to all prior records. On collaborator failure or
// unparseable output it returns the fallback record; the error return is
// informational only and the record is always usable.
func (t *Tracker) Extract(ctx context.Context, chapterText string, chapterNumber int, history []models.ContinuityRecord, chosenOption string) (*models.ContinuityRecord, error) {
	raw, err := t.ai.ExtractDNA(ctx, chapterText, chapterNumber)
	if err != nil {
		t.logger.Warn("Extraction collaborator failed, building fallback record",
			zap.Int("chapterNumber", chapterNumber), zap.Error(err))
		return t.fallbackRecord(chapterText, chapterNumber, history, chosenOption), models.ErrContinuityExtractionFailed
	}

	var parsed rawRecord
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.logger.Warn("Extraction output unparseable, building fallback record",
			zap.Int("chapterNumber", chapterNumber), zap.Error(err))
		return t.fallbackRecord(chapterText, chapterNumber, history, chosenOption), models.ErrContinuityExtractionFailed
	}

	record := &models.ContinuityRecord{
		ChapterNumber:     chapterNumber,
		SceneState:        parsed.SceneState,
		ActiveCharacters:  filterCharacters(parsed.ActiveCharacters),
		PlotThreads:       coerceThreads(parsed.PlotThreads),
		PendingDecisions:  emptyIfNil(parsed.PendingDecisions),
		ActiveConflicts:   emptyIfNil(parsed.ActiveConflicts),
		EmotionalState:    parsed.EmotionalState,
		ContinuityAnchors: emptyIfNil(parsed.ContinuityAnchors),
		EndingGenetics: models.EndingGenetics{
			FinalSceneContext: parsed.EndingGenetics.FinalSceneContext,
			CliffhangerType:   parsed.EndingGenetics.CliffhangerType,
			EmotionalCharge:   parsed.EndingGenetics.EmotionalCharge,
		},
		ExtractionStatus: models.ExtractionStatusOK,
		ChosenOption:     chosenOption,
	}
	if record.EndingGenetics.FinalSceneContext == "" {
		record.EndingGenetics.FinalSceneContext = tailWords(chapterText, fallbackTailWords)
	}

	record.Evolution = ComputeEvolution(record, history)
	return record, nil
}

// fallbackRecord builds the degraded record: empty structured sections plus a
// final scene context from the chapter tail.
func (t *Tracker) fallbackRecord(chapterText string, chapterNumber int, history []models.ContinuityRecord, chosenOption string) *models.ContinuityRecord {
	record := &models.ContinuityRecord{
		ChapterNumber:     chapterNumber,
		ActiveCharacters:  []string{},
		PlotThreads:       []models.PlotThread{},
		PendingDecisions:  []string{},
		ActiveConflicts:   []string{},
		ContinuityAnchors: []string{},
		EndingGenetics: models.EndingGenetics{
			FinalSceneContext: tailWords(chapterText, fallbackTailWords),
		},
		ExtractionStatus: models.ExtractionStatusFallback,
		ChosenOption:     chosenOption,
	}
	record.Evolution = ComputeEvolution(record, history)
	return record
}

func coerceThreads(raw []rawThread) []models.PlotThread {
	out := make([]models.PlotThread, 0, len(raw))
	for _, t := range raw {
		coerced := t.coerce()
		if coerced.Description == "" {
			continue
		}
		out = append(out, coerced)
	}
	return out
}

// tailWords returns the last n whitespace-separated words of text.
func tailWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
