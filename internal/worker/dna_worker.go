// Package worker runs the supervised background jobs: DNA extraction tasks
// and the matching dead-letter consumer.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plotforge/internal/dna"
	"plotforge/internal/interfaces"
	"plotforge/internal/limiter"
	"plotforge/internal/models"

	"go.uber.org/zap"
)

// DNAProcessor consumes extraction tasks and attaches continuity records to
// chapter rows. Updates are keyed by chapter row identity, never by slot, so
// an extraction that finishes after the slot was rewritten cannot clobber the
// newer version's record.
type DNAProcessor struct {
	db       interfaces.DBTX
	chapters interfaces.ChapterRepository
	tracker  *dna.Tracker
	gate     *limiter.Pool
	logger   *zap.Logger
}

// NewDNAProcessor creates the task processor.
func NewDNAProcessor(db interfaces.DBTX, chapters interfaces.ChapterRepository, tracker *dna.Tracker, gate *limiter.Pool, logger *zap.Logger) *DNAProcessor {
	return &DNAProcessor{
		db:       db,
		chapters: chapters,
		tracker:  tracker,
		gate:     gate,
		logger:   logger.Named("DNAProcessor"),
	}
}

// Process handles one extraction task.
func (p *DNAProcessor) Process(ctx context.Context, payload interfaces.DNAExtractionTaskPayload) error {
	logFields := []zap.Field{
		zap.String("taskID", payload.TaskID),
		zap.String("chapterID", payload.ChapterID.String()),
		zap.Int("chapterNumber", payload.ChapterNumber),
	}

	chapter, err := p.chapters.GetByID(ctx, p.db, payload.ChapterID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Row gone (story deleted or version superseded and purged):
			// nothing to attach the record to.
			p.logger.Info("Chapter row gone, skipping extraction", logFields...)
			dnaTasksTotal.WithLabelValues("skipped").Inc()
			return nil
		}
		dnaTasksTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load chapter for extraction: %w", err)
	}

	history, err := p.loadHistory(ctx, chapter)
	if err != nil {
		dnaTasksTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := p.gate.Acquire(ctx); err != nil {
		return err
	}
	start := time.Now()
	record, extractErr := p.tracker.Extract(ctx, chapter.Content, chapter.ChapterNumber, history, payload.ChosenOption)
	p.gate.Release()
	dnaExtractionDuration.Observe(time.Since(start).Seconds())

	raw, err := json.Marshal(record)
	if err != nil {
		dnaTasksTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to marshal continuity record: %w", err)
	}

	if err := p.chapters.UpdateDNAByID(ctx, p.db, chapter.ID, raw); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			p.logger.Info("Chapter row vanished during extraction, dropping record", logFields...)
			dnaTasksTotal.WithLabelValues("skipped").Inc()
			return nil
		}
		dnaTasksTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to store continuity record: %w", err)
	}

	if extractErr != nil {
		p.logger.Warn("Continuity extraction degraded to fallback record", logFields...)
		dnaTasksTotal.WithLabelValues("fallback").Inc()
	} else {
		p.logger.Info("Continuity record stored", logFields...)
		dnaTasksTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

// loadHistory gathers the continuity records of prior active chapters on the
// chapter's branch, oldest first. Missing records are skipped.
func (p *DNAProcessor) loadHistory(ctx context.Context, chapter *models.Chapter) ([]models.ContinuityRecord, error) {
	prior, err := p.chapters.ListActiveThrough(ctx, p.db, chapter.StoryID, chapter.BranchNumber, chapter.ChapterNumber-1)
	if err != nil {
		return nil, fmt.Errorf("failed to gather continuity history: %w", err)
	}

	history := make([]models.ContinuityRecord, 0, len(prior))
	for _, ch := range prior {
		if len(ch.DNA) == 0 {
			continue
		}
		var rec models.ContinuityRecord
		if err := json.Unmarshal(ch.DNA, &rec); err != nil {
			p.logger.Warn("Skipping unparseable continuity record",
				zap.String("chapterID", ch.ID.String()), zap.Error(err))
			continue
		}
		history = append(history, rec)
	}
	return history, nil
}
