package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"plotforge/internal/choices"
	"plotforge/internal/interfaces"
	"plotforge/internal/limiter"
	"plotforge/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdvanceRequest asks the engine to produce a chapter of a story.
// BranchNumber 0 means "the story's trunk"; ChapterNumber 0 means "the slot
// after the branch tip". ChoiceID is the reader's pick among the previous
// chapter's choices, in any accepted form; empty means "follow the recorded
// selection, if any".
type AdvanceRequest struct {
	StoryID       uuid.UUID
	BranchNumber  int
	ChapterNumber int
	ChoiceID      string
	UserID        *uuid.UUID
}

// AdvanceResult is what the reader gets back from one advance.
type AdvanceResult struct {
	Chapter *models.Chapter
	Choices []*models.Choice
	// Forked is set when the advance diverged from a recorded selection and
	// continued on a freshly created branch.
	Forked       bool
	BranchNumber int
}

// AdvanceService drives the generation pipeline: resolve the reader's choice,
// fork if it diverges from the recorded selection, generate the chapter,
// persist it as a new active version and schedule continuity extraction.
type AdvanceService struct {
	db        interfaces.DBTX
	txm       interfaces.TxManager
	stories   interfaces.StoryRepository
	chapters  interfaces.ChapterRepository
	choiceRep interfaces.ChoiceRepository
	branches  *BranchService
	ai        interfaces.AIClient
	publisher interfaces.DNATaskPublisher
	locker    interfaces.SlotLocker
	admission *limiter.AdmissionController
	leaseTTL  time.Duration
	logger    *zap.Logger
}

// NewAdvanceService wires the engine.
func NewAdvanceService(
	db interfaces.DBTX,
	txm interfaces.TxManager,
	stories interfaces.StoryRepository,
	chapters interfaces.ChapterRepository,
	choiceRep interfaces.ChoiceRepository,
	branches *BranchService,
	ai interfaces.AIClient,
	publisher interfaces.DNATaskPublisher,
	locker interfaces.SlotLocker,
	admission *limiter.AdmissionController,
	leaseTTL time.Duration,
	logger *zap.Logger,
) *AdvanceService {
	return &AdvanceService{
		db:        db,
		txm:       txm,
		stories:   stories,
		chapters:  chapters,
		choiceRep: choiceRep,
		branches:  branches,
		ai:        ai,
		publisher: publisher,
		locker:    locker,
		admission: admission,
		leaseTTL:  leaseTTL,
		logger:    logger.Named("AdvanceService"),
	}
}

// Advance runs one full advance cycle and returns the new active chapter with
// its offered choices.
func (s *AdvanceService) Advance(ctx context.Context, req AdvanceRequest) (*AdvanceResult, error) {
	story, err := s.stories.GetByID(ctx, s.db, req.StoryID)
	if err != nil {
		return nil, err
	}

	branch := req.BranchNumber
	if branch == 0 {
		branch, err = s.branches.ResolveTrunk(ctx, s.db, req.StoryID)
		if err != nil {
			return nil, err
		}
	} else if err := s.branches.EnsureExists(ctx, req.StoryID, branch); err != nil {
		return nil, err
	}

	targetNumber := req.ChapterNumber
	if targetNumber == 0 {
		tip, err := s.chapters.ListActiveThrough(ctx, s.db, req.StoryID, branch, math.MaxInt32)
		if err != nil {
			return nil, fmt.Errorf("failed to load branch history: %w", err)
		}
		targetNumber = 1
		if len(tip) > 0 {
			targetNumber = tip[len(tip)-1].ChapterNumber + 1
		}
	}
	slot := models.ChapterSlot{StoryID: req.StoryID, BranchNumber: branch, ChapterNumber: targetNumber}

	resolved, needSelect, err := s.resolveChoice(ctx, slot, req.ChoiceID)
	if err != nil {
		return nil, err
	}

	forked := false
	if resolved != nil && resolved.diverged {
		// The reader picked something other than the recorded selection. When
		// a chapter already continues from that selection, the chapters after
		// the choice point belong to a different timeline: fork at the choice
		// point and continue there. Without such a chapter (a fresh branch
		// whose cloned selection hasn't been continued yet) the new pick just
		// replaces the recorded one.
		_, activeErr := s.chapters.GetActive(ctx, s.db, slot)
		switch {
		case activeErr == nil:
			branchRow, err := s.branches.Fork(ctx, req.StoryID, branch, slot.ChapterNumber-1, resolved.choice.Title)
			if err != nil {
				return nil, err
			}
			branch = branchRow.BranchNumber
			slot.BranchNumber = branch
			forked = true
		case errors.Is(activeErr, models.ErrNotFound):
			// fall through, selection override happens in the persist tx
		default:
			return nil, fmt.Errorf("failed to check slot occupancy: %w", activeErr)
		}
		needSelect = true
	}

	history, err := s.chapters.ListActiveThrough(ctx, s.db, req.StoryID, branch, slot.ChapterNumber-1)
	if err != nil {
		return nil, fmt.Errorf("failed to load branch history: %w", err)
	}

	// Serialize writers on the slot. The storage-layer compare-and-swap is
	// still the final arbiter; the lease just keeps concurrent advances from
	// burning duplicate generation calls.
	token, err := s.locker.Acquire(ctx, slot, s.leaseTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := s.locker.Release(context.WithoutCancel(ctx), slot, token); relErr != nil {
			s.logger.Warn("Failed to release slot lease",
				zap.String("slot", slot.String()), zap.Error(relErr))
		}
	}()

	chosenOption := ""
	if resolved != nil {
		chosenOption = resolved.choice.Title
	}

	genReq := models.GenerationRequest{
		StoryID:       story.ID.String(),
		Outline:       story.Outline,
		Genre:         story.Genre,
		Tone:          story.Tone,
		ChapterNumber: slot.ChapterNumber,
		ChosenOption:  chosenOption,
		History:       buildChapterContexts(history),
	}

	generated, err := s.generate(ctx, genReq)
	if err != nil {
		return nil, err
	}

	result, err := s.persist(ctx, slot, generated, resolved, needSelect, req.UserID)
	if err != nil {
		return nil, err
	}
	result.Forked = forked
	result.BranchNumber = branch

	s.scheduleContinuity(ctx, result.Chapter, chosenOption)

	s.logger.Info("Story advanced",
		zap.String("slot", slot.String()),
		zap.Int("version", result.Chapter.Version),
		zap.Bool("forked", forked))
	return result, nil
}

// resolvedChoice carries the choice the advance continues from and whether it
// diverged from an already-recorded selection.
type resolvedChoice struct {
	choice   *models.Choice
	diverged bool
}

// resolveChoice maps the raw choice id onto the prior slot's offered choices.
// Returns (nil, false, nil) when there is nothing to resolve (first chapter,
// or no raw id and no recorded selection). needSelect is true when the
// resolved choice still has to be recorded as selected.
func (s *AdvanceService) resolveChoice(ctx context.Context, slot models.ChapterSlot, raw string) (*resolvedChoice, bool, error) {
	if slot.ChapterNumber <= 1 {
		return nil, false, nil
	}
	prior := slot.Prior()

	selected, err := s.choiceRep.GetSelected(ctx, s.db, prior)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to load recorded selection: %w", err)
	}

	if raw == "" {
		if selected == nil {
			return nil, false, nil
		}
		return &resolvedChoice{choice: selected}, false, nil
	}

	offered, err := s.choiceRep.ListForSlot(ctx, s.db, prior)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load offered choices: %w", err)
	}
	for _, c := range offered {
		if choices.Matches(raw, c) {
			if selected == nil {
				return &resolvedChoice{choice: c}, true, nil
			}
			if selected.ChoiceID != c.ChoiceID {
				return &resolvedChoice{choice: c, diverged: true}, false, nil
			}
			return &resolvedChoice{choice: c}, false, nil
		}
	}
	return nil, false, fmt.Errorf("%w: %q is not offered at %s", models.ErrInvalidChoice, raw, prior)
}

// generate calls the generation collaborator under the generation pool. The
// slot is released on every exit path, panics included.
func (s *AdvanceService) generate(ctx context.Context, req models.GenerationRequest) (*models.GeneratedChapter, error) {
	if err := s.admission.Generation.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.admission.Generation.Release()
	return s.ai.GenerateChapter(ctx, req)
}

// persist writes the generated chapter as the slot's new active version along
// with its offered choices, in one transaction gated by the persistence pool.
func (s *AdvanceService) persist(ctx context.Context, slot models.ChapterSlot, generated *models.GeneratedChapter, resolved *resolvedChoice, needSelect bool, userID *uuid.UUID) (*AdvanceResult, error) {
	if err := s.admission.Persistence.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.admission.Persistence.Release()

	result := &AdvanceResult{}
	err := s.txm.WithTx(ctx, func(tx interfaces.DBTX) error {
		version, err := s.chapters.NextVersion(ctx, tx, slot)
		if err != nil {
			return err
		}

		chapter := &models.Chapter{
			StoryID:       slot.StoryID,
			BranchNumber:  slot.BranchNumber,
			ChapterNumber: slot.ChapterNumber,
			Version:       version,
			Title:         generated.Title,
			Content:       generated.Content,
		}
		if err := s.chapters.WriteNewActiveVersion(ctx, tx, chapter); err != nil {
			return err
		}

		offered, err := s.choiceRep.ReplaceForSlot(ctx, tx, slot, chapter.ID, generated.Choices)
		if err != nil {
			return err
		}

		if needSelect && resolved != nil {
			if err := s.choiceRep.MarkSelected(ctx, tx, slot.Prior(), resolved.choice.ChoiceID, userID); err != nil {
				return err
			}
		}

		if err := s.stories.BumpCurrentChapter(ctx, tx, slot.StoryID, slot.ChapterNumber); err != nil {
			return err
		}

		result.Chapter = chapter
		result.Choices = offered
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// scheduleContinuity publishes the extraction task. Failure here is logged
// and swallowed: the chapter is already durable, and a missing continuity
// record only degrades future prompts.
func (s *AdvanceService) scheduleContinuity(ctx context.Context, chapter *models.Chapter, chosenOption string) {
	payload := interfaces.DNAExtractionTaskPayload{
		TaskID:        uuid.New().String(),
		StoryID:       chapter.StoryID,
		ChapterID:     chapter.ID,
		BranchNumber:  chapter.BranchNumber,
		ChapterNumber: chapter.ChapterNumber,
		ChosenOption:  chosenOption,
	}
	if err := s.publisher.PublishDNATask(context.WithoutCancel(ctx), payload); err != nil {
		s.logger.Error("Failed to schedule continuity extraction",
			zap.String("chapterID", chapter.ID.String()), zap.Error(err))
	}
}

// buildChapterContexts converts stored chapters into prompt context entries.
func buildChapterContexts(history []*models.Chapter) []models.ChapterContext {
	out := make([]models.ChapterContext, 0, len(history))
	for _, ch := range history {
		cc := models.ChapterContext{
			ChapterNumber: ch.ChapterNumber,
			Title:         ch.Title,
			Content:       ch.Content,
		}
		if ch.Summary != nil {
			cc.Summary = *ch.Summary
		}
		if len(ch.DNA) > 0 {
			var rec models.ContinuityRecord
			if err := json.Unmarshal(ch.DNA, &rec); err == nil {
				cc.DNA = &rec
			}
		}
		out = append(out, cc)
	}
	return out
}
