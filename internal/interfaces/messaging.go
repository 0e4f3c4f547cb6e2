package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// DNAExtractionTaskPayload is the message scheduled after a chapter is
// persisted. ChapterID pins the task to the exact row so a stale extraction
// can never clobber a newer version's record.
type DNAExtractionTaskPayload struct {
	TaskID        string    `json:"taskId"`
	StoryID       uuid.UUID `json:"storyId"`
	ChapterID     uuid.UUID `json:"chapterId"`
	BranchNumber  int       `json:"branchNumber"`
	ChapterNumber int       `json:"chapterNumber"`
	ChosenOption  string    `json:"chosenOption,omitempty"`
}

// DNATaskPublisher schedules asynchronous continuity extraction.
//
//go:generate mockery --name DNATaskPublisher --output ../mocks --outpkg mocks --case=underscore
type DNATaskPublisher interface {
	PublishDNATask(ctx context.Context, payload DNAExtractionTaskPayload) error
}
