package handler

import (
	"plotforge/internal/models"

	"github.com/google/uuid"
)

// CreateStoryRequest starts a new story.
type CreateStoryRequest struct {
	UserID  string `json:"userId" binding:"required,uuid"`
	Title   string `json:"title" binding:"required"`
	Outline string `json:"outline" binding:"required"`
	Genre   string `json:"genre"`
	Tone    string `json:"tone"`
}

// AdvanceRequest asks for a chapter. ChoiceID accepts an ordinal, a digit
// string or the canonical "choice_<n>" form; branchNumber 0 targets the
// trunk, chapterNumber 0 the slot after the branch tip.
type AdvanceRequest struct {
	BranchNumber  int    `json:"branchNumber"`
	ChapterNumber int    `json:"chapterNumber"`
	ChoiceID      string `json:"choiceId"`
	UserID        string `json:"userId" binding:"omitempty,uuid"`
}

// AdvanceResponse returns the freshly activated chapter and its choices.
type AdvanceResponse struct {
	Chapter      *models.Chapter  `json:"chapter"`
	Choices      []*models.Choice `json:"choices"`
	BranchNumber int              `json:"branchNumber"`
	Forked       bool             `json:"forked"`
}

// ForkRequest creates a branch explicitly, without advancing. fromBranch 0
// targets the trunk, mirroring branchNumber on AdvanceRequest.
type ForkRequest struct {
	FromBranch  int    `json:"fromBranch" binding:"min=0"`
	ForkChapter int    `json:"forkChapter" binding:"required,min=1"`
	Label       string `json:"label"`
}

// BranchTreeResponse lists every branch with its active chapters.
type BranchTreeResponse struct {
	StoryID  uuid.UUID            `json:"storyId"`
	Branches []*models.BranchNode `json:"branches"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
