package models

import (
	"time"

	"github.com/google/uuid"
)

// Branch numbers are story-local, not globally unique.
const (
	// TrunkBranchNumber is the sentinel number for a story's trunk when no
	// chapters exist yet to derive it from.
	TrunkBranchNumber = 1
	// FirstForkBranchNumber is allocated for the first fork of a story whose
	// chapters so far all live on the trunk.
	FirstForkBranchNumber = 2
)

// Branch is an independent, forkable sequence of chapters for a story.
// The trunk has no parent. Branch rows are created on fork and never mutated.
type Branch struct {
	ID             uuid.UUID `db:"id" json:"id"`
	StoryID        uuid.UUID `db:"story_id" json:"storyId"`
	BranchNumber   int       `db:"branch_number" json:"branchNumber"`
	ParentBranch   *int      `db:"parent_branch" json:"parentBranch,omitempty"`
	ForkChapter    int       `db:"fork_chapter" json:"forkChapter"`
	Label          string    `db:"label" json:"label"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// BranchNode is one entry of the branch tree returned to callers.
type BranchNode struct {
	BranchNumber int        `json:"branchNumber"`
	ParentBranch *int       `json:"parentBranch,omitempty"`
	ForkChapter  int        `json:"forkChapter"`
	Label        string     `json:"label"`
	Chapters     []*Chapter `json:"chapters"`
}
