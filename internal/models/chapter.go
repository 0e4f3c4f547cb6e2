package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChapterSlot identifies a position in a branch's sequence, independent of
// version history. All version/active queries are scoped by the full key --
// two branches reusing the same chapter number never share a version sequence.
type ChapterSlot struct {
	StoryID       uuid.UUID
	BranchNumber  int
	ChapterNumber int
}

func (s ChapterSlot) String() string {
	return fmt.Sprintf("%s/b%d/ch%d", s.StoryID, s.BranchNumber, s.ChapterNumber)
}

// Prior returns the slot of the preceding chapter on the same branch.
func (s ChapterSlot) Prior() ChapterSlot {
	return ChapterSlot{StoryID: s.StoryID, BranchNumber: s.BranchNumber, ChapterNumber: s.ChapterNumber - 1}
}

// Chapter is one version row within a chapter slot. At most one row per slot
// has IsActive=true at any observation point.
type Chapter struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	StoryID       uuid.UUID       `db:"story_id" json:"storyId"`
	BranchNumber  int             `db:"branch_number" json:"branchNumber"`
	ChapterNumber int             `db:"chapter_number" json:"chapterNumber"`
	Version       int             `db:"version" json:"version"`
	IsActive      bool            `db:"is_active" json:"isActive"`
	Title         string          `db:"title" json:"title"`
	Content       string          `db:"content" json:"content"`
	WordCount     int             `db:"word_count" json:"wordCount"`
	Summary       *string         `db:"summary" json:"summary,omitempty"`
	DNA           json.RawMessage `db:"dna" json:"dna,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// Slot returns the slot key of this chapter row.
func (c *Chapter) Slot() ChapterSlot {
	return ChapterSlot{StoryID: c.StoryID, BranchNumber: c.BranchNumber, ChapterNumber: c.ChapterNumber}
}
