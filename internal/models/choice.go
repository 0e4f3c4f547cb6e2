package models

import (
	"time"

	"github.com/google/uuid"
)

// ChoiceTypeNarrative is the default type for offered choices whose shape did
// not carry an explicit type.
const ChoiceTypeNarrative = "narrative"

// Choice is one option offered at a chapter slot. The full set for a slot is
// replaced atomically whenever a chapter is generated for that slot; rows are
// never updated individually except to set the selected flag.
type Choice struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	StoryID       uuid.UUID  `db:"story_id" json:"storyId"`
	BranchNumber  int        `db:"branch_number" json:"branchNumber"`
	ChapterNumber int        `db:"chapter_number" json:"chapterNumber"`
	ChapterID     uuid.UUID  `db:"chapter_id" json:"chapterId"`
	ChoiceID      string     `db:"choice_id" json:"choiceId"` // canonical "choice_<n>"
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description"`
	Impact        string     `db:"impact" json:"impact"`
	ChoiceType    string     `db:"choice_type" json:"choiceType"`
	IsSelected    bool       `db:"is_selected" json:"isSelected"`
	SelectedAt    *time.Time `db:"selected_at" json:"selectedAt,omitempty"`
	UserID        *uuid.UUID `db:"user_id" json:"userId,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}
