package models

import (
	"time"

	"github.com/google/uuid"
)

// Story is the root aggregate. The outline is immutable after creation;
// CurrentChapter only ever grows.
type Story struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"userId"`
	Title          string    `db:"title" json:"title"`
	Outline        string    `db:"outline" json:"outline"`
	Genre          string    `db:"genre" json:"genre"`
	Tone           string    `db:"tone" json:"tone"`
	CurrentChapter int       `db:"current_chapter" json:"currentChapter"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
