package interfaces

import (
	"context"
	"encoding/json"

	"plotforge/internal/models"
)

// AIClient is the seam to the external generation collaborators.
//
//go:generate mockery --name AIClient --output ../mocks --outpkg mocks --case=underscore
type AIClient interface {
	// GenerateChapter produces the next chapter's content, title and proposed
	// choices. Collaborator failure, timeout or malformed output is returned
	// wrapped in models.ErrGenerationFailed.
	GenerateChapter(ctx context.Context, req models.GenerationRequest) (*models.GeneratedChapter, error)

	// ExtractDNA asks the structured-extraction collaborator for a raw JSON
	// object matching the ContinuityRecord shape. Callers own validation and
	// fallback handling.
	ExtractDNA(ctx context.Context, chapterText string, chapterNumber int) (json.RawMessage, error)
}
