package models

// GeneratedChoice is the normalized shape of one proposed choice. Upstream
// models emit at least two shapes ({text, consequence} and
// {title, description}); the AI client maps both into this type at the
// ingestion boundary so nothing downstream branches on field presence.
type GeneratedChoice struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
	ChoiceType  string `json:"choiceType,omitempty"`
}

// GeneratedChapter is the result of one generation call.
type GeneratedChapter struct {
	Title   string            `json:"title"`
	Content string            `json:"content"`
	Choices []GeneratedChoice `json:"choices"`
}

// ChapterContext is one prior chapter handed to the prompt builder.
type ChapterContext struct {
	ChapterNumber int
	Title         string
	Content       string
	Summary       string
	DNA           *ContinuityRecord // nil when extraction is missing or pending
}

// GenerationRequest carries everything the generation collaborator needs to
// produce the next chapter.
type GenerationRequest struct {
	StoryID       string
	Outline       string
	Genre         string
	Tone          string
	ChapterNumber int
	ChosenOption  string
	History       []ChapterContext
}
