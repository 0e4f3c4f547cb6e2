package models

// Extraction statuses recorded on a ContinuityRecord.
const (
	ExtractionStatusOK       = "ok"
	ExtractionStatusFallback = "fallback"
)

// ThreadStatusOngoing is the default status for coerced plot threads.
const ThreadStatusOngoing = "ongoing"

// PlotThread is a tracked narrative element. ThreadID is the primary identity
// key for evolution diffing; description equality is the fallback.
type PlotThread struct {
	ThreadID    string `json:"thread_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	NextAction  string `json:"next_action,omitempty"`
}

// EndingGenetics captures how a chapter closes.
type EndingGenetics struct {
	FinalSceneContext string `json:"final_scene_context"`
	CliffhangerType   string `json:"cliffhanger_type,omitempty"`
	EmotionalCharge   string `json:"emotional_charge,omitempty"`
}

// ThreadEvolution is the set-algebra diff of plot threads against all prior
// records. Entries are thread descriptions.
type ThreadEvolution struct {
	Continued []string `json:"continued"`
	Dropped   []string `json:"dropped"`
	New       []string `json:"new"`
}

// ContinuityRecord ("plot DNA") is a structured snapshot of scene, character
// and plot state extracted from a single chapter. A missing record for a
// chapter is valid and must never block generation of later chapters.
type ContinuityRecord struct {
	ChapterNumber     int              `json:"chapter_number"`
	SceneState        string           `json:"scene_state"`
	ActiveCharacters  []string         `json:"active_characters"`
	PlotThreads       []PlotThread     `json:"plot_threads"`
	PendingDecisions  []string         `json:"pending_decisions"`
	ActiveConflicts   []string         `json:"active_conflicts"`
	EmotionalState    string           `json:"emotional_state"`
	EndingGenetics    EndingGenetics   `json:"ending_genetics"`
	ContinuityAnchors []string         `json:"continuity_anchors"`
	Evolution         *ThreadEvolution `json:"evolution,omitempty"`
	ExtractionStatus  string           `json:"extraction_status,omitempty"`
	ChosenOption      string           `json:"chosen_option,omitempty"`
}
