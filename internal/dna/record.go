package dna

import (
	"encoding/json"
	"fmt"
	"strings"

	"plotforge/internal/models"

	"github.com/google/uuid"
)

// rawRecord mirrors models.ContinuityRecord but tolerates the loose shapes
// the extraction model actually returns: plot threads may arrive as bare
// strings, sections may be missing entirely.
type rawRecord struct {
	SceneState        string            `json:"scene_state"`
	ActiveCharacters  []string          `json:"active_characters"`
	PlotThreads       []rawThread       `json:"plot_threads"`
	PendingDecisions  []string          `json:"pending_decisions"`
	ActiveConflicts   []string          `json:"active_conflicts"`
	EmotionalState    string            `json:"emotional_state"`
	EndingGenetics    rawEndingGenetics `json:"ending_genetics"`
	ContinuityAnchors []string          `json:"continuity_anchors"`
}

type rawEndingGenetics struct {
	FinalSceneContext string `json:"final_scene_context"`
	CliffhangerType   string `json:"cliffhanger_type"`
	EmotionalCharge   string `json:"emotional_charge"`
}

// rawThread accepts either a canonical thread object or a bare string.
type rawThread struct {
	ThreadID    string `json:"thread_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	NextAction  string `json:"next_action"`
}

func (t *rawThread) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Description = s
		return nil
	}

	type alias rawThread
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("plot thread is neither string nor object: %w", err)
	}
	*t = rawThread(a)
	return nil
}

// coerce normalizes a raw thread into the canonical shape: bare descriptions
// get a generated thread id and status "ongoing".
func (t rawThread) coerce() models.PlotThread {
	out := models.PlotThread{
		ThreadID:    t.ThreadID,
		Description: strings.TrimSpace(t.Description),
		Status:      t.Status,
		NextAction:  t.NextAction,
	}
	if out.ThreadID == "" {
		out.ThreadID = "thread_" + uuid.NewString()[:8]
	}
	if out.Status == "" {
		out.Status = models.ThreadStatusOngoing
	}
	return out
}

// commonWords are frequent capitalized tokens the extraction model mistakes
// for character names.
var commonWords = map[string]struct{}{
	"the": {}, "and": {}, "but": {}, "she": {}, "him": {}, "her": {},
	"his": {}, "they": {}, "them": {}, "then": {}, "that": {}, "this": {},
	"with": {}, "from": {}, "when": {}, "what": {}, "who": {}, "chapter": {},
}

// filterCharacters drops short tokens and common-word false positives from
// the active-character list, de-duplicating while preserving order.
func filterCharacters(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if len(name) < 3 {
			continue
		}
		lower := strings.ToLower(name)
		if _, common := commonWords[lower]; common {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, name)
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
