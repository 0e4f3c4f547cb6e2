package dna

import (
	"strings"

	"plotforge/internal/models"
)

// normDesc is the fallback identity key for a thread when ids cannot be
// matched (paraphrase-tolerant only to the extent of case/whitespace).
func normDesc(desc string) string {
	return strings.Join(strings.Fields(strings.ToLower(desc)), " ")
}

// ComputeEvolution diffs the current record's plot threads against the pooled
// threads of all prior records:
//
//	continued = current ∩ prior, dropped = prior − current, new = current − prior
//
// A thread matches across records by thread id when both sides carry one, and
// by normalized description otherwise. Reported entries are descriptions.
func ComputeEvolution(current *models.ContinuityRecord, history []models.ContinuityRecord) *models.ThreadEvolution {
	priorIDs := make(map[string]string)   // thread id -> description
	priorDescs := make(map[string]string) // normalized description -> description
	for _, rec := range history {
		for _, t := range rec.PlotThreads {
			if t.ThreadID != "" {
				priorIDs[t.ThreadID] = t.Description
			}
			if d := normDesc(t.Description); d != "" {
				priorDescs[d] = t.Description
			}
		}
	}

	curIDs := make(map[string]struct{}, len(current.PlotThreads))
	curDescs := make(map[string]struct{}, len(current.PlotThreads))

	evo := &models.ThreadEvolution{
		Continued: []string{},
		Dropped:   []string{},
		New:       []string{},
	}

	for _, t := range current.PlotThreads {
		if t.ThreadID != "" {
			curIDs[t.ThreadID] = struct{}{}
		}
		d := normDesc(t.Description)
		if d != "" {
			curDescs[d] = struct{}{}
		}

		_, byID := priorIDs[t.ThreadID]
		_, byDesc := priorDescs[d]
		if byID || byDesc {
			evo.Continued = append(evo.Continued, t.Description)
		} else {
			evo.New = append(evo.New, t.Description)
		}
	}

	// Prior threads absent from the current record, id first, then the
	// description pool for threads that never had an id.
	droppedSeen := make(map[string]struct{})
	for id, desc := range priorIDs {
		if _, ok := curIDs[id]; ok {
			continue
		}
		d := normDesc(desc)
		if _, ok := curDescs[d]; ok {
			continue
		}
		if _, dup := droppedSeen[d]; dup {
			continue
		}
		droppedSeen[d] = struct{}{}
		evo.Dropped = append(evo.Dropped, desc)
	}
	for d, desc := range priorDescs {
		if _, ok := curDescs[d]; ok {
			continue
		}
		if _, dup := droppedSeen[d]; dup {
			continue
		}
		// Skip threads already accounted for via their id.
		if hasIDForDesc(priorIDs, desc) {
			continue
		}
		droppedSeen[d] = struct{}{}
		evo.Dropped = append(evo.Dropped, desc)
	}

	return evo
}

func hasIDForDesc(priorIDs map[string]string, desc string) bool {
	for _, d := range priorIDs {
		if d == desc {
			return true
		}
	}
	return false
}
