package dna_test

import (
	"testing"

	"plotforge/internal/dna"
	"plotforge/internal/models"

	"github.com/stretchr/testify/assert"
)

func thread(id, desc string) models.PlotThread {
	return models.PlotThread{ThreadID: id, Description: desc, Status: models.ThreadStatusOngoing}
}

func TestComputeEvolutionByID(t *testing.T) {
	history := []models.ContinuityRecord{
		{PlotThreads: []models.PlotThread{thread("t_a", "Find the heir"), thread("t_b", "Escape the city")}},
	}
	current := &models.ContinuityRecord{
		PlotThreads: []models.PlotThread{thread("t_b", "Escape the city"), thread("t_c", "Broker the truce")},
	}

	evo := dna.ComputeEvolution(current, history)

	assert.Equal(t, []string{"Escape the city"}, evo.Continued)
	assert.Equal(t, []string{"Find the heir"}, evo.Dropped)
	assert.Equal(t, []string{"Broker the truce"}, evo.New)
}

func TestComputeEvolutionByDescriptionWhenIDsMissing(t *testing.T) {
	history := []models.ContinuityRecord{
		{PlotThreads: []models.PlotThread{thread("", "Find the heir"), thread("", "Escape the city")}},
	}
	// New ids every extraction run; descriptions carry the identity.
	current := &models.ContinuityRecord{
		PlotThreads: []models.PlotThread{thread("t_x", "escape  the City"), thread("t_y", "Broker the truce")},
	}

	evo := dna.ComputeEvolution(current, history)

	assert.Equal(t, []string{"escape  the City"}, evo.Continued)
	assert.Equal(t, []string{"Find the heir"}, evo.Dropped)
	assert.Equal(t, []string{"Broker the truce"}, evo.New)
}

func TestComputeEvolutionPoolsAllPriorRecords(t *testing.T) {
	history := []models.ContinuityRecord{
		{PlotThreads: []models.PlotThread{thread("t_a", "Find the heir")}},
		{PlotThreads: []models.PlotThread{thread("t_b", "Escape the city")}},
	}
	current := &models.ContinuityRecord{
		PlotThreads: []models.PlotThread{thread("t_a", "Find the heir")},
	}

	evo := dna.ComputeEvolution(current, history)

	assert.Equal(t, []string{"Find the heir"}, evo.Continued)
	assert.Equal(t, []string{"Escape the city"}, evo.Dropped)
	assert.Empty(t, evo.New)
}

func TestComputeEvolutionEmptyHistory(t *testing.T) {
	current := &models.ContinuityRecord{
		PlotThreads: []models.PlotThread{thread("t_a", "Find the heir")},
	}

	evo := dna.ComputeEvolution(current, nil)

	assert.Empty(t, evo.Continued)
	assert.Empty(t, evo.Dropped)
	assert.Equal(t, []string{"Find the heir"}, evo.New)
}
