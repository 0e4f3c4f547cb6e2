package choices_test

import (
	"testing"

	"plotforge/internal/choices"
	"plotforge/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "choice_1", choices.CanonicalID(1))
	assert.Equal(t, "choice_42", choices.CanonicalID(42))
}

func TestEquivalentForms(t *testing.T) {
	assert.ElementsMatch(t, []string{"5", "choice_5"}, choices.EquivalentForms("5"))
	assert.ElementsMatch(t, []string{"choice_5", "5"}, choices.EquivalentForms("choice_5"))
	assert.ElementsMatch(t, []string{"free-text-id"}, choices.EquivalentForms("free-text-id"))
	assert.Empty(t, choices.EquivalentForms(""))
	assert.Empty(t, choices.EquivalentForms("   "))
}

func TestMatches(t *testing.T) {
	candidate := &models.Choice{
		ID:       uuid.New(),
		ChoiceID: "choice_5",
	}

	// All forms naming the same ordinal identify the same choice.
	assert.True(t, choices.Matches("choice_5", candidate))
	assert.True(t, choices.Matches("5", candidate))
	assert.True(t, choices.Matches(candidate.ID.String(), candidate))

	assert.False(t, choices.Matches("choice_6", candidate))
	assert.False(t, choices.Matches("6", candidate))
	assert.False(t, choices.Matches("", candidate))
}
