// Package choices canonicalizes heterogeneous choice identifiers.
//
// Callers present choice ids as an integer, a digit string or a string of the
// form "choice_<n>". All forms naming the same ordinal are equivalent.
package choices

import (
	"fmt"
	"strconv"
	"strings"

	"plotforge/internal/models"
)

// Prefix is the canonical choice id prefix.
const Prefix = "choice_"

// CanonicalID returns the canonical id for a 1-based ordinal.
func CanonicalID(ordinal int) string {
	return fmt.Sprintf("%s%d", Prefix, ordinal)
}

// EquivalentForms returns the set of string forms equivalent to raw:
// the raw value itself, the value without the canonical prefix, and the value
// with the prefix, as applicable. Pure function; no storage access.
func EquivalentForms(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	forms := []string{raw}
	if stripped, ok := strings.CutPrefix(raw, Prefix); ok {
		forms = append(forms, stripped)
	} else if _, err := strconv.Atoi(raw); err == nil {
		forms = append(forms, Prefix+raw)
	}
	return forms
}

// Matches reports whether raw identifies the candidate choice, comparing the
// equivalence set against the row identity and the canonical choice id. An
// empty set never matches; "not found" is the caller's verdict.
func Matches(raw string, candidate *models.Choice) bool {
	for _, form := range EquivalentForms(raw) {
		if form == candidate.ChoiceID || form == candidate.ID.String() {
			return true
		}
	}
	return false
}
