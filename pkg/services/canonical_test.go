package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "ACME WIDGETS", "acme widgets"},
		{"strips limited", "Acme Widgets Limited", "acme widgets"},
		{"strips ltd", "Acme Widgets Ltd", "acme widgets"},
		{"strips ltd with dot", "Acme Widgets Ltd.", "acme widgets"},
		{"strips stacked suffixes", "Acme Holdings Trust Limited", "acme holdings"},
		{"spells out ampersand", "Smith & Jones Limited", "smith and jones"},
		{"drops punctuation", "A.C.M.E. (Holdings) Limited", "a c m e holdings"},
		{"folds diacritics", "Café Rouge Limited", "cafe rouge"},
		{"strips charity suffix", "The Bridge Charity", "the bridge"},
		{"strips foundation", "Wellspring Foundation", "wellspring"},
		{"collapses spaced initials", "K I N D", "kind"},
		{"keeps ordinary words", "Northern Rock", "northern rock"},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalName(tt.input))
		})
	}
}

func TestCanonicalName_SuffixOnlyName(t *testing.T) {
	// A name consisting entirely of suffixes reduces to empty rather than
	// looping forever.
	assert.Equal(t, "", CanonicalName("Limited"))
	assert.Equal(t, "", CanonicalName("Trust Limited"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("acme widgets", "acme widgets"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))

	// Shared prefix scores partially.
	score := Similarity("acme widgets", "acme wadgets")
	assert.Greater(t, score, 0.8)
	assert.Less(t, score, 1.0)

	// Symmetric-ish: same matched total regardless of argument order.
	assert.InDelta(t, Similarity("holdco alpha", "alpha holdco"), Similarity("alpha holdco", "holdco alpha"), 0.0001)
}

func TestSimilarity_EmptyAgainstNonEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("", "acme"))
}
