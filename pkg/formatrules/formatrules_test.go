package formatrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swstevens/agentic-cag-system/pkg/card"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantName    string
		wantKnown   bool
		wantSingle  bool
	}{
		{name: "standard exact", input: "Standard", wantName: "Standard", wantKnown: true},
		{name: "commander case insensitive", input: "COMMANDER", wantName: "Commander", wantKnown: true, wantSingle: true},
		{name: "unknown defaults to standard", input: "pauper", wantName: "Standard", wantKnown: false},
		{name: "blank defaults to standard", input: "", wantName: "Standard", wantKnown: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, known := Lookup(tt.input)
			assert.Equal(t, tt.wantName, f.Name)
			assert.Equal(t, tt.wantKnown, known)
			assert.Equal(t, tt.wantSingle, f.Singleton)
		})
	}
}

func TestCopyLimit(t *testing.T) {
	standard, _ := Lookup("standard")
	commander, _ := Lookup("commander")

	tests := []struct {
		name     string
		format   Format
		card     card.Card
		expected int
	}{
		{
			name:     "basic land unlimited",
			format:   standard,
			card:     card.Card{Name: "Forest", Types: []string{"Land"}},
			expected: 1 << 30,
		},
		{
			name:     "standard nonbasic",
			format:   standard,
			card:     card.Card{Name: "Llanowar Elves", Types: []string{"Creature"}},
			expected: 4,
		},
		{
			name:     "standard legendary capped at one",
			format:   standard,
			card:     card.Card{Name: "Esika, God of the Tree", Types: []string{"Legendary", "Creature"}},
			expected: 1,
		},
		{
			name:     "commander singleton",
			format:   commander,
			card:     card.Card{Name: "Sol Ring", Types: []string{"Artifact"}},
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.CopyLimit(tt.card))
		})
	}
}

func TestIdealLands(t *testing.T) {
	standard, _ := Lookup("standard")
	lands := standard.IdealLands(card.ArchetypeControl, 60)
	assert.InDelta(t, 25, lands, 1)
}

func TestIdealCurveFallsBackToOther(t *testing.T) {
	standard, _ := Lookup("standard")
	curve := standard.IdealCurve(card.Archetype("unknown"))
	assert.Equal(t, standard.IdealCurves[card.ArchetypeOther], curve)
}
