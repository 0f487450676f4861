package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name       string
		oracleText string
		typeLine   string
		wantTag    string
	}{
		{name: "removal", oracleText: "Destroy target creature.", typeLine: "Instant", wantTag: "removal"},
		{name: "ramp", oracleText: "Search your library for a basic land card.", typeLine: "Sorcery", wantTag: "ramp"},
		{name: "graveyard synergy", oracleText: "Return target creature card from your graveyard to your hand.", typeLine: "Sorcery", wantTag: "graveyard"},
		{name: "no match", oracleText: "Vanilla creature, no text.", typeLine: "Creature — Bear", wantTag: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := Names(tt.oracleText, tt.typeLine, nil)
			if tt.wantTag == "" {
				assert.Empty(t, names)
				return
			}
			assert.Contains(t, names, tt.wantTag)
		})
	}
}

func TestGenerate_FormatFitFromLegalities(t *testing.T) {
	legalities := map[string]string{
		"commander": "legal",
		"standard":  "not_legal",
		"modern":    "banned",
	}
	names := Names("Vanilla creature, no text.", "Creature — Bear", legalities)
	assert.Contains(t, names, "commander-legal")
	assert.NotContains(t, names, "standard-legal")
	assert.NotContains(t, names, "modern-legal")

	tagged := Generate("", "", legalities)
	require := assert.New(t)
	found := false
	for _, tg := range tagged {
		if tg.Name == "commander-legal" {
			found = true
			require.Equal(CategoryFormatFit, tg.Category)
		}
	}
	require.True(found)
}

func TestShared(t *testing.T) {
	assert.Equal(t, 2, Shared([]string{"ramp", "removal", "lifegain"}, []string{"ramp", "removal"}))
	assert.Equal(t, 0, Shared([]string{"ramp"}, []string{"removal"}))
	assert.Equal(t, 0, Shared(nil, []string{"removal"}))
}
