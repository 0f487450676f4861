package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swstevens/agentic-cag-system/pkg/card"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: ":memory:", AutoMigrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cards := []card.Card{
		{
			ID: "1", Name: "Llanowar Elves", ManaCost: "{G}", CMC: 1,
			Colors: []string{"G"}, ColorIdentity: []string{"G"},
			TypeLine: "Creature — Elf Druid", Types: []string{"Creature"}, Subtypes: []string{"Elf", "Druid"},
			OracleText: "{T}: Add {G}.", SetCode: "M10", Rarity: "common",
			Legalities: map[string]string{"standard": "not_legal", "modern": "legal"},
		},
		{
			ID: "2", Name: "Forest", Types: []string{"Basic", "Land"}, TypeLine: "Basic Land — Forest",
			SetCode: "M10", Rarity: "common",
			Legalities: map[string]string{"standard": "legal", "modern": "legal"},
		},
		{
			ID: "3", Name: "Lightning Bolt", ManaCost: "{R}", CMC: 1,
			Colors: []string{"R"}, ColorIdentity: []string{"R"},
			TypeLine: "Instant", Types: []string{"Instant"},
			OracleText: "Lightning Bolt deals 3 damage to any target.",
			SetCode: "M10", Rarity: "common",
			Legalities: map[string]string{"standard": "not_legal", "modern": "legal"},
		},
	}
	n, err := s.Ingest(context.Background(), cards)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return s
}

func TestGetByIDAndName(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	c, err := s.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Llanowar Elves", c.Name)

	c2, err := s.GetByName(ctx, "lightning bolt")
	require.NoError(t, err)
	assert.Equal(t, "3", c2.ID)

	_, err = s.GetByID(ctx, "missing")
	assert.Error(t, err)
}

func TestSearchOrdersByName(t *testing.T) {
	s := seedStore(t)
	results, err := s.Search(context.Background(), Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Forest", results[0].Name)
	assert.Equal(t, "Lightning Bolt", results[1].Name)
	assert.Equal(t, "Llanowar Elves", results[2].Name)
}

func TestSearchFilters(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filters  Filters
		expected []string
	}{
		{name: "by rarity", filters: Filters{Rarity: "common"}, expected: []string{"Forest", "Lightning Bolt", "Llanowar Elves"}},
		{name: "by color", filters: Filters{Colors: []string{"R"}}, expected: []string{"Lightning Bolt"}},
		{name: "by type", filters: Filters{Types: []string{"Instant"}}, expected: []string{"Lightning Bolt"}},
		{name: "legal in standard", filters: Filters{LegalFormat: "standard"}, expected: []string{"Forest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(ctx, tt.filters, 10)
			require.NoError(t, err)
			var names []string
			for _, c := range results {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestCount(t *testing.T) {
	s := seedStore(t)
	n, err := s.Count(context.Background(), Filters{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
