package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardIsBasicLand(t *testing.T) {
	tests := []struct {
		name     string
		card     Card
		expected bool
	}{
		{
			name:     "named basic",
			card:     Card{Name: "Forest", Types: []string{"Land"}},
			expected: true,
		},
		{
			name:     "basic supertype",
			card:     Card{Name: "Snow-Covered Forest", Types: []string{"Basic", "Land"}},
			expected: true,
		},
		{
			name:     "nonbasic land",
			card:     Card{Name: "Command Tower", Types: []string{"Land"}},
			expected: false,
		},
		{
			name:     "creature",
			card:     Card{Name: "Grizzly Bears", Types: []string{"Creature"}},
			expected: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.card.IsBasicLand())
		})
	}
}

func TestCardIsLegendary(t *testing.T) {
	c := Card{Types: []string{"Legendary", "Creature"}}
	assert.True(t, c.IsLegendary())

	c2 := Card{Types: []string{"Creature"}}
	assert.False(t, c2.IsLegendary())
}

func TestDeckColorIdentity(t *testing.T) {
	tests := []struct {
		name     string
		deck     Deck
		expected []string
	}{
		{
			name: "union across cards",
			deck: Deck{Cards: []DeckCard{
				{Card: Card{ColorIdentity: []string{"R"}}, Quantity: 4},
				{Card: Card{ColorIdentity: []string{"G"}}, Quantity: 4},
			}},
			expected: []string{"R", "G"},
		},
		{
			name:     "empty deck",
			deck:     Deck{},
			expected: nil,
		},
		{
			name: "dedupes and orders WUBRG",
			deck: Deck{Cards: []DeckCard{
				{Card: Card{ColorIdentity: []string{"G", "W"}}, Quantity: 1},
				{Card: Card{ColorIdentity: []string{"W"}}, Quantity: 1},
			}},
			expected: []string{"W", "G"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.deck.ColorIdentity())
		})
	}
}

func TestDeckRecomputeTotal(t *testing.T) {
	d := Deck{Cards: []DeckCard{
		{Quantity: 4}, {Quantity: 20}, {Quantity: 36},
	}}
	d.RecomputeTotal()
	assert.Equal(t, 60, d.TotalCards)
}

func TestOverall(t *testing.T) {
	got := Overall(1.0, 1.0, 0.0, 0.0)
	assert.InDelta(t, 0.5, got, 1e-9)
}
