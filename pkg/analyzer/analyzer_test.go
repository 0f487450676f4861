package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/formatrules"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
)

func landCard(name string) card.Card {
	return card.Card{ID: name, Name: name, TypeLine: "Basic Land", Types: []string{"Basic", "Land"}}
}

func spell(name string, cmc float64, types ...string) card.Card {
	if len(types) == 0 {
		types = []string{"Creature"}
	}
	return card.Card{ID: name, Name: name, CMC: cmc, Types: types, TypeLine: types[0], OracleText: "Draw a card.", Colors: []string{"R"}, ColorIdentity: []string{"R"}}
}

func TestVerify_ScoresInUnitInterval(t *testing.T) {
	format, _ := formatrules.Lookup("standard")
	deck := card.Deck{Format: "Standard", Archetype: card.ArchetypeAggro}
	for i := 0; i < 20; i++ {
		deck.Cards = append(deck.Cards, card.DeckCard{Card: spell("Bolt", 1), Quantity: 1})
	}
	for i := 0; i < 22; i++ {
		deck.Cards = append(deck.Cards, card.DeckCard{Card: landCard("Mountain"), Quantity: 1})
	}
	deck.RecomputeTotal()

	a := New(nil)
	m := a.Verify(context.Background(), deck, format)

	for _, s := range []float64{m.ManaCurve, m.LandRatio, m.Synergy, m.Consistency, m.Overall} {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestVerify_EmptyDeckDoesNotPanic(t *testing.T) {
	format, _ := formatrules.Lookup("standard")
	a := New(nil)
	m := a.Verify(context.Background(), card.Deck{Archetype: card.ArchetypeAggro}, format)
	assert.Equal(t, 0.0, m.ManaCurve)
}

func TestVerify_LowScoresProduceIssuesAndSuggestions(t *testing.T) {
	format, _ := formatrules.Lookup("standard")
	deck := card.Deck{Archetype: card.ArchetypeControl}
	// Wildly wrong curve and no lands at all.
	for i := 0; i < 60; i++ {
		deck.Cards = append(deck.Cards, card.DeckCard{Card: spell("Expensive Thing", 7), Quantity: 1})
	}
	deck.RecomputeTotal()

	a := New(nil)
	m := a.Verify(context.Background(), deck, format)
	assert.NotEmpty(t, m.Issues)
	assert.NotEmpty(t, m.Suggestions)
}

type fakeImprovementClient struct{}

func (fakeImprovementClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{
		Schema: llm.SchemaDeckImprovementPlan,
		DeckImprovementPlan: &llm.DeckImprovementPlan{
			Additions: []llm.ImprovementCardChange{{CardName: "Lightning Bolt", Quantity: 4, Reason: "cheap removal"}},
			Analysis:  "curve is too top heavy",
		},
	}, nil
}

func TestVerify_AttachesImprovementPlanWhenClientConfigured(t *testing.T) {
	format, _ := formatrules.Lookup("standard")
	a := New(fakeImprovementClient{})
	deck := card.Deck{Archetype: card.ArchetypeAggro, Cards: []card.DeckCard{{Card: spell("Goblin", 1), Quantity: 4}}}
	deck.RecomputeTotal()

	m := a.Verify(context.Background(), deck, format)
	require.Len(t, m.ImprovementPlan.Additions, 1)
	assert.Equal(t, "Lightning Bolt", m.ImprovementPlan.Additions[0].Name)
	assert.Equal(t, "curve is too top heavy", m.ImprovementPlan.Analysis)
}

func TestVerify_NilClientLeavesPlanAbsent(t *testing.T) {
	format, _ := formatrules.Lookup("standard")
	a := New(nil)
	m := a.Verify(context.Background(), card.Deck{Archetype: card.ArchetypeAggro}, format)
	assert.Empty(t, m.ImprovementPlan.Additions)
	assert.Empty(t, m.ImprovementPlan.Removals)
}
