package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
)

type fakeRepo struct {
	byName    map[string]card.Card
	searchErr error
}

func newFakeRepo() *fakeRepo {
	r := &fakeRepo{byName: map[string]card.Card{}}
	for _, n := range []string{"Plains", "Island", "Swamp", "Mountain", "Forest"} {
		r.byName[n] = card.Card{ID: "basic:" + n, Name: n, Types: []string{"Basic", "Land"}, TypeLine: "Basic Land"}
	}
	r.byName["Goblin Guide"] = card.Card{ID: "gg", Name: "Goblin Guide", CMC: 1, Colors: []string{"R"}, Types: []string{"Creature"}}
	r.byName["Lightning Bolt"] = card.Card{ID: "bolt", Name: "Lightning Bolt", CMC: 1, Colors: []string{"R"}, Types: []string{"Instant"}}
	return r
}

func (f *fakeRepo) GetByName(ctx context.Context, name string) (card.Card, error) {
	c, ok := f.byName[name]
	if !ok {
		return card.Card{}, assert.AnError
	}
	return c, nil
}

func (f *fakeRepo) Search(ctx context.Context, filters catalog.Filters, limit int) ([]card.Card, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return nil, nil
}

func (f *fakeRepo) SemanticSearch(ctx context.Context, query string, filters *catalog.Filters, limit int) ([]card.Card, error) {
	return nil, nil
}

type fakeClient struct {
	plan llm.DeckConstructionPlan
}

func (f fakeClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	switch req.Schema {
	case llm.SchemaDeckConstructionPlan:
		return llm.Response{Schema: req.Schema, DeckConstructionPlan: &f.plan}, nil
	case llm.SchemaRefinementPlan:
		return llm.Response{Schema: req.Schema, RefinementPlan: &llm.RefinementPlan{Analysis: "add removal"}}, nil
	case llm.SchemaModificationIntent:
		return llm.Response{Schema: req.Schema, ModificationIntent: &llm.ModificationIntent{
			IntentType:  llm.IntentRemove,
			CardChanges: []llm.IntentCardChange{{Predicate: "CMC >= 6"}},
			Confidence:  0.9,
		}}, nil
	}
	return llm.Response{}, nil
}

func TestHandleChat_NewDeck_BuildsAndReportsQualityScore(t *testing.T) {
	repo := newFakeRepo()
	client := fakeClient{plan: llm.DeckConstructionPlan{CardSelections: []llm.CardSelection{{CardName: "Goblin Guide", Quantity: 4}}}}
	o := New(repo, client)

	resp := o.HandleChat(context.Background(), ChatRequest{Message: "Build a Standard red aggro deck"})
	require.NoError(t, resp.Error)
	require.NotNil(t, resp.Deck)
	assert.Equal(t, "Standard", resp.Deck.Format)
	assert.Equal(t, 60, resp.Deck.TotalCards)
	assert.Contains(t, resp.Message, "Quality Score: ")
	assert.GreaterOrEqual(t, resp.Iterations, 1)
}

func TestHandleChat_NewDeck_CommanderSizedAndSingleton(t *testing.T) {
	repo := newFakeRepo()
	client := fakeClient{plan: llm.DeckConstructionPlan{CardSelections: []llm.CardSelection{{CardName: "Lightning Bolt", Quantity: 10}}}}
	o := New(repo, client)

	resp := o.HandleChat(context.Background(), ChatRequest{Message: "Build a Commander blue deck"})
	require.NoError(t, resp.Error)
	require.NotNil(t, resp.Deck)
	assert.Equal(t, 100, resp.Deck.TotalCards)
	for _, dc := range resp.Deck.Cards {
		if dc.Card.Name == "Lightning Bolt" {
			assert.Equal(t, 1, dc.Quantity)
		}
	}
}

func TestHandleChat_NewDeck_MaxIterationsZeroStopsAfterOnePass(t *testing.T) {
	repo := newFakeRepo()
	client := fakeClient{}
	o := New(repo, client)

	resp := o.HandleChat(context.Background(), ChatRequest{
		Message: "Build a Standard deck",
		Context: map[string]any{"max_iterations": float64(0)},
	})
	require.NoError(t, resp.Error)
	assert.Equal(t, 1, resp.Iterations)
}

func TestHandleChat_NewDeck_CatalogOutageShortCircuits(t *testing.T) {
	repo := newFakeRepo()
	repo.searchErr = errs.New(errs.KindUpstreamUnavailable, "catalog down")
	client := fakeClient{}
	o := New(repo, client)

	resp := o.HandleChat(context.Background(), ChatRequest{Message: "Build a Standard deck"})
	require.Error(t, resp.Error)
	assert.Nil(t, resp.Deck)
}

func TestHandleChat_Modification_RoutesOnExistingDeck(t *testing.T) {
	repo := newFakeRepo()
	client := fakeClient{}
	o := New(repo, client)

	deck := card.Deck{Format: "Standard", Archetype: card.ArchetypeAggro, Colors: []string{"R"}}
	deck.Cards = []card.DeckCard{
		{Card: repo.byName["Mountain"], Quantity: 56},
		{Card: card.Card{ID: "dread", Name: "Colossal Dreadmaw", CMC: 6, Types: []string{"Creature"}}, Quantity: 4},
	}
	deck.RecomputeTotal()

	resp := o.HandleChat(context.Background(), ChatRequest{
		Message:      "Remove all cards with CMC >= 6",
		ExistingDeck: &deck,
	})
	require.NoError(t, resp.Error)
	require.NotNil(t, resp.Deck)
	assert.Equal(t, 60, resp.Deck.TotalCards)
	for _, dc := range resp.Deck.Cards {
		assert.NotEqual(t, "Colossal Dreadmaw", dc.Card.Name)
	}
	assert.True(t, strings.Contains(resp.Message, "Applied"))
}
