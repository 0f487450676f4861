package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/deckstore"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
	"github.com/swstevens/agentic-cag-system/pkg/orchestrator"
)

type fakeRepo struct{}

func (fakeRepo) GetByName(ctx context.Context, name string) (card.Card, error) {
	return card.Card{ID: "basic:Mountain", Name: "Mountain", Types: []string{"Basic", "Land"}}, nil
}
func (fakeRepo) Search(ctx context.Context, f catalog.Filters, limit int) ([]card.Card, error) {
	return nil, nil
}
func (fakeRepo) SemanticSearch(ctx context.Context, q string, f *catalog.Filters, limit int) ([]card.Card, error) {
	return nil, nil
}

type fakeClient struct{}

func (fakeClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	switch req.Schema {
	case llm.SchemaDeckConstructionPlan:
		return llm.Response{Schema: req.Schema, DeckConstructionPlan: &llm.DeckConstructionPlan{
			Strategy:       "aggro",
			CardSelections: []llm.CardSelection{{CardName: "Mountain", Quantity: 4}},
		}}, nil
	case llm.SchemaRefinementPlan:
		return llm.Response{Schema: req.Schema, RefinementPlan: &llm.RefinementPlan{}}, nil
	}
	return llm.Response{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := deckstore.Open(t.TempDir() + "/decks.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	orch := orchestrator.New(fakeRepo{}, fakeClient{})
	return NewServer(orch, store)
}

func TestHandleChat_NewDeckSuccess(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequestBody{Message: "Build a Standard red aggro deck"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
}

func TestHandleChat_MissingMessageReturnsInvalidInput(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(chatRequestBody{Message: ""})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "invalid_input", env.Error)
}

func TestDeckCRUD_CreateGetUpdateDelete(t *testing.T) {
	s := newTestServer(t)

	createBody, _ := json.Marshal(createDeckBody{
		Name: "My Deck",
		Deck: card.Deck{Format: "Standard", Archetype: card.ArchetypeAggro, Colors: []string{"R"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/decks", bytes.NewReader(createBody))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var created envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created.Data.(map[string]any)["id"].(string)
	require.NotEmpty(t, id)

	// GET
	req = httptest.NewRequest(http.MethodGet, "/api/decks/"+id, nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// PUT
	updateBody, _ := json.Marshal(createDeckBody{
		Name: "Renamed Deck",
		Deck: card.Deck{Format: "Standard", Archetype: card.ArchetypeAggro, Colors: []string{"R"}},
	})
	req = httptest.NewRequest(http.MethodPut, "/api/decks/"+id, bytes.NewReader(updateBody))
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// DELETE
	req = httptest.NewRequest(http.MethodDelete, "/api/decks/"+id, nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// GET after delete -> 404
	req = httptest.NewRequest(http.MethodGet, "/api/decks/"+id, nil)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListDecks_LimitClamping(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/decks?limit=0", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
