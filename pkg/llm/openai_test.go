package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_CompleteWithoutTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Empty(t, req.Tools)

		msg := chatMessage{Role: "assistant", Content: `{"strategy":"aggro","card_selections":[{"card_name":"Goblin Guide","quantity":4}]}`}
		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: msg}}})
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, APIKey: "test", Model: "test-model"})
	resp, err := c.Complete(context.Background(), Request{
		SystemPrompt: "build",
		UserPrompt:   "go",
		Schema:       SchemaDeckConstructionPlan,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.DeckConstructionPlan)
	assert.Equal(t, "aggro", resp.DeckConstructionPlan.Strategy)
	assert.Len(t, resp.DeckConstructionPlan.CardSelections, 1)
}

func TestHTTPClient_ToolCallLoopInvokesHandlerThenReturnsFinalAnswer(t *testing.T) {
	round := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		round++
		var msg chatMessage
		if round == 1 {
			tc := chatToolCall{ID: "call_1", Type: "function"}
			tc.Function.Name = "search_cards"
			tc.Function.Arguments = `{"colors":["R"]}`
			msg = chatMessage{Role: "assistant", ToolCalls: []chatToolCall{tc}}
		} else {
			msg = chatMessage{Role: "assistant", Content: `{"strategy":"done","card_selections":[]}`}
		}
		_ = json.NewEncoder(w).Encode(chatResponse{Choices: []struct {
			Message chatMessage `json:"message"`
		}{{Message: msg}}})
	}))
	defer srv.Close()

	called := false
	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, APIKey: "test", Model: "test-model"})
	resp, err := c.Complete(context.Background(), Request{
		SystemPrompt: "build",
		UserPrompt:   "go",
		Schema:       SchemaDeckConstructionPlan,
		Tools:        []Tool{{Name: "search_cards"}},
		ToolHandler: func(ctx context.Context, call ToolCall) (ToolResult, error) {
			called = true
			assert.Equal(t, "search_cards", call.Name)
			return ToolResult{Name: call.Name, Content: []string{"Goblin Guide"}}, nil
		},
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 2, round)
	require.NotNil(t, resp.DeckConstructionPlan)
	assert.Equal(t, "done", resp.DeckConstructionPlan.Strategy)
}

func TestHTTPClient_ServerErrorIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPConfig{BaseURL: srv.URL, APIKey: "test", Model: "test-model"})
	_, err := c.Complete(context.Background(), Request{Schema: SchemaModificationIntent})
	require.Error(t, err)
}
