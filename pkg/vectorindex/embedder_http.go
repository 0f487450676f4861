package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

// HTTPEmbedderConfig configures the concrete embedding provider
// transport. Like the LLM client, the embedding-model wire protocol is
// out of this system's scope; this is one minimal OpenAI-compatible
// implementation of Embedder so the index has something real to run
// against.
type HTTPEmbedderConfig struct {
	BaseURL string // embeddings endpoint, OpenAI-compatible
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultHTTPEmbedderConfig fills in the provider endpoint/timeout
// defaults; APIKey and Model are caller-supplied.
func DefaultHTTPEmbedderConfig() HTTPEmbedderConfig {
	return HTTPEmbedderConfig{
		BaseURL: "https://api.openai.com/v1/embeddings",
		Model:   "text-embedding-3-small",
		Timeout: 15 * time.Second,
	}
}

type httpEmbedder struct {
	cfg HTTPEmbedderConfig
	hc  *http.Client
}

// NewHTTPEmbedder builds an Embedder against cfg.
func NewHTTPEmbedder(cfg HTTPEmbedderConfig) Embedder {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &httpEmbedder{cfg: cfg, hc: &http.Client{Timeout: cfg.Timeout}}
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (e *httpEmbedder) Embed(text string) ([]float64, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.cfg.Model, Input: text})
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to encode embedding request", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "failed to build embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.hc.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "embedding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, errs.New(errs.KindUpstreamUnavailable, fmt.Sprintf("embedding provider returned %d", resp.StatusCode))
	}

	var er embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, errs.Wrap(errs.KindParseFailure, "embedding response was not valid JSON", err)
	}
	if er.Error != nil {
		return nil, errs.New(errs.KindInvalidInput, "embedding provider error: "+er.Error.Message)
	}
	if len(er.Data) == 0 {
		return nil, errs.New(errs.KindParseFailure, "embedding provider returned no vectors")
	}
	return er.Data[0].Embedding, nil
}
