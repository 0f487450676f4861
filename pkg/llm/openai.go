package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

// HTTPConfig configures the concrete provider transport. The provider
// itself is out of scope for this system's design (spec.md §1); this
// is one minimal, OpenAI-protocol-shaped implementation of the Client
// capability so the server has something real to run against.
type HTTPConfig struct {
	BaseURL string // chat-completions endpoint, OpenAI-compatible
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultHTTPConfig fills in the provider endpoint/timeout defaults;
// APIKey and Model are caller-supplied.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		BaseURL: "https://api.openai.com/v1/chat/completions",
		Timeout: 30 * time.Second,
	}
}

// httpClient is a Client implementation against an OpenAI-compatible
// chat-completions endpoint, using the provider's json_object response
// mode for the final structured answer and the provider's native
// function-calling loop for Tools.
type httpClient struct {
	cfg HTTPConfig
	hc  *http.Client
}

// NewHTTPClient builds a Client against cfg. The returned Client is
// typically wrapped in Decorate for the retry-once-then-degrade policy.
func NewHTTPClient(cfg HTTPConfig) Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &httpClient{cfg: cfg, hc: &http.Client{Timeout: cfg.Timeout}}
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Tools          []chatTool     `json:"tools,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// maxToolRounds bounds the function-calling loop so a misbehaving
// provider can't spin forever.
const maxToolRounds = 6

func (c *httpClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := []chatMessage{{Role: "system", Content: req.SystemPrompt}, {Role: "user", Content: req.UserPrompt}}
	tools := toChatTools(req.Tools)

	for round := 0; round < maxToolRounds; round++ {
		msg, err := c.call(ctx, messages, tools, req.Schema)
		if err != nil {
			return Response{}, err
		}
		if len(msg.ToolCalls) == 0 {
			return parseResponse(req.Schema, msg.Content)
		}
		messages = append(messages, msg)
		for _, tc := range msg.ToolCalls {
			if req.ToolHandler == nil {
				return Response{}, errs.New(errs.KindInternal, "provider requested a tool call but no ToolHandler was supplied")
			}
			var args map[string]any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			result, err := req.ToolHandler(ctx, ToolCall{Name: tc.Function.Name, Arguments: args})
			if err != nil {
				result = ToolResult{Name: tc.Function.Name, Content: fmt.Sprintf("error: %v", err)}
			}
			content, _ := json.Marshal(result.Content)
			messages = append(messages, chatMessage{Role: "tool", ToolCallID: tc.ID, Name: tc.Function.Name, Content: string(content)})
		}
	}
	return Response{}, errs.New(errs.KindInternal, "tool-call loop exceeded round limit without a final answer")
}

func (c *httpClient) call(ctx context.Context, messages []chatMessage, tools []chatTool, schema Schema) (chatMessage, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Tools:          tools,
		ResponseFormat: responseFormatFor(schema),
	})
	if err != nil {
		return chatMessage{}, errs.Wrap(errs.KindInternal, "failed to encode provider request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return chatMessage{}, errs.Wrap(errs.KindInternal, "failed to build provider request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return chatMessage{}, errs.Wrap(errs.KindUpstreamUnavailable, "provider request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return chatMessage{}, errs.Wrap(errs.KindUpstreamUnavailable, "failed to read provider response", err)
	}
	if resp.StatusCode >= 500 {
		return chatMessage{}, errs.New(errs.KindUpstreamUnavailable, fmt.Sprintf("provider returned %d", resp.StatusCode))
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return chatMessage{}, errs.Wrap(errs.KindParseFailure, "provider response was not valid JSON", err)
	}
	if cr.Error != nil {
		return chatMessage{}, errs.New(errs.KindInvalidInput, "provider error: "+cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return chatMessage{}, errs.New(errs.KindParseFailure, "provider returned no choices")
	}
	return cr.Choices[0].Message, nil
}

func toChatTools(tools []Tool) []chatTool {
	out := make([]chatTool, 0, len(tools))
	for _, t := range tools {
		ct := chatTool{Type: "function"}
		ct.Function.Name = t.Name
		ct.Function.Description = t.Description
		ct.Function.Parameters = t.Parameters
		out = append(out, ct)
	}
	return out
}

// responseFormatFor pins the final answer to json_object mode; schema
// validation of the decoded payload happens in parseResponse.
func responseFormatFor(schema Schema) map[string]any {
	if schema == "" {
		return nil
	}
	return map[string]any{"type": "json_object"}
}

func parseResponse(schema Schema, content string) (Response, error) {
	resp := Response{Schema: schema}
	var err error
	switch schema {
	case SchemaDeckConstructionPlan:
		var v DeckConstructionPlan
		err = json.Unmarshal([]byte(content), &v)
		resp.DeckConstructionPlan = &v
	case SchemaRefinementPlan:
		var v RefinementPlan
		err = json.Unmarshal([]byte(content), &v)
		resp.RefinementPlan = &v
	case SchemaDeckImprovementPlan:
		var v DeckImprovementPlan
		err = json.Unmarshal([]byte(content), &v)
		resp.DeckImprovementPlan = &v
	case SchemaModificationIntent:
		var v ModificationIntent
		err = json.Unmarshal([]byte(content), &v)
		resp.ModificationIntent = &v
	default:
		return Response{}, errs.New(errs.KindInvalidInput, fmt.Sprintf("unknown schema %q", schema))
	}
	if err != nil {
		return Response{}, errs.Wrap(errs.KindParseFailure, "provider content did not match the requested schema", err)
	}
	return resp, nil
}
