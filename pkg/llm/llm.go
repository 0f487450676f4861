// Package llm declares the structured-output capability the deck
// engine drives: a single capability interface plus the four typed
// request/response schemas spec.md names (DeckConstructionPlan,
// RefinementPlan, DeckImprovementPlan, ModificationIntent). Callers may
// supply any Client implementation; openai.go holds one minimal
// OpenAI-compatible HTTP implementation, and every Client hands back
// typed Go values.
package llm

import (
	"context"
	"time"

	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/log"
	"github.com/swstevens/agentic-cag-system/pkg/metrics"
)

// Schema names the structured-output contract a Call targets, used for
// logging and metrics labels.
type Schema string

const (
	SchemaDeckConstructionPlan Schema = "deck_construction_plan"
	SchemaRefinementPlan       Schema = "refinement_plan"
	SchemaDeckImprovementPlan  Schema = "deck_improvement_plan"
	SchemaModificationIntent   Schema = "modification_intent"
)

// Tool is a single function the model may call mid-generation, as
// exposed by the agent builder (search_cards, get_card_details).
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON-schema-shaped parameter description
}

// ToolCall is a single invocation the model requested.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// ToolResult is the caller's answer to a ToolCall, fed back into the
// same structured-output round.
type ToolResult struct {
	Name    string
	Content any
}

// Request is one structured-output call: a prompt, the schema the
// response must validate against, and any tools the model may invoke
// before producing its final structured answer.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Schema       Schema
	Tools        []Tool
	// ToolHandler is invoked synchronously for every ToolCall the
	// provider emits before it returns a final structured answer.
	// Nil when Tools is empty.
	ToolHandler func(ctx context.Context, call ToolCall) (ToolResult, error)
}

// Response carries the validated structured payload. Exactly one of the
// typed fields matching Request.Schema is populated.
type Response struct {
	Schema               Schema
	DeckConstructionPlan *DeckConstructionPlan
	RefinementPlan       *RefinementPlan
	DeckImprovementPlan  *DeckImprovementPlan
	ModificationIntent   *ModificationIntent
}

// Client is the single capability every LLM-backed component drives:
// process one structured-output request, get back a validated typed
// response. Implementations own retry/backoff against the underlying
// provider transport; Decorate below adds a
// retry-once-then-degrade policy on top of any Client.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// CardSelection is one line of a DeckConstructionPlan.
type CardSelection struct {
	CardName  string `json:"card_name"`
	Quantity  int    `json:"quantity"`
	Reasoning string `json:"reasoning"`
}

// DeckConstructionPlan is the agent builder's initial-construction
// schema: a strategy narrative plus concrete card selections.
type DeckConstructionPlan struct {
	Strategy       string          `json:"strategy"`
	CardSelections []CardSelection `json:"card_selections"`
}

// RefinementAction is one add/remove/replace step of a RefinementPlan.
// ReplaceWith carries the incoming card name for a "replace" action,
// mirroring IntentCardChange.ReplaceWith.
type RefinementAction struct {
	Type        string `json:"type"` // add | remove | replace
	CardName    string `json:"card_name"`
	ReplaceWith string `json:"replace_with,omitempty"`
	Quantity    int    `json:"quantity"`
	Reasoning   string `json:"reasoning"`
}

// RefinementPlan is the agent builder's refinement schema.
type RefinementPlan struct {
	Analysis string             `json:"analysis"`
	Actions  []RefinementAction `json:"actions"`
}

// ImprovementCardChange is one addition/removal line of a
// DeckImprovementPlan.
type ImprovementCardChange struct {
	CardName string `json:"card_name"`
	Reason   string `json:"reason"`
	Quantity int    `json:"quantity"`
}

// DeckImprovementPlan is the quality analyzer's LLM-assisted
// improvement-plan schema.
type DeckImprovementPlan struct {
	Removals []ImprovementCardChange `json:"removals"`
	Additions []ImprovementCardChange `json:"additions"`
	Analysis  string                  `json:"analysis"`
}

// IntentType is the closed enum of modification intents the
// modification executor routes on.
type IntentType string

const (
	IntentAdd            IntentType = "ADD"
	IntentRemove         IntentType = "REMOVE"
	IntentReplace        IntentType = "REPLACE"
	IntentOptimize       IntentType = "OPTIMIZE"
	IntentStrategyShift  IntentType = "STRATEGY_SHIFT"
)

// IntentCardChange describes one card-level delta requested by a
// modification prompt, possibly as a predicate rather than a name
// (e.g. "CMC >= 6").
type IntentCardChange struct {
	CardName     string  `json:"card_name,omitempty"`
	Predicate    string  `json:"predicate,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
	ReplaceWith  string  `json:"replace_with,omitempty"`
}

// ModificationIntent is the single-pass modification executor's intent
// classification schema. Confidence is carried per spec.md §9's open
// question but deliberately never gates execution.
type ModificationIntent struct {
	IntentType  IntentType         `json:"intent_type"`
	Description string             `json:"description"`
	CardChanges []IntentCardChange `json:"card_changes"`
	Constraints []string           `json:"constraints"`
	Confidence  float64            `json:"confidence"`
}

// decorated wraps a Client with a retry-once failure policy: any failure
// other than context cancellation is retried once with the same input;
// a second failure is returned as an error and the degraded fallback is
// left to the caller.
type decorated struct {
	inner   Client
	backoff time.Duration
}

// Decorate wraps client with the retry-once-then-fail policy common to
// every caller in this system: a failed call (a parse failure or any
// other error except context cancellation) is retried once with the
// same request; a second failure of any kind returns a *errs.Error of kind
// parse_failure so the caller can apply its own degraded fallback
// (spec.md §4.11 assigns the actual fallback behavior to the builder
// and analyzer, not to this package).
func Decorate(client Client) Client {
	return &decorated{inner: client, backoff: 150 * time.Millisecond}
}

func (d *decorated) Complete(ctx context.Context, req Request) (Response, error) {
	logger := log.WithComponent("llm")
	timer := metrics.NewTimer()

	resp, err := d.inner.Complete(ctx, req)
	if err == nil {
		metrics.LLMCallDuration.WithLabelValues(string(req.Schema)).Observe(timer.Duration().Seconds())
		metrics.LLMCallsTotal.WithLabelValues(string(req.Schema), "ok").Inc()
		return resp, nil
	}
	if ctx.Err() != nil {
		metrics.LLMCallsTotal.WithLabelValues(string(req.Schema), "cancelled").Inc()
		return Response{}, ctx.Err()
	}

	logger.Warn().Str("schema", string(req.Schema)).Err(err).Msg("llm call failed, retrying once")
	select {
	case <-time.After(d.backoff):
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	resp, err = d.inner.Complete(ctx, req)
	metrics.LLMCallDuration.WithLabelValues(string(req.Schema)).Observe(timer.Duration().Seconds())
	if err != nil {
		metrics.LLMCallsTotal.WithLabelValues(string(req.Schema), "failed").Inc()
		metrics.LLMParseFailuresTotal.WithLabelValues(string(req.Schema)).Inc()
		logger.Error().Str("schema", string(req.Schema)).Err(err).Msg("llm call failed after retry")
		return Response{}, errs.Wrap(errs.KindParseFailure, "llm structured output failed after retry", err)
	}
	metrics.LLMCallsTotal.WithLabelValues(string(req.Schema), "ok_after_retry").Inc()
	return resp, nil
}
