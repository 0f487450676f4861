// Package orchestrator drives the finite-state build/verify/refine loop
// for new decks and the single-pass modification flow, per spec.md
// §4.10/§4.11: a straight-line state machine, not a recursion over
// futures, with deterministic routing on request shape.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/swstevens/agentic-cag-system/pkg/analyzer"
	"github.com/swstevens/agentic-cag-system/pkg/builder"
	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/formatrules"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
	"github.com/swstevens/agentic-cag-system/pkg/log"
	"github.com/swstevens/agentic-cag-system/pkg/metrics"
	"github.com/swstevens/agentic-cag-system/pkg/modexec"
)

// DefaultThreshold and DefaultMaxIterations are the spec.md §4.10
// defaults, overridable per-request via ChatRequest.Context.
const (
	DefaultThreshold     = 0.7
	DefaultMaxIterations = 5
)

// ChatRequest is the unified entry point: a new-deck request carries no
// ExistingDeck, a modification request carries one plus the request
// text in Message.
type ChatRequest struct {
	Message      string
	Context      map[string]any
	ExistingDeck *card.Deck
}

// ChatResponse is returned from both flows. Error is nil on success;
// Deck is nil whenever Error is set, including a deck-size invariant
// violation after a deck was built.
type ChatResponse struct {
	RequestID  string
	Message    string
	Deck       *card.Deck
	Iterations int
	History    []card.IterationRecord
	Error      error
}

// repository is the narrow probe surface the orchestrator needs to
// detect a catalog outage before committing to a build, independent of
// the wider Repository interfaces builder/modexec hold.
type repository interface {
	Search(ctx context.Context, f catalog.Filters, limit int) ([]card.Card, error)
}

// Orchestrator wires together the agent builder, modification executor,
// and quality analyzer behind the single HandleChat entry point.
type Orchestrator struct {
	repo     repository
	builder  *builder.Builder
	analyzer *analyzer.Analyzer
	modexec  *modexec.Executor
}

// New constructs an Orchestrator over a shared repository and LLM
// client; repo must also satisfy builder.Repository.
func New(repo builder.Repository, llmClient llm.Client) *Orchestrator {
	az := analyzer.New(llmClient)
	return &Orchestrator{
		repo:     repo,
		builder:  builder.New(repo, llmClient),
		analyzer: az,
		modexec:  modexec.New(repo, llmClient, az),
	}
}

// HandleChat routes deterministically on req.ExistingDeck per spec.md
// §4.10: nil means new-deck flow, non-nil means modification flow.
func (o *Orchestrator) HandleChat(ctx context.Context, req ChatRequest) ChatResponse {
	requestID := uuid.NewString()
	logger := log.WithRequestID(requestID)

	if req.ExistingDeck != nil {
		logger.Info().Msg("routing to modification flow")
		return o.handleModification(ctx, requestID, req)
	}
	logger.Info().Msg("routing to new-deck flow")
	return o.handleNewDeck(ctx, requestID, req)
}

// handleNewDeck implements ParseRequest -> BuildInitial -> VerifyQuality
// -> {RefineDeck -> VerifyQuality}* -> Terminal.
func (o *Orchestrator) handleNewDeck(ctx context.Context, requestID string, req ChatRequest) ChatResponse {
	logger := log.WithRequestID(requestID)

	format, archetype, colors, threshold, maxIterations := parseNewDeckRequest(req.Message, req.Context)
	params := builder.Params{Format: format, Archetype: archetype, Colors: colors}

	if err := o.probeCatalog(ctx); err != nil {
		logger.Error().Err(err).Msg("catalog outage detected, short-circuiting before build")
		return ChatResponse{RequestID: requestID, Error: err}
	}

	deck, err := o.builder.BuildInitial(ctx, params)
	if err != nil {
		return ChatResponse{RequestID: requestID, Error: errs.Wrap(errs.KindInternal, "initial build failed", err)}
	}
	deck.Archetype = archetype
	deck.Colors = colors

	m := o.analyzer.Verify(ctx, deck, format)
	state := card.IterationState{
		Deck:          deck,
		Iteration:     1,
		MaxIterations: maxIterations,
		Threshold:     threshold,
		History:       []card.IterationRecord{{Iteration: 1, DeckSnapshot: deck, Metrics: m, Timestamp: time.Now()}},
	}
	metrics.OrchestratorQualityScore.Observe(m.Overall)

	for m.Overall < state.Threshold && state.Iteration < state.MaxIterations {
		state.Iteration++
		deck, err = o.builder.Refine(ctx, state.Deck, params, m.ImprovementPlan)
		if err != nil {
			return ChatResponse{RequestID: requestID, Error: errs.Wrap(errs.KindInternal, "refinement failed", err)}
		}
		state.Deck = deck
		m = o.analyzer.Verify(ctx, deck, format)
		state.History = append(state.History, card.IterationRecord{
			Iteration:    state.Iteration,
			DeckSnapshot: deck,
			Metrics:      m,
			Changes:      m.ImprovementPlan,
			Timestamp:    time.Now(),
		})
		metrics.OrchestratorQualityScore.Observe(m.Overall)
	}
	state.Done = true
	metrics.OrchestratorIterations.Observe(float64(state.Iteration))

	if err := enforceDeckSizeInvariant(&state.Deck, format); err != nil {
		metrics.OrchestratorRunsTotal.WithLabelValues("new_deck", "invariant_violation").Inc()
		return ChatResponse{RequestID: requestID, Iterations: state.Iteration, History: state.History, Error: err}
	}

	metrics.OrchestratorRunsTotal.WithLabelValues("new_deck", "terminal").Inc()
	return ChatResponse{
		RequestID:  requestID,
		Message:    fmt.Sprintf("Built a %s %s deck in %v. Quality Score: %.2f after %d iteration(s).", format.Name, archetype, colors, m.Overall, state.Iteration),
		Deck:       &state.Deck,
		Iterations: state.Iteration,
		History:    state.History,
	}
}

// handleModification implements Route -> UserModification -> Terminal.
func (o *Orchestrator) handleModification(ctx context.Context, requestID string, req ChatRequest) ChatResponse {
	// unknown formats default to Standard per spec.md §8 boundary behavior
	format, _ := formatrules.Lookup(req.ExistingDeck.Format)

	runQualityCheck, _ := req.Context["run_quality_check"].(bool)

	result, err := o.modexec.Execute(ctx, modexec.Request{
		Deck:            *req.ExistingDeck,
		Format:          format,
		UserPrompt:      req.Message,
		RunQualityCheck: runQualityCheck,
	})
	if err != nil {
		metrics.OrchestratorRunsTotal.WithLabelValues("modification", "error").Inc()
		return ChatResponse{RequestID: requestID, Error: err}
	}

	msg := fmt.Sprintf("Applied %s modification to the %s deck.", strings.ToLower(string(result.Intent.IntentType)), format.Name)
	if result.Metrics != nil {
		msg += fmt.Sprintf(" Quality Score: %.2f.", result.Metrics.Overall)
	}
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf(" %d issue(s) encountered during execution.", len(result.Errors))
	}

	metrics.OrchestratorRunsTotal.WithLabelValues("modification", "terminal").Inc()
	return ChatResponse{
		RequestID: requestID,
		Message:   msg,
		Deck:      &result.Deck,
	}
}

// probeCatalog detects a catalog outage before committing to a build,
// per spec.md §4.11: "Catalog store outage: orchestrator short-circuits
// with a retryable error; no partial deck is persisted."
func (o *Orchestrator) probeCatalog(ctx context.Context) error {
	_, err := o.repo.Search(ctx, catalog.Filters{}, 1)
	if err != nil && errs.Is(err, errs.KindUpstreamUnavailable) {
		return err
	}
	return nil
}

// enforceDeckSizeInvariant is the orchestrator's final safety net: the
// builder already fills/caps to size on every pass, so this only fires
// if a degraded build left the deck short or over (e.g. an empty
// repository with no basic lands resolvable at all).
func enforceDeckSizeInvariant(deck *card.Deck, format formatrules.Format) error {
	deck.RecomputeTotal()
	if deck.TotalCards == format.DeckSize {
		return nil
	}
	return errs.New(errs.KindInvariantViolation,
		fmt.Sprintf("deck has %d cards, expected %d for %s", deck.TotalCards, format.DeckSize, format.Name))
}

var formatNames = []string{"Standard", "Modern", "Commander", "Legacy", "Vintage", "Pioneer"}

var colorWords = map[string]string{
	"white": "W",
	"blue":  "U",
	"black": "B",
	"red":   "R",
	"green": "G",
}

var archetypeWords = []struct {
	word      string
	archetype card.Archetype
}{
	{"aggro", card.ArchetypeAggro},
	{"control", card.ArchetypeControl},
	{"midrange", card.ArchetypeMidrange},
	{"combo", card.ArchetypeCombo},
}

// parseNewDeckRequest extracts format/colors/archetype from free text
// per spec.md §6's chat-request parsing rules, and threshold/max_iterations
// overrides from the request context.
func parseNewDeckRequest(message string, ctx map[string]any) (formatrules.Format, card.Archetype, []string, float64, int) {
	lower := strings.ToLower(message)

	format := formatrules.Rules["standard"]
	for _, name := range formatNames {
		if strings.Contains(lower, strings.ToLower(name)) {
			format, _ = formatrules.Lookup(name)
			break
		}
	}

	archetype := card.ArchetypeAggro
	for _, aw := range archetypeWords {
		if strings.Contains(lower, aw.word) {
			archetype = aw.archetype
			break
		}
	}

	var colors []string
	for _, letter := range []string{"W", "U", "B", "R", "G"} {
		for word, l := range colorWords {
			if l == letter && strings.Contains(lower, word) {
				colors = append(colors, letter)
			}
		}
	}
	if len(colors) == 0 {
		colors = []string{"R"}
	}

	threshold := DefaultThreshold
	maxIterations := DefaultMaxIterations
	if ctx != nil {
		if v, ok := ctx["threshold"].(float64); ok {
			threshold = v
		}
		if v, ok := ctx["max_iterations"].(float64); ok {
			maxIterations = int(v)
		}
	}

	return format, archetype, colors, threshold, maxIterations
}
