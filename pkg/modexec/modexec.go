// Package modexec implements the single-pass modification flow of
// spec.md §4.9: classify intent, execute the matching branch, then
// auto-fix the deck back to legal size.
package modexec

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/swstevens/agentic-cag-system/pkg/analyzer"
	"github.com/swstevens/agentic-cag-system/pkg/builder"
	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/formatrules"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
	"github.com/swstevens/agentic-cag-system/pkg/log"
)

// MaxChanges bounds how many cards an abstract ADD ("more removal")
// intent may add in a single pass.
const MaxChanges = 8

// Repository is the lookup surface the executor needs: name
// resolution plus semantic search for abstract additions.
type Repository interface {
	builder.Repository
}

// Result is the outcome of one modification pass.
type Result struct {
	Deck    card.Deck
	Intent  llm.ModificationIntent
	Errors  []string
	Metrics *card.QualityMetrics // nil unless RunQualityCheck was set
}

// Request carries the existing deck and the free-text modification
// prompt, per spec.md §6's chat request shape.
type Request struct {
	Deck            card.Deck
	Format          formatrules.Format
	UserPrompt      string
	RunQualityCheck bool
}

// Executor drives intent classification and the execution branches.
type Executor struct {
	repo     Repository
	llm      llm.Client
	analyzer *analyzer.Analyzer
	builder  *builder.Builder
}

// New constructs an Executor. az is used only for the
// OPTIMIZE branch and the optional post-execution quality check.
func New(repo Repository, llmClient llm.Client, az *analyzer.Analyzer) *Executor {
	return &Executor{
		repo:     repo,
		llm:      llmClient,
		analyzer: az,
		builder:  builder.New(repo, llmClient),
	}
}

// Execute runs the full single-pass modification flow.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	intent, err := e.classify(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if intent.Confidence < 0.5 {
		log.WithComponent("modexec").Info().Float64("confidence", intent.Confidence).
			Str("intent_type", string(intent.IntentType)).Msg("low-confidence intent, proceeding anyway")
	}

	deck := req.Deck
	deck.Cards = append([]card.DeckCard(nil), req.Deck.Cards...)
	params := builder.Params{Format: req.Format, Archetype: deck.Archetype, Colors: deck.Colors}

	var execErrors []string
	switch intent.IntentType {
	case llm.IntentAdd:
		execErrors = e.executeAdd(ctx, &deck, params, intent)
	case llm.IntentRemove:
		execErrors = e.executeRemove(&deck, intent)
	case llm.IntentReplace:
		execErrors = e.executeReplace(ctx, &deck, params, intent)
	case llm.IntentOptimize:
		execErrors = e.executeOptimize(ctx, &deck, params, req.Format)
	case llm.IntentStrategyShift:
		execErrors = e.executeStrategyShift(ctx, &deck, params, intent)
	default:
		execErrors = append(execErrors, fmt.Sprintf("unrecognized intent type %q", intent.IntentType))
	}

	autoFixErrors := e.autoFix(&deck, req.Format)
	execErrors = append(execErrors, autoFixErrors...)
	deck.RecomputeTotal()

	result := Result{Deck: deck, Intent: intent, Errors: execErrors}
	if req.RunQualityCheck && e.analyzer != nil {
		m := e.analyzer.Verify(ctx, deck, req.Format)
		result.Metrics = &m
	}
	return result, nil
}

func (e *Executor) classify(ctx context.Context, req Request) (llm.ModificationIntent, error) {
	resp, err := e.llm.Complete(ctx, llm.Request{
		SystemPrompt: "Classify the user's deck modification request into a structured intent.",
		UserPrompt:   fmt.Sprintf("Format: %s\nDeck size: %d\nRequest: %s", req.Format.Name, req.Deck.TotalCards, req.UserPrompt),
		Schema:       llm.SchemaModificationIntent,
	})
	if err != nil {
		return llm.ModificationIntent{}, errs.Wrap(errs.KindParseFailure, "intent classification failed", err)
	}
	if resp.ModificationIntent == nil {
		return llm.ModificationIntent{}, errs.New(errs.KindParseFailure, "intent classification returned no intent")
	}
	return *resp.ModificationIntent, nil
}

// executeAdd handles both "specific names" and abstract "more removal"
// style ADD intents: named changes resolve directly, anything without a
// CardName falls back to a semantic search seeded by the description.
func (e *Executor) executeAdd(ctx context.Context, deck *card.Deck, p builder.Params, intent llm.ModificationIntent) []string {
	var errsOut []string
	added := 0
	for _, change := range intent.CardChanges {
		if added >= MaxChanges {
			break
		}
		if change.CardName != "" {
			c, err := e.repo.GetByName(ctx, change.CardName)
			if err != nil {
				errsOut = append(errsOut, fmt.Sprintf("could not resolve %q", change.CardName))
				continue
			}
			qty := change.Quantity
			if qty <= 0 {
				qty = 1
			}
			builder.AddToDeck(deck, c, qty, p.Format)
			added++
			continue
		}
		candidates, err := e.repo.SemanticSearch(ctx, intent.Description, nil, MaxChanges-added)
		if err != nil || len(candidates) == 0 {
			errsOut = append(errsOut, "semantic search for abstract addition returned no candidates")
			continue
		}
		for _, c := range candidates {
			if added >= MaxChanges {
				break
			}
			builder.AddToDeck(deck, c, 1, p.Format)
			added++
		}
	}
	return errsOut
}

func (e *Executor) executeRemove(deck *card.Deck, intent llm.ModificationIntent) []string {
	var errsOut []string
	for _, change := range intent.CardChanges {
		if change.Predicate != "" {
			n := removeByPredicate(deck, change.Predicate)
			if n == 0 {
				errsOut = append(errsOut, fmt.Sprintf("predicate %q matched no cards", change.Predicate))
			}
			continue
		}
		if change.CardName == "" {
			continue
		}
		builder.RemoveFromDeck(deck, change.CardName, change.Quantity)
	}
	return errsOut
}

func (e *Executor) executeReplace(ctx context.Context, deck *card.Deck, p builder.Params, intent llm.ModificationIntent) []string {
	var errsOut []string
	for _, change := range intent.CardChanges {
		if change.CardName == "" || change.ReplaceWith == "" {
			continue
		}
		c, err := e.repo.GetByName(ctx, change.ReplaceWith)
		if err != nil {
			errsOut = append(errsOut, fmt.Sprintf("replacement %q unresolvable, leaving %q in place", change.ReplaceWith, change.CardName))
			continue
		}
		qty := change.Quantity
		if qty <= 0 {
			qty = 1
		}
		builder.RemoveFromDeck(deck, change.CardName, qty)
		builder.AddToDeck(deck, c, qty, p.Format)
	}
	return errsOut
}

func (e *Executor) executeOptimize(ctx context.Context, deck *card.Deck, p builder.Params, format formatrules.Format) []string {
	if e.analyzer == nil {
		return []string{"optimize requested but no analyzer is configured"}
	}
	m := e.analyzer.Verify(ctx, *deck, format)
	next, err := e.builder.Refine(ctx, *deck, p, m.ImprovementPlan)
	if err != nil {
		return []string{"optimize refinement failed: " + err.Error()}
	}
	*deck = next
	return nil
}

// executeStrategyShift is a guided refinement: it reuses the refinement
// path with the improvement plan's analysis seeded from the user's own
// description rather than the analyzer's narrative. It does not change
// the curve target; the refinement runs with the deck's existing params.
func (e *Executor) executeStrategyShift(ctx context.Context, deck *card.Deck, p builder.Params, intent llm.ModificationIntent) []string {
	plan := card.ImprovementPlan{Analysis: "strategy shift: " + intent.Description}
	next, err := e.builder.Refine(ctx, *deck, p, plan)
	if err != nil {
		return []string{"strategy shift refinement failed: " + err.Error()}
	}
	*deck = next
	return nil
}

// autoFix caps copy/singleton/legendary violations, then brings the deck
// back to format.DeckSize: fills with basic lands if short, trims the
// lowest-impact cards (lowest quantity, highest CMC) if over. Returns
// any rollback/legality errors.
func (e *Executor) autoFix(deck *card.Deck, format formatrules.Format) []string {
	deck.RecomputeTotal()
	violations := enforceLegality(deck, format)
	params := builder.Params{Format: format, Archetype: deck.Archetype, Colors: deck.Colors}

	if deck.TotalCards < format.DeckSize {
		e.builder.FillBasics(context.Background(), deck, params)
	} else if deck.TotalCards > format.DeckSize {
		trimExcess(deck, format.DeckSize)
	}

	return violations
}

// trimExcess removes the lowest-impact cards — lowest quantity, ties
// broken by highest CMC — until the deck matches target.
func trimExcess(deck *card.Deck, target int) {
	for deck.TotalCards > target && len(deck.Cards) > 0 {
		idx := lowestImpactIndex(deck.Cards)
		deck.Cards[idx].Quantity--
		if deck.Cards[idx].Quantity <= 0 {
			deck.Cards = append(deck.Cards[:idx], deck.Cards[idx+1:]...)
		}
		deck.RecomputeTotal()
	}
}

func lowestImpactIndex(cards []card.DeckCard) int {
	best := 0
	for i, dc := range cards {
		if dc.Card.IsBasicLand() {
			continue
		}
		b := cards[best]
		if dc.Quantity < b.Quantity || (dc.Quantity == b.Quantity && dc.Card.CMC > b.Card.CMC) {
			best = i
		}
	}
	return best
}

// enforceLegality re-checks copy/singleton/legendary caps after
// execution; any violation is capped back in place and recorded as an
// error rather than left to re-trigger on the next pass.
func enforceLegality(deck *card.Deck, format formatrules.Format) []string {
	var violations []string
	for i, dc := range deck.Cards {
		cap := format.CopyLimit(dc.Card)
		if dc.Quantity > cap {
			violations = append(violations, fmt.Sprintf("rolled back %s to the %d-copy limit", dc.Card.Name, cap))
			deck.Cards[i].Quantity = cap
		}
	}
	deck.RecomputeTotal()
	return violations
}

// removeByPredicate supports the "CMC >= N" / "CMC <= N" shapes named
// in spec.md §4.9's REMOVE example; unrecognized predicates are a
// no-op. Returns the number of cards removed.
func removeByPredicate(deck *card.Deck, predicate string) int {
	pred := strings.ToLower(strings.TrimSpace(predicate))
	var op string
	var rest string
	switch {
	case strings.Contains(pred, ">="):
		op, rest = ">=", strings.SplitN(pred, ">=", 2)[1]
	case strings.Contains(pred, "<="):
		op, rest = "<=", strings.SplitN(pred, "<=", 2)[1]
	case strings.Contains(pred, ">"):
		op, rest = ">", strings.SplitN(pred, ">", 2)[1]
	case strings.Contains(pred, "<"):
		op, rest = "<", strings.SplitN(pred, "<", 2)[1]
	default:
		return 0
	}
	threshold, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0
	}
	if !strings.Contains(pred, "cmc") {
		return 0
	}

	matches := func(cmc float64) bool {
		switch op {
		case ">=":
			return cmc >= threshold
		case "<=":
			return cmc <= threshold
		case ">":
			return cmc > threshold
		case "<":
			return cmc < threshold
		}
		return false
	}

	removed := 0
	kept := deck.Cards[:0:0]
	for _, dc := range deck.Cards {
		if !dc.Card.IsBasicLand() && matches(dc.Card.CMC) {
			removed += dc.Quantity
			continue
		}
		kept = append(kept, dc)
	}
	deck.Cards = kept
	return removed
}
