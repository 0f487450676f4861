// Package builder drives the LLM through the two tool calls
// (search_cards, get_card_details) to construct and refine a deck, per
// spec.md §4.8: one structured-output request for initial construction,
// a second kind for refinement, with a shared materialization and
// fill-to-size pass after both.
package builder

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/catalog"
	"github.com/swstevens/agentic-cag-system/pkg/formatrules"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
	"github.com/swstevens/agentic-cag-system/pkg/log"
)

// Repository narrows *repository.Repository to what the builder needs,
// so tests can substitute a fake catalog.
type Repository interface {
	GetByName(ctx context.Context, name string) (card.Card, error)
	Search(ctx context.Context, f catalog.Filters, limit int) ([]card.Card, error)
	SemanticSearch(ctx context.Context, query string, f *catalog.Filters, limit int) ([]card.Card, error)
}

const searchCardsLimit = 50

var basicLandNames = map[string]string{
	"W": "Plains",
	"U": "Island",
	"B": "Swamp",
	"R": "Mountain",
	"G": "Forest",
}

// Params describes the deck the builder is asked to construct.
type Params struct {
	Format    formatrules.Format
	Archetype card.Archetype
	Colors    []string
}

// Builder owns the repository and LLM client used to construct and
// refine decks.
type Builder struct {
	repo Repository
	llm  llm.Client
}

// New constructs a Builder.
func New(repo Repository, llmClient llm.Client) *Builder {
	return &Builder{repo: repo, llm: llmClient}
}

func tools() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "search_cards",
			Description: "Search the card catalog by color, type, CMC range, rarity, or text, returning up to 50 summaries. There is no legality filter.",
			Parameters: map[string]any{
				"colors": "subset of W,U,B,R,G",
				"types":  "type line substrings",
				"min_cmc": "number",
				"max_cmc": "number",
				"rarity":  "string",
				"text":    "substring over name/oracle text/type line",
			},
		},
		{
			Name:        "get_card_details",
			Description: "Fetch the full card record for a name or id.",
			Parameters: map[string]any{
				"name_or_id": "string",
			},
		},
	}
}

func (b *Builder) toolHandler(ctx context.Context) func(context.Context, llm.ToolCall) (llm.ToolResult, error) {
	return func(ctx context.Context, call llm.ToolCall) (llm.ToolResult, error) {
		switch call.Name {
		case "search_cards":
			f := filtersFromArgs(call.Arguments)
			results, err := b.repo.Search(ctx, f, searchCardsLimit)
			if err != nil {
				return llm.ToolResult{}, err
			}
			return llm.ToolResult{Name: call.Name, Content: summaries(results)}, nil
		case "get_card_details":
			name, _ := call.Arguments["name_or_id"].(string)
			c, err := b.repo.GetByName(ctx, name)
			if err != nil {
				byID, ok := b.repo.(interface {
					GetByID(context.Context, string) (card.Card, error)
				})
				if !ok {
					return llm.ToolResult{Name: call.Name, Content: nil}, nil
				}
				if c, err = byID.GetByID(ctx, name); err != nil {
					return llm.ToolResult{Name: call.Name, Content: nil}, nil
				}
			}
			return llm.ToolResult{Name: call.Name, Content: c}, nil
		default:
			return llm.ToolResult{}, fmt.Errorf("unknown tool %q", call.Name)
		}
	}
}

type cardSummary struct {
	Name       string  `json:"name"`
	CMC        float64 `json:"cmc"`
	Colors     []string `json:"colors"`
	TypeLine   string  `json:"type_line"`
	OracleText string  `json:"oracle_text_excerpt"`
}

func summaries(cards []card.Card) []cardSummary {
	out := make([]cardSummary, 0, len(cards))
	for _, c := range cards {
		excerpt := c.OracleText
		if len(excerpt) > 120 {
			excerpt = excerpt[:120] + "…"
		}
		out = append(out, cardSummary{Name: c.Name, CMC: c.CMC, Colors: c.Colors, TypeLine: c.TypeLine, OracleText: excerpt})
	}
	return out
}

func filtersFromArgs(args map[string]any) catalog.Filters {
	var f catalog.Filters
	if v, ok := args["colors"].([]string); ok {
		f.Colors = v
	}
	if v, ok := args["types"].([]string); ok {
		f.Types = v
	}
	for key, dst := range map[string]*[]string{"colors": &f.Colors, "types": &f.Types} {
		items, _ := args[key].([]any)
		for _, it := range items {
			if s, ok := it.(string); ok {
				*dst = append(*dst, s)
			}
		}
	}
	if v, ok := args["min_cmc"].(float64); ok {
		f.MinCMC = &v
	}
	if v, ok := args["max_cmc"].(float64); ok {
		f.MaxCMC = &v
	}
	if v, ok := args["rarity"].(string); ok {
		f.Rarity = v
	}
	if v, ok := args["text"].(string); ok {
		f.TextContains = v
	}
	return f
}

func systemPrompt(p Params) string {
	f := p.Format
	return fmt.Sprintf(
		"You are building a %s deck. Deck size: %d cards. Copy limit: %d%s. Legendary non-basic-land cap: %d. "+
			"Archetype: %s. Target ideal land count: %d. Colors: %v. Use search_cards and get_card_details to find real cards before selecting them.",
		f.Name, f.DeckSize, f.BaseCopyLimit, singletonNote(f), f.LegendaryMax, p.Archetype,
		f.IdealLands(p.Archetype, f.DeckSize), p.Colors,
	)
}

func singletonNote(f formatrules.Format) string {
	if f.Singleton {
		return " (singleton format)"
	}
	return ""
}

// BuildInitial drives a DeckConstructionPlan call and materializes it
// into a complete deck.
func (b *Builder) BuildInitial(ctx context.Context, p Params) (card.Deck, error) {
	resp, err := b.llm.Complete(ctx, llm.Request{
		SystemPrompt: systemPrompt(p),
		UserPrompt:   fmt.Sprintf("Construct a %s %s deck in colors %v.", p.Format.Name, p.Archetype, p.Colors),
		Schema:       llm.SchemaDeckConstructionPlan,
		Tools:        tools(),
		ToolHandler:  b.toolHandler(ctx),
	})
	if err != nil {
		log.WithComponent("builder").Error().Err(err).Msg("deck construction plan failed, degrading to empty plan")
		deck := emptyDeck(p)
		b.FillBasics(ctx, &deck, p)
		return deck, nil
	}

	deck := emptyDeck(p)
	if resp.DeckConstructionPlan != nil {
		b.materialize(ctx, &deck, p, selectionsFromPlan(*resp.DeckConstructionPlan))
	}
	b.FillBasics(ctx, &deck, p)
	deck.RecomputeTotal()
	return deck, nil
}

func selectionsFromPlan(p llm.DeckConstructionPlan) []llm.CardSelection {
	return p.CardSelections
}

func emptyDeck(p Params) card.Deck {
	return card.Deck{
		Format:    p.Format.Name,
		Archetype: p.Archetype,
		Colors:    append([]string(nil), p.Colors...),
	}
}

// materialize resolves each named selection through the repository,
// capping quantities per format rules, and merges it into deck.
func (b *Builder) materialize(ctx context.Context, deck *card.Deck, p Params, selections []llm.CardSelection) {
	logger := log.WithComponent("builder")
	for _, sel := range selections {
		c, err := b.repo.GetByName(ctx, sel.CardName)
		if err != nil {
			logger.Warn().Str("card_name", sel.CardName).Msg("unresolvable card selection skipped")
			continue
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}
		cap := p.Format.CopyLimit(c)
		if qty > cap {
			qty = cap
		}
		AddToDeck(deck, c, qty, p.Format)
	}
}

// AddToDeck merges qty copies of c into deck, respecting the format's
// per-card cap on the resulting total.
func AddToDeck(deck *card.Deck, c card.Card, qty int, format formatrules.Format) {
	cap := format.CopyLimit(c)
	for i, dc := range deck.Cards {
		if dc.Card.ID == c.ID {
			total := dc.Quantity + qty
			if total > cap {
				total = cap
			}
			deck.Cards[i].Quantity = total
			return
		}
	}
	if qty > cap {
		qty = cap
	}
	deck.Cards = append(deck.Cards, card.DeckCard{Card: c, Quantity: qty})
}

// FillBasics tops the deck up to format.DeckSize with basic lands
// in the declared colors, distributed proportionally to colors
// appearing in the non-land portion; falls back to an even split when
// the non-land portion carries no colors at all.
func (b *Builder) FillBasics(ctx context.Context, deck *card.Deck, p Params) {
	deck.RecomputeTotal()
	remaining := p.Format.DeckSize - deck.TotalCards
	if remaining <= 0 {
		return
	}

	weights := colorWeights(deck, p.Colors)
	logger := log.WithComponent("builder")
	for color, count := range splitByWeight(remaining, weights) {
		if count <= 0 {
			continue
		}
		name, ok := basicLandNames[color]
		if !ok {
			continue
		}
		c, err := b.repo.GetByName(ctx, name)
		if err != nil {
			logger.Warn().Str("card_name", name).Msg("basic land not found in catalog, using stub")
			c = stubBasicLand(name, color)
		}
		addBasicLand(deck, c, count)
	}
	deck.RecomputeTotal()
}

// addBasicLand merges qty copies of a basic land, which is exempt from
// the per-card copy cap.
func addBasicLand(deck *card.Deck, c card.Card, qty int) {
	for i, dc := range deck.Cards {
		if dc.Card.ID == c.ID {
			deck.Cards[i].Quantity += qty
			return
		}
	}
	deck.Cards = append(deck.Cards, card.DeckCard{Card: c, Quantity: qty})
}

func stubBasicLand(name, color string) card.Card {
	return card.Card{
		ID: "basic:" + name, Name: name, TypeLine: "Basic Land - " + name,
		Types: []string{"Basic", "Land"}, Colors: nil, ColorIdentity: nil, Rarity: "common",
	}
}

func colorWeights(deck card.Deck, declared []string) map[string]int {
	weights := map[string]int{}
	for _, dc := range deck.Cards {
		if dc.Card.IsBasicLand() || isLand(dc.Card) {
			continue
		}
		for _, c := range dc.Card.Colors {
			weights[c] += dc.Quantity
		}
	}
	if len(weights) == 0 {
		for _, c := range declared {
			weights[c] = 1
		}
	}
	if len(weights) == 0 {
		weights["R"] = 1
	}
	return weights
}

func isLand(c card.Card) bool {
	for _, t := range c.Types {
		if t == "Land" {
			return true
		}
	}
	return false
}

// splitByWeight distributes total across weights proportionally,
// handing any rounding remainder to the heaviest color for
// determinism.
func splitByWeight(total int, weights map[string]int) map[string]int {
	sum := 0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return nil
	}
	colors := make([]string, 0, len(weights))
	for c := range weights {
		colors = append(colors, c)
	}
	sort.Strings(colors)

	out := map[string]int{}
	assigned := 0
	for _, c := range colors {
		share := total * weights[c] / sum
		out[c] = share
		assigned += share
	}
	if assigned < total {
		heaviest := colors[0]
		for _, c := range colors {
			if weights[c] > weights[heaviest] {
				heaviest = c
			}
		}
		out[heaviest] += total - assigned
	}
	return out
}

// Refine drives a RefinementPlan call from the current deck plus the
// improvement plan, applies removes then replacements then additions,
// then re-balances to deck size.
func (b *Builder) Refine(ctx context.Context, deck card.Deck, p Params, improvement card.ImprovementPlan) (card.Deck, error) {
	resp, err := b.llm.Complete(ctx, llm.Request{
		SystemPrompt: systemPrompt(p),
		UserPrompt:   refinementPrompt(deck, improvement),
		Schema:       llm.SchemaRefinementPlan,
		Tools:        tools(),
		ToolHandler:  b.toolHandler(ctx),
	})
	if err != nil {
		log.WithComponent("builder").Error().Err(err).Msg("refinement plan failed, preserving current deck")
		return deck, nil
	}
	if resp.RefinementPlan == nil {
		return deck, nil
	}

	next := deck
	next.Cards = append([]card.DeckCard(nil), deck.Cards...)
	applyActions(ctx, b.repo, &next, p, resp.RefinementPlan.Actions)
	b.FillBasics(ctx, &next, p)
	next.RecomputeTotal()
	return next, nil
}

func refinementPrompt(deck card.Deck, improvement card.ImprovementPlan) string {
	out := fmt.Sprintf("Current deck has %d cards. Improvement analysis: %s\n", deck.TotalCards, improvement.Analysis)
	for _, a := range improvement.Additions {
		out += fmt.Sprintf("Consider adding %dx %s: %s\n", a.Quantity, a.Name, a.Reason)
	}
	for _, r := range improvement.Removals {
		out += fmt.Sprintf("Consider removing %dx %s: %s\n", r.Quantity, r.Name, r.Reason)
	}
	return out
}

// applyActions applies RefinementActions in the fixed order spec.md §4.8
// requires: removes, then replacements, then additions.
func applyActions(ctx context.Context, repo Repository, deck *card.Deck, p Params, actions []llm.RefinementAction) {
	var removes, replaces, adds []llm.RefinementAction
	for _, a := range actions {
		switch a.Type {
		case "remove":
			removes = append(removes, a)
		case "replace":
			replaces = append(replaces, a)
		default:
			adds = append(adds, a)
		}
	}

	logger := log.WithComponent("builder")
	for _, a := range removes {
		RemoveFromDeck(deck, a.CardName, a.Quantity)
	}
	for _, a := range replaces {
		if a.ReplaceWith == "" {
			RemoveFromDeck(deck, a.CardName, a.Quantity)
			continue
		}
		c, err := repo.GetByName(ctx, a.ReplaceWith)
		if err != nil {
			logger.Warn().Str("card_name", a.ReplaceWith).Msg("unresolvable replacement, leaving original in place")
			continue
		}
		qty := a.Quantity
		if qty <= 0 {
			qty = 1
		}
		RemoveFromDeck(deck, a.CardName, qty)
		AddToDeck(deck, c, qty, p.Format)
	}
	for _, a := range adds {
		c, err := repo.GetByName(ctx, a.CardName)
		if err != nil {
			logger.Warn().Str("card_name", a.CardName).Msg("unresolvable addition skipped")
			continue
		}
		qty := a.Quantity
		if qty <= 0 {
			qty = 1
		}
		AddToDeck(deck, c, qty, p.Format)
	}
}

func RemoveFromDeck(deck *card.Deck, name string, qty int) {
	for i, dc := range deck.Cards {
		if dc.Card.Name != name {
			continue
		}
		remove := qty
		if remove <= 0 || remove > dc.Quantity {
			remove = dc.Quantity
		}
		deck.Cards[i].Quantity -= remove
		if deck.Cards[i].Quantity <= 0 {
			deck.Cards = append(deck.Cards[:i], deck.Cards[i+1:]...)
		}
		return
	}
}

// searchCardsConcurrent fans independent filter groups out across
// goroutines, for callers that want to warm several catalog slices
// before a single construction call. The FSM orchestrator does not use
// this directly; it exists for builder callers that pre-fetch
// candidate pools by color before issuing the construction prompt.
func (b *Builder) searchCardsConcurrent(ctx context.Context, groups []catalog.Filters, limit int) [][]card.Card {
	results := make([][]card.Card, len(groups))
	var wg sync.WaitGroup
	for i, f := range groups {
		wg.Add(1)
		go func(i int, f catalog.Filters) {
			defer wg.Done()
			cards, err := b.repo.Search(ctx, f, limit)
			if err != nil {
				log.WithComponent("builder").Warn().Err(err).Msg("concurrent search group failed")
				return
			}
			results[i] = cards
		}(i, f)
	}
	wg.Wait()
	return results
}
