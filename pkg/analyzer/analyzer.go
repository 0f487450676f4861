// Package analyzer computes deterministic quality sub-scores over a
// deck and issues a single LLM-assisted improvement-plan call on top,
// per spec.md §4.7. The numeric metrics are authoritative; the LLM
// plan is advisory and its failure never fails Verify.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/formatrules"
	"github.com/swstevens/agentic-cag-system/pkg/llm"
	"github.com/swstevens/agentic-cag-system/pkg/log"
	"github.com/swstevens/agentic-cag-system/pkg/tags"
)

// WarningThreshold is the per-metric score below which the analyzer
// emits an issue string.
const WarningThreshold = 0.6

// Analyzer scores a deck and assembles its improvement plan.
type Analyzer struct {
	llm llm.Client
}

// New builds an Analyzer. llmClient may be nil, in which case Verify
// always returns an absent improvement plan without attempting a call.
func New(llmClient llm.Client) *Analyzer {
	return &Analyzer{llm: llmClient}
}

// Verify computes QualityMetrics for deck under format's rules,
// including narrative issues/suggestions and, when an LLM client is
// configured, an improvement plan.
func (a *Analyzer) Verify(ctx context.Context, deck card.Deck, format formatrules.Format) card.QualityMetrics {
	manaCurve := scoreManaCurve(deck, format)
	landRatio := scoreLandRatio(deck, format)
	synergy := scoreSynergy(deck)
	consistency := scoreConsistency(deck, format)

	m := card.QualityMetrics{
		ManaCurve:   manaCurve,
		LandRatio:   landRatio,
		Synergy:     synergy,
		Consistency: consistency,
		Overall:     card.Overall(manaCurve, landRatio, synergy, consistency),
	}
	m.Issues, m.Suggestions = issuesAndSuggestions(m, deck, format)
	m.ImprovementPlan = a.improvementPlan(ctx, deck, format, m)
	return m
}

// scoreManaCurve compares the normalized non-land CMC histogram to the
// format's ideal curve for the deck's archetype via 1 - L1/2.
func scoreManaCurve(deck card.Deck, format formatrules.Format) float64 {
	hist := [7]float64{}
	nonLand := 0
	for _, dc := range deck.Cards {
		if dc.Card.IsBasicLand() || isNonBasicLand(dc.Card) {
			continue
		}
		bucket := bucketCMC(dc.Card.CMC)
		hist[bucket] += float64(dc.Quantity)
		nonLand += dc.Quantity
	}
	if nonLand == 0 {
		return 0
	}
	for i := range hist {
		hist[i] /= float64(nonLand)
	}
	ideal := format.IdealCurve(deck.Archetype)
	l1 := 0.0
	for i := range hist {
		l1 += math.Abs(hist[i] - ideal[i])
	}
	score := 1 - l1/2
	return clamp01(score)
}

func bucketCMC(cmc float64) int {
	b := int(cmc)
	if b > 6 {
		b = 6
	}
	if b < 0 {
		b = 0
	}
	return b
}

func isNonBasicLand(c card.Card) bool {
	for _, t := range c.Types {
		if t == "Land" {
			return true
		}
	}
	return false
}

// scoreLandRatio: |actual - ideal| <= epsilon => 1.0, linear decay to 0
// over a band of ±20% of deck size.
func scoreLandRatio(deck card.Deck, format formatrules.Format) float64 {
	actual := 0
	for _, dc := range deck.Cards {
		if isNonBasicLand(dc.Card) {
			actual += dc.Quantity
		}
	}
	ideal := format.IdealLands(deck.Archetype, format.DeckSize)
	diff := math.Abs(float64(actual - ideal))
	const epsilon = 1.0
	if diff <= epsilon {
		return 1.0
	}
	band := 0.20 * float64(format.DeckSize)
	if band <= epsilon {
		return 0
	}
	score := 1 - (diff-epsilon)/(band-epsilon)
	return clamp01(score)
}

// scoreSynergy counts pairs of deck entries sharing tribal subtypes,
// keywords, or strategic tags. The score is the fraction of all entry
// pairs that share something, scaled by 2.5 and clamped to [0,1]; it is
// normalized by the pair count, not by deck size. A purely heuristic
// pass the LLM plan may annotate but never overrides numerically.
func scoreSynergy(deck card.Deck) float64 {
	if len(deck.Cards) == 0 {
		return 0
	}
	tagSets := make([][]string, 0, len(deck.Cards))
	subtypeSets := make([][]string, 0, len(deck.Cards))
	keywordSets := make([][]string, 0, len(deck.Cards))
	for _, dc := range deck.Cards {
		tagSets = append(tagSets, tags.Names(dc.Card.OracleText, dc.Card.TypeLine, dc.Card.Legalities))
		subtypeSets = append(subtypeSets, dc.Card.Subtypes)
		keywordSets = append(keywordSets, dc.Card.Keywords)
	}

	sharedPairs := 0
	totalPairs := 0
	for i := 0; i < len(deck.Cards); i++ {
		for j := i + 1; j < len(deck.Cards); j++ {
			totalPairs++
			if tags.Shared(tagSets[i], tagSets[j]) > 0 || tags.Shared(subtypeSets[i], subtypeSets[j]) > 0 ||
				tags.Shared(keywordSets[i], keywordSets[j]) > 0 {
				sharedPairs++
			}
		}
	}
	if totalPairs == 0 {
		return 0
	}
	return clamp01(float64(sharedPairs) / float64(totalPairs) * 2.5)
}

// scoreConsistency penalizes singleton copies of cards the format
// allows to run as playsets, and rewards quantities at typical playset
// sizes (4 for non-singleton formats, 1 for singleton formats).
func scoreConsistency(deck card.Deck, format formatrules.Format) float64 {
	scored := 0
	total := 0
	for _, dc := range deck.Cards {
		if dc.Card.IsBasicLand() {
			continue
		}
		total++
		limit := format.CopyLimit(dc.Card)
		switch {
		case format.Singleton:
			scored++ // singleton formats: any legal quantity is consistent by definition
		case dc.Quantity >= limit:
			scored++
		case dc.Quantity == 1 && limit > 1 && !isUtilityOneOf(dc.Card):
			// singleton occurrence in a non-singleton format, penalized
		default:
			scored++ // partial playsets (2-3 copies) are acceptable
		}
	}
	if total == 0 {
		return 1.0
	}
	return clamp01(float64(scored) / float64(total))
}

func isUtilityOneOf(c card.Card) bool {
	return c.IsLegendary()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func issuesAndSuggestions(m card.QualityMetrics, deck card.Deck, format formatrules.Format) ([]string, []string) {
	var issues, suggestions []string
	if m.ManaCurve < WarningThreshold {
		issues = append(issues, fmt.Sprintf("mana curve deviates from the ideal %s shape", deck.Archetype))
		suggestions = append(suggestions, "adjust spell quantities across CMC buckets to match the archetype's target curve")
	}
	if m.LandRatio < WarningThreshold {
		issues = append(issues, "land count is outside the ideal band for this format and archetype")
		suggestions = append(suggestions, fmt.Sprintf("target roughly %d lands for a %s %s deck", format.IdealLands(deck.Archetype, format.DeckSize), format.Name, deck.Archetype))
	}
	if m.Synergy < WarningThreshold {
		issues = append(issues, "few cards share tribal, keyword, or strategic synergy")
		suggestions = append(suggestions, "consolidate around a smaller set of shared subtypes or mechanics")
	}
	if m.Consistency < WarningThreshold {
		issues = append(issues, "too many singleton inclusions of cards the format allows as playsets")
		suggestions = append(suggestions, "run key non-legendary spells at full playset count where the format permits")
	}
	return issues, suggestions
}

// improvementPlan issues the single structured-output call described in
// spec.md §4.7. A missing client or a call failure degrades to an
// absent plan without failing Verify.
func (a *Analyzer) improvementPlan(ctx context.Context, deck card.Deck, format formatrules.Format, m card.QualityMetrics) card.ImprovementPlan {
	if a.llm == nil {
		return card.ImprovementPlan{}
	}

	resp, err := a.llm.Complete(ctx, llm.Request{
		SystemPrompt: "You are a Magic: The Gathering deck quality advisor. Given a deck list, its format, archetype, and numeric quality metrics, propose concrete card additions and removals with reasons.",
		UserPrompt:   improvementPrompt(deck, format, m),
		Schema:       llm.SchemaDeckImprovementPlan,
	})
	if err != nil {
		log.WithComponent("analyzer").Warn().Err(err).Msg("improvement plan call failed, metrics stand alone")
		return card.ImprovementPlan{}
	}
	if resp.DeckImprovementPlan == nil {
		return card.ImprovementPlan{}
	}
	return toCardPlan(*resp.DeckImprovementPlan)
}

func toCardPlan(p llm.DeckImprovementPlan) card.ImprovementPlan {
	out := card.ImprovementPlan{Analysis: p.Analysis}
	for _, r := range p.Removals {
		out.Removals = append(out.Removals, card.CardChange{Name: r.CardName, Quantity: r.Quantity, Reason: r.Reason})
	}
	for _, ad := range p.Additions {
		out.Additions = append(out.Additions, card.CardChange{Name: ad.CardName, Quantity: ad.Quantity, Reason: ad.Reason})
	}
	return out
}

func improvementPrompt(deck card.Deck, format formatrules.Format, m card.QualityMetrics) string {
	lines := make([]string, 0, len(deck.Cards)+6)
	lines = append(lines, fmt.Sprintf("Format: %s", format.Name))
	lines = append(lines, fmt.Sprintf("Archetype: %s", deck.Archetype))
	lines = append(lines, fmt.Sprintf("Overall quality: %.2f (mana_curve=%.2f land_ratio=%.2f synergy=%.2f consistency=%.2f)",
		m.Overall, m.ManaCurve, m.LandRatio, m.Synergy, m.Consistency))
	lines = append(lines, "Current decklist:")

	sorted := append([]card.DeckCard(nil), deck.Cards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Card.Name < sorted[j].Card.Name })
	for _, dc := range sorted {
		lines = append(lines, fmt.Sprintf("  %dx %s", dc.Quantity, dc.Card.Name))
	}

	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
