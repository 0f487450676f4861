// Package card defines the shared data model for cards, decks, and the
// quality metrics computed over them.
package card

import "time"

// Card is an immutable catalog record. Cards are created once at ingest
// and shared read-only by every component that holds one.
type Card struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ManaCost      string            `json:"mana_cost"`
	CMC           float64           `json:"cmc"`
	Colors        []string          `json:"colors"`
	ColorIdentity []string          `json:"color_identity"`
	TypeLine      string            `json:"type_line"`
	Types         []string          `json:"types"`
	Subtypes      []string          `json:"subtypes"`
	OracleText    string            `json:"oracle_text"`
	Power         *string           `json:"power,omitempty"`
	Toughness     *string           `json:"toughness,omitempty"`
	Loyalty       *string           `json:"loyalty,omitempty"`
	SetCode       string            `json:"set_code"`
	Rarity        string            `json:"rarity"`
	Legalities    map[string]string `json:"legalities"`
	Keywords      []string          `json:"keywords"`
}

// IsBasicLand reports whether the card is one of the five unlimited-copy
// basic lands (or Wastes): its Types list holds both Basic and Land, or
// its name is one of the basic land names.
func (c Card) IsBasicLand() bool {
	if c.hasType("Basic") && c.hasType("Land") {
		return true
	}
	switch c.Name {
	case "Plains", "Island", "Swamp", "Mountain", "Forest", "Wastes":
		return true
	}
	return false
}

// IsLegendary reports whether the card's type line carries the Legendary
// supertype, which caps non-basic-land copies to one regardless of format.
func (c Card) IsLegendary() bool {
	return c.hasType("Legendary")
}

func (c Card) hasType(t string) bool {
	for _, ty := range c.Types {
		if ty == t {
			return true
		}
	}
	return false
}

// DeckCard pairs a card with the quantity present in a deck.
type DeckCard struct {
	Card     Card `json:"card"`
	Quantity int  `json:"quantity"`
}

// Archetype is a closed enum of strategies a deck can declare.
type Archetype string

const (
	ArchetypeAggro    Archetype = "aggro"
	ArchetypeMidrange Archetype = "midrange"
	ArchetypeControl  Archetype = "control"
	ArchetypeCombo    Archetype = "combo"
	ArchetypeTempo    Archetype = "tempo"
	ArchetypeRamp     Archetype = "ramp"
	ArchetypeOther    Archetype = "other"
)

// Deck is an ordered-irrelevant bag of DeckCard plus build metadata.
type Deck struct {
	ID         string     `json:"id,omitempty"`
	Format     string     `json:"format"`
	Archetype  Archetype  `json:"archetype"`
	Colors     []string   `json:"colors"`
	Cards      []DeckCard `json:"cards"`
	TotalCards int        `json:"total_cards"`
	CreatedAt  string     `json:"created_at,omitempty"`
	UpdatedAt  string     `json:"updated_at,omitempty"`
}

// ColorIdentity derives the union of the color identities of every card
// in the deck, lands included, per the deck invariant that a deck's
// identity is the sum of its spells and identity-bearing lands.
func (d Deck) ColorIdentity() []string {
	seen := map[string]bool{}
	order := []string{"W", "U", "B", "R", "G"}
	for _, dc := range d.Cards {
		for _, ci := range dc.Card.ColorIdentity {
			seen[ci] = true
		}
	}
	var out []string
	for _, c := range order {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// RecomputeTotal sets TotalCards to the sum of DeckCard quantities.
func (d *Deck) RecomputeTotal() {
	total := 0
	for _, dc := range d.Cards {
		total += dc.Quantity
	}
	d.TotalCards = total
}

// CardChange is a single addition or removal proposed by an improvement
// plan or a modification intent.
type CardChange struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// ImprovementPlan is the structured result of an LLM-assisted improvement
// pass over a deck: concrete additions and removals plus free-text
// analysis explaining the recommendation.
type ImprovementPlan struct {
	Additions []CardChange `json:"additions"`
	Removals  []CardChange `json:"removals"`
	Analysis  string       `json:"analysis"`
}

// QualityMetrics is the output of the quality analyzer: four sub-scores
// in [0,1], their arithmetic mean, plus narrative issues/suggestions and
// an improvement plan.
type QualityMetrics struct {
	ManaCurve       float64         `json:"mana_curve"`
	LandRatio       float64         `json:"land_ratio"`
	Synergy         float64         `json:"synergy"`
	Consistency     float64         `json:"consistency"`
	Overall         float64         `json:"overall"`
	Issues          []string        `json:"issues"`
	Suggestions     []string        `json:"suggestions"`
	ImprovementPlan ImprovementPlan `json:"improvement_plan"`
}

// Overall computes the arithmetic mean of the four sub-scores.
func Overall(manaCurve, landRatio, synergy, consistency float64) float64 {
	return (manaCurve + landRatio + synergy + consistency) / 4
}

// IterationRecord captures one pass of the build/refine loop for
// after-the-fact inspection and API response history: the append-only
// (iteration_index, deck_snapshot, quality_metrics, applied_changes,
// timestamp) tuple.
type IterationRecord struct {
	Iteration    int             `json:"iteration"`
	DeckSnapshot Deck            `json:"deck_snapshot"`
	Metrics      QualityMetrics  `json:"metrics"`
	Changes      ImprovementPlan `json:"changes"`
	Timestamp    time.Time       `json:"timestamp"`
}

// IterationState tracks progress of an in-flight build/refine loop: the
// current deck snapshot, the iteration count against its ceiling, the
// quality threshold driving termination, and the append-only history.
type IterationState struct {
	Deck          Deck              `json:"deck"`
	Iteration     int               `json:"iteration"`
	MaxIterations int               `json:"max_iterations"`
	Threshold     float64           `json:"threshold"`
	History       []IterationRecord `json:"history"`
	Done          bool              `json:"done"`
}
