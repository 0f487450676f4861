// Package formatrules centralizes the static per-format tables — deck
// size, copy limits, singleton/legendary caps, and per-archetype curve
// and land-count targets — so analyzer and builder never hardcode a
// number independently.
package formatrules

import (
	"strings"

	"github.com/swstevens/agentic-cag-system/pkg/card"
)

// CurveTarget is the ideal normalized CMC histogram for an archetype,
// bucketed 0,1,2,3,4,5,6+.
type CurveTarget [7]float64

// Format holds every rule needed to build and score a deck in that
// format.
type Format struct {
	Name          string
	DeckSize      int
	BaseCopyLimit int
	Singleton     bool
	LegendaryMax  int
	IdealLandsPct map[card.Archetype]float64
	IdealCurves   map[card.Archetype]CurveTarget
}

func defaultCurve(aggro bool) CurveTarget {
	if aggro {
		return CurveTarget{0.05, 0.25, 0.30, 0.20, 0.12, 0.05, 0.03}
	}
	return CurveTarget{0.02, 0.12, 0.20, 0.22, 0.18, 0.14, 0.12}
}

func landPercents() map[card.Archetype]float64 {
	return map[card.Archetype]float64{
		card.ArchetypeAggro:    0.36,
		card.ArchetypeTempo:    0.38,
		card.ArchetypeMidrange: 0.40,
		card.ArchetypeControl:  0.42,
		card.ArchetypeCombo:    0.38,
		card.ArchetypeRamp:     0.40,
		card.ArchetypeOther:    0.40,
	}
}

func curvesFor() map[card.Archetype]CurveTarget {
	aggroLike := defaultCurve(true)
	slowLike := defaultCurve(false)
	return map[card.Archetype]CurveTarget{
		card.ArchetypeAggro:    aggroLike,
		card.ArchetypeTempo:    aggroLike,
		card.ArchetypeMidrange: slowLike,
		card.ArchetypeControl:  slowLike,
		card.ArchetypeCombo:    slowLike,
		card.ArchetypeRamp:     slowLike,
		card.ArchetypeOther:    slowLike,
	}
}

// Rules is the package-level table of every known format, keyed by its
// canonical lower-case name.
var Rules = map[string]Format{
	"standard": {
		Name: "Standard", DeckSize: 60, BaseCopyLimit: 4, Singleton: false,
		LegendaryMax: 1, IdealLandsPct: landPercents(), IdealCurves: curvesFor(),
	},
	"pioneer": {
		Name: "Pioneer", DeckSize: 60, BaseCopyLimit: 4, Singleton: false,
		LegendaryMax: 1, IdealLandsPct: landPercents(), IdealCurves: curvesFor(),
	},
	"modern": {
		Name: "Modern", DeckSize: 60, BaseCopyLimit: 4, Singleton: false,
		LegendaryMax: 1, IdealLandsPct: landPercents(), IdealCurves: curvesFor(),
	},
	"legacy": {
		Name: "Legacy", DeckSize: 60, BaseCopyLimit: 4, Singleton: false,
		LegendaryMax: 1, IdealLandsPct: landPercents(), IdealCurves: curvesFor(),
	},
	"vintage": {
		Name: "Vintage", DeckSize: 60, BaseCopyLimit: 4, Singleton: false,
		LegendaryMax: 1, IdealLandsPct: landPercents(), IdealCurves: curvesFor(),
	},
	"commander": {
		Name: "Commander", DeckSize: 100, BaseCopyLimit: 1, Singleton: true,
		LegendaryMax: 1, IdealLandsPct: landPercents(), IdealCurves: curvesFor(),
	},
}

// Lookup resolves a format by name case-insensitively, defaulting to
// Standard when the name is unrecognized.
func Lookup(name string) (Format, bool) {
	f, ok := Rules[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Rules["standard"], false
	}
	return f, true
}

// IsSingleton reports whether the format restricts decks to one copy of
// each non-basic-land card.
func (f Format) IsSingleton() bool {
	return f.Singleton
}

// CopyLimit returns the maximum legal quantity of c in this format,
// honoring the unlimited-basic-land and legendary-cap exceptions.
func (f Format) CopyLimit(c card.Card) int {
	if c.IsBasicLand() {
		return 1 << 30
	}
	if f.Singleton {
		return 1
	}
	if c.IsLegendary() {
		return f.LegendaryMax
	}
	return f.BaseCopyLimit
}

// IdealLands returns the target number of lands for deck_size cards of
// the given archetype in this format.
func (f Format) IdealLands(archetype card.Archetype, deckSize int) int {
	pct, ok := f.IdealLandsPct[archetype]
	if !ok {
		pct = f.IdealLandsPct[card.ArchetypeOther]
	}
	return int(pct*float64(deckSize) + 0.5)
}

// IdealCurve returns the normalized target CMC histogram for the given
// archetype in this format.
func (f Format) IdealCurve(archetype card.Archetype) CurveTarget {
	c, ok := f.IdealCurves[archetype]
	if !ok {
		c = f.IdealCurves[card.ArchetypeOther]
	}
	return c
}
