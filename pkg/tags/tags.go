// Package tags derives deterministic strategic tags from a card's
// oracle text and type line by pure string matching — no model calls,
// no randomness. Tags feed both the vector index's embedding text and
// the quality analyzer's synergy score, so the two stay consistent.
package tags

import (
	"sort"
	"strings"
)

// Category groups a tag by the role it plays in deck analysis.
type Category string

const (
	CategorySynergy     Category = "synergy"
	CategoryAntiSynergy Category = "anti_synergy"
	CategoryRole        Category = "role"
	CategoryFormatFit   Category = "format_fit"
)

// Tag is a single matched strategic tag.
type Tag struct {
	Name     string
	Category Category
}

type rule struct {
	tag      string
	category Category
	needles  []string // oracle-text or type-line substrings, matched case-insensitively
}

var rules = []rule{
	{"graveyard", CategorySynergy, []string{"graveyard"}},
	{"plus-one-counters", CategorySynergy, []string{"+1/+1 counter"}},
	{"artifacts", CategorySynergy, []string{"artifact you control", "artifacts you control"}},
	{"tokens", CategorySynergy, []string{"create a", "create x", "token"}},
	{"sacrifice", CategorySynergy, []string{"sacrifice a creature", "sacrifice another creature"}},
	{"lifegain", CategorySynergy, []string{"gain life", "you gain"}},
	{"spells-matter", CategorySynergy, []string{"instant or sorcery spell", "whenever you cast"}},
	{"tribal-elf", CategorySynergy, []string{"elf creatures", "elves you control"}},
	{"tribal-zombie", CategorySynergy, []string{"zombie creatures", "zombies you control"}},
	{"tribal-goblin", CategorySynergy, []string{"goblin creatures", "goblins you control"}},

	{"exile-graveyard-hate", CategoryAntiSynergy, []string{"exile all cards from", "exile target card from a graveyard"}},
	{"symmetric-discard", CategoryAntiSynergy, []string{"each player discards"}},
	{"symmetric-sacrifice", CategoryAntiSynergy, []string{"each player sacrifices"}},

	{"removal", CategoryRole, []string{"destroy target creature", "damage to any target", "exile target creature"}},
	{"ramp", CategoryRole, []string{"search your library for a basic land", "add {"}},
	{"card-advantage", CategoryRole, []string{"draw a card", "draw two cards", "draw cards"}},
	{"finisher", CategoryRole, []string{"you win the game", "each opponent loses"}},
	{"counterspell", CategoryRole, []string{"counter target spell"}},
	{"protection", CategoryRole, []string{"hexproof", "indestructible", "protection from"}},
}

// Generate returns every tag whose needle matches oracleText or
// typeLine, case-insensitively, plus a format_fit tag for each format
// the card's legality map marks "legal".
func Generate(oracleText, typeLine string, legalities map[string]string) []Tag {
	haystack := strings.ToLower(oracleText + " " + typeLine)
	var out []Tag
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(haystack, needle) {
				out = append(out, Tag{Name: r.tag, Category: r.category})
				break
			}
		}
	}
	formats := make([]string, 0, len(legalities))
	for format, status := range legalities {
		if status == "legal" {
			formats = append(formats, format)
		}
	}
	sort.Strings(formats)
	for _, format := range formats {
		out = append(out, Tag{Name: strings.ToLower(format) + "-legal", Category: CategoryFormatFit})
	}
	return out
}

// Names returns just the tag name strings from Generate, in stable
// rule-table order, for embedding text construction.
func Names(oracleText, typeLine string, legalities map[string]string) []string {
	tags := Generate(oracleText, typeLine, legalities)
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

// Shared counts, for two tag-name slices, how many names appear in
// both — used by the analyzer's synergy sub-score to count cards
// sharing strategic tags.
func Shared(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	n := 0
	for _, t := range b {
		if set[t] {
			n++
		}
	}
	return n
}
