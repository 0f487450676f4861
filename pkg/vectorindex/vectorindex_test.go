package vectorindex

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swstevens/agentic-cag-system/pkg/card"
)

// wordCountEmbedder builds a tiny deterministic "embedding" keyed to a
// fixed vocabulary, so cosine distance is predictable in tests without
// a real embedding provider.
type wordCountEmbedder struct {
	vocab []string
}

func (e wordCountEmbedder) Embed(text string) ([]float64, error) {
	lower := strings.ToLower(text)
	vec := make([]float64, len(e.vocab))
	for i, w := range e.vocab {
		vec[i] = float64(strings.Count(lower, w))
	}
	return vec, nil
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	embedder := wordCountEmbedder{vocab: []string{"ramp", "removal", "fly", "counter"}}
	ix, err := Open(filepath.Join(t.TempDir(), "vectors.db"), embedder)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestBuildEmbeddingText(t *testing.T) {
	c := card.Card{
		Name: "Lightning Bolt", TypeLine: "Instant", ManaCost: "{R}",
		Colors: []string{"R"}, OracleText: "Lightning Bolt deals 3 damage to any target.",
		Keywords: []string{"burn"},
	}
	text := BuildEmbeddingText(c)
	assert.Contains(t, text, "Lightning Bolt")
	assert.Contains(t, text, "red")
	assert.Contains(t, text, "tags: removal")
}

func TestUpsertAndSearch(t *testing.T) {
	ix := newTestIndex(t)

	cards := []card.Card{
		{ID: "1", Name: "Counterspell", OracleText: "Counter target spell.", TypeLine: "Instant", Legalities: map[string]string{"modern": "legal"}},
		{ID: "2", Name: "Rampant Growth", OracleText: "Search your library for a basic land card.", TypeLine: "Sorcery", Legalities: map[string]string{"modern": "legal"}},
		{ID: "3", Name: "Doom Blade", OracleText: "Destroy target nonblack creature.", TypeLine: "Instant"},
	}
	n, err := ix.Upsert(cards)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := ix.Search("counter target spell", 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].CardID)
}

func TestSearchWithFilter(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Upsert([]card.Card{
		{ID: "1", Name: "Counterspell", OracleText: "Counter target spell.", Legalities: map[string]string{"modern": "legal"}},
		{ID: "2", Name: "Force of Will", OracleText: "Counter target spell.", Legalities: map[string]string{"legacy": "legal"}},
	})
	require.NoError(t, err)

	hits, err := ix.Search("counter target spell", 5, func(m Metadata) bool {
		for _, f := range m.Legal {
			if f == "legacy" {
				return true
			}
		}
		return false
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", hits[0].CardID)
}

func TestCosineDistanceMismatchedLength(t *testing.T) {
	d := cosineDistance([]float64{1, 2}, []float64{1})
	assert.Equal(t, 1.0, d)
}
