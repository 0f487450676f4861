// Package vectorindex stores per-card embedding vectors and metadata in
// a bbolt file and answers nearest-neighbor queries by cosine similarity
// computed in memory.
package vectorindex

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
	"github.com/swstevens/agentic-cag-system/pkg/tags"
)

var bucketEmbeddings = []byte("embeddings")

// Embedder computes a dense vector for a piece of text. It is supplied
// by the caller so vectorindex never depends on a specific embedding
// provider or its wire protocol.
type Embedder interface {
	Embed(text string) ([]float64, error)
}

// Metadata is the compact per-card record returned alongside a search
// hit, avoiding a catalog round trip for common filter checks.
type Metadata struct {
	Name     string   `json:"name"`
	CMC      float64  `json:"cmc"`
	Colors   []string `json:"colors"`
	Types    []string `json:"types"`
	Rarity   string   `json:"rarity"`
	Legal    []string `json:"legal"` // formats this card is legal in
}

type record struct {
	CardID    string    `json:"card_id"`
	Embedding []float64 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Index is the bbolt-backed vector store.
type Index struct {
	db       *bolt.DB
	embedder Embedder
}

// Open opens (creating if necessary) the embedding store at path.
func Open(path string, embedder Embedder) (*Index, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "open vector index", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.KindInternal, "create embeddings bucket", err)
	}
	return &Index{db: db, embedder: embedder}, nil
}

// Close closes the underlying bbolt file.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// BuildEmbeddingText deterministically assembles the text embedded for
// a card: name, type line, mana cost, color words, oracle text,
// keywords, and strategic tags.
func BuildEmbeddingText(c card.Card) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" | ")
	b.WriteString(c.TypeLine)
	b.WriteString(" | ")
	b.WriteString(c.ManaCost)
	if len(c.Colors) > 0 {
		b.WriteString(" | colors: ")
		b.WriteString(strings.Join(colorWords(c.Colors), ", "))
	}
	if c.OracleText != "" {
		b.WriteString(" | ")
		b.WriteString(c.OracleText)
	}
	if len(c.Keywords) > 0 {
		b.WriteString(" | keywords: ")
		b.WriteString(strings.Join(c.Keywords, ", "))
	}
	tagNames := tags.Names(c.OracleText, c.TypeLine, c.Legalities)
	if len(tagNames) > 0 {
		b.WriteString(" | tags: ")
		b.WriteString(strings.Join(tagNames, ", "))
	}
	return b.String()
}

func colorWords(colors []string) []string {
	names := map[string]string{"W": "white", "U": "blue", "B": "black", "R": "red", "G": "green"}
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		if w, ok := names[c]; ok {
			out = append(out, w)
		}
	}
	return out
}

// Upsert computes (or reuses the embedder for) each card's embedding
// and replaces its stored entry, returning the number written.
func (ix *Index) Upsert(cards []card.Card) (int, error) {
	count := 0
	err := ix.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for _, c := range cards {
			vec, err := ix.embedder.Embed(BuildEmbeddingText(c))
			if err != nil {
				return errs.Wrap(errs.KindUpstreamUnavailable, "embed card "+c.Name, err)
			}
			rec := record{
				CardID:    c.ID,
				Embedding: vec,
				Metadata:  metadataFrom(c),
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return errs.Wrap(errs.KindInternal, "encode embedding record", err)
			}
			if err := b.Put([]byte(c.ID), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

func metadataFrom(c card.Card) Metadata {
	var legal []string
	for format, status := range c.Legalities {
		if status == "legal" {
			legal = append(legal, format)
		}
	}
	sort.Strings(legal)
	return Metadata{
		Name:   c.Name,
		CMC:    c.CMC,
		Colors: c.Colors,
		Types:  c.Types,
		Rarity: c.Rarity,
		Legal:  legal,
	}
}

// Count returns the number of stored embeddings.
func (ix *Index) Count() (int, error) {
	n := 0
	err := ix.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEmbeddings).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.KindUpstreamUnavailable, "count embeddings", err)
	}
	return n, nil
}

// Hit is a single search result: a card id, its distance from the
// query (smaller is more similar), and compact metadata.
type Hit struct {
	CardID   string
	Distance float64
	Metadata Metadata
}

// SearchFilter is an optional post-predicate applied to candidate hits.
type SearchFilter func(Metadata) bool

// Search embeds queryText, loads every stored vector, and returns the k
// nearest by cosine distance (1 - cosine similarity) satisfying filter,
// if given.
func (ix *Index) Search(queryText string, k int, filter SearchFilter) ([]Hit, error) {
	queryVec, err := ix.embedder.Embed(queryText)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "embed query", err)
	}

	var hits []Hit
	err = ix.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return errs.Wrap(errs.KindParseFailure, "decode embedding record", err)
			}
			if filter != nil && !filter(rec.Metadata) {
				return nil
			}
			hits = append(hits, Hit{
				CardID:   rec.CardID,
				Distance: cosineDistance(queryVec, rec.Embedding),
				Metadata: rec.Metadata,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosineDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1 // maximally dissimilar when vectors are incomparable
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - similarity
}
