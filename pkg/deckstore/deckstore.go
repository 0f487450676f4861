// Package deckstore provides CRUD persistence for completed decks, keyed
// by server-assigned UUID and stamped with server-assigned timestamps.
package deckstore

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

var bucketDecks = []byte("decks")

// Record is the persisted deck row: the deck body plus the bookkeeping
// fields spec.md's deck store schema requires.
type Record struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Format            string    `json:"format"`
	Archetype         string    `json:"archetype"`
	Colors            []string  `json:"colors"`
	Deck              card.Deck `json:"deck"`
	QualityScore      float64   `json:"quality_score"`
	ImprovementNotes  string    `json:"improvement_notes,omitempty"`
	TotalCards        int       `json:"total_cards"`
	UserID            string    `json:"user_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Filters narrows List/Count.
type Filters struct {
	Format    string
	Archetype string
	UserID    string
}

func (f Filters) matches(r Record) bool {
	if f.Format != "" && r.Format != f.Format {
		return false
	}
	if f.Archetype != "" && r.Archetype != f.Archetype {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	return true
}

// Store is the bbolt-backed deck store.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the deck store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "open deck store", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDecks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.KindInternal, "create decks bucket", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save assigns a UUID and server timestamps to r and persists it,
// returning the assigned id.
func (s *Store) Save(r Record) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := s.put(r); err != nil {
		return "", err
	}
	return id, nil
}

// GetByID fetches a deck record by its id.
func (s *Store) GetByID(id string) (Record, error) {
	var r Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDecks).Get([]byte(id))
		if data == nil {
			return errs.New(errs.KindNotFound, "deck "+id)
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		if e, ok := err.(*errs.Error); ok {
			return Record{}, e
		}
		return Record{}, errs.Wrap(errs.KindParseFailure, "decode deck record", err)
	}
	return r, nil
}

// List returns every deck matching filters, most-recently-created first,
// applying limit/offset after filtering.
func (s *Store) List(f Filters, limit, offset int) ([]Record, error) {
	var all []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDecks).ForEach(func(_, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if f.matches(r) {
				all = append(all, r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "list decks", err)
	}

	sortByCreatedAtDesc(all)

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Count returns the number of decks matching filters.
func (s *Store) Count(f Filters) (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDecks).ForEach(func(_, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			if f.matches(r) {
				n++
			}
			return nil
		})
	})
	if err != nil {
		return 0, errs.Wrap(errs.KindUpstreamUnavailable, "count decks", err)
	}
	return n, nil
}

// Update applies mutate to the existing record for id and persists the
// result, refreshing updated_at while leaving created_at untouched.
func (s *Store) Update(id string, mutate func(*Record)) (Record, error) {
	r, err := s.GetByID(id)
	if err != nil {
		return Record{}, err
	}
	mutate(&r)
	r.ID = id
	r.UpdatedAt = time.Now().UTC()

	if err := s.put(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Delete removes a deck record by id.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDecks).Delete([]byte(id))
	})
}

func (s *Store) put(r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "encode deck record", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDecks).Put([]byte(r.ID), data)
	})
}

func sortByCreatedAtDesc(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
}
