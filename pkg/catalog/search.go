package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

const selectColumns = `id, name, mana_cost, cmc, colors, color_identity, type_line, types, subtypes,
	oracle_text, power, toughness, loyalty, set_code, rarity, legalities, keywords`

// Filters narrows a Search call. Zero-valued fields are unconstrained.
type Filters struct {
	Colors       []string // cards whose color set intersects these
	Types        []string // cards whose type list contains any of these
	MinCMC       *float64
	MaxCMC       *float64
	Rarity       string
	LegalFormat  string // require legalities[LegalFormat] == "legal"
	TextContains string // FTS substring over name/oracle_text/type_line
}

// GetByID fetches a single card by its catalog id.
func (s *Store) GetByID(ctx context.Context, id string) (card.Card, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM cards WHERE id = ?", id)
	c, err := scanCard(row)
	if err == sql.ErrNoRows {
		return card.Card{}, errs.New(errs.KindNotFound, "card id "+id)
	}
	if err != nil {
		return card.Card{}, errs.Wrap(errs.KindUpstreamUnavailable, "get card by id", err)
	}
	return c, nil
}

// GetByName fetches a card by case-insensitive name; collisions resolve
// to the earliest-ingested row.
func (s *Store) GetByName(ctx context.Context, name string) (card.Card, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM cards WHERE LOWER(name) = LOWER(?) ORDER BY ingested_at ASC, id ASC LIMIT 1",
		name)
	c, err := scanCard(row)
	if err == sql.ErrNoRows {
		return card.Card{}, errs.New(errs.KindNotFound, "card name "+name)
	}
	if err != nil {
		return card.Card{}, errs.Wrap(errs.KindUpstreamUnavailable, "get card by name", err)
	}
	return c, nil
}

// Count returns the number of cards matching filters.
func (s *Store) Count(ctx context.Context, f Filters) (int, error) {
	where, args := buildWhere(f)
	query := "SELECT COUNT(*) FROM cards c"
	if f.TextContains != "" {
		query += " JOIN cards_fts ON cards_fts.rowid = c.rowid"
	}
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errs.Wrap(errs.KindUpstreamUnavailable, "count cards", err)
	}
	return n, nil
}

// Search returns cards matching filters, ordered by name ascending with
// id as a tiebreaker, bounded to limit results.
func (s *Store) Search(ctx context.Context, f Filters, limit int) ([]card.Card, error) {
	if limit <= 0 {
		limit = 50
	}
	where, args := buildWhere(f)
	query := "SELECT " + prefixColumns("c", selectColumns) + " FROM cards c"
	if f.TextContains != "" {
		query += " JOIN cards_fts ON cards_fts.rowid = c.rowid"
	}
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY c.name ASC, c.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "search cards", err)
	}
	defer rows.Close()

	var out []card.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, errs.Wrap(errs.KindParseFailure, "scan search row", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, "iterate search rows", err)
	}
	return out, nil
}

func prefixColumns(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func buildWhere(f Filters) (string, []any) {
	var clauses []string
	var args []any

	if f.TextContains != "" {
		clauses = append(clauses, "cards_fts MATCH ?")
		args = append(args, ftsQuery(f.TextContains))
	}
	if f.MinCMC != nil {
		clauses = append(clauses, "c.cmc >= ?")
		args = append(args, *f.MinCMC)
	}
	if f.MaxCMC != nil {
		clauses = append(clauses, "c.cmc <= ?")
		args = append(args, *f.MaxCMC)
	}
	if f.Rarity != "" {
		clauses = append(clauses, "c.rarity = ?")
		args = append(args, f.Rarity)
	}
	if f.LegalFormat != "" {
		clauses = append(clauses, "json_extract(c.legalities, '$.' || ?) = 'legal'")
		args = append(args, f.LegalFormat)
	}
	var colorOrs []string
	for _, col := range f.Colors {
		colorOrs = append(colorOrs, "c.colors LIKE ?")
		args = append(args, "%\""+col+"\"%")
	}
	if len(colorOrs) > 0 {
		clauses = append(clauses, "("+strings.Join(colorOrs, " OR ")+")")
	}
	var typeOrs []string
	for _, t := range f.Types {
		typeOrs = append(typeOrs, "c.types LIKE ?")
		args = append(args, "%\""+t+"\"%")
	}
	if len(typeOrs) > 0 {
		clauses = append(clauses, "("+strings.Join(typeOrs, " OR ")+")")
	}

	return strings.Join(clauses, " AND "), args
}

func ftsQuery(substr string) string {
	return fmt.Sprintf("%q", substr)
}
