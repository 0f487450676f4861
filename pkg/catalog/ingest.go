package catalog

import (
	"context"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

// Ingest inserts or replaces cards. Cards are immutable once ingested by
// the rest of the system; Ingest exists for the initial bulk load and
// for re-running a catalog refresh against a new data source.
func (s *Store) Ingest(ctx context.Context, cards []card.Card) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Wrap(errs.KindUpstreamUnavailable, "begin ingest transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cards
		(id, name, mana_cost, cmc, colors, color_identity, type_line, types, subtypes,
		 oracle_text, power, toughness, loyalty, set_code, rarity, legalities, keywords, ingested_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?, unixepoch())
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, mana_cost=excluded.mana_cost, cmc=excluded.cmc,
			colors=excluded.colors, color_identity=excluded.color_identity,
			type_line=excluded.type_line, types=excluded.types, subtypes=excluded.subtypes,
			oracle_text=excluded.oracle_text, power=excluded.power, toughness=excluded.toughness,
			loyalty=excluded.loyalty, set_code=excluded.set_code, rarity=excluded.rarity,
			legalities=excluded.legalities, keywords=excluded.keywords`)
	if err != nil {
		return 0, errs.Wrap(errs.KindInternal, "prepare ingest statement", err)
	}
	defer stmt.Close()

	count := 0
	for _, c := range cards {
		colors, err := marshalColumn(c.Colors)
		if err != nil {
			return count, err
		}
		identity, err := marshalColumn(c.ColorIdentity)
		if err != nil {
			return count, err
		}
		types, err := marshalColumn(c.Types)
		if err != nil {
			return count, err
		}
		subtypes, err := marshalColumn(c.Subtypes)
		if err != nil {
			return count, err
		}
		legalities, err := marshalColumn(c.Legalities)
		if err != nil {
			return count, err
		}
		keywords, err := marshalColumn(c.Keywords)
		if err != nil {
			return count, err
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Name, c.ManaCost, c.CMC, colors, identity, c.TypeLine, types, subtypes,
			c.OracleText, nullable(c.Power), nullable(c.Toughness), nullable(c.Loyalty),
			c.SetCode, c.Rarity, legalities, keywords,
		); err != nil {
			return count, errs.Wrap(errs.KindUpstreamUnavailable, "ingest card "+c.Name, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return count, errs.Wrap(errs.KindUpstreamUnavailable, "commit ingest transaction", err)
	}
	return count, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
