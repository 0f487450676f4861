package catalog

import (
	"database/sql"
	"encoding/json"

	"github.com/swstevens/agentic-cag-system/pkg/card"
	"github.com/swstevens/agentic-cag-system/pkg/errs"
)

func scanCard(row interface {
	Scan(dest ...any) error
}) (card.Card, error) {
	var (
		c                                               card.Card
		colorsJSON, identityJSON, typesJSON, subJSON    string
		legalitiesJSON, keywordsJSON                    string
		power, toughness, loyalty                       sql.NullString
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.ManaCost, &c.CMC,
		&colorsJSON, &identityJSON, &c.TypeLine, &typesJSON, &subJSON,
		&c.OracleText, &power, &toughness, &loyalty,
		&c.SetCode, &c.Rarity, &legalitiesJSON, &keywordsJSON,
	); err != nil {
		return card.Card{}, err
	}

	if power.Valid {
		c.Power = &power.String
	}
	if toughness.Valid {
		c.Toughness = &toughness.String
	}
	if loyalty.Valid {
		c.Loyalty = &loyalty.String
	}

	if err := json.Unmarshal([]byte(colorsJSON), &c.Colors); err != nil {
		return card.Card{}, errs.Wrap(errs.KindParseFailure, "decode colors column", err)
	}
	if err := json.Unmarshal([]byte(identityJSON), &c.ColorIdentity); err != nil {
		return card.Card{}, errs.Wrap(errs.KindParseFailure, "decode color_identity column", err)
	}
	if err := json.Unmarshal([]byte(typesJSON), &c.Types); err != nil {
		return card.Card{}, errs.Wrap(errs.KindParseFailure, "decode types column", err)
	}
	if err := json.Unmarshal([]byte(subJSON), &c.Subtypes); err != nil {
		return card.Card{}, errs.Wrap(errs.KindParseFailure, "decode subtypes column", err)
	}
	if err := json.Unmarshal([]byte(legalitiesJSON), &c.Legalities); err != nil {
		return card.Card{}, errs.Wrap(errs.KindParseFailure, "decode legalities column", err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &c.Keywords); err != nil {
		return card.Card{}, errs.Wrap(errs.KindParseFailure, "decode keywords column", err)
	}
	return c, nil
}

func marshalColumn(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "encode catalog column", err)
	}
	return string(b), nil
}
