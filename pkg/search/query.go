package search

import (
	"fmt"
	"strings"

	"github.com/opendata-nc/registre/pkg/params"
	"github.com/opendata-nc/registre/pkg/ridet"
)

// Strategy names the query shape picked by Build
type Strategy string

const (
	// StrategyRidet is an exact lookup on the registry identifier
	StrategyRidet Strategy = "ridet"
	// StrategyText is a ranked full-text search with filters
	StrategyText Strategy = "text"
)

// searchVector must stay identical to the expression of the
// entreprise_search_idx index or PostgreSQL will not use it
const searchVector = `to_tsvector('french', coalesce(e.sigle, '') || ' ' || coalesce(e.enseigne, '') || ' ' || coalesce(e.rid, ''))`

const entrepriseSelect = `
		SELECT
			e.id,
			e.rid,
			e.sigle,
			e.enseigne,
			e.forme_juridique,
			e.adresse,
			e.code_postal,
			e.ville,`

// Query is a ready to run search: the page query and its total count
type Query struct {
	Strategy  Strategy
	SQL       string
	Args      []interface{}
	CountSQL  string
	CountArgs []interface{}
}

// Build picks the query strategy for validated parameters. Terms written as a
// RID or RIDET get an exact lookup, anything else a text search.
func Build(p *params.SearchParams) (*Query, error) {
	if ridet.IsRidet(p.Terms) {
		return ByRidet(p)
	}
	return ByText(p), nil
}

// ByRidet builds the exact lookup for the RID or RIDET in p.Terms. A RIDET
// also requires the establishment to exist. List filters do not apply to an
// identifier lookup, pagination does.
func ByRidet(p *params.SearchParams) (*Query, error) {
	id, err := ridet.Parse(p.Terms)
	if err != nil {
		return nil, err
	}

	where := strings.Builder{}
	where.WriteString(`
		WHERE e.rid = $1`)
	args := []interface{}{id.RID}

	if id.HasEtablissement() {
		args = append(args, id.String())
		where.WriteString(`
			AND EXISTS (
				SELECT 1 FROM etablissement et
				WHERE et.entreprise_id = e.id AND et.rid = $2
			)`)
	}

	argIndex := len(args) + 1
	query := entrepriseSelect + `
			1.0 AS rank
		FROM entreprise e` + where.String() + fmt.Sprintf(`
		ORDER BY e.rid ASC
		LIMIT $%d OFFSET $%d`, argIndex, argIndex+1)

	return &Query{
		Strategy:  StrategyRidet,
		SQL:       query,
		Args:      append(append([]interface{}(nil), args...), p.PerPage, p.Offset()),
		CountSQL:  `SELECT COUNT(*) FROM entreprise e` + where.String(),
		CountArgs: args,
	}, nil
}

// ByText builds the ranked text search. Without terms it lists the companies
// matching the filters ordered by RID.
func ByText(p *params.SearchParams) *Query {
	tsquery := ToTsQuery(p.Terms)
	where, args := textFilters(p, tsquery)

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(entrepriseSelect)

	if tsquery != "" {
		queryBuilder.WriteString(`
			ts_rank(` + searchVector + `, to_tsquery('french', $1)) AS rank`)
	} else {
		queryBuilder.WriteString(`
			0.0 AS rank`)
	}

	queryBuilder.WriteString(`
		FROM entreprise e`)
	queryBuilder.WriteString(where)

	if tsquery != "" {
		queryBuilder.WriteString(`
		ORDER BY rank DESC, e.rid ASC`)
	} else {
		queryBuilder.WriteString(`
		ORDER BY e.rid ASC`)
	}

	argIndex := len(args) + 1
	queryBuilder.WriteString(fmt.Sprintf(`
		LIMIT $%d OFFSET $%d`, argIndex, argIndex+1))

	pageArgs := append(append([]interface{}(nil), args...), p.PerPage, p.Offset())

	return &Query{
		Strategy:  StrategyText,
		SQL:       queryBuilder.String(),
		Args:      pageArgs,
		CountSQL:  `SELECT COUNT(*) FROM entreprise e` + where,
		CountArgs: args,
	}
}

// textFilters renders the WHERE clause shared by the page and count queries
func textFilters(p *params.SearchParams, tsquery string) (string, []interface{}) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`
		WHERE 1=1`)

	args := make([]interface{}, 0)
	argIndex := 1

	if tsquery != "" {
		args = append(args, tsquery)
		queryBuilder.WriteString(fmt.Sprintf(`
			AND `+searchVector+` @@ to_tsquery('french', $%d)`, argIndex))
		argIndex++
	}

	filters := []struct {
		column string
		values []string
	}{
		{"UPPER(e.ville)", p.Commune},
		{"e.code_postal", p.CodePostal},
		{"UPPER(e.forme_juridique)", p.FormeJuridique},
	}

	for _, filter := range filters {
		if len(filter.values) == 0 {
			continue
		}
		placeholders := make([]string, len(filter.values))
		for i, value := range filter.values {
			args = append(args, value)
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			argIndex++
		}
		queryBuilder.WriteString(fmt.Sprintf(`
			AND %s IN (%s)`, filter.column, strings.Join(placeholders, ", ")))
	}

	return queryBuilder.String(), args
}
