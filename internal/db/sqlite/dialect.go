package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/query"
)

// Dialect renders plans as SQLite predicates over the JSON body column.
type Dialect struct{}

var _ query.Dialect = Dialect{}

// Name implements query.Dialect.
func (Dialect) Name() string { return "sqlite" }

// Render implements query.Dialect. Every operand is a bound parameter;
// only validated paths and the fixed discriminators are inlined.
func (Dialect) Render(p query.Plan) (query.Compiled, error) {
	var b query.Binder
	parts := make([]string, 0, len(p.Clauses)+2)

	for _, c := range p.Clauses {
		sql, err := renderClause(c, &b)
		if err != nil {
			return query.Compiled{}, err
		}
		parts = append(parts, sql)
	}

	if p.Discriminator != "" {
		parts = append(parts, ref(query.TypeField)+" = "+literal(p.Discriminator))
	}
	if p.EntityType != "" {
		parts = append(parts, ref(query.EntityTypeField)+" = "+literal(p.EntityType))
	}

	order := make([]string, 0, len(p.Sort))
	for _, s := range p.Sort {
		if !query.ValidPath(s.Path) {
			return query.Compiled{}, fmt.Errorf("%w: sort path %q", db.ErrUnsupported, s.Path)
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		order = append(order, ref(s.Path)+" "+dir)
	}

	for _, f := range p.Facets {
		if !query.ValidPath(f.Path) {
			return query.Compiled{}, fmt.Errorf("%w: facet path %q", db.ErrUnsupported, f.Path)
		}
	}

	return query.Compiled{
		Predicate: strings.Join(parts, " AND "),
		Params:    b.Params(),
		OrderBy:   strings.Join(order, ", "),
		Sort:      p.Sort,
		Facets:    p.Facets,
	}, nil
}

func renderClause(c query.Clause, b *query.Binder) (string, error) {
	if !query.ValidPath(c.Path) {
		return "", fmt.Errorf("%w: path %q", db.ErrUnsupported, c.Path)
	}
	r := ref(c.Path)
	operand := func(v any) string { return "@" + b.Bind(v) }
	if c.ValueKind == query.Temporal {
		r = "julianday(" + r + ")"
		operand = func(v any) string { return "julianday(@" + b.Bind(v) + ")" }
	}

	switch c.Kind {
	case query.Equal:
		return r + " = " + operand(c.Values[0]), nil

	case query.AnyEqual:
		ors := make([]string, len(c.Values))
		for i, v := range c.Values {
			ors[i] = r + " = " + operand(v)
		}
		return "(" + strings.Join(ors, " OR ") + ")", nil

	case query.AnyToken:
		ors := make([]string, len(c.Values))
		for i, v := range c.Values {
			ors[i] = "t.value = " + operand(v)
		}
		return "EXISTS (SELECT 1 FROM json_each(body, " + jsonPath(c.Path) + ") AS t WHERE " +
			strings.Join(ors, " OR ") + ")", nil

	case query.In:
		list, err := json.Marshal(c.Values[0])
		if err != nil {
			return "", fmt.Errorf("encode list for %s: %w", c.Source, err)
		}
		return r + " IN (SELECT value FROM json_each(" + operand(string(list)) + "))", nil

	case query.Compare:
		return r + " " + string(c.Cmp) + " " + operand(c.Values[0]), nil

	case query.Between:
		return "(" + r + " >= " + operand(c.Values[0]) + " AND " + r + " <= " + operand(c.Values[1]) + ")", nil

	case query.Exists:
		return "json_type(body, " + jsonPath(c.Path) + ") IS NOT NULL", nil

	case query.NotExists:
		return "json_type(body, " + jsonPath(c.Path) + ") IS NULL", nil

	default:
		return "", fmt.Errorf("%w: clause %s", db.ErrUnsupported, c.Kind)
	}
}

// ref extracts a dotted path from the body column. Callers validate path.
func ref(path string) string {
	return "json_extract(body, " + jsonPath(path) + ")"
}

func jsonPath(path string) string {
	return "'$." + path + "'"
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
