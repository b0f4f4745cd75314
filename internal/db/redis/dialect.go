package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/query"
)

// kindField is the alias of the item kind stored in the document wrapper.
const kindField = "__kind"

// Dialect renders plans as RediSearch query strings (DIALECT 2). Operand
// values are bound as $paramN and sent with PARAMS; only the fixed
// discriminator tags are inlined. It is a constrained backend: date
// operations, existence tests and more than one sort key are rejected.
type Dialect struct{}

var _ query.Dialect = Dialect{}

// Name implements query.Dialect.
func (Dialect) Name() string { return "redisearch" }

// Render implements query.Dialect.
func (Dialect) Render(p query.Plan) (query.Compiled, error) {
	var b query.Binder
	parts := make([]string, 0, len(p.Clauses)+2)
	for _, c := range p.Clauses {
		s, err := renderClause(c, &b)
		if err != nil {
			return query.Compiled{}, err
		}
		parts = append(parts, s)
	}
	if p.Discriminator != "" {
		parts = append(parts, buildTagFilter(query.TypeField, p.Discriminator))
	}
	if p.EntityType != "" {
		parts = append(parts, buildTagFilter(query.EntityTypeField, p.EntityType))
	}

	if len(p.Sort) > 1 {
		return query.Compiled{}, domain.NewUnsupportedOperation("sort", strconv.Itoa(len(p.Sort))+" keys")
	}
	orderBy := ""
	if len(p.Sort) == 1 {
		dir := "ASC"
		if p.Sort[0].Desc {
			dir = "DESC"
		}
		orderBy = db.AliasFor(p.Sort[0].Path) + " " + dir
	}

	predicate := strings.Join(parts, " ")
	if predicate == "" {
		predicate = "*"
	}
	return query.Compiled{
		Predicate: predicate,
		Params:    b.Params(),
		OrderBy:   orderBy,
		Sort:      p.Sort,
		Facets:    p.Facets,
	}, nil
}

func renderClause(c query.Clause, b *query.Binder) (string, error) {
	if c.ValueKind == query.Temporal {
		return "", domain.NewUnsupportedOperation("date", c.Kind.String())
	}
	alias := db.AliasFor(c.Path)
	bind := func(v any) string { return "$" + b.Bind(v) }

	switch c.Kind {
	case query.Equal:
		if c.ValueKind == query.Numeric {
			v := bind(c.Values[0])
			return buildNumericFilter(alias, v, v), nil
		}
		return "@" + alias + ":{" + bind(toString(c.Values[0])) + "}", nil

	case query.AnyEqual, query.AnyToken:
		refs := make([]string, len(c.Values))
		for i, v := range c.Values {
			refs[i] = bind(toString(v))
		}
		return "@" + alias + ":{" + strings.Join(refs, " | ") + "}", nil

	case query.In:
		list, _ := c.Values[0].([]string)
		if len(list) == 0 {
			return "", domain.NewUnsupportedOperation("enum", "Contains with no values")
		}
		refs := make([]string, len(list))
		for i, v := range list {
			refs[i] = bind(v)
		}
		return "@" + alias + ":{" + strings.Join(refs, " | ") + "}", nil

	case query.Compare:
		v := bind(c.Values[0])
		switch c.Cmp {
		case query.GT:
			return buildNumericFilter(alias, "("+v, "+inf"), nil
		case query.GTE:
			return buildNumericFilter(alias, v, "+inf"), nil
		case query.LT:
			return buildNumericFilter(alias, "-inf", "("+v), nil
		case query.LTE:
			return buildNumericFilter(alias, "-inf", v), nil
		}

	case query.Between:
		return buildNumericFilter(alias, bind(c.Values[0]), bind(c.Values[1])), nil

	case query.Exists, query.NotExists:
		return "", domain.NewUnsupportedOperation("universal", c.Kind.String())
	}
	return "", domain.NewUnsupportedOperation(c.Source, c.Kind.String())
}

// paramArgs renders bound parameters as the PARAMS clause of a query
// command.
func paramArgs(params []query.Param) []string {
	if len(params) == 0 {
		return nil
	}
	args := make([]string, 0, 2+2*len(params))
	args = append(args, "PARAMS", strconv.Itoa(2*len(params)))
	for _, p := range params {
		args = append(args, p.Name, toString(p.Value))
	}
	return args
}

func buildTagFilter(key, value string) string {
	return "@" + key + ":{" + tagEscaper.Replace(value) + "}"
}

func buildNumericFilter(key, lo, hi string) string {
	return "@" + key + ":[" + lo + " " + hi + "]"
}

func formatNumber(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(v)
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return formatNumber(v)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	"\\", "\\\\",
	" ", "\\ ",
)
