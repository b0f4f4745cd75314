// Package query compiles search requests into backend predicates.
//
// Compilation is two steps. The compiler validates a request against the
// entity schema and lowers it into a Plan of typed clauses; a Dialect then
// renders the plan into predicate text with bound parameters. Both steps
// are pure and deterministic.
package query

import (
	"regexp"
	"strconv"
)

// ClauseKind identifies how a clause matches.
type ClauseKind int

// Clause kinds.
const (
	// Equal matches path = Values[0].
	Equal ClauseKind = iota
	// AnyEqual matches path equal to any of Values, in order.
	AnyEqual
	// AnyToken matches when the token array at Path holds any of Values.
	AnyToken
	// In matches path against a single bound list, Values[0] ([]string).
	In
	// Compare matches path Cmp Values[0].
	Compare
	// Between matches Values[0] <= path <= Values[1].
	Between
	// Exists matches when path holds a value.
	Exists
	// NotExists matches when path is absent.
	NotExists
)

func (k ClauseKind) String() string {
	switch k {
	case Equal:
		return "equal"
	case AnyEqual:
		return "any_equal"
	case AnyToken:
		return "any_token"
	case In:
		return "in"
	case Compare:
		return "compare"
	case Between:
		return "between"
	case Exists:
		return "exists"
	case NotExists:
		return "not_exists"
	default:
		return "clause(" + strconv.Itoa(int(k)) + ")"
	}
}

// Comparison is an ordering operator.
type Comparison string

// Comparison operators.
const (
	LT  Comparison = "<"
	LTE Comparison = "<="
	GT  Comparison = ">"
	GTE Comparison = ">="
)

// ValueKind tells dialects how to treat clause operands.
type ValueKind int

// Operand kinds.
const (
	Text ValueKind = iota
	Numeric
	Temporal
)

// Clause is one lowered filter.
type Clause struct {
	Kind      ClauseKind
	ValueKind ValueKind
	// Path is the document path, already prefixed (e.g. "index.name").
	Path   string
	Cmp    Comparison
	Values []any
	// Source names the originating parameter, for error messages.
	Source string
}

// SortKey orders by one document path.
type SortKey struct {
	Path string
	Desc bool
}

// FacetRef maps a requested facet name to its document path.
type FacetRef struct {
	Name string
	Path string
}

// Plan is a validated, backend-neutral query.
type Plan struct {
	Clauses []Clause
	// Discriminator is matched against the document "type" field; empty
	// skips the clause.
	Discriminator string
	// EntityType is matched against the document "entityType" field; empty
	// skips the clause.
	EntityType string
	Sort       []SortKey
	Facets     []FacetRef
}

// Param is one named bound parameter.
type Param struct {
	Name  string
	Value any
}

// Compiled is a rendered query ready for a store.
type Compiled struct {
	Predicate string
	Params    []Param
	OrderBy   string
	Sort      []SortKey
	Facets    []FacetRef
}

// Dialect renders a plan for one backend.
type Dialect interface {
	Name() string
	Render(p Plan) (Compiled, error)
}

// Binder hands out sequential parameter names: param0, param1, ...
type Binder struct {
	params []Param
}

// Bind records v and returns its parameter name.
func (b *Binder) Bind(v any) string {
	name := "param" + strconv.Itoa(len(b.params))
	b.params = append(b.params, Param{Name: name, Value: v})
	return name
}

// Params returns the bound parameters in binding order.
func (b *Binder) Params() []Param { return b.params }

var pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidPath reports whether p is a dotted identifier path, the only shape
// dialects embed into query text.
func ValidPath(p string) bool { return pathPattern.MatchString(p) }
