package query

import (
	"fmt"

	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/analysis"
	"github.com/kailas-cloud/entidex/internal/domain/index/transform"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
	"github.com/kailas-cloud/entidex/internal/domain/search/filter"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
)

// Index document layout.
const (
	IndexDiscriminator = "index"
	TypeField          = "type"
	EntityTypeField    = "entityType"
	RefField           = "entityRefId"
	DefaultPrefix      = transform.DefaultPrefix
)

// Compiler lowers requests into plans and renders them with a dialect.
// It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	dialect  Dialect
	prefix   string
	analyzer *analysis.Analyzer
}

// NewCompiler creates a compiler. prefix is prepended to every field path;
// empty means DefaultPrefix.
func NewCompiler(d Dialect, prefix string) *Compiler {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Compiler{dialect: d, prefix: prefix, analyzer: analysis.New()}
}

// Dialect returns the rendering dialect.
func (c *Compiler) Dialect() Dialect { return c.dialect }

// Compile validates req against s and renders it. Any invalid parameter or
// sort key fails the whole compile.
func (c *Compiler) Compile(req request.Request, s schema.Schema) (Compiled, error) {
	p, err := c.Plan(req, s)
	if err != nil {
		return Compiled{}, err
	}
	out, err := c.dialect.Render(p)
	if err != nil {
		return Compiled{}, fmt.Errorf("%s: %w", c.dialect.Name(), err)
	}
	return out, nil
}

// Plan lowers req into backend-neutral clauses.
func (c *Compiler) Plan(req request.Request, s schema.Schema) (Plan, error) {
	plan := Plan{
		Discriminator: IndexDiscriminator,
		EntityType:    s.Kind(),
	}

	for i, p := range req.Parameters() {
		clause, ok, err := c.lower(p, s)
		if err != nil {
			return Plan{}, fmt.Errorf("searchParameters[%d]: %w", i, err)
		}
		if ok {
			plan.Clauses = append(plan.Clauses, clause)
		}
	}

	for i, sf := range req.Sort() {
		path, err := c.sortPath(sf.Field(), s)
		if err != nil {
			return Plan{}, fmt.Errorf("sort[%d]: %w", i, err)
		}
		plan.Sort = append(plan.Sort, SortKey{Path: path, Desc: sf.Order() == request.Desc})
	}
	if len(plan.Sort) == 0 {
		plan.Sort = []SortKey{{Path: RefField}}
	}

	for _, name := range req.Facets() {
		f, err := c.resolve(name, s)
		if err != nil {
			return Plan{}, fmt.Errorf("facets: %w", err)
		}
		plan.Facets = append(plan.Facets, FacetRef{Name: name, Path: c.prefix + f.Path()})
	}
	return plan, nil
}

func (c *Compiler) resolve(name string, s schema.Schema) (field.Field, error) {
	if !ValidPath(name) {
		return field.Field{}, fmt.Errorf("%w: %q is not a field path", domain.ErrUnknownField, name)
	}
	return s.Field(name)
}

func (c *Compiler) sortPath(name string, s schema.Schema) (string, error) {
	if name == RefField || name == "id" {
		return RefField, nil
	}
	f, err := c.resolve(name, s)
	if err != nil {
		return "", err
	}
	return c.prefix + f.Path(), nil
}

// lower turns one parameter into a clause. ok is false when the parameter
// contributes nothing, as for a Contains whose text has no tokens.
func (c *Compiler) lower(p filter.Parameter, s schema.Schema) (Clause, bool, error) {
	f, err := c.resolve(p.Field(), s)
	if err != nil {
		return Clause{}, false, err
	}
	typed := f.FieldType() != ""
	if typed && !f.Accepts(p.Type()) {
		return Clause{}, false, fmt.Errorf("%w on %s field %q",
			domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation())), f.FieldType(), p.Field())
	}

	path := c.prefix + f.Path()
	cl := Clause{Path: path, Source: p.Field()}

	switch v := p.(type) {
	case filter.String:
		switch v.Operation() {
		case filter.OpEquals:
			cl.Kind, cl.Values = Equal, []any{v.Value()}
		case filter.OpContains:
			if !f.Fulltext() {
				return Clause{}, false, fmt.Errorf("%w: field %q is not full-text indexed",
					domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation())), p.Field())
			}
			tokens := c.analyzer.Analyze(v.Value())
			if len(tokens) == 0 {
				return Clause{}, false, nil
			}
			cl.Kind, cl.Path = AnyToken, path+transform.FulltextSuffix
			cl.Values = make([]any, len(tokens))
			for i, t := range tokens {
				cl.Values[i] = t
			}
		default:
			return Clause{}, false, domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation()))
		}

	case filter.Enum:
		switch v.Operation() {
		case filter.OpEquals:
			vals := v.Values()
			if len(vals) == 1 {
				cl.Kind, cl.Values = Equal, []any{vals[0]}
				break
			}
			cl.Kind = AnyEqual
			cl.Values = make([]any, len(vals))
			for i, val := range vals {
				cl.Values[i] = val
			}
		case filter.OpContains:
			cl.Kind, cl.Values = In, []any{append([]string(nil), v.Values()...)}
		default:
			return Clause{}, false, domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation()))
		}

	case filter.Number:
		cl.ValueKind = Numeric
		cl.Values = []any{v.Value()}
		switch v.Operation() {
		case filter.OpEquals:
			cl.Kind = Equal
		case filter.OpGreaterThan:
			cl.Kind, cl.Cmp = Compare, GT
		case filter.OpGreaterEqualThan:
			cl.Kind, cl.Cmp = Compare, GTE
		case filter.OpLessThan:
			cl.Kind, cl.Cmp = Compare, LT
		case filter.OpLessEqualThan:
			cl.Kind, cl.Cmp = Compare, LTE
		default:
			return Clause{}, false, domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation()))
		}

	case filter.NumberRange:
		lo, hi := v.Bounds()
		cl.Kind, cl.ValueKind, cl.Values = Between, Numeric, []any{lo, hi}

	case filter.Date:
		cl.ValueKind = Temporal
		cl.Values = []any{v.Value()}
		switch v.Operation() {
		case filter.OpBefore:
			cl.Kind, cl.Cmp = Compare, LT
		case filter.OpAfter:
			cl.Kind, cl.Cmp = Compare, GT
		default:
			return Clause{}, false, domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation()))
		}

	case filter.DateRange:
		from, to := v.Bounds()
		cl.Kind, cl.ValueKind, cl.Values = Between, Temporal, []any{from, to}

	case filter.Universal:
		switch v.Operation() {
		case filter.OpExists:
			cl.Kind = Exists
		case filter.OpNotExists:
			cl.Kind = NotExists
		default:
			return Clause{}, false, domain.NewUnsupportedOperation(string(p.Type()), string(p.Operation()))
		}

	default:
		return Clause{}, false, domain.NewUnsupportedOperation(fmt.Sprintf("%T", p), "")
	}
	return cl, true, nil
}
