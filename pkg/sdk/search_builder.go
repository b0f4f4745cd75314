package entidex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/entidex/internal/domain/search/filter"
	"github.com/kailas-cloud/entidex/internal/domain/search/request"
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = Order(request.Asc)
	Desc Order = Order(request.Desc)
)

// SearchBuilder is a fluent builder for searches over one kind. Conditions
// are combined with AND. The first invalid call is reported by Do.
type SearchBuilder struct {
	kind        string
	svc         searchUseCase
	maxPageSize int
	obs         *observer

	params   []filter.Parameter
	sort     []request.SortField
	pageSize int
	token    string
	opts     request.Options
	err      error
}

// Condition constrains one field. Every method adds the condition and
// returns the builder.
type Condition struct {
	b     *SearchBuilder
	field string
}

// Where starts a condition on field.
func (b *SearchBuilder) Where(field string) *Condition {
	return &Condition{b: b, field: field}
}

// OrderBy appends a sort key.
func (b *SearchBuilder) OrderBy(field string, order Order) *SearchBuilder {
	sf, err := request.NewSortField(field, request.Order(order))
	if err != nil {
		b.fail(err)
		return b
	}
	b.sort = append(b.sort, sf)
	return b
}

// PageSize limits the page. 0 uses the configured default.
func (b *SearchBuilder) PageSize(n int) *SearchBuilder {
	b.pageSize = n
	return b
}

// After continues from the token of a previous page.
func (b *SearchBuilder) After(token string) *SearchBuilder {
	b.token = token
	return b
}

// Fields projects the returned entities to these top-level keys.
func (b *SearchBuilder) Fields(names ...string) *SearchBuilder {
	b.opts.Fields = append(b.opts.Fields, names...)
	return b
}

// Count asks for the total number of matches.
func (b *SearchBuilder) Count() *SearchBuilder {
	b.opts.Count = true
	return b
}

// Facet asks for per-value counts of fields.
func (b *SearchBuilder) Facet(fields ...string) *SearchBuilder {
	b.opts.Facets = append(b.opts.Facets, fields...)
	return b
}

// build validates the search without running it.
func (b *SearchBuilder) build() (request.Request, error) {
	if b.err != nil {
		return request.Request{}, b.err
	}
	return request.New(b.kind, b.params, b.sort, b.pageSize, b.token, b.opts, b.maxPageSize)
}

// Do runs the search.
func (b *SearchBuilder) Do(ctx context.Context) (_ Page, err error) {
	start := time.Now()
	defer func() { b.obs.observe("search", start, err) }()

	req, err := b.build()
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}
	return runSearch(ctx, b.svc, req)
}

func (b *SearchBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *SearchBuilder) add(p filter.Parameter, err error) *SearchBuilder {
	if err != nil {
		b.fail(err)
		return b
	}
	b.params = append(b.params, p)
	return b
}

// Equals matches a string field equal to value.
func (c *Condition) Equals(value string) *SearchBuilder {
	return c.b.add(filter.NewString(c.field, filter.OpEquals, value))
}

// Contains matches a full-text field sharing any analyzed token with value.
func (c *Condition) Contains(value string) *SearchBuilder {
	return c.b.add(filter.NewString(c.field, filter.OpContains, value))
}

// In matches an enum field equal to any of values, one comparison each.
func (c *Condition) In(values ...string) *SearchBuilder {
	return c.b.add(filter.NewEnum(c.field, filter.OpEquals, values))
}

// AnyOf matches an enum field whose value is in values, bound as one list.
func (c *Condition) AnyOf(values ...string) *SearchBuilder {
	return c.b.add(filter.NewEnum(c.field, filter.OpContains, values))
}

// Is matches a number field equal to n.
func (c *Condition) Is(n float64) *SearchBuilder {
	return c.b.add(filter.NewNumber(c.field, filter.OpEquals, n))
}

// Gt matches a number field greater than n.
func (c *Condition) Gt(n float64) *SearchBuilder {
	return c.b.add(filter.NewNumber(c.field, filter.OpGreaterThan, n))
}

// Gte matches a number field greater than or equal to n.
func (c *Condition) Gte(n float64) *SearchBuilder {
	return c.b.add(filter.NewNumber(c.field, filter.OpGreaterEqualThan, n))
}

// Lt matches a number field less than n.
func (c *Condition) Lt(n float64) *SearchBuilder {
	return c.b.add(filter.NewNumber(c.field, filter.OpLessThan, n))
}

// Lte matches a number field less than or equal to n.
func (c *Condition) Lte(n float64) *SearchBuilder {
	return c.b.add(filter.NewNumber(c.field, filter.OpLessEqualThan, n))
}

// Between matches a number field within [lo, hi].
func (c *Condition) Between(lo, hi float64) *SearchBuilder {
	return c.b.add(filter.NewNumberRange(c.field, lo, hi))
}

// Before matches a date field earlier than t.
func (c *Condition) Before(t time.Time) *SearchBuilder {
	return c.b.add(filter.NewDate(c.field, filter.OpBefore, t.UTC().Format(time.RFC3339)))
}

// After matches a date field later than t.
func (c *Condition) After(t time.Time) *SearchBuilder {
	return c.b.add(filter.NewDate(c.field, filter.OpAfter, t.UTC().Format(time.RFC3339)))
}

// Within matches a date field within [from, to].
func (c *Condition) Within(from, to time.Time) *SearchBuilder {
	return c.b.add(filter.NewDateRange(c.field,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)))
}

// Exists matches entities whose index document has the field.
func (c *Condition) Exists() *SearchBuilder {
	return c.b.add(filter.NewUniversal(c.field, filter.OpExists))
}

// Missing matches entities whose index document lacks the field.
func (c *Condition) Missing() *SearchBuilder {
	return c.b.add(filter.NewUniversal(c.field, filter.OpNotExists))
}
