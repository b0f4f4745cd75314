package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/search/filter"
)

// Request limits.
const (
	MaxParameters = 64
	MaxSortFields = 8
	MaxFacets     = 16
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "Asc"
	Desc Order = "Desc"
)

// ParseOrder resolves a direction case-insensitively. Empty means Asc.
func ParseOrder(s string) (Order, error) {
	switch {
	case s == "", strings.EqualFold(s, string(Asc)):
		return Asc, nil
	case strings.EqualFold(s, string(Desc)):
		return Desc, nil
	}
	return "", fmt.Errorf("%w: invalid sort order %q", domain.ErrInvalidRequest, s)
}

// SortField orders results by one field.
type SortField struct {
	field string
	order Order
}

// NewSortField validates and creates a sort key. An empty order means Asc.
func NewSortField(field string, order Order) (SortField, error) {
	if strings.TrimSpace(field) == "" {
		return SortField{}, fmt.Errorf("%w: sort field is required", domain.ErrInvalidRequest)
	}
	if order == "" {
		order = Asc
	}
	if order != Asc && order != Desc {
		return SortField{}, fmt.Errorf("%w: invalid sort order %q", domain.ErrInvalidRequest, order)
	}
	return SortField{field: field, order: order}, nil
}

// Field returns the sorted field.
func (s SortField) Field() string { return s.field }

// Order returns the direction.
func (s SortField) Order() Order { return s.order }

// Options carries the optional response shaping of a search.
type Options struct {
	// Fields projects returned entities to these top-level keys.
	Fields []string
	// Count asks for the total number of matches.
	Count bool
	// Facets asks for per-value counts of these fields.
	Facets []string
}

// Request is a validated search over one entity type.
type Request struct {
	entityType string
	params     []filter.Parameter
	sort       []SortField
	pageSize   int
	token      string
	opts       Options
}

// New validates a search request. pageSize 0 means "all"; a positive
// maxPageSize caps it.
func New(
	entityType string,
	params []filter.Parameter,
	sort []SortField,
	pageSize int,
	token string,
	opts Options,
	maxPageSize int,
) (Request, error) {
	if strings.TrimSpace(entityType) == "" {
		return Request{}, fmt.Errorf("%w: type is required", domain.ErrInvalidRequest)
	}
	if len(params) > MaxParameters {
		return Request{}, fmt.Errorf("%w: too many search parameters (max %d)", domain.ErrInvalidRequest, MaxParameters)
	}
	if len(sort) > MaxSortFields {
		return Request{}, fmt.Errorf("%w: too many sort fields (max %d)", domain.ErrInvalidRequest, MaxSortFields)
	}
	if pageSize < 0 {
		return Request{}, fmt.Errorf("%w: pageSize must be positive", domain.ErrInvalidRequest)
	}
	if maxPageSize > 0 && pageSize > maxPageSize {
		return Request{}, fmt.Errorf("%w: pageSize exceeds maximum of %d", domain.ErrInvalidRequest, maxPageSize)
	}
	for _, p := range params {
		if p == nil {
			return Request{}, fmt.Errorf("%w: nil search parameter", domain.ErrInvalidRequest)
		}
	}
	facets, err := normalizeNames("facet", opts.Facets)
	if err != nil {
		return Request{}, err
	}
	if len(facets) > MaxFacets {
		return Request{}, fmt.Errorf("%w: too many facets (max %d)", domain.ErrInvalidRequest, MaxFacets)
	}
	fields, err := normalizeNames("field", opts.Fields)
	if err != nil {
		return Request{}, err
	}

	return Request{
		entityType: entityType,
		params:     append([]filter.Parameter(nil), params...),
		sort:       append([]SortField(nil), sort...),
		pageSize:   pageSize,
		token:      token,
		opts:       Options{Fields: fields, Count: opts.Count, Facets: facets},
	}, nil
}

// normalizeNames rejects blanks and drops duplicates, keeping first order.
func normalizeNames(kind string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return nil, fmt.Errorf("%w: empty %s name", domain.ErrInvalidRequest, kind)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// EntityType returns the entity discriminator the search targets.
func (r Request) EntityType() string { return r.entityType }

// Parameters returns the ANDed filters.
func (r Request) Parameters() []filter.Parameter { return r.params }

// Sort returns the sort keys in priority order.
func (r Request) Sort() []SortField { return r.sort }

// PageSize returns the page size; 0 means all.
func (r Request) PageSize() int { return r.pageSize }

// ContinuationToken returns the inbound token.
func (r Request) ContinuationToken() string { return r.token }

// Fields returns the projection.
func (r Request) Fields() []string { return r.opts.Fields }

// Count reports whether a total count was requested.
func (r Request) Count() bool { return r.opts.Count }

// Facets returns the faceted fields.
func (r Request) Facets() []string { return r.opts.Facets }

// CompileKey is a canonical encoding of everything that affects the
// compiled query: type, parameters, sort and facets. Paging, projection
// and count are not part of it.
func (r Request) CompileKey() (string, error) {
	params, err := filter.EncodeList(r.params)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(r.entityType)
	b.WriteByte(0)
	b.Write(params)
	for _, s := range r.sort {
		b.WriteByte(0)
		b.WriteString(s.field)
		b.WriteByte(' ')
		b.WriteString(string(s.order))
	}
	for _, f := range r.opts.Facets {
		b.WriteString("\x00facet ")
		b.WriteString(f)
	}
	return b.String(), nil
}

type wireSort struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"`
}

type wireRequest struct {
	Type              string          `json:"type"`
	SearchParameters  json.RawMessage `json:"searchParameters,omitempty"`
	Sort              []wireSort      `json:"sort,omitempty"`
	PageSize          *int            `json:"pageSize,omitempty"`
	ContinuationToken *string         `json:"continuationToken,omitempty"`
	Fields            []string        `json:"fields,omitempty"`
	Count             *bool           `json:"count,omitempty"`
	Facets            []string        `json:"facets,omitempty"`
}

// Decode parses the JSON request body.
func Decode(data []byte, maxPageSize int) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	var params []filter.Parameter
	if raw := bytes.TrimSpace(w.SearchParameters); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var err error
		params, err = filter.DecodeList(raw)
		if err != nil {
			return Request{}, err
		}
	}

	sort := make([]SortField, 0, len(w.Sort))
	for i, s := range w.Sort {
		order, err := ParseOrder(s.Order)
		if err != nil {
			return Request{}, fmt.Errorf("sort[%d]: %w", i, err)
		}
		sf, err := NewSortField(s.Field, order)
		if err != nil {
			return Request{}, fmt.Errorf("sort[%d]: %w", i, err)
		}
		sort = append(sort, sf)
	}

	pageSize := 0
	if w.PageSize != nil {
		if *w.PageSize <= 0 {
			return Request{}, fmt.Errorf("%w: pageSize must be positive", domain.ErrInvalidRequest)
		}
		pageSize = *w.PageSize
	}
	var token string
	if w.ContinuationToken != nil {
		token = *w.ContinuationToken
	}
	opts := Options{Fields: w.Fields, Facets: w.Facets, Count: w.Count != nil && *w.Count}

	return New(w.Type, params, sort, pageSize, token, opts, maxPageSize)
}

// MarshalJSON renders the request in the same form Decode accepts.
func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{Type: r.entityType, Fields: r.opts.Fields, Facets: r.opts.Facets}
	if len(r.params) > 0 {
		raw, err := filter.EncodeList(r.params)
		if err != nil {
			return nil, err
		}
		w.SearchParameters = raw
	}
	for _, s := range r.sort {
		w.Sort = append(w.Sort, wireSort{Field: s.field, Order: string(s.order)})
	}
	if r.pageSize > 0 {
		ps := r.pageSize
		w.PageSize = &ps
	}
	if r.token != "" {
		tok := r.token
		w.ContinuationToken = &tok
	}
	if r.opts.Count {
		c := true
		w.Count = &c
	}
	out, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return out, nil
}
