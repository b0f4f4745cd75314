package result

import "sort"

// Page is one page of results. An empty token means there are no more
// pages; the token itself is opaque and passed through untouched.
type Page[T any] struct {
	items      []T
	token      string
	totalCount *int64
	facets     []Facet
}

// NewPage creates a page. A nil items slice becomes empty.
func NewPage[T any](items []T, token string) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{items: items, token: token}
}

// Empty returns a final page with no items.
func Empty[T any]() Page[T] { return NewPage[T](nil, "") }

// WithTotalCount returns a copy carrying the total match count.
func (p Page[T]) WithTotalCount(n int64) Page[T] {
	p.totalCount = &n
	return p
}

// WithFacets returns a copy carrying facet counts.
func (p Page[T]) WithFacets(f []Facet) Page[T] {
	p.facets = f
	return p
}

// Items returns the page items in order.
func (p Page[T]) Items() []T { return p.items }

// ContinuationToken returns the token for the next page, or "".
func (p Page[T]) ContinuationToken() string { return p.token }

// HasMore reports whether a further page exists.
func (p Page[T]) HasMore() bool { return p.token != "" }

// Count returns the number of items on this page.
func (p Page[T]) Count() int { return len(p.items) }

// TotalCount returns the total number of matches when it was requested.
func (p Page[T]) TotalCount() (int64, bool) {
	if p.totalCount == nil {
		return 0, false
	}
	return *p.totalCount, true
}

// Facets returns the facet counts, if requested.
func (p Page[T]) Facets() []Facet { return p.facets }

// Bucket is one distinct facet value and its count.
type Bucket struct {
	Value string
	Count int64
}

// Facet holds value counts for one field.
type Facet struct {
	field   string
	buckets []Bucket
}

// NewFacet creates a facet, ordering buckets by count descending and then
// by value.
func NewFacet(field string, buckets []Bucket) Facet {
	bs := append([]Bucket(nil), buckets...)
	sort.SliceStable(bs, func(i, j int) bool {
		if bs[i].Count != bs[j].Count {
			return bs[i].Count > bs[j].Count
		}
		return bs[i].Value < bs[j].Value
	})
	return Facet{field: field, buckets: bs}
}

// Field returns the faceted field.
func (f Facet) Field() string { return f.field }

// Buckets returns the value counts.
func (f Facet) Buckets() []Bucket { return f.buckets }

// Counts returns the buckets as a map.
func (f Facet) Counts() map[string]int64 {
	out := make(map[string]int64, len(f.buckets))
	for _, b := range f.buckets {
		out[b.Value] = b.Count
	}
	return out
}
