package entidex

import (
	"encoding/json"
	"fmt"

	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
)

// Page is one page of entities.
type Page struct {
	// Items are the entities in result order, each a JSON object with its
	// original key order.
	Items []json.RawMessage
	// ContinuationToken fetches the next page. Empty on the last page.
	ContinuationToken string
	// TotalCount is set when the search asked for a count.
	TotalCount *int64
	Facets     []Facet
}

// HasMore reports whether another page follows.
func (p Page) HasMore() bool { return p.ContinuationToken != "" }

// Facet holds the per-value counts of one field.
type Facet struct {
	Field   string
	Buckets []Bucket
}

// Bucket is one facet value and the number of matches carrying it.
type Bucket struct {
	Value string
	Count int64
}

// ItemStatus is the outcome of one side of a bulk write.
type ItemStatus string

// Item statuses.
const (
	StatusOK      ItemStatus = ItemStatus(dombatch.StatusOK)
	StatusError   ItemStatus = ItemStatus(dombatch.StatusError)
	StatusSkipped ItemStatus = ItemStatus(dombatch.StatusSkipped)
)

// ItemResult reports the entity and index writes of one bulk item.
type ItemResult struct {
	ID           string
	IndexID      string
	EntityStatus ItemStatus
	EntityErr    error
	IndexStatus  ItemStatus
	IndexErr     error
}

// BulkResult is the outcome of a bulk create. Created counts the stored
// entities; index failures do not reduce it.
type BulkResult struct {
	Created int
	Items   []ItemResult
}

// IndexStatus reports what Init did for one kind.
type IndexStatus struct {
	Kind           string
	ListingCreated bool
	SearchCreated  bool
}

func toPage(p result.Page[*jsondoc.Object]) (Page, error) {
	out := Page{
		Items:             make([]json.RawMessage, 0, p.Count()),
		ContinuationToken: p.ContinuationToken(),
	}
	for _, e := range p.Items() {
		raw, err := e.MarshalJSON()
		if err != nil {
			return Page{}, fmt.Errorf("encode entity: %w", err)
		}
		out.Items = append(out.Items, raw)
	}
	if n, ok := p.TotalCount(); ok {
		out.TotalCount = &n
	}
	for _, f := range p.Facets() {
		ff := Facet{Field: f.Field(), Buckets: make([]Bucket, 0, len(f.Buckets()))}
		for _, b := range f.Buckets() {
			ff.Buckets = append(ff.Buckets, Bucket{Value: b.Value, Count: b.Count})
		}
		out.Facets = append(out.Facets, ff)
	}
	return out, nil
}

func toBulkResult(s dombatch.Summary) BulkResult {
	out := BulkResult{Created: s.Created, Items: make([]ItemResult, len(s.Results))}
	for i, r := range s.Results {
		out.Items[i] = ItemResult{
			ID:           r.ID(),
			IndexID:      r.IndexID(),
			EntityStatus: ItemStatus(r.EntityStatus()),
			EntityErr:    r.EntityErr(),
			IndexStatus:  ItemStatus(r.IndexStatus()),
			IndexErr:     r.IndexErr(),
		}
	}
	return out
}

func parseEntity(raw []byte) (*jsondoc.Object, error) {
	o, err := jsondoc.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return o, nil
}
