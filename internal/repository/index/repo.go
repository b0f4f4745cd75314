// Package index persists index documents and runs the phase-1 queries
// over them.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/index/transform"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
	"github.com/kailas-cloud/entidex/internal/query"
	"github.com/kailas-cloud/entidex/internal/repository/dberr"
)

// store is the consumer interface for index documents (ISP).
type store interface {
	Create(ctx context.Context, container string, item db.Item) error
	QueryPage(ctx context.Context, q *db.PageQuery) (*db.Page, error)
	Count(ctx context.Context, q *db.CountQuery) (int64, error)
	Facets(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo stores index documents of every kind in one container.
type Repo struct {
	store     store
	container string
	prefix    string
}

// New creates an index repository. prefix is the path the transform nests
// indexed fields under; empty means query.DefaultPrefix.
func New(s store, container, prefix string) *Repo {
	if prefix == "" {
		prefix = query.DefaultPrefix
	}
	return &Repo{store: s, container: container, prefix: prefix}
}

// Container returns the container index documents are stored in.
func (r *Repo) Container() string { return r.container }

// Create stores an index document. Its partition key is the referenced
// entity id.
func (r *Repo) Create(ctx context.Context, kind string, doc *jsondoc.Object) error {
	id, err := stringField(doc, "id")
	if err != nil {
		return err
	}
	ref, err := stringField(doc, query.RefField)
	if err != nil {
		return err
	}
	body, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal index document %s: %w", id, err)
	}
	item := db.Item{ID: id, Kind: kind, PartitionKey: ref, Body: body}
	if err := r.store.Create(ctx, r.container, item); err != nil {
		return fmt.Errorf("create index document for %s: %w", ref, dberr.Translate(err))
	}
	return nil
}

// Refs runs the phase-1 query: one page of entity ids in index order. The
// store token is passed through verbatim.
func (r *Repo) Refs(
	ctx context.Context, kind string, c query.Compiled, token string, pageSize int,
) ([]string, string, error) {
	page, err := r.store.QueryPage(ctx, &db.PageQuery{
		Container: r.container,
		Kind:      kind,
		Query:     c,
		Select:    []string{query.RefField},
		Token:     token,
		MaxItems:  pageSize,
	})
	if err != nil {
		return nil, "", fmt.Errorf("query %s index: %w", kind, dberr.Translate(err))
	}

	refs := make([]string, 0, len(page.Items))
	for _, raw := range page.Items {
		var row struct {
			Ref *string `json:"entityRefId"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, "", fmt.Errorf("decode index row: %w", err)
		}
		if row.Ref == nil || *row.Ref == "" {
			continue
		}
		refs = append(refs, *row.Ref)
	}
	return refs, page.ContinuationToken, nil
}

// Count returns the number of index documents matching c, ignoring paging.
func (r *Repo) Count(ctx context.Context, kind string, c query.Compiled) (int64, error) {
	n, err := r.store.Count(ctx, &db.CountQuery{Container: r.container, Kind: kind, Query: c})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, dberr.Translate(err))
	}
	return n, nil
}

// Facet counts the values of one facet over every document matching c.
func (r *Repo) Facet(ctx context.Context, kind string, c query.Compiled, f query.FacetRef) (result.Facet, error) {
	buckets, err := r.store.Facets(ctx, &db.FacetQuery{
		Container: r.container,
		Kind:      kind,
		Query:     c,
		Path:      f.Path,
	})
	if err != nil {
		return result.Facet{}, fmt.Errorf("facet %s: %w", f.Name, dberr.Translate(err))
	}
	out := make([]result.Bucket, len(buckets))
	for i, b := range buckets {
		out[i] = result.Bucket{Value: b.Value, Count: b.Count}
	}
	return result.NewFacet(f.Name, out), nil
}

// EnsureIndex creates the index definition for s. It reports false when
// the index already existed.
func (r *Repo) EnsureIndex(ctx context.Context, s schema.Schema) (bool, error) {
	def, err := r.Definition(s)
	if err != nil {
		return false, err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, dberr.Translate(err))
	}
	return true, nil
}

// Definition derives the secondary index over the index documents of s:
// the discriminators, the entity reference and every typed field, plus the
// token list of each full-text field.
func (r *Repo) Definition(s schema.Schema) (*db.IndexDefinition, error) {
	b := db.NewIndex(db.IndexName(r.container, s.Kind())).
		On(r.container).
		ForKind(s.Kind()).
		Tag(query.TypeField).
		Tag(query.EntityTypeField).
		Tag(query.RefField)

	for _, f := range s.Fields() {
		path := r.prefix + f.Path()
		switch f.FieldType() {
		case field.Number:
			b.Numeric(path)
		case field.String, field.Enum, field.Date:
			b.Tag(path)
		}
		if f.Fulltext() {
			b.TagArray(path + transform.FulltextSuffix)
		}
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("index definition for %s: %w", s.Kind(), err)
	}
	return def, nil
}

func stringField(doc *jsondoc.Object, key string) (string, error) {
	v, ok := doc.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: index document has no %s", domain.ErrInvalidRequest, key)
	}
	s, ok := v.AsString()
	if !ok || s == "" {
		return "", fmt.Errorf("%w: index document %s must be a non-empty string", domain.ErrInvalidRequest, key)
	}
	return s, nil
}
