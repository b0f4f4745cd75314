package index

import (
	"context"
	"testing"

	"github.com/kailas-cloud/entidex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createFn      func(ctx context.Context, container string, item db.Item) error
	queryPageFn   func(ctx context.Context, q *db.PageQuery) (*db.Page, error)
	countFn       func(ctx context.Context, q *db.CountQuery) (int64, error)
	facetsFn      func(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) Create(ctx context.Context, container string, item db.Item) error {
	if m.createFn != nil {
		return m.createFn(ctx, container, item)
	}
	return nil
}

func (m *mockStore) QueryPage(ctx context.Context, q *db.PageQuery) (*db.Page, error) {
	if m.queryPageFn != nil {
		return m.queryPageFn(ctx, q)
	}
	return &db.Page{}, nil
}

func (m *mockStore) Count(ctx context.Context, q *db.CountQuery) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, q)
	}
	return 0, nil
}

func (m *mockStore) Facets(ctx context.Context, q *db.FacetQuery) ([]db.FacetBucket, error) {
	if m.facetsFn != nil {
		return m.facetsFn(ctx, q)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "index", ""), ms
}
