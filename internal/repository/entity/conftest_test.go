package entity

import (
	"context"
	"testing"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/db/sqlite"
	"github.com/kailas-cloud/entidex/internal/query"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createFn      func(ctx context.Context, container string, item db.Item) error
	batchGetFn    func(ctx context.Context, container string, ids []string, kind string) ([][]byte, error)
	queryPageFn   func(ctx context.Context, q *db.PageQuery) (*db.Page, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) Create(ctx context.Context, container string, item db.Item) error {
	if m.createFn != nil {
		return m.createFn(ctx, container, item)
	}
	return nil
}

func (m *mockStore) BatchGet(ctx context.Context, container string, ids []string, kind string) ([][]byte, error) {
	if m.batchGetFn != nil {
		return m.batchGetFn(ctx, container, ids, kind)
	}
	return nil, nil
}

func (m *mockStore) QueryPage(ctx context.Context, q *db.PageQuery) (*db.Page, error) {
	if m.queryPageFn != nil {
		return m.queryPageFn(ctx, q)
	}
	return &db.Page{}, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) Dialect() query.Dialect { return sqlite.Dialect{} }

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "projects"), ms
}
