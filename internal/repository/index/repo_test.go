package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/entidex/internal/db"
	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
	"github.com/kailas-cloud/entidex/internal/query"
)

func projectSchema(t *testing.T) schema.Schema {
	t.Helper()
	name, err := field.New("name", field.String, true, "")
	if err != nil {
		t.Fatal(err)
	}
	status, err := field.New("status", field.Enum, false, "")
	if err != nil {
		t.Fatal(err)
	}
	budget, err := field.New("budget", field.Number, false, "")
	if err != nil {
		t.Fatal(err)
	}
	due, err := field.New("dueDate", field.Date, false, "")
	if err != nil {
		t.Fatal(err)
	}
	s, err := schema.New("project", []field.Field{name, status, budget, due}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// --- Create ---

func TestCreate(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc, err := jsondoc.ParseObject([]byte(`{"entityRefId":"p1","index":{"name":"Acme"},"type":"index","id":"ix-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	ms.createFn = func(_ context.Context, container string, item db.Item) error {
		if container != "index" {
			t.Errorf("container = %q", container)
		}
		if item.ID != "ix-1" || item.PartitionKey != "p1" || item.Kind != "project" {
			t.Errorf("unexpected item: %+v", item)
		}
		return nil
	}
	if err := repo.Create(context.Background(), "project", doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_MissingRef(t *testing.T) {
	repo, _ := newTestRepo(t)
	doc, _ := jsondoc.ParseObject([]byte(`{"id":"ix-1","type":"index"}`))
	err := repo.Create(context.Background(), "project", doc)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// --- Refs ---

func TestRefs(t *testing.T) {
	repo, ms := newTestRepo(t)
	compiled := query.Compiled{Predicate: "p", OrderBy: "o"}
	ms.queryPageFn = func(_ context.Context, q *db.PageQuery) (*db.Page, error) {
		if len(q.Select) != 1 || q.Select[0] != query.RefField {
			t.Errorf("phase 1 must project only the entity ref, got %v", q.Select)
		}
		if q.Query.Predicate != "p" || q.Token != "in" || q.MaxItems != 3 || q.Kind != "project" {
			t.Errorf("unexpected query: %+v", q)
		}
		return &db.Page{
			Items: [][]byte{
				[]byte(`{"entityRefId":"c"}`),
				[]byte(`{"entityRefId":null}`),
				[]byte(`{"entityRefId":"a"}`),
			},
			ContinuationToken: "out",
		}, nil
	}

	refs, next, err := repo.Refs(context.Background(), "project", compiled, "in", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 || refs[0] != "c" || refs[1] != "a" {
		t.Errorf("refs = %v", refs)
	}
	if next != "out" {
		t.Errorf("token must pass through verbatim, got %q", next)
	}
}

func TestRefs_Unsupported(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.queryPageFn = func(_ context.Context, _ *db.PageQuery) (*db.Page, error) {
		return nil, &db.Error{Op: db.OpQuery, Err: db.ErrUnsupported}
	}
	_, _, err := repo.Refs(context.Background(), "project", query.Compiled{}, "", 0)
	if !errors.Is(err, domain.ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
}

// --- Count / Facet ---

func TestCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.countFn = func(_ context.Context, q *db.CountQuery) (int64, error) {
		if q.Container != "index" || q.Kind != "project" {
			t.Errorf("unexpected target %s/%s", q.Container, q.Kind)
		}
		return 42, nil
	}
	n, err := repo.Count(context.Background(), "project", query.Compiled{})
	if err != nil || n != 42 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestFacet(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.facetsFn = func(_ context.Context, q *db.FacetQuery) ([]db.FacetBucket, error) {
		if q.Path != "index.status" {
			t.Errorf("path = %q", q.Path)
		}
		return []db.FacetBucket{{Value: "Draft", Count: 1}, {Value: "Active", Count: 3}}, nil
	}
	f, err := repo.Facet(context.Background(), "project", query.Compiled{},
		query.FacetRef{Name: "status", Path: "index.status"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Field() != "status" {
		t.Errorf("field = %q", f.Field())
	}
	if b := f.Buckets(); len(b) != 2 || b[0].Value != "Active" || b[0].Count != 3 {
		t.Errorf("buckets = %+v", b)
	}
}

func TestFacet_StoreUnavailable(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.facetsFn = func(_ context.Context, _ *db.FacetQuery) ([]db.FacetBucket, error) {
		return nil, &db.Error{Op: db.OpFacets, Err: errors.New("LOADING"), Transient: true}
	}
	_, err := repo.Facet(context.Background(), "project", query.Compiled{}, query.FacetRef{Name: "s", Path: "index.s"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// --- Definition ---

func TestDefinition(t *testing.T) {
	repo, _ := newTestRepo(t)
	def, err := repo.Definition(projectSchema(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "INDEX index-project ON index KIND project SCHEMA " +
		"type TAG SORTABLE entityType TAG SORTABLE entityRefId TAG SORTABLE " +
		"index.name TAG SORTABLE index.name_ft TAG ARRAY " +
		"index.status TAG SORTABLE index.budget NUMERIC SORTABLE index.dueDate TAG SORTABLE"
	if def.String() != want {
		t.Errorf("definition:\n got %s\nwant %s", def, want)
	}
}

func TestDefinition_OpenSchema(t *testing.T) {
	repo, _ := newTestRepo(t)
	open, err := schema.New("note", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	def, err := repo.Definition(open)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Fields) != 3 {
		t.Errorf("expected only the fixed fields, got %d", len(def.Fields))
	}
}

func TestEnsureIndex(t *testing.T) {
	repo, ms := newTestRepo(t)
	calls := 0
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		calls++
		if calls > 1 {
			return db.ErrIndexExists
		}
		return nil
	}
	s := projectSchema(t)

	created, err := repo.EnsureIndex(context.Background(), s)
	if err != nil || !created {
		t.Fatalf("first: created=%v err=%v", created, err)
	}
	created, err = repo.EnsureIndex(context.Background(), s)
	if err != nil || created {
		t.Fatalf("second: created=%v err=%v", created, err)
	}
}
