package entity

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/kailas-cloud/entidex/internal/domain"
	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/search/result"
)

// --- Mocks ---

type listCall struct {
	token    string
	pageSize int
}

type mockRepo struct {
	total int
	err   error
	calls []listCall
}

// List pages over total entities named e0..eN; tokens are start offsets.
func (m *mockRepo) List(_ context.Context, _, token string, pageSize int) (result.Page[*jsondoc.Object], error) {
	m.calls = append(m.calls, listCall{token: token, pageSize: pageSize})
	if m.err != nil {
		return result.Page[*jsondoc.Object]{}, m.err
	}
	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}
	end := m.total
	if pageSize > 0 && start+pageSize < m.total {
		end = start + pageSize
	}
	items := make([]*jsondoc.Object, 0, end-start)
	for i := start; i < end; i++ {
		o := jsondoc.NewObject()
		o.Set("id", jsondoc.String("e"+strconv.Itoa(i)))
		items = append(items, o)
	}
	next := ""
	if end < m.total {
		next = strconv.Itoa(end)
	}
	return result.NewPage(items, next), nil
}

type mockBulk struct {
	summary dombatch.Summary
	err     error
	items   []*jsondoc.Object
}

func (m *mockBulk) Create(_ context.Context, _ string, items []*jsondoc.Object) (dombatch.Summary, error) {
	m.items = items
	return m.summary, m.err
}

type mockSchemas struct {
	kinds []string
	err   error
}

func (m mockSchemas) Get(kind string) (schema.Schema, error) {
	if m.err != nil {
		return schema.Schema{}, m.err
	}
	return schema.New(kind, nil, nil)
}

func (m mockSchemas) Kinds() []string { return m.kinds }

type mockListing struct {
	existing map[string]bool
	err      error
}

func (m *mockListing) EnsureIndex(_ context.Context, kind string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.existing[kind] {
		return false, nil
	}
	return true, nil
}

type mockSearchIdx struct {
	kinds []string
}

func (m *mockSearchIdx) EnsureIndex(_ context.Context, s schema.Schema) (bool, error) {
	m.kinds = append(m.kinds, s.Kind())
	return true, nil
}

func newService(repo *mockRepo, bulk *mockBulk) *Service {
	return New(repo, bulk, mockSchemas{kinds: []string{"project"}}, &mockListing{}, &mockSearchIdx{})
}

func obj(t *testing.T, s string) *jsondoc.Object {
	t.Helper()
	o, err := jsondoc.ParseObject([]byte(s))
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return o
}

// --- Create ---

func TestCreate_ReturnsWrittenEntity(t *testing.T) {
	written := obj(t, `{"id":"p1","name":"Apollo"}`)
	bulk := &mockBulk{summary: dombatch.Summarize([]dombatch.Result{
		dombatch.NewResult(written, "p1", "idx1", nil, errors.New("index down")),
	})}
	svc := newService(&mockRepo{}, bulk)

	got, err := svc.Create(context.Background(), "project", obj(t, `{"name":"Apollo"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != written {
		t.Errorf("got %v, want the written entity", got)
	}
	if len(bulk.items) != 1 {
		t.Errorf("bulk got %d items, want 1", len(bulk.items))
	}
}

func TestCreate_EntityErrorSurfaces(t *testing.T) {
	bulk := &mockBulk{summary: dombatch.Summarize([]dombatch.Result{
		dombatch.NewResult(nil, "p1", "idx1", domain.ErrAlreadyExists, nil),
	})}
	svc := newService(&mockRepo{}, bulk)

	_, err := svc.Create(context.Background(), "project", obj(t, `{"id":"p1"}`))
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_BulkError(t *testing.T) {
	svc := newService(&mockRepo{}, &mockBulk{err: domain.ErrUnknownEntityType})
	_, err := svc.Create(context.Background(), "nope", obj(t, `{}`))
	if !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Errorf("expected ErrUnknownEntityType, got %v", err)
	}
}

func TestBulkCreate_Empty(t *testing.T) {
	svc := newService(&mockRepo{}, &mockBulk{})
	_, err := svc.BulkCreate(context.Background(), "project", nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

// --- List ---

func TestList_DefaultPageSize(t *testing.T) {
	repo := &mockRepo{total: 5}
	svc := newService(repo, &mockBulk{}).WithPagination(2, 10)

	page, err := svc.List(context.Background(), "project", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count() != 2 || !page.HasMore() {
		t.Errorf("got %d items hasMore=%v, want 2 and true", page.Count(), page.HasMore())
	}
	if repo.calls[0].pageSize != 2 {
		t.Errorf("pageSize = %d, want 2", repo.calls[0].pageSize)
	}
}

func TestList_NoDefaultMeansAll(t *testing.T) {
	repo := &mockRepo{total: 5}
	svc := newService(repo, &mockBulk{})

	page, err := svc.List(context.Background(), "project", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Count() != 5 || page.HasMore() {
		t.Errorf("got %d items hasMore=%v, want 5 and false", page.Count(), page.HasMore())
	}
}

func TestList_PageSizeLimits(t *testing.T) {
	svc := newService(&mockRepo{}, &mockBulk{}).WithPagination(2, 10)
	for _, size := range []int{-1, 11} {
		_, err := svc.List(context.Background(), "project", "", size)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("pageSize %d: expected ErrInvalidRequest, got %v", size, err)
		}
	}
}

func TestList_UnknownKind(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, &mockBulk{}, mockSchemas{err: domain.ErrUnknownEntityType}, &mockListing{}, &mockSearchIdx{})
	_, err := svc.List(context.Background(), "nope", "", 0)
	if !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Errorf("expected ErrUnknownEntityType, got %v", err)
	}
	if len(repo.calls) != 0 {
		t.Error("store must not be queried for an unknown kind")
	}
}

func TestList_RepoError(t *testing.T) {
	svc := newService(&mockRepo{err: domain.ErrInvalidContinuationToken}, &mockBulk{})
	_, err := svc.List(context.Background(), "project", "garbage", 0)
	if !errors.Is(err, domain.ErrInvalidContinuationToken) {
		t.Errorf("expected ErrInvalidContinuationToken, got %v", err)
	}
}

// --- Export ---

func TestExport_WalksAllPages(t *testing.T) {
	repo := &mockRepo{total: 250}
	svc := newService(repo, &mockBulk{})

	var ids []string
	n, err := svc.Export(context.Background(), "project", func(e *jsondoc.Object) error {
		v, _ := e.Get("id")
		ids = append(ids, v.Text())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 250 || len(ids) != 250 {
		t.Fatalf("exported %d (%d ids), want 250", n, len(ids))
	}
	if ids[0] != "e0" || ids[249] != "e249" {
		t.Errorf("order broken: first=%s last=%s", ids[0], ids[249])
	}
	if len(repo.calls) != 3 {
		t.Fatalf("list calls = %d, want 3", len(repo.calls))
	}
	for _, c := range repo.calls {
		if c.pageSize != ExportPageSize {
			t.Errorf("pageSize = %d, want %d", c.pageSize, ExportPageSize)
		}
	}
	if repo.calls[1].token != "100" || repo.calls[2].token != "200" {
		t.Errorf("tokens not threaded: %+v", repo.calls)
	}
}

func TestExport_CallbackErrorStops(t *testing.T) {
	svc := newService(&mockRepo{total: 10}, &mockBulk{})
	stop := errors.New("disk full")

	n, err := svc.Export(context.Background(), "project", func(e *jsondoc.Object) error {
		if v, _ := e.Get("id"); v.Text() == "e3" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestExport_Empty(t *testing.T) {
	svc := newService(&mockRepo{}, &mockBulk{})
	n, err := svc.Export(context.Background(), "project", func(*jsondoc.Object) error { return nil })
	if err != nil || n != 0 {
		t.Errorf("got n=%d err=%v, want 0 and nil", n, err)
	}
}

// --- Init ---

func TestInit_AllKinds(t *testing.T) {
	listing := &mockListing{existing: map[string]bool{"task": true}}
	searchIdx := &mockSearchIdx{}
	svc := New(&mockRepo{}, &mockBulk{}, mockSchemas{kinds: []string{"project", "task"}}, listing, searchIdx)

	got, err := svc.Init(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []IndexStatus{
		{Kind: "project", ListingCreated: true, SearchCreated: true},
		{Kind: "task", ListingCreated: false, SearchCreated: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d statuses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("status[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if len(searchIdx.kinds) != 2 {
		t.Errorf("search indexes ensured for %v", searchIdx.kinds)
	}
}

func TestInit_StoreError(t *testing.T) {
	svc := New(&mockRepo{}, &mockBulk{}, mockSchemas{kinds: []string{"project"}},
		&mockListing{err: domain.ErrStoreUnavailable}, &mockSearchIdx{})
	_, err := svc.Init(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
