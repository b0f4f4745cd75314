package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/entidex/internal/domain"
	dombatch "github.com/kailas-cloud/entidex/internal/domain/batch"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
	"github.com/kailas-cloud/entidex/internal/observe"
)

// --- Mocks ---

type mockWriter struct {
	mu      sync.Mutex
	docs    map[string]*jsondoc.Object
	failFn  func(doc *jsondoc.Object) error
	calls   atomic.Int32
	onWrite func()
}

func newMockWriter() *mockWriter {
	return &mockWriter{docs: make(map[string]*jsondoc.Object)}
}

func (m *mockWriter) Create(_ context.Context, _ string, doc *jsondoc.Object) error {
	m.calls.Add(1)
	if m.onWrite != nil {
		m.onWrite()
	}
	if m.failFn != nil {
		if err := m.failFn(doc); err != nil {
			return err
		}
	}
	v, _ := doc.Get("id")
	id, _ := v.AsString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc
	return nil
}

type mockSchemas struct {
	s   schema.Schema
	err error
}

func (m mockSchemas) Get(string) (schema.Schema, error) { return m.s, m.err }

type bulkRecorder struct {
	observe.Nop
	mu    sync.Mutex
	items []observe.BulkItemEvent
	done  []observe.BulkEvent
}

func (r *bulkRecorder) BulkItem(_ context.Context, e observe.BulkItemEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, e)
}

func (r *bulkRecorder) BulkDone(_ context.Context, e observe.BulkEvent) {
	r.done = append(r.done, e)
}

func projectSchema(t *testing.T) schema.Schema {
	t.Helper()
	name, err := field.New("name", field.String, true, "")
	if err != nil {
		t.Fatal(err)
	}
	s, err := schema.New("project", []field.Field{name}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func entities(t *testing.T, raws ...string) []*jsondoc.Object {
	t.Helper()
	out := make([]*jsondoc.Object, len(raws))
	for i, raw := range raws {
		obj, err := jsondoc.ParseObject([]byte(raw))
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		out[i] = obj
	}
	return out
}

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("gen-%d", n.Add(1)) }
}

func newTestService(t *testing.T) (*Service, *mockWriter, *mockWriter, *bulkRecorder) {
	t.Helper()
	ents, idx := newMockWriter(), newMockWriter()
	rec := &bulkRecorder{}
	svc := New(ents, idx, mockSchemas{s: projectSchema(t)}).
		WithObserver(rec).
		WithIDGenerator(sequentialIDs()).
		WithConcurrency(4)
	return svc, ents, idx, rec
}

// --- Create ---

func TestCreate_WritesEntityAndIndex(t *testing.T) {
	svc, ents, idx, rec := newTestService(t)
	in := entities(t, `{"id":"p1","name":"Acme Corp"}`)

	sum, err := svc.Create(context.Background(), "project", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Created != 1 {
		t.Fatalf("Created = %d", sum.Created)
	}
	r := sum.Results[0]
	if r.ID() != "p1" || r.IndexID() == "" || r.IndexID() == "p1" {
		t.Errorf("ids = %q/%q", r.ID(), r.IndexID())
	}

	doc, ok := idx.docs[r.IndexID()]
	if !ok {
		t.Fatalf("index document %s not written", r.IndexID())
	}
	raw, _ := doc.MarshalJSON()
	want := `{"entityRefId":"p1","index":{"name":"Acme Corp","name_ft":["acme","corp"]},"type":"index","id":"` +
		r.IndexID() + `","entityType":"project"}`
	if string(raw) != want {
		t.Errorf("index document:\n got %s\nwant %s", raw, want)
	}
	if _, ok := ents.docs["p1"]; !ok {
		t.Error("entity not written")
	}
	if len(rec.items) != 1 || len(rec.done) != 1 || rec.done[0].Created != 1 {
		t.Errorf("events: items=%d done=%+v", len(rec.items), rec.done)
	}
}

func TestCreate_AssignsMissingIDs(t *testing.T) {
	svc, ents, _, _ := newTestService(t)
	in := entities(t, `{"name":"a"}`, `{"id":null,"name":"b"}`)

	sum, err := svc.Create(context.Background(), "project", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Created != 2 {
		t.Fatalf("Created = %d", sum.Created)
	}
	seen := map[string]bool{}
	for _, r := range sum.Results {
		if r.ID() == "" || r.ID() == r.IndexID() {
			t.Errorf("bad ids %q/%q", r.ID(), r.IndexID())
		}
		seen[r.ID()] = true
		if _, ok := ents.docs[r.ID()]; !ok {
			t.Errorf("entity %s not stored under its assigned id", r.ID())
		}
	}
	if len(seen) != 2 {
		t.Error("assigned ids must be distinct")
	}
	if _, has := in[0].Get("id"); has {
		t.Error("input entity must not be mutated")
	}
}

func TestCreate_CountsEntityWritesOnly(t *testing.T) {
	svc, _, idx, _ := newTestService(t)
	var n atomic.Int32
	idx.failFn = func(*jsondoc.Object) error {
		if n.Add(1)%2 == 0 {
			return errors.New("index unavailable")
		}
		return nil
	}
	in := entities(t, `{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`, `{"id":"d"}`)

	sum, err := svc.Create(context.Background(), "project", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Created != 4 {
		t.Errorf("Created = %d, want 4 despite index failures", sum.Created)
	}
	failed := 0
	for _, r := range sum.Results {
		if r.IndexStatus() == dombatch.StatusError {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("index failures reported = %d, want 2", failed)
	}
}

func TestCreate_EntityFailureNotCounted(t *testing.T) {
	svc, ents, _, _ := newTestService(t)
	ents.failFn = func(doc *jsondoc.Object) error {
		if v, _ := doc.Get("id"); v.Text() == "b" {
			return fmt.Errorf("create: %w", domain.ErrAlreadyExists)
		}
		return nil
	}

	sum, err := svc.Create(context.Background(), "project", entities(t, `{"id":"a"}`, `{"id":"b"}`))
	if err != nil {
		t.Fatalf("a partial failure is not an error: %v", err)
	}
	if sum.Created != 1 {
		t.Errorf("Created = %d", sum.Created)
	}
	if !errors.Is(sum.Results[1].EntityErr(), domain.ErrAlreadyExists) {
		t.Errorf("entity error = %v", sum.Results[1].EntityErr())
	}
}

func TestCreate_RejectsInvalidID(t *testing.T) {
	svc, ents, idx, _ := newTestService(t)
	sum, err := svc.Create(context.Background(), "project", entities(t, `{"id":42}`, `{"id":""}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Created != 0 {
		t.Errorf("Created = %d", sum.Created)
	}
	for _, r := range sum.Results {
		if !errors.Is(r.EntityErr(), domain.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", r.EntityErr())
		}
	}
	if ents.calls.Load() != 0 || idx.calls.Load() != 0 {
		t.Error("no writes expected for rejected items")
	}
}

func TestCreate_BatchTooLarge(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	svc.WithMaxBatchSize(1)
	_, err := svc.Create(context.Background(), "project", entities(t, `{"id":"a"}`, `{"id":"b"}`))
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreate_UnknownKind(t *testing.T) {
	ents, idx := newMockWriter(), newMockWriter()
	svc := New(ents, idx, mockSchemas{err: domain.ErrUnknownEntityType})
	_, err := svc.Create(context.Background(), "nope", entities(t, `{"id":"a"}`))
	if !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Fatalf("expected ErrUnknownEntityType, got %v", err)
	}
}

func TestCreate_CancelledBeforeStart(t *testing.T) {
	svc, ents, idx, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := svc.Create(ctx, "project", entities(t, `{"id":"a"}`, `{"id":"b"}`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ents.calls.Load() != 0 || idx.calls.Load() != 0 {
		t.Error("no writes may be issued after cancellation")
	}
	for _, r := range sum.Results {
		if r.EntityStatus() != dombatch.StatusSkipped {
			t.Errorf("status = %s", r.EntityStatus())
		}
	}
}

func TestCreate_CancelledMidway(t *testing.T) {
	ents, idx := newMockWriter(), newMockWriter()
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	ents.onWrite = func() { once.Do(cancel) }
	svc := New(ents, idx, mockSchemas{s: projectSchema(t)}).WithConcurrency(1)

	in := entities(t, `{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`, `{"id":"d"}`)
	sum, err := svc.Create(ctx, "project", in)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a single context.Canceled, got %v", err)
	}
	if got := ents.calls.Load(); got != 1 {
		t.Errorf("entity writes issued = %d, want 1", got)
	}
	if sum.Created != 1 {
		t.Errorf("Created = %d", sum.Created)
	}
}
