package entidex

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithSQLite(MemoryPath),
		WithKind("project",
			StringField("name").Fulltext(),
			EnumField("status"),
			NumberField("budget"),
			DateField("dueDate"),
		),
		WithKind("task", StringField("title"), EnumField("owner").At("assignee.id")),
		WithConcurrency(1),
		WithLogger(zaptest.NewLogger(t)),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func seedProjects(t *testing.T, c *Client) {
	t.Helper()
	items := []json.RawMessage{
		json.RawMessage(`{"id":"p1","name":"Apollo","status":"Active","budget":500,"dueDate":"2024-03-01"}`),
		json.RawMessage(`{"id":"p2","name":"Gemini","status":"Closed","budget":1500,"dueDate":"2024-06-01"}`),
		json.RawMessage(`{"id":"p3","name":"Mercury","status":"Active","budget":2500}`),
	}
	res, err := c.Entities("project").BulkCreate(context.Background(), items)
	if err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	if res.Created != 3 {
		t.Fatalf("Created = %d, want 3 (%+v)", res.Created, res.Items)
	}
}

func ids(t *testing.T, p Page) []string {
	t.Helper()
	out := make([]string, 0, len(p.Items))
	for _, raw := range p.Items {
		var e struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &e); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		out = append(out, e.ID)
	}
	return out
}

func TestNew_RequiresKind(t *testing.T) {
	_, err := New(context.Background(), WithSQLite(MemoryPath))
	if err == nil {
		t.Fatal("expected error without kinds")
	}
}

func TestNew_InvalidKind(t *testing.T) {
	_, err := New(context.Background(), WithSQLite(MemoryPath), WithKind("project", StringField("id")))
	if err == nil {
		t.Fatal("expected error for reserved field name")
	}
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), WithKind("project"), optionFunc(func(c *clientConfig) { c.driver = "mongo" }))
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestInit_IsIdempotent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first, err := c.Init(ctx)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	want := []IndexStatus{
		{Kind: "project", ListingCreated: true, SearchCreated: true},
		{Kind: "task", ListingCreated: true, SearchCreated: true},
	}
	if !reflect.DeepEqual(first, want) {
		t.Errorf("first Init = %+v, want %+v", first, want)
	}

	second, err := c.Init(ctx)
	if err != nil {
		t.Fatalf("second Init: %v", err)
	}
	for _, s := range second {
		if s.ListingCreated || s.SearchCreated {
			t.Errorf("second Init recreated %+v", s)
		}
	}
	if h := c.Health(ctx); h.Status != "ok" || len(h.MissingIndexes) != 0 {
		t.Errorf("Health = %+v, want ok", h)
	}
}

func TestHealth_ReportsMissingIndexes(t *testing.T) {
	c := newTestClient(t)
	h := c.Health(context.Background())
	if h.Status == "ok" {
		t.Fatalf("Health = %+v, want degraded before Init", h)
	}
	if len(h.MissingIndexes) != 4 {
		t.Errorf("MissingIndexes = %v, want 4", h.MissingIndexes)
	}
}

func TestEntities_CreateAssignsID(t *testing.T) {
	c := newTestClient(t)
	raw, err := c.Entities("project").Create(context.Background(), []byte(`{"name":"Vostok"}`))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	var e map[string]any
	if err := json.Unmarshal(raw, &e); err != nil {
		t.Fatal(err)
	}
	if id, _ := e["id"].(string); id == "" {
		t.Errorf("created entity has no id: %s", raw)
	}
}

func TestEntities_CreateRejectsInvalidJSON(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Entities("project").Create(context.Background(), []byte(`[1,2]`))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestEntities_UnknownKind(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Entities("ghost").List(context.Background(), "", 10)
	if !errors.Is(err, ErrUnknownEntityType) {
		t.Errorf("err = %v, want ErrUnknownEntityType", err)
	}
}

func TestEntities_BulkCreateReportsDuplicates(t *testing.T) {
	c := newTestClient(t)
	seedProjects(t, c)

	res, err := c.Entities("project").BulkCreate(context.Background(), []json.RawMessage{
		json.RawMessage(`{"id":"p1","name":"Again"}`),
		json.RawMessage(`{"id":"p4","name":"Soyuz"}`),
	})
	if err != nil {
		t.Fatalf("BulkCreate: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("Created = %d, want 1", res.Created)
	}
	if res.Items[0].EntityStatus != StatusError || !errors.Is(res.Items[0].EntityErr, ErrAlreadyExists) {
		t.Errorf("item 0 = %+v, want already exists", res.Items[0])
	}
	if res.Items[1].EntityStatus != StatusOK || res.Items[1].IndexStatus != StatusOK {
		t.Errorf("item 1 = %+v, want ok", res.Items[1])
	}
}

func TestEntities_ListPagesAndExport(t *testing.T) {
	c := newTestClient(t)
	seedProjects(t, c)
	ctx := context.Background()
	svc := c.Entities("project")

	var got []string
	token := ""
	for {
		p, err := svc.List(ctx, token, 2)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		got = append(got, ids(t, p)...)
		if !p.HasMore() {
			break
		}
		token = p.ContinuationToken
	}
	if want := []string{"p1", "p2", "p3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("listed %v, want %v", got, want)
	}

	var exported []string
	n, err := svc.Export(ctx, func(raw json.RawMessage) error {
		exported = append(exported, string(raw))
		return nil
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 || len(exported) != 3 {
		t.Fatalf("Export = %d, %d lines", n, len(exported))
	}
	if want := `{"id":"p1","name":"Apollo","status":"Active","budget":500,"dueDate":"2024-03-01"}`; exported[0] != want {
		t.Errorf("exported[0] = %s, want %s", exported[0], want)
	}
}

func TestEntities_ExportStopsOnCallbackError(t *testing.T) {
	c := newTestClient(t)
	seedProjects(t, c)
	stop := errors.New("stop")

	n, err := c.Entities("project").Export(context.Background(), func(json.RawMessage) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("err = %v, want stop", err)
	}
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
}

func TestSearch_Filters(t *testing.T) {
	c := newTestClient(t)
	seedProjects(t, c)
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(*SearchBuilder) *SearchBuilder
		want  []string
	}{
		{"enum in", func(b *SearchBuilder) *SearchBuilder { return b.Where("status").In("Active") }, []string{"p1", "p3"}},
		{"number gte", func(b *SearchBuilder) *SearchBuilder { return b.Where("budget").Gte(1500) }, []string{"p2", "p3"}},
		{"number between", func(b *SearchBuilder) *SearchBuilder { return b.Where("budget").Between(400, 1600) }, []string{"p1", "p2"}},
		{"string equals", func(b *SearchBuilder) *SearchBuilder { return b.Where("name").Equals("Gemini") }, []string{"p2"}},
		{"string contains", func(b *SearchBuilder) *SearchBuilder { return b.Where("name").Contains("MERCURY") }, []string{"p3"}},
		{
			"date before",
			func(b *SearchBuilder) *SearchBuilder {
				return b.Where("dueDate").Before(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
			},
			[]string{"p1"},
		},
		{"missing", func(b *SearchBuilder) *SearchBuilder { return b.Where("dueDate").Missing() }, []string{"p3"}},
		{
			"combined",
			func(b *SearchBuilder) *SearchBuilder { return b.Where("status").In("Active").Where("budget").Lt(1000) },
			[]string{"p1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.build(c.Search("project")).OrderBy("name", Asc).Do(ctx)
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if got := ids(t, p); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearch_OpenKind(t *testing.T) {
	c := newTestClient(t, WithKind("note"))
	ctx := context.Background()
	res, err := c.Entities("note").BulkCreate(ctx, []json.RawMessage{
		json.RawMessage(`{"id":"n1","name":"Acme","size":3,"tag":"red"}`),
		json.RawMessage(`{"id":"n2","name":"Globex","size":7,"tag":"red"}`),
		json.RawMessage(`{"id":"n3","name":"Initech","size":5,"tag":"blue"}`),
	})
	if err != nil || res.Created != 3 {
		t.Fatalf("BulkCreate: created=%d err=%v", res.Created, err)
	}

	p, err := c.Search("note").Where("name").Equals("Acme").Do(ctx)
	if err != nil {
		t.Fatalf("equals: %v", err)
	}
	if got := ids(t, p); !reflect.DeepEqual(got, []string{"n1"}) {
		t.Errorf("equals = %v, want [n1]", got)
	}

	p, err = c.Search("note").Where("size").Gte(5).OrderBy("size", Desc).Facet("tag").Do(ctx)
	if err != nil {
		t.Fatalf("gte: %v", err)
	}
	if got := ids(t, p); !reflect.DeepEqual(got, []string{"n2", "n3"}) {
		t.Errorf("gte = %v, want [n2 n3]", got)
	}
	if len(p.Facets) != 1 || len(p.Facets[0].Buckets) != 2 {
		t.Errorf("facets = %+v, want blue and red", p.Facets)
	}

	if _, err := c.Search("note").Where("name").Contains("acme").Do(ctx); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("contains on open field: err = %v, want ErrUnsupportedOperation", err)
	}
}

func TestSearch_PagingCountAndFacets(t *testing.T) {
	c := newTestClient(t)
	seedProjects(t, c)
	ctx := context.Background()

	first, err := c.Search("project").OrderBy("budget", Desc).PageSize(2).Count().Facet("status").Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := ids(t, first); !reflect.DeepEqual(got, []string{"p3", "p2"}) {
		t.Errorf("first page = %v", got)
	}
	if first.TotalCount == nil || *first.TotalCount != 3 {
		t.Errorf("TotalCount = %v, want 3", first.TotalCount)
	}
	wantFacets := []Facet{{Field: "status", Buckets: []Bucket{{Value: "Active", Count: 2}, {Value: "Closed", Count: 1}}}}
	if !reflect.DeepEqual(first.Facets, wantFacets) {
		t.Errorf("Facets = %+v, want %+v", first.Facets, wantFacets)
	}
	if !first.HasMore() {
		t.Fatal("expected a continuation token")
	}

	second, err := c.Search("project").OrderBy("budget", Desc).PageSize(2).After(first.ContinuationToken).Do(ctx)
	if err != nil {
		t.Fatalf("Do page 2: %v", err)
	}
	if got := ids(t, second); !reflect.DeepEqual(got, []string{"p1"}) || second.HasMore() {
		t.Errorf("second page = %v, more = %v", got, second.HasMore())
	}
}

func TestSearch_Errors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		b    *SearchBuilder
		want error
	}{
		{"unknown field", c.Search("project").Where("color").Equals("red"), ErrUnknownField},
		{"unknown kind", c.Search("ghost"), ErrUnknownEntityType},
		{"empty enum", c.Search("project").Where("status").In(), ErrInvalidRequest},
		{"inverted range", c.Search("project").Where("budget").Between(10, 1), ErrInvalidRequest},
		{"page too large", c.Search("project").PageSize(5000), ErrInvalidRequest},
		{"bad token", c.Search("project").After("!!"), ErrInvalidContinuationToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Do(ctx); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSearch_RemappedField(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	_, err := c.Entities("task").BulkCreate(ctx, []json.RawMessage{
		json.RawMessage(`{"id":"t1","title":"Launch","owner":"ann"}`),
		json.RawMessage(`{"id":"t2","title":"Land","owner":"bob"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := c.Search("task").Where("owner").In("bob").Do(ctx)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := ids(t, p); !reflect.DeepEqual(got, []string{"t2"}) {
		t.Errorf("ids = %v, want [t2]", got)
	}
}

func TestSearchJSON(t *testing.T) {
	c := newTestClient(t)
	seedProjects(t, c)

	p, err := c.SearchJSON(context.Background(), []byte(`{
		"type": "project",
		"searchParameters": [{"type":"number","field":"budget","operation":"GreaterThan","value":1000}],
		"sort": [{"field":"name"}],
		"fields": ["id","name"]
	}`))
	if err != nil {
		t.Fatalf("SearchJSON: %v", err)
	}
	want := []string{`{"id":"p2","name":"Gemini"}`, `{"id":"p3","name":"Mercury"}`}
	if len(p.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(p.Items), len(want))
	}
	for i, w := range want {
		if string(p.Items[i]) != w {
			t.Errorf("item %d = %s, want %s", i, p.Items[i], w)
		}
	}
}

func TestWithPrometheus_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))
	ctx := context.Background()

	if _, err := c.Entities("project").Create(ctx, []byte(`{"id":"p1","name":"Apollo"}`)); err != nil {
		t.Fatal(err)
	}
	_, _ = c.Entities("project").Create(ctx, []byte(`{"id":"p1","name":"Apollo"}`))

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("create", "ok")); got != 1 {
		t.Errorf("create ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("create", "error")); got != 1 {
		t.Errorf("create error = %v, want 1", got)
	}

	// A second client on the same registry reuses the collectors.
	c2 := newTestClient(t, WithPrometheus(reg))
	if c2.obs.metrics.operations != ops {
		t.Error("second client registered new collectors")
	}
}

func TestWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entidex.yaml")
	cfg := `
database:
  driver: sqlite
  path: ` + filepath.Join(dir, "test.db") + `
search:
  default_page_size: 2
entities:
  - name: project
    fields:
      name: string
      status: enum
`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), WithConfigFile(path), WithConcurrency(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	seedProjects(t, c)

	p, err := c.Entities("project").List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(p.Items) != 2 || !p.HasMore() {
		t.Errorf("List = %d items, more = %v; want the configured default of 2", len(p.Items), p.HasMore())
	}
}

func TestWithConfigFile_FieldPrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entidex.yaml")
	cfg := `
database:
  driver: sqlite
  path: ` + filepath.Join(dir, "test.db") + `
search:
  field_prefix: idx.
entities:
  - name: project
    fields:
      name:
        type: string
        fulltext: true
      status: enum
      budget: number
`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := New(context.Background(), WithConfigFile(path), WithConcurrency(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	seedProjects(t, c)
	ctx := context.Background()

	p, err := c.Search("project").Where("status").In("Active").OrderBy("budget", Desc).Do(ctx)
	if err != nil {
		t.Fatalf("enum: %v", err)
	}
	if got := ids(t, p); !reflect.DeepEqual(got, []string{"p3", "p1"}) {
		t.Errorf("enum = %v, want [p3 p1]", got)
	}

	p, err = c.Search("project").Where("name").Contains("gemini").Do(ctx)
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if got := ids(t, p); !reflect.DeepEqual(got, []string{"p2"}) {
		t.Errorf("contains = %v, want [p2]", got)
	}
}

func TestWithConfigFile_Missing(t *testing.T) {
	_, err := New(context.Background(), WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
