package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/index/transform"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
)

func projectFields(t *testing.T) []field.Field {
	t.Helper()
	name, err := field.New("name", field.String, true, "")
	if err != nil {
		t.Fatal(err)
	}
	status, err := field.New("status", field.Enum, false, "")
	if err != nil {
		t.Fatal(err)
	}
	budget, err := field.New("budget", field.Number, false, "cost")
	if err != nil {
		t.Fatal(err)
	}
	return []field.Field{name, status, budget}
}

func TestNew_DerivesRules(t *testing.T) {
	s, err := New("project", projectFields(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Rules()) != 3 {
		t.Fatalf("Rules() len = %d, want shift+default+fulltext", len(s.Rules()))
	}
	ops := []string{s.Rules()[0].Operation, s.Rules()[1].Operation, s.Rules()[2].Operation}
	if strings.Join(ops, ",") != "shift,default,fulltext" {
		t.Errorf("operations = %v", ops)
	}
}

func TestBuildIndex(t *testing.T) {
	s, err := New("project", projectFields(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	entity, _ := jsondoc.ParseObject([]byte(`{"id":"p1","name":"Acme Corp","status":"Active","budget":7}`))
	doc, err := s.BuildIndex(entity, "ix-1")
	if err != nil {
		t.Fatal(err)
	}
	out, _ := doc.MarshalJSON()
	want := `{"entityRefId":"p1","index":{"name":"Acme Corp","status":"Active","cost":7,"name_ft":["acme","corp"]},` +
		`"type":"index","id":"ix-1","entityType":"project"}`
	if string(out) != want {
		t.Errorf("BuildIndex =\n%s\nwant\n%s", out, want)
	}
}

func TestBuildIndex_Prefix(t *testing.T) {
	s, err := New("project", projectFields(t), nil, WithPrefix("idx."))
	if err != nil {
		t.Fatal(err)
	}
	entity, _ := jsondoc.ParseObject([]byte(`{"id":"p1","name":"Acme Corp","budget":7}`))
	doc, err := s.BuildIndex(entity, "ix-1")
	if err != nil {
		t.Fatal(err)
	}
	out, _ := doc.MarshalJSON()
	want := `{"entityRefId":"p1","idx":{"name":"Acme Corp","cost":7,"name_ft":["acme","corp"]},` +
		`"type":"index","id":"ix-1","entityType":"project"}`
	if string(out) != want {
		t.Errorf("BuildIndex =\n%s\nwant\n%s", out, want)
	}
}

func TestBuildIndex_OpenKind(t *testing.T) {
	s, err := New("note", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	entity, _ := jsondoc.ParseObject([]byte(`{"id":"n1","name":"Acme","size":3}`))
	doc, err := s.BuildIndex(entity, "ix-1")
	if err != nil {
		t.Fatal(err)
	}
	f, err := s.Field("name")
	if err != nil {
		t.Fatal(err)
	}
	v, ok := doc.Lookup(jsondoc.ParsePath(transform.DefaultPrefix + f.Path()))
	if got, _ := v.AsString(); !ok || got != "Acme" {
		t.Errorf("open field %q not indexed: %s", f.Path(), marshalDoc(doc))
	}
}

func marshalDoc(o *jsondoc.Object) string {
	b, _ := o.MarshalJSON()
	return string(b)
}

func TestNew_ExplicitRules(t *testing.T) {
	rules := []transform.Rule{{Operation: "default", Spec: jsondoc.Obj(nil)}}
	s, err := New("note", nil, rules)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Rules()) != 1 {
		t.Errorf("Rules() = %v", s.Rules())
	}
}

func TestNew_Invalid(t *testing.T) {
	dupA := field.Reconstruct("a", field.String, false, "x")
	dupB := field.Reconstruct("b", field.String, false, "x")
	tests := []struct {
		name   string
		kind   string
		fields []field.Field
		rules  []transform.Rule
	}{
		{"empty kind", "", nil, nil},
		{"bad kind", "pro ject", nil, nil},
		{"duplicate name", "p", []field.Field{dupA, dupA}, nil},
		{"shared path", "p", []field.Field{dupA, dupB}, nil},
		{"bad rule", "p", nil, []transform.Rule{{Operation: "nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.kind, tt.fields, tt.rules); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestField_Resolution(t *testing.T) {
	s, err := New("project", projectFields(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := s.Field("budget")
	if err != nil || f.Path() != "cost" {
		t.Errorf("Field(budget) = %+v, %v", f, err)
	}
	if _, err := s.Field("nope"); !errors.Is(err, domain.ErrUnknownField) {
		t.Errorf("err = %v, want ErrUnknownField", err)
	}

	open, err := New("note", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err = open.Field("anything")
	if err != nil || f.Path() != "anything" {
		t.Errorf("open Field = %+v, %v", f, err)
	}
}

func TestRegistry(t *testing.T) {
	a, _ := New("project", nil, nil)
	b, _ := New("task", nil, nil)
	r, err := NewRegistry(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(r.Kinds(), ",") != "project,task" {
		t.Errorf("Kinds() = %v", r.Kinds())
	}
	if _, err := r.Get("invoice"); !errors.Is(err, domain.ErrUnknownEntityType) {
		t.Errorf("err = %v, want ErrUnknownEntityType", err)
	}
	if _, err := NewRegistry(a, a); err == nil {
		t.Error("duplicate kinds accepted")
	}
}
