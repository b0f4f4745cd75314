package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("index-project").
		On("index").
		ForKind("project").
		Tag("index.status").
		Numeric("index.budget").
		MustBuild()

	if err := idx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Name != "index-project" || idx.Container != "index" || idx.Kind != "project" {
		t.Errorf("def = %+v", idx)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name() != "index_status" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want index_status TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name() != "index_budget" || idx.Fields[1].Type != IndexFieldNumeric || !idx.Fields[1].Sortable {
		t.Errorf("field[1] = %+v, want sortable index_budget NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_TagOptions(t *testing.T) {
	idx := NewIndex("idx").
		On("c").
		TagWithOpts("tags", ";", true).
		TagArray("index.name_ft").
		MustBuild()

	f := idx.Fields[0]
	if f.TagSeparator != ";" || !f.TagCaseSensitive {
		t.Errorf("tag options = %+v", f)
	}
	if !idx.Fields[1].Array || idx.Fields[1].Sortable {
		t.Errorf("array field = %+v", idx.Fields[1])
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder func() (*IndexDefinition, error)
		wantErr string
	}{
		{
			name: "empty name",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("").On("c").Tag("x").Build()
			},
			wantErr: "index name is required",
		},
		{
			name: "no container",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").Tag("x").Build()
			},
			wantErr: "container is required",
		},
		{
			name: "no fields",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").On("c").Build()
			},
			wantErr: "at least one field",
		},
		{
			name: "invalid characters",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx with spaces").On("c").Tag("x").Build()
			},
			wantErr: "invalid characters",
		},
		{
			name: "bad path",
			builder: func() (*IndexDefinition, error) {
				return NewIndex("idx").On("c").Tag("index..x").Build()
			},
			wantErr: "dotted identifier",
		},
		{
			name: "numeric array",
			builder: func() (*IndexDefinition, error) {
				return (&IndexBuilder{def: IndexDefinition{
					Name: "idx", Container: "c",
					Fields: []IndexField{{Path: "n", Type: IndexFieldNumeric, Array: true}},
				}}).Build()
			},
			wantErr: "array fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx := NewIndex("my-idx").
		On("index").
		Tag("entityRefId").
		TagArray("index.name_ft").
		MustBuild()

	s := idx.String()
	want := "INDEX my-idx ON index SCHEMA entityRefId TAG SORTABLE index.name_ft TAG ARRAY"
	if s != want {
		t.Errorf("String() = %q, want %q", s, want)
	}
}

func TestIndexBuilder_Alias(t *testing.T) {
	idx := NewIndex("alias-idx").On("c").Tag("index.status").Alias("status").MustBuild()

	if idx.Fields[0].Name() != "status" {
		t.Errorf("Name() = %q, want status", idx.Fields[0].Name())
	}
}

func TestIndexBuilder_DuplicateFields(t *testing.T) {
	idx := &IndexDefinition{
		Name:      "dup-idx",
		Container: "c",
		Fields: []IndexField{
			{Path: "a.b", Type: IndexFieldTag},
			{Path: "a_b", Type: IndexFieldNumeric},
		},
	}

	if err := idx.Validate(); err == nil {
		t.Fatal("expected error for fields sharing an alias")
	}
}
