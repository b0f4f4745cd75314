package db

import "strings"

// IndexBuilder is a fluent builder for index definitions.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// On sets the container the index covers.
func (b *IndexBuilder) On(container string) *IndexBuilder {
	b.def.Container = container
	return b
}

// ForKind restricts the index to one item kind.
func (b *IndexBuilder) ForKind(kind string) *IndexBuilder {
	b.def.Kind = kind
	return b
}

// Numeric adds a sortable NUMERIC field.
func (b *IndexBuilder) Numeric(path string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Path:     path,
		Type:     IndexFieldNumeric,
		Sortable: true,
	})
	return b
}

// Tag adds a sortable TAG field.
func (b *IndexBuilder) Tag(path string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Path:     path,
		Type:     IndexFieldTag,
		Sortable: true,
	})
	return b
}

// TagWithOpts adds a TAG field with custom separator and case sensitivity.
func (b *IndexBuilder) TagWithOpts(path, separator string, caseSensitive bool) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Path:             path,
		Type:             IndexFieldTag,
		TagSeparator:     separator,
		TagCaseSensitive: caseSensitive,
	})
	return b
}

// TagArray adds a TAG field over a list of values.
func (b *IndexBuilder) TagArray(path string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Path:  path,
		Type:  IndexFieldTag,
		Array: true,
	})
	return b
}

// Text adds a TEXT field.
func (b *IndexBuilder) Text(path string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Path: path,
		Type: IndexFieldText,
	})
	return b
}

// Alias renames the most recently added field.
func (b *IndexBuilder) Alias(alias string) *IndexBuilder {
	if n := len(b.def.Fields); n > 0 {
		b.def.Fields[n-1].Alias = alias
	}
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// String returns a debug representation of the definition.
func (idx *IndexDefinition) String() string {
	parts := []string{"INDEX", idx.Name, "ON", idx.Container}
	if idx.Kind != "" {
		parts = append(parts, "KIND", idx.Kind)
	}
	parts = append(parts, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Path)
		if f.Alias != "" {
			parts = append(parts, "AS", f.Alias)
		}
		parts = append(parts, f.Type.String())
		if f.Array {
			parts = append(parts, "ARRAY")
		}
		if f.Sortable {
			parts = append(parts, "SORTABLE")
		}
	}
	return strings.Join(parts, " ")
}
