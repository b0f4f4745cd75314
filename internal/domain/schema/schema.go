// Package schema describes the searchable entity kinds.
package schema

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/entidex/internal/domain"
	"github.com/kailas-cloud/entidex/internal/domain/index/transform"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
)

var kindRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxFields is the maximum number of fields per kind.
const MaxFields = 64

// Schema is one entity kind: its discriminator, searchable fields and the
// pipeline that turns its entities into index documents.
type Schema struct {
	kind     string
	fields   []field.Field
	byName   map[string]field.Field
	pipeline *transform.Pipeline
}

// Option configures how New derives a kind's pipeline.
type Option func(*options)

type options struct {
	prefix string
}

// WithPrefix nests derived index fields under prefix instead of
// transform.DefaultPrefix. It must match the prefix searches compile with.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// New validates a kind. When rules is empty the pipeline is derived from
// the fields; a kind with neither copies every entity field into the index
// document so open searches find them.
func New(kind string, fields []field.Field, rules []transform.Rule, opts ...Option) (Schema, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if kind == "" {
		return Schema{}, fmt.Errorf("entity kind name is required")
	}
	if len(kind) > 64 {
		return Schema{}, fmt.Errorf("entity kind name too long (max 64)")
	}
	if !kindRegex.MatchString(kind) {
		return Schema{}, fmt.Errorf("entity kind name must be alphanumeric with underscores and hyphens")
	}
	if len(fields) > MaxFields {
		return Schema{}, fmt.Errorf("too many fields (max %d)", MaxFields)
	}

	byName := make(map[string]field.Field, len(fields))
	paths := make(map[string]string, len(fields))
	for _, f := range fields {
		if _, dup := byName[f.Name()]; dup {
			return Schema{}, fmt.Errorf("duplicate field name: %s", f.Name())
		}
		if other, dup := paths[f.Path()]; dup {
			return Schema{}, fmt.Errorf("fields %s and %s share index path %s", other, f.Name(), f.Path())
		}
		byName[f.Name()] = f
		paths[f.Path()] = f.Name()
	}

	if len(rules) == 0 {
		rules = DefaultRules(o.prefix, fields)
	}
	p, err := transform.Compile(rules)
	if err != nil {
		return Schema{}, fmt.Errorf("entity kind %s: %w", kind, err)
	}

	return Schema{
		kind:     kind,
		fields:   append([]field.Field(nil), fields...),
		byName:   byName,
		pipeline: p,
	}, nil
}

// DefaultRules derives the index pipeline for fields nested under prefix.
func DefaultRules(prefix string, fields []field.Field) []transform.Rule {
	mappings := make([]transform.Mapping, 0, len(fields))
	var fulltext []string
	for _, f := range fields {
		mappings = append(mappings, transform.Mapping{Source: f.Name(), Target: f.Path()})
		if f.Fulltext() {
			fulltext = append(fulltext, f.Path())
		}
	}
	return transform.DefaultRules(prefix, mappings, fulltext)
}

// Kind returns the entity discriminator.
func (s Schema) Kind() string { return s.kind }

// Fields returns the declared fields.
func (s Schema) Fields() []field.Field { return s.fields }

// IsOpen reports whether the kind declares no fields, in which case any
// field name is accepted and used as its own index path.
func (s Schema) IsOpen() bool { return len(s.fields) == 0 }

// Rules returns the index pipeline rules.
func (s Schema) Rules() []transform.Rule { return s.pipeline.Rules() }

// Field resolves a request field name. Open kinds resolve every name to an
// untyped field at the same path.
func (s Schema) Field(name string) (field.Field, error) {
	if f, ok := s.byName[name]; ok {
		return f, nil
	}
	if s.IsOpen() {
		return field.Reconstruct(name, "", false, name), nil
	}
	return field.Field{}, fmt.Errorf("%w: %q on %s", domain.ErrUnknownField, name, s.kind)
}

// BuildIndex runs the pipeline for entity, stamping indexID as the index
// document id.
func (s Schema) BuildIndex(entity *jsondoc.Object, indexID string) (*jsondoc.Object, error) {
	return s.pipeline.Apply(entity, transform.Vars{"id": indexID, "kind": s.kind})
}

// Registry holds the configured kinds by name.
type Registry struct {
	kinds map[string]Schema
	order []string
}

// NewRegistry indexes schemas by kind, rejecting duplicates.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{kinds: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := r.kinds[s.kind]; dup {
			return nil, fmt.Errorf("duplicate entity kind: %s", s.kind)
		}
		r.kinds[s.kind] = s
		r.order = append(r.order, s.kind)
	}
	return r, nil
}

// Get returns the schema for kind.
func (r *Registry) Get(kind string) (Schema, error) {
	s, ok := r.kinds[kind]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", domain.ErrUnknownEntityType, kind)
	}
	return s, nil
}

// Kinds lists the kind names in registration order.
func (r *Registry) Kinds() []string { return append([]string(nil), r.order...) }
