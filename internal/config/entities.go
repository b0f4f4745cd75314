package config

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/entidex/internal/domain/index/transform"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
)

// EntityConfig declares one entity kind.
type EntityConfig struct {
	Name   string                 `yaml:"name"`
	Fields map[string]FieldConfig `yaml:"fields"`
	// Remap moves a request field to a different index path.
	Remap map[string]string `yaml:"remap"`
	// IndexRules replaces the pipeline derived from Fields.
	IndexRules []RuleConfig `yaml:"index_rules"`

	order []string
}

// FieldConfig declares one searchable field. The short form is the bare
// type name: `status: enum`.
type FieldConfig struct {
	Type     string `yaml:"type"`
	Fulltext bool   `yaml:"fulltext"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (f *FieldConfig) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		f.Type = n.Value
		return nil
	}
	type plain FieldConfig
	return n.Decode((*plain)(f))
}

// UnmarshalYAML decodes an entity and remembers the declared field order.
func (e *EntityConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain EntityConfig
	if err := n.Decode((*plain)(e)); err != nil {
		return err
	}
	e.order = nil
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != "fields" || n.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		fields := n.Content[i+1]
		for j := 0; j+1 < len(fields.Content); j += 2 {
			e.order = append(e.order, fields.Content[j].Value)
		}
	}
	return nil
}

// RuleConfig is one index transform rule; Spec is any YAML tree.
type RuleConfig struct {
	Operation string    `yaml:"operation"`
	Spec      yaml.Node `yaml:"spec"`
}

// FieldNames returns the declared field names in file order.
func (e EntityConfig) FieldNames() []string {
	if len(e.order) == len(e.Fields) {
		return e.order
	}
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Schema builds the entity kind. Derived index rules nest fields under
// prefix, the search field prefix.
func (e EntityConfig) Schema(prefix string) (schema.Schema, error) {
	fields := make([]field.Field, 0, len(e.Fields))
	for _, name := range e.FieldNames() {
		fc := e.Fields[name]
		f, err := field.New(name, field.Type(strings.ToLower(fc.Type)), fc.Fulltext, e.Remap[name])
		if err != nil {
			return schema.Schema{}, fmt.Errorf("entity %s: %w", e.Name, err)
		}
		fields = append(fields, f)
	}
	for name := range e.Remap {
		if _, ok := e.Fields[name]; !ok {
			return schema.Schema{}, fmt.Errorf("entity %s: remap of undeclared field %q", e.Name, name)
		}
	}

	rules := make([]transform.Rule, 0, len(e.IndexRules))
	for i, rc := range e.IndexRules {
		spec, err := nodeValue(&rc.Spec)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("entity %s: index_rules[%d]: %w", e.Name, i, err)
		}
		rules = append(rules, transform.Rule{Operation: rc.Operation, Spec: spec})
	}

	s, err := schema.New(e.Name, fields, rules, schema.WithPrefix(prefix))
	if err != nil {
		return schema.Schema{}, fmt.Errorf("entity %s: %w", e.Name, err)
	}
	return s, nil
}

// Registry builds the registry of every configured kind.
func (c *Config) Registry() (*schema.Registry, error) {
	schemas := make([]schema.Schema, 0, len(c.Entities))
	for _, e := range c.Entities {
		s, err := e.Schema(c.Search.FieldPrefix)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	r, err := schema.NewRegistry(schemas...)
	if err != nil {
		return nil, fmt.Errorf("build entity registry: %w", err)
	}
	return r, nil
}

// nodeValue converts a YAML tree to a document value, keeping mapping order.
func nodeValue(n *yaml.Node) (jsondoc.Value, error) {
	switch n.Kind {
	case 0:
		return jsondoc.Null(), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return jsondoc.Null(), nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		o := jsondoc.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return jsondoc.Value{}, err
			}
			o.Set(n.Content[i].Value, v)
		}
		return jsondoc.Obj(o), nil
	case yaml.SequenceNode:
		arr := make([]jsondoc.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return jsondoc.Value{}, err
			}
			arr[i] = v
		}
		return jsondoc.Array(arr...), nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return jsondoc.Null(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return jsondoc.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return jsondoc.Bool(b), nil
		case "!!int", "!!float":
			return jsondoc.Number(json.Number(n.Value)), nil
		default:
			return jsondoc.String(n.Value), nil
		}
	}
	return jsondoc.Value{}, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}
