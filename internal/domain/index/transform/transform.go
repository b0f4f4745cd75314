// Package transform builds index documents from entities.
//
// A pipeline is an ordered list of rules. Each rule names an operation
// (shift, default, fulltext) and carries a JSON spec. Operations are pure:
// they return a new document and never modify the one they were given.
package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
)

// Operation names.
const (
	OpShift    = "shift"
	OpDefault  = "default"
	OpFulltext = "fulltext"
)

// ErrInvalidRule is returned for malformed rules.
var ErrInvalidRule = errors.New("invalid transform rule")

// Rule is one serializable pipeline step.
type Rule struct {
	Operation string        `json:"operation"`
	Spec      jsondoc.Value `json:"spec"`
}

// Vars are substituted into ${name} placeholders by the default operation.
type Vars map[string]string

// Step is a compiled operation.
type Step interface {
	Apply(doc *jsondoc.Object, vars Vars) (*jsondoc.Object, error)
}

// Factory compiles a rule spec into a step.
type Factory func(spec jsondoc.Value) (Step, error)

var registry = map[string]Factory{
	OpShift:    newShift,
	OpDefault:  newDefault,
	OpFulltext: newFulltext,
	"ft":       newFulltext,
}

// Operations lists the registered operation names.
func Operations() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Pipeline is a compiled, reusable rule list. It is safe for concurrent use.
type Pipeline struct {
	rules []Rule
	steps []Step
}

// Compile validates rules and compiles each into a step.
func Compile(rules []Rule) (*Pipeline, error) {
	p := &Pipeline{rules: append([]Rule(nil), rules...)}
	for i, r := range rules {
		factory, ok := registry[strings.ToLower(r.Operation)]
		if !ok {
			return nil, fmt.Errorf("%w: rule %d: unknown operation %q", ErrInvalidRule, i, r.Operation)
		}
		step, err := factory(r.Spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.Operation, err)
		}
		p.steps = append(p.steps, step)
	}
	return p, nil
}

// Rules returns the source rules.
func (p *Pipeline) Rules() []Rule { return p.rules }

// Apply runs every step in order over a copy of entity.
func (p *Pipeline) Apply(entity *jsondoc.Object, vars Vars) (*jsondoc.Object, error) {
	doc := entity.Clone()
	if doc == nil {
		doc = jsondoc.NewObject()
	}
	for i, s := range p.steps {
		next, err := s.Apply(doc, vars)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, p.rules[i].Operation, err)
		}
		doc = next
	}
	return doc, nil
}

// Mapping relocates one entity field into the index document.
type Mapping struct {
	Source string
	Target string
}

// DefaultPrefix is the path indexed fields are nested under when no other
// prefix is configured.
const DefaultPrefix = "index."

// DefaultRules derives the standard pipeline: keep the entity id as
// entityRefId, move every mapped field under prefix, stamp the
// discriminators and tokenize the full-text fields. With no mappings every
// top-level entity field is copied under prefix at its own name. An empty
// prefix means DefaultPrefix.
func DefaultRules(prefix string, mappings []Mapping, fulltext []string) []Rule {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}

	shift := jsondoc.NewObject()
	shift.Set("id", jsondoc.String("entityRefId"))
	if len(mappings) == 0 {
		shift.Set("*", jsondoc.String(prefix+"&"))
	}
	for _, m := range mappings {
		src := jsondoc.ParsePath(m.Source)
		if len(src) == 0 {
			continue
		}
		cur := shift
		for _, seg := range src[:len(src)-1] {
			v, ok := cur.Get(seg)
			next, isObj := v.AsObject()
			if !ok || !isObj {
				next = jsondoc.NewObject()
				cur.Set(seg, jsondoc.Obj(next))
			}
			cur = next
		}
		cur.Set(src[len(src)-1], jsondoc.String(prefix+m.Target))
	}

	defaults := jsondoc.NewObject()
	defaults.Set("type", jsondoc.String("index"))
	defaults.Set("id", jsondoc.String("${id}"))
	defaults.Set("entityType", jsondoc.String("${kind}"))

	rules := []Rule{
		{Operation: OpShift, Spec: jsondoc.Obj(shift)},
		{Operation: OpDefault, Spec: jsondoc.Obj(defaults)},
	}
	if len(fulltext) > 0 {
		ft := jsondoc.NewObject()
		ft.Set("fields", jsondoc.Strings(fulltext))
		ft.Set("root", jsondoc.String(strings.TrimSuffix(prefix, ".")))
		rules = append(rules, Rule{Operation: OpFulltext, Spec: jsondoc.Obj(ft)})
	}
	return rules
}
