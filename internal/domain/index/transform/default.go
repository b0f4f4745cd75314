package transform

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
)

// fill writes spec values wherever the document has no value (absent or
// null). Nested spec objects descend, creating objects as needed; a "*"
// key applies its spec to every existing child object. String values may
// carry ${name} placeholders.
type fill struct {
	spec *jsondoc.Object
}

func newDefault(spec jsondoc.Value) (Step, error) {
	obj, ok := spec.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: default spec must be an object", ErrInvalidRule)
	}
	if err := validateDefault(obj); err != nil {
		return nil, err
	}
	return &fill{spec: obj}, nil
}

func validateDefault(spec *jsondoc.Object) error {
	v, ok := spec.Get("*")
	if !ok {
		return nil
	}
	child, isObj := v.AsObject()
	if !isObj {
		return fmt.Errorf("%w: default \"*\" must map to an object", ErrInvalidRule)
	}
	return validateDefault(child)
}

func (f *fill) Apply(doc *jsondoc.Object, vars Vars) (*jsondoc.Object, error) {
	out := doc.Clone()
	if out == nil {
		out = jsondoc.NewObject()
	}
	applyDefaults(f.spec, out, vars)
	return out, nil
}

func applyDefaults(spec, target *jsondoc.Object, vars Vars) {
	for _, k := range spec.Keys() {
		sv, _ := spec.Get(k)
		if k == "*" {
			nested, _ := sv.AsObject()
			for _, ck := range target.Keys() {
				cv, _ := target.Get(ck)
				if child, ok := cv.AsObject(); ok {
					applyDefaults(nested, child, vars)
				}
			}
			continue
		}

		existing, present := target.Get(k)
		if nested, ok := sv.AsObject(); ok {
			child, isObj := existing.AsObject()
			if !present || existing.IsNull() {
				child = jsondoc.NewObject()
				target.Set(k, jsondoc.Obj(child))
			} else if !isObj {
				continue
			}
			applyDefaults(nested, child, vars)
			continue
		}
		if present && !existing.IsNull() {
			continue
		}
		target.Set(k, expand(sv, vars))
	}
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expand substitutes ${name} in string values. Unknown names stay as written.
func expand(v jsondoc.Value, vars Vars) jsondoc.Value {
	s, ok := v.AsString()
	if !ok {
		return v.Clone()
	}
	return jsondoc.String(placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		if val, ok := vars[name]; ok {
			return val
		}
		return m
	}))
}
