package transform

import (
	"fmt"

	"github.com/kailas-cloud/entidex/internal/domain/analysis"
	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
)

// FulltextSuffix is appended to a field name to form its token field.
const FulltextSuffix = "_ft"

// fulltext writes <root>.<f>_ft = analyze(<root>.<f>) for each listed
// field. Spec: {"fields": [...], "root": "index"}; root defaults to "index".
type fulltext struct {
	root   jsondoc.Path
	fields []jsondoc.Path
}

func newFulltext(spec jsondoc.Value) (Step, error) {
	obj, ok := spec.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: fulltext spec must be an object", ErrInvalidRule)
	}
	ft := &fulltext{root: jsondoc.Path{"index"}}
	if r, ok := obj.Get("root"); ok {
		s, isStr := r.AsString()
		if !isStr {
			return nil, fmt.Errorf("%w: fulltext root must be a string", ErrInvalidRule)
		}
		ft.root = jsondoc.ParsePath(s)
	}
	fv, ok := obj.Get("fields")
	if !ok {
		return nil, fmt.Errorf("%w: fulltext spec requires \"fields\"", ErrInvalidRule)
	}
	arr, ok := fv.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: fulltext fields must be a list", ErrInvalidRule)
	}
	for _, e := range arr {
		s, ok := e.AsString()
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: fulltext field must be a non-empty string", ErrInvalidRule)
		}
		ft.fields = append(ft.fields, jsondoc.ParsePath(s))
	}
	return ft, nil
}

func (f *fulltext) Apply(doc *jsondoc.Object, _ Vars) (*jsondoc.Object, error) {
	out := doc.Clone()
	if out == nil {
		out = jsondoc.NewObject()
	}
	for _, field := range f.fields {
		src := append(append(jsondoc.Path{}, f.root...), field...)
		v, ok := out.Lookup(src)
		if !ok || v.IsNull() {
			continue
		}
		dst := append(jsondoc.Path{}, src...)
		dst[len(dst)-1] += FulltextSuffix
		out.SetPath(dst, jsondoc.Strings(analysis.Analyze(v.Text())))
	}
	return out, nil
}
