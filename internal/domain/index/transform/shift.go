package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/entidex/internal/domain/jsondoc"
)

// shift copies matched input values into a fresh document.
//
// Spec keys match input keys at the same depth: a literal key, "*" for any
// key not matched literally, "@" for the current value itself and "$" for
// the key that led to the current value. Leaves are output paths (a string
// or a list of strings) in which "&" / "&N" stand for the key matched N
// levels up. Writing twice to one path collects the values into an array.
type shift struct {
	spec *jsondoc.Object
}

func newShift(spec jsondoc.Value) (Step, error) {
	obj, ok := spec.AsObject()
	if !ok {
		return nil, fmt.Errorf("%w: shift spec must be an object", ErrInvalidRule)
	}
	if err := validateShift(obj, 0); err != nil {
		return nil, err
	}
	return &shift{spec: obj}, nil
}

func validateShift(spec *jsondoc.Object, depth int) error {
	for _, k := range spec.Keys() {
		v, _ := spec.Get(k)
		if child, ok := v.AsObject(); ok {
			if k == "$" {
				return fmt.Errorf("%w: \"$\" must map to an output path", ErrInvalidRule)
			}
			next := depth + 1
			if k == "@" {
				next = depth
			}
			if err := validateShift(child, next); err != nil {
				return err
			}
			continue
		}
		paths, err := outputPaths(v)
		if err != nil {
			return err
		}
		matched := depth + 1
		if k == "$" || k == "@" {
			matched = depth
		}
		for _, p := range paths {
			if err := validateOutputPath(p, matched); err != nil {
				return err
			}
		}
	}
	return nil
}

func outputPaths(v jsondoc.Value) ([]string, error) {
	if s, ok := v.AsString(); ok {
		return []string{s}, nil
	}
	arr, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("%w: shift leaf must be a path or list of paths, got %s", ErrInvalidRule, v.Kind())
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		s, ok := e.AsString()
		if !ok {
			return nil, fmt.Errorf("%w: shift output path must be a string", ErrInvalidRule)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateOutputPath checks that every back-reference stays within the
// number of keys matched so far.
func validateOutputPath(p string, matched int) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: empty output path", ErrInvalidRule)
	}
	for _, seg := range strings.Split(p, ".") {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in output path %q", ErrInvalidRule, p)
		}
		n, isRef, err := backReference(seg)
		if err != nil {
			return fmt.Errorf("%w: output path %q: %w", ErrInvalidRule, p, err)
		}
		if isRef && n >= matched {
			return fmt.Errorf("%w: output path %q refers %d levels up but only %d keys are matched", ErrInvalidRule, p, n, matched)
		}
	}
	return nil
}

func backReference(seg string) (int, bool, error) {
	if !strings.HasPrefix(seg, "&") {
		return 0, false, nil
	}
	if seg == "&" {
		return 0, true, nil
	}
	n, err := strconv.Atoi(seg[1:])
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("bad back-reference %q", seg)
	}
	return n, true, nil
}

func (s *shift) Apply(doc *jsondoc.Object, _ Vars) (*jsondoc.Object, error) {
	out := jsondoc.NewObject()
	if err := s.walk(s.spec, jsondoc.Obj(doc), []string{""}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// walk applies one spec level to input. keys holds the key matched at
// every level so far; the last entry is the key that led to input.
func (s *shift) walk(spec *jsondoc.Object, input jsondoc.Value, keys []string, out *jsondoc.Object) error {
	children := childrenOf(input)
	literal := make(map[string]bool, spec.Len())
	for _, k := range spec.Keys() {
		if k != "*" && k != "@" && k != "$" {
			literal[k] = true
		}
	}

	for _, k := range spec.Keys() {
		sub, _ := spec.Get(k)
		switch k {
		case "$":
			if err := write(out, sub, jsondoc.String(keys[len(keys)-1]), keys); err != nil {
				return err
			}
		case "@":
			if err := s.apply(sub, input, keys, out); err != nil {
				return err
			}
		case "*":
			for _, c := range children {
				if literal[c.key] {
					continue
				}
				if err := s.apply(sub, c.val, appendKey(keys, c.key), out); err != nil {
					return err
				}
			}
		default:
			for _, c := range children {
				if c.key == k {
					if err := s.apply(sub, c.val, appendKey(keys, k), out); err != nil {
						return err
					}
					break
				}
			}
		}
	}
	return nil
}

func (s *shift) apply(sub, val jsondoc.Value, keys []string, out *jsondoc.Object) error {
	if nested, ok := sub.AsObject(); ok {
		return s.walk(nested, val, keys, out)
	}
	return write(out, sub, val, keys)
}

type child struct {
	key string
	val jsondoc.Value
}

// childrenOf lists object members, or array elements keyed by index.
func childrenOf(v jsondoc.Value) []child {
	if obj, ok := v.AsObject(); ok {
		out := make([]child, 0, obj.Len())
		for _, k := range obj.Keys() {
			cv, _ := obj.Get(k)
			out = append(out, child{key: k, val: cv})
		}
		return out
	}
	if arr, ok := v.AsArray(); ok {
		out := make([]child, len(arr))
		for i, e := range arr {
			out[i] = child{key: strconv.Itoa(i), val: e}
		}
		return out
	}
	return nil
}

func appendKey(keys []string, k string) []string {
	next := make([]string, len(keys)+1)
	copy(next, keys)
	next[len(keys)] = k
	return next
}

func write(out *jsondoc.Object, leaf, val jsondoc.Value, keys []string) error {
	paths, err := outputPaths(leaf)
	if err != nil {
		return err
	}
	for _, p := range paths {
		resolved, err := resolvePath(p, keys)
		if err != nil {
			return err
		}
		put(out, resolved, val.Clone())
	}
	return nil
}

func resolvePath(p string, keys []string) (jsondoc.Path, error) {
	segs := strings.Split(p, ".")
	out := make(jsondoc.Path, len(segs))
	for i, seg := range segs {
		n, isRef, err := backReference(seg)
		if err != nil {
			return nil, err
		}
		if !isRef {
			out[i] = seg
			continue
		}
		idx := len(keys) - 1 - n
		if idx < 1 {
			return nil, fmt.Errorf("back-reference %q out of range", seg)
		}
		out[i] = keys[idx]
	}
	return out, nil
}

// put stores v at p. An existing value turns into an array of both.
func put(out *jsondoc.Object, p jsondoc.Path, v jsondoc.Value) {
	existing, ok := out.Lookup(p)
	if !ok {
		out.SetPath(p, v)
		return
	}
	if arr, isArr := existing.AsArray(); isArr {
		next := make([]jsondoc.Value, 0, len(arr)+1)
		next = append(next, arr...)
		out.SetPath(p, jsondoc.Array(append(next, v)...))
		return
	}
	out.SetPath(p, jsondoc.Array(existing, v))
}
