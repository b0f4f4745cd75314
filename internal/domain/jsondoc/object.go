package jsondoc

import "strings"

// Object is an insertion-ordered JSON object.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the value stored at key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Set stores v at key. Existing keys keep their position.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{
		keys: make([]string, len(o.keys)),
		vals: make(map[string]Value, len(o.vals)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.vals {
		c.vals[k] = v.Clone()
	}
	return c
}

// Project returns a copy holding only the given top-level keys, in the
// object's own order.
func (o *Object) Project(keys []string) *Object {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	out := NewObject()
	for _, k := range o.Keys() {
		if want[k] {
			out.Set(k, o.vals[k].Clone())
		}
	}
	return out
}

// Path is a dotted field path split into segments.
type Path []string

// ParsePath splits s on dots. An empty string yields an empty path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func (p Path) String() string { return strings.Join(p, ".") }

// Lookup walks p through nested objects.
func (o *Object) Lookup(p Path) (Value, bool) {
	if len(p) == 0 || o == nil {
		return Value{}, false
	}
	cur := o
	for i, seg := range p {
		v, ok := cur.Get(seg)
		if !ok {
			return Value{}, false
		}
		if i == len(p)-1 {
			return v, true
		}
		next, ok := v.AsObject()
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return Value{}, false
}

// SetPath stores v at p, creating intermediate objects. A non-object value
// in the way is replaced by an object.
func (o *Object) SetPath(p Path, v Value) {
	if len(p) == 0 {
		return
	}
	cur := o
	for _, seg := range p[:len(p)-1] {
		existing, ok := cur.Get(seg)
		next, isObj := existing.AsObject()
		if !ok || !isObj {
			next = NewObject()
			cur.Set(seg, Obj(next))
		}
		cur = next
	}
	cur.Set(p[len(p)-1], v)
}
