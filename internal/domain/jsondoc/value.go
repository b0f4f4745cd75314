// Package jsondoc is a typed, order-preserving JSON document model.
//
// Documents travel between the transform, the compiler and the stores as
// *Object values instead of map[string]any, so key order survives a
// parse/marshal round trip and every access is explicit about the kind
// of value it expects.
package jsondoc

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind enumerates JSON value kinds.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable-by-convention JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  *Object
}

// Null returns a JSON null.
func Null() Value { return Value{} }

// Bool returns a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a JSON number from its literal representation.
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// Float returns a JSON number.
func Float(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// Int returns a JSON number.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatInt(i, 10))}
}

// String returns a JSON string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Array returns a JSON array holding vs.
func Array(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindArray, arr: vs}
}

// Strings returns a JSON array of strings.
func Strings(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return Array(vs...)
}

// Obj wraps an object as a Value. A nil object becomes an empty one.
func Obj(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number literal.
func (v Value) AsNumber() (json.Number, bool) { return v.num, v.kind == KindNumber }

// AsFloat returns the number as float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	return f, err == nil
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsArray returns the array elements. The slice must not be modified.
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object payload. The object must not be modified.
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }

// Text renders scalars as plain text. Arrays join their elements' text
// with a single space; null and objects render as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindArray:
		parts := make([]string, 0, len(v.arr))
		for _, e := range v.arr {
			if t := e.Text(); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Interface converts v to plain Go values: nil, bool, float64, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if f, err := v.num.Float64(); err == nil {
			return f
		}
		return v.num.String()
	case KindString:
		return v.str
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.keys {
			out[k] = v.obj.vals[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		return Value{kind: KindObject, obj: v.obj.Clone()}
	default:
		return v
	}
}

// Equal reports deep equality. Numbers compare by literal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.num == b.num
	case KindString:
		return a.str == b.str
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for i, k := range a.obj.keys {
			if b.obj.keys[i] != k || !Equal(a.obj.vals[k], b.obj.vals[k]) {
				return false
			}
		}
		return true
	}
	return false
}
