package field

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/entidex/internal/domain/search/filter"
)

// Type is the value type of an indexed field.
type Type string

// Field type constants.
const (
	String Type = "string"
	Enum   Type = "enum"
	Number Type = "number"
	Date   Type = "date"
)

// IsValid reports whether t is a known field type.
func (t Type) IsValid() bool {
	switch t {
	case String, Enum, Number, Date:
		return true
	}
	return false
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Names the index document reserves for itself.
var reservedFieldNames = map[string]bool{
	"id": true, "type": true, "entityRefId": true, "entityType": true,
}

// Field is an immutable value object describing one searchable field.
type Field struct {
	name      string
	fieldType Type
	fulltext  bool
	path      string
}

// New validates and creates a Field. path is where the value lives under
// the index object; empty means the field name itself.
func New(name string, ft Type, fulltext bool, path string) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if !namePattern.MatchString(name) {
		return Field{}, fmt.Errorf("field name %q must be a dotted identifier", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	if fulltext && ft != String && ft != Enum {
		return Field{}, fmt.Errorf("field %q: fulltext requires a string or enum field", name)
	}
	if path == "" {
		path = name
	}
	if !namePattern.MatchString(path) {
		return Field{}, fmt.Errorf("field %q: index path %q must be a dotted identifier", name, path)
	}
	return Field{name: name, fieldType: ft, fulltext: fulltext, path: path}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type, fulltext bool, path string) Field {
	if path == "" {
		path = name
	}
	return Field{name: name, fieldType: ft, fulltext: fulltext, path: path}
}

// Name returns the field name as requests and entities spell it.
func (f Field) Name() string { return f.name }

// FieldType returns the value type.
func (f Field) FieldType() Type { return f.fieldType }

// Fulltext reports whether the field gets a token list.
func (f Field) Fulltext() bool { return f.fulltext }

// Path returns the location under the index object.
func (f Field) Path() string { return f.path }

// Accepts reports whether a parameter variant may target this field.
// Universal works on every type; enum fields also take plain string
// equality.
func (f Field) Accepts(t filter.Type) bool {
	if t == filter.TypeUniversal {
		return true
	}
	switch f.fieldType {
	case String:
		return t == filter.TypeString
	case Enum:
		return t == filter.TypeEnum || t == filter.TypeString
	case Number:
		return t == filter.TypeNumber || t == filter.TypeNumberRange
	case Date:
		return t == filter.TypeDate || t == filter.TypeDateRange
	}
	return false
}
