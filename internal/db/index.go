package db

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kailas-cloud/entidex/internal/query"
)

// IndexFieldType enumerates supported secondary index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is an exact-match field.
	IndexFieldTag
	// IndexFieldText is a tokenized text field.
	IndexFieldText
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	default:
		return "FIELD(" + strconv.Itoa(int(t)) + ")"
	}
}

// IndexField describes a single indexed document path.
type IndexField struct {
	// Path is the dotted body path, e.g. "index.name".
	Path string
	// Alias names the field in query text; empty means AliasFor(Path).
	Alias string
	Type  IndexFieldType

	// Array marks a path holding a list of values (e.g. full-text tokens).
	Array    bool
	Sortable bool

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool
}

// Name returns the alias the field is queried by.
func (f *IndexField) Name() string {
	if f.Alias != "" {
		return f.Alias
	}
	return AliasFor(f.Path)
}

// IndexDefinition describes the secondary indexes over one kind of document
// in one container.
type IndexDefinition struct {
	Name      string
	Container string
	// Kind restricts the index to items of one kind; empty covers all.
	Kind   string
	Fields []IndexField
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !IsValidIdentifier(idx.Name) {
		return errors.New("index name contains invalid characters")
	}
	if idx.Container == "" {
		return errors.New("index container is required")
	}
	if !IsValidIdentifier(idx.Container) {
		return errors.New("index container contains invalid characters")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool)
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Path == "" {
			return errors.New("field path is required at index " + strconv.Itoa(i))
		}
		if !query.ValidPath(f.Path) {
			return errors.New("field path is not a dotted identifier: " + f.Path)
		}
		key := f.Name()
		if seen[key] {
			return errors.New("duplicate field name: " + key)
		}
		seen[key] = true

		if f.Array && f.Type == IndexFieldNumeric {
			return errors.New("array fields must be TAG or TEXT: " + f.Path)
		}
	}

	return nil
}

// IndexName is the conventional index name for one kind in one container.
func IndexName(container, kind string) string {
	if kind == "" {
		return container
	}
	return container + "-" + kind
}

// AliasFor derives the query alias of a dotted document path.
func AliasFor(path string) string {
	return strings.ReplaceAll(path, ".", "_")
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
