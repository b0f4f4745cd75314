package entidex

import (
	"fmt"

	"github.com/kailas-cloud/entidex/internal/domain/schema"
	"github.com/kailas-cloud/entidex/internal/domain/schema/field"
)

// FieldType is the value type of a searchable field.
type FieldType string

// Field types.
const (
	FieldString FieldType = FieldType(field.String)
	FieldEnum   FieldType = FieldType(field.Enum)
	FieldNumber FieldType = FieldType(field.Number)
	FieldDate   FieldType = FieldType(field.Date)
)

// Field declares one searchable field of a kind. Build it with StringField,
// EnumField, NumberField or DateField.
type Field struct {
	name     string
	typ      FieldType
	fulltext bool
	path     string
}

// StringField declares a string field.
func StringField(name string) Field { return Field{name: name, typ: FieldString} }

// EnumField declares a field holding one value or a list of values.
func EnumField(name string) Field { return Field{name: name, typ: FieldEnum} }

// NumberField declares a numeric field.
func NumberField(name string) Field { return Field{name: name, typ: FieldNumber} }

// DateField declares a date field holding ISO-8601 strings.
func DateField(name string) Field { return Field{name: name, typ: FieldDate} }

// Fulltext adds the field's text to the fulltext blob of the index document.
func (f Field) Fulltext() Field {
	f.fulltext = true
	return f
}

// At stores the field under a different index path, e.g. "workflow.state".
func (f Field) At(path string) Field {
	f.path = path
	return f
}

// Name returns the field name used in searches.
func (f Field) Name() string { return f.name }

// Type returns the declared field type.
func (f Field) Type() FieldType { return f.typ }

// kindDecl is a kind declared with WithKind. It is built once the field
// prefix is known.
type kindDecl struct {
	name   string
	fields []Field
}

func kindSchema(name string, fields []Field, prefix string) (schema.Schema, error) {
	ff := make([]field.Field, 0, len(fields))
	for _, f := range fields {
		df, err := field.New(f.name, field.Type(f.typ), f.fulltext, f.path)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("entidex: kind %s: %w", name, err)
		}
		ff = append(ff, df)
	}
	s, err := schema.New(name, ff, nil, schema.WithPrefix(prefix))
	if err != nil {
		return schema.Schema{}, fmt.Errorf("entidex: %w", err)
	}
	return s, nil
}
