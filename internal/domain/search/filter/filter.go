package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/entidex/internal/domain"
)

// Type is the variant discriminator of a search parameter.
type Type string

// Parameter variants.
const (
	TypeString      Type = "string"
	TypeEnum        Type = "enum"
	TypeNumber      Type = "number"
	TypeNumberRange Type = "numberRange"
	TypeDate        Type = "date"
	TypeDateRange   Type = "dateRange"
	TypeUniversal   Type = "universal"
)

// IsValid reports whether t names a known variant.
func (t Type) IsValid() bool {
	switch t {
	case TypeString, TypeEnum, TypeNumber, TypeNumberRange, TypeDate, TypeDateRange, TypeUniversal:
		return true
	}
	return false
}

// Operation is the comparison a parameter performs.
type Operation string

// Operations across all variants. Each variant accepts a subset.
const (
	OpEquals           Operation = "Equals"
	OpContains         Operation = "Contains"
	OpStartsWith       Operation = "StartsWith"
	OpEndsWith         Operation = "EndsWith"
	OpGreaterThan      Operation = "GreaterThan"
	OpGreaterEqualThan Operation = "GreaterEqualThan"
	OpLessThan         Operation = "LessThan"
	OpLessEqualThan    Operation = "LessEqualThan"
	OpBetween          Operation = "Between"
	OpBefore           Operation = "Before"
	OpAfter            Operation = "After"
	OpExists           Operation = "Exists"
	OpNotExists        Operation = "NotExists"
)

var allOperations = []Operation{
	OpEquals, OpContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpGreaterEqualThan, OpLessThan, OpLessEqualThan,
	OpBetween, OpBefore, OpAfter, OpExists, OpNotExists,
}

// ParseOperation resolves an operation name case-insensitively.
func ParseOperation(s string) (Operation, bool) {
	for _, op := range allOperations {
		if strings.EqualFold(s, string(op)) {
			return op, true
		}
	}
	return "", false
}

// accepted lists the operations each variant can carry. StartsWith and
// EndsWith decode but no compiler renders them.
var accepted = map[Type][]Operation{
	TypeString:      {OpEquals, OpContains, OpStartsWith, OpEndsWith},
	TypeEnum:        {OpEquals, OpContains},
	TypeNumber:      {OpEquals, OpGreaterThan, OpGreaterEqualThan, OpLessThan, OpLessEqualThan},
	TypeNumberRange: {OpBetween},
	TypeDate:        {OpBefore, OpAfter},
	TypeDateRange:   {OpBetween},
	TypeUniversal:   {OpExists, OpNotExists},
}

// Accepts reports whether variant t carries operation op.
func Accepts(t Type, op Operation) bool {
	for _, a := range accepted[t] {
		if a == op {
			return true
		}
	}
	return false
}

// Parameter is one top-level filter. The set of implementations is closed:
// String, Enum, Number, NumberRange, Date, DateRange and Universal.
type Parameter interface {
	Field() string
	Type() Type
	Operation() Operation
	sealed()
}

type base struct {
	field string
	op    Operation
}

func (b base) Field() string        { return b.field }
func (b base) Operation() Operation { return b.op }
func (base) sealed()                {}

func newBase(t Type, field string, op Operation) (base, error) {
	if strings.TrimSpace(field) == "" {
		return base{}, fmt.Errorf("%w: %s parameter field is required", domain.ErrInvalidRequest, t)
	}
	if !Accepts(t, op) {
		return base{}, domain.NewUnsupportedOperation(string(t), string(op))
	}
	return base{field: field, op: op}, nil
}

// String matches text fields.
type String struct {
	base
	value string
}

// NewString validates and creates a String parameter.
func NewString(field string, op Operation, value string) (String, error) {
	b, err := newBase(TypeString, field, op)
	if err != nil {
		return String{}, err
	}
	return String{base: b, value: value}, nil
}

// Type implements Parameter.
func (String) Type() Type { return TypeString }

// Value returns the raw string operand.
func (s String) Value() string { return s.value }

// Enum matches a field against a list of allowed values.
type Enum struct {
	base
	values []string
}

// NewEnum validates and creates an Enum parameter. values must be non-empty.
func NewEnum(field string, op Operation, values []string) (Enum, error) {
	b, err := newBase(TypeEnum, field, op)
	if err != nil {
		return Enum{}, err
	}
	if len(values) == 0 {
		return Enum{}, fmt.Errorf("%w: enum parameter %q requires at least one value", domain.ErrInvalidRequest, field)
	}
	vs := make([]string, len(values))
	copy(vs, values)
	return Enum{base: b, values: vs}, nil
}

// Type implements Parameter.
func (Enum) Type() Type { return TypeEnum }

// Values returns the operands in input order.
func (e Enum) Values() []string { return e.values }

// Number compares a numeric field against a single operand.
type Number struct {
	base
	value float64
}

// NewNumber validates and creates a Number parameter.
func NewNumber(field string, op Operation, value float64) (Number, error) {
	b, err := newBase(TypeNumber, field, op)
	if err != nil {
		return Number{}, err
	}
	return Number{base: b, value: value}, nil
}

// Type implements Parameter.
func (Number) Type() Type { return TypeNumber }

// Value returns the operand.
func (n Number) Value() float64 { return n.value }

// NumberRange matches lo <= field <= hi.
type NumberRange struct {
	base
	lo, hi float64
}

// NewNumberRange validates and creates a NumberRange parameter.
func NewNumberRange(field string, lo, hi float64) (NumberRange, error) {
	b, err := newBase(TypeNumberRange, field, OpBetween)
	if err != nil {
		return NumberRange{}, err
	}
	if lo > hi {
		return NumberRange{}, fmt.Errorf("%w: numberRange %q lower bound exceeds upper bound", domain.ErrInvalidRequest, field)
	}
	return NumberRange{base: b, lo: lo, hi: hi}, nil
}

// Type implements Parameter.
func (NumberRange) Type() Type { return TypeNumberRange }

// Bounds returns the inclusive bounds.
func (r NumberRange) Bounds() (lo, hi float64) { return r.lo, r.hi }

// Date compares a date field against an ISO 8601 instant.
type Date struct {
	base
	value string
}

// NewDate validates and creates a Date parameter.
func NewDate(field string, op Operation, value string) (Date, error) {
	b, err := newBase(TypeDate, field, op)
	if err != nil {
		return Date{}, err
	}
	if _, err := ParseDate(value); err != nil {
		return Date{}, fmt.Errorf("%w: date parameter %q: %w", domain.ErrInvalidRequest, field, err)
	}
	return Date{base: b, value: value}, nil
}

// Type implements Parameter.
func (Date) Type() Type { return TypeDate }

// Value returns the operand exactly as supplied.
func (d Date) Value() string { return d.value }

// DateRange matches from <= field <= to.
type DateRange struct {
	base
	from, to string
}

// NewDateRange validates and creates a DateRange parameter.
func NewDateRange(field, from, to string) (DateRange, error) {
	b, err := newBase(TypeDateRange, field, OpBetween)
	if err != nil {
		return DateRange{}, err
	}
	f, err := ParseDate(from)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: dateRange %q from: %w", domain.ErrInvalidRequest, field, err)
	}
	t, err := ParseDate(to)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: dateRange %q to: %w", domain.ErrInvalidRequest, field, err)
	}
	if f.After(t) {
		return DateRange{}, fmt.Errorf("%w: dateRange %q starts after it ends", domain.ErrInvalidRequest, field)
	}
	return DateRange{base: b, from: from, to: to}, nil
}

// Type implements Parameter.
func (DateRange) Type() Type { return TypeDateRange }

// Bounds returns the inclusive bounds as supplied.
func (r DateRange) Bounds() (from, to string) { return r.from, r.to }

// Universal tests field presence.
type Universal struct {
	base
}

// NewUniversal validates and creates a Universal parameter.
func NewUniversal(field string, op Operation) (Universal, error) {
	b, err := newBase(TypeUniversal, field, op)
	if err != nil {
		return Universal{}, err
	}
	return Universal{base: b}, nil
}

// Type implements Parameter.
func (Universal) Type() Type { return TypeUniversal }

// ParseDate accepts RFC 3339 timestamps and plain calendar dates.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an ISO 8601 date: %q", s)
	}
	return t, nil
}
