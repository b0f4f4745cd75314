package filter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/entidex/internal/domain"
)

// wireParameter is the JSON form shared by every variant; "type" selects
// the variant and "value" is interpreted accordingly.
type wireParameter struct {
	Type      Type            `json:"type"`
	Field     string          `json:"field"`
	Operation string          `json:"operation,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// Decode parses one JSON search parameter.
func Decode(data []byte) (Parameter, error) {
	var w wireParameter
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: search parameter: %w", domain.ErrInvalidRequest, err)
	}
	return w.toParameter()
}

// DecodeList parses a JSON array of search parameters.
func DecodeList(data []byte) ([]Parameter, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: searchParameters: %w", domain.ErrInvalidRequest, err)
	}
	out := make([]Parameter, 0, len(raws))
	for i, raw := range raws {
		p, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("searchParameters[%d]: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (w wireParameter) operation() (Operation, error) {
	if w.Operation == "" {
		switch w.Type {
		case TypeNumberRange, TypeDateRange:
			return OpBetween, nil
		case TypeString, TypeEnum, TypeNumber:
			return OpEquals, nil
		}
		return "", fmt.Errorf("%w: %s parameter %q requires an operation", domain.ErrInvalidRequest, w.Type, w.Field)
	}
	op, ok := ParseOperation(w.Operation)
	if !ok {
		return "", domain.NewUnsupportedOperation(string(w.Type), w.Operation)
	}
	return op, nil
}

func (w wireParameter) toParameter() (Parameter, error) {
	if !w.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown search parameter type %q", domain.ErrInvalidRequest, w.Type)
	}
	op, err := w.operation()
	if err != nil {
		return nil, err
	}

	switch w.Type {
	case TypeString:
		var v string
		if err := w.decodeValue(&v); err != nil {
			return nil, err
		}
		return NewString(w.Field, op, v)
	case TypeEnum:
		vs, err := w.decodeSingleOrArray()
		if err != nil {
			return nil, err
		}
		return NewEnum(w.Field, op, vs)
	case TypeNumber:
		var v float64
		if err := w.decodeValue(&v); err != nil {
			return nil, err
		}
		return NewNumber(w.Field, op, v)
	case TypeNumberRange:
		var vs []float64
		if err := w.decodeValue(&vs); err != nil {
			return nil, err
		}
		if len(vs) != 2 {
			return nil, w.pairError()
		}
		if op != OpBetween {
			return nil, domain.NewUnsupportedOperation(string(w.Type), string(op))
		}
		return NewNumberRange(w.Field, vs[0], vs[1])
	case TypeDate:
		var v string
		if err := w.decodeValue(&v); err != nil {
			return nil, err
		}
		return NewDate(w.Field, op, v)
	case TypeDateRange:
		var vs []string
		if err := w.decodeValue(&vs); err != nil {
			return nil, err
		}
		if len(vs) != 2 {
			return nil, w.pairError()
		}
		if op != OpBetween {
			return nil, domain.NewUnsupportedOperation(string(w.Type), string(op))
		}
		return NewDateRange(w.Field, vs[0], vs[1])
	default: // TypeUniversal
		return NewUniversal(w.Field, op)
	}
}

func (w wireParameter) decodeValue(dst any) error {
	if len(w.Value) == 0 || bytes.Equal(w.Value, []byte("null")) {
		return fmt.Errorf("%w: %s parameter %q requires a value", domain.ErrInvalidRequest, w.Type, w.Field)
	}
	if err := json.Unmarshal(w.Value, dst); err != nil {
		return fmt.Errorf("%w: %s parameter %q value: %w", domain.ErrInvalidRequest, w.Type, w.Field, err)
	}
	return nil
}

// decodeSingleOrArray accepts "v" as well as ["v1", "v2"].
func (w wireParameter) decodeSingleOrArray() ([]string, error) {
	trimmed := bytes.TrimSpace(w.Value)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var vs []string
		if err := w.decodeValue(&vs); err != nil {
			return nil, err
		}
		return vs, nil
	}
	var v string
	if err := w.decodeValue(&v); err != nil {
		return nil, err
	}
	return []string{v}, nil
}

func (w wireParameter) pairError() error {
	return fmt.Errorf("%w: %s parameter %q requires exactly two values", domain.ErrInvalidRequest, w.Type, w.Field)
}

// Encode renders p in its JSON wire form. Enum values with a single
// element encode as a plain string.
func Encode(p Parameter) ([]byte, error) {
	w := wireParameter{Type: p.Type(), Field: p.Field(), Operation: string(p.Operation())}
	var value any
	switch v := p.(type) {
	case String:
		value = v.Value()
	case Enum:
		if len(v.values) == 1 {
			value = v.values[0]
		} else {
			value = v.values
		}
	case Number:
		value = v.Value()
	case NumberRange:
		value = []float64{v.lo, v.hi}
	case Date:
		value = v.Value()
	case DateRange:
		value = []string{v.from, v.to}
	case Universal:
	default:
		return nil, fmt.Errorf("unknown parameter %T", p)
	}
	if value != nil {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s value: %w", p.Type(), err)
		}
		w.Value = raw
	}
	out, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode parameter: %w", err)
	}
	return out, nil
}

// EncodeList renders params as a JSON array.
func EncodeList(params []Parameter) ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		raw, err := Encode(p)
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	out, err := json.Marshal(raws)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return out, nil
}
