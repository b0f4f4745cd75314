package filter

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/entidex/internal/domain"
)

func TestNewString_Validation(t *testing.T) {
	if _, err := NewString("", OpEquals, "x"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("empty field: err = %v, want ErrInvalidRequest", err)
	}
	if _, err := NewString("name", OpGreaterThan, "x"); !errors.Is(err, domain.ErrUnsupportedOperation) {
		t.Errorf("string.GreaterThan: err = %v, want ErrUnsupportedOperation", err)
	}
	s, err := NewString("name", OpContains, "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Field() != "name" || s.Operation() != OpContains || s.Value() != "Acme" || s.Type() != TypeString {
		t.Errorf("unexpected parameter %+v", s)
	}
}

func TestNewEnum_RequiresValues(t *testing.T) {
	_, err := NewEnum("status", OpEquals, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestNewEnum_CopiesValues(t *testing.T) {
	in := []string{"a", "b"}
	e, err := NewEnum("status", OpEquals, in)
	if err != nil {
		t.Fatal(err)
	}
	in[0] = "z"
	if e.Values()[0] != "a" {
		t.Error("Enum shares the caller's slice")
	}
}

func TestNewNumberRange_Order(t *testing.T) {
	if _, err := NewNumberRange("budget", 10, 1); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
	r, err := NewNumberRange("budget", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if lo, hi := r.Bounds(); lo != 1 || hi != 10 {
		t.Errorf("Bounds() = %v, %v", lo, hi)
	}
}

func TestNewDate_Formats(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"2024-05-01", true},
		{"2024-05-01T10:00:00Z", true},
		{"2024-05-01T10:00:00.123+02:00", true},
		{"01/05/2024", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := NewDate("dueDate", OpBefore, tt.value)
		if (err == nil) != tt.ok {
			t.Errorf("NewDate(%q) err = %v, want ok=%v", tt.value, err, tt.ok)
		}
	}
}

func TestNewDateRange_Order(t *testing.T) {
	if _, err := NewDateRange("dueDate", "2024-06-01", "2024-01-01"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestUnsupportedOperationError(t *testing.T) {
	_, err := NewUniversal("owner", OpEquals)
	var uerr *domain.UnsupportedOperationError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UnsupportedOperationError", err)
	}
	if uerr.ParamType != "universal" || uerr.Operation != "Equals" {
		t.Errorf("got %+v", uerr)
	}
	if !domain.IsCallerError(err) {
		t.Error("IsCallerError = false")
	}
}

func TestParseOperation(t *testing.T) {
	op, ok := ParseOperation("greaterEqualThan")
	if !ok || op != OpGreaterEqualThan {
		t.Errorf("ParseOperation = %q, %v", op, ok)
	}
	if _, ok := ParseOperation("Like"); ok {
		t.Error("ParseOperation(Like) succeeded")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantType Type
		wantOp   Operation
	}{
		{"string", `{"type":"string","field":"name","operation":"Contains","value":"Acme"}`, TypeString, OpContains},
		{"enum single", `{"type":"enum","field":"status","operation":"Equals","value":"Active"}`, TypeEnum, OpEquals},
		{"enum array", `{"type":"enum","field":"status","operation":"Equals","value":["A","B"]}`, TypeEnum, OpEquals},
		{"number", `{"type":"number","field":"budget","operation":"LessThan","value":5.5}`, TypeNumber, OpLessThan},
		{"number range", `{"type":"numberRange","field":"budget","value":[1,2]}`, TypeNumberRange, OpBetween},
		{"date", `{"type":"date","field":"due","operation":"After","value":"2024-01-01"}`, TypeDate, OpAfter},
		{"date range", `{"type":"dateRange","field":"due","operation":"Between","value":["2024-01-01","2024-02-01"]}`, TypeDateRange, OpBetween},
		{"universal", `{"type":"universal","field":"owner","operation":"NotExists"}`, TypeUniversal, OpNotExists},
		{"lowercase op", `{"type":"string","field":"name","operation":"equals","value":"x"}`, TypeString, OpEquals},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.in))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if p.Type() != tt.wantType || p.Operation() != tt.wantOp {
				t.Errorf("got %s.%s, want %s.%s", p.Type(), p.Operation(), tt.wantType, tt.wantOp)
			}
		})
	}
}

func TestDecode_EnumSingleBecomesList(t *testing.T) {
	p, err := Decode([]byte(`{"type":"enum","field":"status","operation":"Contains","value":"Active"}`))
	if err != nil {
		t.Fatal(err)
	}
	e, ok := p.(Enum)
	if !ok {
		t.Fatalf("got %T", p)
	}
	if len(e.Values()) != 1 || e.Values()[0] != "Active" {
		t.Errorf("Values() = %v", e.Values())
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"unknown type", `{"type":"geo","field":"loc"}`, domain.ErrInvalidRequest},
		{"unknown op", `{"type":"string","field":"name","operation":"Like","value":"x"}`, domain.ErrUnsupportedOperation},
		{"unsupported pair", `{"type":"date","field":"due","operation":"Equals","value":"2024-01-01"}`, domain.ErrUnsupportedOperation},
		{"missing value", `{"type":"number","field":"budget","operation":"Equals"}`, domain.ErrInvalidRequest},
		{"wrong value type", `{"type":"number","field":"budget","operation":"Equals","value":"ten"}`, domain.ErrInvalidRequest},
		{"range arity", `{"type":"numberRange","field":"budget","value":[1]}`, domain.ErrInvalidRequest},
		{"empty enum", `{"type":"enum","field":"status","operation":"Equals","value":[]}`, domain.ErrInvalidRequest},
		{"universal without op", `{"type":"universal","field":"owner"}`, domain.ErrInvalidRequest},
		{"malformed", `{"type":`, domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeList_IndexInError(t *testing.T) {
	_, err := DecodeList([]byte(`[{"type":"string","field":"a","value":"x"},{"type":"nope","field":"b"}]`))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.HasPrefix(got, "searchParameters[1]") {
		t.Errorf("err = %q", got)
	}
}

func TestEncode_Decode(t *testing.T) {
	params := []Parameter{
		mustParam(NewEnum("status", OpEquals, []string{"Active"})),
		mustParam(NewNumberRange("budget", 1, 2)),
		mustParam(NewUniversal("owner", OpExists)),
	}
	raw, err := EncodeList(params)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"type":"enum","field":"status","operation":"Equals","value":"Active"},` +
		`{"type":"numberRange","field":"budget","operation":"Between","value":[1,2]},` +
		`{"type":"universal","field":"owner","operation":"Exists"}]`
	if string(raw) != want {
		t.Errorf("EncodeList =\n%s\nwant\n%s", raw, want)
	}
	back, err := DecodeList(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 3 || back[1].Type() != TypeNumberRange {
		t.Errorf("DecodeList = %v", back)
	}
}

func mustParam[P Parameter](p P, err error) Parameter {
	if err != nil {
		panic(err)
	}
	return p
}
