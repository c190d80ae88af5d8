package document

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates the scalar types a cell may hold.
type Kind int

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
)

// Value is a single cell value: a string, a number, a boolean, or empty.
// The zero value is the empty cell.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Empty is the empty cell value.
var Empty = Value{}

// StringValue returns a string cell.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// NumberValue returns a numeric cell.
func NumberValue(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// BoolValue returns a boolean cell.
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Kind reports the scalar type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsEmpty reports whether the cell is empty.
func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// Str returns the string payload. Valid only when Kind is KindString.
func (v Value) Str() string {
	return v.str
}

// Num returns the numeric payload. Valid only when Kind is KindNumber.
func (v Value) Num() float64 {
	return v.num
}

// Bool returns the boolean payload. Valid only when Kind is KindBool.
func (v Value) Bool() bool {
	return v.b
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// MarshalJSON encodes the value as its bare scalar (null for empty).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a bare JSON scalar. Arrays and objects are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Empty
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("unsupported cell value type %T", raw)
	}
	return nil
}
