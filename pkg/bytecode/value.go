package bytecode

import (
	"errors"
	"fmt"
	"strconv"
)

// ValueKind discriminates the variants of Value.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// String returns a human-readable name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value errors.
var (
	// ErrWrongType is returned when a value is used as a kind it is not.
	ErrWrongType = errors.New("value has unexpected type")

	// ErrMissingOperand is returned when an instruction lacks a required
	// operand.
	ErrMissingOperand = errors.New("instruction operand missing")
)

// Value is the tagged union carried on the evaluation stack, in
// instruction operands, in variable stores and in declared defaults.
// There is no null variant; the format retired it.
//
// The zero Value is the empty string.
type Value struct {
	Kind ValueKind `cbor:"kind"`
	Str  string    `cbor:"str,omitempty"`
	Num  float64   `cbor:"num,omitempty"`
	Flag bool      `cbor:"flag,omitempty"`
}

// StringValue builds a string Value.
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NumberValue builds a number Value.
func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

// BoolValue builds a boolean Value.
func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Flag: b}
}

// AsString returns the string payload, or ErrWrongType.
func (v Value) AsString() (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("%w: want string, have %s", ErrWrongType, v.Kind)
	}
	return v.Str, nil
}

// AsNumber returns the numeric payload, or ErrWrongType.
func (v Value) AsNumber() (float64, error) {
	if v.Kind != KindNumber {
		return 0, fmt.Errorf("%w: want number, have %s", ErrWrongType, v.Kind)
	}
	return v.Num, nil
}

// AsBool returns the boolean payload, or ErrWrongType.
func (v Value) AsBool() (bool, error) {
	if v.Kind != KindBool {
		return false, fmt.Errorf("%w: want bool, have %s", ErrWrongType, v.Kind)
	}
	return v.Flag, nil
}

// Format renders the value the way it appears in substitutions: numbers
// drop trailing zeros, booleans render as "true"/"false".
func (v Value) Format() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Flag)
	default:
		return v.Str
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Flag == other.Flag
	default:
		return v.Str == other.Str
	}
}

// String implements fmt.Stringer for debugging output.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	default:
		return v.Format()
	}
}
