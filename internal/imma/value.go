package imma

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind discriminates the variants of a decoded Value.
type Kind uint8

const (
	// KindMissing marks a field whose raw bytes equal its missing pattern.
	KindMissing Kind = iota
	// KindInt is a base-10 or base-36 integer.
	KindInt
	// KindReal is a scaled fixed-point value.
	KindReal
	// KindString is fixed-width text with trailing blanks trimmed.
	KindString
	// KindCoded is a code resolved against its code table.
	KindCoded
	// KindUnknown is a code with no entry in its code table; the raw code
	// is preserved for audit.
	KindUnknown
)

// Value is a decoded field: a tagged variant of missing, integer, real,
// string, resolved code, or unknown code.
type Value struct {
	Kind  Kind
	Int   int64
	Real  float64
	Str   string
	Code  string // raw code for KindCoded and KindUnknown
	Label string // resolved label for KindCoded
}

// MissingValue returns the Missing variant.
func MissingValue() Value { return Value{Kind: KindMissing} }

// IntValue returns an integer Value.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// RealValue returns a real Value.
func RealValue(v float64) Value { return Value{Kind: KindReal, Real: v} }

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// CodedValue returns a resolved code Value.
func CodedValue(code, label string) Value {
	return Value{Kind: KindCoded, Code: code, Label: label}
}

// UnknownValue returns the Unknown variant carrying the unresolved raw code.
func UnknownValue(code string) Value { return Value{Kind: KindUnknown, Code: code} }

// IsMissing reports whether the value is the Missing variant.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the value for logs and reports.
func (v Value) String() string {
	switch v.Kind {
	case KindMissing:
		return "<missing>"
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindReal:
		return strconv.FormatFloat(v.Real, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindCoded:
		return fmt.Sprintf("%s(%s)", v.Code, v.Label)
	case KindUnknown:
		return fmt.Sprintf("%s(?)", v.Code)
	}
	return "<invalid>"
}

// MarshalJSON serializes the value for the sink topic: Missing as null,
// numbers and strings as themselves, codes as objects retaining the raw code.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindMissing:
		return []byte("null"), nil
	case KindInt:
		return json.Marshal(v.Int)
	case KindReal:
		return json.Marshal(v.Real)
	case KindString:
		return json.Marshal(v.Str)
	case KindCoded:
		return json.Marshal(struct {
			Code  string `json:"code"`
			Label string `json:"label"`
		}{v.Code, v.Label})
	case KindUnknown:
		return json.Marshal(struct {
			Code    string `json:"code"`
			Unknown bool   `json:"unknown"`
		}{v.Code, true})
	}
	return nil, fmt.Errorf("marshal value: invalid kind %d", v.Kind)
}
