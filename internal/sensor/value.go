package sensor

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a single sensor field as received off the wire.
//
// Payloads arrive as UTF-8 text. A Value keeps the raw text and, when the
// text parses as a number, its numeric form. JSON round-trips preserve the
// distinction: numeric values marshal as JSON numbers, everything else as
// strings.
type Value struct {
	raw     string
	num     float64
	numeric bool
}

// NewValue builds a Value from a raw payload string. The string is
// additionally interpreted as a number when it parses as one.
func NewValue(raw string) Value {
	v := Value{raw: raw}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		v.num = f
		v.numeric = true
	}
	return v
}

// NumberValue builds a Value directly from a number.
func NumberValue(f float64) Value {
	return Value{
		raw:     strconv.FormatFloat(f, 'f', -1, 64),
		num:     f,
		numeric: true,
	}
}

// String returns the raw payload text.
func (v Value) String() string { return v.raw }

// IsNumeric reports whether the value carries a numeric interpretation.
func (v Value) IsNumeric() bool { return v.numeric }

// Float returns the numeric form, or math.NaN() for non-numeric values.
func (v Value) Float() float64 {
	if !v.numeric {
		return math.NaN()
	}
	return v.num
}

// MarshalJSON encodes numeric values as JSON numbers and everything else
// as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON accepts a JSON number or string. Any other JSON value is
// kept verbatim as its compact text form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = NumberValue(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = NewValue(s)
		return nil
	}

	*v = NewValue(string(data))
	return nil
}
