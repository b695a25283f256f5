// Package workbook turns uploaded spreadsheet files into a normalized
// sheet/row/column model.
//
// Every cell is coerced at read time into a [Value], a closed sum type of
// text, number, boolean and null. Nothing downstream of this package sees
// untyped cell data.
package workbook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a single cell. The zero Value is Null.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Num returns a numeric value. NaN and infinities are not representable in
// JSON and collapse to Null.
func Num(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// plainNumber matches decimal literals. A leading zero followed by another
// digit is excluded so identifiers such as "00123" stay text.
var plainNumber = regexp.MustCompile(`^[+-]?(0|[1-9]\d*)?(\.\d+)?([eE][+-]?\d+)?$`)

// inferValue types a cell that a reader only sees as text. Empty is Null,
// TRUE and FALSE in any case are booleans and plain decimals are numbers.
// Everything else, including hex, "NaN" and "Inf", stays text.
func inferValue(raw string) Value {
	if raw == "" {
		return Null()
	}
	switch strings.ToUpper(raw) {
	case "TRUE":
		return Bool(true)
	case "FALSE":
		return Bool(false)
	}
	if plainNumber.MatchString(raw) && strings.ContainsAny(raw, "0123456789") {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Num(n)
		}
	}
	return Text(raw)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBlank reports whether v is null or the empty string. Blank cells do not
// keep a row alive during parsing.
func (v Value) IsBlank() bool {
	return v.kind == KindNull || (v.kind == KindText && v.text == "")
}

// AsText returns the text payload.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// String renders v for display and for use as a header name. Null renders
// as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// MarshalJSON encodes v as a JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar. Arrays and objects are not cells; they
// are kept as their compact JSON text so an edit payload never fails on them.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("workbook: empty JSON value")
	}

	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*v = Text(buf.String())
		return nil
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("workbook: invalid number %s: %w", data, err)
		}
		*v = Num(f)
		return nil
	}
}

// Row maps a column name to its cell. Keys may differ between rows of a
// persisted dataset; a missing key reads as Null.
type Row map[string]Value

// Get returns the cell under col, or Null when the row has no such key.
func (r Row) Get(col string) Value {
	return r[col]
}

// IsBlank reports whether every cell in r is blank.
func (r Row) IsBlank() bool {
	for _, v := range r {
		if !v.IsBlank() {
			return false
		}
	}
	return true
}

// Project returns a new row holding only the listed columns. Columns that r
// does not carry are omitted rather than set to Null.
func (r Row) Project(cols []string) Row {
	out := make(Row, len(cols))
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Clone returns a shallow copy of r. Values are immutable so this is a full copy.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Any returns v as a plain Go value: nil, string, float64 or bool.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// FromAny coerces a decoded driver value into a Value. Integer types become
// numbers; anything else that is not a scalar is kept as its text form.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return Text(t)
	case bool:
		return Bool(t)
	case float64:
		return Num(t)
	case float32:
		return Num(float64(t))
	case int:
		return Num(float64(t))
	case int32:
		return Num(float64(t))
	case int64:
		return Num(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Num(f)
		}
		return Text(t.String())
	default:
		return Text(fmt.Sprint(t))
	}
}
