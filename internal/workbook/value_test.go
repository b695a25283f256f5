package workbook

import (
	"encoding/json"
	"math"
	"testing"
)

func TestValueJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
		out  string
	}{
		{"null", `null`, Null(), `null`},
		{"string", `"abc"`, Text("abc"), `"abc"`},
		{"empty string", `""`, Text(""), `""`},
		{"integer", `42`, Num(42), `42`},
		{"float", `1.5`, Num(1.5), `1.5`},
		{"true", `true`, Bool(true), `true`},
		{"false", `false`, Bool(false), `false`},
		{"array kept as text", `[1, 2]`, Text("[1,2]"), `"[1,2]"`},
		{"object kept as text", `{"a": 1}`, Text(`{"a":1}`), `"{\"a\":1}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if !v.Equal(tt.want) {
				t.Errorf("Unmarshal(%s) = %#v, want %#v", tt.in, v, tt.want)
			}
			got, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("Marshal error = %v", err)
			}
			if string(got) != tt.out {
				t.Errorf("Marshal = %s, want %s", got, tt.out)
			}
		})
	}
}

func TestNumRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if v := Num(f); !v.IsNull() {
			t.Errorf("Num(%v).Kind() = %v, want null", f, v.Kind())
		}
	}
}

func TestInferValue(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"", Null()},
		{"42", Num(42)},
		{"-3.25", Num(-3.25)},
		{"+7", Num(7)},
		{".5", Num(0.5)},
		{"0.5", Num(0.5)},
		{"0", Num(0)},
		{"2e3", Num(2000)},
		{"TRUE", Bool(true)},
		{"false", Bool(false)},
		{"00123", Text("00123")},
		{"-0123", Text("-0123")},
		{"0x1F", Text("0x1F")},
		{"NaN", Text("NaN")},
		{"Inf", Text("Inf")},
		{"e5", Text("e5")},
		{"1,000", Text("1,000")},
		{" 42", Text(" 42")},
		{"abc", Text("abc")},
	}
	for _, tt := range tests {
		if got := inferValue(tt.in); !got.Equal(tt.want) {
			t.Errorf("inferValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestValueIsBlank(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Null(), true},
		{Text(""), true},
		{Text(" "), false},
		{Num(0), false},
		{Bool(false), false},
	}
	for _, tt := range tests {
		if got := tt.v.IsBlank(); got != tt.want {
			t.Errorf("%#v.IsBlank() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Null(), ""},
		{Text("x"), "x"},
		{Num(3), "3"},
		{Num(2.25), "2.25"},
		{Bool(true), "true"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRowProjectOmitsMissingColumns(t *testing.T) {
	row := Row{"a": Text("1"), "b": Null()}
	got := row.Project([]string{"a", "b", "c"})

	if len(got) != 2 {
		t.Fatalf("len(Project) = %d, want 2", len(got))
	}
	if _, ok := got["c"]; ok {
		t.Error("Project added key c that the row never had")
	}
	if !got.Get("a").Equal(Text("1")) {
		t.Errorf("Get(a) = %v, want 1", got.Get("a"))
	}
	if !got.Get("missing").IsNull() {
		t.Error("Get on a missing key should be null")
	}
}

func TestRowJSONRoundTrip(t *testing.T) {
	in := `{"A":"1","B":2,"C":null,"D":true}`
	var row Row
	if err := json.Unmarshal([]byte(in), &row); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !row.Get("B").Equal(Num(2)) {
		t.Errorf("B = %#v, want Num(2)", row.Get("B"))
	}
	if _, ok := row["C"]; !ok {
		t.Error("explicit null key C should be present")
	}
	out, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(out) != in {
		t.Errorf("Marshal = %s, want %s", out, in)
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{nil, Null()},
		{"x", Text("x")},
		{true, Bool(true)},
		{3.5, Num(3.5)},
		{int32(7), Num(7)},
		{int64(-2), Num(-2)},
		{json.Number("12"), Num(12)},
		{[]int{1}, Text("[1]")},
	}
	for _, tt := range tests {
		if got := FromAny(tt.in); !got.Equal(tt.want) {
			t.Errorf("FromAny(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
		if got := FromAny(tt.want.Any()); !got.Equal(tt.want) {
			t.Errorf("FromAny(Any()) lost %#v", tt.want)
		}
	}
}
