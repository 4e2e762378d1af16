package compiler

import (
	"strings"
	"testing"
)

func TestSplitField(t *testing.T) {
	tests := []struct {
		field string
		want  fstringField
	}{
		{"x", fstringField{expr: "x"}},
		{"x:>8", fstringField{expr: "x", spec: ">8"}},
		{"x!r", fstringField{expr: "x", conv: "r"}},
		{"x!r:>4", fstringField{expr: "x", conv: "r", spec: ">4"}},
		{"x=", fstringField{expr: "x", debug: true}},
		{"y = ", fstringField{expr: "y", debug: true}},
		{"a != b", fstringField{expr: "a != b"}},
		{"a == b", fstringField{expr: "a == b"}},
		{"d['k:v']", fstringField{expr: "d['k:v']"}},
		{"f(a, b[1:2])", fstringField{expr: "f(a, b[1:2])"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if got := splitField(tt.field); got != tt.want {
				t.Errorf("splitField(%q) = %+v, want %+v", tt.field, got, tt.want)
			}
		})
	}
}

func TestFieldEnd(t *testing.T) {
	tests := []struct {
		s    string
		want int
	}{
		{"x}", 1},
		{"d['}']}", 6},
		{"f({1: 2})}", 9},
		{"x", -1},
	}
	for _, tt := range tests {
		if got := fieldEnd(tt.s, 0); got != tt.want {
			t.Errorf("fieldEnd(%q) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestParse_FStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Plain field", "s = f\"hi {name}!\"\n", "Let(s = format!(\"hi {}!\", name))"},
		{"Spec conv and debug", "s = f\"{x:>8} {y!r} {z=}\"\n", "Let(s = format!(\"{:>8} {:?} z={:?}\", x, y, z))"},
		{"Escaped braces", "s = f\"{{lit}} {v}\"\n", "Let(s = format!(\"{{lit}} {}\", v))"},
		{"Adjacent literals", "s = \"a{\" f\"{x}\"\n", "Let(s = format!(\"a{{{}\", x))"},
		{"Plain adjacent literals", "s = \"ab\" \"cd\"\n", "Let(s = \"abcd\")"},
		{"Expression field", "s = f\"{a + 1}\"\n", "Let(s = format!(\"{}\", (a + 1)))"},
		{"Operator between fields", "s = f\"{a}+{b}\"\n", "Let(s = format!(\"{}+{}\", a, b))"},
		{"Debug with spec", "s = f\"{x!r:>5}\"\n", "Let(s = format!(\"{:>5?}\", x))"},
		{"Spec with equals", "s = f\"{x=:>5}\"\n", "Let(s = format!(\"x={:>5}\", x))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, _, _ := parseSource(t, tt.src)
			if got := firstStmt(t, mod).String(); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParse_FStringErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantMsg string
	}{
		{"s = f\"{}\"\n", "empty expression in f-string"},
		{"s = f\"a}\"\n", "single '}' is not allowed"},
		{"s = f\"{x\"\n", "unterminated '{'"},
		{"s = f\"{x y}\"\n", "in f-string expression"},
		{"s = b\"a\" \"b\"\n", "cannot mix bytes and str literals"},
	}
	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			err := parseError(t, tt.src)
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err, tt.wantMsg)
			}
		})
	}
}
