package compiler

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestCompile(t *testing.T) {
	out, err := Compile("def add(a: int, b: int) -> int:\n    return a + b\n", "add.qrs")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !strings.HasPrefix(out.Rust, "// Generated by quiche from add.qrs\n\n") {
		t.Errorf("missing header:\n%s", out.Rust)
	}
	assertContains(t, out.Rust, "pub fn add(a: i64, b: i64) -> i64 {")
	if out.Module == nil || len(out.Module.Items) != 1 {
		t.Errorf("unexpected module: %v", out.Module)
	}
	if out.Symbols.Classify("add") != ClassFunc {
		t.Error("symbol table not returned")
	}
	if entered, exited := out.Symbols.Balance(); entered != exited {
		t.Errorf("unbalanced scopes after codegen: %d/%d", entered, exited)
	}
}

func TestCompile_ErrorStages(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prefix string
	}{
		{"Lex", "x = $\n", "lex: "},
		{"Parse", "x = 1 +\n", "parse: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.input, "bad.qrs")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.HasPrefix(err.Error(), tt.prefix) {
				t.Errorf("error %q lacks prefix %q", err, tt.prefix)
			}
			if _, ok := AsDiagnostic(err); !ok {
				t.Error("stage errors must convert to a diagnostic")
			}
		})
	}
}

func TestCompile_Options(t *testing.T) {
	src := "def f() -> int:\n    return 1\n"

	out, err := Compile(src, "f.qrs", WithHeader(false), WithIndent("\t"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if strings.HasPrefix(out.Rust, "//") {
		t.Error("header should be disabled")
	}
	assertContains(t, out.Rust, "\treturn 1;")

	// Preprocessing runs before lexing.
	out, err = Compile("#!/usr/bin/env quiche\r\n"+strings.ReplaceAll(src, "\n", "\r\n"), "f.qrs", WithHeader(false))
	if err != nil {
		t.Fatalf("Compile with CRLF failed: %v", err)
	}
	assertContains(t, out.Rust, "pub fn f() -> i64 {")
}

func TestCompile_Trace(t *testing.T) {
	var mu sync.Mutex
	stages := map[string]int{}
	sink := TraceFunc(func(stage, msg string) {
		mu.Lock()
		defer mu.Unlock()
		stages[stage]++
	})

	if _, err := Compile("x = [1, 2]\nprint(len(x))\n", "t.qrs", WithTrace(sink)); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	for _, stage := range []string{"lex", "parse", "codegen"} {
		if stages[stage] == 0 {
			t.Errorf("no trace notes from %s", stage)
		}
	}
}

func TestWriterTrace(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterTrace(&buf)
	sink.Trace("lex", "%d tokens", 3)
	if buf.String() != "[lex] 3 tokens\n" {
		t.Errorf("got %q", buf.String())
	}

	// A nil sink leaves the default in place.
	if _, err := Compile("x = 1\n", "n.qrs", WithTrace(nil)); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
}

func TestCompile_Warnings(t *testing.T) {
	out, err := Compile("def Thing():\n    pass\nclass Thing:\n    x: int\n", "w.qrs")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(out.Diagnostics) == 0 || out.Diagnostics[0].Level != LevelWarning {
		t.Fatalf("expected a leading warning, got %v", out.Diagnostics)
	}
	assertContains(t, out.Diagnostics[0].Message, "keeping func")
}
