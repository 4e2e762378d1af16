package compiler

import "testing"

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Unchanged", "x = 1\n", "x = 1\n"},
		{"Byte order mark", "\ufeffx = 1\n", "x = 1\n"},
		{"CRLF", "x = 1\r\ny = 2\r\n", "x = 1\ny = 2\n"},
		{"Lone CR", "x = 1\ry = 2\r", "x = 1\ny = 2\n"},
		{"Shebang keeps line count", "#!/usr/bin/env quiche\nx = 1\n", "\nx = 1\n"},
		{"Shebang only", "#!quiche", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preprocess(tt.input); got != tt.want {
				t.Errorf("Preprocess(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPreprocess_LinesStillLex(t *testing.T) {
	toks, err := Lex(Preprocess("#!/bin/quiche\r\nfoo\r\n"))
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if toks[0].Lexeme != "foo" || toks[0].Pos.Line != 2 {
		t.Errorf("first token %q on line %d, want foo on line 2", toks[0].Lexeme, toks[0].Pos.Line)
	}
}
