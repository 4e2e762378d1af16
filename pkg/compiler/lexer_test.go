package compiler

import (
	"reflect"
	"strings"
	"testing"
)

// lexed is the comparable part of a token.
type lexed struct {
	Type   TokenType
	Lexeme string
}

func lexAll(t *testing.T, src string) []lexed {
	t.Helper()
	toks, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q) failed: %v", src, err)
	}
	out := make([]lexed, len(toks))
	for i, tok := range toks {
		out[i] = lexed{tok.Type, tok.Lexeme}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexed
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []lexed{{EOF, ""}},
		},
		{
			name:  "Assignment",
			input: "x = 1\n",
			expected: []lexed{
				{IDENTIFIER, "x"}, {ASSIGN, "="}, {INTEGER, "1"}, {NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Missing final newline",
			input: "x",
			expected: []lexed{
				{IDENTIFIER, "x"}, {NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Keywords and Identifiers",
			input: "def class type match case None True False lambda _under",
			expected: []lexed{
				{DEF, "def"}, {CLASS, "class"}, {TYPE, "type"}, {MATCH, "match"}, {CASE, "case"},
				{NONE, "None"}, {TRUE, "True"}, {FALSE, "False"}, {LAMBDA, "lambda"},
				{IDENTIFIER, "_under"}, {NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Longest operator wins",
			input: "a **= b // c ... d |> e -> f := g <<= h",
			expected: []lexed{
				{IDENTIFIER, "a"}, {DOUBLESTAR_ASSIGN, "**="}, {IDENTIFIER, "b"},
				{DOUBLESLASH, "//"}, {IDENTIFIER, "c"}, {ELLIPSIS, "..."}, {IDENTIFIER, "d"},
				{PIPE_GT, "|>"}, {IDENTIFIER, "e"}, {ARROW, "->"}, {IDENTIFIER, "f"},
				{WALRUS, ":="}, {IDENTIFIER, "g"}, {SHL_ASSIGN, "<<="}, {IDENTIFIER, "h"},
				{NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Numbers",
			input: "0xff 0o17 0b101 1_000 1.5 2e10 .5 3.",
			expected: []lexed{
				{INTEGER, "0xff"}, {INTEGER, "0o17"}, {INTEGER, "0b101"}, {INTEGER, "1000"},
				{FLOAT, "1.5"}, {FLOAT, "2e10"}, {FLOAT, ".5"}, {FLOAT, "3."},
				{NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Tuple index chain",
			input: "t.0.1",
			expected: []lexed{
				{IDENTIFIER, "t"}, {DOT, "."}, {INTEGER, "0"}, {DOT, "."}, {INTEGER, "1"},
				{NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Comments and blank lines",
			input: "# header\n\nx = 1  # trailing\n\n   # indented comment\ny\n",
			expected: []lexed{
				{IDENTIFIER, "x"}, {ASSIGN, "="}, {INTEGER, "1"}, {NEWLINE, ""},
				{IDENTIFIER, "y"}, {NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Indentation",
			input: "if x:\n    y = 1\nz = 2\n",
			expected: []lexed{
				{IF, "if"}, {IDENTIFIER, "x"}, {COLON, ":"}, {NEWLINE, ""},
				{INDENT, ""}, {IDENTIFIER, "y"}, {ASSIGN, "="}, {INTEGER, "1"}, {NEWLINE, ""},
				{DEDENT, ""}, {IDENTIFIER, "z"}, {ASSIGN, "="}, {INTEGER, "2"}, {NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Dedent at end of input",
			input: "while x:\n    if y:\n        z\n",
			expected: []lexed{
				{WHILE, "while"}, {IDENTIFIER, "x"}, {COLON, ":"}, {NEWLINE, ""},
				{INDENT, ""}, {IF, "if"}, {IDENTIFIER, "y"}, {COLON, ":"}, {NEWLINE, ""},
				{INDENT, ""}, {IDENTIFIER, "z"}, {NEWLINE, ""},
				{DEDENT, ""}, {DEDENT, ""}, {EOF, ""},
			},
		},
		{
			name:  "Newlines inside brackets",
			input: "f(1,\n      2)\n",
			expected: []lexed{
				{IDENTIFIER, "f"}, {LPAREN, "("}, {INTEGER, "1"}, {COMMA, ","},
				{INTEGER, "2"}, {RPAREN, ")"}, {NEWLINE, ""}, {EOF, ""},
			},
		},
		{
			name:  "Explicit line continuation",
			input: "x = 1 + \\\n    2\n",
			expected: []lexed{
				{IDENTIFIER, "x"}, {ASSIGN, "="}, {INTEGER, "1"}, {PLUS, "+"},
				{INTEGER, "2"}, {NEWLINE, ""}, {EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(t, tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lex(%q)\n got: %v\nwant: %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLex_Strings(t *testing.T) {
	tests := []struct {
		input  string
		lexeme string
		kind   StringKind
	}{
		{`"plain"`, "plain", PlainString},
		{`'single'`, "single", PlainString},
		{`"a\tb\n"`, "a\tb\n", PlainString},
		{`"quote \" inside"`, `quote " inside`, PlainString},
		{`r"\d+"`, `\d+`, RawString},
		{`b"xy"`, "xy", ByteString},
		{`f"{x}!"`, "{x}!", FormatString},
		{`Rf"{x}\n"`, `{x}\n`, FormatString},
		{`"""two
lines"""`, "two\nlines", PlainString},
		{`'''it's'''`, "it's", PlainString},
		{`"\u{41}"`, "A", PlainString},
		{`"\x42\u00e9"`, "B\u00e9", PlainString},
		{`"\U0001F600"`, "\U0001F600", PlainString},
		{`"\d"`, `\d`, PlainString},
		{`"\u{zz}"`, `\u{zz}`, PlainString},
		{`b"\xff"`, "\xff", ByteString},
		{`b"\u0041"`, `\u0041`, ByteString},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex failed: %v", err)
			}
			if toks[0].Type != STRING {
				t.Fatalf("expected STRING, got %s", toks[0].Type)
			}
			if toks[0].Lexeme != tt.lexeme {
				t.Errorf("lexeme = %q, want %q", toks[0].Lexeme, tt.lexeme)
			}
			if toks[0].Str != tt.kind {
				t.Errorf("kind = %d, want %d", toks[0].Str, tt.kind)
			}
		})
	}
}

func TestLex_Positions(t *testing.T) {
	toks, err := LexFile("x = 1\n  \nfoo(bar)\n", "pos.qrs")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	var bar Token
	for _, tok := range toks {
		if tok.Lexeme == "bar" {
			bar = tok
		}
	}
	if bar.Pos.Line != 3 || bar.Pos.Column != 5 {
		t.Errorf("bar at %d:%d, want 3:5", bar.Pos.Line, bar.Pos.Column)
	}
	if bar.Pos.Filename != "pos.qrs" {
		t.Errorf("filename = %q", bar.Pos.Filename)
	}
	if bar.End-bar.Pos.Offset != 3 {
		t.Errorf("token length = %d, want 3", bar.End-bar.Pos.Offset)
	}
}

func TestLex_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantMsg    string
		line       int
		incomplete bool
	}{
		{"Unexpected character", "x = $", "unexpected character '$'", 1, false},
		{"Unmatched closer", "x = )", "unmatched closing ')'", 1, false},
		{"Unclosed bracket", "x = (1,\n", "unexpected end of input: unclosed '('", 2, true},
		{"Unterminated string", `x = "abc`, "unterminated string literal", 1, true},
		{"Newline in string", "x = \"abc\ny\"", "newline in single-quoted string", 1, false},
		{"Inconsistent dedent", "if x:\n        a\n    b\n", "inconsistent dedent", 3, false},
		{"Malformed hex", "0x", "malformed number literal", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			if err == nil {
				t.Fatalf("expected error for %q", tt.input)
			}
			le, ok := err.(*LexError)
			if !ok {
				t.Fatalf("expected *LexError, got %T", err)
			}
			if !strings.Contains(le.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", le.Message, tt.wantMsg)
			}
			if le.Pos.Line != tt.line {
				t.Errorf("line = %d, want %d", le.Pos.Line, tt.line)
			}
			if IsIncomplete(err) != tt.incomplete {
				t.Errorf("IsIncomplete = %v, want %v", IsIncomplete(err), tt.incomplete)
			}
		})
	}
}

func TestTokenType_String(t *testing.T) {
	if DOUBLESTAR_ASSIGN.String() != "DOUBLESTAR_ASSIGN" {
		t.Errorf("got %s", DOUBLESTAR_ASSIGN)
	}
	if got := TokenType(999).String(); got != "TokenType(999)" {
		t.Errorf("got %s", got)
	}
	if !PLUS_ASSIGN.IsAssignOp() || WALRUS.IsAssignOp() || EQUALS.IsAssignOp() {
		t.Error("IsAssignOp misclassifies operators")
	}
}

func TestLex_IndentBalance(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Nested blocks", "def f():\n    if x:\n        a\n    b\nc\n"},
		{"Blank lines with trailing spaces", "if x:\n    a\n   \n\t\n    b\n"},
		{"Dedented comment", "if x:\n    a\n# note\n    b\n"},
		{"Bracket continuation", "if x:\n    y = [1,\n  2,\n        3]\n    z = 4\n"},
		{"No final newline", "def f():\n    if x:\n        return 1"},
		{"Closing at depth", "class A:\n    def f(self):\n        pass\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex failed: %v", err)
			}
			depth := 0
			for _, tok := range toks {
				switch tok.Type {
				case INDENT:
					depth++
				case DEDENT:
					depth--
				}
				if depth < 0 {
					t.Fatalf("DEDENT without INDENT at %d:%d", tok.Pos.Line, tok.Pos.Column)
				}
			}
			if depth != 0 {
				t.Errorf("INDENT/DEDENT off by %d", depth)
			}
			if last := toks[len(toks)-1]; last.Type != EOF {
				t.Errorf("last token = %s, want EOF", last.Type)
			}
		})
	}
}

func TestLex_Deterministic(t *testing.T) {
	src := "type Shape = | Circle(float) | Rect(w: float, h: float)\n\ndef area(s: Shape) -> float:\n    match s:\n        case Circle(r):\n            return 3.14 * r ** 2\n        case _:\n            return f\"{s!r}\"\n"
	first, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	second, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("lexing the same source twice gave different token streams")
	}
}
