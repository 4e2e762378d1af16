package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Level indicates the severity of a diagnostic.
type Level int

const (
	LevelWarning Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Category names the pipeline stage that produced a diagnostic.
type Category int

const (
	CategoryLex Category = iota
	CategoryParse
	CategoryScope
	CategoryCodegen
)

func (c Category) String() string {
	switch c {
	case CategoryLex:
		return "lex"
	case CategoryParse:
		return "parse"
	case CategoryScope:
		return "scope"
	case CategoryCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// Diagnostic is a positioned message that can be rendered with a caret
// under the offending source text.
type Diagnostic struct {
	Level    Level
	Category Category
	Message  string
	Pos      lexer.Position
	Length   int    // caret run length; 0 renders a single caret
	Help     string // optional trailing hint
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Pos, d.Message)
}

// Format renders the diagnostic against src:
//
//	error: unexpected character '$'
//	  --> main.qrs:3:9
//	   |
//	 3 |     x = $
//	   |         ^
func (d Diagnostic) Format(src string, useColor bool) string {
	var sb strings.Builder

	paint := func(code, s string) {
		if useColor {
			sb.WriteString(code)
			sb.WriteString(s)
			sb.WriteString("\033[0m")
		} else {
			sb.WriteString(s)
		}
	}

	levelColor := "\033[1;31m"
	if d.Level == LevelWarning {
		levelColor = "\033[1;33m"
	}
	paint(levelColor, d.Level.String()+":")
	sb.WriteString(" ")
	sb.WriteString(d.Message)
	sb.WriteString("\n")
	paint("\033[1;34m", "  --> "+d.Pos.String())
	sb.WriteString("\n")

	if line, ok := sourceLine(src, d.Pos.Line); ok {
		num := fmt.Sprintf("%d", d.Pos.Line)
		gutter := strings.Repeat(" ", len(num)+1)
		fmt.Fprintf(&sb, "%s|\n%s | %s\n%s| ", gutter, num, line, gutter)
		if d.Pos.Column > 0 {
			sb.WriteString(strings.Repeat(" ", d.Pos.Column-1))
		}
		n := d.Length
		if n < 1 {
			n = 1
		}
		paint(levelColor, strings.Repeat("^", n))
		sb.WriteString("\n")
	}
	if d.Help != "" {
		sb.WriteString("  = help: ")
		sb.WriteString(d.Help)
		sb.WriteString("\n")
	}
	return sb.String()
}

// sourceLine returns the 1-based line n of src with tabs expanded to single
// spaces so caret columns line up.
func sourceLine(src string, n int) (string, bool) {
	if n < 1 {
		return "", false
	}
	lines := strings.Split(src, "\n")
	if n > len(lines) {
		return "", false
	}
	return strings.ReplaceAll(strings.TrimRight(lines[n-1], "\r"), "\t", " "), true
}

// LexError is a fatal tokenisation failure.
type LexError struct {
	Message string
	Pos     lexer.Position
}

func newLexError(pos lexer.Position, format string, args ...any) *LexError {
	return &LexError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, column %d (byte %d): %s", e.Pos.Line, e.Pos.Column, e.Pos.Offset, e.Message)
}

// Diagnostic converts the error for rendering.
func (e *LexError) Diagnostic() Diagnostic {
	return Diagnostic{Level: LevelError, Category: CategoryLex, Message: e.Message, Pos: e.Pos}
}

// ParseError is a fatal syntax error at a token.
type ParseError struct {
	Message string
	Pos     lexer.Position
	Length  int
	Snippet string // trimmed source line, when known

	incomplete bool // input ended before the construct did
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s\n  |> %s", e.Pos.Line, e.Message, e.Snippet)
}

// Diagnostic converts the error for rendering.
func (e *ParseError) Diagnostic() Diagnostic {
	return Diagnostic{Level: LevelError, Category: CategoryParse, Message: e.Message, Pos: e.Pos, Length: e.Length}
}

// IsIncomplete reports whether err came from input that ended in the middle
// of a construct, such as an open block or bracket. Interactive callers use it
// to keep reading lines.
func IsIncomplete(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.incomplete
	}
	var le *LexError
	if errors.As(err, &le) {
		return strings.HasPrefix(le.Message, "unexpected end of input") ||
			strings.HasPrefix(le.Message, "unterminated string literal")
	}
	return false
}

// AsDiagnostic extracts a renderable diagnostic from a pipeline error.
func AsDiagnostic(err error) (Diagnostic, bool) {
	var le *LexError
	if errors.As(err, &le) {
		return le.Diagnostic(), true
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Diagnostic(), true
	}
	var d Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return Diagnostic{}, false
}
