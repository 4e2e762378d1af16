package compiler

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Layout
	NEWLINE // end of a logical line
	INDENT  // indentation increased
	DEDENT  // indentation decreased by one level

	// Literals
	IDENTIFIER // name
	INTEGER    // 42, 0xff, 0o17, 0b1010, 1_000
	FLOAT      // 1.5, 1., 2e10
	STRING     // "..." '...' """...""" with optional r/f/b prefix

	// Keywords
	DEF      // "def"
	CLASS    // "class"
	TYPE     // "type"
	IF       // "if"
	ELIF     // "elif"
	ELSE     // "else"
	FOR      // "for"
	WHILE    // "while"
	MATCH    // "match"
	CASE     // "case"
	RETURN   // "return"
	PASS     // "pass"
	BREAK    // "break"
	CONTINUE // "continue"
	IMPORT   // "import"
	FROM     // "from"
	AS       // "as"
	AND      // "and"
	OR       // "or"
	NOT      // "not"
	IN       // "in"
	IS       // "is"
	NONE     // "None"
	TRUE     // "True"
	FALSE    // "False"
	TRY      // "try"
	EXCEPT   // "except"
	FINALLY  // "finally"
	RAISE    // "raise"
	WITH     // "with"
	ASSERT   // "assert"
	LAMBDA   // "lambda"
	YIELD    // "yield"
	GLOBAL   // "global"
	NONLOCAL // "nonlocal"
	DEL      // "del"
	ASYNC    // "async"
	AWAIT    // "await"

	// Paired delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }

	// Punctuation
	DOT       // .
	COMMA     // ,
	COLON     // :
	SEMICOLON // ;
	ELLIPSIS  // ...
	ARROW     // ->
	AT        // @
	BANG      // !

	// Arithmetic / bitwise operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	DOUBLESTAR  // **
	DOUBLESLASH // //
	AMP         // &
	PIPE        // |
	CARET       // ^
	TILDE       // ~
	SHL_OP      // <<
	SHR_OP      // >>
	PIPE_GT     // |>

	// Assignment
	ASSIGN             // =
	WALRUS             // :=
	PLUS_ASSIGN        // +=
	MINUS_ASSIGN       // -=
	STAR_ASSIGN        // *=
	SLASH_ASSIGN       // /=
	PERCENT_ASSIGN     // %=
	PIPE_ASSIGN        // |=
	AMP_ASSIGN         // &=
	CARET_ASSIGN       // ^=
	AT_ASSIGN          // @=
	DOUBLESTAR_ASSIGN  // **=
	DOUBLESLASH_ASSIGN // //=
	SHL_ASSIGN         // <<=
	SHR_ASSIGN         // >>=

	// Comparison
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:                "EOF",
	NEWLINE:            "NEWLINE",
	INDENT:             "INDENT",
	DEDENT:             "DEDENT",
	IDENTIFIER:         "IDENTIFIER",
	INTEGER:            "INTEGER",
	FLOAT:              "FLOAT",
	STRING:             "STRING",
	DEF:                "DEF",
	CLASS:              "CLASS",
	TYPE:               "TYPE",
	IF:                 "IF",
	ELIF:               "ELIF",
	ELSE:               "ELSE",
	FOR:                "FOR",
	WHILE:              "WHILE",
	MATCH:              "MATCH",
	CASE:               "CASE",
	RETURN:             "RETURN",
	PASS:               "PASS",
	BREAK:              "BREAK",
	CONTINUE:           "CONTINUE",
	IMPORT:             "IMPORT",
	FROM:               "FROM",
	AS:                 "AS",
	AND:                "AND",
	OR:                 "OR",
	NOT:                "NOT",
	IN:                 "IN",
	IS:                 "IS",
	NONE:               "NONE",
	TRUE:               "TRUE",
	FALSE:              "FALSE",
	TRY:                "TRY",
	EXCEPT:             "EXCEPT",
	FINALLY:            "FINALLY",
	RAISE:              "RAISE",
	WITH:               "WITH",
	ASSERT:             "ASSERT",
	LAMBDA:             "LAMBDA",
	YIELD:              "YIELD",
	GLOBAL:             "GLOBAL",
	NONLOCAL:           "NONLOCAL",
	DEL:                "DEL",
	ASYNC:              "ASYNC",
	AWAIT:              "AWAIT",
	LPAREN:             "LPAREN",
	RPAREN:             "RPAREN",
	LBRACKET:           "LBRACKET",
	RBRACKET:           "RBRACKET",
	LBRACE:             "LBRACE",
	RBRACE:             "RBRACE",
	DOT:                "DOT",
	COMMA:              "COMMA",
	COLON:              "COLON",
	SEMICOLON:          "SEMICOLON",
	ELLIPSIS:           "ELLIPSIS",
	ARROW:              "ARROW",
	AT:                 "AT",
	BANG:               "BANG",
	PLUS:               "PLUS",
	MINUS:              "MINUS",
	STAR:               "STAR",
	SLASH:              "SLASH",
	PERCENT:            "PERCENT",
	DOUBLESTAR:         "DOUBLESTAR",
	DOUBLESLASH:        "DOUBLESLASH",
	AMP:                "AMP",
	PIPE:               "PIPE",
	CARET:              "CARET",
	TILDE:              "TILDE",
	SHL_OP:             "SHL_OP",
	SHR_OP:             "SHR_OP",
	PIPE_GT:            "PIPE_GT",
	ASSIGN:             "ASSIGN",
	WALRUS:             "WALRUS",
	PLUS_ASSIGN:        "PLUS_ASSIGN",
	MINUS_ASSIGN:       "MINUS_ASSIGN",
	STAR_ASSIGN:        "STAR_ASSIGN",
	SLASH_ASSIGN:       "SLASH_ASSIGN",
	PERCENT_ASSIGN:     "PERCENT_ASSIGN",
	PIPE_ASSIGN:        "PIPE_ASSIGN",
	AMP_ASSIGN:         "AMP_ASSIGN",
	CARET_ASSIGN:       "CARET_ASSIGN",
	AT_ASSIGN:          "AT_ASSIGN",
	DOUBLESTAR_ASSIGN:  "DOUBLESTAR_ASSIGN",
	DOUBLESLASH_ASSIGN: "DOUBLESLASH_ASSIGN",
	SHL_ASSIGN:         "SHL_ASSIGN",
	SHR_ASSIGN:         "SHR_ASSIGN",
	EQUALS:             "EQUALS",
	NOT_EQ:             "NOT_EQ",
	LESS:               "LESS",
	GREATER:            "GREATER",
	LESS_EQ:            "LESS_EQ",
	GREATER_EQ:         "GREATER_EQ",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsAssignOp reports whether tt is = or one of the augmented assignments.
func (tt TokenType) IsAssignOp() bool {
	return tt >= ASSIGN && tt <= SHR_ASSIGN && tt != WALRUS
}

// StringKind records the prefix a string literal was written with.
type StringKind int

const (
	PlainString StringKind = iota
	RawString
	FormatString // f"..."
	ByteString   // b"..."
)

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string         // source text, or the decoded value for STRING
	Pos    lexer.Position // byte offset, 1-based line and column of the first byte
	End    int            // byte offset one past the last byte
	Str    StringKind     // only meaningful for STRING
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  %d:%d", t.Type, t.Lexeme, t.Pos.Line, t.Pos.Column)
}
