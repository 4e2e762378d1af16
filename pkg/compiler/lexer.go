package compiler

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"def":      DEF,
	"class":    CLASS,
	"type":     TYPE,
	"if":       IF,
	"elif":     ELIF,
	"else":     ELSE,
	"for":      FOR,
	"while":    WHILE,
	"match":    MATCH,
	"case":     CASE,
	"return":   RETURN,
	"pass":     PASS,
	"break":    BREAK,
	"continue": CONTINUE,
	"import":   IMPORT,
	"from":     FROM,
	"as":       AS,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
	"in":       IN,
	"is":       IS,
	"None":     NONE,
	"True":     TRUE,
	"False":    FALSE,
	"try":      TRY,
	"except":   EXCEPT,
	"finally":  FINALLY,
	"raise":    RAISE,
	"with":     WITH,
	"assert":   ASSERT,
	"lambda":   LAMBDA,
	"yield":    YIELD,
	"global":   GLOBAL,
	"nonlocal": NONLOCAL,
	"del":      DEL,
	"async":    ASYNC,
	"await":    AWAIT,
}

// Operators are matched longest first.
var threeCharOps = map[string]TokenType{
	"...": ELLIPSIS,
	"**=": DOUBLESTAR_ASSIGN,
	"//=": DOUBLESLASH_ASSIGN,
	"<<=": SHL_ASSIGN,
	">>=": SHR_ASSIGN,
}

var twoCharOps = map[string]TokenType{
	"**": DOUBLESTAR,
	"//": DOUBLESLASH,
	"==": EQUALS,
	"!=": NOT_EQ,
	"<=": LESS_EQ,
	">=": GREATER_EQ,
	"<<": SHL_OP,
	">>": SHR_OP,
	"->": ARROW,
	"+=": PLUS_ASSIGN,
	"-=": MINUS_ASSIGN,
	"*=": STAR_ASSIGN,
	"/=": SLASH_ASSIGN,
	"%=": PERCENT_ASSIGN,
	"|=": PIPE_ASSIGN,
	"&=": AMP_ASSIGN,
	"^=": CARET_ASSIGN,
	"@=": AT_ASSIGN,
	":=": WALRUS,
	"|>": PIPE_GT,
}

var oneCharOps = map[byte]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'%': PERCENT,
	'@': AT,
	'&': AMP,
	'|': PIPE,
	'^': CARET,
	'~': TILDE,
	'<': LESS,
	'>': GREATER,
	'=': ASSIGN,
	'.': DOT,
	',': COMMA,
	':': COLON,
	';': SEMICOLON,
	'(': LPAREN,
	')': RPAREN,
	'[': LBRACKET,
	']': RBRACKET,
	'{': LBRACE,
	'}': RBRACE,
	'!': BANG,
}

var closerFor = map[byte]byte{')': '(', ']': '[', '}': '{'}

// tabWidth is the column multiple a tab advances indentation to.
const tabWidth = 8

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src      string
	filename string
	pos      int // byte index of the next byte to consume
	line     int // current 1-based source line
	lineOff  int // byte offset where the current line starts

	indents     []int  // indentation stack, bottom is always 0
	brackets    []byte // open bracket stack; newlines are swallowed while non-empty
	atLineStart bool
	tokens      []Token
}

func newLexer(src, filename string) *Lexer {
	return &Lexer{
		src:         src,
		filename:    filename,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
}

// position returns the participle position of byte offset off on the current line.
func (l *Lexer) position(off int) lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   off,
		Line:     l.line,
		Column:   utf8.RuneCountInString(l.src[l.lineOff:off]) + 1,
	}
}

func (l *Lexer) errorf(off int, format string, args ...any) error {
	return newLexError(l.position(off), format, args...)
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

// advance consumes one byte and keeps line bookkeeping current.
func (l *Lexer) advance() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.lineOff = l.pos
	}
	return c
}

func (l *Lexer) emit(tt TokenType, lexeme string, pos lexer.Position) {
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: lexeme, Pos: pos, End: l.pos})
}

func (l *Lexer) lastType() TokenType {
	if len(l.tokens) == 0 {
		return EOF
	}
	return l.tokens[len(l.tokens)-1].Type
}

// measureIndent reads leading blanks of a line and returns the width.
func (l *Lexer) measureIndent() int {
	width := 0
	for {
		switch l.peek() {
		case ' ':
			width++
		case '\t':
			width = (width/tabWidth + 1) * tabWidth
		case '\f':
			width = 0
		default:
			return width
		}
		l.advance()
	}
}

// handleLineStart processes indentation at the beginning of a logical line.
// It reports false when the line was blank or comment-only and was skipped.
func (l *Lexer) handleLineStart() (bool, error) {
	width := l.measureIndent()
	switch l.peek() {
	case '\r':
		if l.peekAt(1) == '\n' {
			l.advance()
		}
		l.advance()
		return false, nil
	case '\n':
		l.advance()
		return false, nil
	case '#':
		l.skipComment()
		if l.peek() == '\n' {
			l.advance()
		}
		return false, nil
	case 0:
		return false, nil
	}

	pos := l.position(l.pos)
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		l.emit(INDENT, "", pos)
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.emit(DEDENT, "", pos)
		}
		if l.indents[len(l.indents)-1] != width {
			return false, l.errorf(l.pos, "inconsistent dedent: indentation %d matches no enclosing block", width)
		}
	}
	l.atLineStart = false
	return true, nil
}

func (l *Lexer) skipComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// endsOperand reports tokens after which '.' is member access, so that
// t.0.1 lexes as two tuple indexes rather than 0 and .1.
func endsOperand(tt TokenType) bool {
	switch tt {
	case IDENTIFIER, INTEGER, FLOAT, STRING, RPAREN, RBRACKET, RBRACE, DOT:
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// stringPrefix maps a lowercased literal prefix to its kind.
var stringPrefix = map[string]StringKind{
	"r":  RawString,
	"f":  FormatString,
	"b":  ByteString,
	"rf": FormatString,
	"fr": FormatString,
	"rb": ByteString,
	"br": ByteString,
}

// scanIdent collects an identifier, keyword, or a prefixed string literal.
func (l *Lexer) scanIdent() error {
	start := l.pos
	pos := l.position(start)
	for l.pos < len(l.src) && isIdentChar(l.peek()) {
		l.advance()
	}
	lexeme := l.src[start:l.pos]

	if q := l.peek(); q == '"' || q == '\'' {
		lower := strings.ToLower(lexeme)
		if kind, ok := stringPrefix[lower]; ok {
			return l.scanString(pos, kind, strings.Contains(lower, "r"))
		}
	}

	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	l.emit(tt, lexeme, pos)
	return nil
}

// scanDigits consumes digits accepted by ok plus '_' separators.
func (l *Lexer) scanDigits(ok func(byte) bool) int {
	n := 0
	for l.pos < len(l.src) && (ok(l.peek()) || l.peek() == '_') {
		if l.peek() != '_' {
			n++
		}
		l.advance()
	}
	return n
}

// scanNumber collects integer and float literals. Digit separators are
// dropped from the lexeme.
func (l *Lexer) scanNumber() error {
	start := l.pos
	pos := l.position(start)

	if l.peek() == '0' {
		var ok func(byte) bool
		switch l.peekAt(1) {
		case 'x', 'X':
			ok = isHexDigit
		case 'o', 'O':
			ok = func(c byte) bool { return c >= '0' && c <= '7' }
		case 'b', 'B':
			ok = func(c byte) bool { return c == '0' || c == '1' }
		}
		if ok != nil {
			l.advance()
			l.advance()
			if l.scanDigits(ok) == 0 {
				return l.errorf(start, "malformed number literal %q", l.src[start:l.pos])
			}
			l.emit(INTEGER, strings.ReplaceAll(l.src[start:l.pos], "_", ""), pos)
			return nil
		}
	}

	l.scanDigits(isDigit)
	tt := INTEGER

	// After a dot (t.0.1) only the integer part belongs to this token.
	if l.lastType() != DOT && l.peek() == '.' && !isIdentStart(l.peekAt(1)) && l.peekAt(1) != '.' {
		l.advance()
		l.scanDigits(isDigit)
		tt = FLOAT
	}
	if c := l.peek(); c == 'e' || c == 'E' {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			l.advance()
			if next == '+' || next == '-' {
				l.advance()
			}
			l.scanDigits(isDigit)
			tt = FLOAT
		}
	}
	l.emit(tt, strings.ReplaceAll(l.src[start:l.pos], "_", ""), pos)
	return nil
}

// scanString collects a quoted literal starting at the opening quote; any
// prefix has already been consumed. The decoded value becomes the lexeme.
func (l *Lexer) scanString(pos lexer.Position, kind StringKind, raw bool) error {
	quote := l.advance()
	triple := false
	if l.peek() == quote && l.peekAt(1) == quote {
		l.advance()
		l.advance()
		triple = true
	}

	var val strings.Builder
	for {
		if l.pos >= len(l.src) {
			return newLexError(pos, "unterminated string literal")
		}
		c := l.peek()
		if c == quote {
			if !triple {
				l.advance()
				break
			}
			if l.peekAt(1) == quote && l.peekAt(2) == quote {
				l.advance()
				l.advance()
				l.advance()
				break
			}
		}
		if c == '\n' && !triple {
			return l.errorf(l.pos, "newline in single-quoted string")
		}
		if c == '\\' {
			l.advance()
			next := l.peek()
			if next == 0 {
				return newLexError(pos, "unterminated string literal")
			}
			if raw {
				val.WriteByte('\\')
				val.WriteByte(l.advance())
				continue
			}
			l.advance()
			switch next {
			case 'n':
				val.WriteByte('\n')
			case 't':
				val.WriteByte('\t')
			case 'r':
				val.WriteByte('\r')
			case '\\':
				val.WriteByte('\\')
			case '"':
				val.WriteByte('"')
			case '\'':
				val.WriteByte('\'')
			case '0':
				val.WriteByte(0)
			case '\n':
				// line continuation inside the literal
			case 'x', 'u', 'U':
				if !l.numericEscape(&val, next, kind == ByteString) {
					val.WriteByte('\\')
					val.WriteByte(next)
				}
			default:
				val.WriteByte('\\')
				val.WriteByte(next)
			}
			continue
		}
		val.WriteByte(l.advance())
	}

	l.tokens = append(l.tokens, Token{Type: STRING, Lexeme: val.String(), Pos: pos, End: l.pos, Str: kind})
	return nil
}

// numericEscape decodes the digits of a \x, \u or \U escape whose letter has
// been consumed. Both \u{41} and \u0041 are accepted. Byte strings take \x
// as a raw byte and leave \u alone. It reports false, consuming nothing, when
// the digits are malformed.
func (l *Lexer) numericEscape(val *strings.Builder, letter byte, bytes bool) bool {
	start, end := l.pos, l.pos
	braced := false
	switch letter {
	case 'x':
		end += 2
	case 'u':
		if bytes {
			return false
		}
		if l.peek() == '{' {
			braced = true
			start++
			end = strings.IndexByte(l.src[start:], '}')
			if end < 1 || end > 6 {
				return false
			}
			end += start
		} else {
			end += 4
		}
	case 'U':
		if bytes {
			return false
		}
		end += 8
	}
	if end > len(l.src) {
		return false
	}
	digits := l.src[start:end]
	var v rune
	for i := 0; i < len(digits); i++ {
		d := hexValue(digits[i])
		if d < 0 {
			return false
		}
		v = v<<4 | rune(d)
	}
	if bytes {
		val.WriteByte(byte(v))
	} else {
		if !utf8.ValidRune(v) {
			return false
		}
		val.WriteRune(v)
	}
	l.pos = end
	if braced {
		l.pos++
	}
	return true
}

func hexValue(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// scanOperator matches the longest operator at the current position.
func (l *Lexer) scanOperator() error {
	start := l.pos
	pos := l.position(start)

	if l.pos+3 <= len(l.src) {
		if tt, ok := threeCharOps[l.src[l.pos:l.pos+3]]; ok {
			l.pos += 3
			l.emit(tt, l.src[start:l.pos], pos)
			return nil
		}
	}
	if l.pos+2 <= len(l.src) {
		if tt, ok := twoCharOps[l.src[l.pos:l.pos+2]]; ok {
			l.pos += 2
			l.emit(tt, l.src[start:l.pos], pos)
			return nil
		}
	}

	c := l.peek()
	tt, ok := oneCharOps[c]
	if !ok {
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return l.errorf(start, "unexpected character %q", r)
	}
	switch c {
	case '(', '[', '{':
		l.brackets = append(l.brackets, c)
	case ')', ']', '}':
		if len(l.brackets) == 0 || l.brackets[len(l.brackets)-1] != closerFor[c] {
			return l.errorf(start, "unmatched closing %q", c)
		}
		l.brackets = l.brackets[:len(l.brackets)-1]
	}
	l.advance()
	l.emit(tt, string(c), pos)
	return nil
}

// run tokenises the whole input.
func (l *Lexer) run() error {
	for l.pos < len(l.src) {
		if l.atLineStart && len(l.brackets) == 0 {
			ok, err := l.handleLineStart()
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}

		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\f' || c == '\r':
			l.advance()
		case c == '\\' && (l.peekAt(1) == '\n' || (l.peekAt(1) == '\r' && l.peekAt(2) == '\n')):
			// explicit line continuation
			l.advance()
			if l.peek() == '\r' {
				l.advance()
			}
			l.advance()
		case c == '#':
			l.skipComment()
		case c == '\n':
			if len(l.brackets) == 0 {
				if t := l.lastType(); t != NEWLINE && t != INDENT && t != DEDENT && t != EOF {
					l.emit(NEWLINE, "", l.position(l.pos))
				}
				l.atLineStart = true
			}
			l.advance()
		case isIdentStart(c):
			if err := l.scanIdent(); err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && isDigit(l.peekAt(1)) && !endsOperand(l.lastType())):
			if err := l.scanNumber(); err != nil {
				return err
			}
		case c == '"' || c == '\'':
			if err := l.scanString(l.position(l.pos), PlainString, false); err != nil {
				return err
			}
		case c >= utf8.RuneSelf:
			r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
			return l.errorf(l.pos, "unexpected character %q", r)
		default:
			if err := l.scanOperator(); err != nil {
				return err
			}
		}
	}

	if len(l.brackets) > 0 {
		return l.errorf(l.pos, "unexpected end of input: unclosed %q", l.brackets[len(l.brackets)-1])
	}

	end := l.position(l.pos)
	if t := l.lastType(); t != NEWLINE && t != DEDENT && t != EOF {
		l.emit(NEWLINE, "", end)
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(DEDENT, "", end)
	}
	l.emit(EOF, "", end)
	return nil
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It stops at the first lexical error.
func Lex(src string) ([]Token, error) {
	return LexFile(src, "")
}

// LexFile is Lex with a filename recorded in every token position.
func LexFile(src, filename string) ([]Token, error) {
	l := newLexer(src, filename)
	if err := l.run(); err != nil {
		return l.tokens, err
	}
	return l.tokens, nil
}
