package compiler

import (
	"strings"
)

// parseStrings parses one or more adjacent string literals. Adjacent
// literals concatenate; any f-string among them makes the result a format!
// call.
func (p *Parser) parseStrings() (Expr, error) {
	first := p.peek()
	var toks []Token
	for p.peek().Type == STRING {
		toks = append(toks, p.advance())
	}

	formatted, bytes := false, 0
	for _, t := range toks {
		switch t.Str {
		case FormatString:
			formatted = true
		case ByteString:
			bytes++
		}
	}
	if bytes > 0 && bytes != len(toks) {
		return nil, p.fmtError(first, "cannot mix bytes and str literals")
	}
	if !formatted {
		var sb strings.Builder
		for _, t := range toks {
			sb.WriteString(t.Lexeme)
		}
		return &StringLit{Value: sb.String(), Bytes: bytes > 0}, nil
	}

	var sb strings.Builder
	var args []Expr
	for _, t := range toks {
		if t.Str != FormatString {
			sb.WriteString(escapeBraces(t.Lexeme))
			continue
		}
		text, fargs, err := p.parseFString(t)
		if err != nil {
			return nil, err
		}
		sb.WriteString(text)
		args = append(args, fargs...)
	}
	return &MacroCall{Name: "format", Args: append([]Expr{&StringLit{Value: sb.String(), Static: true}}, args...)}, nil
}

// parseFString splits an f-string into a format string and the argument
// expressions for its placeholders.
//
//	f"{x}"       "{}"        x
//	f"{x:>8}"    "{:>8}"     x
//	f"{x!r}"     "{:?}"      x
//	f"{x=}"      "x={:?}"    x
//	f"{{x}}"     "{{x}}"
func (p *Parser) parseFString(tok Token) (string, []Expr, error) {
	s := tok.Lexeme
	var out strings.Builder
	var args []Expr
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			out.WriteString("{{")
			i += 2
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			out.WriteString("}}")
			i += 2
		case c == '}':
			return "", nil, p.fmtError(tok, "single '}' is not allowed in f-string")
		case c == '{':
			end := fieldEnd(s, i+1)
			if end < 0 {
				return "", nil, p.fmtError(tok, "unterminated '{' in f-string")
			}
			f := splitField(s[i+1 : end])
			if strings.TrimSpace(f.expr) == "" {
				return "", nil, p.fmtError(tok, "empty expression in f-string")
			}
			e, err := p.subExpression(f.expr, tok)
			if err != nil {
				return "", nil, err
			}
			if f.debug {
				out.WriteString(escapeBraces(f.expr + "="))
			}
			switch {
			case f.spec != "" && f.conv == "r" && !strings.HasSuffix(f.spec, "?"):
				out.WriteString("{:" + f.spec + "?}")
			case f.spec != "":
				out.WriteString("{:" + f.spec + "}")
			case f.conv == "r" || f.debug:
				out.WriteString("{:?}")
			default:
				out.WriteString("{}")
			}
			args = append(args, e)
			i = end + 1
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), args, nil
}

// fieldEnd returns the index of the '}' closing a replacement field that
// starts at from, skipping nested brackets and quoted strings, or -1.
func fieldEnd(s string, from int) int {
	depth := 0
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']':
			depth--
		case c == '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

type fstringField struct {
	expr  string
	conv  string
	spec  string
	debug bool
}

// splitField splits `expr[=][!conv][:spec]` at bracket depth zero.
func splitField(field string) fstringField {
	var f fstringField
	depth := 0
	var quote byte
	exprEnd := len(field)
	for i := 0; i < len(field); i++ {
		c := field[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '!':
			if depth == 0 && i+1 < len(field) && field[i+1] != '=' && exprEnd == len(field) {
				exprEnd = i
				rest := field[i+1:]
				if colon := strings.IndexByte(rest, ':'); colon >= 0 {
					f.conv, f.spec = rest[:colon], rest[colon+1:]
				} else {
					f.conv = rest
				}
				i = len(field)
			}
		case ':':
			if depth == 0 && exprEnd == len(field) {
				exprEnd = i
				f.spec = field[i+1:]
				i = len(field)
			}
		}
	}
	f.expr = field[:exprEnd]
	trimmed := strings.TrimRight(f.expr, " ")
	if strings.HasSuffix(trimmed, "=") && !strings.HasSuffix(trimmed, "==") &&
		!strings.HasSuffix(trimmed, "!=") && !strings.HasSuffix(trimmed, "<=") && !strings.HasSuffix(trimmed, ">=") {
		f.debug = true
		f.expr = strings.TrimSuffix(trimmed, "=")
	}
	f.expr = strings.TrimSpace(f.expr)
	return f
}

// subExpression parses text as a standalone expression sharing this
// parser's scopes. Errors and tokens point at the enclosing literal.
func (p *Parser) subExpression(text string, at Token) (Expr, error) {
	tokens, err := LexFile(text, at.Pos.Filename)
	if err != nil {
		return nil, p.fmtError(at, "in f-string expression %q: %v", text, err)
	}
	for i := range tokens {
		tokens[i].Pos = at.Pos
		tokens[i].End = at.End
	}
	sub := &Parser{
		tokens:      tokens,
		sourceLines: p.sourceLines,
		syms:        p.syms,
		trace:       p.trace,
		nextAcc:     p.nextAcc,
		nextTmp:     p.nextTmp,
	}
	e, err := sub.parseExpression()
	if err != nil {
		return nil, err
	}
	sub.skipNewlines()
	if sub.peek().Type != EOF {
		return nil, p.fmtError(at, "unexpected %s in f-string expression %q", describe(sub.peek()), text)
	}
	p.nextAcc, p.nextTmp = sub.nextAcc, sub.nextTmp
	p.diags = append(p.diags, sub.diags...)
	return e, nil
}
