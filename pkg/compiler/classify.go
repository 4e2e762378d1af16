package compiler

import (
	"fmt"
	"unicode"
)

// classify runs before the main parse. It walks the top-level statements of
// the token stream and records what every declared name denotes, along with
// struct field order, enum variants and function signatures, so that a.b
// and keyword calls resolve the same way regardless of declaration order.
func (p *Parser) classify() error {
	type pendingSig struct {
		sig      FuncSig
		defaults [][]Token
	}
	type pendingAlt struct {
		name Token
		toks []Token
	}
	var sigs []pendingSig
	var alts []pendingAlt
	var decos []decorator

	declare := func(tok Token, c Class) {
		if prev, conflict := p.syms.DeclareGlobal(tok.Lexeme, c); conflict {
			p.warn(tok, "%s is declared as both %s and %s; keeping %s", tok.Lexeme, prev, c, prev)
			return
		}
		p.tracef("classify %s as %s", tok.Lexeme, c)
	}
	addSig := func(name string, toks []Token) {
		sig, defaults := signatureOf(name, toks)
		sigs = append(sigs, pendingSig{sig: sig, defaults: defaults})
	}

	for _, st := range topLevelStatements(p.tokens) {
		if len(st) < 2 {
			continue
		}
		head := st[0]
		switch head.Type {
		case AT:
			d := decorator{tok: head}
			if st[1].Type == IDENTIFIER {
				d.name = st[1].Lexeme
			}
			for _, t := range st {
				if t.Type == STRING {
					d.path = t.Lexeme
				}
			}
			decos = append(decos, d)
			continue

		case DEF:
			if st[1].Type == IDENTIFIER {
				if foreignPath(decos) != "" {
					declare(st[1], ClassForeign)
				} else {
					declare(st[1], ClassFunc)
					addSig(st[1].Lexeme, st)
				}
			}

		case CLASS:
			if st[1].Type != IDENTIFIER {
				break
			}
			name := st[1]
			for _, m := range suiteMethods(st) {
				addSig(name.Lexeme+"::"+m[1].Lexeme, m)
			}
			if _, ok := findDecorator(decos, "impl"); ok {
				break
			}
			switch classBase(st) {
			case "Trait":
				declare(name, ClassTrait)
			case "Enum":
				declare(name, ClassEnum)
				def := EnumDef{Name: name.Lexeme, Fields: make(map[string][]string)}
				for _, line := range suiteLines(st) {
					if line[0].Type == IDENTIFIER {
						def.Variants = append(def.Variants, line[0].Lexeme)
					}
				}
				p.syms.DefineEnum(def)
			default:
				declare(name, ClassStruct)
				if err := p.defineStructFromSuite(name.Lexeme, st); err != nil {
					return err
				}
			}

		case TYPE:
			if st[1].Type != IDENTIFIER {
				break
			}
			name := st[1]
			i := 2
			if i < len(st) && st[i].Type == LBRACKET {
				i = matchClose(st, i) + 1
			}
			if i >= len(st) {
				break
			}
			switch st[i].Type {
			case COLON:
				declare(name, ClassStruct)
				for _, m := range suiteMethods(st) {
					addSig(name.Lexeme+"::"+m[1].Lexeme, m)
				}
				if err := p.defineStructFromSuite(name.Lexeme, st); err != nil {
					return err
				}
			case ASSIGN:
				declare(name, ClassEnum)
				alts = append(alts, pendingAlt{name: name, toks: st[i+1:]})
			}

		case FROM:
			classifyImported(st, declare)

		case IMPORT:
			// import a.b [as c] binds c, or the last segment
			var last Token
			for j := 1; j < len(st); j++ {
				switch st[j].Type {
				case IDENTIFIER:
					last = st[j]
				case COMMA, NEWLINE:
					if last.Lexeme != "" {
						declare(last, ClassModule)
					}
					last = Token{}
				}
			}

		case IDENTIFIER:
			if st[1].Type == COLON {
				declare(head, ClassConst)
			}
		}
		decos = nil
	}

	// Alternatives and defaults can mention any top-level name, so they are
	// read only once every name is classified.
	for _, a := range alts {
		sub := p.subParser(layoutFree(a.toks))
		item, err := sub.parseAlternatives(a.name, nil)
		if err != nil {
			return err
		}
		if _, ok := item.(*AliasDecl); ok {
			p.syms.Reclassify(a.name.Lexeme, ClassAlias)
		}
		p.diags = append(p.diags, sub.diags...)
	}
	for _, ps := range sigs {
		for i, toks := range ps.defaults {
			if toks == nil {
				continue
			}
			sub := p.subParser(toks)
			e, err := sub.parseTernary()
			if err != nil {
				return err
			}
			ps.sig.Defaults[i] = e
		}
		p.syms.DefineFunc(ps.sig)
	}
	return nil
}

// subParser returns a parser over toks sharing this parser's tables.
func (p *Parser) subParser(toks []Token) *Parser {
	end := Token{Type: EOF}
	if len(toks) > 0 {
		last := toks[len(toks)-1]
		end.Pos, end.End = last.Pos, last.End
	}
	return &Parser{
		tokens:      append(append([]Token{}, toks...), end),
		sourceLines: p.sourceLines,
		syms:        p.syms,
		trace:       p.trace,
	}
}

// topLevelStatements splits tokens into top-level statements. A statement
// ends at a NEWLINE at depth zero, or with the DEDENT that closes its suite.
func topLevelStatements(tokens []Token) [][]Token {
	var out [][]Token
	depth, start := 0, 0
	for i, t := range tokens {
		switch t.Type {
		case INDENT:
			depth++
		case DEDENT:
			depth--
			if depth == 0 {
				out = append(out, tokens[start:i+1])
				start = i + 1
			}
		case NEWLINE:
			if depth != 0 {
				continue
			}
			if i+1 < len(tokens) && tokens[i+1].Type == INDENT {
				continue
			}
			out = append(out, tokens[start:i+1])
			start = i + 1
		}
	}
	return out
}

// matchClose returns the index of the bracket closing toks[open].
func matchClose(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks) - 1
}

// layoutFree drops NEWLINE, INDENT and DEDENT tokens.
func layoutFree(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for _, t := range toks {
		switch t.Type {
		case NEWLINE, INDENT, DEDENT:
			continue
		}
		out = append(out, t)
	}
	return out
}

// suiteLines returns the logical lines directly inside a statement's suite,
// without their NEWLINE terminators. Lines of nested suites are skipped.
func suiteLines(st []Token) [][]Token {
	var lines [][]Token
	depth := 0
	var cur []Token
	for _, t := range st {
		switch t.Type {
		case INDENT:
			depth++
			continue
		case DEDENT:
			depth--
			continue
		case NEWLINE:
			if depth == 1 && len(cur) > 0 {
				lines = append(lines, cur)
			}
			if depth == 1 {
				cur = nil
			}
			continue
		}
		if depth == 1 {
			cur = append(cur, t)
		}
	}
	return lines
}

// suiteMethods returns the token runs of the defs directly inside a suite.
func suiteMethods(st []Token) [][]Token {
	var defs [][]Token
	for _, line := range suiteLines(st) {
		if line[0].Type == DEF && len(line) > 1 && line[1].Type == IDENTIFIER {
			defs = append(defs, line)
		}
	}
	return defs
}

// classBase returns the first base name of `class Name(Base):`.
func classBase(st []Token) string {
	for i := 2; i < len(st); i++ {
		switch st[i].Type {
		case LBRACKET:
			i = matchClose(st, i)
		case LPAREN:
			if i+1 < len(st) && st[i+1].Type == IDENTIFIER {
				return st[i+1].Lexeme
			}
			return ""
		case COLON:
			return ""
		}
	}
	return ""
}

// defineStructFromSuite registers `field: Type` lines of a struct body.
func (p *Parser) defineStructFromSuite(name string, st []Token) error {
	def := StructDef{Name: name}
	for _, line := range suiteLines(st) {
		if len(line) < 3 || line[0].Type != IDENTIFIER || line[1].Type != COLON {
			continue
		}
		sub := p.subParser(line[2:])
		ty, err := sub.parseType()
		if err != nil {
			return err
		}
		def.Fields = append(def.Fields, line[0].Lexeme)
		def.Types = append(def.Types, ty)
	}
	p.syms.DefineStruct(def)
	return nil
}

// classifyImported marks each name brought in by `from m import a, b as c`.
func classifyImported(st []Token, declare func(Token, Class)) {
	i := 1
	for i < len(st) && st[i].Type != IMPORT {
		i++
	}
	var last Token
	for i++; i < len(st); i++ {
		switch st[i].Type {
		case IDENTIFIER:
			last = st[i]
		case COMMA, NEWLINE, RPAREN:
			if last.Lexeme != "" {
				declare(last, ClassForeign)
			}
			last = Token{}
		}
	}
	if last.Lexeme != "" {
		declare(last, ClassForeign)
	}
}

// signatureOf reads a def's parameter list from its tokens. Default values
// are returned as token runs to be parsed later.
func signatureOf(name string, st []Token) (FuncSig, [][]Token) {
	sig := FuncSig{Name: name}
	i := 2
	if i < len(st) && st[i].Type == LBRACKET {
		sig.Generic = true
		i = matchClose(st, i) + 1
	}
	if i >= len(st) || st[i].Type != LPAREN {
		return sig, nil
	}
	closeIdx := matchClose(st, i)

	var defaults [][]Token
	var params [][]Token
	depth, start := 0, i+1
	for j := i + 1; j <= closeIdx; j++ {
		switch st[j].Type {
		case LPAREN, LBRACKET, LBRACE:
			depth++
		case RPAREN, RBRACKET, RBRACE:
			if j == closeIdx {
				if j > start {
					params = append(params, st[start:j])
				}
				continue
			}
			depth--
		case COMMA:
			if depth == 0 {
				params = append(params, st[start:j])
				start = j + 1
			}
		}
	}

	for _, param := range params {
		if len(param) == 0 || param[0].Type != IDENTIFIER {
			continue
		}
		if param[0].Lexeme == "self" {
			sig.HasSelf = true
			continue
		}
		var def []Token
		owned := false
		depth := 0
		for k, t := range param {
			switch t.Type {
			case LPAREN, LBRACKET, LBRACE:
				depth++
			case RPAREN, RBRACKET, RBRACE:
				depth--
			case COLON:
				if depth == 0 && k == 1 && k+1 < len(param) && param[k+1].Type == IDENTIFIER {
					owned = complexTypeName(param[k+1].Lexeme)
				}
			case ASSIGN:
				if depth == 0 && def == nil {
					def = param[k+1:]
				}
			}
		}
		sig.Params = append(sig.Params, param[0].Lexeme)
		sig.Complex = append(sig.Complex, owned)
		defaults = append(defaults, def)
	}
	sig.Defaults = make([]Expr, len(sig.Params))
	return sig, defaults
}

// complexTypeName reports annotations whose values own heap data: strings,
// collections and any capitalised user or library type.
func complexTypeName(name string) bool {
	switch name {
	case "str", "list", "dict", "set":
		return true
	}
	return name != "" && unicode.IsUpper(rune(name[0]))
}

// ClassSummary lists every classified top-level name, for the check command.
func (s *SymbolTable) ClassSummary() []string {
	var out []string
	for _, name := range sortedKeys(s.globals) {
		out = append(out, fmt.Sprintf("%s %s", s.globals[name], name))
	}
	return out
}
