package compiler

import "strings"

// Pattern grammar:
//
//	pattern   = atPattern ("|" atPattern)*
//	atPattern = IDENTIFIER "@" primary | primary ("as" IDENTIFIER)?
//	primary   = literal | "_" | name | dotted ("(" payload ")")?
//	          | "(" pattern, ... ")" | "[" pattern, "*" name, ... "]"
func (p *Parser) parsePattern() (Pattern, error) {
	first, err := p.parseAtPattern()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != PIPE {
		return first, nil
	}
	alts := []Pattern{first}
	for p.accept(PIPE) {
		alt, err := p.parseAtPattern()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return &OrPat{Alts: alts}, nil
}

func (p *Parser) parseAtPattern() (Pattern, error) {
	if p.peek().Type == IDENTIFIER && p.peekAt(1).Type == AT {
		name := p.advance()
		p.advance()
		inner, err := p.parsePrimaryPattern()
		if err != nil {
			return nil, err
		}
		return &BindingAtPat{Name: name.Lexeme, Pattern: inner}, nil
	}
	pat, err := p.parsePrimaryPattern()
	if err != nil {
		return nil, err
	}
	if p.accept(AS) {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return &BindingAtPat{Name: name.Lexeme, Pattern: pat}, nil
	}
	return pat, nil
}

func (p *Parser) parsePrimaryPattern() (Pattern, error) {
	tok := p.peek()
	switch tok.Type {
	case MINUS:
		p.advance()
		num, err := p.expect(INTEGER)
		if err != nil {
			return nil, err
		}
		return &IntPat{Value: "-" + num.Lexeme}, nil
	case INTEGER:
		p.advance()
		return &IntPat{Value: tok.Lexeme}, nil
	case FLOAT:
		return nil, p.fmtError(tok, "float literals cannot be used as patterns")
	case STRING:
		p.advance()
		if tok.Str == FormatString {
			return nil, p.fmtError(tok, "f-strings cannot be used as patterns")
		}
		return &StringPat{Value: tok.Lexeme}, nil
	case TRUE, FALSE:
		p.advance()
		return &BoolPat{Value: tok.Type == TRUE}, nil
	case NONE:
		p.advance()
		return &VariantPat{Path: []string{"None"}}, nil
	case LPAREN:
		p.advance()
		elems, err := p.parsePatternList(RPAREN)
		if err != nil {
			return nil, err
		}
		if len(elems) == 1 && p.tokens[p.pos-2].Type != COMMA {
			return elems[0], nil
		}
		return &TuplePat{Elems: elems}, nil
	case LBRACKET:
		return p.parseSlicePattern()
	case IDENTIFIER:
		return p.parseNamedPattern()
	}
	return nil, p.fmtError(tok, "expected a pattern, got %s", describe(tok))
}

// parsePatternList parses patterns up to and including close.
func (p *Parser) parsePatternList(close TokenType) ([]Pattern, error) {
	var elems []Pattern
	for p.peek().Type != close {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		elems = append(elems, pat)
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(close); err != nil {
		return nil, err
	}
	return elems, nil
}

// parseSlicePattern parses [a, *rest, b] and [a, *_].
func (p *Parser) parseSlicePattern() (Pattern, error) {
	open := p.advance() // [
	pat := &SlicePat{}
	for p.peek().Type != RBRACKET {
		if p.accept(STAR) {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if pat.Rest != "" {
				return nil, p.fmtError(name, "multiple starred names in sequence pattern")
			}
			pat.Rest = name.Lexeme
		} else {
			elem, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			if pat.Rest == "" {
				pat.Prefix = append(pat.Prefix, elem)
			} else {
				pat.Suffix = append(pat.Suffix, elem)
			}
		}
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, p.fmtError(open, "unterminated sequence pattern")
	}
	return pat, nil
}

// parseNamedPattern handles bindings, constants, unit variants, tuple
// variants and keyword-field struct patterns.
func (p *Parser) parseNamedPattern() (Pattern, error) {
	tok := p.peek()
	segs, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	segs = stripRustRoot(segs)

	if p.peek().Type != LPAREN {
		if len(segs) > 1 {
			return &VariantPat{Path: segs}, nil
		}
		name := segs[0]
		if name == "_" {
			return &WildcardPat{}, nil
		}
		return p.resolveBarePattern(name, tok), nil
	}

	p.advance() // (
	if len(segs) == 1 && p.syms.Classify(segs[0]) == ClassNone {
		if owner, ok := p.syms.VariantOwner(segs[0]); ok {
			segs = []string{owner, segs[0]}
		}
	}
	if p.peek().Type == IDENTIFIER && p.peekAt(1).Type == ASSIGN || p.peek().Type == ELLIPSIS {
		return p.parseFieldPatterns(segs)
	}
	payload, err := p.parsePatternList(RPAREN)
	if err != nil {
		return nil, err
	}
	if len(segs) == 1 {
		if def, ok := p.syms.GetStruct(segs[0]); ok && p.syms.Classify(segs[0]) == ClassStruct {
			return p.positionalStructPattern(segs, def.Fields, payload, tok)
		}
	}
	if len(segs) == 2 {
		if def, ok := p.syms.GetEnum(segs[0]); ok {
			if fields := def.Fields[segs[1]]; len(fields) > 0 {
				return p.positionalStructPattern(segs, fields, payload, tok)
			}
		}
	}
	return &VariantPat{Path: segs, Payload: payload, HasParens: true}, nil
}

// resolveBarePattern decides what a lone name means in a pattern: a known
// unit variant, a constant, or a fresh binding.
func (p *Parser) resolveBarePattern(name string, tok Token) Pattern {
	if _, local := p.syms.Lookup(name); !local {
		if p.syms.Classify(name) == ClassConst {
			return &VariantPat{Path: []string{name}}
		}
		if owner, ok := p.syms.VariantOwner(name); ok {
			return &VariantPat{Path: []string{owner, name}}
		}
		switch name {
		case "None":
			return &VariantPat{Path: []string{name}}
		}
	}
	if name[0] >= 'A' && name[0] <= 'Z' && strings.ToUpper(name) != name {
		p.warn(tok, "%s is not a known variant or constant; it binds a new name", name)
	}
	return &BindingPat{Name: name}
}

func (p *Parser) parseFieldPatterns(segs []string) (Pattern, error) {
	pat := &StructFieldsPat{Path: segs}
	for p.peek().Type != RPAREN {
		if p.accept(ELLIPSIS) {
			pat.HasRest = true
			break
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		sub, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		pat.Fields = append(pat.Fields, FieldPat{Name: name.Lexeme, Pattern: sub})
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return pat, nil
}

func (p *Parser) positionalStructPattern(segs, fields []string, payload []Pattern, tok Token) (Pattern, error) {
	if len(payload) > len(fields) {
		return nil, p.fmtError(tok, "%s has %d fields, pattern has %d", strings.Join(segs, "."), len(fields), len(payload))
	}
	pat := &StructFieldsPat{Path: segs, HasRest: len(payload) < len(fields)}
	for i, sub := range payload {
		pat.Fields = append(pat.Fields, FieldPat{Name: fields[i], Pattern: sub})
	}
	return pat, nil
}
