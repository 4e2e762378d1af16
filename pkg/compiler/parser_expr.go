package compiler

// Expression grammar, loosest binding first:
//
//	expression  = pipe
//	pipe        = ternary ("|>" callTarget)*
//	ternary     = or ("if" or "else" ternary)?
//	or          = and ("or" and)*
//	and         = not ("and" not)*
//	not         = "not" not | comparison
//	comparison  = bitor (compOp bitor)*
//	bitor       = bitxor ("|" bitxor)*
//	bitxor      = bitand ("^" bitand)*
//	bitand      = shift ("&" shift)*
//	shift       = additive (("<<" | ">>") additive)*
//	additive    = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "//" | "%") unary)*
//	unary       = ("-" | "+" | "~") unary | power
//	power       = postfix ("**" unary)?
//	postfix     = primary ("." name | "(" args ")" | "[" subscript "]" | "as" type)*

func (p *Parser) parseExpression() (Expr, error) {
	return p.parsePipe()
}

// parseExprList parses `a, b, c` into a TupleLit, or a single expression.
func (p *Parser) parseExprList() (Expr, error) {
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != COMMA {
		return first, nil
	}
	elems := []Expr{first}
	for p.accept(COMMA) {
		if p.atStatementEnd() || p.peek().Type == COLON || p.peek().Type == ASSIGN {
			break
		}
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	return &TupleLit{Elems: elems}, nil
}

// parsePipe handles x |> f(a), which calls f(x, a).
func (p *Parser) parsePipe() (Expr, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PIPE_GT {
		opTok := p.advance()
		if left, err = p.parsePipeTarget(left, opTok); err != nil {
			return nil, err
		}
	}
	return left, nil
}

// parsePipeTarget parses the callee on the right of |> and inserts left as
// its first argument before call lowering runs.
func (p *Parser) parsePipeTarget(left Expr, opTok Token) (Expr, error) {
	start := p.peek()
	switch start.Type {
	case PIPE, LAMBDA, LPAREN:
		callee, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Callee: callee, Args: []Expr{left}}, nil
	case IDENTIFIER:
	default:
		return nil, p.fmtError(start, "expected a function after '|>', got %s", describe(start))
	}

	callee, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	open := p.syms.IsPathRoot(start.Lexeme)
	for p.peek().Type == DOT {
		p.advance()
		member, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if open {
			path := callee.(*PathExpr)
			callee = &PathExpr{Segments: append(append([]string{}, path.Segments...), member.Lexeme)}
			root := p.syms.Classify(path.Segments[0])
			open = root == ClassModule || root == ClassForeign
			continue
		}
		callee = &FieldExpr{Base: callee, Name: member.Lexeme}
	}

	args := []Expr{left}
	var kwargs []kwarg
	callTok := opTok
	if p.peek().Type == LPAREN {
		callTok = p.advance()
		rest, kw, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		args = append(args, rest...)
		kwargs = kw
	}
	call, err := p.finishCall(callee, args, kwargs, callTok)
	if err != nil {
		return nil, err
	}
	return p.parsePostfixOps(call, false, start)
}

// parseTernary lowers `a if cond else b` to a two-armed match on cond.
func (p *Parser) parseTernary() (Expr, error) {
	body, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != IF {
		return body, nil
	}
	p.advance()
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ELSE); err != nil {
		return nil, err
	}
	orElse, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &MatchExpr{Scrutinee: cond, Arms: []MatchArm{
		{Pattern: &BoolPat{Value: true}, Value: body},
		{Pattern: &WildcardPat{}, Value: orElse},
	}}, nil
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.peek().Type == NOT {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: NOT, Operand: operand}, nil
	}
	return p.parseComparison()
}

// compOp reads a comparison operator, folding `not in` and `is not` into
// pseudo operators. ok is false when no comparison follows.
func (p *Parser) compOp() (compare, bool) {
	tok := p.peek()
	switch tok.Type {
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		p.advance()
		return compare{op: tok.Type}, true
	case IN:
		p.advance()
		return compare{op: IN}, true
	case NOT:
		if p.peekAt(1).Type == IN {
			p.advance()
			p.advance()
			return compare{op: IN, negate: true}, true
		}
	case IS:
		p.advance()
		return compare{op: IS, negate: p.accept(NOT)}, true
	}
	return compare{}, false
}

// parseComparison collects a whole chain, a < b <= c, and lowers it as one.
func (p *Parser) parseComparison() (Expr, error) {
	first, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	var ops []compare
	for {
		op, ok := p.compOp()
		if !ok {
			break
		}
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		operands = append(operands, right)
	}
	if len(ops) == 0 {
		return first, nil
	}
	return p.lowerComparison(operands, ops), nil
}

// parseBinaryLevel parses a left-associative level over the given operators.
func (p *Parser) parseBinaryLevel(next func() (Expr, error), ops ...TokenType) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		matched := false
		for _, op := range ops {
			if tok.Type == op {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: tok.Type, Left: left, Right: right}
	}
}

func (p *Parser) parseBitOr() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitXor, PIPE)
}

func (p *Parser) parseBitXor() (Expr, error) {
	return p.parseBinaryLevel(p.parseBitAnd, CARET)
}

func (p *Parser) parseBitAnd() (Expr, error) {
	return p.parseBinaryLevel(p.parseShift, AMP)
}

func (p *Parser) parseShift() (Expr, error) {
	return p.parseBinaryLevel(p.parseAdditive, SHL_OP, SHR_OP)
}

// parseAdditive gathers the full +/- chain so an all-'+' chain that involves
// a string can be lowered to one format! call.
func (p *Parser) parseAdditive() (Expr, error) {
	first, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	operands := []Expr{first}
	var ops []TokenType
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := p.advance().Type
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		operands = append(operands, right)
	}
	if len(ops) == 0 {
		return first, nil
	}
	if concat, ok := p.lowerConcat(operands, ops); ok {
		return concat, nil
	}
	left := operands[0]
	for i, op := range ops {
		left = &BinaryExpr{Op: op, Left: left, Right: operands[i+1]}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinaryLevel(p.parseUnary, STAR, SLASH, DOUBLESLASH, PERCENT)
}

func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case MINUS, TILDE:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: tok.Type, Operand: operand}, nil
	case PLUS:
		p.advance()
		return p.parseUnary()
	case AWAIT:
		return nil, p.fmtError(tok, "await is not supported")
	case STAR:
		return nil, p.fmtError(tok, "starred expression is only valid on the left of an assignment")
	}
	return p.parsePower()
}

// parsePower lowers a ** b to a method call; ** binds tighter than a unary
// minus on its left and is right associative.
func (p *Parser) parsePower() (Expr, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != DOUBLESTAR {
		return base, nil
	}
	p.advance()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.powCall(base, exp), nil
}

func (p *Parser) parsePostfix() (Expr, error) {
	start := p.peek()
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	open := false
	if pe, ok := expr.(*PathExpr); ok && start.Type == IDENTIFIER {
		open = p.syms.IsPathRoot(pe.Segments[0])
	}
	return p.parsePostfixOps(expr, open, start)
}

// parsePostfixOps applies member access, calls, subscripts and casts. open
// tracks whether expr is still a type or module path, where a.b means a::b.
func (p *Parser) parsePostfixOps(expr Expr, open bool, start Token) (Expr, error) {
	for {
		tok := p.peek()
		switch tok.Type {
		case DOT:
			p.advance()
			member := p.advance()
			if member.Type == INTEGER {
				expr = &FieldExpr{Base: expr, Name: member.Lexeme}
				open = false
				continue
			}
			if member.Type != IDENTIFIER {
				return nil, p.fmtError(member, "expected member name after '.', got %s", describe(member))
			}
			if open {
				path := expr.(*PathExpr)
				expr = &PathExpr{Segments: append(append([]string{}, path.Segments...), member.Lexeme)}
				root := p.syms.Classify(path.Segments[0])
				open = (root == ClassModule || root == ClassForeign) && p.peek().Type != LPAREN
				continue
			}
			if pe, ok := expr.(*PathExpr); ok && pe.Name() != "" {
				p.checkMemberBase(pe.Name(), start)
			}
			expr = &FieldExpr{Base: expr, Name: member.Lexeme}

		case LPAREN:
			p.advance()
			args, kwargs, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			if expr, err = p.finishCall(expr, args, kwargs, tok); err != nil {
				return nil, err
			}
			open = false

		case LBRACKET:
			p.advance()
			var err error
			if expr, err = p.parseSubscript(expr); err != nil {
				return nil, err
			}
			open = false

		case AS:
			p.advance()
			ty, err := p.parseType()
			if err != nil {
				return nil, err
			}
			expr = &CastExpr{Expr: expr, Type: ty}
			open = false

		default:
			return expr, nil
		}
	}
}

// checkMemberBase flags name.member where name is neither a binding nor a
// classified top-level name but looks like a type.
func (p *Parser) checkMemberBase(name string, tok Token) {
	if _, ok := p.syms.Lookup(name); ok || name == "self" {
		return
	}
	if p.syms.Classify(name) != ClassNone {
		return
	}
	if name[0] >= 'A' && name[0] <= 'Z' {
		p.warn(tok, "%s is not a declared type or module; member access is treated as a field", name)
	}
}

// kwarg is a name=value call argument.
type kwarg struct {
	name  string
	value Expr
	tok   Token
}

// parseCallArgs parses arguments after '(' up to and including ')'.
func (p *Parser) parseCallArgs() ([]Expr, []kwarg, error) {
	var args []Expr
	var kwargs []kwarg
	for p.peek().Type != RPAREN {
		tok := p.peek()
		if tok.Type == STAR || tok.Type == DOUBLESTAR {
			return nil, nil, p.fmtError(tok, "argument unpacking is not supported")
		}
		if tok.Type == IDENTIFIER && p.peekAt(1).Type == ASSIGN {
			p.advance()
			p.advance()
			value, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			kwargs = append(kwargs, kwarg{name: tok.Lexeme, value: value, tok: tok})
		} else {
			if len(kwargs) > 0 {
				return nil, nil, p.fmtError(tok, "positional argument follows keyword argument")
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			if p.peek().Type == FOR {
				if arg, err = p.parseComprehension(compList, arg, nil); err != nil {
					return nil, nil, err
				}
			}
			args = append(args, arg)
		}
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, nil, err
	}
	return args, kwargs, nil
}

// parseSubscript parses the inside of [...] after base: an index, a tuple
// index, or a start:end slice.
func (p *Parser) parseSubscript(base Expr) (Expr, error) {
	var start Expr
	var err error
	if p.peek().Type != COLON {
		if start, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if p.accept(COLON) {
		var end Expr
		if p.peek().Type != RBRACKET && p.peek().Type != COLON {
			if end, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		if p.peek().Type == COLON {
			return nil, p.fmtError(p.peek(), "slice steps are not supported")
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return &IndexExpr{Base: base, Index: &RangeExpr{Start: start, End: end}}, nil
	}
	if p.peek().Type == COMMA {
		elems := []Expr{start}
		for p.accept(COMMA) {
			if p.peek().Type == RBRACKET {
				break
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		start = &TupleLit{Elems: elems}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return &IndexExpr{Base: base, Index: start}, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		return &IntLit{Value: tok.Lexeme}, nil
	case FLOAT:
		p.advance()
		return &FloatLit{Value: tok.Lexeme}, nil
	case TRUE, FALSE:
		p.advance()
		return &BoolLit{Value: tok.Type == TRUE}, nil
	case NONE:
		p.advance()
		return &NoneLit{}, nil
	case STRING:
		return p.parseStrings()
	case IDENTIFIER:
		p.advance()
		if tok.Lexeme == "rust" && p.peek().Type == LPAREN {
			if _, shadowed := p.syms.Lookup("rust"); !shadowed {
				return nil, p.fmtError(tok, "rust(...) must be used as a statement")
			}
		}
		return &PathExpr{Segments: []string{tok.Lexeme}}, nil
	case LPAREN:
		return p.parseParen()
	case LBRACKET:
		return p.parseListDisplay()
	case LBRACE:
		return p.parseBraceDisplay()
	case PIPE:
		return p.parseBarClosure()
	case LAMBDA:
		return p.parseLambda()
	case EOF:
		return nil, p.fmtError(tok, "unexpected end of input")
	}
	return nil, p.fmtError(tok, "unexpected %s", describe(tok))
}

// displayElem parses one element of a tuple or list display, where *name is
// kept for destructuring targets.
func (p *Parser) displayElem() (Expr, error) {
	if p.peek().Type == STAR && p.peekAt(1).Type == IDENTIFIER {
		p.advance()
		return &StarExpr{Name: p.advance().Lexeme}, nil
	}
	return p.parseExpression()
}

func (p *Parser) parseParen() (Expr, error) {
	p.advance() // (
	if p.accept(RPAREN) {
		return &TupleLit{}, nil
	}
	first, err := p.displayElem()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == FOR {
		comp, err := p.parseComprehension(compList, first, nil)
		if err != nil {
			return nil, err
		}
		_, err = p.expect(RPAREN)
		return comp, err
	}
	if p.accept(RPAREN) {
		return first, nil
	}
	elems := []Expr{first}
	for p.accept(COMMA) {
		if p.peek().Type == RPAREN {
			break
		}
		e, err := p.displayElem()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &TupleLit{Elems: elems}, nil
}

func (p *Parser) parseListDisplay() (Expr, error) {
	p.advance() // [
	if p.accept(RBRACKET) {
		return &ArrayLit{}, nil
	}
	first, err := p.displayElem()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == FOR {
		comp, err := p.parseComprehension(compList, first, nil)
		if err != nil {
			return nil, err
		}
		_, err = p.expect(RBRACKET)
		return comp, err
	}
	elems := []Expr{first}
	for p.accept(COMMA) {
		if p.peek().Type == RBRACKET {
			break
		}
		e, err := p.displayElem()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return &ArrayLit{Elems: elems}, nil
}

// parseBraceDisplay parses dict and set displays and their comprehensions.
func (p *Parser) parseBraceDisplay() (Expr, error) {
	open := p.advance() // {
	if p.accept(RBRACE) {
		return &DictLit{}, nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if !p.accept(COLON) {
		if p.peek().Type == FOR {
			comp, err := p.parseComprehension(compSet, first, nil)
			if err != nil {
				return nil, err
			}
			_, err = p.expect(RBRACE)
			return comp, err
		}
		elems := []Expr{first}
		for p.accept(COMMA) {
			if p.peek().Type == RBRACE {
				break
			}
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expect(RBRACE); err != nil {
			return nil, err
		}
		return setLiteral(elems), nil
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == FOR {
		comp, err := p.parseComprehension(compDict, first, value)
		if err != nil {
			return nil, err
		}
		_, err = p.expect(RBRACE)
		return comp, err
	}
	dict := &DictLit{Keys: []Expr{first}, Values: []Expr{value}}
	for p.accept(COMMA) {
		if p.peek().Type == RBRACE {
			break
		}
		k, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, p.fmtError(open, "mixed set and dict display")
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		dict.Keys = append(dict.Keys, k)
		dict.Values = append(dict.Values, v)
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return dict, nil
}

// parseBarClosure parses |a, b: T| body.
func (p *Parser) parseBarClosure() (Expr, error) {
	p.advance() // |
	var params []Param
	for p.peek().Type != PIPE {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		param := Param{Name: name.Lexeme}
		if p.accept(COLON) {
			if param.Type, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		params = append(params, param)
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(PIPE); err != nil {
		return nil, err
	}
	return p.closureBody(params)
}

// parseLambda parses lambda a, b: body.
func (p *Parser) parseLambda() (Expr, error) {
	p.advance() // lambda
	var params []Param
	for p.peek().Type != COLON {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name.Lexeme})
		if !p.accept(COMMA) {
			break
		}
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	return p.closureBody(params)
}

func (p *Parser) closureBody(params []Param) (Expr, error) {
	p.syms.EnterScope()
	defer p.syms.ExitScope()
	for _, param := range params {
		p.syms.Declare(param.Name, descFromType(param.Type))
	}
	body, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ClosureExpr{Params: params, Value: body}, nil
}

// parseType parses a type annotation: Name, a.b.Name, Name[T, U], (A, B),
// None or _.
func (p *Parser) parseType() (TypeExpr, error) {
	tok := p.peek()
	switch tok.Type {
	case NONE:
		p.advance()
		return &TupleType{}, nil
	case LPAREN:
		p.advance()
		var elems []TypeExpr
		for p.peek().Type != RPAREN {
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elems = append(elems, t)
			if !p.accept(COMMA) {
				break
			}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &TupleType{Elems: elems}, nil
	case IDENTIFIER:
	default:
		return nil, p.fmtError(tok, "expected a type, got %s", describe(tok))
	}
	if tok.Lexeme == "_" {
		p.advance()
		return &InferType{}, nil
	}
	path, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	t := &NamedType{Path: stripRustRoot(path)}
	if p.accept(LBRACKET) {
		for p.peek().Type != RBRACKET {
			arg, err := p.parseType()
			if err != nil {
				return nil, err
			}
			t.Args = append(t.Args, arg)
			if !p.accept(COMMA) {
				break
			}
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
	}
	if len(t.Path) == 1 && (t.Path[0] == "tuple" || t.Path[0] == "Tuple") {
		return &TupleType{Elems: t.Args}, nil
	}
	return t, nil
}

// descOf derives a TypeDesc for an expression from what the parser knows.
func (p *Parser) descOf(e Expr) TypeDesc {
	return describeExpr(p.syms, e)
}
