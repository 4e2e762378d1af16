package compiler

// parseStatement parses one statement. Simple statements consume their
// terminator; compound statements end after their block. pass and ...
// yield a nil Stmt.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case RETURN:
		return p.parseReturn()
	case IF:
		p.advance()
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case FOR:
		return p.parseFor()
	case MATCH:
		return p.parseMatch()
	case ASSERT:
		return p.parseAssert()
	case PASS, ELLIPSIS:
		p.advance()
		return nil, p.endStatement()
	case BREAK:
		p.advance()
		return &BreakStmt{}, p.endStatement()
	case CONTINUE:
		p.advance()
		return &ContinueStmt{}, p.endStatement()
	case DEF:
		return nil, p.fmtError(tok, "nested def is not supported; use a lambda")
	case CLASS, TYPE:
		return nil, p.fmtError(tok, "%s declarations are only allowed at top level", tok.Lexeme)
	case IMPORT, FROM:
		return nil, p.fmtError(tok, "imports are only allowed at top level")
	case TRY, EXCEPT, FINALLY, RAISE, WITH, GLOBAL, NONLOCAL, DEL, YIELD, ASYNC, AWAIT:
		return nil, p.fmtError(tok, "unsupported statement %q", tok.Lexeme)
	case INDENT:
		return nil, p.fmtError(tok, "unexpected indent")
	}

	if tok.Type == IDENTIFIER {
		if code, ok := p.verbatimCall(); ok {
			return &VerbatimStmt{Code: code}, p.endStatement()
		}
	}
	stmt, err := p.parseExprOrAssign()
	if err != nil {
		return nil, err
	}
	return stmt, p.endStatement()
}

func (p *Parser) parseReturn() (Stmt, error) {
	p.advance()
	if p.atStatementEnd() {
		return &ReturnStmt{}, p.endStatement()
	}
	value, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	return &ReturnStmt{Value: value}, p.endStatement()
}

// parseIf parses the remainder of an if or elif: an elif chain nests as a
// single IfStmt in Else.
func (p *Parser) parseIf() (Stmt, error) {
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	then, err := p.parseScopedBlock(nil)
	if err != nil {
		return nil, err
	}
	stmt := &IfStmt{Cond: cond, Then: then}

	switch {
	case p.accept(ELIF):
		elif, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.Else = []Stmt{elif}
	case p.accept(ELSE):
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		if stmt.Else, err = p.parseScopedBlock(nil); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	body, err := p.parseScopedBlock(nil)
	if err != nil {
		return nil, err
	}
	if p.peek().Type == ELSE {
		return nil, p.fmtError(p.peek(), "while/else is not supported")
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

// parseFor parses `for target in iter:`. The target list becomes a pattern
// whose names are bound in the loop body scope.
func (p *Parser) parseFor() (Stmt, error) {
	p.advance()
	targetTok := p.peek()
	target, err := p.parseTargetList(IN)
	if err != nil {
		return nil, err
	}
	binding, err := p.exprToPattern(target, targetTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	elem := elemDesc(p.descOf(iter))
	body, err := p.parseScopedBlock(func() {
		p.declarePattern(binding, elem)
	})
	if err != nil {
		return nil, err
	}
	if p.peek().Type == ELSE {
		return nil, p.fmtError(p.peek(), "for/else is not supported")
	}
	return &ForStmt{Binding: binding, Iter: iter, Body: body}, nil
}

// parseMatch parses a match statement with its case arms.
func (p *Parser) parseMatch() (Stmt, error) {
	p.advance()
	scrutinee, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	if err := p.parseSuiteHeader(); err != nil {
		return nil, err
	}
	stmt := &MatchStmt{Scrutinee: scrutinee}
	for {
		p.skipNewlines()
		if p.accept(DEDENT) {
			break
		}
		if _, err := p.expect(CASE); err != nil {
			return nil, err
		}
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		arm := MatchArm{Pattern: pat}

		p.syms.EnterScope()
		p.declarePattern(pat, Unknown())
		if p.accept(IF) {
			if arm.Guard, err = p.parseExpression(); err != nil {
				p.syms.ExitScope()
				return nil, err
			}
		}
		if _, err := p.expect(COLON); err != nil {
			p.syms.ExitScope()
			return nil, err
		}
		arm.Body, err = p.parseBlock()
		p.syms.ExitScope()
		if err != nil {
			return nil, err
		}
		if arm.Body == nil {
			arm.Body = []Stmt{}
		}
		stmt.Arms = append(stmt.Arms, arm)
	}
	if len(stmt.Arms) == 0 {
		return nil, p.fmtError(p.peek(), "match needs at least one case")
	}
	return stmt, nil
}

// parseAssert lowers `assert cond[, msg]` to assert!.
func (p *Parser) parseAssert() (Stmt, error) {
	p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	args := []Expr{cond}
	if p.accept(COMMA) {
		msg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, &StringLit{Value: "{}", Static: true}, msg)
	}
	return &ExprStmt{Expr: &MacroCall{Name: "assert", Args: args}}, p.endStatement()
}

// parseTargetList parses a comma separated list of expressions on the left
// of '=' or after 'for', where *name markers are allowed. stop ends the list
// early (IN for loops).
func (p *Parser) parseTargetList(stop TokenType) (Expr, error) {
	var elems []Expr
	trailing := false
	for {
		var e Expr
		if p.peek().Type == STAR && p.peekAt(1).Type == IDENTIFIER {
			p.advance()
			e = &StarExpr{Name: p.advance().Lexeme}
		} else {
			var err error
			if stop == IN {
				// stop below the comparison level so `in` is left alone
				e, err = p.parseBitOr()
			} else {
				e, err = p.parseTernary()
			}
			if err != nil {
				return nil, err
			}
		}
		elems = append(elems, e)
		if p.peek().Type != COMMA {
			trailing = false
			break
		}
		p.advance()
		trailing = true
		if p.atStatementEnd() || p.peek().Type == stop || p.peek().Type == ASSIGN || p.peek().Type.IsAssignOp() {
			break
		}
	}
	if len(elems) == 1 && !trailing {
		return elems[0], nil
	}
	return &TupleLit{Elems: elems}, nil
}

// parseExprOrAssign parses an expression statement or any assignment form:
// annotated declaration, plain, augmented, tuple and starred destructuring.
func (p *Parser) parseExprOrAssign() (Stmt, error) {
	tok := p.peek()

	if tok.Type == IDENTIFIER && p.peekAt(1).Type == COLON {
		return p.parseAnnotatedAssign()
	}

	lhs, err := p.parseTargetList(EOF)
	if err != nil {
		return nil, err
	}

	opTok := p.peek()
	switch {
	case opTok.Type == ASSIGN:
		p.advance()
		value, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if p.peek().Type == ASSIGN {
			return nil, p.fmtError(p.peek(), "chained assignment is not supported")
		}
		return p.assignTo(lhs, value, tok)

	case opTok.Type.IsAssignOp():
		p.advance()
		if !isAssignable(lhs) {
			return nil, p.fmtError(tok, "invalid target for augmented assignment")
		}
		value, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Target: lhs, Op: opTok.Type, Value: value}, nil

	case opTok.Type == WALRUS:
		return nil, p.fmtError(opTok, "':=' is not supported")
	}

	if containsStar(lhs) {
		return nil, p.fmtError(tok, "starred expression is only valid on the left of an assignment")
	}
	return &ExprStmt{Expr: lhs}, nil
}

// parseAnnotatedAssign parses `name: Type [= value]`, always a declaration.
func (p *Parser) parseAnnotatedAssign() (Stmt, error) {
	name := p.advance()
	p.advance() // :
	ty, err := p.parseType()
	if err != nil {
		return nil, err
	}
	stmt := &AssignStmt{Target: &PathExpr{Segments: []string{name.Lexeme}}, Op: ASSIGN, Declare: true, Type: ty}
	if p.accept(ASSIGN) {
		if stmt.Value, err = p.parseExprList(); err != nil {
			return nil, err
		}
	}
	p.syms.Declare(name.Lexeme, descFromType(ty))
	return stmt, nil
}

// assignTo decides between declaration, reassignment and destructuring.
func (p *Parser) assignTo(lhs, value Expr, tok Token) (Stmt, error) {
	switch t := lhs.(type) {
	case *PathExpr:
		name := t.Name()
		if name == "" {
			return nil, p.fmtError(tok, "cannot assign to path %s", t)
		}
		if _, declared := p.syms.Lookup(name); declared {
			return &AssignStmt{Target: lhs, Op: ASSIGN, Value: value}, nil
		}
		if c := p.syms.Classify(name); c == ClassConst || c == ClassFunc {
			return nil, p.fmtError(tok, "cannot assign to %s %s", c, name)
		}
		p.syms.Declare(name, p.descOf(value))
		return &AssignStmt{Target: lhs, Op: ASSIGN, Value: value, Declare: true}, nil

	case *FieldExpr, *IndexExpr:
		return &AssignStmt{Target: lhs, Op: ASSIGN, Value: value}, nil

	case *TupleLit, *ArrayLit, *StarExpr:
		pat, err := p.exprToPattern(lhs, tok)
		if err != nil {
			return nil, err
		}
		declare := false
		for _, name := range patternBindings(pat) {
			if _, ok := p.syms.Lookup(name); !ok {
				declare = true
			}
		}
		if _, ok := pat.(*SlicePat); ok {
			declare = true
		}
		p.declarePattern(pat, p.descOf(value))
		return &DestructureStmt{Pattern: pat, Value: value, Declare: declare}, nil
	}
	return nil, p.fmtError(tok, "invalid assignment target %s", lhs)
}

func isAssignable(e Expr) bool {
	switch t := e.(type) {
	case *PathExpr:
		return t.Name() != ""
	case *FieldExpr, *IndexExpr:
		return true
	}
	return false
}

func containsStar(e Expr) bool {
	switch t := e.(type) {
	case *StarExpr:
		return true
	case *TupleLit:
		for _, el := range t.Elems {
			if containsStar(el) {
				return true
			}
		}
	case *ArrayLit:
		for _, el := range t.Elems {
			if containsStar(el) {
				return true
			}
		}
	}
	return false
}

// exprToPattern converts an assignment or loop target into a pattern. A
// starred element turns the sequence into a slice pattern.
func (p *Parser) exprToPattern(e Expr, tok Token) (Pattern, error) {
	switch t := e.(type) {
	case *PathExpr:
		name := t.Name()
		if name == "" {
			return nil, p.fmtError(tok, "invalid binding target %s", t)
		}
		if name == "_" {
			return &WildcardPat{}, nil
		}
		return &BindingPat{Name: name}, nil
	case *StarExpr:
		return nil, p.fmtError(tok, "starred target must be inside a sequence")
	case *TupleLit:
		return p.sequencePattern(t.Elems, false, tok)
	case *ArrayLit:
		return p.sequencePattern(t.Elems, true, tok)
	}
	return nil, p.fmtError(tok, "invalid binding target %s", e)
}

func (p *Parser) sequencePattern(elems []Expr, slice bool, tok Token) (Pattern, error) {
	star := -1
	for i, el := range elems {
		if _, ok := el.(*StarExpr); ok {
			if star >= 0 {
				return nil, p.fmtError(tok, "multiple starred expressions in assignment")
			}
			star = i
		}
	}
	pats := make([]Pattern, 0, len(elems))
	for i, el := range elems {
		if i == star {
			continue
		}
		pat, err := p.exprToPattern(el, tok)
		if err != nil {
			return nil, err
		}
		pats = append(pats, pat)
	}
	if star < 0 {
		if slice {
			return &SlicePat{Prefix: pats}, nil
		}
		return &TuplePat{Elems: pats}, nil
	}
	rest := elems[star].(*StarExpr).Name
	return &SlicePat{Prefix: pats[:star], Rest: rest, Suffix: pats[star:]}, nil
}

// patternBindings lists the names a pattern binds, in order.
func patternBindings(pat Pattern) []string {
	var names []string
	var walk func(Pattern)
	walk = func(pat Pattern) {
		switch t := pat.(type) {
		case *BindingPat:
			names = append(names, t.Name)
		case *BindingAtPat:
			names = append(names, t.Name)
			walk(t.Pattern)
		case *TuplePat:
			for _, e := range t.Elems {
				walk(e)
			}
		case *VariantPat:
			for _, e := range t.Payload {
				walk(e)
			}
		case *StructFieldsPat:
			for _, f := range t.Fields {
				walk(f.Pattern)
			}
		case *OrPat:
			if len(t.Alts) > 0 {
				walk(t.Alts[0])
			}
		case *SlicePat:
			for _, e := range t.Prefix {
				walk(e)
			}
			if t.Rest != "" && t.Rest != "_" {
				names = append(names, t.Rest)
			}
			for _, e := range t.Suffix {
				walk(e)
			}
		}
	}
	walk(pat)
	return names
}

// declarePattern binds every name in pat in the current scope. Tuple
// patterns against a tuple descriptor keep the element descriptors.
func (p *Parser) declarePattern(pat Pattern, desc TypeDesc) {
	declarePatternIn(p.syms, pat, desc)
}

func declarePatternIn(syms *SymbolTable, pat Pattern, desc TypeDesc) {
	switch t := pat.(type) {
	case *BindingPat:
		syms.Declare(t.Name, desc)
	case *TuplePat:
		for i, e := range t.Elems {
			elem := Unknown()
			if desc.Kind == DescTuple && i < len(desc.Elems) {
				elem = desc.Elems[i]
			}
			declarePatternIn(syms, e, elem)
		}
	default:
		for _, name := range patternBindings(pat) {
			syms.Declare(name, Unknown())
		}
	}
}
