package compiler

import (
	"fmt"
	"strings"
)

// compare is one link of a comparison chain. IN and IS stand for the
// membership and identity forms; negate turns them into not in / is not.
type compare struct {
	op     TokenType
	negate bool
}

func path(segs ...string) *PathExpr {
	return &PathExpr{Segments: segs}
}

func method(recv Expr, name string, args ...Expr) *CallExpr {
	return &CallExpr{Callee: &FieldExpr{Base: recv, Name: name}, Args: args}
}

func namedType(segs ...string) *NamedType {
	return &NamedType{Path: segs}
}

// isSimple reports operands that are safe to evaluate twice.
func isSimple(e Expr) bool {
	switch t := e.(type) {
	case *PathExpr, *IntLit, *FloatLit, *BoolLit, *StringLit, *NoneLit:
		return true
	case *FieldExpr:
		return isSimple(t.Base)
	case *UnaryExpr:
		return t.Op == MINUS && isSimple(t.Operand)
	}
	return false
}

// lowerComparison turns a < b < c into (a < b) && (b < c). When a middle
// operand is not simple, operands are bound to temporaries first so each is
// evaluated once and in source order.
func (p *Parser) lowerComparison(operands []Expr, ops []compare) Expr {
	if len(ops) == 1 {
		return p.compareExpr(ops[0], operands[0], operands[1])
	}

	bound := append([]Expr{}, operands...)
	needsTemps := false
	for _, mid := range operands[1 : len(operands)-1] {
		if !isSimple(mid) {
			needsTemps = true
		}
	}
	var stmts []Stmt
	if needsTemps {
		for i := 0; i < len(operands)-1; i++ {
			if isSimple(operands[i]) {
				continue
			}
			name := fmt.Sprintf("__cmp%d", p.nextTmp)
			p.nextTmp++
			stmts = append(stmts, &AssignStmt{Target: path(name), Op: ASSIGN, Value: operands[i], Declare: true})
			bound[i] = path(name)
		}
	}

	var chain Expr
	for i, op := range ops {
		c := p.compareExpr(op, bound[i], bound[i+1])
		if chain == nil {
			chain = c
		} else {
			chain = &BinaryExpr{Op: AND, Left: chain, Right: c}
		}
	}
	if len(stmts) > 0 {
		p.tracef("comparison chain bound %d temporaries", len(stmts))
		return &BlockExpr{Stmts: stmts, Value: chain}
	}
	return chain
}

func (p *Parser) compareExpr(c compare, left, right Expr) Expr {
	switch c.op {
	case IN:
		name := "contains"
		if p.descOf(right).IsMap() {
			name = "contains_key"
		}
		var e Expr = method(right, name, &UnaryExpr{Op: AMP, Operand: left})
		if c.negate {
			e = &UnaryExpr{Op: NOT, Operand: e}
		}
		return e
	case IS:
		if _, ok := right.(*NoneLit); ok {
			if c.negate {
				return method(left, "is_some")
			}
			return method(left, "is_none")
		}
		if c.negate {
			return &BinaryExpr{Op: NOT_EQ, Left: left, Right: right}
		}
		return &BinaryExpr{Op: EQUALS, Left: left, Right: right}
	}
	return &BinaryExpr{Op: c.op, Left: left, Right: right}
}

func escapeBraces(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

// isFormat reports a format! call whose first argument is its format string.
func isFormat(e Expr) (*MacroCall, bool) {
	m, ok := e.(*MacroCall)
	if !ok || m.Name != "format" || len(m.Args) == 0 {
		return nil, false
	}
	if s, ok := m.Args[0].(*StringLit); !ok || !s.Static {
		return nil, false
	}
	return m, true
}

func (p *Parser) isStringLike(e Expr) bool {
	switch t := e.(type) {
	case *StringLit:
		return !t.Bytes
	case *MacroCall:
		_, ok := isFormat(t)
		return ok
	case *CallExpr:
		if f, ok := t.Callee.(*FieldExpr); ok {
			switch f.Name {
			case "to_string", "to_uppercase", "to_lowercase":
				return true
			}
		}
	}
	return p.descOf(e).IsString()
}

// formatPieces appends e to a format string under construction, inlining
// literal text and nested format! calls.
func formatPieces(sb *strings.Builder, args []Expr, e Expr) []Expr {
	if s, ok := e.(*StringLit); ok && !s.Bytes && !s.Static {
		sb.WriteString(escapeBraces(s.Value))
		return args
	}
	if m, ok := isFormat(e); ok {
		sb.WriteString(m.Args[0].(*StringLit).Value)
		return append(args, m.Args[1:]...)
	}
	sb.WriteString("{}")
	return append(args, e)
}

// lowerConcat turns an all-'+' chain touching a string into one format!.
func (p *Parser) lowerConcat(operands []Expr, ops []TokenType) (Expr, bool) {
	for _, op := range ops {
		if op != PLUS {
			return nil, false
		}
	}
	stringy := false
	for _, e := range operands {
		if p.isStringLike(e) {
			stringy = true
			break
		}
	}
	if !stringy {
		return nil, false
	}
	var sb strings.Builder
	var args []Expr
	for _, e := range operands {
		args = formatPieces(&sb, args, e)
	}
	p.tracef("string concatenation of %d operands -> format!", len(operands))
	return &MacroCall{Name: "format", Args: append([]Expr{&StringLit{Value: sb.String(), Static: true}}, args...)}, true
}

func (p *Parser) isFloatish(e Expr) bool {
	if _, ok := e.(*FloatLit); ok {
		return true
	}
	d := p.descOf(e)
	return d.Kind == DescNamed && (d.base() == "f64" || d.base() == "f32")
}

// powCall lowers a ** b. Integer exponents are cast for pow; floats use powf.
func (p *Parser) powCall(base, exp Expr) Expr {
	if p.isFloatish(base) || p.isFloatish(exp) {
		return method(base, "powf", exp)
	}
	if _, ok := base.(*IntLit); ok {
		base = &CastExpr{Expr: base, Type: namedType("i64")}
	}
	return method(base, "pow", &CastExpr{Expr: exp, Type: namedType("u32")})
}

// finishCall lowers a parsed call: builtins, struct construction, keyword
// argument binding for registered functions, and plain calls.
func (p *Parser) finishCall(callee Expr, args []Expr, kwargs []kwarg, tok Token) (Expr, error) {
	pe, ok := callee.(*PathExpr)
	if !ok {
		return plainCall(callee, args, kwargs), nil
	}

	if name := pe.Name(); name != "" {
		_, local := p.syms.Lookup(name)
		class := p.syms.Classify(name)
		if !local && class == ClassNone {
			if e, ok, err := p.lowerBuiltin(name, args, kwargs, tok); ok || err != nil {
				return e, err
			}
		}
		if def, ok := p.syms.GetStruct(name); ok && !local && class == ClassStruct {
			return p.structLiteral(pe.Segments, def.Fields, args, kwargs, tok)
		}
		if sig, ok := p.syms.GetFunc(name); ok && !local && class == ClassFunc {
			bound, err := p.bindArgs(sig, args, kwargs, tok)
			if err != nil {
				return nil, err
			}
			return &CallExpr{Callee: callee, Args: bound}, nil
		}
		// a bare variant name resolves to its single declaring enum
		if owner, ok := p.syms.VariantOwner(name); ok && !local && class == ClassNone {
			pe = path(owner, name)
			callee = pe
		}
	}

	if len(pe.Segments) == 2 {
		if def, ok := p.syms.GetEnum(pe.Segments[0]); ok {
			if fields := def.Fields[pe.Segments[1]]; len(fields) > 0 {
				return p.structLiteral(pe.Segments, fields, args, kwargs, tok)
			}
		}
		if sig, ok := p.syms.GetFunc(strings.Join(pe.Segments, "::")); ok && !sig.HasSelf {
			bound, err := p.bindArgs(sig, args, kwargs, tok)
			if err != nil {
				return nil, err
			}
			return &CallExpr{Callee: callee, Args: bound}, nil
		}
	}
	return plainCall(callee, args, kwargs), nil
}

// plainCall appends keyword arguments of an unknown signature positionally,
// in source order.
func plainCall(callee Expr, args []Expr, kwargs []kwarg) *CallExpr {
	for _, kw := range kwargs {
		args = append(args, kw.value)
	}
	return &CallExpr{Callee: callee, Args: args}
}

// bindArgs places positional and keyword arguments into parameter order and
// fills the gaps from defaults.
func (p *Parser) bindArgs(sig FuncSig, args []Expr, kwargs []kwarg, tok Token) ([]Expr, error) {
	if len(kwargs) == 0 && len(args) >= len(sig.Params) {
		return args, nil
	}
	if len(args) > len(sig.Params) {
		return nil, p.fmtError(tok, "%s takes %d arguments, got %d", sig.Name, len(sig.Params), len(args)+len(kwargs))
	}
	slots := make([]Expr, len(sig.Params))
	copy(slots, args)
	var unmatched []kwarg
	for _, kw := range kwargs {
		i := indexOf(sig.Params, kw.name)
		if i < 0 {
			unmatched = append(unmatched, kw)
			continue
		}
		if slots[i] != nil {
			return nil, p.fmtError(kw.tok, "argument %q given more than once", kw.name)
		}
		slots[i] = kw.value
	}
	// keywords naming no parameter take the remaining slots in order
	next := 0
	for _, kw := range unmatched {
		for next < len(slots) && slots[next] != nil {
			next++
		}
		if next == len(slots) {
			return nil, p.fmtError(kw.tok, "%s takes %d arguments, got %d", sig.Name, len(sig.Params), len(args)+len(kwargs))
		}
		slots[next] = kw.value
	}
	for i, slot := range slots {
		if slot != nil {
			continue
		}
		if i < len(sig.Defaults) && sig.Defaults[i] != nil {
			slots[i] = sig.Defaults[i]
			continue
		}
		return nil, p.fmtError(tok, "missing argument %q in call to %s", sig.Params[i], sig.Name)
	}
	return slots, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// structLiteral builds a struct or struct-variant literal in declared field
// order from positional and keyword arguments.
func (p *Parser) structLiteral(segs []string, fields []string, args []Expr, kwargs []kwarg, tok Token) (Expr, error) {
	name := strings.Join(segs, ".")
	if len(args) > len(fields) {
		return nil, p.fmtError(tok, "%s has %d fields, got %d arguments", name, len(fields), len(args))
	}
	values := make([]Expr, len(fields))
	copy(values, args)
	for _, kw := range kwargs {
		i := indexOf(fields, kw.name)
		if i < 0 {
			return nil, p.fmtError(kw.tok, "%s has no field %q", name, kw.name)
		}
		if values[i] != nil {
			return nil, p.fmtError(kw.tok, "field %q given more than once", kw.name)
		}
		values[i] = kw.value
	}
	lit := &StructLit{Path: segs}
	for i, v := range values {
		if v == nil {
			return nil, p.fmtError(tok, "missing field %q in %s", fields[i], name)
		}
		lit.Fields = append(lit.Fields, FieldInit{Name: fields[i], Value: v})
	}
	return lit, nil
}

// lowerBuiltin rewrites calls to the built-in functions. ok is false when
// name is not one of them.
func (p *Parser) lowerBuiltin(name string, args []Expr, kwargs []kwarg, tok Token) (Expr, bool, error) {
	if name == "print" || name == "eprint" {
		e, err := p.lowerPrint(name, args, kwargs, tok)
		return e, true, err
	}

	arity := func(n ...int) error {
		for _, want := range n {
			if len(args) == want {
				return nil
			}
		}
		return p.fmtError(tok, "%s() takes %v arguments, got %d", name, n, len(args))
	}

	var e Expr
	switch name {
	case "len":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		e = &CastExpr{Expr: method(args[0], "len"), Type: namedType("i64")}
	case "range":
		if err := arity(1, 2, 3); err != nil {
			return nil, true, err
		}
		switch len(args) {
		case 1:
			e = &RangeExpr{Start: &IntLit{Value: "0"}, End: args[0]}
		case 2:
			e = &RangeExpr{Start: args[0], End: args[1]}
		default:
			step := &CastExpr{Expr: args[2], Type: namedType("usize")}
			e = method(&RangeExpr{Start: args[0], End: args[1]}, "step_by", step)
		}
	case "str":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		e = method(args[0], "to_string")
	case "int", "float":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		target := "i64"
		if name == "float" {
			target = "f64"
		}
		if p.isStringLike(args[0]) {
			parse := method(args[0], "parse")
			parse.TypeArgs = []TypeExpr{namedType(target)}
			e = method(parse, "unwrap")
		} else {
			e = &CastExpr{Expr: args[0], Type: namedType(target)}
		}
	case "cast":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		ty, err := exprToType(args[1])
		if err != nil {
			return nil, true, p.fmtError(tok, "cast: %v", err)
		}
		e = &CastExpr{Expr: args[0], Type: ty}
	case "abs":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		e = method(args[0], "abs")
	case "min", "max":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		e = method(args[0], name, args[1])
	case "list", "set":
		if err := arity(0, 1); err != nil {
			return nil, true, err
		}
		base := []string{"Vec"}
		if name == "set" {
			base = []string{"std", "collections", "HashSet"}
		}
		if len(args) == 0 {
			e = &CallExpr{Callee: path(append(base, "new")...)}
		} else {
			e = collectInto(method(args[0], "into_iter"), &NamedType{Path: base, Args: []TypeExpr{&InferType{}}})
		}
	case "dict":
		if err := arity(0); err != nil {
			return nil, true, err
		}
		e = &CallExpr{Callee: path("std", "collections", "HashMap", "new")}
	case "enumerate":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		e = method(method(args[0], "iter"), "enumerate")
	case "zip":
		if err := arity(2); err != nil {
			return nil, true, err
		}
		e = method(method(args[0], "iter"), "zip", method(args[1], "iter"))
	case "reversed":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		e = method(method(args[0], "iter"), "rev")
	case "sorted":
		if err := arity(1); err != nil {
			return nil, true, err
		}
		tmp := fmt.Sprintf("__sorted%d", p.nextTmp)
		p.nextTmp++
		e = &BlockExpr{
			Stmts: []Stmt{
				&AssignStmt{Target: path(tmp), Op: ASSIGN, Value: method(args[0], "clone"), Declare: true},
				&ExprStmt{Expr: method(path(tmp), "sort")},
			},
			Value: path(tmp),
		}
	default:
		return nil, false, nil
	}
	if len(kwargs) > 0 {
		return nil, true, p.fmtError(kwargs[0].tok, "%s() takes no keyword arguments", name)
	}
	p.tracef("builtin %s() lowered", name)
	return e, true, nil
}

func collectInto(iter Expr, into TypeExpr) *CallExpr {
	c := method(iter, "collect")
	c.TypeArgs = []TypeExpr{into}
	return c
}

// lowerPrint rewrites print(a, b, sep=..., end=...) to println!/print!.
func (p *Parser) lowerPrint(name string, args []Expr, kwargs []kwarg, tok Token) (Expr, error) {
	sep, end := " ", "\n"
	for _, kw := range kwargs {
		lit, ok := kw.value.(*StringLit)
		if !ok || lit.Bytes {
			return nil, p.fmtError(kw.tok, "%s(): %s must be a string literal", name, kw.name)
		}
		switch kw.name {
		case "sep":
			sep = lit.Value
		case "end":
			end = lit.Value
		default:
			return nil, p.fmtError(kw.tok, "%s(): unsupported keyword argument %q", name, kw.name)
		}
	}

	macro := strings.Replace(name, "print", "println", 1)
	var sb strings.Builder
	var rest []Expr
	for i, a := range args {
		if i > 0 {
			sb.WriteString(escapeBraces(sep))
		}
		rest = formatPieces(&sb, rest, a)
	}
	if end != "\n" {
		macro = name
		sb.WriteString(escapeBraces(end))
	}
	if sb.Len() == 0 && macro != name {
		return &MacroCall{Name: macro}, nil
	}
	return &MacroCall{Name: macro, Args: append([]Expr{&StringLit{Value: sb.String(), Static: true}}, rest...)}, nil
}

// exprToType reads a type written in expression position, as in cast(x, i64).
func exprToType(e Expr) (TypeExpr, error) {
	switch t := e.(type) {
	case *PathExpr:
		return &NamedType{Path: stripRustRoot(t.Segments)}, nil
	case *IndexExpr:
		base, err := exprToType(t.Base)
		if err != nil {
			return nil, err
		}
		named, ok := base.(*NamedType)
		if !ok {
			return nil, fmt.Errorf("%s is not a generic type", t.Base)
		}
		args := []Expr{t.Index}
		if tup, ok := t.Index.(*TupleLit); ok {
			args = tup.Elems
		}
		for _, a := range args {
			at, err := exprToType(a)
			if err != nil {
				return nil, err
			}
			named.Args = append(named.Args, at)
		}
		return named, nil
	case *TupleLit:
		tt := &TupleType{}
		for _, el := range t.Elems {
			et, err := exprToType(el)
			if err != nil {
				return nil, err
			}
			tt.Elems = append(tt.Elems, et)
		}
		return tt, nil
	case *NoneLit:
		return &TupleType{}, nil
	}
	return nil, fmt.Errorf("%s is not a type", e)
}

// setLiteral lowers {a, b} to a collected HashSet.
func setLiteral(elems []Expr) Expr {
	set := &NamedType{Path: []string{"std", "collections", "HashSet"}, Args: []TypeExpr{&InferType{}}}
	return collectInto(method(&ArrayLit{Elems: elems}, "into_iter"), set)
}

type compKind int

const (
	compList compKind = iota
	compSet
	compDict
)

type compClause struct {
	target Pattern
	iter   Expr
	conds  []Expr
}

// parseComprehension parses the for/if clauses following elem (and value,
// for dicts) and lowers the whole comprehension to an immediately invoked
// closure that fills a uniquely named accumulator.
func (p *Parser) parseComprehension(kind compKind, elem, value Expr) (Expr, error) {
	p.syms.EnterScope()
	defer p.syms.ExitScope()

	var clauses []compClause
	for p.accept(FOR) {
		tok := p.peek()
		target, err := p.parseTargetList(IN)
		if err != nil {
			return nil, err
		}
		pat, err := p.exprToPattern(target, tok)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(IN); err != nil {
			return nil, err
		}
		iter, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.declarePattern(pat, elemDesc(p.descOf(iter)))
		c := compClause{target: pat, iter: iter}
		for p.accept(IF) {
			cond, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			c.conds = append(c.conds, cond)
		}
		clauses = append(clauses, c)
	}

	acc := fmt.Sprintf("__acc%d", p.nextAcc)
	p.nextAcc++
	accPath := path(acc)

	var init Expr
	var add Stmt
	var result Expr = accPath
	switch kind {
	case compList:
		init = &CallExpr{Callee: path("Vec", "new")}
		add = &ExprStmt{Expr: method(accPath, "push", elem)}
	case compSet:
		init = &CallExpr{Callee: path("std", "collections", "HashSet", "new")}
		add = &ExprStmt{Expr: method(accPath, "insert", elem)}
	case compDict:
		init = &CallExpr{Callee: path("Vec", "new")}
		add = &ExprStmt{Expr: method(accPath, "push", &TupleLit{Elems: []Expr{elem, value}})}
		mapType := &NamedType{Path: []string{"std", "collections", "HashMap"}, Args: []TypeExpr{&InferType{}, &InferType{}}}
		result = collectInto(method(accPath, "into_iter"), mapType)
	}

	body := []Stmt{add}
	for i := len(clauses) - 1; i >= 0; i-- {
		c := clauses[i]
		if len(c.conds) > 0 {
			cond := c.conds[0]
			for _, more := range c.conds[1:] {
				cond = &BinaryExpr{Op: AND, Left: cond, Right: more}
			}
			body = []Stmt{&IfStmt{Cond: cond, Then: body}}
		}
		body = []Stmt{&ForStmt{Binding: c.target, Iter: c.iter, Body: body}}
	}
	stmts := append([]Stmt{&AssignStmt{Target: accPath, Op: ASSIGN, Value: init, Declare: true}}, body...)
	p.tracef("comprehension -> %s", acc)
	return &CallExpr{Callee: &ClosureExpr{Body: stmts, Value: result}}, nil
}

// descFromType converts an annotation into a descriptor.
func descFromType(t TypeExpr) TypeDesc {
	switch t := t.(type) {
	case *NamedType:
		segs := append([]string{}, t.Path...)
		segs[len(segs)-1] = canonicalTypeName(segs[len(segs)-1])
		if len(t.Args) == 0 {
			return Named(segs...)
		}
		args := make([]TypeDesc, len(t.Args))
		for i, a := range t.Args {
			args[i] = descFromType(a)
		}
		return Parametrized(segs[len(segs)-1], args...)
	case *TupleType:
		elems := make([]TypeDesc, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = descFromType(e)
		}
		return TupleOf(elems...)
	}
	return Unknown()
}

// elemDesc is the descriptor of one item produced by iterating over d.
func elemDesc(d TypeDesc) TypeDesc {
	switch {
	case d.Kind == DescParametrized && len(d.Elems) > 0:
		return d.Elems[0]
	case d.Kind == DescNamed && d.base() == "Range":
		return Named("i64")
	case d.IsString():
		return Named("char")
	}
	return Unknown()
}

// describeExpr derives a descriptor from an expression's shape and the
// bindings in scope.
func describeExpr(syms *SymbolTable, e Expr) TypeDesc {
	switch t := e.(type) {
	case *IntLit:
		return Named("i64")
	case *FloatLit:
		return Named("f64")
	case *BoolLit:
		return Named("bool")
	case *StringLit:
		if t.Bytes {
			return Parametrized("Vec", Named("u8"))
		}
		return Named("String")
	case *MacroCall:
		switch t.Name {
		case "format":
			return Named("String")
		case "vec":
			return Parametrized("Vec")
		}
	case *ArrayLit:
		if len(t.Elems) > 0 {
			return Parametrized("Vec", describeExpr(syms, t.Elems[0]))
		}
		return Parametrized("Vec")
	case *DictLit:
		if len(t.Keys) > 0 {
			return Parametrized("HashMap", describeExpr(syms, t.Keys[0]), describeExpr(syms, t.Values[0]))
		}
		return Parametrized("HashMap")
	case *TupleLit:
		elems := make([]TypeDesc, len(t.Elems))
		for i, el := range t.Elems {
			elems[i] = describeExpr(syms, el)
		}
		return TupleOf(elems...)
	case *StructLit:
		return Named(t.Path[0])
	case *PathExpr:
		if name := t.Name(); name != "" {
			if d, ok := syms.Lookup(name); ok {
				return d
			}
		}
	case *FieldExpr:
		base := describeExpr(syms, t.Base)
		if base.Kind == DescTuple {
			var i int
			if _, err := fmt.Sscan(t.Name, &i); err == nil && i < len(base.Elems) {
				return base.Elems[i]
			}
		}
		if def, ok := syms.GetStruct(base.base()); ok {
			if i := def.FieldIndex(t.Name); i >= 0 && i < len(def.Types) {
				return descFromType(def.Types[i])
			}
		}
	case *IndexExpr:
		base := describeExpr(syms, t.Base)
		if _, ok := t.Index.(*RangeExpr); ok {
			return base
		}
		if base.IsMap() && len(base.Elems) == 2 {
			return base.Elems[1]
		}
		if lit, ok := t.Index.(*IntLit); ok && base.Kind == DescTuple {
			var i int
			if _, err := fmt.Sscan(lit.Value, &i); err == nil && i < len(base.Elems) {
				return base.Elems[i]
			}
		}
		if base.IsList() {
			return elemDesc(base)
		}
	case *RangeExpr:
		return Named("Range")
	case *CastExpr:
		return descFromType(t.Type)
	case *BlockExpr:
		return describeExpr(syms, t.Value)
	case *BinaryExpr:
		switch t.Op {
		case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ, AND, OR:
			return Named("bool")
		}
		if d := describeExpr(syms, t.Left); d.Kind != DescUnknown {
			return d
		}
		return describeExpr(syms, t.Right)
	case *UnaryExpr:
		if t.Op == NOT {
			return Named("bool")
		}
		return describeExpr(syms, t.Operand)
	case *CallExpr:
		return describeCall(syms, t)
	}
	return Unknown()
}

func describeCall(syms *SymbolTable, c *CallExpr) TypeDesc {
	switch callee := c.Callee.(type) {
	case *ClosureExpr:
		if acc, ok := callee.Value.(*PathExpr); ok && len(callee.Body) > 0 {
			if init, ok := callee.Body[0].(*AssignStmt); ok && init.Target.String() == acc.String() {
				return describeExpr(syms, init.Value)
			}
		}
		return describeExpr(syms, callee.Value)
	case *FieldExpr:
		if len(c.TypeArgs) > 0 && (callee.Name == "collect" || callee.Name == "parse") {
			return descFromType(c.TypeArgs[0])
		}
		switch callee.Name {
		case "to_string", "to_uppercase", "to_lowercase", "join", "replace":
			return Named("String")
		case "clone", "unwrap":
			return describeExpr(syms, callee.Base)
		case "len":
			return Named("usize")
		case "contains", "contains_key", "starts_with", "ends_with", "is_empty", "is_none", "is_some":
			return Named("bool")
		}
	case *PathExpr:
		segs := callee.Segments
		if len(segs) >= 2 {
			owner := segs[len(segs)-2]
			switch segs[len(segs)-1] {
			case "new", "from", "with_capacity", "default":
				switch owner {
				case "Vec", "HashMap", "HashSet", "BTreeMap", "VecDeque":
					return Parametrized(owner)
				}
				return Named(canonicalTypeName(owner))
			}
		}
	}
	return Unknown()
}
