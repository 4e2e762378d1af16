package compiler

import (
	"fmt"
	"strings"
)

func (cg *CodeGen) block(stmts []Stmt) {
	for _, s := range stmts {
		cg.stmt(s)
	}
}

// scoped emits stmts one level deeper inside a fresh scope. declare runs
// after the scope opens, to bind loop variables and arm patterns.
func (cg *CodeGen) scoped(stmts []Stmt, declare func()) {
	cg.indent++
	cg.syms.EnterScope()
	if declare != nil {
		declare()
	}
	cg.block(stmts)
	cg.syms.ExitScope()
	cg.indent--
}

func (cg *CodeGen) stmt(s Stmt) {
	switch n := s.(type) {
	case *ExprStmt:
		cg.line("%s;", cg.expr(n.Expr))
	case *ReturnStmt:
		if n.Value == nil {
			cg.line("return;")
		} else {
			cg.line("return %s;", cg.expr(n.Value))
		}
	case *AssignStmt:
		cg.assign(n)
	case *DestructureStmt:
		cg.destructure(n)
	case *IfStmt:
		cg.ifStmt(n)
	case *WhileStmt:
		if b, ok := n.Cond.(*BoolLit); ok && b.Value {
			cg.line("loop {")
		} else {
			cg.line("while %s {", cg.expr(n.Cond))
		}
		cg.scoped(n.Body, nil)
		cg.line("}")
	case *ForStmt:
		iter := cg.forIter(n.Iter)
		elem := elemDesc(cg.desc(n.Iter))
		cg.line("for %s in %s {", cg.pattern(n.Binding), iter)
		cg.scoped(n.Body, func() { declarePatternIn(cg.syms, n.Binding, elem) })
		cg.line("}")
	case *MatchStmt:
		cg.matchStmt(n)
	case *BreakStmt:
		cg.line("break;")
	case *ContinueStmt:
		cg.line("continue;")
	case *VerbatimStmt:
		cg.raw(n.Code)
	default:
		cg.line("%s", cg.unhandled(s))
	}
}

func (cg *CodeGen) assign(a *AssignStmt) {
	if a.Declare {
		name := a.Target.String()
		desc := Unknown()
		if a.Type != nil {
			desc = descFromType(a.Type)
		} else if a.Value != nil {
			desc = cg.desc(a.Value)
		}
		var value string
		if a.Value != nil {
			value = cg.expr(a.Value)
		}
		cg.syms.Declare(name, desc)

		decl := "let mut " + name
		if a.Type != nil {
			decl += ": " + rustType(a.Type)
		}
		if a.Value == nil {
			cg.line("%s;", decl)
			return
		}
		cg.line("%s = %s;", decl, value)
		return
	}

	if idx, ok := a.Target.(*IndexExpr); ok && a.Op == ASSIGN && cg.desc(idx.Base).IsMap() {
		cg.line("%s.insert(%s, %s);", cg.receiver(idx.Base), cg.expr(idx.Index), cg.expr(a.Value))
		return
	}

	target := cg.place(a.Target)
	switch a.Op {
	case DOUBLESTAR_ASSIGN:
		if cg.isFloat(a.Target) || cg.isFloat(a.Value) {
			cg.line("%s = %s.powf(%s);", target, target, cg.expr(a.Value))
		} else {
			cg.line("%s = %s.pow(%s as u32);", target, target, cg.operand(a.Value, precCast))
		}
	default:
		cg.line("%s %s %s;", target, opText(a.Op), cg.expr(a.Value))
	}
}

func (cg *CodeGen) isFloat(e Expr) bool {
	if _, ok := e.(*FloatLit); ok {
		return true
	}
	d := cg.desc(e)
	return d.Kind == DescNamed && (d.base() == "f64" || d.base() == "f32")
}

// destructure emits tuple unpacking directly and sequence unpacking as a
// let-else over a slice, re-binding each name to an owned copy.
func (cg *CodeGen) destructure(d *DestructureStmt) {
	value := cg.expr(d.Value)
	desc := cg.desc(d.Value)
	defer declarePatternIn(cg.syms, d.Pattern, desc)

	sp, ok := d.Pattern.(*SlicePat)
	if !ok {
		if d.Declare {
			cg.line("let %s = %s;", cg.letPattern(d.Pattern), value)
		} else {
			cg.line("%s = %s;", cg.pattern(d.Pattern), value)
		}
		return
	}

	src := value
	if !isSimple(d.Value) {
		src = "(" + value + ")"
	}
	cg.line("let %s = &%s[..] else { panic!(%s) };", cg.pattern(sp), src,
		rustQuote(fmt.Sprintf("cannot unpack %s into %d names", d.Value, len(sp.Prefix)+len(sp.Suffix))))
	for _, q := range sp.Prefix {
		cg.ownBindings(q)
	}
	if sp.Rest != "" && sp.Rest != "_" {
		cg.line("let mut %s = %s.to_vec();", sp.Rest, sp.Rest)
	}
	for _, q := range sp.Suffix {
		cg.ownBindings(q)
	}
}

func (cg *CodeGen) ownBindings(p Pattern) {
	for _, name := range patternBindings(p) {
		cg.line("let mut %s = %s.clone();", name, name)
	}
}

func (cg *CodeGen) ifStmt(s *IfStmt) {
	cg.line("if %s {", cg.expr(s.Cond))
	cg.scoped(s.Then, nil)
	rest := s.Else
	for len(rest) == 1 {
		elif, ok := rest[0].(*IfStmt)
		if !ok {
			break
		}
		cg.line("} else if %s {", cg.expr(elif.Cond))
		cg.scoped(elif.Then, nil)
		rest = elif.Else
	}
	if len(rest) > 0 {
		cg.line("} else {")
		cg.scoped(rest, nil)
	}
	cg.line("}")
}

// forIter renders a loop iterable. Named containers are cloned so the loop
// does not consume them; maps iterate over their keys.
func (cg *CodeGen) forIter(e Expr) string {
	d := cg.desc(e)
	text := cg.receiver(e)
	switch e.(type) {
	case *PathExpr, *FieldExpr:
		switch {
		case d.IsMap():
			return text + ".keys().cloned()"
		case d.IsString():
			return text + ".chars()"
		case d.IsList():
			return text + ".clone()"
		}
	}
	return cg.expr(e)
}

func (cg *CodeGen) matchStmt(m *MatchStmt) {
	cg.line("match %s {", cg.scrutinee(m.Scrutinee, m.Arms))
	cg.indent++
	exhaustive := false
	for _, arm := range m.Arms {
		head := cg.pattern(arm.Pattern)
		if arm.Guard != nil {
			cg.syms.EnterScope()
			declarePatternIn(cg.syms, arm.Pattern, Unknown())
			head += " if " + cg.expr(arm.Guard)
			cg.syms.ExitScope()
		} else if irrefutable(arm.Pattern) {
			exhaustive = true
		}

		if len(arm.Body) == 1 {
			if es, ok := arm.Body[0].(*ExprStmt); ok && !multiline(es.Expr) {
				cg.syms.EnterScope()
				declarePatternIn(cg.syms, arm.Pattern, Unknown())
				cg.line("%s => { %s; }", head, cg.expr(es.Expr))
				cg.syms.ExitScope()
				continue
			}
		}
		if len(arm.Body) == 0 {
			cg.line("%s => {}", head)
			continue
		}
		cg.line("%s => {", head)
		cg.scoped(arm.Body, func() { declarePatternIn(cg.syms, arm.Pattern, Unknown()) })
		cg.line("}")
	}
	if !exhaustive && !cg.coversEnum(m.Arms) {
		cg.line("_ => {}")
	}
	cg.indent--
	cg.line("}")
}

// scrutinee matches string values through as_str so literal arms apply,
// and vectors through as_slice for sequence arms.
func (cg *CodeGen) scrutinee(e Expr, arms []MatchArm) string {
	for _, a := range arms {
		if hasStringPattern(a.Pattern) {
			return cg.receiver(e) + ".as_str()"
		}
	}
	for _, a := range arms {
		if _, ok := a.Pattern.(*SlicePat); ok {
			return cg.receiver(e) + ".as_slice()"
		}
	}
	return cg.expr(e)
}

func hasStringPattern(p Pattern) bool {
	switch t := p.(type) {
	case *StringPat:
		return true
	case *OrPat:
		for _, a := range t.Alts {
			if hasStringPattern(a) {
				return true
			}
		}
	case *BindingAtPat:
		return hasStringPattern(t.Pattern)
	}
	return false
}

func irrefutable(p Pattern) bool {
	switch t := p.(type) {
	case *WildcardPat, *BindingPat:
		return true
	case *BindingAtPat:
		return irrefutable(t.Pattern)
	}
	return false
}

// coversEnum reports whether the unguarded arms name every variant of one
// declared enum with irrefutable payloads.
func (cg *CodeGen) coversEnum(arms []MatchArm) bool {
	enum := ""
	covered := map[string]bool{}
	var visit func(p Pattern) bool
	visit = func(p Pattern) bool {
		var path []string
		switch t := p.(type) {
		case *OrPat:
			for _, alt := range t.Alts {
				if !visit(alt) {
					return false
				}
			}
			return true
		case *BindingAtPat:
			return visit(t.Pattern)
		case *VariantPat:
			for _, sub := range t.Payload {
				if !irrefutable(sub) {
					return true
				}
			}
			path = t.Path
		case *StructFieldsPat:
			for _, f := range t.Fields {
				if !irrefutable(f.Pattern) {
					return true
				}
			}
			path = t.Path
		default:
			return true
		}
		if len(path) != 2 || (enum != "" && path[0] != enum) {
			return false
		}
		enum = path[0]
		covered[path[1]] = true
		return true
	}
	for _, arm := range arms {
		if arm.Guard != nil {
			continue
		}
		if !visit(arm.Pattern) {
			return false
		}
	}
	def, ok := cg.syms.GetEnum(enum)
	if !ok || len(def.Variants) == 0 {
		return false
	}
	for _, v := range def.Variants {
		if !covered[v] {
			return false
		}
	}
	return true
}

// multiline reports expressions whose rendering spans several lines.
func multiline(e Expr) bool {
	switch t := e.(type) {
	case *BlockExpr:
		return true
	case *MatchExpr:
		return ternaryParts(t) == nil
	case *ClosureExpr:
		return len(t.Body) > 0
	case *CallExpr:
		if c, ok := t.Callee.(*ClosureExpr); ok {
			return len(c.Body) > 0
		}
	}
	return false
}

// pattern renders a match or loop pattern.
func (cg *CodeGen) pattern(p Pattern) string {
	return cg.renderPattern(p, false)
}

// letPattern renders a destructuring pattern whose bindings are mutable.
func (cg *CodeGen) letPattern(p Pattern) string {
	return cg.renderPattern(p, true)
}

func (cg *CodeGen) renderPattern(p Pattern, mut bool) string {
	sub := func(q Pattern) string { return cg.renderPattern(q, mut) }
	list := func(ps []Pattern) string {
		parts := make([]string, len(ps))
		for i, q := range ps {
			parts[i] = sub(q)
		}
		return strings.Join(parts, ", ")
	}

	switch t := p.(type) {
	case *IntPat:
		return t.Value
	case *BoolPat:
		return fmt.Sprintf("%t", t.Value)
	case *StringPat:
		return rustQuote(t.Value)
	case *WildcardPat:
		return "_"
	case *BindingPat:
		if mut {
			return "mut " + t.Name
		}
		return t.Name
	case *BindingAtPat:
		return fmt.Sprintf("%s @ %s", t.Name, sub(t.Pattern))
	case *TuplePat:
		if len(t.Elems) == 1 {
			return "(" + sub(t.Elems[0]) + ",)"
		}
		return "(" + list(t.Elems) + ")"
	case *VariantPat:
		name := strings.Join(t.Path, "::")
		if !t.HasParens {
			return name
		}
		return name + "(" + list(t.Payload) + ")"
	case *StructFieldsPat:
		parts := make([]string, 0, len(t.Fields)+1)
		for _, f := range t.Fields {
			if b, ok := f.Pattern.(*BindingPat); ok && b.Name == f.Name && !mut {
				parts = append(parts, f.Name)
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, sub(f.Pattern)))
		}
		if t.HasRest {
			parts = append(parts, "..")
		}
		return fmt.Sprintf("%s { %s }", strings.Join(t.Path, "::"), strings.Join(parts, ", "))
	case *OrPat:
		parts := make([]string, len(t.Alts))
		for i, a := range t.Alts {
			parts[i] = sub(a)
		}
		return strings.Join(parts, " | ")
	case *SlicePat:
		parts := make([]string, 0, len(t.Prefix)+len(t.Suffix)+1)
		for _, q := range t.Prefix {
			parts = append(parts, sub(q))
		}
		switch t.Rest {
		case "":
		case "_":
			parts = append(parts, "..")
		default:
			parts = append(parts, t.Rest+" @ ..")
		}
		for _, q := range t.Suffix {
			parts = append(parts, sub(q))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return cg.unhandled(p)
}
