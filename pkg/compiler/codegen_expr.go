package compiler

import (
	"fmt"
	"strings"
)

// checkMacro wraps calls whose result may be owned, borrowed, or an
// Option/Result that needs unwrapping.
const checkMacro = "crate::quiche::check!"

// mutatingMethods take &mut self on their receiver.
var mutatingMethods = map[string]bool{
	"append": true, "push": true, "pop": true, "clear": true, "reverse": true,
	"sort": true, "insert": true, "extend": true, "remove": true, "update": true,
	"add": true, "discard": true, "truncate": true, "retain": true,
}

// plainMethods are iterator and conversion steps inserted by lowering; their
// results never need the ownership macro.
var plainMethods = map[string]bool{
	"clone": true, "cloned": true, "iter": true, "into_iter": true, "enumerate": true,
	"zip": true, "rev": true, "collect": true, "step_by": true, "chars": true,
	"to_vec": true, "as_str": true, "to_string": true, "len": true, "keys": true,
	"values": true, "push": true, "sort": true, "unwrap": true, "parse": true,
	"pow": true, "powf": true, "abs": true, "is_none": true, "is_some": true,
	"contains": true, "contains_key": true, "to_uppercase": true, "to_lowercase": true,
}

// preludeVariants construct values without the ownership macro.
var preludeVariants = map[string]bool{"Some": true, "Ok": true, "Err": true}

func (cg *CodeGen) desc(e Expr) TypeDesc {
	return describeExpr(cg.syms, e)
}

// operand renders e, parenthesised when it binds looser than prec.
func (cg *CodeGen) operand(e Expr, prec int) string {
	text := cg.expr(e)
	if exprPrec(e) < prec {
		return "(" + text + ")"
	}
	return text
}

// receiver renders e in method-call or field position.
func (cg *CodeGen) receiver(e Expr) string {
	return cg.operand(e, precPostfix)
}

// place renders an assignment target: no copies are taken.
func (cg *CodeGen) place(e Expr) string {
	switch t := e.(type) {
	case *IndexExpr:
		base := cg.place(t.Base)
		if exprPrec(t.Base) < precPostfix {
			base = "(" + base + ")"
		}
		if cg.desc(t.Base).IsMap() {
			return fmt.Sprintf("*%s.get_mut(%s).unwrap()", base, cg.keyRef(t.Index))
		}
		return fmt.Sprintf("%s[%s]", base, cg.usizeIndex(t.Index, base))
	case *FieldExpr:
		return cg.place(t.Base) + "." + t.Name
	}
	return cg.expr(e)
}

func (cg *CodeGen) expr(e Expr) string {
	switch n := e.(type) {
	case *IntLit:
		return n.Value
	case *FloatLit:
		return n.Value
	case *BoolLit:
		return fmt.Sprintf("%t", n.Value)
	case *StringLit:
		switch {
		case n.Bytes:
			return byteQuote(n.Value) + ".to_vec()"
		case n.Static:
			return rustQuote(n.Value)
		}
		return "String::from(" + rustQuote(n.Value) + ")"
	case *NoneLit:
		return "None"
	case *PathExpr:
		return cg.pathValue(n)
	case *BinaryExpr:
		return cg.binary(n)
	case *UnaryExpr:
		return opText(n.Op) + cg.operand(n.Operand, precUnary)
	case *CallExpr:
		return cg.call(n)
	case *FieldExpr:
		return cg.receiver(n.Base) + "." + n.Name
	case *IndexExpr:
		return cg.index(n)
	case *ArrayLit:
		return "vec![" + cg.list(n.Elems) + "]"
	case *TupleLit:
		if len(n.Elems) == 1 {
			return "(" + cg.expr(n.Elems[0]) + ",)"
		}
		return "(" + cg.list(n.Elems) + ")"
	case *DictLit:
		if len(n.Keys) == 0 {
			return "std::collections::HashMap::new()"
		}
		pairs := make([]string, len(n.Keys))
		for i := range n.Keys {
			pairs[i] = fmt.Sprintf("(%s, %s)", cg.expr(n.Keys[i]), cg.expr(n.Values[i]))
		}
		return "std::collections::HashMap::from([" + strings.Join(pairs, ", ") + "])"
	case *StructLit:
		if len(n.Fields) == 0 {
			return strings.Join(n.Path, "::") + " {}"
		}
		fields := make([]string, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = fmt.Sprintf("%s: %s", f.Name, cg.expr(f.Value))
		}
		return fmt.Sprintf("%s { %s }", strings.Join(n.Path, "::"), strings.Join(fields, ", "))
	case *ClosureExpr:
		return cg.closure(n)
	case *RangeExpr:
		var sb strings.Builder
		if n.Start != nil {
			sb.WriteString(cg.operand(n.Start, precOr))
		}
		if n.Inclusive {
			sb.WriteString("..=")
		} else {
			sb.WriteString("..")
		}
		if n.End != nil {
			sb.WriteString(cg.operand(n.End, precOr))
		}
		return sb.String()
	case *MatchExpr:
		return cg.matchExpr(n)
	case *CastExpr:
		return cg.operand(n.Expr, precCast) + " as " + rustType(n.Type)
	case *MacroCall:
		return n.Name + "!(" + cg.list(n.Args) + ")"
	case *BlockExpr:
		return cg.blockExpr(n.Stmts, n.Value)
	}
	return cg.unhandled(e)
}

func (cg *CodeGen) list(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = cg.expr(e)
	}
	return strings.Join(parts, ", ")
}

// pathValue renders a name or path used as a value. A bare unit variant is
// qualified with the single enum that declares it.
func (cg *CodeGen) pathValue(p *PathExpr) string {
	if name := p.Name(); name != "" {
		if _, local := cg.syms.Lookup(name); !local && cg.syms.Classify(name) == ClassNone {
			if owner, ok := cg.syms.VariantOwner(name); ok {
				return owner + "::" + name
			}
		}
		return name
	}
	return strings.Join(p.Segments, "::")
}

func (cg *CodeGen) binary(b *BinaryExpr) string {
	prec := binaryPrec(b.Op)
	left := cg.operand(b.Left, prec)
	if _, isCast := b.Left.(*CastExpr); isCast && (b.Op == LESS || b.Op == SHL_OP) {
		left = "(" + cg.expr(b.Left) + ")"
	}
	// Comparisons do not chain in the target, and every operator is left
	// associative, so an equal-precedence right operand needs parentheses.
	right := cg.operand(b.Right, prec+1)
	if prec == precCompare && exprPrec(b.Left) == precCompare {
		left = "(" + cg.expr(b.Left) + ")"
	}
	return fmt.Sprintf("%s %s %s", left, opText(b.Op), right)
}

// blockExpr renders { stmts; value } at the current indentation.
func (cg *CodeGen) blockExpr(stmts []Stmt, value Expr) string {
	body := cg.capture(func() {
		cg.indent++
		cg.syms.EnterScope()
		cg.block(stmts)
		if value != nil {
			cg.line("%s", cg.expr(value))
		}
		cg.syms.ExitScope()
		cg.indent--
	})
	return "{\n" + body + strings.Repeat(cg.unit, cg.indent) + "}"
}

func (cg *CodeGen) closure(c *ClosureExpr) string {
	params := make([]string, len(c.Params))
	for i, p := range c.Params {
		if p.Type != nil {
			params[i] = fmt.Sprintf("%s: %s", p.Name, rustType(p.Type))
		} else {
			params[i] = p.Name
		}
	}
	head := "|" + strings.Join(params, ", ") + "|"

	cg.syms.EnterScope()
	defer cg.syms.ExitScope()
	for _, p := range c.Params {
		cg.syms.Declare(p.Name, descFromType(p.Type))
	}
	if len(c.Body) == 0 {
		if c.Value == nil {
			return head + " {}"
		}
		return head + " " + cg.expr(c.Value)
	}
	return head + " " + cg.blockExpr(c.Body, c.Value)
}

// ternaryParts recognises the lowering of `a if cond else b`.
func ternaryParts(m *MatchExpr) []Expr {
	if len(m.Arms) != 2 || m.Arms[0].Guard != nil || m.Arms[1].Guard != nil {
		return nil
	}
	t, ok := m.Arms[0].Pattern.(*BoolPat)
	if !ok || !t.Value {
		return nil
	}
	if _, ok := m.Arms[1].Pattern.(*WildcardPat); !ok {
		return nil
	}
	if m.Arms[0].Value == nil || m.Arms[1].Value == nil {
		return nil
	}
	return []Expr{m.Scrutinee, m.Arms[0].Value, m.Arms[1].Value}
}

func (cg *CodeGen) matchExpr(m *MatchExpr) string {
	if parts := ternaryParts(m); parts != nil {
		return fmt.Sprintf("if %s { %s } else { %s }", cg.expr(parts[0]), cg.expr(parts[1]), cg.expr(parts[2]))
	}
	body := cg.capture(func() {
		cg.indent++
		for _, arm := range m.Arms {
			cg.syms.EnterScope()
			declarePatternIn(cg.syms, arm.Pattern, Unknown())
			head := cg.pattern(arm.Pattern)
			if arm.Guard != nil {
				head += " if " + cg.expr(arm.Guard)
			}
			if len(arm.Body) == 0 && arm.Value != nil {
				cg.line("%s => %s,", head, cg.expr(arm.Value))
			} else {
				cg.line("%s => %s,", head, cg.blockExpr(arm.Body, arm.Value))
			}
			cg.syms.ExitScope()
		}
		cg.indent--
	})
	return fmt.Sprintf("match %s {\n%s%s}", cg.scrutinee(m.Scrutinee, m.Arms), body, strings.Repeat(cg.unit, cg.indent))
}

// call renders a call. Function, method and foreign calls go through the
// ownership macro; closures, macros and constructors do not.
func (cg *CodeGen) call(c *CallExpr) string {
	turbofish := ""
	if len(c.TypeArgs) > 0 {
		args := make([]string, len(c.TypeArgs))
		for i, t := range c.TypeArgs {
			args[i] = rustType(t)
		}
		turbofish = "::<" + strings.Join(args, ", ") + ">"
	}

	switch callee := c.Callee.(type) {
	case *ClosureExpr:
		return "(" + cg.closure(callee) + ")(" + cg.list(c.Args) + ")"
	case *FieldExpr:
		return cg.methodCall(callee.Base, callee.Name, c.Args, turbofish)
	case *PathExpr:
		return cg.pathCall(callee.Segments, c.Args, turbofish)
	}
	return cg.receiver(c.Callee) + turbofish + "(" + cg.list(c.Args) + ")"
}

// ownedArgs renders call arguments, cloning local variables passed to
// parameters that take owned heap values so the caller keeps its copy.
func (cg *CodeGen) ownedArgs(sig FuncSig, args []Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = cg.expr(a)
		if !sig.IsComplex(i) {
			continue
		}
		if pe, ok := a.(*PathExpr); ok && pe.Name() != "" {
			if _, local := cg.syms.Lookup(pe.Name()); local {
				parts[i] += ".clone()"
			}
		}
	}
	return strings.Join(parts, ", ")
}

func (cg *CodeGen) pathCall(segs []string, args []Expr, turbofish string) string {
	argText := "(" + cg.list(args) + ")"
	if len(segs) == 1 {
		name := segs[0]
		if _, local := cg.syms.Lookup(name); local {
			return name + turbofish + argText
		}
		class := cg.syms.Classify(name)
		switch {
		case preludeVariants[name]:
			return name + argText
		case class == ClassNone:
			if owner, ok := cg.syms.VariantOwner(name); ok {
				return owner + "::" + name + argText
			}
		case class == ClassStruct || class == ClassEnum:
			return name + turbofish + argText
		case class == ClassFunc:
			if sig, ok := cg.syms.GetFunc(name); ok {
				argText = "(" + cg.ownedArgs(sig, args) + ")"
			}
		}
		return checkMacro + "(" + name + turbofish + argText + ")"
	}

	full := strings.Join(segs, "::") + turbofish
	root := segs[0]
	if def, ok := cg.syms.GetEnum(root); ok && len(segs) == 2 && def.HasVariant(segs[1]) {
		return full + argText
	}
	if root == "std" || root == "crate" || preludeTypes[root] {
		return full + argText
	}
	switch cg.syms.Classify(root) {
	case ClassStruct, ClassEnum, ClassTrait, ClassAlias:
		return checkMacro + "(" + full + argText + ")"
	}
	return checkMacro + "((" + full + ")" + argText + ")"
}

// methodCall applies container method aliases before rendering recv.name(args).
func (cg *CodeGen) methodCall(recv Expr, name string, args []Expr, turbofish string) string {
	d := cg.desc(recv)
	_, arrayLit := recv.(*ArrayLit)
	_, dictLit := recv.(*DictLit)

	var text string
	var ok bool
	switch {
	case d.IsList() || arrayLit:
		text, ok = cg.listMethod(recv, name, args)
	case d.IsMap() || dictLit:
		text, ok = cg.dictMethod(recv, name, args)
	case d.IsString() || isStringLit(recv):
		text, ok = cg.stringMethod(recv, name, args)
	}
	if ok {
		if plainMethods[name] {
			return text
		}
		return checkMacro + "(" + text + ")"
	}

	text = cg.receiver(recv) + "." + name + turbofish + "(" + cg.list(args) + ")"
	if plainMethods[name] {
		return text
	}
	return checkMacro + "(" + text + ")"
}

func isStringLit(e Expr) bool {
	s, ok := e.(*StringLit)
	return ok && !s.Bytes
}

// usizeIndex renders an index converted for container access. lenOf is the
// receiver text used for negative literals.
func (cg *CodeGen) usizeIndex(idx Expr, lenOf string) string {
	switch t := idx.(type) {
	case *IntLit:
		return t.Value
	case *UnaryExpr:
		if lit, ok := t.Operand.(*IntLit); ok && t.Op == MINUS {
			return fmt.Sprintf("%s.len() - %s", lenOf, lit.Value)
		}
	}
	if d := cg.desc(idx); d.Kind == DescNamed && d.base() == "usize" {
		return cg.expr(idx)
	}
	return "(" + cg.expr(idx) + ") as usize"
}

func (cg *CodeGen) listMethod(recv Expr, name string, args []Expr) (string, bool) {
	r := cg.receiver(recv)
	call := func(method string, args ...string) string {
		return fmt.Sprintf("%s.%s(%s)", r, method, strings.Join(args, ", "))
	}
	switch name {
	case "append":
		if len(args) == 1 {
			return call("push", cg.expr(args[0])), true
		}
	case "pop":
		switch len(args) {
		case 0:
			return call("pop"), true
		case 1:
			return call("remove", cg.usizeIndex(args[0], r)), true
		}
	case "insert":
		if len(args) == 2 {
			return call("insert", cg.usizeIndex(args[0], r), cg.expr(args[1])), true
		}
	case "clear", "reverse", "sort", "extend":
		return call(name, cg.exprs(args)...), true
	case "index":
		if len(args) == 1 {
			return fmt.Sprintf("%s.iter().position(|__e| *__e == %s)", r, cg.operand(args[0], precCompare+1)), true
		}
	case "count":
		if len(args) == 1 {
			return fmt.Sprintf("%s.iter().filter(|__e| **__e == %s).count()", r, cg.operand(args[0], precCompare+1)), true
		}
	case "remove":
		if len(args) == 1 && isSimple(recv) {
			return fmt.Sprintf("%s.remove(%s.iter().position(|__e| *__e == %s).unwrap())", r, r, cg.operand(args[0], precCompare+1)), true
		}
	case "copy":
		if len(args) == 0 {
			return call("clone"), true
		}
	}
	return "", false
}

// keyRef renders a map key argument by reference.
func (cg *CodeGen) keyRef(e Expr) string {
	if u, ok := e.(*UnaryExpr); ok && u.Op == AMP {
		return cg.expr(e)
	}
	return "&" + cg.operand(e, precUnary)
}

func (cg *CodeGen) dictMethod(recv Expr, name string, args []Expr) (string, bool) {
	r := cg.receiver(recv)
	switch name {
	case "get":
		switch len(args) {
		case 1:
			return fmt.Sprintf("%s.get(%s).cloned()", r, cg.keyRef(args[0])), true
		case 2:
			return fmt.Sprintf("%s.get(%s).cloned().unwrap_or(%s)", r, cg.keyRef(args[0]), cg.expr(args[1])), true
		}
	case "remove", "pop":
		switch len(args) {
		case 1:
			return fmt.Sprintf("%s.remove(%s)", r, cg.keyRef(args[0])), true
		case 2:
			return fmt.Sprintf("%s.remove(%s).unwrap_or(%s)", r, cg.keyRef(args[0]), cg.expr(args[1])), true
		}
	case "contains_key":
		if len(args) == 1 {
			return fmt.Sprintf("%s.contains_key(%s)", r, cg.keyRef(args[0])), true
		}
	case "insert", "clear", "keys", "values":
		return fmt.Sprintf("%s.%s(%s)", r, name, cg.list(args)), true
	case "items":
		if len(args) == 0 {
			return r + ".iter()", true
		}
	case "update":
		if len(args) == 1 {
			return fmt.Sprintf("%s.extend(%s)", r, cg.expr(args[0])), true
		}
	case "copy":
		if len(args) == 0 {
			return r + ".clone()", true
		}
	}
	return "", false
}

// strArg renders a string argument in pattern position.
func (cg *CodeGen) strArg(e Expr) string {
	if s, ok := e.(*StringLit); ok && !s.Bytes {
		return rustQuote(s.Value)
	}
	return "&" + cg.operand(e, precUnary)
}

func (cg *CodeGen) stringMethod(recv Expr, name string, args []Expr) (string, bool) {
	r := cg.receiver(recv)
	if s, ok := recv.(*StringLit); ok {
		r = rustQuote(s.Value)
	}
	switch name {
	case "upper":
		return r + ".to_uppercase()", len(args) == 0
	case "lower":
		return r + ".to_lowercase()", len(args) == 0
	case "strip":
		return r + ".trim().to_string()", len(args) == 0
	case "lstrip":
		return r + ".trim_start().to_string()", len(args) == 0
	case "rstrip":
		return r + ".trim_end().to_string()", len(args) == 0
	case "startswith":
		if len(args) == 1 {
			return fmt.Sprintf("%s.starts_with(%s)", r, cg.strArg(args[0])), true
		}
	case "endswith":
		if len(args) == 1 {
			return fmt.Sprintf("%s.ends_with(%s)", r, cg.strArg(args[0])), true
		}
	case "replace":
		if len(args) == 2 {
			return fmt.Sprintf("%s.replace(%s, %s)", r, cg.strArg(args[0]), cg.strArg(args[1])), true
		}
	case "find":
		if len(args) == 1 {
			return fmt.Sprintf("%s.find(%s).map(|i| i as i64).unwrap_or(-1)", r, cg.strArg(args[0])), true
		}
	case "split":
		if len(args) == 1 {
			return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<String>>()", r, cg.strArg(args[0])), true
		}
		if len(args) == 0 {
			return r + ".split_whitespace().map(|s| s.to_string()).collect::<Vec<String>>()", true
		}
	case "join":
		if len(args) == 1 {
			return fmt.Sprintf("%s.join(%s)", cg.receiver(args[0]), r), true
		}
	}
	return "", false
}

func (cg *CodeGen) exprs(es []Expr) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = cg.expr(e)
	}
	return out
}

// index renders a subscript read: tuple projection, map lookup, string
// character, slice, or sequence element.
func (cg *CodeGen) index(x *IndexExpr) string {
	d := cg.desc(x.Base)
	base := cg.receiver(x.Base)

	if r, ok := x.Index.(*RangeExpr); ok {
		var lo, hi string
		if r.Start != nil {
			lo = cg.usizeIndex(r.Start, base)
		}
		if r.End != nil {
			hi = cg.usizeIndex(r.End, base)
		}
		if d.IsString() {
			return fmt.Sprintf("%s[%s..%s].to_string()", base, lo, hi)
		}
		return fmt.Sprintf("%s[%s..%s].to_vec()", base, lo, hi)
	}

	if lit, ok := x.Index.(*IntLit); ok && d.Kind == DescTuple {
		return base + "." + lit.Value
	}
	switch {
	case d.IsMap():
		return fmt.Sprintf("%s[%s].clone()", base, cg.keyRef(x.Index))
	case d.IsString():
		return fmt.Sprintf("%s.chars().nth(%s).unwrap().to_string()", base, cg.usizeIndex(x.Index, base))
	}
	return fmt.Sprintf("%s[%s].clone()", base, cg.usizeIndex(x.Index, base))
}
