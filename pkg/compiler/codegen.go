package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// CodeGen walks a Module and emits Rust source text.
type CodeGen struct {
	syms   *SymbolTable
	out    strings.Builder
	indent int
	unit   string
	trace  TraceSink
	diags  []Diagnostic

	selfType string // target of the impl being emitted
	pos      lexer.Position
}

func newCodeGen(syms *SymbolTable, cfg options) *CodeGen {
	return &CodeGen{
		syms:  syms,
		unit:  cfg.indent,
		trace: cfg.trace,
	}
}

// line writes one indented line.
func (cg *CodeGen) line(format string, args ...any) {
	if format == "" {
		cg.out.WriteString("\n")
		return
	}
	cg.out.WriteString(strings.Repeat(cg.unit, cg.indent))
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

// raw writes verbatim target code, re-indented to the current level.
func (cg *CodeGen) raw(code string) {
	for _, l := range strings.Split(strings.Trim(code, "\n"), "\n") {
		if strings.TrimSpace(l) == "" {
			cg.out.WriteString("\n")
			continue
		}
		cg.out.WriteString(strings.Repeat(cg.unit, cg.indent))
		cg.out.WriteString(l)
		cg.out.WriteString("\n")
	}
}

// capture runs fn with a fresh buffer and returns what it wrote.
func (cg *CodeGen) capture(fn func()) string {
	saved := cg.out
	cg.out = strings.Builder{}
	fn()
	text := cg.out.String()
	cg.out = saved
	return text
}

// softError records a codegen diagnostic for a construct that is emitted as
// a visible placeholder instead of aborting.
func (cg *CodeGen) softError(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	cg.diags = append(cg.diags, Diagnostic{
		Level:    LevelError,
		Category: CategoryCodegen,
		Message:  msg,
		Pos:      cg.pos,
	})
	cg.trace.Trace("codegen", "soft error: %s", msg)
	return msg
}

func (cg *CodeGen) unhandled(node any) string {
	cg.softError("unsupported construct %T", node)
	return fmt.Sprintf("/* unhandled: %T */", node)
}

// compileError renders the target's compile_error! macro with msg.
func compileError(msg string) string {
	return fmt.Sprintf("compile_error!(%s)", rustQuote(msg))
}

// Generate renders mod as Rust. syms must be the table the parser filled;
// codegen opens its own scopes on it. Unsupported constructs never fail the
// call: they become placeholders listed in the returned diagnostics.
func Generate(mod *Module, syms *SymbolTable, opts ...Option) (string, []Diagnostic, error) {
	if mod == nil {
		return "", nil, errors.New("nil module")
	}
	if syms == nil {
		syms = NewSymbolTable()
	}
	cfg := buildOptions(opts)
	cg := newCodeGen(syms, cfg)

	if cfg.header {
		cg.line("// Generated by quiche from %s", cfg.filename)
		cg.line("")
	}

	var loose []Stmt
	var mainFn *FunctionDecl
	for _, it := range mod.Items {
		if s, ok := it.(*StmtItem); ok {
			loose = append(loose, s.Stmt)
			continue
		}
		if fn, ok := it.(*FunctionDecl); ok && fn.Name == "main" && fn.Foreign == "" {
			mainFn = fn
		}
		cg.item(it)
	}
	if len(loose) > 0 {
		if mainFn != nil {
			cg.pos = mainFn.Pos
			msg := cg.softError("top-level statements cannot be combined with def main")
			cg.line("%s;", compileError(msg))
		} else {
			cg.scriptMain(loose)
		}
	}

	cg.trace.Trace("codegen", "emitted %d items", len(mod.Items))
	return removeShadowedLets(cg.out.String()), cg.diags, nil
}

func (cg *CodeGen) item(it Item) {
	switch n := it.(type) {
	case *FunctionDecl:
		if n.Foreign != "" {
			cg.line("pub use %s as %s;", n.Foreign, n.Name)
			return
		}
		cg.function(n, fnContext{})
		cg.line("")
	case *StructDecl:
		cg.structDecl(n)
	case *EnumDecl:
		cg.enumDecl(n)
	case *TraitDecl:
		cg.traitDecl(n)
	case *ImplDecl:
		cg.implDecl(n)
	case *ConstDecl:
		cg.constDecl(n)
	case *UseDecl:
		path := strings.Join(n.Path, "::")
		if n.Alias != "" {
			cg.line("use %s as %s;", path, n.Alias)
		} else {
			cg.line("use %s;", path)
		}
	case *AliasDecl:
		cg.line("%stype %s%s = %s;", visibility(n.Name), n.Name, typeParamList(n.TypeParams), rustType(n.Type))
	case *VerbatimItem:
		cg.raw(n.Code)
	default:
		cg.line("%s", cg.unhandled(it))
	}
}

// visibility returns "pub " unless name is private by convention.
func visibility(name string) string {
	if strings.HasPrefix(name, "_") {
		return ""
	}
	return "pub "
}

type fnContext struct {
	inTrait   bool // declared inside a trait
	traitImpl bool // body of an impl Trait for Type
}

func (cg *CodeGen) function(fn *FunctionDecl, ctx fnContext) {
	cg.pos = fn.Pos
	vis := visibility(fn.Name)
	if fn.Name == "main" || ctx.inTrait || ctx.traitImpl || strings.HasPrefix(fn.Name, "__") {
		vis = ""
	}
	if fn.Name == "__str__" && !ctx.inTrait && !ctx.traitImpl {
		vis = "pub "
	}

	// def main(args) receives the process arguments.
	var argv string
	params := fn.Params
	if fn.Name == "main" && cg.selfType == "" && len(params) > 0 {
		argv = params[0].Name
		params = nil
	}

	mutSelf := fn.Body != nil && mutatesSelf(fn.Body)
	parts := make([]string, 0, len(params))
	for _, p := range params {
		switch {
		case p.Name == "self" && cg.selfType != "":
			if mutSelf {
				parts = append(parts, "&mut self")
			} else {
				parts = append(parts, "&self")
			}
		case p.Type == nil:
			msg := cg.softError("parameter %q of %s needs a type annotation", p.Name, fn.Name)
			parts = append(parts, fmt.Sprintf("%s: %s", p.Name, compileError(msg)))
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", p.Name, rustType(p.Type)))
		}
	}

	sig := fmt.Sprintf("%sfn %s%s(%s)", vis, fn.Name, typeParamList(fn.TypeParams), strings.Join(parts, ", "))
	if !isUnitType(fn.Return) && fn.Name != "main" {
		sig += " -> " + rustType(fn.Return)
	}
	if fn.Body == nil {
		cg.line("%s;", sig)
		return
	}

	cg.line("%s {", sig)
	cg.indent++
	cg.syms.EnterFunction()
	for _, p := range params {
		if p.Name == "self" && cg.selfType != "" {
			cg.syms.Declare("self", Named(cg.selfType))
			continue
		}
		cg.syms.Declare(p.Name, descFromType(p.Type))
	}
	if argv != "" {
		cg.line("let %s: Vec<String> = std::env::args().collect();", argv)
		cg.syms.Declare(argv, Parametrized("Vec", Named("String")))
	}
	cg.block(fn.Body)
	cg.syms.ExitFunction()
	cg.indent--
	cg.line("}")
	cg.trace.Trace("codegen", "fn %s", fn.Name)
}

// scriptMain gathers loose top-level statements into fn main.
func (cg *CodeGen) scriptMain(stmts []Stmt) {
	cg.line("fn main() {")
	cg.indent++
	cg.syms.EnterFunction()
	cg.block(stmts)
	cg.syms.ExitFunction()
	cg.indent--
	cg.line("}")
}

func (cg *CodeGen) structDecl(s *StructDecl) {
	if s.Foreign != "" {
		cg.line("pub use %s as %s;", s.Foreign, s.Name)
		return
	}
	cg.line("#[derive(Clone, Debug)]")
	if len(s.Fields) == 0 {
		cg.line("%sstruct %s%s {}", visibility(s.Name), s.Name, typeParamList(s.TypeParams))
		cg.line("")
		return
	}
	cg.line("%sstruct %s%s {", visibility(s.Name), s.Name, typeParamList(s.TypeParams))
	cg.indent++
	for _, f := range s.Fields {
		cg.line("%s%s: %s,", visibility(f.Name), f.Name, rustType(f.Type))
	}
	cg.indent--
	cg.line("}")
	cg.line("")
}

func (cg *CodeGen) enumDecl(e *EnumDecl) {
	cg.line("#[derive(Clone, Debug)]")
	cg.line("%senum %s%s {", visibility(e.Name), e.Name, typeParamList(e.TypeParams))
	cg.indent++
	for _, v := range e.Variants {
		switch {
		case len(v.Named) > 0:
			fields := make([]string, len(v.Named))
			for i, f := range v.Named {
				fields[i] = fmt.Sprintf("%s: %s", f.Name, rustType(f.Type))
			}
			cg.line("%s { %s },", v.Name, strings.Join(fields, ", "))
		case len(v.Tuple) > 0:
			elems := make([]string, len(v.Tuple))
			for i, t := range v.Tuple {
				elems[i] = rustType(t)
			}
			cg.line("%s(%s),", v.Name, strings.Join(elems, ", "))
		default:
			cg.line("%s,", v.Name)
		}
	}
	cg.indent--
	cg.line("}")
	cg.line("")
}

func (cg *CodeGen) traitDecl(t *TraitDecl) {
	cg.line("%strait %s%s {", visibility(t.Name), t.Name, typeParamList(t.TypeParams))
	cg.indent++
	cg.selfType = "Self"
	for _, m := range t.Methods {
		cg.function(m, fnContext{inTrait: true})
	}
	cg.selfType = ""
	cg.indent--
	cg.line("}")
	cg.line("")
}

func (cg *CodeGen) implDecl(im *ImplDecl) {
	target := im.Target + typeArgNames(im.TypeParams)
	header := fmt.Sprintf("impl%s %s", typeParamList(im.TypeParams), target)
	if im.Trait != "" {
		header = fmt.Sprintf("impl%s %s for %s", typeParamList(im.TypeParams), im.Trait, target)
	}
	cg.line("%s {", header)
	cg.indent++
	cg.selfType = im.Target
	display := false
	for i, m := range im.Methods {
		if i > 0 {
			cg.line("")
		}
		cg.function(m, fnContext{traitImpl: im.Trait != ""})
		if m.Name == "__str__" && im.Trait == "" {
			display = true
		}
	}
	cg.selfType = ""
	cg.indent--
	cg.line("}")
	cg.line("")

	if display {
		cg.line("impl%s std::fmt::Display for %s {", typeParamList(im.TypeParams), target)
		cg.indent++
		cg.line("fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {")
		cg.indent++
		cg.line("write!(f, \"{}\", self.__str__())")
		cg.indent--
		cg.line("}")
		cg.indent--
		cg.line("}")
		cg.line("")
	}
}

func (cg *CodeGen) constDecl(c *ConstDecl) {
	cg.pos = c.Pos
	if c.Type == nil {
		msg := cg.softError("constant %s needs a type annotation", c.Name)
		cg.line("%s;", compileError(msg))
		return
	}
	ty := rustType(c.Type)
	value := cg.expr(c.Value)
	if lit, ok := c.Value.(*StringLit); ok && ty == "String" && !lit.Bytes {
		ty, value = "&str", rustQuote(lit.Value)
	}
	cg.line("%sconst %s: %s = %s;", visibility(c.Name), c.Name, ty, value)
}

// mutatesSelf reports whether a method body writes through self: an
// assignment whose target is rooted at self, or a mutating container call
// on a self field.
func mutatesSelf(body []Stmt) bool {
	found := false
	var visitExpr func(Expr)
	var visitStmts func([]Stmt)
	visitExpr = func(e Expr) {
		if found || e == nil {
			return
		}
		switch t := e.(type) {
		case *CallExpr:
			if f, ok := t.Callee.(*FieldExpr); ok && mutatingMethods[f.Name] && rootedAtSelf(f.Base) {
				if _, direct := f.Base.(*PathExpr); !direct {
					found = true
					return
				}
			}
			visitExpr(t.Callee)
			for _, a := range t.Args {
				visitExpr(a)
			}
		case *FieldExpr:
			visitExpr(t.Base)
		case *BinaryExpr:
			visitExpr(t.Left)
			visitExpr(t.Right)
		case *UnaryExpr:
			visitExpr(t.Operand)
		case *ClosureExpr:
			visitStmts(t.Body)
			visitExpr(t.Value)
		case *BlockExpr:
			visitStmts(t.Stmts)
			visitExpr(t.Value)
		case *MatchExpr:
			for _, a := range t.Arms {
				visitStmts(a.Body)
				visitExpr(a.Value)
			}
		case *MacroCall:
			for _, a := range t.Args {
				visitExpr(a)
			}
		}
	}
	visitStmts = func(stmts []Stmt) {
		for _, s := range stmts {
			if found {
				return
			}
			switch t := s.(type) {
			case *AssignStmt:
				if !t.Declare && rootedAtSelf(t.Target) {
					if _, direct := t.Target.(*PathExpr); !direct {
						found = true
						return
					}
				}
				visitExpr(t.Value)
			case *ExprStmt:
				visitExpr(t.Expr)
			case *ReturnStmt:
				visitExpr(t.Value)
			case *IfStmt:
				visitExpr(t.Cond)
				visitStmts(t.Then)
				visitStmts(t.Else)
			case *WhileStmt:
				visitExpr(t.Cond)
				visitStmts(t.Body)
			case *ForStmt:
				visitExpr(t.Iter)
				visitStmts(t.Body)
			case *MatchStmt:
				visitExpr(t.Scrutinee)
				for _, a := range t.Arms {
					visitStmts(a.Body)
				}
			case *DestructureStmt:
				visitExpr(t.Value)
			}
		}
	}
	visitStmts(body)
	return found
}

func rootedAtSelf(e Expr) bool {
	switch t := e.(type) {
	case *PathExpr:
		return t.Name() == "self"
	case *FieldExpr:
		return rootedAtSelf(t.Base)
	case *IndexExpr:
		return rootedAtSelf(t.Base)
	}
	return false
}

// rustQuote renders s as a Rust string literal.
func rustQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u{%x}`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// byteQuote renders s as a Rust byte string literal, one byte at a time.
func byteQuote(s string) string {
	var sb strings.Builder
	sb.WriteString(`b"`)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
