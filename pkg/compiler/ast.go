package compiler

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Module is the root of a parsed source file.
type Module struct {
	Items []Item
}

func (m *Module) String() string {
	var sb strings.Builder
	for _, it := range m.Items {
		sb.WriteString(it.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

//  Item nodes

// Item is a top-level declaration.
type Item interface {
	itemNode()
	String() string
}

// TypeParam is one entry of a generic list: [T, U: Display].
type TypeParam struct {
	Name   string
	Bounds []TypeExpr
}

// Param is a function parameter. Type is nil when the source left it out.
type Param struct {
	Name    string
	Type    TypeExpr
	Default Expr
}

// FunctionDecl is a def.
//
//	def add(a: i64, b: i64) -> i64:
//	    return a + b
type FunctionDecl struct {
	Name       string
	TypeParams []TypeParam
	Params     []Param
	Return     TypeExpr // nil when there is no -> annotation
	Body       []Stmt   // nil for a trait method signature
	Foreign    string   // target path when declared through @extern("...")
	Pos        lexer.Position
}

func (*FunctionDecl) itemNode() {}
func (f *FunctionDecl) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		if p.Type != nil {
			params[i] = p.Name + ": " + p.Type.String()
		} else {
			params[i] = p.Name
		}
	}
	ret := "None"
	if f.Return != nil {
		ret = f.Return.String()
	}
	return fmt.Sprintf("Function(%s(%s) -> %s, %d stmts)", f.Name, strings.Join(params, ", "), ret, len(f.Body))
}

// FieldDecl is a named, typed struct field or named variant field.
type FieldDecl struct {
	Name string
	Type TypeExpr
}

// StructDecl is a record type.
//
//	type Point:
//	    x: i32
//	    y: i32
type StructDecl struct {
	Name       string
	TypeParams []TypeParam
	Fields     []FieldDecl
	Foreign    string
}

func (*StructDecl) itemNode() {}
func (s *StructDecl) String() string {
	fields := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = f.Name + ": " + f.Type.String()
	}
	return fmt.Sprintf("Struct(%s{%s})", s.Name, strings.Join(fields, ", "))
}

// Variant is one enum alternative. At most one of Tuple and Named is set.
type Variant struct {
	Name  string
	Tuple []TypeExpr
	Named []FieldDecl
}

// EnumDecl is a sum type.
//
//	type Shape = | Point | Circle(f64) | Rect(w: f64, h: f64)
type EnumDecl struct {
	Name       string
	TypeParams []TypeParam
	Variants   []Variant
}

func (*EnumDecl) itemNode() {}
func (e *EnumDecl) String() string {
	names := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		names[i] = v.Name
	}
	return fmt.Sprintf("Enum(%s = %s)", e.Name, strings.Join(names, " | "))
}

// TraitDecl lists method signatures; their Body is nil unless a default is given.
type TraitDecl struct {
	Name       string
	TypeParams []TypeParam
	Methods    []*FunctionDecl
}

func (*TraitDecl) itemNode()        {}
func (t *TraitDecl) String() string { return fmt.Sprintf("Trait(%s, %d methods)", t.Name, len(t.Methods)) }

// ImplDecl attaches methods to Target, optionally for Trait.
type ImplDecl struct {
	Target     string
	TypeParams []TypeParam
	Trait      string
	Methods    []*FunctionDecl
}

func (*ImplDecl) itemNode() {}
func (i *ImplDecl) String() string {
	if i.Trait != "" {
		return fmt.Sprintf("Impl(%s for %s, %d methods)", i.Trait, i.Target, len(i.Methods))
	}
	return fmt.Sprintf("Impl(%s, %d methods)", i.Target, len(i.Methods))
}

// ConstDecl is a module-level constant. Type is nil when not annotated.
type ConstDecl struct {
	Name  string
	Type  TypeExpr
	Value Expr
	Pos   lexer.Position
}

func (*ConstDecl) itemNode()        {}
func (c *ConstDecl) String() string { return fmt.Sprintf("Const(%s = %s)", c.Name, c.Value) }

// UseDecl imports one path: from a.b import C as D.
type UseDecl struct {
	Path  []string
	Alias string
}

func (*UseDecl) itemNode() {}
func (u *UseDecl) String() string {
	if u.Alias != "" {
		return fmt.Sprintf("Use(%s as %s)", strings.Join(u.Path, "::"), u.Alias)
	}
	return fmt.Sprintf("Use(%s)", strings.Join(u.Path, "::"))
}

// AliasDecl is type Meters = f64.
type AliasDecl struct {
	Name       string
	TypeParams []TypeParam
	Type       TypeExpr
}

func (*AliasDecl) itemNode()        {}
func (a *AliasDecl) String() string { return fmt.Sprintf("Alias(%s = %s)", a.Name, a.Type) }

// StmtItem is a loose top-level statement. Codegen gathers these, in order,
// into the body of main.
type StmtItem struct {
	Stmt Stmt
}

func (*StmtItem) itemNode()        {}
func (s *StmtItem) String() string { return s.Stmt.String() }

// VerbatimItem is target code passed through untouched: rust("...").
type VerbatimItem struct {
	Code string
}

func (*VerbatimItem) itemNode()        {}
func (v *VerbatimItem) String() string { return fmt.Sprintf("Verbatim(%q)", v.Code) }

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (s *ExprStmt) String() string { return fmt.Sprintf("Expr(%s)", s.Expr) }

// ReturnStmt exits the function. Value is nil for a bare return.
type ReturnStmt struct {
	Value Expr
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "Return"
	}
	return fmt.Sprintf("Return(%s)", r.Value)
}

// AssignStmt is a declaration when Declare is set, otherwise a reassignment.
//
//	x = 1          AssignStmt{Target: x, Op: ASSIGN, Declare: true}
//	x: i64 = 1     AssignStmt{..., Type: i64}
//	p.x += 1       AssignStmt{Target: p.x, Op: PLUS_ASSIGN}
type AssignStmt struct {
	Target  Expr
	Op      TokenType
	Value   Expr
	Declare bool
	Type    TypeExpr
}

func (*AssignStmt) stmtNode() {}
func (a *AssignStmt) String() string {
	kind := "Assign"
	if a.Declare {
		kind = "Let"
	}
	if a.Type != nil {
		return fmt.Sprintf("%s(%s: %s %s %s)", kind, a.Target, a.Type, opText(a.Op), a.Value)
	}
	return fmt.Sprintf("%s(%s %s %s)", kind, a.Target, opText(a.Op), a.Value)
}

// DestructureStmt binds a pattern: a, *rest, b = xs.
type DestructureStmt struct {
	Pattern Pattern
	Value   Expr
	Declare bool
}

func (*DestructureStmt) stmtNode() {}
func (d *DestructureStmt) String() string {
	return fmt.Sprintf("Destructure(%s = %s)", d.Pattern, d.Value)
}

// IfStmt; an elif chain nests as a single IfStmt inside Else.
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}
func (s *IfStmt) String() string {
	return fmt.Sprintf("If(%s, then=%d, else=%d)", s.Cond, len(s.Then), len(s.Else))
}

// WhileStmt loops while Cond holds.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode()        {}
func (s *WhileStmt) String() string { return fmt.Sprintf("While(%s, %d stmts)", s.Cond, len(s.Body)) }

// ForStmt iterates Iter binding each item to Binding.
type ForStmt struct {
	Binding Pattern
	Iter    Expr
	Body    []Stmt
}

func (*ForStmt) stmtNode() {}
func (s *ForStmt) String() string {
	return fmt.Sprintf("For(%s in %s, %d stmts)", s.Binding, s.Iter, len(s.Body))
}

// MatchArm is one case. Statement arms use Body; expression arms use Value.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr
	Body    []Stmt
	Value   Expr
}

func (a MatchArm) String() string {
	guard := ""
	if a.Guard != nil {
		guard = " if " + a.Guard.String()
	}
	if a.Value != nil {
		return fmt.Sprintf("%s%s => %s", a.Pattern, guard, a.Value)
	}
	return fmt.Sprintf("%s%s => {%d stmts}", a.Pattern, guard, len(a.Body))
}

// MatchStmt is match subject: case ...
type MatchStmt struct {
	Scrutinee Expr
	Arms      []MatchArm
}

func (*MatchStmt) stmtNode() {}
func (m *MatchStmt) String() string {
	arms := make([]string, len(m.Arms))
	for i, a := range m.Arms {
		arms[i] = a.String()
	}
	return fmt.Sprintf("Match(%s, [%s])", m.Scrutinee, strings.Join(arms, "; "))
}

type BreakStmt struct{}

func (*BreakStmt) stmtNode()      {}
func (*BreakStmt) String() string { return "Break" }

type ContinueStmt struct{}

func (*ContinueStmt) stmtNode()      {}
func (*ContinueStmt) String() string { return "Continue" }

// VerbatimStmt is rust("...") in statement position.
type VerbatimStmt struct {
	Code string
}

func (*VerbatimStmt) stmtNode()        {}
func (v *VerbatimStmt) String() string { return fmt.Sprintf("Verbatim(%q)", v.Code) }

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	String() string
}

// IntLit keeps the literal text (hex/octal/binary prefixes included).
type IntLit struct {
	Value string
}

func (*IntLit) exprNode()        {}
func (i *IntLit) String() string { return i.Value }

type FloatLit struct {
	Value string
}

func (*FloatLit) exprNode()        {}
func (f *FloatLit) String() string { return f.Value }

type BoolLit struct {
	Value bool
}

func (*BoolLit) exprNode()        {}
func (b *BoolLit) String() string { return fmt.Sprintf("%t", b.Value) }

// StringLit holds the decoded string value. Static literals render as a
// bare &'static str, as format strings do.
type StringLit struct {
	Value  string
	Bytes  bool
	Static bool
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", s.Value) }

// NoneLit is None.
type NoneLit struct{}

func (*NoneLit) exprNode()      {}
func (*NoneLit) String() string { return "None" }

// PathExpr is a name or a resolved type/module path.
//
//	x            PathExpr{x}
//	Color.Red    PathExpr{Color, Red}   (Color classified as a type)
type PathExpr struct {
	Segments []string
}

func (*PathExpr) exprNode()        {}
func (p *PathExpr) String() string { return strings.Join(p.Segments, "::") }

// Name returns the single segment of a one-segment path, or "".
func (p *PathExpr) Name() string {
	if len(p.Segments) == 1 {
		return p.Segments[0]
	}
	return ""
}

// BinaryExpr represents Left Op Right.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opText(b.Op), b.Right)
}

// UnaryExpr is -x, !x, ~x.
type UnaryExpr struct {
	Op      TokenType
	Operand Expr
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", opText(u.Op), u.Operand) }

// CallExpr is Callee(Args...). Keyword arguments are resolved to positions
// by the parser. A FieldExpr callee is a method call.
type CallExpr struct {
	Callee   Expr
	Args     []Expr
	TypeArgs []TypeExpr // explicit ::<...> on a method call
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	return fmt.Sprintf("Call(%s, %s)", c.Callee, joinExprs(c.Args))
}

// FieldExpr is Base.Name on a value.
type FieldExpr struct {
	Base Expr
	Name string
}

func (*FieldExpr) exprNode()        {}
func (f *FieldExpr) String() string { return fmt.Sprintf("%s.%s", f.Base, f.Name) }

// IndexExpr is Base[Index].
type IndexExpr struct {
	Base  Expr
	Index Expr
}

func (*IndexExpr) exprNode()        {}
func (x *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", x.Base, x.Index) }

type ArrayLit struct {
	Elems []Expr
}

func (*ArrayLit) exprNode()        {}
func (a *ArrayLit) String() string { return "[" + joinExprs(a.Elems) + "]" }

type TupleLit struct {
	Elems []Expr
}

func (*TupleLit) exprNode()        {}
func (t *TupleLit) String() string { return "(" + joinExprs(t.Elems) + ")" }

// DictLit is {k: v, ...}; Keys and Values are parallel.
type DictLit struct {
	Keys   []Expr
	Values []Expr
}

func (*DictLit) exprNode() {}
func (d *DictLit) String() string {
	parts := make([]string, len(d.Keys))
	for i := range d.Keys {
		parts[i] = fmt.Sprintf("%s: %s", d.Keys[i], d.Values[i])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FieldInit is one name: value pair of a struct literal.
type FieldInit struct {
	Name  string
	Value Expr
}

// StructLit is Path { field: value, ... } with fields in declaration order.
type StructLit struct {
	Path   []string
	Fields []FieldInit
}

func (*StructLit) exprNode() {}
func (s *StructLit) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Value)
	}
	return fmt.Sprintf("%s{%s}", strings.Join(s.Path, "::"), strings.Join(parts, ", "))
}

// ClosureExpr is |params| value, or a closure whose Body runs before Value.
type ClosureExpr struct {
	Params []Param
	Body   []Stmt
	Value  Expr
}

func (*ClosureExpr) exprNode() {}
func (c *ClosureExpr) String() string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return fmt.Sprintf("Closure(|%s| %d stmts -> %s)", strings.Join(names, ", "), len(c.Body), c.Value)
}

// RangeExpr is Start..End (or ..= when Inclusive).
type RangeExpr struct {
	Start     Expr
	End       Expr
	Inclusive bool
}

func (*RangeExpr) exprNode() {}
func (r *RangeExpr) String() string {
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return fmt.Sprintf("Range(%s%s%s)", r.Start, op, r.End)
}

// MatchExpr is the expression form of match; arms carry Value.
type MatchExpr struct {
	Scrutinee Expr
	Arms      []MatchArm
}

func (*MatchExpr) exprNode() {}
func (m *MatchExpr) String() string {
	arms := make([]string, len(m.Arms))
	for i, a := range m.Arms {
		arms[i] = a.String()
	}
	return fmt.Sprintf("Match(%s, [%s])", m.Scrutinee, strings.Join(arms, "; "))
}

// CastExpr is Expr as Type.
type CastExpr struct {
	Expr Expr
	Type TypeExpr
}

func (*CastExpr) exprNode()        {}
func (c *CastExpr) String() string { return fmt.Sprintf("(%s as %s)", c.Expr, c.Type) }

// MacroCall is name!(args). Format macros carry the format string as Args[0].
type MacroCall struct {
	Name string
	Args []Expr
}

func (*MacroCall) exprNode()        {}
func (m *MacroCall) String() string { return fmt.Sprintf("%s!(%s)", m.Name, joinExprs(m.Args)) }

// BlockExpr runs Stmts and yields Value.
type BlockExpr struct {
	Stmts []Stmt
	Value Expr
}

func (*BlockExpr) exprNode() {}
func (b *BlockExpr) String() string {
	return fmt.Sprintf("Block(%d stmts -> %s)", len(b.Stmts), b.Value)
}

// StarExpr marks *name on an assignment target; it never reaches codegen.
type StarExpr struct {
	Name string
}

func (*StarExpr) exprNode()        {}
func (s *StarExpr) String() string { return "*" + s.Name }

//  Pattern nodes

// Pattern is implemented by every match/destructure pattern.
type Pattern interface {
	patternNode()
	String() string
}

type IntPat struct {
	Value string // may carry a leading '-'
}

func (*IntPat) patternNode()     {}
func (p *IntPat) String() string { return p.Value }

type BoolPat struct {
	Value bool
}

func (*BoolPat) patternNode()     {}
func (p *BoolPat) String() string { return fmt.Sprintf("%t", p.Value) }

type StringPat struct {
	Value string
}

func (*StringPat) patternNode()     {}
func (p *StringPat) String() string { return fmt.Sprintf("%q", p.Value) }

type BindingPat struct {
	Name string
}

func (*BindingPat) patternNode()     {}
func (p *BindingPat) String() string { return p.Name }

type WildcardPat struct{}

func (*WildcardPat) patternNode()   {}
func (*WildcardPat) String() string { return "_" }

// VariantPat is Path or Path(payload...). HasParens separates Unit() from Unit.
type VariantPat struct {
	Path      []string
	Payload   []Pattern
	HasParens bool
}

func (*VariantPat) patternNode() {}
func (p *VariantPat) String() string {
	if !p.HasParens {
		return strings.Join(p.Path, "::")
	}
	return fmt.Sprintf("%s(%s)", strings.Join(p.Path, "::"), joinPatterns(p.Payload))
}

type TuplePat struct {
	Elems []Pattern
}

func (*TuplePat) patternNode()     {}
func (p *TuplePat) String() string { return "(" + joinPatterns(p.Elems) + ")" }

// FieldPat is name=pattern inside a struct pattern.
type FieldPat struct {
	Name    string
	Pattern Pattern
}

// StructFieldsPat is Path(x=p, y=q, ...) / Path { x: p, .. }.
type StructFieldsPat struct {
	Path    []string
	Fields  []FieldPat
	HasRest bool
}

func (*StructFieldsPat) patternNode() {}
func (p *StructFieldsPat) String() string {
	parts := make([]string, 0, len(p.Fields)+1)
	for _, f := range p.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Pattern))
	}
	if p.HasRest {
		parts = append(parts, "..")
	}
	return fmt.Sprintf("%s{%s}", strings.Join(p.Path, "::"), strings.Join(parts, ", "))
}

// OrPat is p | q | ...
type OrPat struct {
	Alts []Pattern
}

func (*OrPat) patternNode() {}
func (p *OrPat) String() string {
	parts := make([]string, len(p.Alts))
	for i, a := range p.Alts {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}

// BindingAtPat is name @ pattern.
type BindingAtPat struct {
	Name    string
	Pattern Pattern
}

func (*BindingAtPat) patternNode()     {}
func (p *BindingAtPat) String() string { return fmt.Sprintf("%s @ %s", p.Name, p.Pattern) }

// SlicePat is [prefix..., rest @ .., suffix...], the lowering of a, *rest, b.
// Rest is "_" when the star binds nothing and "" when there is no star.
type SlicePat struct {
	Prefix []Pattern
	Rest   string
	Suffix []Pattern
}

func (*SlicePat) patternNode() {}
func (p *SlicePat) String() string {
	parts := make([]string, 0, len(p.Prefix)+len(p.Suffix)+1)
	for _, q := range p.Prefix {
		parts = append(parts, q.String())
	}
	if p.Rest != "" {
		parts = append(parts, "*"+p.Rest)
	}
	for _, q := range p.Suffix {
		parts = append(parts, q.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

//  Type expressions

// TypeExpr is a written type annotation.
type TypeExpr interface {
	typeNode()
	String() string
}

// NamedType is a path with optional generic arguments: Vec[i64].
type NamedType struct {
	Path []string
	Args []TypeExpr
}

func (*NamedType) typeNode() {}
func (t *NamedType) String() string {
	name := strings.Join(t.Path, ".")
	if len(t.Args) == 0 {
		return name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", name, strings.Join(args, ", "))
}

type TupleType struct {
	Elems []TypeExpr
}

func (*TupleType) typeNode() {}
func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// InferType is _ in type position.
type InferType struct{}

func (*InferType) typeNode()      {}
func (*InferType) String() string { return "_" }

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
