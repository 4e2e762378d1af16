package compiler

import (
	"reflect"
	"strings"
	"testing"
)

// parseSource lexes and parses src, failing the test on any error.
func parseSource(t *testing.T, src string) (*Module, *SymbolTable, []Diagnostic) {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	syms := NewSymbolTable()
	mod, diags, err := Parse(tokens, src, syms)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return mod, syms, diags
}

// parseError parses src and returns the error it must produce.
func parseError(t *testing.T, src string) error {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		return err
	}
	_, _, err = Parse(tokens, src, nil)
	if err == nil {
		t.Fatalf("expected a parse error for:\n%s", src)
	}
	return err
}

// firstStmt returns the first loose statement of a module.
func firstStmt(t *testing.T, mod *Module) Stmt {
	t.Helper()
	for _, it := range mod.Items {
		if s, ok := it.(*StmtItem); ok {
			return s.Stmt
		}
	}
	t.Fatal("module has no statements")
	return nil
}

func TestParse_Function(t *testing.T) {
	mod, syms, _ := parseSource(t, "def add(a: int, b: int = 2) -> int:\n    return a + b\n")
	if len(mod.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(mod.Items))
	}
	fn, ok := mod.Items[0].(*FunctionDecl)
	if !ok {
		t.Fatalf("expected *FunctionDecl, got %T", mod.Items[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 || fn.Return.String() != "int" {
		t.Errorf("unexpected signature: %s", fn)
	}
	if fn.Params[1].Default == nil {
		t.Error("default value of b was dropped")
	}
	ret, ok := fn.Body[0].(*ReturnStmt)
	if !ok {
		t.Fatalf("expected return, got %T", fn.Body[0])
	}
	if ret.Value.String() != "(a + b)" {
		t.Errorf("return value = %s", ret.Value)
	}
	if syms.Classify("add") != ClassFunc {
		t.Error("add not classified as a function")
	}
	if entered, exited := syms.Balance(); entered != exited {
		t.Errorf("unbalanced scopes: %d entered, %d exited", entered, exited)
	}
}

func TestParse_PassBodyIsEmpty(t *testing.T) {
	mod, _, _ := parseSource(t, "def noop():\n    pass\n")
	fn := mod.Items[0].(*FunctionDecl)
	if fn.Body == nil || len(fn.Body) != 0 {
		t.Errorf("pass body should be empty and non-nil, got %#v", fn.Body)
	}
}

func TestParse_ClassBecomesStructAndImpl(t *testing.T) {
	src := `class Counter:
    count: int

    def bump(self, by: int):
        self.count += by
`
	mod, syms, _ := parseSource(t, src)
	if len(mod.Items) != 2 {
		t.Fatalf("expected struct + impl, got %d items", len(mod.Items))
	}
	st, ok := mod.Items[0].(*StructDecl)
	if !ok || st.Name != "Counter" || len(st.Fields) != 1 {
		t.Fatalf("unexpected struct: %v", mod.Items[0])
	}
	impl, ok := mod.Items[1].(*ImplDecl)
	if !ok || impl.Target != "Counter" || len(impl.Methods) != 1 {
		t.Fatalf("unexpected impl: %v", mod.Items[1])
	}
	as, ok := impl.Methods[0].Body[0].(*AssignStmt)
	if !ok || as.Op != PLUS_ASSIGN || as.Declare {
		t.Errorf("expected augmented assignment, got %v", impl.Methods[0].Body[0])
	}
	if def, _ := syms.GetStruct("Counter"); !reflect.DeepEqual(def.Fields, []string{"count"}) {
		t.Errorf("registered fields = %v", def.Fields)
	}
}

func TestParse_TypeDeclarations(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		check func(t *testing.T, it Item)
	}{
		{
			name: "Record",
			src:  "type Point:\n    x: int\n    y: int\n",
			check: func(t *testing.T, it Item) {
				if s, ok := it.(*StructDecl); !ok || len(s.Fields) != 2 {
					t.Errorf("got %v", it)
				}
			},
		},
		{
			name: "Enum with payloads",
			src:  "type Shape = | Circle(float) | Rect(w: float, h: float) | Empty\n",
			check: func(t *testing.T, it Item) {
				e, ok := it.(*EnumDecl)
				if !ok || len(e.Variants) != 3 {
					t.Fatalf("got %v", it)
				}
				if len(e.Variants[0].Tuple) != 1 || len(e.Variants[1].Named) != 2 || e.Variants[2].Tuple != nil {
					t.Errorf("variant payloads wrong: %+v", e.Variants)
				}
			},
		},
		{
			name: "Union of types",
			src:  "type Num = int | float\n",
			check: func(t *testing.T, it Item) {
				e, ok := it.(*EnumDecl)
				if !ok {
					t.Fatalf("got %T", it)
				}
				if e.Variants[0].Name != "Int" || e.Variants[1].Name != "Float" {
					t.Errorf("wrapper names = %s, %s", e.Variants[0].Name, e.Variants[1].Name)
				}
			},
		},
		{
			name: "Alias",
			src:  "type Scores = List[int]\n",
			check: func(t *testing.T, it Item) {
				a, ok := it.(*AliasDecl)
				if !ok || a.Type.String() != "List[int]" {
					t.Errorf("got %v", it)
				}
			},
		},
		{
			name: "Arity disambiguation",
			src:  "type Cmd = | Move(int) | Move(int, int)\n",
			check: func(t *testing.T, it Item) {
				e := it.(*EnumDecl)
				if e.Variants[0].Name != "Move__a1" || e.Variants[1].Name != "Move__a2" {
					t.Errorf("got %s, %s", e.Variants[0].Name, e.Variants[1].Name)
				}
			},
		},
		{
			name: "Union of one generic type",
			src:  "type Bag = Vec[int] | Vec[str] | float\n",
			check: func(t *testing.T, it Item) {
				e := it.(*EnumDecl)
				var names []string
				for _, v := range e.Variants {
					names = append(names, v.Name)
				}
				if want := []string{"VecInt", "VecStr", "Float"}; !reflect.DeepEqual(names, want) {
					t.Errorf("got %v, want %v", names, want)
				}
			},
		},
		{
			name: "Class enum",
			src:  "class Color(Enum):\n    Red\n    Green\n    Rgb = (int, int, int)\n",
			check: func(t *testing.T, it Item) {
				e, ok := it.(*EnumDecl)
				if !ok || len(e.Variants) != 3 || len(e.Variants[2].Tuple) != 3 {
					t.Errorf("got %v", it)
				}
			},
		},
		{
			name: "Trait",
			src:  "class Speak(Trait):\n    def speak(self) -> str: ...\n",
			check: func(t *testing.T, it Item) {
				tr, ok := it.(*TraitDecl)
				if !ok || len(tr.Methods) != 1 || tr.Methods[0].Body != nil {
					t.Errorf("got %v", it)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, _, _ := parseSource(t, tt.src)
			if len(mod.Items) == 0 {
				t.Fatal("no items")
			}
			tt.check(t, mod.Items[0])
		})
	}
}

func TestParse_ForwardReferences(t *testing.T) {
	// Both the call and the member access precede the declarations they use.
	src := `def main():
    c = Color.Red
    print(greet(name="Ann"))

def greet(name: str, greeting: str = "Hello") -> str:
    return greeting

class Color(Enum):
    Red
    Green
`
	mod, _, _ := parseSource(t, src)
	fn := mod.Items[0].(*FunctionDecl)

	assign := fn.Body[0].(*AssignStmt)
	if p, ok := assign.Value.(*PathExpr); !ok || p.String() != "Color::Red" {
		t.Errorf("Color.Red should resolve to a path, got %T %s", assign.Value, assign.Value)
	}

	print := fn.Body[1].(*ExprStmt).Expr.(*MacroCall)
	call := print.Args[1].(*CallExpr)
	if len(call.Args) != 2 {
		t.Fatalf("expected default argument to be filled, got %s", call)
	}
	if s, ok := call.Args[1].(*StringLit); !ok || s.Value != "Hello" {
		t.Errorf("second argument = %s", call.Args[1])
	}
}

func TestParse_Declarations(t *testing.T) {
	mod, _, _ := parseSource(t, "def f():\n    x = 1\n    x = 2\n    y: int = 3\n")
	var got []bool
	for _, s := range mod.Items[0].(*FunctionDecl).Body {
		got = append(got, s.(*AssignStmt).Declare)
	}
	if !reflect.DeepEqual(got, []bool{true, false, true}) {
		t.Errorf("Declare flags = %v", got)
	}

	// An annotated module-level name is a constant.
	mod, _, _ = parseSource(t, "LIMIT: int = 3\n")
	if c, ok := mod.Items[0].(*ConstDecl); !ok || c.Name != "LIMIT" {
		t.Errorf("expected ConstDecl LIMIT, got %T", mod.Items[0])
	}
}

func TestParse_Lowerings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Ternary", "y = 1 if c else 2\n", "Let(y = Match(c, [true => 1; _ => 2]))"},
		{"Chained comparison", "ok = 0 < x < 10\n", "Let(ok = ((0 < x) && (x < 10)))"},
		{"Chained comparison with call", "ok = 0 < f(x) < 10\n", "Let(ok = Block(1 stmts -> ((0 < __cmp0) && (__cmp0 < 10))))"},
		{"Membership", "ok = a not in xs\n", "Let(ok = (!Call(xs.contains, (&a))))"},
		{"Identity", "ok = v is None\n", "Let(ok = Call(v.is_none, ))"},
		{"Power", "p = 2 ** n\n", "Let(p = Call((2 as i64).pow, (n as u32)))"},
		{"Float power", "p = 2.0 ** 3\n", "Let(p = Call(2.0.powf, 3))"},
		{"Pipe", "r = x |> f(1)\n", "Let(r = Call(f, x, 1))"},
		{"len", "n = len(xs)\n", "Let(n = (Call(xs.len, ) as i64))"},
		{"str", "s = str(n)\n", "Let(s = Call(n.to_string, ))"},
		{"range", "r = range(3)\n", "Let(r = Range(0..3))"},
		{"Concat", "s = \"a\" + b + \"c\"\n", "Let(s = format!(\"a{}c\", b))"},
		{"print", "print(a, b, sep=\"-\")\n", "Expr(println!(\"{}-{}\", a, b))"},
		{"print end", "print(a, end=\"\")\n", "Expr(print!(\"{}\", a))"},
		{"assert", "assert x, \"bad\"\n", "Expr(assert!(x, \"{}\", \"bad\"))"},
		{"Tuple unpack", "a, b = 1, 2\n", "Destructure((a, b) = (1, 2))"},
		{"Star unpack", "first, *rest = xs\n", "Destructure([first, *rest] = xs)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, _, _ := parseSource(t, tt.src)
			if got := firstStmt(t, mod).String(); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParse_Comprehension(t *testing.T) {
	mod, _, _ := parseSource(t, "ys = [x * 2 for x in xs if x > 1]\n")
	assign := firstStmt(t, mod).(*AssignStmt)
	call, ok := assign.Value.(*CallExpr)
	if !ok {
		t.Fatalf("expected an invoked closure, got %T", assign.Value)
	}
	closure, ok := call.Callee.(*ClosureExpr)
	if !ok || len(closure.Body) != 2 {
		t.Fatalf("unexpected callee %s", call.Callee)
	}
	if closure.Value.String() != "__acc0" {
		t.Errorf("accumulator = %s", closure.Value)
	}
	loop, ok := closure.Body[1].(*ForStmt)
	if !ok {
		t.Fatalf("expected a loop, got %T", closure.Body[1])
	}
	if _, ok := loop.Body[0].(*IfStmt); !ok {
		t.Errorf("filter should wrap the push, got %s", loop.Body[0])
	}

	// Each comprehension gets its own accumulator.
	mod, _, _ = parseSource(t, "a = [x for x in xs]\nb = {k: v for k, v in ps}\n")
	second := mod.Items[1].(*StmtItem).Stmt.(*AssignStmt).Value.(*CallExpr).Callee.(*ClosureExpr)
	if !strings.Contains(second.Value.String(), "__acc1") {
		t.Errorf("second accumulator = %s", second.Value)
	}
}

func TestParse_KeywordArguments(t *testing.T) {
	src := "type P:\n    x: int\n    y: int\np = P(1, y=2)\nq = P(y=4, x=3)\n"
	mod, _, _ := parseSource(t, src)
	var lits []string
	for _, it := range mod.Items[1:] {
		lits = append(lits, it.(*StmtItem).Stmt.(*AssignStmt).Value.String())
	}
	want := []string{"P{x: 1, y: 2}", "P{x: 3, y: 4}"}
	if !reflect.DeepEqual(lits, want) {
		t.Errorf("got %v, want %v", lits, want)
	}
}

func TestParse_ParamComplexity(t *testing.T) {
	src := "type Point:\n    x: int\ndef f(xs: List[int], n: int, s: str, p: Point, d: dict[str, int], flag: bool = True):\n    pass\n"
	_, syms, _ := parseSource(t, src)
	sig, ok := syms.GetFunc("f")
	if !ok {
		t.Fatal("f not registered")
	}
	want := []bool{true, false, true, true, true, false}
	if !reflect.DeepEqual(sig.Complex, want) {
		t.Errorf("Complex = %v, want %v", sig.Complex, want)
	}
	if sig.IsComplex(99) {
		t.Error("out of range parameters are not complex")
	}
}

func TestParse_KeywordCallBinding(t *testing.T) {
	decl := "def f(a: int, b: int) -> int:\n    return a + b\n"
	tests := []struct {
		name string
		call string
		want string
	}{
		{"Reordered", "x = f(b=2, a=1)\n", "Let(x = Call(f, 1, 2))"},
		{"Unmatched fills next slot", "x = f(1, c=2)\n", "Let(x = Call(f, 1, 2))"},
		{"Unmatched after named", "x = f(c=1, b=2)\n", "Let(x = Call(f, 1, 2))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, _, _ := parseSource(t, decl+tt.call)
			if got := firstStmt(t, mod).String(); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"Dangling operator", "x = 1 +\n", "unexpected end of line"},
		{"Nested def", "def f():\n    def g():\n        pass\n", "nested def is not supported"},
		{"Unsupported statement", "try:\n    pass\n", `unsupported statement "try"`},
		{"Chained assignment", "a = b = 1\n", "chained assignment is not supported"},
		{"Missing field", "type P:\n    x: int\n    y: int\np = P(1)\n", `missing field "y" in P`},
		{"Too many keywords", "def f(a: int):\n    pass\nf(1, b=1)\n", "f takes 1 arguments, got 2"},
		{"Duplicate variant", "type Cmd = | Move(int) | Move(str)\n", "variant Move__a1 of Cmd is declared twice with the same fields"},
		{"Duplicate class variant", "class C(Enum):\n    Red\n    Red\n", "variant Red__a0 of C is declared twice with the same fields"},
		{"Slice step", "y = xs[::2]\n", "slice steps are not supported"},
		{"Builtin arity", "n = len(a, b)\n", "len() takes [1] arguments, got 2"},
		{"Star outside target", "f(*xs)\n", "argument unpacking is not supported"},
		{"Empty match", "match x:\n    pass\n", "expected CASE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(t, tt.src)
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParse_ErrorFormat(t *testing.T) {
	err := parseError(t, "x = 1\ny = 2 +\n")
	want := "line 2: unexpected end of line\n  |> y = 2 +"
	if err.Error() != want {
		t.Errorf("got:\n%s\nwant:\n%s", err.Error(), want)
	}
	d, ok := AsDiagnostic(err)
	if !ok || d.Category != CategoryParse || d.Pos.Line != 2 {
		t.Errorf("AsDiagnostic = %+v, %v", d, ok)
	}
}

func TestParse_Incomplete(t *testing.T) {
	tests := []struct {
		src        string
		incomplete bool
	}{
		{"def f():\n", true},
		{"if x:\n", true},
		{"x = (1,\n", true},
		{"x = 1 +\n", false},
		{"x = )\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Compile(tt.src, "")
			if err == nil {
				t.Fatal("expected an error")
			}
			if IsIncomplete(err) != tt.incomplete {
				t.Errorf("IsIncomplete = %v, want %v (err: %v)", IsIncomplete(err), tt.incomplete, err)
			}
		})
	}
}

func TestParse_Warnings(t *testing.T) {
	src := "def Thing():\n    pass\nclass Thing:\n    x: int\n"
	_, _, diags := parseSource(t, src)
	if len(diags) == 0 {
		t.Fatal("expected a warning for the conflicting declaration")
	}
	if diags[0].Level != LevelWarning || !strings.Contains(diags[0].Message, "declared as both") {
		t.Errorf("unexpected diagnostic %+v", diags[0])
	}
}

func TestParse_Patterns(t *testing.T) {
	src := `type Shape = | Circle(float) | Rect(w: float, h: float) | Empty
match s:
    case Circle(r) if r > 1.0:
        pass
    case Rect(w, h):
        pass
    case Rect(w=w, ...):
        pass
    case Empty | Circle(_):
        pass
    case [a, *rest]:
        pass
    case (1, "x"):
        pass
    case other:
        pass
`
	mod, _, _ := parseSource(t, src)
	m := firstStmt(t, mod).(*MatchStmt)
	var got []string
	for _, arm := range m.Arms {
		got = append(got, arm.Pattern.String())
	}
	want := []string{
		"Shape::Circle(r)",
		"Shape::Rect{w: w, h: h}",
		"Shape::Rect{w: w, ..}",
		"Shape::Empty | Shape::Circle(_)",
		"[a, *rest]",
		`(1, "x")`,
		"other",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("patterns:\n got %v\nwant %v", got, want)
	}
	if m.Arms[0].Guard == nil {
		t.Error("guard dropped")
	}
}
