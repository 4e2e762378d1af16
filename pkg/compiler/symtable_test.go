package compiler

import (
	"reflect"
	"strings"
	"testing"
)

func TestSymbolTable_Scopes(t *testing.T) {
	st := NewSymbolTable()

	// Declare outside any scope is ignored.
	st.Declare("ghost", Named("i64"))
	if _, ok := st.Lookup("ghost"); ok {
		t.Error("declaration outside a scope should be dropped")
	}

	st.EnterScope()
	st.Declare("x", Named("i64"))
	st.EnterScope()
	st.Declare("x", Named("String"))
	st.Declare("y", Named("bool"))

	if d, _ := st.Lookup("x"); d.String() != "String" {
		t.Errorf("inner x = %s, want String", d)
	}
	st.ExitScope()
	if d, _ := st.Lookup("x"); d.String() != "i64" {
		t.Errorf("outer x = %s, want i64", d)
	}
	if _, ok := st.Lookup("y"); ok {
		t.Error("y should not be visible after its scope closed")
	}
	st.ExitScope()

	entered, exited := st.Balance()
	if entered != 2 || exited != 2 {
		t.Errorf("Balance = %d/%d, want 2/2", entered, exited)
	}
}

func TestSymbolTable_FunctionIsolation(t *testing.T) {
	st := NewSymbolTable()
	st.EnterScope()
	st.Declare("outer", Named("i64"))

	st.EnterFunction()
	if _, ok := st.Lookup("outer"); ok {
		t.Error("function body must not see enclosing bindings")
	}
	st.Declare("inner", Named("i64"))
	if st.Depth() != 1 {
		t.Errorf("Depth inside function = %d, want 1", st.Depth())
	}
	st.ExitFunction()

	if _, ok := st.Lookup("outer"); !ok {
		t.Error("enclosing bindings must be restored after the function")
	}
	if _, ok := st.Lookup("inner"); ok {
		t.Error("function bindings leaked")
	}
	st.ExitScope()
}

func TestSymbolTable_ExitWithoutEnterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewSymbolTable().ExitScope()
}

func TestSymbolTable_Globals(t *testing.T) {
	st := NewSymbolTable()
	if _, conflict := st.DeclareGlobal("Point", ClassStruct); conflict {
		t.Fatal("first declaration cannot conflict")
	}
	if _, conflict := st.DeclareGlobal("Point", ClassStruct); conflict {
		t.Error("redeclaring with the same class is not a conflict")
	}
	prev, conflict := st.DeclareGlobal("Point", ClassFunc)
	if !conflict || prev != ClassStruct {
		t.Errorf("DeclareGlobal = %s/%v, want struct/true", prev, conflict)
	}
	if st.Classify("Point") != ClassStruct {
		t.Error("conflicting declaration must keep the first class")
	}

	st.DeclareGlobal("math", ClassModule)
	st.DeclareGlobal("helper", ClassFunc)

	tests := []struct {
		name     string
		pathRoot bool
		typeName bool
	}{
		{"Point", true, true},
		{"math", true, false},
		{"helper", false, false},
		{"Vec", true, true},
		{"unknown", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := st.IsPathRoot(tt.name); got != tt.pathRoot {
				t.Errorf("IsPathRoot = %v, want %v", got, tt.pathRoot)
			}
			if got := st.IsTypeName(tt.name); got != tt.typeName {
				t.Errorf("IsTypeName = %v, want %v", got, tt.typeName)
			}
		})
	}

	// A local binding shadows the type for member access.
	st.EnterScope()
	st.Declare("Point", Unknown())
	if st.IsPathRoot("Point") {
		t.Error("shadowed name must not be a path root")
	}
	st.ExitScope()
}

func TestSymbolTable_Registries(t *testing.T) {
	st := NewSymbolTable()
	st.DefineStruct(StructDef{Name: "P", Fields: []string{"x", "y"}})
	st.DefineEnum(EnumDef{Name: "Shape", Variants: []string{"Circle", "Square"}})
	st.DefineEnum(EnumDef{Name: "Tool", Variants: []string{"Square", "Saw"}})
	st.DefineFunc(FuncSig{Name: "f", Params: []string{"a", "b"}, Defaults: []Expr{nil, &IntLit{Value: "1"}}})

	if def, ok := st.GetStruct("P"); !ok || def.FieldIndex("y") != 1 || def.FieldIndex("z") != -1 {
		t.Errorf("GetStruct/FieldIndex wrong: %+v", def)
	}
	if owner, ok := st.VariantOwner("Circle"); !ok || owner != "Shape" {
		t.Errorf("VariantOwner(Circle) = %q, %v", owner, ok)
	}
	if _, ok := st.VariantOwner("Square"); ok {
		t.Error("variant declared by two enums must be ambiguous")
	}
	if sig, ok := st.GetFunc("f"); !ok || !sig.HasDefaults() {
		t.Error("expected f with defaults")
	}
}

func TestSymbolTable_String(t *testing.T) {
	st := NewSymbolTable()
	st.DeclareGlobal("b", ClassFunc)
	st.DeclareGlobal("a", ClassStruct)
	st.DefineStruct(StructDef{Name: "a", Fields: []string{"x"}})

	got := st.String()
	if strings.Index(got, "  a ") > strings.Index(got, "  b ") {
		t.Errorf("globals not sorted:\n%s", got)
	}
	assertContains(t, got, "struct a: x")
	if got != st.String() {
		t.Error("String must be deterministic")
	}

	want := []string{"struct a", "func b"}
	if summary := st.ClassSummary(); !reflect.DeepEqual(summary, want) {
		t.Errorf("ClassSummary = %v, want %v", summary, want)
	}
}

func TestTypeDesc(t *testing.T) {
	tests := []struct {
		desc   TypeDesc
		str    string
		isList bool
		isMap  bool
		isStr  bool
	}{
		{Named("i64"), "i64", false, false, false},
		{Named("String"), "String", false, false, true},
		{Parametrized("Vec", Named("i64")), "Vec<i64>", true, false, false},
		{Parametrized("HashMap", Named("String"), Named("i64")), "HashMap<String, i64>", false, true, false},
		{TupleOf(Named("i64"), Named("bool")), "(i64, bool)", false, false, false},
		{Unknown(), "?", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if tt.desc.String() != tt.str {
				t.Errorf("String = %q, want %q", tt.desc.String(), tt.str)
			}
			if tt.desc.IsList() != tt.isList || tt.desc.IsMap() != tt.isMap || tt.desc.IsString() != tt.isStr {
				t.Errorf("predicates wrong for %s", tt.str)
			}
		})
	}
}
