package compiler

import "testing"

func TestRustType(t *testing.T) {
	named := func(name string, args ...TypeExpr) *NamedType {
		return &NamedType{Path: []string{name}, Args: args}
	}

	tests := []struct {
		name string
		in   TypeExpr
		want string
	}{
		{"Unit", nil, "()"},
		{"Infer", &InferType{}, "_"},
		{"int", named("int"), "i64"},
		{"float", named("float"), "f64"},
		{"str", named("str"), "String"},
		{"List", named("List", named("int")), "Vec<i64>"},
		{"lowercase list", named("list", named("str")), "Vec<String>"},
		{"Dict", named("Dict", named("str"), named("float")), "std::collections::HashMap<String, f64>"},
		{"Set", named("Set", named("int")), "std::collections::HashSet<i64>"},
		{"Option", named("Option", named("int")), "Option<i64>"},
		{"Rc of RefCell", named("Rc", named("RefCell", named("int"))), "std::rc::Rc<std::cell::RefCell<i64>>"},
		{"Path", &NamedType{Path: []string{"std", "fs", "File"}}, "std::fs::File"},
		{"Tuple", &TupleType{Elems: []TypeExpr{named("int"), named("bool")}}, "(i64, bool)"},
		{"One-tuple", &TupleType{Elems: []TypeExpr{named("int")}}, "(i64,)"},
		{"Empty tuple", &TupleType{}, "()"},
		{"User type", named("Point"), "Point"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rustType(tt.in); got != tt.want {
				t.Errorf("rustType = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeParamList(t *testing.T) {
	tps := []TypeParam{
		{Name: "T", Bounds: []TypeExpr{&NamedType{Path: []string{"Display"}}, &NamedType{Path: []string{"Clone"}}}},
		{Name: "U"},
	}
	if got := typeParamList(tps); got != "<T: Display + Clone, U>" {
		t.Errorf("typeParamList = %q", got)
	}
	if got := typeArgNames(tps); got != "<T, U>" {
		t.Errorf("typeArgNames = %q", got)
	}
	if typeParamList(nil) != "" || typeArgNames(nil) != "" {
		t.Error("empty parameter lists must render as nothing")
	}
}

func TestIsUnitType(t *testing.T) {
	if !isUnitType(nil) || !isUnitType(&TupleType{}) {
		t.Error("nil and () are unit")
	}
	if isUnitType(&NamedType{Path: []string{"int"}}) {
		t.Error("int is not unit")
	}
}
