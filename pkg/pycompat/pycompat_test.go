package pycompat

import (
	"reflect"
	"strings"
	"testing"

	"github.com/quichelang/quiche-sub000/pkg/compiler"
)

func quicheModule(t *testing.T, src string) *compiler.Module {
	t.Helper()
	out, err := compiler.Compile(src, "test.qrs")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return out.Module
}

func TestTopLevelNames(t *testing.T) {
	src := "def add(a: int, b: int) -> int:\n    return a + b\n\n\ndef main():\n    print(add(1, 2))\n"
	defs, err := TopLevelNames(src, "add.py")
	if err != nil {
		t.Fatalf("TopLevelNames failed: %v", err)
	}
	want := []Def{{Name: "add", Kind: "def", Line: 1}, {Name: "main", Kind: "def", Line: 5}}
	if !reflect.DeepEqual(defs, want) {
		t.Errorf("got %v, want %v", defs, want)
	}
}

func TestCrossCheck_Compatible(t *testing.T) {
	src := "def add(a: int, b: int) -> int:\n    return a + b\n\n\ndef main():\n    print(add(1, 2))\n"
	r := CrossCheck(src, "add.qrs", quicheModule(t, src))
	if !r.Compatible() {
		t.Fatalf("expected compatible report, got:\n%s", r)
	}
	if !strings.Contains(r.String(), "ok, 2 top-level names agree") {
		t.Errorf("unexpected report: %s", r)
	}
}

func TestCrossCheck_NotPython(t *testing.T) {
	src := "type Point:\n    x: int\n    y: int\n"
	r := CrossCheck(src, "point.qrs", quicheModule(t, src))
	if r.PythonErr == nil {
		t.Fatal("type declarations are not Python")
	}
	if r.Compatible() {
		t.Error("a file Python rejects cannot be compatible")
	}
	if !strings.Contains(r.String(), "not Python-compatible") {
		t.Errorf("unexpected report: %s", r)
	}
	if !reflect.DeepEqual(r.Quiche, []string{"Point"}) {
		t.Errorf("quiche names = %v", r.Quiche)
	}
}

func TestCrossCheck_Differences(t *testing.T) {
	mod := &compiler.Module{Items: []compiler.Item{
		&compiler.FunctionDecl{Name: "a"},
		&compiler.StructDecl{Name: "S"},
		&compiler.ImplDecl{Target: "S"},
	}}
	r := CrossCheck("def a():\n    pass\n\ndef b():\n    pass\n", "diff.qrs", mod)

	if !reflect.DeepEqual(r.MissingInQuiche, []string{"b"}) {
		t.Errorf("MissingInQuiche = %v", r.MissingInQuiche)
	}
	if !reflect.DeepEqual(r.MissingInPython, []string{"S"}) {
		t.Errorf("MissingInPython = %v", r.MissingInPython)
	}
	out := r.String()
	for _, want := range []string{"top-level names differ", "python only: b", "quiche only: S"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestQuicheNames(t *testing.T) {
	mod := &compiler.Module{Items: []compiler.Item{
		&compiler.StructDecl{Name: "P"},
		&compiler.ImplDecl{Target: "P"},
		&compiler.ImplDecl{Target: "P", Trait: "Show"},
		&compiler.EnumDecl{Name: "E"},
		&compiler.TraitDecl{Name: "Show"},
	}}
	want := []string{"P", "E", "Show"}
	if got := QuicheNames(mod); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
