package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quichelang/quiche-sub000/pkg/compiler"
	"github.com/quichelang/quiche-sub000/pkg/config"
)

const addSrc = "def add(a: int, b: int) -> int:\n    return a + b\n\n\ndef main():\n    print(add(1, 2))\n"

func newTestApp() (*app, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &app{stdout: &stdout, stderr: &stderr, cfg: config.Default()}, &stdout, &stderr
}

func writeSource(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"NoArgs", nil, exitUsage},
		{"Unknown", []string{"frobnicate"}, exitUsage},
		{"Help", []string{"help"}, exitOK},
		{"EmitWithoutFile", []string{"emit"}, exitUsage},
		{"BuildWithoutFiles", []string{"build"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, stderr := newTestApp()
			if got := a.run(tt.args); got != tt.want {
				t.Errorf("exit = %d, want %d", got, tt.want)
			}
			if stderr.Len() == 0 {
				t.Error("expected usage text on stderr")
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	a, stdout, _ := newTestApp()
	if code := a.run([]string{"version"}); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if got := stdout.String(); got != "quiche "+version+"\n" {
		t.Errorf("got %q", got)
	}
}

func TestRun_Emit(t *testing.T) {
	path := writeSource(t, "add.qrs", addSrc)
	a, stdout, stderr := newTestApp()
	if code := a.run([]string{"emit", path}); code != exitOK {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	out := stdout.String()
	for _, want := range []string{"// Generated by quiche from ", "pub fn add(a: i64, b: i64) -> i64 {", "fn main() {"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, but it didn't.\nOutput:\n%s", want, out)
		}
	}
}

func TestRun_EmitError(t *testing.T) {
	path := writeSource(t, "bad.qrs", "x = $\n")
	a, stdout, stderr := newTestApp()
	if code := a.run([]string{"emit", path}); code != exitFailed {
		t.Fatalf("exit = %d, want %d", code, exitFailed)
	}
	if stdout.Len() != 0 {
		t.Errorf("nothing should be emitted, got:\n%s", stdout)
	}
	if !strings.Contains(stderr.String(), "bad.qrs") {
		t.Errorf("error should name the file:\n%s", stderr)
	}
}

func TestRun_Tokens(t *testing.T) {
	path := writeSource(t, "x.qrs", "x = 1\n")
	a, stdout, _ := newTestApp()
	if code := a.run([]string{"tokens", path}); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "Tokens (") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, `"x"`) || !strings.Contains(out, "1:1") {
		t.Errorf("missing identifier token:\n%s", out)
	}
}

func TestRun_AST(t *testing.T) {
	path := writeSource(t, "add.qrs", addSrc)
	a, stdout, _ := newTestApp()
	if code := a.run([]string{"ast", path}); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "AST\n") {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestRun_Build(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"one.qrs", "two.qrs", "three.qrs"} {
		p := filepath.Join(dir, name)
		src := "def " + strings.TrimSuffix(name, ".qrs") + "() -> int:\n    return 1\n"
		if err := os.WriteFile(p, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	outDir := filepath.Join(dir, "out")

	a, _, stderr := newTestApp()
	args := append([]string{"build", "-o", outDir, "-j", "2"}, paths...)
	if code := a.run(args); code != exitOK {
		t.Fatalf("exit = %d, stderr:\n%s", code, stderr)
	}
	for _, name := range []string{"one", "two", "three"} {
		data, err := os.ReadFile(filepath.Join(outDir, name+".rs"))
		if err != nil {
			t.Fatalf("missing output for %s: %v", name, err)
		}
		if !strings.Contains(string(data), "pub fn "+name+"() -> i64 {") {
			t.Errorf("%s.rs:\n%s", name, data)
		}
	}
}

func TestRun_BuildFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.qrs")
	bad := filepath.Join(dir, "bad.qrs")
	if err := os.WriteFile(good, []byte("def f() -> int:\n    return 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("def f(:\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a, _, stderr := newTestApp()
	if code := a.run([]string{"build", good, bad}); code != exitFailed {
		t.Fatalf("exit = %d, want %d", code, exitFailed)
	}
	if _, err := os.Stat(filepath.Join(dir, "good.rs")); err != nil {
		t.Errorf("good file should still be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.rs")); err == nil {
		t.Error("bad file must not produce output")
	}
	if stderr.Len() == 0 {
		t.Error("expected a diagnostic on stderr")
	}
}

func TestRun_Check(t *testing.T) {
	a, stdout, _ := newTestApp()
	if code := a.run([]string{"check", writeSource(t, "add.qrs", addSrc)}); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(stdout.String(), "ok, 2 top-level names agree") {
		t.Errorf("unexpected report:\n%s", stdout)
	}

	a, stdout, _ = newTestApp()
	src := "type Point:\n    x: int\n    y: int\n"
	if code := a.run([]string{"check", writeSource(t, "point.qrs", src)}); code != exitOK {
		t.Fatalf("non-Python files are not a failure, exit = %d", code)
	}
	if !strings.Contains(stdout.String(), "not Python-compatible") {
		t.Errorf("unexpected report:\n%s", stdout)
	}
}

func TestOptions_Trace(t *testing.T) {
	a, _, stderr := newTestApp()
	a.cfg.Trace = true
	if _, err := compiler.Compile("x = 1\n", "t.qrs", a.options()...); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "[lex]") {
		t.Errorf("trace not written:\n%s", stderr)
	}
}

func TestNeedsMore(t *testing.T) {
	tests := []struct {
		name string
		src  string
		last string
		want bool
	}{
		{"Statement", "x = 1", "x = 1", false},
		{"OpenBracket", "xs = [1,", "xs = [1,", true},
		{"BlockHeader", "def f():", "def f():", true},
		{"BlockBody", "def f():\n    return 1", "    return 1", true},
		{"BlankEndsBlock", "def f():\n    return 1\n", "", false},
		{"OpenString", "s = \"abc", "s = \"abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsMore(tt.src, tt.last); got != tt.want {
				t.Errorf("needsMore(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestOpensBlock(t *testing.T) {
	if !opensBlock("if x:  # comment") {
		t.Error("a colon before a comment opens a block")
	}
	if opensBlock("d = {1: 2}") {
		t.Error("a dict literal does not open a block")
	}
}

func TestSession(t *testing.T) {
	var s session
	rust, _, err := s.translate("def sq(x: int) -> int:\n    return x * x\n", nil)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if !strings.Contains(rust, "pub fn sq(x: i64) -> i64 {") {
		t.Errorf("unexpected rust:\n%s", rust)
	}
	if len(s.decls) != 1 {
		t.Fatalf("declaration not remembered: %v", s.decls)
	}

	rust, _, err = s.translate("y = sq(3)", nil)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if strings.Contains(rust, "pub fn sq") {
		t.Errorf("earlier declarations should not be repeated:\n%s", rust)
	}
	if !strings.Contains(rust, "sq(3)") {
		t.Errorf("unexpected rust:\n%s", rust)
	}
	if len(s.decls) != 1 {
		t.Errorf("statements must not be remembered: %v", s.decls)
	}
}

func TestDeclares(t *testing.T) {
	for src, want := range map[string]bool{
		"def f():\n    pass": true,
		"class C:\n    pass":  true,
		"@dataclass\nclass C": true,
		"x = 1":               false,
		"print(x)":            false,
	} {
		if got := declares(src); got != want {
			t.Errorf("declares(%q) = %v, want %v", src, got, want)
		}
	}
}
