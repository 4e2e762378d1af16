// Package pycompat cross-checks quiche sources against a real Python parser.
// Quiche borrows Python's surface syntax; a file that also parses as Python
// should declare the same top-level functions and classes under both readers.
package pycompat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/quichelang/quiche-sub000/pkg/compiler"
)

// Def is a top-level function or class.
type Def struct {
	Name string
	Kind string // "def" or "class"
	Line int
}

func (d Def) String() string {
	return fmt.Sprintf("%s %s (line %d)", d.Kind, d.Name, d.Line)
}

// TopLevelNames parses src as Python and lists its top-level defs in source
// order.
func TopLevelNames(src, filename string) ([]Def, error) {
	tree, err := parser.Parse(strings.NewReader(src), filename, py.ExecMode)
	if err != nil {
		return nil, fmt.Errorf("python parse error: %w", err)
	}
	module, ok := tree.(*ast.Module)
	if !ok {
		return nil, fmt.Errorf("expected *ast.Module, got %T", tree)
	}

	var defs []Def
	for _, stmt := range module.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDef:
			defs = append(defs, Def{Name: string(s.Name), Kind: "def", Line: s.Lineno})
		case *ast.ClassDef:
			defs = append(defs, Def{Name: string(s.Name), Kind: "class", Line: s.Lineno})
		}
	}
	return defs, nil
}

// QuicheNames lists the names a parsed module declares at the top level.
// A class that lowered to a struct and an impl counts once.
func QuicheNames(mod *compiler.Module) []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, it := range mod.Items {
		switch n := it.(type) {
		case *compiler.FunctionDecl:
			add(n.Name)
		case *compiler.StructDecl:
			add(n.Name)
		case *compiler.EnumDecl:
			add(n.Name)
		case *compiler.TraitDecl:
			add(n.Name)
		case *compiler.ImplDecl:
			if n.Trait == "" {
				add(n.Target)
			}
		}
	}
	return names
}

// Report is the outcome of a cross-check.
type Report struct {
	File string

	// PythonErr is set when src is not valid Python. That is expected for
	// files using type, match, or annotated fields, and is not a failure.
	PythonErr error

	Python          []Def
	Quiche          []string
	MissingInQuiche []string // defined for Python only
	MissingInPython []string // defined for quiche only
}

// Compatible reports whether both parsers accepted the file and agree on its
// top-level names.
func (r *Report) Compatible() bool {
	return r.PythonErr == nil && len(r.MissingInQuiche) == 0 && len(r.MissingInPython) == 0
}

func (r *Report) String() string {
	var sb strings.Builder
	switch {
	case r.PythonErr != nil:
		fmt.Fprintf(&sb, "%s: not Python-compatible: %v\n", r.File, r.PythonErr)
	case r.Compatible():
		fmt.Fprintf(&sb, "%s: ok, %d top-level names agree\n", r.File, len(r.Python))
	default:
		fmt.Fprintf(&sb, "%s: top-level names differ\n", r.File)
		for _, n := range r.MissingInQuiche {
			fmt.Fprintf(&sb, "  python only: %s\n", n)
		}
		for _, n := range r.MissingInPython {
			fmt.Fprintf(&sb, "  quiche only: %s\n", n)
		}
	}
	return sb.String()
}

// CrossCheck compares the top-level names of mod, the quiche parse of src,
// with those of a Python parse of the same text.
func CrossCheck(src, filename string, mod *compiler.Module) *Report {
	r := &Report{File: filename, Quiche: QuicheNames(mod)}
	defs, err := TopLevelNames(src, filename)
	if err != nil {
		r.PythonErr = err
		return r
	}
	r.Python = defs

	inPython := map[string]bool{}
	for _, d := range defs {
		inPython[d.Name] = true
	}
	inQuiche := map[string]bool{}
	for _, n := range r.Quiche {
		inQuiche[n] = true
		if !inPython[n] {
			r.MissingInPython = append(r.MissingInPython, n)
		}
	}
	for n := range inPython {
		if !inQuiche[n] {
			r.MissingInQuiche = append(r.MissingInQuiche, n)
		}
	}
	sort.Strings(r.MissingInQuiche)
	sort.Strings(r.MissingInPython)
	return r
}
