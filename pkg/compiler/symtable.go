package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// DescKind is the shape of a TypeDesc.
type DescKind int

const (
	DescUnknown DescKind = iota
	DescNamed
	DescTuple
	DescParametrized
)

// TypeDesc is the lightweight classification attached to a binding. It only
// steers code generation choices; nothing is type checked against it.
type TypeDesc struct {
	Kind  DescKind
	Path  []string   // Named path, or the Parametrized base
	Elems []TypeDesc // Tuple elements, or Parametrized arguments
}

func Unknown() TypeDesc { return TypeDesc{} }

func Named(path ...string) TypeDesc { return TypeDesc{Kind: DescNamed, Path: path} }

func TupleOf(elems ...TypeDesc) TypeDesc { return TypeDesc{Kind: DescTuple, Elems: elems} }

func Parametrized(base string, args ...TypeDesc) TypeDesc {
	return TypeDesc{Kind: DescParametrized, Path: []string{base}, Elems: args}
}

func (d TypeDesc) String() string {
	switch d.Kind {
	case DescNamed:
		return strings.Join(d.Path, "::")
	case DescTuple:
		parts := make([]string, len(d.Elems))
		for i, e := range d.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case DescParametrized:
		parts := make([]string, len(d.Elems))
		for i, e := range d.Elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%s<%s>", strings.Join(d.Path, "::"), strings.Join(parts, ", "))
	default:
		return "?"
	}
}

func (d TypeDesc) base() string {
	if (d.Kind == DescNamed || d.Kind == DescParametrized) && len(d.Path) > 0 {
		return d.Path[len(d.Path)-1]
	}
	return ""
}

// IsMap reports an associative container.
func (d TypeDesc) IsMap() bool {
	switch d.base() {
	case "HashMap", "BTreeMap", "Dict", "dict":
		return true
	}
	return false
}

// IsList reports a growable sequence.
func (d TypeDesc) IsList() bool {
	switch d.base() {
	case "Vec", "List", "list", "VecDeque":
		return true
	}
	return false
}

// IsString reports an owned or borrowed string.
func (d TypeDesc) IsString() bool {
	switch d.base() {
	case "String", "str":
		return true
	}
	return false
}

// Class is what a top-level name denotes.
type Class int

const (
	ClassNone Class = iota
	ClassStruct
	ClassEnum
	ClassTrait
	ClassAlias
	ClassFunc
	ClassConst
	ClassModule
	ClassForeign // imported symbol of unknown kind
)

var classNames = [...]string{
	ClassNone:    "none",
	ClassStruct:  "struct",
	ClassEnum:    "enum",
	ClassTrait:   "trait",
	ClassAlias:   "alias",
	ClassFunc:    "func",
	ClassConst:   "const",
	ClassModule:  "module",
	ClassForeign: "foreign",
}

func (c Class) String() string {
	if int(c) >= 0 && int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// IsPathRoot reports whether a.b on a name of this class means a::b.
func (c Class) IsPathRoot() bool {
	switch c {
	case ClassStruct, ClassEnum, ClassTrait, ClassAlias, ClassModule, ClassForeign:
		return true
	}
	return false
}

// preludeTypes are always treated as type names.
var preludeTypes = map[string]bool{
	"String": true, "Vec": true, "HashMap": true, "HashSet": true, "BTreeMap": true,
	"VecDeque": true, "Option": true, "Result": true, "Box": true, "Rc": true,
	"RefCell": true, "Arc": true, "Self": true, "List": true, "Dict": true, "Set": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true, "bool": true, "char": true, "str": true,
	"int": true, "float": true,
}

// StructDef records a struct's fields in declaration order.
type StructDef struct {
	Name   string
	Fields []string
	Types  []TypeExpr
}

// FieldIndex returns the position of field name, or -1.
func (d StructDef) FieldIndex(name string) int {
	for i, f := range d.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// EnumDef records an enum's variant names, plus field order for variants
// with named fields.
type EnumDef struct {
	Name     string
	Variants []string
	Fields   map[string][]string
}

// HasVariant reports whether v names one of the enum's variants.
func (d EnumDef) HasVariant(v string) bool {
	for _, name := range d.Variants {
		if name == v {
			return true
		}
	}
	return false
}

// FuncSig is a registered top-level function signature.
type FuncSig struct {
	Name     string
	Params   []string // declaration order, self excluded
	Defaults []Expr   // parallel to Params; nil where no default exists
	Complex  []bool   // parallel to Params; annotation names an owned heap type
	HasSelf  bool
	Generic  bool
}

// IsComplex reports whether the i-th parameter takes an owned heap value that
// a caller must not give away.
func (f FuncSig) IsComplex(i int) bool {
	return i < len(f.Complex) && f.Complex[i]
}

// HasDefaults reports whether any parameter carries a default value.
func (f FuncSig) HasDefaults() bool {
	for _, d := range f.Defaults {
		if d != nil {
			return true
		}
	}
	return false
}

// SymbolTable holds the classification of top-level names, the struct, enum
// and function registries, and a stack of lexical scopes.
type SymbolTable struct {
	globals map[string]Class

	// Stack of lexical scopes, innermost last.
	locals []map[string]TypeDesc
	// Scope stacks suspended by EnterFunction.
	saved [][]map[string]TypeDesc

	structs map[string]StructDef
	enums   map[string]EnumDef
	funcs   map[string]FuncSig

	entered, exited int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		globals: make(map[string]Class),
		structs: make(map[string]StructDef),
		enums:   make(map[string]EnumDef),
		funcs:   make(map[string]FuncSig),
	}
}

// EnterFunction suspends the current scopes and opens a fresh function scope,
// so a function body never sees bindings of the code around it.
func (s *SymbolTable) EnterFunction() {
	s.saved = append(s.saved, s.locals)
	s.locals = nil
	s.EnterScope()
}

// ExitFunction closes the function scope and restores the suspended stack.
func (s *SymbolTable) ExitFunction() {
	s.ExitScope()
	if n := len(s.saved); n > 0 {
		s.locals = s.saved[n-1]
		s.saved = s.saved[:n-1]
	}
}

func (s *SymbolTable) EnterScope() {
	s.entered++
	s.locals = append(s.locals, make(map[string]TypeDesc))
}

func (s *SymbolTable) ExitScope() {
	if len(s.locals) == 0 {
		panic("ExitScope without a matching EnterScope")
	}
	s.exited++
	s.locals = s.locals[:len(s.locals)-1]
}

// Depth is the number of open scopes in the active stack.
func (s *SymbolTable) Depth() int {
	return len(s.locals)
}

// Balance returns how many scopes have been entered and exited so far.
func (s *SymbolTable) Balance() (entered, exited int) {
	return s.entered, s.exited
}

// Declare binds name in the innermost scope. Outside any scope it is a no-op.
func (s *SymbolTable) Declare(name string, desc TypeDesc) {
	if len(s.locals) == 0 {
		return
	}
	s.locals[len(s.locals)-1][name] = desc
}

// Lookup searches the scopes from innermost to outermost.
func (s *SymbolTable) Lookup(name string) (TypeDesc, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if d, ok := s.locals[i][name]; ok {
			return d, true
		}
	}
	return TypeDesc{}, false
}

// DeclareGlobal classifies a top-level name. It returns the earlier class
// when name was already classified differently.
func (s *SymbolTable) DeclareGlobal(name string, c Class) (Class, bool) {
	if prev, ok := s.globals[name]; ok && prev != c {
		return prev, true
	}
	s.globals[name] = c
	return c, false
}

// Reclassify overrides the class of an already declared name.
func (s *SymbolTable) Reclassify(name string, c Class) {
	s.globals[name] = c
}

// Classify returns what the top-level name denotes.
func (s *SymbolTable) Classify(name string) Class {
	return s.globals[name]
}

// IsTypeName reports whether name is a prelude or declared type.
func (s *SymbolTable) IsTypeName(name string) bool {
	if preludeTypes[name] {
		return true
	}
	switch s.globals[name] {
	case ClassStruct, ClassEnum, ClassTrait, ClassAlias:
		return true
	}
	return false
}

// IsPathRoot reports whether name.member must render as name::member: the
// name is not shadowed by a value and classifies as a type or module.
func (s *SymbolTable) IsPathRoot(name string) bool {
	if _, ok := s.Lookup(name); ok {
		return false
	}
	return preludeTypes[name] || s.globals[name].IsPathRoot()
}

func (s *SymbolTable) DefineStruct(def StructDef) {
	s.structs[def.Name] = def
}

func (s *SymbolTable) GetStruct(name string) (StructDef, bool) {
	d, ok := s.structs[name]
	return d, ok
}

func (s *SymbolTable) DefineEnum(def EnumDef) {
	s.enums[def.Name] = def
}

func (s *SymbolTable) GetEnum(name string) (EnumDef, bool) {
	d, ok := s.enums[name]
	return d, ok
}

// VariantOwner finds the single enum declaring variant v. Names declared by
// several enums are ambiguous and report false.
func (s *SymbolTable) VariantOwner(v string) (string, bool) {
	owner := ""
	for _, name := range sortedKeys(s.enums) {
		if s.enums[name].HasVariant(v) {
			if owner != "" {
				return "", false
			}
			owner = name
		}
	}
	return owner, owner != ""
}

func (s *SymbolTable) DefineFunc(sig FuncSig) {
	s.funcs[sig.Name] = sig
}

func (s *SymbolTable) GetFunc(name string) (FuncSig, bool) {
	f, ok := s.funcs[name]
	return f, ok
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	if len(s.globals) > 0 {
		sb.WriteString("Globals:\n")
		for _, name := range sortedKeys(s.globals) {
			fmt.Fprintf(&sb, "  %-20s  %s\n", name, s.globals[name])
		}
	} else {
		sb.WriteString("Globals: (empty)\n")
	}

	if len(s.locals) > 0 {
		sb.WriteString("Locals (Active Stack):\n")
		for i, scope := range s.locals {
			fmt.Fprintf(&sb, "  Scope %d:\n", i)
			for _, name := range sortedKeys(scope) {
				fmt.Fprintf(&sb, "    %-20s  %s\n", name, scope[name])
			}
		}
	}

	if len(s.structs) > 0 {
		sb.WriteString("Structs:\n")
		for _, name := range sortedKeys(s.structs) {
			fmt.Fprintf(&sb, "  struct %s: %s\n", name, strings.Join(s.structs[name].Fields, ", "))
		}
	}
	if len(s.enums) > 0 {
		sb.WriteString("Enums:\n")
		for _, name := range sortedKeys(s.enums) {
			fmt.Fprintf(&sb, "  enum %s: %s\n", name, strings.Join(s.enums[name].Variants, " | "))
		}
	}
	if len(s.funcs) > 0 {
		sb.WriteString("Functions:\n")
		for _, name := range sortedKeys(s.funcs) {
			f := s.funcs[name]
			fmt.Fprintf(&sb, "  fn %s(%s) self=%t defaults=%t generic=%t complex=%v\n",
				name, strings.Join(f.Params, ", "), f.HasSelf, f.HasDefaults(), f.Generic, f.Complex)
		}
	}
	return sb.String()
}
