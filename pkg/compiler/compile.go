package compiler

import (
	"fmt"
)

// Option configures a compilation.
type Option func(*options)

type options struct {
	trace    TraceSink
	indent   string
	header   bool
	filename string
}

func buildOptions(opts []Option) options {
	cfg := options{
		trace:    nopTrace{},
		indent:   "    ",
		header:   true,
		filename: "<input>",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithTrace installs a sink for stage progress notes.
func WithTrace(t TraceSink) Option {
	return func(o *options) {
		if t != nil {
			o.trace = t
		}
	}
}

// WithIndent sets the unit of indentation in generated code.
func WithIndent(unit string) Option {
	return func(o *options) { o.indent = unit }
}

// WithHeader controls the "// Generated by quiche" first line.
func WithHeader(on bool) Option {
	return func(o *options) { o.header = on }
}

func withFilename(name string) Option {
	return func(o *options) {
		if name != "" {
			o.filename = name
		}
	}
}

// Output is the result of a successful compile.
type Output struct {
	Rust        string
	Module      *Module
	Symbols     *SymbolTable
	Diagnostics []Diagnostic // warnings and codegen soft errors, in pipeline order
}

// Compile runs the whole pipeline over one source file. Lex and parse errors
// abort and are returned wrapped; everything else is reported through
// Output.Diagnostics.
func Compile(src string, filename string, opts ...Option) (*Output, error) {
	opts = append([]Option{withFilename(filename)}, opts...)
	cfg := buildOptions(opts)

	src = Preprocess(src)

	tokens, err := LexFile(src, filename)
	if err != nil {
		return nil, fmt.Errorf("lex: %w", err)
	}
	cfg.trace.Trace("lex", "%d tokens", len(tokens))

	syms := NewSymbolTable()
	mod, diags, err := Parse(tokens, src, syms, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	cfg.trace.Trace("parse", "%d items", len(mod.Items))

	rust, genDiags, err := Generate(mod, syms, opts...)
	if err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	cfg.trace.Trace("codegen", "%d bytes, %d soft errors", len(rust), len(genDiags))

	return &Output{
		Rust:        rust,
		Module:      mod,
		Symbols:     syms,
		Diagnostics: append(diags, genDiags...),
	}, nil
}
