package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quichelang/quiche-sub000/pkg/compiler"
	"github.com/quichelang/quiche-sub000/pkg/config"
	"github.com/quichelang/quiche-sub000/pkg/pycompat"
	"github.com/quichelang/quiche-sub000/pkg/term"
	"github.com/quichelang/quiche-sub000/pkg/utils"
)

const (
	appName = "quiche"
	version = "0.1.0"
)

// exit codes
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitAborted = 130
)

// app carries the per-invocation settings shared by the subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
	color  bool

	mu sync.Mutex // serialises stderr reports from parallel builds
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(exitUsage)
	}
	a := &app{
		stdout: os.Stdout,
		stderr: os.Stderr,
		cfg:    cfg,
		color:  cfg.UseColor(term.Stderr()),
	}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	if len(args) < 1 {
		a.usage()
		return exitUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "build":
		return a.cmdBuild(rest)
	case "emit":
		return a.cmdEmit(rest)
	case "tokens":
		return a.cmdTokens(rest)
	case "ast":
		return a.cmdAST(rest)
	case "check":
		return a.cmdCheck(rest)
	case "repl":
		return a.cmdRepl(rest)
	case "version":
		fmt.Fprintf(a.stdout, "%s %s\n", appName, version)
		return exitOK
	case "-h", "--help", "help":
		a.usage()
		return exitOK
	default:
		fmt.Fprintf(a.stderr, "%s: unknown command %q\n", appName, cmd)
		a.usage()
		return exitUsage
	}
}

func (a *app) usage() {
	fmt.Fprintf(a.stderr, `Usage:
  %[1]s build [-o dir] [-j n] file.qrs...   Compile files to .rs
  %[1]s emit file.qrs                       Print the generated Rust
  %[1]s tokens file.qrs                     Print the token stream
  %[1]s ast file.qrs                        Print the desugared AST and symbols
  %[1]s check file.qrs                      Cross-check top-level names with a Python parse
  %[1]s repl                                Translate statements interactively
  %[1]s version                             Print the version

Environment: QUICHE_COLOR, QUICHE_TRACE, QUICHE_INDENT, QUICHE_OUT, QUICHE_JOBS, QUICHE_HISTORY
`, appName)
}

// options turns the configuration into compiler options.
func (a *app) options() []compiler.Option {
	opts := []compiler.Option{compiler.WithIndent(a.cfg.IndentUnit())}
	if a.cfg.Trace {
		opts = append(opts, compiler.WithTrace(compiler.NewWriterTrace(a.stderr)))
	}
	return opts
}

// report prints a pipeline error, rendered against src when it has a position.
func (a *app) report(filename, src string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := compiler.AsDiagnostic(err); ok {
		if d.Pos.Filename == "" {
			d.Pos.Filename = filename
		}
		fmt.Fprint(a.stderr, d.Format(src, a.color))
		return
	}
	fmt.Fprintf(a.stderr, "%s: %v\n", filename, err)
}

// reportDiagnostics prints non-fatal diagnostics and reports whether any of
// them is an error.
func (a *app) reportDiagnostics(src string, diags []compiler.Diagnostic) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	failed := false
	for _, d := range diags {
		fmt.Fprint(a.stderr, d.Format(src, a.color))
		if d.Level == compiler.LevelError {
			failed = true
		}
	}
	return failed
}

// compileFile reads and compiles one file, printing any problems. ok is false
// when the file could not be translated cleanly.
func (a *app) compileFile(path string) (out *compiler.Output, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		a.report(path, "", err)
		return nil, false
	}
	src := string(data)
	out, err = compiler.Compile(src, path, a.options()...)
	if err != nil {
		a.report(path, src, err)
		return nil, false
	}
	failed := a.reportDiagnostics(src, out.Diagnostics)
	return out, !failed
}

// singleFile validates the one positional argument most commands take.
func (a *app) singleFile(fs *flag.FlagSet, args []string) (string, bool) {
	if err := fs.Parse(args); err != nil {
		return "", false
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(a.stderr, "usage: %s %s file.qrs\n", appName, fs.Name())
		return "", false
	}
	return fs.Arg(0), true
}

func (a *app) cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	outDir := fs.String("o", a.cfg.OutDir, "output directory (default: next to each source)")
	jobs := fs.Int("j", a.cfg.Jobs, "files compiled concurrently")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(a.stderr, "usage: %s build [-o dir] [-j n] file.qrs...\n", appName)
		return exitUsage
	}

	var g errgroup.Group
	if *jobs > 0 {
		g.SetLimit(*jobs)
	}
	errFailed := errors.New("build failed")
	for _, path := range fs.Args() {
		path := path
		g.Go(func() error {
			out, ok := a.compileFile(path)
			if out == nil {
				return errFailed
			}
			dest, err := utils.RustOutputPath(path, *outDir)
			if err == nil {
				err = utils.WriteOutput(dest, out.Rust)
			}
			if err != nil {
				a.report(path, "", err)
				return errFailed
			}
			if !ok {
				return errFailed
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return exitFailed
	}
	return exitOK
}

func (a *app) cmdEmit(args []string) int {
	fs := flag.NewFlagSet("emit", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	path, ok := a.singleFile(fs, args)
	if !ok {
		return exitUsage
	}
	out, clean := a.compileFile(path)
	if out == nil {
		return exitFailed
	}
	fmt.Fprint(a.stdout, out.Rust)
	if !clean {
		return exitFailed
	}
	return exitOK
}

func (a *app) cmdTokens(args []string) int {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	path, ok := a.singleFile(fs, args)
	if !ok {
		return exitUsage
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.report(path, "", err)
		return exitFailed
	}
	src := compiler.Preprocess(string(data))
	tokens, err := compiler.LexFile(src, path)
	if err != nil {
		a.report(path, src, err)
		return exitFailed
	}
	fmt.Fprintf(a.stdout, "Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Fprintln(a.stdout, " ", tok)
	}
	return exitOK
}

func (a *app) cmdAST(args []string) int {
	fs := flag.NewFlagSet("ast", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	path, ok := a.singleFile(fs, args)
	if !ok {
		return exitUsage
	}
	out, _ := a.compileFile(path)
	if out == nil {
		return exitFailed
	}
	fmt.Fprintln(a.stdout, "AST")
	fmt.Fprint(a.stdout, out.Module)
	fmt.Fprintln(a.stdout)
	fmt.Fprint(a.stdout, out.Symbols)
	return exitOK
}

func (a *app) cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	path, ok := a.singleFile(fs, args)
	if !ok {
		return exitUsage
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.report(path, "", err)
		return exitFailed
	}
	src := compiler.Preprocess(string(data))
	out, err := compiler.Compile(src, path, a.options()...)
	if err != nil {
		a.report(path, src, err)
		return exitFailed
	}
	r := pycompat.CrossCheck(src, path, out.Module)
	fmt.Fprint(a.stdout, r)
	// Files that are not Python at all are fine; disagreeing ones are not.
	if r.PythonErr == nil && !r.Compatible() {
		return exitFailed
	}
	return exitOK
}
