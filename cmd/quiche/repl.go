package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/quichelang/quiche-sub000/pkg/compiler"
)

const (
	promptMain = "quiche> "
	promptCont = "...     "
	banner     = "quiche " + version + " (type :help for commands, :quit to exit)"
)

// session keeps the declarations entered so far, so later lines can call
// functions and build types defined earlier.
type session struct {
	decls []string
}

func (s *session) source(entry string) string {
	if len(s.decls) == 0 {
		return entry
	}
	return strings.Join(s.decls, "\n") + "\n" + entry
}

// declares reports an entry that defines something at the top level.
func declares(entry string) bool {
	first := strings.TrimSpace(strings.SplitN(entry, "\n", 2)[0])
	for _, kw := range []string{"def ", "class ", "type ", "@", "from ", "import "} {
		if strings.HasPrefix(first, kw) {
			return true
		}
	}
	return false
}

// translate compiles one REPL entry and returns the Rust it adds.
func (s *session) translate(entry string, opts []compiler.Option) (string, *compiler.Output, error) {
	opts = append(opts, compiler.WithHeader(false))
	out, err := compiler.Compile(s.source(entry), "<repl>", opts...)
	if err != nil {
		return "", nil, err
	}
	rust := out.Rust
	if len(s.decls) > 0 {
		// drop what the earlier declarations already produced
		prev, perr := compiler.Compile(strings.Join(s.decls, "\n")+"\n", "<repl>", opts...)
		if perr == nil {
			rust = strings.TrimPrefix(rust, prev.Rust)
		}
	}
	if declares(entry) {
		s.decls = append(s.decls, entry)
	}
	return rust, out, nil
}

func (a *app) cmdRepl(_ []string) int {
	fmt.Fprintln(a.stdout, banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := a.cfg.History
	if histPath != "" && !filepath.IsAbs(histPath) {
		if home, err := os.UserHomeDir(); err == nil {
			histPath = filepath.Join(home, histPath)
		}
	}
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		if _, ok := <-sigc; ok {
			ln.Close()
			os.Exit(exitAborted)
		}
	}()

	var s session
	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(a.stdout)
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit", ":q":
				return exitOK
			case ":reset":
				s = session{}
				fmt.Fprintln(a.stdout, "session cleared")
			case ":help":
				fmt.Fprintln(a.stdout, "Enter quiche statements or declarations; a blank line ends a block.")
				fmt.Fprintln(a.stdout, ":reset forgets earlier declarations, :quit exits.")
			default:
				fmt.Fprintln(a.stdout, "unknown command. Type :help for commands.")
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		rust, out, err := s.translate(code, a.options())
		if err != nil {
			a.report("<repl>", s.source(code), err)
			continue
		}
		a.reportDiagnostics(s.source(code), out.Diagnostics)
		fmt.Fprint(a.stdout, rust)
	}
	return exitOK
}

// readByParseProbe reads lines until they form a complete entry. Input that
// ends inside a bracket or before a block body keeps prompting, and an open
// block runs until a blank line.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder
	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if needsMore(src, line) {
			continue
		}
		return src, true
	}
}

// needsMore decides whether src, whose latest line is last, is unfinished.
func needsMore(src, last string) bool {
	tokens, err := compiler.Lex(src)
	if err == nil {
		_, _, err = compiler.Parse(tokens, src, nil)
	}
	if compiler.IsIncomplete(err) {
		return true
	}
	return opensBlock(src) && strings.TrimSpace(last) != ""
}

// opensBlock reports whether any line of src ends with a block colon.
func opensBlock(src string) bool {
	for _, l := range strings.Split(src, "\n") {
		l = strings.TrimSpace(l)
		if i := strings.Index(l, "#"); i >= 0 {
			l = strings.TrimSpace(l[:i])
		}
		if strings.HasSuffix(l, ":") {
			return true
		}
	}
	return false
}
