package compiler

import (
	"fmt"
	"io"
	"sync"
)

// TraceSink receives progress notes from the pipeline stages. The stage is
// one of "lex", "parse", "classify" or "codegen".
type TraceSink interface {
	Trace(stage, format string, args ...any)
}

type nopTrace struct{}

func (nopTrace) Trace(string, string, ...any) {}

// TraceFunc adapts a function to a TraceSink.
type TraceFunc func(stage, msg string)

func (f TraceFunc) Trace(stage, format string, args ...any) {
	f(stage, fmt.Sprintf(format, args...))
}

// writerTrace writes "[stage] message" lines.
type writerTrace struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterTrace returns a sink writing one line per note to w. It is safe
// to share between concurrent compilations.
func NewWriterTrace(w io.Writer) TraceSink {
	return &writerTrace{w: w}
}

func (t *writerTrace) Trace(stage, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[%s] %s\n", stage, fmt.Sprintf(format, args...))
}
