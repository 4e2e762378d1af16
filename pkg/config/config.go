// Package config reads quiche settings from the environment. Command-line
// flags are applied on top by the caller.
package config

import (
	"fmt"
	"strings"

	"github.com/xyproto/env/v2"
)

// ColorMode selects when diagnostics are colored.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// ParseColorMode accepts auto, always or never, case-insensitively. The
// empty string means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always", "yes", "on":
		return ColorAlways, nil
	case "never", "no", "off":
		return ColorNever, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

const (
	DefaultIndent = 4
	DefaultJobs   = 4
	maxIndent     = 16
)

// Config holds the environment-derived settings.
type Config struct {
	Color   ColorMode
	Trace   bool
	Indent  int    // spaces per level in generated code
	OutDir  string // build output directory; empty writes next to the source
	Jobs    int    // files compiled concurrently by build
	History string // REPL history file; empty disables it
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Color:   ColorAuto,
		Indent:  DefaultIndent,
		Jobs:    DefaultJobs,
		History: ".quiche_history",
	}
}

// Load reads QUICHE_COLOR, QUICHE_TRACE, QUICHE_INDENT, QUICHE_OUT,
// QUICHE_JOBS and QUICHE_HISTORY. An unparsable QUICHE_COLOR is reported;
// out-of-range numbers fall back to their defaults.
func Load() (Config, error) {
	cfg := Default()

	mode, err := ParseColorMode(env.Str("QUICHE_COLOR"))
	if err != nil {
		return cfg, fmt.Errorf("QUICHE_COLOR: %w", err)
	}
	cfg.Color = mode
	cfg.Trace = env.Bool("QUICHE_TRACE")
	cfg.Indent = clampIndent(env.Int("QUICHE_INDENT", DefaultIndent))
	cfg.OutDir = env.Str("QUICHE_OUT")
	cfg.Jobs = clampJobs(env.Int("QUICHE_JOBS", DefaultJobs))
	cfg.History = env.Str("QUICHE_HISTORY", cfg.History)
	return cfg, nil
}

func clampIndent(n int) int {
	if n < 0 || n > maxIndent {
		return DefaultIndent
	}
	return n
}

func clampJobs(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// IndentUnit is one level of indentation. Zero selects a tab.
func (c Config) IndentUnit() string {
	if c.Indent == 0 {
		return "\t"
	}
	return strings.Repeat(" ", c.Indent)
}

// UseColor resolves the color mode against whether the output is a terminal.
func (c Config) UseColor(isTerminal bool) bool {
	switch c.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return isTerminal
}
