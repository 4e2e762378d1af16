// Package term answers whether a file descriptor is an interactive terminal,
// which decides if diagnostics are colored and if the REPL can edit lines.
package term

import "os"

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd uintptr) bool {
	return isTerminal(fd)
}

// Stdout reports whether standard output is a terminal.
func Stdout() bool {
	return IsTerminal(os.Stdout.Fd())
}

// Stderr reports whether standard error is a terminal.
func Stderr() bool {
	return IsTerminal(os.Stderr.Fd())
}
