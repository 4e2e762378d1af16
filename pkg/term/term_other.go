//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd
// +build !linux,!darwin,!freebsd,!netbsd,!openbsd

package term

// Without termios, output is treated as redirected.
func isTerminal(fd uintptr) bool {
	return false
}
