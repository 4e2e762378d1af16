package compiler

import "strings"

// Preprocess normalises raw source text before lexing: it drops a UTF-8
// byte order mark, converts CRLF and lone CR line endings to LF, and blanks
// a leading #! line. Line numbers are preserved so diagnostics still point
// at the original text.
func Preprocess(src string) string {
	src = strings.TrimPrefix(src, "\ufeff")
	if strings.Contains(src, "\r") {
		src = strings.ReplaceAll(src, "\r\n", "\n")
		src = strings.ReplaceAll(src, "\r", "\n")
	}
	if strings.HasPrefix(src, "#!") {
		if i := strings.IndexByte(src, '\n'); i >= 0 {
			src = src[i:]
		} else {
			src = ""
		}
	}
	return src
}
