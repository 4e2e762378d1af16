package compiler

import "strings"

// removeShadowedLets rewrites a `let` of a name that is already let-bound in
// the same or an enclosing open block into a plain assignment. Lowering can
// declare the same name twice; the second declaration must not start a new
// binding. Braces inside string and char literals and comments are ignored.
func removeShadowedLets(src string) string {
	lines := strings.Split(src, "\n")
	scopes := []map[string]bool{{}}

	bound := func(name string) bool {
		for i := len(scopes) - 1; i >= 0; i-- {
			if scopes[i][name] {
				return true
			}
		}
		return false
	}

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if name, value, ok := letBinding(trimmed); ok {
			if bound(name) {
				indent := line[:len(line)-len(trimmed)]
				lines[i] = indent + name + " = " + value
			} else {
				scopes[len(scopes)-1][name] = true
			}
		}

		for _, c := range braces(line) {
			if c == '{' {
				scopes = append(scopes, map[string]bool{})
			} else if len(scopes) > 1 {
				scopes = scopes[:len(scopes)-1]
			}
		}
	}
	return strings.Join(lines, "\n")
}

// letBinding splits `let [mut] name[: T] = value` into name and value.
// Pattern lets and lets without a value are not matched.
func letBinding(s string) (name, value string, ok bool) {
	rest, found := strings.CutPrefix(s, "let ")
	if !found {
		return "", "", false
	}
	rest = strings.TrimPrefix(rest, "mut ")
	n := 0
	for n < len(rest) && isIdentByte(rest[n], n == 0) {
		n++
	}
	if n == 0 {
		return "", "", false
	}
	name, rest = rest[:n], rest[n:]
	if !strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, " =") {
		return "", "", false
	}
	eq := strings.Index(rest, " = ")
	if eq < 0 {
		return "", "", false
	}
	return name, rest[eq+3:], true
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

// braces returns the structural { and } of a line in order.
func braces(line string) []byte {
	var out []byte
	for i := 0; i < len(line); i++ {
		switch c := line[i]; c {
		case '"':
			for i++; i < len(line) && line[i] != '"'; i++ {
				if line[i] == '\\' {
					i++
				}
			}
		case '\'':
			// 'x' and '\n' are chars; 'a in <'a> is a lifetime
			switch {
			case i+1 < len(line) && line[i+1] == '\\':
				if j := strings.IndexByte(line[i+2:], '\''); j >= 0 {
					i += j + 2
				}
			case i+2 < len(line) && line[i+2] == '\'':
				i += 2
			}
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return out
			}
		case '{', '}':
			out = append(out, c)
		}
	}
	return out
}
