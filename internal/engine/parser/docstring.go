package parser

import (
	"strings"
)

// stringLiteralValue strips the prefix and quotes of a Python string literal.
// Escapes are left as written.
func stringLiteralValue(literal string) string {
	value, _ := splitStringLiteral(literal)
	return value
}

func splitStringLiteral(literal string) (value string, prefix string) {
	literal = strings.TrimSpace(literal)
	i := 0
	for i < len(literal) && strings.IndexByte("rRuUbBfF", literal[i]) >= 0 {
		i++
	}
	prefix = strings.ToLower(literal[:i])
	body := literal[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(q) && strings.HasPrefix(body, q) && strings.HasSuffix(body, q) {
			return body[len(q) : len(body)-len(q)], prefix
		}
	}
	return body, prefix
}

// docstringFromLiterals joins implicitly concatenated literals and cleans the
// result. Byte and f-string literals never form a docstring.
func docstringFromLiterals(literals ...string) string {
	var b strings.Builder
	for _, literal := range literals {
		value, prefix := splitStringLiteral(literal)
		if strings.ContainsAny(prefix, "bf") {
			return ""
		}
		b.WriteString(value)
	}
	return cleanDocstring(b.String())
}

// cleanDocstring strips the uniform indentation of continuation lines and
// surrounding blank lines.
func cleanDocstring(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")

	margin := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " \t")
		if stripped == "" {
			continue
		}
		if indent := len(line) - len(stripped); margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeft(lines[0], " \t")
	for i := 1; i < len(lines); i++ {
		if margin > 0 && len(lines[i]) >= margin {
			lines[i] = lines[i][margin:]
		} else {
			lines[i] = strings.TrimLeft(lines[i], " \t")
		}
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	lines[0] = strings.TrimRight(lines[0], " \t")

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
