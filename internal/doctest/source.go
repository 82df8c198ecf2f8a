package doctest

import (
	"strings"
	"unicode"
)

// scope tracks the def/class nesting a docstring belongs to, so extracted
// tests get dotted names like `pkg.mod.Class.method`.
type scope struct {
	indent int
	name   string
}

// ExtractFromSource statically extracts doctests from Python source.
// Docstrings are recognized as triple-quoted literals that open a module,
// or directly follow a def/class header. One DocTest is returned per
// docstring that actually contains examples.
func (p *Parser) ExtractFromSource(src, name, filename string) ([]*DocTest, error) {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")

	var (
		tests      []*DocTest
		stack      []scope
		expectDoc  = true // module docstring may open the file
		pendingDot string
	)

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			i++
			continue
		}

		indent := indentOf(line)

		if expectDoc {
			if quote, prefixLen := tripleQuote(trimmed); quote != "" {
				body, end, ok := readTripleQuoted(lines, i, indent+prefixLen, quote)
				if ok {
					docName := name
					if pendingDot != "" {
						docName = name + "." + pendingDot
					}
					dt, err := p.parse(body, docName, filename, i)
					if err != nil {
						return nil, err
					}
					if len(dt.Examples) > 0 {
						tests = append(tests, dt)
					}
					i = end + 1
					expectDoc = false
					pendingDot = ""
					continue
				}
			}
			expectDoc = false
			pendingDot = ""
		}

		if defName, ok := defOrClassName(trimmed); ok {
			for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, scope{indent: indent, name: defName})

			var parts []string
			for _, s := range stack {
				parts = append(parts, s.name)
			}
			pendingDot = strings.Join(parts, ".")

			// Headers can span lines; the suite starts after the ":".
			for i < len(lines) && !headerEnds(lines[i]) {
				i++
			}
			expectDoc = true
			i++
			continue
		}

		i++
	}

	return tests, nil
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}

// tripleQuote reports the quote characters opening a docstring literal,
// allowing r/u/b string prefixes, and the length consumed before the body.
func tripleQuote(trimmed string) (quote string, prefixLen int) {
	s := trimmed
	skip := 0
	for skip < 2 && skip < len(s) {
		c := unicode.ToLower(rune(s[skip]))
		if c == 'r' || c == 'u' || c == 'b' {
			skip++
			continue
		}
		break
	}
	s = s[skip:]
	if strings.HasPrefix(s, `"""`) {
		return `"""`, skip + 3
	}
	if strings.HasPrefix(s, "'''") {
		return "'''", skip + 3
	}
	return "", 0
}

// readTripleQuoted collects the docstring body from the opening line
// through the closing quote. It returns the body, the index of the line
// holding the closing quote, and whether the literal was terminated.
func readTripleQuoted(lines []string, start, bodyCol int, quote string) (string, int, bool) {
	first := strings.TrimSpace(lines[start])
	open := strings.Index(first, quote)
	rest := first[open+len(quote):]

	// One-line docstring.
	if idx := strings.Index(rest, quote); idx >= 0 {
		return rest[:idx], start, true
	}

	var body []string
	body = append(body, rest)

	for i := start + 1; i < len(lines); i++ {
		if idx := strings.Index(lines[i], quote); idx >= 0 {
			body = append(body, lines[i][:idx])
			return strings.Join(body, "\n"), i, true
		}
		body = append(body, lines[i])
	}

	return "", start, false
}

func defOrClassName(trimmed string) (string, bool) {
	rest := trimmed
	if strings.HasPrefix(rest, "async ") {
		rest = strings.TrimSpace(rest[len("async "):])
	}
	switch {
	case strings.HasPrefix(rest, "def "):
		rest = rest[len("def "):]
	case strings.HasPrefix(rest, "class "):
		rest = rest[len("class "):]
	default:
		return "", false
	}

	end := 0
	for end < len(rest) {
		c := rest[end]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || end > 0 && c >= '0' && c <= '9' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

// headerEnds reports whether a def/class header line ends its suite
// introduction, ignoring trailing comments.
func headerEnds(line string) bool {
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}
	return strings.HasSuffix(strings.TrimRight(line, " \t"), ":")
}
