package doctest

import "strings"

// BlankLineMarker stands in for an empty line inside expected output,
// since a real blank line would terminate the expected block.
const BlankLineMarker = "<BLANKLINE>"

var tracebackHeaders = []string{
	"Traceback (most recent call last):",
	"Traceback (innermost last):",
}

// Checker compares expected output against what an example actually
// produced.
type Checker struct{}

// Check reports whether got satisfies want under the given options.
func (c *Checker) Check(want, got string, opts Options) bool {
	want = substituteBlankLines(want)

	if want == got {
		return true
	}

	if opts.Has(NormalizeWhitespace) {
		want = normalizeWhitespace(want)
		got = normalizeWhitespace(got)
		if want == got {
			return true
		}
	}

	if opts.Has(Ellipsis) && ellipsisMatch(want, got) {
		return true
	}

	return false
}

// WantsException reports whether want is a traceback expectation.
func WantsException(want string) bool {
	for _, line := range strings.Split(want, "\n") {
		for _, h := range tracebackHeaders {
			if strings.TrimSpace(line) == h {
				return true
			}
		}
	}
	return false
}

// CheckException matches a traceback expectation against the formatted
// exception (type and message only; the stack is never compared).
func (c *Checker) CheckException(want, exc string, opts Options) bool {
	detail := exceptionDetail(want)
	if detail == "" {
		return false
	}
	return c.Check(detail, strings.TrimRight(exc, "\n")+"\n", opts)
}

// exceptionDetail strips the traceback header and any stack frames from
// the expectation, leaving the exception line(s).
func exceptionDetail(want string) string {
	lines := strings.Split(strings.TrimRight(want, "\n"), "\n")

	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, h := range tracebackHeaders {
			if trimmed == h {
				start = i
			}
		}
	}
	if start < 0 {
		return ""
	}

	var detail []string
	for _, line := range lines[start+1:] {
		// Stack frames are indented; a bare "..." elides them.
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		if strings.TrimSpace(line) == "..." {
			continue
		}
		detail = append(detail, line)
	}

	if len(detail) == 0 {
		return ""
	}
	return strings.Join(detail, "\n") + "\n"
}

func substituteBlankLines(want string) string {
	if !strings.Contains(want, BlankLineMarker) {
		return want
	}
	lines := strings.Split(want, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == BlankLineMarker {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ellipsisMatch implements doctest's ELLIPSIS: "..." in want matches any
// substring of got, with the remaining segments matched in order.
func ellipsisMatch(want, got string) bool {
	segments := strings.Split(want, "...")
	if len(segments) == 1 {
		return want == got
	}

	// Leading segment is anchored at the start.
	if !strings.HasPrefix(got, segments[0]) {
		return false
	}
	got = got[len(segments[0]):]
	segments = segments[1:]

	// Trailing segment is anchored at the end.
	last := segments[len(segments)-1]
	segments = segments[:len(segments)-1]
	if !strings.HasSuffix(got, last) {
		return false
	}
	got = got[:len(got)-len(last)]

	for _, seg := range segments {
		if seg == "" {
			continue
		}
		idx := strings.Index(got, seg)
		if idx < 0 {
			return false
		}
		got = got[idx+len(seg):]
	}

	return true
}
