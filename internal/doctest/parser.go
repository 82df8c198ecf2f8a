package doctest

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadPrompt = errors.New("malformed example prompt")

// Parser extracts examples from prose text. The same parser is used for
// standalone text files and for docstrings pulled out of Python source.
type Parser struct{}

// Parse extracts every example from text. Line numbers are 1-based
// relative to the start of text.
func (p *Parser) Parse(text, name string) (*DocTest, error) {
	return p.parse(text, name, name, 0)
}

func (p *Parser) parse(text, name, filename string, lineOffset int) (*DocTest, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	dt := &DocTest{
		Name:     name,
		Filename: filename,
		Line:     lineOffset + 1,
	}

	i := 0
	for i < len(lines) {
		stripped := strings.TrimLeft(lines[i], " ")
		if !strings.HasPrefix(stripped, ">>>") {
			i++
			continue
		}

		indent := len(lines[i]) - len(stripped)
		startLine := lineOffset + i + 1

		first, err := afterPrompt(stripped, ">>>")
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, startLine, err)
		}

		srcLines := []string{first}
		i++

		for i < len(lines) {
			rest, ok := continuation(lines[i], indent)
			if !ok {
				break
			}
			cont, err := afterPrompt(rest, "...")
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", filename, lineOffset+i+1, err)
			}
			srcLines = append(srcLines, cont)
			i++
		}

		var wantLines []string
		for i < len(lines) {
			line := lines[i]
			if strings.TrimSpace(line) == "" {
				break
			}
			ls := strings.TrimLeft(line, " ")
			li := len(line) - len(ls)
			if li < indent {
				break
			}
			// A prompt at any depth starts a new example, never output.
			if strings.HasPrefix(ls, ">>>") {
				break
			}
			wantLines = append(wantLines, strings.TrimRight(line[indent:], " \t"))
			i++
		}

		source := strings.Join(srcLines, "\n") + "\n"
		if strings.TrimSpace(source) == "" {
			continue
		}

		want := ""
		if len(wantLines) > 0 {
			want = strings.Join(wantLines, "\n") + "\n"
		}

		on, off := parseDirectives(source)

		dt.Examples = append(dt.Examples, Example{
			Source:     source,
			Want:       want,
			Line:       startLine,
			Indent:     indent,
			OptionsOn:  on,
			OptionsOff: off,
		})
	}

	return dt, nil
}

// afterPrompt strips a PS1/PS2 prompt. A prompt must be followed by a
// space or end the line.
func afterPrompt(line, prompt string) (string, error) {
	rest := line[len(prompt):]
	if rest == "" {
		return "", nil
	}
	if rest[0] != ' ' {
		return "", fmt.Errorf("%w: expected space after %q", ErrBadPrompt, prompt)
	}
	return strings.TrimRight(rest[1:], " \t"), nil
}

// continuation reports whether line is a "..." PS2 line at the given
// indent, returning the line with the indent removed.
func continuation(line string, indent int) (string, bool) {
	if len(line) < indent+3 {
		return "", false
	}
	for _, r := range line[:indent] {
		if r != ' ' {
			return "", false
		}
	}
	rest := line[indent:]
	if !strings.HasPrefix(rest, "...") {
		return "", false
	}
	return rest, true
}
