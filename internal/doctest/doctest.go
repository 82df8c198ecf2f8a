// Package doctest extracts and checks interactive examples embedded in
// documentation: `>>>` sessions paired with the output they are expected
// to produce.
package doctest

import (
	"regexp"
	"strings"
)

// Options control how examples are matched against actual output.
type Options uint

const (
	// NormalizeWhitespace treats any run of whitespace as equal to any
	// other run of whitespace.
	NormalizeWhitespace Options = 1 << iota

	// Ellipsis lets "..." in expected output match any substring.
	Ellipsis

	// SkipExample marks an example as not to be run.
	SkipExample
)

// DefaultOptions mirrors the driver's historical defaults.
func DefaultOptions() Options {
	return NormalizeWhitespace | Ellipsis
}

func (o Options) Has(flag Options) bool {
	return o&flag != 0
}

// Example is a single interactive snippet and its expected output.
type Example struct {
	// Source is the Python source, newline terminated.
	Source string

	// Want is the expected output, newline terminated, or "" when the
	// example expects no output.
	Want string

	// Line is the 1-based line of the first prompt within the document.
	Line int

	// Indent is the column of the prompt.
	Indent int

	// OptionsOn and OptionsOff come from inline `# doctest:` directives.
	OptionsOn  Options
	OptionsOff Options
}

// EffectiveOptions applies the example's directives on top of base flags.
func (e *Example) EffectiveOptions(base Options) Options {
	return (base | e.OptionsOn) &^ e.OptionsOff
}

// DocTest is a named collection of examples from one document.
type DocTest struct {
	Name     string
	Filename string
	Line     int
	Examples []Example
}

var directiveRe = regexp.MustCompile(`#\s*doctest:\s*([^\n'"]*)`)

var optionNames = map[string]Options{
	"NORMALIZE_WHITESPACE": NormalizeWhitespace,
	"ELLIPSIS":             Ellipsis,
	"SKIP":                 SkipExample,
}

func parseDirectives(source string) (on, off Options) {
	for _, m := range directiveRe.FindAllStringSubmatch(source, -1) {
		fields := strings.FieldsFunc(m[1], func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		for _, f := range fields {
			if len(f) < 2 {
				continue
			}
			flag, ok := optionNames[f[1:]]
			if !ok {
				continue
			}
			switch f[0] {
			case '+':
				on |= flag
			case '-':
				off |= flag
			}
		}
	}
	return on, off
}
