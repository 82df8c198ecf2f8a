package doctest

import (
	"strings"
	"testing"
)

func TestParseSingleExample(t *testing.T) {
	p := &Parser{}

	text := "Intro prose.\n\n>>> 1 + 1\n2\n\nMore prose.\n"
	dt, err := p.Parse(text, "sample")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dt.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(dt.Examples))
	}

	ex := dt.Examples[0]
	if ex.Source != "1 + 1\n" {
		t.Errorf("unexpected source: %q", ex.Source)
	}
	if ex.Want != "2\n" {
		t.Errorf("unexpected want: %q", ex.Want)
	}
	if ex.Line != 3 {
		t.Errorf("expected line 3, got %d", ex.Line)
	}
}

func TestParseContinuationLines(t *testing.T) {
	p := &Parser{}

	text := ">>> for i in range(2):\n...     print(i)\n...\n0\n1\n"
	dt, err := p.Parse(text, "loop")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dt.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(dt.Examples))
	}

	ex := dt.Examples[0]
	if ex.Source != "for i in range(2):\n    print(i)\n\n" {
		t.Errorf("unexpected source: %q", ex.Source)
	}
	if ex.Want != "0\n1\n" {
		t.Errorf("unexpected want: %q", ex.Want)
	}
}

func TestParseIndentedExample(t *testing.T) {
	p := &Parser{}

	text := "Docs:\n\n    >>> x = 5\n    >>> x\n    5\n"
	dt, err := p.Parse(text, "indented")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dt.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(dt.Examples))
	}

	if dt.Examples[0].Want != "" {
		t.Errorf("statement example should have no want, got %q", dt.Examples[0].Want)
	}
	if dt.Examples[1].Want != "5\n" {
		t.Errorf("unexpected want: %q", dt.Examples[1].Want)
	}
	if dt.Examples[1].Indent != 4 {
		t.Errorf("expected indent 4, got %d", dt.Examples[1].Indent)
	}
}

func TestParseMissingSpaceAfterPrompt(t *testing.T) {
	p := &Parser{}

	_, err := p.Parse(">>>print('x')\n", "bad")
	if err == nil {
		t.Fatal("expected error for missing space after prompt")
	}
	if !strings.Contains(err.Error(), "prompt") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseWantStopsAtDedent(t *testing.T) {
	p := &Parser{}

	text := "    >>> 'a'\n    'a'\nprose at lower indent\n"
	dt, err := p.Parse(text, "dedent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dt.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(dt.Examples))
	}
	if dt.Examples[0].Want != "'a'\n" {
		t.Errorf("unexpected want: %q", dt.Examples[0].Want)
	}
}

func TestParseCRLF(t *testing.T) {
	p := &Parser{}

	dt, err := p.Parse(">>> 2 * 2\r\n4\r\n", "crlf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dt.Examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(dt.Examples))
	}
	if dt.Examples[0].Want != "4\n" {
		t.Errorf("unexpected want: %q", dt.Examples[0].Want)
	}
}

func TestParseDirectives(t *testing.T) {
	p := &Parser{}

	text := ">>> slow_call()  # doctest: +SKIP\n>>> fuzzy()  # doctest: +ELLIPSIS, -NORMALIZE_WHITESPACE\nok\n"
	dt, err := p.Parse(text, "directives")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dt.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(dt.Examples))
	}

	if !dt.Examples[0].EffectiveOptions(0).Has(SkipExample) {
		t.Error("first example should be skipped")
	}

	opts := dt.Examples[1].EffectiveOptions(NormalizeWhitespace)
	if !opts.Has(Ellipsis) {
		t.Error("second example should have ELLIPSIS enabled")
	}
	if opts.Has(NormalizeWhitespace) {
		t.Error("second example should have NORMALIZE_WHITESPACE disabled")
	}
}

func TestParseNoExamples(t *testing.T) {
	p := &Parser{}

	dt, err := p.Parse("Just prose, no prompts.\n", "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dt.Examples) != 0 {
		t.Errorf("expected no examples, got %d", len(dt.Examples))
	}
}

func TestParseDeeperPromptStartsNewExample(t *testing.T) {
	p := &Parser{}

	dt, err := p.Parse(">>> x\n1\n    >>> y\n    2\n", "nested")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dt.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(dt.Examples))
	}

	first := dt.Examples[0]
	if first.Source != "x\n" || first.Want != "1\n" {
		t.Errorf("unexpected first example %+v", first)
	}

	second := dt.Examples[1]
	if second.Source != "y\n" || second.Want != "2\n" {
		t.Errorf("unexpected second example %+v", second)
	}
	if second.Line != 3 || second.Indent != 4 {
		t.Errorf("expected line 3 indent 4, got line %d indent %d", second.Line, second.Indent)
	}
}
