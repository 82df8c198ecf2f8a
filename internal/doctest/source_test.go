package doctest

import "testing"

const sampleSource = `"""Module docs.

>>> greet("world")
'hello world'
"""

import os


def greet(name):
    """Return a greeting.

    >>> greet("dr t")
    'hello dr t'
    """
    return "hello " + name


class Greeter:
    """A greeter.

    >>> Greeter().shout("hi")
    'HI'
    """

    def shout(self, text):
        """
        >>> Greeter().shout("quiet")
        'QUIET'
        """
        return text.upper()


def undocumented(x):
    return x
`

func TestExtractFromSource(t *testing.T) {
	p := &Parser{}

	tests, err := p.ExtractFromSource(sampleSource, "sample", "sample.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tests) != 4 {
		t.Fatalf("expected 4 doctests, got %d", len(tests))
	}

	names := []string{
		"sample",
		"sample.greet",
		"sample.Greeter",
		"sample.Greeter.shout",
	}
	for i, want := range names {
		if tests[i].Name != want {
			t.Errorf("test %d: expected name %q, got %q", i, want, tests[i].Name)
		}
		if len(tests[i].Examples) != 1 {
			t.Errorf("test %d: expected 1 example, got %d", i, len(tests[i].Examples))
		}
	}

	if tests[0].Examples[0].Source != `greet("world")`+"\n" {
		t.Errorf("unexpected module example source: %q", tests[0].Examples[0].Source)
	}
}

func TestExtractFromSourceLineNumbers(t *testing.T) {
	p := &Parser{}

	tests, err := p.ExtractFromSource(sampleSource, "sample", "sample.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The module example's prompt sits on line 3 of the file.
	if got := tests[0].Examples[0].Line; got != 3 {
		t.Errorf("expected module example on line 3, got %d", got)
	}
}

func TestExtractSkipsNonDocstrings(t *testing.T) {
	p := &Parser{}

	src := `import os

DATA = """
>>> not_a_doctest()
"""


def f():
    return DATA
`
	tests, err := p.ExtractFromSource(src, "mod", "mod.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tests) != 0 {
		t.Errorf("assigned strings are not docstrings, got %d tests", len(tests))
	}
}

func TestExtractSingleQuotedDocstring(t *testing.T) {
	p := &Parser{}

	src := "def f():\n    '''\n    >>> f()\n    '''\n    return None\n"
	tests, err := p.ExtractFromSource(src, "mod", "mod.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tests) != 1 {
		t.Fatalf("expected 1 doctest, got %d", len(tests))
	}
	if tests[0].Name != "mod.f" {
		t.Errorf("unexpected name %q", tests[0].Name)
	}
}

func TestExtractNoDocstrings(t *testing.T) {
	p := &Parser{}

	tests, err := p.ExtractFromSource("x = 1\ny = 2\n", "bare", "bare.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tests) != 0 {
		t.Errorf("expected no doctests, got %d", len(tests))
	}
}
