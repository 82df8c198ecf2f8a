// Package interp runs doctest examples in Python subprocess sessions.
// Each session is one interpreter process with one namespace; a fresh
// session per target gives every target a fresh evaluation context.
package interp

import (
	"context"
	"errors"
)

var (
	ErrSessionClosed  = errors.New("interpreter session closed")
	ErrPythonNotFound = errors.New("python interpreter not found")
)

// Result is what one example produced.
type Result struct {
	// Out is the captured stdout, including repr output of expressions.
	Out string

	// Exc is the formatted exception ("ValueError: boom\n"), empty when
	// the example ran cleanly.
	Exc string
}

func (r Result) Raised() bool {
	return r.Exc != ""
}

// Session is a single evaluation context.
type Session interface {
	// BindModule imports a module and makes its globals the session
	// namespace, the way doctests run inside their module.
	BindModule(ctx context.Context, module string) (Result, error)

	// Exec runs one example's source and captures its output.
	Exec(ctx context.Context, source string) (Result, error)

	// Reset discards names bound by examples, restoring the namespace to
	// what BindModule (or session start) established. Each docstring gets
	// its own copy of the module globals.
	Reset(ctx context.Context) error

	Close() error
}

// Engine creates sessions. The runner depends on this interface so tests
// can substitute a canned implementation.
type Engine interface {
	NewSession(ctx context.Context) (Session, error)
}
