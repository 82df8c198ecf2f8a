package runner

import (
	"time"

	"github.com/nrser/drt/internal/doctest"
)

// Failure records one example that did not produce its expected output.
type Failure struct {
	Filename string
	Line     int
	Source   string
	Want     string
	Got      string

	// Exc is set when the example raised instead of printing.
	Exc string
}

// TargetResult is the outcome of one CLI target.
type TargetResult struct {
	// Target is the argument as given; Name is the display name (module
	// name or file path).
	Target string
	Name   string

	Duration  time.Duration
	Attempted int
	Failed    int

	Failures []Failure

	// Err is a collection-time error: the target could not be read,
	// resolved, or its interpreter session could not start. Distinct
	// from example failures, which count into Failed.
	Err error
}

func (r *TargetResult) Passed() int {
	return r.Attempted - r.Failed
}

// Empty reports whether the target held no examples at all.
func (r *TargetResult) Empty() bool {
	return r.Attempted == 0
}

// EmptyFilter selects which results are kept based on whether they held
// any examples. Mirrors the -e / -E flags.
type EmptyFilter int

const (
	FilterAll EmptyFilter = iota
	FilterOnlyEmpty
	FilterNoEmpty
)

func (f EmptyFilter) keep(r *TargetResult) bool {
	switch f {
	case FilterOnlyEmpty:
		return r.Empty()
	case FilterNoEmpty:
		return !r.Empty()
	default:
		return true
	}
}

// HasErrors reports whether any result failed an example or failed to
// collect.
func HasErrors(results []*TargetResult) bool {
	for _, r := range results {
		if r.Failed > 0 || r.Err != nil {
			return true
		}
	}
	return false
}

// Totals sums results for the summary row.
type Totals struct {
	Duration  time.Duration
	Attempted int
	Passed    int
	Failed    int
}

func Sum(results []*TargetResult) Totals {
	var t Totals
	for _, r := range results {
		t.Duration += r.Duration
		t.Attempted += r.Attempted
		t.Passed += r.Passed()
		t.Failed += r.Failed
	}
	return t
}

// Options bundle the per-run switches handed down from the CLI.
type Options struct {
	Flags    doctest.Options
	FailFast bool
	Empty    EmptyFilter
}

func DefaultOptions() Options {
	return Options{
		Flags: doctest.DefaultOptions(),
		Empty: FilterAll,
	}
}
