// Package runner drives the test pipeline: resolve a target, extract its
// doctests, execute them in a fresh interpreter session, and check output.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/nrser/drt/internal/discover"
	"github.com/nrser/drt/internal/doctest"
	"github.com/nrser/drt/internal/interp"
	"github.com/nrser/drt/internal/logger"
	"github.com/nrser/drt/internal/project"
)

var log = logger.ForComponent("runner")

type Runner struct {
	engine  interp.Engine
	parser  doctest.Parser
	checker doctest.Checker

	// Root anchors bare module names; empty means resolve per target.
	Root string
}

func New(engine interp.Engine) *Runner {
	return &Runner{engine: engine}
}

// RunTargets runs every target sequentially. Collection errors land on
// the result rather than aborting the run; with fail-fast the run stops
// after the first target that fails an example.
func (r *Runner) RunTargets(ctx context.Context, targets []string, opts Options) []*TargetResult {
	var results []*TargetResult

	for _, raw := range targets {
		result := r.runTarget(ctx, raw, opts)

		if opts.Empty.keep(result) {
			results = append(results, result)
		}

		if opts.FailFast && (result.Failed > 0 || result.Err != nil) {
			break
		}
	}

	return results
}

func (r *Runner) runTarget(ctx context.Context, raw string, opts Options) *TargetResult {
	result := &TargetResult{Target: raw, Name: raw}

	target, err := project.ResolveTarget(raw)
	if err != nil {
		result.Err = err
		return result
	}
	result.Name = target.Name()

	tests, err := r.collect(target)
	if err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
	}()

	if countExamples(tests) == 0 {
		log.Debug("no examples", "target", result.Name)
		return result
	}

	session, err := r.engine.NewSession(ctx)
	if err != nil {
		result.Err = err
		return result
	}
	defer session.Close()

	if target.Kind == project.KindModule {
		res, err := session.BindModule(ctx, target.Module)
		if err != nil {
			result.Err = fmt.Errorf("import %s: %w", target.Module, err)
			return result
		}
		if res.Raised() {
			result.Err = fmt.Errorf("import %s: %s", target.Module, res.Exc)
			return result
		}
	}

	for i, test := range tests {
		// Each docstring runs against its own copy of the module globals;
		// names bound by one docstring's examples never leak into the next.
		if i > 0 {
			if err := session.Reset(ctx); err != nil {
				result.Err = fmt.Errorf("reset session: %w", err)
				break
			}
		}
		if !r.runTest(ctx, session, test, opts, result) {
			break
		}
	}

	return result
}

// runTest runs one doctest's examples in order. It returns false when the
// run should stop (fail-fast tripped or the session died).
func (r *Runner) runTest(ctx context.Context, session interp.Session, test *doctest.DocTest, opts Options, result *TargetResult) bool {
	for i := range test.Examples {
		ex := &test.Examples[i]

		flags := ex.EffectiveOptions(opts.Flags)
		if flags.Has(doctest.SkipExample) {
			continue
		}

		result.Attempted++

		res, err := session.Exec(ctx, ex.Source)
		if err != nil {
			// The session is gone; everything left in this target is
			// uncheckable.
			result.Err = fmt.Errorf("%s:%d: %w", test.Filename, ex.Line, err)
			return false
		}

		if r.checkExample(ex, res, flags) {
			continue
		}

		result.Failed++
		result.Failures = append(result.Failures, Failure{
			Filename: test.Filename,
			Line:     ex.Line,
			Source:   ex.Source,
			Want:     ex.Want,
			Got:      res.Out,
			Exc:      res.Exc,
		})

		log.Info("example failed", "file", test.Filename, "line", ex.Line)

		if opts.FailFast {
			return false
		}
	}

	return true
}

func (r *Runner) checkExample(ex *doctest.Example, res interp.Result, flags doctest.Options) bool {
	if res.Raised() {
		return doctest.WantsException(ex.Want) &&
			r.checker.CheckException(ex.Want, res.Exc, flags)
	}

	if doctest.WantsException(ex.Want) {
		return false
	}

	return r.checker.Check(ex.Want, res.Out, flags)
}

// collect extracts doctests without executing anything.
func (r *Runner) collect(target project.Target) ([]*doctest.DocTest, error) {
	path := target.Path

	if target.Kind == project.KindModule && path == "" {
		root := r.Root
		if root == "" {
			cwd, err := project.FindRoot(".")
			if err != nil {
				return nil, err
			}
			root = cwd
		}
		located, err := project.LocateModule(root, target.Module)
		if err != nil {
			return nil, err
		}
		path = located
	}

	content, enc, err := discover.ReadFileUTF8(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Debug("collected target", "path", path, "encoding", enc)

	if target.Kind == project.KindTextFile {
		dt, err := r.parser.Parse(content, target.Name())
		if err != nil {
			return nil, err
		}
		dt.Filename = path
		return []*doctest.DocTest{dt}, nil
	}

	return r.parser.ExtractFromSource(content, target.Module, path)
}

func countExamples(tests []*doctest.DocTest) int {
	n := 0
	for _, t := range tests {
		n += len(t.Examples)
	}
	return n
}
