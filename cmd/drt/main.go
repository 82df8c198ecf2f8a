// Command drt finds doctests in Python modules and text files, runs them,
// and reports the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/nrser/drt/internal/config"
	"github.com/nrser/drt/internal/daemon"
	"github.com/nrser/drt/internal/discover"
	"github.com/nrser/drt/internal/history"
	"github.com/nrser/drt/internal/interp"
	"github.com/nrser/drt/internal/logger"
	"github.com/nrser/drt/internal/project"
	"github.com/nrser/drt/internal/report"
	"github.com/nrser/drt/internal/runner"
	"github.com/nrser/drt/internal/watch"
	"github.com/nrser/drt/pkg/protocol"
)

const (
	exitOK       = 0
	exitFailures = 1
	exitError    = 2
)

// countFlag counts repeated occurrences, so -v -v means more verbose.
type countFlag int

func (c *countFlag) String() string { return strconv.Itoa(int(*c)) }

func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(s string) error {
	if s == "true" {
		*c++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*c = countFlag(n)
	return nil
}

type options struct {
	verbosity countFlag
	failFast  bool
	onlyEmpty bool
	noEmpty   bool
	panel     bool
	watchMode bool
	historyN  int
	remote    bool
	status    bool
	last      bool
	stop      bool
	pythonBin string
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts options

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: drt [options] [target ...]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Targets are module names, .py files, text files, or directories.")
		fmt.Fprintln(os.Stderr, "With no targets the whole package root is tested.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	flag.Var(&opts.verbosity, "v", "increase verbosity (repeatable)")
	flag.BoolVar(&opts.failFast, "f", false, "stop at the first failing target")
	flag.BoolVar(&opts.onlyEmpty, "e", false, "report only targets with no examples")
	flag.BoolVar(&opts.noEmpty, "E", false, "hide targets with no examples")
	flag.BoolVar(&opts.panel, "p", false, "print the header panel before running")
	flag.BoolVar(&opts.watchMode, "w", false, "keep running, rerunning on file changes")
	flag.IntVar(&opts.historyN, "H", 0, "show the last n recorded runs and exit")
	flag.BoolVar(&opts.remote, "remote", false, "run through the drtd daemon")
	flag.BoolVar(&opts.status, "status", false, "print the daemon's status and exit")
	flag.BoolVar(&opts.last, "last", false, "print the daemon's most recent results and exit")
	flag.BoolVar(&opts.stop, "stop", false, "shut the daemon down and exit")
	flag.StringVar(&opts.pythonBin, "python", "", "python interpreter to use")
	flag.Parse()

	if opts.onlyEmpty && opts.noEmpty {
		fmt.Fprintln(os.Stderr, "drt: -e and -E are mutually exclusive")
		return exitError
	}
	if opts.remote && opts.watchMode {
		fmt.Fprintln(os.Stderr, "drt: -w cannot be combined with -remote (the daemon already watches)")
		return exitError
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LevelForVerbosity(int(opts.verbosity))
	logger.Init(logCfg)

	root, err := project.FindRoot(".")
	if err != nil {
		root = ""
	}

	cfg, err := config.LoadProject(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}
	if opts.pythonBin != "" {
		cfg.Runner.PythonBin = opts.pythonBin
	}

	if opts.historyN > 0 {
		return showHistory(cfg, opts.historyN)
	}

	ctx, cancelSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()

	switch {
	case opts.status:
		return daemonStatus(ctx, cfg, os.Stdout)
	case opts.last:
		return daemonLast(ctx, cfg, os.Stdout)
	case opts.stop:
		return daemonStop(ctx, cfg)
	}

	targets := flag.Args()
	if len(targets) == 0 {
		if root != "" {
			targets = []string{root}
		} else {
			targets = []string{"."}
		}
	}

	expanded, err := discover.Expand(targets, cfg.Discover)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}
	if len(expanded) == 0 {
		fmt.Fprintln(os.Stderr, "drt: no targets found")
		return exitOK
	}

	if opts.panel {
		cwd, _ := os.Getwd()
		report.RenderPanel(os.Stdout, expanded, cwd)
	}

	runOpts := runner.DefaultOptions()
	runOpts.FailFast = opts.failFast
	switch {
	case opts.onlyEmpty:
		runOpts.Empty = runner.FilterOnlyEmpty
	case opts.noEmpty:
		runOpts.Empty = runner.FilterNoEmpty
	}

	if opts.remote {
		return runRemote(ctx, cfg, expanded, opts, runOpts)
	}

	engine := interp.NewPythonEngine(cfg.Runner.PythonBin, root)
	engine.RequestTimeout = cfg.Timeout()

	r := runner.New(engine)
	r.Root = root

	doRun := func(targets []string) []*runner.TargetResult {
		startedAt := time.Now()
		results := r.RunTargets(ctx, targets, runOpts)

		report.RenderFailures(os.Stdout, results)
		report.RenderTable(os.Stdout, results)

		if opts.failFast && runner.HasErrors(results) {
			fmt.Fprintln(os.Stderr, "Failed... FAST.")
		}

		recordRun(cfg, startedAt, results, opts.failFast)
		return results
	}

	results := doRun(expanded)

	if opts.watchMode {
		return watchLoop(ctx, cfg, root, expanded, doRun)
	}

	return exitCode(results)
}

// watchLoop reruns the targets whose files changed until interrupted.
func watchLoop(ctx context.Context, cfg *config.Config, root string, expanded []string, doRun func([]string) []*runner.TargetResult) int {
	var rerunMu sync.Mutex

	w, err := watch.New(cfg.Watch, func(paths []string) {
		rerunMu.Lock()
		defer rerunMu.Unlock()
		fmt.Println()
		doRun(affectedTargets(expanded, paths))
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}

	watchRoot := root
	if watchRoot == "" {
		watchRoot = "."
	}
	if err := w.AddRoot(watchRoot); err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}

	w.Start(ctx)
	fmt.Fprintf(os.Stderr, "Watching %s for changes. Ctrl-C to stop.\n", watchRoot)

	<-ctx.Done()
	w.Stop()
	return exitOK
}

// affectedTargets narrows a rerun to the targets whose files changed.
// A change outside the target list (an imported helper module, say) can
// still affect anything, so that falls back to the full list.
func affectedTargets(targets, changed []string) []string {
	set := make(map[string]struct{}, len(changed))
	for _, p := range changed {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		set[p] = struct{}{}
	}

	var affected []string
	for _, t := range targets {
		abs, err := filepath.Abs(t)
		if err != nil {
			abs = t
		}
		if _, ok := set[abs]; ok {
			affected = append(affected, t)
		}
	}

	if len(affected) == 0 {
		return targets
	}
	return affected
}

func dialDaemon(ctx context.Context, cfg *config.Config) (*daemon.Client, bool) {
	client, err := daemon.Dial(ctx, cfg.SocketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: daemon not reachable at %s: %v\n", cfg.SocketPath, err)
		fmt.Fprintln(os.Stderr, "drt: start it with drtd")
		return nil, false
	}
	return client, true
}

func daemonStatus(ctx context.Context, cfg *config.Config, w io.Writer) int {
	client, ok := dialDaemon(ctx, cfg)
	if !ok {
		return exitError
	}
	defer client.Close()

	status, err := client.Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}

	fmt.Fprintf(w, "daemon pid %d, root %s\n", status.PID, status.Root)
	fmt.Fprintf(w, "up %s, watching: %v, runs served: %d\n",
		(time.Duration(status.UptimeSec) * time.Second).String(), status.Watching, status.RunsServed)
	return exitOK
}

func daemonLast(ctx context.Context, cfg *config.Config, w io.Writer) int {
	client, ok := dialDaemon(ctx, cfg)
	if !ok {
		return exitError
	}
	defer client.Close()

	resp, err := client.Last(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}

	results := resultsFromWire(resp)
	report.RenderFailures(w, results)
	report.RenderTable(w, results)
	return exitCode(results)
}

func daemonStop(ctx context.Context, cfg *config.Config) int {
	client, ok := dialDaemon(ctx, cfg)
	if !ok {
		return exitError
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}

	fmt.Fprintln(os.Stderr, "drt: daemon stopped")
	return exitOK
}

func runRemote(ctx context.Context, cfg *config.Config, targets []string, opts options, runOpts runner.Options) int {
	client, ok := dialDaemon(ctx, cfg)
	if !ok {
		return exitError
	}
	defer client.Close()

	resp, err := client.Run(ctx, &protocol.RunRequest{
		Targets:  targets,
		FailFast: opts.failFast,
		Empty:    emptyToWire(runOpts.Empty),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}

	results := resultsFromWire(resp)
	report.RenderFailures(os.Stdout, results)
	report.RenderTable(os.Stdout, results)

	if opts.failFast && runner.HasErrors(results) {
		fmt.Fprintln(os.Stderr, "Failed... FAST.")
	}

	return exitCode(results)
}

func resultsFromWire(resp *protocol.RunResponse) []*runner.TargetResult {
	results := make([]*runner.TargetResult, 0, len(resp.Targets))
	for _, t := range resp.Targets {
		r := &runner.TargetResult{
			Target:    t.Name,
			Name:      t.Name,
			Duration:  time.Duration(t.DurationMS) * time.Millisecond,
			Attempted: t.Attempted,
			Failed:    t.Failed,
		}
		if t.Error != "" {
			r.Err = fmt.Errorf("%s", t.Error)
		}
		results = append(results, r)
	}
	return results
}

func emptyToWire(f runner.EmptyFilter) string {
	switch f {
	case runner.FilterOnlyEmpty:
		return protocol.EmptyOnly
	case runner.FilterNoEmpty:
		return protocol.EmptyNone
	default:
		return protocol.EmptyAll
	}
}

func showHistory(cfg *config.Config, limit int) int {
	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}
	defer store.Close()

	runs, err := store.RecentRuns(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drt: %v\n", err)
		return exitError
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "drt: no recorded runs yet")
		return exitOK
	}

	report.RenderHistory(os.Stdout, runs)
	return exitOK
}

// recordRun is best effort; a broken history db never fails the run.
func recordRun(cfg *config.Config, startedAt time.Time, results []*runner.TargetResult, failFast bool) {
	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		logger.Warn("history unavailable", "error", err)
		return
	}
	defer store.Close()

	if _, err := store.RecordRun(startedAt, results, failFast); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

func exitCode(results []*runner.TargetResult) int {
	code := exitOK
	for _, r := range results {
		if r.Err != nil {
			return exitError
		}
		if r.Failed > 0 {
			code = exitFailures
		}
	}
	return code
}
