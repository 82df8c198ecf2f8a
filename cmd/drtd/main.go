// Command drtd keeps a doctest service running on a unix socket. It
// watches the package root and keeps the latest results warm, so drt
// -remote answers without interpreter startup cost.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nrser/drt/internal/config"
	"github.com/nrser/drt/internal/daemon"
	"github.com/nrser/drt/internal/discover"
	"github.com/nrser/drt/internal/history"
	"github.com/nrser/drt/internal/interp"
	"github.com/nrser/drt/internal/logger"
	"github.com/nrser/drt/internal/project"
	"github.com/nrser/drt/internal/runner"
	"github.com/nrser/drt/internal/watch"
	"github.com/nrser/drt/pkg/protocol"
)

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

func main() {
	os.Exit(run())
}

func run() int {
	var (
		verbosity countFlag
		rootFlag  string
		noWatch   bool
	)

	flag.Var(&verbosity, "v", "increase verbosity (repeatable)")
	flag.StringVar(&rootFlag, "root", "", "package root to serve (default: found from cwd)")
	flag.BoolVar(&noWatch, "no-watch", false, "do not watch the root for changes")
	flag.Parse()

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LevelForVerbosity(int(verbosity))
	logger.Init(logCfg)

	root := rootFlag
	if root == "" {
		found, err := project.FindRoot(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
			return 1
		}
		root = found
	}

	cfg, err := config.LoadProject(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
		return 1
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
		return 1
	}

	lock := daemon.NewLockFile(filepath.Join(filepath.Dir(cfg.SocketPath), "daemon.lock"))
	if err := lock.Acquire(); err != nil {
		fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
		return 1
	}
	defer lock.Release()

	pidFile := daemon.NewPIDFile(cfg.PIDPath)
	if pidFile.IsProcessAlive() {
		fmt.Fprintln(os.Stderr, "drtd: daemon already running")
		return 0
	}
	if err := pidFile.Write(); err != nil {
		fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
		return 1
	}
	defer pidFile.Remove()

	store, err := history.NewStore(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
		return 1
	}
	defer store.Close()

	engine := interp.NewPythonEngine(cfg.Runner.PythonBin, root)
	engine.RequestTimeout = cfg.Timeout()

	r := runner.New(engine)
	r.Root = root

	svc := &service{
		cfg:   cfg,
		root:  root,
		run:   r,
		store: store,
	}

	d := daemon.New(cfg.SocketPath, root, !noWatch, svc.serve)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		d.Shutdown()
	}()

	if !noWatch {
		w, err := watch.New(cfg.Watch, func(paths []string) {
			resp, err := svc.serve(context.Background(), &protocol.RunRequest{})
			if err != nil {
				logger.Warn("watch-triggered run failed", "error", err)
				return
			}
			resp.FromWatch = true
			d.SetLast(resp)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
			return 1
		}
		if err := w.AddRoot(root); err != nil {
			fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
			return 1
		}
		w.Start(ctx)
		defer w.Stop()
	}

	if err := d.Start(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "drtd: %v\n", err)
		return 1
	}

	return 0
}

// service executes run requests against the project root.
type service struct {
	cfg   *config.Config
	root  string
	run   *runner.Runner
	store *history.Store

	mu sync.Mutex
}

func (s *service) serve(ctx context.Context, req *protocol.RunRequest) (*protocol.RunResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := req.Targets
	if len(targets) == 0 {
		targets = []string{s.root}
	}

	expanded, err := discover.Expand(targets, s.cfg.Discover)
	if err != nil {
		return nil, err
	}

	opts := runner.DefaultOptions()
	opts.FailFast = req.FailFast
	opts.Empty = emptyFromWire(req.Empty)

	startedAt := time.Now()
	results := s.run.RunTargets(ctx, expanded, opts)

	runID, err := s.store.RecordRun(startedAt, results, req.FailFast)
	if err != nil {
		logger.Warn("failed to record run", "error", err)
		runID = uuid.NewString()
	}

	return toWire(runID, startedAt, results), nil
}

func toWire(runID string, startedAt time.Time, results []*runner.TargetResult) *protocol.RunResponse {
	resp := &protocol.RunResponse{
		RunID:     runID,
		StartedAt: startedAt.UTC().Format(time.RFC3339),
		Passed:    !runner.HasErrors(results),
	}

	for _, r := range results {
		report := protocol.TargetReport{
			Name:       r.Name,
			DurationMS: r.Duration.Milliseconds(),
			Attempted:  r.Attempted,
			Failed:     r.Failed,
		}
		if r.Err != nil {
			report.Error = r.Err.Error()
		}
		resp.Targets = append(resp.Targets, report)
	}

	return resp
}

func emptyFromWire(s string) runner.EmptyFilter {
	switch s {
	case protocol.EmptyOnly:
		return runner.FilterOnlyEmpty
	case protocol.EmptyNone:
		return runner.FilterNoEmpty
	default:
		return runner.FilterAll
	}
}
