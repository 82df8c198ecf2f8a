package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nrser/drt/internal/runner"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRecordAndRecentRuns(t *testing.T) {
	store := newTestStore(t)

	results := []*runner.TargetResult{
		{Name: "pkg.mod", Duration: 12 * time.Millisecond, Attempted: 4, Failed: 1},
		{Name: "docs/guide.md", Duration: 3 * time.Millisecond, Attempted: 2, Failed: 0},
	}

	id, err := store.RecordRun(time.Now(), results, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a run id")
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	run := runs[0]
	if run.ID != id {
		t.Errorf("expected id %s, got %s", id, run.ID)
	}
	if run.Attempted != 6 || run.Passed != 5 || run.Failed != 1 {
		t.Errorf("unexpected totals %+v", run)
	}
	if run.Duration != 15*time.Millisecond {
		t.Errorf("unexpected duration %v", run.Duration)
	}
}

func TestRunTargets(t *testing.T) {
	store := newTestStore(t)

	results := []*runner.TargetResult{
		{Name: "b.mod", Attempted: 1},
		{Name: "a.mod", Err: errors.New("no package root")},
	}

	id, err := store.RecordRun(time.Now(), results, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	targets, err := store.RunTargets(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}

	// Ordered by name.
	if targets[0].Name != "a.mod" || targets[1].Name != "b.mod" {
		t.Errorf("unexpected order: %s, %s", targets[0].Name, targets[1].Name)
	}
	if targets[0].Error != "no package root" {
		t.Errorf("collection error should be stored, got %q", targets[0].Error)
	}
	if targets[1].Error != "" {
		t.Errorf("clean target should have no error, got %q", targets[1].Error)
	}
}

func TestRecentRunsLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := store.RecordRun(base.Add(time.Duration(i)*time.Minute), nil, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	runs, err := store.RecentRuns(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}

	// Newest first.
	for i := 1; i < len(runs); i++ {
		if runs[i].StartedAt.After(runs[i-1].StartedAt) {
			t.Error("runs should be ordered newest first")
		}
	}
}
