package watch

import (
	"sync"
	"testing"
	"time"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]string
	notify  chan struct{}
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{notify: make(chan struct{}, 10)}
}

func (r *flushRecorder) flush(paths []string) {
	r.mu.Lock()
	r.batches = append(r.batches, paths)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *flushRecorder) wait(t *testing.T) []string {
	t.Helper()

	select {
	case <-r.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	rec := newFlushRecorder()
	d := NewDebouncer(20*time.Millisecond, 100, rec.flush)
	defer d.Stop()

	d.Add("a.py")
	d.Add("b.py")
	d.Add("a.py")

	batch := rec.wait(t)
	if len(batch) != 2 {
		t.Errorf("expected 2 unique paths, got %d: %v", len(batch), batch)
	}
	if rec.count() != 1 {
		t.Errorf("expected a single flush, got %d", rec.count())
	}
}

func TestDebouncerMaxBatchFlushesImmediately(t *testing.T) {
	rec := newFlushRecorder()
	d := NewDebouncer(time.Hour, 3, rec.flush)
	defer d.Stop()

	d.Add("a.py")
	d.Add("b.py")
	d.Add("c.py")

	batch := rec.wait(t)
	if len(batch) != 3 {
		t.Errorf("expected 3 paths, got %d", len(batch))
	}
}

func TestDebouncerStopFlushesPending(t *testing.T) {
	rec := newFlushRecorder()
	d := NewDebouncer(time.Hour, 100, rec.flush)

	d.Add("a.py")
	d.Stop()

	batch := rec.wait(t)
	if len(batch) != 1 || batch[0] != "a.py" {
		t.Errorf("expected pending path to flush on stop, got %v", batch)
	}

	// Adds after Stop are dropped.
	d.Add("b.py")
	time.Sleep(10 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("expected no flush after stop, got %d", rec.count())
	}
}
