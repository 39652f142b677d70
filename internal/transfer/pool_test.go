package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func dryRunWorker(t *testing.T, root, name string, size int64) *Worker {
	t.Helper()
	src := filepath.Join(root, name)
	if err := os.WriteFile(src, make([]byte, size), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	dst := filepath.Join(root, "dest", name)
	return NewWorker(src, dst, size, true, root, nil, nil, nil)
}

func TestPoolSubmitRejectsOverCapacityAndDuplicateSource(t *testing.T) {
	root := t.TempDir()
	p := NewPool(1)

	w1 := dryRunWorker(t, root, "a.bin", 10)
	if !p.Submit(context.Background(), w1) {
		t.Fatalf("first submit should succeed")
	}

	w1dup := NewWorker(w1.SourcePath, w1.DestPath+".dup", 10, true, root, nil, nil, nil)
	if p.Submit(context.Background(), w1dup) {
		t.Fatalf("duplicate source path submit should be rejected")
	}

	results := p.WaitForAll()
	if len(results) != 1 || results[0].Status != Completed {
		t.Fatalf("results = %v, want one Completed result", results)
	}
}

func TestPoolWaitForAnyTimesOutWhenNothingCompleted(t *testing.T) {
	p := NewPool(1)
	_, ok := p.WaitForAny(50 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout with no submitted work")
	}
}

func TestPoolWaitForAllCollectsEveryResult(t *testing.T) {
	root := t.TempDir()
	p := NewPool(3)

	for i := 0; i < 3; i++ {
		w := dryRunWorker(t, root, string(rune('a'+i))+".bin", int64(i+1))
		if !p.Submit(context.Background(), w) {
			t.Fatalf("submit %d should succeed", i)
		}
	}

	results := p.WaitForAll()
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, r := range results {
		if r.Status != Completed {
			t.Errorf("result %+v, want Completed", r)
		}
	}

	// a second WaitForAll with nothing outstanding returns empty, not the same results again
	if got := p.WaitForAll(); len(got) != 0 {
		t.Fatalf("second WaitForAll = %v, want empty", got)
	}
}

func TestPoolActiveCountTracksInFlightWork(t *testing.T) {
	root := t.TempDir()
	p := NewPool(2)
	if p.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d before any submit, want 0", p.ActiveCount())
	}

	w := dryRunWorker(t, root, "a.bin", 1)
	p.Submit(context.Background(), w)
	p.WaitForAll()

	if p.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d after drain, want 0", p.ActiveCount())
	}
}
