package balance

import (
	"sync"

	"mergerfs-balance/internal/transfer"
)

// Totals is an immutable snapshot of a Stats accumulator.
type Totals struct {
	FilesMoved       int64
	BytesTransferred int64
	Errors           int64
}

// Stats accumulates the running totals for one balance run. It is
// mutated only from the coordinator's own goroutine as it drains
// transfer results, so the mutex here guards against concurrent reads
// from a status-reporting goroutine rather than concurrent writers.
type Stats struct {
	mu     sync.Mutex
	totals Totals
}

// Record folds one transfer result into the running totals.
func (s *Stats) Record(r transfer.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Status {
	case transfer.Completed:
		s.totals.FilesMoved++
		s.totals.BytesTransferred += r.BytesTransferred
	case transfer.Failed:
		s.totals.Errors++
	}
}

// Snapshot returns a copy of the current totals.
func (s *Stats) Snapshot() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}
