package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pollInterval is how often WaitForAny re-checks for a completed
// result while waiting for one to appear.
const pollInterval = 20 * time.Millisecond

// Pool bounds concurrent transfers to maxWorkers, rejects duplicate
// submissions of the same source path, and collects completed results
// for the coordinator to drain.
type Pool struct {
	maxWorkers int

	mu        sync.Mutex
	inFlight  map[string]bool
	workers   map[string]*Worker
	results   []Result
	activeCnt int

	wg sync.WaitGroup
}

// NewPool constructs a Pool bounded to maxWorkers concurrent transfers.
func NewPool(maxWorkers int) *Pool {
	return &Pool{
		maxWorkers: maxWorkers,
		inFlight:   make(map[string]bool),
		workers:    make(map[string]*Worker),
	}
}

// Submit enqueues w for execution. It returns false without starting
// anything if the pool has no free slot or w's source path is already
// in flight.
func (p *Pool) Submit(ctx context.Context, w *Worker) bool {
	p.mu.Lock()
	if p.activeCnt >= p.maxWorkers || p.inFlight[w.SourcePath] {
		p.mu.Unlock()
		return false
	}
	p.inFlight[w.SourcePath] = true
	p.workers[w.SourcePath] = w
	p.activeCnt++
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// a panic inside Run is turned into a Failed result so it never
		// crosses into the coordinator
		result := func() (r Result) {
			defer func() {
				if rec := recover(); rec != nil {
					r = Result{SourcePath: w.SourcePath, DestPath: w.DestPath, Status: Failed, Error: fmt.Sprintf("transfer panicked: %v", rec)}
				}
			}()
			return w.Run(ctx)
		}()

		p.mu.Lock()
		delete(p.inFlight, w.SourcePath)
		delete(p.workers, w.SourcePath)
		p.activeCnt--
		p.results = append(p.results, result)
		p.mu.Unlock()
	}()

	return true
}

// ActiveCount returns the number of transfers currently running.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeCnt
}

// WaitForAny pops and returns the next completed result, waiting up to
// timeout for one to appear.
func (p *Pool) WaitForAny(timeout time.Duration) (Result, bool) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		if len(p.results) > 0 {
			r := p.results[0]
			p.results = p.results[1:]
			p.mu.Unlock()
			return r, true
		}
		p.mu.Unlock()

		if time.Now().After(deadline) {
			return Result{}, false
		}
		time.Sleep(pollInterval)
	}
}

// WaitForAll blocks until every submitted transfer has finished, then
// returns and clears every result not yet collected by WaitForAny.
func (p *Pool) WaitForAll() []Result {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.results
	p.results = nil
	return out
}

// CancelAll cancels every currently-recorded worker. Submissions made
// after this call still succeed unless the caller stops submitting.
func (p *Pool) CancelAll() {
	p.mu.Lock()
	workers := make([]*Worker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		w.Cancel()
	}
}
