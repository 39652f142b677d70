package balance

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"mergerfs-balance/internal/pool"
	"mergerfs-balance/internal/transfer"
	"mergerfs-balance/internal/walker"
)

// Config holds every knob the coordinator needs beyond the pool
// manager itself.
type Config struct {
	Percentage   float64
	MaxWorkers   int // 0 means "auto": max(1, min(|overfull|, |underfull|))
	DryRun       bool
	SampleSize   int
	CopyTool     []string
	Filter       walker.Filter
	AbortOnError bool
	ErrorThresh  int
	ErrorLog     *os.File

	// OnStart, OnProgress, and OnResult are optional hooks a caller can
	// use to drive a terminal display without the coordinator knowing
	// anything about display.Tracker. Any of them may be nil.
	OnStart    func(sourcePath, destPath string)
	OnProgress func(sourcePath string, p transfer.Progress)
	OnResult   func(r transfer.Result)
}

// Outcome is the final status a Run() produces for the summary line.
type Outcome struct {
	Totals   Totals
	Status   string
	ExitCode int
}

// Coordinator drives the INIT -> LOOP -> DRAIN -> SUMMARY -> EXIT
// rebalancing state machine: it repeatedly finds the most over-full
// source, the best destination, and a file to move between them,
// until the pool is within tolerance or no more progress is possible.
type Coordinator struct {
	manager  *pool.Manager
	cfg      Config
	selector FileSelector
	stats    Stats
	esc      *Escalation
	logger   *logrus.Logger

	cursorsMu sync.Mutex
	cursors   map[string]walker.Cursor

	// destLocks maps an in-flight transfer's source path to the
	// destination drive path whose write lock it holds. Only the
	// Run goroutine touches it, so it needs no lock of its own.
	destLocks map[string]string

	// shutdown is set for any cooperative stop: a signal, or escalation
	// giving up after too many consecutive errors. interrupted is set
	// only by the signal path, since that's the one case that maps to
	// exit code 130 rather than 1.
	shutdown    atomic.Bool
	interrupted atomic.Bool
	txPool      *transfer.Pool
}

// NewCoordinator builds a Coordinator for one balance run.
func NewCoordinator(manager *pool.Manager, cfg Config, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	threshold := cfg.ErrorThresh
	if threshold <= 0 {
		threshold = 5
	}
	var errLog io.Writer
	if cfg.ErrorLog != nil {
		errLog = cfg.ErrorLog
	}
	return &Coordinator{
		manager:   manager,
		cfg:       cfg,
		selector:  FileSelector{SampleSize: cfg.SampleSize},
		logger:    logger,
		cursors:   make(map[string]walker.Cursor),
		destLocks: make(map[string]string),
		esc: &Escalation{
			Threshold:    threshold,
			AbortOnError: cfg.AbortOnError,
			ErrorLog:     errLog,
			Logger:       logger,
		},
	}
}

// RequestShutdown sets the cooperative shutdown flag and cancels every
// in-flight transfer. Used by the escalation path, which stops the run
// but still exits 1, not 130.
func (c *Coordinator) RequestShutdown() {
	c.shutdown.Store(true)
	if c.txPool != nil {
		c.txPool.CancelAll()
	}
}

// requestInterrupt is RequestShutdown plus marking the stop as
// signal-driven, which is the only case that exits 130. Safe to call
// from a signal handler.
func (c *Coordinator) requestInterrupt() {
	c.interrupted.Store(true)
	c.RequestShutdown()
}

func (c *Coordinator) isShutdown() bool {
	return c.shutdown.Load()
}

// Run executes the full state machine and returns the final outcome.
func (c *Coordinator) Run(ctx context.Context) (Outcome, error) {
	maxWorkers := c.cfg.MaxWorkers
	if maxWorkers <= 0 {
		over := len(c.manager.Overfull(c.cfg.Percentage))
		under := len(c.manager.Underfull(c.cfg.Percentage))
		maxWorkers = max(1, min(over, under))
	}
	c.txPool = transfer.NewPool(maxWorkers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	sigDone := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			c.requestInterrupt()
		case <-sigDone:
		}
	}()
	defer close(sigDone)

	status := c.loop(ctx, maxWorkers)

	// DRAIN
	if c.txPool.ActiveCount() > 0 {
		c.logger.Info("waiting for remaining transfers to complete")
	}
	for _, r := range c.txPool.WaitForAll() {
		c.finishResult(r)
	}

	totals := c.stats.Snapshot()
	exitCode := 0
	if totals.Errors > 0 {
		exitCode = 1
	}
	if c.interrupted.Load() {
		exitCode = 130
	}

	c.logSummary(status, totals)

	return Outcome{Totals: totals, Status: status, ExitCode: exitCode}, nil
}

func (c *Coordinator) loop(ctx context.Context, maxWorkers int) string {
	for {
		if c.isShutdown() {
			return "interrupted"
		}
		if err := c.manager.RefreshAllStats(); err != nil {
			c.logger.WithError(err).Error("refreshing drive stats")
			return "error"
		}
		if c.manager.IsBalanced(c.cfg.Percentage) {
			return "balanced"
		}

		sources := c.manager.Overfull(c.cfg.Percentage)
		if len(sources) == 0 {
			return "no overfull sources"
		}

		avg := c.manager.AverageUsage()
		transfersStarted := 0

		for _, src := range sources {
			if c.isShutdown() {
				break
			}
			if c.txPool.ActiveCount() >= maxWorkers {
				break
			}

			dst, ok := c.manager.BestDestination(c.cfg.Percentage, true)
			if !ok {
				break
			}
			if dst.Path == src.Path {
				continue
			}

			toMove := bytesToMove(src, avg)
			cursor := c.cursorFor(src.Path)
			entry, ok := c.selector.Pick(cursor, toMove, int64(dst.Stats().FreeBytes))
			if !ok {
				continue
			}

			rel, err := filepath.Rel(src.Path, entry.Path)
			if err != nil {
				continue
			}
			destPath := filepath.Join(dst.Path, rel)

			if !c.manager.AcquireWriteLock(dst.Path) {
				continue
			}

			if c.cfg.DryRun {
				c.logger.WithFields(logrus.Fields{"source": entry.Path, "dest": destPath}).
					Info("dry run: would move file")
				c.manager.ReleaseWriteLock(dst.Path)
				result := transfer.Result{
					SourcePath:       entry.Path,
					DestPath:         destPath,
					Status:           transfer.Completed,
					BytesTransferred: entry.Size,
				}
				c.stats.Record(result)
				if c.cfg.OnResult != nil {
					c.cfg.OnResult(result)
				}
				transfersStarted++
				continue
			}

			destPathForLock := dst.Path
			var onProgress func(transfer.Progress)
			if c.cfg.OnProgress != nil {
				onProgress = func(p transfer.Progress) { c.cfg.OnProgress(entry.Path, p) }
			}
			worker := transfer.NewWorker(entry.Path, destPath, entry.Size, false, src.Path, c.cfg.CopyTool, onProgress, c.logger)
			if !c.txPool.Submit(ctx, worker) {
				c.manager.ReleaseWriteLock(destPathForLock)
				continue
			}
			if c.cfg.OnStart != nil {
				c.cfg.OnStart(entry.Path, destPath)
			}
			transfersStarted++

			// the lock is released once this specific transfer's
			// result is drained, below
			c.destLocks[entry.Path] = destPathForLock
		}

		if transfersStarted == 0 && c.txPool.ActiveCount() == 0 {
			if err := c.manager.RefreshAllStats(); err == nil && c.manager.IsBalanced(c.cfg.Percentage) {
				return "balanced"
			}
			return "no more files can be moved"
		}

		if c.txPool.ActiveCount() > 0 {
			if r, ok := c.txPool.WaitForAny(time.Second); ok {
				c.finishResult(r)
			}
		}
	}
}

func (c *Coordinator) finishResult(r transfer.Result) {
	if destPath, ok := c.destLocks[r.SourcePath]; ok {
		c.manager.ReleaseWriteLock(destPath)
		delete(c.destLocks, r.SourcePath)
	}
	c.stats.Record(r)
	if c.cfg.OnResult != nil {
		c.cfg.OnResult(r)
	}
	if c.esc.Observe(r) {
		c.RequestShutdown()
	}
}

func (c *Coordinator) cursorFor(sourcePath string) walker.Cursor {
	c.cursorsMu.Lock()
	defer c.cursorsMu.Unlock()
	if cur, ok := c.cursors[sourcePath]; ok {
		return cur
	}
	cur := walker.Walk(sourcePath, c.cfg.Filter)
	c.cursors[sourcePath] = cur
	return cur
}

func (c *Coordinator) logSummary(status string, totals Totals) {
	c.logger.WithFields(logrus.Fields{
		"files_moved":       totals.FilesMoved,
		"bytes_transferred": totals.BytesTransferred,
		"errors":            totals.Errors,
		"status":            status,
	}).Info("balance run finished")

	for _, d := range c.manager.AllDrives() {
		c.logger.WithFields(logrus.Fields{
			"drive": d.Path,
			"usage": fmt.Sprintf("%.1f%%", d.Stats().UsagePercent()),
		}).Info("final drive usage")
	}
}

// bytesToMove estimates how many bytes src needs to shed to reach avg.
func bytesToMove(src *pool.Drive, avg float64) int64 {
	s := src.Stats()
	gap := s.UsagePercent() - avg
	if gap <= 0 {
		return 0
	}
	return int64(gap / 100 * float64(s.TotalBytes))
}
