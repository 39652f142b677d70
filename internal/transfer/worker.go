package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultCopyTool is the reference external copy command: archive mode,
// remove the source on success, emit machine-parseable progress on
// stdout, and avoid incremental-recursion output ordering that would
// make progress lines harder to parse.
var DefaultCopyTool = []string{"rsync", "-a", "--remove-source-files", "--info=progress2", "--no-inc-recursive"}

// terminationGrace is how long a cancelled worker's child process is
// given to exit after SIGTERM before it is force-killed.
const terminationGrace = 5 * time.Second

// Worker drives a single file transfer: either a no-op dry run, or a
// live invocation of CopyTool as a child process with concurrent
// stdout/stderr draining and cooperative cancellation.
type Worker struct {
	SourcePath string
	DestPath   string
	FileSize   int64
	DryRun     bool

	// MemberRoot bounds the upward empty-directory cleanup walk after a
	// successful live transfer; the walk never removes MemberRoot itself.
	MemberRoot string

	CopyTool []string

	OnProgress func(Progress)
	Logger     *logrus.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewWorker constructs a Worker. copyTool may be nil, in which case
// DefaultCopyTool is used.
func NewWorker(sourcePath, destPath string, fileSize int64, dryRun bool, memberRoot string, copyTool []string, onProgress func(Progress), logger *logrus.Logger) *Worker {
	if copyTool == nil {
		copyTool = DefaultCopyTool
	}
	return &Worker{
		SourcePath: sourcePath,
		DestPath:   destPath,
		FileSize:   fileSize,
		DryRun:     dryRun,
		MemberRoot: memberRoot,
		CopyTool:   copyTool,
		OnProgress: onProgress,
		Logger:     logger,
	}
}

// Cancel requests termination of an in-flight run. Safe to call before
// Run starts, while it's running, or after it has already finished; a
// Cancel that arrives before Run starts is remembered so Run returns
// Cancelled immediately instead of starting the copy tool.
func (w *Worker) Cancel() {
	w.cancelled.Store(true)
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the transfer and blocks until it reaches a terminal
// status.
func (w *Worker) Run(ctx context.Context) Result {
	start := time.Now()

	if w.cancelled.Load() {
		return Result{SourcePath: w.SourcePath, DestPath: w.DestPath, Status: Cancelled, Duration: time.Since(start)}
	}

	if w.DryRun {
		w.log().WithFields(logrus.Fields{
			"source": w.SourcePath,
			"dest":   w.DestPath,
			"bytes":  w.FileSize,
		}).Info("dry run: would transfer file")
		return Result{
			SourcePath:       w.SourcePath,
			DestPath:         w.DestPath,
			Status:           Completed,
			BytesTransferred: w.FileSize,
			Duration:         time.Since(start),
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	defer cancel()

	if w.cancelled.Load() {
		cancel()
		return Result{SourcePath: w.SourcePath, DestPath: w.DestPath, Status: Cancelled, Duration: time.Since(start)}
	}

	if err := os.MkdirAll(filepath.Dir(w.DestPath), 0o755); err != nil {
		return w.fail(fmt.Errorf("creating destination directory: %w", err), time.Since(start))
	}

	args := append(append([]string{}, w.CopyTool[1:]...), w.SourcePath, w.DestPath)
	cmd := exec.CommandContext(runCtx, w.CopyTool[0], args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = terminationGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return w.fail(fmt.Errorf("opening stdout pipe: %w", err), time.Since(start))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return w.fail(fmt.Errorf("opening stderr pipe: %w", err), time.Since(start))
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return w.fail(fmt.Errorf("copy tool %q not found: %w", w.CopyTool[0], err), time.Since(start))
		}
		return w.fail(fmt.Errorf("starting copy tool: %w", err), time.Since(start))
	}

	var wg sync.WaitGroup
	wg.Add(2)

	var lastProgress Progress
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Split(bufio.ScanLines)
		for scanner.Scan() {
			p, ok := ParseProgressLine(scanner.Text())
			if !ok {
				continue
			}
			lastProgress = p
			if w.OnProgress != nil {
				w.OnProgress(p)
			}
		}
	}()

	var stderrBuf strings.Builder
	var stderrMu sync.Mutex
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Split(bufio.ScanLines)
		for scanner.Scan() {
			stderrMu.Lock()
			stderrBuf.WriteString(scanner.Text())
			stderrBuf.WriteByte('\n')
			stderrMu.Unlock()
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()

	if runCtx.Err() != nil {
		return Result{SourcePath: w.SourcePath, DestPath: w.DestPath, Status: Cancelled, Duration: time.Since(start)}
	}

	if waitErr != nil {
		stderrMu.Lock()
		msg := strings.TrimSpace(stderrBuf.String())
		stderrMu.Unlock()
		if msg == "" {
			msg = waitErr.Error()
		}
		return w.fail(errors.New(msg), time.Since(start))
	}

	bytesTransferred := w.FileSize
	if lastProgress.BytesTransferred > 0 {
		bytesTransferred = lastProgress.BytesTransferred
	}

	w.cleanupEmptyDirs()

	return Result{
		SourcePath:       w.SourcePath,
		DestPath:         w.DestPath,
		Status:           Completed,
		BytesTransferred: bytesTransferred,
		Duration:         time.Since(start),
	}
}

func (w *Worker) fail(err error, duration time.Duration) Result {
	w.log().WithFields(logrus.Fields{
		"source": w.SourcePath,
		"dest":   w.DestPath,
	}).WithError(err).Error("transfer failed")
	return Result{
		SourcePath: w.SourcePath,
		DestPath:   w.DestPath,
		Status:     Failed,
		Error:      err.Error(),
		Duration:   duration,
	}
}

// cleanupEmptyDirs walks upward from the source file's parent directory,
// removing directories left empty by the move, stopping at the first
// non-empty directory, any error, or MemberRoot — whichever comes
// first. MemberRoot itself is never removed.
func (w *Worker) cleanupEmptyDirs() {
	dir := filepath.Dir(w.SourcePath)
	root := filepath.Clean(w.MemberRoot)

	for {
		clean := filepath.Clean(dir)
		if clean == root || clean == "." || clean == string(filepath.Separator) {
			return
		}

		entries, err := os.ReadDir(clean)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(clean); err != nil {
			return
		}
		dir = filepath.Dir(clean)
	}
}

func (w *Worker) log() *logrus.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return logrus.StandardLogger()
}
