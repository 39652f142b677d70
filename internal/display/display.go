// Package display renders balance run progress to the terminal. At
// verbosity 2 (-vv) it shows a live spinner per active transfer; at
// lower verbosity it falls back to plain log lines, the same
// degrade-gracefully behavior the teacher's progress tracker applies
// based on TTY detection.
package display

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"mergerfs-balance/internal/sizeparse"
	"mergerfs-balance/internal/transfer"
)

// Tracker reports transfer lifecycle events to the terminal.
type Tracker struct {
	rich  bool
	quiet bool

	mu    sync.Mutex
	spins map[string]*spinner.Spinner
}

// New builds a Tracker. rich enables the live spinner display (-vv);
// quiet suppresses all non-error output.
func New(rich, quiet bool) *Tracker {
	return &Tracker{
		rich:  rich && isTerminal(),
		quiet: quiet,
		spins: make(map[string]*spinner.Spinner),
	}
}

// StartTransfer announces that a transfer has begun.
func (t *Tracker) StartTransfer(sourcePath, destPath string) {
	if t.quiet {
		return
	}
	if !t.rich {
		fmt.Printf("moving %s -> %s\n", sourcePath, destPath)
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Color("cyan")
	s.Suffix = fmt.Sprintf(" %s", sourcePath)
	s.Start()

	t.mu.Lock()
	t.spins[sourcePath] = s
	t.mu.Unlock()
}

// UpdateProgress updates the live spinner for sourcePath, if any, with
// the latest transfer progress. A no-op outside rich mode.
func (t *Tracker) UpdateProgress(sourcePath string, p transfer.Progress) {
	if !t.rich {
		return
	}
	t.mu.Lock()
	s, ok := t.spins[sourcePath]
	t.mu.Unlock()
	if !ok {
		return
	}
	s.Suffix = fmt.Sprintf(" %s  %d%%  %s/s", sourcePath, p.Percent, sizeparse.FormatSize(p.BytesPerSecond))
}

// FinishTransfer reports a completed transfer's result.
func (t *Tracker) FinishTransfer(r transfer.Result) {
	if t.rich {
		t.mu.Lock()
		s, ok := t.spins[r.SourcePath]
		delete(t.spins, r.SourcePath)
		t.mu.Unlock()
		if ok {
			s.Stop()
		}
	}
	if t.quiet {
		return
	}

	switch r.Status {
	case transfer.Completed:
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s (%s)\n", green("done"), r.SourcePath, sizeparse.FormatSize(float64(r.BytesTransferred)))
	case transfer.Failed:
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("%s %s: %s\n", red("failed"), r.SourcePath, r.Error)
	case transfer.Cancelled:
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s %s\n", yellow("cancelled"), r.SourcePath)
	}
}

// StopAll halts every live spinner without printing a result, used
// when shutting down mid-run.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, s := range t.spins {
		s.Stop()
		delete(t.spins, path)
	}
}

func isTerminal() bool {
	info, err := os.Stdout.Stat()
	return err == nil && (info.Mode()&os.ModeCharDevice) != 0
}
