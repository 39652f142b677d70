package balance

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/sirupsen/logrus"

	"mergerfs-balance/internal/transfer"
)

// Escalation tracks consecutive transfer failures and decides when the
// run should stop: either immediately (abort_on_error) or after an
// interactive "Continue?" prompt goes unanswered or is declined.
type Escalation struct {
	Threshold    int
	AbortOnError bool
	ErrorLog     io.Writer
	Logger       *logrus.Logger

	mu          sync.Mutex
	consecutive int

	promptMu sync.Mutex
}

// Observe folds one transfer result into the consecutive-failure
// count and reports whether the caller should now shut down.
func (e *Escalation) Observe(r transfer.Result) (shutdown bool) {
	if r.Status == transfer.Completed {
		e.mu.Lock()
		e.consecutive = 0
		e.mu.Unlock()
		return false
	}
	if r.Status != transfer.Failed {
		return false
	}

	e.mu.Lock()
	e.consecutive++
	count := e.consecutive
	e.mu.Unlock()

	e.logFailure(r)

	if count < e.Threshold {
		return false
	}

	if e.AbortOnError {
		e.log().WithField("consecutive_errors", count).Error("error threshold reached, aborting")
		return true
	}

	if e.promptToContinue() {
		e.mu.Lock()
		e.consecutive = 0
		e.mu.Unlock()
		return false
	}
	return true
}

// promptToContinue asks the operator whether to keep going. Only one
// prompt is ever in flight at a time; a non-interactive terminal or a
// declined prompt both result in shutdown.
func (e *Escalation) promptToContinue() bool {
	e.promptMu.Lock()
	defer e.promptMu.Unlock()

	var keepGoing bool
	prompt := &survey.Confirm{Message: "Continue?", Default: false}
	if err := survey.AskOne(prompt, &keepGoing, survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)); err != nil {
		return false
	}
	return keepGoing
}

func (e *Escalation) logFailure(r transfer.Result) {
	e.log().WithFields(logrus.Fields{
		"source": r.SourcePath,
		"dest":   r.DestPath,
	}).Error(r.Error)

	if e.ErrorLog == nil {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	fmt.Fprintf(e.ErrorLog, "%s\t%s -> %s\t%s\n", ts, r.SourcePath, r.DestPath, r.Error)
}

func (e *Escalation) log() *logrus.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.StandardLogger()
}
