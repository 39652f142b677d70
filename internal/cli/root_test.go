package cli

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestExitErrorCarriesCodeAndMessage(t *testing.T) {
	err := &exitError{code: 130, msg: "interrupted"}
	if err.Error() != "interrupted" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.ExitCode() != 130 {
		t.Errorf("ExitCode() = %d, want 130", err.ExitCode())
	}
}

func TestNewLoggerLevelsByVerbosity(t *testing.T) {
	cases := []struct {
		verbose int
		quiet   bool
		want    logrus.Level
	}{
		{0, false, logrus.WarnLevel},
		{1, false, logrus.InfoLevel},
		{2, false, logrus.DebugLevel},
		{0, true, logrus.ErrorLevel},
		{2, true, logrus.ErrorLevel},
	}
	for _, c := range cases {
		got := newLogger(c.verbose, c.quiet).GetLevel()
		if got != c.want {
			t.Errorf("newLogger(%d, %v) level = %v, want %v", c.verbose, c.quiet, got, c.want)
		}
	}
}

func TestRootCommandDeclaresCoreFlags(t *testing.T) {
	for _, name := range []string{"percentage", "include", "exclude", "min-size", "max-size", "parallel", "source", "dest", "dry-run", "verbose", "quiet", "config", "abort-on-error", "error-threshold", "error-log"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("rootCmd missing flag %q", name)
		}
	}
}

func TestStatusCommandRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "status" {
			found = true
		}
	}
	if !found {
		t.Errorf("status subcommand not registered on rootCmd")
	}
}
