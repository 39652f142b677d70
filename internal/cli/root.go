// Package cli wires the cobra command tree for mergerfs-balance: the
// root balance command plus the read-only status companion.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mergerfs-balance/internal/balance"
	"mergerfs-balance/internal/config"
	"mergerfs-balance/internal/discovery"
	"mergerfs-balance/internal/display"
	"mergerfs-balance/internal/pool"
	"mergerfs-balance/internal/sizeparse"
	"mergerfs-balance/internal/transfer"
	"mergerfs-balance/internal/walker"
)

const version = "0.1.0"

var cli config.Config

var (
	minSizeStr   string
	maxSizeStr   string
	verboseCount int
)

var rootCmd = &cobra.Command{
	Use:     "mergerfs-balance MOUNT_POINT",
	Short:   "Balance file-level storage utilization across a mergerfs pool",
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    runBalance,
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if ec, ok := err.(exitCoder); ok {
			return ec.ExitCode()
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// exitCoder lets RunE propagate an exit code alongside the error
// message Execute prints, instead of always returning 1.
type exitCoder interface {
	error
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func init() {
	rootCmd.Flags().Float64VarP(&cli.Percentage, "percentage", "p", config.DefaultPercentage, "target tolerance, in percent")
	rootCmd.Flags().StringArrayVarP(&cli.IncludePatterns, "include", "i", nil, "include files matching glob pattern (repeatable)")
	rootCmd.Flags().StringArrayVarP(&cli.ExcludePatterns, "exclude", "e", nil, "exclude files matching glob pattern (repeatable)")
	rootCmd.Flags().StringVarP(&minSizeStr, "min-size", "s", "", "minimum file size (e.g. 100M, 1G)")
	rootCmd.Flags().StringVarP(&maxSizeStr, "max-size", "S", "", "maximum file size (e.g. 50G)")
	rootCmd.Flags().IntVar(&cli.Parallel, "parallel", 0, "concurrent transfers; 0=auto based on drives needing balance")
	rootCmd.Flags().StringArrayVar(&cli.SourceDrives, "source", nil, "limit source drives (repeatable)")
	rootCmd.Flags().StringArrayVar(&cli.DestDrives, "dest", nil, "limit destination drives (repeatable)")
	rootCmd.Flags().BoolVar(&cli.DryRun, "dry-run", false, "preview without moving files")
	rootCmd.Flags().CountVarP(&verboseCount, "verbose", "v", "increase verbosity (-v, -vv for rich progress)")
	rootCmd.Flags().BoolVarP(&cli.Quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.Flags().StringVar(&cli.ConfigFile, "config", "", "configuration file (YAML)")
	rootCmd.Flags().BoolVar(&cli.AbortOnError, "abort-on-error", false, "abort after consecutive errors (default: pause and prompt)")
	rootCmd.Flags().IntVar(&cli.ErrorThreshold, "error-threshold", config.DefaultErrorThreshold, "consecutive errors before pausing/aborting")
	rootCmd.Flags().StringVar(&cli.ErrorLog, "error-log", "", "file to append error log entries to")

	rootCmd.AddCommand(statusCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	cli.MountPoint = args[0]
	cli.Verbose = verboseCount

	if minSizeStr != "" {
		n, err := sizeparse.ParseSize(minSizeStr)
		if err != nil {
			return &exitError{code: 1, msg: fmt.Sprintf("invalid --min-size: %v", err)}
		}
		cli.MinSize = n
	}
	if maxSizeStr != "" {
		n, err := sizeparse.ParseSize(maxSizeStr)
		if err != nil {
			return &exitError{code: 1, msg: fmt.Sprintf("invalid --max-size: %v", err)}
		}
		cli.MaxSize = n
	}

	cfgFile := cli.ConfigFile
	if cfgFile == "" {
		if found, ok := config.FindConfigFile(); ok {
			cfgFile = found
		}
	}
	resolved, err := config.Resolve(cli, cfgFile)
	if err != nil {
		return &exitError{code: 1, msg: err.Error()}
	}

	if errs := resolved.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, "Error:", e)
		}
		return &exitError{code: 1, msg: "invalid configuration"}
	}

	logger := newLogger(resolved.Verbose, resolved.Quiet)

	var errLogFile *os.File
	if resolved.ErrorLog != "" {
		f, err := os.OpenFile(resolved.ErrorLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return &exitError{code: 1, msg: fmt.Sprintf("opening error log: %v", err)}
		}
		defer f.Close()
		errLogFile = f
	}

	members, _, err := discovery.Discover(resolved.MountPoint, "")
	if err != nil {
		return &exitError{code: 1, msg: err.Error()}
	}

	manager, err := pool.NewManager(members, resolved.SourceDrives, resolved.DestDrives)
	if err != nil {
		return &exitError{code: 1, msg: err.Error()}
	}

	filter, err := walker.NewFilter(resolved.IncludePatterns, resolved.ExcludePatterns, resolved.MinSize, resolved.MaxSize)
	if err != nil {
		return &exitError{code: 1, msg: err.Error()}
	}

	tracker := display.New(resolved.Verbose >= 2, resolved.Quiet)

	balanceCfg := balance.Config{
		Percentage:   resolved.Percentage,
		MaxWorkers:   resolved.Parallel,
		DryRun:       resolved.DryRun,
		SampleSize:   5,
		CopyTool:     transfer.DefaultCopyTool,
		Filter:       filter,
		AbortOnError: resolved.AbortOnError,
		ErrorThresh:  resolved.ErrorThreshold,
		ErrorLog:     errLogFile,
		OnStart:      tracker.StartTransfer,
		OnProgress:   tracker.UpdateProgress,
		OnResult:     tracker.FinishTransfer,
	}

	coordinator := balance.NewCoordinator(manager, balanceCfg, logger)

	outcome, err := coordinator.Run(context.Background())
	tracker.StopAll()
	if err != nil {
		return &exitError{code: 1, msg: err.Error()}
	}

	if outcome.ExitCode != 0 {
		return &exitError{code: outcome.ExitCode, msg: fmt.Sprintf("balance run finished with status %q", outcome.Status)}
	}
	return nil
}

func newLogger(verbose int, quiet bool) *logrus.Logger {
	logger := logrus.New()
	switch {
	case quiet:
		logger.SetLevel(logrus.ErrorLevel)
	case verbose >= 2:
		logger.SetLevel(logrus.DebugLevel)
	case verbose == 1:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}
