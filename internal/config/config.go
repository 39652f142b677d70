// Package config resolves the settings a balance run needs from three
// sources, in increasing priority: built-in defaults, an optional YAML
// file, and CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default values used both to populate a fresh Config and to detect
// whether a CLI flag was left at its default value (and therefore should
// not override a file-provided one).
const (
	DefaultPercentage     = 2.0
	DefaultErrorThreshold = 5
)

// Config is the fully-resolved set of options a balance run needs.
type Config struct {
	MountPoint string

	Percentage      float64
	IncludePatterns []string
	ExcludePatterns []string
	MinSize         int64 // 0 = unbounded
	MaxSize         int64 // 0 = unbounded

	Parallel     int // 0 = auto
	SourceDrives []string
	DestDrives   []string

	DryRun  bool
	Verbose int
	Quiet   bool

	ConfigFile     string
	AbortOnError   bool
	ErrorThreshold int
	ErrorLog       string
}

// Default returns a Config populated with the built-in defaults, with
// MountPoint left empty — callers fill it in from the positional CLI
// argument.
func Default() Config {
	return Config{
		Percentage:     DefaultPercentage,
		ErrorThreshold: DefaultErrorThreshold,
	}
}

// Validate checks the configuration for internal consistency and
// filesystem preconditions, returning every problem found rather than
// stopping at the first.
func (c Config) Validate() []error {
	var errs []error

	if c.MountPoint == "" {
		errs = append(errs, fmt.Errorf("mount point is required"))
	} else if !isDir(c.MountPoint) {
		errs = append(errs, fmt.Errorf("mount point does not exist: %s", c.MountPoint))
	}

	if c.Percentage <= 0 {
		errs = append(errs, fmt.Errorf("percentage must be positive: %v", c.Percentage))
	}

	if c.Parallel < 0 {
		errs = append(errs, fmt.Errorf("parallel must be 0 (auto) or positive: %d", c.Parallel))
	}

	if c.MinSize > 0 && c.MaxSize > 0 && c.MinSize > c.MaxSize {
		errs = append(errs, fmt.Errorf("min size (%d) cannot be greater than max size (%d)", c.MinSize, c.MaxSize))
	}

	for _, d := range c.SourceDrives {
		if !isDir(d) {
			errs = append(errs, fmt.Errorf("source drive does not exist: %s", d))
		}
	}
	for _, d := range c.DestDrives {
		if !isDir(d) {
			errs = append(errs, fmt.Errorf("destination drive does not exist: %s", d))
		}
	}

	if c.ConfigFile != "" {
		if info, err := os.Stat(c.ConfigFile); err != nil || info.IsDir() {
			errs = append(errs, fmt.Errorf("config file does not exist: %s", c.ConfigFile))
		}
	}

	return errs
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DefaultSearchPaths returns the config file locations checked when
// --config is not given, in priority order: the current directory, the
// user's config directory (XDG_CONFIG_HOME, falling back to
// ~/.config), then /etc.
func DefaultSearchPaths() []string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}

	paths := []string{
		"mergerfs-balance.yaml",
		"mergerfs-balance.yml",
		".mergerfs-balance.yaml",
		".mergerfs-balance.yml",
	}
	if configHome != "" {
		paths = append(paths,
			filepath.Join(configHome, "mergerfs-balance", "config.yaml"),
			filepath.Join(configHome, "mergerfs-balance", "config.yml"),
		)
	}
	return append(paths,
		"/etc/mergerfs-balance.yaml",
		"/etc/mergerfs-balance.yml",
		"/etc/mergerfs-balance/config.yaml",
		"/etc/mergerfs-balance/config.yml",
	)
}

// FindConfigFile returns the first existing path from
// DefaultSearchPaths, or false if none exist.
func FindConfigFile() (string, bool) {
	for _, p := range DefaultSearchPaths() {
		if isFile(p) {
			return p, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
