package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mergerfs-balance/internal/sizeparse"
)

// stringList unmarshals either a single scalar string or a YAML
// sequence into a []string, lifting a lone string to a singleton list.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = []string{s}
		return nil
	}
	var items []string
	if err := value.Decode(&items); err != nil {
		return err
	}
	*l = items
	return nil
}

// sizeValue unmarshals either a bare integer byte count or a SIZE
// string like "100M" into a byte count.
type sizeValue int64

func (s *sizeValue) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*s = sizeValue(v)
	case int64:
		*s = sizeValue(v)
	case float64:
		*s = sizeValue(int64(v))
	case string:
		n, err := sizeparse.ParseSize(v)
		if err != nil {
			return err
		}
		*s = sizeValue(n)
	default:
		return fmt.Errorf("invalid size value: %v", raw)
	}
	return nil
}

// fileConfig mirrors the config file's keys. Every field is a pointer
// or a type with a distinguishable zero value so LoadFile can tell
// "unset" apart from "set to the same value as the default".
type fileConfig struct {
	MountPoint string `yaml:"mount_point"`

	Percentage *float64   `yaml:"percentage"`
	Include    stringList `yaml:"include"`
	Exclude    stringList `yaml:"exclude"`
	MinSize    *sizeValue `yaml:"min_size"`
	MaxSize    *sizeValue `yaml:"max_size"`

	Parallel     *int       `yaml:"parallel"`
	SourceDrives stringList `yaml:"source_drives"`
	DestDrives   stringList `yaml:"dest_drives"`

	DryRun  *bool `yaml:"dry_run"`
	Verbose *int  `yaml:"verbose"`
	Quiet   *bool `yaml:"quiet"`

	AbortOnError   *bool   `yaml:"abort_on_error"`
	ErrorThreshold *int    `yaml:"error_threshold"`
	ErrorLog       *string `yaml:"error_log"`
}

// LoadFile reads and parses a YAML config file into a Config. Fields
// absent from the file are set to the package defaults so the result
// can be merged with CLI flags the same way regardless of what the
// file actually specified.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.MountPoint == "" {
		return Config{}, fmt.Errorf("config file must specify mount_point: %s", path)
	}

	cfg := Default()
	cfg.MountPoint = fc.MountPoint
	cfg.IncludePatterns = []string(fc.Include)
	cfg.ExcludePatterns = []string(fc.Exclude)
	cfg.SourceDrives = []string(fc.SourceDrives)
	cfg.DestDrives = []string(fc.DestDrives)

	if fc.Percentage != nil {
		cfg.Percentage = *fc.Percentage
	}
	if fc.MinSize != nil {
		cfg.MinSize = int64(*fc.MinSize)
	}
	if fc.MaxSize != nil {
		cfg.MaxSize = int64(*fc.MaxSize)
	}
	if fc.Parallel != nil {
		cfg.Parallel = *fc.Parallel
	}
	if fc.DryRun != nil {
		cfg.DryRun = *fc.DryRun
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.Quiet != nil {
		cfg.Quiet = *fc.Quiet
	}
	if fc.AbortOnError != nil {
		cfg.AbortOnError = *fc.AbortOnError
	}
	if fc.ErrorThreshold != nil {
		cfg.ErrorThreshold = *fc.ErrorThreshold
	}
	if fc.ErrorLog != nil {
		cfg.ErrorLog = *fc.ErrorLog
	}

	return cfg, nil
}

// Merge combines a file-loaded config with CLI-provided values. CLI
// values win whenever they differ from their defaults; include/exclude
// lists are concatenated file-first, then CLI. MountPoint from the CLI
// always wins when present, matching the positional argument's role as
// the one required value the CLI must supply directly.
func Merge(file, cli Config) Config {
	merged := file

	if cli.MountPoint != "" {
		merged.MountPoint = cli.MountPoint
	}
	merged.ConfigFile = cli.ConfigFile

	if cli.Percentage != DefaultPercentage {
		merged.Percentage = cli.Percentage
	}

	merged.IncludePatterns = append(append([]string{}, file.IncludePatterns...), cli.IncludePatterns...)
	merged.ExcludePatterns = append(append([]string{}, file.ExcludePatterns...), cli.ExcludePatterns...)

	if cli.MinSize != 0 {
		merged.MinSize = cli.MinSize
	}
	if cli.MaxSize != 0 {
		merged.MaxSize = cli.MaxSize
	}

	if cli.Parallel != 0 {
		merged.Parallel = cli.Parallel
	}
	if len(cli.SourceDrives) > 0 {
		merged.SourceDrives = cli.SourceDrives
	}
	if len(cli.DestDrives) > 0 {
		merged.DestDrives = cli.DestDrives
	}

	if cli.DryRun {
		merged.DryRun = true
	}
	if cli.Verbose > 0 {
		merged.Verbose = cli.Verbose
	}
	if cli.Quiet {
		merged.Quiet = true
	}

	if cli.AbortOnError {
		merged.AbortOnError = true
	}
	if cli.ErrorThreshold != DefaultErrorThreshold {
		merged.ErrorThreshold = cli.ErrorThreshold
	}
	if cli.ErrorLog != "" {
		merged.ErrorLog = cli.ErrorLog
	}

	return merged
}

// Resolve loads cfgFile (if non-empty) and merges it under cli,
// otherwise returns cli unchanged. It does not consult
// DefaultSearchPaths; callers that want the implicit search do that
// themselves before calling Resolve.
func Resolve(cli Config, cfgFile string) (Config, error) {
	if cfgFile == "" {
		return cli, nil
	}
	file, err := LoadFile(cfgFile)
	if err != nil {
		return Config{}, err
	}
	cli.ConfigFile = cfgFile
	return Merge(file, cli), nil
}
