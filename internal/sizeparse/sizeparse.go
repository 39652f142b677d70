// Package sizeparse converts between human-readable byte sizes and raw
// byte counts, using binary (1024-based) multipliers for every unit.
package sizeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

var unitMultipliers = map[string]float64{
	"":    1,
	"B":   1,
	"K":   1024,
	"KB":  1024,
	"KIB": 1024,
	"M":   1024 * 1024,
	"MB":  1024 * 1024,
	"MIB": 1024 * 1024,
	"G":   1024 * 1024 * 1024,
	"GB":  1024 * 1024 * 1024,
	"GIB": 1024 * 1024 * 1024,
	"T":   1024 * 1024 * 1024 * 1024,
	"TB":  1024 * 1024 * 1024 * 1024,
	"TIB": 1024 * 1024 * 1024 * 1024,
	"P":   1024 * 1024 * 1024 * 1024 * 1024,
	"PB":  1024 * 1024 * 1024 * 1024 * 1024,
	"PIB": 1024 * 1024 * 1024 * 1024 * 1024,
}

// ParseSize parses a size string like "100M", "1.5GB", or " 1 TiB " into a
// byte count. Negative numbers and unrecognized units are rejected.
func ParseSize(s string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("empty size string")
	}

	match := sizePattern.FindStringSubmatch(trimmed)
	if match == nil {
		if strings.HasPrefix(trimmed, "-") {
			return 0, fmt.Errorf("negative size not allowed: %s", s)
		}
		return 0, fmt.Errorf("invalid size format: %s", s)
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", s)
	}

	mult, ok := unitMultipliers[match[2]]
	if !ok {
		return 0, fmt.Errorf("unknown size unit: %s", match[2])
	}

	return int64(value * mult), nil
}

// FormatSize renders a byte count with a binary unit suffix, e.g. "100.0MB".
func FormatSize(bytes float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	for _, unit := range units {
		if bytes < 1024.0 && bytes > -1024.0 {
			return fmt.Sprintf("%.1f%s", bytes, unit)
		}
		bytes /= 1024.0
	}
	return fmt.Sprintf("%.1fPB", bytes)
}
