package pool

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Manager tracks every member drive in the pool and answers the queries
// the balance coordinator needs: averages, over/under-full sets, and the
// best destination for a transfer.
type Manager struct {
	drives map[string]*Drive

	sourcePaths []string
	destPaths   []string
}

// NewManager builds a Manager from the full set of discovered member
// paths, restricted to the configured source/dest lists (glob patterns
// are expanded against the filesystem; an empty list means "all members").
func NewManager(members []string, sourcePatterns, destPatterns []string) (*Manager, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("pool has no member drives")
	}

	sourcePaths, err := restrictToPatterns(members, sourcePatterns)
	if err != nil {
		return nil, err
	}
	destPaths, err := restrictToPatterns(members, destPatterns)
	if err != nil {
		return nil, err
	}

	drives := make(map[string]*Drive, len(members))
	for _, m := range members {
		stats, err := readDriveStats(m)
		if err != nil {
			return nil, fmt.Errorf("reading stats for %s: %w", m, err)
		}
		drives[m] = NewDrive(m, stats)
	}

	return &Manager{drives: drives, sourcePaths: sourcePaths, destPaths: destPaths}, nil
}

// NewManagerForTest builds a Manager directly from pre-built drives,
// skipping discovery and statfs. Every drive is both a source and a
// destination. Exported for other packages' tests that need a Manager
// wired to synthetic DriveStats rather than a real mount.
func NewManagerForTest(drives map[string]*Drive) *Manager {
	paths := make([]string, 0, len(drives))
	for p := range drives {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &Manager{drives: drives, sourcePaths: paths, destPaths: paths}
}

// restrictToPatterns expands glob patterns in patterns and intersects the
// result with members. An empty patterns list means "everything".
func restrictToPatterns(members, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		out := make([]string, len(members))
		copy(out, members)
		return out, nil
	}

	expanded, err := expandGlobPaths(patterns)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(expanded))
	for _, p := range expanded {
		allowed[p] = true
	}

	var out []string
	for _, m := range members {
		if allowed[m] {
			out = append(out, m)
		}
	}
	return out, nil
}

// expandGlobPaths expands shell-style glob patterns (e.g. /mnt/disk*)
// against the filesystem. Every match is kept, whatever its file type;
// entries without glob metacharacters are passed through unchanged.
func expandGlobPaths(paths []string) ([]string, error) {
	var expanded []string
	for _, p := range paths {
		if !containsGlobMeta(p) {
			expanded = append(expanded, p)
			continue
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
		}
		sort.Strings(matches)
		expanded = append(expanded, matches...)
	}
	return expanded, nil
}

func containsGlobMeta(p string) bool {
	for _, r := range p {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}
	return false
}

// AllDrives returns every drive known to the manager.
func (m *Manager) AllDrives() []*Drive {
	out := make([]*Drive, 0, len(m.drives))
	for _, d := range m.drives {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// SourceDrives returns the drives eligible as transfer sources.
func (m *Manager) SourceDrives() []*Drive {
	return m.drivesFor(m.sourcePaths)
}

// DestDrives returns the drives eligible as transfer destinations.
func (m *Manager) DestDrives() []*Drive {
	return m.drivesFor(m.destPaths)
}

func (m *Manager) drivesFor(paths []string) []*Drive {
	out := make([]*Drive, 0, len(paths))
	for _, p := range paths {
		if d, ok := m.drives[p]; ok {
			out = append(out, d)
		}
	}
	return out
}

// RefreshAllStats re-reads capacity/used/free for every member drive. No
// ordering guarantee is made between drives.
func (m *Manager) RefreshAllStats() error {
	for _, d := range m.drives {
		if err := d.Refresh(); err != nil {
			return fmt.Errorf("refreshing %s: %w", d.Path, err)
		}
	}
	return nil
}

// AverageUsage returns the capacity-weighted average usage percentage
// across all member drives: sum(used)/sum(total)*100. Never the
// arithmetic mean of per-drive percentages.
func (m *Manager) AverageUsage() float64 {
	var totalUsed, totalCapacity uint64
	for _, d := range m.drives {
		s := d.Stats()
		totalUsed += s.UsedBytes
		totalCapacity += s.TotalBytes
	}
	if totalCapacity == 0 {
		return 0
	}
	return float64(totalUsed) / float64(totalCapacity) * 100
}

// UsageRange returns max(usage_percent) - min(usage_percent) across all
// member drives.
func (m *Manager) UsageRange() float64 {
	if len(m.drives) == 0 {
		return 0
	}
	first := true
	var lo, hi float64
	for _, d := range m.drives {
		u := d.Stats().UsagePercent()
		if first {
			lo, hi = u, u
			first = false
			continue
		}
		if u < lo {
			lo = u
		}
		if u > hi {
			hi = u
		}
	}
	return hi - lo
}

// IsBalanced reports whether UsageRange() is within the given tolerance.
func (m *Manager) IsBalanced(percentage float64) bool {
	return m.UsageRange() <= percentage
}

// Overfull returns source-set drives more than percentage/2 above
// average, sorted by usage percent descending.
func (m *Manager) Overfull(percentage float64) []*Drive {
	avg := m.AverageUsage()
	threshold := avg + percentage/2
	var out []*Drive
	for _, d := range m.SourceDrives() {
		if d.Stats().UsagePercent() > threshold {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Stats().UsagePercent() > out[j].Stats().UsagePercent()
	})
	return out
}

// Underfull returns dest-set drives more than percentage/2 below
// average, sorted by free bytes descending.
func (m *Manager) Underfull(percentage float64) []*Drive {
	avg := m.AverageUsage()
	threshold := avg - percentage/2
	var out []*Drive
	for _, d := range m.DestDrives() {
		if d.Stats().UsagePercent() < threshold {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Stats().FreeBytes > out[j].Stats().FreeBytes
	})
	return out
}

// BestDestination returns the underfull destination drive with the most
// free space, optionally excluding drives that are currently write-locked.
func (m *Manager) BestDestination(percentage float64, excludeBusy bool) (*Drive, bool) {
	candidates := m.Underfull(percentage)

	var best *Drive
	for _, d := range candidates {
		if excludeBusy && d.WriteLocked() {
			continue
		}
		if best == nil || d.Stats().FreeBytes > best.Stats().FreeBytes {
			best = d
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// AcquireWriteLock tries to lock the drive at path for writing.
func (m *Manager) AcquireWriteLock(path string) bool {
	d, ok := m.drives[path]
	if !ok {
		return false
	}
	return d.TryAcquireWriteLock()
}

// ReleaseWriteLock clears the write lock on the drive at path. Idempotent;
// a no-op if path is unknown.
func (m *Manager) ReleaseWriteLock(path string) {
	if d, ok := m.drives[path]; ok {
		d.ReleaseWriteLock()
	}
}
