// Package pool models a mergerfs-style pool of member drives: their
// live capacity/usage statistics and per-drive write-exclusion locks.
package pool

import (
	"sync"

	"golang.org/x/sys/unix"
)

// DriveStats is an immutable snapshot of a drive's capacity at the moment
// it was read.
type DriveStats struct {
	Path       string
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
}

// UsagePercent returns used/total*100, or 0 when total is 0.
func (s DriveStats) UsagePercent() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes) * 100
}

// FreePercent returns 100 - UsagePercent().
func (s DriveStats) FreePercent() float64 {
	return 100 - s.UsagePercent()
}

// Drive is one member directory of the pool. WriteLocked acts as a
// mutual-exclusion token serializing writes to this member for
// throughput predictability; it has no bearing on filesystem correctness.
type Drive struct {
	Path string

	mu          sync.Mutex
	stats       DriveStats
	writeLocked bool
}

// NewDrive constructs a Drive with an initial stats snapshot.
func NewDrive(path string, stats DriveStats) *Drive {
	return &Drive{Path: path, stats: stats}
}

// Stats returns the drive's most recently refreshed statistics.
func (d *Drive) Stats() DriveStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Refresh re-reads the drive's capacity statistics from the filesystem.
func (d *Drive) Refresh() error {
	stats, err := readDriveStats(d.Path)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.stats = stats
	d.mu.Unlock()
	return nil
}

// WriteLocked reports whether a transfer currently targets this drive.
func (d *Drive) WriteLocked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLocked
}

// TryAcquireWriteLock atomically sets the write lock if it is currently
// clear, returning true on success.
func (d *Drive) TryAcquireWriteLock() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeLocked {
		return false
	}
	d.writeLocked = true
	return true
}

// ReleaseWriteLock clears the write lock. Idempotent.
func (d *Drive) ReleaseWriteLock() {
	d.mu.Lock()
	d.writeLocked = false
	d.mu.Unlock()
}

// readDriveStats reads capacity/used/free bytes for path via statfs(2).
func readDriveStats(path string) (DriveStats, error) {
	var statfs unix.Statfs_t
	if err := unix.Statfs(path, &statfs); err != nil {
		return DriveStats{}, err
	}

	blockSize := uint64(statfs.Bsize)
	total := statfs.Blocks * blockSize
	free := statfs.Bavail * blockSize
	used := total - statfs.Bfree*blockSize

	return DriveStats{
		Path:       path,
		TotalBytes: total,
		UsedBytes:  used,
		FreeBytes:  free,
	}, nil
}
