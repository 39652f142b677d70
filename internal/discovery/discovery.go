// Package discovery locates the member drives that back a mergerfs pool
// mount, the way the mount itself resolves them: through its control
// file's extended attributes, falling back to /proc/mounts.
package discovery

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/xattr"
)

const srcmountsAttr = "user.mergerfs.srcmounts"

// Discover resolves the member drive paths for mountPoint and, when
// target is non-empty, the path of target relative to the mount root.
// It tries the mergerfs control file's extended attribute first, then
// falls back to /proc/mounts.
func Discover(mountPoint, target string) (members []string, subpath string, err error) {
	members, err = membersFromXattr(mountPoint)
	if err != nil || len(members) == 0 {
		members, err = membersFromProcMounts(mountPoint)
	}
	if err != nil {
		return nil, "", fmt.Errorf("discovering pool members for %s: %w", mountPoint, err)
	}
	if len(members) == 0 {
		return nil, "", fmt.Errorf("could not discover any member drives for mount point %s", mountPoint)
	}

	sort.Strings(members)

	if target == "" {
		return members, "", nil
	}
	rel, err := filepath.Rel(mountPoint, target)
	if err != nil {
		return nil, "", fmt.Errorf("computing relative path of %s under %s: %w", target, mountPoint, err)
	}
	return members, rel, nil
}

// membersFromXattr reads the srcmounts extended attribute off the
// mount's ".mergerfs" control file, the documented way to query a live
// mergerfs mount for its branch list without shelling out to getfattr.
func membersFromXattr(mountPoint string) ([]string, error) {
	controlPath := filepath.Join(mountPoint, ".mergerfs")
	if _, err := os.Stat(controlPath); err != nil {
		return nil, nil
	}

	raw, err := xattr.Get(controlPath, srcmountsAttr)
	if err != nil {
		return nil, nil
	}
	return splitColonList(string(raw)), nil
}

// membersFromProcMounts parses /proc/mounts for the fuse.mergerfs entry
// whose mountpoint matches mountPoint, reading the branch list back out
// of its source field.
func membersFromProcMounts(mountPoint string) ([]string, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseProcMounts(f, mountPoint)
}

// parseProcMounts scans mounts-file content (the format of /proc/mounts)
// for the fuse.mergerfs entry whose mountpoint matches mountPoint.
func parseProcMounts(r io.Reader, mountPoint string) ([]string, error) {
	cleanMount := filepath.Clean(mountPoint)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		source, mount, fstype := fields[0], fields[1], fields[2]
		if fstype != "fuse.mergerfs" || filepath.Clean(mount) != cleanMount {
			continue
		}
		if members := splitColonList(source); len(members) > 0 {
			return members, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

func splitColonList(s string) []string {
	var out []string
	for _, part := range strings.Split(strings.TrimRight(s, "\x00"), ":") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
