package discovery

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitColonList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"/mnt/disk1:/mnt/disk2:/mnt/disk3", []string{"/mnt/disk1", "/mnt/disk2", "/mnt/disk3"}},
		{"/mnt/disk1", []string{"/mnt/disk1"}},
		{" /mnt/disk1 : /mnt/disk2 ", []string{"/mnt/disk1", "/mnt/disk2"}},
		{"", nil},
		{"::", nil},
	}
	for _, c := range cases {
		got := splitColonList(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("splitColonList(%q) = %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("splitColonList(%q) = %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestParseProcMountsFindsMatchingFuseMergerfsEntry(t *testing.T) {
	content := strings.Join([]string{
		"sysfs /sys sysfs rw 0 0",
		"/mnt/disk1:/mnt/disk2:/mnt/disk3 /mnt/pool fuse.mergerfs rw,relatime 0 0",
		"tmpfs /tmp tmpfs rw 0 0",
	}, "\n") + "\n"

	members, err := parseProcMounts(strings.NewReader(content), "/mnt/pool")
	if err != nil {
		t.Fatalf("parseProcMounts returned error: %v", err)
	}
	want := []string{"/mnt/disk1", "/mnt/disk2", "/mnt/disk3"}
	if len(members) != len(want) {
		t.Fatalf("parseProcMounts = %v, want %v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("parseProcMounts = %v, want %v", members, want)
		}
	}
}

func TestParseProcMountsNoMatch(t *testing.T) {
	content := "sysfs /sys sysfs rw 0 0\n"
	members, err := parseProcMounts(strings.NewReader(content), "/mnt/pool")
	if err != nil {
		t.Fatalf("parseProcMounts returned error: %v", err)
	}
	if members != nil {
		t.Fatalf("parseProcMounts = %v, want nil", members)
	}
}

func TestParseProcMountsSingleSourceNoColon(t *testing.T) {
	content := "/dev/sda1 /mnt/pool fuse.mergerfs rw 0 0\n"
	members, err := parseProcMounts(strings.NewReader(content), "/mnt/pool")
	if err != nil {
		t.Fatalf("parseProcMounts returned error: %v", err)
	}
	if len(members) != 1 || members[0] != "/dev/sda1" {
		t.Fatalf("parseProcMounts = %v, want [/dev/sda1]", members)
	}
}

func TestSubpathComputationRelativeToMount(t *testing.T) {
	// Discover's subpath logic is a thin wrapper over filepath.Rel; the
	// discovery strategies themselves need a live mergerfs mount or
	// /proc/mounts content (covered above), so this exercises the same
	// computation Discover performs once members are resolved.
	rel, err := filepath.Rel("/mnt/pool", "/mnt/pool/movies/show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rel != "movies/show" {
		t.Fatalf("subpath = %q, want %q", rel, "movies/show")
	}
}
