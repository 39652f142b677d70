package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll(%s): %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func TestWalkSkipsDotfilesAndDotdirsAndAppliesFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "movie.mkv"), 100)
	writeFile(t, filepath.Join(root, ".hidden.mkv"), 100)
	writeFile(t, filepath.Join(root, ".hiddendir", "nested.mkv"), 100)
	writeFile(t, filepath.Join(root, "subdir", "episode.mkv"), 100)
	writeFile(t, filepath.Join(root, "notes.txt"), 100)

	filter, err := NewFilter([]string{"*.mkv"}, nil, 0, 0)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	c := Walk(root, filter)
	var got []string
	for {
		e, ok := c.Next()
		if !ok {
			break
		}
		got = append(got, e.Path)
	}
	sort.Strings(got)

	want := []string{
		filepath.Join(root, "movie.mkv"),
		filepath.Join(root, "subdir", "episode.mkv"),
	}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("Walk found %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Walk found %v, want %v", got, want)
		}
	}
}

func TestWalkToleratesStatErrorsBySkipping(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.mkv"), 10)

	broken := filepath.Join(root, "broken.mkv")
	if err := os.Symlink(filepath.Join(root, "does-not-exist"), broken); err != nil {
		t.Skipf("symlink unsupported in this environment: %v", err)
	}

	filter, _ := NewFilter([]string{"*.mkv"}, nil, 0, 0)
	c := Walk(root, filter)

	var got []string
	for {
		e, ok := c.Next()
		if !ok {
			break
		}
		got = append(got, filepath.Base(e.Path))
	}
	if len(got) != 1 || got[0] != "ok.mkv" {
		t.Fatalf("Walk = %v, want only ok.mkv (broken.mkv should be silently skipped)", got)
	}
}

func TestCursorPrependServedBeforeSource(t *testing.T) {
	c := &cursor{source: []Entry{{Path: "a", Size: 1}, {Path: "b", Size: 2}}}

	first, ok := c.Next()
	if !ok || first.Path != "a" {
		t.Fatalf("expected first entry 'a', got %v", first)
	}

	c.Prepend([]Entry{{Path: "pushed1", Size: 10}, {Path: "pushed2", Size: 20}})

	var order []string
	for {
		e, ok := c.Next()
		if !ok {
			break
		}
		order = append(order, e.Path)
	}

	want := []string{"pushed1", "pushed2", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestCursorExhaustsCleanly(t *testing.T) {
	c := &cursor{source: []Entry{{Path: "only", Size: 1}}}
	if _, ok := c.Next(); !ok {
		t.Fatalf("expected one entry")
	}
	if _, ok := c.Next(); ok {
		t.Fatalf("expected exhausted cursor to return false")
	}
}
