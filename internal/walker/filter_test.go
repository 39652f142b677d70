package walker

import "testing"

func TestFilterIncludeExcludeAndSize(t *testing.T) {
	f, err := NewFilter([]string{"*.mkv", "*.mp4"}, []string{"*sample*"}, 1024, 1024*1024*1024)
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}

	cases := []struct {
		name string
		size int64
		want bool
	}{
		{"movie.mkv", 2048, true},
		{"movie.mp4", 2048, true},
		{"movie.avi", 2048, false},           // not in includes
		{"movie.sample.mkv", 2048, false},    // excluded
		{"tiny.mkv", 100, false},             // below min size
		{"huge.mkv", 1024*1024*1024 + 1, false}, // above max size
	}
	for _, c := range cases {
		if got := f.Accept(c.name, c.size); got != c.want {
			t.Errorf("Accept(%q, %d) = %v, want %v", c.name, c.size, got, c.want)
		}
	}
}

func TestFilterNoIncludesAcceptsEverythingNotExcluded(t *testing.T) {
	f, err := NewFilter(nil, []string{"*.tmp"}, 0, 0)
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}
	if !f.Accept("anything.mkv", 5) {
		t.Errorf("expected anything.mkv to be accepted with no include patterns")
	}
	if f.Accept("scratch.tmp", 5) {
		t.Errorf("expected scratch.tmp to be excluded")
	}
}

func TestFilterUnboundedMaxSize(t *testing.T) {
	f, err := NewFilter(nil, nil, 0, 0)
	if err != nil {
		t.Fatalf("NewFilter failed: %v", err)
	}
	if !f.Accept("huge.bin", 1<<40) {
		t.Errorf("expected maxSize=0 to mean unbounded")
	}
}

func TestFilterInvalidPattern(t *testing.T) {
	if _, err := NewFilter([]string{"["}, nil, 0, 0); err == nil {
		t.Fatalf("expected error for invalid glob pattern")
	}
}
