package walker

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Filter decides whether a basename/size pair should be yielded by a
// walk. Includes take precedence over the "accept everything" default;
// excludes always apply on top of that.
type Filter struct {
	includes []glob.Glob
	excludes []glob.Glob
	minSize  int64
	maxSize  int64 // 0 means unbounded
}

// NewFilter compiles include/exclude basename glob patterns and records
// the size bounds. maxSize of 0 means no upper bound.
func NewFilter(includes, excludes []string, minSize, maxSize int64) (Filter, error) {
	f := Filter{minSize: minSize, maxSize: maxSize}
	for _, p := range includes {
		g, err := glob.Compile(p)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		f.includes = append(f.includes, g)
	}
	for _, p := range excludes {
		g, err := glob.Compile(p)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.excludes = append(f.excludes, g)
	}
	return f, nil
}

// Accept reports whether an entry with the given basename and size
// passes this filter.
func (f Filter) Accept(name string, size int64) bool {
	if len(f.includes) > 0 && !matchesAny(f.includes, name) {
		return false
	}
	if matchesAny(f.excludes, name) {
		return false
	}
	if size < f.minSize {
		return false
	}
	if f.maxSize > 0 && size > f.maxSize {
		return false
	}
	return true
}

func matchesAny(patterns []glob.Glob, name string) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}
