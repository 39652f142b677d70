// Package walker produces a filtered sequence of candidate files under
// a member drive, supporting push-back so a selection heuristic can
// sample a few entries, keep the best, and hand the rest back. The
// sequence is not lazy: Walk traverses the whole tree before it
// returns, and the cursor then hands out the collected entries.
package walker

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Entry is one file discovered by a walk: its absolute path and size.
type Entry struct {
	Path string
	Size int64
}

// Cursor yields Entry values one at a time from a finite,
// non-restartable source, with support for pushing entries back onto
// the front of the sequence.
type Cursor interface {
	// Next returns the next entry and true, or a zero Entry and false
	// once the underlying source and any prepend buffer are exhausted.
	Next() (Entry, bool)
	// Prepend puts entries back at the front, to be returned by the
	// next calls to Next() before the underlying source resumes.
	Prepend(entries []Entry)
}

// cursor adapts a finite []Entry source (pre-collected by Walk) with a
// small prepend buffer serviced ahead of it.
type cursor struct {
	prepended []Entry
	source    []Entry
	pos       int
}

func (c *cursor) Next() (Entry, bool) {
	if len(c.prepended) > 0 {
		e := c.prepended[0]
		c.prepended = c.prepended[1:]
		return e, true
	}
	if c.pos >= len(c.source) {
		return Entry{}, false
	}
	e := c.source[c.pos]
	c.pos++
	return e, true
}

func (c *cursor) Prepend(entries []Entry) {
	if len(entries) == 0 {
		return
	}
	c.prepended = append(append([]Entry{}, entries...), c.prepended...)
}

// Walk performs a depth-first, dot-skipping, stat-tolerant traversal of
// root and returns a Cursor over every regular file accepted by filter.
// The traversal runs to completion before Walk returns. Traversal order
// beyond "every entry enumerated once" is unspecified.
func Walk(root string, filter Filter) Cursor {
	var entries []Entry

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return nil
			}
			return nil
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if !filter.Accept(name, info.Size()) {
			return nil
		}
		entries = append(entries, Entry{Path: path, Size: info.Size()})
		return nil
	})

	return &cursor{source: entries}
}
