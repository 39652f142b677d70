package balance

import (
	"testing"

	"mergerfs-balance/internal/walker"
)

type sliceCursor struct {
	prepended []walker.Entry
	source    []walker.Entry
	pos       int
}

func (c *sliceCursor) Next() (walker.Entry, bool) {
	if len(c.prepended) > 0 {
		e := c.prepended[0]
		c.prepended = c.prepended[1:]
		return e, true
	}
	if c.pos >= len(c.source) {
		return walker.Entry{}, false
	}
	e := c.source[c.pos]
	c.pos++
	return e, true
}

func (c *sliceCursor) Prepend(entries []walker.Entry) {
	c.prepended = append(append([]walker.Entry{}, entries...), c.prepended...)
}

func TestFileSelectorPicksBestScoringCandidate(t *testing.T) {
	// scenario 6: bytes_to_move=1000; candidates 100/1000/5000 -> chosen 1000
	cursor := &sliceCursor{source: []walker.Entry{
		{Path: "a", Size: 100},
		{Path: "b", Size: 1000},
		{Path: "c", Size: 5000},
	}}

	sel := FileSelector{SampleSize: 3}
	chosen, ok := sel.Pick(cursor, 1000, 1<<40)
	if !ok {
		t.Fatalf("expected a candidate to be chosen")
	}
	if chosen.Path != "b" || chosen.Size != 1000 {
		t.Fatalf("chosen = %v, want size 1000", chosen)
	}

	var remaining []string
	for {
		e, ok := cursor.Next()
		if !ok {
			break
		}
		remaining = append(remaining, e.Path)
	}
	want := []string{"a", "c"}
	if len(remaining) != len(want) {
		t.Fatalf("remaining = %v, want %v", remaining, want)
	}
	for i := range want {
		if remaining[i] != want[i] {
			t.Fatalf("remaining = %v, want %v (original order preserved)", remaining, want)
		}
	}
}

func TestFileSelectorSkipsCandidatesThatDontFitDestFree(t *testing.T) {
	cursor := &sliceCursor{source: []walker.Entry{
		{Path: "huge", Size: 10_000},
		{Path: "fits", Size: 100},
	}}
	sel := FileSelector{SampleSize: 2}
	chosen, ok := sel.Pick(cursor, 100, 500)
	if !ok || chosen.Path != "fits" {
		t.Fatalf("chosen = %v, ok=%v, want 'fits'", chosen, ok)
	}
}

func TestFileSelectorReturnsFalseWhenNothingFits(t *testing.T) {
	cursor := &sliceCursor{source: []walker.Entry{
		{Path: "huge1", Size: 10_000},
		{Path: "huge2", Size: 20_000},
	}}
	sel := FileSelector{SampleSize: 2}
	_, ok := sel.Pick(cursor, 1000, 500)
	if ok {
		t.Fatalf("expected no candidate to fit destFree")
	}
	// both must be pushed back for the next source's pass
	var remaining int
	for {
		if _, ok := cursor.Next(); !ok {
			break
		}
		remaining++
	}
	if remaining != 2 {
		t.Fatalf("remaining = %d, want 2 (both pushed back)", remaining)
	}
}

func TestFileSelectorFirstFitFallback(t *testing.T) {
	cursor := &sliceCursor{source: []walker.Entry{
		{Path: "too-big", Size: 10_000},
		{Path: "fits", Size: 10},
		{Path: "never-reached", Size: 5},
	}}
	sel := FileSelector{SampleSize: 1}
	chosen, ok := sel.Pick(cursor, 0, 500)
	if !ok || chosen.Path != "fits" {
		t.Fatalf("chosen = %v, ok=%v, want 'fits'", chosen, ok)
	}
	// too-big should have been pushed back ahead of never-reached
	e, ok := cursor.Next()
	if !ok || e.Path != "too-big" {
		t.Fatalf("expected too-big pushed back first, got %v", e)
	}
}

func TestScoreCandidateDegenerateCases(t *testing.T) {
	if got := scoreCandidate(100, 0); got != 1.0 {
		t.Errorf("scoreCandidate(100, 0) = %v, want 1.0", got)
	}
	if got := scoreCandidate(0, 100); got != 0.0 {
		t.Errorf("scoreCandidate(0, 100) = %v, want 0.0", got)
	}
	if got := scoreCandidate(1000, 1000); got != 1.0 {
		t.Errorf("scoreCandidate(1000, 1000) = %v, want 1.0", got)
	}
}
