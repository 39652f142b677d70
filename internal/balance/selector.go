// Package balance implements the rebalancing control loop: scoring
// candidate files against how much moving them would close a source
// drive's gap to the pool average, and the top-level state machine
// that drives transfers until the pool is balanced.
package balance

import "mergerfs-balance/internal/walker"

// FileSelector samples candidate files from a walker cursor and picks
// the one that best closes the gap between a source drive's usage and
// the pool average, without reading more of the cursor than necessary.
type FileSelector struct {
	// SampleSize is how many filter-passing entries to draw before
	// choosing. Values <= 1 fall back to first-fit: the first entry
	// that fits destFree is chosen immediately.
	SampleSize int
}

// Pick draws up to SampleSize entries from cursor, returns the one
// that best fits destFree scored against bytesToMove, and pushes every
// other sampled entry back onto cursor in its original order.
func (s FileSelector) Pick(cursor walker.Cursor, bytesToMove int64, destFree int64) (walker.Entry, bool) {
	if s.SampleSize <= 1 {
		return s.firstFit(cursor, destFree)
	}

	var sampled []walker.Entry
	for len(sampled) < s.SampleSize {
		e, ok := cursor.Next()
		if !ok {
			break
		}
		sampled = append(sampled, e)
	}

	bestIdx := -1
	bestScore := -1.0
	for i, e := range sampled {
		if e.Size >= destFree {
			continue
		}
		score := scoreCandidate(e.Size, bytesToMove)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx == -1 {
		cursor.Prepend(sampled)
		return walker.Entry{}, false
	}

	chosen := sampled[bestIdx]
	rest := make([]walker.Entry, 0, len(sampled)-1)
	rest = append(rest, sampled[:bestIdx]...)
	rest = append(rest, sampled[bestIdx+1:]...)
	cursor.Prepend(rest)

	return chosen, true
}

func (s FileSelector) firstFit(cursor walker.Cursor, destFree int64) (walker.Entry, bool) {
	var skipped []walker.Entry
	for {
		e, ok := cursor.Next()
		if !ok {
			cursor.Prepend(skipped)
			return walker.Entry{}, false
		}
		if e.Size < destFree {
			cursor.Prepend(skipped)
			return e, true
		}
		skipped = append(skipped, e)
	}
}

// scoreCandidate implements spec.md's "how much does it close the gap"
// heuristic: 1.0 for an exact fit, decaying toward 0 the further
// fileSize is from bytesToMove in either direction.
func scoreCandidate(fileSize, bytesToMove int64) float64 {
	if bytesToMove <= 0 {
		return 1.0
	}
	if fileSize <= 0 {
		return 0.0
	}
	if fileSize <= bytesToMove {
		return float64(fileSize) / float64(bytesToMove)
	}
	return float64(bytesToMove) / float64(fileSize)
}
