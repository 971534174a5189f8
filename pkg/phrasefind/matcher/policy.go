package matcher

import (
	"sort"

	"github.com/cognicore/phrasefind/pkg/phrasefind/artifact"
)

// candidate is a raw hit expanded with its span bounds and payload, the
// common unit every overlap-resolution policy operates over (spec §4.4).
type candidate struct {
	start        int
	end          int
	patternIndex uint32
	payload      artifact.Payload
}

// resolveLeftmostLongest walks candidates left to right by start position;
// when several share a start, the longest span wins. Once a span is chosen,
// any candidate starting before its end is dropped (spec §4.4,
// "leftmost_longest").
func resolveLeftmostLongest(candidates []candidate) []candidate {
	sorted := append([]candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].end > sorted[j].end // longest first within a start
	})

	var out []candidate
	cursor := 0
	lastChosenStart := -1
	for _, c := range sorted {
		if c.start < cursor {
			continue
		}
		if c.start == lastChosenStart {
			continue // already took the longest span at this start
		}
		out = append(out, c)
		cursor = c.end
		lastChosenStart = c.start
	}
	return out
}

// resolveLeftmostFirst walks candidates left to right by start position;
// when several share a start, the one whose pattern was inserted earliest
// (smallest pattern index) wins (spec §4.4, "leftmost_first").
func resolveLeftmostFirst(candidates []candidate) []candidate {
	sorted := append([]candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].patternIndex < sorted[j].patternIndex
	})

	var out []candidate
	cursor := 0
	lastChosenStart := -1
	for _, c := range sorted {
		if c.start < cursor {
			continue
		}
		if c.start == lastChosenStart {
			continue
		}
		out = append(out, c)
		cursor = c.end
		lastChosenStart = c.start
	}
	return out
}

// resolveSalienceMax clusters mutually-overlapping candidates, then within
// each cluster repeatedly picks the highest-salience remaining candidate and
// discards everything it overlaps, until the cluster is exhausted (spec
// §4.4, "salience_max"). Ties break by longer span, then by smaller pattern
// index, for determinism.
func resolveSalienceMax(candidates []candidate) []candidate {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var out []candidate
	clusterEnd := sorted[0].end
	clusterStart := 0
	flush := func(end int) {
		out = append(out, pickBySalience(sorted[clusterStart:end])...)
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].start < clusterEnd {
			if sorted[i].end > clusterEnd {
				clusterEnd = sorted[i].end
			}
			continue
		}
		flush(i)
		clusterStart = i
		clusterEnd = sorted[i].end
	}
	flush(len(sorted))

	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// pickBySalience implements the greedy weighted-interval selection within a
// single overlap cluster: take the best remaining candidate, remove every
// candidate it overlaps, repeat.
func pickBySalience(cluster []candidate) []candidate {
	remaining := append([]candidate(nil), cluster...)
	var chosen []candidate
	for len(remaining) > 0 {
		best := 0
		for i := 1; i < len(remaining); i++ {
			if betterCandidate(remaining[i], remaining[best]) {
				best = i
			}
		}
		winner := remaining[best]
		chosen = append(chosen, winner)

		next := remaining[:0]
		for _, c := range remaining {
			if c.end <= winner.start || c.start >= winner.end {
				next = append(next, c)
			}
		}
		remaining = next
	}
	return chosen
}

// betterCandidate reports whether a should be preferred over b when picking
// the next span in a salience_max cluster: higher salience first, then
// longer span, then smaller (earlier-inserted) pattern index.
func betterCandidate(a, b candidate) bool {
	if a.payload.Salience != b.payload.Salience {
		return a.payload.Salience > b.payload.Salience
	}
	aLen, bLen := a.end-a.start, b.end-b.start
	if aLen != bLen {
		return aLen > bLen
	}
	return a.patternIndex < b.patternIndex
}
