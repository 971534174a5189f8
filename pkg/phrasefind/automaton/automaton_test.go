package automaton

import (
	"bytes"
	"testing"
)

func buildOrFail(t *testing.T, patterns [][]uint32) *Automaton {
	t.Helper()
	b := NewBuilder()
	for _, p := range patterns {
		if _, err := b.AddPattern(p); err != nil {
			t.Fatalf("AddPattern(%v): %v", p, err)
		}
	}
	a, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return a
}

func TestOverlappingMatches(t *testing.T) {
	// Mirrors S3 from spec §8: "machine learning" (id 0 here) and
	// "machine learning algorithms" (id 1) both end inside the same stream.
	a := buildOrFail(t, [][]uint32{
		{10, 11},     // machine learning
		{10, 11, 12}, // machine learning algorithms
	})

	hits := a.Match([]uint32{10, 11, 12})

	var sawShort, sawLong bool
	for _, h := range hits {
		if h.PatternIndex == 0 && h.End == 2 {
			sawShort = true
		}
		if h.PatternIndex == 1 && h.End == 3 {
			sawLong = true
		}
	}
	if !sawShort {
		t.Errorf("expected the shorter pattern to be reported, got %+v", hits)
	}
	if !sawLong {
		t.Errorf("expected the longer pattern to be reported, got %+v", hits)
	}
}

func TestNoMatchOnUnknownToken(t *testing.T) {
	// Mirrors S5: an unknown-token gap (encoded as ID 0) breaks a would-be
	// match.
	a := buildOrFail(t, [][]uint32{{100, 101}})
	hits := a.Match([]uint32{100, 0, 101})
	if len(hits) != 0 {
		t.Errorf("expected no hits across an unknown-token gap, got %+v", hits)
	}
}

func TestDuplicatePatternIsFatal(t *testing.T) {
	b := NewBuilder()
	if _, err := b.AddPattern([]uint32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddPattern([]uint32{1, 2, 3}); err != ErrDuplicatePattern {
		t.Errorf("expected ErrDuplicatePattern, got %v", err)
	}
}

func TestEmptyPatternSetIsFatal(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Build(); err != ErrEmptyPatternSet {
		t.Errorf("expected ErrEmptyPatternSet, got %v", err)
	}
}

func TestPatternIndexIsInsertionOrder(t *testing.T) {
	b := NewBuilder()
	idx0, _ := b.AddPattern([]uint32{5})
	idx1, _ := b.AddPattern([]uint32{6})
	idx2, _ := b.AddPattern([]uint32{5, 6})
	if idx0 != 0 || idx1 != 1 || idx2 != 2 {
		t.Errorf("expected insertion-order indices 0,1,2 got %d,%d,%d", idx0, idx1, idx2)
	}
}

func TestOverlapBetweenDisjointPatterns(t *testing.T) {
	a := buildOrFail(t, [][]uint32{
		{1, 2},
		{2, 3},
	})
	hits := a.Match([]uint32{1, 2, 3})
	if len(hits) != 2 {
		t.Fatalf("expected 2 overlapping hits, got %+v", hits)
	}
	if hits[0].End >= hits[1].End {
		t.Errorf("expected hits in ascending end order, got %+v", hits)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	a := buildOrFail(t, [][]uint32{
		{1, 2},
		{2, 3, 4},
		{9},
	})

	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if loaded.NumPatterns() != a.NumPatterns() {
		t.Fatalf("pattern count mismatch: got %d want %d", loaded.NumPatterns(), a.NumPatterns())
	}

	hits := loaded.Match([]uint32{1, 2, 3, 4})
	if len(hits) != 2 {
		t.Errorf("expected 2 hits after round trip, got %+v", hits)
	}
}

func TestCorruptMagicRejected(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte("not-a-valid-automaton-file")))
	if err == nil {
		t.Error("expected an error for a corrupt automaton file")
	}
}
