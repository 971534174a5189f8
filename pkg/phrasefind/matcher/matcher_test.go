package matcher

import (
	"errors"
	"testing"

	"github.com/cognicore/phrasefind/pkg/phrasefind/artifact"
	"github.com/cognicore/phrasefind/pkg/phrasefind/builder"
	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
	"github.com/cognicore/phrasefind/pkg/phrasefind/scorer"
)

func buildSampleArtifacts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	phrases := []scorer.ScoredPhrase{
		{Tokens: []string{"machine", "learning"}, Salience: 10, DomainCount: 100, PhraseID: 1000},
		{Tokens: []string{"machine", "learning", "algorithms"}, Salience: 20, DomainCount: 50, PhraseID: 1001},
		{Tokens: []string{"deep", "learning"}, Salience: 5, DomainCount: 30, PhraseID: 1002},
	}
	if _, err := builder.Build(phrases, builder.Config{Version: "v1", Tokenizer: "test"}, dir); err != nil {
		t.Fatalf("builder.Build: %v", err)
	}
	return dir
}

func TestMatchBeforeLoadReturnsErrNotLoaded(t *testing.T) {
	h := New()
	if _, err := h.Match([]uint32{1, 2}, LeftmostLongest, 0); !errors.Is(err, internalerr.ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded, got %v", err)
	}
	if err := h.Healthcheck(); !errors.Is(err, internalerr.ErrNotLoaded) {
		t.Errorf("expected ErrNotLoaded from Healthcheck, got %v", err)
	}
}

func TestLoadRejectsMissingArtifacts(t *testing.T) {
	h := New()
	if err := h.Load(t.TempDir()); err == nil {
		t.Error("expected an error loading from an empty directory")
	}
}

func TestEndToEndOverlapLeftmostLongest(t *testing.T) {
	dir := buildSampleArtifacts(t)
	h := New()
	if err := h.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := h.Healthcheck(); err != nil {
		t.Fatalf("Healthcheck: %v", err)
	}

	results, err := h.MatchTextTokens([]string{"machine", "learning", "algorithms"}, LeftmostLongest, 0)
	if err != nil {
		t.Fatalf("MatchTextTokens: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 resolved span, got %+v", results)
	}
	if results[0].Start != 0 || results[0].End != 3 || results[0].PhraseID != 1001 {
		t.Errorf("expected the 3-token phrase to win, got %+v", results[0])
	}
}

func TestEndToEndUnknownTokenBreaksMatch(t *testing.T) {
	dir := buildSampleArtifacts(t)
	h := New()
	if err := h.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	results, err := h.MatchTextTokens([]string{"machine", "zzzznotaword", "learning"}, LeftmostLongest, 0)
	if err != nil {
		t.Fatalf("MatchTextTokens: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no spans across an unknown-token gap, got %+v", results)
	}
}

func TestEndToEndMaxSpansTruncates(t *testing.T) {
	dir := buildSampleArtifacts(t)
	h := New()
	if err := h.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	results, err := h.MatchTextTokens(
		[]string{"deep", "learning", "machine", "learning"},
		All, 1,
	)
	if err != nil {
		t.Fatalf("MatchTextTokens: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected max_spans=1 to truncate output, got %+v", results)
	}
}

func TestReloadSwapsArtifactSetAtomically(t *testing.T) {
	dir := buildSampleArtifacts(t)
	h := New()
	if err := h.Load(dir); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	before := h.Stats().NumPatterns

	dir2 := t.TempDir()
	phrases := []scorer.ScoredPhrase{
		{Tokens: []string{"quantum", "computing"}, Salience: 1, DomainCount: 1, PhraseID: 2000},
	}
	if _, err := builder.Build(phrases, builder.Config{Version: "v2"}, dir2); err != nil {
		t.Fatalf("builder.Build: %v", err)
	}
	if err := h.Load(dir2); err != nil {
		t.Fatalf("reload: %v", err)
	}
	after := h.Stats().NumPatterns
	if before == after {
		t.Fatalf("expected pattern count to change across reload: before=%d after=%d", before, after)
	}

	results, err := h.MatchTextTokens([]string{"machine", "learning"}, LeftmostLongest, 0)
	if err != nil {
		t.Fatalf("MatchTextTokens: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected the old artifact set's phrases to be gone after reload, got %+v", results)
	}
}

func TestResolveLeftmostLongestPrefersLongerSpan(t *testing.T) {
	cands := []candidate{
		{start: 0, end: 2, patternIndex: 0, payload: artifact.Payload{Salience: 1}},
		{start: 0, end: 3, patternIndex: 1, payload: artifact.Payload{Salience: 1}},
	}
	out := resolveLeftmostLongest(cands)
	if len(out) != 1 || out[0].end != 3 {
		t.Errorf("expected the longer span to win, got %+v", out)
	}
}

func TestResolveLeftmostFirstPrefersEarlierPattern(t *testing.T) {
	cands := []candidate{
		{start: 0, end: 3, patternIndex: 5, payload: artifact.Payload{Salience: 1}},
		{start: 0, end: 2, patternIndex: 1, payload: artifact.Payload{Salience: 1}},
	}
	out := resolveLeftmostFirst(cands)
	if len(out) != 1 || out[0].patternIndex != 1 {
		t.Errorf("expected the smaller pattern index to win, got %+v", out)
	}
}

func TestResolveSalienceMaxPicksHighestSalienceInCluster(t *testing.T) {
	cands := []candidate{
		{start: 0, end: 2, patternIndex: 0, payload: artifact.Payload{Salience: 5}},
		{start: 1, end: 3, patternIndex: 1, payload: artifact.Payload{Salience: 50}},
		{start: 5, end: 6, patternIndex: 2, payload: artifact.Payload{Salience: 1}}, // disjoint cluster
	}
	out := resolveSalienceMax(cands)
	if len(out) != 2 {
		t.Fatalf("expected 2 spans (one per cluster), got %+v", out)
	}
	if out[0].patternIndex != 1 {
		t.Errorf("expected the higher-salience candidate to win its cluster, got %+v", out[0])
	}
	if out[1].patternIndex != 2 {
		t.Errorf("expected the disjoint candidate to survive untouched, got %+v", out[1])
	}
}

func TestResolveSalienceMaxRecoversNonOverlappingRemainder(t *testing.T) {
	// Three mutually-chained overlaps: [0,2) and [1,3) conflict; picking the
	// higher-salience [0,2) leaves [2,4) free since it doesn't overlap it.
	cands := []candidate{
		{start: 0, end: 2, patternIndex: 0, payload: artifact.Payload{Salience: 100}},
		{start: 1, end: 3, patternIndex: 1, payload: artifact.Payload{Salience: 10}},
		{start: 2, end: 4, patternIndex: 2, payload: artifact.Payload{Salience: 50}},
	}
	out := resolveSalienceMax(cands)
	if len(out) != 2 {
		t.Fatalf("expected 2 surviving spans, got %+v", out)
	}
	if out[0].patternIndex != 0 || out[1].patternIndex != 2 {
		t.Errorf("expected patterns 0 and 2 to survive, got %+v", out)
	}
}
