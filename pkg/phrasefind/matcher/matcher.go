// Package matcher loads a compiled artifact set and matches token streams
// against it under a configurable overlap-resolution policy (spec §4.4).
//
// A Handle is the explicit service object spec §9 asks for in place of a
// process-wide global: callers construct one, Load artifacts into it, and
// pass it to every match call. Reload swaps an atomic.Pointer so concurrent
// readers never observe a torn artifact set (spec §4.4 "Loading", §5).
package matcher

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/phrasefind/pkg/phrasefind/artifact"
	"github.com/cognicore/phrasefind/pkg/phrasefind/automaton"
	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
	"github.com/cognicore/phrasefind/pkg/phrasefind/vocab"
)

// Policy selects the overlap-resolution rule applied to raw automaton hits
// (spec §4.4).
type Policy string

const (
	LeftmostLongest Policy = "leftmost_longest"
	LeftmostFirst   Policy = "leftmost_first"
	SalienceMax     Policy = "salience_max"
	All             Policy = "all" // Tagger-only: bypasses resolution entirely.
)

// encodeCacheSize bounds the matcher's token-string to token-ID cache
// (spec SPEC_FULL §4.4, "Bounded encode cache").
const encodeCacheSize = 8192

// latencySamples bounds the rolling latency window used for p50/p95/p99
// estimates (spec §4.4, "Observability").
const latencySamples = 1024

// latencySampleRate keeps the sampling overhead sub-percent under high QPS.
const latencySampleRate = 0.005

// Result is one resolved span (spec §4.4, "Result record").
type Result struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	PhraseID uint32  `json:"phrase_id"`
	Salience float32 `json:"salience"`
	Count    uint32  `json:"count"`
	N        int     `json:"n"`
}

// artifactState is one immutable, fully-loaded artifact generation. Reload
// replaces the Handle's pointer to one of these; nothing in it is ever
// mutated after construction, so concurrent readers need no lock.
type artifactState struct {
	automaton   *automaton.Automaton
	payloads    []artifact.Payload
	vocab       *vocab.Vocab
	manifest    artifact.Manifest
	generation  uint64
	encodeCache *lru.Cache[string, uint32]
}

// Handle is the explicit, thread-safe matcher service object.
type Handle struct {
	state   atomic.Pointer[artifactState]
	gen     atomic.Uint64
	loadsMu sync.Mutex // serializes concurrent Load calls; readers never block on this

	hitsTotal atomic.Uint64
	loadedAt  atomic.Int64 // unix millis

	latMu      sync.Mutex
	latencies  []float64 // microseconds, ring buffer
	latencyPos int
}

// New creates an unloaded Handle. Match calls fail with ErrNotLoaded until
// Load succeeds.
func New() *Handle {
	return &Handle{}
}

// Load reads the four artifact files from dir (spec §6, "Persisted state
// layout: one output directory per build") and atomically replaces the
// Handle's active artifact set.
func (h *Handle) Load(dir string) error {
	return h.LoadPaths(
		filepath.Join(dir, "automaton.daac"),
		filepath.Join(dir, "payloads.bin"),
		filepath.Join(dir, "manifest.json"),
		filepath.Join(dir, "vocab.json"),
	)
}

// LoadPaths is Load with explicit per-file paths (spec §6, "Tagger config:
// paths to the four artifact files").
func (h *Handle) LoadPaths(automatonPath, payloadsPath, manifestPath, vocabPath string) error {
	h.loadsMu.Lock()
	defer h.loadsMu.Unlock()

	manifest, err := artifact.ReadManifest(manifestPath)
	if err != nil {
		return err
	}

	f, err := os.Open(automatonPath)
	if err != nil {
		return fmt.Errorf("open automaton: %w", err)
	}
	defer f.Close()
	auto, err := automaton.ReadFrom(f)
	if err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrArtifactMismatch, err)
	}

	payloads, err := artifact.ReadPayloads(payloadsPath)
	if err != nil {
		return err
	}

	vb, err := vocab.LoadFile(vocabPath)
	if err != nil {
		return err
	}

	if auto.NumPatterns() != manifest.NumPatterns {
		return fmt.Errorf("%w: automaton has %d patterns, manifest says %d",
			internalerr.ErrArtifactMismatch, auto.NumPatterns(), manifest.NumPatterns)
	}
	if len(payloads) != manifest.NumPatterns {
		return fmt.Errorf("%w: payload table has %d records, manifest says %d",
			internalerr.ErrArtifactMismatch, len(payloads), manifest.NumPatterns)
	}

	cache, err := lru.New[string, uint32](encodeCacheSize)
	if err != nil {
		return fmt.Errorf("create encode cache: %w", err)
	}

	state := &artifactState{
		automaton:   auto,
		payloads:    payloads,
		vocab:       vb,
		manifest:    manifest,
		generation:  h.gen.Add(1),
		encodeCache: cache,
	}
	h.state.Store(state)
	h.loadedAt.Store(time.Now().UnixMilli())
	return nil
}

// current returns the active artifact state, or an error if none has loaded
// yet (spec §4.4/§7, "Match before load").
func (h *Handle) current() (*artifactState, error) {
	s := h.state.Load()
	if s == nil {
		return nil, internalerr.ErrNotLoaded
	}
	return s, nil
}

// EncodeTokens lowercase-normalizes and looks up each string in the
// vocabulary, emitting UnknownID for misses (spec §4.4, "encode_tokens").
func (h *Handle) EncodeTokens(tokens []string) ([]uint32, error) {
	s, err := h.current()
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, len(tokens))
	for i, t := range tokens {
		key := strings.ToLower(t)
		if id, ok := s.encodeCache.Get(key); ok {
			ids[i] = id
			continue
		}
		id, _ := s.vocab.ID(key) // ID already lowercases; key is already lower
		s.encodeCache.Add(key, id)
		ids[i] = id
	}
	return ids, nil
}

// Match drives the automaton over ids and resolves overlapping hits under
// policy, returning at most max spans (max<=0 means unbounded).
func (h *Handle) Match(ids []uint32, policy Policy, max int) ([]Result, error) {
	s, err := h.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rawHits := s.automaton.Match(ids)
	h.hitsTotal.Add(uint64(len(rawHits)))

	candidates := make([]candidate, 0, len(rawHits))
	for _, hit := range rawHits {
		if int(hit.PatternIndex) >= len(s.payloads) {
			continue // defensive: cannot happen against a validated artifact set
		}
		p := s.payloads[hit.PatternIndex]
		n := int(p.N)
		candidates = append(candidates, candidate{
			start:        hit.End - n,
			end:          hit.End,
			patternIndex: hit.PatternIndex,
			payload:      p,
		})
	}

	var resolved []candidate
	switch policy {
	case LeftmostLongest:
		resolved = resolveLeftmostLongest(candidates)
	case LeftmostFirst:
		resolved = resolveLeftmostFirst(candidates)
	case SalienceMax:
		resolved = resolveSalienceMax(candidates)
	case All:
		resolved = candidates
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", internalerr.ErrInvalidConfig, policy)
	}

	if max > 0 && len(resolved) > max {
		resolved = resolved[:max]
	}

	results := make([]Result, len(resolved))
	for i, c := range resolved {
		results[i] = Result{
			Start:    c.start,
			End:      c.end,
			PhraseID: c.payload.PhraseID,
			Salience: c.payload.Salience,
			Count:    c.payload.Count,
			N:        int(c.payload.N),
		}
	}

	h.sampleLatency(time.Since(start))
	return results, nil
}

// MatchTextTokens is the composition of EncodeTokens and Match
// (spec §4.4, "match_text_tokens").
func (h *Handle) MatchTextTokens(tokens []string, policy Policy, max int) ([]Result, error) {
	ids, err := h.EncodeTokens(tokens)
	if err != nil {
		return nil, err
	}
	return h.Match(ids, policy, max)
}

// Healthcheck succeeds only if an artifact is loaded and reports a non-zero
// pattern count (spec §4.4, "healthcheck").
func (h *Handle) Healthcheck() error {
	s, err := h.current()
	if err != nil {
		return err
	}
	if s.automaton.NumPatterns() == 0 {
		return fmt.Errorf("%w: automaton reports zero patterns", internalerr.ErrArtifactMismatch)
	}
	return nil
}

// Stats is the matcher's observability snapshot (spec §4.4, "Observability").
type Stats struct {
	HitsTotal     uint64
	LoadedAtMS    int64
	NumPatterns   int
	HeapMB        float64
	Version       string
	P50, P95, P99 float64
}

// Stats returns a point-in-time observability snapshot. It is safe to call
// before Load (NumPatterns and Version will simply be zero-valued).
func (h *Handle) Stats() Stats {
	st := Stats{
		HitsTotal:  h.hitsTotal.Load(),
		LoadedAtMS: h.loadedAt.Load(),
	}
	if s := h.state.Load(); s != nil {
		st.NumPatterns = s.automaton.NumPatterns()
		st.Version = s.manifest.Version
		st.HeapMB = approximateHeapMB(s)
	}
	st.P50, st.P95, st.P99 = h.latencyPercentiles()
	return st
}

// approximateHeapMB estimates the resident size of the payload table, the
// dominant allocation in an artifact set (spec §4.4, "heap_mb (approximate)").
// The automaton's double-array and vocabulary are comparatively small and
// are not accounted for separately.
func approximateHeapMB(s *artifactState) float64 {
	payloadBytes := float64(len(s.payloads) * artifact.PayloadRecordSize)
	return payloadBytes / (1024 * 1024)
}

// sampleLatency records a match's duration at a sub-percent rate to avoid
// contending a shared lock on the hot path (spec §4.4, "sampled at
// sub-percent rate to avoid contention").
func (h *Handle) sampleLatency(d time.Duration) {
	if rand.Float64() > latencySampleRate {
		return
	}
	h.latMu.Lock()
	defer h.latMu.Unlock()
	if h.latencies == nil {
		h.latencies = make([]float64, 0, latencySamples)
	}
	us := float64(d.Microseconds())
	if len(h.latencies) < latencySamples {
		h.latencies = append(h.latencies, us)
	} else {
		h.latencies[h.latencyPos] = us
		h.latencyPos = (h.latencyPos + 1) % latencySamples
	}
}

func (h *Handle) latencyPercentiles() (p50, p95, p99 float64) {
	h.latMu.Lock()
	defer h.latMu.Unlock()
	if len(h.latencies) == 0 {
		return 0, 0, 0
	}
	sorted := append([]float64(nil), h.latencies...)
	sort.Float64s(sorted)
	pick := func(pct float64) float64 {
		idx := int(pct * float64(len(sorted)-1))
		return sorted[idx]
	}
	return pick(0.50), pick(0.95), pick(0.99)
}
