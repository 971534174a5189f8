// Package miner implements the streaming n-gram frequency miner: stage one
// of the pipeline (spec §4.1). It maintains an in-memory token-sequence to
// count table and is intentionally single-threaded — parallelism across
// stages comes from file-boundary pipelining, not from concurrency inside a
// stage (spec §5).
package miner

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
)

// Config controls the mining window and frequency floor.
type Config struct {
	MinN     int    `yaml:"minN"`
	MaxN     int    `yaml:"maxN"`
	MinCount uint32 `yaml:"minCount"`
}

// Validate checks the config against the [2,5] window the spec's data model
// requires for n-grams.
func (c Config) Validate() error {
	if c.MinN < 2 || c.MaxN > 5 || c.MinN > c.MaxN {
		return fmt.Errorf("%w: min_n/max_n must satisfy 2 <= min_n <= max_n <= 5, got %d/%d",
			internalerr.ErrInvalidConfig, c.MinN, c.MaxN)
	}
	return nil
}

// Candidate is a counted n-gram surviving the min_count floor, the record
// the miner writes (spec §6, "Candidate phrase format").
type Candidate struct {
	Tokens []string `json:"tokens"`
	Count  uint32   `json:"count"`
}

// Stats are the run's summary counters, both returned to callers and printed
// to stderr in the exact text form the upstream driver parses (spec §4.1).
type Stats struct {
	TotalDocuments int64
	TotalTokens    int64
	UniqueNGrams   int64
	AfterMinCount  int64
}

// sep is the internal join separator used to key the count table. It must
// never collide with a real token; tokens are validated non-empty by the
// tokenizer contract upstream, and this byte is not a valid token character
// boundary produced by any tokenizer in this corpus.
const sep = "\x1f"

// Counter accumulates n-gram counts across an unbounded document stream.
type Counter struct {
	cfg    Config
	counts map[string]uint64 // joined token key -> count
	docs   int64
	tokens int64
}

// New creates a Counter for the given config. Callers should call
// cfg.Validate first.
func New(cfg Config) *Counter {
	return &Counter{cfg: cfg, counts: make(map[string]uint64)}
}

// AddDocument lowercases and windows a single document's tokens, incrementing
// the count of every n-gram of length in [min_n, max_n]. Empty or absent
// token arrays are skipped per spec §4.1.
func (c *Counter) AddDocument(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	c.docs++
	c.tokens += int64(len(tokens))

	lower := make([]string, len(tokens))
	for i, t := range tokens {
		lower[i] = strings.ToLower(t)
	}

	for i := range lower {
		maxK := c.cfg.MaxN
		if remaining := len(lower) - i; maxK > remaining {
			maxK = remaining
		}
		for k := c.cfg.MinN; k <= maxK; k++ {
			key := strings.Join(lower[i:i+k], sep)
			next := c.counts[key] + 1
			if next > math.MaxUint32 {
				return fmt.Errorf("ngram %q: %w", strings.Join(lower[i:i+k], " "), internalerr.ErrCountOverflow)
			}
			c.counts[key] = next
		}
	}
	return nil
}

// MineFile streams a corpus file through a freshly-constructed Counter and
// returns the filtered candidate list plus run statistics.
func MineFile(path string, cfg Config) ([]Candidate, Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, err
	}
	c := New(cfg)
	err := corpus.Stream(path, func(d corpus.Doc) error {
		return c.AddDocument(d.Tokens)
	})
	if err != nil {
		return nil, Stats{}, err
	}
	cands, stats := c.Result()
	return cands, stats, nil
}

// Result filters the accumulated counts by min_count and returns them
// alongside final statistics. Output ordering is unspecified by the spec;
// this implementation sorts by token sequence for deterministic test
// fixtures and reproducible diffs between runs on identical input.
func (c *Counter) Result() ([]Candidate, Stats) {
	out := make([]Candidate, 0, len(c.counts))
	for key, count := range c.counts {
		if count < uint64(c.cfg.MinCount) {
			continue
		}
		out = append(out, Candidate{
			Tokens: strings.Split(key, sep),
			Count:  uint32(count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i].Tokens, sep) < strings.Join(out[j].Tokens, sep)
	})

	stats := Stats{
		TotalDocuments: c.docs,
		TotalTokens:    c.tokens,
		UniqueNGrams:   int64(len(c.counts)),
		AfterMinCount:  int64(len(out)),
	}
	return out, stats
}

// PrintStats writes the stage's standard-error statistics block in the exact
// text form spec §4.1 defines for the upstream driver to parse.
func PrintStats(w interface{ Write([]byte) (int, error) }, cfg Config, s Stats) {
	fmt.Fprintf(w, "Total documents: %d\n", s.TotalDocuments)
	fmt.Fprintf(w, "Total tokens: %d\n", s.TotalTokens)
	fmt.Fprintf(w, "Unique n-grams: %d\n", s.UniqueNGrams)
	fmt.Fprintf(w, "After min_count=%d: %d\n", cfg.MinCount, s.AfterMinCount)
}
