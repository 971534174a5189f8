// Package scorer implements stage two of the pipeline: salience scoring of
// mined n-grams against a background distribution (spec §4.2).
package scorer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/cognicore/phrasefind/pkg/phrasefind/internalerr"
	"github.com/cognicore/phrasefind/pkg/phrasefind/miner"
)

// Method selects the salience formula (spec §4.2).
type Method string

const (
	MethodRatio Method = "ratio"
	MethodPMI   Method = "pmi"
	MethodTFIDF Method = "tfidf"
)

// Config controls scoring thresholds and phrase-ID assignment.
type Config struct {
	Method           Method  `yaml:"method"`
	MinSalience      float64 `yaml:"minSalience"`
	MinDomainCount   uint32  `yaml:"minDomainCount"`
	AssignPhraseIDs  bool    `yaml:"assignPhraseIds"`
	StartingPhraseID uint32  `yaml:"startingPhraseId"`
}

// DefaultStartingPhraseID is the configured base from which phrase IDs are
// assigned when the config omits one (spec §3, "default 1000").
const DefaultStartingPhraseID = 1000

// Validate applies the config's defaults and rejects unknown methods.
func (c *Config) Validate() error {
	switch c.Method {
	case "":
		c.Method = MethodRatio
	case MethodRatio, MethodPMI, MethodTFIDF:
	default:
		return fmt.Errorf("%w: unknown scoring method %q", internalerr.ErrInvalidConfig, c.Method)
	}
	if c.AssignPhraseIDs && c.StartingPhraseID == 0 {
		c.StartingPhraseID = DefaultStartingPhraseID
	}
	return nil
}

// ScoredPhrase is a domain n-gram after salience scoring, the record the
// scorer writes (spec §6, "Scored phrase format").
type ScoredPhrase struct {
	Tokens          []string `json:"tokens"`
	Salience        float32  `json:"salience"`
	DomainCount     uint32   `json:"domain_count"`
	BackgroundCount uint32   `json:"background_count"`
	PhraseID        uint32   `json:"phrase_id"`
}

// Stats are the run's summary counters (spec §4.2).
type Stats struct {
	DomainPhrases       int64
	BackgroundPhrases   int64
	AfterDomainFilter   int64
	AfterSalienceFilter int64
}

// LoadTable reads a {tokens, count} JSONL file (spec §6, "Candidate phrase
// format") in full; used for the domain table and, by default, the
// background table. A SQLite-backed alternative for large background tables
// lives in pkg/phrasefind/store/sqlite.
func LoadTable(path string) ([]miner.Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []miner.Candidate
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c miner.Candidate
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("%s line %d: malformed json: %w", path, lineNum, err)
		}
		out = append(out, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// BackgroundSource abstracts the background frequency table so the scorer
// can read it from a flat file or, for tables too large to hold in memory,
// from a persisted store (see sqlite.Store in pkg/phrasefind/store/sqlite).
type BackgroundSource interface {
	// Lookup returns the background count for a token sequence and whether
	// it was present at all.
	Lookup(tokens []string) (count uint32, ok bool)
	// Total returns the sum of counts across every phrase in the table.
	Total() uint64
	// Count returns the number of distinct phrases in the table.
	Count() int64
}

// memoryBackground is the default BackgroundSource, built from a fully
// loaded slice.
type memoryBackground struct {
	byKey map[string]uint32
	total uint64
}

// NewMemoryBackground indexes a background table for repeated lookups.
func NewMemoryBackground(rows []miner.Candidate) BackgroundSource {
	b := &memoryBackground{byKey: make(map[string]uint32, len(rows))}
	for _, r := range rows {
		b.byKey[strings.Join(r.Tokens, "\x1f")] = r.Count
		b.total += uint64(r.Count)
	}
	return b
}

func (b *memoryBackground) Lookup(tokens []string) (uint32, bool) {
	c, ok := b.byKey[strings.Join(tokens, "\x1f")]
	return c, ok
}

func (b *memoryBackground) Total() uint64 { return b.total }
func (b *memoryBackground) Count() int64  { return int64(len(b.byKey)) }

// Score computes salience for every domain phrase against bg, applies the
// domain-count and salience filters in order, and assigns dense phrase IDs
// if configured (spec §4.2).
func Score(domain []miner.Candidate, bg BackgroundSource, cfg Config) ([]ScoredPhrase, Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, err
	}

	totalDomain := uint64(0)
	for _, d := range domain {
		totalDomain += uint64(d.Count)
	}
	totalBackground := bg.Total()

	stats := Stats{
		DomainPhrases:     int64(len(domain)),
		BackgroundPhrases: bg.Count(),
	}

	var survivors []ScoredPhrase
	for _, d := range domain {
		if d.Count < cfg.MinDomainCount {
			continue
		}
		stats.AfterDomainFilter++

		bgCount, found := bg.Lookup(d.Tokens)
		salience := salienceFor(cfg.Method, d.Count, bgCount, found, totalDomain, totalBackground)

		if salience < cfg.MinSalience {
			continue
		}
		stats.AfterSalienceFilter++

		survivors = append(survivors, ScoredPhrase{
			Tokens:          d.Tokens,
			Salience:        float32(salience),
			DomainCount:     d.Count,
			BackgroundCount: bgCount,
		})
	}

	if cfg.AssignPhraseIDs {
		sort.Slice(survivors, func(i, j int) bool {
			if survivors[i].Salience != survivors[j].Salience {
				return survivors[i].Salience > survivors[j].Salience
			}
			return strings.Join(survivors[i].Tokens, " ") < strings.Join(survivors[j].Tokens, " ")
		})
		for i := range survivors {
			survivors[i].PhraseID = cfg.StartingPhraseID + uint32(i)
		}
	}

	return survivors, stats, nil
}

// salienceFor dispatches to the configured scoring formula (spec §4.2).
func salienceFor(method Method, domainCount, bgCount uint32, bgFound bool, totalDomain, totalBackground uint64) float64 {
	switch method {
	case MethodPMI:
		return pmiScore(domainCount, bgCount, bgFound, totalDomain, totalBackground)
	case MethodTFIDF:
		return tfidfScore(domainCount, bgCount, totalDomain, totalBackground)
	default: // ratio
		return ratioScore(domainCount, bgCount)
	}
}

// ratioScore: s = domain_count / (background_count + 1).
func ratioScore(domainCount, bgCount uint32) float64 {
	return float64(domainCount) / (float64(bgCount) + 1)
}

// pmiScore: s = log2(P(w|domain) / P(w|background)); absent-from-background
// phrases are smoothed with background_count = 0.5 (spec §4.2).
func pmiScore(domainCount, bgCount uint32, bgFound bool, totalDomain, totalBackground uint64) float64 {
	if totalDomain == 0 || totalBackground == 0 {
		return 0
	}
	pDomain := float64(domainCount) / float64(totalDomain)

	bg := float64(bgCount)
	if !bgFound {
		bg = 0.5
	}
	pBackground := bg / float64(totalBackground)
	if pBackground == 0 {
		return 0
	}
	return math.Log2(pDomain / pBackground)
}

// tfidfScore: s = (domain_count / total_domain) * log((1+N_docs)/(1+df)),
// approximating document frequency with background_count and N_docs with
// total_background, as documented in spec §4.2/§9 (the source's
// approximation, not standard TF-IDF — preserved verbatim rather than
// "fixed").
func tfidfScore(domainCount, bgCount uint32, totalDomain, totalBackground uint64) float64 {
	if totalDomain == 0 {
		return 0
	}
	tf := float64(domainCount) / float64(totalDomain)
	idf := math.Log((1 + float64(totalBackground)) / (1 + float64(bgCount)))
	return tf * idf
}

// PrintStats writes the stage's standard-error statistics block in the exact
// text form spec §4.2 defines.
func PrintStats(w interface{ Write([]byte) (int, error) }, s Stats) {
	fmt.Fprintf(w, "Domain phrases: %d\n", s.DomainPhrases)
	fmt.Fprintf(w, "Background phrases: %d\n", s.BackgroundPhrases)
	fmt.Fprintf(w, "After domain filter: %d\n", s.AfterDomainFilter)
	fmt.Fprintf(w, "After salience filter: %d\n", s.AfterSalienceFilter)
}
