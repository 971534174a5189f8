// Package tagger implements the batch driver on top of matcher.Handle: it
// streams a corpus, tags every document, and aggregates summary statistics
// (spec §4.4, "Tagger").
package tagger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
)

// Span is one resolved match, with the tagger's configured label attached
// (spec §4.4, "plus label in tagger outputs").
type Span struct {
	Start    int     `json:"start"`
	End      int     `json:"end"`
	PhraseID uint32  `json:"phrase_id"`
	Salience float32 `json:"salience"`
	Count    uint32  `json:"count"`
	N        int     `json:"n"`
	Label    string  `json:"label,omitempty"`
}

// TaggedDocument is one line of the tagged-corpus output format (spec §6,
// "Tagged-corpus format").
type TaggedDocument struct {
	DocID  string   `json:"doc_id"`
	Tokens []string `json:"tokens"`
	Spans  []Span   `json:"spans"`
}

// Config is the tagger's per-run configuration (spec §6, "Tagger config").
type Config struct {
	Policy   matcher.Policy `yaml:"policy"`
	MaxSpans int            `yaml:"maxSpans"`
	Label    string         `yaml:"label"`
}

// Stats is the tagger's completion summary (spec §4.4, "Tagger aggregation").
type Stats struct {
	Documents      int
	TotalSpans     int
	DocsWithSpans  int
	AvgSpansPerDoc float64
}

// Tagger drives documents through a loaded matcher.Handle.
type Tagger struct {
	handle *matcher.Handle
	cfg    Config

	// Export, when set, is called with every successfully tagged document
	// after it is written to the tagged-corpus output. It backs optional
	// downstream sinks such as pipeline.SpanSink's Postgres export
	// (SPEC_FULL §4.4, "purely additive, never required for the file
	// contract"); an export failure aborts the run the same way a write
	// failure to the primary output would.
	Export func(TaggedDocument) error
}

// New builds a Tagger over an already-loaded handle.
func New(handle *matcher.Handle, cfg Config) *Tagger {
	return &Tagger{handle: handle, cfg: cfg}
}

// TagDocument encodes and matches a single document's tokens, labeling every
// resulting span with the tagger's configured label. Spans never straddle
// this document's boundary because each call starts the automaton fresh
// (spec §4, "Spans emitted by the Matcher never straddle document
// boundaries").
func (t *Tagger) TagDocument(d corpus.Doc) (TaggedDocument, error) {
	results, err := t.handle.MatchTextTokens(d.Tokens, t.cfg.Policy, t.cfg.MaxSpans)
	if err != nil {
		return TaggedDocument{}, fmt.Errorf("doc %s: %w", d.DocID, err)
	}
	spans := make([]Span, len(results))
	for i, r := range results {
		spans[i] = Span{
			Start:    r.Start,
			End:      r.End,
			PhraseID: r.PhraseID,
			Salience: r.Salience,
			Count:    r.Count,
			N:        r.N,
			Label:    t.cfg.Label,
		}
	}
	return TaggedDocument{DocID: d.DocID, Tokens: d.Tokens, Spans: spans}, nil
}

// Run streams documents from r, writes one tagged-corpus JSON line per
// document to w, and returns the run's aggregate statistics (spec §4.4,
// "Tagger... aggregates documents, total_spans, docs_with_spans,
// avg_spans_per_doc and reports them on completion"). Documents are
// processed single-threaded, so input order is preserved by construction.
func (t *Tagger) Run(r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	err := corpus.StreamReader(r, func(d corpus.Doc) error {
		tagged, err := t.TagDocument(d)
		if err != nil {
			return err
		}
		stats.Documents++
		stats.TotalSpans += len(tagged.Spans)
		if len(tagged.Spans) > 0 {
			stats.DocsWithSpans++
		}
		if err := enc.Encode(tagged); err != nil {
			return err
		}
		if t.Export != nil {
			return t.Export(tagged)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, fmt.Errorf("flush tagged corpus: %w", err)
	}

	if stats.Documents > 0 {
		stats.AvgSpansPerDoc = float64(stats.TotalSpans) / float64(stats.Documents)
	}
	return stats, nil
}

// RunFile is Run over file paths, for the standalone CLI driver.
func RunFile(t *Tagger, inPath, outPath string) (Stats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open corpus %s: %w", inPath, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Stats{}, fmt.Errorf("create tagged corpus %s: %w", outPath, err)
	}
	defer out.Close()

	return t.Run(in, out)
}

// PrintStats writes the tagger's standard-error statistics block, matching
// the field names spec §4.4 names for the run's aggregation.
func PrintStats(w io.Writer, s Stats) {
	fmt.Fprintf(w, "documents=%d\n", s.Documents)
	fmt.Fprintf(w, "docs_with_spans=%d\n", s.DocsWithSpans)
	fmt.Fprintf(w, "total_spans=%d\n", s.TotalSpans)
	fmt.Fprintf(w, "avg_spans_per_doc=%.1f\n", s.AvgSpansPerDoc)
}
