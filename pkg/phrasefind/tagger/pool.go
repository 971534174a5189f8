package tagger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
)

// indexedResult tags a completed match with its position in the input
// stream so a bounded worker pool's out-of-order completions can be
// reordered before they are written out or folded into Stats (SPEC_FULL
// §4.4, "Tagger stream source").
type indexedResult struct {
	index  int
	tagged TaggedDocument
	err    error
}

// RunPool is Run with matching fanned out across a bounded worker pool. It
// preserves the single input stream's document order in both the emitted
// tagged corpus and the aggregated statistics — matching never reorders
// results across workers (spec §5, "the Tagger itself never reorders a
// single input stream's statistics"). The entire corpus is buffered in
// memory to make that ordering guarantee trivial to enforce; callers with a
// corpus too large for that should use the single-threaded Run instead.
func (t *Tagger) RunPool(ctx context.Context, r io.Reader, w io.Writer, workers int) (Stats, error) {
	if workers < 1 {
		workers = 1
	}

	var docs []corpus.Doc
	if err := corpus.StreamReader(r, func(d corpus.Doc) error {
		docs = append(docs, d)
		return nil
	}); err != nil {
		return Stats{}, err
	}

	results := make([]indexedResult, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)

docLoop:
	for i, d := range docs {
		i, d := i, d
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break docLoop
		}
		g.Go(func() error {
			defer func() { <-sem }()
			tagged, err := t.TagDocument(d)
			results[i] = indexedResult{index: i, tagged: tagged, err: err}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, res := range results {
		stats.Documents++
		stats.TotalSpans += len(res.tagged.Spans)
		if len(res.tagged.Spans) > 0 {
			stats.DocsWithSpans++
		}
		if err := enc.Encode(res.tagged); err != nil {
			return Stats{}, fmt.Errorf("write tagged document %d: %w", res.index, err)
		}
		if t.Export != nil {
			if err := t.Export(res.tagged); err != nil {
				return Stats{}, fmt.Errorf("export tagged document %d: %w", res.index, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return Stats{}, fmt.Errorf("flush tagged corpus: %w", err)
	}

	if stats.Documents > 0 {
		stats.AvgSpansPerDoc = float64(stats.TotalSpans) / float64(stats.Documents)
	}
	return stats, nil
}
