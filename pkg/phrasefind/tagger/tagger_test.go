package tagger

import (
	"context"
	"strings"
	"testing"

	"github.com/cognicore/phrasefind/pkg/phrasefind/builder"
	"github.com/cognicore/phrasefind/pkg/phrasefind/corpus"
	"github.com/cognicore/phrasefind/pkg/phrasefind/matcher"
	"github.com/cognicore/phrasefind/pkg/phrasefind/scorer"
)

func loadedHandle(t *testing.T) *matcher.Handle {
	t.Helper()
	dir := t.TempDir()
	phrases := []scorer.ScoredPhrase{
		{Tokens: []string{"machine", "learning"}, Salience: 10, DomainCount: 100, PhraseID: 1000},
	}
	if _, err := builder.Build(phrases, builder.Config{Version: "v1"}, dir); err != nil {
		t.Fatalf("builder.Build: %v", err)
	}
	h := matcher.New()
	if err := h.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h
}

// TestTaggerEndToEndS6 mirrors S6: 3 documents, one containing the phrase,
// one not, one containing it twice.
func TestTaggerEndToEndS6(t *testing.T) {
	h := loadedHandle(t)
	tg := New(h, Config{Policy: matcher.LeftmostLongest, Label: "phrase"})

	corpusJSONL := strings.Join([]string{
		`{"doc_id":"d1","tokens":["machine","learning","is","fun"]}`,
		`{"doc_id":"d2","tokens":["deep","learning","only"]}`,
		`{"doc_id":"d3","tokens":["machine","learning","machine","learning"]}`,
	}, "\n") + "\n"

	var out strings.Builder
	stats, err := tg.Run(strings.NewReader(corpusJSONL), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Documents != 3 {
		t.Errorf("documents = %d, want 3", stats.Documents)
	}
	if stats.DocsWithSpans != 2 {
		t.Errorf("docs_with_spans = %d, want 2", stats.DocsWithSpans)
	}
	if stats.TotalSpans != 3 {
		t.Errorf("total_spans = %d, want 3", stats.TotalSpans)
	}
	if stats.AvgSpansPerDoc != 1.0 {
		t.Errorf("avg_spans_per_doc = %v, want 1.0", stats.AvgSpansPerDoc)
	}
}

func TestTaggerLabelsEverySpan(t *testing.T) {
	h := loadedHandle(t)
	tg := New(h, Config{Policy: matcher.LeftmostLongest, Label: "domain_phrase"})

	tagged, err := tg.TagDocument(corpus.Doc{DocID: "d1", Tokens: []string{"machine", "learning"}})
	if err != nil {
		t.Fatalf("TagDocument: %v", err)
	}
	if len(tagged.Spans) != 1 {
		t.Fatalf("expected 1 span, got %+v", tagged.Spans)
	}
	if tagged.Spans[0].Label != "domain_phrase" {
		t.Errorf("expected label to be stamped on the span, got %q", tagged.Spans[0].Label)
	}
}

func TestRunPoolPreservesInputOrder(t *testing.T) {
	h := loadedHandle(t)
	tg := New(h, Config{Policy: matcher.LeftmostLongest, Label: "p"})

	corpusJSONL := strings.Join([]string{
		`{"doc_id":"a","tokens":["machine","learning"]}`,
		`{"doc_id":"b","tokens":["no","match","here"]}`,
		`{"doc_id":"c","tokens":["machine","learning","machine","learning"]}`,
	}, "\n") + "\n"

	var out strings.Builder
	stats, err := tg.RunPool(context.Background(), strings.NewReader(corpusJSONL), &out, 4)
	if err != nil {
		t.Fatalf("RunPool: %v", err)
	}
	if stats.Documents != 3 {
		t.Errorf("documents = %d, want 3", stats.Documents)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"doc_id":"a"`) ||
		!strings.Contains(lines[1], `"doc_id":"b"`) ||
		!strings.Contains(lines[2], `"doc_id":"c"`) {
		t.Errorf("expected output in input order, got %v", lines)
	}
}
