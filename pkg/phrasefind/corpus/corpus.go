// Package corpus streams the line-delimited JSON document format shared by
// the miner and the tagger (see spec §6, "Corpus format").
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Doc is one line of the corpus format: an ordered token sequence plus an
// opaque identifier. DocID is required for the tagger and optional for the
// miner.
type Doc struct {
	DocID  string   `json:"doc_id,omitempty"`
	Tokens []string `json:"tokens"`
}

// VisitFunc is called once per document in stream order. Returning an error
// stops the stream and propagates the error to the caller of Stream.
type VisitFunc func(d Doc) error

// Stream reads newline-delimited JSON documents from path, calling fn for
// each one in order. A malformed line or I/O error aborts the entire run, in
// keeping with the pipeline's no-partial-output contract.
func Stream(path string, fn VisitFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()
	return StreamReader(f, fn)
}

// StreamReader is Stream over an already-open reader, used by tests and by
// callers wiring in a non-file source (e.g. a Kafka consumer, see
// pipeline.KafkaDocStream).
func StreamReader(r io.Reader, fn VisitFunc) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var d Doc
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return fmt.Errorf("corpus line %d: malformed json: %w", lineNum, err)
		}
		if err := fn(d); err != nil {
			return fmt.Errorf("corpus line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	return nil
}

// Empty reports whether a document has no tokens, the condition the miner
// must skip per spec §4.1 ("Skip documents whose token array is empty or
// absent").
func (d Doc) Empty() bool {
	return len(d.Tokens) == 0
}
