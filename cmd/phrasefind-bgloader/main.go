// Command phrasefind-bgloader populates the scorer's optional SQLite
// background-count store from a candidate table too large to load
// wholesale into memory, streaming it in bounded-size chunks instead of
// going through scorer.LoadTable's whole-file read (SPEC_FULL §4.2,
// "optional background-count store").
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/phrasefind/pkg/phrasefind/miner"
	"github.com/cognicore/phrasefind/pkg/phrasefind/store/sqlite"
)

func main() {
	candidatesPath := flag.String("candidates", "", "Background candidate table (line-delimited JSON, required)")
	sqlitePath := flag.String("sqlite-path", "", "SQLite database path to populate (required)")
	chunkSize := flag.Int("chunk-size", 10000, "Number of candidate rows loaded per transaction")
	flag.Parse()

	if *candidatesPath == "" {
		log.Fatal("--candidates required")
	}
	if *sqlitePath == "" {
		log.Fatal("--sqlite-path required")
	}
	if *chunkSize <= 0 {
		log.Fatal("--chunk-size must be positive")
	}

	ctx := context.Background()
	store, err := sqlite.Open(ctx, *sqlitePath)
	if err != nil {
		log.Fatal("Failed to open background store:", err)
	}
	defer store.Close()

	rows, chunks, err := loadChunked(ctx, store, *candidatesPath, *chunkSize)
	if err != nil {
		log.Fatal("Failed to load background candidates:", err)
	}

	log.Printf("Loaded %s background candidate rows from %s into %s across %d chunk(s)",
		humanize.Comma(int64(rows)), *candidatesPath, *sqlitePath, chunks)
	log.Printf("Background store now reports %s distinct phrases, %s total occurrences",
		humanize.Comma(store.Count()), humanize.Comma(int64(store.Total())))
}

// loadChunked streams candidatesPath line by line, calling store.LoadCandidates
// once per chunkSize-row batch so the process's resident memory stays bounded
// regardless of the candidate table's total size.
func loadChunked(ctx context.Context, store *sqlite.Store, path string, chunkSize int) (rows, chunks int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	batch := make([]miner.Candidate, 0, chunkSize)
	lineNum := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.LoadCandidates(ctx, batch); err != nil {
			return err
		}
		rows += len(batch)
		chunks++
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c miner.Candidate
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return 0, 0, fmt.Errorf("%s line %d: malformed json: %w", path, lineNum, err)
		}
		batch = append(batch, c)
		if len(batch) >= chunkSize {
			if err := flush(); err != nil {
				return 0, 0, fmt.Errorf("load chunk ending at line %d: %w", lineNum, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", path, err)
	}
	if err := flush(); err != nil {
		return 0, 0, fmt.Errorf("load final chunk: %w", err)
	}

	return rows, chunks, nil
}
