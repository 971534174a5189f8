package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/cognicore/phrasefind/pkg/phrasefind/tagger"
)

// PostgresSinkConfig configures the tagger's optional span export sink
// (SPEC_FULL §4.4, "Postgres export").
type PostgresSinkConfig struct {
	DSN       string
	TableName string
}

// SpanSink mirrors {doc_id, phrase_id, start, end} rows to Postgres, purely
// additive to the tagger's file-contract output (SPEC_FULL §4.4, "purely
// additive, never required for the file contract").
type SpanSink struct {
	db    *sql.DB
	table string
}

const defaultSpanTable = "phrasefind_spans"

// OpenSpanSink connects to Postgres and ensures the target table exists,
// following Adithya's pkg/postgres.New connection-setup pattern.
func OpenSpanSink(cfg PostgresSinkConfig) (*SpanSink, error) {
	table := cfg.TableName
	if table == "" {
		table = defaultSpanTable
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	doc_id TEXT NOT NULL,
	phrase_id INTEGER NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL
);`, table)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create span table: %w", err)
	}

	return &SpanSink{db: db, table: table}, nil
}

// Close closes the underlying Postgres connection.
func (s *SpanSink) Close() error {
	return s.db.Close()
}

// Write mirrors one tagged document's spans as individual rows.
func (s *SpanSink) Write(ctx context.Context, doc tagger.TaggedDocument) error {
	if len(doc.Spans) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin span export transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (doc_id, phrase_id, start_offset, end_offset) VALUES ($1, $2, $3, $4)`, s.table))
	if err != nil {
		return fmt.Errorf("prepare span insert: %w", err)
	}
	defer stmt.Close()

	for _, span := range doc.Spans {
		if _, err := stmt.ExecContext(ctx, doc.DocID, span.PhraseID, span.Start, span.End); err != nil {
			return fmt.Errorf("insert span for doc %s: %w", doc.DocID, err)
		}
	}

	return tx.Commit()
}
