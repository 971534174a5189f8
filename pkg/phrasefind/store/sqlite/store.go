// Package sqlite implements the scorer's optional background-count store: a
// SQLite-backed table of n-gram frequencies too large to load wholesale into
// memory as scorer.NewMemoryBackground does (SPEC_FULL §4.2, "optional
// background-count store").
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cognicore/phrasefind/pkg/phrasefind/miner"
)

// Store is a SQLite-backed scorer.BackgroundSource.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database at path in WAL mode and
// ensures its schema exists, following cognicore-io-korel's
// store/sqlite.OpenSQLite pattern.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite background store: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS background_ngrams (
	phrase TEXT PRIMARY KEY,
	count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS background_meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init background store schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadCandidates bulk-inserts a miner-stage candidate table into the
// background store, replacing any existing rows with the same phrase key.
// It accumulates background_meta's running total onto whatever was already
// there, so a large background table can be populated across multiple
// disjoint-phrase calls (e.g. one per chunk of a file too large to hold in
// memory at once) without later calls clobbering earlier ones' contribution.
func (s *Store) LoadCandidates(ctx context.Context, candidates []miner.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin background load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO background_ngrams (phrase, count) VALUES (?, ?)
ON CONFLICT(phrase) DO UPDATE SET count=excluded.count;
`)
	if err != nil {
		return fmt.Errorf("prepare background upsert: %w", err)
	}
	defer stmt.Close()

	var batchTotal uint64
	for _, c := range candidates {
		key := phraseKey(c.Tokens)
		if _, err := stmt.ExecContext(ctx, key, c.Count); err != nil {
			return fmt.Errorf("upsert background phrase %q: %w", key, err)
		}
		batchTotal += uint64(c.Count)
	}

	var existingTotal uint64
	err = tx.QueryRowContext(ctx, `SELECT value FROM background_meta WHERE key = 'total'`).Scan(&existingTotal)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read existing background total: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO background_meta (key, value) VALUES ('total', ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value;
`, existingTotal+batchTotal); err != nil {
		return fmt.Errorf("update background total: %w", err)
	}

	return tx.Commit()
}

// Lookup implements scorer.BackgroundSource.
func (s *Store) Lookup(tokens []string) (uint32, bool) {
	var count uint32
	err := s.db.QueryRow(`SELECT count FROM background_ngrams WHERE phrase = ?`, phraseKey(tokens)).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return count, true
}

// Total implements scorer.BackgroundSource.
func (s *Store) Total() uint64 {
	var total uint64
	if err := s.db.QueryRow(`SELECT value FROM background_meta WHERE key = 'total'`).Scan(&total); err != nil {
		return 0
	}
	return total
}

// Count implements scorer.BackgroundSource.
func (s *Store) Count() int64 {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM background_ngrams`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// phraseKey is the background table's lookup key: lowercase tokens joined by
// a single space, so loads and lookups are case-insensitive.
func phraseKey(tokens []string) string {
	lowered := make([]string, len(tokens))
	for i, t := range tokens {
		lowered[i] = strings.ToLower(t)
	}
	return strings.Join(lowered, " ")
}
