package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sentences (
    key TEXT PRIMARY KEY,
    pcm BLOB NOT NULL,
    sample_rate INTEGER NOT NULL,
    alignment TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);
`

// SQLiteStore keeps entries as rows of a single table in an embedded SQLite
// database. The first write for a key wins; later writes are ignored.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Get loads the row for key.
func (s *SQLiteStore) Get(key Key) (*Entry, bool) {
	var (
		e    Entry
		rate int64
	)
	row := s.db.QueryRow(`SELECT pcm, sample_rate, alignment FROM sentences WHERE key = ?`, key.String())
	if err := row.Scan(&e.PCM, &rate, &e.Alignment); err != nil {
		return nil, false
	}
	e.SampleRate = uint32(rate)
	return &e, true
}

// Put inserts the entry unless the key is already present.
func (s *SQLiteStore) Put(key Key, e *Entry) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO sentences (key, pcm, sample_rate, alignment, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.String(), e.PCM, int64(e.SampleRate), e.Alignment, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert cache row: %w", err)
	}
	return nil
}

// Stats reports the row count and stored payload bytes.
func (s *SQLiteStore) Stats() (Stats, error) {
	st := Stats{Backend: "sqlite", Location: s.path}
	var bytes sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), SUM(LENGTH(pcm) + LENGTH(alignment)) FROM sentences`).Scan(&st.Entries, &bytes)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return st, fmt.Errorf("query cache stats: %w", err)
	}
	st.Bytes = bytes.Int64
	return st, nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM sentences`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
