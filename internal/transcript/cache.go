package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is bumped whenever the cache layout changes. A mismatched
// cache is dropped and rebuilt since it only holds recomputable data.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transcripts (
    digest TEXT PRIMARY KEY,
    full_text TEXT NOT NULL,
    audio_duration REAL NOT NULL,
    words_json TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`

// Cache stores completed transcripts keyed by audio digest.
type Cache struct {
	db   *sql.DB
	path string
}

// OpenCache initializes or connects to the transcript cache database.
func OpenCache(path string) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("transcript cache: path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("transcript cache: ensure directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{db: db, path: path}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Path returns the database file location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached transcript for digest, if present.
func (c *Cache) Get(ctx context.Context, digest string) (*Result, bool, error) {
	if c == nil || c.db == nil {
		return nil, false, nil
	}
	var (
		fullText  string
		duration  float64
		wordsJSON string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT full_text, audio_duration, words_json FROM transcripts WHERE digest = ?`,
		digest,
	).Scan(&fullText, &duration, &wordsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query transcript: %w", err)
	}
	var words []Word
	if err := json.Unmarshal([]byte(wordsJSON), &words); err != nil {
		return nil, false, fmt.Errorf("decode cached words: %w", err)
	}
	return &Result{Words: words, FullText: fullText, AudioDuration: duration}, true, nil
}

// Put stores result under digest, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, digest string, result Result) error {
	if c == nil || c.db == nil {
		return nil
	}
	if strings.TrimSpace(digest) == "" {
		return errors.New("transcript cache: digest required")
	}
	wordsJSON, err := json.Marshal(result.Words)
	if err != nil {
		return fmt.Errorf("encode words: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO transcripts (digest, full_text, audio_duration, words_json, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(digest) DO UPDATE SET
             full_text = excluded.full_text,
             audio_duration = excluded.audio_duration,
             words_json = excluded.words_json,
             created_at = excluded.created_at`,
		digest,
		result.FullText,
		result.AudioDuration,
		string(wordsJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// Count returns the number of cached transcripts.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM transcripts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transcripts: %w", err)
	}
	return count, nil
}

// Clear removes every cached transcript and returns how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM transcripts`)
	if err != nil {
		return 0, fmt.Errorf("clear transcripts: %w", err)
	}
	return res.RowsAffected()
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	err = c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS transcripts; DROP TABLE IF EXISTS schema_version;"); err != nil {
		return fmt.Errorf("drop stale cache schema: %w", err)
	}
	return c.createSchema(ctx)
}

func (c *Cache) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
