package ocr

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Cache persists recognized page text in SQLite, keyed by document
// fingerprint and page number. A changed fingerprint naturally misses, so
// unchanged pages are never re-recognized across builds or restarts.
type Cache struct {
	db *sql.DB
}

// NewCache opens or creates the OCR cache database at dbPath. Parent
// directories are created if they do not exist.
func NewCache(dbPath string) (*Cache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ocr cache: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ocr cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ocr_results (
		doc_fingerprint TEXT NOT NULL,
		page INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (doc_fingerprint, page)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the cached text for (fingerprint, page). The second return
// value reports whether an entry existed; an empty recognized text is a
// valid cached result.
func (c *Cache) Get(ctx context.Context, fingerprint string, page int) (string, bool, error) {
	var text string
	err := c.db.QueryRowContext(ctx,
		`SELECT text FROM ocr_results WHERE doc_fingerprint = ? AND page = ?`,
		fingerprint, page,
	).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Put stores recognized text for (fingerprint, page), replacing any prior
// entry.
func (c *Cache) Put(ctx context.Context, fingerprint string, page int, text string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ocr_results (doc_fingerprint, page, text, created_at)
		 VALUES (?, ?, ?, ?)`,
		fingerprint, page, text, time.Now(),
	)
	return err
}

// Purge removes all entries for a document fingerprint.
func (c *Cache) Purge(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM ocr_results WHERE doc_fingerprint = ?`, fingerprint)
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
