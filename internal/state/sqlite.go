package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode = WAL;`

	processedSchema = `CREATE TABLE IF NOT EXISTS processed_issues (
		key TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);`

	insertProcessedSQL = `INSERT OR IGNORE INTO processed_issues (key, created_at) VALUES (?, ?);`
	listProcessedSQL   = `SELECT key FROM processed_issues;`
)

// SQLiteSet is a Set stored in a sqlite database. Each Add is a single
// committed insert. Keys are loaded once at open and lookups are served from
// memory, so a database error never reports a processed issue as absent.
type SQLiteSet struct {
	db *sql.DB

	mu   sync.RWMutex
	keys map[string]struct{}
}

// OpenSQLiteSet opens or creates the database at path
func OpenSQLiteSet(ctx context.Context, path string) (*SQLiteSet, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, pragmaJournalModeWAL); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, processedSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	keys, err := loadProcessedKeys(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteSet{db: db, keys: keys}, nil
}

func loadProcessedKeys(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, listProcessedSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load processed issues: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to read processed issue: %w", err)
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load processed issues: %w", err)
	}
	return keys, nil
}

// Contains reports whether key is present
func (s *SQLiteSet) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok
}

// Add inserts key. The key stays in memory even when the insert fails so the
// issue is not queued twice by this process.
func (s *SQLiteSet) Add(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = struct{}{}
	if _, err := s.db.ExecContext(ctx, insertProcessedSQL, key, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save processed issue %s: %w", key, err)
	}
	return nil
}

// Keys returns the keys in sorted order
func (s *SQLiteSet) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.keys)
}

// Close closes the database
func (s *SQLiteSet) Close() error {
	return s.db.Close()
}
