// Package store provides the persistence layer for aide's collections.
// Records live as whole JSON arrays inside named blobs, read and written
// in full on every mutation; SQLite (modernc.org/sqlite, pure Go) is the
// durable key-value backing for those blobs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const blobSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Blobs is a string-keyed blob store. A missing key reads as nil without
// error; callers treat nil as an empty collection.
type Blobs struct {
	db *sql.DB
}

// Open creates (if needed) and opens the blob database at dbPath.
func Open(dbPath string) (*Blobs, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer: the store serializes mutations per collection and
	// SQLite handles the rest.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(blobSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Blobs{db: db}, nil
}

// Close releases the underlying database handle.
func (b *Blobs) Close() error {
	return b.db.Close()
}

// Get returns the raw value stored under key, or nil when the key is absent.
func (b *Blobs) Get(key string) ([]byte, error) {
	var value string
	err := b.db.QueryRow(`SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	return []byte(value), nil
}

// Put stores value under key, replacing any previous value.
func (b *Blobs) Put(key string, value []byte) error {
	_, err := b.db.Exec(
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return nil
}

// Quarantine moves a corrupt blob aside under "<key>.corrupt" and resets the
// original to raw so subsequent reads start from a clean state. The corrupt
// payload is preserved for inspection rather than silently discarded.
func (b *Blobs) Quarantine(key string, corrupt, fresh []byte) {
	if err := b.Put(key+".corrupt", corrupt); err != nil {
		log.Error().Err(err).Str("key", key).Msg("quarantine copy failed")
	}
	if err := b.Put(key, fresh); err != nil {
		log.Error().Err(err).Str("key", key).Msg("blob reset failed")
	}
	log.Warn().Str("key", key).Msg("corrupt blob quarantined")
}
