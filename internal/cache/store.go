// Package cache stores compiled bytecode bundles in a SQLite database keyed
// by a digest of the source text, so unchanged scripts skip compilation.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/funvibe/loxvm/internal/config"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates no bundle is stored under the requested key
var ErrNotFound = errors.New("bundle not found")

// Store is a bytecode cache backed by SQLite. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	log  commonlog.Logger
}

// Open opens (creating if needed) the cache database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps the
	// pragma below in effect for every statement.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS bundles (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
		log:  commonlog.GetLogger("loxvm.cache"),
	}, nil
}

// Key returns the cache key for source
func Key(source string) string {
	sum := sha256.Sum256([]byte(config.BundleFormat + "\x00" + source))
	return hex.EncodeToString(sum[:])
}

// Get returns the bundle stored under key, or ErrNotFound
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM bundles WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Debugf("cache miss %s", shortKey(key))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying bundle: %w", err)
	}
	s.log.Debugf("cache hit %s (%d bytes)", shortKey(key), len(data))
	return data, nil
}

// Put stores data under key, replacing any previous bundle
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bundles (key, data, created_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		key, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing bundle: %w", err)
	}
	s.log.Debugf("cache store %s (%d bytes)", shortKey(key), len(data))
	return nil
}

// Len returns the number of stored bundles
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bundles").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting bundles: %w", err)
	}
	return n, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
