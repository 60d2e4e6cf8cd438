// Package store is the engine's persistence layer: content-addressed blob
// storage (C1), step/derivation recipe storage (C2), and the global result
// cache (C3), all backed by a single SQLite database (spec §6).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"deriveengine/internal/logging"
)

// Store is the SQLite-backed implementation of C1+C2+C3.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	dbPath    string
	vectorExt bool
}

// New opens (creating if necessary) the SQLite database at path and
// ensures its schema exists.
func New(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "New")
	defer timer.Stop()

	logging.Store("opening store at %s", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps every write (including cross-table
	// transactions) serialized through one SQLite handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set synchronous=NORMAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("failed to set foreign_keys=ON: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	s.detectVecExtension()
	if s.vectorExt {
		logging.Store("sqlite-vec extension detected; vec0 module available")
	} else {
		logging.Get(logging.CategoryStore).Warn("sqlite-vec extension not available; hash_embeddings stores rows without ANN indexing")
	}

	logging.Store("store ready at %s", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates every table named in spec §6 if it does not already
// exist.
func (s *Store) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS content_cache (
			content_hash TEXT PRIMARY KEY,
			content      BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id       TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS document_paths (
			path_id       TEXT PRIMARY KEY,
			doc_id        TEXT NOT NULL REFERENCES documents(doc_id),
			absolute_path TEXT NOT NULL,
			UNIQUE(absolute_path)
		)`,
		`CREATE TABLE IF NOT EXISTS hash_embeddings (
			content_hash TEXT NOT NULL,
			model_name   TEXT NOT NULL,
			embedding    BLOB NOT NULL,
			dimensions   INTEGER NOT NULL,
			PRIMARY KEY (content_hash, model_name)
		)`,
		`CREATE TABLE IF NOT EXISTS embedding_usage_log (
			log_id        TEXT PRIMARY KEY,
			content_hash  TEXT NOT NULL,
			model_name    TEXT NOT NULL,
			timestamp     INTEGER NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS derivations (
			derivation_id  TEXT PRIMARY KEY,
			recipe_params  TEXT NOT NULL,
			label          TEXT,
			final_step_id  TEXT NOT NULL,
			dsl_expression TEXT,
			created_at     INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS steps (
			step_id         TEXT PRIMARY KEY,
			operation_params TEXT NOT NULL,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS step_results (
			cache_key                   TEXT PRIMARY KEY,
			output_content_hash         TEXT NOT NULL,
			resolved_pinned_input_hashes TEXT,
			input_content_hashes        TEXT NOT NULL,
			warnings                    TEXT,
			computed_at                 INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS step_result_links (
			step_id         TEXT PRIMARY KEY REFERENCES steps(step_id),
			cache_key       TEXT NOT NULL REFERENCES step_results(cache_key),
			dependency_tree TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS step_input_content (
			step_id           TEXT NOT NULL REFERENCES steps(step_id),
			input_content_hash TEXT NOT NULL,
			PRIMARY KEY (step_id, input_content_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS step_input_step (
			consuming_step_id TEXT NOT NULL REFERENCES steps(step_id),
			providing_step_id TEXT NOT NULL REFERENCES steps(step_id),
			PRIMARY KEY (consuming_step_id, providing_step_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_paths_doc ON document_paths(doc_id)`,
		`CREATE INDEX IF NOT EXISTS idx_step_result_links_cache_key ON step_result_links(cache_key)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

// detectVecExtension probes whether the linked sqlite3 driver carries the
// sqlite-vec vec0 virtual table module.
func (s *Store) detectVecExtension() {
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}

// HasVecExtension reports whether detectVecExtension found the vec0 module.
// No query in this package uses vec0; hash_embeddings is a plain table.
func (s *Store) HasVecExtension() bool {
	return s.vectorExt
}
