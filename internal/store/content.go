package store

import (
	"database/sql"
	"errors"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/logging"
	"deriveengine/internal/model"
)

// PutContent writes a content-addressed blob, deduplicating on hash (C1).
func (s *Store) PutContent(hash model.Hash, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO content_cache(content_hash, content) VALUES (?, ?)`,
		string(hash), content,
	); err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "put content %s", hash)
	}
	return nil
}

// GetContent reads a content-addressed blob by hash (C1).
func (s *Store) GetContent(hash model.Hash) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content []byte
	err := s.db.QueryRow(`SELECT content FROM content_cache WHERE content_hash = ?`, string(hash)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, enginerr.Wrap(enginerr.KindDBError, err, "get content %s", hash)
	}
	return content, true, nil
}

// SetDocumentPath hashes content, stores it, and points path at the
// resulting hash via the documents/document_paths tables. Outside the
// engine proper this is the file watcher/collaborator's job (spec §1
// names it out of scope); the engine still needs a way to seed pinned
// paths for tests and for any thin glue collaborator that watches files.
func (s *Store) SetDocumentPath(path string, content []byte) (model.Hash, error) {
	hash := model.HashBytes(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "begin set_document_path tx")
	}

	if _, err := tx.Exec(`INSERT OR IGNORE INTO content_cache(content_hash, content) VALUES (?, ?)`, string(hash), content); err != nil {
		tx.Rollback()
		return "", enginerr.Wrap(enginerr.KindDBError, err, "store document content")
	}

	var docID string
	err = tx.QueryRow(`SELECT doc_id FROM document_paths WHERE absolute_path = ?`, path).Scan(&docID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		docID = newID()
		if _, err := tx.Exec(`INSERT INTO documents(doc_id, content_hash) VALUES (?, ?)`, docID, string(hash)); err != nil {
			tx.Rollback()
			return "", enginerr.Wrap(enginerr.KindDBError, err, "insert document")
		}
		if _, err := tx.Exec(`INSERT INTO document_paths(path_id, doc_id, absolute_path) VALUES (?, ?, ?)`, newID(), docID, path); err != nil {
			tx.Rollback()
			return "", enginerr.Wrap(enginerr.KindDBError, err, "insert document path")
		}
	case err != nil:
		tx.Rollback()
		return "", enginerr.Wrap(enginerr.KindDBError, err, "lookup document path")
	default:
		if _, err := tx.Exec(`UPDATE documents SET content_hash = ? WHERE doc_id = ?`, string(hash), docID); err != nil {
			tx.Rollback()
			return "", enginerr.Wrap(enginerr.KindDBError, err, "update document")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "commit set_document_path tx")
	}
	logging.StoreDebug("pinned path %s -> %s", path, hash)
	return hash, nil
}

// ResolvePinnedPath resolves a pinned_path input to the content hash its
// document currently maps to (spec §4.4).
func (s *Store) ResolvePinnedPath(path string) (model.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docID string
	err := s.db.QueryRow(`SELECT doc_id FROM document_paths WHERE absolute_path = ?`, path).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", enginerr.New(enginerr.KindPinnedPathNotFound, "no document pinned at path %q", path)
	}
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "resolve pinned path %q", path)
	}

	var hash string
	err = s.db.QueryRow(`SELECT content_hash FROM documents WHERE doc_id = ?`, docID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", enginerr.New(enginerr.KindPinnedContentHashNotFound, "document %s has no content hash", docID)
	}
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "read document %s content hash", docID)
	}
	return model.Hash(hash), nil
}
