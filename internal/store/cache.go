package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

// LinkStepToCache points stepID at an existing cache_key, for the cache-hit
// path where a new invocation's dependency tree must be recorded but no new
// content or result row needs writing (spec §4.5 step 3).
func (s *Store) LinkStepToCache(stepID, cacheKey string, tree model.DependencyNode) error {
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "marshal dependency tree")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`INSERT INTO step_result_links(step_id, cache_key, dependency_tree) VALUES (?, ?, ?)
		 ON CONFLICT(step_id) DO UPDATE SET cache_key=excluded.cache_key, dependency_tree=excluded.dependency_tree`,
		stepID, cacheKey, string(treeJSON),
	); err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "link step %s to cache_key %s", stepID, cacheKey)
	}
	return nil
}

// PersistStepResult atomically writes a freshly computed step's output
// content, its result cache row, and its step->cache_key link (C1+C2+C3
// together, spec §4.5 step 5's single-transaction requirement).
func (s *Store) PersistStepResult(stepID string, outputHash model.Hash, outputContent []byte, row model.ResultCacheRow, tree model.DependencyNode) error {
	pinnedJSON, err := json.Marshal(row.ResolvedPinnedInputHashes)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "marshal resolved pinned hashes")
	}
	inputsJSON, err := json.Marshal(row.InputContentHashes)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "marshal input content hashes")
	}
	warningsJSON, err := json.Marshal(row.Warnings)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "marshal warnings")
	}
	treeJSON, err := json.Marshal(tree)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "marshal dependency tree")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "begin persist_step_result tx")
	}

	if _, err := tx.Exec(`INSERT OR IGNORE INTO content_cache(content_hash, content) VALUES (?, ?)`, string(outputHash), outputContent); err != nil {
		tx.Rollback()
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "persist output content")
	}

	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO step_results(cache_key, output_content_hash, resolved_pinned_input_hashes, input_content_hashes, warnings, computed_at)
		 VALUES (?,?,?,?,?,?)`,
		row.CacheKey, string(row.OutputContentHash), string(pinnedJSON), string(inputsJSON), string(warningsJSON), row.ComputedAt,
	); err != nil {
		tx.Rollback()
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "persist result row")
	}

	if _, err := tx.Exec(
		`INSERT INTO step_result_links(step_id, cache_key, dependency_tree) VALUES (?, ?, ?)
		 ON CONFLICT(step_id) DO UPDATE SET cache_key=excluded.cache_key, dependency_tree=excluded.dependency_tree`,
		stepID, row.CacheKey, string(treeJSON),
	); err != nil {
		tx.Rollback()
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "link step to cache")
	}

	if err := tx.Commit(); err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "commit persist_step_result tx")
	}
	return nil
}

// FindResultByCacheKey looks up a result row directly by cache_key (C3).
func (s *Store) FindResultByCacheKey(cacheKey string) (model.ResultCacheRow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanResultRow(s.db.QueryRow(
		`SELECT cache_key, output_content_hash, resolved_pinned_input_hashes, input_content_hashes, warnings, computed_at
		 FROM step_results WHERE cache_key = ?`, cacheKey,
	))
}

// FindResultByStep looks up the result row and dependency tree currently
// linked to stepID (C3).
func (s *Store) FindResultByStep(stepID string) (model.ResultCacheRow, model.DependencyNode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cacheKey, treeRaw string
	err := s.db.QueryRow(`SELECT cache_key, dependency_tree FROM step_result_links WHERE step_id = ?`, stepID).Scan(&cacheKey, &treeRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ResultCacheRow{}, model.DependencyNode{}, false, nil
	}
	if err != nil {
		return model.ResultCacheRow{}, model.DependencyNode{}, false, enginerr.Wrap(enginerr.KindDBError, err, "lookup step_result_link for %s", stepID)
	}

	var tree model.DependencyNode
	if err := json.Unmarshal([]byte(treeRaw), &tree); err != nil {
		return model.ResultCacheRow{}, model.DependencyNode{}, false, enginerr.Wrap(enginerr.KindDBError, err, "parse dependency tree for %s", stepID)
	}

	row, found, err := s.scanResultRow(s.db.QueryRow(
		`SELECT cache_key, output_content_hash, resolved_pinned_input_hashes, input_content_hashes, warnings, computed_at
		 FROM step_results WHERE cache_key = ?`, cacheKey,
	))
	if err != nil || !found {
		return row, tree, found, err
	}
	return row, tree, true, nil
}

func (s *Store) scanResultRow(row *sql.Row) (model.ResultCacheRow, bool, error) {
	var r model.ResultCacheRow
	var outputHash, pinnedRaw, inputsRaw, warningsRaw sql.NullString
	err := row.Scan(&r.CacheKey, &outputHash, &pinnedRaw, &inputsRaw, &warningsRaw, &r.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ResultCacheRow{}, false, nil
	}
	if err != nil {
		return model.ResultCacheRow{}, false, enginerr.Wrap(enginerr.KindDBError, err, "scan result row")
	}
	r.OutputContentHash = model.Hash(outputHash.String)
	if pinnedRaw.Valid && pinnedRaw.String != "" && pinnedRaw.String != "null" {
		if err := json.Unmarshal([]byte(pinnedRaw.String), &r.ResolvedPinnedInputHashes); err != nil {
			return model.ResultCacheRow{}, false, enginerr.Wrap(enginerr.KindDBError, err, "parse resolved pinned hashes")
		}
	}
	if inputsRaw.Valid && inputsRaw.String != "" {
		if err := json.Unmarshal([]byte(inputsRaw.String), &r.InputContentHashes); err != nil {
			return model.ResultCacheRow{}, false, enginerr.Wrap(enginerr.KindDBError, err, "parse input content hashes")
		}
	}
	if warningsRaw.Valid && warningsRaw.String != "" && warningsRaw.String != "null" {
		if err := json.Unmarshal([]byte(warningsRaw.String), &r.Warnings); err != nil {
			return model.ResultCacheRow{}, false, enginerr.Wrap(enginerr.KindDBError, err, "parse warnings")
		}
	}
	return r, true, nil
}
