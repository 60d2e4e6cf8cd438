package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"deriveengine/internal/canon"
	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

const maxSlugAttempts = 8

// CreateDerivation flattens and persists recipe's steps, then registers a
// new slug-identified derivation pointing at the resulting root step, all
// inside a single write transaction (spec.md's prescribed fix for the
// orphan-prone original behavior: a crash between flattening and the
// derivations-table write must never leave a step tree with no derivation
// pointing at it) (C2).
func (s *Store) CreateDerivation(recipe model.StepRecipe, label, dslExpression string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "begin create_derivation tx")
	}

	derivationID, err := s.createDerivationTx(tx, recipe, label, dslExpression)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "commit create_derivation tx")
	}
	return derivationID, nil
}

func (s *Store) createDerivationTx(tx *sql.Tx, recipe model.StepRecipe, label, dslExpression string) (string, error) {
	stepID, flattened, err := s.deepDefineStepTx(tx, recipe)
	if err != nil {
		return "", err
	}

	canonical, err := canon.MarshalString(flattened)
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "canonicalize recipe_params")
	}

	now := time.Now().Unix()
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := newSlug()
		_, err := tx.Exec(
			`INSERT INTO derivations(derivation_id, recipe_params, label, final_step_id, dsl_expression, created_at, updated_at) VALUES (?,?,?,?,?,?,?)`,
			candidate, canonical, label, stepID, dslExpression, now, now,
		)
		if err == nil {
			return candidate, nil
		}
		if attempt == maxSlugAttempts-1 {
			return "", enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "allocate derivation slug after %d attempts", maxSlugAttempts)
		}
	}
	return "", enginerr.New(enginerr.KindDerivationStoreFailure, "allocate derivation slug after %d attempts", maxSlugAttempts)
}

// UpdateDerivation re-flattens recipe and rewrites derivationID's recipe
// root in place, preserving the derivation's identity, all inside a single
// write transaction spanning both the step flattening and the
// derivations-table write (C2).
func (s *Store) UpdateDerivation(derivationID string, recipe model.StepRecipe, label, dslExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "begin update_derivation tx")
	}

	if err := s.updateDerivationTx(tx, derivationID, recipe, label, dslExpression); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "commit update_derivation tx")
	}
	return nil
}

func (s *Store) updateDerivationTx(tx *sql.Tx, derivationID string, recipe model.StepRecipe, label, dslExpression string) error {
	row := tx.QueryRow(`SELECT 1 FROM derivations WHERE derivation_id = ?`, derivationID)
	var exists int
	if err := row.Scan(&exists); errors.Is(err, sql.ErrNoRows) {
		return enginerr.New(enginerr.KindDerivationNotFound, "derivation %q not found", derivationID)
	} else if err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "look up derivation %s", derivationID)
	}

	stepID, flattened, err := s.deepDefineStepTx(tx, recipe)
	if err != nil {
		return err
	}

	canonical, err := canon.MarshalString(flattened)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "canonicalize recipe_params")
	}

	res, err := tx.Exec(
		`UPDATE derivations SET recipe_params=?, label=?, final_step_id=?, dsl_expression=?, updated_at=? WHERE derivation_id=?`,
		canonical, label, stepID, dslExpression, time.Now().Unix(), derivationID,
	)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "update derivation %s", derivationID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enginerr.New(enginerr.KindDerivationNotFound, "derivation %q not found", derivationID)
	}
	return nil
}

// DeleteDerivation removes derivationID's row. Steps and cached results it
// referenced are left in place: they are content-addressed and may still
// be shared by other derivations (spec §3).
func (s *Store) DeleteDerivation(derivationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM derivations WHERE derivation_id = ?`, derivationID)
	if err != nil {
		return enginerr.Wrap(enginerr.KindDBError, err, "delete derivation %s", derivationID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enginerr.New(enginerr.KindDerivationNotFound, "derivation %q not found", derivationID)
	}
	return nil
}

// FindDerivation looks up a derivation by id (C2).
func (s *Store) FindDerivation(derivationID string) (model.Derivation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT derivation_id, recipe_params, label, final_step_id, dsl_expression, created_at, updated_at
		 FROM derivations WHERE derivation_id = ?`, derivationID,
	)
	return scanDerivation(row)
}

// GetAllDerivations lists every registered derivation, oldest first (C2).
func (s *Store) GetAllDerivations() ([]model.Derivation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT derivation_id, recipe_params, label, final_step_id, dsl_expression, created_at, updated_at
		 FROM derivations ORDER BY created_at`,
	)
	if err != nil {
		return nil, enginerr.Wrap(enginerr.KindDBError, err, "list derivations")
	}
	defer rows.Close()

	var out []model.Derivation
	for rows.Next() {
		d, _, err := scanDerivationRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, enginerr.Wrap(enginerr.KindDBError, err, "iterate derivations")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDerivation(row *sql.Row) (model.Derivation, bool, error) {
	return scanDerivationScanner(row)
}

func scanDerivationRows(rows *sql.Rows) (model.Derivation, bool, error) {
	return scanDerivationScanner(rows)
}

func scanDerivationScanner(row scanner) (model.Derivation, bool, error) {
	var d model.Derivation
	var recipeRaw string
	var label sql.NullString
	err := row.Scan(&d.DerivationID, &recipeRaw, &label, &d.FinalStepID, &d.DSLExpression, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Derivation{}, false, nil
	}
	if err != nil {
		return model.Derivation{}, false, enginerr.Wrap(enginerr.KindDBError, err, "scan derivation row")
	}
	d.Label = label.String
	if err := json.Unmarshal([]byte(recipeRaw), &d.RecipeParams); err != nil {
		return model.Derivation{}, false, enginerr.Wrap(enginerr.KindDBError, err, "parse recipe_params for %s", d.DerivationID)
	}
	return d, true, nil
}
