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

// DefineStep persists a single, already-flattened step recipe and returns
// its step_id (C2). Use DeepDefineStep when the recipe may still contain
// computed_step inputs.
func (s *Store) DefineStep(recipe model.StepRecipe) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "begin define_step tx")
	}
	stepID, err := s.defineStepTx(tx, recipe)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "commit define_step tx")
	}
	return stepID, nil
}

func (s *Store) defineStepTx(tx *sql.Tx, recipe model.StepRecipe) (string, error) {
	canonical, err := canon.MarshalString(recipe)
	if err != nil {
		return "", enginerr.Wrap(enginerr.KindDerivationStoreFailure, err, "canonicalize step recipe")
	}

	stepID := newID()
	if _, err := tx.Exec(
		`INSERT INTO steps(step_id, operation_params, created_at) VALUES (?, ?, ?)`,
		stepID, canonical, time.Now().Unix(),
	); err != nil {
		return "", enginerr.Wrap(enginerr.KindDBError, err, "insert step")
	}

	for _, in := range recipe.Inputs {
		switch in.Kind {
		case model.InputContent:
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO step_input_content(step_id, input_content_hash) VALUES (?, ?)`,
				stepID, string(in.Hash),
			); err != nil {
				return "", enginerr.Wrap(enginerr.KindDBError, err, "index content input")
			}
		case model.InputConstant:
			h := model.HashString(in.Value)
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO step_input_content(step_id, input_content_hash) VALUES (?, ?)`,
				stepID, string(h),
			); err != nil {
				return "", enginerr.Wrap(enginerr.KindDBError, err, "index constant input")
			}
		case model.InputInternalStepLink:
			if _, err := tx.Exec(
				`INSERT OR IGNORE INTO step_input_step(consuming_step_id, providing_step_id) VALUES (?, ?)`,
				stepID, in.StepID,
			); err != nil {
				return "", enginerr.Wrap(enginerr.KindDBError, err, "index step-link input")
			}
		case model.InputPinnedPath, model.InputDerivation:
			// resolved at evaluation time; nothing to index here.
		}
	}
	return stepID, nil
}

// DeepDefineStep recursively flattens computed_step inputs into
// internal_step_link inputs bottom-up, defining every nested step under a
// single write transaction (spec §4.3's fix for the unguarded multi-write
// recipe-flattening sequence). It returns the root step_id and the
// flattened recipe actually persisted.
func (s *Store) DeepDefineStep(recipe model.StepRecipe) (string, model.StepRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", model.StepRecipe{}, enginerr.Wrap(enginerr.KindDBError, err, "begin deep_define_step tx")
	}

	stepID, flattened, err := s.deepDefineStepTx(tx, recipe)
	if err != nil {
		tx.Rollback()
		return "", model.StepRecipe{}, err
	}
	if err := tx.Commit(); err != nil {
		return "", model.StepRecipe{}, enginerr.Wrap(enginerr.KindDBError, err, "commit deep_define_step tx")
	}
	return stepID, flattened, nil
}

func (s *Store) deepDefineStepTx(tx *sql.Tx, recipe model.StepRecipe) (string, model.StepRecipe, error) {
	flatInputs := make([]model.InputDescriptor, len(recipe.Inputs))
	for i, in := range recipe.Inputs {
		if in.Kind != model.InputComputedStep {
			flatInputs[i] = in
			continue
		}
		if in.Step == nil {
			return "", model.StepRecipe{}, enginerr.New(enginerr.KindDerivationStoreFailure, "computed_step input at index %d is missing its recipe", i)
		}
		childStepID, _, err := s.deepDefineStepTx(tx, *in.Step)
		if err != nil {
			return "", model.StepRecipe{}, err
		}
		flatInputs[i] = model.InputDescriptor{Kind: model.InputInternalStepLink, StepID: childStepID}
	}

	flattened := model.StepRecipe{Operation: recipe.Operation, Params: recipe.Params, Inputs: flatInputs}
	stepID, err := s.defineStepTx(tx, flattened)
	if err != nil {
		return "", model.StepRecipe{}, err
	}
	return stepID, flattened, nil
}

// GetStepParams reads back a step's (already flattened) recipe (C2).
func (s *Store) GetStepParams(stepID string) (model.StepRecipe, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRow(`SELECT operation_params FROM steps WHERE step_id = ?`, stepID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StepRecipe{}, false, nil
	}
	if err != nil {
		return model.StepRecipe{}, false, enginerr.Wrap(enginerr.KindDBError, err, "get step params %s", stepID)
	}

	var recipe model.StepRecipe
	if err := json.Unmarshal([]byte(raw), &recipe); err != nil {
		return model.StepRecipe{}, false, enginerr.Wrap(enginerr.KindDBError, err, "parse step params %s", stepID)
	}
	return recipe, true, nil
}
