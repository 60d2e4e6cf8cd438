package engine

import "deriveengine/internal/model"

// CreateDerivation wraps the store's create_derivation (spec §6's Request
// API). DSL parsing is out of scope; callers supply an already-built
// recipe.
func (e *Engine) CreateDerivation(recipe model.StepRecipe, label, dslExpression string) (string, error) {
	return e.store.CreateDerivation(recipe, label, dslExpression)
}

// UpdateDerivation wraps the store's update_derivation.
func (e *Engine) UpdateDerivation(derivationID string, recipe model.StepRecipe, label, dslExpression string) error {
	return e.store.UpdateDerivation(derivationID, recipe, label, dslExpression)
}

// DeleteDerivation wraps the store's delete_derivation.
func (e *Engine) DeleteDerivation(derivationID string) error {
	return e.store.DeleteDerivation(derivationID)
}
