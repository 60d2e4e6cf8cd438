package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"deriveengine/internal/model"
)

// readRecipe loads a StepRecipe as JSON from path, or from stdin when path
// is "-". Authoring a derivation's recipe_params as JSON is the supported
// entry point; DSL parsing is out of scope (spec.md's Non-goals).
func readRecipe(path string) (model.StepRecipe, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.StepRecipe{}, fmt.Errorf("read recipe: %w", err)
	}

	var recipe model.StepRecipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return model.StepRecipe{}, fmt.Errorf("parse recipe JSON: %w", err)
	}
	return recipe, nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
