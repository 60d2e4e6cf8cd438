package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"deriveengine/internal/logging"
)

var (
	createRecipePath string
	createLabel      string
	createDSL        string
)

// createCmd implements create_derivation (spec.md §6's Request API).
var createCmd = &cobra.Command{
	Use:   "create-derivation",
	Short: "Create a derivation from a recipe",
	Long: `Creates a new derivation from an operation_params recipe, flattening
any nested computed_step inputs into persisted steps along the way.

The recipe is read as JSON from --recipe, or from stdin when --recipe is "-".

Example:
  derive create-derivation --recipe recipe.json --label "summary-of-doc"`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createRecipePath, "recipe", "-", "Path to a JSON StepRecipe, or \"-\" for stdin")
	createCmd.Flags().StringVar(&createLabel, "label", "", "Human-readable label")
	createCmd.Flags().StringVar(&createDSL, "dsl", "", "Source DSL expression this recipe was compiled from, if any")
}

func runCreate(cmd *cobra.Command, args []string) error {
	baseCtx := cmd.Context()
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithTimeout(baseCtx, timeout)
	defer cancel()

	eng, closer, err := bootEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	recipe, err := readRecipe(createRecipePath)
	if err != nil {
		return err
	}

	derivationID, err := eng.CreateDerivation(recipe, createLabel, createDSL)
	if err != nil {
		return fmt.Errorf("create derivation: %w", err)
	}

	logging.Boot("created derivation %s (label=%q)", derivationID, createLabel)
	return printJSON(map[string]string{"derivation_id": derivationID})
}
