package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"deriveengine/internal/logging"
)

var (
	updateRecipePath string
	updateLabel      string
	updateDSL        string
)

// updateCmd implements update_derivation (spec.md §6's Request API).
var updateCmd = &cobra.Command{
	Use:   "update-derivation <derivation_id>",
	Short: "Replace a derivation's recipe, label, and DSL expression",
	Long: `Replaces an existing derivation's recipe_params in place (the
derivation_id is preserved; a new final step is flattened and linked).

The recipe is read as JSON from --recipe, or from stdin when --recipe is "-".`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateRecipePath, "recipe", "-", "Path to a JSON StepRecipe, or \"-\" for stdin")
	updateCmd.Flags().StringVar(&updateLabel, "label", "", "Human-readable label")
	updateCmd.Flags().StringVar(&updateDSL, "dsl", "", "Source DSL expression this recipe was compiled from, if any")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	derivationID := args[0]

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

	recipe, err := readRecipe(updateRecipePath)
	if err != nil {
		return err
	}

	if err := eng.UpdateDerivation(derivationID, recipe, updateLabel, updateDSL); err != nil {
		return fmt.Errorf("update derivation %q: %w", derivationID, err)
	}

	logging.Boot("updated derivation %s (label=%q)", derivationID, updateLabel)
	return printJSON(map[string]string{"derivation_id": derivationID, "status": "updated"})
}
