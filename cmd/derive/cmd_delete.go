package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"deriveengine/internal/logging"
)

// deleteCmd implements delete_derivation (spec.md §6's Request API).
var deleteCmd = &cobra.Command{
	Use:   "delete-derivation <derivation_id>",
	Short: "Delete a derivation",
	Long: `Deletes a derivation's record. Content, steps, and cache rows it
referenced are left in place, since other derivations may share them
through content addressing.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := eng.DeleteDerivation(derivationID); err != nil {
		return fmt.Errorf("delete derivation %q: %w", derivationID, err)
	}

	logging.Boot("deleted derivation %s", derivationID)
	return printJSON(map[string]string{"derivation_id": derivationID, "status": "deleted"})
}
