package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"deriveengine/internal/engine"
	"deriveengine/internal/logging"
)

var (
	computeSkipCache     bool
	computeSCCIterations int
	computeSCCSeedPolicy string
	computeShowTree      bool
)

// computeCmd implements compute_derivation (spec.md §6's Request API).
var computeCmd = &cobra.Command{
	Use:   "compute-derivation <derivation_id>",
	Short: "Compute a derivation's output",
	Long: `Resolves a derivation's recipe recursively, executing its operation
and every uncached dependency's operation along the way, and prints the
resulting output.

If the derivation participates in a strongly connected component (a
mutually-recursive group of derivations), it is evaluated via bounded
Jacobi iteration; --scc-iterations and --scc-seed-policy override the
engine's configured defaults for that evaluation.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompute,
}

func init() {
	computeCmd.Flags().BoolVar(&computeSkipCache, "skip-cache", false, "Bypass the result cache for the root step")
	computeCmd.Flags().IntVar(&computeSCCIterations, "scc-iterations", 0, "Override the SCC iteration budget (0: use engine default)")
	computeCmd.Flags().StringVar(&computeSCCSeedPolicy, "scc-seed-policy", "", "Override the SCC seed policy: empty or last_cache (\"\": use engine default)")
	computeCmd.Flags().BoolVar(&computeShowTree, "show-tree", false, "Include the execution tree in the printed result")
}

func runCompute(cmd *cobra.Command, args []string) error {
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

	req := engine.ComputeRequest{
		SkipCache:     computeSkipCache,
		SCCIterations: computeSCCIterations,
		SCCSeedPolicy: computeSCCSeedPolicy,
		OnEvent: func(ev engine.Event) {
			switch ev.Type {
			case engine.EventPlanReady:
				logging.Bus("plan ready for derivation %s", derivationID)
			case engine.EventStepComplete:
				logging.BusDebug("step complete for derivation %s (cache_status=%s)", ev.DerivationID, ev.ExecutionTree.CacheStatus)
			}
		},
	}

	result, err := eng.ComputeDerivation(ctx, derivationID, req)
	if err != nil {
		return fmt.Errorf("compute derivation %q: %w", derivationID, err)
	}

	out := map[string]interface{}{
		"output":      result.Output,
		"output_hash": result.OutputHash,
	}
	if result.TokensOutput != nil {
		out["tokens_output"] = *result.TokensOutput
	}
	if computeShowTree {
		out["execution_tree"] = result.ExecutionTree
	}
	return printJSON(out)
}
