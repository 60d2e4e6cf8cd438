// Package main implements the derive CLI - a command-line front end for the
// reactive derivation engine's Request API (spec.md §6).
//
// # File Index
//
//   - main.go           - Entry point, rootCmd, global flags, collaborator wiring
//   - lazy_llm.go       - lazyModelCaller, deferring the llm collaborator's API-key check
//   - recipe.go         - recipe JSON (de)serialization, result printing
//   - cmd_create.go     - createCmd (create_derivation)
//   - cmd_update.go     - updateCmd (update_derivation)
//   - cmd_delete.go     - deleteCmd (delete_derivation)
//   - cmd_compute.go    - computeCmd (compute_derivation)
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"deriveengine/internal/config"
	"deriveengine/internal/embedding"
	"deriveengine/internal/embedsink"
	"deriveengine/internal/engine"
	"deriveengine/internal/httpfetch"
	"deriveengine/internal/logging"
	"deriveengine/internal/ops"
	"deriveengine/internal/store"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string
	timeout    time.Duration

	cfg *config.Config
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "derive",
	Short: "derive - a reactive derivation engine for LLM pipelines",
	Long: `derive composes LLM pipelines as a directed graph of pure operations
over content-addressed inputs.

Derivations are recipes of operations over inputs (constants, pinned paths,
content hashes, or other derivations). Computing a derivation resolves its
inputs recursively, executes its operation, and caches the result under a
key derived from the operation's parameters and its inputs' content hashes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		} else if abs, err := filepath.Abs(ws); err == nil {
			ws = abs
		}
		workspace = ws

		if err := logging.Initialize(workspace); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}

		path := configPath
		if path == "" {
			path = filepath.Join(workspace, ".derive", "config.yaml")
		}
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.Logging.DebugMode = true
			loaded.Logging.Level = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: <workspace>/.derive/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(
		createCmd,
		updateCmd,
		deleteCmd,
		computeCmd,
	)
}

// bootEngine wires the store, operation registry, collaborators, and
// optional embedding sink into a ready-to-use *engine.Engine, resolving
// paths relative to workspace. Callers must arrange to call closer()
// before exiting so the store and any in-flight embedding work are
// cleaned up.
func bootEngine(ctx context.Context) (eng *engine.Engine, closer func(), err error) {
	dbPath := cfg.Store.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("create store directory: %w", err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	fetcher := httpfetch.New(cfg.HTTP)

	env := ops.Environment{
		Model:                   newLazyModelCaller(cfg.LLM),
		HTTP:                    fetcher,
		ContextWindowLimitChars: cfg.Engine.ContextWindowLimitChars,
	}

	var sink *embedsink.Sink
	if cfg.Embedding.Enabled {
		embCfg := embedding.Config{
			Provider:       cfg.Embedding.Provider,
			OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
			OllamaModel:    cfg.Embedding.OllamaModel,
			GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
			GenAIModel:     cfg.Embedding.GenAIModel,
			TaskType:       cfg.Embedding.TaskType,
		}
		embEngine, err := embedding.NewEngine(embCfg)
		if err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("init embedding engine: %w", err)
		}
		sink = embedsink.New(ctx, embEngine, s, 4)
	}

	eng = engine.New(s, ops.NewDefaultRegistry(), env, sink, cfg.Engine.SCCMaxIterations, cfg.Engine.SCCSeedPolicy)

	closer = func() {
		if sink != nil {
			sink.Wait()
		}
		s.Close()
	}
	return eng, closer, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
