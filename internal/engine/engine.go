// Package engine implements the evaluator (C6), the bounded-Jacobi SCC
// evaluator (C7), and the event bus (C8) of spec.md §4.5-§4.9, tying
// together the store, the operation registry, and the planner into
// compute_step/compute_derivation.
package engine

import (
	"deriveengine/internal/model"
	"deriveengine/internal/ops"
)

// Store is the subset of internal/store.Store the evaluator depends on. It
// is also a superset of planner.Loader, so an *engine.Engine's store can be
// handed straight to planner.Build.
type Store interface {
	PutContent(hash model.Hash, content []byte) error
	GetContent(hash model.Hash) ([]byte, bool, error)
	ResolvePinnedPath(path string) (model.Hash, error)
	GetStepParams(stepID string) (model.StepRecipe, bool, error)
	FindDerivation(derivationID string) (model.Derivation, bool, error)
	LinkStepToCache(stepID, cacheKey string, tree model.DependencyNode) error
	PersistStepResult(stepID string, outputHash model.Hash, outputContent []byte, row model.ResultCacheRow, tree model.DependencyNode) error
	FindResultByCacheKey(cacheKey string) (model.ResultCacheRow, bool, error)
	FindResultByStep(stepID string) (model.ResultCacheRow, model.DependencyNode, bool, error)

	CreateDerivation(recipe model.StepRecipe, label, dslExpression string) (string, error)
	UpdateDerivation(derivationID string, recipe model.StepRecipe, label, dslExpression string) error
	DeleteDerivation(derivationID string) error
}

// EmbedSink is the optional embedding sink collaborator surface the
// evaluator hands finished outputs to (spec §4.5 step 6). Submit must not
// block the caller meaningfully; failures are the sink's own concern.
type EmbedSink interface {
	Submit(contentHash model.Hash, content []byte)
}

// noopSink is used when no embedding sink is configured.
type noopSink struct{}

func (noopSink) Submit(model.Hash, []byte) {}

// Engine holds the collaborators compute_step/compute_derivation need.
type Engine struct {
	store Store
	ops   *ops.Registry
	env   ops.Environment
	sink  EmbedSink

	sccMaxIterations int
	sccSeedPolicy    string
}

// New builds an Engine. sink may be nil, in which case the embedding
// handoff is a no-op.
func New(store Store, registry *ops.Registry, env ops.Environment, sink EmbedSink, sccMaxIterations int, sccSeedPolicy string) *Engine {
	if sink == nil {
		sink = noopSink{}
	}
	if sccMaxIterations <= 0 {
		sccMaxIterations = 1
	}
	if sccSeedPolicy == "" {
		sccSeedPolicy = "empty"
	}
	return &Engine{store: store, ops: registry, env: env, sink: sink, sccMaxIterations: sccMaxIterations, sccSeedPolicy: sccSeedPolicy}
}
