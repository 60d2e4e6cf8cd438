package engine

import (
	"deriveengine/internal/model"
	"deriveengine/internal/planner"
)

// Options is the immutable bundle of cross-call state threaded through
// compute_step/compute_derivation/the SCC evaluator (spec §9: "Shared
// cross-call state... is an immutable options bundle carried by value").
type Options struct {
	// Plan is reused across nested compute_derivation calls so only the
	// outermost request builds one (spec §4.6 step 1).
	Plan *planner.ExecutionPlan

	// SCCContext is non-nil exactly when the current call is already
	// inside an SCC's bounded-Jacobi evaluation (spec §4.6 step 2).
	SCCContext *sccContext

	// SkipCache forces the root step's cache probe to be bypassed (spec
	// §4.5 step 3). It is consumed exactly once, at the root step of the
	// request; resolveInput never propagates it to nested calls.
	SkipCache bool

	// SCCIterations/SCCSeedPolicy are the request's overrides for any SCC
	// context freshly entered while serving this request (spec §4.7's
	// options). Zero/empty mean "use the engine's configured default".
	SCCIterations int
	SCCSeedPolicy string

	OnEvent EventHandler
}

// ComputeRequest is the request-level shape of compute_derivation (spec
// §6's Request API).
type ComputeRequest struct {
	SkipCache bool

	// SCCIterations and SCCSeedPolicy override the engine's configured
	// defaults for a request that lands in an SCC. Zero values mean "use
	// the engine default".
	SCCIterations int
	SCCSeedPolicy string

	OnEvent EventHandler
}

// DerivationResult is compute_derivation's return shape (spec §6).
type DerivationResult struct {
	Output        string
	OutputHash    model.Hash
	ExecutionTree model.DependencyNode
	TokensOutput  *int
}
