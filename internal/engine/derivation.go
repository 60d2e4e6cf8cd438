package engine

import (
	"context"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/logging"
	"deriveengine/internal/model"
	"deriveengine/internal/planner"
)

// ComputeDerivation is the public entry point for compute_derivation (spec
// §6's Request API). It builds a fresh execution plan on every call, emits
// plan-ready once, and delegates to the SCC evaluator or a direct
// compute_step call depending on where the requested derivation sits in
// that plan.
func (e *Engine) ComputeDerivation(ctx context.Context, derivationID string, req ComputeRequest) (DerivationResult, error) {
	plan, err := planner.Build(e.store, derivationID)
	if err != nil {
		return DerivationResult{}, enginerr.Wrap(enginerr.KindPlanningInternalError, err, "failed to build execution plan for derivation %q", derivationID)
	}
	emit(req.OnEvent, Event{Type: EventPlanReady, Plan: plan})

	opts := Options{
		Plan:          plan,
		SkipCache:     req.SkipCache,
		SCCIterations: req.SCCIterations,
		SCCSeedPolicy: req.SCCSeedPolicy,
		OnEvent:       req.OnEvent,
	}
	return e.computeDerivation(ctx, derivationID, opts)
}

// computeDerivation implements compute_derivation's internal recursion
// (spec §4.6): reuse the caller's plan, resolve via the SCC evaluator if
// the derivation belongs to a strongly connected component, otherwise
// compute its final step directly. Every call emits step-complete.
func (e *Engine) computeDerivation(ctx context.Context, derivationID string, opts Options) (DerivationResult, error) {
	result, err := e.computeDerivationTree(ctx, derivationID, opts)
	if err != nil {
		return DerivationResult{}, err
	}
	emit(opts.OnEvent, Event{
		Type:          EventStepComplete,
		DerivationID:  derivationID,
		ExecutionTree: result.ExecutionTree,
		TokensOutput:  result.TokensOutput,
	})
	return result, nil
}

func (e *Engine) computeDerivationTree(ctx context.Context, derivationID string, opts Options) (DerivationResult, error) {
	if opts.SCCContext != nil && opts.SCCContext.isMember(derivationID) {
		return e.evaluateSCCMember(ctx, derivationID, opts.SCCContext, opts)
	}

	if opts.Plan != nil {
		if unit, ok := opts.Plan.SCCFor(derivationID); ok {
			return e.computeSCCEntry(ctx, derivationID, unit, opts)
		}
	}

	deriv, found, err := e.store.FindDerivation(derivationID)
	if err != nil {
		return DerivationResult{}, err
	}
	if !found {
		return DerivationResult{}, notFoundErr(derivationID)
	}

	step, err := e.computeStep(ctx, deriv.FinalStepID, opts, opts.SkipCache)
	if err != nil {
		return DerivationResult{}, err
	}
	return DerivationResult{
		Output:        step.Output,
		OutputHash:    step.OutputHash,
		ExecutionTree: step.ExecutionTree,
		TokensOutput:  step.TokensOutput,
	}, nil
}

// computeSCCEntry builds a fresh bounded-Jacobi context for unit and
// resolves derivationID within it, tagging the result's execution-tree root
// with scc_metadata (spec §4.7 step 5). This only runs at a fresh entry
// into the SCC; nested intra-SCC references reuse the caller's context via
// computeDerivationTree's first branch instead.
func (e *Engine) computeSCCEntry(ctx context.Context, derivationID string, unit planner.PlanUnit, opts Options) (DerivationResult, error) {
	iterations := opts.SCCIterations
	if iterations <= 0 {
		iterations = e.sccMaxIterations
	}
	seedPolicy := opts.SCCSeedPolicy
	if seedPolicy == "" {
		seedPolicy = e.sccSeedPolicy
	}

	sc, err := e.newSCCContext(ctx, unit.SCCID, unit.NodeIDs, iterations, seedPolicy)
	if err != nil {
		return DerivationResult{}, err
	}

	logging.SCC("entering scc %s for derivation %s (iterations=%d, seed_policy=%s, members=%v)", unit.SCCID, derivationID, iterations, seedPolicy, sc.members)

	result, err := e.evaluateSCCMember(ctx, derivationID, sc, opts)
	if err != nil {
		return DerivationResult{}, err
	}

	tree := result.ExecutionTree
	tree.SCCMetadata = &model.SCCMetadata{
		SCCID:          sc.sccID,
		IterationCount: sc.iterationCount,
		Members:        sc.members,
	}
	result.ExecutionTree = tree
	return result, nil
}
