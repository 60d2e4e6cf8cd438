package engine

import (
	"context"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

// resolvedInput is one input descriptor resolved to a content hash, the
// dependency-tree node describing how it was produced, and (for
// pinned_path inputs only) the path->content it resolved to.
type resolvedInput struct {
	node       model.DependencyNode
	hash       model.Hash
	pinnedPath string
	pinnedHash model.ResolvedPinnedHash
	hasPinned  bool
}

// resolveInput produces a (dependency_tree_node, content_hash) pair for one
// input descriptor (spec §4.5 step 2). Nested compute_step/compute_derivation
// calls always run with SkipCache cleared: skip_cache applies only to the
// root step of the originating request.
func (e *Engine) resolveInput(ctx context.Context, in model.InputDescriptor, opts Options) (resolvedInput, error) {
	switch in.Kind {
	case model.InputContent:
		return resolvedInput{
			node: model.DependencyNode{Kind: model.InputContent, Hash: in.Hash},
			hash: in.Hash,
		}, nil

	case model.InputConstant:
		hash := model.HashString(in.Value)
		if err := e.store.PutContent(hash, []byte(in.Value)); err != nil {
			return resolvedInput{}, err
		}
		return resolvedInput{
			node: model.DependencyNode{Kind: model.InputConstant, Hash: hash},
			hash: hash,
		}, nil

	case model.InputPinnedPath:
		hash, err := e.store.ResolvePinnedPath(in.Path)
		if err != nil {
			return resolvedInput{}, err
		}
		content, found, err := e.store.GetContent(hash)
		if err != nil {
			return resolvedInput{}, err
		}
		if !found {
			return resolvedInput{}, enginerr.New(enginerr.KindInputContentHashNotFound, "pinned path %q resolved to missing content hash %s", in.Path, hash)
		}
		return resolvedInput{
			node:       model.DependencyNode{Kind: model.InputPinnedPath, Hash: hash},
			hash:       hash,
			pinnedPath: in.Path,
			pinnedHash: model.ResolvedPinnedHash{Content: string(content), Hash: hash},
			hasPinned:  true,
		}, nil

	case model.InputDerivation:
		childOpts := Options{
			Plan:          opts.Plan,
			SCCContext:    opts.SCCContext,
			SCCIterations: opts.SCCIterations,
			SCCSeedPolicy: opts.SCCSeedPolicy,
			OnEvent:       opts.OnEvent,
		}
		result, err := e.computeDerivation(ctx, in.DerivationID, childOpts)
		if err != nil {
			return resolvedInput{}, err
		}
		node := result.ExecutionTree
		node.Kind = model.InputDerivation
		return resolvedInput{node: node, hash: result.OutputHash}, nil

	case model.InputInternalStepLink:
		childOpts := Options{Plan: opts.Plan, SCCContext: opts.SCCContext, OnEvent: opts.OnEvent}
		result, err := e.computeStep(ctx, in.StepID, childOpts, false)
		if err != nil {
			return resolvedInput{}, err
		}
		node := result.ExecutionTree
		node.Kind = model.InputComputedStep
		return resolvedInput{node: node, hash: result.OutputHash}, nil

	default:
		return resolvedInput{}, enginerr.New(enginerr.KindUnexpectedDerivationComputationError, "unknown input kind %q", in.Kind)
	}
}
