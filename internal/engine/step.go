package engine

import (
	"context"
	"time"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/logging"
	"deriveengine/internal/model"
)

// stepResult is compute_step's internal return shape: enough to build a
// DerivationResult at the derivation layer, or to feed straight into a
// parent's resolveInput as a child node.
type stepResult struct {
	Output        string
	OutputHash    model.Hash
	ExecutionTree model.DependencyNode
	TokensOutput  *int
}

func notFoundErr(derivationID string) error {
	return enginerr.New(enginerr.KindDerivationNotFound, "no derivation with id %q", derivationID)
}

// computeStep implements compute_step (spec §4.5), the evaluator's
// single-step algorithm: validate the recipe's arity, resolve every input,
// probe the result cache under the resulting cache key, execute the
// operation on a miss, persist atomically, and hand the output to the
// embedding sink. Arity is validated before any input is resolved so an
// arity-invalid recipe never gets its error masked by an unrelated
// input-resolution failure (spec §4.5 step 1 precedes step 2).
func (e *Engine) computeStep(ctx context.Context, stepID string, opts Options, skipCache bool) (stepResult, error) {
	recipe, found, err := e.store.GetStepParams(stepID)
	if err != nil {
		return stepResult{}, err
	}
	if !found {
		return stepResult{}, enginerr.New(enginerr.KindStepNotFound, "no step with id %q", stepID)
	}

	if err := e.ops.ValidateArity(recipe.Operation, len(recipe.Inputs)); err != nil {
		return stepResult{}, err
	}

	children := make([]model.DependencyNode, 0, len(recipe.Inputs))
	inputHashes := make([]model.Hash, 0, len(recipe.Inputs))
	inputStrings := make([]string, 0, len(recipe.Inputs))
	resolvedPinned := map[string]model.ResolvedPinnedHash{}

	for _, in := range recipe.Inputs {
		resolved, err := e.resolveInput(ctx, in, opts)
		if err != nil {
			return stepResult{}, err
		}
		children = append(children, resolved.node)
		inputHashes = append(inputHashes, resolved.hash)
		if resolved.hasPinned {
			resolvedPinned[resolved.pinnedPath] = resolved.pinnedHash
		}
		content, found, err := e.store.GetContent(resolved.hash)
		if err != nil {
			return stepResult{}, err
		}
		if !found {
			return stepResult{}, enginerr.New(enginerr.KindInputContentHashNotFound, "content hash %s not found while resolving step %q", resolved.hash, stepID)
		}
		inputStrings = append(inputStrings, string(content))
	}

	cacheKey, err := computeCacheKey(recipe, inputHashes)
	if err != nil {
		return stepResult{}, err
	}

	if !skipCache {
		if row, found, err := e.store.FindResultByCacheKey(cacheKey); err != nil {
			return stepResult{}, err
		} else if found {
			tree := model.DependencyNode{
				Kind:        model.InputComputedStep,
				Hash:        row.OutputContentHash,
				Operation:   recipe.Operation,
				CacheStatus: model.CacheStatusCached,
				Warnings:    row.Warnings,
				Children:    children,
			}
			if err := e.store.LinkStepToCache(stepID, cacheKey, tree); err != nil {
				return stepResult{}, err
			}
			content, found, err := e.store.GetContent(row.OutputContentHash)
			if err != nil {
				return stepResult{}, err
			}
			if !found {
				return stepResult{}, enginerr.New(enginerr.KindInputContentHashNotFound, "cached output hash %s not found for cache key %s", row.OutputContentHash, cacheKey)
			}
			logging.EvaluatorDebug("step %s served from cache (key %s)", stepID, cacheKey)
			return stepResult{Output: string(content), OutputHash: row.OutputContentHash, ExecutionTree: tree}, nil
		}
	}

	result, err := e.ops.Execute(ctx, recipe.Operation, inputStrings, recipe.Params, e.env)
	if err != nil {
		return stepResult{}, err
	}

	outputHash := model.HashString(result.Output)
	if err := e.store.PutContent(outputHash, []byte(result.Output)); err != nil {
		return stepResult{}, err
	}

	row := model.ResultCacheRow{
		CacheKey:                  cacheKey,
		OutputContentHash:         outputHash,
		ResolvedPinnedInputHashes: resolvedPinned,
		InputContentHashes:        inputHashes,
		Warnings:                  result.Warnings,
		ComputedAt:                time.Now().Unix(),
	}
	tree := model.DependencyNode{
		Kind:        model.InputComputedStep,
		Hash:        outputHash,
		Operation:   recipe.Operation,
		CacheStatus: model.CacheStatusComputed,
		Warnings:    result.Warnings,
		Children:    children,
	}
	if err := e.store.PersistStepResult(stepID, outputHash, []byte(result.Output), row, tree); err != nil {
		return stepResult{}, err
	}

	e.sink.Submit(outputHash, []byte(result.Output))

	logging.EvaluatorDebug("step %s computed (operation %s, key %s)", stepID, recipe.Operation, cacheKey)
	return stepResult{Output: result.Output, OutputHash: outputHash, ExecutionTree: tree, TokensOutput: result.TokensOutput}, nil
}
