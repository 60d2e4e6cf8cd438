package engine

import (
	"context"
	"sort"

	"deriveengine/internal/canon"
	"deriveengine/internal/logging"
	"deriveengine/internal/model"
)

const (
	seedPolicyEmpty     = "empty"
	seedPolicyLastCache = "last_cache"
)

// sccSeed is one member's iteration-buffer entry (spec §4.7 step 2): the
// value a reference returns once its remaining_budget is exhausted.
type sccSeed struct {
	output     string
	outputHash model.Hash
	tree       model.DependencyNode
}

// sccContext is one SccExecutionContext: the state shared by every call
// participating in a single bounded-Jacobi evaluation entered at one member
// (spec §4.7 step 4). It is mutated in place as budget is consumed; a fresh
// sccContext is built each time a request or an external reference enters
// the SCC anew, never reused across independent entries.
type sccContext struct {
	sccID           string
	members         []string // deterministically sorted (spec §4.7 step 1)
	iterationCount  int
	seeds           map[string]sccSeed
	remainingBudget map[string]int
}

func (c *sccContext) isMember(id string) bool {
	for _, m := range c.members {
		if m == id {
			return true
		}
	}
	return false
}

// newSCCContext builds a fresh bounded-Jacobi context for the SCC whose
// sorted member ids are given, seeding every member's buffer entry and
// allocating a full remaining_budget for every member (spec §4.7 steps
// 1-3).
func (e *Engine) newSCCContext(ctx context.Context, sccID string, memberIDs []string, iterations int, seedPolicy string) (*sccContext, error) {
	if iterations <= 0 {
		iterations = 1
	}
	if seedPolicy == "" {
		seedPolicy = seedPolicyEmpty
	}

	sorted, err := e.sortSCCMembers(memberIDs)
	if err != nil {
		return nil, err
	}

	seeds := make(map[string]sccSeed, len(sorted))
	budget := make(map[string]int, len(sorted))
	for _, id := range sorted {
		seed, err := e.seedFor(id, seedPolicy)
		if err != nil {
			return nil, err
		}
		seeds[id] = seed
		budget[id] = iterations
	}

	return &sccContext{
		sccID:           sccID,
		members:         sorted,
		iterationCount:  iterations,
		seeds:           seeds,
		remainingBudget: budget,
	}, nil
}

// sortSCCMembers orders members by (H(canonical_json(normalize(recipe_params))),
// created_at, derivation_id) (spec §4.7 step 1).
func (e *Engine) sortSCCMembers(memberIDs []string) ([]string, error) {
	type keyed struct {
		id        string
		shapeHash string
		createdAt int64
	}

	entries := make([]keyed, 0, len(memberIDs))
	for _, id := range memberIDs {
		deriv, found, err := e.store.FindDerivation(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, notFoundErr(id)
		}
		shape, err := canon.MarshalString(normalizeRecipe(deriv.RecipeParams))
		if err != nil {
			return nil, err
		}
		entries = append(entries, keyed{id: id, shapeHash: string(model.HashString(shape)), createdAt: deriv.CreatedAt})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].shapeHash != entries[j].shapeHash {
			return entries[i].shapeHash < entries[j].shapeHash
		}
		if entries[i].createdAt != entries[j].createdAt {
			return entries[i].createdAt < entries[j].createdAt
		}
		return entries[i].id < entries[j].id
	})

	out := make([]string, len(entries))
	for i, en := range entries {
		out[i] = en.id
	}
	return out, nil
}

// normalizeRecipe replaces non-semantic identifiers in a recipe with fixed
// placeholders so structurally equivalent recipes hash identically (spec
// §4.7 step 1).
func normalizeRecipe(r model.StepRecipe) model.StepRecipe {
	return model.StepRecipe{
		Operation: r.Operation,
		Params:    r.Params,
		Inputs:    normalizeInputs(r.Inputs),
	}
}

func normalizeInputs(inputs []model.InputDescriptor) []model.InputDescriptor {
	out := make([]model.InputDescriptor, len(inputs))
	for i, in := range inputs {
		n := model.InputDescriptor{Kind: in.Kind}
		switch in.Kind {
		case model.InputContent:
			n.Hash = "<hash>"
		case model.InputConstant:
			n.Value = "<value>"
		case model.InputPinnedPath:
			n.Path = "<path>"
		case model.InputDerivation:
			n.DerivationID = "<derivation>"
		case model.InputComputedStep:
			n.StepID = "<step>"
			if in.Step != nil {
				normalized := normalizeRecipe(*in.Step)
				n.Step = &normalized
			}
		case model.InputInternalStepLink:
			n.StepID = "<step>"
		}
		out[i] = n
	}
	return out
}

// seedFor builds the iteration-buffer entry a reference to id returns once
// its budget is exhausted (spec §4.7 step 2).
func (e *Engine) seedFor(id string, policy string) (sccSeed, error) {
	if policy == seedPolicyLastCache {
		seed, ok, err := e.lastCacheSeed(id)
		if err != nil {
			return sccSeed{}, err
		}
		if ok {
			return seed, nil
		}
		logging.SCCWarn("last_cache seed unavailable or shape mismatch for derivation %s, falling back to empty", id)
	}
	return e.emptySeed()
}

// emptySeed is the empty-content seed entry (spec §4.7 step 2, policy
// "empty"): content "" with its hash precomputed into the content cache,
// and an execution-tree leaf already marked cached with no children.
func (e *Engine) emptySeed() (sccSeed, error) {
	if err := e.store.PutContent(model.EmptyContentHash, nil); err != nil {
		return sccSeed{}, err
	}
	return sccSeed{
		output:     "",
		outputHash: model.EmptyContentHash,
		tree: model.DependencyNode{
			Kind:        model.InputDerivation,
			Hash:        model.EmptyContentHash,
			CacheStatus: model.CacheStatusCached,
		},
	}, nil
}

// lastCacheSeed attempts to load derivation id's most recently persisted
// step result as a seed. It reports ok=false (caller falls back to empty)
// when no result is cached yet, or when the cached tree's shape no longer
// matches the derivation's current recipe (spec §9's open question on
// last_cache with a changed recipe).
func (e *Engine) lastCacheSeed(id string) (sccSeed, bool, error) {
	deriv, found, err := e.store.FindDerivation(id)
	if err != nil || !found {
		return sccSeed{}, false, err
	}
	row, tree, found, err := e.store.FindResultByStep(deriv.FinalStepID)
	if err != nil || !found {
		return sccSeed{}, false, err
	}
	if len(tree.Children) != len(deriv.RecipeParams.Inputs) {
		return sccSeed{}, false, nil
	}
	content, found, err := e.store.GetContent(row.OutputContentHash)
	if err != nil || !found {
		return sccSeed{}, false, err
	}
	tree.CacheStatus = model.CacheStatusCached
	return sccSeed{output: string(content), outputHash: row.OutputContentHash, tree: tree}, true, nil
}

// evaluateSCCMember resolves one member's value within an in-progress
// bounded-Jacobi context, consuming one unit of that member's
// remaining_budget (spec §4.7 step 4). If the budget is already exhausted
// the buffered seed is returned unchanged and uncounted as a fresh
// computation; otherwise the member's recipe is computed one level deeper,
// threading the same context through any nested intra-SCC references.
func (e *Engine) evaluateSCCMember(ctx context.Context, id string, sc *sccContext, opts Options) (DerivationResult, error) {
	if sc.remainingBudget[id] <= 0 {
		seed := sc.seeds[id]
		return DerivationResult{Output: seed.output, OutputHash: seed.outputHash, ExecutionTree: seed.tree}, nil
	}
	sc.remainingBudget[id]--

	deriv, found, err := e.store.FindDerivation(id)
	if err != nil {
		return DerivationResult{}, err
	}
	if !found {
		return DerivationResult{}, notFoundErr(id)
	}

	childOpts := Options{Plan: opts.Plan, SCCContext: sc, OnEvent: opts.OnEvent}
	stepResult, err := e.computeStep(ctx, deriv.FinalStepID, childOpts, opts.SkipCache)
	if err != nil {
		return DerivationResult{}, err
	}
	return DerivationResult{
		Output:        stepResult.Output,
		OutputHash:    stepResult.OutputHash,
		ExecutionTree: stepResult.ExecutionTree,
		TokensOutput:  stepResult.TokensOutput,
	}, nil
}
