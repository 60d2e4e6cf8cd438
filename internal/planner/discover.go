package planner

import (
	"sort"

	"deriveengine/internal/enginerr"
	"deriveengine/internal/model"
)

// discoverEdges walks the derivation graph reachable from rootID,
// returning each derivation's direct dependency set (spec §4.4 step 1). A
// visited-set ensures each derivation's own recipe is walked only once,
// even under self-reference.
func discoverEdges(loader Loader, rootID string) (map[string]map[string]bool, error) {
	edges := make(map[string]map[string]bool)
	visited := map[string]bool{rootID: true}
	queue := []string{rootID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		deriv, found, err := loader.FindDerivation(id)
		if err != nil {
			return nil, enginerr.Wrap(enginerr.KindPlanningInternalError, err, "loading derivation %q", id)
		}
		if !found {
			return nil, enginerr.New(enginerr.KindFormulaNotFound, "derivation %q not found", id)
		}

		deps, err := collectDerivationRefs(loader, deriv.FinalStepID, map[string]bool{})
		if err != nil {
			return nil, enginerr.Wrap(enginerr.KindPlanningInternalError, err, "walking recipe tree of derivation %q", id)
		}

		set := make(map[string]bool, len(deps))
		for _, dep := range deps {
			set[dep] = true
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
		edges[id] = set
	}

	return edges, nil
}

// collectDerivationRefs descends a step's recipe tree through
// internal_step_link inputs, collecting the derivation ids referenced by
// derivation-typed inputs. All other input kinds are ignored (spec §4.4
// step 1).
func collectDerivationRefs(loader Loader, stepID string, stepVisited map[string]bool) ([]string, error) {
	if stepVisited[stepID] {
		return nil, nil
	}
	stepVisited[stepID] = true

	recipe, found, err := loader.GetStepParams(stepID)
	if err != nil {
		return nil, enginerr.Wrap(enginerr.KindPlanningInternalError, err, "loading step %q", stepID)
	}
	if !found {
		return nil, enginerr.New(enginerr.KindPlanningInternalError, "step %q referenced but not found", stepID)
	}

	var refs []string
	for _, in := range recipe.Inputs {
		switch in.Kind {
		case model.InputDerivation:
			refs = append(refs, in.DerivationID)
		case model.InputInternalStepLink:
			childRefs, err := collectDerivationRefs(loader, in.StepID, stepVisited)
			if err != nil {
				return nil, err
			}
			refs = append(refs, childRefs...)
		}
	}
	return refs, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
