package planner

import (
	"sort"
	"strings"

	"deriveengine/internal/enginerr"
)

// Build discovers the derivation graph reachable from rootID, detects its
// strongly connected components, and returns the condensation's
// deterministic topological order as an ExecutionPlan (spec §4.4).
func Build(loader Loader, rootID string) (*ExecutionPlan, error) {
	edges, err := discoverEdges(loader, rootID)
	if err != nil {
		return nil, err
	}

	components := tarjanSCC(edges)

	nodes := make(map[string]PlanNode)
	sccMembers := make(map[string][]string)

	for _, comp := range components {
		if len(comp) == 1 && !edges[comp[0]][comp[0]] {
			id := comp[0]
			nodes[id] = PlanNode{DerivationID: id, Status: NodeAcyclic}
			continue
		}
		sorted := append([]string(nil), comp...)
		sort.Strings(sorted)
		sccID := "scc-" + strings.Join(sorted, "-")
		sccMembers[sccID] = sorted
		for _, id := range sorted {
			nodes[id] = PlanNode{DerivationID: id, Status: NodeSCC, SCCID: sccID}
		}
	}

	componentOf := func(derivationID string) string {
		if n, ok := nodes[derivationID]; ok && n.Status == NodeSCC {
			return n.SCCID
		}
		return derivationID
	}

	allComponents := make(map[string]bool)
	for id := range nodes {
		allComponents[componentOf(id)] = true
	}

	dependsOn := make(map[string]map[string]bool) // component -> set of components it depends on
	for a, deps := range edges {
		ca := componentOf(a)
		for b := range deps {
			cb := componentOf(b)
			if ca == cb {
				continue
			}
			if dependsOn[ca] == nil {
				dependsOn[ca] = make(map[string]bool)
			}
			dependsOn[ca][cb] = true
		}
	}

	consumers := make(map[string]map[string]bool) // component -> set of components depending on it
	indegree := make(map[string]int)
	for id := range allComponents {
		indegree[id] = 0
	}
	for ca, deps := range dependsOn {
		for cb := range deps {
			indegree[ca]++
			if consumers[cb] == nil {
				consumers[cb] = make(map[string]bool)
			}
			consumers[cb][ca] = true
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, c := range sortedKeys(consumers[id]) {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(order) != len(allComponents) {
		return nil, enginerr.New(enginerr.KindPlanningInternalError, "condensation is not a DAG: topological sort covered %d of %d components", len(order), len(allComponents))
	}

	plan := &ExecutionPlan{Nodes: nodes}
	for _, compID := range order {
		if members, ok := sccMembers[compID]; ok {
			plan.Units = append(plan.Units, PlanUnit{Type: UnitSCC, SCCID: compID, NodeIDs: members})
			plan.HasCycles = true
		} else {
			plan.Units = append(plan.Units, PlanUnit{Type: UnitAcyclic, NodeID: compID})
		}
	}

	return plan, nil
}
