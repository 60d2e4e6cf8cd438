package planner

import "sort"

// tarjanState carries Tarjan's algorithm's working sets across the
// recursive strongconnect calls.
type tarjanState struct {
	counter int
	stack   []string
	onStack map[string]bool
	index   map[string]int
	lowlink map[string]int
	sccs    [][]string
}

// tarjanSCC returns every strongly connected component of the graph
// described by edges (node -> set of successor nodes), visiting nodes in
// sorted order for determinism.
func tarjanSCC(edges map[string]map[string]bool) [][]string {
	nodes := make([]string, 0, len(edges))
	for n := range edges {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	st := &tarjanState{
		onStack: make(map[string]bool),
		index:   make(map[string]int),
		lowlink: make(map[string]int),
	}
	for _, n := range nodes {
		if _, seen := st.index[n]; !seen {
			strongconnect(n, edges, st)
		}
	}
	return st.sccs
}

func strongconnect(v string, edges map[string]map[string]bool, st *tarjanState) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, w := range sortedKeys(edges[v]) {
		if _, seen := st.index[w]; !seen {
			strongconnect(w, edges, st)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var component []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, component)
	}
}
