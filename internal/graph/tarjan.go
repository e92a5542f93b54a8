package graph

import "sort"

// tarjanState carries the bookkeeping for the recursive form of Tarjan's
// SCC algorithm over the graph's forward adjacency.
type tarjanState struct {
	g *Graph

	index   map[uint64]int
	lowlink map[uint64]int
	onStack map[uint64]bool
	stack   []uint64
	counter int

	sccs [][]uint64
}

// FindCycles returns every cycle in the graph: each strongly connected
// component of size >= 2, plus any self-loop, reported as an ordered FQN
// slice rotated so its lexicographically smallest FQN comes first — the
// canonical form the dependency-graph invariant requires for determinism.
func (g *Graph) FindCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := &tarjanState{
		g:       g,
		index:   make(map[uint64]int),
		lowlink: make(map[uint64]int),
		onStack: make(map[uint64]bool),
	}

	// Visit nodes in sorted FQN order so find_cycles() is deterministic
	// given insertion order (edges within a node are already destination-sorted).
	ids := make([]uint64, 0, len(g.idToFQN))
	for id := range g.idToFQN {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return g.idToFQN[ids[i]] < g.idToFQN[ids[j]] })

	for _, id := range ids {
		if _, seen := st.index[id]; !seen {
			st.strongConnect(id)
		}
	}

	var cycles [][]string
	for _, scc := range st.sccs {
		if len(scc) >= 2 || isSelfLoop(g, scc) {
			cycles = append(cycles, canonicalize(g, scc))
		}
	}
	return cycles
}

// HasCycles reports whether the graph currently contains any cycle.
func (g *Graph) HasCycles() bool {
	return len(g.FindCycles()) > 0
}

func (st *tarjanState) strongConnect(v uint64) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, e := range st.g.forward[v] {
		w := e.to
		if _, seen := st.index[w]; !seen {
			st.strongConnect(w)
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
		var scc []uint64
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, scc)
	}
}

func isSelfLoop(g *Graph, scc []uint64) bool {
	if len(scc) != 1 {
		return false
	}
	v := scc[0]
	for _, e := range g.forward[v] {
		if e.to == v {
			return true
		}
	}
	return false
}

// canonicalize orders an SCC into a single deterministic cycle path rooted
// at its smallest FQN: starting there, repeatedly follow the
// destination-sorted forward edge that stays inside the SCC.
func canonicalize(g *Graph, scc []uint64) []string {
	inSCC := make(map[uint64]bool, len(scc))
	for _, id := range scc {
		inSCC[id] = true
	}

	sort.Slice(scc, func(i, j int) bool { return g.idToFQN[scc[i]] < g.idToFQN[scc[j]] })
	root := scc[0]

	order := []uint64{root}
	visited := map[uint64]bool{root: true}
	cur := root
	for len(order) < len(scc) {
		var next uint64
		found := false
		for _, e := range g.forward[cur] {
			if inSCC[e.to] && !visited[e.to] {
				next = e.to
				found = true
				break
			}
		}
		if !found {
			break
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}

	names := make([]string, len(order))
	for i, id := range order {
		names[i] = g.idToFQN[id]
	}
	return names
}
