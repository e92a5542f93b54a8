// Package graph is the in-memory directed multigraph of symbol dependencies:
// adjacency lists keyed by interned FQN ids, cycle detection via Tarjan's
// SCC, and bounded-depth BFS traversal for upstream/downstream queries.
package graph

import (
	"sort"
	"sync"

	"github.com/omnicontext/omnicontext/internal/types"
)

// edge is one outgoing arc, carrying enough to undo it on file re-indexing.
type edge struct {
	to   uint64
	kind types.EdgeKind
}

// pendingEdge is an edge whose target FQN has not yet been registered as a
// symbol. It is promoted into the adjacency list once RegisterSymbol sees
// that FQN.
type pendingEdge struct {
	fileID uint64
	from   uint64
	kind   types.EdgeKind
}

// Graph is the dependency graph over symbol FQNs, safe for concurrent use.
type Graph struct {
	mu sync.RWMutex

	idToFQN map[uint64]string
	known   map[uint64]bool // FQNs registered via RegisterSymbol (i.e. defined, not just referenced)

	forward map[uint64][]edge // from -> edges
	reverse map[uint64][]edge // to -> edges (mirrors forward, for upstream queries)

	pending map[string][]pendingEdge // unresolved target FQN -> edges waiting on it

	edgesByFile map[uint64][]fileEdge // for remove_edges_from(file_id)
}

type fileEdge struct {
	from, to uint64
	kind     types.EdgeKind
}

// New builds an empty graph.
func New() *Graph {
	return &Graph{
		idToFQN:     make(map[uint64]string),
		known:       make(map[uint64]bool),
		forward:     make(map[uint64][]edge),
		reverse:     make(map[uint64][]edge),
		pending:     make(map[string][]pendingEdge),
		edgesByFile: make(map[uint64][]fileEdge),
	}
}

func (g *Graph) intern(fqn string) uint64 {
	id := types.InternFQN(fqn)
	g.idToFQN[id] = fqn
	return id
}

// RegisterSymbol marks fqn as a known, defined symbol and promotes any
// pending edges that were waiting on it.
func (g *Graph) RegisterSymbol(fqn string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.intern(fqn)
	g.known[id] = true

	waiting := g.pending[fqn]
	delete(g.pending, fqn)
	for _, pe := range waiting {
		g.addEdgeLocked(pe.fileID, pe.from, id, pe.kind)
	}
}

// AddEdge records a directed dependency discovered while indexing fileID.
// If toFQN has not yet been registered as a symbol, the edge is held pending
// until RegisterSymbol(toFQN) promotes it.
func (g *Graph) AddEdge(fileID uint64, fromFQN, toFQN string, kind types.EdgeKind) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fromID := g.intern(fromFQN)
	toID := g.intern(toFQN)

	if !g.known[toID] {
		g.pending[toFQN] = append(g.pending[toFQN], pendingEdge{fileID: fileID, from: fromID, kind: kind})
		return
	}
	g.addEdgeLocked(fileID, fromID, toID, kind)
}

func (g *Graph) addEdgeLocked(fileID, fromID, toID uint64, kind types.EdgeKind) {
	g.forward[fromID] = append(g.forward[fromID], edge{to: toID, kind: kind})
	g.reverse[toID] = append(g.reverse[toID], edge{to: fromID, kind: kind})
	g.edgesByFile[fileID] = append(g.edgesByFile[fileID], fileEdge{from: fromID, to: toID, kind: kind})

	sortByDestination(g.forward[fromID])
	sortByDestination(g.reverse[toID])
}

// sortByDestination keeps adjacency lists sorted by destination FQN id, the
// ordering find_cycles() relies on for deterministic output.
func sortByDestination(edges []edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].to < edges[j].to })
}

// RemoveEdgesFromFile drops every edge previously added on behalf of fileID,
// including any that are still pending on an unresolved target. A file's
// subgraph is always rebuilt from scratch on re-index.
func (g *Graph) RemoveEdgesFromFile(fileID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, fe := range g.edgesByFile[fileID] {
		g.forward[fe.from] = removeEdge(g.forward[fe.from], fe.to, fe.kind)
		g.reverse[fe.to] = removeEdge(g.reverse[fe.to], fe.from, fe.kind)
	}
	delete(g.edgesByFile, fileID)

	for target, edges := range g.pending {
		kept := edges[:0]
		for _, pe := range edges {
			if pe.fileID != fileID {
				kept = append(kept, pe)
			}
		}
		if len(kept) == 0 {
			delete(g.pending, target)
		} else {
			g.pending[target] = kept
		}
	}
}

func removeEdge(edges []edge, to uint64, kind types.EdgeKind) []edge {
	out := edges[:0]
	for _, e := range edges {
		if e.to == to && e.kind == kind {
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Upstream returns fqn's callers/dependents within depth hops, via reverse
// adjacency BFS with deduplication.
func (g *Graph) Upstream(fqn string, depth int) []string {
	return g.traverse(fqn, depth, g.reverse)
}

// Downstream returns fqn's callees/dependencies within depth hops, via
// forward adjacency BFS with deduplication.
func (g *Graph) Downstream(fqn string, depth int) []string {
	return g.traverse(fqn, depth, g.forward)
}

func (g *Graph) traverse(fqn string, depth int, adj map[uint64][]edge) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start := types.InternFQN(fqn)
	visited := map[uint64]bool{start: true}
	frontier := []uint64{start}
	var result []string

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []uint64
		for _, id := range frontier {
			for _, e := range adj[id] {
				if visited[e.to] {
					continue
				}
				visited[e.to] = true
				next = append(next, e.to)
				if name, ok := g.idToFQN[e.to]; ok {
					result = append(result, name)
				}
			}
		}
		frontier = next
	}
	return result
}

// NodeCount returns the number of distinct FQNs interned so far, known or
// pending-only.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.idToFQN)
}

// EdgeCount returns the number of live (non-pending) edges currently held.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, edges := range g.forward {
		n += len(edges)
	}
	return n
}
