package bindgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	dbgraph "github.com/dominikbraun/graph"
)

// Graph is the bipartite binding-graph container. Topology is delegated to
// dominikbraun/graph, configured with PreventCycles so acyclicity is
// enforced at the point of insertion rather than checked after the fact.
// Node identity doubles as the vertex hash;
// everything mutable -- path resolution, task state, scatter bookkeeping --
// lives in the attribute maps below, keyed by that same identity, per the
// "no runtime reflection / attribute bags" design note.
type Graph struct {
	g dbgraph.Graph[NodeID, NodeID]

	order []NodeID       // insertion order, used to break topological ties
	seq   map[NodeID]int // NodeID -> insertion index

	fileAttrs map[NodeID]*FileAttrs
	taskAttrs map[NodeID]*TaskAttrs
	taskMeta  map[NodeID]MetaTask // task-like nodes only

	// scatterChildren records, for each TaskScatter node, the TaskChunked
	// nodes created from it by ExpandChunks. This is bookkeeping the graph
	// needs to scope GraftGather to one scatter event; it is not a node
	// attribute from the data model, so it lives on the container instead.
	scatterChildren map[NodeID][]NodeID
}

func newGraph() *Graph {
	return &Graph{
		g:               dbgraph.New(func(id NodeID) NodeID { return id }, dbgraph.Directed(), dbgraph.PreventCycles()),
		seq:             make(map[NodeID]int),
		fileAttrs:       make(map[NodeID]*FileAttrs),
		taskAttrs:       make(map[NodeID]*TaskAttrs),
		taskMeta:        make(map[NodeID]MetaTask),
		scatterChildren: make(map[NodeID][]NodeID),
	}
}

// AddNode inserts id if it is not already present. Re-adding an existing id
// is a no-op (bindings frequently touch the same node from multiple sides).
// AddNode rejects any NodeID whose Kind is not one of the declared variants.
func (g *Graph) AddNode(id NodeID) error {
	if !id.Kind.valid() {
		return wrapf(ErrMalformedBindingGraph, "refusing to add node of unknown kind %v", id.Kind)
	}
	if _, err := g.g.Vertex(id); err == nil {
		return nil // already present
	}
	if err := g.g.AddVertex(id); err != nil {
		return wrapf(ErrMalformedBindingGraph, "add node %s: %v", id, err)
	}
	g.seq[id] = len(g.order)
	g.order = append(g.order, id)

	if id.IsFileLike() {
		g.fileAttrs[id] = defaultFileAttrs()
	} else {
		g.taskAttrs[id] = defaultTaskAttrs(0)
	}
	return nil
}

// AddEdge adds a directed edge from -> to. Both endpoints must already be
// present. Two task-like nodes are never directly connected -- every
// producer/consumer relationship between tasks runs through a file node.
// File-like -> file-like edges ARE permitted: the builder wires an out-file
// directly to the in-file it feeds so a resolved path floods downstream in
// one hop, and the scatter/gather rewriter does the same for chunk
// manifests. See DESIGN.md for why this is not a contradiction of the
// task/file bipartite model.
func (g *Graph) AddEdge(from, to NodeID) error {
	if from.IsTaskLike() && to.IsTaskLike() {
		return wrapf(ErrMalformedBindingGraph, "edge %s -> %s directly connects two task-like nodes", from, to)
	}
	if _, err := g.g.Edge(from, to); err == nil {
		return nil // already present; binding reuse is common
	}
	if err := g.g.AddEdge(from, to); err != nil {
		if err == dbgraph.ErrEdgeCreatesCycle {
			return wrapf(ErrCycleDetected, "%s -> %s", from, to)
		}
		return wrapf(ErrMalformedBindingGraph, "add edge %s -> %s: %v", from, to, err)
	}
	return nil
}

// HasNode reports whether id has been added to the graph.
func (g *Graph) HasNode(id NodeID) bool {
	_, err := g.g.Vertex(id)
	return err == nil
}

// Predecessors returns id's direct predecessors in a deterministic order.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	preds, err := g.g.PredecessorMap()
	if err != nil {
		return nil
	}
	return g.sortedKeys(preds[id])
}

// Successors returns id's direct successors in a deterministic order.
func (g *Graph) Successors(id NodeID) []NodeID {
	adj, err := g.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	return g.sortedKeys(adj[id])
}

func (g *Graph) sortedKeys(m map[NodeID]dbgraph.Edge[NodeID]) []NodeID {
	out := make([]NodeID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	g.sortByInsertion(out)
	return out
}

func (g *Graph) sortByInsertion(ids []NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && g.seq[ids[j-1]] > g.seq[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// InDegree returns the number of direct predecessors of id.
func (g *Graph) InDegree(id NodeID) int { return len(g.Predecessors(id)) }

// OutDegree returns the number of direct successors of id.
func (g *Graph) OutDegree(id NodeID) int { return len(g.Successors(id)) }

// TopologicalOrder returns every node in a stable topological order, ties
// broken by insertion order so test oracles stay deterministic.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	order, err := dbgraph.StableTopologicalSort(g.g, func(a, b NodeID) bool {
		return g.seq[a] < g.seq[b]
	})
	if err != nil {
		return nil, wrapf(ErrCycleDetected, "%v", err)
	}
	return order, nil
}

// TaskNodes returns every task-like node in canonical (topological) order.
func (g *Graph) TaskNodes() []NodeID { return g.filterByFamily(true) }

// FileNodes returns every file-like node in canonical (topological) order.
func (g *Graph) FileNodes() []NodeID { return g.filterByFamily(false) }

func (g *Graph) filterByFamily(taskLike bool) []NodeID {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil
	}
	out := make([]NodeID, 0, len(order))
	for _, id := range order {
		if id.IsTaskLike() == taskLike {
			out = append(out, id)
		}
	}
	return out
}

// TaskInputPaths returns the resolved path of every input-file predecessor
// of id, ordered by declared index. A predecessor that is not yet resolved
// contributes an empty string at its index.
func (g *Graph) TaskInputPaths(id NodeID) []string {
	preds := g.Predecessors(id)
	maxIdx := -1
	for _, p := range preds {
		if p.IsFileLike() && p.Index > maxIdx {
			maxIdx = p.Index
		}
	}
	out := make([]string, maxIdx+1)
	for _, p := range preds {
		if !p.IsFileLike() {
			continue
		}
		if attrs, ok := g.File(p); ok {
			out[p.Index] = attrs.Path
		}
	}
	return out
}

// File returns the mutable attributes for a file-like node.
func (g *Graph) File(id NodeID) (*FileAttrs, bool) {
	a, ok := g.fileAttrs[id]
	return a, ok
}

// Task returns the mutable attributes for a task-like node.
func (g *Graph) Task(id NodeID) (*TaskAttrs, bool) {
	a, ok := g.taskAttrs[id]
	return a, ok
}

// Meta returns the MetaTask catalog entry associated with a task-like node.
func (g *Graph) Meta(id NodeID) (MetaTask, bool) {
	m, ok := g.taskMeta[id]
	return m, ok
}

func (g *Graph) setMeta(id NodeID, m MetaTask) { g.taskMeta[id] = m }

// ScatterChildren returns the TaskChunked nodes ExpandChunks created from the
// TaskScatter node s, or nil if s has not been expanded.
func (g *Graph) ScatterChildren(s NodeID) []NodeID {
	children := g.scatterChildren[s]
	out := make([]NodeID, len(children))
	copy(out, children)
	return out
}

// Hash returns a stable content identity for the graph's current structure:
// sha256 over the canonical node order and the edge list, hex-encoded.
// Unlike attribute state, the hash only changes when nodes or edges are
// added, so two runs over the same bindings (and the same grafts) report the
// same identity.
func (g *Graph) Hash() string {
	h := sha256.New()
	writeField := func(data []byte) {
		length := uint64(len(data))
		h.Write([]byte{
			byte(length >> 56),
			byte(length >> 48),
			byte(length >> 40),
			byte(length >> 32),
			byte(length >> 24),
			byte(length >> 16),
			byte(length >> 8),
			byte(length),
		})
		h.Write(data)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		order = g.order
	}
	for _, id := range order {
		writeField([]byte(id.String()))
	}
	for _, id := range order {
		for _, succ := range g.Successors(id) {
			writeField([]byte(id.String() + ">" + succ.String()))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Summary is the node/edge census used by CLI and log reporting.
type Summary struct {
	Tasks       int
	Files       int
	EntryPoints int
	Edges       int
}

func (g *Graph) Summarize() Summary {
	var s Summary
	for _, id := range g.order {
		if id.IsTaskLike() {
			s.Tasks++
			if id.Kind == KindEntryPoint {
				s.EntryPoints++
			}
		} else {
			s.Files++
		}
	}
	adj, err := g.g.AdjacencyMap()
	if err == nil {
		for _, m := range adj {
			s.Edges += len(m)
		}
	}
	return s
}

func (s Summary) String() string {
	return "Tasks:" + strconv.Itoa(s.Tasks) + " Files:" + strconv.Itoa(s.Files) +
		" EntryPoints:" + strconv.Itoa(s.EntryPoints) + " Edges:" + strconv.Itoa(s.Edges)
}
