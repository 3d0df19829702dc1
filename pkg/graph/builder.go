package graph

import (
	"math"
	"slices"
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

type edgeKey struct {
	a, b NodeID
}

func makeEdgeKey(a, b NodeID) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

// Builder accumulates nodes and edges. Repeated edges between the same pair
// are merged by summing their weights.
type Builder struct {
	window  records.TimeWindow
	nodes   map[NodeID]*Node
	edges   map[edgeKey]float64
	skipped []SkippedRecord
	capped  []NodeID
}

// NewBuilder creates an empty builder for the given window.
func NewBuilder(window records.TimeWindow) *Builder {
	return &Builder{
		window: window,
		nodes:  make(map[NodeID]*Node),
		edges:  make(map[edgeKey]float64),
	}
}

// AddNode inserts n. When a node with the same id exists, missing label and
// metrics are filled in from n.
func (b *Builder) AddNode(n Node) {
	existing, ok := b.nodes[n.ID]
	if !ok {
		cp := n
		if n.Metrics != nil {
			cp.Metrics = make(map[string]float64, len(n.Metrics))
			for k, v := range n.Metrics {
				cp.Metrics[k] = v
			}
		}
		b.nodes[n.ID] = &cp
		return
	}
	if existing.Label == "" {
		existing.Label = n.Label
	}
	for k, v := range n.Metrics {
		if existing.Metrics == nil {
			existing.Metrics = make(map[string]float64, len(n.Metrics))
		}
		if _, set := existing.Metrics[k]; !set {
			existing.Metrics[k] = v
		}
	}
}

// HasNode reports whether id was added.
func (b *Builder) HasNode(id NodeID) bool {
	_, ok := b.nodes[id]
	return ok
}

// AddEdge adds weight to the edge between source and target.
func (b *Builder) AddEdge(source, target NodeID, weight float64) error {
	if source == target {
		return constructionError("add_edge", source, target, ErrSelfEdge)
	}
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return constructionError("add_edge", source, target, ErrInvalidWeight)
	}
	if _, ok := b.nodes[source]; !ok {
		return constructionError("add_edge", source, target, ErrUnknownNode)
	}
	if _, ok := b.nodes[target]; !ok {
		return constructionError("add_edge", source, target, ErrUnknownNode)
	}
	b.edges[makeEdgeKey(source, target)] += weight
	return nil
}

// skip records a malformed input record.
func (b *Builder) skip(index int, id, reason string) {
	b.skipped = append(b.skipped, SkippedRecord{Index: index, ID: id, Reason: reason})
}

// Build freezes the builder into an immutable Graph.
func (b *Builder) Build() *Graph {
	nodes := make([]Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	index := make(map[NodeID]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	edges := make([]Edge, 0, len(b.edges))
	for k, w := range b.edges {
		edges = append(edges, Edge{Source: k.a, Target: k.b, Weight: w})
	}
	sortEdges(edges)

	adj := make([][]Neighbor, len(nodes))
	for _, e := range edges {
		si, ti := index[e.Source], index[e.Target]
		adj[si] = append(adj[si], Neighbor{Index: ti, Weight: e.Weight})
		adj[ti] = append(adj[ti], Neighbor{Index: si, Weight: e.Weight})
	}
	for i := range adj {
		nb := adj[i]
		sort.Slice(nb, func(x, y int) bool { return nb[x].Index < nb[y].Index })
	}

	skipped := make([]SkippedRecord, len(b.skipped))
	copy(skipped, b.skipped)
	capped := slices.Clone(b.capped)
	slices.Sort(capped)

	return &Graph{
		window:      b.window,
		nodes:       nodes,
		index:       index,
		edges:       edges,
		adj:         adj,
		skipped:     skipped,
		capped:      capped,
		fingerprint: structuralFingerprint(nodes, edges),
	}
}
