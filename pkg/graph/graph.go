// Package graph holds the immutable, weighted, undirected opportunity graph
// built from one record snapshot.
package graph

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// NodeID identifies a node as "<kind>:<record id>".
type NodeID string

// MakeNodeID builds the node id of a record.
func MakeNodeID(kind records.Kind, id string) NodeID {
	return NodeID(string(kind) + ":" + id)
}

// Node is a video, channel or keyword participating in the graph.
type Node struct {
	ID      NodeID             `json:"id"`
	Kind    records.Kind       `json:"kind"`
	Key     string             `json:"key"`
	Label   string             `json:"label,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Edge is an undirected weighted relation. Source < Target.
type Edge struct {
	Source NodeID  `json:"source"`
	Target NodeID  `json:"target"`
	Weight float64 `json:"weight"`
}

// Neighbor is one adjacency entry, addressed by node index.
type Neighbor struct {
	Index  int
	Weight float64
}

// Graph is read-only once built; it is safe for concurrent readers.
type Graph struct {
	window      records.TimeWindow
	nodes       []Node
	index       map[NodeID]int
	edges       []Edge
	adj         [][]Neighbor
	skipped     []SkippedRecord
	capped      []NodeID
	fingerprint string
}

// Window returns the time window the graph was built for.
func (g *Graph) Window() records.TimeWindow { return g.window }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of merged edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeAt returns the node at index i. Nodes are ordered by id.
func (g *Graph) NodeAt(i int) Node { return g.nodes[i] }

// Node looks a node up by id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// IndexOf returns the index of a node id.
func (g *Graph) IndexOf(id NodeID) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Nodes returns a copy of the node list, ordered by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge list, ordered by (source, target).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Adjacency returns the neighbours of node i ordered by index. The slice is
// shared and must not be modified.
func (g *Graph) Adjacency(i int) []Neighbor { return g.adj[i] }

// Neighbors returns the ids of the nodes adjacent to id.
func (g *Graph) Neighbors(id NodeID) []NodeID {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]NodeID, 0, len(g.adj[i]))
	for _, nb := range g.adj[i] {
		out = append(out, g.nodes[nb.Index].ID)
	}
	return out
}

// TotalWeight returns the sum of all edge weights.
func (g *Graph) TotalWeight() float64 {
	total := 0.0
	for _, e := range g.edges {
		total += e.Weight
	}
	return total
}

// Skipped returns the records the builder could not use.
func (g *Graph) Skipped() []SkippedRecord {
	out := make([]SkippedRecord, len(g.skipped))
	copy(out, g.skipped)
	return out
}

// MalformedError returns a *MalformedRecordError when records were skipped,
// nil otherwise.
func (g *Graph) MalformedError() error {
	if len(g.skipped) == 0 {
		return nil
	}
	return &MalformedRecordError{Skipped: g.Skipped()}
}

// CappedKeywords returns the keywords whose video-video relations were
// dropped by Options.MaxVideosPerKeyword, ordered by id.
func (g *Graph) CappedKeywords() []NodeID {
	out := make([]NodeID, len(g.capped))
	copy(out, g.capped)
	return out
}

// Fingerprint identifies the graph structure: node ids, edges and weights.
func (g *Graph) Fingerprint() string { return g.fingerprint }

func structuralFingerprint(nodes []Node, edges []Edge) string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, n := range nodes {
		h.Write([]byte(n.ID))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, e := range edges {
		h.Write([]byte(e.Source))
		h.Write([]byte{0})
		h.Write([]byte(e.Target))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(e.Weight))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}
