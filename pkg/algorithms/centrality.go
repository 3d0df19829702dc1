package algorithms

import (
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
)

// predEdge tracks a predecessor node and the edge used to reach it during BFS.
// This allows the back-propagation phase to accumulate flow onto specific edges.
type predEdge struct {
	node int
	edge int
}

// edgeIndex maps every adjacency entry to the index of its merged edge, so
// edge dependencies can be accumulated in a flat slice.
type edgeIndex [][]int

func newEdgeIndex(g *graph.Graph) edgeIndex {
	n := g.NodeCount()
	byPair := make(map[[2]int]int, g.EdgeCount())
	for i, e := range g.Edges() {
		s, _ := g.IndexOf(e.Source)
		t, _ := g.IndexOf(e.Target)
		byPair[[2]int{s, t}] = i
	}
	idx := make(edgeIndex, n)
	for v := 0; v < n; v++ {
		adj := g.Adjacency(v)
		idx[v] = make([]int, len(adj))
		for k, nb := range adj {
			a, b := v, nb.Index
			if a > b {
				a, b = b, a
			}
			idx[v][k] = byPair[[2]int{a, b}]
		}
	}
	return idx
}

// workspace holds the per-source BFS state, reused across sources of one chunk.
type workspace struct {
	stack []int
	queue []int
	pred  [][]predEdge
	sigma []float64
	dist  []int
	delta []float64
}

func newWorkspace(n int) *workspace {
	return &workspace{
		stack: make([]int, 0, n),
		queue: make([]int, 0, n),
		pred:  make([][]predEdge, n),
		sigma: make([]float64, n),
		dist:  make([]int, n),
		delta: make([]float64, n),
	}
}

// accumulator collects raw betweenness and distance sums for one chunk of
// sources. Chunks are merged in source order so float sums are reproducible.
type accumulator struct {
	betweenness []float64
	edges       []float64

	// reach/distSum count how often, and how far, a node was reached from
	// a processed source.
	reach   []int
	distSum []float64

	// own holds the exact closeness inputs of processed sources.
	own      []bool
	ownReach []int
	ownSum   []float64

	processed int
}

func newAccumulator(n, m int) *accumulator {
	return &accumulator{
		betweenness: make([]float64, n),
		edges:       make([]float64, m),
		reach:       make([]int, n),
		distSum:     make([]float64, n),
		own:         make([]bool, n),
		ownReach:    make([]int, n),
		ownSum:      make([]float64, n),
	}
}

// brandesPass runs a single BFS rooted at source over hop distances and
// back-propagates pair dependencies onto nodes and edges (raw, unnormalised).
func (a *accumulator) brandesPass(g *graph.Graph, edges edgeIndex, source int, ws *workspace) {
	for i := range ws.sigma {
		ws.pred[i] = ws.pred[i][:0]
		ws.sigma[i] = 0
		ws.dist[i] = -1
		ws.delta[i] = 0
	}
	ws.stack = ws.stack[:0]
	ws.queue = append(ws.queue[:0], source)
	ws.sigma[source] = 1
	ws.dist[source] = 0

	for head := 0; head < len(ws.queue); head++ {
		v := ws.queue[head]
		ws.stack = append(ws.stack, v)

		for k, nb := range g.Adjacency(v) {
			w := nb.Index
			if ws.dist[w] < 0 {
				ws.queue = append(ws.queue, w)
				ws.dist[w] = ws.dist[v] + 1
			}
			if ws.dist[w] == ws.dist[v]+1 {
				ws.sigma[w] += ws.sigma[v]
				ws.pred[w] = append(ws.pred[w], predEdge{node: v, edge: edges[v][k]})
			}
		}
	}

	sum := 0
	for _, v := range ws.stack[1:] {
		d := ws.dist[v]
		sum += d
		a.reach[v]++
		a.distSum[v] += float64(d)
	}
	a.own[source] = true
	a.ownReach[source] = len(ws.stack) - 1
	a.ownSum[source] = float64(sum)

	// Back-propagation: accumulate onto both nodes and edges
	for i := len(ws.stack) - 1; i >= 0; i-- {
		w := ws.stack[i]
		for _, p := range ws.pred[w] {
			contribution := (ws.sigma[p.node] / ws.sigma[w]) * (1.0 + ws.delta[w])
			ws.delta[p.node] += contribution
			a.edges[p.edge] += contribution
		}
		if w != source {
			a.betweenness[w] += ws.delta[w]
		}
	}
	a.processed++
}

// merge adds other into a.
func (a *accumulator) merge(other *accumulator) {
	for i := range a.betweenness {
		a.betweenness[i] += other.betweenness[i]
		a.reach[i] += other.reach[i]
		a.distSum[i] += other.distSum[i]
		if other.own[i] {
			a.own[i] = true
			a.ownReach[i] = other.ownReach[i]
			a.ownSum[i] = other.ownSum[i]
		}
	}
	for i := range a.edges {
		a.edges[i] += other.edges[i]
	}
	a.processed += other.processed
}

// weightedDegree returns the sum of incident edge weights per node.
func weightedDegree(g *graph.Graph) []float64 {
	out := make([]float64, g.NodeCount())
	for v := range out {
		for _, nb := range g.Adjacency(v) {
			out[v] += nb.Weight
		}
	}
	return out
}

// closeness turns distance sums into Wasserman-Faust closeness:
// (r/(n-1)) * (r/sum), where r is the number of reachable nodes. Nodes that
// were not themselves processed as sources are estimated from the processed
// sources that reached them.
func (a *accumulator) closeness() []float64 {
	n := len(a.reach)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	for v := 0; v < n; v++ {
		switch {
		case a.own[v]:
			if a.ownSum[v] > 0 {
				r := float64(a.ownReach[v])
				out[v] = (r / float64(n-1)) * (r / a.ownSum[v])
			}
		case a.reach[v] > 0 && a.processed > 0:
			r := float64(a.reach[v])
			share := min(r/float64(a.processed), 1)
			out[v] = share * (r / a.distSum[v])
		}
	}
	return out
}

// betweennessFraction scales raw dependencies to the fraction of node pairs
// whose shortest paths pass through each node. Contributions of a partial
// source set are extrapolated by n/processed.
func (a *accumulator) betweennessFraction() []float64 {
	n := len(a.betweenness)
	out := make([]float64, n)
	if n <= 2 || a.processed == 0 {
		return out
	}
	scale := float64(n) / float64(a.processed)
	norm := 1.0 / float64((n-1)*(n-2))
	for i, b := range a.betweenness {
		out[i] = b * scale * norm
	}
	return out
}

// edgeFraction applies the same extrapolation to edge dependencies, using
// the 1/(n(n-1)) pair normalisation.
func (a *accumulator) edgeFraction() []float64 {
	n := len(a.betweenness)
	out := make([]float64, len(a.edges))
	if n <= 1 || a.processed == 0 {
		return out
	}
	scale := float64(n) / float64(a.processed)
	norm := 1.0 / float64(n*(n-1))
	for i, b := range a.edges {
		out[i] = b * scale * norm
	}
	return out
}

// MinMax rescales values into [0,1]. When every value is equal the result is
// 1 for positive values and 0 otherwise.
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		if hi > 0 {
			for i := range out {
				out[i] = 1
			}
		}
		return out
	}
	span := hi - lo
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}
