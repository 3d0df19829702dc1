package algorithms

import (
	"container/heap"
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
)

type rankedEdge struct {
	index int
	score float64
}

// rankedEdgeHeap implements a min-heap by score.
type rankedEdgeHeap []rankedEdge

func (h rankedEdgeHeap) Len() int { return len(h) }
func (h rankedEdgeHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].index > h[j].index
}
func (h rankedEdgeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedEdgeHeap) Push(x any) {
	*h = append(*h, x.(rankedEdge))
}

func (h *rankedEdgeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// topEdges returns the n edges with the highest positive scores, ordered by
// score descending then edge order.
func topEdges(g *graph.Graph, scores []float64, n int) []RankedEdge {
	if n <= 0 || len(scores) == 0 {
		return nil
	}

	h := make(rankedEdgeHeap, 0, n)
	for i, s := range scores {
		if s <= 0 {
			continue
		}
		re := rankedEdge{index: i, score: s}
		if h.Len() < n {
			heap.Push(&h, re)
		} else if s > h[0].score {
			heap.Pop(&h)
			heap.Push(&h, re)
		}
	}

	picked := make([]rankedEdge, len(h))
	copy(picked, h)
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].score != picked[j].score {
			return picked[i].score > picked[j].score
		}
		return picked[i].index < picked[j].index
	})

	edges := g.Edges()
	out := make([]RankedEdge, len(picked))
	for i, p := range picked {
		out[i] = RankedEdge{Source: edges[p.index].Source, Target: edges[p.index].Target, Score: p.score}
	}
	return out
}
