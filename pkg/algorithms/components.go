package algorithms

import (
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
)

// Component is one connected component.
type Component struct {
	ID    int            `json:"id"`
	Nodes []graph.NodeID `json:"nodes"`
	Size  int            `json:"size"`
	// Density is the share of possible node pairs that are connected.
	Density float64 `json:"density"`
}

// ConnectedComponents finds all connected components of g, largest first,
// ties broken by smallest member id.
func ConnectedComponents(g *graph.Graph) []Component {
	n := g.NodeCount()
	visited := make([]bool, n)
	var components []Component

	queue := make([]int, 0, n)
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		visited[start] = true
		queue = append(queue[:0], start)
		edgeEnds := 0
		var members []graph.NodeID
		for head := 0; head < len(queue); head++ {
			v := queue[head]
			members = append(members, g.NodeAt(v).ID)
			for _, nb := range g.Adjacency(v) {
				edgeEnds++
				if !visited[nb.Index] {
					visited[nb.Index] = true
					queue = append(queue, nb.Index)
				}
			}
		}

		c := Component{Nodes: members, Size: len(members)}
		if c.Size > 1 {
			pairs := float64(c.Size*(c.Size-1)) / 2
			c.Density = float64(edgeEnds/2) / pairs
		}
		components = append(components, c)
	}

	sort.SliceStable(components, func(i, j int) bool {
		return components[i].Size > components[j].Size
	})
	for i := range components {
		components[i].ID = i
	}
	return components
}
