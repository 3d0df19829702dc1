// Package opportunity turns centrality into interestingness and opportunity
// scores and ranks nodes by them.
package opportunity

import (
	"fmt"
	"math"
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

const (
	// Epsilon keeps interestingness finite for nodes of near-zero degree.
	Epsilon = 1e-9
	// NeutralCompetition is used when no competition level is known.
	NeutralCompetition = 0.5

	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 100
)

// RankingKey selects the value a ranking is ordered by.
type RankingKey string

const (
	KeyInterestingness RankingKey = "interestingness"
	KeyBetweenness     RankingKey = "betweenness"
	KeyCloseness       RankingKey = "closeness"
	KeyOpportunity     RankingKey = "opportunity"
)

// RankingKeys lists every supported key.
var RankingKeys = []RankingKey{KeyInterestingness, KeyBetweenness, KeyCloseness, KeyOpportunity}

// ParseRankingKey validates a key name. The empty string selects
// interestingness.
func ParseRankingKey(s string) (RankingKey, error) {
	if s == "" {
		return KeyInterestingness, nil
	}
	for _, k := range RankingKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown ranking key %q", s)
}

// CompetitionLookup returns the competition level of a node, or false when
// none is known.
type CompetitionLookup func(id graph.NodeID) (level float64, ok bool)

// StaticCompetition adapts a map to a CompetitionLookup.
func StaticCompetition(levels map[graph.NodeID]float64) CompetitionLookup {
	return func(id graph.NodeID) (float64, bool) {
		v, ok := levels[id]
		return v, ok
	}
}

// Score is the opportunity of one node.
type Score struct {
	Rank             int          `json:"rank"`
	NodeID           graph.NodeID `json:"node_id"`
	Kind             records.Kind `json:"kind"`
	Label            string       `json:"label,omitempty"`
	Degree           float64      `json:"degree"`
	Betweenness      float64      `json:"betweenness"`
	Closeness        float64      `json:"closeness"`
	Interestingness  float64      `json:"interestingness"`
	Competition      float64      `json:"competition"`
	CompetitionKnown bool         `json:"competition_known"`
	Opportunity      float64      `json:"opportunity"`
}

// Value returns the score's value for key.
func (s Score) Value(key RankingKey) float64 {
	switch key {
	case KeyBetweenness:
		return s.Betweenness
	case KeyCloseness:
		return s.Closeness
	case KeyOpportunity:
		return s.Opportunity
	default:
		return s.Interestingness
	}
}

// Interestingness is betweenness / max(degree, Epsilon); nodes without
// incident edges score 0.
func Interestingness(betweenness, degree float64) float64 {
	if degree <= 0 || betweenness <= 0 {
		return 0
	}
	return betweenness / math.Max(degree, Epsilon)
}

// Competition resolves a node's competition level: clamped to [0,1], with
// NeutralCompetition for missing or NaN values.
func Competition(lookup CompetitionLookup, id graph.NodeID) (level float64, known bool) {
	if lookup == nil {
		return NeutralCompetition, false
	}
	v, ok := lookup(id)
	if !ok || math.IsNaN(v) {
		return NeutralCompetition, false
	}
	return math.Min(math.Max(v, 0), 1), true
}

// ScoreAll computes the opportunity of every node, in graph order.
func ScoreAll(g *graph.Graph, centrality *algorithms.Result, lookup CompetitionLookup) []Score {
	out := make([]Score, 0, g.NodeCount())
	for _, node := range g.Nodes() {
		c, ok := centrality.Score(node.ID)
		if !ok {
			c = algorithms.Score{NodeID: node.ID, Kind: node.Kind}
		}
		s := Score{
			NodeID:      node.ID,
			Kind:        node.Kind,
			Label:       node.Label,
			Degree:      c.Degree,
			Betweenness: c.Betweenness,
			Closeness:   c.Closeness,
		}
		s.Interestingness = Interestingness(c.Betweenness, c.Degree)
		s.Competition, s.CompetitionKnown = Competition(lookup, node.ID)
		s.Opportunity = (1 - s.Competition) * s.Interestingness
		out = append(out, s)
	}
	return out
}

// Sort orders scores by key descending, node id ascending, and assigns
// 1-based ranks.
func Sort(scores []Score, key RankingKey) {
	sort.SliceStable(scores, func(i, j int) bool {
		vi, vj := scores[i].Value(key), scores[j].Value(key)
		if vi != vj {
			return vi > vj
		}
		return scores[i].NodeID < scores[j].NodeID
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}

// ClampLimit maps 0 to DefaultLimit and clamps everything else into
// [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < MinLimit:
		return MinLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Request selects and paginates a ranking.
type Request struct {
	// Dimension restricts the ranking to one node kind; empty ranks all.
	Dimension records.Kind
	Key       RankingKey
	Limit     int
	Offset    int
}

// Page is one page of a ranking.
type Page struct {
	Key    RankingKey `json:"ranking_key"`
	Items  []Score    `json:"items"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Rank scores, filters, sorts and paginates. It is a pure function of its
// inputs.
func Rank(g *graph.Graph, centrality *algorithms.Result, lookup CompetitionLookup, req Request) Page {
	key := req.Key
	if key == "" {
		key = KeyInterestingness
	}
	limit := ClampLimit(req.Limit)
	offset := max(req.Offset, 0)

	all := ScoreAll(g, centrality, lookup)
	scores := all[:0]
	for _, s := range all {
		if req.Dimension == "" || s.Kind == req.Dimension {
			scores = append(scores, s)
		}
	}
	Sort(scores, key)

	page := Page{Key: key, Total: len(scores), Limit: limit, Offset: offset, Items: []Score{}}
	if offset >= len(scores) {
		return page
	}
	end := min(offset+limit, len(scores))
	page.Items = append(page.Items, scores[offset:end]...)
	return page
}
