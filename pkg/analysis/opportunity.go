package analysis

import (
	"context"
	"fmt"

	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// Opportunity reports the best-scoring node of each kind and the strongest
// bridge edge.
type Opportunity struct {
	TopN int
}

func (m *Opportunity) Name() string { return NameOpportunity }

// kindPriority ranks keyword gaps above individual videos and channels.
var kindPriority = map[records.Kind]int{
	records.KindKeyword: 1,
	records.KindVideo:   2,
	records.KindChannel: 2,
}

func (m *Opportunity) Analyze(ctx context.Context, in *report.Input) ([]report.Conclusion, error) {
	var out []report.Conclusion
	for _, kind := range []records.Kind{records.KindKeyword, records.KindVideo, records.KindChannel} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores := positive(in.ScopedScores(kind))
		if len(scores) == 0 {
			continue
		}
		opportunity.Sort(scores, opportunity.KeyOpportunity)
		best := scores[0]

		points := make([]report.DataPoint, 0, topN(m.TopN))
		for _, s := range scores[:min(topN(m.TopN), len(scores))] {
			points = append(points, report.DataPoint{Label: string(s.NodeID), Value: round4(s.Opportunity)})
		}

		confidence := 0.7
		if best.CompetitionKnown {
			confidence = 0.9
		}
		out = append(out, report.Conclusion{
			ID:    fmt.Sprintf("opportunity-%s", kind),
			Title: fmt.Sprintf("Top %s opportunity: %s", kind, label(best.Label, string(best.NodeID))),
			Summary: fmt.Sprintf("%s bridges otherwise separate parts of the graph (interestingness %.4f) at competition %.2f.",
				best.NodeID, best.Interestingness, best.Competition),
			Reasoning: []string{
				fmt.Sprintf("Betweenness %.4f over weighted degree %.1f gives interestingness %.4f.", best.Betweenness, best.Degree, best.Interestingness),
				fmt.Sprintf("Competition %.2f leaves opportunity %.4f.", best.Competition, best.Opportunity),
				fmt.Sprintf("%d %s node(s) have a positive opportunity score.", len(scores), kind),
			},
			DataPoints: points,
			ActionItems: []string{
				fmt.Sprintf("Review %s as a candidate topic.", best.NodeID),
			},
			Priority:   kindPriority[kind],
			Confidence: in.Confidence(confidence),
		})
	}

	if c, ok := m.bridge(in); ok {
		out = append(out, c)
	}

	if len(out) == 0 {
		out = append(out, report.Conclusion{
			ID:          "opportunity-none",
			Title:       "No bridging opportunities found",
			Summary:     "No node in scope lies on shortest paths between others.",
			Reasoning:   []string{"Every in-scope node has zero betweenness, so interestingness is zero everywhere."},
			DataPoints:  []report.DataPoint{{Label: "nodes", Value: len(in.ScopedScores(""))}},
			ActionItems: []string{"Widen the time window or the focus to include more related content."},
			Priority:    3,
			Confidence:  in.Confidence(0.6),
		})
	}
	return out, nil
}

func (m *Opportunity) bridge(in *report.Input) (report.Conclusion, bool) {
	if in.Centrality == nil {
		return report.Conclusion{}, false
	}
	for _, e := range in.Centrality.TopBridges {
		if !in.InScope(e.Source) || !in.InScope(e.Target) {
			continue
		}
		return report.Conclusion{
			ID:      "opportunity-bridge",
			Title:   fmt.Sprintf("Strongest bridge: %s and %s", e.Source, e.Target),
			Summary: fmt.Sprintf("%.2f%% of shortest paths run over this relation.", e.Score*100),
			Reasoning: []string{
				"Edge betweenness counts the shortest paths between all node pairs that use a relation.",
				"Content connecting both ends reaches audiences on either side.",
			},
			DataPoints:  []report.DataPoint{{Label: "edge_betweenness", Value: round4(e.Score)}},
			ActionItems: []string{fmt.Sprintf("Produce content that combines %s and %s.", e.Source, e.Target)},
			Priority:    2,
			Confidence:  in.Confidence(0.75),
		}, true
	}
	return report.Conclusion{}, false
}

func positive(scores []opportunity.Score) []opportunity.Score {
	out := scores[:0]
	for _, s := range scores {
		if s.Opportunity > 0 {
			out = append(out, s)
		}
	}
	return out
}
