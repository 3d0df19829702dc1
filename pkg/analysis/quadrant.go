package analysis

import (
	"context"
	"fmt"

	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// Quadrant reports every non-empty supply x demand bucket. Low supply with
// high demand ranks first.
type Quadrant struct {
	TopN int
}

func (m *Quadrant) Name() string { return NameQuadrant }

var quadrantPriority = map[quadrant.ID]int{
	quadrant.LowHigh:  1,
	quadrant.LowLow:   2,
	quadrant.HighHigh: 3,
	quadrant.HighLow:  4,
}

var quadrantAction = map[quadrant.ID]string{
	quadrant.LowHigh:  "Prioritise these items: demand outpaces the content supplying it.",
	quadrant.LowLow:   "Treat these as niche bets; validate demand before investing.",
	quadrant.HighHigh: "Compete only with a clear differentiation angle.",
	quadrant.HighLow:  "Avoid: supply already exceeds demand.",
}

func (m *Quadrant) Analyze(ctx context.Context, in *report.Input) ([]report.Conclusion, error) {
	var out []report.Conclusion
	for _, kind := range []records.Kind{records.KindKeyword, records.KindVideo, records.KindChannel} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, ok := in.Quadrants[kind]
		if !ok || res == nil {
			continue
		}

		confidence := 0.8
		if res.X.Degenerate || res.Y.Degenerate {
			confidence = 0.4
		}

		for _, q := range res.Ordered() {
			members := scoped(in, q.Members)
			if len(members) == 0 {
				continue
			}
			points := []report.DataPoint{
				{Label: "members", Value: len(members)},
				{Label: res.X.Name + "_threshold", Value: round4(res.X.Threshold)},
				{Label: res.Y.Name + "_threshold", Value: round4(res.Y.Threshold)},
			}
			for _, id := range members[:min(topN(m.TopN), len(members))] {
				points = append(points, report.DataPoint{Label: "example", Value: id})
			}

			reasoning := []string{
				fmt.Sprintf("%s items are split at %s %.2f and %s %.2f (median unless configured).",
					kind, res.X.Name, res.X.Threshold, res.Y.Name, res.Y.Threshold),
				fmt.Sprintf("%d of %d %s items fall in %s.", len(members), res.Total(), kind, q.ID),
			}
			for _, w := range res.Warnings {
				reasoning = append(reasoning, w.Error())
			}

			out = append(out, report.Conclusion{
				ID:          fmt.Sprintf("quadrant-%s-%s", kind, q.ID),
				Title:       fmt.Sprintf("%s %ss: %d", q.Label, kind, len(members)),
				Summary:     fmt.Sprintf("%d %s item(s) classified as %s (%s).", len(members), kind, q.Label, q.ID),
				Reasoning:   reasoning,
				DataPoints:  points,
				ActionItems: []string{quadrantAction[q.ID]},
				Priority:    quadrantPriority[q.ID],
				Confidence:  in.Confidence(confidence),
			})
		}
	}
	return out, nil
}

func scoped(in *report.Input, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if in.InScope(graph.NodeID(id)) {
			out = append(out, id)
		}
	}
	return out
}
