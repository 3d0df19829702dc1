package analysis

import (
	"context"
	"fmt"

	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// DefaultArbitrageRatio is the default share of the best opportunity an
// arbitrage candidate must reach.
const DefaultArbitrageRatio = 0.75

// Arbitrage reports nodes whose opportunity is close to the best in scope
// while their known competition is below neutral.
type Arbitrage struct {
	Ratio float64
	TopN  int
}

func (m *Arbitrage) Name() string { return NameArbitrage }

func (m *Arbitrage) ratio() float64 {
	if m.Ratio <= 0 || m.Ratio > 1 {
		return DefaultArbitrageRatio
	}
	return m.Ratio
}

// Candidates returns the arbitrage candidates among scores, ordered by
// opportunity.
func (m *Arbitrage) Candidates(scores []opportunity.Score) []opportunity.Score {
	best := 0.0
	for _, s := range scores {
		best = max(best, s.Opportunity)
	}
	if best <= 0 {
		return nil
	}
	cut := best * m.ratio()
	var out []opportunity.Score
	for _, s := range scores {
		if s.Opportunity >= cut && s.CompetitionKnown && s.Competition < opportunity.NeutralCompetition {
			out = append(out, s)
		}
	}
	opportunity.Sort(out, opportunity.KeyOpportunity)
	return out
}

func (m *Arbitrage) Analyze(ctx context.Context, in *report.Input) ([]report.Conclusion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates := m.Candidates(in.ScopedScores(""))
	if len(candidates) == 0 {
		return nil, nil
	}

	points := make([]report.DataPoint, 0, topN(m.TopN))
	for _, s := range candidates[:min(topN(m.TopN), len(candidates))] {
		points = append(points, report.DataPoint{Label: string(s.NodeID), Value: round4(s.Opportunity)})
	}
	best := candidates[0]
	return []report.Conclusion{{
		ID:      "arbitrage-candidates",
		Title:   fmt.Sprintf("%d arbitrage candidate(s), led by %s", len(candidates), label(best.Label, string(best.NodeID))),
		Summary: fmt.Sprintf("%s combines opportunity %.4f with competition %.2f.", best.NodeID, best.Opportunity, best.Competition),
		Reasoning: []string{
			fmt.Sprintf("Candidates reach at least %.0f%% of the best opportunity in scope.", m.ratio()*100),
			fmt.Sprintf("Their measured competition is below the neutral %.1f.", opportunity.NeutralCompetition),
		},
		DataPoints:  points,
		ActionItems: []string{fmt.Sprintf("Move early on %s before competition rises.", best.NodeID)},
		Priority:    1,
		Confidence:  in.Confidence(0.85),
	}}, nil
}
