package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// HHI bands, following the usual antitrust thresholds on a [0,1] scale.
const (
	ConcentratedHHI        = 0.25
	ModeratelyConcentrated = 0.15
)

// MarketHealth measures how concentrated views are across channels and how
// fragmented the relation graph is.
type MarketHealth struct{}

func (m *MarketHealth) Name() string { return NameMarketHealth }

// ChannelShare is one channel's share of views.
type ChannelShare struct {
	ChannelID string
	Views     float64
	Share     float64
}

// Concentration computes per-channel view shares, ordered by share
// descending then channel id, and the Herfindahl-Hirschman index.
func Concentration(videos []records.ContentRecord) (shares []ChannelShare, hhi float64) {
	byChannel := make(map[string]float64)
	total := 0.0
	for _, v := range videos {
		if v.ChannelID == "" {
			continue
		}
		views := max(v.Metric(records.MetricViews), 0)
		byChannel[v.ChannelID] += views
		total += views
	}
	if total == 0 {
		return nil, 0
	}
	for id, views := range byChannel {
		share := views / total
		shares = append(shares, ChannelShare{ChannelID: id, Views: views, Share: share})
		hhi += share * share
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Share != shares[j].Share {
			return shares[i].Share > shares[j].Share
		}
		return shares[i].ChannelID < shares[j].ChannelID
	})
	return shares, hhi
}

func (m *MarketHealth) Analyze(ctx context.Context, in *report.Input) ([]report.Conclusion, error) {
	var out []report.Conclusion

	shares, hhi := Concentration(in.ScopedVideos())
	if len(shares) > 0 {
		top := shares[0]
		priority, verdict, action := 3, "competitive", "Entry is open: no channel dominates attention."
		switch {
		case hhi >= ConcentratedHHI:
			priority, verdict, action = 1, "concentrated", "Target topics the dominant channel does not cover."
		case hhi >= ModeratelyConcentrated:
			priority, verdict, action = 2, "moderately concentrated", "Differentiate from the leading channels' formats."
		}
		points := []report.DataPoint{
			{Label: "hhi", Value: round4(hhi)},
			{Label: "channels", Value: len(shares)},
			{Label: "top_channel", Value: top.ChannelID},
			{Label: "top_channel_share", Value: round4(top.Share)},
		}
		out = append(out, report.Conclusion{
			ID:      "market-health-concentration",
			Title:   fmt.Sprintf("Market is %s", verdict),
			Summary: fmt.Sprintf("HHI %.3f across %d channel(s); %s holds %.1f%% of views.", hhi, len(shares), top.ChannelID, top.Share*100),
			Reasoning: []string{
				"The Herfindahl-Hirschman index sums squared view shares per channel.",
				fmt.Sprintf("Values from %.2f indicate moderate and from %.2f high concentration.", ModeratelyConcentrated, ConcentratedHHI),
			},
			DataPoints:  points,
			ActionItems: []string{action},
			Priority:    priority,
			Confidence:  min(0.5+0.1*float64(len(shares)), 0.9),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.Graph != nil && in.Graph.NodeCount() > 0 && in.Focus == "" {
		comps := algorithms.ConnectedComponents(in.Graph)
		largest := float64(comps[0].Size) / float64(in.Graph.NodeCount())
		priority := 4
		if len(comps) > 1 && largest < 0.5 {
			priority = 2
		}
		out = append(out, report.Conclusion{
			ID:      "market-health-fragmentation",
			Title:   fmt.Sprintf("Topic graph has %d connected cluster(s)", len(comps)),
			Summary: fmt.Sprintf("The largest cluster covers %.1f%% of nodes.", largest*100),
			Reasoning: []string{
				"Disconnected clusters share no channel, video or keyword relation.",
				"A fragmented graph leaves room for content that links clusters.",
			},
			DataPoints: []report.DataPoint{
				{Label: "components", Value: len(comps)},
				{Label: "largest_component_share", Value: round4(largest)},
				{Label: "largest_component_density", Value: round4(comps[0].Density)},
			},
			ActionItems: []string{"Look for keywords that could connect the largest clusters."},
			Priority:    priority,
			Confidence:  0.8,
		})
	}

	return out, nil
}
