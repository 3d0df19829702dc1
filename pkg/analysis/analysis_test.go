package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

var asOf = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func vid(id, channel string, views float64, kws ...string) records.ContentRecord {
	return records.ContentRecord{
		ID: id, Kind: records.KindVideo, ChannelID: channel, Keywords: kws,
		PublishedAt: asOf.Add(-24 * time.Hour),
		Metrics:     map[string]float64{records.MetricViews: views},
	}
}

func corpus() []records.ContentRecord {
	return []records.ContentRecord{
		{ID: "UC1", Kind: records.KindChannel, Title: "Big"},
		{ID: "UC2", Kind: records.KindChannel, Title: "Small"},
		vid("v1", "UC1", 9000, "go", "graphs"),
		vid("v2", "UC1", 7000, "go", "graphs"),
		vid("v3", "UC1", 6000, "go", "concurrency"),
		vid("v4", "UC2", 300, "graphs", "rust"),
		vid("v5", "UC2", 200, "rust", "wasm"),
	}
}

func buildInput(t *testing.T, lookup opportunity.CompetitionLookup) *report.Input {
	t.Helper()
	snap, err := records.NewSnapshot(records.WindowAll, asOf, corpus())
	require.NoError(t, err)
	g, err := graph.BuildSnapshot(snap, graph.Options{})
	require.NoError(t, err)
	res, _, err := algorithms.NewEngine(algorithms.DefaultConfig()).Compute(context.Background(), g)
	require.NoError(t, err)

	scores := opportunity.ScoreAll(g, res, lookup)
	opportunity.Sort(scores, opportunity.KeyOpportunity)

	quads := make(map[records.Kind]*quadrant.Result)
	for _, kind := range records.Kinds {
		q, err := quadrant.ClassifyRecords(kind, snap.Records, nil, nil, nil)
		require.NoError(t, err)
		quads[kind] = q
	}
	return &report.Input{Snapshot: snap, Graph: g, Centrality: res, Scores: scores, Quadrants: quads}
}

func TestOpportunityModule(t *testing.T) {
	in := buildInput(t, nil)
	cs, err := (&Opportunity{TopN: 3}).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, cs)

	byID := make(map[string]report.Conclusion)
	for _, c := range cs {
		byID[c.ID] = c
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
	}
	kwc, ok := byID["opportunity-keyword"]
	require.True(t, ok)
	assert.Equal(t, 1, kwc.Priority)
	assert.LessOrEqual(t, len(kwc.DataPoints), 3)
	assert.Equal(t, 0.7, kwc.Confidence, "competition unknown")

	_, ok = byID["opportunity-bridge"]
	assert.True(t, ok)
}

func TestOpportunityModule_ApproximateDiscount(t *testing.T) {
	in := buildInput(t, nil)
	approx := *in.Centrality
	approx.Approximate = true
	in.Centrality = &approx

	cs, err := (&Opportunity{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	for _, c := range cs {
		if c.ID == "opportunity-keyword" {
			assert.InDelta(t, 0.7*report.DefaultApproximateDiscount, c.Confidence, 1e-12)
		}
	}
}

func TestQuadrantModule(t *testing.T) {
	in := buildInput(t, nil)
	cs, err := (&Quadrant{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, cs)

	total := 0
	for _, c := range cs {
		total += c.DataPoints[0].Value.(int)
		assert.Contains(t, []int{1, 2, 3, 4}, c.Priority)
	}
	// every keyword, video and channel item is counted exactly once
	expected := 0
	for _, q := range in.Quadrants {
		expected += q.Total()
	}
	assert.Equal(t, expected, total)
}

func TestMarketHealthModule(t *testing.T) {
	in := buildInput(t, nil)
	cs, err := (&MarketHealth{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, cs, 2)

	conc := cs[0]
	assert.Equal(t, "market-health-concentration", conc.ID)
	assert.Equal(t, 1, conc.Priority, "UC1 holds almost every view")
	assert.Equal(t, "UC1", conc.DataPoints[2].Value)
	assert.Equal(t, "market-health-fragmentation", cs[1].ID)
}

func TestConcentration(t *testing.T) {
	shares, hhi := Concentration([]records.ContentRecord{
		vid("a", "X", 50), vid("b", "Y", 50), vid("c", "", 1000),
	})
	require.Len(t, shares, 2)
	assert.Equal(t, "X", shares[0].ChannelID)
	assert.InDelta(t, 0.5, hhi, 1e-12)

	shares, hhi = Concentration(nil)
	assert.Empty(t, shares)
	assert.Equal(t, 0.0, hhi)
}

func TestPatternModule(t *testing.T) {
	in := buildInput(t, nil)
	cs, err := (&Pattern{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, cs, 1, "only go+graphs recurs")
	assert.Equal(t, "pattern-go+graphs", cs[0].ID)
	assert.Equal(t, 2, cs[0].DataPoints[0].Value)
}

func TestCooccurringKeywords(t *testing.T) {
	pairs, err := CooccurringKeywords(context.Background(), corpus()[2:])
	require.NoError(t, err)
	require.NotEmpty(t, pairs)
	assert.Equal(t, KeywordPair{A: "go", B: "graphs", Count: 2, Views: 16000}, pairs[0])
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, pairs[i-1].Count, pairs[i].Count)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = CooccurringKeywords(ctx, corpus())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArbitrageModule(t *testing.T) {
	// Find the best opportunity node, then make its competition low.
	probe := buildInput(t, nil)
	best := probe.Scores[0].NodeID
	lookup := opportunity.StaticCompetition(map[graph.NodeID]float64{best: 0.1})

	in := buildInput(t, lookup)
	cs, err := (&Arbitrage{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, 1, cs[0].Priority)
	assert.Equal(t, string(best), cs[0].DataPoints[0].Label)
}

func TestArbitrageModule_NoKnownCompetition(t *testing.T) {
	in := buildInput(t, nil)
	cs, err := (&Arbitrage{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestArbitrageCandidates(t *testing.T) {
	m := &Arbitrage{Ratio: 0.5}
	scores := []opportunity.Score{
		{NodeID: "keyword:a", Opportunity: 1, Competition: 0.2, CompetitionKnown: true},
		{NodeID: "keyword:b", Opportunity: 0.6, Competition: 0.1, CompetitionKnown: true},
		{NodeID: "keyword:c", Opportunity: 0.4, Competition: 0.1, CompetitionKnown: true},
		{NodeID: "keyword:d", Opportunity: 0.9, Competition: 0.5, CompetitionKnown: false},
	}
	got := m.Candidates(scores)
	require.Len(t, got, 2)
	assert.Equal(t, graph.NodeID("keyword:a"), got[0].NodeID)
	assert.Equal(t, graph.NodeID("keyword:b"), got[1].NodeID)
}

func TestDefaultModulesWithSynthesizer(t *testing.T) {
	in := buildInput(t, nil)
	s := report.NewSynthesizer(report.Config{}, Default(Config{}))
	assert.Equal(t, []string{NameOpportunity, NameQuadrant, NameMarketHealth, NamePattern, NameArbitrage}, s.Modules())

	rep, err := s.Run(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, rep.Degraded)
	assert.NotEmpty(t, rep.Conclusions)
	assert.Equal(t, rep.Conclusions[0].Title, rep.Synthesis.Headline)
	assert.Equal(t, in.Snapshot.Fingerprint, rep.Research.Data.Fingerprint)
}

func TestFocusNarrowsModules(t *testing.T) {
	in := buildInput(t, nil)
	in.SetFocus("channel:UC2")

	cs, err := (&MarketHealth{}).Analyze(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, cs, 1, "fragmentation is a whole-graph finding")
	assert.Equal(t, "UC2", cs[0].DataPoints[2].Value)
}
