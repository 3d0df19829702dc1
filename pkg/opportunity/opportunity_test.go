package opportunity

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

func fixture(t testing.TB) (*graph.Graph, *algorithms.Result) {
	t.Helper()
	recs := []records.ContentRecord{
		{ID: "UC1", Kind: records.KindChannel, Title: "One"},
		{ID: "UC2", Kind: records.KindChannel, Title: "Two"},
		{ID: "v1", Kind: records.KindVideo, ChannelID: "UC1", Keywords: []string{"go", "graphs"}},
		{ID: "v2", Kind: records.KindVideo, ChannelID: "UC1", Keywords: []string{"go"}},
		{ID: "v3", Kind: records.KindVideo, ChannelID: "UC2", Keywords: []string{"graphs", "rust"}},
		{ID: "v4", Kind: records.KindVideo, ChannelID: "UC2", Keywords: []string{"rust"}},
	}
	g, err := graph.Build(recs, records.WindowAll, graph.Options{})
	require.NoError(t, err)
	res, _, err := algorithms.NewEngine(algorithms.DefaultConfig()).Compute(context.Background(), g)
	require.NoError(t, err)
	return g, res
}

func TestInterestingness(t *testing.T) {
	assert.Equal(t, 0.0, Interestingness(0, 0))
	assert.Equal(t, 0.0, Interestingness(0.5, 0))
	assert.Equal(t, 0.25, Interestingness(0.5, 2))
}

func TestCompetition(t *testing.T) {
	lookup := StaticCompetition(map[graph.NodeID]float64{
		"keyword:go":   0.2,
		"keyword:rust": 3,
		"keyword:nan":  math.NaN(),
	})

	tests := []struct {
		id    graph.NodeID
		level float64
		known bool
	}{
		{"keyword:go", 0.2, true},
		{"keyword:rust", 1, true},
		{"keyword:nan", NeutralCompetition, false},
		{"keyword:missing", NeutralCompetition, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			level, known := Competition(lookup, tt.id)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.known, known)
		})
	}

	level, known := Competition(nil, "keyword:go")
	assert.Equal(t, NeutralCompetition, level)
	assert.False(t, known)
}

func TestRank_MissingCompetitionIsNeutral(t *testing.T) {
	g, res := fixture(t)
	page := Rank(g, res, func(graph.NodeID) (float64, bool) { return 0, false }, Request{Limit: 100})

	require.Equal(t, g.NodeCount(), page.Total)
	for _, s := range page.Items {
		assert.InDelta(t, 0.5*s.Interestingness, s.Opportunity, 1e-12, s.NodeID)
		assert.False(t, s.CompetitionKnown)
	}
}

func TestRank_OrderAndTieBreak(t *testing.T) {
	g, res := fixture(t)
	for _, key := range RankingKeys {
		t.Run(string(key), func(t *testing.T) {
			page := Rank(g, res, nil, Request{Key: key, Limit: 100})
			for i := 1; i < len(page.Items); i++ {
				prev, cur := page.Items[i-1], page.Items[i]
				if prev.Value(key) == cur.Value(key) {
					assert.Less(t, prev.NodeID, cur.NodeID)
				} else {
					assert.Greater(t, prev.Value(key), cur.Value(key))
				}
				assert.Equal(t, i+1, cur.Rank)
			}
		})
	}
}

func TestRank_DimensionAndPagination(t *testing.T) {
	g, res := fixture(t)

	page := Rank(g, res, nil, Request{Dimension: records.KindVideo, Limit: 2, Offset: 1})
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Items[0].Rank)
	for _, s := range page.Items {
		assert.Equal(t, records.KindVideo, s.Kind)
	}

	past := Rank(g, res, nil, Request{Dimension: records.KindVideo, Offset: 10})
	assert.Equal(t, 4, past.Total)
	assert.Empty(t, past.Items)
	assert.NotNil(t, past.Items)

	neg := Rank(g, res, nil, Request{Offset: -3})
	assert.Equal(t, 0, neg.Offset)
}

func TestRank_EmptyGraph(t *testing.T) {
	g, err := graph.Build(nil, records.Window7d, graph.Options{})
	require.NoError(t, err)
	res, _, err := algorithms.NewEngine(algorithms.DefaultConfig()).Compute(context.Background(), g)
	require.NoError(t, err)

	page := Rank(g, res, nil, Request{})
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Items)
	assert.Equal(t, DefaultLimit, page.Limit)
}

func TestRank_Idempotent(t *testing.T) {
	g, res := fixture(t)
	lookup := StaticCompetition(map[graph.NodeID]float64{"keyword:go": 0.9, "video:v3": 0.1})
	req := Request{Key: KeyOpportunity, Limit: 50}
	assert.Equal(t, Rank(g, res, lookup, req), Rank(g, res, lookup, req))
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultLimit},
		{-5, MinLimit},
		{1, 1},
		{100, 100},
		{101, MaxLimit},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, ClampLimit(tt.in))
		})
	}
}

func TestParseRankingKey(t *testing.T) {
	k, err := ParseRankingKey("")
	require.NoError(t, err)
	assert.Equal(t, KeyInterestingness, k)

	k, err = ParseRankingKey("closeness")
	require.NoError(t, err)
	assert.Equal(t, KeyCloseness, k)

	_, err = ParseRankingKey("pagerank")
	assert.Error(t, err)
}

func TestRankProperties(t *testing.T) {
	g, res := fixture(t)
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("page size never exceeds the clamped limit", prop.ForAll(
		func(limit, offset int) bool {
			page := Rank(g, res, nil, Request{Limit: limit, Offset: offset})
			return len(page.Items) <= ClampLimit(limit) && page.Limit >= MinLimit && page.Limit <= MaxLimit
		},
		gen.IntRange(-200, 200),
		gen.IntRange(-5, 20),
	))

	properties.Property("opportunity never exceeds interestingness", prop.ForAll(
		func(level float64) bool {
			lookup := func(graph.NodeID) (float64, bool) { return level, true }
			for _, s := range ScoreAll(g, res, lookup) {
				if s.Opportunity > s.Interestingness+1e-12 || s.Opportunity < 0 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(-1, 2),
	))

	properties.TestingRun(t)
}
