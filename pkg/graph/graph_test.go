package graph

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

var published = time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

func video(id, channel string, keywords ...string) records.ContentRecord {
	return records.ContentRecord{ID: id, Kind: records.KindVideo, ChannelID: channel, Keywords: keywords, PublishedAt: published}
}

func TestBuild_EmptyInput(t *testing.T) {
	g, err := Build(nil, records.Window30d, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.NoError(t, g.MalformedError())
}

func TestBuild_Relations(t *testing.T) {
	recs := []records.ContentRecord{
		{ID: "UC1", Kind: records.KindChannel, Title: "Gophers"},
		video("v1", "UC1", "go", "graphs"),
		video("v2", "UC1", "Go"),
	}

	g, err := Build(recs, records.Window30d, Options{})
	require.NoError(t, err)

	// channel, 2 videos, 2 keywords
	assert.Equal(t, 5, g.NodeCount())

	weights := make(map[[2]NodeID]float64)
	for _, e := range g.Edges() {
		weights[[2]NodeID{e.Source, e.Target}] = e.Weight
	}
	assert.Equal(t, 1.0, weights[[2]NodeID{"channel:UC1", "video:v1"}])
	assert.Equal(t, 1.0, weights[[2]NodeID{"channel:UC1", "video:v2"}])
	assert.Equal(t, 2.0, weights[[2]NodeID{"channel:UC1", "keyword:go"}], "two videos of the channel tag go")
	assert.Equal(t, 1.0, weights[[2]NodeID{"channel:UC1", "keyword:graphs"}])
	assert.Equal(t, 1.0, weights[[2]NodeID{"keyword:go", "video:v1"}])
	assert.Equal(t, 1.0, weights[[2]NodeID{"video:v1", "video:v2"}], "one shared keyword")

	ch, ok := g.Node("channel:UC1")
	require.True(t, ok)
	assert.Equal(t, "Gophers", ch.Label)
}

func TestBuild_MalformedRecordsAreCounted(t *testing.T) {
	recs := []records.ContentRecord{
		{ID: "", Kind: records.KindVideo},
		{ID: "x", Kind: "playlist"},
		{ID: "v9", Kind: records.KindVideo},
		video("v1", "UC1"),
		video("v1", "UC1"),
	}

	g, err := Build(recs, records.WindowAll, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount(), "v1 plus implicit channel")

	var malformed *MalformedRecordError
	require.True(t, errors.As(g.MalformedError(), &malformed))
	assert.Equal(t, 4, malformed.Count())
	assert.Equal(t, errcode.MalformedRecord, errcode.Of(g.MalformedError()))
	assert.Equal(t, "missing id", malformed.Skipped[0].Reason)
	assert.Equal(t, "duplicate record", malformed.Skipped[3].Reason)
}

func TestBuild_RequireChannels(t *testing.T) {
	_, err := Build([]records.ContentRecord{video("v1", "UC404")}, records.WindowAll, Options{RequireChannels: true})

	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, ErrMissingChannel)
	assert.Equal(t, errcode.GraphConstruction, errcode.Of(err))
}

func TestBuild_KeywordFanoutLimit(t *testing.T) {
	recs := []records.ContentRecord{
		video("v1", "UC1", "popular"),
		video("v2", "UC1", "popular"),
		video("v3", "UC1", "popular"),
	}

	g, err := Build(recs, records.WindowAll, Options{MaxVideosPerKeyword: 2})
	require.NoError(t, err)
	for _, e := range g.Edges() {
		bothVideos := e.Source[:6] == "video:" && e.Target[:6] == "video:"
		assert.False(t, bothVideos, "unexpected video-video edge %v", e)
	}
	assert.Equal(t, []NodeID{"keyword:popular"}, g.CappedKeywords())

	// The default keeps every relation.
	g, err = Build(recs, records.WindowAll, Options{})
	require.NoError(t, err)
	assert.Contains(t, g.Neighbors("video:v1"), NodeID("video:v3"))
	assert.Empty(t, g.CappedKeywords())

	g, err = Build(recs, records.WindowAll, Options{MaxVideosPerKeyword: 3})
	require.NoError(t, err)
	assert.Contains(t, g.Neighbors("video:v1"), NodeID("video:v3"))
	assert.Empty(t, g.CappedKeywords())
}

func TestBuilder_AddEdgeErrors(t *testing.T) {
	b := NewBuilder(records.WindowAll)
	b.AddNode(Node{ID: "a"})
	b.AddNode(Node{ID: "b"})

	assert.ErrorIs(t, b.AddEdge("a", "a", 1), ErrSelfEdge)
	assert.ErrorIs(t, b.AddEdge("a", "z", 1), ErrUnknownNode)
	assert.ErrorIs(t, b.AddEdge("a", "b", 0), ErrInvalidWeight)
	assert.ErrorIs(t, b.AddEdge("a", "b", math.NaN()), ErrInvalidWeight)

	require.NoError(t, b.AddEdge("a", "b", 2))
	require.NoError(t, b.AddEdge("b", "a", 1.5))
	g := b.Build()
	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, Edge{Source: "a", Target: "b", Weight: 3.5}, g.Edges()[0])
}

func TestGraph_FingerprintIsStructural(t *testing.T) {
	recs := []records.ContentRecord{video("v1", "UC1", "go"), video("v2", "UC1", "go")}
	g1, err := Build(recs, records.WindowAll, Options{})
	require.NoError(t, err)
	g2, err := Build([]records.ContentRecord{recs[1], recs[0]}, records.WindowAll, Options{})
	require.NoError(t, err)
	assert.Equal(t, g1.Fingerprint(), g2.Fingerprint())

	g3, err := Build(recs[:1], records.WindowAll, Options{})
	require.NoError(t, err)
	assert.NotEqual(t, g1.Fingerprint(), g3.Fingerprint())
}

// TestGraphInvariants checks, for random record sets, that every edge
// endpoint exists and the weighted handshake lemma holds.
func TestGraphInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	genVideo := gopter.CombineGens(
		gen.IntRange(0, 30),
		gen.IntRange(0, 4),
		gen.SliceOfN(3, gen.IntRange(0, 6)),
	).Map(func(v []any) records.ContentRecord {
		kws := make([]string, 0, 3)
		for _, k := range v[2].([]int) {
			kws = append(kws, string(rune('a'+k)))
		}
		return video(
			"v"+string(rune('A'+v[0].(int))),
			"UC"+string(rune('0'+v[1].(int))),
			kws...,
		)
	})

	properties.Property("handshake: sum of weighted degrees is twice the total weight", prop.ForAll(
		func(recs []records.ContentRecord) bool {
			g, err := Build(recs, records.WindowAll, Options{})
			if err != nil {
				return false
			}
			sum := 0.0
			for i := 0; i < g.NodeCount(); i++ {
				for _, nb := range g.Adjacency(i) {
					sum += nb.Weight
				}
			}
			return math.Abs(sum-2*g.TotalWeight()) < 1e-9
		},
		gen.SliceOf(genVideo),
	))

	properties.Property("edge endpoints exist and no self edges", prop.ForAll(
		func(recs []records.ContentRecord) bool {
			g, err := Build(recs, records.WindowAll, Options{})
			if err != nil {
				return false
			}
			for _, e := range g.Edges() {
				_, okS := g.Node(e.Source)
				_, okT := g.Node(e.Target)
				if !okS || !okT || e.Source == e.Target || e.Weight <= 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genVideo),
	))

	properties.TestingRun(t)
}
