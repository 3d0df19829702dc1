package analytics

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
)

// RankingQuery selects a ranking page.
type RankingQuery struct {
	Dimension records.Kind
	Window    records.TimeWindow
	Key       opportunity.RankingKey
	Limit     int
	Offset    int
}

// Ranking is one page of ranked nodes.
type Ranking struct {
	Window      records.TimeWindow `json:"window"`
	Dimension   records.Kind       `json:"dimension,omitempty"`
	Fingerprint string             `json:"fingerprint"`
	Approximate bool               `json:"approximate"`
	opportunity.Page
	Warnings []errcode.Warning `json:"warnings,omitempty"`
}

// GetRanking ranks the nodes of a window. Two calls against an unchanged
// snapshot return the same order.
func (s *Service) GetRanking(ctx context.Context, q RankingQuery) (out *Ranking, err error) {
	start := time.Now()
	window := s.window(q.Window)
	defer func() { s.finish(OpRanking, start, err, logging.Window(string(window))) }()

	st, err := s.load(ctx, window)
	if err != nil {
		return nil, err
	}
	key := q.Key
	if key == "" {
		key = s.opts.DefaultKey
	}
	limit := q.Limit
	if limit == 0 && s.opts.DefaultLimit > 0 {
		limit = s.opts.DefaultLimit
	}

	page := opportunity.Rank(st.graph, st.centrality, s.lookup(ctx, st.graph, q.Dimension), opportunity.Request{
		Dimension: q.Dimension,
		Key:       key,
		Limit:     limit,
		Offset:    q.Offset,
	})
	return &Ranking{
		Window:      window,
		Dimension:   q.Dimension,
		Fingerprint: st.snap.Fingerprint,
		Approximate: st.centrality.Approximate,
		Page:        page,
		Warnings:    st.warnings,
	}, nil
}

// QuadrantQuery selects a quadrant classification.
type QuadrantQuery struct {
	Dimension records.Kind
	Window    records.TimeWindow
}

// Matrix is the supply x demand classification of one dimension.
type Matrix struct {
	Window      records.TimeWindow                 `json:"window"`
	Dimension   records.Kind                       `json:"dimension"`
	Fingerprint string                             `json:"fingerprint"`
	Quadrants   map[quadrant.ID]*quadrant.Quadrant `json:"quadrants"`
	X           quadrant.Axis                      `json:"x_axis"`
	Y           quadrant.Axis                      `json:"y_axis"`
	Total       int                                `json:"total"`
	Skipped     []string                           `json:"skipped,omitempty"`
	Warnings    []errcode.Warning                  `json:"warnings,omitempty"`
}

// GetQuadrants classifies the items of one dimension into the four
// quadrants. Every eligible item lands in exactly one quadrant.
func (s *Service) GetQuadrants(ctx context.Context, q QuadrantQuery) (out *Matrix, err error) {
	start := time.Now()
	window := s.window(q.Window)
	defer func() { s.finish(OpQuadrants, start, err, logging.Window(string(window))) }()

	if q.Dimension == "" {
		return nil, errcode.New(errcode.InvalidRequest, "dimension is required")
	}
	snap, err := s.source.Snapshot(ctx, window)
	if err != nil {
		s.recorder.RecordSourceError(s.source.Name())
		return nil, err
	}
	res, err := quadrant.ClassifyRecords(q.Dimension, snap.Records, s.opts.XThreshold, s.opts.YThreshold, s.opts.QuadrantLabels)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidRequest, "classify", err)
	}
	return newMatrix(window, q.Dimension, snap.Fingerprint, res), nil
}

func newMatrix(window records.TimeWindow, dim records.Kind, fp string, res *quadrant.Result) *Matrix {
	m := &Matrix{
		Window:      window,
		Dimension:   dim,
		Fingerprint: fp,
		Quadrants:   res.Quadrants,
		X:           res.X,
		Y:           res.Y,
		Total:       res.Total(),
		Skipped:     res.Skipped,
	}
	for _, w := range res.Warnings {
		m.Warnings = append(m.Warnings, errcode.AsWarning(w))
	}
	return m
}

// ReportQuery selects a report. At most one of VideoID and ChannelID may
// be set.
type ReportQuery struct {
	VideoID   string
	ChannelID string
	Window    records.TimeWindow
}

// GetReport runs every report module over the window and synthesizes the
// result. A focus id narrows the report to that node and its neighbours; an
// unknown focus is NOT_FOUND.
func (s *Service) GetReport(ctx context.Context, q ReportQuery) (out *report.Report, err error) {
	start := time.Now()
	window := s.window(q.Window)
	defer func() { s.finish(OpReport, start, err, logging.Window(string(window))) }()

	focus, err := focusID(q)
	if err != nil {
		return nil, err
	}

	st, err := s.load(ctx, window)
	if err != nil {
		return nil, err
	}
	if focus != "" {
		if _, ok := st.graph.Node(focus); !ok {
			return nil, errcode.New(errcode.NotFound, fmt.Sprintf("%s not found in window %s", focus, window))
		}
	}

	scores := opportunity.ScoreAll(st.graph, st.centrality, s.lookup(ctx, st.graph, ""))
	opportunity.Sort(scores, opportunity.KeyOpportunity)

	quads := make(map[records.Kind]*quadrant.Result, len(records.Kinds))
	var warnings []errcode.Warning
	for _, kind := range records.Kinds {
		res, err := quadrant.ClassifyRecords(kind, st.snap.Records, s.opts.XThreshold, s.opts.YThreshold, s.opts.QuadrantLabels)
		if err != nil {
			return nil, err
		}
		quads[kind] = res
		for _, w := range res.Warnings {
			warnings = append(warnings, errcode.AsWarning(w))
		}
	}

	in := &report.Input{
		Snapshot:   st.snap,
		Graph:      st.graph,
		Centrality: st.centrality,
		Scores:     scores,
		Quadrants:  quads,
	}
	if focus != "" {
		in.SetFocus(focus)
	}

	synthStart := time.Now()
	rep, err := s.synth.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	failed := make([]string, 0, len(rep.Failures))
	for _, f := range rep.Failures {
		failed = append(failed, f.Module)
	}
	s.recorder.RecordReport(rep.Degraded, failed, time.Since(synthStart))

	rep.Warnings = append(slices.Clone(st.warnings), append(rep.Warnings, warnings...)...)
	return rep, nil
}

func focusID(q ReportQuery) (graph.NodeID, error) {
	switch {
	case q.VideoID != "" && q.ChannelID != "":
		return "", errcode.New(errcode.InvalidRequest, "videoId and channelId are mutually exclusive")
	case q.VideoID != "":
		return graph.MakeNodeID(records.KindVideo, q.VideoID), nil
	case q.ChannelID != "":
		return graph.MakeNodeID(records.KindChannel, q.ChannelID), nil
	}
	return "", nil
}
