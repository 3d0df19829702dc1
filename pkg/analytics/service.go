// Package analytics answers ranking, quadrant and report queries over the
// current record snapshot of a time window.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/cache"
	"github.com/qinglingtaxue/youtube--sub001/pkg/competition"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
)

// GraphCacheKind tags graph entries in the snapshot cache.
const GraphCacheKind = "graph"

const maxListedKeywords = 10

// Operation names used in logs and metrics.
const (
	OpRanking    = "ranking"
	OpQuadrants  = "quadrants"
	OpReport     = "report"
	OpInvalidate = "invalidate"
)

// Recorder receives service measurements. The metrics registry implements it.
type Recorder interface {
	RecordGraphBuild(window string, nodes, edges, skipped int, duration time.Duration)
	RecordCentrality(approximate, timedOut bool, duration time.Duration)
	RecordReport(degraded bool, failedModules []string, duration time.Duration)
	RecordQuery(operation, code string)
	RecordSourceError(source string)
	RecordInvalidation(window string)
}

type nopRecorder struct{}

func (nopRecorder) RecordGraphBuild(string, int, int, int, time.Duration) {}
func (nopRecorder) RecordCentrality(bool, bool, time.Duration)            {}
func (nopRecorder) RecordReport(bool, []string, time.Duration)            {}
func (nopRecorder) RecordQuery(string, string)                            {}
func (nopRecorder) RecordSourceError(string)                              {}
func (nopRecorder) RecordInvalidation(string)                             {}

// Options tunes query defaults and graph construction.
type Options struct {
	Graph          graph.Options
	DefaultWindow  records.TimeWindow
	DefaultKey     opportunity.RankingKey
	DefaultLimit   int
	QuadrantLabels map[quadrant.ID]string
	// XThreshold and YThreshold fix the quadrant split; nil uses the median.
	XThreshold *float64
	YThreshold *float64
	// MaxGraphs bounds the graph cache. Zero means cache.DefaultMaxEntries.
	MaxGraphs int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the measurement sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithCompetition sets the competition provider. Without one every node
// scores with neutral competition.
func WithCompetition(p competition.Provider) Option {
	return func(s *Service) { s.competition = p }
}

// WithCacheObserver reports graph cache events.
func WithCacheObserver(o cache.Observer) Option {
	return func(s *Service) { s.observer = o }
}

// Service is the query surface shared by every transport. It is safe for
// concurrent use.
type Service struct {
	source      source.Source
	engine      *algorithms.Engine
	synth       *report.Synthesizer
	competition competition.Provider
	graphs      *cache.Cache[*graph.Graph]
	opts        Options
	logger      logging.Logger
	recorder    Recorder
	observer    cache.Observer
}

// New creates a service.
func New(src source.Source, engine *algorithms.Engine, synth *report.Synthesizer, opts Options, options ...Option) *Service {
	if opts.DefaultWindow == "" {
		opts.DefaultWindow = records.Window30d
	}
	if opts.DefaultKey == "" {
		opts.DefaultKey = opportunity.KeyInterestingness
	}
	s := &Service{
		source:   src,
		engine:   engine,
		synth:    synth,
		opts:     opts,
		logger:   logging.NewNopLogger(),
		recorder: nopRecorder{},
	}
	for _, o := range options {
		o(s)
	}
	s.logger = s.logger.With(logging.Component("analytics"))

	cacheOpts := []cache.Option[*graph.Graph]{cache.WithLogger[*graph.Graph](s.logger)}
	if opts.MaxGraphs > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries[*graph.Graph](opts.MaxGraphs))
	}
	if s.observer != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver[*graph.Graph](s.observer))
	}
	s.graphs = cache.New[*graph.Graph](GraphCacheKind, cacheOpts...)
	return s
}

// Source returns the record source.
func (s *Service) Source() source.Source { return s.source }

// DefaultWindow returns the window used when a query names none.
func (s *Service) DefaultWindow() records.TimeWindow { return s.opts.DefaultWindow }

// state is the analysed snapshot of one window.
type state struct {
	snap       *records.Snapshot
	graph      *graph.Graph
	centrality *algorithms.Result
	warnings   []errcode.Warning
}

func (s *Service) window(w records.TimeWindow) records.TimeWindow {
	if w == "" {
		return s.opts.DefaultWindow
	}
	return w
}

// load fetches the snapshot, then the cached graph and centrality of it.
func (s *Service) load(ctx context.Context, window records.TimeWindow) (*state, error) {
	snap, err := s.source.Snapshot(ctx, window)
	if err != nil {
		s.recorder.RecordSourceError(s.source.Name())
		return nil, err
	}

	key := cache.Key{Window: window, Fingerprint: snap.Fingerprint, Kind: GraphCacheKind}
	g, _, err := s.graphs.Get(ctx, key, func(ctx context.Context) (*graph.Graph, error) {
		start := time.Now()
		g, err := graph.BuildSnapshot(snap, s.opts.Graph)
		if err != nil {
			return nil, err
		}
		d := time.Since(start)
		s.recorder.RecordGraphBuild(string(window), g.NodeCount(), g.EdgeCount(), len(g.Skipped()), d)
		s.logger.Info("graph built",
			logging.Window(string(window)),
			logging.Fingerprint(snap.Fingerprint),
			logging.Int("nodes", g.NodeCount()),
			logging.Int("edges", g.EdgeCount()),
			logging.Int("skipped", len(g.Skipped())),
			logging.Latency(d))
		if capped := g.CappedKeywords(); len(capped) > 0 {
			s.logger.Warn("video relations capped",
				logging.Window(string(window)),
				logging.Int("keywords", len(capped)),
				logging.Int("max_videos_per_keyword", s.opts.Graph.MaxVideosPerKeyword))
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}

	res, cached, err := s.engine.Compute(ctx, g)
	if err != nil {
		return nil, err
	}
	if !cached {
		s.recorder.RecordCentrality(res.Approximate, res.TimedOut, res.Duration)
	}

	st := &state{snap: snap, graph: g, centrality: res}
	if err := g.MalformedError(); err != nil {
		st.warnings = append(st.warnings, errcode.AsWarning(err))
	}
	if capped := g.CappedKeywords(); len(capped) > 0 {
		st.warnings = append(st.warnings, cappedWarning(capped, s.opts.Graph.MaxVideosPerKeyword))
	}
	switch {
	case res.TimedOut:
		st.warnings = append(st.warnings, errcode.AsWarning(res.Err()))
	case res.Approximate:
		st.warnings = append(st.warnings, errcode.Warning{
			Code: errcode.ApproximateResult,
			Message: fmt.Sprintf("betweenness and closeness estimated from %d of %d nodes",
				res.SourcesProcessed, g.NodeCount()),
		})
	}
	return st, nil
}

// lookup fetches competition levels for nodes of kind, or of every kind
// when kind is empty.
func (s *Service) lookup(ctx context.Context, g *graph.Graph, kind records.Kind) opportunity.CompetitionLookup {
	if s.competition == nil {
		return nil
	}
	ids := make([]graph.NodeID, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		if kind == "" || n.Kind == kind {
			ids = append(ids, n.ID)
		}
	}
	return competition.Lookup(ctx, s.competition, g.Window(), ids, s.logger)
}

func (s *Service) finish(op string, start time.Time, err error, fields ...logging.Field) {
	code := errcode.Of(err)
	s.recorder.RecordQuery(op, string(code))
	fields = append(fields, logging.Operation(op), logging.Latency(time.Since(start)))
	if err != nil {
		s.logger.Warn("query failed", append(fields, logging.String("code", string(code)), logging.Error(err))...)
		return
	}
	s.logger.Debug("query served", fields...)
}

// Invalidate drops every cached graph and centrality result of window,
// including computations still in flight. It returns the number of entries
// dropped.
func (s *Service) Invalidate(window records.TimeWindow) int {
	n := s.graphs.Invalidate(window) + s.engine.Cache().Invalidate(window)
	s.recorder.RecordInvalidation(string(window))
	s.recorder.RecordQuery(OpInvalidate, "")
	s.logger.Info("snapshot invalidated", logging.Window(string(window)), logging.Count(n))
	return n
}

// InvalidateAll drops every cached entry.
func (s *Service) InvalidateAll() int {
	n := s.graphs.InvalidateAll() + s.engine.Cache().InvalidateAll()
	s.recorder.RecordInvalidation("*")
	s.recorder.RecordQuery(OpInvalidate, "")
	s.logger.Info("all snapshots invalidated", logging.Count(n))
	return n
}

// CacheStats returns the graph and centrality cache counters.
func (s *Service) CacheStats() (graphs, centrality cache.Stats) {
	return s.graphs.Stats(), s.engine.Cache().Stats()
}

// cappedWarning names at most maxListedKeywords of the capped keywords.
func cappedWarning(capped []graph.NodeID, limit int) errcode.Warning {
	names := make([]string, 0, min(len(capped), maxListedKeywords))
	for _, id := range capped[:min(len(capped), maxListedKeywords)] {
		names = append(names, string(id))
	}
	msg := fmt.Sprintf("video-video relations skipped for %d keywords tagged on more than %d videos: %s",
		len(capped), limit, strings.Join(names, ", "))
	if len(capped) > maxListedKeywords {
		msg += ", ..."
	}
	return errcode.Warning{Code: errcode.CappedRelations, Message: msg}
}
