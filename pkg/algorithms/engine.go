package algorithms

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/cache"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/parallel"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Defaults for Config.
const (
	DefaultExactNodeLimit = 2000
	DefaultSamplePivots   = 256
	DefaultTimeout        = 30 * time.Second
	DefaultTopBridges     = 10

	// Sources are split into at most maxChunks chunks of at least
	// minChunkSize. The split depends only on the source count, so merged
	// sums do not depend on GOMAXPROCS.
	minChunkSize = 32
	maxChunks    = 16
)

// CacheKind tags centrality entries in a shared cache key space.
const CacheKind = "centrality"

// Config controls the centrality engine.
type Config struct {
	// ExactNodeLimit is the largest node count for which every node is used
	// as a shortest-path source.
	ExactNodeLimit int
	// SamplePivots is the number of uniformly sampled sources above the limit.
	SamplePivots int
	// Timeout bounds one computation. Zero disables it.
	Timeout time.Duration
	// Seed overrides the pivot sampling seed. Zero derives it from the
	// graph fingerprint.
	Seed uint64
	// Workers is the number of parallel BFS workers. Zero means GOMAXPROCS.
	Workers int
	// TopBridges is the number of highest-betweenness edges reported.
	TopBridges int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ExactNodeLimit: DefaultExactNodeLimit,
		SamplePivots:   DefaultSamplePivots,
		Timeout:        DefaultTimeout,
		TopBridges:     DefaultTopBridges,
	}
}

func (c Config) withDefaults() Config {
	if c.ExactNodeLimit <= 0 {
		c.ExactNodeLimit = DefaultExactNodeLimit
	}
	if c.SamplePivots <= 0 {
		c.SamplePivots = DefaultSamplePivots
	}
	if c.TopBridges < 0 {
		c.TopBridges = 0
	}
	return c
}

// Score holds the centrality of one node within one graph.
type Score struct {
	NodeID graph.NodeID `json:"node_id"`
	Kind   records.Kind `json:"kind"`
	// Degree is the raw weighted degree.
	Degree           float64 `json:"degree"`
	DegreeNormalized float64 `json:"degree_normalized"`
	Betweenness      float64 `json:"betweenness"`
	Closeness        float64 `json:"closeness"`
}

// RankedEdge is an edge with its betweenness share.
type RankedEdge struct {
	Source graph.NodeID `json:"source"`
	Target graph.NodeID `json:"target"`
	Score  float64      `json:"score"`
}

// Result is the centrality of every node of one graph. It is immutable once
// returned.
type Result struct {
	Window      records.TimeWindow `json:"window"`
	Fingerprint string             `json:"fingerprint"`
	// Scores are ordered like the graph's nodes (by id).
	Scores     []Score      `json:"scores"`
	TopBridges []RankedEdge `json:"top_bridges,omitempty"`

	// Approximate is set when betweenness and closeness were estimated from
	// a subset of sources, either by sampling or because of a timeout.
	Approximate      bool          `json:"approximate"`
	TimedOut         bool          `json:"timed_out"`
	SourcesPlanned   int           `json:"sources_planned"`
	SourcesProcessed int           `json:"sources_processed"`
	Duration         time.Duration `json:"duration"`

	index map[graph.NodeID]int
	err   error
}

// Len returns the number of scored nodes.
func (r *Result) Len() int { return len(r.Scores) }

// Score looks up the centrality of a node.
func (r *Result) Score(id graph.NodeID) (Score, bool) {
	i, ok := r.index[id]
	if !ok {
		return Score{}, false
	}
	return r.Scores[i], true
}

// Err returns a *ComputationTimeoutError when the run was cut short, nil
// otherwise. The result is usable either way.
func (r *Result) Err() error { return r.err }

// Engine computes centrality and memoises results by graph fingerprint.
type Engine struct {
	cfg    Config
	cache  *cache.Cache[*Result]
	logger logging.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCache replaces the engine's private result cache.
func WithCache(c *cache.Cache[*Result]) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// NewEngine creates a centrality engine.
func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("centrality"))
	if e.cache == nil {
		e.cache = NewResultCache(e.logger)
	}
	return e
}

// NewResultCache creates a cache suitable for WithCache. Results of runs that
// timed out are handed to waiting callers but never retained.
func NewResultCache(logger logging.Logger, opts ...cache.Option[*Result]) *cache.Cache[*Result] {
	opts = append([]cache.Option[*Result]{
		cache.WithLogger[*Result](logger),
		cache.WithKeep(func(r *Result) bool { return !r.TimedOut }),
	}, opts...)
	return cache.New[*Result](CacheKind, opts...)
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Cache returns the result cache.
func (e *Engine) Cache() *cache.Cache[*Result] { return e.cache }

// Compute returns the centrality of g, reusing a cached result for the same
// window and structural fingerprint. cached reports a cache hit.
func (e *Engine) Compute(ctx context.Context, g *graph.Graph) (result *Result, cached bool, err error) {
	key := cache.Key{Window: g.Window(), Fingerprint: g.Fingerprint(), Kind: CacheKind}
	result, cached, err = e.cache.Get(ctx, key, func(ctx context.Context) (*Result, error) {
		res := e.compute(ctx, g)
		if res.TimedOut && ctx.Err() != nil {
			// Stopped by the caller, not the engine deadline: waiters with a
			// live context recompute instead of sharing the partial result.
			return res, ctx.Err()
		}
		return res, nil
	})
	if err != nil && result != nil && result.TimedOut {
		// Only the computing caller sees a value alongside an error.
		return result, false, nil
	}
	return result, cached, err
}

// compute runs the uncached computation. It never fails: cancellation yields
// a partial result flagged TimedOut.
func (e *Engine) compute(ctx context.Context, g *graph.Graph) *Result {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	n := g.NodeCount()
	res := &Result{
		Window:      g.Window(),
		Fingerprint: g.Fingerprint(),
		Scores:      make([]Score, n),
		index:       make(map[graph.NodeID]int, n),
	}
	if n == 0 {
		return res
	}

	sources := e.sources(g)
	res.SourcesPlanned = len(sources)
	res.Approximate = len(sources) < n

	edges := newEdgeIndex(g)
	chunkSize := max(minChunkSize, (len(sources)+maxChunks-1)/maxChunks)
	chunks := (len(sources) + chunkSize - 1) / chunkSize
	parts := make([]*accumulator, chunks)

	runErr := parallel.ForEach(ctx, e.cfg.Workers, chunks, e.logger, func(c int) {
		acc := newAccumulator(n, g.EdgeCount())
		ws := newWorkspace(n)
		lo := c * chunkSize
		hi := min(lo+chunkSize, len(sources))
		for _, s := range sources[lo:hi] {
			if ctx.Err() != nil {
				break
			}
			acc.brandesPass(g, edges, s, ws)
		}
		parts[c] = acc
	})

	total := newAccumulator(n, g.EdgeCount())
	for _, p := range parts {
		if p != nil {
			total.merge(p)
		}
	}
	res.SourcesProcessed = total.processed

	if total.processed < len(sources) {
		cause := ctx.Err()
		if cause == nil {
			cause = runErr
		}
		res.TimedOut = true
		res.Approximate = true
		res.err = &ComputationTimeoutError{Processed: total.processed, Planned: len(sources), Cause: cause}
	}

	degree := weightedDegree(g)
	degreeNorm := MinMax(degree)
	betweenness := MinMax(total.betweennessFraction())
	closeness := MinMax(total.closeness())

	for i := 0; i < n; i++ {
		node := g.NodeAt(i)
		res.index[node.ID] = i
		res.Scores[i] = Score{
			NodeID:           node.ID,
			Kind:             node.Kind,
			Degree:           degree[i],
			DegreeNormalized: degreeNorm[i],
			Betweenness:      betweenness[i],
			Closeness:        closeness[i],
		}
	}
	res.TopBridges = topEdges(g, total.edgeFraction(), e.cfg.TopBridges)
	res.Duration = time.Since(start)

	fields := []logging.Field{
		logging.Window(string(res.Window)),
		logging.Fingerprint(res.Fingerprint),
		logging.Int("nodes", n),
		logging.Int("sources", res.SourcesProcessed),
		logging.Bool("approximate", res.Approximate),
		logging.Latency(res.Duration),
	}
	if res.TimedOut {
		e.logger.Warn("centrality computation timed out", append(fields, logging.Error(res.err))...)
	} else {
		e.logger.Info("centrality computed", fields...)
	}
	return res
}

// sources returns the BFS roots: every node up to the exact limit, a
// deterministic uniform sample above it.
func (e *Engine) sources(g *graph.Graph) []int {
	n := g.NodeCount()
	if n <= e.cfg.ExactNodeLimit || e.cfg.SamplePivots >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	seed := e.cfg.Seed
	if seed == 0 {
		seed = fingerprintSeed(g.Fingerprint())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	picked := rng.Perm(n)[:e.cfg.SamplePivots]
	sort.Ints(picked)
	return picked
}

func fingerprintSeed(fp string) uint64 {
	raw, err := hex.DecodeString(fp)
	if err != nil || len(raw) < 8 {
		return 1
	}
	if seed := binary.LittleEndian.Uint64(raw[:8]); seed != 0 {
		return seed
	}
	return 1
}
