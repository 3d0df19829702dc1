package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// Defaults for Config.
const (
	DefaultModuleTimeout = 10 * time.Second
	DefaultTopN          = 3

	// HighPriority is the largest priority counted as high in a synthesis.
	HighPriority = 1
)

// Module produces candidate conclusions from a shared input. Each module
// assigns its own priorities and confidences.
type Module interface {
	Name() string
	Analyze(ctx context.Context, in *Input) ([]Conclusion, error)
}

// ModuleOutput is the result of running one module.
type ModuleOutput struct {
	Module      string
	Conclusions []Conclusion
	Err         error
}

// Config controls a Synthesizer.
type Config struct {
	// ModuleTimeout bounds each module run. Zero means DefaultModuleTimeout.
	ModuleTimeout time.Duration
	// TopN is the number of key findings in the synthesis.
	TopN int
}

func (c Config) withDefaults() Config {
	if c.ModuleTimeout <= 0 {
		c.ModuleTimeout = DefaultModuleTimeout
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	return c
}

// Synthesizer runs a fixed, ordered set of modules concurrently and merges
// their outputs.
type Synthesizer struct {
	cfg     Config
	modules []Module
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) { s.now = now }
}

// NewSynthesizer creates a synthesizer. Module order is the declaration
// order used to break ordering ties.
func NewSynthesizer(cfg Config, modules []Module, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		cfg:     cfg.withDefaults(),
		modules: append([]Module(nil), modules...),
		logger:  logging.NewNopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("report"))
	return s
}

// Modules returns the module names in declaration order.
func (s *Synthesizer) Modules() []string {
	names := make([]string, len(s.modules))
	for i, m := range s.modules {
		names[i] = m.Name()
	}
	return names
}

// Run executes every module against in and synthesizes the report. Module
// failures degrade the report; Run only fails when ctx is done before any
// module could finish.
func (s *Synthesizer) Run(ctx context.Context, in *Input) (*Report, error) {
	timer := logging.StartTimer(s.logger, "report synthesized", logging.Window(string(in.window())))

	outputs := make([]ModuleOutput, len(s.modules))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range s.modules {
		g.Go(func() error {
			outputs[i] = s.runModule(gctx, m, in)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		timer.EndError(err)
		return nil, err
	}

	rep := Synthesize(outputs, s.cfg.TopN)
	rep.ID = uuid.NewString()
	rep.GeneratedAt = s.now().UTC()
	rep.Research = research(in, s.Modules())

	for _, f := range rep.Failures {
		s.logger.Warn("report module unavailable",
			logging.String("module", f.Module),
			logging.String("code", string(f.Code)),
			logging.String("reason", f.Message))
	}
	timer.End(logging.Count(len(rep.Conclusions)), logging.Bool("degraded", rep.Degraded))
	return rep, nil
}

// runModule runs m under its own timeout. A module that ignores its context
// is abandoned at the deadline.
func (s *Synthesizer) runModule(ctx context.Context, m Module, in *Input) ModuleOutput {
	out := ModuleOutput{Module: m.Name()}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ModuleTimeout)
	defer cancel()

	type result struct {
		conclusions []Conclusion
		err         error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		c, err := m.Analyze(ctx, in)
		done <- result{conclusions: c, err: err}
	}()

	select {
	case r := <-done:
		out.Conclusions, out.Err = r.conclusions, r.err
	case <-ctx.Done():
		out.Err = ctx.Err()
	}
	if out.Err != nil {
		out.Conclusions = nil
		out.Err = &ModuleUnavailableError{Module: m.Name(), Cause: out.Err}
	}
	return out
}

// Synthesize merges module outputs, given in declaration order, into a
// report. Every conclusion of every successful module is kept. Ordering is
// priority ascending, confidence descending, then declaration order and
// module-local order.
func Synthesize(outputs []ModuleOutput, topN int) *Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	rep := &Report{
		Conclusions:    []Conclusion{},
		MissingModules: []string{},
	}

	for _, out := range outputs {
		if out.Err != nil {
			rep.Degraded = true
			rep.MissingModules = append(rep.MissingModules, out.Module)
			rep.Failures = append(rep.Failures, ModuleFailure{
				Module:  out.Module,
				Code:    errcode.Of(out.Err),
				Message: out.Err.Error(),
			})
			rep.Warnings = append(rep.Warnings, errcode.AsWarning(out.Err))
			continue
		}
		for i, c := range out.Conclusions {
			if c.Module == "" {
				c.Module = out.Module
			}
			if c.ID == "" {
				c.ID = fmt.Sprintf("%s-%d", out.Module, i+1)
			}
			rep.Conclusions = append(rep.Conclusions, c)
		}
	}

	SortConclusions(rep.Conclusions)
	rep.Synthesis = synthesis(rep.Conclusions, len(outputs)-len(rep.MissingModules), topN)
	return rep
}

// SortConclusions orders conclusions by priority ascending then confidence
// descending. The sort is stable, so equal conclusions keep their input
// order.
func SortConclusions(cs []Conclusion) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Priority != cs[j].Priority {
			return cs[i].Priority < cs[j].Priority
		}
		return cs[i].Confidence > cs[j].Confidence
	})
}

func synthesis(cs []Conclusion, modules, topN int) Synthesis {
	syn := Synthesis{
		ConclusionCount: len(cs),
		ModuleCount:     modules,
		KeyFindings:     []string{},
	}
	if len(cs) == 0 {
		syn.Headline = "No conclusions could be drawn from this snapshot"
		syn.Summary = fmt.Sprintf("%d module(s) ran and produced no findings.", modules)
		return syn
	}

	head := cs[0]
	syn.Headline = head.Title
	syn.Confidence = head.Confidence
	for _, c := range cs {
		if c.Priority <= HighPriority {
			syn.HighPriorityCount++
		}
	}
	for _, c := range cs[:min(topN, len(cs))] {
		syn.KeyFindings = append(syn.KeyFindings, c.Title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d conclusion(s) from %d module(s), %d high priority. ", len(cs), modules, syn.HighPriorityCount)
	fmt.Fprintf(&b, "Most important: %s", head.Title)
	if head.Summary != "" {
		fmt.Fprintf(&b, " (%s)", strings.TrimSuffix(head.Summary, "."))
	}
	b.WriteString(".")
	syn.Summary = b.String()
	return syn
}

func research(in *Input, modules []string) Research {
	scope := Scope{Window: in.window(), Focus: string(in.Focus)}
	question := fmt.Sprintf("Which under-served content opportunities exist in the %s window?", scope.Window)
	if scope.Focus != "" {
		question = fmt.Sprintf("Which under-served content opportunities surround %s in the %s window?", scope.Focus, scope.Window)
	}

	method := []string{
		"Build a weighted graph of videos, channels and keywords from the snapshot",
		"Compute degree, betweenness and closeness centrality",
		"Score interestingness as betweenness over degree, discounted by competition",
		"Classify items on supply and demand quadrants",
		"Merge module conclusions: " + strings.Join(modules, ", "),
	}
	if in.Approximate() {
		method[1] += " (estimated from sampled sources)"
	}

	return Research{
		Question:    question,
		Scope:       scope,
		Method:      method,
		Data:        in.dataSnapshot(),
		Approximate: in.Approximate(),
	}
}
