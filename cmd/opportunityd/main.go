// Command opportunityd serves opportunity rankings, quadrant matrices and
// research reports over REST and GraphQL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analysis"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/api"
	"github.com/qinglingtaxue/youtube--sub001/pkg/cache"
	"github.com/qinglingtaxue/youtube--sub001/pkg/competition"
	"github.com/qinglingtaxue/youtube--sub001/pkg/config"
	"github.com/qinglingtaxue/youtube--sub001/pkg/health"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/metrics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/notify"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/server"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $OPPORTUNITY_CONFIG or ./config.yaml)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "opportunityd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewZapLogger(os.Stdout, logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	defer func() { _ = logger.Sync() }()
	logging.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("opportunityd starting",
		logging.String("version", version),
		logging.String("source", cfg.Source.Type),
		logging.String("addr", cfg.Addr()))

	app, err := build(ctx, cfg, configPath, logger)
	if err != nil {
		return err
	}
	defer app.close()

	go app.http.HandleReloadSignals(ctx)

	if err := app.tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("supervisor tree error", logging.Error(err))
	}

	if unstopped, _ := app.tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logger.Warn("service failed to stop", logging.String("service", svc.Name))
		}
	}
	logger.Info("opportunityd stopped")
	return nil
}

// app holds the wired daemon.
type app struct {
	source  source.Source
	service *analytics.Service
	http    *server.GracefulServer
	tree    *server.Tree
}

func (a *app) close() {
	_ = a.source.Close()
}

func build(ctx context.Context, cfg *config.Config, configPath string, logger *logging.ZapLogger) (*app, error) {
	reg := metrics.NewRegistry()

	src, err := source.Open(ctx, cfg.Source, source.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	resultCache := algorithms.NewResultCache(logger,
		cache.WithMaxEntries[*algorithms.Result](cfg.Cache.MaxEntries),
		cache.WithObserver[*algorithms.Result](reg))
	engine := algorithms.NewEngine(cfg.Engine(),
		algorithms.WithLogger(logger),
		algorithms.WithCache(resultCache))

	synth := report.NewSynthesizer(cfg.Synthesizer(), analysis.Default(cfg.Analysis()), report.WithLogger(logger))

	provider, err := cfg.CompetitionProvider(competition.WithLogger(logger), competition.WithObserver(reg))
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("competition provider: %w", err)
	}

	opts, err := cfg.Service()
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	svc := analytics.New(src, engine, synth, opts,
		analytics.WithLogger(logger),
		analytics.WithRecorder(reg),
		analytics.WithCompetition(provider),
		analytics.WithCacheObserver(reg))

	hc := health.NewHealthChecker()
	hc.RegisterReadinessCheck("source", health.PingCheck(src.Name(), src.Ping))
	hc.RegisterCheck("centrality_cache", health.CacheCheck("centrality_cache", func() (int, int) {
		st := resultCache.Stats()
		return st.Entries, st.InFlight
	}))
	hc.RegisterCheck("graph_cache", health.CacheCheck("graph_cache", func() (int, int) {
		graphs, _ := svc.CacheStats()
		return graphs.Entries, graphs.InFlight
	}))
	if h, ok := provider.(*competition.HTTP); ok {
		hc.RegisterCheck("competition", health.CircuitCheck("competition", func() string {
			return h.State().String()
		}))
	}
	hc.RegisterLivenessCheck("memory", health.MemoryCheck(health.RuntimeMemory))

	apiOpts := []api.Option{
		api.WithLogger(logger),
		api.WithHealth(hc),
		api.WithMetrics(reg, reg.Handler()),
	}
	jwt, err := cfg.Authenticator()
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("auth: %w", err)
	}
	if jwt != nil {
		apiOpts = append(apiOpts, api.WithAuth(jwt))
	}
	apiServer, err := api.NewServer(svc, cfg.API(version), apiOpts...)
	if err != nil {
		_ = src.Close()
		return nil, err
	}

	gs := server.NewGracefulServer(cfg.HTTP(), apiServer.Handler(), logger)
	gs.SetConfigReloadFunc(reloader(func() (*config.Config, error) { return config.Load(configPath) }, logger, svc))

	tree := server.NewTree(server.DefaultTreeConfig(), logger)
	tree.AddAPIService(gs)
	tree.AddDataService(newSystemMetrics(reg, systemMetricsInterval))
	if cfg.Notify.URL != "" {
		listener, err := notify.NewListener(cfg.Notify, countingInvalidator{target: svc, recorder: reg}, logger)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		tree.AddDataService(listener)
	}

	return &app{source: src, service: svc, http: gs, tree: tree}, nil
}
