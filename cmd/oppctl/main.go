// Package main implements oppctl, a command-line client that answers
// ranking, quadrant and report queries directly against the configured
// record source.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analysis"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/competition"
	"github.com/qinglingtaxue/youtube--sub001/pkg/config"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
)

var (
	// configPath is the YAML configuration shared with opportunityd
	configPath string
	// outputJSON prints raw JSON instead of tables
	outputJSON bool
	verbose    bool
	version    = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "oppctl",
	Short: "Query opportunity rankings, quadrants and reports",
	Long: `oppctl runs the opportunity analytics against the record source named in
the configuration file, without a running opportunityd.

Examples:
  # Top keywords of the last 30 days
  oppctl ranking --dimension keyword --window 30d

  # Quadrant matrix of channels as JSON
  oppctl quadrants --dimension channel --json

  # Report focused on one channel
  oppctl report --channel UC123`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $OPPORTUNITY_CONFIG or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

// env is the wired query surface of one invocation.
type env struct {
	cfg     *config.Config
	source  source.Source
	service *analytics.Service
	logger  logging.Logger
}

func (e *env) Close() error { return e.source.Close() }

func loadConfig() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewNopLogger()
	if verbose {
		logger = logging.NewZapLogger(os.Stderr, logging.ParseLevel(cfg.Logging.Level), logging.FormatConsole)
	}
	return cfg, logger, nil
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	src, err := source.Open(ctx, cfg.Source, source.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	engine := algorithms.NewEngine(cfg.Engine(),
		algorithms.WithLogger(logger),
		algorithms.WithCache(algorithms.NewResultCache(logger)))
	synth := report.NewSynthesizer(cfg.Synthesizer(), analysis.Default(cfg.Analysis()), report.WithLogger(logger))
	provider, err := cfg.CompetitionProvider(competition.WithLogger(logger))
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	opts, err := cfg.Service()
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	svc := analytics.New(src, engine, synth, opts,
		analytics.WithLogger(logger),
		analytics.WithCompetition(provider))
	return &env{cfg: cfg, source: src, service: svc, logger: logger}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
