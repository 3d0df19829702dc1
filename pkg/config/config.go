// Package config loads the service configuration from defaults, an
// optional YAML file and OPPORTUNITY_* environment variables.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/algorithms"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analysis"
	"github.com/qinglingtaxue/youtube--sub001/pkg/analytics"
	"github.com/qinglingtaxue/youtube--sub001/pkg/api"
	"github.com/qinglingtaxue/youtube--sub001/pkg/auth"
	"github.com/qinglingtaxue/youtube--sub001/pkg/cache"
	"github.com/qinglingtaxue/youtube--sub001/pkg/competition"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graph"
	"github.com/qinglingtaxue/youtube--sub001/pkg/graphql"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/notify"
	"github.com/qinglingtaxue/youtube--sub001/pkg/opportunity"
	"github.com/qinglingtaxue/youtube--sub001/pkg/quadrant"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
	"github.com/qinglingtaxue/youtube--sub001/pkg/report"
	"github.com/qinglingtaxue/youtube--sub001/pkg/server"
	"github.com/qinglingtaxue/youtube--sub001/pkg/source"
	"github.com/qinglingtaxue/youtube--sub001/pkg/validation"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Auth        AuthConfig        `koanf:"auth"`
	Source      source.Config     `koanf:"source"`
	Graph       GraphConfig       `koanf:"graph"`
	Centrality  CentralityConfig  `koanf:"centrality"`
	Cache       CacheConfig       `koanf:"cache"`
	Ranking     RankingConfig     `koanf:"ranking"`
	Quadrant    QuadrantConfig    `koanf:"quadrant"`
	Report      ReportConfig      `koanf:"report"`
	Competition CompetitionConfig `koanf:"competition"`
	Notify      notify.Config     `koanf:"notify"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	// RequestTimeout bounds a single query, including its computation.
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// RateLimit is the per-client request rate; zero disables limiting.
	RateLimit    float64  `koanf:"rate_limit"`
	RateBurst    int      `koanf:"rate_burst"`
	MaxBodyBytes int64    `koanf:"max_body_bytes"`
	CORSOrigins  []string `koanf:"cors_origins"`
	// GraphQL bounds query depth and cost.
	GraphQL GraphQLConfig `koanf:"graphql"`
}

// GraphQLConfig limits GraphQL documents.
type GraphQLConfig struct {
	MaxDepth      int `koanf:"max_depth"`
	MaxComplexity int `koanf:"max_complexity"`
	ReportCost    int `koanf:"report_cost"`
}

// LoggingConfig selects level and encoder.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig configures bearer-token authentication of the API.
type AuthConfig struct {
	Enabled   bool          `koanf:"enabled"`
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// GraphConfig tunes graph construction.
type GraphConfig struct {
	RequireChannels     bool `koanf:"require_channels"`
	MaxVideosPerKeyword int  `koanf:"max_videos_per_keyword"`
}

// CentralityConfig tunes the centrality engine.
type CentralityConfig struct {
	ExactNodeLimit int           `koanf:"exact_node_limit"`
	SamplePivots   int           `koanf:"sample_pivots"`
	Timeout        time.Duration `koanf:"timeout"`
	Seed           uint64        `koanf:"seed"`
	Workers        int           `koanf:"workers"`
	TopBridges     int           `koanf:"top_bridges"`
}

// CacheConfig bounds the graph and centrality caches.
type CacheConfig struct {
	MaxEntries int `koanf:"max_entries"`
}

// RankingConfig sets ranking defaults.
type RankingConfig struct {
	DefaultLimit int    `koanf:"default_limit"`
	DefaultKey   string `koanf:"default_key"`
}

// QuadrantConfig configures labels and fixed thresholds. A nil threshold
// uses the median.
type QuadrantConfig struct {
	Labels     map[string]string `koanf:"labels"`
	XThreshold *float64          `koanf:"x_threshold"`
	YThreshold *float64          `koanf:"y_threshold"`
}

// ReportConfig tunes report synthesis.
type ReportConfig struct {
	ModuleTimeout  time.Duration `koanf:"module_timeout"`
	TopN           int           `koanf:"top_n"`
	ModuleTopN     int           `koanf:"module_top_n"`
	ArbitrageRatio float64       `koanf:"arbitrage_ratio"`
	DefaultWindow  string        `koanf:"default_window"`
}

// CompetitionConfig selects the competition provider. With a URL the HTTP
// provider is used; otherwise Levels, keyed by node id, is served as-is.
type CompetitionConfig struct {
	URL               string             `koanf:"url"`
	Timeout           time.Duration      `koanf:"timeout"`
	RequestsPerSecond float64            `koanf:"requests_per_second"`
	FailureThreshold  uint32             `koanf:"failure_threshold"`
	OpenTimeout       time.Duration      `koanf:"open_timeout"`
	Levels            map[string]float64 `koanf:"levels"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			IdleTimeout:     120 * time.Second,
			RequestTimeout:  30 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
			MaxBodyBytes:    1 << 20,
			CORSOrigins:     []string{"*"},
			GraphQL: GraphQLConfig{
				MaxDepth:      graphql.DefaultMaxDepth,
				MaxComplexity: graphql.DefaultMaxComplexity,
				ReportCost:    graphql.DefaultReportCost,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
		Auth: AuthConfig{
			Issuer:   "opportunityd",
			TokenTTL: auth.DefaultTokenDuration,
		},
		Source: source.Config{
			Type:     source.TypeMemory,
			Postgres: source.PostgresConfig{Table: source.DefaultTable},
		},
		Centrality: CentralityConfig{
			ExactNodeLimit: algorithms.DefaultExactNodeLimit,
			SamplePivots:   algorithms.DefaultSamplePivots,
			Timeout:        algorithms.DefaultTimeout,
			TopBridges:     algorithms.DefaultTopBridges,
		},
		Cache: CacheConfig{
			MaxEntries: cache.DefaultMaxEntries,
		},
		Ranking: RankingConfig{
			DefaultLimit: opportunity.DefaultLimit,
			DefaultKey:   string(opportunity.KeyInterestingness),
		},
		Report: ReportConfig{
			ModuleTimeout:  report.DefaultModuleTimeout,
			TopN:           report.DefaultTopN,
			ModuleTopN:     5,
			ArbitrageRatio: analysis.DefaultArbitrageRatio,
			DefaultWindow:  string(records.Window30d),
		},
		Competition: CompetitionConfig{
			Timeout:           competition.DefaultHTTPTimeout,
			RequestsPerSecond: competition.DefaultRequestsPerSec,
			FailureThreshold:  competition.DefaultFailureThreshold,
			OpenTimeout:       competition.DefaultOpenTimeout,
		},
		Notify: notify.Config{
			Topic: notify.DefaultTopic,
		},
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	server := validation.NewConfigValidator("server").
		RangeInt("port", c.Server.Port, 1, 65535).
		MinDuration("read_timeout", c.Server.ReadTimeout, 0).
		MinDuration("shutdown_timeout", c.Server.ShutdownTimeout, 0).
		MinDuration("request_timeout", c.Server.RequestTimeout, 0).
		Custom("max_body_bytes", func() error {
			if c.Server.MaxBodyBytes < 0 {
				return errors.New("must not be negative")
			}
			return nil
		}).
		NonNegative("graphql.max_depth", c.Server.GraphQL.MaxDepth).
		NonNegative("graphql.max_complexity", c.Server.GraphQL.MaxComplexity).
		NonNegative("graphql.report_cost", c.Server.GraphQL.ReportCost).
		When(c.Server.RateLimit > 0, func(v *validation.ConfigValidator) {
			v.Positive("rate_burst", c.Server.RateBurst)
		})
	errs = append(errs, server.Validate())

	errs = append(errs, validation.NewConfigValidator("logging").
		OneOf("level", strings.ToLower(c.Logging.Level), []string{"debug", "info", "warn", "warning", "error"}).
		OneOf("format", c.Logging.Format, []string{logging.FormatJSON, logging.FormatConsole}).
		Validate())

	errs = append(errs, validation.NewConfigValidator("auth").
		When(c.Auth.Enabled, func(v *validation.ConfigValidator) {
			v.Required("jwt_secret", c.Auth.JWTSecret)
			v.Custom("jwt_secret", func() error {
				if len(c.Auth.JWTSecret) < 32 {
					return errors.New("must be at least 32 bytes")
				}
				return nil
			})
			v.MinDuration("token_ttl", c.Auth.TokenTTL, time.Second)
		}).
		Validate())

	src := validation.NewConfigValidator("source").
		OneOf("type", c.Source.Type, []string{source.TypeMemory, source.TypeFile, source.TypePostgres, source.TypeS3})
	switch c.Source.Type {
	case source.TypeFile:
		src.Required("file.path", c.Source.File.Path)
	case source.TypePostgres:
		src.Required("postgres.url", c.Source.Postgres.URL)
	case source.TypeS3:
		src.Required("s3.bucket", c.Source.S3.Bucket).Required("s3.key", c.Source.S3.Key)
	}
	errs = append(errs, src.Validate())

	errs = append(errs, validation.NewConfigValidator("centrality").
		Positive("exact_node_limit", c.Centrality.ExactNodeLimit).
		Positive("sample_pivots", c.Centrality.SamplePivots).
		MinDuration("timeout", c.Centrality.Timeout, 0).
		NonNegative("workers", c.Centrality.Workers).
		NonNegative("top_bridges", c.Centrality.TopBridges).
		Validate())

	errs = append(errs, validation.NewConfigValidator("cache").
		Positive("max_entries", c.Cache.MaxEntries).
		Validate())

	errs = append(errs, validation.NewConfigValidator("ranking").
		RangeInt("default_limit", c.Ranking.DefaultLimit, opportunity.MinLimit, opportunity.MaxLimit).
		Custom("default_key", func() error { _, err := opportunity.ParseRankingKey(c.Ranking.DefaultKey); return err }).
		Validate())

	errs = append(errs, validation.NewConfigValidator("quadrant").
		Custom("labels", func() error { _, err := c.QuadrantLabels(); return err }).
		Validate())

	errs = append(errs, validation.NewConfigValidator("report").
		MinDuration("module_timeout", c.Report.ModuleTimeout, time.Millisecond).
		Positive("top_n", c.Report.TopN).
		NonNegative("module_top_n", c.Report.ModuleTopN).
		RangeFloat("arbitrage_ratio", c.Report.ArbitrageRatio, 0.01, 1).
		Custom("default_window", func() error { _, err := records.ParseWindow(c.Report.DefaultWindow); return err }).
		Validate())

	errs = append(errs, validation.NewConfigValidator("competition").
		When(c.Competition.URL != "", func(v *validation.ConfigValidator) {
			v.URL("url", c.Competition.URL, "http", "https")
			v.MinDuration("timeout", c.Competition.Timeout, time.Millisecond)
		}).
		Custom("levels", func() error {
			for id, lvl := range c.Competition.Levels {
				if lvl < 0 || lvl > 1 {
					return errors.New("level of " + id + " outside [0,1]")
				}
			}
			return nil
		}).
		Validate())

	errs = append(errs, validation.NewConfigValidator("notify").
		When(c.Notify.URL != "", func(v *validation.ConfigValidator) {
			v.URL("url", c.Notify.URL, "tcp", "ipc", "inproc", "ws")
		}).
		Validate())

	return errors.Join(errs...)
}

// Engine returns the centrality engine configuration.
func (c *Config) Engine() algorithms.Config {
	return algorithms.Config{
		ExactNodeLimit: c.Centrality.ExactNodeLimit,
		SamplePivots:   c.Centrality.SamplePivots,
		Timeout:        c.Centrality.Timeout,
		Seed:           c.Centrality.Seed,
		Workers:        c.Centrality.Workers,
		TopBridges:     c.Centrality.TopBridges,
	}
}

// GraphOptions returns the graph builder options.
func (c *Config) GraphOptions() graph.Options {
	return graph.Options{
		RequireChannels:     c.Graph.RequireChannels,
		MaxVideosPerKeyword: c.Graph.MaxVideosPerKeyword,
	}
}

// Synthesizer returns the report synthesizer configuration.
func (c *Config) Synthesizer() report.Config {
	return report.Config{ModuleTimeout: c.Report.ModuleTimeout, TopN: c.Report.TopN}
}

// Analysis returns the report module configuration.
func (c *Config) Analysis() analysis.Config {
	return analysis.Config{TopN: c.Report.ModuleTopN, ArbitrageRatio: c.Report.ArbitrageRatio}
}

// QuadrantLabels parses the configured label overrides.
func (c *Config) QuadrantLabels() (map[quadrant.ID]string, error) {
	if len(c.Quadrant.Labels) == 0 {
		return nil, nil
	}
	out := make(map[quadrant.ID]string, len(c.Quadrant.Labels))
	for k, v := range c.Quadrant.Labels {
		id, err := quadrant.ParseID(k)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}

// CompetitionProvider builds the configured competition provider.
func (c *Config) CompetitionProvider(opts ...competition.HTTPOption) (competition.Provider, error) {
	if c.Competition.URL == "" {
		levels := make(map[graph.NodeID]float64, len(c.Competition.Levels))
		for id, lvl := range c.Competition.Levels {
			levels[graph.NodeID(id)] = lvl
		}
		return competition.NewStatic(levels), nil
	}
	return competition.NewHTTP(competition.HTTPConfig{
		URL:               c.Competition.URL,
		Timeout:           c.Competition.Timeout,
		RequestsPerSecond: c.Competition.RequestsPerSecond,
		FailureThreshold:  c.Competition.FailureThreshold,
		OpenTimeout:       c.Competition.OpenTimeout,
	}, opts...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// HTTP returns the listener configuration.
func (c *Config) HTTP() server.HTTPConfig {
	return server.HTTPConfig{
		Addr:            c.Addr(),
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		IdleTimeout:     c.Server.IdleTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// API returns the HTTP API configuration.
func (c *Config) API(version string) api.Config {
	return api.Config{
		Version:        version,
		CORSOrigins:    c.Server.CORSOrigins,
		MaxBodyBytes:   c.Server.MaxBodyBytes,
		RateLimit:      c.Server.RateLimit,
		RateBurst:      c.Server.RateBurst,
		RequestTimeout: c.Server.RequestTimeout,
		GraphQLLimits: graphql.Limits{
			MaxDepth:      c.Server.GraphQL.MaxDepth,
			MaxComplexity: c.Server.GraphQL.MaxComplexity,
			ReportCost:    c.Server.GraphQL.ReportCost,
		},
	}
}

// Authenticator returns the JWT manager, or nil when authentication is off.
func (c *Config) Authenticator() (*auth.JWTManager, error) {
	if !c.Auth.Enabled {
		return nil, nil
	}
	return auth.NewJWTManager(c.Auth.JWTSecret, c.Auth.Issuer, c.Auth.TokenTTL)
}

// Service returns the analytics service options.
func (c *Config) Service() (analytics.Options, error) {
	labels, err := c.QuadrantLabels()
	if err != nil {
		return analytics.Options{}, err
	}
	window, err := records.ParseWindow(c.Report.DefaultWindow)
	if err != nil {
		return analytics.Options{}, err
	}
	key, err := opportunity.ParseRankingKey(c.Ranking.DefaultKey)
	if err != nil {
		return analytics.Options{}, err
	}
	return analytics.Options{
		Graph:          c.GraphOptions(),
		DefaultWindow:  window,
		DefaultKey:     key,
		DefaultLimit:   c.Ranking.DefaultLimit,
		QuadrantLabels: labels,
		XThreshold:     c.Quadrant.XThreshold,
		YThreshold:     c.Quadrant.YThreshold,
		MaxGraphs:      c.Cache.MaxEntries,
	}, nil
}
