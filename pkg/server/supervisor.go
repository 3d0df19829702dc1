package server

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64
	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64
	// FailureBackoff is the pause once the threshold is exceeded.
	FailureBackoff time.Duration
	// ShutdownTimeout bounds how long a service may take to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree supervises the daemon in two layers. The data layer runs snapshot
// notification listeners; the api layer runs the HTTP server. A crash
// loop in one layer does not stop the other.
type Tree struct {
	root   *suture.Supervisor
	data   *suture.Supervisor
	api    *suture.Supervisor
	logger logging.Logger
}

// NewTree creates a supervisor tree whose events go to logger.
func NewTree(cfg TreeConfig, logger logging.Logger) *Tree {
	def := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("supervisor"))

	rootSpec := suture.Spec{
		EventHook:        EventHook(logger),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := rootSpec
	childSpec.EventHook = nil

	t := &Tree{
		root:   suture.New("opportunityd", rootSpec),
		data:   suture.New("data-layer", childSpec),
		api:    suture.New("api-layer", childSpec),
		logger: logger,
	}
	t.root.Add(t.data)
	t.root.Add(t.api)
	return t
}

// AddDataService adds a service to the data layer.
func (t *Tree) AddDataService(svc suture.Service) suture.ServiceToken {
	return t.data.Add(svc)
}

// AddAPIService adds a service to the api layer.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx ends.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// EventHook forwards supervisor events to logger.
func EventHook(logger logging.Logger) suture.EventHook {
	return func(e suture.Event) {
		switch ev := e.(type) {
		case suture.EventServicePanic:
			logger.Error("service panicked",
				logging.String("supervisor", ev.SupervisorName),
				logging.String("service", ev.ServiceName),
				logging.Bool("restarting", ev.Restarting),
				logging.String("panic", ev.PanicMsg),
				logging.String("stacktrace", ev.Stacktrace))
		case suture.EventServiceTerminate:
			logger.Warn("service terminated",
				logging.String("supervisor", ev.SupervisorName),
				logging.String("service", ev.ServiceName),
				logging.Bool("restarting", ev.Restarting),
				logging.Float64("failures", ev.CurrentFailures),
				logging.String("error", fmt.Sprint(ev.Err)))
		case suture.EventBackoff:
			logger.Warn("supervisor backing off", logging.String("supervisor", ev.SupervisorName))
		case suture.EventResume:
			logger.Info("supervisor resumed", logging.String("supervisor", ev.SupervisorName))
		case suture.EventStopTimeout:
			logger.Error("service did not stop in time",
				logging.String("supervisor", ev.SupervisorName),
				logging.String("service", ev.ServiceName))
		default:
			logger.Info(e.String())
		}
	}
}
