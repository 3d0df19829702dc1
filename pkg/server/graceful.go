// Package server runs the HTTP API and the background listeners of the
// daemon under a supervisor tree.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// HTTPConfig holds the listener settings of a GracefulServer.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	return c
}

// GracefulServer wraps an HTTP server with graceful shutdown. It implements
// suture.Service: Serve listens until its context ends, then drains open
// connections for at most ShutdownTimeout.
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          logging.Logger

	shutdownCh     chan struct{}
	shutdownOnce   sync.Once
	configReloadFn ConfigReloadFunc
	configMu       sync.RWMutex

	addrMu sync.Mutex
	addr   net.Addr
	ready  chan struct{}
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(cfg HTTPConfig, handler http.Handler, logger logging.Logger) *GracefulServer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    1 << 20,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger.With(logging.Component("http")),
		shutdownCh:      make(chan struct{}),
		ready:           make(chan struct{}),
	}
}

// Serve implements suture.Service.
func (gs *GracefulServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", gs.server.Addr, err)
	}
	gs.setAddr(ln.Addr())
	gs.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		// Serve only ends cleanly after Shutdown.
		return suture.ErrDoNotRestart
	case <-gs.shutdownCh:
		<-errCh
		return suture.ErrDoNotRestart
	case <-ctx.Done():
		if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (gs *GracefulServer) String() string { return "http-server" }

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("http server shutdown failed: %w", shutdownErr)
			gs.logger.Error("shutdown failed", logging.Error(shutdownErr))
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// Addr returns the bound address once the server listens.
func (gs *GracefulServer) Addr() net.Addr {
	gs.addrMu.Lock()
	defer gs.addrMu.Unlock()
	return gs.addr
}

// Ready returns a channel that closes once the server listens.
func (gs *GracefulServer) Ready() <-chan struct{} { return gs.ready }

func (gs *GracefulServer) setAddr(a net.Addr) {
	gs.addrMu.Lock()
	defer gs.addrMu.Unlock()
	if gs.addr == nil {
		gs.addr = a
		close(gs.ready)
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.configMu.Lock()
	defer gs.configMu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.configMu.RLock()
	reloadFn := gs.configReloadFn
	gs.configMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Info("reload requested, but no reload function configured")
		return nil
	}

	gs.logger.Info("reloading")
	if err := reloadFn(); err != nil {
		gs.logger.Error("reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("reload complete")
	return nil
}

// HandleReloadSignals calls ReloadConfig on every SIGHUP until ctx ends.
func (gs *GracefulServer) HandleReloadSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			gs.logger.Info("received SIGHUP")
			_ = gs.ReloadConfig()
		}
	}
}
