package main

import (
	"context"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/config"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/notify"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

const systemMetricsInterval = 15 * time.Second

// systemMetrics refreshes the process gauges. It implements suture.Service.
type systemMetrics struct {
	update   func()
	interval time.Duration
}

func newSystemMetrics(r interface{ UpdateSystemMetrics() }, interval time.Duration) *systemMetrics {
	return &systemMetrics{update: r.UpdateSystemMetrics, interval: interval}
}

func (s *systemMetrics) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.update()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.update()
		}
	}
}

func (s *systemMetrics) String() string { return "system-metrics" }

// countingInvalidator records every applied notification.
type countingInvalidator struct {
	target   notify.Invalidator
	recorder interface{ RecordNotification(window string) }
}

func (c countingInvalidator) Invalidate(window records.TimeWindow) int {
	c.recorder.RecordNotification(string(window))
	return c.target.Invalidate(window)
}

func (c countingInvalidator) InvalidateAll() int {
	c.recorder.RecordNotification(notify.AllWindows)
	return c.target.InvalidateAll()
}

// reloader re-reads the configuration on SIGHUP. Only the log level is
// applied live; every cached snapshot is dropped so the next query reads
// the source again.
func reloader(load func() (*config.Config, error), logger logging.Logger, target notify.Invalidator) func() error {
	return func() error {
		cfg, err := load()
		if err != nil {
			return err
		}
		logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
		dropped := target.InvalidateAll()
		logger.Info("configuration reloaded",
			logging.String("level", cfg.Logging.Level),
			logging.Count(dropped))
		return nil
	}
}
