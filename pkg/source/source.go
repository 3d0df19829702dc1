// Package source loads per-window record snapshots from the stores the
// data-collection pipeline writes to.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Source kinds accepted by Open.
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypePostgres = "postgres"
	TypeS3       = "s3"
)

// ErrClosed is returned by a source after Close.
var ErrClosed = errors.New("source closed")

// Source produces the immutable record snapshot of a window.
type Source interface {
	Name() string
	Snapshot(ctx context.Context, window records.TimeWindow) (*records.Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}

// UnavailableError reports that a source could not be read.
type UnavailableError struct {
	Source string
	Cause  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// Code implements errcode.Coder.
func (e *UnavailableError) Code() errcode.Code { return errcode.SourceUnavailable }

func unavailable(name string, err error) error {
	if err == nil {
		return nil
	}
	// Cancellation stays visible to callers as such.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &UnavailableError{Source: name, Cause: err}
}

// Option configures a source.
type Option func(*base)

// WithClock sets the clock used for asOf when the data carries none.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

type base struct {
	now    func() time.Time
	logger logging.Logger
}

func newBase(name string, opts []Option) base {
	b := base{now: time.Now, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With(logging.Component("source"), logging.String("source", name))
	return b
}

// snapshot windows doc, stamping asOf from the clock when doc has none.
func (b base) snapshot(window records.TimeWindow, doc *Document) (*records.Snapshot, error) {
	asOf := doc.AsOf
	if asOf.IsZero() {
		asOf = b.now()
	}
	snap, err := records.NewSnapshot(window, asOf.UTC(), doc.Records)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("snapshot loaded",
		logging.Window(string(window)),
		logging.Fingerprint(snap.Fingerprint),
		logging.Count(len(snap.Records)))
	return snap, nil
}

// Config selects and configures a source.
type Config struct {
	Type     string         `koanf:"type"`
	File     FileConfig     `koanf:"file"`
	Postgres PostgresConfig `koanf:"postgres"`
	S3       S3Config       `koanf:"s3"`
}

// Open creates the source cfg describes.
func Open(ctx context.Context, cfg Config, opts ...Option) (Source, error) {
	switch cfg.Type {
	case "", TypeMemory:
		return NewMemory(nil, opts...), nil
	case TypeFile:
		return NewFile(cfg.File, opts...)
	case TypePostgres:
		return NewPostgres(ctx, cfg.Postgres, opts...)
	case TypeS3:
		return NewS3(ctx, cfg.S3, opts...)
	}
	return nil, fmt.Errorf("unknown source type %q", cfg.Type)
}
