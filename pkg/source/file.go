package source

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// FileConfig configures a file source.
type FileConfig struct {
	Path string `koanf:"path"`
}

// File serves a record export from the local filesystem. The file is
// re-read when its size or modification time changes.
type File struct {
	base
	path string

	mu      sync.Mutex
	doc     *Document
	modTime time.Time
	size    int64
}

// NewFile creates a file source. The path must name a supported format.
func NewFile(cfg FileConfig, opts ...Option) (*File, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file source: path is required")
	}
	if _, _, err := FormatOf(cfg.Path); err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	return &File{base: newBase(TypeFile, opts), path: cfg.Path}, nil
}

func (f *File) Name() string { return TypeFile }

func (f *File) Snapshot(ctx context.Context, window records.TimeWindow) (*records.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := f.load()
	if err != nil {
		return nil, unavailable(f.Name(), err)
	}
	return f.snapshot(window, doc)
}

func (f *File) load() (*Document, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc != nil && info.ModTime().Equal(f.modTime) && info.Size() == f.size {
		return f.doc, nil
	}

	data, err := readMapped(f.path)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeDocument(f.path, data)
	if err != nil {
		return nil, err
	}
	f.doc, f.modTime, f.size = doc, info.ModTime(), info.Size()
	f.logger.Info("record file loaded", logging.String("path", f.path), logging.Count(len(doc.Records)))
	return doc, nil
}

// readMapped copies the file contents out of a read-only mapping.
func readMapped(path string) ([]byte, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	defer r.Close()

	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil && len(data) > 0 {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func (f *File) Ping(context.Context) error {
	if _, err := os.Stat(f.path); err != nil {
		return unavailable(f.Name(), err)
	}
	return nil
}

func (f *File) Close() error { return nil }
