package source

import (
	"context"
	"sync"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// Memory serves records held in memory. Replace swaps the record set.
type Memory struct {
	base
	mu     sync.RWMutex
	doc    *Document
	closed bool
}

// NewMemory creates a memory source over recs.
func NewMemory(recs []records.ContentRecord, opts ...Option) *Memory {
	return &Memory{
		base: newBase(TypeMemory, opts),
		doc:  &Document{Records: recs},
	}
}

// Replace swaps the record set and its asOf. A zero asOf uses the clock.
func (m *Memory) Replace(doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = &doc
}

func (m *Memory) Name() string { return TypeMemory }

func (m *Memory) Snapshot(ctx context.Context, window records.TimeWindow) (*records.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	doc, closed := m.doc, m.closed
	m.mu.RUnlock()
	if closed {
		return nil, unavailable(m.Name(), ErrClosed)
	}
	return m.snapshot(window, doc)
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return unavailable(m.Name(), ErrClosed)
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
