package notify

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

type recordingInvalidator struct {
	mu      sync.Mutex
	windows []records.TimeWindow
	all     int
}

func (r *recordingInvalidator) Invalidate(w records.TimeWindow) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, w)
	return 1
}

func (r *recordingInvalidator) InvalidateAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all++
	return 4
}

func (r *recordingInvalidator) snapshot() ([]records.TimeWindow, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]records.TimeWindow(nil), r.windows...), r.all
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw     string
		want    Message
		wantErr bool
	}{
		{"snapshot:7d", Message{Window: records.Window7d}, false},
		{"snapshot: all ", Message{Window: records.WindowAll}, false},
		{"snapshot:*", Message{All: true}, false},
		{"snapshot:1y", Message{}, true},
		{"other:7d", Message{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(DefaultTopic, []byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.Encode(DefaultTopic)))
		})
	}
}

func mustParse(t *testing.T, raw []byte) Message {
	t.Helper()
	m, err := Parse(DefaultTopic, raw)
	require.NoError(t, err)
	return m
}

func TestNewListener_Validation(t *testing.T) {
	_, err := NewListener(Config{}, &recordingInvalidator{}, nil)
	assert.Error(t, err)
	_, err = NewListener(Config{URL: "inproc://x"}, nil, nil)
	assert.Error(t, err)
}

func TestListener_InvalidatesOverInproc(t *testing.T) {
	cfg := Config{URL: fmt.Sprintf("inproc://notify-%d", time.Now().UnixNano())}
	target := &recordingInvalidator{}
	l, err := NewListener(cfg, target, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	var p *Publisher
	require.Eventually(t, func() bool {
		p, err = Dial(cfg)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer p.Close()

	// Pub/sub drops messages sent before the subscription is attached,
	// so keep publishing until the first one lands.
	require.Eventually(t, func() bool {
		_ = p.Publish(records.Window30d)
		ws, _ := target.snapshot()
		return len(ws) > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, p.PublishAll())
	require.Eventually(t, func() bool {
		_, all := target.snapshot()
		return all == 1
	}, 2*time.Second, 10*time.Millisecond)

	ws, _ := target.snapshot()
	for _, w := range ws {
		assert.Equal(t, records.Window30d, w)
	}
	assert.GreaterOrEqual(t, l.Received(), 2)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
