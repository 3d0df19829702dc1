// Package notify carries snapshot-change notifications between the
// data-collection pipeline and the analytics service over nanomsg pub/sub.
//
// A message is "<topic>:<window>" and invalidates that window, or
// "<topic>:*" and invalidates every window.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports (tcp, ipc, inproc, ws).
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
	"github.com/qinglingtaxue/youtube--sub001/pkg/records"
)

// DefaultTopic prefixes every notification.
const DefaultTopic = "snapshot"

// AllWindows is the window token that invalidates everything.
const AllWindows = "*"

const recvDeadline = 500 * time.Millisecond

// Invalidator drops cached results when a snapshot changes.
type Invalidator interface {
	Invalidate(window records.TimeWindow) int
	InvalidateAll() int
}

// Message is a decoded notification.
type Message struct {
	Window records.TimeWindow
	All    bool
}

// Encode renders m under topic.
func (m Message) Encode(topic string) []byte {
	if m.All {
		return []byte(topic + ":" + AllWindows)
	}
	return []byte(topic + ":" + string(m.Window))
}

// Parse decodes a notification published under topic.
func Parse(topic string, raw []byte) (Message, error) {
	prefix := topic + ":"
	s := string(raw)
	if !strings.HasPrefix(s, prefix) {
		return Message{}, fmt.Errorf("notification %q lacks topic %q", s, topic)
	}
	body := strings.TrimSpace(strings.TrimPrefix(s, prefix))
	if body == AllWindows {
		return Message{All: true}, nil
	}
	w, err := records.ParseWindow(body)
	if err != nil {
		return Message{}, err
	}
	return Message{Window: w}, nil
}

// Config configures the listener and publisher.
type Config struct {
	URL   string `koanf:"url"`
	Topic string `koanf:"topic"`
}

func (c Config) topic() string {
	if c.Topic == "" {
		return DefaultTopic
	}
	return c.Topic
}

// Listener binds a SUB socket and applies every notification to an
// Invalidator. It implements suture.Service.
type Listener struct {
	cfg    Config
	target Invalidator
	logger logging.Logger

	mu       sync.Mutex
	received int
}

// NewListener creates a listener.
func NewListener(cfg Config, target Invalidator, logger logging.Logger) (*Listener, error) {
	if cfg.URL == "" {
		return nil, errors.New("notify: url is required")
	}
	if target == nil {
		return nil, errors.New("notify: invalidator is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Listener{cfg: cfg, target: target, logger: logger.With(logging.Component("notify"))}, nil
}

// Serve listens until ctx is done.
func (l *Listener) Serve(ctx context.Context) error {
	sock, err := sub.NewSocket()
	if err != nil {
		return fmt.Errorf("failed to create SUB socket: %w", err)
	}
	defer sock.Close()

	if err := sock.Listen(l.cfg.URL); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.cfg.URL, err)
	}
	topic := l.cfg.topic()
	if err := sock.SetOption(mangos.OptionSubscribe, []byte(topic+":")); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, recvDeadline); err != nil {
		return fmt.Errorf("failed to set receive deadline: %w", err)
	}
	l.logger.Info("snapshot notification listener started", logging.String("url", l.cfg.URL))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := sock.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrRecvTimeout) {
				continue
			}
			if errors.Is(err, mangos.ErrClosed) {
				return err
			}
			l.logger.Warn("notification receive failed", logging.Error(err))
			continue
		}
		l.handle(topic, raw)
	}
}

func (l *Listener) handle(topic string, raw []byte) {
	msg, err := Parse(topic, raw)
	if err != nil {
		l.logger.Warn("ignoring notification", logging.Error(err))
		return
	}
	var dropped int
	if msg.All {
		dropped = l.target.InvalidateAll()
	} else {
		dropped = l.target.Invalidate(msg.Window)
	}
	l.mu.Lock()
	l.received++
	l.mu.Unlock()
	l.logger.Info("snapshot changed, cache invalidated",
		logging.Window(string(msg.Window)),
		logging.Bool("all", msg.All),
		logging.Count(dropped))
}

// Received returns the number of notifications applied.
func (l *Listener) Received() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.received
}

func (l *Listener) String() string { return "notify-listener" }

// Publisher sends notifications to a listener.
type Publisher struct {
	sock  mangos.Socket
	topic string
}

// Dial connects a PUB socket to the listener at cfg.URL.
func Dial(cfg Config) (*Publisher, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.Dial(cfg.URL); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}
	return &Publisher{sock: sock, topic: cfg.topic()}, nil
}

// Publish announces that window changed.
func (p *Publisher) Publish(window records.TimeWindow) error {
	return p.sock.Send(Message{Window: window}.Encode(p.topic))
}

// PublishAll announces that every window changed.
func (p *Publisher) PublishAll() error {
	return p.sock.Send(Message{All: true}.Encode(p.topic))
}

// Close closes the socket.
func (p *Publisher) Close() error { return p.sock.Close() }
