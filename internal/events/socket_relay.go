package events

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultRedialInterval is the pause between reconnect attempts.
const DefaultRedialInterval = 3 * time.Second

// SocketRelay subscribes to the mirror server's change stream and republishes
// each server push as a local signal. It gives authenticated sessions a real
// cross-session channel in place of waiting for focus.
type SocketRelay struct {
	url      string
	token    func(context.Context) string
	bus      Bus
	logger   *slog.Logger
	dialer   *websocket.Dialer
	interval time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSocketRelay creates a relay for the stream at url. token is consulted on
// every dial; an empty token skips the attempt.
func NewSocketRelay(url string, token func(context.Context) string, bus Bus, logger *slog.Logger) *SocketRelay {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SocketRelay{
		url:      url,
		token:    token,
		bus:      bus,
		logger:   logger,
		dialer:   websocket.DefaultDialer,
		interval: DefaultRedialInterval,
	}
}

// WithRedialInterval overrides the reconnect pause.
func (r *SocketRelay) WithRedialInterval(d time.Duration) *SocketRelay {
	r.interval = d
	return r
}

// Start launches the connect/read loop.
func (r *SocketRelay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop closes the connection and waits for the loop to exit.
func (r *SocketRelay) Stop() {
	r.mu.Lock()
	cancel, done, conn := r.cancel, r.done, r.conn
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		conn.Close()
	}
	<-done
}

func (r *SocketRelay) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := r.session(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("change stream disconnected", "url", r.url, "error", err)
		}
		timer.Reset(r.interval)
	}
}

// session runs one connection until it fails.
func (r *SocketRelay) session(ctx context.Context) error {
	token := r.token(ctx)
	if token == "" {
		return nil
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := r.dialer.DialContext(ctx, r.url, header)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		conn.Close()
	}()

	// Closing the connection is the only way to unblock ReadMessage.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	r.logger.Debug("change stream connected", "url", r.url)
	for {
		mt, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		r.bus.Publish(topicFromWire(string(payload)))
	}
}

func topicFromWire(s string) Topic {
	switch Topic(s) {
	case TopicCartChanged, TopicFocus:
		return Topic(s)
	default:
		return TopicViewedChanged
	}
}
