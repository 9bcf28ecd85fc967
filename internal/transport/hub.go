package transport

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ganot/atelier/internal/events"
	"github.com/gorilla/websocket"
)

const (
	hubSendBuffer   = 8
	hubWriteTimeout = 5 * time.Second
)

// Hub fans history change notifications out to every open change stream of
// the affected user.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	conn    *websocket.Conn
	send    chan string
	done    chan struct{}
	stopped sync.Once
}

func (c *hubClient) stop() {
	c.stopped.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		clients: make(map[string]map[*hubClient]struct{}),
	}
}

// Notify tells userID's streams that their history changed.
func (h *Hub) Notify(userID string) {
	h.Broadcast(userID, string(events.TopicViewedChanged))
}

// Broadcast queues msg on every stream of userID. Slow streams drop it.
func (h *Hub) Broadcast(userID, msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("change stream backlogged, dropping message", "user_id", userID)
		}
	}
}

// Clients returns the number of open streams for userID.
func (h *Hub) Clients(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// Serve upgrades the request and holds the stream open until either side
// closes it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade change stream", "error", err)
		return
	}

	c := &hubClient{
		conn: conn,
		send: make(chan string, hubSendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(userID, c) {
		c.stop()
		return
	}
	defer h.unregister(userID, c)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(c)
	}()

	h.logger.Debug("change stream opened", "user_id", userID)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	c.stop()
	wg.Wait()
	h.logger.Debug("change stream closed", "user_id", userID)
}

func (h *Hub) writeLoop(c *hubClient) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				c.stop()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) register(userID string, c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*hubClient]struct{})
	}
	h.clients[userID][c] = struct{}{}
	return true
}

func (h *Hub) unregister(userID string, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], c)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Close ends every stream and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*hubClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		c.stop()
	}
}
