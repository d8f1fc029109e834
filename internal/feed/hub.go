// Package feed broadcasts multi-PV analysis to WebSocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/park285/fairyboard/pkg/boarddto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub implements the orchestrator's analysis sink. A subscriber that falls
// behind by more than sendBuffer updates is disconnected.
type Hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
	closed  bool

	pingInterval time.Duration
	wg           sync.WaitGroup

	// shutdown은 Close에서 취소되어 모든 writeLoop를 즉시 끝낸다.
	shutdown context.Context
	cancel   context.CancelFunc
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		logger:       logger,
		clients:      make(map[*client]struct{}),
		pingInterval: 30 * time.Second,
		shutdown:     ctx,
		cancel:       cancel,
	}
}

// Publish sends update to every subscriber and keeps it for late joiners.
func (h *Hub) Publish(update boarddto.Analysis) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Warn("feed_marshal_failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("feed_client_slow")
			h.dropLocked(c)
		}
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the request and streams updates until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		h.logger.Warn("feed_accept_failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	h.logger.Info("feed_client_joined", zap.String("remote", r.RemoteAddr))
	ctx := conn.CloseRead(r.Context())
	h.writeLoop(ctx, c)

	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	h.logger.Info("feed_client_left", zap.String("remote", r.RemoteAddr))
}

// writeLoop never waits on the peer's close handshake: a dropped or
// shut-down client is closed with CloseNow so Close stays within its deadline.
func (h *Hub) writeLoop(ctx context.Context, c *client) {
	t := time.NewTicker(h.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-h.shutdown.Done():
			_ = c.conn.CloseNow()
			return
		case payload, ok := <-c.send:
			if !ok {
				_ = c.conn.CloseNow()
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and waits for their handlers.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Handler mounts the hub at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	return mux
}
