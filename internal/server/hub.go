package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/llehouerou/onair/internal/logging"
	"github.com/llehouerou/onair/internal/playback"
	"github.com/llehouerou/onair/internal/player"
)

const (
	clientBufferSize = 16
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

var (
	_ playback.Publisher    = (*Hub)(nil)
	_ player.NowPlayingSink = (*Hub)(nil)
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local UI clients only; the API listens on loopback by default.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans events out to websocket clients. It is the UI status publisher:
// a client that cannot keep up is disconnected rather than slowing playback.
type Hub struct {
	titles Titles
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates a hub. Titles may be nil.
func NewHub(titles Titles, logger *slog.Logger) *Hub {
	return &Hub{
		titles:  titles,
		logger:  logging.Component(logger, "hub"),
		clients: make(map[*wsClient]struct{}),
	}
}

// PublishStatus pushes a status event.
func (h *Hub) PublishStatus(_ context.Context, status playback.Status) error {
	ev := Event{Type: EventStatus, Status: &status}
	if h.titles != nil {
		t := h.titles.Title()
		ev.Title = &t
	}
	h.broadcast(ev)
	return nil
}

// PublishNowPlaying pushes a now-playing event.
func (h *Hub) PublishNowPlaying(_ context.Context, song string) error {
	ev := Event{Type: EventNowPlaying, Song: song}
	if h.titles != nil {
		t := h.titles.Title()
		t.Song = song
		ev.Title = &t
	}
	h.broadcast(ev)
	return nil
}

// PublishRetry pushes a retry event.
func (h *Hub) PublishRetry(ev playback.RetryEvent) {
	msg := Event{Type: EventRetry, Attempt: ev.Attempt, MaxAttempts: ev.MaxAttempts}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	h.broadcast(msg)
}

// ForwardRetries pushes retry events from sub until it closes or ctx is done.
func (h *Hub) ForwardRetries(ctx context.Context, sub *playback.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case ev := <-sub.Retrying:
			h.PublishRetry(ev)
		case <-sub.StatusChanged:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

func (h *Hub) broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
			c.close()
			delete(h.clients, c)
		}
	}
}

func (h *Hub) register(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// serve upgrades the request and pumps events until the client leaves.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientBufferSize)}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		return conn.Close()
	}
	h.logger.Debug("websocket connected", "remote", conn.RemoteAddr().String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPump(c)
	}()
	h.writePump(c)
	<-done
	h.logger.Debug("websocket disconnected", "remote", conn.RemoteAddr().String())
	return nil
}

// readPump drains control frames so pongs and close frames are handled.
func (h *Hub) readPump(c *wsClient) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
