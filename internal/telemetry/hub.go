// Package telemetry streams per-frame tracking events to websocket clients
// for dashboards and debugging.
package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dudu/gazecursor/internal/tracker"
)

const (
	writeTimeout = 2 * time.Second
	clientBuffer = 64
)

// Message is the envelope written to clients
type Message struct {
	Session string        `json:"session"`
	Event   tracker.Event `json:"event"`
}

type client struct {
	conn *websocket.Conn
	send chan tracker.Event
}

// Hub fans tracker events out to connected clients. Publish never blocks:
// a client that falls behind loses events.
type Hub struct {
	session  string
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	server  *http.Server
}

// NewHub creates a hub tagged with a fresh session id
func NewHub(allowAnyOrigin bool, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Hub{
		session: uuid.NewString(),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	h.log = log.WithFields(logrus.Fields{"component": "telemetry", "session": h.session})
	if allowAnyOrigin {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return h
}

// Session returns the id attached to every message
func (h *Hub) Session() string {
	return h.session
}

// Publish implements tracker.Sink
func (h *Hub) Publish(e tracker.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- e:
		default:
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan tracker.Event, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Info("telemetry client connected")

	gone := make(chan struct{})
	go h.readLoop(c, gone)
	h.writeLoop(c, gone)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	conn.Close()
	h.log.WithField("remote", r.RemoteAddr).Info("telemetry client disconnected")
}

// readLoop drains client frames so close and ping control messages are handled
func (h *Hub) readLoop(c *client, gone chan<- struct{}) {
	defer close(gone)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client, gone <-chan struct{}) {
	for {
		select {
		case <-gone:
			return
		case e := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(Message{Session: h.session, Event: e}); err != nil {
				h.log.WithError(err).Debug("telemetry write failed")
				return
			}
		}
	}
}

// Start serves the hub at /ws on addr in the background
func (h *Hub) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", h)

	h.mu.Lock()
	h.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := h.server
	h.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.WithError(err).Error("telemetry server stopped")
		}
	}()
	h.log.WithField("addr", ln.Addr().String()).Info("telemetry listening")
	return nil
}

// Close stops the server and disconnects clients
func (h *Hub) Close() error {
	h.mu.Lock()
	srv := h.server
	for c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
