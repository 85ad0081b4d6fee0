// Package livereload tells open browser tabs to reload after a rebuild.
package livereload

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/scalapatisserie/muffin-site/internal/logger"
)

const writeTimeout = 5 * time.Second

// Path is the websocket route below the site base URL.
const Path = "__livereload"

// Message is sent to every client when a new build is served.
type Message struct {
	Type    string `json:"type"`
	BuildID string `json:"build_id"`
}

type client struct {
	send chan Message
}

// Hub tracks the connected browsers.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  log,
	}
}

// Handler upgrades the request and holds the connection until the browser
// goes away. Only same origin connections are accepted.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			h.logger.Debug("livereload upgrade failed", logger.Error(err))
			return
		}
		defer conn.CloseNow()

		c := &client{send: make(chan Message, 1)}
		h.add(c)
		defer h.remove(c)

		// Browsers never send anything; CloseRead handles control frames
		// and cancels ctx once the peer closes.
		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case msg := <-c.send:
				if err := write(ctx, conn, msg); err != nil {
					if !errors.Is(err, context.Canceled) {
						h.logger.Debug("livereload write failed", logger.Error(err))
					}
					return
				}
			case <-ctx.Done():
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// Notify asks every client to reload. A client that has not consumed the
// previous message only gets one reload.
func (h *Hub) Notify(buildID string) {
	msg := Message{Type: "reload", BuildID: buildID}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	if n := len(h.clients); n > 0 {
		h.logger.Debug("livereload notified",
			logger.String("build_id", buildID),
			logger.Int("clients", n))
	}
}

// Clients returns the number of connected browsers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
