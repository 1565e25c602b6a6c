package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"FollowFeed/internal/domain/models"
	"FollowFeed/internal/usecase"
	xlogger "FollowFeed/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	clientBuffer = 64
)

// clientMessage is what a browser may send to narrow its stream.
type clientMessage struct {
	Action string   `json:"action"` // "subscribe"
	Types  []string `json:"types"`  // event type prefixes, e.g. "signal." or "feed.prices"
}

type client struct {
	conn *websocket.Conn

	mu       sync.RWMutex
	prefixes []string
}

func (c *client) setPrefixes(p []string) {
	c.mu.Lock()
	c.prefixes = p
	c.mu.Unlock()
}

func (c *client) wants(t models.EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.prefixes) == 0 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(string(t), p) {
			return true
		}
	}
	return false
}

// FeedHandler streams bus events to websocket clients, one bus subscription per client.
type FeedHandler struct {
	logger   *xlogger.Logger
	bus      *usecase.EventBus
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewFeedHandler(logger *xlogger.Logger, bus *usecase.EventBus) *FeedHandler {
	return &FeedHandler{
		logger: logger,
		bus:    bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

func (h *FeedHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/feed", h.Serve)
}

// Serve upgrades the request. ?types=a,b sets the initial type prefixes.
func (h *FeedHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}

	cl := &client{conn: conn}
	if q := c.QueryParam("types"); q != "" {
		cl.setPrefixes(splitTypes(q))
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	events, cancel := h.bus.Subscribe(clientBuffer)
	h.logger.Debug("websocket client connected", xlogger.String("remote", c.RealIP()))

	go h.writeLoop(cl, events)
	h.readLoop(cl)

	cancel()
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", xlogger.String("remote", c.RealIP()))
	return nil
}

// readLoop runs until the peer goes away. Control frames are handled here.
func (h *FeedHandler) readLoop(cl *client) {
	conn := cl.conn
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", xlogger.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Action != "subscribe" {
			continue
		}
		cl.setPrefixes(msg.Types)
	}
}

// writeLoop is the connection's only writer. It exits when the subscription closes.
func (h *FeedHandler) writeLoop(cl *client, events <-chan models.Event) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				_ = cl.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			if !cl.wants(e.Type) {
				continue
			}
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *FeedHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *FeedHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		_ = cl.conn.Close()
	}
}

func splitTypes(q string) []string {
	var out []string
	for _, p := range strings.Split(q, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
