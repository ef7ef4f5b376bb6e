package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/metrics"
)

// EventoConexion is the first event every browser socket receives.
const EventoConexion = "conexion"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 16
	broadcastQueue = 256
)

// Event is a processing notification. An empty SocketID reaches every client.
type Event struct {
	SocketID    string          `json:"socket_id"`
	Evento      string          `json:"evento"`
	ConductorID *int64          `json:"conductor_id,omitempty"`
	Progreso    *float64        `json:"progreso,omitempty"`
	Mensaje     string          `json:"mensaje,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the HTTP middleware
	},
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

// Hub keeps browser sockets keyed by socket id and routes events to them.
type Hub struct {
	clients   map[string]*client
	broadcast chan Event
	mu        sync.Mutex
	metrics   *metrics.Metrics
}

// NewHub creates a hub. Call Run to start routing.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:   make(map[string]*client),
		broadcast: make(chan Event, broadcastQueue),
		metrics:   m,
	}
}

// Run routes published events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.broadcast:
			h.route(ctx, ev)
		}
	}
}

func (h *Hub) route(ctx context.Context, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make([]*client, 0, 1)
	if ev.SocketID == "" {
		for _, c := range h.clients {
			targets = append(targets, c)
		}
	} else if c, ok := h.clients[ev.SocketID]; ok {
		targets = append(targets, c)
	} else {
		logger.DebugLog(ctx, "no socket %s for event %s", ev.SocketID, ev.Evento)
		return
	}

	for _, c := range targets {
		select {
		case c.send <- ev:
		default:
			logger.WarnLog(ctx, "socket %s is not keeping up, dropping %s", c.id, ev.Evento)
		}
	}
	h.metrics.IncNotificationEvent(ev.Evento)
}

// Publish queues an event for routing. It never blocks; a full queue drops the event.
func (h *Hub) Publish(ev Event) bool {
	select {
	case h.broadcast <- ev:
		return true
	default:
		logger.WarnLog(context.Background(), "notification queue full, dropping %s", ev.Evento)
		return false
	}
}

// Len returns the number of registered sockets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetNotificationClients(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.SetNotificationClients(n)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	h.metrics.SetNotificationClients(0)
}

// ServeWS upgrades the request, assigns a socket id and blocks until the browser disconnects.
// The id is sent in the first message so the browser can pass it as socket-id on AI requests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorLog(ctx, "Failed to upgrade notification socket", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan Event, clientBuffer)}
	c.send <- Event{SocketID: c.id, Evento: EventoConexion}
	h.register(c)
	logger.InfoLog(ctx, "notification socket %s connected", c.id)

	done := make(chan struct{})
	go c.writePump(ctx, done)
	c.readPump(ctx)

	h.unregister(c)
	<-done
	logger.InfoLog(ctx, "notification socket %s closed", c.id)
}

// readPump discards browser messages and returns when the connection drops.
func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.DebugLog(ctx, "notification socket %s read: %v", c.id, err)
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (c *client) writePump(ctx context.Context, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(done)
	}()
	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				logger.DebugLog(ctx, "notification socket %s write: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
