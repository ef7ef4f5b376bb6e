package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/locvowork/conductores_admin/internal/logger"
	"github.com/locvowork/conductores_admin/internal/metrics"
)

// Listener keeps a connection to the upstream notification socket and
// republishes its events on the hub.
type Listener struct {
	url        string
	hub        *Hub
	dialer     *websocket.Dialer
	header     http.Header
	minBackoff time.Duration
	maxBackoff time.Duration
	metrics    *metrics.Metrics
}

// ListenerOption configures the Listener.
type ListenerOption func(*Listener)

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(initial, limit time.Duration) ListenerOption {
	return func(l *Listener) {
		l.minBackoff = initial
		l.maxBackoff = limit
	}
}

// WithHeader adds headers to the upstream handshake.
func WithHeader(h http.Header) ListenerOption {
	return func(l *Listener) {
		l.header = h
	}
}

func NewListener(url string, hub *Hub, m *metrics.Metrics, opts ...ListenerOption) *Listener {
	l := &Listener{
		url:        url,
		hub:        hub,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
		metrics:    m,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run connects, relays and reconnects with exponential backoff until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	backoff := l.minBackoff
	for {
		connected, err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = l.minBackoff
		}
		logger.WarnLog(ctx, "upstream notification socket lost (%v), retrying in %s", err, backoff)
		l.metrics.IncUpstreamReconnect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > l.maxBackoff {
			backoff = l.maxBackoff
		}
	}
}

// listen reports whether the handshake succeeded, and the error that ended the session.
func (l *Listener) listen(ctx context.Context) (bool, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.url, l.header)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	logger.InfoLog(ctx, "connected to upstream notification socket %s", l.url)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			logger.WarnLog(ctx, "discarding malformed notification: %v", err)
			continue
		}
		if ev.Evento == "" {
			continue
		}
		l.hub.Publish(ev)
	}
}
