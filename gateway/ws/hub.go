// Package ws exposes resolved display updates to external observers over
// WebSocket. Browser overlays and dashboards subscribe once and receive every
// display update as a JSON envelope.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jasonwadsworth/aws-account-name/component"
	"github.com/jasonwadsworth/aws-account-name/errors"
	"github.com/jasonwadsworth/aws-account-name/metric"
	"github.com/jasonwadsworth/aws-account-name/pipeline/console"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// Envelope wraps every broadcast frame with type discrimination so the
// protocol can grow control frames later.
type Envelope struct {
	Type      string          `json:"type"` // currently always "display_update"
	ID        uint64          `json:"id"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Payload   json.RawMessage `json:"payload"`
}

// Config wires a Hub.
type Config struct {
	Addr     string // listen address, e.g. ":8090"; empty serves only via Handler
	Path     string // upgrade endpoint path, defaults to "/updates"
	Logger   *component.Logger
	Registry *metric.MetricsRegistry
}

// Hub is the WebSocket gateway component. It implements
// console.DisplayRenderer so a pipeline can be pointed straight at it, and
// it is itself idempotent only in the sense that duplicate updates are
// duplicate frames; subscribers are expected to key on account ID.
type Hub struct {
	addr   string
	path   string
	logger *component.Logger

	server *http.Server

	upgrader  websocket.Upgrader
	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*client

	frameID atomic.Uint64

	lifecycleMu sync.Mutex
	running     bool
	shutdown    chan struct{}
	wg          sync.WaitGroup

	clientsConnected prometheus.Gauge
	framesSent       prometheus.Counter
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	once    sync.Once
}

// NewHub creates the gateway.
func NewHub(cfg Config) *Hub {
	if cfg.Path == "" {
		cfg.Path = "/updates"
	}
	if cfg.Logger == nil {
		cfg.Logger = component.NewLogger("ws-gateway", nil, nil)
	}

	h := &Hub{
		addr:   cfg.Addr,
		path:   cfg.Path,
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*client),
	}

	if cfg.Registry != nil {
		h.clientsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "aws_account_name",
			Subsystem: "gateway",
			Name:      "clients_connected",
			Help:      "Currently connected WebSocket subscribers",
		})
		h.framesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aws_account_name",
			Subsystem: "gateway",
			Name:      "frames_sent_total",
			Help:      "Display update frames delivered to subscribers",
		})
		_ = cfg.Registry.Register("ws-gateway", "clients_connected", h.clientsConnected)
		_ = cfg.Registry.Register("ws-gateway", "frames_sent_total", h.framesSent)
	}
	return h
}

// Name implements component.Component.
func (h *Hub) Name() string { return "ws-gateway" }

// Initialize implements component.LifecycleComponent.
func (h *Hub) Initialize() error {
	if h.path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Hub", "Initialize", "upgrade path cannot be empty")
	}
	return nil
}

// Start implements component.LifecycleComponent. With an address configured
// it runs its own HTTP server; without one, mount Handler on an existing mux.
func (h *Hub) Start(ctx context.Context) error {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()
	if h.running {
		return errors.ErrAlreadyStarted
	}
	h.running = true
	h.shutdown = make(chan struct{})

	if h.addr != "" {
		mux := http.NewServeMux()
		mux.Handle(h.path, h.Handler())
		h.server = &http.Server{Addr: h.addr, Handler: mux}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				h.logger.Error("gateway server failed", err)
			}
		}()
	}

	h.wg.Add(1)
	go h.maintainClients(ctx)

	h.logger.Info("gateway started", "addr", h.addr, "path", h.path)
	return nil
}

// Stop implements component.LifecycleComponent.
func (h *Hub) Stop(timeout time.Duration) error {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	close(h.shutdown)

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			h.logger.Warn("gateway shutdown error", "error", err)
		}
		h.server = nil
	}

	h.closeAll()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.Wrap(errors.ErrConnectionTimeout, "Hub", "Stop", "await goroutines")
	}
}

// Handler returns the HTTP handler performing the WebSocket upgrade.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		c := &client{conn: conn}
		h.clientsMu.Lock()
		h.clients[conn] = c
		count := len(h.clients)
		h.clientsMu.Unlock()
		if h.clientsConnected != nil {
			h.clientsConnected.Set(float64(count))
		}
		h.logger.Info("subscriber connected", "remote", r.RemoteAddr, "clients", count)

		h.wg.Add(1)
		go h.readLoop(c)
	})
}

// Render implements console.DisplayRenderer: every resolved display state is
// broadcast to all subscribers.
func (h *Hub) Render(update console.DisplayUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return errors.WrapInvalid(err, "Hub", "Render", "marshal display update")
	}

	env := Envelope{
		Type:      "display_update",
		ID:        h.frameID.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return errors.WrapInvalid(err, "Hub", "Render", "marshal envelope")
	}

	for _, c := range h.snapshot() {
		if err := h.send(c, frame); err != nil {
			h.drop(c)
			continue
		}
		if h.framesSent != nil {
			h.framesSent.Inc()
		}
	}
	return nil
}

// readLoop drains control frames from a subscriber; the protocol is one-way,
// so anything readable just keeps the connection's deadlines fresh.
func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.drop(c)

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		select {
		case <-h.shutdown:
			return
		default:
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// maintainClients pings subscribers on a steady cadence and drops the dead.
func (h *Hub) maintainClients(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.shutdown:
			return
		case <-ticker.C:
			for _, c := range h.snapshot() {
				c.writeMu.Lock()
				err := c.conn.WriteMessage(websocket.PingMessage, nil)
				c.writeMu.Unlock()
				if err != nil {
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) snapshot() []*client {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if !c.closed.Load() {
			out = append(out, c)
		}
	}
	return out
}

// send writes one frame. Gorilla connections panic on concurrent writes, so
// every write goes through the per-client mutex.
func (h *Hub) send(c *client, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (h *Hub) drop(c *client) {
	c.once.Do(func() {
		c.closed.Store(true)
		h.clientsMu.Lock()
		delete(h.clients, c.conn)
		count := len(h.clients)
		h.clientsMu.Unlock()
		_ = c.conn.Close()
		if h.clientsConnected != nil {
			h.clientsConnected.Set(float64(count))
		}
	})
}

func (h *Hub) closeAll() {
	for _, c := range h.snapshot() {
		h.drop(c)
	}
}
