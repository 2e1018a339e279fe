package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sh4869221b/niconeon/internal/middleware"
	"github.com/sh4869221b/niconeon/internal/rpc"
)

/*
LEARNING: WEBSOCKET HUB

Every websocket client is both a JSON-RPC caller and a notification listener:

  client frame ──► ReadPump ──► Dispatcher ──► response ──► client.send
  filter change ─► Hub.Notify ─► broadcast ──► every client.send
  client.send ───► WritePump ──► one text frame per message

Key Concepts:
1. **One event loop** owns register/unregister/broadcast, so the client set is
   only changed from one goroutine.
2. **Non-blocking fan-out**: a client whose buffer is full is dropped instead of
   stalling everyone else.
3. **send is never closed**: producers (hub and ReadPump) race with removal, so
   a separate done channel tells WritePump to stop.
*/

const sendBufferSize = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The desktop client connects from a local origin
		return true
	},
}

// Dispatcher answers one raw JSON-RPC request
type Dispatcher interface {
	HandleMessage(ctx context.Context, data []byte) *rpc.Response
}

// Hub tracks connected websocket clients and fans notifications out to them
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex

	dispatcher Dispatcher

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a hub. SetDispatcher must be called before clients connect.
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
	}
}

// SetDispatcher sets where client requests are sent.
// The rpc server needs the hub as its notifier, so the two are wired in two steps.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Start begins the hub event loop
func (h *Hub) Start() {
	logrus.Info("🔄 Starting websocket hub...")

	go func() {
		for {
			select {
			case <-h.done:
				return

			case c := <-h.register:
				h.mu.Lock()
				h.clients[c] = true
				total := len(h.clients)
				h.mu.Unlock()
				logrus.WithFields(logrus.Fields{"client_id": c.ID, "clients": total}).Info("🔌 Websocket client connected")

			case c := <-h.unregister:
				h.remove(c)

			case msg := <-h.broadcast:
				h.fanOut(msg)
			}
		}
	}()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.stop()
		logrus.WithFields(logrus.Fields{"client_id": c.ID, "clients": total}).Info("👋 Websocket client disconnected")
	}
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		if !c.enqueue(msg) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logrus.WithField("client_id", c.ID).Warn("⚠️  Client buffer full, closing connection")
		h.remove(c)
	}
}

// Notify broadcasts a notification to every connected client
func (h *Hub) Notify(n *rpc.Notification) {
	msg, err := json.Marshal(n)
	if err != nil {
		logrus.WithError(err).WithField("method", n.Method).Error("failed to encode notification")
		return
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and starts the client pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	// The request context is cancelled once this handler returns,
	// the pumps outlive it but keep its values (request id, span).
	ctx := context.WithoutCancel(r.Context())

	ctx, span := middleware.StartSpan(ctx, "WebSocket.Connect",
		attribute.String("request.id", middleware.GetRequestID(ctx)),
	)
	defer span.End()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("failed to upgrade websocket")
		middleware.AddSpanError(ctx, err)
		return
	}

	c := newClient(ksuid.New().String(), conn, h)
	span.SetAttributes(attribute.String("client.id", c.ID))

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	// Learning: Separate goroutines prevent deadlock between reading and writing
	go c.WritePump()
	go c.ReadPump(ctx)
}

// Shutdown stops the event loop and closes every connection
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		logrus.Info("🛑 Shutting down websocket hub...")
		close(h.done)

		h.mu.Lock()
		for c := range h.clients {
			c.stop()
		}
		h.clients = make(map[*Client]bool)
		h.mu.Unlock()

		logrus.Info("✓ Websocket hub shutdown complete")
	})
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
