package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"brunopizza/pkg/events"
	"brunopizza/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// OrderHub pushes order events to websocket clients watching that order.
// It is an events.Publisher, so the order service feeds it like any broker.
type OrderHub struct {
	clients    map[string]map[*client]bool // orderID -> set of clients
	broadcast  chan events.Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.Mutex
	log        *zap.Logger
}

// client owns its socket writes. The hub only hands it events through send and
// closes send when the client is dropped.
type client struct {
	conn    *websocket.Conn
	orderID string
	send    chan events.Event
}

const (
	writeWait      = 10 * time.Second
	clientQueueLen = 16
)

var ErrHubClosed = errors.New("order hub closed")

func NewOrderHub(log *zap.Logger) *OrderHub {
	return &OrderHub{
		clients:    make(map[string]map[*client]bool),
		broadcast:  make(chan events.Event, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register/unregister/broadcast until ctx is done, then drops every client.
// It never writes to a socket, so a stalled client cannot hold up publishers.
func (h *OrderHub) Run(ctx context.Context) error {
	defer h.closeAll()
	defer h.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.orderID] == nil {
				h.clients[c.orderID] = make(map[*client]bool)
			}
			h.clients[c.orderID][c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients[ev.OrderID] {
				select {
				case c.send <- ev:
				default:
					h.log.Debug("ws client too slow, dropped", zap.String("order_id", ev.OrderID))
					h.drop(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c and closes its queue. Callers hold h.mu.
func (h *OrderHub) drop(c *client) {
	if _, ok := h.clients[c.orderID][c]; !ok {
		return
	}
	delete(h.clients[c.orderID], c)
	if len(h.clients[c.orderID]) == 0 {
		delete(h.clients, c.orderID)
	}
	close(c.send)
}

func (h *OrderHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for c := range conns {
			h.drop(c)
		}
	}
}

// Publish queues ev for the order's watchers.
func (h *OrderHub) Publish(ctx context.Context, ev events.Event) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- ev:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *OrderHub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// Watchers reports how many clients follow orderID.
func (h *OrderHub) Watchers(orderID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[orderID])
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket serves GET /ws/orders/:id. The order must exist; the current
// order is sent first, then every later event.
func (h *OrderHub) HandleWebSocket(orders *services.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")
		o, err := orders.Get(c.Request.Context(), orderID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.log.Warn("ws upgrade failed", zap.Error(err))
			return
		}

		cl := &client{conn: conn, orderID: o.ID, send: make(chan events.Event, clientQueueLen)}
		cl.send <- events.New("order.snapshot", o.ID, map[string]any{
			"status":        o.Status,
			"paymentStatus": o.PaymentStatus,
			"finalPrice":    o.FinalPrice,
		})
		select {
		case h.register <- cl:
		case <-h.done:
			conn.Close()
			return
		}
		go h.writePump(cl)
		go h.readPump(cl)
	}
}

// writePump is the only writer on the socket. It exits when the hub closes the
// queue or a write misses its deadline.
func (h *OrderHub) writePump(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.log.Debug("ws write failed", zap.String("order_id", c.orderID), zap.Error(err))
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only drains the socket so a client close is noticed.
func (h *OrderHub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
