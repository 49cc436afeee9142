package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"go-pos-inventory/internal/events"
)

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Message is the envelope sent to every connected terminal.
type Message struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

type Hub struct {
	clients    map[Conn]bool
	register   chan Conn
	unregister chan Conn
	broadcast  chan []byte
	// done is closed when Run returns; nothing is queued after that.
	done   chan struct{}
	mutex  sync.Mutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[Conn]bool),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mutex.Unlock()
			h.logger.Debug("ws client connected", zap.Int("clients", n))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case message := <-h.broadcast:
			h.mutex.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Debug("dropping ws client", zap.Error(err))
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// ClientCount returns the number of connected terminals.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Register adds conn to the broadcast set. It returns false once the hub has
// stopped, in which case the caller owns conn.
func (h *Hub) Register(conn Conn) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes and closes conn. It is a no-op after the hub stopped.
func (h *Hub) Unregister(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Send queues msg for every client. Messages are dropped when the queue is
// full or the hub has stopped.
func (h *Hub) Send(msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode ws message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- body:
	case <-h.done:
	default:
		h.logger.Warn("ws queue full, dropping message", zap.String("type", msg.Type))
	}
}

// Attach forwards the bus topics terminals care about.
func (h *Hub) Attach(bus *events.Bus) error {
	subs := map[string]interface{}{
		events.TopicSaleCommitted: func(ev events.SaleEvent) {
			h.Send(Message{
				Type:    events.TopicSaleCommitted,
				Data:    ev,
				Message: fmt.Sprintf("%s completed sale %s (%s)", ev.Actor.Name, ev.ReceiptNo, ev.Total.StringFixed(2)),
			})
		},
		events.TopicSaleEdited: func(ev events.SaleEvent) {
			h.Send(Message{
				Type:    events.TopicSaleEdited,
				Data:    ev,
				Message: fmt.Sprintf("%s edited sale %s", ev.Actor.Name, ev.ReceiptNo),
			})
		},
		events.TopicInventoryChanged: func(ev events.InventoryEvent) {
			h.Send(Message{
				Type:    events.TopicInventoryChanged,
				Data:    ev,
				Message: fmt.Sprintf("'%s' stock %d -> %d", ev.Name, ev.OldQuantity, ev.NewQuantity),
			})
		},
		events.TopicStockAlert: func(ev events.StockAlertEvent) {
			h.Send(Message{
				Type:    events.TopicStockAlert,
				Data:    ev,
				Message: fmt.Sprintf("'%s' is at %s stock level (%d left)", ev.Name, ev.Level, ev.Quantity),
			})
		},
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}
