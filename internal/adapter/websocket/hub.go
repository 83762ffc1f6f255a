package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
)

var (
	ErrClientGone   = errors.New("websocket client gone")
	ErrSlowConsumer = errors.New("websocket send buffer full")
)

const sendBuffer = 256

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Frame is every message the server writes.
type Frame struct {
	Kind     string        `json:"kind"` // event, command or error
	Event    *domain.Event `json:"event,omitempty"`
	Command  string        `json:"command,omitempty"`
	Language string        `json:"language,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Hub routes bus events to the sockets of the client they belong to.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     *zap.Logger
}

type Client struct {
	hub      *Hub
	clientID string
	conn     Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log,
	}
}

// Register attaches conn to clientID and starts its writer.
func (h *Hub) Register(clientID string, conn Conn) *Client {
	c := &Client{
		hub:      h,
		clientID: clientID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if h.clients[clientID] == nil {
		h.clients[clientID] = make(map[*Client]struct{})
	}
	h.clients[clientID][c] = struct{}{}
	h.mu.Unlock()

	go c.writePump()
	return c
}

// Unregister detaches c and waits for its writer to flush and close the
// connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[c.clientID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.clientID)
		}
	}
	h.mu.Unlock()

	c.close()
	<-c.done
}

// Deliver is subscribed to the event bus.
func (h *Hub) Deliver(ctx context.Context, ev domain.Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[ev.ClientID]))
	for c := range h.clients[ev.ClientID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(Frame{Kind: "event", Event: &ev}); err != nil {
			h.log.Warn("Dropping event for websocket client",
				zap.String("client_id", ev.ClientID),
				zap.String("type", string(ev.Type)),
				zap.Error(err),
			)
		}
	}
}

// Connections reports how many sockets clientID has open.
func (h *Hub) Connections(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[clientID])
}

// Send queues a frame without blocking.
func (c *Client) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientGone
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) writePump() {
	defer close(c.done)
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.log.Debug("Websocket write failed", zap.String("client_id", c.clientID), zap.Error(err))
			// unblock the reader so the handler unregisters us
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
