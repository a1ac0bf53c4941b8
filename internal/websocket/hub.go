package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Requests carry the whole history.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 32 * 1024,
}

// StreamHandler runs one streaming turn for a message received on a connection
type StreamHandler interface {
	HandleStream(ctx context.Context, connectionID string, body []byte, pusher repositories.Pusher) int
}

// Hub maintains the set of active clients and delivers pushed frames to them.
// It is the self-hosted counterpart of the API Gateway management API.
type Hub struct {
	// Registered clients by connection ID.
	clients map[string]*Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	// In-flight turns, waited on at shutdown.
	turns sync.WaitGroup

	handler StreamHandler
	metrics *metrics.Metrics
	logger  *zap.Logger
}

var _ repositories.Pusher = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(handler StreamHandler, m *metrics.Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		handler: handler,
		metrics: m,
		logger:  logger,
	}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Closed when the client is unregistered.
	done chan struct{}

	id     string
	logger *zap.Logger

	// Serializes turns so frames of consecutive requests never interleave.
	turnMu sync.Mutex
}

// HandleWebSocket upgrades the request and serves the connection until it closes.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	id := uuid.NewString()
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
		id:     id,
		logger: h.logger.With(zap.String("connectionID", id)),
	}
	h.register(client)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	client.logger.Info("Client registered")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.id]
	if ok {
		delete(h.clients, client.id)
		close(client.done)
	}
	h.mu.Unlock()

	if ok {
		h.metrics.ConnectionClosed()
		client.logger.Info("Client unregistered")
	}
}

// PostToConnection queues payload for delivery as one text message.
func (h *Hub) PostToConnection(ctx context.Context, connectionID string, payload []byte) error {
	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrConnectionGone, connectionID)
	}

	timer := time.NewTimer(writeWait)
	defer timer.Stop()

	select {
	case client.send <- payload:
		return nil
	case <-client.done:
		return fmt.Errorf("%w: %s", domain.ErrConnectionGone, connectionID)
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: send buffer full for %s", domain.ErrTransport, connectionID)
	}
}

// ConnectionCount returns the number of registered clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and waits for in-flight turns or ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.turns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		client.conn.Close()
	}
	return nil
}

// readPump pumps messages from the websocket connection to the handler.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType != websocket.TextMessage {
			c.logger.Warn("Ignoring non-text message", zap.Int("type", messageType))
			continue
		}

		c.hub.turns.Add(1)
		go c.runTurn(message)
	}
}

// runTurn is not tied to the connection: a client that leaves mid-turn does
// not cancel it, its frames are simply dropped.
func (c *Client) runTurn(message []byte) {
	defer c.hub.turns.Done()

	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	status := c.hub.handler.HandleStream(context.Background(), c.id, message, c.hub)
	c.logger.Debug("Turn handled", zap.Int("status", status))
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
