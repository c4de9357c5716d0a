package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/privatepub/internal/events"
	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
)

// Bridge message types.
const (
	BridgeTypeEvent    = "event"
	BridgeTypeIncoming = "incoming"
	BridgeTypePing     = "ping"
	BridgeTypePong     = "pong"
	BridgeTypeAck      = "ack"
	BridgeTypeError    = "error"
)

// Bridge connection settings.
const (
	// wsSendBufferSize is the per-connection outbound message buffer size.
	wsSendBufferSize = 256

	// wsMaxMessageSize matches the HTTP body limit so a message the broker
	// could publish over HTTP also fits through the bridge.
	wsMaxMessageSize = maxRequestBodySize

	wsPingInterval = 30 * time.Second
	wsPongTimeout  = 10 * time.Second
)

// BridgeMessage is the envelope exchanged with the broker over the bridge.
//
// The broker sends "event" messages carrying a lifecycle Event and
// "incoming" messages carrying a Bayeux message to authenticate. Incoming
// messages are answered with the same type and ID and the (possibly
// rewritten) message; events are acknowledged only when they carry an ID.
type BridgeMessage struct {
	Type    string                `json:"type"`
	ID      string                `json:"id,omitempty"`
	Event   *events.Event         `json:"event,omitempty"`
	Message *events.BayeuxMessage `json:"message,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Hub tracks connected broker bridges.
type Hub struct {
	logger  *logging.Logger
	clients map[*BrokerConn]struct{}
	mu      sync.RWMutex
}

// BrokerConn is one broker bridge connection.
type BrokerConn struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	adapter *events.Adapter
	broker  string // token subject of the connected broker
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Brokers are servers authenticated by token, not browsers.
		return true
	},
}

// NewHub creates a new bridge hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*BrokerConn]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every broker.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a connection to the hub.
func (h *Hub) Register(client *BrokerConn) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("broker bridge connected", "broker", client.broker, "bridges", h.ClientCount())
}

// Unregister removes a connection from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *BrokerConn) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
		h.logger.Info("broker bridge disconnected", "broker", client.broker, "bridges", h.ClientCount())
	}
}

// ClientCount returns the number of connected brokers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all brokers and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleBrokerOptions returns the merged adapter options for the broker.
func (s *Server) handleBrokerOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.adapter.Options())
}

// handleBrokerSocket upgrades an authenticated broker to the event bridge.
func (s *Server) handleBrokerSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &BrokerConn{
		hub:     s.hub,
		conn:    conn,
		send:    make(chan []byte, wsSendBufferSize),
		adapter: s.adapter,
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		client.broker = claims.Subject
	}

	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump reads and handles messages until the connection drops.
func (c *BrokerConn) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "broker", c.broker, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "broker", c.broker, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
		c.handleMessage(message)
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *BrokerConn) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsPongTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(wsPongTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one bridge message.
func (c *BrokerConn) handleMessage(data []byte) {
	var msg BridgeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case BridgeTypeEvent:
		c.handleEvent(msg)
	case BridgeTypeIncoming:
		c.handleIncoming(msg)
	case BridgeTypePing:
		c.reply(BridgeMessage{Type: BridgeTypePong, ID: msg.ID})
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// handleEvent dispatches a lifecycle event to the hooks.
func (c *BrokerConn) handleEvent(msg BridgeMessage) {
	if msg.Event == nil {
		c.sendError(msg.ID, "event message without event")
		return
	}
	if err := c.adapter.Dispatch(*msg.Event); err != nil {
		c.hub.logger.Warn("broker event rejected", "broker", c.broker, "event", msg.Event.Name, "error", err)
		c.sendError(msg.ID, err.Error())
		return
	}
	if msg.ID != "" {
		c.reply(BridgeMessage{Type: BridgeTypeAck, ID: msg.ID})
	}
}

// handleIncoming runs a Bayeux message through the extensions and returns it.
func (c *BrokerConn) handleIncoming(msg BridgeMessage) {
	if msg.Message == nil {
		c.sendError(msg.ID, "incoming message without message")
		return
	}
	if err := c.adapter.Incoming(msg.Message); err != nil {
		c.hub.logger.Error("extension failed", "broker", c.broker, "channel", msg.Message.Channel, "error", err)
		c.sendError(msg.ID, err.Error())
		return
	}
	c.reply(BridgeMessage{Type: BridgeTypeIncoming, ID: msg.ID, Message: msg.Message})
}

// reply queues msg for the writer.
func (c *BrokerConn) reply(msg BridgeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to marshal bridge message", "type", msg.Type, "error", err)
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the broker.
func (c *BrokerConn) sendError(id, message string) {
	c.reply(BridgeMessage{Type: BridgeTypeError, ID: id, Error: message})
}

// trySend queues data without blocking.
// It silently handles closed channels (broker disconnected during shutdown)
// and full buffers (slow broker).
func (c *BrokerConn) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("bridge send buffer full, dropping message", "broker", c.broker)
	}
}
