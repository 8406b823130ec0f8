package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Role distinguishes plain display viewers from admin consoles. Admin-only
// envelope kinds are mirrored to admin connections and skipped for displays.
type Role string

const (
	RoleDisplay Role = "display"
	RoleAdmin   Role = "admin"
)

// Connection represents one live WebSocket client subscribed to a single
// mosaic. A connection is owned by exactly one hub at a time.
type Connection struct {
	ID       string
	MosaicID uuid.UUID
	Role     Role
	Send     chan []byte

	// sendMu serializes enqueue against closeSend so a broadcast racing a
	// disconnect can never send on a closed channel.
	sendMu     sync.Mutex
	sendClosed bool

	ws       *websocket.Conn
	registry *Registry
	config   ConnectionConfig
	inbound  func(*Connection, []byte)

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// enqueue offers data to the connection's send buffer without blocking.
// Returns false when the buffer is full, which marks the consumer as too
// slow to keep. Data offered after closeSend is silently dropped: the
// connection is already on its way out.
func (c *Connection) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send buffer exactly once.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.Send)
}

// closeSocket closes the underlying WebSocket if one is attached. Test
// connections may have no socket.
func (c *Connection) closeSocket() {
	if c.ws != nil {
		c.ws.Close()
	}
}

// writePump drains the send buffer onto the wire and keeps the connection
// alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.closeSocket()
		c.registry.Unsubscribe(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				// Hub closed the channel
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads client messages and hands them to the inbound handler.
// Malformed messages are the handler's problem; a read error ends the
// connection.
func (c *Connection) readPump() {
	defer func() {
		c.registry.Unsubscribe(c)
		c.closeSocket()
	}()

	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close")
			}
			break
		}

		if c.inbound != nil {
			c.inbound(c, message)
		}
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}
