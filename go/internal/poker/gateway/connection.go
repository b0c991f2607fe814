package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds transport tuning for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// Connection owns one client's WebSocket for the life of the session.
// roomID is fixed at handshake and never mutated afterwards.
type Connection struct {
	id     string
	roomID uuid.UUID
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}

	// group is set once, between handshake and pump start
	group   *Group
	service *Service

	closeOnce   sync.Once
	connectedAt time.Time
}

// trySend queues data for delivery without blocking. False means the
// connection is closed or its buffer is full.
func (c *Connection) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// notify sends a generic notification to this connection only
func (c *Connection) notify(code, message string) {
	data, err := EncodeNotice(code, message)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode notification")
		return
	}
	if !c.trySend(data) {
		log.Warn().Str("connection_id", c.id).Msg("dropping notification, send buffer full")
	}
}

// close tears the connection down exactly once: leave the room group, then
// shut the transport. Safe to call from any goroutine and any number of times.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.group != nil {
			c.group.Leave(c)
		}
		if c.ws != nil {
			c.ws.Close()
		}

		log.Info().
			Str("connection_id", c.id).
			Str("room_id", c.roomID.String()).
			Dur("session", time.Since(c.connectedAt)).
			Msg("connection closed")
	})
}

// writePump serializes all outbound writes for the connection
func (c *Connection) writePump() {
	cfg := c.service.config.Connection
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads and dispatches inbound messages until the transport closes
func (c *Connection) readPump() {
	cfg := c.service.config.Connection
	defer c.close()

	c.ws.SetReadLimit(cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Debug().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.service.handleClientMessage(c, message)
		c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}
