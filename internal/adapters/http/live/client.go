package live

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/rivalry/internal/domain/model"
	"github.com/okian/rivalry/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 64
)

// client is one websocket connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan Message
	hub  *Hub
	log  logger.Logger

	mu     sync.RWMutex
	sports map[string]struct{}

	sendMu sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, h *Hub) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan Message, sendBufferSize),
		hub:  h,
		log:  h.logger.With(logger.String("client_id", id)),
	}
}

// readPump handles subscription messages until the peer goes away.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug(ctx, "unexpected close", logger.Error(err))
			}
			return
		}
		c.handle(msg)
	}
}

// writePump forwards hub messages and keeps the connection alive with pings.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug(ctx, "write failed", logger.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handle(msg ClientMessage) {
	switch msg.Type {
	case TypeSubscribe:
		set := make(map[string]struct{}, len(msg.Sports))
		// names, any casing and slugs all select the same sport
		for _, s := range msg.Sports {
			set[model.Sport(s).Slug()] = struct{}{}
		}
		c.mu.Lock()
		c.sports = set
		c.mu.Unlock()
	case TypeUnsubscribe:
		c.mu.Lock()
		c.sports = nil
		c.mu.Unlock()
	case TypePing:
		c.trySend(Message{Type: TypePong, Timestamp: time.Now().UTC()})
	default:
		c.trySend(Message{
			Type:      TypeError,
			Payload:   ErrorPayload{Code: "unknown_message_type", Message: "unknown message type: " + msg.Type},
			Timestamp: time.Now().UTC(),
		})
	}
}

func (c *client) wants(sport string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sports) == 0 {
		return true
	}
	_, ok := c.sports[model.Sport(sport).Slug()]
	return ok
}

// trySend never blocks; a full buffer means the client is too slow.
func (c *client) trySend(msg Message) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close ends the write pump. Safe to call more than once.
func (c *client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
