package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/boardwar/backend/internal/game"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client is one websocket connection. It implements game.Conn.
type Client struct {
	id       string
	conn     *websocket.Conn
	identity game.PlayerIdentity
	hub      *Hub
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	log      *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, identity game.PlayerIdentity) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		conn:     conn,
		identity: identity,
		hub:      hub,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		log:      hub.log.With(zap.String("player", identity.ID), zap.String("conn", id)),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Identity() game.PlayerIdentity { return c.identity }

// Send queues an event without blocking.
func (c *Client) Send(event string, payload interface{}) error {
	data, err := json.Marshal(outbound{Type: event, Data: payload})
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		c.log.Warn("send buffer full, dropping message", zap.String("event", event))
		return ErrSendBufferFull
	}
}

// Close marks the client dead at once, then sends a close frame with reason
// and drops the socket in the background. Safe to call more than once and
// from any goroutine.
func (c *Client) Close(reason string) {
	c.once.Do(func() {
		close(c.done)
		// The close handshake can block on a slow peer; callers may hold the manager lock.
		go func() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
				c.log.Debug("close frame not sent", zap.Error(err))
			}
			c.conn.Close()
		}()
	})
}

func (c *Client) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// readPump reads frames until the connection fails, dispatching each one.
func (c *Client) readPump() {
	defer func() {
		c.Close("")
		c.hub.unregisterClient(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("websocket read error", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug("malformed frame ignored", zap.Error(err))
			continue
		}
		c.hub.dispatch(c, msg)
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	// done is only closed by Close, which owns tearing down the socket.
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Info("websocket write error", zap.Error(err))
				c.Close("")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Info("websocket ping error", zap.Error(err))
				c.Close("")
				return
			}
		}
	}
}
