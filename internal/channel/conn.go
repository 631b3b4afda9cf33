// Package channel is the ordered byte transport between the front-end and the proxy.
// Each user gets one WebSocket connection; everything written to a Conn goes through
// a single write pump, so frames leave in Send order and never interleave.
package channel

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vmanager/internal/logging"
)

const (
	UserHeader = "X-VManager-User"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

var (
	ErrClosed       = errors.New("channel closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

type Conn struct {
	ws   *websocket.Conn
	user string
	send chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	log    zerolog.Logger
}

func newConn(ws *websocket.Conn, user string) *Conn {
	c := &Conn{
		ws:   ws,
		user: user,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  logging.Component("channel").With().Str("user", user).Logger(),
	}
	go c.writePump()
	return c
}

func (c *Conn) User() string { return c.user }

// Done is closed once the connection has shut down for any reason.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Send queues one frame. It never blocks: a peer that stops reading gets disconnected.
// A nil return means the frame is queued ahead of any close, so the write pump
// either writes it or flushes it on shutdown.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.log.Warn().Msg("send buffer full, dropping connection")
		c.closeLocked()
		return ErrSlowConsumer
	}
}

// ReadLoop delivers inbound text frames to handle, in arrival order, until the
// connection fails or is closed. It always closes the connection before returning.
func (c *Conn) ReadLoop(handle func([]byte)) error {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Msg("connection lost")
				return err
			}
			return nil
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Conn) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn().Err(err).Msg("write failed")
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever was queued before Close.
func (c *Conn) flush() {
	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}
