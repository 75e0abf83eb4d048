// Package ws serves the chat and collaborative WebSocket endpoints.
package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/meetassist/internal/core"
	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Options tunes every connection an endpoint accepts.
type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

func (o Options) pongWait() time.Duration { return o.PingPeriod * 10 / 9 }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WsConn is the core.Connection of one WebSocket. Frames queue on send
// and a single write pump drains them.
type WsConn struct {
	conn    *websocket.Conn
	send    chan core.Frame
	msgType int

	mu     sync.RWMutex
	closed bool
}

func newWsConn(conn *websocket.Conn, msgType, buffer int) *WsConn {
	return &WsConn{
		conn:    conn,
		send:    make(chan core.Frame, buffer),
		msgType: msgType,
	}
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}
