// Package ws adapts the two transport surfaces (the event protocol and
// the raw document-sync protocol) onto the hub. Credentials are
// verified strictly before the upgrade; no connection state exists for
// a rejected handshake.
package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hireloop/collab/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

const sendBufferSize = 32

// wsConn is the transport endpoint handed to the hub. TrySend never
// blocks: a full buffer is a drop, reported to the caller.
type wsConn struct {
	conn    *websocket.Conn
	send    chan core.Frame
	msgType int

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, msgType int) *wsConn {
	return &wsConn{
		conn:    conn,
		send:    make(chan core.Frame, sendBufferSize),
		msgType: msgType,
	}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
