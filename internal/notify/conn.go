package notify

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var ErrConnClosed = errors.New("connection closed")

// WSConn adapts a gorilla websocket connection to Conn. gorilla allows one
// concurrent writer, so all writes go through mu.
type WSConn struct {
	ws   *websocket.Conn
	mu   sync.Mutex
	open atomic.Bool
}

func NewWSConn(ws *websocket.Conn) *WSConn {
	c := &WSConn{ws: ws}
	c.open.Store(true)
	return c
}

func (c *WSConn) IsOpen() bool {
	return c.open.Load()
}

func (c *WSConn) Send(payload []byte) error {
	return c.write(websocket.TextMessage, payload)
}

func (c *WSConn) ping() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *WSConn) write(messageType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open.Load() {
		return ErrConnClosed
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.ws.WriteMessage(messageType, payload)
}

// Close marks the connection closed and releases the socket. It is safe to
// call more than once.
func (c *WSConn) Close() error {
	if !c.open.CompareAndSwap(true, false) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return c.ws.Close()
}
