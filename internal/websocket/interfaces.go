package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the subset of a websocket connection the client pumps use
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// conn adapts *websocket.Conn, whose RemoteAddr returns a net.Addr
type conn struct {
	*websocket.Conn
}

// WrapConn adapts a gorilla connection to Connection
func WrapConn(c *websocket.Conn) Connection {
	return conn{Conn: c}
}

func (c conn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
