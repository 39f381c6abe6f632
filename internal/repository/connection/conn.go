package connection

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with write serialization. The underlying
// socket forbids concurrent writers, and responses reach a connection from
// many goroutines at once, so every outbound write must go through WriteJSON.
// Reads stay unguarded: the controller's read loop is the only reader.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
