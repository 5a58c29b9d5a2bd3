package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func newConnID() string {
	return uuid.NewString()
}

type ConnInfo struct {
	ConnID      string
	UserID      int
	UserName    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// writeWait bounds a single frame write so one stalled client cannot hold
// the broadcast path, and with it the per-conversation send lock, forever.
const writeWait = 10 * time.Second

// safeConn serializes writes to a websocket connection. The hub broadcasts
// from whichever goroutine ran the ingestion pipeline while the session
// goroutine writes acks, and gorilla conns do not allow concurrent writers.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newSafeConn(conn *websocket.Conn) *safeConn {
	return &safeConn{conn: conn}
}

func (c *safeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *safeConn) Close() error {
	return c.conn.Close()
}

func (c *safeConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}
