package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestConn(t *testing.T, handler func(*websocket.Conn)) *safeConn {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	raw, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return newSafeConn(raw)
}

func TestSafeConnWriteDelivers(t *testing.T) {
	received := make(chan []byte, 1)
	conn := dialTestConn(t, func(server *websocket.Conn) {
		_, data, err := server.ReadMessage()
		if err == nil {
			received <- data
		}
	})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))

	select {
	case data := <-received:
		assert.Equal(t, "ping", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("frame never arrived")
	}
}

func TestSafeConnSerializesConcurrentWriters(t *testing.T) {
	const frames = 20
	done := make(chan struct{})
	conn := dialTestConn(t, func(server *websocket.Conn) {
		for i := 0; i < frames; i++ {
			if _, _, err := server.ReadMessage(); err != nil {
				return
			}
		}
		close(done)
	})

	var wg sync.WaitGroup
	for i := 0; i < frames; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frames never arrived")
	}
}
