package sender_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebay/server/internal/repository/connection"
	"github.com/voicebay/server/internal/sender"
	"github.com/voicebay/server/internal/service"
)

type fakeConnRepo struct {
	conns map[int64]*connection.Conn
}

func (f fakeConnRepo) GetConn(userID int64) (*connection.Conn, error) {
	conn, ok := f.conns[userID]
	if !ok {
		return nil, connection.ErrNotFound
	}
	return conn, nil
}

// newConn returns a connected client websocket; everything the client writes
// lands on the received channel.
func newConn(t *testing.T, received chan service.Response) *connection.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			var resp service.Response
			if err := c.ReadJSON(&resp); err != nil {
				return
			}
			received <- resp
		}
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn := connection.NewConn(ws)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newSender(conns map[int64]*connection.Conn) *sender.Sender {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return sender.NewSender(fakeConnRepo{conns: conns}, logger)
}

func TestDeliverWritesEnvelope(t *testing.T) {
	received := make(chan service.Response, 1)
	conn := newConn(t, received)
	s := newSender(map[int64]*connection.Conn{1: conn})

	s.Deliver(context.Background(), 1, service.OpTopRooms, "[]")

	select {
	case resp := <-received:
		assert.Equal(t, service.OpTopRooms, resp.Op)
		assert.Equal(t, "[]", resp.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope received")
	}
}

func TestDeliverToUnknownUserIsNoOp(t *testing.T) {
	s := newSender(nil)

	// nothing to assert beyond the absence of a panic
	s.Deliver(context.Background(), 42, service.OpInvalidRequest, "issue with request")
}

// Every inbound envelope is dispatched on its own goroutine, so responses to
// one connection race each other and race broadcasts. The connection must
// absorb that without tripping the websocket's single-writer rule.
func TestDeliverSerializesConcurrentWrites(t *testing.T) {
	const writers = 16

	received := make(chan service.Response, writers)
	conn := newConn(t, received)
	s := newSender(map[int64]*connection.Conn{1: conn})

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Deliver(context.Background(), 1, service.OpInvalidRequest, "issue with request")
		}()
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		select {
		case resp := <-received:
			assert.Equal(t, service.OpInvalidRequest, resp.Op)
		case <-time.After(2 * time.Second):
			t.Fatalf("envelope %d never arrived", i)
		}
	}
}

func TestBroadcastSkipsMissingConnections(t *testing.T) {
	received := make(chan service.Response, 2)
	conn := newConn(t, received)
	s := newSender(map[int64]*connection.Conn{1: conn})

	s.Broadcast(context.Background(), []int64{1, 2}, "user_left_room", "{}")

	select {
	case resp := <-received:
		assert.Equal(t, "user_left_room", resp.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope received")
	}
	assert.Empty(t, received, "only the connected user gets the broadcast")
}
