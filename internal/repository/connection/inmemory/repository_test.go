package inmemory_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebay/server/internal/repository/connection"
	"github.com/voicebay/server/internal/repository/connection/inmemory"
)

// newConn dials a throwaway websocket server and returns the client side.
func newConn(t *testing.T) *connection.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		t.Cleanup(func() { c.Close() })
	}))
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn := connection.NewConn(ws)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAddAndGet(t *testing.T) {
	repo := inmemory.NewRepo()
	conn := newConn(t)

	require.NoError(t, repo.Add(conn, 1))

	userID, err := repo.GetUserID(conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), userID)

	got, err := repo.GetConn(1)
	require.NoError(t, err)
	assert.Same(t, conn, got)
}

func TestAddDuplicates(t *testing.T) {
	repo := inmemory.NewRepo()
	conn := newConn(t)

	require.NoError(t, repo.Add(conn, 1))
	assert.ErrorIs(t, repo.Add(conn, 2), connection.ErrAlreadyExists)
	assert.ErrorIs(t, repo.Add(newConn(t), 1), connection.ErrAlreadyExists)
}

func TestRemoveByConn(t *testing.T) {
	repo := inmemory.NewRepo()
	conn := newConn(t)

	require.NoError(t, repo.Add(conn, 1))
	require.NoError(t, repo.RemoveByConn(conn))

	_, err := repo.GetConn(1)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = repo.GetUserID(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	assert.ErrorIs(t, repo.RemoveByConn(conn), connection.ErrNotFound)
}

func TestRemoveByUserID(t *testing.T) {
	repo := inmemory.NewRepo()
	conn := newConn(t)

	require.NoError(t, repo.Add(conn, 1))
	require.NoError(t, repo.RemoveByUserID(1))

	_, err := repo.GetConn(1)
	assert.ErrorIs(t, err, connection.ErrNotFound)

	assert.ErrorIs(t, repo.RemoveByUserID(1), connection.ErrNotFound)
}
