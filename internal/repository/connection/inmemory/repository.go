// Package inmemory keeps the live websocket connection per user. The
// registry is its own lock domain, separate from the world state: routing a
// response never has to wait on a world mutation, and a concurrent
// disconnect simply turns delivery into a lookup miss.
package inmemory

import (
	"sync"

	"github.com/voicebay/server/internal/repository/connection"
)

type repo struct {
	connList map[*connection.Conn]int64
	idList   map[int64]*connection.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*connection.Conn]int64),
		idList:   make(map[int64]*connection.Conn),
	}
}

func (r *repo) Add(conn *connection.Conn, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connList[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.idList[userID]; ok {
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = userID
	r.idList[userID] = conn
	return nil
}

func (r *repo) RemoveByConn(conn *connection.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.connList[conn]
	if !ok {
		return connection.ErrNotFound
	}
	conn.Close()

	delete(r.connList, conn)
	delete(r.idList, userID)
	return nil
}

func (r *repo) RemoveByUserID(userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[userID]
	if !ok {
		return connection.ErrNotFound
	}
	conn.Close()

	delete(r.connList, conn)
	delete(r.idList, userID)
	return nil
}

func (r *repo) GetUserID(conn *connection.Conn) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.connList[conn]
	if !ok {
		return 0, connection.ErrNotFound
	}
	return userID, nil
}

func (r *repo) GetConn(userID int64) (*connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[userID]
	if !ok {
		return nil, connection.ErrNotFound
	}
	return conn, nil
}
