package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicebay/server/internal/repository/connection"
	"github.com/voicebay/server/internal/service"
)

type iCoordinator interface {
	Connect(ctx context.Context, userID int64)
	Disconnect(ctx context.Context, userID int64)
	Dispatch(ctx context.Context, requesterID int64, req service.Request)
}

type iConnRepo interface {
	Add(conn *connection.Conn, userID int64) error
	RemoveByConn(conn *connection.Conn) error
}

type controller struct {
	coordinator iCoordinator
	connRepo    iConnRepo
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

func NewController(coordinator iCoordinator, connRepo iConnRepo, logger *slog.Logger) *controller {
	return &controller{
		coordinator: coordinator,
		connRepo:    connRepo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
