// Package sender is the response sink: it routes an outbound envelope to a
// user's live connection. Delivery to a user with no connection is a silent
// no-op — the requester may have disconnected between validation and
// response, and that race is expected. Writes to one connection may come
// from many goroutines at once; the connection wrapper serializes them.
package sender

import (
	"context"
	"log/slog"

	"github.com/voicebay/server/internal/repository/connection"
	"github.com/voicebay/server/internal/service"
)

type iConnRepo interface {
	GetConn(userID int64) (*connection.Conn, error)
}

type Sender struct {
	conns  iConnRepo
	logger *slog.Logger
}

func NewSender(conns iConnRepo, logger *slog.Logger) *Sender {
	return &Sender{
		conns:  conns,
		logger: logger,
	}
}

func (s *Sender) Deliver(ctx context.Context, userID int64, op string, data string) {
	conn, err := s.conns.GetConn(userID)
	if err != nil {
		return
	}

	if err := conn.WriteJSON(service.Response{Op: op, Data: data}); err != nil {
		s.logger.DebugContext(ctx, "failed to write response", "userId", userID, "op", op, "error", err)
	}
}

func (s *Sender) Broadcast(ctx context.Context, userIDs []int64, op string, data string) {
	for _, userID := range userIDs {
		s.Deliver(ctx, userID, op, data)
	}
}
