package controller

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/voicebay/server/internal/repository/connection"
	"github.com/voicebay/server/internal/service"
	"github.com/voicebay/server/pkg/ctxlogger"
)

// serveWS attaches one authed client. The transport handshake itself is
// upstream's concern; the user id arrives as a query param here. Each
// envelope read off the socket is dispatched on its own goroutine so one
// slow request cannot stall the connection's other requests.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user-id"), 10, 64)
	if err != nil || userID <= 0 {
		c.logger.DebugContext(r.Context(), "invalid user id", "error", err)
		http.Error(w, "invalid user-id", http.StatusBadRequest)
		return
	}

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	conn := connection.NewConn(ws)
	if err := c.connRepo.Add(conn, userID); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register connection", "userId", userID, "error", err)
		conn.Close()
		return
	}

	ctx := ctxlogger.AppendCtx(r.Context(), slog.Int64("user_id", userID))
	c.coordinator.Connect(ctx, userID)
	defer func() {
		c.coordinator.Disconnect(ctx, userID)
		c.connRepo.RemoveByConn(conn)
	}()

	for {
		var req service.Request
		if err := conn.ReadJSON(&req); err != nil {
			c.logger.DebugContext(ctx, "connection closed", "userId", userID, "error", err)
			return
		}

		go c.coordinator.Dispatch(ctx, userID, req)
	}
}
