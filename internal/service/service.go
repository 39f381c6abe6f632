// Package service implements the request coordinator: every inbound
// operation is parsed, checked against the world state under a shared view,
// and only then committed under the exclusive view. Repetitive pre-checks
// live here so the mutation layer can assume a validated request.
//
// Lock discipline: the shared view is released before the exclusive view is
// acquired, so another request may commit in between. Every mutating
// operation therefore re-evaluates its precondition immediately after taking
// the exclusive view and aborts with the uniform rejection when the check no
// longer holds.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/voicebay/server/internal/domain"
	"github.com/voicebay/server/internal/state"
	"github.com/voicebay/server/pkg/validator"
)

type iFetcher interface {
	BlockedUserIDs(ctx context.Context, roomID int64) (map[int64]struct{}, bool)
	FollowerIDs(ctx context.Context, userID int64) ([]int64, bool)
	FollowingIDs(ctx context.Context, userID int64) ([]int64, bool)
	UserPreviews(ctx context.Context, userIDs []int64) (map[int64]domain.UserPreview, bool)
	RoomOwnerAndSettings(ctx context.Context, roomID int64) (ownerID int64, chatMode string, ok bool)
}

// iMutator commits an authorized transition under the caller-held exclusive
// view. A false return means the mutator refused the request (authority
// checks it owns, such as room ownership) and nothing was changed.
type iMutator interface {
	CreateRoom(ctx context.Context, w state.WriteView, requesterID int64, p RoomCreation) bool
	JoinRoom(ctx context.Context, w state.WriteView, requesterID int64, p RoomAndPeer, asSpeaker bool) bool
	LeaveRoom(ctx context.Context, w state.WriteView, requesterID, roomID int64) bool
	BlockUserFromRoom(ctx context.Context, w state.WriteView, requesterID int64, p BlockUserFromRoom) bool
	AddSpeaker(ctx context.Context, w state.WriteView, requesterID int64, p RoomAndPeer) bool
	RemoveSpeaker(ctx context.Context, w state.WriteView, requesterID int64, p RoomAndPeer) bool
	RaiseHand(ctx context.Context, w state.WriteView, requesterID int64, p RoomAndPeer) bool
	LowerHand(ctx context.Context, w state.WriteView, requesterID int64, p RoomAndPeer) bool
	UpdateDeafAndMute(ctx context.Context, w state.WriteView, requesterID int64, p DeafAndMuteStatus) bool
	RelayWebRTC(ctx context.Context, op string, requesterID int64, payload json.RawMessage) bool
}

type iSink interface {
	Deliver(ctx context.Context, userID int64, op string, data string)
}

type Coordinator struct {
	state     *state.Store
	fetcher   iFetcher
	mutator   iMutator
	sink      iSink
	validator *validator.Validator
	logger    *slog.Logger
}

func NewCoordinator(st *state.Store, fetcher iFetcher, mutator iMutator, sink iSink, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		state:     st,
		fetcher:   fetcher,
		mutator:   mutator,
		sink:      sink,
		validator: validator.NewValidator(),
		logger:    logger,
	}
}

// Dispatch routes one envelope to its operation. Unknown tags collapse to
// the uniform rejection like any other invalid request.
func (c *Coordinator) Dispatch(ctx context.Context, requesterID int64, req Request) {
	switch req.Op {
	case OpCreateRoom:
		c.CreateRoom(ctx, requesterID, req)
	case OpJoinRoomAsSpeaker:
		c.JoinRoom(ctx, requesterID, req, true)
	case OpJoinRoomAsListener:
		c.JoinRoom(ctx, requesterID, req, false)
	case OpLeaveRoom:
		c.LeaveRoom(ctx, requesterID, req)
	case OpBlockUserFromRoom:
		c.BlockUserFromRoom(ctx, requesterID, req)
	case OpAddSpeaker:
		c.AddOrRemoveSpeaker(ctx, requesterID, req, true)
	case OpRemoveSpeaker:
		c.AddOrRemoveSpeaker(ctx, requesterID, req, false)
	case OpRaiseHand:
		c.RaiseOrLowerHand(ctx, requesterID, req, true)
	case OpLowerHand:
		c.RaiseOrLowerHand(ctx, requesterID, req, false)
	case OpUpdateDeafAndMute:
		c.UpdateDeafAndMute(ctx, requesterID, req)
	case OpGetFollowers:
		c.GetFollowList(ctx, requesterID, req, true)
	case OpGetFollowing:
		c.GetFollowList(ctx, requesterID, req, false)
	case OpGetTopRooms:
		c.GetTopRooms(ctx, requesterID)
	case OpConnectTransport, OpSendTrack, OpGetRecvTracks:
		c.RelayWebRTC(ctx, requesterID, req)
	default:
		c.logger.DebugContext(ctx, "unknown op code", "op", req.Op)
		c.reject(ctx, requesterID)
	}
}

// Connect registers a freshly authenticated connection's user into the
// world, outside any room.
func (c *Coordinator) Connect(ctx context.Context, userID int64) {
	c.state.Write(func(w state.WriteView) {
		if _, ok := w.User(userID); !ok {
			w.PutUser(domain.NewUser(userID))
		}
	})
	c.logger.DebugContext(ctx, "user connected", "userId", userID)
}

// Disconnect removes the user: the occupied room (if any) sees a leave
// transition, then the user entry goes away. Runs under one exclusive view
// so no reader observes a member without a user.
func (c *Coordinator) Disconnect(ctx context.Context, userID int64) {
	c.state.Write(func(w state.WriteView) {
		if roomID, ok := w.UserRoom(userID); ok && roomID != domain.NoRoom {
			c.mutator.LeaveRoom(ctx, w, userID, roomID)
		}
		w.DeleteUser(userID)
	})
	c.logger.DebugContext(ctx, "user disconnected", "userId", userID)
}

// reject delivers the uniform rejection. Deliberately detail-free: the
// client cannot tell a parse failure from a failed precondition.
func (c *Coordinator) reject(ctx context.Context, requesterID int64) {
	c.sink.Deliver(ctx, requesterID, OpInvalidRequest, invalidRequestBody)
}

// parse decodes and structurally validates a payload. A failure is terminal
// for the request: the rejection is already sent when parse returns false.
func (c *Coordinator) parse(ctx context.Context, requesterID int64, data string, dst any) bool {
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		c.logger.DebugContext(ctx, "failed to parse payload", "error", err)
		c.reject(ctx, requesterID)
		return false
	}
	if validationErrs, ok := c.validator.Validate(dst); !ok {
		c.logger.DebugContext(ctx, "payload failed validation", "errors", validationErrs)
		c.reject(ctx, requesterID)
		return false
	}
	return true
}
