// Package room commits authorized room transitions. Every method runs under
// the exclusive world-state view held by the coordinator; by the time a
// request lands here its precondition has been validated and re-validated,
// so the only checks left are the authority rules this package owns.
package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/voicebay/server/internal/domain"
	"github.com/voicebay/server/internal/service"
	"github.com/voicebay/server/internal/state"
)

// Broadcast tags for room members.
const (
	opRoomCreated       = "room_created"
	opNewUserJoined     = "new_user_joined"
	opUserLeftRoom      = "user_left_room"
	opRemovedUser       = "removed_user"
	opSpeakerAdded      = "speaker_added"
	opSpeakerRemoved    = "speaker_removed"
	opUserAskedToSpeak  = "user_asked_to_speak"
	opUserLoweredHand   = "user_lowered_hand"
	opMuteAndDeafUpdate = "user_mute_and_deaf_update"
)

// Voice-server commands published through the broker.
const (
	voiceCreateRoom     = "create-room"
	voiceDestroyRoom    = "destroy-room"
	voiceJoinAsSpeaker  = "join-as-speaker"
	voiceJoinAsListener = "join-as-listener"
	voiceClosePeer      = "close-peer"
	voiceAddSpeaker     = "add-speaker"
	voiceRemoveSpeaker  = "remove-speaker"
)

type iSink interface {
	Deliver(ctx context.Context, userID int64, op string, data string)
	Broadcast(ctx context.Context, userIDs []int64, op string, data string)
}

type iPublisher interface {
	Publish(ctx context.Context, op string, data any, uid string) error
}

type iBlockStore interface {
	AddBlockedUser(ctx context.Context, roomID, userID int64) error
}

type Mutator struct {
	sink      iSink
	publisher iPublisher
	blocks    iBlockStore
	logger    *slog.Logger
}

func NewMutator(sink iSink, publisher iPublisher, blocks iBlockStore, logger *slog.Logger) *Mutator {
	return &Mutator{
		sink:      sink,
		publisher: publisher,
		blocks:    blocks,
		logger:    logger,
	}
}

// Voice-server payloads; the media server requires camelCase and string ids.
type voiceRoom struct {
	RoomID string `json:"roomId"`
}

type voiceRoomPeer struct {
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId"`
}

type voiceClosePeerData struct {
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId"`
	Kicked bool   `json:"kicked"`
}

type roomAndUser struct {
	RoomID int64 `json:"room_id"`
	UserID int64 `json:"user_id"`
}

type userRemovedFromRoom struct {
	UserID    int64  `json:"user_id"`
	TypeOfBan string `json:"type_of_ban"`
	Requester int64  `json:"requester"`
	RoomID    int64  `json:"room_id"`
}

type deafAndMuteStatusUpdate struct {
	Muted  bool  `json:"muted"`
	Deaf   bool  `json:"deaf"`
	UserID int64 `json:"user_id"`
}

func (m *Mutator) CreateRoom(ctx context.Context, w state.WriteView, requesterID int64, p service.RoomCreation) bool {
	user, ok := w.User(requesterID)
	if !ok {
		return false
	}

	r := domain.NewRoom(w.NextRoomID(), requesterID, p.Name, p.Desc, p.Public, uuid.NewString())
	r.UserIDs[requesterID] = struct{}{}
	r.Speakers[requesterID] = struct{}{}
	w.PutRoom(r)
	user.CurrentRoomID = r.ID

	m.publish(ctx, voiceCreateRoom, voiceRoom{RoomID: strconv.FormatInt(r.ID, 10)}, requesterID)
	m.sink.Deliver(ctx, requesterID, opRoomCreated, m.encode(ctx, roomAndUser{RoomID: r.ID, UserID: requesterID}))
	m.logger.InfoContext(ctx, "room created", "roomId", r.ID, "ownerId", requesterID)
	return true
}

func (m *Mutator) JoinRoom(ctx context.Context, w state.WriteView, requesterID int64, p service.RoomAndPeer, asSpeaker bool) bool {
	r, ok := w.Room(p.RoomID)
	if !ok {
		return false
	}
	user, ok := w.User(p.PeerID)
	if !ok {
		return false
	}

	r.UserIDs[p.PeerID] = struct{}{}
	user.CurrentRoomID = r.ID

	voiceOp := voiceJoinAsListener
	if asSpeaker || r.AutoSpeaker {
		r.Speakers[p.PeerID] = struct{}{}
		voiceOp = voiceJoinAsSpeaker
	}

	m.publish(ctx, voiceOp, voiceRoomPeer{
		RoomID: strconv.FormatInt(r.ID, 10),
		PeerID: strconv.FormatInt(p.PeerID, 10),
	}, requesterID)
	m.sink.Broadcast(ctx, w.MemberIDs(r.ID), opNewUserJoined, m.encode(ctx, roomAndUser{RoomID: r.ID, UserID: p.PeerID}))
	m.logger.InfoContext(ctx, "user joined room", "roomId", r.ID, "userId", p.PeerID, "asSpeaker", voiceOp == voiceJoinAsSpeaker)
	return true
}

// LeaveRoom detaches the user from the room and tears the room down when it
// empties. Ownership moves to any remaining member so the owner-is-a-member
// invariant survives the owner walking out.
func (m *Mutator) LeaveRoom(ctx context.Context, w state.WriteView, requesterID, roomID int64) bool {
	r, ok := w.Room(roomID)
	if !ok {
		return false
	}

	r.RemoveMember(requesterID)
	if user, ok := w.User(requesterID); ok {
		user.CurrentRoomID = domain.NoRoom
	}

	m.publish(ctx, voiceClosePeer, voiceClosePeerData{
		RoomID: strconv.FormatInt(roomID, 10),
		PeerID: strconv.FormatInt(requesterID, 10),
	}, requesterID)

	if len(r.UserIDs) == 0 {
		w.DeleteRoom(roomID)
		m.publish(ctx, voiceDestroyRoom, voiceRoom{RoomID: strconv.FormatInt(roomID, 10)}, requesterID)
		m.logger.InfoContext(ctx, "room destroyed", "roomId", roomID)
		return true
	}

	if r.OwnerID == requesterID {
		for memberID := range r.UserIDs {
			r.OwnerID = memberID
			break
		}
		m.logger.InfoContext(ctx, "room ownership transferred", "roomId", roomID, "ownerId", r.OwnerID)
	}

	m.sink.Broadcast(ctx, w.MemberIDs(roomID), opUserLeftRoom, m.encode(ctx, roomAndUser{RoomID: roomID, UserID: requesterID}))
	return true
}

// BlockUserFromRoom is owner-only: the blocked user is persisted to the
// room's block set and evicted in the same transition.
func (m *Mutator) BlockUserFromRoom(ctx context.Context, w state.WriteView, requesterID int64, p service.BlockUserFromRoom) bool {
	r, ok := w.Room(p.RoomID)
	if !ok {
		return false
	}
	if r.OwnerID != requesterID || p.UserID == requesterID {
		return false
	}

	// Persist first so a reconnect cannot slip back in before the row
	// lands. A storage failure still evicts; the block is just not durable.
	if err := m.blocks.AddBlockedUser(ctx, p.RoomID, p.UserID); err != nil {
		m.logger.WarnContext(ctx, "failed to persist room block", "roomId", p.RoomID, "userId", p.UserID, "error", err)
	}

	r.RemoveMember(p.UserID)
	if user, ok := w.User(p.UserID); ok {
		user.CurrentRoomID = domain.NoRoom
	}

	m.publish(ctx, voiceClosePeer, voiceClosePeerData{
		RoomID: strconv.FormatInt(p.RoomID, 10),
		PeerID: strconv.FormatInt(p.UserID, 10),
		Kicked: true,
	}, requesterID)

	removed := userRemovedFromRoom{
		UserID:    p.UserID,
		TypeOfBan: "room",
		Requester: requesterID,
		RoomID:    p.RoomID,
	}
	m.sink.Deliver(ctx, p.UserID, opRemovedUser, m.encode(ctx, removed))
	m.sink.Broadcast(ctx, w.MemberIDs(p.RoomID), opRemovedUser, m.encode(ctx, removed))
	m.logger.InfoContext(ctx, "user blocked from room", "roomId", p.RoomID, "userId", p.UserID, "requesterId", requesterID)
	return true
}

func (m *Mutator) AddSpeaker(ctx context.Context, w state.WriteView, requesterID int64, p service.RoomAndPeer) bool {
	r, ok := w.Room(p.RoomID)
	if !ok {
		return false
	}
	if r.OwnerID != requesterID {
		return false
	}

	r.Speakers[p.PeerID] = struct{}{}
	delete(r.RaisedHands, p.PeerID)

	m.publish(ctx, voiceAddSpeaker, voiceRoomPeer{
		RoomID: strconv.FormatInt(p.RoomID, 10),
		PeerID: strconv.FormatInt(p.PeerID, 10),
	}, requesterID)
	m.sink.Broadcast(ctx, w.MemberIDs(p.RoomID), opSpeakerAdded, m.encode(ctx, roomAndUser{RoomID: p.RoomID, UserID: p.PeerID}))
	return true
}

func (m *Mutator) RemoveSpeaker(ctx context.Context, w state.WriteView, requesterID int64, p service.RoomAndPeer) bool {
	r, ok := w.Room(p.RoomID)
	if !ok {
		return false
	}
	if r.OwnerID != requesterID && p.PeerID != requesterID {
		return false
	}

	delete(r.Speakers, p.PeerID)

	m.publish(ctx, voiceRemoveSpeaker, voiceRoomPeer{
		RoomID: strconv.FormatInt(p.RoomID, 10),
		PeerID: strconv.FormatInt(p.PeerID, 10),
	}, requesterID)
	m.sink.Broadcast(ctx, w.MemberIDs(p.RoomID), opSpeakerRemoved, m.encode(ctx, roomAndUser{RoomID: p.RoomID, UserID: p.PeerID}))
	return true
}

// RaiseHand raises the requester's own hand; the peer field names the
// requester after validation, so the peer id is what lands in the set.
func (m *Mutator) RaiseHand(ctx context.Context, w state.WriteView, requesterID int64, p service.RoomAndPeer) bool {
	r, ok := w.Room(p.RoomID)
	if !ok {
		return false
	}
	if p.PeerID != requesterID {
		return false
	}

	r.RaisedHands[requesterID] = struct{}{}
	m.sink.Broadcast(ctx, w.MemberIDs(p.RoomID), opUserAskedToSpeak, m.encode(ctx, roomAndUser{RoomID: p.RoomID, UserID: requesterID}))
	return true
}

// LowerHand lowers a hand: the user themself, or the room owner lowering
// someone else's.
func (m *Mutator) LowerHand(ctx context.Context, w state.WriteView, requesterID int64, p service.RoomAndPeer) bool {
	r, ok := w.Room(p.RoomID)
	if !ok {
		return false
	}
	if p.PeerID != requesterID && r.OwnerID != requesterID {
		return false
	}

	delete(r.RaisedHands, p.PeerID)
	m.sink.Broadcast(ctx, w.MemberIDs(p.RoomID), opUserLoweredHand, m.encode(ctx, roomAndUser{RoomID: p.RoomID, UserID: p.PeerID}))
	return true
}

func (m *Mutator) UpdateDeafAndMute(ctx context.Context, w state.WriteView, requesterID int64, p service.DeafAndMuteStatus) bool {
	user, ok := w.User(requesterID)
	if !ok {
		return false
	}
	r, ok := w.Room(user.CurrentRoomID)
	if !ok {
		return false
	}

	user.Muted = p.Muted
	user.Deaf = p.Deaf
	if p.Muted {
		r.Muted[requesterID] = struct{}{}
	} else {
		delete(r.Muted, requesterID)
	}
	if p.Deaf {
		r.Deaf[requesterID] = struct{}{}
	} else {
		delete(r.Deaf, requesterID)
	}

	m.sink.Broadcast(ctx, w.MemberIDs(r.ID), opMuteAndDeafUpdate, m.encode(ctx, deafAndMuteStatusUpdate{
		Muted:  p.Muted,
		Deaf:   p.Deaf,
		UserID: requesterID,
	}))
	return true
}

// RelayWebRTC forwards an already-validated signaling payload to the voice
// server untouched.
func (m *Mutator) RelayWebRTC(ctx context.Context, op string, requesterID int64, payload json.RawMessage) bool {
	m.publish(ctx, op, payload, requesterID)
	return true
}

func (m *Mutator) publish(ctx context.Context, op string, data any, requesterID int64) {
	if err := m.publisher.Publish(ctx, op, data, strconv.FormatInt(requesterID, 10)); err != nil {
		m.logger.WarnContext(ctx, "failed to publish voice request", "op", op, "error", err)
	}
}

func (m *Mutator) encode(ctx context.Context, v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to marshal broadcast payload", "error", err)
		return "{}"
	}
	return string(data)
}
