package service

import (
	"context"
	"encoding/json"

	"github.com/voicebay/server/internal/domain"
	"github.com/voicebay/server/internal/state"
)

// Precondition predicates. Each one is evaluated twice per request: once
// under the shared view to gate the escalation, and once more under the
// exclusive view right before the mutator runs.

func canCreateRoom(v state.ReadView, requesterID int64) bool {
	roomID, ok := v.UserRoom(requesterID)
	return ok && roomID == domain.NoRoom
}

func canJoinRoom(v state.ReadView, p RoomAndPeer, blocked map[int64]struct{}) bool {
	peerRoom, ok := v.UserRoom(p.PeerID)
	if !ok || peerRoom != domain.NoRoom {
		return false
	}
	if !v.RoomExists(p.RoomID) || !v.RoomIsPublic(p.RoomID) {
		return false
	}
	_, isBlocked := blocked[p.PeerID]
	return !isBlocked
}

func bothInRoom(v state.ReadView, roomID, requesterID, peerID int64) bool {
	return v.RoomExists(roomID) &&
		v.RoomHasMember(roomID, requesterID) &&
		v.RoomHasMember(roomID, peerID)
}

func (c *Coordinator) CreateRoom(ctx context.Context, requesterID int64, req Request) {
	var p RoomCreation
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = canCreateRoom(v, requesterID)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = canCreateRoom(w.ReadView, requesterID); !allowed {
			return
		}
		allowed = c.mutator.CreateRoom(ctx, w, requesterID, p)
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

func (c *Coordinator) JoinRoom(ctx context.Context, requesterID int64, req Request, asSpeaker bool) {
	var p RoomAndPeer
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = canJoinRoom(v, p, nil)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	// The blocked set lives in persistent storage, never cached in the
	// world state. Fetched outside the lock; a failed fetch degrades to
	// "nobody blocked". The full predicate, blocked set included, is
	// decided again under the exclusive view.
	blocked, ok := c.fetcher.BlockedUserIDs(ctx, p.RoomID)
	if !ok {
		blocked = nil
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = canJoinRoom(w.ReadView, p, blocked); !allowed {
			return
		}
		allowed = c.mutator.JoinRoom(ctx, w, requesterID, p, asSpeaker)
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

func (c *Coordinator) LeaveRoom(ctx context.Context, requesterID int64, req Request) {
	var p RoomAndPeer
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = v.RoomHasMember(p.RoomID, requesterID)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = w.RoomHasMember(p.RoomID, requesterID); !allowed {
			return
		}
		allowed = c.mutator.LeaveRoom(ctx, w, requesterID, p.RoomID)
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

func (c *Coordinator) BlockUserFromRoom(ctx context.Context, requesterID int64, req Request) {
	var p BlockUserFromRoom
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	// Ownership is the mutator's call; here only membership of both sides.
	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = bothInRoom(v, p.RoomID, requesterID, p.UserID)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = bothInRoom(w.ReadView, p.RoomID, requesterID, p.UserID); !allowed {
			return
		}
		allowed = c.mutator.BlockUserFromRoom(ctx, w, requesterID, p)
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

func (c *Coordinator) AddOrRemoveSpeaker(ctx context.Context, requesterID int64, req Request, add bool) {
	var p RoomAndPeer
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = bothInRoom(v, p.RoomID, requesterID, p.PeerID)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = bothInRoom(w.ReadView, p.RoomID, requesterID, p.PeerID); !allowed {
			return
		}
		if add {
			allowed = c.mutator.AddSpeaker(ctx, w, requesterID, p)
		} else {
			allowed = c.mutator.RemoveSpeaker(ctx, w, requesterID, p)
		}
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

func (c *Coordinator) RaiseOrLowerHand(ctx context.Context, requesterID int64, req Request, raise bool) {
	var p RoomAndPeer
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = bothInRoom(v, p.RoomID, requesterID, p.PeerID)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = bothInRoom(w.ReadView, p.RoomID, requesterID, p.PeerID); !allowed {
			return
		}
		if raise {
			allowed = c.mutator.RaiseHand(ctx, w, requesterID, p)
		} else {
			allowed = c.mutator.LowerHand(ctx, w, requesterID, p)
		}
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

func (c *Coordinator) UpdateDeafAndMute(ctx context.Context, requesterID int64, req Request) {
	var p DeafAndMuteStatus
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	inRoom := func(v state.ReadView) bool {
		roomID, ok := v.UserRoom(requesterID)
		return ok && roomID != domain.NoRoom
	}

	allowed := false
	c.state.Read(func(v state.ReadView) {
		allowed = inRoom(v)
	})
	if !allowed {
		c.reject(ctx, requesterID)
		return
	}

	c.state.Write(func(w state.WriteView) {
		if allowed = inRoom(w.ReadView); !allowed {
			return
		}
		allowed = c.mutator.UpdateDeafAndMute(ctx, w, requesterID, p)
	})
	if !allowed {
		c.reject(ctx, requesterID)
	}
}

// RelayWebRTC gates signaling traffic headed for the voice server. The
// payload stays opaque beyond the room/peer pair; a requester may only
// signal as itself and only inside its own room. Pure read: nothing in the
// world state changes, so no escalation happens.
func (c *Coordinator) RelayWebRTC(ctx context.Context, requesterID int64, req Request) {
	var p RoomAndPeer
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	valid := false
	c.state.Read(func(v state.ReadView) {
		valid = p.PeerID == requesterID && v.RoomHasMember(p.RoomID, requesterID)
	})
	if !valid {
		c.reject(ctx, requesterID)
		return
	}

	if !c.mutator.RelayWebRTC(ctx, req.Op, requesterID, json.RawMessage(req.Data)) {
		c.reject(ctx, requesterID)
	}
}
