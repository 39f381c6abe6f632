// Package state owns the live world model: every authed user and every
// active room, kept mutually consistent under a single reader-writer lock.
//
// Both maps sit behind one lock on purpose. A user's CurrentRoomID and the
// room's membership set change together, so guarding them separately would
// let a reader observe a user that a room has but the user map lost, or the
// reverse. Access goes through closure-scoped views only; references handed
// out by a view must not outlive the closure.
package state

import (
	"sync"

	"golang.org/x/exp/maps"

	"github.com/voicebay/server/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	users      map[int64]*domain.User
	rooms      map[int64]*domain.Room
	nextRoomID int64
}

func NewStore() *Store {
	return &Store{
		users:      make(map[int64]*domain.User),
		rooms:      make(map[int64]*domain.Room),
		nextRoomID: 1,
	}
}

// Read runs fn while holding the shared view. Many readers may run
// concurrently; none may mutate.
func (s *Store) Read(fn func(v ReadView)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(ReadView{s: s})
}

// Write runs fn while holding the exclusive view. The closure must complete
// the whole mutation; there is no suspension point between acquiring the
// lock and returning.
func (s *Store) Write(fn func(v WriteView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(WriteView{ReadView{s: s}})
}

// ReadView is the shared, read-only view of the world. All results are
// copies or predicates; no live map reference escapes.
type ReadView struct {
	s *Store
}

func (v ReadView) UserExists(userID int64) bool {
	_, ok := v.s.users[userID]
	return ok
}

// UserRoom reports the room the user currently occupies. ok is false when
// the user is unknown.
func (v ReadView) UserRoom(userID int64) (int64, bool) {
	u, ok := v.s.users[userID]
	if !ok {
		return domain.NoRoom, false
	}
	return u.CurrentRoomID, true
}

func (v ReadView) RoomExists(roomID int64) bool {
	_, ok := v.s.rooms[roomID]
	return ok
}

func (v ReadView) RoomIsPublic(roomID int64) bool {
	r, ok := v.s.rooms[roomID]
	return ok && r.Public
}

func (v ReadView) RoomHasMember(roomID, userID int64) bool {
	r, ok := v.s.rooms[roomID]
	return ok && r.HasMember(userID)
}

func (v ReadView) MemberIDs(roomID int64) []int64 {
	r, ok := v.s.rooms[roomID]
	if !ok {
		return nil
	}
	return maps.Keys(r.UserIDs)
}

func (v ReadView) RoomIDs() []int64 {
	return maps.Keys(v.s.rooms)
}

// RoomSnapshot returns a deep copy of the room, safe to use after the view
// is released.
func (v ReadView) RoomSnapshot(roomID int64) (domain.Room, bool) {
	r, ok := v.s.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	snap := *r
	snap.UserIDs = maps.Clone(r.UserIDs)
	snap.Muted = maps.Clone(r.Muted)
	snap.Deaf = maps.Clone(r.Deaf)
	snap.Speakers = maps.Clone(r.Speakers)
	snap.RaisedHands = maps.Clone(r.RaisedHands)
	return snap, true
}

// WriteView is the exclusive view. Pointers returned by User and Room stay
// valid only inside the Write closure.
type WriteView struct {
	ReadView
}

func (w WriteView) NextRoomID() int64 {
	id := w.s.nextRoomID
	w.s.nextRoomID++
	return id
}

func (w WriteView) User(userID int64) (*domain.User, bool) {
	u, ok := w.s.users[userID]
	return u, ok
}

func (w WriteView) Room(roomID int64) (*domain.Room, bool) {
	r, ok := w.s.rooms[roomID]
	return r, ok
}

func (w WriteView) PutUser(u *domain.User) {
	w.s.users[u.ID] = u
}

func (w WriteView) PutRoom(r *domain.Room) {
	w.s.rooms[r.ID] = r
}

func (w WriteView) DeleteUser(userID int64) {
	delete(w.s.users, userID)
}

func (w WriteView) DeleteRoom(roomID int64) {
	delete(w.s.rooms, roomID)
}
