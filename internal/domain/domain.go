package domain

import "time"

// NoRoom is the sentinel value for User.CurrentRoomID meaning the user
// does not occupy any room.
const NoRoom int64 = -1

type User struct {
	ID            int64
	DisplayName   string
	AvatarURL     string
	Muted         bool
	Deaf          bool
	CurrentRoomID int64
}

func NewUser(id int64) *User {
	return &User{
		ID:            id,
		CurrentRoomID: NoRoom,
	}
}

// Room holds the live membership and role state of a single session.
// Invariants maintained by the mutation layer: OwnerID is always present in
// UserIDs, and every id in Muted, Deaf, Speakers and RaisedHands is present
// in UserIDs.
type Room struct {
	ID            int64
	OwnerID       int64
	Name          string
	Description   string
	Public        bool
	ChatMode      string
	ChatThrottle  int64
	AutoSpeaker   bool
	VoiceServerID string
	CreatedAt     time.Time
	UserIDs       map[int64]struct{}
	Muted         map[int64]struct{}
	Deaf          map[int64]struct{}
	Speakers      map[int64]struct{}
	RaisedHands   map[int64]struct{}
}

func NewRoom(id, ownerID int64, name, description string, public bool, voiceServerID string) *Room {
	return &Room{
		ID:            id,
		OwnerID:       ownerID,
		Name:          name,
		Description:   description,
		Public:        public,
		ChatMode:      "fast",
		ChatThrottle:  1000,
		VoiceServerID: voiceServerID,
		CreatedAt:     time.Now(),
		UserIDs:       make(map[int64]struct{}),
		Muted:         make(map[int64]struct{}),
		Deaf:          make(map[int64]struct{}),
		Speakers:      make(map[int64]struct{}),
		RaisedHands:   make(map[int64]struct{}),
	}
}

func (r *Room) HasMember(userID int64) bool {
	_, ok := r.UserIDs[userID]
	return ok
}

// RemoveMember drops the user from the membership set and every
// member-scoped overlay in one step, keeping the subset invariant.
func (r *Room) RemoveMember(userID int64) {
	delete(r.UserIDs, userID)
	delete(r.Muted, userID)
	delete(r.Deaf, userID)
	delete(r.Speakers, userID)
	delete(r.RaisedHands, userID)
}

type UserPreview struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
