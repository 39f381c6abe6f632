package service

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"golang.org/x/exp/maps"

	"github.com/voicebay/server/internal/domain"
	"github.com/voicebay/server/internal/state"
)

// GetTopRooms snapshots every room under the shared view, ranks them, and
// enriches each with member previews and owner settings from storage. A room
// whose fetches fail is dropped from the result instead of failing the whole
// response.
func (c *Coordinator) GetTopRooms(ctx context.Context, requesterID int64) {
	var rooms []domain.Room
	c.state.Read(func(v state.ReadView) {
		for _, roomID := range v.RoomIDs() {
			if snap, ok := v.RoomSnapshot(roomID); ok {
				rooms = append(rooms, snap)
			}
		}
	})

	// Ranked by member count, smallest first. That is the shipped ordering,
	// kept as-is until product confirms "top" should mean most populated.
	slices.SortStableFunc(rooms, func(a, b domain.Room) int {
		return len(a.UserIDs) - len(b.UserIDs)
	})

	communicationRooms := make([]CommunicationRoom, 0, len(rooms))
	for _, room := range rooms {
		previews, ok := c.fetcher.UserPreviews(ctx, maps.Keys(room.UserIDs))
		if !ok {
			continue
		}
		ownerID, chatMode, ok := c.fetcher.RoomOwnerAndSettings(ctx, room.ID)
		if !ok {
			continue
		}

		communicationRooms = append(communicationRooms, CommunicationRoom{
			Details: RoomDetails{
				Name:         room.Name,
				ChatThrottle: room.ChatThrottle,
				IsPrivate:    !room.Public,
				Description:  room.Description,
			},
			RoomID:             room.ID,
			NumOfPeopleInRoom:  len(room.UserIDs),
			VoiceServerID:      room.VoiceServerID,
			CreatorID:          ownerID,
			PeoplePreviewData:  previews,
			AutoSpeakerSetting: room.AutoSpeaker,
			CreatedAt:          room.CreatedAt.Format(time.RFC3339),
			ChatMode:           chatMode,
		})
	}

	data, err := json.Marshal(communicationRooms)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to marshal top rooms", "error", err)
		return
	}
	c.sink.Deliver(ctx, requesterID, OpTopRooms, string(data))
}

// GetFollowList fans a follower/following query out to storage and forwards
// the id set tagged with the target user. No world-state precondition beyond
// a parseable payload.
func (c *Coordinator) GetFollowList(ctx context.Context, requesterID int64, req Request, followers bool) {
	var p GetFollowList
	if !c.parse(ctx, requesterID, req.Data, &p) {
		return
	}

	var (
		userIDs []int64
		ok      bool
	)
	if followers {
		userIDs, ok = c.fetcher.FollowerIDs(ctx, p.UserID)
	} else {
		userIDs, ok = c.fetcher.FollowingIDs(ctx, p.UserID)
	}
	if !ok {
		userIDs = nil
	}

	data, err := json.Marshal(GetFollowListResponse{
		UserIDs: userIDs,
		ForUser: p.UserID,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to marshal follow list", "error", err)
		return
	}
	c.sink.Deliver(ctx, requesterID, OpFollowList, string(data))
}
