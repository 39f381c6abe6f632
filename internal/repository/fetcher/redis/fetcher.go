// Package redis backs the data fetcher: the read-only queries the
// coordinator needs for authorization and enrichment but deliberately never
// caches in the world state. Every read degrades gracefully — a false ok
// means "nothing found" or "exclude this item", never a hard failure for the
// owning request.
package redis

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/voicebay/server/internal/domain"
)

type fetcher struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewFetcher(rc *redis.Client, logger *slog.Logger) *fetcher {
	return &fetcher{
		rc:     rc,
		logger: logger,
	}
}

func (f fetcher) getRoomBlockedKey(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10) + ":blocked"
}

func (f fetcher) getFollowersKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":followers"
}

func (f fetcher) getFollowingKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":following"
}

func (f fetcher) getUserPreviewKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":preview"
}

func (f fetcher) getRoomSettingsKey(roomID int64) string {
	return "room:" + strconv.FormatInt(roomID, 10) + ":settings"
}

func (f fetcher) BlockedUserIDs(ctx context.Context, roomID int64) (map[int64]struct{}, bool) {
	members, err := f.rc.SMembers(ctx, f.getRoomBlockedKey(roomID)).Result()
	if err != nil {
		f.logger.WarnContext(ctx, "failed to read blocked set", "roomId", roomID, "error", err)
		return nil, false
	}

	blocked := make(map[int64]struct{}, len(members))
	for _, member := range members {
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			f.logger.WarnContext(ctx, "malformed blocked set entry", "roomId", roomID, "entry", member)
			continue
		}
		blocked[userID] = struct{}{}
	}
	return blocked, true
}

// AddBlockedUser is the single write this repository carries: committed
// blocks must survive the room, so they live next to the sets join-time
// checks read.
func (f fetcher) AddBlockedUser(ctx context.Context, roomID, userID int64) error {
	return f.rc.SAdd(ctx, f.getRoomBlockedKey(roomID), strconv.FormatInt(userID, 10)).Err()
}

func (f fetcher) FollowerIDs(ctx context.Context, userID int64) ([]int64, bool) {
	return f.readIDSet(ctx, f.getFollowersKey(userID))
}

func (f fetcher) FollowingIDs(ctx context.Context, userID int64) ([]int64, bool) {
	return f.readIDSet(ctx, f.getFollowingKey(userID))
}

func (f fetcher) readIDSet(ctx context.Context, key string) ([]int64, bool) {
	members, err := f.rc.SMembers(ctx, key).Result()
	if err != nil {
		f.logger.WarnContext(ctx, "failed to read id set", "key", key, "error", err)
		return nil, false
	}

	userIDs := make([]int64, 0, len(members))
	for _, member := range members {
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			f.logger.WarnContext(ctx, "malformed id set entry", "key", key, "entry", member)
			continue
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, true
}

// UserPreviews loads the projection for every requested user. A missing or
// unreadable preview fails the whole batch so the caller can exclude the
// aggregate item it was enriching.
func (f fetcher) UserPreviews(ctx context.Context, userIDs []int64) (map[int64]domain.UserPreview, bool) {
	previews := make(map[int64]domain.UserPreview, len(userIDs))
	for _, userID := range userIDs {
		fields, err := f.rc.HGetAll(ctx, f.getUserPreviewKey(userID)).Result()
		if err != nil || len(fields) == 0 {
			f.logger.WarnContext(ctx, "failed to read user preview", "userId", userID, "error", err)
			return nil, false
		}
		previews[userID] = domain.UserPreview{
			DisplayName: fields["display_name"],
			AvatarURL:   fields["avatar_url"],
		}
	}
	return previews, true
}

func (f fetcher) RoomOwnerAndSettings(ctx context.Context, roomID int64) (int64, string, bool) {
	fields, err := f.rc.HGetAll(ctx, f.getRoomSettingsKey(roomID)).Result()
	if err != nil || len(fields) == 0 {
		f.logger.WarnContext(ctx, "failed to read room settings", "roomId", roomID, "error", err)
		return 0, "", false
	}

	ownerID, err := strconv.ParseInt(fields["owner_id"], 10, 64)
	if err != nil {
		f.logger.WarnContext(ctx, "malformed room owner id", "roomId", roomID, "value", fields["owner_id"])
		return 0, "", false
	}
	return ownerID, fields["chat_mode"], true
}
