package service

import "github.com/voicebay/server/internal/domain"

// Request is the inbound envelope produced by the transport layer: an
// operation tag plus the operation-specific payload as a nested JSON string.
type Request struct {
	Op   string `json:"request_op_code"`
	Data string `json:"request_containing_data"`
}

// Response is the outbound counterpart delivered through the sink.
type Response struct {
	Op   string `json:"response_op_code"`
	Data string `json:"response_containing_data"`
}

// Inbound operation tags. Dispatch is a closed set; anything else gets the
// uniform rejection.
const (
	OpCreateRoom         = "create_room"
	OpJoinRoomAsSpeaker  = "join_room_as_speaker"
	OpJoinRoomAsListener = "join_room_as_listener"
	OpLeaveRoom          = "leave_room"
	OpBlockUserFromRoom  = "block_user_from_room"
	OpAddSpeaker         = "add_speaker"
	OpRemoveSpeaker      = "remove_speaker"
	OpRaiseHand          = "raise_hand"
	OpLowerHand          = "lower_hand"
	OpUpdateDeafAndMute  = "update_deaf_and_mute"
	OpGetFollowers       = "get_followers"
	OpGetFollowing       = "get_following"
	OpGetTopRooms        = "get_top_rooms"
	OpConnectTransport   = "connect-transport"
	OpSendTrack          = "send-track"
	OpGetRecvTracks      = "get-recv-tracks"
)

const (
	OpInvalidRequest   = "invalid_request"
	OpTopRooms         = "top_rooms"
	OpFollowList       = "follow_list"
	invalidRequestBody = "issue with request"
)

type RoomCreation struct {
	Name   string `json:"name" validate:"required,max=100"`
	Desc   string `json:"desc" validate:"max=500"`
	Public bool   `json:"public"`
}

// RoomAndPeer is the shared payload shape for join/speaker/hand/relay
// operations. The voice server requires camelCase field names.
type RoomAndPeer struct {
	RoomID int64 `json:"roomId" validate:"gt=0"`
	PeerID int64 `json:"peerId" validate:"gt=0"`
}

type BlockUserFromRoom struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
	RoomID int64 `json:"room_id" validate:"gt=0"`
}

type GetFollowList struct {
	UserID int64 `json:"user_id" validate:"gt=0"`
}

type GetFollowListResponse struct {
	UserIDs []int64 `json:"user_ids"`
	ForUser int64   `json:"for_user"`
}

type DeafAndMuteStatus struct {
	Muted bool `json:"muted"`
	Deaf  bool `json:"deaf"`
}

type RoomDetails struct {
	Name         string `json:"name"`
	ChatThrottle int64  `json:"chat_throttle"`
	IsPrivate    bool   `json:"is_private"`
	Description  string `json:"description"`
}

// CommunicationRoom is the enriched projection of a room sent in the
// top-rooms response.
type CommunicationRoom struct {
	Details            RoomDetails                  `json:"details"`
	RoomID             int64                        `json:"room_id"`
	NumOfPeopleInRoom  int                          `json:"num_of_people_in_room"`
	VoiceServerID      string                       `json:"voice_server_id"`
	CreatorID          int64                        `json:"creator_id"`
	PeoplePreviewData  map[int64]domain.UserPreview `json:"people_preview_data"`
	AutoSpeakerSetting bool                         `json:"auto_speaker_setting"`
	CreatedAt          string                       `json:"created_at"`
	ChatMode           string                       `json:"chat_mode"`
}
