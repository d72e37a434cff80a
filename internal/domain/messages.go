package domain

import "encoding/json"

// MessageType identifies a realtime bus message variant.
type MessageType string

// Client to server message types.
const (
	MsgAuth        MessageType = "AUTH"
	MsgChatMessage MessageType = "CHAT_MESSAGE"
	MsgJoinStream  MessageType = "JOIN_STREAM"
	MsgLeaveStream MessageType = "LEAVE_STREAM"
)

// Server to client message types.
const (
	MsgAuthResult        MessageType = "AUTH_RESULT"
	MsgUserUpdated       MessageType = "USER_UPDATED"
	MsgRoomUpdated       MessageType = "ROOM_UPDATED"
	MsgNewGift           MessageType = "NEW_GIFT"
	MsgGiftReceived      MessageType = "GIFT_RECEIVED"
	MsgFollowUpdated     MessageType = "FOLLOW_UPDATED"
	MsgPresenceUpdated   MessageType = "PRESENCE_UPDATED"
	MsgUserEntered       MessageType = "USER_ENTERED"
	MsgMicToggled        MessageType = "MIC_TOGGLED"
	MsgSoundToggled      MessageType = "SOUND_TOGGLED"
	MsgAutoInviteToggled MessageType = "AUTO_INVITE_TOGGLED"
	MsgPKHeartUpdated    MessageType = "PK_HEART_UPDATED"
	MsgError             MessageType = "ERROR"
)

// Message is the envelope every realtime frame travels in. The payload is
// decoded according to Type; unknown types are rejected, never ignored.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthPayload carries the bearer token of the first frame a client sends.
type AuthPayload struct {
	Token string `json:"token"`
}

// AuthResultPayload reports whether authentication succeeded.
type AuthResultPayload struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// StreamPayload addresses a room for join and leave frames.
type StreamPayload struct {
	StreamID string `json:"stream_id"`
}

// ChatPayload is an in-room chat line.
type ChatPayload struct {
	StreamID string `json:"stream_id"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

// GiftEventPayload announces a committed gift to the room.
type GiftEventPayload struct {
	StreamID   string             `json:"stream_id"`
	SenderID   string             `json:"sender_id"`
	ReceiverID string             `json:"receiver_id"`
	GiftName   string             `json:"gift_name"`
	Quantity   int64              `json:"quantity"`
	TotalCost  int64              `json:"total_cost"`
	Ranking    []ContributorEntry `json:"ranking,omitempty"`
}

// PresencePayload carries the authoritative viewer list after a change.
type PresencePayload struct {
	StreamID    string   `json:"stream_id"`
	Viewers     []string `json:"viewers"`
	ViewerCount int      `json:"viewer_count"`
}

// UserEnteredPayload announces a viewer joining a room.
type UserEnteredPayload struct {
	StreamID string `json:"stream_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// TogglePayload announces a mic, sound or auto-invite flip.
type TogglePayload struct {
	StreamID string `json:"stream_id"`
	UserID   string `json:"user_id"`
	Enabled  bool   `json:"enabled"`
}

// FollowPayload announces a follow relation change.
type FollowPayload struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
	Following  bool   `json:"following"`
}

// ErrorPayload reports a rejected frame back to its sender.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage builds a frame of the given type around any JSON payload.
// Marshalling a known payload type cannot fail; errors are swallowed into
// an empty payload rather than propagated to every call site.
func NewMessage(t MessageType, payload interface{}) Message {
	if payload == nil {
		return Message{Type: t}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{Type: t}
	}
	return Message{Type: t, Payload: data}
}

// NewErrorMessage builds an ERROR frame.
func NewErrorMessage(code, message string) Message {
	return NewMessage(MsgError, ErrorPayload{Code: code, Message: message})
}
