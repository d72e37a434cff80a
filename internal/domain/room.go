package domain

import (
	"time"
)

// RoomStatus represents room status.
type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusClosed RoomStatus = "closed"
)

// Room represents a broadcast room. It exists while its host is live;
// closing it cascades to the live session, presence set, PK battle and
// invitations.
type Room struct {
	ID        string     `json:"id"`
	HostID    string     `json:"host_id"`
	Title     string     `json:"title"`
	IsPrivate bool       `json:"is_private"`
	Tags      []string   `json:"tags,omitempty"`
	Quality   string     `json:"quality,omitempty"`
	Status    RoomStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// InvitationStatus represents the state of a room invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation grants a user access to a private room.
type Invitation struct {
	ID        string           `json:"id"`
	RoomID    string           `json:"room_id"`
	InviteeID string           `json:"invitee_id"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// GiftCatalogEntry is a read-only entry from the external gift catalog.
type GiftCatalogEntry struct {
	Name               string `json:"name" mapstructure:"name"`
	Price              int64  `json:"price" mapstructure:"price"` // diamonds
	TriggersAutoFollow bool   `json:"triggers_auto_follow" mapstructure:"triggers_auto_follow"`
}

// CreateRoomRequest represents a create room request.
type CreateRoomRequest struct {
	Title     string   `json:"title" binding:"required,min=1,max=200"`
	IsPrivate bool     `json:"is_private"`
	Tags      []string `json:"tags"`
	Quality   string   `json:"quality"`
}

// GiftRequest represents a gift-send request.
type GiftRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
	GiftName   string `json:"gift_name" binding:"required"`
	Quantity   int64  `json:"quantity" binding:"required"`
}

// CalculateRequest represents a withdrawal preview request.
type CalculateRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// WithdrawRequest represents a withdrawal execution request.
type WithdrawRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// PurchaseRequest represents a diamond purchase credit.
type PurchaseRequest struct {
	Amount    int64    `json:"amount" binding:"required"`
	PaidBRL   Centavos `json:"paid_brl"`
}

// InviteRequest represents a room invitation request.
type InviteRequest struct {
	InviteeID string `json:"invitee_id" binding:"required"`
}

// ToggleRequest represents a mic/sound/auto-invite toggle.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// StartPKRequest represents a PK battle start request.
type StartPKRequest struct {
	OpponentID string `json:"opponent_id" binding:"required"`
}

// PKHeartRequest represents a viewer-sent heart for one PK team.
type PKHeartRequest struct {
	Team string `json:"team" binding:"required"` // "a" or "b"
}

// GiftResult is the outcome of a committed gift transaction.
type GiftResult struct {
	Sender   UserResponse       `json:"updated_sender"`
	Receiver UserResponse       `json:"updated_receiver"`
	Gift     GiftCatalogEntry   `json:"gift"`
	Quantity int64              `json:"quantity"`
	Total    int64              `json:"total_cost"`
	Ranking  []ContributorEntry `json:"ranking"`
}

// RoomSnapshot is the full state a client fetches on (re)connect instead of
// relying on a gap-filled event log.
type RoomSnapshot struct {
	Room             Room               `json:"room"`
	Presence         []string           `json:"presence"`
	ViewerCount      int                `json:"viewer_count"`
	CoinsAccumulated int64              `json:"coins_accumulated"`
	Ranking          []ContributorEntry `json:"ranking"`
	TopContributors  []string           `json:"top_contributors,omitempty"`
	PK               *PKBattle          `json:"pk,omitempty"`
}
