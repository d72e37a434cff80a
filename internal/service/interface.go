// Package service implements the coordination core: gift transactions,
// withdrawals, presence, rooms, PK battles and the follow graph. Services
// persist state first and publish realtime events only after the write
// committed, so the bus never announces state that can still be rolled
// back.
package service

import (
	"context"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/wallet"
)

// Publisher fans committed events out to connected clients. The hub
// implements it; services never talk to sockets directly.
type Publisher interface {
	BroadcastToRoom(roomID string, msg domain.Message, exclude string) error
	BroadcastToUser(userID string, msg domain.Message) error
}

// NopPublisher discards all events. Used in tests and tools that run the
// services without a realtime bus.
type NopPublisher struct{}

func (NopPublisher) BroadcastToRoom(string, domain.Message, string) error { return nil }
func (NopPublisher) BroadcastToUser(string, domain.Message) error         { return nil }

// UserService manages accounts and their payout configuration.
type UserService interface {
	Register(ctx context.Context, username string) (*domain.UserResponse, error)
	Get(ctx context.Context, userID string) (*domain.UserResponse, error)
	SetWithdrawalMethod(ctx context.Context, userID string, method *domain.WithdrawalMethod) (*domain.UserResponse, error)
}

// GiftService executes gift transactions.
type GiftService interface {
	// SendGift atomically debits the sender, credits the receiver and
	// updates the room's live session, then announces the gift to the room.
	SendGift(ctx context.Context, roomID string, req *domain.GiftRequest) (*domain.GiftResult, error)
}

// WalletService handles purchases and withdrawals.
type WalletService interface {
	Preview(ctx context.Context, diamonds int64) (*wallet.Quote, error)
	Withdraw(ctx context.Context, userID string, diamonds int64) (*domain.WithdrawalResult, error)
	Purchase(ctx context.Context, userID string, req *domain.PurchaseRequest) (*domain.UserResponse, error)
	PlatformEarnings(ctx context.Context) (domain.Centavos, error)
	History(ctx context.Context, userID string, limit int) ([]*domain.LedgerRecord, error)
}

// PresenceService tracks who is watching which room.
type PresenceService interface {
	// Join adds a viewer. exclude is the joiner's own connection id; the
	// entry announcement goes to everyone else in the room.
	Join(ctx context.Context, roomID, userID, exclude string) error
	Leave(ctx context.Context, roomID, userID string) error
	// Sync replaces a room's viewer set with an authoritative list and
	// returns who entered and who left relative to the previous state.
	Sync(ctx context.Context, roomID string, viewers []string) (entered, left []string, err error)
	List(roomID string) []string
	Count(roomID string) int
	Clear(roomID string)
}

// RoomService manages the room lifecycle, invitations and toggles.
type RoomService interface {
	CreateRoom(ctx context.Context, hostID string, req *domain.CreateRoomRequest) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
	CloseRoom(ctx context.Context, roomID, hostID string) error
	Snapshot(ctx context.Context, roomID string) (*domain.RoomSnapshot, error)
	Invite(ctx context.Context, roomID, hostID string, req *domain.InviteRequest) (*domain.Invitation, error)
	AcceptInvite(ctx context.Context, roomID, inviteeID string) error
	CanJoin(ctx context.Context, roomID, userID string) error
	ToggleMic(ctx context.Context, roomID, userID string, enabled bool) error
	ToggleSound(ctx context.Context, roomID, userID string, enabled bool) error
	ToggleAutoInvite(ctx context.Context, roomID, userID string, enabled bool) error
}

// PKService coordinates head-to-head battles between two hosts.
type PKService interface {
	Start(ctx context.Context, roomID, hostID string, req *domain.StartPKRequest) (*domain.PKBattle, error)
	AddHeart(ctx context.Context, roomID, userID string, req *domain.PKHeartRequest) (*domain.PKBattle, error)
	Get(roomID string) (*domain.PKBattle, bool)
	End(ctx context.Context, roomID string) error
}

// FollowService manages the follow graph.
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, followeeID string) ([]string, error)
}
