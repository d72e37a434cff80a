// Package repository defines persistence interfaces and their GORM and
// in-memory implementations.
package repository

import (
	"context"

	"github.com/berrylive/live-service/internal/domain"
)

// UserRepository provides user persistence. Reads return deep copies;
// all mutation goes through UpdateAtomic so balance invariants are
// enforced in one place.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpdateAtomic loads every listed user, hands the set to fn, and
	// persists the result as one unit. If fn returns an error nothing is
	// written. The users map is keyed by id.
	UpdateAtomic(ctx context.Context, ids []string, fn func(users map[string]*domain.User) error) error
}

// RoomRepository provides room persistence.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) error
	ListActive(ctx context.Context) ([]*domain.Room, error)
	GetActiveByHost(ctx context.Context, hostID string) (*domain.Room, error)
}

// LedgerRepository provides append-only transaction records. Records are
// never updated or deleted once written.
type LedgerRepository interface {
	Append(ctx context.Context, records ...*domain.LedgerRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.LedgerRecord, error)
	SumByUserAndType(ctx context.Context, userID string, t domain.LedgerType) (domain.Centavos, error)
}

// InvitationRepository provides private-room invitation persistence.
type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	GetByRoomAndInvitee(ctx context.Context, roomID, inviteeID string) (*domain.Invitation, error)
	Update(ctx context.Context, inv *domain.Invitation) error
	DeleteByRoom(ctx context.Context, roomID string) error
}

// FollowRepository provides the follow graph.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Followers(ctx context.Context, followeeID string) ([]string, error)
}
