package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

// GormInvitationRepository implements InvitationRepository using GORM.
type GormInvitationRepository struct {
	db *gorm.DB
}

// NewGormInvitationRepository creates a new GORM-based invitation repository.
func NewGormInvitationRepository(db *gorm.DB) *GormInvitationRepository {
	return &GormInvitationRepository{db: db}
}

// Create creates a new invitation.
func (r *GormInvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	l := log.Ctx(ctx)

	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	model := domain.InvitationToModel(inv)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, inv.RoomID).Msg("failed to create invitation in db")
		return result.Error
	}
	inv.CreatedAt = model.CreatedAt
	return nil
}

// GetByRoomAndInvitee retrieves an invitation for a room and invitee pair.
func (r *GormInvitationRepository) GetByRoomAndInvitee(ctx context.Context, roomID, inviteeID string) (*domain.Invitation, error) {
	var model domain.InvitationModel
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND invitee_id = ?", roomID, inviteeID).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Update persists the invitation state.
func (r *GormInvitationRepository) Update(ctx context.Context, inv *domain.Invitation) error {
	return r.db.WithContext(ctx).Save(domain.InvitationToModel(inv)).Error
}

// DeleteByRoom removes all invitations of a room. Called when the room
// closes.
func (r *GormInvitationRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&domain.InvitationModel{})
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to delete room invitations")
		return result.Error
	}
	return nil
}

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-based follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Follow records a follow edge. Following someone twice is a no-op.
func (r *GormFollowRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	l := log.Ctx(ctx)

	model := &domain.FollowModel{FollowerID: followerID, FolloweeID: followeeID}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, followerID).Msg("failed to create follow in db")
		return result.Error
	}
	return nil
}

// Unfollow removes a follow edge. Removing an absent edge is a no-op.
func (r *GormFollowRepository) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&domain.FollowModel{}).Error
}

// IsFollowing reports whether the follow edge exists.
func (r *GormFollowRepository) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Followers returns the ids of everyone following the given user.
func (r *GormFollowRepository) Followers(ctx context.Context, followeeID string) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&domain.FollowModel{}).
		Where("followee_id = ?", followeeID).
		Pluck("follower_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}
