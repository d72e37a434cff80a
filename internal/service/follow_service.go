package service

import (
	"context"
	"fmt"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/pkg/log"
)

// followServiceImpl implements FollowService.
type followServiceImpl struct {
	follows repository.FollowRepository
	pub     Publisher
}

// NewFollowService creates a new follow service.
func NewFollowService(follows repository.FollowRepository, pub Publisher) FollowService {
	return &followServiceImpl{follows: follows, pub: pub}
}

// Follow records the edge and notifies both sides.
func (s *followServiceImpl) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return fmt.Errorf("%w: cannot follow yourself", domain.ErrValidation)
	}

	if err := s.follows.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Str(log.FieldUserID, followerID).
		Str("followee_id", followeeID).
		Msg("follow created")

	payload := domain.FollowPayload{FollowerID: followerID, FolloweeID: followeeID, Following: true}
	s.pub.BroadcastToUser(followerID, domain.NewMessage(domain.MsgFollowUpdated, payload))
	s.pub.BroadcastToUser(followeeID, domain.NewMessage(domain.MsgFollowUpdated, payload))
	return nil
}

// Unfollow removes the edge and notifies both sides.
func (s *followServiceImpl) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := s.follows.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}

	payload := domain.FollowPayload{FollowerID: followerID, FolloweeID: followeeID, Following: false}
	s.pub.BroadcastToUser(followerID, domain.NewMessage(domain.MsgFollowUpdated, payload))
	s.pub.BroadcastToUser(followeeID, domain.NewMessage(domain.MsgFollowUpdated, payload))
	return nil
}

// IsFollowing reports whether the follow edge exists.
func (s *followServiceImpl) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	return s.follows.IsFollowing(ctx, followerID, followeeID)
}

// Followers returns everyone following the given user.
func (s *followServiceImpl) Followers(ctx context.Context, followeeID string) ([]string, error) {
	return s.follows.Followers(ctx, followeeID)
}
