package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/repository"
	"github.com/berrylive/live-service/pkg/log"
)

// userServiceImpl implements UserService.
type userServiceImpl struct {
	users repository.UserRepository
	locks *UserLocks
	pub   Publisher
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, locks *UserLocks, pub Publisher) UserService {
	return &userServiceImpl{users: users, locks: locks, pub: pub}
}

// Register creates a fresh account at level 1 with empty balances.
func (s *userServiceImpl) Register(ctx context.Context, username string) (*domain.UserResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username already taken", domain.ErrValidation)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user := &domain.User{
		ID:       uuid.New().String(),
		Username: username,
		Level:    1,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str(log.FieldUserID, user.ID).Str("username", username).Msg("user registered")

	resp := user.ToResponse()
	return &resp, nil
}

// Get retrieves a user by ID.
func (s *userServiceImpl) Get(ctx context.Context, userID string) (*domain.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// SetWithdrawalMethod configures where withdrawals pay out. A nil method
// clears the configuration and blocks further withdrawals.
func (s *userServiceImpl) SetWithdrawalMethod(ctx context.Context, userID string, method *domain.WithdrawalMethod) (*domain.UserResponse, error) {
	if method != nil && (strings.TrimSpace(method.Kind) == "" || strings.TrimSpace(method.Key) == "") {
		return nil, fmt.Errorf("%w: withdrawal method needs kind and key", domain.ErrValidation)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	var updated *domain.User
	err := s.users.UpdateAtomic(ctx, []string{userID}, func(users map[string]*domain.User) error {
		users[userID].WithdrawalMethod = method
		updated = users[userID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	s.pub.BroadcastToUser(userID, domain.NewMessage(domain.MsgUserUpdated, resp))
	return &resp, nil
}
