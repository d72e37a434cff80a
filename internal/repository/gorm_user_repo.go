package repository

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GORM-based user repository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	l := log.Ctx(ctx)

	model := domain.UserToModel(user)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create user in db")
		return result.Error
	}

	user.CreatedAt = model.CreatedAt
	user.UpdatedAt = model.UpdatedAt
	l.Debug().Str(log.FieldUserID, user.ID).Msg("user created in db")
	return nil
}

// GetByID retrieves a user by ID.
func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	l := log.Ctx(ctx)

	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldUserID, id).Msg("failed to get user by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByUsername retrieves a user by username.
func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	l := log.Ctx(ctx)

	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		l.Error().Err(result.Error).Str("username", username).Msg("failed to get user by username")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateAtomic loads all listed users under row locks inside one
// transaction, applies fn, and writes every user back. Rows are locked in
// sorted id order so concurrent multi-user updates cannot deadlock.
func (r *GormUserRepository) UpdateAtomic(ctx context.Context, ids []string, fn func(users map[string]*domain.User) error) error {
	l := log.Ctx(ctx)

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*domain.User, len(sorted))
		for _, id := range sorted {
			var model domain.UserModel
			result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id)
			if result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					return domain.ErrNotFound
				}
				return result.Error
			}
			users[id] = model.ToDomain()
		}

		if err := fn(users); err != nil {
			return err
		}

		for _, user := range users {
			model := domain.UserToModel(user)
			if err := tx.Save(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrInsufficientBalance) {
		l.Error().Err(err).Strs("user_ids", sorted).Msg("atomic user update failed")
	}
	return err
}
