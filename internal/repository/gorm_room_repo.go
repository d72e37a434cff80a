package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

// GormRoomRepository implements RoomRepository using GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a new GORM-based room repository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

// Create creates a new room.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	room.Status = domain.RoomStatusActive

	model := domain.RoomToModel(room)
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to create room in db")
		return result.Error
	}

	room.CreatedAt = model.CreatedAt
	l.Debug().Str(log.FieldRoomID, room.ID).Msg("room created in db")
	return nil
}

// GetByID retrieves a room by ID.
func (r *GormRoomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, id).Msg("failed to get room by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Update persists the full room state.
func (r *GormRoomRepository) Update(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	if room.Status == domain.RoomStatusClosed && room.ClosedAt == nil {
		now := time.Now()
		room.ClosedAt = &now
	}

	result := r.db.WithContext(ctx).Save(domain.RoomToModel(room))
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, room.ID).Msg("failed to update room in db")
		return result.Error
	}
	return nil
}

// ListActive retrieves all currently active rooms.
func (r *GormRoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	l := log.Ctx(ctx)

	var models []domain.RoomModel
	result := r.db.WithContext(ctx).
		Where("status = ?", string(domain.RoomStatusActive)).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Msg("failed to list active rooms from db")
		return nil, result.Error
	}

	rooms := make([]*domain.Room, len(models))
	for i := range models {
		rooms[i] = models[i].ToDomain()
	}
	return rooms, nil
}

// GetActiveByHost retrieves the host's active room, if any.
func (r *GormRoomRepository) GetActiveByHost(ctx context.Context, hostID string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := r.db.WithContext(ctx).
		Where("host_id = ? AND status = ?", hostID, string(domain.RoomStatusActive)).
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldUserID, hostID).Msg("failed to get active room by host")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}
