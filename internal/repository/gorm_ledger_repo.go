package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

// GormLedgerRepository implements LedgerRepository using GORM.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GORM-based ledger repository.
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append writes one or more records in a single transaction. Paired
// records, like a withdrawal and its fee, either both land or neither.
func (r *GormLedgerRepository) Append(ctx context.Context, records ...*domain.LedgerRecord) error {
	l := log.Ctx(ctx)

	if len(records) == 0 {
		return nil
	}

	models := make([]*domain.LedgerModel, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		models[i] = domain.LedgerToModel(rec)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range models {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.Error().Err(err).Int("records", len(records)).Msg("failed to append ledger records")
		return err
	}
	for i, m := range models {
		records[i].CreatedAt = m.CreatedAt
	}
	return nil
}

// ListByUser retrieves a user's records, newest first.
func (r *GormLedgerRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.LedgerRecord, error) {
	l := log.Ctx(ctx)

	if limit < 1 {
		limit = 50
	}

	var models []domain.LedgerModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to list ledger records")
		return nil, result.Error
	}

	records := make([]*domain.LedgerRecord, len(models))
	for i := range models {
		records[i] = models[i].ToDomain()
	}
	return records, nil
}

// SumByUserAndType totals the BRL amounts of a user's records of one type.
func (r *GormLedgerRepository) SumByUserAndType(ctx context.Context, userID string, t domain.LedgerType) (domain.Centavos, error) {
	l := log.Ctx(ctx)

	var total int64
	result := r.db.WithContext(ctx).Model(&domain.LedgerModel{}).
		Where("user_id = ? AND type = ?", userID, string(t)).
		Select("COALESCE(SUM(amount_brl), 0)").
		Scan(&total)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to sum ledger records")
		return 0, result.Error
	}
	return domain.Centavos(total), nil
}
