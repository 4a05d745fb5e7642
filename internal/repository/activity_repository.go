package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/domain"
	"gorm.io/gorm"
)

// ActivityRepository handles database operations for the account timeline
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListRecent returns the latest activities of the account, optionally for one target
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int, targetID *uuid.UUID) ([]domain.Activity, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = 50
	}
	var activities []domain.Activity
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Activity{}))
	if targetID != nil {
		query = query.Where("target_id = ?", *targetID)
	}
	err := query.Order("occurred_at DESC").Limit(limit).Find(&activities).Error
	return activities, err
}
