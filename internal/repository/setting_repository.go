package repository

import (
	"context"
	"time"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository persists per-account configuration documents
type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the account's document of the given type
func (r *SettingRepository) Get(ctx context.Context, settingType domain.SettingType) (*domain.Setting, error) {
	var setting domain.Setting
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Where("type = ?", settingType))
	if err := query.First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// List returns all stored documents of the account
func (r *SettingRepository) List(ctx context.Context) ([]domain.Setting, error) {
	var settings []domain.Setting
	err := ApplyAccountFilter(ctx, r.db.WithContext(ctx)).Order("type ASC").Find(&settings).Error
	return settings, err
}

// Upsert inserts or replaces the document keyed by (account, type)
func (r *SettingRepository) Upsert(ctx context.Context, setting *domain.Setting) error {
	if accountID, ok := auth.AccountID(ctx); ok {
		setting.AccountID = accountID
	}
	setting.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
}

// ListByType returns the documents of one type across all accounts, used by
// background jobs
func (r *SettingRepository) ListByType(ctx context.Context, settingType domain.SettingType) ([]domain.Setting, error) {
	var settings []domain.Setting
	err := r.db.WithContext(ctx).Where("type = ?", settingType).Find(&settings).Error
	return settings, err
}
