package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
	"github.com/straye-as/quotebook-api/internal/repository"
)

// SettingsService manages the per-account company, invoice and notification documents
type SettingsService struct {
	settingRepo *repository.SettingRepository
	activities  *ActivityService
	logger      *zap.Logger
}

func NewSettingsService(settingRepo *repository.SettingRepository, activities *ActivityService, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		settingRepo: settingRepo,
		activities:  activities,
		logger:      logger,
	}
}

// Get returns one document, or the defaults when the account never saved it
func (s *SettingsService) Get(ctx context.Context, settingType domain.SettingType) (*domain.SettingDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	if !settingType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettingType, settingType)
	}

	setting, err := s.settingRepo.Get(ctx, settingType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultSettingDTO(settingType)
		}
		return nil, fmt.Errorf("failed to get %s settings: %w", settingType, err)
	}
	return toSettingDTO(setting), nil
}

// GetAll returns all three documents with defaults filled in
func (s *SettingsService) GetAll(ctx context.Context) (*domain.SettingsDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	stored, err := s.settingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}

	byType := make(map[domain.SettingType]*domain.Setting, len(stored))
	for i := range stored {
		byType[stored[i].Type] = &stored[i]
	}

	resolve := func(t domain.SettingType) (domain.SettingDTO, error) {
		if setting, ok := byType[t]; ok {
			return *toSettingDTO(setting), nil
		}
		dto, err := defaultSettingDTO(t)
		if err != nil {
			return domain.SettingDTO{}, err
		}
		return *dto, nil
	}

	var all domain.SettingsDTO
	if all.Company, err = resolve(domain.SettingTypeCompany); err != nil {
		return nil, err
	}
	if all.Invoice, err = resolve(domain.SettingTypeInvoice); err != nil {
		return nil, err
	}
	if all.Notifications, err = resolve(domain.SettingTypeNotifications); err != nil {
		return nil, err
	}
	return &all, nil
}

// Upsert replaces the document of the given type. The value must be a JSON object
// that decodes into the typed settings of that kind.
func (s *SettingsService) Upsert(ctx context.Context, settingType domain.SettingType, value json.RawMessage) (*domain.SettingDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	if !settingType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettingType, settingType)
	}

	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: settings value must be a JSON object", ErrInvalidInput)
	}
	if err := validateSettingValue(settingType, trimmed); err != nil {
		return nil, err
	}

	setting := &domain.Setting{
		Type:  settingType,
		Value: datatypes.JSON(trimmed),
	}
	if err := s.settingRepo.Upsert(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to save %s settings: %w", settingType, err)
	}

	stored, err := s.settingRepo.Get(ctx, settingType)
	if err != nil {
		return nil, fmt.Errorf("failed to reload %s settings: %w", settingType, err)
	}

	s.activities.Record(ctx, domain.ActivityTargetSetting, stored.ID,
		"Settings updated", fmt.Sprintf("%s settings were updated", settingType))

	return toSettingDTO(stored), nil
}

// Company returns the company profile merged over the defaults
func (s *SettingsService) Company(ctx context.Context) (domain.CompanySettings, error) {
	out := domain.DefaultCompanySettings()
	err := s.decodeInto(ctx, domain.SettingTypeCompany, &out)
	return out, err
}

// Invoice returns the numbering and currency preferences merged over the defaults
func (s *SettingsService) Invoice(ctx context.Context) (domain.InvoiceSettings, error) {
	out := domain.DefaultInvoiceSettings()
	err := s.decodeInto(ctx, domain.SettingTypeInvoice, &out)
	return out, err
}

// Notifications returns the notification preferences merged over the defaults
func (s *SettingsService) Notifications(ctx context.Context) (domain.NotificationSettings, error) {
	out := domain.DefaultNotificationSettings()
	err := s.decodeInto(ctx, domain.SettingTypeNotifications, &out)
	return out, err
}

// AccountsWithReminders lists the accounts that enabled payment reminders, with
// their preferences. Used by the reminder job, which has no request account.
func (s *SettingsService) AccountsWithReminders(ctx context.Context) ([]domain.Setting, []domain.NotificationSettings, error) {
	stored, err := s.settingRepo.ListByType(ctx, domain.SettingTypeNotifications)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list notification settings: %w", err)
	}

	var accounts []domain.Setting
	var prefs []domain.NotificationSettings
	for _, setting := range stored {
		p := domain.DefaultNotificationSettings()
		if err := json.Unmarshal(setting.Value, &p); err != nil {
			s.logger.Warn("skipping unreadable notification settings",
				zap.String("account_id", setting.AccountID.String()),
				zap.Error(err))
			continue
		}
		if !p.PaymentReminders {
			continue
		}
		accounts = append(accounts, setting)
		prefs = append(prefs, p)
	}
	return accounts, prefs, nil
}

func (s *SettingsService) decodeInto(ctx context.Context, settingType domain.SettingType, out interface{}) error {
	setting, err := s.settingRepo.Get(ctx, settingType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get %s settings: %w", settingType, err)
	}
	if err := json.Unmarshal(setting.Value, out); err != nil {
		// Corrupt documents fall back to the defaults
		s.logger.Warn("unreadable settings document, using defaults",
			zap.String("type", string(settingType)),
			zap.Error(err))
	}
	return nil
}

func validateSettingValue(settingType domain.SettingType, value []byte) error {
	var target interface{}
	switch settingType {
	case domain.SettingTypeCompany:
		target = &domain.CompanySettings{}
	case domain.SettingTypeInvoice:
		target = &domain.InvoiceSettings{}
	case domain.SettingTypeNotifications:
		target = &domain.NotificationSettings{}
	}
	if err := json.Unmarshal(value, target); err != nil {
		return fmt.Errorf("%w: %s settings: %v", ErrInvalidInput, settingType, err)
	}
	if prefs, ok := target.(*domain.NotificationSettings); ok && prefs.ReminderDays < 0 {
		return fmt.Errorf("%w: reminderDays must not be negative", ErrInvalidInput)
	}
	return nil
}

func defaultSettingDTO(settingType domain.SettingType) (*domain.SettingDTO, error) {
	var value interface{}
	switch settingType {
	case domain.SettingTypeCompany:
		value = domain.DefaultCompanySettings()
	case domain.SettingTypeInvoice:
		value = domain.DefaultInvoiceSettings()
	case domain.SettingTypeNotifications:
		value = domain.DefaultNotificationSettings()
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettingType, settingType)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &domain.SettingDTO{Type: settingType, Value: raw, IsDefault: true}, nil
}

func toSettingDTO(setting *domain.Setting) *domain.SettingDTO {
	return &domain.SettingDTO{
		Type:      setting.Type,
		Value:     json.RawMessage(setting.Value),
		UpdatedAt: mapper.FormatTimestamp(setting.UpdatedAt),
	}
}
