package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
	"github.com/straye-as/quotebook-api/internal/repository"
)

// ActivityService records and lists the account timeline
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(activityRepo *repository.ActivityRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Record appends an entry to the timeline. Failures are logged and never
// fail the operation that triggered them.
func (s *ActivityService) Record(ctx context.Context, targetType domain.ActivityTargetType, targetID uuid.UUID, title, body string) {
	if s == nil {
		return
	}
	accountID, ok := auth.AccountID(ctx)
	if !ok {
		return
	}
	activity := &domain.Activity{
		AccountID:  accountID,
		TargetType: targetType,
		TargetID:   targetID,
		Title:      title,
		Body:       body,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("title", title),
			zap.String("target_id", targetID.String()),
			zap.Error(err))
	}
}

// List returns the latest entries, optionally for one target
func (s *ActivityService) List(ctx context.Context, limit int, targetID *uuid.UUID) ([]domain.ActivityDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	activities, err := s.activityRepo.ListRecent(ctx, limit, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = mapper.ToActivityDTO(&activities[i])
	}
	return dtos, nil
}

// requireAccount returns the authenticated account or ErrUnauthorized
func requireAccount(ctx context.Context) (uuid.UUID, error) {
	accountID, ok := auth.AccountID(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	return accountID, nil
}
