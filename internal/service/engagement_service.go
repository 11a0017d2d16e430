package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/nexalink-api/internal/models"
	appErrors "github.com/noah-isme/nexalink-api/pkg/errors"
)

type engagementWriter interface {
	Create(ctx context.Context, event *models.EngagementEvent) error
}

// EngagementService appends user activity to the engagement log.
type EngagementService struct {
	repo    engagementWriter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEngagementService constructs the recorder.
func NewEngagementService(repo engagementWriter, metrics *MetricsService, logger *zap.Logger) *EngagementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementService{repo: repo, metrics: metrics, logger: logger}
}

// Record stores a single event. Events without a user or action are rejected.
func (s *EngagementService) Record(ctx context.Context, event *models.EngagementEvent) error {
	if event == nil || event.UserID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "user_id is required")
	}
	event.Action = strings.TrimSpace(event.Action)
	if event.Action == "" {
		return appErrors.Clone(appErrors.ErrValidation, "action is required")
	}
	if !event.UserType.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "user_type must be one of student faculty admin")
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.logger.Warn("failed to record engagement", zap.String("user_id", event.UserID), zap.String("action", event.Action), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record engagement")
	}
	s.metrics.RecordEngagement(event.UserType)
	return nil
}
