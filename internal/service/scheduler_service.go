package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
)

type expiryScanner interface {
	Scan(ctx context.Context) (int, error)
}

type escalationProcessor interface {
	Process(ctx context.Context) (int, error)
}

type alertStatsReader interface {
	Stats(ctx context.Context, dashboardType models.DashboardType) (*models.AlertStats, error)
}

type taskStatsReader interface {
	Stats(ctx context.Context, dashboardType models.DashboardType) (*models.TaskStats, error)
}

// SchedulerService is the facade the HTTP layer and the cron runner share:
// one entry point per scheduled job plus the on-demand dashboard aggregates.
type SchedulerService struct {
	expiry       expiryScanner
	escalations  escalationProcessor
	alertStats   alertStatsReader
	taskStats    taskStatsReader
	invalidation cacheInvalidator
	logger       *zap.Logger
	now          func() time.Time
}

// NewSchedulerService constructs a SchedulerService.
func NewSchedulerService(expiry expiryScanner, escalations escalationProcessor, alertStats alertStatsReader, taskStats taskStatsReader, invalidation cacheInvalidator, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		expiry:       expiry,
		escalations:  escalations,
		alertStats:   alertStats,
		taskStats:    taskStats,
		invalidation: invalidation,
		logger:       logger,
		now:          time.Now,
	}
}

// GenerateExpiryAlerts runs the expiry sweep and returns how many alerts were
// created. Safe to trigger concurrently with the cron runner: deduplication
// happens in storage.
func (s *SchedulerService) GenerateExpiryAlerts(ctx context.Context) (int, error) {
	created, err := s.expiry.Scan(ctx)
	if err != nil {
		return created, err
	}
	if created > 0 && s.invalidation != nil {
		s.invalidation.Invalidate(alertCacheKeyPrefix + ":*")
	}
	s.logger.Info("expiry alert sweep finished", zap.Int("created", created))
	return created, nil
}

// ProcessEscalations runs the SLA sweep and returns how many alerts were
// escalated.
func (s *SchedulerService) ProcessEscalations(ctx context.Context) (int, error) {
	escalated, err := s.escalations.Process(ctx)
	if err != nil {
		return escalated, err
	}
	if escalated > 0 && s.invalidation != nil {
		s.invalidation.Invalidate(alertCacheKeyPrefix + ":*")
	}
	s.logger.Info("escalation sweep finished", zap.Int("escalated", escalated))
	return escalated, nil
}

// Run dispatches a manually triggered job by action name.
func (s *SchedulerService) Run(ctx context.Context, action string) (*dto.SchedulerRunResponse, error) {
	var (
		count int
		err   error
	)
	switch action {
	case dto.SchedulerActionGenerateExpiryAlerts:
		count, err = s.GenerateExpiryAlerts(ctx)
	case dto.SchedulerActionProcessEscalations:
		count, err = s.ProcessEscalations(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown scheduler action: " + action)
	}
	if err != nil {
		// Typed errors keep their status; FromError maps the rest to 500.
		return nil, err
	}
	return &dto.SchedulerRunResponse{Action: action, Count: count}, nil
}

// DashboardStats aggregates alert and task counts for one dashboard. Computed
// fresh on every call; stats are deliberately never cached.
func (s *SchedulerService) DashboardStats(ctx context.Context, dashboardType models.DashboardType) (*models.DashboardStats, error) {
	alerts, err := s.alertStats.Stats(ctx, dashboardType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to aggregate alert stats")
	}
	tasks, err := s.taskStats.Stats(ctx, dashboardType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to aggregate task stats")
	}
	return &models.DashboardStats{
		DashboardType: dashboardType,
		Alerts:        *alerts,
		Tasks:         *tasks,
		GeneratedAt:   s.now().UTC(),
	}, nil
}
