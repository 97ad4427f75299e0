package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
)

type alertStore interface {
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, int, error)
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	Transition(ctx context.Context, alert *models.Alert, from []models.AlertStatus, entry *models.AuditLog) (bool, error)
}

// alertListPayload is the cached shape for list queries.
type alertListPayload struct {
	Alerts []models.Alert `json:"alerts"`
	Total  int            `json:"total"`
}

// AlertService owns the alert lifecycle: active alerts are acknowledged,
// resolved, or dismissed, each transition writing exactly one audit entry in
// the same transaction as the state change.
type AlertService struct {
	repo         alertStore
	cache        *CacheService
	invalidation cacheInvalidator
	logger       *zap.Logger
	now          func() time.Time
}

// NewAlertService constructs an AlertService.
func NewAlertService(repo alertStore, cache *CacheService, invalidation cacheInvalidator, logger *zap.Logger) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		repo:         repo,
		cache:        cache,
		invalidation: invalidation,
		logger:       logger,
		now:          time.Now,
	}
}

// List returns alerts matching the filter. Results are served from the list
// cache when possible; the boolean reports a cache hit.
func (s *AlertService) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, *models.Pagination, bool, error) {
	key := alertListCacheKey(filter)
	var payload alertListPayload
	if hit, err := s.cache.Get(ctx, key, &payload); err == nil && hit {
		return payload.Alerts, paginationFor(filter.Page, filter.PageSize, payload.Total), true, nil
	}

	alerts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list alerts")
	}
	if err := s.cache.Set(ctx, key, alertListPayload{Alerts: alerts, Total: total}, 0); err != nil {
		s.logger.Debug("alert list cache set failed", zap.Error(err))
	}
	return alerts, paginationFor(filter.Page, filter.PageSize, total), false, nil
}

// Get returns one alert by id.
func (s *AlertService) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load alert")
	}
	return alert, nil
}

// Acknowledge marks an alert as seen by the acting user. Legal from ACTIVE
// and ESCALATED; acknowledging an already acknowledged alert is rejected
// rather than treated as a no-op, so repeat calls surface to the caller.
func (s *AlertService) Acknowledge(ctx context.Context, id, userID string, notes *string) (*models.Alert, error) {
	return s.transition(ctx, id, userID, notes, models.AuditActionAlertAcknowledge,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusEscalated},
		func(alert *models.Alert, at time.Time) {
			alert.Status = models.AlertStatusAcknowledged
			alert.AcknowledgedAt = &at
			alert.AcknowledgedBy = &userID
		})
}

// Resolve closes out an alert. Legal from ACTIVE, ACKNOWLEDGED, and ESCALATED.
func (s *AlertService) Resolve(ctx context.Context, id, userID string, notes *string) (*models.Alert, error) {
	return s.transition(ctx, id, userID, notes, models.AuditActionAlertResolve,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusEscalated},
		func(alert *models.Alert, at time.Time) {
			alert.Status = models.AlertStatusResolved
			alert.ResolvedAt = &at
			alert.ResolvedBy = &userID
		})
}

// Dismiss discards an alert without resolution. Legal from any non-terminal
// state; dismissed alerts are terminal and are not regenerated by later scans.
func (s *AlertService) Dismiss(ctx context.Context, id, userID string, notes *string) (*models.Alert, error) {
	return s.transition(ctx, id, userID, notes, models.AuditActionAlertDismiss,
		[]models.AlertStatus{models.AlertStatusActive, models.AlertStatusAcknowledged, models.AlertStatusEscalated},
		func(alert *models.Alert, at time.Time) {
			alert.Status = models.AlertStatusDismissed
		})
}

func (s *AlertService) transition(ctx context.Context, id, userID string, notes *string, action string, from []models.AlertStatus, apply func(*models.Alert, time.Time)) (*models.Alert, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !statusIn(alert.Status, from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("alert is %s", alert.Status))
	}

	previous := alert.Status
	at := s.now().UTC()
	apply(alert, at)
	if notes != nil {
		alert.Notes = notes
	}

	entry := &models.AuditLog{
		Action:     action,
		EntityType: models.AuditEntityAlert,
		UserID:     &userID,
		Details:    fmt.Sprintf("alert %s by user %s", alert.Status, userID),
	}
	if err := entry.SetChanges([]models.FieldChange{{
		Field: "status",
		Old:   string(previous),
		New:   string(alert.Status),
	}}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit changes")
	}

	ok, err := s.repo.Transition(ctx, alert, from, entry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to persist alert transition")
	}
	if !ok {
		// Lost the race: a concurrent writer already moved the alert on.
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "alert state changed concurrently")
	}

	if s.invalidation != nil {
		s.invalidation.Invalidate(alertCacheKeyPrefix + ":*")
	}
	s.logger.Info("alert transition",
		zap.String("alert_id", alert.ID),
		zap.String("action", action),
		zap.String("from", string(previous)),
		zap.String("to", string(alert.Status)),
		zap.String("user_id", userID))
	return alert, nil
}

func statusIn(status models.AlertStatus, set []models.AlertStatus) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}

func alertListCacheKey(filter models.AlertFilter) string {
	return fmt.Sprintf("%s:list:%s:%s:%s:%s:%s:%s:%s:%d:%d",
		alertCacheKeyPrefix,
		derefDashboard(filter.DashboardType), filter.EntityID,
		derefString((*string)(filter.Status)), derefString((*string)(filter.Severity)),
		derefString((*string)(filter.Category)), derefString((*string)(filter.Type)),
		derefInt(filter.DueWithinDays), filter.Page, filter.PageSize)
}

func derefDashboard(value *models.DashboardType) string {
	if value == nil {
		return ""
	}
	return string(*value)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefInt(value *int) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%d", *value)
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
