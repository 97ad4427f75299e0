package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/placetrack/compliance-api/internal/models"
)

type escalationStore interface {
	ListActiveOlderThan(ctx context.Context, cutoff time.Time) ([]models.Alert, error)
	Escalate(ctx context.Context, original, followUp *models.Alert, entries []*models.AuditLog) (bool, error)
}

// EscalationService sweeps alerts that have stayed ACTIVE past the SLA and
// escalates them, synthesizing a critical admin follow-up for each.
type EscalationService struct {
	alerts  escalationStore
	maxAge  time.Duration
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewEscalationService constructs an EscalationService. maxAge is the SLA an
// alert may remain ACTIVE before escalation, 14 days by default.
func NewEscalationService(alerts escalationStore, maxAge time.Duration, metrics *MetricsService, logger *zap.Logger) *EscalationService {
	if maxAge <= 0 {
		maxAge = 14 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		alerts:  alerts,
		maxAge:  maxAge,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Process escalates every alert still ACTIVE past the SLA and returns how
// many were escalated. The per-alert transition is guarded in storage, so a
// candidate acknowledged or swept concurrently is skipped, never escalated
// twice. Failures are logged and the sweep continues.
func (s *EscalationService) Process(ctx context.Context) (int, error) {
	start := s.now()
	cutoff := start.Add(-s.maxAge)
	candidates, err := s.alerts.ListActiveOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list escalation candidates: %w", err)
	}

	escalated := 0
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return escalated, err
		}
		ok, err := s.escalateOne(ctx, &candidates[i])
		if err != nil {
			s.logger.Error("escalation failed", zap.String("alert_id", candidates[i].ID), zap.Error(err))
			continue
		}
		if ok {
			escalated++
			if s.metrics != nil {
				s.metrics.RecordEscalation()
			}
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveScan("process_escalations", time.Since(start))
	}
	return escalated, nil
}

func (s *EscalationService) escalateOne(ctx context.Context, original *models.Alert) (bool, error) {
	now := s.now().UTC()
	updated := *original
	updated.Status = models.AlertStatusEscalated
	updated.EscalationLevel = original.EscalationLevel + 1
	updated.UpdatedAt = now

	age := now.Sub(original.CreatedAt)
	followUp := &models.Alert{
		ID:            uuid.NewString(),
		Type:          models.AlertTypeEscalation,
		Severity:      models.SeverityCritical,
		DashboardType: models.DashboardAdmin,
		EntityID:      original.EntityID,
		EntityName:    original.EntityName,
		Title:         "Escalated: " + original.Title,
		Message: fmt.Sprintf("Alert %q has been active for %d days without acknowledgement and was escalated.",
			original.Title, int(age.Hours()/24)),
		DueDate:         original.DueDate,
		Status:          models.AlertStatusActive,
		Category:        original.Category,
		EscalationLevel: updated.EscalationLevel,
		SourceAlertID:   &original.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	escalateEntry := &models.AuditLog{
		Action:     models.AuditActionAlertEscalate,
		EntityType: models.AuditEntityAlert,
		EntityID:   original.ID,
		Details:    fmt.Sprintf("alert escalated after %s active without acknowledgement", s.maxAge),
	}
	if err := escalateEntry.SetChanges([]models.FieldChange{{
		Field: "status",
		Old:   string(models.AlertStatusActive),
		New:   string(models.AlertStatusEscalated),
	}}); err != nil {
		return false, err
	}
	createEntry := &models.AuditLog{
		Action:     models.AuditActionAlertCreate,
		EntityType: models.AuditEntityAlert,
		EntityID:   followUp.ID,
		Details:    fmt.Sprintf("escalation follow-up raised for alert %s", original.ID),
	}

	ok, err := s.alerts.Escalate(ctx, &updated, followUp, []*models.AuditLog{escalateEntry, createEntry})
	if err != nil {
		return false, err
	}
	if !ok {
		// A concurrent writer moved the alert out of ACTIVE first.
		return false, nil
	}
	s.logger.Info("alert escalated",
		zap.String("alert_id", original.ID),
		zap.String("follow_up_id", followUp.ID),
		zap.Int("escalation_level", updated.EscalationLevel))
	return true, nil
}
