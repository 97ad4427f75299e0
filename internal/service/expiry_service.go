package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/placetrack/compliance-api/internal/models"
)

type trackedItemReader interface {
	ListByDashboardType(ctx context.Context, dashboardType models.DashboardType) ([]models.TrackedItem, error)
}

type alertCreator interface {
	CreateIfAbsent(ctx context.Context, alert *models.Alert, entry *models.AuditLog) (bool, error)
}

// ExpiryService scans tracked dated items and raises a deduplicated reminder
// alert for the governing threshold, the smallest one the item has crossed.
type ExpiryService struct {
	items      trackedItemReader
	alerts     alertCreator
	thresholds []int
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewExpiryService constructs an ExpiryService. Thresholds are reminder
// offsets in days before expiry, e.g. {90, 60, 30, 7, 1}.
func NewExpiryService(items trackedItemReader, alerts alertCreator, thresholds []int, metrics *MetricsService, logger *zap.Logger) *ExpiryService {
	if len(thresholds) == 0 {
		thresholds = []int{90, 60, 30, 7, 1}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryService{
		items:      items,
		alerts:     alerts,
		thresholds: thresholds,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Scan evaluates every tracked item across all dashboards and returns the
// number of alerts created. A failing item is logged and skipped so one bad
// row never aborts the sweep; cancellation is honoured between items.
func (s *ExpiryService) Scan(ctx context.Context) (int, error) {
	start := s.now()
	created := 0
	for _, dashboardType := range models.AllDashboardTypes() {
		items, err := s.items.ListByDashboardType(ctx, dashboardType)
		if err != nil {
			s.logger.Error("tracked item scan failed for dashboard",
				zap.String("dashboard_type", string(dashboardType)), zap.Error(err))
			continue
		}
		for i := range items {
			if err := ctx.Err(); err != nil {
				return created, err
			}
			n, err := s.evaluateItem(ctx, &items[i])
			if err != nil {
				s.logger.Error("expiry evaluation failed for item",
					zap.String("item_id", items[i].ID),
					zap.String("entity_id", items[i].EntityID), zap.Error(err))
				continue
			}
			created += n
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveScan("generate_expiry_alerts", time.Since(start))
	}
	return created, nil
}

// evaluateItem raises at most one alert per run: the tightest reminder
// threshold the item has crossed. Earlier, wider thresholds keep their own
// still-active alerts; the dedup key in storage is (entity, type, threshold).
func (s *ExpiryService) evaluateItem(ctx context.Context, item *models.TrackedItem) (int, error) {
	now := s.now()
	daysLeft := daysUntil(now, item.ExpiryDate)
	if daysLeft <= 0 {
		// Already expired; expiry reminders no longer apply.
		return 0, nil
	}
	threshold, ok := s.governingThreshold(daysLeft)
	if !ok {
		return 0, nil
	}
	severity := expirySeverity(daysLeft, item.Category)

	alert := &models.Alert{
		Type:          models.AlertTypeExpiryReminder,
		Severity:      severity,
		DashboardType: item.DashboardType,
		EntityID:      item.EntityID,
		EntityName:    item.EntityName,
		Title:         fmt.Sprintf("%s expires in %d days", item.Name, daysLeft),
		Message: fmt.Sprintf("%s for %s expires on %s (%d-day reminder)",
			item.Name, item.EntityName, item.ExpiryDate.Format("2006-01-02"), threshold),
		DueDate:      item.ExpiryDate,
		Status:       models.AlertStatusActive,
		Category:     item.Category,
		ReminderDays: threshold,
	}
	entry := &models.AuditLog{
		Action:     models.AuditActionAlertCreate,
		EntityType: models.AuditEntityAlert,
		Details: fmt.Sprintf("expiry reminder raised for %s (%s), %d-day threshold",
			item.Name, item.EntityID, threshold),
	}
	inserted, err := s.alerts.CreateIfAbsent(ctx, alert, entry)
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, nil
	}
	if s.metrics != nil {
		s.metrics.RecordAlertCreated(severity)
	}
	s.logger.Info("expiry alert created",
		zap.String("alert_id", alert.ID),
		zap.String("entity_id", item.EntityID),
		zap.String("severity", string(severity)),
		zap.Int("reminder_days", threshold))
	return 1, nil
}

// governingThreshold returns the smallest configured threshold the item has
// crossed, i.e. the reminder window that contains now.
func (s *ExpiryService) governingThreshold(daysLeft int) (int, bool) {
	best := 0
	found := false
	for _, threshold := range s.thresholds {
		if daysLeft > threshold {
			continue
		}
		if !found || threshold < best {
			best = threshold
			found = true
		}
	}
	return best, found
}

// expirySeverity maps remaining days to severity. Audit items inside the
// final week are critical rather than high.
func expirySeverity(daysLeft int, category models.AlertCategory) models.AlertSeverity {
	switch {
	case daysLeft <= 7:
		if category == models.CategoryAudit {
			return models.SeverityCritical
		}
		return models.SeverityHigh
	case daysLeft <= 30:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// daysUntil counts whole and partial days remaining, so an expiry later today
// still reads as one day out.
func daysUntil(now, expiry time.Time) int {
	diff := expiry.Sub(now)
	if diff <= 0 {
		return 0
	}
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	return days
}
