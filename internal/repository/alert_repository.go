package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/placetrack/compliance-api/internal/models"
)

const alertColumns = `id, type, severity, dashboard_type, entity_id, entity_name, title, message, due_date,
status, category, escalation_level, reminder_days, source_alert_id,
acknowledged_at, acknowledged_by, resolved_at, resolved_by, notes, created_at, updated_at`

// AlertRepository provides persistence for compliance alerts. Creation and
// lifecycle transitions commit together with their audit trail entry so a
// state change is never observable without its evidence record.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// List returns alerts matching the filter, newest first, with severity as the
// tie-break within identical creation timestamps.
func (r *AlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.DashboardType != nil {
		where = append(where, fmt.Sprintf("dashboard_type = $%d", len(args)+1))
		args = append(args, *filter.DashboardType)
	}
	if filter.EntityID != "" {
		where = append(where, fmt.Sprintf("entity_id = $%d", len(args)+1))
		args = append(args, filter.EntityID)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Severity != nil {
		where = append(where, fmt.Sprintf("severity = $%d", len(args)+1))
		args = append(args, *filter.Severity)
	}
	if filter.Category != nil {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if filter.Type != nil {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.DueWithinDays != nil {
		where = append(where, fmt.Sprintf("due_date <= NOW() + $%d * INTERVAL '1 day'", len(args)+1))
		args = append(args, *filter.DueWithinDays)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE %s
ORDER BY created_at DESC,
CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END DESC
LIMIT %d OFFSET %d`, alertColumns, whereClause, size, offset)
	var alerts []models.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM alerts WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}
	return alerts, total, nil
}

// GetByID returns an alert by identifier.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE id = $1", alertColumns)
	var alert models.Alert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// CreateIfAbsent inserts a new alert unless an ACTIVE alert with the same
// dedup key (entity_id, type, reminder_days) already exists. The insert and
// its audit entry commit atomically; the conditional insert relies on the
// partial unique index over ACTIVE EXPIRY_REMINDER rows so concurrent scans
// cannot double-create. Returns false when the alert was deduplicated away.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert *models.Alert, entry *models.AuditLog) (bool, error) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	if alert.Status == "" {
		alert.Status = models.AlertStatusActive
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin create alert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO alerts (id, type, severity, dashboard_type, entity_id, entity_name, title, message, due_date,
status, category, escalation_level, reminder_days, source_alert_id, notes, created_at, updated_at)
VALUES (:id, :type, :severity, :dashboard_type, :entity_id, :entity_name, :title, :message, :due_date,
:status, :category, :escalation_level, :reminder_days, :source_alert_id, :notes, :created_at, :updated_at)
ON CONFLICT DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, tx, query, alert)
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create alert rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	entry.EntityID = alert.ID
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit create alert: %w", err)
	}
	return true, nil
}

// Transition persists a lifecycle change guarded by the set of statuses the
// change is legal from, together with its audit entry. Returns false when the
// guard failed, meaning a concurrent writer got there first.
func (r *AlertRepository) Transition(ctx context.Context, alert *models.Alert, from []models.AlertStatus, entry *models.AuditLog) (bool, error) {
	alert.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin alert transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`UPDATE alerts SET status = :status, escalation_level = :escalation_level,
acknowledged_at = :acknowledged_at, acknowledged_by = :acknowledged_by,
resolved_at = :resolved_at, resolved_by = :resolved_by, notes = :notes, updated_at = :updated_at
WHERE id = :id AND status IN (%s)`, statusList(from))
	result, err := sqlx.NamedExecContext(ctx, tx, query, alert)
	if err != nil {
		return false, fmt.Errorf("transition alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition alert rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	entry.EntityID = alert.ID
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit alert transition: %w", err)
	}
	return true, nil
}

// ListActiveOlderThan returns alerts still ACTIVE that were created before
// the cutoff. Candidates for SLA escalation.
func (r *AlertRepository) ListActiveOlderThan(ctx context.Context, cutoff time.Time) ([]models.Alert, error) {
	query := fmt.Sprintf(`SELECT %s FROM alerts WHERE status = 'ACTIVE' AND created_at < $1 ORDER BY created_at ASC`, alertColumns)
	var alerts []models.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, cutoff); err != nil {
		return nil, fmt.Errorf("list stale active alerts: %w", err)
	}
	return alerts, nil
}

// Escalate marks the original alert ESCALATED (only while still ACTIVE) and
// inserts the synthesized follow-up alert plus both audit entries in one
// transaction. The follow-up insert is unconditional: ESCALATION rows sit
// outside the expiry-reminder dedup index, and one entity may legitimately
// accumulate several ACTIVE follow-ups. Returns false when the original was
// no longer ACTIVE.
func (r *AlertRepository) Escalate(ctx context.Context, original, followUp *models.Alert, entries []*models.AuditLog) (bool, error) {
	now := time.Now().UTC()
	original.UpdatedAt = now
	if followUp.ID == "" {
		followUp.ID = uuid.NewString()
	}
	if followUp.CreatedAt.IsZero() {
		followUp.CreatedAt = now
	}
	followUp.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin escalation: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const guard = `UPDATE alerts SET status = :status, escalation_level = :escalation_level, updated_at = :updated_at
WHERE id = :id AND status = 'ACTIVE'`
	result, err := sqlx.NamedExecContext(ctx, tx, guard, original)
	if err != nil {
		return false, fmt.Errorf("escalate alert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("escalate alert rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	const insert = `INSERT INTO alerts (id, type, severity, dashboard_type, entity_id, entity_name, title, message, due_date,
status, category, escalation_level, reminder_days, source_alert_id, notes, created_at, updated_at)
VALUES (:id, :type, :severity, :dashboard_type, :entity_id, :entity_name, :title, :message, :due_date,
:status, :category, :escalation_level, :reminder_days, :source_alert_id, :notes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, insert, followUp); err != nil {
		return false, fmt.Errorf("create escalation alert: %w", err)
	}

	for _, entry := range entries {
		if err := insertAuditEntry(ctx, tx, entry); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit escalation: %w", err)
	}
	return true, nil
}

// Stats computes aggregate alert counts on demand; nothing is cached so the
// numbers are never stale beyond the call.
func (r *AlertRepository) Stats(ctx context.Context, dashboardType models.DashboardType) (*models.AlertStats, error) {
	const query = `SELECT
COUNT(*) AS total,
COUNT(*) FILTER (WHERE status = 'ACTIVE') AS active,
COUNT(*) FILTER (WHERE status = 'ESCALATED') AS escalated,
COUNT(*) FILTER (WHERE severity = 'CRITICAL' AND status NOT IN ('RESOLVED', 'DISMISSED')) AS critical,
COUNT(*) FILTER (WHERE due_date < NOW() AND status IN ('ACTIVE', 'ESCALATED')) AS overdue
FROM alerts WHERE dashboard_type = $1`
	var stats models.AlertStats
	if err := r.db.GetContext(ctx, &stats, query, dashboardType); err != nil {
		return nil, fmt.Errorf("alert stats: %w", err)
	}
	return &stats, nil
}

// statusList renders a status guard for inline SQL. Values come from the
// models enum, never from user input.
func statusList(statuses []models.AlertStatus) string {
	quoted := make([]string, 0, len(statuses))
	for _, status := range statuses {
		quoted = append(quoted, "'"+string(status)+"'")
	}
	return strings.Join(quoted, ", ")
}
