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

const taskColumns = `id, title, description, type, frequency, custom_interval_days, dashboard_type,
entity_id, entity_name, assigned_to, due_date, next_due_date, status, last_completed, created_at, updated_at`

// TaskRepository provides persistence for scheduled compliance tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// List returns tasks matching the filter ordered by due date ascending. An
// OVERDUE status filter is resolved against stored state plus due date so the
// overdue view never depends on a background writer.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.ScheduledTask, int, error) {
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
		switch *filter.Status {
		case models.TaskStatusOverdue:
			where = append(where, "status IN ('PENDING', 'IN_PROGRESS') AND due_date < NOW()")
		case models.TaskStatusPending, models.TaskStatusInProgress:
			where = append(where, fmt.Sprintf("status = $%d AND due_date >= NOW()", len(args)+1))
			args = append(args, *filter.Status)
		default:
			where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
			args = append(args, *filter.Status)
		}
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

	query := fmt.Sprintf(`SELECT %s FROM scheduled_tasks WHERE %s ORDER BY due_date ASC LIMIT %d OFFSET %d`,
		taskColumns, whereClause, size, offset)
	var tasks []models.ScheduledTask
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM scheduled_tasks WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}
	return tasks, total, nil
}

// GetByID returns a task by identifier.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.ScheduledTask, error) {
	query := fmt.Sprintf("SELECT %s FROM scheduled_tasks WHERE id = $1", taskColumns)
	var task models.ScheduledTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create inserts a new task together with its audit entry.
func (r *TaskRepository) Create(ctx context.Context, task *models.ScheduledTask, entry *models.AuditLog) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create task: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO scheduled_tasks (id, title, description, type, frequency, custom_interval_days, dashboard_type,
entity_id, entity_name, assigned_to, due_date, next_due_date, status, last_completed, created_at, updated_at)
VALUES (:id, :title, :description, :type, :frequency, :custom_interval_days, :dashboard_type,
:entity_id, :entity_name, :assigned_to, :due_date, :next_due_date, :status, :last_completed, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	entry.EntityID = task.ID
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create task: %w", err)
	}
	return nil
}

// Advance persists a completion or cancellation guarded against concurrent
// writers: only tasks still in a completable stored status are updated.
// Returns false when the guard failed.
func (r *TaskRepository) Advance(ctx context.Context, task *models.ScheduledTask, entry *models.AuditLog) (bool, error) {
	task.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin task advance: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE scheduled_tasks SET status = :status, due_date = :due_date, next_due_date = :next_due_date,
last_completed = :last_completed, updated_at = :updated_at
WHERE id = :id AND status IN ('PENDING', 'IN_PROGRESS')`
	result, err := sqlx.NamedExecContext(ctx, tx, query, task)
	if err != nil {
		return false, fmt.Errorf("advance task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance task rows: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	entry.EntityID = task.ID
	if err := insertAuditEntry(ctx, tx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit task advance: %w", err)
	}
	return true, nil
}

// Stats computes aggregate task counts on demand.
func (r *TaskRepository) Stats(ctx context.Context, dashboardType models.DashboardType) (*models.TaskStats, error) {
	const query = `SELECT
COUNT(*) AS total,
COUNT(*) FILTER (WHERE status IN ('PENDING', 'IN_PROGRESS') AND due_date < NOW()) AS overdue,
COUNT(*) FILTER (WHERE status IN ('PENDING', 'IN_PROGRESS') AND due_date >= NOW() AND due_date <= NOW() + INTERVAL '7 days') AS upcoming
FROM scheduled_tasks WHERE dashboard_type = $1`
	var stats models.TaskStats
	if err := r.db.GetContext(ctx, &stats, query, dashboardType); err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return &stats, nil
}
