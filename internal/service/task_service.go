package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
)

type taskStore interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.ScheduledTask, int, error)
	GetByID(ctx context.Context, id string) (*models.ScheduledTask, error)
	Create(ctx context.Context, task *models.ScheduledTask, entry *models.AuditLog) error
	Advance(ctx context.Context, task *models.ScheduledTask, entry *models.AuditLog) (bool, error)
}

// taskListPayload is the cached shape for list queries.
type taskListPayload struct {
	Tasks []models.ScheduledTask `json:"tasks"`
	Total int                    `json:"total"`
}

// TaskService owns scheduled compliance tasks: creation, listing with derived
// overdue status, completion with recurrence advancement, and cancellation.
type TaskService struct {
	repo         taskStore
	cache        *CacheService
	invalidation cacheInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewTaskService constructs a TaskService.
func NewTaskService(repo taskStore, cache *CacheService, invalidation cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		repo:         repo,
		cache:        cache,
		invalidation: invalidation,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// Create registers a new scheduled task from a manual request.
func (s *TaskService) Create(ctx context.Context, req dto.CreateTaskRequest, userID string) (*models.ScheduledTask, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	frequency := models.TaskFrequency(req.Frequency)
	if frequency == models.FrequencyCustom && req.CustomIntervalDays == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "custom_interval_days is required for CUSTOM frequency")
	}

	task := &models.ScheduledTask{
		Title:              req.Title,
		Description:        req.Description,
		Type:               models.TaskType(req.Type),
		Frequency:          frequency,
		CustomIntervalDays: req.CustomIntervalDays,
		DashboardType:      models.DashboardType(req.DashboardType),
		EntityID:           req.EntityID,
		EntityName:         req.EntityName,
		AssignedTo:         req.AssignedTo,
		DueDate:            req.DueDate,
		NextDueDate:        req.DueDate,
		Status:             models.TaskStatusPending,
	}
	entry := &models.AuditLog{
		Action:     models.AuditActionTaskCreate,
		EntityType: models.AuditEntityTask,
		UserID:     &userID,
		Details:    fmt.Sprintf("task %q scheduled with %s frequency", req.Title, frequency),
	}
	if err := s.repo.Create(ctx, task, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to create task")
	}

	if s.invalidation != nil {
		s.invalidation.Invalidate(taskCacheKeyPrefix + ":*")
	}
	s.logger.Info("task created", zap.String("task_id", task.ID), zap.String("frequency", string(frequency)))
	return task, nil
}

// List returns tasks matching the filter with OVERDUE derived from the due
// date at read time. The boolean reports a cache hit.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.ScheduledTask, *models.Pagination, bool, error) {
	key := taskListCacheKey(filter)
	var payload taskListPayload
	if hit, err := s.cache.Get(ctx, key, &payload); err == nil && hit {
		return s.deriveStatuses(payload.Tasks), paginationFor(filter.Page, filter.PageSize, payload.Total), true, nil
	}

	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list tasks")
	}
	if err := s.cache.Set(ctx, key, taskListPayload{Tasks: tasks, Total: total}, 0); err != nil {
		s.logger.Debug("task list cache set failed", zap.Error(err))
	}
	return s.deriveStatuses(tasks), paginationFor(filter.Page, filter.PageSize, total), false, nil
}

// Get returns one task by id with its derived status.
func (s *TaskService) Get(ctx context.Context, id string) (*models.ScheduledTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load task")
	}
	task.Status = task.EffectiveStatus(s.now())
	return task, nil
}

// Complete marks a task done. One-off tasks become COMPLETED; recurring tasks
// record the completion and advance both due dates by exactly one frequency
// period from the previous due date, so the schedule never drifts with the
// time of completion and never moves backward.
func (s *TaskService) Complete(ctx context.Context, id, userID string) (*models.ScheduledTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load task")
	}
	now := s.now().UTC()
	if !task.Completable(now) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("task is %s", task.EffectiveStatus(now)))
	}

	previousDue := task.DueDate
	task.LastCompleted = &now
	if task.Frequency.Recurring() {
		next := task.Frequency.NextOccurrence(task.DueDate, task.CustomIntervalDays)
		task.DueDate = next
		task.NextDueDate = next
		task.Status = models.TaskStatusPending
	} else {
		task.Status = models.TaskStatusCompleted
	}

	entry := &models.AuditLog{
		Action:     models.AuditActionTaskComplete,
		EntityType: models.AuditEntityTask,
		UserID:     &userID,
		Details:    fmt.Sprintf("task completed by user %s", userID),
	}
	if err := entry.SetChanges([]models.FieldChange{{
		Field: "due_date",
		Old:   previousDue.Format(time.RFC3339),
		New:   task.DueDate.Format(time.RFC3339),
	}}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit changes")
	}

	ok, err := s.repo.Advance(ctx, task, entry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to persist task completion")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "task state changed concurrently")
	}

	if s.invalidation != nil {
		s.invalidation.Invalidate(taskCacheKeyPrefix + ":*")
	}
	s.logger.Info("task completed",
		zap.String("task_id", task.ID),
		zap.Time("previous_due", previousDue),
		zap.Time("next_due", task.DueDate))
	return task, nil
}

// Cancel withdraws a pending or in-progress task.
func (s *TaskService) Cancel(ctx context.Context, id, userID string) (*models.ScheduledTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load task")
	}
	now := s.now()
	if !task.Completable(now) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("task is %s", task.EffectiveStatus(now)))
	}

	previous := task.Status
	task.Status = models.TaskStatusCancelled
	entry := &models.AuditLog{
		Action:     models.AuditActionTaskCancel,
		EntityType: models.AuditEntityTask,
		UserID:     &userID,
		Details:    fmt.Sprintf("task cancelled by user %s", userID),
	}
	if err := entry.SetChanges([]models.FieldChange{{
		Field: "status",
		Old:   string(previous),
		New:   string(models.TaskStatusCancelled),
	}}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit changes")
	}

	ok, err := s.repo.Advance(ctx, task, entry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to persist task cancellation")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "task state changed concurrently")
	}

	if s.invalidation != nil {
		s.invalidation.Invalidate(taskCacheKeyPrefix + ":*")
	}
	s.logger.Info("task cancelled", zap.String("task_id", task.ID))
	return task, nil
}

func (s *TaskService) deriveStatuses(tasks []models.ScheduledTask) []models.ScheduledTask {
	now := s.now()
	for i := range tasks {
		tasks[i].Status = tasks[i].EffectiveStatus(now)
	}
	return tasks
}

func taskListCacheKey(filter models.TaskFilter) string {
	return fmt.Sprintf("%s:list:%s:%s:%s:%s:%s:%d:%d",
		taskCacheKeyPrefix,
		derefDashboard(filter.DashboardType), filter.EntityID,
		derefString((*string)(filter.Status)), derefString((*string)(filter.Type)),
		derefInt(filter.DueWithinDays), filter.Page, filter.PageSize)
}
