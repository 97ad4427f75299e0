package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/models"
)

type taskStoreStub struct {
	tasks   map[string]*models.ScheduledTask
	entries []models.AuditLog
	listed  []models.ScheduledTask
}

func newTaskStoreStub(tasks ...*models.ScheduledTask) *taskStoreStub {
	s := &taskStoreStub{tasks: map[string]*models.ScheduledTask{}}
	for _, task := range tasks {
		s.tasks[task.ID] = task
	}
	return s
}

func (s *taskStoreStub) List(_ context.Context, _ models.TaskFilter) ([]models.ScheduledTask, int, error) {
	return s.listed, len(s.listed), nil
}

func (s *taskStoreStub) GetByID(_ context.Context, id string) (*models.ScheduledTask, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (s *taskStoreStub) Create(_ context.Context, task *models.ScheduledTask, entry *models.AuditLog) error {
	task.ID = "task-created"
	s.tasks[task.ID] = task
	entry.EntityID = task.ID
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *taskStoreStub) Advance(_ context.Context, task *models.ScheduledTask, entry *models.AuditLog) (bool, error) {
	stored, ok := s.tasks[task.ID]
	if !ok {
		return false, nil
	}
	if stored.Status != models.TaskStatusPending && stored.Status != models.TaskStatusInProgress {
		return false, nil
	}
	*stored = *task
	entry.EntityID = task.ID
	s.entries = append(s.entries, *entry)
	return true, nil
}

func monthlyTask(id string, due time.Time) *models.ScheduledTask {
	return &models.ScheduledTask{
		ID:            id,
		Title:         "Quarterly placement review",
		Type:          models.TaskTypeReview,
		Frequency:     models.FrequencyMonthly,
		DashboardType: models.DashboardRTO,
		EntityID:      "RTO001",
		DueDate:       due,
		NextDueDate:   due,
		Status:        models.TaskStatusPending,
	}
}

func newTaskServiceForTest(store *taskStoreStub, now time.Time) *TaskService {
	svc := NewTaskService(store, nil, nil, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestTaskServiceMonthlyRecurrenceAdvancesOnePeriod(t *testing.T) {
	store := newTaskStoreStub(monthlyTask("task-1", date("2025-01-01")))
	svc := newTaskServiceForTest(store, date("2025-01-15"))

	task, err := svc.Complete(context.Background(), "task-1", "user-7")
	require.NoError(t, err)

	assert.Equal(t, date("2025-02-01"), task.DueDate)
	assert.Equal(t, date("2025-02-01"), task.NextDueDate)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	require.NotNil(t, task.LastCompleted)
	assert.False(t, task.NextDueDate.Before(date("2025-01-01")), "schedule must never move backward")
}

func TestTaskServiceRecurrenceIsMonotonic(t *testing.T) {
	store := newTaskStoreStub(monthlyTask("task-1", date("2025-01-01")))
	svc := newTaskServiceForTest(store, date("2025-01-15"))

	previous := date("2025-01-01")
	for i := 0; i < 6; i++ {
		task, err := svc.Complete(context.Background(), "task-1", "user-7")
		require.NoError(t, err)
		assert.True(t, task.NextDueDate.After(previous))
		previous = task.NextDueDate
	}
	assert.Equal(t, date("2025-07-01"), previous)
}

func TestTaskServiceOnceTaskCompletes(t *testing.T) {
	task := monthlyTask("task-1", date("2025-03-01"))
	task.Frequency = models.FrequencyOnce
	store := newTaskStoreStub(task)
	svc := newTaskServiceForTest(store, date("2025-02-20"))

	result, err := svc.Complete(context.Background(), "task-1", "user-7")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, result.Status)
	require.NotNil(t, result.LastCompleted)
}

func TestTaskServiceOverdueTaskIsCompletable(t *testing.T) {
	store := newTaskStoreStub(monthlyTask("task-1", date("2025-01-01")))
	svc := newTaskServiceForTest(store, date("2025-01-20"))

	task, err := svc.Complete(context.Background(), "task-1", "user-7")
	require.NoError(t, err)
	assert.Equal(t, date("2025-02-01"), task.DueDate)
}

func TestTaskServiceCompletedTaskIsNotCompletable(t *testing.T) {
	task := monthlyTask("task-1", date("2025-01-01"))
	task.Status = models.TaskStatusCompleted
	svc := newTaskServiceForTest(newTaskStoreStub(task), date("2025-01-15"))

	_, err := svc.Complete(context.Background(), "task-1", "user-7")
	assert.Equal(t, "INVALID_STATE", errCode(t, err))
}

func TestTaskServiceUnknownTaskIsNotFound(t *testing.T) {
	svc := newTaskServiceForTest(newTaskStoreStub(), date("2025-01-15"))

	_, err := svc.Complete(context.Background(), "missing", "user-7")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestTaskServiceCustomFrequencyUsesInterval(t *testing.T) {
	interval := 10
	task := monthlyTask("task-1", date("2025-01-01"))
	task.Frequency = models.FrequencyCustom
	task.CustomIntervalDays = &interval
	store := newTaskStoreStub(task)
	svc := newTaskServiceForTest(store, date("2025-01-02"))

	result, err := svc.Complete(context.Background(), "task-1", "user-7")
	require.NoError(t, err)
	assert.Equal(t, date("2025-01-11"), result.DueDate)
}

func TestTaskServiceListDerivesOverdue(t *testing.T) {
	store := newTaskStoreStub()
	store.listed = []models.ScheduledTask{
		*monthlyTask("task-1", date("2025-01-01")),
		*monthlyTask("task-2", date("2025-03-01")),
	}
	svc := newTaskServiceForTest(store, date("2025-01-20"))

	tasks, _, _, err := svc.List(context.Background(), models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.TaskStatusOverdue, tasks[0].Status)
	assert.Equal(t, models.TaskStatusPending, tasks[1].Status)
}

func TestTaskServiceCreateValidatesRequest(t *testing.T) {
	svc := newTaskServiceForTest(newTaskStoreStub(), date("2025-01-15"))

	_, err := svc.Create(context.Background(), dto.CreateTaskRequest{Title: "x"}, "user-7")
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestTaskServiceCreateRequiresCustomInterval(t *testing.T) {
	svc := newTaskServiceForTest(newTaskStoreStub(), date("2025-01-15"))

	_, err := svc.Create(context.Background(), dto.CreateTaskRequest{
		Title:         "Custom sweep",
		Type:          "AUDIT",
		Frequency:     "CUSTOM",
		DashboardType: "RTO",
		EntityID:      "RTO001",
		EntityName:    "North RTO",
		DueDate:       date("2025-02-01"),
	}, "user-7")
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestTaskServiceCreateWritesAuditEntry(t *testing.T) {
	store := newTaskStoreStub()
	svc := newTaskServiceForTest(store, date("2025-01-15"))

	task, err := svc.Create(context.Background(), dto.CreateTaskRequest{
		Title:         "Annual compliance audit",
		Type:          "AUDIT",
		Frequency:     "ANNUALLY",
		DashboardType: "RTO",
		EntityID:      "RTO001",
		EntityName:    "North RTO",
		DueDate:       date("2025-06-30"),
	}, "user-7")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	require.Len(t, store.entries, 1)
	assert.Equal(t, models.AuditActionTaskCreate, store.entries[0].Action)
	assert.Equal(t, task.ID, store.entries[0].EntityID)
}

func TestTaskServiceCancel(t *testing.T) {
	store := newTaskStoreStub(monthlyTask("task-1", date("2025-03-01")))
	svc := newTaskServiceForTest(store, date("2025-01-15"))

	task, err := svc.Cancel(context.Background(), "task-1", "user-7")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCancelled, task.Status)
	require.Len(t, store.entries, 1)
	assert.Equal(t, models.AuditActionTaskCancel, store.entries[0].Action)

	_, err = svc.Complete(context.Background(), "task-1", "user-7")
	assert.Equal(t, "INVALID_STATE", errCode(t, err))
}
