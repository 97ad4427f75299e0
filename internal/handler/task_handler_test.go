package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/middleware"
	"github.com/placetrack/compliance-api/internal/models"
)

type fakeTaskSrv struct {
	tasks      []models.ScheduledTask
	pagination *models.Pagination
	listErr    error
	lastFilter models.TaskFilter

	task      *models.ScheduledTask
	actionErr error
	lastReq   dto.CreateTaskRequest
	lastID    string
	lastUser  string
}

func (f *fakeTaskSrv) List(_ context.Context, filter models.TaskFilter) ([]models.ScheduledTask, *models.Pagination, bool, error) {
	f.lastFilter = filter
	return f.tasks, f.pagination, false, f.listErr
}

func (f *fakeTaskSrv) Get(_ context.Context, id string) (*models.ScheduledTask, error) {
	f.lastID = id
	return f.task, f.actionErr
}

func (f *fakeTaskSrv) Create(_ context.Context, req dto.CreateTaskRequest, userID string) (*models.ScheduledTask, error) {
	f.lastReq, f.lastUser = req, userID
	return f.task, f.actionErr
}

func (f *fakeTaskSrv) Complete(_ context.Context, id, userID string) (*models.ScheduledTask, error) {
	f.lastID, f.lastUser = id, userID
	return f.task, f.actionErr
}

func (f *fakeTaskSrv) Cancel(_ context.Context, id, userID string) (*models.ScheduledTask, error) {
	f.lastID, f.lastUser = id, userID
	return f.task, f.actionErr
}

func TestTaskHandlerCreateReturns201(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeTaskSrv{task: &models.ScheduledTask{ID: "task-1", Title: "Quarterly WHS audit"}}
	handler := NewTaskHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body := strings.NewReader(`{"title":"Quarterly WHS audit","type":"AUDIT_PREPARATION","frequency":"QUARTERLY","dashboardType":"RTO","entityId":"RTO003","entityName":"TafeWest","dueDate":"2025-11-01T00:00:00Z"}`)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks", body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1"})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "admin-1", service.lastUser)
	assert.Equal(t, "Quarterly WHS audit", service.lastReq.Title)
	var envelope testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
}

func TestTaskHandlerCreateRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTaskHandler(&fakeTaskSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskHandlerListParsesStatusFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeTaskSrv{}
	handler := NewTaskHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/tasks?status=OVERDUE&dashboardType=PROVIDER", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, service.lastFilter.Status)
	assert.Equal(t, models.TaskStatusOverdue, *service.lastFilter.Status)
	require.NotNil(t, service.lastFilter.DashboardType)
	assert.Equal(t, models.DashboardProvider, *service.lastFilter.DashboardType)
}

func TestTaskHandlerCompletePassesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeTaskSrv{task: &models.ScheduledTask{ID: "task-1", Status: models.TaskStatusPending}}
	handler := NewTaskHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/tasks/task-1/complete", nil)
	c.Params = gin.Params{{Key: "id", Value: "task-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "trainer-2"})

	handler.Complete(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "task-1", service.lastID)
	assert.Equal(t, "trainer-2", service.lastUser)
}
