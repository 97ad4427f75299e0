package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
	"github.com/placetrack/compliance-api/pkg/response"
)

type taskService interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.ScheduledTask, *models.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.ScheduledTask, error)
	Create(ctx context.Context, req dto.CreateTaskRequest, userID string) (*models.ScheduledTask, error)
	Complete(ctx context.Context, id, userID string) (*models.ScheduledTask, error)
	Cancel(ctx context.Context, id, userID string) (*models.ScheduledTask, error)
}

// TaskHandler exposes scheduled task endpoints.
type TaskHandler struct {
	service taskService
}

// NewTaskHandler builds a new handler.
func NewTaskHandler(service taskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List godoc
// @Summary List scheduled tasks
// @Tags Tasks
// @Produce json
// @Param dashboardType query string false "Dashboard type"
// @Param entityId query string false "Entity ID"
// @Param status query string false "Task status (OVERDUE is derived)"
// @Param type query string false "Task type"
// @Param dueWithinDays query int false "Only tasks due within N days"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	filter, err := taskFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	tasks, pagination, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, pagination, map[string]interface{}{"cache_hit": cacheHit})
}

// Get godoc
// @Summary Get task by ID
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Create godoc
// @Summary Create a scheduled task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body dto.CreateTaskRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task payload"))
		return
	}
	task, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Complete godoc
// @Summary Complete a scheduled task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	h.action(c, h.service.Complete)
}

// Cancel godoc
// @Summary Cancel a scheduled task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/cancel [post]
func (h *TaskHandler) Cancel(c *gin.Context) {
	h.action(c, h.service.Cancel)
}

func (h *TaskHandler) action(c *gin.Context, fn func(ctx context.Context, id, userID string) (*models.ScheduledTask, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	task, err := fn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

func taskFilterFromQuery(c *gin.Context) (models.TaskFilter, error) {
	filter := models.TaskFilter{EntityID: c.Query("entityId")}
	if raw := c.Query("dashboardType"); raw != "" {
		value := models.DashboardType(raw)
		filter.DashboardType = &value
	}
	if raw := c.Query("status"); raw != "" {
		value := models.TaskStatus(raw)
		filter.Status = &value
	}
	if raw := c.Query("type"); raw != "" {
		value := models.TaskType(raw)
		filter.Type = &value
	}
	if raw := c.Query("dueWithinDays"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "dueWithinDays must be a non-negative integer")
		}
		filter.DueWithinDays = &days
	}
	filter.Page, filter.PageSize = paginationFromQuery(c)
	return filter, nil
}
