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

type alertService interface {
	List(ctx context.Context, filter models.AlertFilter) ([]models.Alert, *models.Pagination, bool, error)
	Get(ctx context.Context, id string) (*models.Alert, error)
	Acknowledge(ctx context.Context, id, userID string, notes *string) (*models.Alert, error)
	Resolve(ctx context.Context, id, userID string, notes *string) (*models.Alert, error)
	Dismiss(ctx context.Context, id, userID string, notes *string) (*models.Alert, error)
}

// AlertHandler exposes alert endpoints.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler builds a new handler.
func NewAlertHandler(service alertService) *AlertHandler {
	return &AlertHandler{service: service}
}

// List godoc
// @Summary List compliance alerts
// @Tags Alerts
// @Produce json
// @Param dashboardType query string false "Dashboard type"
// @Param entityId query string false "Entity ID"
// @Param status query string false "Alert status"
// @Param severity query string false "Alert severity"
// @Param category query string false "Alert category"
// @Param type query string false "Alert type"
// @Param dueWithinDays query int false "Only alerts due within N days"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	filter, err := alertFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	alerts, pagination, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, pagination, map[string]interface{}{"cache_hit": cacheHit})
}

// Get godoc
// @Summary Get alert by ID
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Acknowledge godoc
// @Summary Acknowledge an alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param payload body dto.AlertActionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /alerts/{id}/acknowledge [post]
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	h.action(c, h.service.Acknowledge)
}

// Resolve godoc
// @Summary Resolve an alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param payload body dto.AlertActionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	h.action(c, h.service.Resolve)
}

// Dismiss godoc
// @Summary Dismiss an alert
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param payload body dto.AlertActionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /alerts/{id}/dismiss [post]
func (h *AlertHandler) Dismiss(c *gin.Context) {
	h.action(c, h.service.Dismiss)
}

func (h *AlertHandler) action(c *gin.Context, fn func(ctx context.Context, id, userID string, notes *string) (*models.Alert, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AlertActionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid alert action payload"))
			return
		}
	}
	alert, err := fn(c.Request.Context(), c.Param("id"), claims.UserID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

func alertFilterFromQuery(c *gin.Context) (models.AlertFilter, error) {
	filter := models.AlertFilter{EntityID: c.Query("entityId")}
	if raw := c.Query("dashboardType"); raw != "" {
		value := models.DashboardType(raw)
		filter.DashboardType = &value
	}
	if raw := c.Query("status"); raw != "" {
		value := models.AlertStatus(raw)
		filter.Status = &value
	}
	if raw := c.Query("severity"); raw != "" {
		value := models.AlertSeverity(raw)
		filter.Severity = &value
	}
	if raw := c.Query("category"); raw != "" {
		value := models.AlertCategory(raw)
		filter.Category = &value
	}
	if raw := c.Query("type"); raw != "" {
		value := models.AlertType(raw)
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

func paginationFromQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return page, size
}
