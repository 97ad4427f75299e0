package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
	"github.com/placetrack/compliance-api/pkg/response"
)

type schedulerService interface {
	Run(ctx context.Context, action string) (*dto.SchedulerRunResponse, error)
	DashboardStats(ctx context.Context, dashboardType models.DashboardType) (*models.DashboardStats, error)
}

// SchedulerHandler exposes manual job triggers and dashboard aggregates.
type SchedulerHandler struct {
	service schedulerService
}

// NewSchedulerHandler builds a new handler.
func NewSchedulerHandler(service schedulerService) *SchedulerHandler {
	return &SchedulerHandler{service: service}
}

// Run godoc
// @Summary Trigger a scheduled job manually
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.SchedulerRunRequest true "Job selector"
// @Success 200 {object} response.Envelope
// @Router /scheduler/run [post]
func (h *SchedulerHandler) Run(c *gin.Context) {
	var req dto.SchedulerRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduler payload"))
		return
	}
	result, err := h.service.Run(c.Request.Context(), req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Stats godoc
// @Summary Dashboard statistics
// @Tags Scheduler
// @Produce json
// @Param dashboardType query string true "Dashboard type"
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *SchedulerHandler) Stats(c *gin.Context) {
	raw := c.Query("dashboardType")
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dashboardType is required"))
		return
	}
	stats, err := h.service.DashboardStats(c.Request.Context(), models.DashboardType(raw))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
