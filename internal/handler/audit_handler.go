package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/placetrack/compliance-api/internal/models"
	"github.com/placetrack/compliance-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error)
}

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler builds a new handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @Summary List audit log entries
// @Tags Audit
// @Produce json
// @Param entityType query string false "Entity type (ALERT or SCHEDULED_TASK)"
// @Param entityId query string false "Entity ID"
// @Param action query string false "Audit action"
// @Param userId query string false "Acting user ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		Action:     c.Query("action"),
		UserID:     c.Query("userId"),
	}
	filter.Page, filter.PageSize = paginationFromQuery(c)

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
