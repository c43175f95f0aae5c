package handler

import (
	"fmt"
	"net/http"

	"bakerycrm/internal/service"
	"bakerycrm/pkg/pagination"
	"bakerycrm/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns the workflow history, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Produce      json
// @Param        entityId  query     string  false  "Only entries about this order, invoice or product"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("entityId"), params.Page, params.Limit)
	if err != nil {
		respondError(c, fmt.Errorf("failed to retrieve audit logs: %w", err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Page("logs", logs, total, params.Page, params.Limit)))
}
