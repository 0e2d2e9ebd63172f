package handler

import (
	"net/http"

	"buildfund/internal/middleware"
	"buildfund/internal/model"
	"buildfund/internal/service"
	"buildfund/pkg/pagination"
	"buildfund/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs", middleware.RequireRole(model.RoleAdmin), h.GetAuditLogs)
}

// GetAuditLogs handles GET /audit-logs
// @Summary      List audit logs
// @Description  Retrieves a paginated list of audit log entries, newest first
// @Tags         audit
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch audit logs"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":       logs,
		"pagination": pagination.NewMeta(p, total),
	}))
}
