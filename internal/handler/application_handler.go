package handler

import (
	"net/http"

	"buildfund/internal/middleware"
	"buildfund/internal/model"
	"buildfund/internal/repository"
	"buildfund/internal/service"
	"buildfund/pkg/pagination"
	"buildfund/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	applicationService service.ApplicationService
}

func NewApplicationHandler(applicationService service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

func (h *ApplicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	applications := router.Group("/applications")
	{
		applications.POST("", middleware.RequireRole(model.RoleBorrower, model.RoleLender), h.CreateApplication)
		applications.GET("", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.ListApplications)
		applications.GET("/:id", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.GetApplication)
		applications.PATCH("/:id/status", middleware.RequireRole(model.RoleBorrower, model.RoleLender), h.UpdateApplicationStatus)
	}
}

// CreateApplication handles POST /applications
// @Summary      Create application
// @Description  Creates an application or enquiry linking a project to a lender's product. The lender of record is derived from the caller's role: borrowers target the product's lender, lenders apply on their own behalf.
// @Tags         applications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateApplicationRequest  true  "Application Payload"
// @Success      201      {object}  response.Response{data=service.ApplicationResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /applications [post]
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	var req service.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	application, err := h.applicationService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, application))
}

// ListApplications handles GET /applications
// @Summary      List applications
// @Description  Lists applications filtered by project, lender, status or initiator
// @Tags         applications
// @Produce      json
// @Security     BearerAuth
// @Param        project_id    query     string  false  "Filter by project"
// @Param        lender_id     query     string  false  "Filter by lender"
// @Param        status        query     string  false  "Filter by status"
// @Param        initiated_by  query     string  false  "Filter by initiator (borrower or lender)"
// @Param        page          query     int     false  "Page number"
// @Param        limit         query     int     false  "Items per page"
// @Success      200           {object}  response.Response{data=object}
// @Router       /applications [get]
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	p := pagination.Parse(c)

	filter := repository.ApplicationFilter{
		ProjectID:   c.Query("project_id"),
		LenderID:    c.Query("lender_id"),
		Status:      c.Query("status"),
		InitiatedBy: c.Query("initiated_by"),
		Page:        p.Page,
		Limit:       p.Limit,
	}

	applications, total, err := h.applicationService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"applications": applications,
		"pagination":   pagination.NewMeta(p, total),
	}))
}

// GetApplication handles GET /applications/:id
// @Summary      Get application
// @Description  Fetch an application with its project, lender, product and deal linkage
// @Tags         applications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=service.ApplicationResponse}
// @Failure      404  {object}  response.Response
// @Router       /applications/{id} [get]
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	application, err := h.applicationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, application))
}

// UpdateApplicationStatus handles PATCH /applications/:id/status
// @Summary      Update application status
// @Description  Moves an application to UNDER_REVIEW, DECLINED or WITHDRAWN. Acceptance is a separate operation that derives a deal.
// @Tags         applications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                  true  "Application ID"
// @Param        payload  body      service.UpdateApplicationStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.ApplicationResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /applications/{id}/status [patch]
func (h *ApplicationHandler) UpdateApplicationStatus(c *gin.Context) {
	var req service.UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	application, err := h.applicationService.UpdateStatus(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, application))
}
