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

type ProjectHandler struct {
	projectService service.ProjectService
}

func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) RegisterRoutes(router *gin.RouterGroup) {
	projects := router.Group("/projects")
	{
		projects.POST("", middleware.RequireRole(model.RoleBorrower), h.CreateProject)
		projects.GET("", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.ListProjects)
		projects.GET("/:id", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.GetProject)
		projects.PATCH("/:id/status", middleware.RequireRole(model.RoleBorrower), h.UpdateProjectStatus)
	}
}

// CreateProject handles POST /projects
// @Summary      Create project
// @Description  Creates a development project owned by the authenticated borrower
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProjectRequest  true  "Project Payload"
// @Success      201      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// ListProjects handles GET /projects
// @Summary      List projects
// @Description  Lists projects, scoped to the caller's own projects when mine=true
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        mine   query     bool  false  "Only the caller's projects"
// @Param        page   query     int   false  "Page number"
// @Param        limit  query     int   false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Router       /projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	p := pagination.Parse(c)

	borrowerUserID := ""
	if c.Query("mine") == "true" {
		borrowerUserID = c.GetString("userID")
	}

	projects, total, err := h.projectService.List(c.Request.Context(), borrowerUserID, p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"projects":   projects,
		"pagination": pagination.NewMeta(p, total),
	}))
}

// GetProject handles GET /projects/:id
// @Summary      Get project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=service.ProjectResponse}
// @Failure      404  {object}  response.Response
// @Router       /projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// UpdateProjectStatus handles PATCH /projects/:id/status
// @Summary      Update project status
// @Description  Moves a project through its lifecycle (DRAFT, PUBLISHED, FUNDED, ARCHIVED)
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                              true  "Project ID"
// @Param        payload  body      service.UpdateProjectStatusRequest  true  "Status Payload"
// @Success      200      {object}  response.Response{data=service.ProjectResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /projects/{id}/status [patch]
func (h *ProjectHandler) UpdateProjectStatus(c *gin.Context) {
	var req service.UpdateProjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	project, err := h.projectService.UpdateStatus(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}
