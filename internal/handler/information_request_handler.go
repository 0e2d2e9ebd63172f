package handler

import (
	"net/http"

	"buildfund/internal/middleware"
	"buildfund/internal/model"
	"buildfund/internal/service"
	"buildfund/pkg/response"

	"github.com/gin-gonic/gin"
)

type InformationRequestHandler struct {
	infoService service.InformationRequestService
}

func NewInformationRequestHandler(infoService service.InformationRequestService) *InformationRequestHandler {
	return &InformationRequestHandler{infoService: infoService}
}

func (h *InformationRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/applications/:id/information-requests",
		middleware.RequireRole(model.RoleLender), h.CreateInformationRequest)
	router.GET("/applications/:id/information-requests",
		middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.ListByApplication)

	requests := router.Group("/information-requests")
	{
		requests.GET("/:id", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.GetInformationRequest)
	}

	items := router.Group("/information-items")
	{
		items.POST("/:id/submit", middleware.RequireRole(model.RoleBorrower), h.SubmitItem)
		items.POST("/:id/review", middleware.RequireRole(model.RoleLender), h.ReviewItem)
	}
}

// CreateInformationRequest handles POST /applications/:id/information-requests
// @Summary      Create information request
// @Description  Creates a document checklist on an application. Only the application's lender of record may request information. Due dates and document types are parsed permissively: an unreadable value is stored as absent rather than rejecting the request.
// @Tags         information-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                                   true  "Application ID"
// @Param        payload  body      service.CreateInformationRequestRequest  true  "Checklist Payload"
// @Success      201      {object}  response.Response{data=service.InformationRequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /applications/{id}/information-requests [post]
func (h *InformationRequestHandler) CreateInformationRequest(c *gin.Context) {
	var req service.CreateInformationRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	request, err := h.infoService.CreateRequest(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, request))
}

// ListByApplication handles GET /applications/:id/information-requests
// @Summary      List information requests for an application
// @Tags         information-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  response.Response{data=[]service.InformationRequestResponse}
// @Router       /applications/{id}/information-requests [get]
func (h *InformationRequestHandler) ListByApplication(c *gin.Context) {
	requests, err := h.infoService.ListByApplication(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, requests))
}

// GetInformationRequest handles GET /information-requests/:id
// @Summary      Get information request
// @Tags         information-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Information Request ID"
// @Success      200  {object}  response.Response{data=service.InformationRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /information-requests/{id} [get]
func (h *InformationRequestHandler) GetInformationRequest(c *gin.Context) {
	request, err := h.infoService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, request))
}

// SubmitItem handles POST /information-items/:id/submit
// @Summary      Submit checklist item
// @Description  Attaches an uploaded document to a pending checklist item, moving it to SUBMITTED
// @Tags         information-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Item ID"
// @Param        payload  body      service.SubmitItemRequest  true  "Submission Payload"
// @Success      200      {object}  response.Response{data=service.InformationRequestItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /information-items/{id}/submit [post]
func (h *InformationRequestHandler) SubmitItem(c *gin.Context) {
	var req service.SubmitItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.infoService.SubmitItem(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ReviewItem handles POST /information-items/:id/review
// @Summary      Review checklist item
// @Description  Accepts or rejects a submitted item. Rejection sends the item back to PENDING for rework and increments its rework count.
// @Tags         information-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Item ID"
// @Param        payload  body      service.ReviewItemRequest  true  "Review Payload"
// @Success      200      {object}  response.Response{data=service.InformationRequestItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /information-items/{id}/review [post]
func (h *InformationRequestHandler) ReviewItem(c *gin.Context) {
	var req service.ReviewItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.infoService.ReviewItem(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
