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

type DealHandler struct {
	dealService service.DealService
}

func NewDealHandler(dealService service.DealService) *DealHandler {
	return &DealHandler{dealService: dealService}
}

func (h *DealHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/applications/:id/accept", middleware.RequireRole(model.RoleLender), h.AcceptApplication)

	deals := router.Group("/deals")
	{
		deals.GET("", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.ListDeals)
		deals.GET("/:id", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleConsultant, model.RoleAdmin), h.GetDeal)
	}

	router.POST("/provider-enquiries/:id/respond",
		middleware.RequireRole(model.RoleConsultant, model.RoleAdmin), h.RespondEnquiry)
}

// AcceptApplication handles POST /applications/:id/accept
// @Summary      Accept application
// @Description  Accepts an application, deriving a deal with a unique reference code and fanning out quote enquiries to active consultant firms
// @Tags         deals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true   "Application ID"
// @Param        payload  body      object  false  "Optional feedback"
// @Success      201      {object}  response.Response{data=service.DealResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /applications/{id}/accept [post]
func (h *DealHandler) AcceptApplication(c *gin.Context) {
	var req struct {
		Feedback string `json:"feedback"`
	}
	// Body is optional
	_ = c.ShouldBindJSON(&req)

	deal, err := h.dealService.AcceptApplication(c.Request.Context(), c.Param("id"), c.GetString("userID"), req.Feedback)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, deal))
}

// ListDeals handles GET /deals
// @Summary      List deals
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Router       /deals [get]
func (h *DealHandler) ListDeals(c *gin.Context) {
	p := pagination.Parse(c)

	deals, total, err := h.dealService.List(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"deals":      deals,
		"pagination": pagination.NewMeta(p, total),
	}))
}

// GetDeal handles GET /deals/:id
// @Summary      Get deal
// @Description  Fetch a deal with its provider enquiries
// @Tags         deals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Deal ID"
// @Success      200  {object}  response.Response{data=service.DealResponse}
// @Failure      404  {object}  response.Response
// @Router       /deals/{id} [get]
func (h *DealHandler) GetDeal(c *gin.Context) {
	deal, err := h.dealService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, deal))
}

// RespondEnquiry handles POST /provider-enquiries/:id/respond
// @Summary      Respond to provider enquiry
// @Description  Records a consultant firm's quote, engagement or declination on an enquiry
// @Tags         deals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Enquiry ID"
// @Param        payload  body      service.RespondEnquiryRequest  true  "Response Payload"
// @Success      200      {object}  response.Response{data=service.ProviderEnquiryResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /provider-enquiries/{id}/respond [post]
func (h *DealHandler) RespondEnquiry(c *gin.Context) {
	var req service.RespondEnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	enquiry, err := h.dealService.RespondEnquiry(c.Request.Context(), c.Param("id"), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, enquiry))
}
