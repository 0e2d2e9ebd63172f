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

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/products")
	{
		products.POST("", middleware.RequireRole(model.RoleLender), h.CreateProduct)
		products.GET("", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.ListProducts)
		products.GET("/:id", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.GetProduct)
		products.PATCH("/:id/active", middleware.RequireRole(model.RoleLender), h.SetProductActive)
	}
}

// CreateProduct handles POST /products
// @Summary      Create loan product
// @Description  Creates a loan product owned by the authenticated lender
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateProductRequest  true  "Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// ListProducts handles GET /products
// @Summary      List loan products
// @Description  Lists products, optionally only active ones or only the caller's
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        mine    query     bool  false  "Only the caller's products"
// @Param        active  query     bool  false  "Only active products"
// @Param        page    query     int   false  "Page number"
// @Param        limit   query     int   false  "Items per page"
// @Success      200     {object}  response.Response{data=object}
// @Router       /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)

	lenderUserID := ""
	if c.Query("mine") == "true" {
		lenderUserID = c.GetString("userID")
	}
	activeOnly := c.Query("active") == "true"

	products, total, err := h.productService.List(c.Request.Context(), lenderUserID, activeOnly, p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"products":   products,
		"pagination": pagination.NewMeta(p, total),
	}))
}

// GetProduct handles GET /products/:id
// @Summary      Get loan product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// SetProductActive handles PATCH /products/:id/active
// @Summary      Toggle product availability
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Product ID"
// @Param        payload  body      object  true  "Active Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      403      {object}  response.Response
// @Router       /products/{id}/active [patch]
func (h *ProductHandler) SetProductActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.SetActive(c.Request.Context(), c.Param("id"), c.GetString("userID"), *req.Active)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}
