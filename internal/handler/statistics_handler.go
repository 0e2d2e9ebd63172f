package handler

import (
	"net/http"
	"strconv"

	"buildfund/internal/middleware"
	"buildfund/internal/model"
	"buildfund/internal/service"
	"buildfund/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statsService service.StatisticsService
}

func NewStatisticsHandler(statsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statsService: statsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/statistics/pipeline", middleware.RequireRole(model.RoleLender, model.RoleAdmin), h.GetPipeline)
}

// GetPipeline handles GET /statistics/pipeline
// @Summary      Pipeline statistics
// @Description  Aggregates application counts and proposed loan totals, with a lender ranking for the requested status
// @Tags         statistics
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status to rank lenders by (default PENDING)"
// @Param        limit   query     int     false  "Ranking size (default 10, max 50)"
// @Success      200     {object}  response.Response{data=service.PipelineSummary}
// @Failure      500     {object}  response.Response
// @Router       /statistics/pipeline [get]
func (h *StatisticsHandler) GetPipeline(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	summary, err := h.statsService.GetPipelineSummary(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to compute statistics"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
