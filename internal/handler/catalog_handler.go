package handler

import (
	"net/http"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the public configurator endpoints.
type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	models := router.Group("/api/models")
	{
		models.GET("", h.ListModels)
		models.GET("/:id/options", h.ListOptions)
	}

	configurator := router.Group("/api/configurator")
	{
		configurator.POST("/price", h.Price)
		configurator.POST("/finance", h.Finance)
	}
}

// ListModels returns the horsebox range
// @Summary      List models
// @Description  Lists every horsebox model with its base price. Models without a price are contact-for-pricing.
// @Tags         configurator
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ModelResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/models [get]
func (h *CatalogHandler) ListModels(c *gin.Context) {
	models, err := h.catalogService.ListModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, models))
}

// ListOptions returns the options a model can be fitted with
// @Summary      List model options
// @Description  Lists the available options applicable to a model, in display order
// @Tags         configurator
// @Produce      json
// @Param        id   path      string  true  "Model ID"
// @Success      200  {object}  response.Response{data=[]service.OptionResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/models/{id}/options [get]
func (h *CatalogHandler) ListOptions(c *gin.Context) {
	options, err := h.catalogService.ListOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, options))
}

// Price computes a configuration price
// @Summary      Price configuration
// @Description  Validates the selected options against the model and returns the full price breakdown including VAT
// @Tags         configurator
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PriceRequest  true  "Model and selected options"
// @Success      200      {object}  response.Response{data=service.BreakdownResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/configurator/price [post]
func (h *CatalogHandler) Price(c *gin.Context) {
	var req service.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	breakdown, err := h.catalogService.Price(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, breakdown))
}

// Finance computes a finance quote
// @Summary      Finance quote
// @Description  Computes deposit, monthly payment and totals for a price at the representative APR
// @Tags         configurator
// @Accept       json
// @Produce      json
// @Param        payload  body      service.FinanceRequest  true  "Total, deposit percent and term"
// @Success      200      {object}  response.Response{data=service.FinanceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/configurator/finance [post]
func (h *CatalogHandler) Finance(c *gin.Context) {
	var req service.FinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	terms, err := h.catalogService.Finance(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, terms))
}
