package handler

import (
	"net/http"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/middleware"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type OptionHandler struct {
	optionService service.OptionService
}

func NewOptionHandler(optionService service.OptionService) *OptionHandler {
	return &OptionHandler{optionService: optionService}
}

func (h *OptionHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/pricing-options")
	group.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		group.POST("", h.CreateOption)
		group.PUT("/:id", h.UpdateOption)
		group.DELETE("/:id", h.DeleteOption)
	}
}

// CreateOption adds a pricing option
// @Summary      Create pricing option
// @Description  Adds an option; the catalog is revalidated before the write
// @Tags         pricing-options
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.OptionRequest  true  "Option"
// @Success      201      {object}  response.Response{data=service.OptionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/pricing-options [post]
func (h *OptionHandler) CreateOption(c *gin.Context) {
	var req service.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	option, err := h.optionService.CreateOption(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, option))
}

// UpdateOption replaces a pricing option
// @Summary      Update pricing option
// @Tags         pricing-options
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Option ID"
// @Param        payload  body      service.OptionRequest  true  "Option"
// @Success      200      {object}  response.Response{data=service.OptionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/pricing-options/{id} [put]
func (h *OptionHandler) UpdateOption(c *gin.Context) {
	var req service.OptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	option, err := h.optionService.UpdateOption(c.Request.Context(), c.Param("id"), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, option))
}

// DeleteOption removes or disables a pricing option
// @Summary      Delete pricing option
// @Description  Deletes an option. Options still used by saved configurations or other options are disabled instead.
// @Tags         pricing-options
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Option ID"
// @Success      200  {object}  response.Response{data=service.DeleteOptionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/pricing-options/{id} [delete]
func (h *OptionHandler) DeleteOption(c *gin.Context) {
	res, err := h.optionService.DeleteOption(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
