package handler

import (
	"net/http"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type ConfigurationHandler struct {
	configurationService service.ConfigurationService
}

func NewConfigurationHandler(configurationService service.ConfigurationService) *ConfigurationHandler {
	return &ConfigurationHandler{configurationService: configurationService}
}

func (h *ConfigurationHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/configurations")
	{
		group.POST("", h.SaveConfiguration)
		group.GET("/:id", h.GetConfiguration)
	}
}

// SaveConfiguration stores a configurator build for later
// @Summary      Save configuration
// @Description  Prices and stores a configuration so the customer can come back to it
// @Tags         configurator
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveConfigurationRequest  true  "Configuration"
// @Success      201      {object}  response.Response{data=service.ConfigurationResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/configurations [post]
func (h *ConfigurationHandler) SaveConfiguration(c *gin.Context) {
	var req service.SaveConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cfg, err := h.configurationService.SaveConfiguration(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cfg))
}

// GetConfiguration loads a saved configuration at current prices
// @Summary      Get configuration
// @Description  Returns a saved configuration repriced against the current catalog. Stale is set when it no longer validates.
// @Tags         configurator
// @Produce      json
// @Param        id   path      string  true  "Configuration ID"
// @Success      200  {object}  response.Response{data=service.ConfigurationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/configurations/{id} [get]
func (h *ConfigurationHandler) GetConfiguration(c *gin.Context) {
	cfg, err := h.configurationService.GetConfiguration(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cfg))
}
