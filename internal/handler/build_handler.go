package handler

import (
	"net/http"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/middleware"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/pagination"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type BuildHandler struct {
	buildService service.BuildService
}

func NewBuildHandler(buildService service.BuildService) *BuildHandler {
	return &BuildHandler{buildService: buildService}
}

func (h *BuildHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/builds")
	group.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleSales, middleware.RoleProduction))
	{
		group.GET("", h.ListBuilds)
	}
}

// ListBuilds returns production builds
// @Summary      List builds
// @Description  Retrieves a paginated list of builds created from won deals, newest first
// @Tags         builds
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "Filter by build status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/builds [get]
func (h *BuildHandler) ListBuilds(c *gin.Context) {
	p := pagination.Parse(c)

	builds, total, err := h.buildService.ListBuilds(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewList(builds, total, p)))
}
