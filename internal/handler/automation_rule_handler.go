package handler

import (
	"net/http"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/middleware"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type AutomationRuleHandler struct {
	ruleService service.AutomationRuleService
}

func NewAutomationRuleHandler(ruleService service.AutomationRuleService) *AutomationRuleHandler {
	return &AutomationRuleHandler{ruleService: ruleService}
}

func (h *AutomationRuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/automation-rules")
	group.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		group.GET("", h.ListRules)
		group.POST("", h.CreateRule)
		group.PUT("/:id", h.UpdateRule)
		group.DELETE("/:id", h.DeleteRule)
	}
}

// ListRules lists pipeline automation rules
// @Summary      List automation rules
// @Tags         automation
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.AutomationRuleResponse}
// @Router       /api/automation-rules [get]
func (h *AutomationRuleHandler) ListRules(c *gin.Context) {
	rules, err := h.ruleService.ListRules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}

// CreateRule adds an automation rule
// @Summary      Create automation rule
// @Description  Attaches actions (create_build, lock_configuration, send_email) to an exact stage pair
// @Tags         automation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AutomationRuleRequest  true  "Rule"
// @Success      201      {object}  response.Response{data=service.AutomationRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/automation-rules [post]
func (h *AutomationRuleHandler) CreateRule(c *gin.Context) {
	var req service.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule replaces an automation rule
// @Summary      Update automation rule
// @Tags         automation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Rule ID"
// @Param        payload  body      service.AutomationRuleRequest  true  "Rule"
// @Success      200      {object}  response.Response{data=service.AutomationRuleResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/automation-rules/{id} [put]
func (h *AutomationRuleHandler) UpdateRule(c *gin.Context) {
	var req service.AutomationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("id"), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule removes an automation rule
// @Summary      Delete automation rule
// @Tags         automation
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/automation-rules/{id} [delete]
func (h *AutomationRuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleService.DeleteRule(c.Request.Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Automation rule deleted"}))
}
