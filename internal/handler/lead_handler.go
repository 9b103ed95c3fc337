package handler

import (
	"net/http"
	"strconv"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/middleware"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/pagination"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type LeadHandler struct {
	leadService service.LeadService
}

func NewLeadHandler(leadService service.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

func (h *LeadHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Lead capture is public; everything else is back office.
	router.POST("/api/leads", h.CreateLead)

	leads := router.Group("/api/leads")
	leads.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleSales))
	{
		leads.GET("", h.ListLeads)
		leads.GET("/:id", h.GetLead)
		leads.POST("/:id/transition", h.Transition)
		leads.POST("/:id/reopen", h.Reopen)
		leads.PUT("/:id/configuration", h.UpdateConfiguration)
		leads.GET("/:id/activities", h.ListActivities)
		leads.POST("/:id/notes", h.AddNote)
		leads.GET("/:id/quote.pdf", h.DownloadQuote)
		leads.POST("/:id/automations/resume", middleware.RequireRole(middleware.RoleAdmin), h.ResumeAutomations)
	}
}

// CreateLead captures an enquiry
// @Summary      Create lead
// @Description  Captures a contact form or configurator enquiry. Any configuration is repriced on the server.
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLeadRequest  true  "Lead"
// @Success      201      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req service.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lead, err := h.leadService.CreateLead(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, lead))
}

// ListLeads returns the pipeline board
// @Summary      List leads
// @Description  Retrieves a paginated list of leads, optionally filtered by stage, source, search text or operator flags
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        stage            query     string  false  "Pipeline stage"
// @Param        source           query     string  false  "Lead source"
// @Param        q                query     string  false  "Search name, email or company"
// @Param        needs_attention  query     bool    false  "Only leads with audit or automation failures"
// @Param        owner_id         query     string  false  "Owner user ID"
// @Param        page             query     int     false  "Page number (default 1)"
// @Param        limit            query     int     false  "Number of items per page (default 20)"
// @Success      200              {object}  response.Response{data=object}
// @Failure      422              {object}  response.Response
// @Router       /api/leads [get]
func (h *LeadHandler) ListLeads(c *gin.Context) {
	p := pagination.Parse(c)

	filter := repository.LeadFilter{
		Stage:  c.Query("stage"),
		Source: c.Query("source"),
		Search: c.Query("q"),
	}
	filter.NeedsAttention, _ = strconv.ParseBool(c.Query("needs_attention"))
	if owner := c.Query("owner_id"); owner != "" {
		ownerID, err := uuid.Parse(owner)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid owner_id"))
			return
		}
		filter.OwnerID = &ownerID
	}

	leads, total, err := h.leadService.ListLeads(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewList(leads, total, p)))
}

// GetLead returns one lead
// @Summary      Get lead
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  response.Response{data=service.LeadResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/leads/{id} [get]
func (h *LeadHandler) GetLead(c *gin.Context) {
	lead, err := h.leadService.GetLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, lead))
}

// Transition moves a lead to another pipeline stage
// @Summary      Transition lead
// @Description  Moves a lead to a new stage, logs the change and runs matching automations. Post-commit failures come back as warnings.
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Lead ID"
// @Param        payload  body      service.TransitionRequest  true  "Target stage"
// @Success      200      {object}  response.Response{data=service.TransitionResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/leads/{id}/transition [post]
func (h *LeadHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.leadService.Transition(c.Request.Context(), c.Param("id"), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Reopen returns a closed lead to inquiry
// @Summary      Reopen lead
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  response.Response{data=service.TransitionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/leads/{id}/reopen [post]
func (h *LeadHandler) Reopen(c *gin.Context) {
	res, err := h.leadService.Reopen(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ResumeAutomations reruns the unfinished automations of the last transition
// @Summary      Resume automations
// @Description  Re-runs the automations of a committed transition that did not finish. Actions that already succeeded are skipped.
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  response.Response{data=service.TransitionResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/leads/{id}/automations/resume [post]
func (h *LeadHandler) ResumeAutomations(c *gin.Context) {
	res, err := h.leadService.ResumeAutomations(c.Request.Context(), c.Param("id"), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UpdateConfiguration replaces a lead's configuration
// @Summary      Update lead configuration
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Lead ID"
// @Param        payload  body      service.ConfigurationInput  true  "Configuration"
// @Success      200      {object}  response.Response{data=service.LeadResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/leads/{id}/configuration [put]
func (h *LeadHandler) UpdateConfiguration(c *gin.Context) {
	var req service.ConfigurationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lead, err := h.leadService.UpdateConfiguration(c.Request.Context(), c.Param("id"), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, lead))
}

// ListActivities returns a lead's activity trail
// @Summary      List lead activities
// @Tags         leads
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Lead ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /api/leads/{id}/activities [get]
func (h *LeadHandler) ListActivities(c *gin.Context) {
	p := pagination.Parse(c)

	activities, total, err := h.leadService.ListActivities(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewList(activities, total, p)))
}

// AddNote records a sales note
// @Summary      Add note
// @Tags         leads
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Lead ID"
// @Param        payload  body      service.NoteRequest  true  "Note"
// @Success      201      {object}  response.Response{data=service.ActivityResponse}
// @Router       /api/leads/{id}/notes [post]
func (h *LeadHandler) AddNote(c *gin.Context) {
	var req service.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	note, err := h.leadService.AddNote(c.Request.Context(), c.Param("id"), req, middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, note))
}

// DownloadQuote renders the lead's configuration as a PDF quote
// @Summary      Download quote
// @Description  Renders a PDF quote at current prices. Finance terms are included when deposit and term are given or the lead asked about finance.
// @Tags         leads
// @Security     BearerAuth
// @Produce      application/pdf
// @Param        id       path      string  true   "Lead ID"
// @Param        deposit  query     int     false  "Deposit percent"
// @Param        term     query     int     false  "Term in months"
// @Success      200      {file}    file
// @Failure      400      {object}  response.Response
// @Router       /api/leads/{id}/quote.pdf [get]
func (h *LeadHandler) DownloadQuote(c *gin.Context) {
	var req service.QuoteRequest
	req.DepositPercent, _ = strconv.Atoi(c.Query("deposit"))
	req.TermMonths, _ = strconv.Atoi(c.Query("term"))

	pdf, ref, err := h.leadService.RenderQuote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+ref+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
