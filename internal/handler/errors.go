package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// First match wins. Pricing errors come first so a wrapped validation error
// is never reported as a generic bad request.
var errorMappings = []errorMapping{
	{pricing.ErrUnknownModel, http.StatusBadRequest, "unknown_model"},
	{pricing.ErrUnknownOption, http.StatusBadRequest, "unknown_option"},
	{pricing.ErrOptionNotApplicable, http.StatusBadRequest, "option_not_applicable"},
	{pricing.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{pricing.ErrQuantityExceeded, http.StatusBadRequest, "quantity_exceeded"},
	{pricing.ErrMissingDependency, http.StatusBadRequest, "missing_dependency"},
	{pricing.ErrIncompatibleOptions, http.StatusBadRequest, "incompatible_options"},
	{pricing.ErrInvalidDepositPercent, http.StatusBadRequest, "invalid_deposit_percent"},
	{pricing.ErrInvalidTerm, http.StatusBadRequest, "invalid_term"},
	{pricing.ErrInvalidTotal, http.StatusBadRequest, "invalid_total"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},

	{pipeline.ErrUnknownStage, http.StatusUnprocessableEntity, "unknown_stage"},
	{pipeline.ErrUnknownAction, http.StatusUnprocessableEntity, "unknown_action"},

	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{pipeline.ErrLeadNotFound, http.StatusNotFound, "not_found"},

	{pipeline.ErrTerminalState, http.StatusConflict, "terminal_state"},
	{pipeline.ErrNotTerminal, http.StatusConflict, "not_terminal"},
	{pipeline.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{pipeline.ErrNothingToRun, http.StatusConflict, "nothing_to_run"},
	{service.ErrConfigurationLocked, http.StatusConflict, "configuration_locked"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ""
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	status, _ := classify(err)
	return status
}

func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "Internal server error"
	}
	c.JSON(status, response.CodedError(status, code, msg))
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.CodedError(http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error()))
}
