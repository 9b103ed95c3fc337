package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/middleware"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("handler-test-secret")

type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  role + "-user",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func newTestRouter(register ...func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret(testSecret)

	r := gin.New()
	for _, fn := range register {
		fn(r.Group(""))
	}
	return r
}

func perform(t *testing.T, r *gin.Engine, method, path string, body interface{}, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "application/pdf" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: awning", pricing.ErrOptionNotApplicable), http.StatusBadRequest},
		{pricing.ErrInvalidTerm, http.StatusBadRequest},
		{fmt.Errorf("%w: bad id", service.ErrInvalidInput), http.StatusBadRequest},
		{pipeline.ErrUnknownStage, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: lead x", service.ErrNotFound), http.StatusNotFound},
		{pipeline.ErrLeadNotFound, http.StatusNotFound},
		{pipeline.ErrTerminalState, http.StatusConflict},
		{fmt.Errorf("%w: %w", pipeline.ErrPersistence, pipeline.ErrVersionConflict), http.StatusConflict},
		{service.ErrConfigurationLocked, http.StatusConflict},
		{pipeline.ErrPersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

// --- catalog ---

type stubCatalogService struct {
	service.CatalogService
	priceErr error
	lastReq  service.PriceRequest
}

func (s *stubCatalogService) Price(_ context.Context, req service.PriceRequest) (service.BreakdownResponse, error) {
	s.lastReq = req
	if s.priceErr != nil {
		return service.BreakdownResponse{}, s.priceErr
	}
	return service.BreakdownResponse{ModelID: req.ModelID, Total: "27840.00"}, nil
}

func TestCatalogHandler_Price(t *testing.T) {
	svc := &stubCatalogService{}
	r := newTestRouter(NewCatalogHandler(svc).RegisterRoutes)

	w, env := perform(t, r, http.MethodPost, "/api/configurator/price", map[string]interface{}{
		"model_id": "professional-35",
		"options":  []catalog.Pick{{OptionID: "awning", Quantity: 1}},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
	assert.Contains(t, string(env.Data), `"total":"27840.00"`)
	assert.Equal(t, []catalog.Pick{{OptionID: "awning", Quantity: 1}}, svc.lastReq.Options)

	svc.priceErr = fmt.Errorf("%w: living-pod on professional-35", pricing.ErrOptionNotApplicable)
	w, env = perform(t, r, http.MethodPost, "/api/configurator/price", map[string]string{"model_id": "professional-35"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "living-pod")
	assert.Equal(t, "option_not_applicable", env.Code)

	w, env = perform(t, r, http.MethodPost, "/api/configurator/price", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_payload", env.Code)
}

// --- leads ---

type stubLeadService struct {
	service.LeadService
	transitionErr error
	actor         string
}

func (s *stubLeadService) CreateLead(_ context.Context, req service.CreateLeadRequest) (service.LeadResponse, error) {
	return service.LeadResponse{ID: "lead-1", FirstName: req.FirstName, Stage: "inquiry"}, nil
}

func (s *stubLeadService) ListLeads(context.Context, repository.LeadFilter, int, int) ([]service.LeadResponse, int64, error) {
	return []service.LeadResponse{{ID: "lead-1"}}, 1, nil
}

func (s *stubLeadService) Transition(_ context.Context, _ string, req service.TransitionRequest, actor string) (service.TransitionResponse, error) {
	s.actor = actor
	if s.transitionErr != nil {
		return service.TransitionResponse{}, s.transitionErr
	}
	return service.TransitionResponse{PreviousStage: "negotiation", NewStage: req.Stage}, nil
}

func (s *stubLeadService) RenderQuote(context.Context, string, service.QuoteRequest) ([]byte, string, error) {
	return []byte("%PDF-1.3 test"), "Q-42", nil
}

func TestLeadHandler_PublicCapture(t *testing.T) {
	r := newTestRouter(NewLeadHandler(&stubLeadService{}).RegisterRoutes)

	w, env := perform(t, r, http.MethodPost, "/api/leads", map[string]string{
		"first_name": "Amelia",
		"email":      "amelia@example.com",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(env.Data), `"first_name":"Amelia"`)

	w, _ = perform(t, r, http.MethodPost, "/api/leads", map[string]string{"first_name": "Amelia", "email": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadHandler_BackOfficeNeedsRole(t *testing.T) {
	r := newTestRouter(NewLeadHandler(&stubLeadService{}).RegisterRoutes)

	w, _ := perform(t, r, http.MethodGet, "/api/leads", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = perform(t, r, http.MethodGet, "/api/leads", nil, token(t, middleware.RoleProduction))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := perform(t, r, http.MethodGet, "/api/leads?page=2&limit=5", nil, token(t, middleware.RoleSales))
	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.EqualValues(t, 1, data["total"])
	assert.EqualValues(t, 2, data["page"])
	assert.EqualValues(t, 5, data["limit"])
	assert.EqualValues(t, 1, data["total_pages"])
	assert.Len(t, data["items"], 1)

	w, _ = perform(t, r, http.MethodPost, "/api/leads/lead-1/automations/resume", nil, token(t, middleware.RoleSales))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLeadHandler_Transition(t *testing.T) {
	svc := &stubLeadService{}
	r := newTestRouter(NewLeadHandler(svc).RegisterRoutes)

	w, env := perform(t, r, http.MethodPost, "/api/leads/lead-1/transition", map[string]string{"stage": "closed_won"}, token(t, middleware.RoleSales))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"new_stage":"closed_won"`)
	assert.Equal(t, "sales-user", svc.actor)

	svc.transitionErr = pipeline.ErrTerminalState
	w, env = perform(t, r, http.MethodPost, "/api/leads/lead-1/transition", map[string]string{"stage": "inquiry"}, token(t, middleware.RoleSales))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, pipeline.ErrTerminalState.Error(), env.Error)
	assert.Equal(t, "terminal_state", env.Code)

	svc.transitionErr = fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, "archived")
	w, _ = perform(t, r, http.MethodPost, "/api/leads/lead-1/transition", map[string]string{"stage": "archived"}, token(t, middleware.RoleSales))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	svc.transitionErr = fmt.Errorf("%w: connection reset", pipeline.ErrPersistence)
	w, env = perform(t, r, http.MethodPost, "/api/leads/lead-1/transition", map[string]string{"stage": "qualification"}, token(t, middleware.RoleSales))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, env.Error, "connection reset")
	assert.Empty(t, env.Code)
}

func TestLeadHandler_DownloadQuote(t *testing.T) {
	r := newTestRouter(NewLeadHandler(&stubLeadService{}).RegisterRoutes)

	w, _ := perform(t, r, http.MethodGet, "/api/leads/lead-1/quote.pdf?deposit=20&term=48", nil, token(t, middleware.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Q-42.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

// --- pricing options ---

type stubOptionService struct {
	service.OptionService
}

func (s *stubOptionService) DeleteOption(_ context.Context, id string, _ string) (service.DeleteOptionResponse, error) {
	if id == "missing" {
		return service.DeleteOptionResponse{}, fmt.Errorf("%w: option missing", service.ErrNotFound)
	}
	return service.DeleteOptionResponse{ID: id, Disabled: true, Reason: service.ErrOptionReferenced.Error()}, nil
}

func TestOptionHandler_Delete(t *testing.T) {
	r := newTestRouter(NewOptionHandler(&stubOptionService{}).RegisterRoutes)

	w, env := perform(t, r, http.MethodDelete, "/api/pricing-options/reversing-camera", nil, token(t, middleware.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"disabled":true`)

	w, _ = perform(t, r, http.MethodDelete, "/api/pricing-options/missing", nil, token(t, middleware.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = perform(t, r, http.MethodDelete, "/api/pricing-options/reversing-camera", nil, token(t, middleware.RoleSales))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// --- statistics ---

type stubStatisticsService struct {
	start, end time.Time
}

func (s *stubStatisticsService) GetStatistics(_ context.Context, start, end time.Time) (service.PipelineStatisticsResponse, error) {
	s.start, s.end = start, end
	return service.PipelineStatisticsResponse{WinRate: "0.5000"}, nil
}

func TestStatisticsHandler_DateRange(t *testing.T) {
	svc := &stubStatisticsService{}
	h := NewStatisticsHandler(svc)
	h.now = func() time.Time { return time.Date(2026, 5, 17, 9, 30, 0, 0, time.UTC) }
	r := newTestRouter(h.RegisterRoutes)

	w, _ := perform(t, r, http.MethodGet, "/api/statistics/pipeline", nil, token(t, middleware.RoleSales))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), svc.start)
	assert.Equal(t, h.now(), svc.end)

	w, _ = perform(t, r, http.MethodGet, "/api/statistics/pipeline?start_date=2026-01-01T00:00:00Z&end_date=2026-02-01T00:00:00Z", nil, token(t, middleware.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2026, svc.start.Year())
	assert.Equal(t, time.February, svc.end.Month())

	w, env := perform(t, r, http.MethodGet, "/api/statistics/pipeline?start_date=yesterday", nil, token(t, middleware.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error, "start_date")

	w, _ = perform(t, r, http.MethodGet, "/api/statistics/pipeline", nil, token(t, middleware.RoleProduction))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
