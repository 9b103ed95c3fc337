package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/quote"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Finance defaults printed on quotes for leads that asked about finance.
const (
	quoteDepositPercent = 10
	quoteTermMonths     = 60
)

// --- DTOs ---

type ConfigurationInput struct {
	ModelID   string         `json:"model_id" binding:"required"`
	Options   []catalog.Pick `json:"options"`
	ViewAngle string         `json:"view_angle"`
}

type CreateLeadRequest struct {
	FirstName        string              `json:"first_name" binding:"required,max=100"`
	LastName         string              `json:"last_name" binding:"max=100"`
	Email            string              `json:"email" binding:"required,email"`
	Phone            string              `json:"phone" binding:"max=50"`
	Postcode         string              `json:"postcode" binding:"max=20"`
	Company          string              `json:"company" binding:"max=255"`
	Message          string              `json:"message"`
	Source           string              `json:"source" binding:"omitempty,oneof=configurator contact_form brochure manual"`
	FinanceInterest  bool                `json:"finance_interest"`
	MarketingConsent bool                `json:"marketing_consent"`
	Configuration    *ConfigurationInput `json:"configuration"`
}

type TransitionRequest struct {
	Stage string `json:"stage" binding:"required"`
}

type NoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type QuoteRequest struct {
	DepositPercent int
	TermMonths     int
}

type LeadResponse struct {
	ID                   string          `json:"id"`
	FirstName            string          `json:"first_name"`
	LastName             string          `json:"last_name"`
	Email                string          `json:"email"`
	Phone                string          `json:"phone"`
	Postcode             string          `json:"postcode"`
	Company              string          `json:"company"`
	Source               string          `json:"source"`
	Message              string          `json:"message,omitempty"`
	Stage                string          `json:"stage"`
	Score                int             `json:"score"`
	FinanceInterest      bool            `json:"finance_interest"`
	MarketingConsent     bool            `json:"marketing_consent"`
	ConfigurationLocked  bool            `json:"configuration_locked"`
	ConfiguratorSnapshot json.RawMessage `json:"configurator_snapshot,omitempty"`
	AuditIncomplete      bool            `json:"audit_incomplete"`
	AutomationFailed     bool            `json:"automation_failed"`
	PendingTransition    bool            `json:"pending_transition"`
	Version              int             `json:"version"`
	LastTransitionAt     *string         `json:"last_transition_at"`
	CreatedAt            string          `json:"created_at"`
	UpdatedAt            string          `json:"updated_at"`
}

type ActivityResponse struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Actor       string                 `json:"actor"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   string                 `json:"created_at"`
}

type TransitionResponse struct {
	Lead             LeadResponse       `json:"lead"`
	PreviousStage    string             `json:"previous_stage"`
	NewStage         string             `json:"new_stage"`
	TransitionKey    string             `json:"transition_key"`
	Builds           []BuildResponse    `json:"builds"`
	Warnings         []pipeline.Warning `json:"warnings"`
	AuditIncomplete  bool               `json:"audit_incomplete"`
	AutomationFailed bool               `json:"automation_failed"`
	Unchanged        bool               `json:"unchanged,omitempty"`
	Resumed          []string           `json:"resumed,omitempty"`
}

// configurationSnapshot is stored on the lead. model_id is read back by the
// create_build automation.
type configurationSnapshot struct {
	ModelID   string            `json:"model_id"`
	Options   []catalog.Pick    `json:"options"`
	ViewAngle string            `json:"view_angle,omitempty"`
	Breakdown BreakdownResponse `json:"breakdown"`
	PricedAt  time.Time         `json:"priced_at"`
}

// --- Interfaces ---

// StageMachine is the part of *pipeline.Machine the lead service drives.
type StageMachine interface {
	Transition(ctx context.Context, leadID uuid.UUID, toStage, actor string) (pipeline.Result, error)
	Reopen(ctx context.Context, leadID uuid.UUID, actor string) (pipeline.Result, error)
	ResumeAutomations(ctx context.Context, leadID uuid.UUID, actor string) (pipeline.Result, error)
}

// QuoteRenderer produces quote PDFs.
type QuoteRenderer interface {
	Render(data quote.Data) ([]byte, error)
	NextReference() string
}

type LeadService interface {
	CreateLead(ctx context.Context, req CreateLeadRequest) (LeadResponse, error)
	GetLead(ctx context.Context, id string) (LeadResponse, error)
	ListLeads(ctx context.Context, filter repository.LeadFilter, page, limit int) ([]LeadResponse, int64, error)
	Transition(ctx context.Context, id string, req TransitionRequest, actor string) (TransitionResponse, error)
	Reopen(ctx context.Context, id string, actor string) (TransitionResponse, error)
	ResumeAutomations(ctx context.Context, id string, actor string) (TransitionResponse, error)
	UpdateConfiguration(ctx context.Context, id string, req ConfigurationInput, actor string) (LeadResponse, error)
	AddNote(ctx context.Context, id string, req NoteRequest, actor string) (ActivityResponse, error)
	ListActivities(ctx context.Context, id string, page, limit int) ([]ActivityResponse, int64, error)
	// RenderQuote returns the quote PDF and its reference.
	RenderQuote(ctx context.Context, id string, req QuoteRequest) ([]byte, string, error)
}

type leadService struct {
	leads      repository.LeadRepository
	activities repository.ActivityRepository
	audit      repository.AuditRepository
	catalog    CatalogService
	machine    StageMachine
	notifier   pipeline.Notifier
	publisher  pipeline.Publisher
	quotes     QuoteRenderer
	tx         repository.TransactionManager
	now        func() time.Time
}

// LeadServiceDeps groups the collaborators of the lead service. Notifier,
// Publisher, Quotes and Tx are optional.
type LeadServiceDeps struct {
	Leads      repository.LeadRepository
	Activities repository.ActivityRepository
	Audit      repository.AuditRepository
	Catalog    CatalogService
	Machine    StageMachine
	Notifier   pipeline.Notifier
	Publisher  pipeline.Publisher
	Quotes     QuoteRenderer
	Tx         repository.TransactionManager
}

func NewLeadService(deps LeadServiceDeps) LeadService {
	return &leadService{
		leads:      deps.Leads,
		activities: deps.Activities,
		audit:      deps.Audit,
		catalog:    deps.Catalog,
		machine:    deps.Machine,
		notifier:   deps.Notifier,
		publisher:  deps.Publisher,
		quotes:     deps.Quotes,
		tx:         deps.Tx,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *leadService) CreateLead(ctx context.Context, req CreateLeadRequest) (LeadResponse, error) {
	lead := model.Lead{
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:            strings.TrimSpace(req.Phone),
		Postcode:         strings.ToUpper(strings.TrimSpace(req.Postcode)),
		Company:          strings.TrimSpace(req.Company),
		Message:          req.Message,
		Source:           req.Source,
		Stage:            string(pipeline.StageInquiry),
		FinanceInterest:  req.FinanceInterest,
		MarketingConsent: req.MarketingConsent,
		Version:          1,
	}
	if lead.Source == "" {
		lead.Source = model.LeadSourceContactForm
		if req.Configuration != nil {
			lead.Source = model.LeadSourceConfigurator
		}
	}

	var breakdown *pricing.Breakdown
	if req.Configuration != nil {
		snapshot, b, err := s.priceSnapshot(ctx, *req.Configuration)
		if err != nil {
			return LeadResponse{}, err
		}
		lead.ConfiguratorSnapshot = snapshot
		breakdown = &b
	}
	lead.Score = ScoreLead(signalsFor(lead, breakdown))

	if err := s.leads.Create(ctx, &lead); err != nil {
		return LeadResponse{}, fmt.Errorf("failed to create lead: %w", err)
	}

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, pipeline.EmailIntent{
			LeadID:   lead.ID,
			Template: "lead_received",
			To:       lead.Email,
			Data:     map[string]string{"first_name": lead.FirstName, "full_name": lead.FullName()},
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to queue lead confirmation email", "lead_id", lead.ID, "error", err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(pipeline.Event{
			Type:     "lead.created",
			LeadID:   lead.ID.String(),
			NewStage: lead.Stage,
			Actor:    lead.Source,
			At:       s.now().UTC(),
		})
	}

	return toLeadResponse(lead), nil
}

func (s *leadService) GetLead(ctx context.Context, id string) (LeadResponse, error) {
	lead, err := s.findLead(ctx, id)
	if err != nil {
		return LeadResponse{}, err
	}
	return toLeadResponse(*lead), nil
}

func (s *leadService) ListLeads(ctx context.Context, filter repository.LeadFilter, page, limit int) ([]LeadResponse, int64, error) {
	if filter.Stage != "" {
		if _, err := pipeline.ParseStage(filter.Stage); err != nil {
			return nil, 0, err
		}
	}

	leads, total, err := s.leads.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch leads: %w", err)
	}

	res := make([]LeadResponse, 0, len(leads))
	for _, l := range leads {
		res = append(res, toLeadResponse(l))
	}
	return res, total, nil
}

func (s *leadService) Transition(ctx context.Context, id string, req TransitionRequest, actor string) (TransitionResponse, error) {
	leadID, err := parseLeadID(id)
	if err != nil {
		return TransitionResponse{}, err
	}

	res, err := s.machine.Transition(ctx, leadID, req.Stage, actor)
	if err != nil {
		return TransitionResponse{}, err
	}
	return toTransitionResponse(res), nil
}

func (s *leadService) Reopen(ctx context.Context, id string, actor string) (TransitionResponse, error) {
	leadID, err := parseLeadID(id)
	if err != nil {
		return TransitionResponse{}, err
	}

	res, err := s.machine.Reopen(ctx, leadID, actor)
	if err != nil {
		return TransitionResponse{}, err
	}
	return toTransitionResponse(res), nil
}

func (s *leadService) ResumeAutomations(ctx context.Context, id string, actor string) (TransitionResponse, error) {
	leadID, err := parseLeadID(id)
	if err != nil {
		return TransitionResponse{}, err
	}

	res, err := s.machine.ResumeAutomations(ctx, leadID, actor)
	if err != nil {
		return TransitionResponse{}, err
	}

	writeAuditLog(ctx, s.audit, actor, model.ActionResumeAutomations, leadID.String(), res.Lead.FullName(), map[string]interface{}{
		"transition_key":    res.TransitionKey,
		"automation_failed": res.AutomationFailed,
		"warnings":          len(res.Warnings),
	})

	return toTransitionResponse(res), nil
}

func (s *leadService) UpdateConfiguration(ctx context.Context, id string, req ConfigurationInput, actor string) (LeadResponse, error) {
	lead, err := s.findLead(ctx, id)
	if err != nil {
		return LeadResponse{}, err
	}
	if lead.ConfigurationLocked {
		return LeadResponse{}, ErrConfigurationLocked
	}

	snapshot, breakdown, err := s.priceSnapshot(ctx, req)
	if err != nil {
		return LeadResponse{}, err
	}

	score := ScoreLead(signalsFor(*lead, &breakdown))
	err = s.inTx(ctx, func(txCtx context.Context) error {
		if err := s.leads.UpdateConfiguration(txCtx, lead.ID, snapshot); err != nil {
			return err
		}
		if err := s.leads.UpdateScore(txCtx, lead.ID, score); err != nil {
			return err
		}
		if s.publisher != nil {
			event := pipeline.Event{
				Type:     "lead.configuration_updated",
				LeadID:   lead.ID.String(),
				NewStage: lead.Stage,
				Actor:    actor,
				At:       s.now().UTC(),
			}
			repository.AfterCommit(txCtx, func() { s.publisher.Publish(event) })
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeadResponse{}, fmt.Errorf("%w: lead %s", ErrNotFound, id)
		}
		if errors.Is(err, ErrConfigurationLocked) {
			return LeadResponse{}, err
		}
		return LeadResponse{}, fmt.Errorf("failed to update configuration: %w", err)
	}
	lead.ConfiguratorSnapshot = snapshot
	lead.Score = score

	writeAuditLog(ctx, s.audit, actor, model.ActionUpdateLeadConfiguration, lead.ID.String(), lead.FullName(), req)

	return toLeadResponse(*lead), nil
}

func (s *leadService) AddNote(ctx context.Context, id string, req NoteRequest, actor string) (ActivityResponse, error) {
	lead, err := s.findLead(ctx, id)
	if err != nil {
		return ActivityResponse{}, err
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return ActivityResponse{}, fmt.Errorf("%w: note body is empty", ErrInvalidInput)
	}

	activity := model.DealActivity{
		LeadID:      lead.ID,
		Type:        model.ActivityNote,
		Actor:       actor,
		Description: body,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.activities.Create(ctx, &activity); err != nil {
		return ActivityResponse{}, fmt.Errorf("failed to add note: %w", err)
	}
	return toActivityResponse(activity), nil
}

func (s *leadService) ListActivities(ctx context.Context, id string, page, limit int) ([]ActivityResponse, int64, error) {
	lead, err := s.findLead(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	activities, total, err := s.activities.ListByLead(ctx, lead.ID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch activities: %w", err)
	}

	res := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		res = append(res, toActivityResponse(a))
	}
	return res, total, nil
}

func (s *leadService) RenderQuote(ctx context.Context, id string, req QuoteRequest) ([]byte, string, error) {
	if s.quotes == nil {
		return nil, "", errors.New("quote rendering is not configured")
	}

	lead, err := s.findLead(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if len(lead.ConfiguratorSnapshot) == 0 {
		return nil, "", fmt.Errorf("%w: lead has no configuration", ErrInvalidInput)
	}

	var snap configurationSnapshot
	if err := json.Unmarshal(lead.ConfiguratorSnapshot, &snap); err != nil {
		return nil, "", fmt.Errorf("failed to read configuration snapshot: %w", err)
	}

	breakdown, err := s.quoteBreakdown(ctx, lead, snap)
	if err != nil {
		return nil, "", err
	}

	data := quote.Data{
		Reference:    s.quotes.NextReference(),
		IssuedAt:     s.now(),
		CustomerName: lead.FullName(),
		Email:        lead.Email,
		Phone:        lead.Phone,
		Postcode:     lead.Postcode,
		Breakdown:    breakdown,
	}

	deposit, term := req.DepositPercent, req.TermMonths
	if deposit == 0 && term == 0 && lead.FinanceInterest {
		deposit, term = quoteDepositPercent, quoteTermMonths
	}
	if (deposit != 0 || term != 0) && !breakdown.ContactForPricing {
		_, engine, err := s.catalog.Snapshot(ctx)
		if err != nil {
			return nil, "", err
		}
		terms, err := engine.ComputeFinance(breakdown.Total, deposit, term)
		if err != nil {
			return nil, "", err
		}
		data.Finance = &terms
	}

	pdf, err := s.quotes.Render(data)
	if err != nil {
		return nil, "", err
	}
	return pdf, data.Reference, nil
}

// --- Helpers ---

// quoteBreakdown quotes a locked configuration as agreed. An unlocked one is
// repriced against the live catalog and falls back to the stored breakdown
// once the catalog no longer accepts it.
func (s *leadService) quoteBreakdown(ctx context.Context, lead *model.Lead, snap configurationSnapshot) (pricing.Breakdown, error) {
	if !lead.ConfigurationLocked {
		b, err := s.catalog.Compute(ctx, snap.ModelID, snap.Options)
		if err == nil {
			return b, nil
		}
		if !pricing.IsValidation(err) {
			return pricing.Breakdown{}, err
		}
		slog.WarnContext(ctx, "saved configuration no longer prices, quoting stored breakdown",
			"lead_id", lead.ID, "error", err)
	}

	b, err := snap.Breakdown.toBreakdown()
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("failed to read stored breakdown: %w", err)
	}
	return b, nil
}

func (s *leadService) inTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}

func (s *leadService) findLead(ctx context.Context, id string) (*model.Lead, error) {
	leadID, err := parseLeadID(id)
	if err != nil {
		return nil, err
	}

	lead, err := s.leads.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: lead %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	return lead, nil
}

// priceSnapshot prices a configuration on the server and serialises it for
// the lead. Client-side totals are never trusted.
func (s *leadService) priceSnapshot(ctx context.Context, in ConfigurationInput) (datatypes.JSON, pricing.Breakdown, error) {
	breakdown, err := s.catalog.Compute(ctx, in.ModelID, in.Options)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}

	raw, err := json.Marshal(configurationSnapshot{
		ModelID:   in.ModelID,
		Options:   in.Options,
		ViewAngle: in.ViewAngle,
		Breakdown: ToBreakdownResponse(breakdown),
		PricedAt:  s.now().UTC(),
	})
	if err != nil {
		return nil, pricing.Breakdown{}, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return datatypes.JSON(raw), breakdown, nil
}

func parseLeadID(id string) (uuid.UUID, error) {
	leadID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid lead id", ErrInvalidInput)
	}
	return leadID, nil
}

func signalsFor(lead model.Lead, breakdown *pricing.Breakdown) LeadSignals {
	signals := LeadSignals{
		Source:           lead.Source,
		HasPhone:         lead.Phone != "",
		HasPostcode:      lead.Postcode != "",
		HasCompany:       lead.Company != "",
		FinanceInterest:  lead.FinanceInterest,
		MarketingConsent: lead.MarketingConsent,
	}
	if breakdown != nil {
		signals.HasConfiguration = true
		signals.ContactForPricing = breakdown.ContactForPricing
		signals.Total = breakdown.Total
	}
	return signals
}

func toLeadResponse(l model.Lead) LeadResponse {
	res := LeadResponse{
		ID:                  l.ID.String(),
		FirstName:           l.FirstName,
		LastName:            l.LastName,
		Email:               l.Email,
		Phone:               l.Phone,
		Postcode:            l.Postcode,
		Company:             l.Company,
		Source:              l.Source,
		Message:             l.Message,
		Stage:               l.Stage,
		Score:               l.Score,
		FinanceInterest:     l.FinanceInterest,
		MarketingConsent:    l.MarketingConsent,
		ConfigurationLocked: l.ConfigurationLocked,
		AuditIncomplete:     l.AuditIncomplete,
		AutomationFailed:    l.AutomationFailed,
		PendingTransition:   l.PendingTransitionKey != "",
		Version:             l.Version,
		CreatedAt:           l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           l.UpdatedAt.Format(time.RFC3339),
	}
	if len(l.ConfiguratorSnapshot) > 0 {
		res.ConfiguratorSnapshot = json.RawMessage(l.ConfiguratorSnapshot)
	}
	if l.LastTransitionAt != nil {
		at := l.LastTransitionAt.Format(time.RFC3339)
		res.LastTransitionAt = &at
	}
	return res
}

func toActivityResponse(a model.DealActivity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID.String(),
		Type:        a.Type,
		Actor:       a.Actor,
		Description: a.Description,
		Metadata:    map[string]interface{}(a.Metadata),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
}

func toTransitionResponse(r pipeline.Result) TransitionResponse {
	res := TransitionResponse{
		PreviousStage:    string(r.PreviousStage),
		NewStage:         string(r.NewStage),
		TransitionKey:    r.TransitionKey,
		Builds:           make([]BuildResponse, 0, len(r.Builds)),
		Warnings:         r.Warnings,
		AuditIncomplete:  r.AuditIncomplete,
		AutomationFailed: r.AutomationFailed,
		Unchanged:        r.Unchanged,
		Resumed:          r.Resumed,
	}
	if res.Warnings == nil {
		res.Warnings = []pipeline.Warning{}
	}
	if r.Lead != nil {
		res.Lead = toLeadResponse(*r.Lead)
	}
	for _, b := range r.Builds {
		res.Builds = append(res.Builds, toBuildResponse(b))
	}
	return res
}
