package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Warning kinds
const (
	WarningAudit      = "audit"
	WarningAutomation = "automation"
	WarningOutbox     = "outbox"
)

// Warning describes a failure that happened after the stage was committed.
type Warning struct {
	Kind    string `json:"kind"`
	RuleID  string `json:"rule_id,omitempty"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of an accepted transition.
type Result struct {
	Lead             *model.Lead
	PreviousStage    Stage
	NewStage         Stage
	TransitionKey    string
	Activity         *model.DealActivity
	Builds           []model.Build
	Warnings         []Warning
	AuditIncomplete  bool
	AutomationFailed bool
	// Unchanged is set when the lead was already in the requested stage.
	// Nothing is written and no automation runs.
	Unchanged bool
	// Resumed lists the transition keys a ResumeAutomations call worked on.
	Resumed []string
}

func (r *Result) absorb(step Result) {
	r.Builds = append(r.Builds, step.Builds...)
	r.Warnings = append(r.Warnings, step.Warnings...)
	r.AuditIncomplete = r.AuditIncomplete || step.AuditIncomplete
	r.AutomationFailed = r.AutomationFailed || step.AutomationFailed
	r.Resumed = append(r.Resumed, step.TransitionKey)
}

// Machine applies lead stage transitions. The stage write is the commit
// point: once it succeeds, audit and automation failures are reported as
// warnings and flags, never as errors.
type Machine struct {
	store     Store
	notifier  Notifier
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewMachine(store Store, notifier Notifier, publisher Publisher, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.With("component", "pipeline"),
		now:       time.Now,
	}
}

// Transition moves a lead to toStage. Any non-terminal stage may move to any
// other stage; leaving closed_won or closed_lost requires Reopen.
func (m *Machine) Transition(ctx context.Context, leadID uuid.UUID, toStage, actor string) (Result, error) {
	to, err := ParseStage(toStage)
	if err != nil {
		return Result{}, err
	}

	lead, err := m.getLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	from := Stage(lead.Stage)
	if from.IsTerminal() {
		return Result{}, fmt.Errorf("%w: %s", ErrTerminalState, from)
	}
	if from == to {
		m.logger.Debug("lead already in requested stage", "lead_id", lead.ID, "stage", to, "actor", actor)
		return Result{Lead: lead, PreviousStage: from, NewStage: to, Unchanged: true}, nil
	}

	return m.apply(ctx, lead, from, to, actor, false)
}

// Reopen is the explicit way out of a terminal stage, back to inquiry.
func (m *Machine) Reopen(ctx context.Context, leadID uuid.UUID, actor string) (Result, error) {
	lead, err := m.getLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	from := Stage(lead.Stage)
	if !from.IsTerminal() {
		return Result{}, fmt.Errorf("%w: lead is %s", ErrNotTerminal, from)
	}

	return m.apply(ctx, lead, from, StageInquiry, actor, true)
}

// ResumeAutomations works through the lead's unresolved transitions oldest
// first, plus a pending marker that never completed. Each one gets its
// stage_change entry re-recorded and its automations re-run; actions that
// already succeeded are skipped. Transitions that come out clean are
// resolved and the lead's flags are recomputed from what is left.
func (m *Machine) ResumeAutomations(ctx context.Context, leadID uuid.UUID, actor string) (Result, error) {
	lead, err := m.getLead(ctx, leadID)
	if err != nil {
		return Result{}, err
	}

	entries, err := m.store.ListUnresolvedTransitions(ctx, lead.ID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: list unresolved transitions: %w", ErrPersistence, err)
	}
	if marker, ok := inFlight(lead); ok && !containsTransition(entries, marker.TransitionKey) {
		entries = append(entries, marker)
	}
	if len(entries) == 0 {
		return Result{}, ErrNothingToRun
	}

	steps := make([]Result, 0, len(entries))
	for _, e := range entries {
		from, err := ParseStage(e.FromStage)
		if err != nil {
			return Result{}, fmt.Errorf("unresolved transition %s: %w", e.TransitionKey, err)
		}
		to, err := ParseStage(e.ToStage)
		if err != nil {
			return Result{}, fmt.Errorf("unresolved transition %s: %w", e.TransitionKey, err)
		}
		steps = append(steps, Result{Lead: lead, PreviousStage: from, NewStage: to, TransitionKey: e.TransitionKey})
	}

	res := Result{
		Lead:          lead,
		PreviousStage: steps[0].PreviousStage,
		NewStage:      steps[0].NewStage,
		TransitionKey: steps[0].TransitionKey,
	}
	clearMarker := ""
	for i := range steps {
		step := &steps[i]
		// Only a transition out of a terminal stage can have been a reopen.
		activity := m.recordStageChange(ctx, step, lead, step.PreviousStage, step.NewStage, actor, step.PreviousStage.IsTerminal())
		m.runAutomations(ctx, step, lead, step.PreviousStage, step.NewStage, actor)
		if m.settle(ctx, step, lead, true) && step.TransitionKey == lead.PendingTransitionKey {
			clearMarker = step.TransitionKey
		}
		if i == 0 {
			res.Activity = activity
		}
		res.absorb(*step)
	}

	auditIncomplete, automationFailed, err := m.unresolvedFlags(ctx, lead.ID)
	if err != nil {
		m.logger.Warn("failed to recompute lead flags", "lead_id", lead.ID, "error", err)
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningOutbox,
			Message: fmt.Errorf("%w: list unresolved transitions: %w", ErrPersistence, err).Error(),
		})
		auditIncomplete = lead.AuditIncomplete || res.AuditIncomplete
		automationFailed = lead.AutomationFailed || res.AutomationFailed
	}
	m.finish(ctx, &res, lead, actor, clearMarker, auditIncomplete, automationFailed, "lead.automations_resumed")

	return res, nil
}

// inFlight returns the lead's pending marker as an outbox entry. Its outcome
// is unknown, so both the audit entry and the automations need a retry.
func inFlight(lead *model.Lead) (model.UnresolvedTransition, bool) {
	if lead.PendingTransitionKey == "" {
		return model.UnresolvedTransition{}, false
	}
	return model.UnresolvedTransition{
		TransitionKey:    lead.PendingTransitionKey,
		LeadID:           lead.ID,
		FromStage:        lead.PendingFromStage,
		ToStage:          lead.PendingToStage,
		AuditIncomplete:  true,
		AutomationFailed: true,
	}, true
}

func containsTransition(entries []model.UnresolvedTransition, key string) bool {
	for _, e := range entries {
		if e.TransitionKey == key {
			return true
		}
	}
	return false
}

func (m *Machine) getLead(ctx context.Context, leadID uuid.UUID) (*model.Lead, error) {
	lead, err := m.store.GetLead(ctx, leadID)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load lead: %w", ErrPersistence, err)
	}
	return lead, nil
}

func (m *Machine) apply(ctx context.Context, lead *model.Lead, from, to Stage, actor string, reopen bool) (Result, error) {
	at := m.now().UTC()
	key := TransitionKey(lead.ID, lead.Version, from, to)

	// The stage write replaces the marker, so an unfinished transition is
	// parked in the outbox first.
	parked := false
	if marker, ok := inFlight(lead); ok {
		if err := m.store.SaveUnresolvedTransition(ctx, &marker); err != nil {
			return Result{}, fmt.Errorf("%w: park transition %s: %w", ErrPersistence, marker.TransitionKey, err)
		}
		m.logger.Warn("parked unfinished transition",
			"lead_id", lead.ID, "transition_key", marker.TransitionKey)
		parked = true
	}

	update := StageUpdate{
		LeadID:          lead.ID,
		From:            from,
		To:              to,
		ExpectedVersion: lead.Version,
		TransitionKey:   key,
		At:              at,
	}
	if err := m.store.UpdateLeadStage(ctx, update); err != nil {
		return Result{}, fmt.Errorf("%w: update stage: %w", ErrPersistence, err)
	}

	lead.Stage = string(to)
	lead.Version++
	lead.UpdatedAt = at
	lead.LastTransitionAt = &at
	lead.PendingTransitionKey = key
	lead.PendingFromStage = string(from)
	lead.PendingToStage = string(to)

	m.logger.Info("lead stage changed",
		"lead_id", lead.ID, "from", from, "to", to, "actor", actor, "reopen", reopen)

	res := Result{
		Lead:          lead,
		PreviousStage: from,
		NewStage:      to,
		TransitionKey: key,
	}
	res.Activity = m.recordStageChange(ctx, &res, lead, from, to, actor, reopen)
	m.runAutomations(ctx, &res, lead, from, to, actor)

	clearMarker := ""
	if m.settle(ctx, &res, lead, false) {
		clearMarker = key
	}
	// Nothing is resolved here, so the flags only grow.
	m.finish(ctx, &res, lead, actor, clearMarker,
		lead.AuditIncomplete || parked || res.AuditIncomplete,
		lead.AutomationFailed || parked || res.AutomationFailed,
		"lead.stage_changed")

	return res, nil
}

func (m *Machine) recordStageChange(ctx context.Context, res *Result, lead *model.Lead, from, to Stage, actor string, reopen bool) *model.DealActivity {
	key := res.TransitionKey
	description := fmt.Sprintf("Stage changed from %s to %s", from, to)
	if reopen {
		description = fmt.Sprintf("Lead reopened from %s", from)
	}

	activity := &model.DealActivity{
		LeadID:      lead.ID,
		Type:        model.ActivityStageChange,
		Actor:       actor,
		Description: description,
		Metadata: datatypes.JSONMap{
			"previous_stage": string(from),
			"new_stage":      string(to),
			"transition_key": key,
			"reopen":         reopen,
		},
		DedupeKey: &key,
		CreatedAt: m.now().UTC(),
	}

	if err := m.store.InsertActivity(ctx, activity); err != nil {
		m.logger.Warn("stage change committed without activity record",
			"lead_id", lead.ID, "transition_key", key, "error", err)
		res.AuditIncomplete = true
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningAudit,
			Message: fmt.Errorf("%w: insert activity: %w", ErrPersistence, err).Error(),
		})
		return nil
	}
	return activity
}

// settle records a transition's outcome in the outbox. A failed transition
// is parked with its flags; a clean one that came from the outbox is
// resolved. It reports whether the outcome was persisted.
func (m *Machine) settle(ctx context.Context, res *Result, lead *model.Lead, fromOutbox bool) bool {
	var err error
	switch {
	case res.AuditIncomplete || res.AutomationFailed:
		err = m.store.SaveUnresolvedTransition(ctx, &model.UnresolvedTransition{
			TransitionKey:    res.TransitionKey,
			LeadID:           lead.ID,
			FromStage:        string(res.PreviousStage),
			ToStage:          string(res.NewStage),
			AuditIncomplete:  res.AuditIncomplete,
			AutomationFailed: res.AutomationFailed,
		})
	case fromOutbox:
		err = m.store.ResolveTransition(ctx, res.TransitionKey)
	}
	if err != nil {
		m.logger.Warn("failed to record transition outcome",
			"lead_id", lead.ID, "transition_key", res.TransitionKey, "error", err)
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningOutbox,
			Message: fmt.Errorf("%w: record outcome: %w", ErrPersistence, err).Error(),
		})
		return false
	}
	return true
}

func (m *Machine) unresolvedFlags(ctx context.Context, leadID uuid.UUID) (auditIncomplete, automationFailed bool, err error) {
	entries, err := m.store.ListUnresolvedTransitions(ctx, leadID)
	if err != nil {
		return false, false, err
	}
	for _, e := range entries {
		auditIncomplete = auditIncomplete || e.AuditIncomplete
		automationFailed = automationFailed || e.AutomationFailed
	}
	return auditIncomplete, automationFailed, nil
}

// finish writes the operator flags, clears the marker when its outcome is
// safely in the outbox (or needed none) and tells the dashboards.
func (m *Machine) finish(ctx context.Context, res *Result, lead *model.Lead, actor, clearMarker string, auditIncomplete, automationFailed bool, eventType string) {
	outcome := TransitionOutcome{
		LeadID:           lead.ID,
		ClearMarker:      clearMarker,
		AuditIncomplete:  auditIncomplete,
		AutomationFailed: automationFailed,
	}
	if err := m.store.CompleteTransition(ctx, outcome); err != nil {
		m.logger.Warn("failed to close transition marker",
			"lead_id", lead.ID, "transition_key", res.TransitionKey, "error", err)
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningOutbox,
			Message: fmt.Errorf("%w: complete transition: %w", ErrPersistence, err).Error(),
		})
	} else {
		lead.AuditIncomplete = auditIncomplete
		lead.AutomationFailed = automationFailed
		if clearMarker != "" && lead.PendingTransitionKey == clearMarker {
			lead.PendingTransitionKey = ""
			lead.PendingFromStage = ""
			lead.PendingToStage = ""
		}
	}

	if m.publisher != nil {
		m.publisher.Publish(Event{
			Type:          eventType,
			LeadID:        lead.ID.String(),
			PreviousStage: string(res.PreviousStage),
			NewStage:      string(res.NewStage),
			Actor:         actor,
			Warnings:      len(res.Warnings),
			At:            m.now().UTC(),
		})
	}
}
