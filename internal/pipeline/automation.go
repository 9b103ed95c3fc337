package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"gorm.io/datatypes"
)

// runAutomations executes every active rule for (from, to) in catalog order.
// A failing action ends its own rule; later rules still run.
func (m *Machine) runAutomations(ctx context.Context, res *Result, lead *model.Lead, from, to Stage, actor string) {
	rules, err := m.store.ListActiveAutomations(ctx, from, to)
	if err != nil {
		m.logger.Warn("failed to load automation rules",
			"lead_id", lead.ID, "from", from, "to", to, "error", err)
		res.AutomationFailed = true
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningAutomation,
			Message: fmt.Errorf("%w: list automations: %w", ErrPersistence, err).Error(),
		})
		return
	}

	for _, rule := range rules {
		for i, action := range rule.Actions {
			if !m.runAction(ctx, res, lead, rule, i, action, actor) {
				break
			}
		}
	}
}

// runAction executes one action under its idempotency key and reports
// whether the rule may continue.
func (m *Machine) runAction(ctx context.Context, res *Result, lead *model.Lead, rule model.PipelineAutomationRule, index int, action model.AutomationAction, actor string) bool {
	key := runKey(res.TransitionKey, rule.ID, index)
	log := m.logger.With("lead_id", lead.ID, "rule_id", rule.ID, "rule", rule.Name, "action", action.Type)

	previous, err := m.store.FindAutomationRun(ctx, key)
	if err != nil {
		m.failAction(res, log, rule, action, fmt.Errorf("%w: find run: %w", ErrPersistence, err))
		return false
	}
	if previous != nil && previous.Status == model.RunStatusSucceeded {
		log.Debug("automation action already done, skipping", "run_key", key)
		// The activity entry may be what was lost; its dedupe key makes this a no-op otherwise.
		m.recordOutcome(ctx, res, lead, rule, action, previous, actor)
		return true
	}

	build, execErr := m.execute(ctx, lead, action, actor)

	run := &model.AutomationRun{
		RunKey:        key,
		LeadID:        lead.ID,
		RuleID:        rule.ID,
		TransitionKey: res.TransitionKey,
		ActionIndex:   index,
		ActionType:    action.Type,
		Status:        model.RunStatusSucceeded,
	}
	if execErr != nil {
		execErr = fmt.Errorf("%w: %s: %w", ErrAutomationAction, action.Type, execErr)
		run.Status = model.RunStatusFailed
		run.Error = execErr.Error()
	}
	if err := m.store.SaveAutomationRun(ctx, run); err != nil {
		log.Warn("failed to record automation run", "run_key", key, "error", err)
	}
	m.recordOutcome(ctx, res, lead, rule, action, run, actor)

	if execErr != nil {
		m.failAction(res, log, rule, action, execErr)
		return false
	}
	if build != nil {
		res.Builds = append(res.Builds, *build)
	}
	log.Info("automation action done")
	return true
}

func (m *Machine) failAction(res *Result, log *slog.Logger, rule model.PipelineAutomationRule, action model.AutomationAction, err error) {
	log.Warn("automation action failed", "error", err)
	res.AutomationFailed = true
	res.Warnings = append(res.Warnings, Warning{
		Kind:    WarningAutomation,
		RuleID:  rule.ID.String(),
		Action:  action.Type,
		Message: err.Error(),
	})
}

func (m *Machine) recordOutcome(ctx context.Context, res *Result, lead *model.Lead, rule model.PipelineAutomationRule, action model.AutomationAction, run *model.AutomationRun, actor string) {
	dedupe := run.RunKey + ":" + run.Status
	activity := &model.DealActivity{
		LeadID:      lead.ID,
		Type:        model.ActivityAutomation,
		Actor:       actor,
		Description: fmt.Sprintf("Automation %q: %s %s", rule.Name, action.Type, run.Status),
		Metadata: datatypes.JSONMap{
			"rule_id":        rule.ID.String(),
			"action":         action.Type,
			"status":         run.Status,
			"error":          run.Error,
			"transition_key": res.TransitionKey,
		},
		DedupeKey: &dedupe,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.InsertActivity(ctx, activity); err != nil {
		m.logger.Warn("failed to record automation activity", "lead_id", lead.ID, "error", err)
		res.AuditIncomplete = true
		res.Warnings = append(res.Warnings, Warning{
			Kind:    WarningAudit,
			RuleID:  rule.ID.String(),
			Action:  action.Type,
			Message: fmt.Errorf("%w: insert activity: %w", ErrPersistence, err).Error(),
		})
	}
}

func (m *Machine) execute(ctx context.Context, lead *model.Lead, action model.AutomationAction, actor string) (*model.Build, error) {
	switch action.Type {
	case model.ActionTypeCreateBuild:
		return m.createBuild(ctx, lead, actor)
	case model.ActionTypeSendEmail:
		return nil, m.sendEmail(ctx, lead, action)
	case model.ActionTypeLockConfiguration:
		if err := m.store.LockConfiguration(ctx, lead.ID); err != nil {
			return nil, err
		}
		lead.ConfigurationLocked = true
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

func (m *Machine) createBuild(ctx context.Context, lead *model.Lead, actor string) (*model.Build, error) {
	year := m.now().UTC().Year()
	seq, err := m.store.NextBuildSequence(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("next build sequence: %w", err)
	}

	build := &model.Build{
		BuildNumber:          FormatBuildNumber(year, seq),
		LeadID:               lead.ID,
		ModelID:              snapshotModelID(lead.ConfiguratorSnapshot),
		Status:               model.BuildStatusPlanning,
		ConfigurationSummary: lead.ConfiguratorSnapshot,
		CreatedBy:            actor,
	}
	if err := m.store.InsertBuild(ctx, build); err != nil {
		return nil, fmt.Errorf("insert build %s: %w", build.BuildNumber, err)
	}
	return build, nil
}

func (m *Machine) sendEmail(ctx context.Context, lead *model.Lead, action model.AutomationAction) error {
	if m.notifier == nil {
		return errors.New("no notifier configured")
	}

	to := action.Params["to"]
	if to == "" {
		to = lead.Email
	}
	template := action.Params["template"]
	if template == "" {
		template = "stage_changed"
	}

	return m.notifier.Notify(ctx, EmailIntent{
		LeadID:   lead.ID,
		Template: template,
		To:       to,
		Subject:  action.Params["subject"],
		Data: map[string]string{
			"first_name": lead.FirstName,
			"full_name":  lead.FullName(),
			"stage":      lead.Stage,
			"lead_email": lead.Email,
		},
	})
}

func snapshotModelID(snapshot datatypes.JSON) string {
	if len(snapshot) == 0 {
		return ""
	}
	var s struct {
		ModelID string `json:"model_id"`
	}
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return ""
	}
	return s.ModelID
}
