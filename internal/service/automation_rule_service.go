package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/notify"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type AutomationRuleRequest struct {
	Name        string                   `json:"name" binding:"required,max=255"`
	FromStage   string                   `json:"from_stage" binding:"required"`
	ToStage     string                   `json:"to_stage" binding:"required"`
	Actions     []model.AutomationAction `json:"actions" binding:"required,min=1"`
	Active      *bool                    `json:"active"`
	Priority    int                      `json:"priority"`
	Description string                   `json:"description"`
}

type AutomationRuleResponse struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	FromStage   string                   `json:"from_stage"`
	ToStage     string                   `json:"to_stage"`
	Actions     []model.AutomationAction `json:"actions"`
	Active      bool                     `json:"active"`
	Priority    int                      `json:"priority"`
	Description string                   `json:"description"`
	CreatedAt   string                   `json:"created_at"`
	UpdatedAt   string                   `json:"updated_at"`
}

// --- Interface ---

type AutomationRuleService interface {
	ListRules(ctx context.Context) ([]AutomationRuleResponse, error)
	CreateRule(ctx context.Context, req AutomationRuleRequest, actor string) (AutomationRuleResponse, error)
	UpdateRule(ctx context.Context, id string, req AutomationRuleRequest, actor string) (AutomationRuleResponse, error)
	DeleteRule(ctx context.Context, id string, actor string) error
}

type automationRuleService struct {
	repo  repository.AutomationRuleRepository
	audit repository.AuditRepository
}

func NewAutomationRuleService(repo repository.AutomationRuleRepository, audit repository.AuditRepository) AutomationRuleService {
	return &automationRuleService{repo: repo, audit: audit}
}

// --- Implementation ---

func (s *automationRuleService) ListRules(ctx context.Context) ([]AutomationRuleResponse, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch automation rules: %w", err)
	}

	res := make([]AutomationRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toRuleResponse(r))
	}
	return res, nil
}

func (s *automationRuleService) CreateRule(ctx context.Context, req AutomationRuleRequest, actor string) (AutomationRuleResponse, error) {
	if err := validateRule(req); err != nil {
		return AutomationRuleResponse{}, err
	}

	rule := model.PipelineAutomationRule{}
	applyRuleRequest(&rule, req)

	if err := s.repo.Create(ctx, &rule); err != nil {
		return AutomationRuleResponse{}, fmt.Errorf("failed to create automation rule: %w", err)
	}

	writeAuditLog(ctx, s.audit, actor, model.ActionCreateAutomationRule, rule.ID.String(), rule.Name, req)

	return toRuleResponse(rule), nil
}

func (s *automationRuleService) UpdateRule(ctx context.Context, id string, req AutomationRuleRequest, actor string) (AutomationRuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return AutomationRuleResponse{}, err
	}
	if err := validateRule(req); err != nil {
		return AutomationRuleResponse{}, err
	}

	applyRuleRequest(rule, req)
	if err := s.repo.Update(ctx, rule); err != nil {
		return AutomationRuleResponse{}, fmt.Errorf("failed to update automation rule: %w", err)
	}

	writeAuditLog(ctx, s.audit, actor, model.ActionUpdateAutomationRule, rule.ID.String(), rule.Name, req)

	return toRuleResponse(*rule), nil
}

func (s *automationRuleService) DeleteRule(ctx context.Context, id string, actor string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to delete automation rule: %w", err)
	}

	writeAuditLog(ctx, s.audit, actor, model.ActionDeleteAutomationRule, rule.ID.String(), rule.Name, map[string]string{"deleted_id": id})
	return nil
}

// --- Helpers ---

func (s *automationRuleService) findRule(ctx context.Context, id string) (*model.PipelineAutomationRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid automation rule id", ErrInvalidInput)
	}

	rule, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: automation rule %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch automation rule: %w", err)
	}
	return rule, nil
}

// validateRule checks stages and actions up front so that a rule never fails
// at transition time for a reason known when it was saved.
func validateRule(req AutomationRuleRequest) error {
	from, err := pipeline.ParseStage(req.FromStage)
	if err != nil {
		return fmt.Errorf("%w: from_stage: %v", ErrInvalidInput, err)
	}
	to, err := pipeline.ParseStage(req.ToStage)
	if err != nil {
		return fmt.Errorf("%w: to_stage: %v", ErrInvalidInput, err)
	}
	if from == to {
		return fmt.Errorf("%w: from_stage and to_stage must differ", ErrInvalidInput)
	}
	if from.IsTerminal() && to != pipeline.StageInquiry {
		return fmt.Errorf("%w: a closed lead can only move back to %s", ErrInvalidInput, pipeline.StageInquiry)
	}

	for i, a := range req.Actions {
		switch a.Type {
		case model.ActionTypeCreateBuild, model.ActionTypeLockConfiguration:
		case model.ActionTypeSendEmail:
			if tmpl := a.Params["template"]; tmpl != "" && !notify.HasTemplate(tmpl) {
				return fmt.Errorf("%w: action %d: unknown email template %q", ErrInvalidInput, i, tmpl)
			}
		default:
			return fmt.Errorf("%w: action %d: %w %q", ErrInvalidInput, i, pipeline.ErrUnknownAction, a.Type)
		}
	}
	return nil
}

func applyRuleRequest(rule *model.PipelineAutomationRule, req AutomationRuleRequest) {
	rule.Name = req.Name
	rule.FromStage = req.FromStage
	rule.ToStage = req.ToStage
	rule.Actions = req.Actions
	rule.Active = req.Active == nil || *req.Active
	rule.Priority = req.Priority
	rule.Description = req.Description
}

func toRuleResponse(r model.PipelineAutomationRule) AutomationRuleResponse {
	actions := []model.AutomationAction(r.Actions)
	if actions == nil {
		actions = []model.AutomationAction{}
	}
	return AutomationRuleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		FromStage:   r.FromStage,
		ToStage:     r.ToStage,
		Actions:     actions,
		Active:      r.Active,
		Priority:    r.Priority,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}
