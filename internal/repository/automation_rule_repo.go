package repository

import (
	"context"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutomationRuleRepository interface {
	Create(ctx context.Context, rule *model.PipelineAutomationRule) error
	Update(ctx context.Context, rule *model.PipelineAutomationRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PipelineAutomationRule, error)
	List(ctx context.Context) ([]model.PipelineAutomationRule, error)
	// ListActive returns the active rules for an exact stage pair in
	// execution order.
	ListActive(ctx context.Context, from, to string) ([]model.PipelineAutomationRule, error)
}

type automationRuleRepository struct {
	db *gorm.DB
}

func NewAutomationRuleRepository(db *gorm.DB) AutomationRuleRepository {
	return &automationRuleRepository{db: db}
}

func (r *automationRuleRepository) Create(ctx context.Context, rule *model.PipelineAutomationRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *automationRuleRepository) Update(ctx context.Context, rule *model.PipelineAutomationRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *automationRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PipelineAutomationRule{}).Error
}

func (r *automationRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PipelineAutomationRule, error) {
	var rule model.PipelineAutomationRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *automationRuleRepository) List(ctx context.Context) ([]model.PipelineAutomationRule, error) {
	var rules []model.PipelineAutomationRule
	if err := GetDB(ctx, r.db).Order("from_stage, to_stage, priority, created_at").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *automationRuleRepository) ListActive(ctx context.Context, from, to string) ([]model.PipelineAutomationRule, error) {
	var rules []model.PipelineAutomationRule
	if err := GetDB(ctx, r.db).
		Where("from_stage = ? AND to_stage = ? AND active = ?", from, to, true).
		Order("priority, created_at, id").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
