package repository

import (
	"context"
	"errors"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// pipelineStore adapts the repositories to pipeline.Store. Each method is a
// single statement, so no call depends on another succeeding.
type pipelineStore struct {
	db         *gorm.DB
	leads      LeadRepository
	activities ActivityRepository
	rules      AutomationRuleRepository
	runs       AutomationRunRepository
	builds     BuildRepository
}

func NewPipelineStore(db *gorm.DB) pipeline.Store {
	return &pipelineStore{
		db:         db,
		leads:      NewLeadRepository(db),
		activities: NewActivityRepository(db),
		rules:      NewAutomationRuleRepository(db),
		runs:       NewAutomationRunRepository(db),
		builds:     NewBuildRepository(db),
	}
}

func (s *pipelineStore) GetLead(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	lead, err := s.leads.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

func (s *pipelineStore) UpdateLeadStage(ctx context.Context, u pipeline.StageUpdate) error {
	res := GetDB(ctx, s.db).Model(&model.Lead{}).
		Where("id = ? AND version = ?", u.LeadID, u.ExpectedVersion).
		Updates(map[string]interface{}{
			"stage":                  string(u.To),
			"version":                gorm.Expr("version + 1"),
			"pending_transition_key": u.TransitionKey,
			"pending_from_stage":     string(u.From),
			"pending_to_stage":       string(u.To),
			"last_transition_at":     u.At,
			"updated_at":             u.At,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pipeline.ErrVersionConflict
	}
	return nil
}

func (s *pipelineStore) InsertActivity(ctx context.Context, a *model.DealActivity) error {
	return s.activities.Create(ctx, a)
}

func (s *pipelineStore) ListActiveAutomations(ctx context.Context, from, to pipeline.Stage) ([]model.PipelineAutomationRule, error) {
	return s.rules.ListActive(ctx, string(from), string(to))
}

func (s *pipelineStore) NextBuildSequence(ctx context.Context, year int) (int, error) {
	return s.builds.NextSequence(ctx, year)
}

func (s *pipelineStore) InsertBuild(ctx context.Context, b *model.Build) error {
	return s.builds.Create(ctx, b)
}

func (s *pipelineStore) LockConfiguration(ctx context.Context, leadID uuid.UUID) error {
	return GetDB(ctx, s.db).Model(&model.Lead{}).
		Where("id = ?", leadID).
		Update("configuration_locked", true).Error
}

func (s *pipelineStore) FindAutomationRun(ctx context.Context, runKey string) (*model.AutomationRun, error) {
	return s.runs.FindByKey(ctx, runKey)
}

func (s *pipelineStore) SaveAutomationRun(ctx context.Context, run *model.AutomationRun) error {
	return s.runs.Save(ctx, run)
}

func (s *pipelineStore) ListUnresolvedTransitions(ctx context.Context, leadID uuid.UUID) ([]model.UnresolvedTransition, error) {
	var entries []model.UnresolvedTransition
	if err := GetDB(ctx, s.db).
		Where("lead_id = ?", leadID).
		Order("created_at, transition_key").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *pipelineStore) SaveUnresolvedTransition(ctx context.Context, t *model.UnresolvedTransition) error {
	return GetDB(ctx, s.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transition_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"audit_incomplete", "automation_failed", "updated_at"}),
	}).Create(t).Error
}

func (s *pipelineStore) ResolveTransition(ctx context.Context, transitionKey string) error {
	return GetDB(ctx, s.db).
		Where("transition_key = ?", transitionKey).
		Delete(&model.UnresolvedTransition{}).Error
}

func (s *pipelineStore) CompleteTransition(ctx context.Context, o pipeline.TransitionOutcome) error {
	updates := map[string]interface{}{
		"audit_incomplete":  o.AuditIncomplete,
		"automation_failed": o.AutomationFailed,
	}
	if o.ClearMarker != "" {
		// A newer transition owns a different marker; leave that one alone.
		ifOwned := func(column string) interface{} {
			return gorm.Expr("CASE WHEN pending_transition_key = ? THEN '' ELSE "+column+" END", o.ClearMarker)
		}
		updates["pending_transition_key"] = ifOwned("pending_transition_key")
		updates["pending_from_stage"] = ifOwned("pending_from_stage")
		updates["pending_to_stage"] = ifOwned("pending_to_stage")
	}

	return GetDB(ctx, s.db).Model(&model.Lead{}).
		Where("id = ?", o.LeadID).
		Updates(updates).Error
}
