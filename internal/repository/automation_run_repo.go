package repository

import (
	"context"
	"errors"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AutomationRunRepository interface {
	// FindByKey returns nil, nil when the action never ran.
	FindByKey(ctx context.Context, runKey string) (*model.AutomationRun, error)
	// Save inserts the run or overwrites the status of an earlier attempt.
	Save(ctx context.Context, run *model.AutomationRun) error
}

type automationRunRepository struct {
	db *gorm.DB
}

func NewAutomationRunRepository(db *gorm.DB) AutomationRunRepository {
	return &automationRunRepository{db: db}
}

func (r *automationRunRepository) FindByKey(ctx context.Context, runKey string) (*model.AutomationRun, error) {
	var run model.AutomationRun
	if err := GetDB(ctx, r.db).First(&run, "run_key = ?", runKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *automationRunRepository) Save(ctx context.Context, run *model.AutomationRun) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "error", "updated_at"}),
	}).Create(run).Error
}
