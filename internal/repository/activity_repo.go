package repository

import (
	"context"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository interface {
	// Create appends an activity. A row whose dedupe key already exists is
	// silently skipped.
	Create(ctx context.Context, activity *model.DealActivity) error
	ListByLead(ctx context.Context, leadID uuid.UUID, page, limit int) ([]model.DealActivity, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *model.DealActivity) error {
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(activity).Error
}

func (r *activityRepository) ListByLead(ctx context.Context, leadID uuid.UUID, page, limit int) ([]model.DealActivity, int64, error) {
	var activities []model.DealActivity
	var total int64

	query := GetDB(ctx, r.db).Model(&model.DealActivity{}).Where("lead_id = ?", leadID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}
