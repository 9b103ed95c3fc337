package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountLeadsCreated(ctx context.Context, start, end time.Time) (int64, error)
	// GetClosedDeals aggregates leads that entered stage within the range.
	GetClosedDeals(ctx context.Context, stage string, start, end time.Time) (model.ClosedDeals, error)
	GetTopModels(ctx context.Context, start, end time.Time, limit int) ([]model.ModelRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountLeadsCreated(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Lead{}).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

func (r *statisticsRepository) GetClosedDeals(ctx context.Context, stage string, start, end time.Time) (model.ClosedDeals, error) {
	var result model.ClosedDeals
	if err := GetDB(ctx, r.db).Model(&model.Lead{}).
		Select("COUNT(*) AS count, "+
			"COALESCE(CAST(SUM(NULLIF(configurator_snapshot->'breakdown'->>'total', '')::numeric) AS TEXT), '0') AS value").
		Where("stage = ? AND last_transition_at >= ? AND last_transition_at <= ?", stage, start, end).
		Scan(&result).Error; err != nil {
		return model.ClosedDeals{}, fmt.Errorf("failed to aggregate %s deals: %w", stage, err)
	}
	return result, nil
}

func (r *statisticsRepository) GetTopModels(ctx context.Context, start, end time.Time, limit int) ([]model.ModelRanking, error) {
	var rankings []model.ModelRanking
	if err := GetDB(ctx, r.db).Table("builds").
		Select("builds.model_id AS model_id, COALESCE(horsebox_models.name, builds.model_id) AS model_name, COUNT(*) AS builds").
		Joins("LEFT JOIN horsebox_models ON horsebox_models.id = builds.model_id").
		Where("builds.created_at >= ? AND builds.created_at <= ?", start, end).
		Group("builds.model_id, horsebox_models.name").
		Order("builds DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top models: %w", err)
	}
	return rankings, nil
}
