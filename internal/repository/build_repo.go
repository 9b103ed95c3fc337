package repository

import (
	"context"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"gorm.io/gorm"
)

type BuildRepository interface {
	// NextSequence advances the year's counter in a single statement and
	// returns the new value. The first call of a year returns 1.
	NextSequence(ctx context.Context, year int) (int, error)
	Create(ctx context.Context, build *model.Build) error
	List(ctx context.Context, status string, page, limit int) ([]model.Build, int64, error)
}

type buildRepository struct {
	db *gorm.DB
}

func NewBuildRepository(db *gorm.DB) BuildRepository {
	return &buildRepository{db: db}
}

func (r *buildRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var value int
	err := GetDB(ctx, r.db).Raw(`
		INSERT INTO build_sequences (year, value, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT (year) DO UPDATE
		SET value = build_sequences.value + 1, updated_at = EXCLUDED.updated_at
		RETURNING value
	`, year, time.Now()).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *buildRepository) Create(ctx context.Context, build *model.Build) error {
	return GetDB(ctx, r.db).Create(build).Error
}

func (r *buildRepository) List(ctx context.Context, status string, page, limit int) ([]model.Build, int64, error) {
	var builds []model.Build
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Build{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Lead").Order("build_number desc").Offset(offset).Limit(limit).Find(&builds).Error; err != nil {
		return nil, 0, err
	}

	return builds, total, nil
}
