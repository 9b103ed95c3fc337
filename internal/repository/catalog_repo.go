package repository

import (
	"context"
	"encoding/json"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository interface {
	ListModels(ctx context.Context) ([]model.HorseboxModel, error)
	ListOptions(ctx context.Context) ([]model.PricingOption, error)
	FindModel(ctx context.Context, id string) (*model.HorseboxModel, error)
	FindOption(ctx context.Context, id string) (*model.PricingOption, error)
	CreateOption(ctx context.Context, option *model.PricingOption) error
	UpdateOption(ctx context.Context, option *model.PricingOption) error
	DeleteOption(ctx context.Context, id string) error
	// OptionReferenced reports whether any saved configuration or lead
	// snapshot uses the option.
	OptionReferenced(ctx context.Context, id string) (bool, error)
	CountModels(ctx context.Context) (int64, error)
	// Seed upserts models and options by id.
	Seed(ctx context.Context, models []model.HorseboxModel, options []model.PricingOption) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListModels(ctx context.Context) ([]model.HorseboxModel, error) {
	var models []model.HorseboxModel
	if err := GetDB(ctx, r.db).Order("display_order, id").Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

func (r *catalogRepository) ListOptions(ctx context.Context) ([]model.PricingOption, error) {
	var options []model.PricingOption
	if err := GetDB(ctx, r.db).Order("display_order, id").Find(&options).Error; err != nil {
		return nil, err
	}
	return options, nil
}

func (r *catalogRepository) FindModel(ctx context.Context, id string) (*model.HorseboxModel, error) {
	var m model.HorseboxModel
	if err := GetDB(ctx, r.db).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *catalogRepository) FindOption(ctx context.Context, id string) (*model.PricingOption, error) {
	var option model.PricingOption
	if err := GetDB(ctx, r.db).First(&option, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *catalogRepository) CreateOption(ctx context.Context, option *model.PricingOption) error {
	return GetDB(ctx, r.db).Create(option).Error
}

func (r *catalogRepository) UpdateOption(ctx context.Context, option *model.PricingOption) error {
	return GetDB(ctx, r.db).Save(option).Error
}

func (r *catalogRepository) DeleteOption(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PricingOption{}).Error
}

func (r *catalogRepository) OptionReferenced(ctx context.Context, id string) (bool, error) {
	db := GetDB(ctx, r.db)

	var count int64
	if err := db.Model(&model.SavedConfigurationOption{}).
		Where("option_id = ?", id).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	filter, err := snapshotOptionFilter(id)
	if err != nil {
		return false, err
	}
	if err := db.Model(&model.Lead{}).
		Where("configurator_snapshot @> ?::jsonb", filter).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// snapshotOptionFilter is the jsonb containment document matching a lead
// snapshot that picks the option.
func snapshotOptionFilter(id string) (string, error) {
	raw, err := json.Marshal(map[string][]map[string]string{
		"options": {{"option_id": id}},
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (r *catalogRepository) CountModels(ctx context.Context) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.HorseboxModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *catalogRepository) Seed(ctx context.Context, models []model.HorseboxModel, options []model.PricingOption) error {
	db := GetDB(ctx, r.db)
	if len(models) > 0 {
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&models).Error; err != nil {
			return err
		}
	}
	if len(options) > 0 {
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&options).Error; err != nil {
			return err
		}
	}
	return nil
}
