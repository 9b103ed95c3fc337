package repository

import (
	"context"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConfigurationRepository interface {
	// Create stores the configuration together with its option rows.
	Create(ctx context.Context, cfg *model.SavedConfiguration) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SavedConfiguration, error)
}

type configurationRepository struct {
	db *gorm.DB
}

func NewConfigurationRepository(db *gorm.DB) ConfigurationRepository {
	return &configurationRepository{db: db}
}

func (r *configurationRepository) Create(ctx context.Context, cfg *model.SavedConfiguration) error {
	return GetDB(ctx, r.db).Create(cfg).Error
}

func (r *configurationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SavedConfiguration, error) {
	var cfg model.SavedConfiguration
	if err := GetDB(ctx, r.db).Preload("Options").Preload("Model").First(&cfg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}
