package database

import (
	"fmt"
	"log/slog"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection opens the connection pool and migrates the schema.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		slog.Warn("Failed to auto-migrate models", "error", err)
	}

	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.HorseboxModel{},
		&model.PricingOption{},
		&model.SavedConfiguration{},
		&model.SavedConfigurationOption{},
		&model.Lead{},
		&model.DealActivity{},
		&model.PipelineAutomationRule{},
		&model.AutomationRun{},
		&model.UnresolvedTransition{},
		&model.BuildSequence{},
		&model.Build{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
