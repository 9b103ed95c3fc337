package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrConfigurationLocked is returned when a lead's configuration can no
// longer be edited.
var ErrConfigurationLocked = errors.New("lead configuration is locked")

// LeadFilter narrows a lead listing. Empty fields match everything.
type LeadFilter struct {
	Stage          string
	Source         string
	Search         string
	NeedsAttention bool // audit incomplete or automation failed
	OwnerID        *uuid.UUID
}

type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	List(ctx context.Context, filter LeadFilter, page, limit int) ([]model.Lead, int64, error)
	// UpdateConfiguration replaces the configurator snapshot unless the lead
	// is locked. Returns gorm.ErrRecordNotFound or ErrConfigurationLocked.
	UpdateConfiguration(ctx context.Context, id uuid.UUID, snapshot datatypes.JSON) error
	UpdateScore(ctx context.Context, id uuid.UUID, score int) error
	CountByStage(ctx context.Context) (map[string]int64, error)
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *model.Lead) error {
	return GetDB(ctx, r.db).Create(lead).Error
}

func (r *leadRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Lead, error) {
	var lead model.Lead
	if err := GetDB(ctx, r.db).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(ctx context.Context, filter LeadFilter, page, limit int) ([]model.Lead, int64, error) {
	var leads []model.Lead
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Lead{})
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.NeedsAttention {
		query = query.Where("audit_incomplete = ? OR automation_failed = ?", true, true)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR company ILIKE ?", like, like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&leads).Error; err != nil {
		return nil, 0, err
	}

	return leads, total, nil
}

func (r *leadRepository) UpdateConfiguration(ctx context.Context, id uuid.UUID, snapshot datatypes.JSON) error {
	res := GetDB(ctx, r.db).Model(&model.Lead{}).
		Where("id = ? AND configuration_locked = ?", id, false).
		Update("configurator_snapshot", snapshot)
	if res.Error != nil {
		return fmt.Errorf("failed to update configuration: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Tell a missing lead apart from a locked one.
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrConfigurationLocked
}

func (r *leadRepository) UpdateScore(ctx context.Context, id uuid.UUID, score int) error {
	return GetDB(ctx, r.db).Model(&model.Lead{}).Where("id = ?", id).Update("score", score).Error
}

func (r *leadRepository) CountByStage(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Stage string
		Count int64
	}
	if err := GetDB(ctx, r.db).Model(&model.Lead{}).
		Select("stage, COUNT(*) AS count").
		Group("stage").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Stage] = row.Count
	}
	return counts, nil
}
