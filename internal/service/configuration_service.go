package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SaveConfigurationRequest struct {
	ConfigurationInput
	Email string `json:"email" binding:"omitempty,email"`
}

type ConfigurationResponse struct {
	ID        string            `json:"id"`
	ModelID   string            `json:"model_id"`
	Email     string            `json:"email,omitempty"`
	ViewAngle string            `json:"view_angle,omitempty"`
	Options   []catalog.Pick    `json:"options"`
	Breakdown BreakdownResponse `json:"breakdown"`
	// Stale is set when the saved selection no longer prices against the
	// current catalog; Breakdown is then the one stored at save time.
	Stale       bool   `json:"stale"`
	StaleReason string `json:"stale_reason,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ConfigurationService interface {
	SaveConfiguration(ctx context.Context, req SaveConfigurationRequest) (ConfigurationResponse, error)
	GetConfiguration(ctx context.Context, id string) (ConfigurationResponse, error)
}

type configurationService struct {
	repo    repository.ConfigurationRepository
	catalog CatalogService
}

func NewConfigurationService(repo repository.ConfigurationRepository, catalogService CatalogService) ConfigurationService {
	return &configurationService{repo: repo, catalog: catalogService}
}

func (s *configurationService) SaveConfiguration(ctx context.Context, req SaveConfigurationRequest) (ConfigurationResponse, error) {
	breakdown, err := s.catalog.Compute(ctx, req.ModelID, req.Options)
	if err != nil {
		return ConfigurationResponse{}, err
	}
	rendered := ToBreakdownResponse(breakdown)
	raw, err := json.Marshal(rendered)
	if err != nil {
		return ConfigurationResponse{}, fmt.Errorf("failed to encode breakdown: %w", err)
	}

	cfg := model.SavedConfiguration{
		ModelID:   req.ModelID,
		Email:     req.Email,
		ViewAngle: req.ViewAngle,
		Breakdown: datatypes.JSON(raw),
	}
	if !breakdown.ContactForPricing {
		total := breakdown.Total
		cfg.Total = &total
	}
	for _, p := range mergePicks(req.Options) {
		cfg.Options = append(cfg.Options, model.SavedConfigurationOption{OptionID: p.OptionID, Quantity: p.Quantity})
	}

	if err := s.repo.Create(ctx, &cfg); err != nil {
		return ConfigurationResponse{}, fmt.Errorf("failed to save configuration: %w", err)
	}

	return ConfigurationResponse{
		ID:        cfg.ID.String(),
		ModelID:   cfg.ModelID,
		Email:     cfg.Email,
		ViewAngle: cfg.ViewAngle,
		Options:   picksOf(cfg),
		Breakdown: rendered,
		CreatedAt: cfg.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *configurationService) GetConfiguration(ctx context.Context, id string) (ConfigurationResponse, error) {
	cfgID, err := uuid.Parse(id)
	if err != nil {
		return ConfigurationResponse{}, fmt.Errorf("%w: invalid configuration id", ErrInvalidInput)
	}

	cfg, err := s.repo.FindByID(ctx, cfgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ConfigurationResponse{}, fmt.Errorf("%w: configuration %s", ErrNotFound, id)
		}
		return ConfigurationResponse{}, fmt.Errorf("failed to fetch configuration: %w", err)
	}

	res := ConfigurationResponse{
		ID:        cfg.ID.String(),
		ModelID:   cfg.ModelID,
		Email:     cfg.Email,
		ViewAngle: cfg.ViewAngle,
		Options:   picksOf(*cfg),
		CreatedAt: cfg.CreatedAt.Format(time.RFC3339),
	}

	// Prices are recomputed on display; a selection the catalog no longer
	// accepts falls back to the stored snapshot.
	breakdown, err := s.catalog.Compute(ctx, cfg.ModelID, res.Options)
	switch {
	case err == nil:
		res.Breakdown = ToBreakdownResponse(breakdown)
	case pricing.IsValidation(err):
		res.Stale = true
		res.StaleReason = err.Error()
		if uerr := json.Unmarshal(cfg.Breakdown, &res.Breakdown); uerr != nil {
			return ConfigurationResponse{}, fmt.Errorf("failed to read stored breakdown: %w", uerr)
		}
	default:
		return ConfigurationResponse{}, err
	}
	return res, nil
}

func picksOf(cfg model.SavedConfiguration) []catalog.Pick {
	picks := make([]catalog.Pick, 0, len(cfg.Options))
	for _, o := range cfg.Options {
		picks = append(picks, catalog.Pick{OptionID: o.OptionID, Quantity: o.Quantity})
	}
	return picks
}

// mergePicks sums quantities of repeated option ids, keeping first-seen order.
func mergePicks(picks []catalog.Pick) []catalog.Pick {
	index := make(map[string]int, len(picks))
	res := make([]catalog.Pick, 0, len(picks))
	for _, p := range picks {
		if i, ok := index[p.OptionID]; ok {
			res[i].Quantity += p.Quantity
			continue
		}
		index[p.OptionID] = len(res)
		res = append(res, p)
	}
	return res
}
