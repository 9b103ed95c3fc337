package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// OptionRequest creates or replaces a pricing option. Amounts are decimal
// strings, e.g. "1200.00".
type OptionRequest struct {
	ID               string   `json:"id"`
	Name             string   `json:"name" binding:"required"`
	Description      string   `json:"description"`
	Category         string   `json:"category" binding:"required,oneof=exterior interior safety technology comfort horse_area"`
	Subcategory      string   `json:"subcategory"`
	Price            string   `json:"price" binding:"required"`
	PricePerFoot     string   `json:"price_per_foot"`
	Weight           string   `json:"weight_kg"`
	VATRate          string   `json:"vat_rate"`
	IsDefault        bool     `json:"is_default"`
	IsAvailable      *bool    `json:"is_available"`
	PerFootPricing   bool     `json:"per_foot_pricing"`
	MaxQuantity      *int     `json:"max_quantity"`
	ApplicableModels []string `json:"applicable_models" binding:"required,min=1"`
	Dependencies     []string `json:"dependencies"`
	IncompatibleWith []string `json:"incompatible_with"`
	DisplayOrder     int      `json:"display_order"`
}

type DeleteOptionResponse struct {
	ID       string `json:"id"`
	Deleted  bool   `json:"deleted"`
	Disabled bool   `json:"disabled"`
	Reason   string `json:"reason,omitempty"`
}

// --- Interface ---

type OptionService interface {
	CreateOption(ctx context.Context, req OptionRequest, actor string) (OptionResponse, error)
	UpdateOption(ctx context.Context, id string, req OptionRequest, actor string) (OptionResponse, error)
	// DeleteOption removes an option, or disables it when saved
	// configurations or other options still refer to it.
	DeleteOption(ctx context.Context, id string, actor string) (DeleteOptionResponse, error)
}

type optionService struct {
	repo    repository.CatalogRepository
	audit   repository.AuditRepository
	catalog CatalogService
}

func NewOptionService(repo repository.CatalogRepository, audit repository.AuditRepository, catalogService CatalogService) OptionService {
	return &optionService{repo: repo, audit: audit, catalog: catalogService}
}

// --- Implementation ---

func (s *optionService) CreateOption(ctx context.Context, req OptionRequest, actor string) (OptionResponse, error) {
	if req.ID == "" {
		return OptionResponse{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if _, err := s.repo.FindOption(ctx, req.ID); err == nil {
		return OptionResponse{}, fmt.Errorf("%w: option %s already exists", ErrInvalidInput, req.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OptionResponse{}, fmt.Errorf("failed to fetch option: %w", err)
	}

	option, err := optionFromRequest(req.ID, req)
	if err != nil {
		return OptionResponse{}, err
	}
	if err := s.validateWith(ctx, option, ""); err != nil {
		return OptionResponse{}, err
	}

	if err := s.repo.CreateOption(ctx, &option); err != nil {
		return OptionResponse{}, fmt.Errorf("failed to create option: %w", err)
	}
	s.catalog.Invalidate()

	writeAuditLog(ctx, s.audit, actor, model.ActionCreatePricingOption, option.ID, option.Name, req)

	return toOptionResponse(catalog.OptionFromRecord(option)), nil
}

func (s *optionService) UpdateOption(ctx context.Context, id string, req OptionRequest, actor string) (OptionResponse, error) {
	existing, err := s.findOption(ctx, id)
	if err != nil {
		return OptionResponse{}, err
	}

	option, err := optionFromRequest(id, req)
	if err != nil {
		return OptionResponse{}, err
	}
	option.CreatedAt = existing.CreatedAt
	if err := s.validateWith(ctx, option, ""); err != nil {
		return OptionResponse{}, err
	}

	if err := s.repo.UpdateOption(ctx, &option); err != nil {
		return OptionResponse{}, fmt.Errorf("failed to update option: %w", err)
	}
	s.catalog.Invalidate()

	writeAuditLog(ctx, s.audit, actor, model.ActionUpdatePricingOption, option.ID, option.Name, req)

	return toOptionResponse(catalog.OptionFromRecord(option)), nil
}

func (s *optionService) DeleteOption(ctx context.Context, id string, actor string) (DeleteOptionResponse, error) {
	option, err := s.findOption(ctx, id)
	if err != nil {
		return DeleteOptionResponse{}, err
	}

	referenced, err := s.repo.OptionReferenced(ctx, id)
	if err != nil {
		return DeleteOptionResponse{}, fmt.Errorf("failed to check option references: %w", err)
	}
	if !referenced {
		// Removing it must not leave dangling dependency or
		// incompatibility entries on other options.
		if err := s.validateWith(ctx, model.PricingOption{}, id); err != nil {
			referenced = true
		}
	}

	if referenced {
		option.IsAvailable = false
		if err := s.repo.UpdateOption(ctx, option); err != nil {
			return DeleteOptionResponse{}, fmt.Errorf("failed to disable option: %w", err)
		}
		s.catalog.Invalidate()
		writeAuditLog(ctx, s.audit, actor, model.ActionDisablePricingOption, option.ID, option.Name, map[string]string{"reason": ErrOptionReferenced.Error()})
		return DeleteOptionResponse{ID: id, Disabled: true, Reason: ErrOptionReferenced.Error()}, nil
	}

	if err := s.repo.DeleteOption(ctx, id); err != nil {
		return DeleteOptionResponse{}, fmt.Errorf("failed to delete option: %w", err)
	}
	s.catalog.Invalidate()
	writeAuditLog(ctx, s.audit, actor, model.ActionDeletePricingOption, option.ID, option.Name, map[string]string{"deleted_id": id})

	return DeleteOptionResponse{ID: id, Deleted: true}, nil
}

// --- Helpers ---

func (s *optionService) findOption(ctx context.Context, id string) (*model.PricingOption, error) {
	option, err := s.repo.FindOption(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: option %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch option: %w", err)
	}
	return option, nil
}

// validateWith checks that the stored catalog stays valid with candidate
// upserted (when it has an id) and the option removeID removed.
func (s *optionService) validateWith(ctx context.Context, candidate model.PricingOption, removeID string) error {
	models, err := s.repo.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	options, err := s.repo.ListOptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}

	options = slices.DeleteFunc(options, func(o model.PricingOption) bool {
		return o.ID == removeID || o.ID == candidate.ID
	})
	if candidate.ID != "" {
		options = append(options, candidate)
	}

	if _, err := catalog.FromRecords(models, options); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func optionFromRequest(id string, req OptionRequest) (model.PricingOption, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return model.PricingOption{}, fmt.Errorf("%w: invalid price: %v", ErrInvalidInput, err)
	}

	option := model.PricingOption{
		ID:               id,
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Subcategory:      req.Subcategory,
		Price:            price,
		IsDefault:        req.IsDefault,
		IsAvailable:      req.IsAvailable == nil || *req.IsAvailable,
		PerFootPricing:   req.PerFootPricing,
		MaxQuantity:      req.MaxQuantity,
		ApplicableModels: pq.StringArray(nonNilStrings(req.ApplicableModels)),
		Dependencies:     pq.StringArray(nonNilStrings(req.Dependencies)),
		IncompatibleWith: pq.StringArray(nonNilStrings(req.IncompatibleWith)),
		DisplayOrder:     req.DisplayOrder,
	}

	fields := []struct {
		name  string
		value string
		dst   **decimal.Decimal
	}{
		{"price_per_foot", req.PricePerFoot, &option.PricePerFoot},
		{"weight_kg", req.Weight, &option.Weight},
		{"vat_rate", req.VATRate, &option.VATRate},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return model.PricingOption{}, fmt.Errorf("%w: invalid %s: %v", ErrInvalidInput, f.name, err)
		}
		*f.dst = &d
	}
	if req.MaxQuantity != nil && *req.MaxQuantity < 1 {
		return model.PricingOption{}, fmt.Errorf("%w: max_quantity must be at least 1", ErrInvalidInput)
	}

	return option, nil
}
