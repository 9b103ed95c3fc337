package catalog

import (
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"
)

// FromRecords builds a catalog from database rows.
func FromRecords(models []model.HorseboxModel, options []model.PricingOption) (*Catalog, error) {
	pm := make([]pricing.Model, 0, len(models))
	for _, m := range models {
		pm = append(pm, ModelFromRecord(m))
	}
	po := make([]pricing.Option, 0, len(options))
	for _, o := range options {
		po = append(po, OptionFromRecord(o))
	}
	return New(pm, po)
}

func ModelFromRecord(m model.HorseboxModel) pricing.Model {
	return pricing.Model{
		ID:              m.ID,
		Name:            m.Name,
		Tonnage:         m.Tonnage,
		BasePrice:       m.BasePrice,
		VATRate:         m.VATRate,
		FinanceEligible: m.FinanceEligible,
	}
}

func OptionFromRecord(o model.PricingOption) pricing.Option {
	res := pricing.Option{
		ID:               o.ID,
		Name:             o.Name,
		Category:         o.Category,
		Subcategory:      o.Subcategory,
		Price:            o.Price,
		PricePerFoot:     o.PricePerFoot,
		Weight:           o.Weight,
		VATRate:          o.VATRate,
		IsDefault:        o.IsDefault,
		IsAvailable:      o.IsAvailable,
		PerFootPricing:   o.PerFootPricing,
		ApplicableModels: []string(o.ApplicableModels),
		Dependencies:     []string(o.Dependencies),
		IncompatibleWith: []string(o.IncompatibleWith),
		DisplayOrder:     o.DisplayOrder,
	}
	if o.MaxQuantity != nil {
		res.MaxQuantity = *o.MaxQuantity
	}
	return res
}
