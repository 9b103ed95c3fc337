package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog format. Amounts are strings so they are read
// as exact decimals.
type File struct {
	Models  []ModelEntry  `yaml:"models"`
	Options []OptionEntry `yaml:"options"`
}

type ModelEntry struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Tonnage         string `yaml:"tonnage"`
	BasePrice       string `yaml:"base_price"` // empty: contact for price
	VATRate         string `yaml:"vat_rate"`
	FinanceEligible bool   `yaml:"finance_eligible"`
	DisplayOrder    int    `yaml:"display_order"`
}

type OptionEntry struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	Description      string   `yaml:"description"`
	Category         string   `yaml:"category"`
	Subcategory      string   `yaml:"subcategory"`
	Price            string   `yaml:"price"`
	PricePerFoot     string   `yaml:"price_per_foot"`
	Weight           string   `yaml:"weight"`
	VATRate          string   `yaml:"vat_rate"`
	IsDefault        bool     `yaml:"is_default"`
	Unavailable      bool     `yaml:"unavailable"`
	PerFootPricing   bool     `yaml:"per_foot_pricing"`
	MaxQuantity      int      `yaml:"max_quantity"`
	Models           []string `yaml:"models"`
	Dependencies     []string `yaml:"dependencies"`
	IncompatibleWith []string `yaml:"incompatible_with"`
	DisplayOrder     int      `yaml:"display_order"`
}

// ReadFile decodes a catalog file without validating it.
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a catalog document. Unknown keys are rejected so typos in
// option fields surface at load time.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &file, nil
}

// Load reads, converts and validates a catalog file.
func Load(path string) (*Catalog, error) {
	file, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return file.Catalog()
}

// Catalog validates the file and builds an in-memory catalog.
func (f *File) Catalog() (*Catalog, error) {
	models, options, err := f.Records()
	if err != nil {
		return nil, err
	}
	return FromRecords(models, options)
}

// Records converts the file into database rows, used to seed an empty database.
func (f *File) Records() ([]model.HorseboxModel, []model.PricingOption, error) {
	var errs []error

	models := make([]model.HorseboxModel, 0, len(f.Models))
	for _, e := range f.Models {
		m := model.HorseboxModel{
			ID:              e.ID,
			Name:            e.Name,
			Tonnage:         e.Tonnage,
			FinanceEligible: e.FinanceEligible,
			DisplayOrder:    e.DisplayOrder,
		}
		var err error
		if m.BasePrice, err = optionalAmount(e.BasePrice); err != nil {
			errs = append(errs, fmt.Errorf("model %s: base_price: %w", e.ID, err))
		}
		if m.VATRate, err = optionalAmount(e.VATRate); err != nil {
			errs = append(errs, fmt.Errorf("model %s: vat_rate: %w", e.ID, err))
		}
		models = append(models, m)
	}

	options := make([]model.PricingOption, 0, len(f.Options))
	for _, e := range f.Options {
		o := model.PricingOption{
			ID:               e.ID,
			Name:             e.Name,
			Description:      e.Description,
			Category:         e.Category,
			Subcategory:      e.Subcategory,
			IsDefault:        e.IsDefault,
			IsAvailable:      !e.Unavailable,
			PerFootPricing:   e.PerFootPricing,
			ApplicableModels: pq.StringArray(nonNil(e.Models)),
			Dependencies:     pq.StringArray(nonNil(e.Dependencies)),
			IncompatibleWith: pq.StringArray(nonNil(e.IncompatibleWith)),
			DisplayOrder:     e.DisplayOrder,
		}
		if e.MaxQuantity != 0 {
			maxQty := e.MaxQuantity
			o.MaxQuantity = &maxQty
		}

		price, err := optionalAmount(e.Price)
		if err != nil {
			errs = append(errs, fmt.Errorf("option %s: price: %w", e.ID, err))
		} else if price != nil {
			o.Price = *price
		}
		if o.PricePerFoot, err = optionalAmount(e.PricePerFoot); err != nil {
			errs = append(errs, fmt.Errorf("option %s: price_per_foot: %w", e.ID, err))
		}
		if o.Weight, err = optionalAmount(e.Weight); err != nil {
			errs = append(errs, fmt.Errorf("option %s: weight: %w", e.ID, err))
		}
		if o.VATRate, err = optionalAmount(e.VATRate); err != nil {
			errs = append(errs, fmt.Errorf("option %s: vat_rate: %w", e.ID, err))
		}
		options = append(options, o)
	}

	if len(errs) > 0 {
		return nil, nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return models, options, nil
}

func optionalAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
