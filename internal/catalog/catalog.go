package catalog

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/shopspring/decimal"
)

var categories = []string{
	model.CategoryExterior,
	model.CategoryInterior,
	model.CategorySafety,
	model.CategoryTechnology,
	model.CategoryComfort,
	model.CategoryHorseArea,
}

// Pick is a raw (option id, quantity) pair as submitted by the configurator.
type Pick struct {
	OptionID string `json:"option_id" yaml:"option_id"`
	Quantity int    `json:"quantity" yaml:"quantity"`
}

// Catalog is a validated, read-only snapshot of models and options.
// It implements pricing.CatalogProvider.
type Catalog struct {
	models      map[string]pricing.Model
	modelOrder  []string
	options     map[string]pricing.Option
	optionOrder []string
}

// New validates models and options together and builds a catalog.
// All problems are reported at once.
func New(models []pricing.Model, options []pricing.Option) (*Catalog, error) {
	c := &Catalog{
		models:  make(map[string]pricing.Model, len(models)),
		options: make(map[string]pricing.Option, len(options)),
	}

	var errs []error
	for _, m := range models {
		if err := validateModel(m); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.models[m.ID]; dup {
			errs = append(errs, fmt.Errorf("model %s: duplicate id", m.ID))
			continue
		}
		c.models[m.ID] = m
		c.modelOrder = append(c.modelOrder, m.ID)
	}

	for _, o := range options {
		if _, dup := c.options[o.ID]; dup {
			errs = append(errs, fmt.Errorf("option %s: duplicate id", o.ID))
			continue
		}
		c.options[o.ID] = o
	}
	for _, o := range options {
		if err := c.validateOption(o); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}

	for id := range c.options {
		c.optionOrder = append(c.optionOrder, id)
	}
	sort.Slice(c.optionOrder, func(i, j int) bool {
		a, b := c.options[c.optionOrder[i]], c.options[c.optionOrder[j]]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})

	return c, nil
}

func validateModel(m pricing.Model) error {
	if m.ID == "" {
		return errors.New("model: missing id")
	}
	if m.Name == "" {
		return fmt.Errorf("model %s: missing name", m.ID)
	}
	if m.BasePrice != nil && m.BasePrice.IsNegative() {
		return fmt.Errorf("model %s: negative base price", m.ID)
	}
	if m.VATRate != nil && !validRate(*m.VATRate) {
		return fmt.Errorf("model %s: vat rate %s outside [0,1]", m.ID, m.VATRate)
	}
	return nil
}

func (c *Catalog) validateOption(o pricing.Option) error {
	if o.ID == "" {
		return errors.New("option: missing id")
	}
	var errs []error
	if o.Name == "" {
		errs = append(errs, errors.New("missing name"))
	}
	if !slices.Contains(categories, o.Category) {
		errs = append(errs, fmt.Errorf("unknown category %q", o.Category))
	}
	if o.Price.IsNegative() {
		errs = append(errs, errors.New("negative price"))
	}
	if o.PerFootPricing {
		if o.PricePerFoot == nil {
			errs = append(errs, errors.New("per-foot pricing without price_per_foot"))
		} else if o.PricePerFoot.IsNegative() {
			errs = append(errs, errors.New("negative price_per_foot"))
		}
	}
	if o.Weight != nil && o.Weight.IsNegative() {
		errs = append(errs, errors.New("negative weight"))
	}
	if o.VATRate != nil && !validRate(*o.VATRate) {
		errs = append(errs, fmt.Errorf("vat rate %s outside [0,1]", o.VATRate))
	}
	if o.MaxQuantity < 0 {
		errs = append(errs, errors.New("negative max_quantity"))
	}
	if slices.Contains(o.IncompatibleWith, o.ID) {
		errs = append(errs, errors.New("listed in its own incompatible_with"))
	}
	if slices.Contains(o.Dependencies, o.ID) {
		errs = append(errs, errors.New("depends on itself"))
	}
	for _, dep := range o.Dependencies {
		if _, ok := c.options[dep]; !ok {
			errs = append(errs, fmt.Errorf("unknown dependency %s", dep))
		}
		if slices.Contains(o.IncompatibleWith, dep) {
			errs = append(errs, fmt.Errorf("both depends on and excludes %s", dep))
		}
	}
	for _, other := range o.IncompatibleWith {
		if _, ok := c.options[other]; !ok {
			errs = append(errs, fmt.Errorf("unknown incompatible option %s", other))
		}
	}
	for _, id := range o.ApplicableModels {
		if _, ok := c.models[id]; !ok {
			errs = append(errs, fmt.Errorf("unknown model %s", id))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("option %s: %w", o.ID, errors.Join(errs...))
	}
	return nil
}

func validRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}

// Model looks up a model by id.
func (c *Catalog) Model(id string) (pricing.Model, bool) {
	m, ok := c.models[id]
	return m, ok
}

// Option looks up an option by id.
func (c *Catalog) Option(id string) (pricing.Option, bool) {
	o, ok := c.options[id]
	return o, ok
}

// Models returns every model in catalog order.
func (c *Catalog) Models() []pricing.Model {
	res := make([]pricing.Model, 0, len(c.modelOrder))
	for _, id := range c.modelOrder {
		res = append(res, c.models[id])
	}
	return res
}

// OptionsForModel returns the available options that fit a model, in display order.
func (c *Catalog) OptionsForModel(modelID string) []pricing.Option {
	var res []pricing.Option
	for _, id := range c.optionOrder {
		o := c.options[id]
		if o.IsAvailable && o.AppliesTo(modelID) {
			res = append(res, o)
		}
	}
	return res
}

// DefaultOptions implements pricing.CatalogProvider.
func (c *Catalog) DefaultOptions(modelID string) []pricing.Option {
	var res []pricing.Option
	for _, o := range c.OptionsForModel(modelID) {
		if o.IsDefault {
			res = append(res, o)
		}
	}
	return res
}

// Resolve turns raw picks into engine selections for a model.
func (c *Catalog) Resolve(modelID string, picks []Pick) (pricing.Model, []pricing.Selection, error) {
	m, ok := c.models[modelID]
	if !ok {
		return pricing.Model{}, nil, fmt.Errorf("%w: %s", pricing.ErrUnknownModel, modelID)
	}

	selections := make([]pricing.Selection, 0, len(picks))
	for _, p := range picks {
		o, ok := c.options[p.OptionID]
		if !ok {
			return pricing.Model{}, nil, fmt.Errorf("%w: %s", pricing.ErrUnknownOption, p.OptionID)
		}
		selections = append(selections, pricing.Selection{Option: o, Quantity: p.Quantity})
	}
	return m, selections, nil
}
