package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// DefaultVATRate is the UK standard rate.
	DefaultVATRate = decimal.RequireFromString("0.20")
	// DefaultAPR is the representative APR shown on finance quotes, in percent.
	DefaultAPR = decimal.RequireFromString("7.9")
)

// CatalogProvider supplies the catalog data the engine needs beyond the
// caller's selections.
type CatalogProvider interface {
	// DefaultOptions returns the default options fitted to a model,
	// in display order.
	DefaultOptions(modelID string) []Option
}

// Settings configures an Engine. Zero values fall back to the defaults.
type Settings struct {
	VATRate decimal.Decimal
	APR     decimal.Decimal
}

// Engine computes configuration prices and finance quotes. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog CatalogProvider
	vatRate decimal.Decimal
	apr     decimal.Decimal
}

func NewEngine(catalog CatalogProvider, settings Settings) *Engine {
	e := &Engine{catalog: catalog, vatRate: settings.VATRate, apr: settings.APR}
	if e.vatRate.IsZero() {
		e.vatRate = DefaultVATRate
	}
	if e.apr.IsZero() {
		e.apr = DefaultAPR
	}
	return e
}

// APR returns the annual percentage rate used for finance quotes.
func (e *Engine) APR() decimal.Decimal {
	return e.apr
}

// ComputePrice validates the selections against the model and returns the
// price breakdown. Validation runs fully before any amount is computed.
func (e *Engine) ComputePrice(m Model, selections []Selection) (Breakdown, error) {
	merged := mergeSelections(selections)
	if err := validateSelections(m, selections, merged); err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		ModelID:      m.ID,
		ModelName:    m.Name,
		Lines:        []Line{},
		OptionsTotal: decimal.Zero,
		AddedWeight:  decimal.Zero,
	}
	if m.BasePrice == nil {
		b.ContactForPricing = true
		return b, nil
	}
	b.BasePrice = *m.BasePrice

	selected := make(map[string]bool, len(merged))
	for _, s := range merged {
		selected[s.Option.ID] = true
	}

	// Defaults fitted as standard come first and are part of the base price.
	var fitted []Option
	if e.catalog != nil {
		for _, o := range e.catalog.DefaultOptions(m.ID) {
			if selected[o.ID] || !o.IsDefault || !o.IsAvailable || !o.AppliesTo(m.ID) {
				continue
			}
			fitted = append(fitted, o)
			b.Lines = append(b.Lines, includedLine(o, 1))
			b.AddedWeight = b.AddedWeight.Add(weightOf(o, 1))
		}
	}

	for _, s := range merged {
		var line Line
		switch {
		case s.Option.IsDefault:
			line = includedLine(s.Option, s.Quantity)
		case s.Option.PerFootPricing:
			line = Line{UnitPrice: s.Option.footPrice(), PerFoot: true}
		default:
			line = Line{UnitPrice: s.Option.Price}
		}
		line.OptionID = s.Option.ID
		line.Name = s.Option.Name
		line.Category = s.Option.Category
		line.Quantity = s.Quantity
		if !line.Included {
			line.Total = line.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
		}

		b.Lines = append(b.Lines, line)
		b.OptionsTotal = b.OptionsTotal.Add(line.Total)
		b.AddedWeight = b.AddedWeight.Add(weightOf(s.Option, s.Quantity))
	}

	b.Subtotal = b.BasePrice.Add(b.OptionsTotal)
	b.VATRate = e.vatRateFor(m, merged, fitted)
	b.VAT = b.Subtotal.Mul(b.VATRate).Round(2)
	b.Total = b.Subtotal.Add(b.VAT)

	return b, nil
}

// vatRateFor picks the first option override in selection order, then the
// first among defaults fitted as standard, then the model's own rate, then
// the engine default.
func (e *Engine) vatRateFor(m Model, selections []Selection, fitted []Option) decimal.Decimal {
	for _, s := range selections {
		if s.Option.VATRate != nil {
			return *s.Option.VATRate
		}
	}
	for _, o := range fitted {
		if o.VATRate != nil {
			return *o.VATRate
		}
	}
	if m.VATRate != nil {
		return *m.VATRate
	}
	return e.vatRate
}

func includedLine(o Option, quantity int) Line {
	return Line{
		OptionID:  o.ID,
		Name:      o.Name,
		Category:  o.Category,
		UnitPrice: decimal.Zero,
		Quantity:  quantity,
		Total:     decimal.Zero,
		PerFoot:   o.PerFootPricing,
		Included:  true,
	}
}

func weightOf(o Option, quantity int) decimal.Decimal {
	if o.Weight == nil {
		return decimal.Zero
	}
	return o.Weight.Mul(decimal.NewFromInt(int64(quantity)))
}

// mergeSelections folds repeated selections of one option into a single
// entry, keeping first-seen order.
func mergeSelections(selections []Selection) []Selection {
	merged := make([]Selection, 0, len(selections))
	index := make(map[string]int, len(selections))
	for _, s := range selections {
		if i, ok := index[s.Option.ID]; ok {
			merged[i].Quantity += s.Quantity
			continue
		}
		index[s.Option.ID] = len(merged)
		merged = append(merged, s)
	}
	return merged
}

func validateSelections(m Model, raw, merged []Selection) error {
	for _, s := range merged {
		if !s.Option.IsAvailable || !s.Option.AppliesTo(m.ID) {
			return fmt.Errorf("%w: %s on %s", ErrOptionNotApplicable, s.Option.ID, m.ID)
		}
	}

	for _, s := range raw {
		if s.Quantity < 1 {
			return fmt.Errorf("%w: %s has quantity %d", ErrInvalidQuantity, s.Option.ID, s.Quantity)
		}
	}
	for _, s := range merged {
		if limit, capped := s.Option.maxQuantity(); capped && s.Quantity > limit {
			return fmt.Errorf("%w: %s allows %d, got %d", ErrQuantityExceeded, s.Option.ID, limit, s.Quantity)
		}
	}

	selected := make(map[string]bool, len(merged))
	for _, s := range merged {
		selected[s.Option.ID] = true
	}
	for _, s := range merged {
		for _, dep := range s.Option.Dependencies {
			if !selected[dep] {
				return fmt.Errorf("%w: %s requires %s", ErrMissingDependency, s.Option.ID, dep)
			}
		}
	}

	for i, a := range merged {
		for _, b := range merged[i+1:] {
			if a.Option.IncompatibleWithOption(b.Option.ID) || b.Option.IncompatibleWithOption(a.Option.ID) {
				return fmt.Errorf("%w: %s and %s", ErrIncompatibleOptions, a.Option.ID, b.Option.ID)
			}
		}
	}

	return nil
}
