package pricing

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Model is the priced view of a base vehicle. BasePrice nil means contact for price.
type Model struct {
	ID              string
	Name            string
	Tonnage         string
	BasePrice       *decimal.Decimal
	VATRate         *decimal.Decimal
	FinanceEligible bool
}

// Option is an add-on as the engine sees it. MaxQuantity 0 means unspecified.
type Option struct {
	ID               string
	Name             string
	Category         string
	Subcategory      string
	Price            decimal.Decimal
	PricePerFoot     *decimal.Decimal
	Weight           *decimal.Decimal
	VATRate          *decimal.Decimal
	IsDefault        bool
	IsAvailable      bool
	PerFootPricing   bool
	MaxQuantity      int
	ApplicableModels []string
	Dependencies     []string
	IncompatibleWith []string
	DisplayOrder     int
}

// AppliesTo reports whether the option can be fitted to the given model.
func (o Option) AppliesTo(modelID string) bool {
	return slices.Contains(o.ApplicableModels, modelID)
}

// IncompatibleWithOption reports whether o declares other as incompatible.
func (o Option) IncompatibleWithOption(other string) bool {
	return slices.Contains(o.IncompatibleWith, other)
}

// maxQuantity returns the effective cap and whether one applies.
// Per-foot options without a declared maximum are uncapped.
func (o Option) maxQuantity() (int, bool) {
	if o.MaxQuantity > 0 {
		return o.MaxQuantity, true
	}
	if o.PerFootPricing {
		return 0, false
	}
	return 1, true
}

// footPrice is the per-foot rate. Catalog ingestion guarantees it is set for
// per-foot options; the flat price stands in otherwise.
func (o Option) footPrice() decimal.Decimal {
	if o.PricePerFoot != nil {
		return *o.PricePerFoot
	}
	return o.Price
}

// Selection is one chosen option. For per-foot options Quantity is in feet.
type Selection struct {
	Option   Option
	Quantity int
}

// Line is one option row of a breakdown.
type Line struct {
	OptionID  string          `json:"option_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"line_total"`
	PerFoot   bool            `json:"per_foot"`
	Included  bool            `json:"included"`
}

// Breakdown is the computed price of a configuration. When ContactForPricing
// is set the amounts are zero and must not be displayed.
type Breakdown struct {
	ModelID           string          `json:"model_id"`
	ModelName         string          `json:"model_name"`
	ContactForPricing bool            `json:"contact_for_pricing"`
	BasePrice         decimal.Decimal `json:"base_price"`
	Lines             []Line          `json:"lines"`
	OptionsTotal      decimal.Decimal `json:"options_total"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	VATRate           decimal.Decimal `json:"vat_rate"`
	VAT               decimal.Decimal `json:"vat"`
	Total             decimal.Decimal `json:"total"`
	AddedWeight       decimal.Decimal `json:"added_weight_kg"`
}

// FinanceTerms is a finance quote derived from a breakdown total. Amounts are
// unrounded; call Rounded before display.
type FinanceTerms struct {
	Total          decimal.Decimal `json:"total"`
	DepositPercent int             `json:"deposit_percent"`
	TermMonths     int             `json:"term_months"`
	APR            decimal.Decimal `json:"apr"`
	Deposit        decimal.Decimal `json:"deposit"`
	Principal      decimal.Decimal `json:"principal"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalPayable   decimal.Decimal `json:"total_payable"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
}

// Rounded returns a copy with every amount rounded to pence.
func (f FinanceTerms) Rounded() FinanceTerms {
	f.Total = f.Total.Round(2)
	f.Deposit = f.Deposit.Round(2)
	f.Principal = f.Principal.Round(2)
	f.MonthlyPayment = f.MonthlyPayment.Round(2)
	f.TotalPayable = f.TotalPayable.Round(2)
	f.TotalInterest = f.TotalInterest.Round(2)
	return f
}
