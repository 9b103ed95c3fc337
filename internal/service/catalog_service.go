package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/shopspring/decimal"
)

// DefaultCatalogTTL bounds how stale a cached catalog can get when another
// instance edits options.
const DefaultCatalogTTL = time.Minute

// --- DTOs ---

type ModelResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Tonnage           string  `json:"tonnage"`
	BasePrice         *string `json:"base_price"`
	ContactForPricing bool    `json:"contact_for_pricing"`
	FinanceEligible   bool    `json:"finance_eligible"`
}

type OptionResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory,omitempty"`
	Price            string   `json:"price"`
	PricePerFoot     *string  `json:"price_per_foot,omitempty"`
	Weight           *string  `json:"weight_kg,omitempty"`
	VATRate          *string  `json:"vat_rate,omitempty"`
	IsDefault        bool     `json:"is_default"`
	IsAvailable      bool     `json:"is_available"`
	PerFootPricing   bool     `json:"per_foot_pricing"`
	MaxQuantity      *int     `json:"max_quantity,omitempty"`
	ApplicableModels []string `json:"applicable_models"`
	Dependencies     []string `json:"dependencies"`
	IncompatibleWith []string `json:"incompatible_with"`
}

type PriceRequest struct {
	ModelID string         `json:"model_id" binding:"required"`
	Options []catalog.Pick `json:"options"`
}

type LineResponse struct {
	OptionID  string `json:"option_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
	PerFoot   bool   `json:"per_foot"`
	Included  bool   `json:"included"`
}

// BreakdownResponse renders a pricing.Breakdown with amounts as fixed two
// decimal strings. Amount fields are omitted for contact-for-price models.
type BreakdownResponse struct {
	ModelID           string         `json:"model_id"`
	ModelName         string         `json:"model_name"`
	ContactForPricing bool           `json:"contact_for_pricing"`
	BasePrice         string         `json:"base_price,omitempty"`
	Lines             []LineResponse `json:"lines"`
	OptionsTotal      string         `json:"options_total,omitempty"`
	Subtotal          string         `json:"subtotal,omitempty"`
	VATRate           string         `json:"vat_rate,omitempty"`
	VAT               string         `json:"vat,omitempty"`
	Total             string         `json:"total,omitempty"`
	AddedWeightKg     string         `json:"added_weight_kg"`
}

type FinanceRequest struct {
	Total          string `json:"total" binding:"required"`
	DepositPercent int    `json:"deposit_percent" binding:"required"`
	TermMonths     int    `json:"term_months" binding:"required"`
}

type FinanceResponse struct {
	Total          string `json:"total"`
	DepositPercent int    `json:"deposit_percent"`
	TermMonths     int    `json:"term_months"`
	APR            string `json:"apr"`
	Deposit        string `json:"deposit"`
	Principal      string `json:"principal"`
	MonthlyPayment string `json:"monthly_payment"`
	TotalPayable   string `json:"total_payable"`
	TotalInterest  string `json:"total_interest"`
}

// --- Interface ---

type CatalogService interface {
	ListModels(ctx context.Context) ([]ModelResponse, error)
	ListOptions(ctx context.Context, modelID string) ([]OptionResponse, error)
	Price(ctx context.Context, req PriceRequest) (BreakdownResponse, error)
	Finance(ctx context.Context, req FinanceRequest) (FinanceResponse, error)
	// Compute prices a configuration and returns the raw breakdown.
	Compute(ctx context.Context, modelID string, picks []catalog.Pick) (pricing.Breakdown, error)
	// Snapshot returns the current validated catalog and its engine.
	Snapshot(ctx context.Context) (*catalog.Catalog, *pricing.Engine, error)
	// Invalidate drops the cached catalog; the next call reloads it.
	Invalidate()
}

type catalogSnapshot struct {
	catalog   *catalog.Catalog
	engine    *pricing.Engine
	expiresAt time.Time
}

type catalogService struct {
	repo     repository.CatalogRepository
	settings pricing.Settings
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	current *catalogSnapshot
}

func NewCatalogService(repo repository.CatalogRepository, settings pricing.Settings, ttl time.Duration) CatalogService {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &catalogService{repo: repo, settings: settings, ttl: ttl, now: time.Now}
}

// --- Implementation ---

func (s *catalogService) Snapshot(ctx context.Context) (*catalog.Catalog, *pricing.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.now().Before(s.current.expiresAt) {
		return s.current.catalog, s.current.engine, nil
	}

	models, err := s.repo.ListModels(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load models: %w", err)
	}
	options, err := s.repo.ListOptions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load options: %w", err)
	}

	c, err := catalog.FromRecords(models, options)
	if err != nil {
		return nil, nil, err
	}

	s.current = &catalogSnapshot{
		catalog:   c,
		engine:    pricing.NewEngine(c, s.settings),
		expiresAt: s.now().Add(s.ttl),
	}
	return s.current.catalog, s.current.engine, nil
}

func (s *catalogService) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *catalogService) ListModels(ctx context.Context) ([]ModelResponse, error) {
	c, _, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	models := c.Models()
	res := make([]ModelResponse, 0, len(models))
	for _, m := range models {
		res = append(res, toModelResponse(m))
	}
	return res, nil
}

func (s *catalogService) ListOptions(ctx context.Context, modelID string) ([]OptionResponse, error) {
	c, _, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Model(modelID); !ok {
		return nil, fmt.Errorf("%w: %s", pricing.ErrUnknownModel, modelID)
	}

	options := c.OptionsForModel(modelID)
	res := make([]OptionResponse, 0, len(options))
	for _, o := range options {
		res = append(res, toOptionResponse(o))
	}
	return res, nil
}

func (s *catalogService) Compute(ctx context.Context, modelID string, picks []catalog.Pick) (pricing.Breakdown, error) {
	c, engine, err := s.Snapshot(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	m, selections, err := c.Resolve(modelID, picks)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return engine.ComputePrice(m, selections)
}

func (s *catalogService) Price(ctx context.Context, req PriceRequest) (BreakdownResponse, error) {
	b, err := s.Compute(ctx, req.ModelID, req.Options)
	if err != nil {
		return BreakdownResponse{}, err
	}
	return ToBreakdownResponse(b), nil
}

func (s *catalogService) Finance(ctx context.Context, req FinanceRequest) (FinanceResponse, error) {
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		return FinanceResponse{}, fmt.Errorf("%w: invalid total: %v", ErrInvalidInput, err)
	}

	_, engine, err := s.Snapshot(ctx)
	if err != nil {
		return FinanceResponse{}, err
	}

	terms, err := engine.ComputeFinance(total, req.DepositPercent, req.TermMonths)
	if err != nil {
		return FinanceResponse{}, err
	}
	return ToFinanceResponse(terms), nil
}

// --- Helpers ---

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func toModelResponse(m pricing.Model) ModelResponse {
	return ModelResponse{
		ID:                m.ID,
		Name:              m.Name,
		Tonnage:           m.Tonnage,
		BasePrice:         optionalMoney(m.BasePrice),
		ContactForPricing: m.BasePrice == nil,
		FinanceEligible:   m.FinanceEligible,
	}
}

func toOptionResponse(o pricing.Option) OptionResponse {
	res := OptionResponse{
		ID:               o.ID,
		Name:             o.Name,
		Category:         o.Category,
		Subcategory:      o.Subcategory,
		Price:            money(o.Price),
		PricePerFoot:     optionalMoney(o.PricePerFoot),
		Weight:           optionalMoney(o.Weight),
		IsDefault:        o.IsDefault,
		IsAvailable:      o.IsAvailable,
		PerFootPricing:   o.PerFootPricing,
		ApplicableModels: nonNilStrings(o.ApplicableModels),
		Dependencies:     nonNilStrings(o.Dependencies),
		IncompatibleWith: nonNilStrings(o.IncompatibleWith),
	}
	if o.VATRate != nil {
		rate := o.VATRate.StringFixed(4)
		res.VATRate = &rate
	}
	if o.MaxQuantity > 0 {
		limit := o.MaxQuantity
		res.MaxQuantity = &limit
	}
	return res
}

// ToBreakdownResponse renders a breakdown for API clients.
func ToBreakdownResponse(b pricing.Breakdown) BreakdownResponse {
	res := BreakdownResponse{
		ModelID:           b.ModelID,
		ModelName:         b.ModelName,
		ContactForPricing: b.ContactForPricing,
		Lines:             make([]LineResponse, 0, len(b.Lines)),
		AddedWeightKg:     money(b.AddedWeight),
	}
	for _, l := range b.Lines {
		res.Lines = append(res.Lines, LineResponse{
			OptionID:  l.OptionID,
			Name:      l.Name,
			Category:  l.Category,
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			LineTotal: money(l.Total),
			PerFoot:   l.PerFoot,
			Included:  l.Included,
		})
	}
	if b.ContactForPricing {
		return res
	}

	res.BasePrice = money(b.BasePrice)
	res.OptionsTotal = money(b.OptionsTotal)
	res.Subtotal = money(b.Subtotal)
	res.VATRate = b.VATRate.StringFixed(4)
	res.VAT = money(b.VAT)
	res.Total = money(b.Total)
	return res
}

// toBreakdown reads a rendered breakdown back into amounts. Omitted amounts
// are zero.
func (r BreakdownResponse) toBreakdown() (pricing.Breakdown, error) {
	var err error
	amount := func(field, v string) decimal.Decimal {
		if v == "" || err != nil {
			return decimal.Zero
		}
		d, perr := decimal.NewFromString(v)
		if perr != nil {
			err = fmt.Errorf("invalid %s %q: %w", field, v, perr)
		}
		return d
	}

	b := pricing.Breakdown{
		ModelID:           r.ModelID,
		ModelName:         r.ModelName,
		ContactForPricing: r.ContactForPricing,
		Lines:             make([]pricing.Line, 0, len(r.Lines)),
		BasePrice:         amount("base_price", r.BasePrice),
		OptionsTotal:      amount("options_total", r.OptionsTotal),
		Subtotal:          amount("subtotal", r.Subtotal),
		VATRate:           amount("vat_rate", r.VATRate),
		VAT:               amount("vat", r.VAT),
		Total:             amount("total", r.Total),
		AddedWeight:       amount("added_weight_kg", r.AddedWeightKg),
	}
	for _, l := range r.Lines {
		b.Lines = append(b.Lines, pricing.Line{
			OptionID:  l.OptionID,
			Name:      l.Name,
			Category:  l.Category,
			UnitPrice: amount("unit_price", l.UnitPrice),
			Quantity:  l.Quantity,
			Total:     amount("line_total", l.LineTotal),
			PerFoot:   l.PerFoot,
			Included:  l.Included,
		})
	}
	return b, err
}

// ToFinanceResponse renders finance terms rounded to pence.
func ToFinanceResponse(f pricing.FinanceTerms) FinanceResponse {
	r := f.Rounded()
	return FinanceResponse{
		Total:          money(r.Total),
		DepositPercent: r.DepositPercent,
		TermMonths:     r.TermMonths,
		APR:            r.APR.StringFixed(1),
		Deposit:        money(r.Deposit),
		Principal:      money(r.Principal),
		MonthlyPayment: money(r.MonthlyPayment),
		TotalPayable:   money(r.TotalPayable),
		TotalInterest:  money(r.TotalInterest),
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
