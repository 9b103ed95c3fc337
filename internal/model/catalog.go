package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Option categories
const (
	CategoryExterior   = "exterior"
	CategoryInterior   = "interior"
	CategorySafety     = "safety"
	CategoryTechnology = "technology"
	CategoryComfort    = "comfort"
	CategoryHorseArea  = "horse_area"
)

// HorseboxModel is a purchasable base vehicle. A nil BasePrice means the model
// is sold on a contact-for-price basis.
type HorseboxModel struct {
	ID              string           `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name            string           `gorm:"type:varchar(255);not null" json:"name"`
	Tonnage         string           `gorm:"type:varchar(10);not null;index" json:"tonnage"`
	BasePrice       *decimal.Decimal `gorm:"type:decimal(12,2)" json:"base_price"`
	VATRate         *decimal.Decimal `gorm:"type:decimal(6,4)" json:"vat_rate,omitempty"`
	FinanceEligible bool             `gorm:"not null;default:false" json:"finance_eligible"` // Pioneer package / finance offers
	DisplayOrder    int              `gorm:"not null;default:0" json:"display_order"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PricingOption is an add-on selectable for one or more models.
type PricingOption struct {
	ID               string           `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name             string           `gorm:"type:varchar(255);not null" json:"name"`
	Description      string           `gorm:"type:text" json:"description"`
	Category         string           `gorm:"type:varchar(20);not null;index" json:"category"`
	Subcategory      string           `gorm:"type:varchar(50)" json:"subcategory"`
	Price            decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	PricePerFoot     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"price_per_foot,omitempty"`
	Weight           *decimal.Decimal `gorm:"type:decimal(8,2)" json:"weight,omitempty"` // kg
	VATRate          *decimal.Decimal `gorm:"type:decimal(6,4)" json:"vat_rate,omitempty"`
	IsDefault        bool             `gorm:"not null;default:false" json:"is_default"`
	IsAvailable      bool             `gorm:"not null;index" json:"is_available"`
	PerFootPricing   bool             `gorm:"not null;default:false" json:"per_foot_pricing"`
	MaxQuantity      *int             `gorm:"type:int" json:"max_quantity,omitempty"`
	ApplicableModels pq.StringArray   `gorm:"type:text[];not null;default:'{}'" json:"applicable_models"`
	Dependencies     pq.StringArray   `gorm:"type:text[];not null;default:'{}'" json:"dependencies"`
	IncompatibleWith pq.StringArray   `gorm:"type:text[];not null;default:'{}'" json:"incompatible_with"`
	DisplayOrder     int              `gorm:"not null;default:0" json:"display_order"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
