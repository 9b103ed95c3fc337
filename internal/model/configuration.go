package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SavedConfiguration is a configurator selection the customer chose to keep.
// The breakdown is a snapshot; it is recomputed whenever it is displayed again.
type SavedConfiguration struct {
	ID        uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ModelID   string                     `gorm:"type:varchar(64);not null;index" json:"model_id"`
	Model     *HorseboxModel             `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	Email     string                     `gorm:"type:varchar(255);index" json:"email"`
	ViewAngle string                     `gorm:"type:varchar(20)" json:"view_angle"`
	Total     *decimal.Decimal           `gorm:"type:decimal(12,2)" json:"total"`
	Breakdown datatypes.JSON             `gorm:"type:jsonb" json:"breakdown"`
	Options   []SavedConfigurationOption `gorm:"foreignKey:ConfigurationID" json:"options"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// SavedConfigurationOption is one (option, quantity) pair of a saved configuration.
// Pricing options referenced here cannot be deleted, only disabled.
type SavedConfigurationOption struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConfigurationID uuid.UUID `gorm:"type:uuid;not null;index" json:"configuration_id"`
	OptionID        string    `gorm:"type:varchar(64);not null;index" json:"option_id"`
	Quantity        int       `gorm:"type:int;not null" json:"quantity"`
}
