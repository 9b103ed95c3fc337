package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Build statuses
const (
	BuildStatusPlanning   = "planning"
	BuildStatusInProgress = "in_progress"
	BuildStatusQuality    = "quality_check"
	BuildStatusCompleted  = "completed"
)

// Build is a production job created from a won (or progressing) deal.
type Build struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BuildNumber          string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"build_number"` // JTH-2026-0001
	LeadID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"lead_id"`
	Lead                 *Lead          `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	ModelID              string         `gorm:"type:varchar(64)" json:"model_id"`
	Status               string         `gorm:"type:varchar(20);not null;default:'planning';index" json:"status"`
	ConfigurationSummary datatypes.JSON `gorm:"type:jsonb" json:"configuration"`
	CreatedBy            string         `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// BuildSequence is the per-year counter behind build numbers. It is advanced
// with a single upsert so concurrent transitions never share a number.
type BuildSequence struct {
	Year      int       `gorm:"primaryKey;autoIncrement:false" json:"year"`
	Value     int       `gorm:"type:int;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
