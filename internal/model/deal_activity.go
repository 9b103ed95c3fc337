package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Activity types
const (
	ActivityStageChange = "stage_change"
	ActivityNote        = "note"
	ActivityAutomation  = "automation"
)

// DealActivity is an append-only audit entry for a lead. Rows are never updated.
type DealActivity struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	LeadID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"lead_id"`
	Lead        *Lead             `gorm:"foreignKey:LeadID" json:"-"`
	Type        string            `gorm:"type:varchar(30);not null;index" json:"type"`
	Actor       string            `gorm:"type:varchar(100)" json:"actor"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	DedupeKey   *string           `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}
