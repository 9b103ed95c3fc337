package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreatePricingOption  = "CREATE_PRICING_OPTION"
	ActionUpdatePricingOption  = "UPDATE_PRICING_OPTION"
	ActionDeletePricingOption  = "DELETE_PRICING_OPTION"
	ActionDisablePricingOption = "DISABLE_PRICING_OPTION"

	ActionCreateAutomationRule = "CREATE_AUTOMATION_RULE"
	ActionUpdateAutomationRule = "UPDATE_AUTOMATION_RULE"
	ActionDeleteAutomationRule = "DELETE_AUTOMATION_RULE"

	ActionUpdateLeadConfiguration = "UPDATE_LEAD_CONFIGURATION"
	ActionResumeAutomations       = "RESUME_AUTOMATIONS"
)

// AuditLog tracks Who, What, and When for back-office changes. Actor is the
// subject claim of the caller's token, or empty for system jobs.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Actor      string    `gorm:"type:varchar(100);index" json:"actor"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(64);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
