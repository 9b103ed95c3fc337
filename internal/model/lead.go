package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Lead sources
const (
	LeadSourceConfigurator = "configurator"
	LeadSourceContactForm  = "contact_form"
	LeadSourceBrochure     = "brochure"
	LeadSourceManual       = "manual"
)

// Lead is a sales prospect. Stage is only ever written through the pipeline
// stage machine so that activity logging and automations cannot be bypassed.
type Lead struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FirstName            string         `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName             string         `gorm:"type:varchar(100)" json:"last_name"`
	Email                string         `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone                string         `gorm:"type:varchar(50)" json:"phone"`
	Postcode             string         `gorm:"type:varchar(20)" json:"postcode"`
	Company              string         `gorm:"type:varchar(255)" json:"company"`
	Source               string         `gorm:"type:varchar(30);not null;default:'manual'" json:"source"`
	Message              string         `gorm:"type:text" json:"message"`
	Stage                string         `gorm:"type:varchar(30);not null;default:'inquiry';index" json:"stage"`
	OwnerID              *uuid.UUID     `gorm:"type:uuid;index" json:"owner_id"`
	Score                int            `gorm:"type:int;not null;default:0" json:"score"`
	ConfiguratorSnapshot datatypes.JSON `gorm:"type:jsonb" json:"configurator_snapshot"`
	ConfigurationLocked  bool           `gorm:"not null;default:false" json:"configuration_locked"`
	FinanceInterest      bool           `gorm:"not null;default:false" json:"finance_interest"`
	MarketingConsent     bool           `gorm:"not null;default:false" json:"marketing_consent"`

	// Optimistic concurrency for stage writes.
	Version int `gorm:"type:int;not null;default:1" json:"version"`

	// Operator flags. Set when a committed transition could not complete
	// its audit trail or one of its automations.
	AuditIncomplete  bool `gorm:"not null;default:false" json:"audit_incomplete"`
	AutomationFailed bool `gorm:"not null;default:false" json:"automation_failed"`

	// Outbox marker: written together with the stage, cleared once the
	// transition's automations have been processed.
	PendingTransitionKey string     `gorm:"type:varchar(64)" json:"pending_transition_key,omitempty"`
	PendingFromStage     string     `gorm:"type:varchar(30)" json:"pending_from_stage,omitempty"`
	PendingToStage       string     `gorm:"type:varchar(30)" json:"pending_to_stage,omitempty"`
	LastTransitionAt     *time.Time `json:"last_transition_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins the contact's first and last name.
func (l Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}
