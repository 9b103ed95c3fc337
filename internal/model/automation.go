package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Automation action types
const (
	ActionTypeCreateBuild       = "create_build"
	ActionTypeSendEmail         = "send_email"
	ActionTypeLockConfiguration = "lock_configuration"
)

// AutomationAction is one step of a rule. Params are action specific,
// e.g. {"template": "deal_won", "to": "production@..."} for send_email.
type AutomationAction struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// PipelineAutomationRule maps an exact (from, to) stage pair to an ordered
// list of actions.
type PipelineAutomationRule struct {
	ID          uuid.UUID                             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string                                `gorm:"type:varchar(255);not null" json:"name"`
	FromStage   string                                `gorm:"type:varchar(30);not null;index:idx_rule_pair" json:"from_stage"`
	ToStage     string                                `gorm:"type:varchar(30);not null;index:idx_rule_pair" json:"to_stage"`
	Actions     datatypes.JSONSlice[AutomationAction] `gorm:"type:jsonb;not null" json:"actions"`
	Active      bool                                  `gorm:"not null;index" json:"active"`
	Priority    int                                   `gorm:"type:int;not null;default:0" json:"priority"`
	Description string                                `gorm:"type:text" json:"description"`
	CreatedAt   time.Time                             `json:"created_at"`
	UpdatedAt   time.Time                             `json:"updated_at"`
}

// Automation run statuses
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)

// AutomationRun records the outcome of one action of one rule for one
// transition. RunKey is unique so a resumed transition never repeats an
// action that already succeeded.
type AutomationRun struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RunKey        string    `gorm:"type:varchar(160);uniqueIndex;not null" json:"run_key"`
	LeadID        uuid.UUID `gorm:"type:uuid;not null;index" json:"lead_id"`
	RuleID        uuid.UUID `gorm:"type:uuid;not null;index" json:"rule_id"`
	TransitionKey string    `gorm:"type:varchar(64);not null;index" json:"transition_key"`
	ActionIndex   int       `gorm:"type:int;not null" json:"action_index"`
	ActionType    string    `gorm:"type:varchar(30);not null" json:"action_type"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	Error         string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UnresolvedTransition is an outbox entry for a committed transition whose
// stage_change entry or automations did not all succeed. It is deleted once
// a resume brings the transition through cleanly. A lead's AuditIncomplete
// and AutomationFailed flags are the union over its entries.
type UnresolvedTransition struct {
	TransitionKey    string    `gorm:"type:varchar(64);primaryKey" json:"transition_key"`
	LeadID           uuid.UUID `gorm:"type:uuid;not null;index" json:"lead_id"`
	FromStage        string    `gorm:"type:varchar(30);not null" json:"from_stage"`
	ToStage          string    `gorm:"type:varchar(30);not null" json:"to_stage"`
	AuditIncomplete  bool      `gorm:"not null;default:false" json:"audit_incomplete"`
	AutomationFailed bool      `gorm:"not null;default:false" json:"automation_failed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
