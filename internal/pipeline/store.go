package pipeline

import (
	"context"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
)

// StageUpdate is the single write that commits a transition: the new stage,
// a version bump and the pending-automation marker.
type StageUpdate struct {
	LeadID          uuid.UUID
	From            Stage
	To              Stage
	ExpectedVersion int
	TransitionKey   string
	At              time.Time
}

// TransitionOutcome writes the lead's operator flags and, when ClearMarker
// still names the lead's pending marker, clears that marker.
type TransitionOutcome struct {
	LeadID           uuid.UUID
	ClearMarker      string
	AuditIncomplete  bool
	AutomationFailed bool
}

// Store is the persistence the stage machine needs. Every call either fully
// succeeds or fully fails; nothing is transactional across calls.
type Store interface {
	// GetLead returns ErrLeadNotFound when the lead does not exist.
	GetLead(ctx context.Context, id uuid.UUID) (*model.Lead, error)
	// UpdateLeadStage returns ErrVersionConflict when ExpectedVersion is stale.
	UpdateLeadStage(ctx context.Context, u StageUpdate) error
	// InsertActivity ignores a record whose DedupeKey was already written.
	InsertActivity(ctx context.Context, a *model.DealActivity) error
	ListActiveAutomations(ctx context.Context, from, to Stage) ([]model.PipelineAutomationRule, error)
	// NextBuildSequence atomically advances and returns the year's counter.
	NextBuildSequence(ctx context.Context, year int) (int, error)
	InsertBuild(ctx context.Context, b *model.Build) error
	LockConfiguration(ctx context.Context, leadID uuid.UUID) error
	// FindAutomationRun returns nil, nil when no run exists for the key.
	FindAutomationRun(ctx context.Context, runKey string) (*model.AutomationRun, error)
	SaveAutomationRun(ctx context.Context, run *model.AutomationRun) error
	// ListUnresolvedTransitions returns the lead's outbox entries, oldest first.
	ListUnresolvedTransitions(ctx context.Context, leadID uuid.UUID) ([]model.UnresolvedTransition, error)
	// SaveUnresolvedTransition inserts the entry or overwrites its flags.
	SaveUnresolvedTransition(ctx context.Context, t *model.UnresolvedTransition) error
	ResolveTransition(ctx context.Context, transitionKey string) error
	CompleteTransition(ctx context.Context, o TransitionOutcome) error
}

// EmailIntent asks the notifier to send one templated email.
type EmailIntent struct {
	LeadID   uuid.UUID
	Template string
	To       string
	Subject  string
	Data     map[string]string
}

// Notifier accepts email intents without waiting for delivery. An error
// means the intent could not be queued.
type Notifier interface {
	Notify(ctx context.Context, intent EmailIntent) error
}

// Event is published after a transition for live dashboards.
type Event struct {
	Type          string    `json:"type"`
	LeadID        string    `json:"lead_id"`
	PreviousStage string    `json:"previous_stage"`
	NewStage      string    `json:"new_stage"`
	Actor         string    `json:"actor"`
	Warnings      int       `json:"warnings"`
	At            time.Time `json:"at"`
}

// Publisher fans events out; it must not block.
type Publisher interface {
	Publish(e Event)
}
