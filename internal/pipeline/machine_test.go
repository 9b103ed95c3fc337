package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestMachine(store Store, notifier Notifier) (*Machine, *recordingPublisher) {
	pub := &recordingPublisher{}
	m := NewMachine(store, notifier, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return fixedNow }
	return m, pub
}

func TestTransition_NegotiationToClosedWonCreatesBuild(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageNegotiation)
	store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeCreateBuild, model.ActionTypeLockConfiguration)
	m, pub := newTestMachine(store, &recordingNotifier{})

	res, err := m.Transition(context.Background(), lead.ID, "closed_won", "sales@jth")
	require.NoError(t, err)

	assert.Equal(t, StageNegotiation, res.PreviousStage)
	assert.Equal(t, StageClosedWon, res.NewStage)
	assert.Empty(t, res.Warnings)
	assert.False(t, res.AutomationFailed)

	require.Len(t, res.Builds, 1)
	assert.Equal(t, "JTH-2026-0001", res.Builds[0].BuildNumber)
	assert.Equal(t, "professional-35", res.Builds[0].ModelID)
	assert.Equal(t, lead.ID, res.Builds[0].LeadID)
	assert.Equal(t, model.BuildStatusPlanning, res.Builds[0].Status)

	stored := store.leads[lead.ID]
	assert.Equal(t, string(StageClosedWon), stored.Stage)
	assert.Equal(t, 2, stored.Version)
	assert.True(t, stored.ConfigurationLocked)
	assert.Empty(t, stored.PendingTransitionKey)

	changes := store.stageChanges(lead.ID)
	require.Len(t, changes, 1)
	assert.Equal(t, "negotiation", changes[0].Metadata["previous_stage"])
	assert.Equal(t, "closed_won", changes[0].Metadata["new_stage"])
	assert.Equal(t, "sales@jth", changes[0].Actor)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "lead.stage_changed", pub.events[0].Type)
}

func TestTransition_BuildNumbersAreSequentialPerYear(t *testing.T) {
	store := newMemStore()
	store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeCreateBuild)
	m, _ := newTestMachine(store, nil)

	var numbers []string
	for i := 0; i < 3; i++ {
		lead := store.addLead(StageNegotiation)
		res, err := m.Transition(context.Background(), lead.ID, "closed_won", "ops")
		require.NoError(t, err)
		require.Len(t, res.Builds, 1)
		numbers = append(numbers, res.Builds[0].BuildNumber)
	}
	assert.Equal(t, []string{"JTH-2026-0001", "JTH-2026-0002", "JTH-2026-0003"}, numbers)
}

func TestTransition_TerminalStageIsLocked(t *testing.T) {
	for _, stage := range []Stage{StageClosedWon, StageClosedLost} {
		t.Run(string(stage), func(t *testing.T) {
			store := newMemStore()
			lead := store.addLead(stage)
			m, pub := newTestMachine(store, nil)

			_, err := m.Transition(context.Background(), lead.ID, "negotiation", "ops")
			require.ErrorIs(t, err, ErrTerminalState)

			assert.Equal(t, string(stage), store.leads[lead.ID].Stage)
			assert.Equal(t, 0, store.updateAttempts)
			assert.Empty(t, store.activities)
			assert.Empty(t, pub.events)
		})
	}
}

func TestTransition_RejectsBadTargets(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQualification)
	m, _ := newTestMachine(store, nil)

	_, err := m.Transition(context.Background(), lead.ID, "won", "ops")
	assert.ErrorIs(t, err, ErrUnknownStage)

	_, err = m.Transition(context.Background(), uuid.New(), "quotation", "ops")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	assert.Empty(t, store.activities)
	assert.Equal(t, 1, store.leads[lead.ID].Version)
}

func TestTransition_SkippingStagesIsAllowed(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageInquiry)
	m, _ := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "closed_lost", "ops")
	require.NoError(t, err)
	assert.Equal(t, StageClosedLost, res.NewStage)
}

func TestTransition_StageWriteFailure(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQuotation)
	store.addRule(StageQuotation, StageNegotiation, model.ActionTypeLockConfiguration)
	store.failUpdate = errInjected
	m, pub := newTestMachine(store, nil)

	_, err := m.Transition(context.Background(), lead.ID, "negotiation", "ops")
	require.ErrorIs(t, err, ErrPersistence)

	assert.Equal(t, string(StageQuotation), store.leads[lead.ID].Stage)
	assert.Empty(t, store.activities)
	assert.Empty(t, store.runs)
	assert.False(t, store.leads[lead.ID].ConfigurationLocked)
	assert.Empty(t, pub.events)
}

func TestTransition_StaleVersion(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQuotation)
	m, _ := newTestMachine(store, nil)

	// Simulate a concurrent writer between the read and the update.
	stale := *store.leads[lead.ID]
	store.leads[lead.ID].Version = 5

	_, err := m.apply(context.Background(), &stale, StageQuotation, StageNegotiation, "ops", false)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, string(StageQuotation), store.leads[lead.ID].Stage)
}

func TestTransition_ActivityFailureFlagsAudit(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageSpecification)
	store.failActivity = errInjected
	m, _ := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "quotation", "ops")
	require.NoError(t, err)

	assert.True(t, res.AuditIncomplete)
	assert.Nil(t, res.Activity)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, WarningAudit, res.Warnings[0].Kind)

	stored := store.leads[lead.ID]
	assert.Equal(t, string(StageQuotation), stored.Stage)
	assert.True(t, stored.AuditIncomplete)
}

func TestTransition_FailingActionStopsOnlyItsRule(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageNegotiation)
	failing := store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeSendEmail, model.ActionTypeCreateBuild)
	store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeLockConfiguration)
	notifier := &recordingNotifier{err: errInjected}
	m, _ := newTestMachine(store, notifier)

	res, err := m.Transition(context.Background(), lead.ID, "closed_won", "ops")
	require.NoError(t, err)

	assert.True(t, res.AutomationFailed)
	assert.Empty(t, res.Builds, "action after the failing one must not run")
	assert.Empty(t, store.builds)
	assert.True(t, store.leads[lead.ID].ConfigurationLocked, "later rules still run")

	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, WarningAutomation, w.Kind)
	assert.Equal(t, failing.ID.String(), w.RuleID)
	assert.Equal(t, model.ActionTypeSendEmail, w.Action)

	stored := store.leads[lead.ID]
	assert.Equal(t, string(StageClosedWon), stored.Stage)
	assert.True(t, stored.AutomationFailed)
	assert.Empty(t, stored.PendingTransitionKey)
	require.Len(t, store.unresolved, 1)
	assert.Equal(t, res.TransitionKey, store.unresolved[0].TransitionKey)
	assert.True(t, store.unresolved[0].AutomationFailed)
}

func TestTransition_UnknownActionType(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageInquiry)
	store.addRule(StageInquiry, StageQualification, "post_to_slack")
	m, _ := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "qualification", "ops")
	require.NoError(t, err)
	assert.True(t, res.AutomationFailed)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Message, ErrUnknownAction.Error())
}

func TestTransition_SendEmailDefaults(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageInquiry)
	store.addRule(StageInquiry, StageQualification, model.ActionTypeSendEmail)
	notifier := &recordingNotifier{}
	m, _ := newTestMachine(store, notifier)

	_, err := m.Transition(context.Background(), lead.ID, "qualification", "ops")
	require.NoError(t, err)

	require.Len(t, notifier.intents, 1)
	intent := notifier.intents[0]
	assert.Equal(t, lead.Email, intent.To)
	assert.Equal(t, "stage_changed", intent.Template)
	assert.Equal(t, "qualification", intent.Data["stage"])
	assert.Equal(t, "Amelia Hart", intent.Data["full_name"])
}

func TestResumeAutomations_SkipsSucceededActions(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageNegotiation)
	store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeCreateBuild, model.ActionTypeSendEmail)
	notifier := &recordingNotifier{err: errInjected}
	m, _ := newTestMachine(store, notifier)

	res, err := m.Transition(context.Background(), lead.ID, "closed_won", "ops")
	require.NoError(t, err)
	require.True(t, res.AutomationFailed)
	require.Len(t, store.builds, 1)

	notifier.err = nil
	resumed, err := m.ResumeAutomations(context.Background(), lead.ID, "ops")
	require.NoError(t, err)

	assert.False(t, resumed.AutomationFailed)
	assert.Empty(t, resumed.Builds)
	assert.Len(t, store.builds, 1, "build must not be created twice")
	assert.Len(t, notifier.intents, 1)
	assert.Len(t, store.stageChanges(lead.ID), 1, "stage change is recorded once")

	stored := store.leads[lead.ID]
	assert.False(t, stored.AutomationFailed)
	assert.Empty(t, stored.PendingTransitionKey)

	_, err = m.ResumeAutomations(context.Background(), lead.ID, "ops")
	assert.ErrorIs(t, err, ErrNothingToRun)
}

func TestResumeAutomations_RecoversLostAuditEntry(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQuotation)
	store.addRule(StageQuotation, StageNegotiation, model.ActionTypeLockConfiguration)
	store.failActivity = errInjected
	store.failRules = errInjected
	m, _ := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "negotiation", "ops")
	require.NoError(t, err)
	require.True(t, res.AuditIncomplete)
	require.True(t, res.AutomationFailed)
	assert.Empty(t, store.stageChanges(lead.ID))

	store.failActivity = nil
	store.failRules = nil
	_, err = m.ResumeAutomations(context.Background(), lead.ID, "ops")
	require.NoError(t, err)

	changes := store.stageChanges(lead.ID)
	require.Len(t, changes, 1)
	assert.Equal(t, "quotation", changes[0].Metadata["previous_stage"])
	assert.True(t, store.leads[lead.ID].ConfigurationLocked)

	stored := store.leads[lead.ID]
	assert.False(t, stored.AuditIncomplete, "a recovered audit trail clears the flag")
	assert.False(t, stored.AutomationFailed)
	assert.Empty(t, store.unresolved)
}

func TestResumeAutomations_AuditOnlyFailure(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageSpecification)
	store.addRule(StageSpecification, StageQuotation, model.ActionTypeLockConfiguration)
	store.failActivity = errInjected
	m, _ := newTestMachine(store, nil)
	ctx := context.Background()

	res, err := m.Transition(ctx, lead.ID, "quotation", "ops")
	require.NoError(t, err)
	require.True(t, res.AuditIncomplete)
	require.False(t, res.AutomationFailed)
	assert.True(t, store.leads[lead.ID].AuditIncomplete)
	assert.True(t, store.leads[lead.ID].ConfigurationLocked)
	require.Len(t, store.unresolved, 1)

	store.failActivity = nil
	resumed, err := m.ResumeAutomations(ctx, lead.ID, "ops")
	require.NoError(t, err)
	assert.False(t, resumed.AuditIncomplete)
	assert.Equal(t, []string{res.TransitionKey}, resumed.Resumed)

	require.Len(t, store.stageChanges(lead.ID), 1)
	automations := 0
	for _, a := range store.activities {
		if a.Type == model.ActivityAutomation {
			automations++
		}
	}
	assert.Equal(t, 1, automations, "the lost automation entry is written on resume")
	assert.False(t, store.leads[lead.ID].AuditIncomplete)
	assert.Empty(t, store.unresolved)

	_, err = m.ResumeAutomations(ctx, lead.ID, "ops")
	assert.ErrorIs(t, err, ErrNothingToRun)
}

func TestTransition_LaterTransitionKeepsEarlierFailure(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQuotation)
	store.addRule(StageQuotation, StageNegotiation, model.ActionTypeCreateBuild)
	store.failBuildOnce = errInjected
	m, _ := newTestMachine(store, nil)
	ctx := context.Background()

	first, err := m.Transition(ctx, lead.ID, "negotiation", "ops")
	require.NoError(t, err)
	require.True(t, first.AutomationFailed)
	require.Empty(t, store.builds)

	second, err := m.Transition(ctx, lead.ID, "closed_won", "ops")
	require.NoError(t, err)
	assert.False(t, second.AutomationFailed)

	stored := store.leads[lead.ID]
	assert.True(t, stored.AutomationFailed, "an unresolved failure survives later transitions")
	require.Len(t, store.unresolved, 1)
	assert.Equal(t, first.TransitionKey, store.unresolved[0].TransitionKey)

	resumed, err := m.ResumeAutomations(ctx, lead.ID, "ops")
	require.NoError(t, err)
	require.Len(t, resumed.Builds, 1)
	assert.Len(t, store.builds, 1)
	assert.Equal(t, StageQuotation, resumed.PreviousStage)
	assert.Equal(t, []string{first.TransitionKey}, resumed.Resumed)

	stored = store.leads[lead.ID]
	assert.False(t, stored.AutomationFailed)
	assert.Equal(t, string(StageClosedWon), stored.Stage, "resume never moves the stage")
	assert.Empty(t, store.unresolved)

	_, err = m.ResumeAutomations(ctx, lead.ID, "ops")
	assert.ErrorIs(t, err, ErrNothingToRun)
}

func TestTransition_ParksUnfinishedMarker(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageInquiry)
	store.addRule(StageInquiry, StageQualification, model.ActionTypeSendEmail)
	notifier := &recordingNotifier{}
	store.failComplete = errInjected
	m, _ := newTestMachine(store, notifier)
	ctx := context.Background()

	first, err := m.Transition(ctx, lead.ID, "qualification", "ops")
	require.NoError(t, err)
	require.Equal(t, first.TransitionKey, store.leads[lead.ID].PendingTransitionKey)
	store.failComplete = nil

	store.failPark = errInjected
	_, err = m.Transition(ctx, lead.ID, "specification", "ops")
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, string(StageQualification), store.leads[lead.ID].Stage)
	store.failPark = nil

	_, err = m.Transition(ctx, lead.ID, "specification", "ops")
	require.NoError(t, err)

	stored := store.leads[lead.ID]
	assert.Empty(t, stored.PendingTransitionKey)
	assert.True(t, stored.AutomationFailed)
	require.Len(t, store.unresolved, 1)
	assert.Equal(t, first.TransitionKey, store.unresolved[0].TransitionKey)

	_, err = m.ResumeAutomations(ctx, lead.ID, "ops")
	require.NoError(t, err)
	assert.Len(t, notifier.intents, 1, "an email that already went out is not sent again")
	assert.Len(t, store.stageChanges(lead.ID), 2)
	assert.Empty(t, store.unresolved)
	assert.False(t, store.leads[lead.ID].AutomationFailed)
	assert.False(t, store.leads[lead.ID].AuditIncomplete)
}

func TestTransition_QuotationToNegotiationCreatesFirstBuildOfYear(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQuotation)
	store.addRule(StageQuotation, StageNegotiation, model.ActionTypeCreateBuild)
	store.addRule(StageSpecification, StageNegotiation, model.ActionTypeCreateBuild)
	store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeCreateBuild)
	m, _ := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "negotiation", "sales")
	require.NoError(t, err)

	require.Len(t, res.Builds, 1)
	assert.Equal(t, "JTH-2026-0001", res.Builds[0].BuildNumber)
	assert.Len(t, store.builds, 1, "rules for other stage pairs do not fire")
}

func TestReopen(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageClosedLost)
	m, _ := newTestMachine(store, nil)

	res, err := m.Reopen(context.Background(), lead.ID, "manager")
	require.NoError(t, err)
	assert.Equal(t, StageClosedLost, res.PreviousStage)
	assert.Equal(t, StageInquiry, res.NewStage)
	require.NotNil(t, res.Activity)
	assert.Equal(t, true, res.Activity.Metadata["reopen"])
	assert.Equal(t, string(StageInquiry), store.leads[lead.ID].Stage)

	_, err = m.Reopen(context.Background(), lead.ID, "manager")
	assert.ErrorIs(t, err, ErrNotTerminal)
}

func TestTransitionKeyDependsOnVersion(t *testing.T) {
	id := uuid.New()
	a := TransitionKey(id, 1, StageInquiry, StageQualification)
	assert.Equal(t, a, TransitionKey(id, 1, StageInquiry, StageQualification))
	assert.NotEqual(t, a, TransitionKey(id, 2, StageInquiry, StageQualification))
	assert.Len(t, a, 32)
}

func TestTransition_OutboxCloseFailureIsAWarning(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageInquiry)
	store.failComplete = errInjected
	m, pub := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "qualification", "ops")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningOutbox, res.Warnings[0].Kind)
	assert.Equal(t, res.TransitionKey, store.leads[lead.ID].PendingTransitionKey)
	require.Len(t, pub.events, 1)
	assert.Equal(t, 1, pub.events[0].Warnings)
}

func TestTransition_BuildInsertFailure(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageNegotiation)
	store.addRule(StageNegotiation, StageClosedWon, model.ActionTypeCreateBuild)
	store.failBuildOnce = errInjected
	m, _ := newTestMachine(store, nil)

	res, err := m.Transition(context.Background(), lead.ID, "closed_won", "ops")
	require.NoError(t, err)
	assert.True(t, res.AutomationFailed)
	assert.Empty(t, store.builds)

	resumed, err := m.ResumeAutomations(context.Background(), lead.ID, "ops")
	require.NoError(t, err)
	require.Len(t, resumed.Builds, 1)
	assert.Equal(t, "JTH-2026-0002", resumed.Builds[0].BuildNumber, "a consumed sequence value is not reused")
}

func TestTransition_SameStageIsANoOp(t *testing.T) {
	store := newMemStore()
	lead := store.addLead(StageQualification)
	store.addRule(StageQualification, StageQualification, model.ActionTypeSendEmail)
	notifier := &recordingNotifier{}
	m, pub := newTestMachine(store, notifier)

	res, err := m.Transition(context.Background(), lead.ID, "qualification", "ops")
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, StageQualification, res.PreviousStage)
	assert.Equal(t, StageQualification, res.NewStage)
	assert.Empty(t, res.TransitionKey)

	assert.Zero(t, store.updateAttempts)
	assert.Empty(t, store.activities)
	assert.Empty(t, notifier.intents)
	assert.Empty(t, pub.events)
	assert.Equal(t, lead.Version, store.leads[lead.ID].Version)

	closed := store.addLead(StageClosedWon)
	_, err = m.Transition(context.Background(), closed.ID, "closed_won", "ops")
	assert.ErrorIs(t, err, ErrTerminalState)
}
