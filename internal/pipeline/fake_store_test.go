package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/google/uuid"
)

var errInjected = errors.New("injected failure")

// memStore is an in-memory Store with failure injection.
type memStore struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]*model.Lead
	activities []model.DealActivity
	dedupe     map[string]bool
	rules      []model.PipelineAutomationRule
	sequences  map[int]int
	builds     []model.Build
	runs       map[string]*model.AutomationRun
	unresolved []model.UnresolvedTransition

	failGetLead    error
	failUpdate     error
	failActivity   error
	failRules      error
	failBuildOnce  error
	failLock       error
	failComplete   error
	failPark       error
	updateAttempts int
}

func newMemStore() *memStore {
	return &memStore{
		leads:     map[uuid.UUID]*model.Lead{},
		dedupe:    map[string]bool{},
		sequences: map[int]int{},
		runs:      map[string]*model.AutomationRun{},
	}
}

func (s *memStore) addLead(stage Stage) *model.Lead {
	lead := &model.Lead{
		ID:                   uuid.New(),
		FirstName:            "Amelia",
		LastName:             "Hart",
		Email:                "amelia@example.com",
		Stage:                string(stage),
		Version:              1,
		ConfiguratorSnapshot: []byte(`{"model_id":"professional-35","total":"27840"}`),
	}
	s.leads[lead.ID] = lead
	return lead
}

func (s *memStore) addRule(from, to Stage, actions ...string) model.PipelineAutomationRule {
	rule := model.PipelineAutomationRule{ID: uuid.New(), Name: string(from) + "->" + string(to), FromStage: string(from), ToStage: string(to), Active: true}
	for _, a := range actions {
		rule.Actions = append(rule.Actions, model.AutomationAction{Type: a})
	}
	s.rules = append(s.rules, rule)
	return rule
}

func (s *memStore) stageChanges(leadID uuid.UUID) []model.DealActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.DealActivity
	for _, a := range s.activities {
		if a.LeadID == leadID && a.Type == model.ActivityStageChange {
			res = append(res, a)
		}
	}
	return res
}

func (s *memStore) GetLead(_ context.Context, id uuid.UUID) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetLead != nil {
		return nil, s.failGetLead
	}
	lead, ok := s.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	cp := *lead
	return &cp, nil
}

func (s *memStore) UpdateLeadStage(_ context.Context, u StageUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateAttempts++
	if s.failUpdate != nil {
		return s.failUpdate
	}
	lead, ok := s.leads[u.LeadID]
	if !ok {
		return ErrLeadNotFound
	}
	if lead.Version != u.ExpectedVersion {
		return ErrVersionConflict
	}
	lead.Stage = string(u.To)
	lead.Version++
	lead.UpdatedAt = u.At
	lead.PendingTransitionKey = u.TransitionKey
	lead.PendingFromStage = string(u.From)
	lead.PendingToStage = string(u.To)
	return nil
}

func (s *memStore) InsertActivity(_ context.Context, a *model.DealActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failActivity != nil {
		return s.failActivity
	}
	if a.DedupeKey != nil {
		if s.dedupe[*a.DedupeKey] {
			return nil
		}
		s.dedupe[*a.DedupeKey] = true
	}
	a.ID = uuid.New()
	s.activities = append(s.activities, *a)
	return nil
}

func (s *memStore) ListActiveAutomations(_ context.Context, from, to Stage) ([]model.PipelineAutomationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRules != nil {
		return nil, s.failRules
	}
	var res []model.PipelineAutomationRule
	for _, r := range s.rules {
		if r.Active && r.FromStage == string(from) && r.ToStage == string(to) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (s *memStore) NextBuildSequence(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[year]++
	return s.sequences[year], nil
}

func (s *memStore) InsertBuild(_ context.Context, b *model.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBuildOnce != nil {
		err := s.failBuildOnce
		s.failBuildOnce = nil
		return err
	}
	for _, existing := range s.builds {
		if existing.BuildNumber == b.BuildNumber {
			return errors.New("duplicate build number")
		}
	}
	b.ID = uuid.New()
	s.builds = append(s.builds, *b)
	return nil
}

func (s *memStore) LockConfiguration(_ context.Context, leadID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLock != nil {
		return s.failLock
	}
	s.leads[leadID].ConfigurationLocked = true
	return nil
}

func (s *memStore) FindAutomationRun(_ context.Context, key string) (*model.AutomationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[key]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (s *memStore) SaveAutomationRun(_ context.Context, run *model.AutomationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.RunKey] = &cp
	return nil
}

func (s *memStore) ListUnresolvedTransitions(_ context.Context, leadID uuid.UUID) ([]model.UnresolvedTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.UnresolvedTransition
	for _, t := range s.unresolved {
		if t.LeadID == leadID {
			res = append(res, t)
		}
	}
	return res, nil
}

func (s *memStore) SaveUnresolvedTransition(_ context.Context, t *model.UnresolvedTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPark != nil {
		return s.failPark
	}
	for i := range s.unresolved {
		if s.unresolved[i].TransitionKey == t.TransitionKey {
			s.unresolved[i].AuditIncomplete = t.AuditIncomplete
			s.unresolved[i].AutomationFailed = t.AutomationFailed
			return nil
		}
	}
	s.unresolved = append(s.unresolved, *t)
	return nil
}

func (s *memStore) ResolveTransition(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.unresolved[:0]
	for _, t := range s.unresolved {
		if t.TransitionKey != key {
			kept = append(kept, t)
		}
	}
	s.unresolved = kept
	return nil
}

func (s *memStore) CompleteTransition(_ context.Context, o TransitionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failComplete != nil {
		return s.failComplete
	}
	lead := s.leads[o.LeadID]
	lead.AuditIncomplete = o.AuditIncomplete
	lead.AutomationFailed = o.AutomationFailed
	if o.ClearMarker != "" && lead.PendingTransitionKey == o.ClearMarker {
		lead.PendingTransitionKey = ""
		lead.PendingFromStage = ""
		lead.PendingToStage = ""
	}
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	intents []EmailIntent
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, intent EmailIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.intents = append(n.intents, intent)
	return nil
}

type recordingPublisher struct {
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.events = append(p.events, e)
}
