package service

import (
	"context"
	"sync"
	"testing"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/quote"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeCatalogRepo serves the seed catalog from memory.
type fakeCatalogRepo struct {
	models     []model.HorseboxModel
	options    []model.PricingOption
	referenced map[string]bool
	listCalls  int
}

func newFakeCatalogRepo(t *testing.T) *fakeCatalogRepo {
	t.Helper()
	file, err := catalog.ReadFile("../../configs/catalog.yaml")
	require.NoError(t, err)
	models, options, err := file.Records()
	require.NoError(t, err)
	return &fakeCatalogRepo{models: models, options: options, referenced: map[string]bool{}}
}

func (r *fakeCatalogRepo) ListModels(context.Context) ([]model.HorseboxModel, error) {
	r.listCalls++
	return append([]model.HorseboxModel(nil), r.models...), nil
}

func (r *fakeCatalogRepo) ListOptions(context.Context) ([]model.PricingOption, error) {
	return append([]model.PricingOption(nil), r.options...), nil
}

func (r *fakeCatalogRepo) FindModel(_ context.Context, id string) (*model.HorseboxModel, error) {
	for _, m := range r.models {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) FindOption(_ context.Context, id string) (*model.PricingOption, error) {
	for _, o := range r.options {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) CreateOption(_ context.Context, o *model.PricingOption) error {
	r.options = append(r.options, *o)
	return nil
}

func (r *fakeCatalogRepo) UpdateOption(_ context.Context, o *model.PricingOption) error {
	for i := range r.options {
		if r.options[i].ID == o.ID {
			r.options[i] = *o
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeCatalogRepo) DeleteOption(_ context.Context, id string) error {
	for i := range r.options {
		if r.options[i].ID == id {
			r.options = append(r.options[:i], r.options[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeCatalogRepo) OptionReferenced(_ context.Context, id string) (bool, error) {
	return r.referenced[id], nil
}

func (r *fakeCatalogRepo) CountModels(context.Context) (int64, error) {
	return int64(len(r.models)), nil
}

func (r *fakeCatalogRepo) Seed(context.Context, []model.HorseboxModel, []model.PricingOption) error {
	return nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(context.Context, repository.AuditFilter, int, int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

type fakeLeadRepo struct {
	leads map[uuid.UUID]*model.Lead
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: map[uuid.UUID]*model.Lead{}}
}

func (r *fakeLeadRepo) Create(_ context.Context, lead *model.Lead) error {
	lead.ID = uuid.New()
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

func (r *fakeLeadRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Lead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *lead
	return &cp, nil
}

func (r *fakeLeadRepo) List(context.Context, repository.LeadFilter, int, int) ([]model.Lead, int64, error) {
	var res []model.Lead
	for _, l := range r.leads {
		res = append(res, *l)
	}
	return res, int64(len(res)), nil
}

func (r *fakeLeadRepo) UpdateConfiguration(_ context.Context, id uuid.UUID, snapshot datatypes.JSON) error {
	lead, ok := r.leads[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if lead.ConfigurationLocked {
		return repository.ErrConfigurationLocked
	}
	lead.ConfiguratorSnapshot = snapshot
	return nil
}

func (r *fakeLeadRepo) UpdateScore(_ context.Context, id uuid.UUID, score int) error {
	r.leads[id].Score = score
	return nil
}

func (r *fakeLeadRepo) CountByStage(context.Context) (map[string]int64, error) {
	return nil, nil
}

type fakeActivityRepo struct {
	activities []model.DealActivity
}

func (r *fakeActivityRepo) Create(_ context.Context, a *model.DealActivity) error {
	a.ID = uuid.New()
	r.activities = append(r.activities, *a)
	return nil
}

func (r *fakeActivityRepo) ListByLead(_ context.Context, leadID uuid.UUID, _, _ int) ([]model.DealActivity, int64, error) {
	var res []model.DealActivity
	for _, a := range r.activities {
		if a.LeadID == leadID {
			res = append(res, a)
		}
	}
	return res, int64(len(res)), nil
}

// fakeQuoteRenderer keeps the data of every quote it renders.
type fakeQuoteRenderer struct {
	rendered []quote.Data
}

func (r *fakeQuoteRenderer) Render(data quote.Data) ([]byte, error) {
	r.rendered = append(r.rendered, data)
	return []byte("%PDF-1.3"), nil
}

func (r *fakeQuoteRenderer) NextReference() string {
	return "Q-1"
}

type fakePublisher struct {
	events []pipeline.Event
}

func (p *fakePublisher) Publish(e pipeline.Event) {
	p.events = append(p.events, e)
}

type fakeNotifier struct {
	mu      sync.Mutex
	intents []pipeline.EmailIntent
}

func (n *fakeNotifier) Notify(_ context.Context, intent pipeline.EmailIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intent)
	return nil
}

type fakeMachine struct {
	result pipeline.Result
	err    error
	calls  []string
}

func (m *fakeMachine) Transition(_ context.Context, _ uuid.UUID, to, _ string) (pipeline.Result, error) {
	m.calls = append(m.calls, "transition:"+to)
	return m.result, m.err
}

func (m *fakeMachine) Reopen(context.Context, uuid.UUID, string) (pipeline.Result, error) {
	m.calls = append(m.calls, "reopen")
	return m.result, m.err
}

func (m *fakeMachine) ResumeAutomations(context.Context, uuid.UUID, string) (pipeline.Result, error) {
	m.calls = append(m.calls, "resume")
	return m.result, m.err
}
