package service

import (
	"context"
	"testing"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOptionFixture(t *testing.T) (OptionService, *fakeCatalogRepo, *fakeAuditRepo, CatalogService) {
	t.Helper()
	repo := newFakeCatalogRepo(t)
	audit := &fakeAuditRepo{}
	catalogService := NewCatalogService(repo, pricing.Settings{}, time.Hour)
	return NewOptionService(repo, audit, catalogService), repo, audit, catalogService
}

func findRecord(repo *fakeCatalogRepo, id string) *model.PricingOption {
	for i := range repo.options {
		if repo.options[i].ID == id {
			return &repo.options[i]
		}
	}
	return nil
}

func TestOptionService_DeleteUnreferenced(t *testing.T) {
	svc, repo, audit, _ := newOptionFixture(t)

	res, err := svc.DeleteOption(context.Background(), "awning", "admin")
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.False(t, res.Disabled)
	assert.Nil(t, findRecord(repo, "awning"))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionDeletePricingOption, audit.entries[0].Action)
}

func TestOptionService_DeleteReferencedDisables(t *testing.T) {
	svc, repo, audit, _ := newOptionFixture(t)
	repo.referenced["reversing-camera"] = true

	res, err := svc.DeleteOption(context.Background(), "reversing-camera", "admin")
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.True(t, res.Disabled)
	assert.Equal(t, ErrOptionReferenced.Error(), res.Reason)

	rec := findRecord(repo, "reversing-camera")
	require.NotNil(t, rec)
	assert.False(t, rec.IsAvailable)
	assert.Equal(t, model.ActionDisablePricingOption, audit.entries[0].Action)
}

func TestOptionService_DeleteDependencyDisables(t *testing.T) {
	svc, repo, _, _ := newOptionFixture(t)

	// leisure-battery-upgrade depends on solar-panel.
	res, err := svc.DeleteOption(context.Background(), "solar-panel", "admin")
	require.NoError(t, err)
	assert.True(t, res.Disabled)
	require.NotNil(t, findRecord(repo, "solar-panel"))
}

func TestOptionService_DeleteUnknown(t *testing.T) {
	svc, _, _, _ := newOptionFixture(t)

	_, err := svc.DeleteOption(context.Background(), "jacuzzi", "admin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOptionService_CreateValidatesAgainstCatalog(t *testing.T) {
	svc, repo, _, _ := newOptionFixture(t)
	ctx := context.Background()

	base := OptionRequest{
		ID:               "bike-rack",
		Name:             "Bike rack",
		Category:         model.CategoryExterior,
		Price:            "240",
		ApplicableModels: []string{"professional-35"},
	}

	bad := base
	bad.Dependencies = []string{"tow-bar"}
	_, err := svc.CreateOption(ctx, bad, "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad = base
	bad.Price = "cheap"
	_, err = svc.CreateOption(ctx, bad, "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	dup := base
	dup.ID = "awning"
	_, err = svc.CreateOption(ctx, dup, "admin")
	assert.ErrorIs(t, err, ErrInvalidInput)

	res, err := svc.CreateOption(ctx, base, "admin")
	require.NoError(t, err)
	assert.Equal(t, "240.00", res.Price)
	assert.True(t, res.IsAvailable)
	require.NotNil(t, findRecord(repo, "bike-rack"))
}

func TestOptionService_WritesInvalidateCatalog(t *testing.T) {
	svc, repo, _, catalogService := newOptionFixture(t)
	ctx := context.Background()

	_, err := catalogService.Price(ctx, PriceRequest{ModelID: "professional-35"})
	require.NoError(t, err)
	calls := repo.listCalls

	_, err = svc.UpdateOption(ctx, "awning", OptionRequest{
		Name:             "Awning",
		Category:         model.CategoryExterior,
		Price:            "1350",
		ApplicableModels: []string{"professional-35", "progeny-35"},
	}, "admin")
	require.NoError(t, err)

	_, err = catalogService.Price(ctx, PriceRequest{ModelID: "professional-35"})
	require.NoError(t, err)
	assert.Greater(t, repo.listCalls, calls)
	assert.Equal(t, "1350.00", findRecord(repo, "awning").Price.StringFixed(2))
}
