package service

import (
	"context"
	"testing"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_PriceProfessionalWithAwning(t *testing.T) {
	svc := NewCatalogService(newFakeCatalogRepo(t), pricing.Settings{}, time.Minute)

	res, err := svc.Price(context.Background(), PriceRequest{
		ModelID: "professional-35",
		Options: []catalog.Pick{{OptionID: "awning", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, "22000.00", res.BasePrice)
	assert.Equal(t, "23200.00", res.Subtotal)
	assert.Equal(t, "4640.00", res.VAT)
	assert.Equal(t, "27840.00", res.Total)
	assert.Equal(t, "0.2000", res.VATRate)

	var included, priced int
	for _, l := range res.Lines {
		if l.Included {
			included++
			assert.Equal(t, "0.00", l.LineTotal)
		} else {
			priced++
			assert.Equal(t, "awning", l.OptionID)
			assert.Equal(t, "1200.00", l.LineTotal)
		}
	}
	assert.Equal(t, 2, included, "default matting and breast bar padding")
	assert.Equal(t, 1, priced)
}

func TestCatalogService_ContactForPricingOmitsAmounts(t *testing.T) {
	svc := NewCatalogService(newFakeCatalogRepo(t), pricing.Settings{}, time.Minute)

	res, err := svc.Price(context.Background(), PriceRequest{ModelID: "zenos-72"})
	require.NoError(t, err)
	assert.True(t, res.ContactForPricing)
	assert.Empty(t, res.Total)
	assert.Empty(t, res.VAT)
}

func TestCatalogService_ValidationErrorsPassThrough(t *testing.T) {
	svc := NewCatalogService(newFakeCatalogRepo(t), pricing.Settings{}, time.Minute)
	ctx := context.Background()

	_, err := svc.Price(ctx, PriceRequest{ModelID: "professional-35", Options: []catalog.Pick{{OptionID: "leisure-battery-upgrade", Quantity: 1}}})
	assert.ErrorIs(t, err, pricing.ErrMissingDependency)

	_, err = svc.Price(ctx, PriceRequest{ModelID: "principle-35", Options: []catalog.Pick{{OptionID: "awning", Quantity: 1}}})
	assert.ErrorIs(t, err, pricing.ErrOptionNotApplicable)

	_, err = svc.Price(ctx, PriceRequest{ModelID: "nope"})
	assert.ErrorIs(t, err, pricing.ErrUnknownModel)

	_, err = svc.ListOptions(ctx, "nope")
	assert.ErrorIs(t, err, pricing.ErrUnknownModel)
}

func TestCatalogService_Finance(t *testing.T) {
	svc := NewCatalogService(newFakeCatalogRepo(t), pricing.Settings{}, time.Minute)

	res, err := svc.Finance(context.Background(), FinanceRequest{Total: "27840", DepositPercent: 10, TermMonths: 60})
	require.NoError(t, err)
	assert.Equal(t, "2784.00", res.Deposit)
	assert.Equal(t, "25056.00", res.Principal)
	assert.Equal(t, "506.85", res.MonthlyPayment)
	assert.Equal(t, "7.9", res.APR)

	_, err = svc.Finance(context.Background(), FinanceRequest{Total: "27840", DepositPercent: 5, TermMonths: 60})
	assert.ErrorIs(t, err, pricing.ErrInvalidDepositPercent)

	_, err = svc.Finance(context.Background(), FinanceRequest{Total: "lots", DepositPercent: 10, TermMonths: 60})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCatalogService_CachesUntilInvalidated(t *testing.T) {
	repo := newFakeCatalogRepo(t)
	svc := NewCatalogService(repo, pricing.Settings{}, time.Hour).(*catalogService)
	ctx := context.Background()

	_, err := svc.ListModels(ctx)
	require.NoError(t, err)
	_, err = svc.ListOptions(ctx, "aeos-45")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	svc.Invalidate()
	_, err = svc.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	// Expiry also reloads.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.listCalls)
}

func TestCatalogService_ListOptionsForModel(t *testing.T) {
	svc := NewCatalogService(newFakeCatalogRepo(t), pricing.Settings{}, time.Minute)

	opts, err := svc.ListOptions(context.Background(), "principle-35")
	require.NoError(t, err)

	ids := make([]string, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, "halogen-lighting")
	assert.NotContains(t, ids, "awning")
	assert.NotContains(t, ids, "living-pod")
}
