package catalog

import (
	"strings"
	"testing"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
models:
  - id: professional-35
    name: Professional 35
    tonnage: 3.5t
    base_price: "22000"
  - id: zenos-72
    name: Zenos 7.2
    tonnage: 7.2t
options:
  - id: rubber-matting
    name: Rubber matting
    category: horse_area
    price: "650"
    is_default: true
    models: [professional-35, zenos-72]
  - id: awning
    name: Awning
    category: exterior
    price: "1200"
    models: [professional-35]
    display_order: 2
  - id: tack-locker
    name: Tack locker
    category: exterior
    per_foot_pricing: true
    price_per_foot: "275"
    max_quantity: 6
    models: [professional-35]
    display_order: 1
  - id: retired
    name: Retired option
    category: comfort
    price: "10"
    unavailable: true
    models: [professional-35]
`

func loadSample(t *testing.T) *Catalog {
	t.Helper()
	file, err := Decode(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	c, err := file.Catalog()
	require.NoError(t, err)
	return c
}

func TestDecode_BuildsCatalog(t *testing.T) {
	c := loadSample(t)

	m, ok := c.Model("professional-35")
	require.True(t, ok)
	require.NotNil(t, m.BasePrice)
	assert.True(t, m.BasePrice.Equal(decimal.NewFromInt(22000)))

	zenos, ok := c.Model("zenos-72")
	require.True(t, ok)
	assert.Nil(t, zenos.BasePrice)

	locker, ok := c.Option("tack-locker")
	require.True(t, ok)
	assert.True(t, locker.PerFootPricing)
	assert.Equal(t, 6, locker.MaxQuantity)

	ids := func(opts []pricing.Option) []string {
		var res []string
		for _, o := range opts {
			res = append(res, o.ID)
		}
		return res
	}
	assert.Equal(t, []string{"rubber-matting", "tack-locker", "awning"}, ids(c.OptionsForModel("professional-35")))
	assert.Equal(t, []string{"rubber-matting"}, ids(c.DefaultOptions("professional-35")))
	assert.Equal(t, []string{"rubber-matting"}, ids(c.OptionsForModel("zenos-72")))
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("models:\n  - id: x\n    nmae: typo\n"))
	require.Error(t, err)
}

func TestNew_ValidationAtIngestion(t *testing.T) {
	base := decimal.NewFromInt(20000)
	models := []pricing.Model{{ID: "m1", Name: "M1", BasePrice: &base}}
	valid := func(id string) pricing.Option {
		return pricing.Option{ID: id, Name: id, Category: "exterior", IsAvailable: true, ApplicableModels: []string{"m1"}}
	}

	tests := []struct {
		name   string
		mutate func(o *pricing.Option)
		want   string
	}{
		{"self incompatible", func(o *pricing.Option) { o.IncompatibleWith = []string{"a"} }, "own incompatible_with"},
		{"unknown dependency", func(o *pricing.Option) { o.Dependencies = []string{"ghost"} }, "unknown dependency ghost"},
		{"unknown model", func(o *pricing.Option) { o.ApplicableModels = []string{"nope"} }, "unknown model nope"},
		{"negative price", func(o *pricing.Option) { o.Price = decimal.NewFromInt(-1) }, "negative price"},
		{"per foot without rate", func(o *pricing.Option) { o.PerFootPricing = true }, "without price_per_foot"},
		{"bad category", func(o *pricing.Option) { o.Category = "roof" }, "unknown category"},
		{"depends and excludes", func(o *pricing.Option) {
			o.Dependencies = []string{"b"}
			o.IncompatibleWith = []string{"b"}
		}, "both depends on and excludes b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid("a")
			tt.mutate(&a)
			_, err := New(models, []pricing.Option{a, valid("b")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_DuplicateIDs(t *testing.T) {
	models := []pricing.Model{{ID: "m1", Name: "M1"}, {ID: "m1", Name: "Again"}}
	_, err := New(models, nil)
	require.ErrorContains(t, err, "duplicate id")
}

func TestResolve(t *testing.T) {
	c := loadSample(t)

	m, selections, err := c.Resolve("professional-35", []Pick{{OptionID: "awning", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, "professional-35", m.ID)
	require.Len(t, selections, 1)
	assert.Equal(t, "awning", selections[0].Option.ID)

	_, _, err = c.Resolve("nope", nil)
	require.ErrorIs(t, err, pricing.ErrUnknownModel)

	_, _, err = c.Resolve("professional-35", []Pick{{OptionID: "ghost", Quantity: 1}})
	require.ErrorIs(t, err, pricing.ErrUnknownOption)
}

func TestCatalog_PricesWithEngine(t *testing.T) {
	c := loadSample(t)
	engine := pricing.NewEngine(c, pricing.Settings{})

	m, selections, err := c.Resolve("professional-35", []Pick{
		{OptionID: "awning", Quantity: 1},
		{OptionID: "tack-locker", Quantity: 4},
	})
	require.NoError(t, err)

	b, err := engine.ComputePrice(m, selections)
	require.NoError(t, err)
	require.Len(t, b.Lines, 3)
	assert.True(t, b.Lines[0].Included)
	assert.True(t, b.Subtotal.Equal(decimal.NewFromInt(22000+1200+1100)))
}

func TestSeedCatalogIsValid(t *testing.T) {
	c, err := Load("../../configs/catalog.yaml")
	require.NoError(t, err)
	assert.Len(t, c.Models(), 5)
	assert.NotEmpty(t, c.DefaultOptions("professional-35"))
}
