package service

import (
	"testing"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestScoreLead(t *testing.T) {
	tests := []struct {
		name    string
		signals LeadSignals
		want    int
	}{
		{name: "bare manual lead", signals: LeadSignals{Source: model.LeadSourceManual}, want: 0},
		{name: "unknown source", signals: LeadSignals{Source: "fax"}, want: 0},
		{
			name:    "contact form with phone",
			signals: LeadSignals{Source: model.LeadSourceContactForm, HasPhone: true},
			want:    25,
		},
		{
			name: "mid value configuration",
			signals: LeadSignals{
				Source:           model.LeadSourceConfigurator,
				HasConfiguration: true,
				Total:            decimal.NewFromInt(31000),
			},
			want: 50,
		},
		{
			name: "low value configuration",
			signals: LeadSignals{
				Source:           model.LeadSourceConfigurator,
				HasConfiguration: true,
				Total:            decimal.NewFromInt(27840),
			},
			want: 40,
		},
		{
			name: "contact for pricing counts as high value",
			signals: LeadSignals{
				Source:            model.LeadSourceConfigurator,
				HasConfiguration:  true,
				ContactForPricing: true,
			},
			want: 60,
		},
		{
			name: "everything is capped",
			signals: LeadSignals{
				Source:           model.LeadSourceConfigurator,
				HasPhone:         true,
				HasPostcode:      true,
				HasCompany:       true,
				FinanceInterest:  true,
				MarketingConsent: true,
				HasConfiguration: true,
				Total:            decimal.NewFromInt(65000),
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreLead(tt.signals))
		})
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-10))
	assert.Equal(t, 42, clampScore(42))
	assert.Equal(t, 100, clampScore(140))
}
