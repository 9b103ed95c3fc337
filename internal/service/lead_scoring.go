package service

import (
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"

	"github.com/shopspring/decimal"
)

const (
	minLeadScore = 0
	maxLeadScore = 100
)

var (
	highValueTotal = decimal.NewFromInt(50000)
	midValueTotal  = decimal.NewFromInt(30000)
)

var sourceScores = map[string]int{
	model.LeadSourceConfigurator: 20,
	model.LeadSourceContactForm:  10,
	model.LeadSourceBrochure:     5,
	model.LeadSourceManual:       0,
}

// LeadSignals are the facts a lead score is derived from.
type LeadSignals struct {
	Source            string
	HasPhone          bool
	HasPostcode       bool
	HasCompany        bool
	FinanceInterest   bool
	MarketingConsent  bool
	HasConfiguration  bool
	ContactForPricing bool
	Total             decimal.Decimal
}

// ScoreLead rates how sales-ready a lead looks, from 0 to 100.
func ScoreLead(s LeadSignals) int {
	score := sourceScores[s.Source]
	if s.HasPhone {
		score += 15
	}
	if s.HasPostcode {
		score += 5
	}
	if s.HasCompany {
		score += 5
	}
	if s.FinanceInterest {
		score += 10
	}
	if s.MarketingConsent {
		score += 5
	}
	if s.HasConfiguration {
		score += 15
		switch {
		case s.ContactForPricing, s.Total.GreaterThanOrEqual(highValueTotal):
			score += 25
		case s.Total.GreaterThanOrEqual(midValueTotal):
			score += 15
		case s.Total.IsPositive():
			score += 5
		}
	}

	return clampScore(score)
}

func clampScore(score int) int {
	return max(minLeadScore, min(maxLeadScore, score))
}
