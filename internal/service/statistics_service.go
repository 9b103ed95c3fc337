package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/shopspring/decimal"
)

const topModelsLimit = 5

// PipelineStatisticsResponse is the sales dashboard for a date range. Board
// is the current number of leads per stage regardless of the range.
type PipelineStatisticsResponse struct {
	Board              map[string]int64     `json:"board"`
	NewLeads           int64                `json:"new_leads"`
	Won                model.ClosedDeals    `json:"won"`
	Lost               model.ClosedDeals    `json:"lost"`
	WinRate            string               `json:"win_rate"`
	TopModels          []model.ModelRanking `json:"top_models"`
	TimeRangeStartDate time.Time            `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time            `json:"time_range_end_date"`
}

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (PipelineStatisticsResponse, error)
}

type statisticsService struct {
	stats repository.StatisticsRepository
	leads repository.LeadRepository
}

func NewStatisticsService(stats repository.StatisticsRepository, leads repository.LeadRepository) StatisticsService {
	return &statisticsService{stats: stats, leads: leads}
}

func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (PipelineStatisticsResponse, error) {
	if endDate.Before(startDate) {
		return PipelineStatisticsResponse{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidInput)
	}

	res := PipelineStatisticsResponse{
		Board:              make(map[string]int64, len(pipeline.Stages)),
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	counts, err := s.leads.CountByStage(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count leads by stage: %w", err)
	}
	for _, stage := range pipeline.Stages {
		res.Board[string(stage)] = counts[string(stage)]
	}

	if res.NewLeads, err = s.stats.CountLeadsCreated(ctx, startDate, endDate); err != nil {
		return res, err
	}
	if res.Won, err = s.stats.GetClosedDeals(ctx, string(pipeline.StageClosedWon), startDate, endDate); err != nil {
		return res, err
	}
	if res.Lost, err = s.stats.GetClosedDeals(ctx, string(pipeline.StageClosedLost), startDate, endDate); err != nil {
		return res, err
	}
	res.WinRate = winRate(res.Won.Count, res.Lost.Count)

	if res.TopModels, err = s.stats.GetTopModels(ctx, startDate, endDate, topModelsLimit); err != nil {
		return res, err
	}
	if res.TopModels == nil {
		res.TopModels = []model.ModelRanking{}
	}
	return res, nil
}

// winRate is won / (won + lost) to four places, "0.0000" when nothing closed.
func winRate(won, lost int) string {
	closed := won + lost
	if closed == 0 {
		return decimal.Zero.StringFixed(4)
	}
	return decimal.NewFromInt(int64(won)).DivRound(decimal.NewFromInt(int64(closed)), 4).StringFixed(4)
}
