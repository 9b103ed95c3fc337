package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"
)

type BuildResponse struct {
	ID            string          `json:"id"`
	BuildNumber   string          `json:"build_number"`
	LeadID        string          `json:"lead_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	ModelID       string          `json:"model_id"`
	Status        string          `json:"status"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     string          `json:"created_at"`
}

type BuildService interface {
	ListBuilds(ctx context.Context, status string, page, limit int) ([]BuildResponse, int64, error)
}

type buildService struct {
	repo repository.BuildRepository
}

func NewBuildService(repo repository.BuildRepository) BuildService {
	return &buildService{repo: repo}
}

func (s *buildService) ListBuilds(ctx context.Context, status string, page, limit int) ([]BuildResponse, int64, error) {
	builds, total, err := s.repo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch builds: %w", err)
	}

	res := make([]BuildResponse, 0, len(builds))
	for _, b := range builds {
		res = append(res, toBuildResponse(b))
	}
	return res, total, nil
}

func toBuildResponse(b model.Build) BuildResponse {
	res := BuildResponse{
		ID:          b.ID.String(),
		BuildNumber: b.BuildNumber,
		LeadID:      b.LeadID.String(),
		ModelID:     b.ModelID,
		Status:      b.Status,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
	if b.Lead != nil {
		res.CustomerName = b.Lead.FullName()
	}
	if len(b.ConfigurationSummary) > 0 {
		res.Configuration = json.RawMessage(b.ConfigurationSummary)
	}
	return res
}
