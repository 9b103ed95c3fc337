package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/model"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/pipeline"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"
)

// ProductionInbox receives the handover email when a deal is won.
const ProductionInbox = "production@jthltd.co.uk"

// DefaultRules are installed on an empty rules table.
func DefaultRules() []model.PipelineAutomationRule {
	return []model.PipelineAutomationRule{
		{
			Name:        "Deal won handover",
			FromStage:   string(pipeline.StageNegotiation),
			ToStage:     string(pipeline.StageClosedWon),
			Active:      true,
			Description: "Creates the build record, freezes the configuration and tells the customer and production.",
			Actions: []model.AutomationAction{
				{Type: model.ActionTypeCreateBuild},
				{Type: model.ActionTypeLockConfiguration},
				{Type: model.ActionTypeSendEmail, Params: map[string]string{"template": "deal_won"}},
				{Type: model.ActionTypeSendEmail, Params: map[string]string{"template": "production_handover", "to": ProductionInbox}},
			},
		},
		{
			Name:        "Quotation issued",
			FromStage:   string(pipeline.StageSpecification),
			ToStage:     string(pipeline.StageQuotation),
			Active:      true,
			Priority:    10,
			Description: "Lets the customer know their quotation is being prepared.",
			Actions: []model.AutomationAction{
				{Type: model.ActionTypeSendEmail, Params: map[string]string{"template": "stage_changed"}},
			},
		},
	}
}

// SeedCatalog loads the catalog file into an empty catalog. A populated
// catalog is left alone so that back-office edits survive restarts.
func SeedCatalog(ctx context.Context, repo repository.CatalogRepository, path string) error {
	count, err := repo.CountModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to count models: %w", err)
	}
	if count > 0 {
		return nil
	}

	file, err := catalog.ReadFile(path)
	if err != nil {
		return err
	}
	models, options, err := file.Records()
	if err != nil {
		return err
	}
	if _, err := catalog.FromRecords(models, options); err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	if err := repo.Seed(ctx, models, options); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	slog.InfoContext(ctx, "Seeded catalog", "file", path, "models", len(models), "options", len(options))
	return nil
}

// SeedRules installs DefaultRules when no rule exists yet.
func SeedRules(ctx context.Context, repo repository.AutomationRuleRepository) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list automation rules: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, rule := range DefaultRules() {
		rule := rule
		if err := repo.Create(ctx, &rule); err != nil {
			return fmt.Errorf("failed to seed rule %q: %w", rule.Name, err)
		}
	}
	slog.InfoContext(ctx, "Seeded automation rules", "count", len(DefaultRules()))
	return nil
}
