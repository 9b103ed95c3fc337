package main

import (
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/config"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/database"
	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/repository"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var catalogFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Migrate the database and load the catalog and default automation rules into it",
		Long:  "Seeding only writes to empty tables; an existing catalog or rule set is left untouched.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if catalogFile == "" {
				catalogFile = cfg.CatalogFile
			}

			db, err := database.NewConnection(cfg.DSN)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := database.SeedCatalog(ctx, repository.NewCatalogRepository(db), catalogFile); err != nil {
				return err
			}
			return database.SeedRules(ctx, repository.NewAutomationRuleRepository(db))
		},
	}
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "catalog file (defaults to CATALOG_FILE)")
	return cmd
}
