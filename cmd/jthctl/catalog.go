package main

import (
	"fmt"

	"github.com/SamFowlerFWD/JTHHorseboxes-sub002/internal/catalog"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect catalog files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file for dangling references and bad values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			models := c.Models()
			fmt.Fprintf(out, "%s: ok, %d models\n", args[0], len(models))
			for _, m := range models {
				price := "contact for pricing"
				if m.BasePrice != nil {
					price = "£" + m.BasePrice.StringFixed(2)
				}
				fmt.Fprintf(out, "  %-18s %-28s %3d options  %s\n", m.ID, m.Name, len(c.OptionsForModel(m.ID)), price)
			}
			return nil
		},
	})
	return cmd
}
