// Command jthctl is the operator tool for the horsebox catalog: it checks
// catalog files, prices configurations offline and seeds the database.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jthctl",
		Short:         "Operator tool for the JTH horsebox catalog",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newCatalogCmd(), newPriceCmd(), newSeedCmd())
	return root
}
