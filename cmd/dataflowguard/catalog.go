package main

import (
	"github.com/spf13/cobra"

	"dataflowguard/internal/dtoerrors"
)

var (
	importSourceType string
	importEnv        string

	proposeCatalogID string
	proposeProfile   string
)

// import_catalog and propose depend on catalog ingestion this core does
// not own (dbt manifest and similar adapters are explicitly out of
// scope); both commands are wired so the CLI surface is complete but
// never fake catalog data.
var importCatalogCmd = &cobra.Command{
	Use:   "import_catalog [file]",
	Short: "import a catalog package (not implemented in this core)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dtoerrors.New(dtoerrors.KindUpstreamError,
			"import_catalog is not implemented in this core: catalog-import file adapters are out of scope")
	},
}

var proposeCmd = &cobra.Command{
	Use:   "propose [datasets...]",
	Short: "propose test suites from a catalog package (not implemented in this core)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dtoerrors.New(dtoerrors.KindUpstreamError,
			"propose is not implemented in this core: it depends on a catalog import this core does not own")
	},
}

func init() {
	importCatalogCmd.Flags().StringVar(&importSourceType, "source-type", "dbt_manifest", "catalog source type")
	importCatalogCmd.Flags().StringVar(&importEnv, "env", "dev", "target environment")
	proposeCmd.Flags().StringVar(&proposeCatalogID, "catalog-id", "", "catalog package id")
	proposeCmd.Flags().StringVar(&proposeProfile, "profile", "standard", "proposal profile")
}
