// Command dataflowguard is the CLI surface over the orchestrator engine:
// health, import_catalog, propose, compile, run, status. import_catalog
// and propose are thin stubs; this core does not own catalog ingestion.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dataflowguard/internal/logging"
)

var (
	verbose    bool
	configFile string
	suiteDir   string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dataflowguard",
	Short: "DataFlowGuard: lexically-guarded warehouse data testing orchestrator",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file (env DATAFLOWGUARD_* and defaults apply regardless)")
	rootCmd.PersistentFlags().StringVar(&suiteDir, "suite-dir", "suites", "directory of suite YAML files")

	rootCmd.AddCommand(
		healthCmd,
		importCatalogCmd,
		proposeCmd,
		compileCmd,
		runCmd,
		statusCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
