package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dataflowguard/internal/config"
	"dataflowguard/internal/orchestrator"
	"dataflowguard/internal/runstore"
)

var statusCmd = &cobra.Command{
	Use:   "status [run_id]",
	Short: "print a run's status, test results, and artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID := args[0]
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		run, err := store.GetRun(cmd.Context(), runID)
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		tests, err := store.ListTests(cmd.Context(), runID, 1000, 0)
		if err != nil {
			return fmt.Errorf("list tests: %w", err)
		}
		artifacts, err := store.ListArtifacts(cmd.Context(), runID)
		if err != nil {
			return fmt.Errorf("list artifacts: %w", err)
		}

		for _, t := range tests {
			if rows, ok := t.Observed["sample"].([]map[string]any); ok {
				t.Observed["sample"] = orchestrator.RedactSamples(rows)
			}
		}

		out, err := json.MarshalIndent(map[string]any{
			"run":       run,
			"tests":     tests,
			"artifacts": artifacts,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

// openStore resolves the run store from config: Postgres when a DSN is
// configured, Memory otherwise (useful for local dry-run exploration).
func openStore(ctx context.Context, cfg config.Config) (runstore.Store, func(), error) {
	if cfg.StoreDSN == "" {
		return runstore.NewMemory(), func() {}, nil
	}
	pg, err := runstore.NewPostgres(ctx, cfg.StoreDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect run store: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}
