package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dataflowguard/internal/config"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "check the AI provider and configuration surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		provider := buildProvider(cmd.Context(), cfg)

		status, err := provider.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Printf("model=%s ok=%v detail=%q\n", provider.Model(), status.OK, status.Detail)
		if !status.OK {
			return fmt.Errorf("provider unhealthy")
		}
		return nil
	},
}
