package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"dataflowguard/internal/artifact"
	"dataflowguard/internal/config"
	"dataflowguard/internal/model"
	"dataflowguard/internal/orchestrator"
	"dataflowguard/internal/progress"
	"dataflowguard/internal/warehouse"
)

var (
	runDryRun        bool
	runBudgetSeconds int
	runFollow        bool
	runEnvironment   string
	runParallel      int
)

var runCmd = &cobra.Command{
	Use:   "run [suite]",
	Short: "execute a suite and wait for it to reach a terminal state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		suiteName := args[0]
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		wh, closeWarehouse, err := openWarehouse(cmd.Context(), cfg, runDryRun)
		if err != nil {
			return err
		}
		defer closeWarehouse()

		artifacts, err := openArtifacts(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		bus := progress.NewBus()
		resolver := orchestrator.NewFileResolver(suiteDir)
		engine := orchestrator.NewEngine(resolver, wh, store, artifacts, bus).WithLogger(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := orchestrator.Options{
			Environment:      runEnvironment,
			BudgetSeconds:    runBudgetSeconds,
			DryRun:           runDryRun,
			MaxParallelTests: runParallel,
		}
		if runFollow {
			opts.OnRunStarted = func(runID string) {
				ch, unsubscribe := bus.Subscribe(runID, model.ProgressEvent{})
				go func() {
					streamProgress(ch)
					unsubscribe()
				}()
			}
		}

		run, err := engine.Start(ctx, suiteName, opts)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		out, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(out))
		if run.Status == model.RunFailed {
			return fmt.Errorf("run %s failed", run.ID)
		}
		return nil
	},
}

func streamProgress(ch <-chan model.ProgressEvent) {
	for ev := range ch {
		line, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintln(os.Stderr, string(line))
	}
}

func openWarehouse(ctx context.Context, cfg config.Config, dryRun bool) (warehouse.Client, func(), error) {
	if dryRun || cfg.Warehouse.Account == "" {
		rec := warehouse.NewRecorded(cfg.Budgets.AllowedSchemas)
		return rec, func() { _ = rec.Close() }, nil
	}
	sf, err := warehouse.NewSnowflake(ctx, warehouse.Settings{
		Account:          cfg.Warehouse.Account,
		User:             cfg.Warehouse.User,
		Password:         cfg.Warehouse.Password,
		PrivateKeyPath:   cfg.Warehouse.PrivateKeyPath,
		PrivateKeyPass:   cfg.Warehouse.PrivateKeyPass,
		Role:             cfg.Warehouse.Role,
		Warehouse:        cfg.Warehouse.WarehouseName,
		Database:         cfg.Warehouse.Database,
		Schema:           cfg.Warehouse.Schema,
		Region:           cfg.Warehouse.Region,
		Host:             cfg.Warehouse.Host,
		QueryTag:         cfg.Budgets.QueryTag,
		StatementTimeout: cfg.Budgets.SelectTimeout,
		ScanBudgetBytes:  cfg.Budgets.ScanBudgetBytes,
		SampleLimit:      cfg.Budgets.SampleLimit,
		AllowedSchemas:   cfg.Budgets.AllowedSchemas,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect warehouse: %w", err)
	}
	return sf, func() { _ = sf.Close() }, nil
}

func openArtifacts(ctx context.Context, cfg config.Config) (artifact.Writer, error) {
	if cfg.ArtifactStore.Bucket == "" {
		return artifact.NewMemory(), nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.ArtifactStore.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.ArtifactStore.Endpoint))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return artifact.NewS3(client, cfg.ArtifactStore.Bucket), nil
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "compile tests without executing them against the warehouse")
	runCmd.Flags().IntVar(&runBudgetSeconds, "budget", 0, "soft wall-clock budget in seconds (0 disables)")
	runCmd.Flags().BoolVar(&runFollow, "follow", false, "stream progress events to stderr while the run executes")
	runCmd.Flags().StringVar(&runEnvironment, "env", "dev", "environment label recorded on the run")
	runCmd.Flags().IntVar(&runParallel, "parallel", orchestrator.DefaultMaxParallelTests, "max tests to execute concurrently")
}
