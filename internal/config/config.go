// Package config loads the engine's configuration surface from file and
// environment sources via viper, with fallback defaults for
// every group spec.md enumerates: warehouse, budgets, AI, artifact
// store, and policy.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Warehouse mirrors warehouse.Settings' source fields before they are
// parsed into a typed warehouse.Settings value.
type Warehouse struct {
	Account        string
	User           string
	Password       string
	PrivateKeyPath string
	PrivateKeyPass string
	Role           string
	WarehouseName  string
	Database       string
	Schema         string
	Region         string
	Host           string
}

// Budgets groups the knobs the guardrail-in-depth and warehouse client
// enforce pre- and post-flight.
type Budgets struct {
	SelectTimeout   time.Duration
	ScanBudgetBytes int64
	SampleLimit     int
	AllowedSchemas  []string
	QueryTag        string
}

// AI configures the generative provider, which is used when enabled; the
// deterministic stub is the fallback otherwise.
type AI struct {
	Model       string
	Temperature float64
	TopP        float64
	Seed        int64
	Timeout     time.Duration
	Endpoint    string
	APIKey      string
	Enabled     bool
}

// ArtifactStore configures the S3-compatible artifact backend. A zero
// Bucket means the in-memory artifact.Memory writer is used instead.
type ArtifactStore struct {
	Endpoint   string
	Bucket     string
	PresignTTL time.Duration
}

// Policies captures the recognized policy switches from §6.
type Policies struct {
	ExternalAIEnabled        bool
	SQLPreviewEnabled        bool
	AdminPowerMode           bool
	PIIRedactionEnabled      bool
	SampleRowLimit           int
	DefaultTimeBudgetSeconds int
	MaxTimeBudgetSeconds     int
	RunRetentionDays         int
	ArtifactRetentionDays    int
}

// SQLPreviewAllowed requires both sql_preview_enabled and
// admin_power_mode, per the policy's documented effect.
func (p Policies) SQLPreviewAllowed() bool {
	return p.SQLPreviewEnabled && p.AdminPowerMode
}

// Config is the fully resolved configuration surface for one process.
type Config struct {
	Environment string
	StoreDSN    string

	Warehouse     Warehouse
	Budgets       Budgets
	AI            AI
	ArtifactStore ArtifactStore
	Policies      Policies
}

// Load reads configuration from (in increasing precedence) the defaults
// below, a config file, and environment variables prefixed DATAFLOWGUARD_. configFile may be empty, in which case only env vars and
// defaults apply.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DATAFLOWGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	return Config{
		Environment: v.GetString("environment"),
		StoreDSN:    v.GetString("store.dsn"),
		Warehouse: Warehouse{
			Account:        v.GetString("warehouse.account"),
			User:           v.GetString("warehouse.user"),
			Password:       v.GetString("warehouse.password"),
			PrivateKeyPath: v.GetString("warehouse.private_key_path"),
			PrivateKeyPass: v.GetString("warehouse.private_key_pass"),
			Role:           v.GetString("warehouse.role"),
			WarehouseName:  v.GetString("warehouse.warehouse"),
			Database:       v.GetString("warehouse.database"),
			Schema:         v.GetString("warehouse.schema"),
			Region:         v.GetString("warehouse.region"),
			Host:           v.GetString("warehouse.host"),
		},
		Budgets: Budgets{
			SelectTimeout:   v.GetDuration("budgets.select_timeout_s") * time.Second,
			ScanBudgetBytes: v.GetInt64("budgets.scan_budget_bytes"),
			SampleLimit:     v.GetInt("budgets.sample_limit"),
			AllowedSchemas:  v.GetStringSlice("budgets.allowed_schemas"),
			QueryTag:        v.GetString("budgets.query_tag"),
		},
		AI: AI{
			Model:       v.GetString("ai.model"),
			Temperature: v.GetFloat64("ai.temperature"),
			TopP:        v.GetFloat64("ai.top_p"),
			Seed:        v.GetInt64("ai.seed"),
			Timeout:     v.GetDuration("ai.timeout_s") * time.Second,
			Endpoint:    v.GetString("ai.endpoint"),
			APIKey:      v.GetString("ai.api_key"),
			Enabled:     v.GetBool("policies.external_ai_enabled"),
		},
		ArtifactStore: ArtifactStore{
			Endpoint:   v.GetString("artifact_store.endpoint"),
			Bucket:     v.GetString("artifact_store.bucket"),
			PresignTTL: v.GetDuration("artifact_store.presign_ttl_days") * 24 * time.Hour,
		},
		Policies: Policies{
			ExternalAIEnabled:        v.GetBool("policies.external_ai_enabled"),
			SQLPreviewEnabled:        v.GetBool("policies.sql_preview_enabled"),
			AdminPowerMode:           v.GetBool("policies.admin_power_mode"),
			PIIRedactionEnabled:      v.GetBool("policies.pii_redaction_enabled"),
			SampleRowLimit:           v.GetInt("policies.sample_row_limit"),
			DefaultTimeBudgetSeconds: v.GetInt("policies.default_time_budget_seconds"),
			MaxTimeBudgetSeconds:     v.GetInt("policies.max_time_budget_seconds"),
			RunRetentionDays:         v.GetInt("policies.run_retention_days"),
			ArtifactRetentionDays:    v.GetInt("policies.artifact_retention_days"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "dev")

	v.SetDefault("budgets.select_timeout_s", 60)
	v.SetDefault("budgets.scan_budget_bytes", 10_000_000_000)
	v.SetDefault("budgets.sample_limit", 100)
	v.SetDefault("budgets.query_tag", "DataFlowGuard")

	v.SetDefault("ai.model", "deterministic")
	v.SetDefault("ai.temperature", 0.0)
	v.SetDefault("ai.top_p", 1.0)
	v.SetDefault("ai.seed", 42)
	v.SetDefault("ai.timeout_s", 30)

	v.SetDefault("artifact_store.presign_ttl_days", 7)

	v.SetDefault("policies.external_ai_enabled", false)
	v.SetDefault("policies.sql_preview_enabled", false)
	v.SetDefault("policies.admin_power_mode", false)
	v.SetDefault("policies.pii_redaction_enabled", true)
	v.SetDefault("policies.sample_row_limit", 100)
	v.SetDefault("policies.default_time_budget_seconds", 300)
	v.SetDefault("policies.max_time_budget_seconds", 3600)
	v.SetDefault("policies.run_retention_days", 90)
	v.SetDefault("policies.artifact_retention_days", 90)
}
