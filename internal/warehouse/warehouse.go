// Package warehouse implements the read-only contract between the engine
// and the analytical warehouse. Explain and Select validate the caller's
// statement through the guardrail before it reaches the underlying
// driver; the client's own fixed session, schema, stats and query-history
// statements do not pass through it. Snowflake applies PII redaction to
// Select result rows; Recorded returns its seeded rows as given.
package warehouse

import (
	"context"
	"time"
)

// AuthMethod enumerates the supported connection authentication schemes.
type AuthMethod string

const (
	AuthPassword   AuthMethod = "password"
	AuthPrivateKey AuthMethod = "private_key"
	AuthIAM        AuthMethod = "iam"
	AuthOIDC       AuthMethod = "oidc"
	AuthKerberos   AuthMethod = "kerberos"
	AuthMTLS       AuthMethod = "mtls"
	AuthVault      AuthMethod = "vault"
)

// Settings configures a single-run warehouse session. A connection is
// never shared across runs: each run opens and closes its own session so
// per-run QUERY_TAG and timeout settings apply cleanly.
type Settings struct {
	Account           string
	User              string
	Password          string
	PrivateKeyPath    string
	PrivateKeyPass    string
	AuthMethod        AuthMethod
	Role              string
	Warehouse         string
	Database          string
	Schema            string
	Region            string
	Host              string
	QueryTag          string
	StatementTimeout  time.Duration
	ScanBudgetBytes   int64
	SampleLimit       int
	AllowedSchemas    []string
}

// ExplainResult is the pre-flight budget check output.
type ExplainResult struct {
	PlanText        string
	PlanHash        string
	EstimatedBytes  int64
}

// Stats are the per-query execution metrics captured best-effort from
// query history.
type Stats struct {
	BytesScanned int64
	ElapsedMs    int64
	Rows         int
	Warehouse    string
	Role         string
	Database     string
	Schema       string
}

// SelectResult is the post-execution output of a bounded select.
type SelectResult struct {
	QueryID  string
	Rows     []map[string]any
	Stats    Stats
	PlanText string
}

// TableSchema is the get_table_schema response: ordered columns.
type TableSchema struct {
	Columns []ColumnInfo
}

type ColumnInfo struct {
	Name     string
	DataType string
	Nullable bool
}

// TableStats is the get_table_stats response.
type TableStats struct {
	RowCount  int64
	ByteSize  int64
	UpdatedAt *time.Time
}

// Client is the read-only contract every component upstream of the
// evaluator depends on. Implementations: Snowflake (real driver) and
// Recorded (an in-memory double for tests).
type Client interface {
	Connect(ctx context.Context, settings Settings) error
	Explain(ctx context.Context, sql string) (ExplainResult, error)
	Select(ctx context.Context, sql string, limit int) (SelectResult, error)
	TestConnection(ctx context.Context) error
	GetTableSchema(ctx context.Context, table string) (TableSchema, error)
	GetTableStats(ctx context.Context, table string) (TableStats, error)
	Close() error
}
