package warehouse

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/guardrail"
	"dataflowguard/internal/redact"
)

// Snowflake is the real warehouse client, backed by database/sql and the
// official Snowflake driver. Statements given to Explain and Select pass
// through the guardrail before they are sent to the driver.
type Snowflake struct {
	db        *sql.DB
	guardrail *guardrail.Guardrail
	settings  Settings
}

// NewSnowflake dials the warehouse and applies session parameters. The
// private key, when configured, is loaded once here and held only as
// bytes for the lifetime of the connection.
func NewSnowflake(ctx context.Context, settings Settings) (*Snowflake, error) {
	cfg := &sf.Config{
		Account:   settings.Account,
		User:      settings.User,
		Role:      settings.Role,
		Warehouse: settings.Warehouse,
		Database:  settings.Database,
		Schema:    settings.Schema,
		Region:    settings.Region,
		Host:      settings.Host,
	}

	switch settings.AuthMethod {
	case AuthPrivateKey:
		keyBytes, err := os.ReadFile(settings.PrivateKeyPath)
		if err != nil {
			return nil, dtoerrors.Wrap(dtoerrors.KindAuthFailure, "read private key", err)
		}
		block, err := sf.ParsePKCS8PrivateKey(keyBytes, settings.PrivateKeyPass)
		if err != nil {
			return nil, dtoerrors.Wrap(dtoerrors.KindAuthFailure, "parse private key", err)
		}
		cfg.PrivateKey = block
		cfg.Authenticator = sf.AuthTypeJwt
	default:
		cfg.Password = settings.Password
	}

	dsn, err := sf.DSN(cfg)
	if err != nil {
		return nil, dtoerrors.Wrap(dtoerrors.KindConnection, "build dsn", err)
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, dtoerrors.Wrap(dtoerrors.KindConnection, "open connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dtoerrors.Wrap(dtoerrors.KindConnection, "ping warehouse", err)
	}

	tag := settings.QueryTag
	if tag == "" {
		tag = "DataFlowGuard"
	}
	sessionParams := []string{
		fmt.Sprintf("ALTER SESSION SET QUERY_TAG = '%s'", escapeLiteral(tag)),
		fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d", int(settings.StatementTimeout.Seconds())),
		"ALTER SESSION SET JDBC_QUERY_RESULT_FORMAT = 'JSON'",
	}
	for _, stmt := range sessionParams {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, dtoerrors.Wrap(dtoerrors.KindConnection, "set session parameter", err)
		}
	}

	return &Snowflake{
		db:        db,
		guardrail: guardrail.New(settings.AllowedSchemas),
		settings:  settings,
	}, nil
}

func (s *Snowflake) Connect(ctx context.Context, settings Settings) error {
	return fmt.Errorf("warehouse: Connect is a no-op on an already-dialed Snowflake client; use NewSnowflake")
}

func (s *Snowflake) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Snowflake) Explain(ctx context.Context, rawSQL string) (ExplainResult, error) {
	if v := s.guardrail.Validate(rawSQL); v != nil {
		return ExplainResult{}, dtoerrors.Wrap(dtoerrors.KindGuardrailViolation, v.Error(), v)
	}
	explainSQL := "EXPLAIN USING TEXT " + guardrail.Normalize(rawSQL)
	if v := s.guardrail.Validate(explainSQL); v != nil {
		return ExplainResult{}, dtoerrors.Wrap(dtoerrors.KindGuardrailViolation, v.Error(), v)
	}

	row := s.db.QueryRowContext(ctx, explainSQL)
	var planText string
	if err := row.Scan(&planText); err != nil {
		return ExplainResult{}, dtoerrors.Wrap(dtoerrors.KindUpstreamError, "explain query failed", err)
	}

	sum := sha256.Sum256([]byte(planText))
	planHash := hex.EncodeToString(sum[:])[:16]

	estimated := estimateBytesFromPlan(planText)
	if s.settings.ScanBudgetBytes > 0 && estimated > s.settings.ScanBudgetBytes {
		return ExplainResult{PlanText: planText, PlanHash: planHash, EstimatedBytes: estimated},
			dtoerrors.New(dtoerrors.KindBudgetExceeded, fmt.Sprintf("estimated_bytes=%d exceeds budget=%d", estimated, s.settings.ScanBudgetBytes))
	}

	return ExplainResult{PlanText: planText, PlanHash: planHash, EstimatedBytes: estimated}, nil
}

func (s *Snowflake) Select(ctx context.Context, rawSQL string, limit int) (SelectResult, error) {
	if v := s.guardrail.Validate(rawSQL); v != nil {
		return SelectResult{}, dtoerrors.Wrap(dtoerrors.KindGuardrailViolation, v.Error(), v)
	}

	sampleLimit := s.settings.SampleLimit
	if limit > 0 && (sampleLimit == 0 || limit < sampleLimit) {
		sampleLimit = limit
	}
	execSQL := guardrail.Normalize(rawSQL)
	if sampleLimit > 0 && !strings.Contains(strings.ToUpper(execSQL), "LIMIT") {
		execSQL = fmt.Sprintf("%s LIMIT %d", execSQL, sampleLimit)
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, execSQL)
	if err != nil {
		return SelectResult{}, dtoerrors.Wrap(dtoerrors.KindUpstreamError, "select query failed", err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return SelectResult{}, dtoerrors.Wrap(dtoerrors.KindUpstreamError, "scan rows", err)
	}
	out = redact.RedactRows(out)

	elapsed := time.Since(start)
	stats := Stats{
		ElapsedMs: elapsed.Milliseconds(),
		Rows:      len(out),
		Warehouse: s.settings.Warehouse,
		Role:      s.settings.Role,
		Database:  s.settings.Database,
		Schema:    s.settings.Schema,
	}
	stats.BytesScanned = s.queryHistoryBytesScanned(ctx)

	return SelectResult{QueryID: "", Rows: out, Stats: stats}, nil
}

// queryHistoryBytesScanned looks up bytes scanned from
// INFORMATION_SCHEMA.QUERY_HISTORY on a best-effort basis: failure here
// never fails the select itself.
func (s *Snowflake) queryHistoryBytesScanned(ctx context.Context) int64 {
	row := s.db.QueryRowContext(ctx,
		"SELECT BYTES_SCANNED FROM TABLE(INFORMATION_SCHEMA.QUERY_HISTORY(RESULT_LIMIT => 1)) ORDER BY START_TIME DESC LIMIT 1")
	var bytesScanned int64
	if err := row.Scan(&bytesScanned); err != nil {
		return 0
	}
	return bytesScanned
}

func (s *Snowflake) TestConnection(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Snowflake) GetTableSchema(ctx context.Context, table string) (TableSchema, error) {
	ref := strings.Split(table, ".")
	schemaName, tableName := "", ref[len(ref)-1]
	if len(ref) >= 2 {
		schemaName = ref[len(ref)-2]
	}
	sqlText := fmt.Sprintf(
		"SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE FROM INFORMATION_SCHEMA.COLUMNS "+
			"WHERE TABLE_SCHEMA = '%s' AND TABLE_NAME = '%s' ORDER BY ORDINAL_POSITION",
		escapeLiteral(strings.ToUpper(schemaName)), escapeLiteral(strings.ToUpper(tableName)),
	)
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return TableSchema{}, dtoerrors.Wrap(dtoerrors.KindUpstreamError, "get table schema", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return TableSchema{}, dtoerrors.Wrap(dtoerrors.KindUpstreamError, "scan schema row", err)
		}
		cols = append(cols, ColumnInfo{Name: name, DataType: dataType, Nullable: strings.EqualFold(nullable, "YES")})
	}
	return TableSchema{Columns: cols}, nil
}

func (s *Snowflake) GetTableStats(ctx context.Context, table string) (TableStats, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT ROW_COUNT, BYTES, LAST_ALTERED FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = '%s'", escapeLiteral(strings.ToUpper(table))))
	var stats TableStats
	var updatedAt sql.NullTime
	if err := row.Scan(&stats.RowCount, &stats.ByteSize, &updatedAt); err != nil {
		return TableStats{}, dtoerrors.Wrap(dtoerrors.KindUpstreamError, "get table stats", err)
	}
	if updatedAt.Valid {
		stats.UpdatedAt = &updatedAt.Time
	}
	return stats, nil
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// estimateBytesFromPlan is a conservative, best-effort parse of the
// Snowflake text plan's "bytes assigned" figure; callers that need an
// authoritative number should rely on post-execution stats instead.
func estimateBytesFromPlan(planText string) int64 {
	const marker = "bytes assigned"
	idx := strings.Index(strings.ToLower(planText), marker)
	if idx == -1 {
		return 0
	}
	var n int64
	fmt.Sscanf(planText[idx+len(marker):], " %d", &n)
	return n
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
