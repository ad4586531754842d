package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/model"
)

// Postgres is the production Store, backed by lib/pq through sqlx. Every
// table lives under the "dataflowguard" schema.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres opens and pings a new connection.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	db, err := sqlx.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("runstore: open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgresFromDB wraps an already-open handle, for callers that manage
// the pool lifecycle themselves (e.g. tests against sqlmock).
func NewPostgresFromDB(db *sql.DB) *Postgres {
	return &Postgres{db: sqlx.NewDb(db, "postgres")}
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) BeginRun(ctx context.Context, suiteName, environment, connection string) (model.Run, error) {
	run := model.Run{
		ID:          uuid.NewString(),
		SuiteName:   suiteName,
		Status:      model.RunRunning,
		StartedAt:   time.Now().UTC(),
		Environment: environment,
		Connection:  connection,
		QueryIDs:    []string{},
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO "dataflowguard".runs
			(id, suite_name, status, started_at, environment, connection, query_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.SuiteName, run.Status, run.StartedAt, run.Environment, run.Connection, pq.StringArray(run.QueryIDs),
	)
	if err != nil {
		return model.Run{}, fmt.Errorf("runstore: begin_run: %w", err)
	}
	return run, nil
}

func (p *Postgres) AppendTest(ctx context.Context, runID string, test model.RunTest) error {
	observed, err := json.Marshal(test.Observed)
	if err != nil {
		return fmt.Errorf("runstore: marshal observed: %w", err)
	}
	expected, err := json.Marshal(test.Expected)
	if err != nil {
		return fmt.Errorf("runstore: marshal expected: %w", err)
	}

	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO "dataflowguard".run_tests
			(id, run_id, name, type, status, started_at, finished_at, duration_ms, observed, expected, query_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		test.ID, runID, test.Name, test.Kind, test.Status, test.StartedAt, test.FinishedAt,
		test.DurationMs, observed, expected, test.QueryID, test.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("runstore: append_test: %w", err)
	}
	return nil
}

func (p *Postgres) FinalizeRun(ctx context.Context, runID string, status model.RunStatus, queryIDs []string, bytesScanned *int64, errMsg *string) (model.Run, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Run{}, fmt.Errorf("runstore: finalize_run begin tx: %w", err)
	}
	defer tx.Rollback()

	var currentStatus model.RunStatus
	if err := tx.GetContext(ctx, &currentStatus, `SELECT status FROM "dataflowguard".runs WHERE id = $1 FOR UPDATE`, runID); err != nil {
		if err == sql.ErrNoRows {
			return model.Run{}, dtoerrors.New(dtoerrors.KindStoreError, fmt.Sprintf("finalize_run: run %s not found", runID)).WithRun(runID)
		}
		return model.Run{}, fmt.Errorf("runstore: finalize_run lookup: %w", err)
	}
	if currentStatus.Terminal() {
		return model.Run{}, dtoerrors.New(dtoerrors.KindStoreError, "finalize_run: run is already terminal").WithRun(runID)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE "dataflowguard".runs
		SET status = $1, finished_at = $2, duration_ms = (EXTRACT(EPOCH FROM ($2 - started_at)) * 1000)::bigint,
			query_ids = $3, bytes_scanned = $4, error_message = $5
		WHERE id = $6`,
		status, now, pq.StringArray(queryIDs), bytesScanned, errMsg, runID,
	)
	if err != nil {
		return model.Run{}, fmt.Errorf("runstore: finalize_run update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Run{}, fmt.Errorf("runstore: finalize_run commit: %w", err)
	}
	return p.GetRun(ctx, runID)
}

func (p *Postgres) AppendArtifact(ctx context.Context, runID string, artifact model.Artifact) error {
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO "dataflowguard".artifacts
			(id, run_id, kind, path, url, size_bytes, content_type, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		artifact.ID, runID, artifact.Kind, artifact.Path, artifact.URL, artifact.SizeBytes,
		artifact.ContentType, artifact.CreatedAt, artifact.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("runstore: append_artifact: %w", err)
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, runID string) (model.Run, error) {
	var run model.Run
	var queryIDs pq.StringArray
	row := p.db.QueryRowxContext(ctx, `
		SELECT id, suite_name, status, started_at, finished_at, duration_ms, bytes_scanned,
			query_ids, environment, connection, error_message
		FROM "dataflowguard".runs WHERE id = $1`, runID)
	err := row.Scan(&run.ID, &run.SuiteName, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationMs,
		&run.BytesScanned, &queryIDs, &run.Environment, &run.Connection, &run.ErrorMessage)
	if err == sql.ErrNoRows {
		return model.Run{}, dtoerrors.New(dtoerrors.KindStoreError, fmt.Sprintf("get_run: run %s not found", runID)).WithRun(runID)
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("runstore: get_run: %w", err)
	}
	run.QueryIDs = []string(queryIDs)
	return run, nil
}

func (p *Postgres) ListRuns(ctx context.Context, filter ListFilter, limit, offset int) ([]model.Run, error) {
	query := `SELECT id, suite_name, status, started_at, finished_at, duration_ms, bytes_scanned,
		query_ids, environment, connection, error_message FROM "dataflowguard".runs WHERE 1=1`
	var args []any
	argIndex := 1
	if filter.SuiteName != "" {
		query += fmt.Sprintf(" AND suite_name = $%d", argIndex)
		args = append(args, filter.SuiteName)
		argIndex++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := p.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("runstore: list_runs: %w", err)
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		var run model.Run
		var queryIDs pq.StringArray
		if err := rows.Scan(&run.ID, &run.SuiteName, &run.Status, &run.StartedAt, &run.FinishedAt, &run.DurationMs,
			&run.BytesScanned, &queryIDs, &run.Environment, &run.Connection, &run.ErrorMessage); err != nil {
			return nil, fmt.Errorf("runstore: list_runs scan: %w", err)
		}
		run.QueryIDs = []string(queryIDs)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (p *Postgres) ListTests(ctx context.Context, runID string, limit, offset int) ([]model.RunTest, error) {
	rows, err := p.db.QueryxContext(ctx, `
		SELECT id, run_id, name, type, status, started_at, finished_at, duration_ms, observed, expected, query_id, error_message
		FROM "dataflowguard".run_tests WHERE run_id = $1 ORDER BY finished_at ASC LIMIT $2 OFFSET $3`,
		runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("runstore: list_tests: %w", err)
	}
	defer rows.Close()

	var out []model.RunTest
	for rows.Next() {
		var t model.RunTest
		var observed, expected []byte
		if err := rows.Scan(&t.ID, &t.RunID, &t.Name, &t.Kind, &t.Status, &t.StartedAt, &t.FinishedAt,
			&t.DurationMs, &observed, &expected, &t.QueryID, &t.ErrorMessage); err != nil {
			return nil, fmt.Errorf("runstore: list_tests scan: %w", err)
		}
		_ = json.Unmarshal(observed, &t.Observed)
		_ = json.Unmarshal(expected, &t.Expected)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error) {
	rows, err := p.db.QueryxContext(ctx, `
		SELECT id, run_id, kind, path, url, size_bytes, content_type, created_at, expires_at
		FROM "dataflowguard".artifacts WHERE run_id = $1 ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("runstore: list_artifacts: %w", err)
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.RunID, &a.Kind, &a.Path, &a.URL, &a.SizeBytes, &a.ContentType, &a.CreatedAt, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("runstore: list_artifacts scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
