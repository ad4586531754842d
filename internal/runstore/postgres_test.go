package runstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestGetRunReturnsScannedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := NewPostgresFromDB(db)

	runID := "11111111-1111-1111-1111-111111111111"
	startedAt := time.Now().Add(-5 * time.Minute).UTC().Truncate(time.Second)

	rows := sqlmock.NewRows([]string{
		"id", "suite_name", "status", "started_at", "finished_at", "duration_ms",
		"bytes_scanned", "query_ids", "environment", "connection", "error_message",
	}).AddRow(runID, "nightly", "completed", startedAt, nil, nil, nil, "{}", "prod", "snowflake-prod", nil)

	query := regexp.QuoteMeta(`
		SELECT id, suite_name, status, started_at, finished_at, duration_ms, bytes_scanned,
			query_ids, environment, connection, error_message
		FROM "dataflowguard".runs WHERE id = $1`)
	mock.ExpectQuery(query).WithArgs(runID).WillReturnRows(rows)

	run, err := p.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if run.ID != runID {
		t.Errorf("unexpected run id: %s", run.ID)
	}
	if run.SuiteName != "nightly" {
		t.Errorf("unexpected suite name: %s", run.SuiteName)
	}

	if mockErr := mock.ExpectationsWereMet(); mockErr != nil {
		t.Fatalf("unmet sqlmock expectations: %v", mockErr)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	p := NewPostgresFromDB(db)

	query := regexp.QuoteMeta(`
		SELECT id, suite_name, status, started_at, finished_at, duration_ms, bytes_scanned,
			query_ids, environment, connection, error_message
		FROM "dataflowguard".runs WHERE id = $1`)
	mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(sqlmock.NewRows(nil))

	if _, err := p.GetRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a missing run")
	}

	if mockErr := mock.ExpectationsWereMet(); mockErr != nil {
		t.Fatalf("unmet sqlmock expectations: %v", mockErr)
	}
}
