// Package runstore is the durable repository backing the orchestrator:
// Run, RunTest, and Artifact records, written under a single-writer-per
// run_id discipline with each append and finalize applied as one atomic
// unit.
package runstore

import (
	"context"

	"dataflowguard/internal/model"
)

// ListFilter narrows list_runs by the fields callers commonly filter on.
type ListFilter struct {
	SuiteName string
	Status    model.RunStatus
}

// Store is the contract the orchestrator depends on. Postgres is the
// durable implementation; Memory is a non-durable implementation used by
// tests and by the CLI when no store DSN is configured.
type Store interface {
	BeginRun(ctx context.Context, suiteName, environment, connection string) (model.Run, error)
	AppendTest(ctx context.Context, runID string, test model.RunTest) error
	FinalizeRun(ctx context.Context, runID string, status model.RunStatus, queryIDs []string, bytesScanned *int64, errMsg *string) (model.Run, error)
	AppendArtifact(ctx context.Context, runID string, artifact model.Artifact) error

	GetRun(ctx context.Context, runID string) (model.Run, error)
	ListRuns(ctx context.Context, filter ListFilter, limit, offset int) ([]model.Run, error)
	ListTests(ctx context.Context, runID string, limit, offset int) ([]model.RunTest, error)
	ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error)
}
