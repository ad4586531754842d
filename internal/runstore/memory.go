package runstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/model"
)

// Memory is an in-memory Store, used by orchestrator tests and by the CLI
// whenever no store DSN is configured. It is not durable across process
// restarts.
type Memory struct {
	mu        sync.Mutex
	runs      map[string]model.Run
	tests     map[string][]model.RunTest
	artifacts map[string][]model.Artifact
}

func NewMemory() *Memory {
	return &Memory{
		runs:      map[string]model.Run{},
		tests:     map[string][]model.RunTest{},
		artifacts: map[string][]model.Artifact{},
	}
}

func (m *Memory) BeginRun(ctx context.Context, suiteName, environment, connection string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run := model.Run{
		ID:          uuid.NewString(),
		SuiteName:   suiteName,
		Status:      model.RunRunning,
		StartedAt:   time.Now().UTC(),
		Environment: environment,
		Connection:  connection,
		QueryIDs:    []string{},
	}
	m.runs[run.ID] = run
	return run, nil
}

func (m *Memory) AppendTest(ctx context.Context, runID string, test model.RunTest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return dtoerrors.New(dtoerrors.KindStoreError, fmt.Sprintf("append_test: run %s not found", runID)).WithRun(runID)
	}
	m.tests[runID] = append(m.tests[runID], test)
	return nil
}

func (m *Memory) FinalizeRun(ctx context.Context, runID string, status model.RunStatus, queryIDs []string, bytesScanned *int64, errMsg *string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return model.Run{}, dtoerrors.New(dtoerrors.KindStoreError, fmt.Sprintf("finalize_run: run %s not found", runID)).WithRun(runID)
	}
	if run.Status.Terminal() {
		return model.Run{}, dtoerrors.New(dtoerrors.KindStoreError, "finalize_run: run is already terminal").WithRun(runID)
	}

	now := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &now
	durationMs := now.Sub(run.StartedAt).Milliseconds()
	run.DurationMs = &durationMs
	run.QueryIDs = queryIDs
	run.BytesScanned = bytesScanned
	run.ErrorMessage = errMsg

	m.runs[runID] = run
	return run, nil
}

func (m *Memory) AppendArtifact(ctx context.Context, runID string, artifact model.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return dtoerrors.New(dtoerrors.KindStoreError, fmt.Sprintf("append_artifact: run %s not found", runID)).WithRun(runID)
	}
	m.artifacts[runID] = append(m.artifacts[runID], artifact)
	return nil
}

func (m *Memory) GetRun(ctx context.Context, runID string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return model.Run{}, dtoerrors.New(dtoerrors.KindStoreError, fmt.Sprintf("get_run: run %s not found", runID)).WithRun(runID)
	}
	return run, nil
}

func (m *Memory) ListRuns(ctx context.Context, filter ListFilter, limit, offset int) ([]model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.Run
	for _, r := range m.runs {
		if filter.SuiteName != "" && r.SuiteName != filter.SuiteName {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) ListTests(ctx context.Context, runID string, limit, offset int) ([]model.RunTest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tests := m.tests[runID]
	if offset >= len(tests) {
		return nil, nil
	}
	tests = tests[offset:]
	if limit > 0 && limit < len(tests) {
		tests = tests[:limit]
	}
	out := make([]model.RunTest, len(tests))
	copy(out, tests)
	return out, nil
}

func (m *Memory) ListArtifacts(ctx context.Context, runID string) ([]model.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Artifact, len(m.artifacts[runID]))
	copy(out, m.artifacts[runID])
	return out, nil
}
