// Package orchestrator owns the Run state machine: it compiles each test,
// checks it against the scan budget, executes it against the warehouse,
// evaluates the result, persists it, and streams progress. It is the
// only component that sequences the others; none of compiler, warehouse,
// evaluator, runstore, or artifact know about each other directly.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dataflowguard/internal/artifact"
	"dataflowguard/internal/compiler"
	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/evaluator"
	"dataflowguard/internal/logging"
	"dataflowguard/internal/model"
	"dataflowguard/internal/progress"
	"dataflowguard/internal/redact"
	"dataflowguard/internal/runstore"
	"dataflowguard/internal/warehouse"
)

// DefaultMaxParallelTests is the default fan-out per run: one test at a
// time, which keeps per-test query-history lookups deterministic and
// minimizes warehouse contention.
const DefaultMaxParallelTests = 1

// SuiteResolver looks up a named, validated suite. The engine never reads
// suite definitions from disk or a database directly.
type SuiteResolver interface {
	Resolve(ctx context.Context, name string) (model.TestSuite, error)
}

// Options configures one suite execution.
type Options struct {
	Environment      string
	MaxParallelTests int
	BudgetSeconds    int
	DryRun           bool

	// OnRunStarted, when set, is called synchronously with the assigned
	// run id right after BeginRun succeeds and before any test executes,
	// so a caller can subscribe to the progress bus without racing the
	// first published event.
	OnRunStarted func(runID string)
}

func (o Options) parallelism() int {
	if o.MaxParallelTests > 0 {
		return o.MaxParallelTests
	}
	return DefaultMaxParallelTests
}

// Engine wires together every component the suite execution algorithm
// touches. A single Engine serves many concurrent runs; per-run state
// lives in the cancels map of per-run cancel functions, guarded by mu.
type Engine struct {
	suites    SuiteResolver
	warehouse warehouse.Client
	store     runstore.Store
	artifacts artifact.Writer
	bus       *progress.Bus
	log       *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewEngine(suites SuiteResolver, wh warehouse.Client, store runstore.Store, artifacts artifact.Writer, bus *progress.Bus) *Engine {
	log, err := logging.New(false)
	if err != nil {
		log = zap.NewNop()
	}
	return &Engine{
		suites:    suites,
		warehouse: wh,
		store:     store,
		artifacts: artifacts,
		bus:       bus,
		log:       log,
		cancels:   map[string]context.CancelFunc{},
	}
}

// WithLogger overrides the engine's default logger, e.g. with the CLI's
// run-scoped, verbosity-configured instance.
func (e *Engine) WithLogger(log *zap.Logger) *Engine {
	e.log = log
	return e
}

// Start resolves the suite, persists the running Run, and executes its
// tests according to the suite execution algorithm. It blocks until the
// run reaches a terminal state; callers that want live updates should
// Subscribe via the progress bus from Options.OnRunStarted, which receives
// the run id before any test executes.
func (e *Engine) Start(ctx context.Context, suiteName string, opts Options) (model.Run, error) {
	suite, err := e.suites.Resolve(ctx, suiteName)
	if err != nil {
		return model.Run{}, dtoerrors.Wrap(dtoerrors.KindSuiteNotFound, "resolve suite "+suiteName, err)
	}
	if err := suite.Validate(); err != nil {
		return model.Run{}, dtoerrors.Wrap(dtoerrors.KindValidation, "invalid suite "+suiteName, err)
	}

	run, err := e.store.BeginRun(ctx, suite.Name, opts.Environment, suite.Connection)
	if err != nil {
		return model.Run{}, dtoerrors.Wrap(dtoerrors.KindStoreError, "begin run", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if opts.BudgetSeconds > 0 {
		var budgetCancel context.CancelFunc
		runCtx, budgetCancel = context.WithTimeout(runCtx, time.Duration(opts.BudgetSeconds)*time.Second)
		defer budgetCancel()
	}
	e.mu.Lock()
	e.cancels[run.ID] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, run.ID)
		e.mu.Unlock()
		cancel()
	}()

	if opts.OnRunStarted != nil {
		opts.OnRunStarted(run.ID)
	}

	runLog := logging.WithRun(e.log, run.ID)
	runLog.Info("run started", zap.String("suite", suite.Name), zap.Int("tests", len(suite.Tests)))

	e.publish(run.ID, model.EventRunState, map[string]any{"status": run.Status})

	finished, execErr := e.executeSuite(runCtx, run, suite, opts)

	runLog.Info("run finished", zap.String("status", string(finished.Status)))
	e.publish(finished.ID, model.EventRunCompleted, map[string]any{"status": finished.Status})
	return finished, execErr
}

// Cancel transitions a running run to cancelled; it is idempotent and a
// no-op for a run that is not currently tracked (already terminal or
// unknown).
func (e *Engine) Cancel(runID string) {
	e.mu.Lock()
	cancel, ok := e.cancels[runID]
	e.mu.Unlock()
	if !ok {
		return
	}
	e.publish(runID, model.EventRunStatus, map[string]any{"status": model.RunCancelled})
	cancel()
}

func (e *Engine) executeSuite(ctx context.Context, run model.Run, suite model.TestSuite, opts Options) (model.Run, error) {
	results := make([]model.RunTest, 0, len(suite.Tests))
	var resultsMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.parallelism())

	for _, t := range suite.Tests {
		t := t
		group.Go(func() error {
			result := e.runOneTest(groupCtx, run.ID, t, opts)

			resultsMu.Lock()
			results = append(results, result)
			resultsMu.Unlock()

			if err := e.store.AppendTest(ctx, run.ID, result); err != nil {
				return dtoerrors.Wrap(dtoerrors.KindStoreError, "append test "+t.Name, err)
			}
			e.publish(run.ID, model.EventTestResult, map[string]any{
				"name":   result.Name,
				"status": result.Status,
			})
			return nil
		})
	}

	groupErr := group.Wait()

	status := model.RunCompleted
	var runErrMsg *string
	budgetExceeded := ctx.Err() == context.DeadlineExceeded
	cancelled := ctx.Err() == context.Canceled

	switch {
	case cancelled:
		status = model.RunCancelled
	case budgetExceeded:
		// Soft wall-clock limit: finalize as completed, not failed, with a
		// budget note carried in the error message field.
		status = model.RunCompleted
		note := "budget_seconds exceeded before all tests finished"
		runErrMsg = &note
	case groupErr != nil:
		status = model.RunFailed
		msg := groupErr.Error()
		runErrMsg = &msg
	}

	summary := model.NewSummary(results)
	e.writeArtifacts(context.WithoutCancel(ctx), run.ID, suite, results, summary)

	finalized, err := e.store.FinalizeRun(context.WithoutCancel(ctx), run.ID, status, nil, nil, runErrMsg)
	if err != nil {
		return run, dtoerrors.Wrap(dtoerrors.KindStoreError, "finalize run", err)
	}
	return finalized, groupErr
}

// runOneTest executes steps 3a-3c of the suite execution algorithm for a
// single test. It never returns an error: every failure mode becomes a
// terminal RunTest in status "error" so one bad test cannot abort the
// run's errgroup for the others.
func (e *Engine) runOneTest(ctx context.Context, runID string, t model.TestDefinition, opts Options) model.RunTest {
	started := time.Now().UTC()

	compiled, err := compiler.Compile(t)
	if err != nil {
		return errorResult(t, started, dtoerrors.Wrap(dtoerrors.KindCompileError, "compile "+t.Name, err))
	}

	if opts.DryRun {
		return model.RunTest{
			Name:       t.Name,
			Kind:       t.Kind,
			Status:     model.TestSkip,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
			Observed:   map[string]any{"dry_run": true, "sql": compiled.SQL},
		}
	}

	explainResult, err := e.warehouse.Explain(ctx, compiled.SQL)
	if err != nil {
		e.log.Warn("explain failed", zap.String("test", t.Name), zap.Error(err))
		return errorResult(t, started, err)
	}

	selectResult, err := e.warehouse.Select(ctx, compiled.SQL, 0)
	if err != nil {
		e.log.Warn("select failed", zap.String("test", t.Name), zap.Error(err))
		return errorResult(t, started, err)
	}

	outcome := evaluator.Evaluate(t, selectResult.Rows, selectResult.Stats)
	observed := outcome.Observed
	if observed == nil {
		observed = map[string]any{}
	}
	observed["plan_hash"] = explainResult.PlanHash
	observed["bytes_scanned"] = selectResult.Stats.BytesScanned

	finished := time.Now().UTC()
	queryID := selectResult.QueryID
	return model.RunTest{
		Name:       t.Name,
		Kind:       t.Kind,
		Status:     outcome.Status,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: finished.Sub(started).Milliseconds(),
		Observed:   observed,
		Expected:   compiled.Expected,
		QueryID:    &queryID,
	}
}

func errorResult(t model.TestDefinition, started time.Time, err error) model.RunTest {
	msg := err.Error()
	finished := time.Now().UTC()
	return model.RunTest{
		Name:         t.Name,
		Kind:         t.Kind,
		Status:       model.TestError,
		StartedAt:    started,
		FinishedAt:   finished,
		DurationMs:   finished.Sub(started).Milliseconds(),
		ErrorMessage: &msg,
	}
}

// writeArtifacts produces the report, logs, and per-test sample
// artifacts and records each successful write in the run store. Artifact
// failures are swallowed: absence is advisory, never escalated to the
// run's own status.
func (e *Engine) writeArtifacts(ctx context.Context, runID string, suite model.TestSuite, results []model.RunTest, summary model.Summary) {
	if e.artifacts == nil {
		return
	}
	now := time.Now().UTC()

	report, err := json.Marshal(map[string]any{
		"suite_name": suite.Name,
		"summary":    summary,
		"tests":      results,
	})
	if err == nil {
		e.recordArtifact(ctx, runID, model.ArtifactReport, "application/json", report, now)
	}

	var logs []byte
	for _, r := range results {
		line := fmt.Sprintf("[%s] %s: %s\n", r.FinishedAt.Format(time.RFC3339), r.Name, r.Status)
		logs = append(logs, []byte(line)...)
	}
	e.recordArtifact(ctx, runID, model.ArtifactLogs, "text/plain", logs, now)

	for _, r := range results {
		if r.Status != model.TestFail {
			continue
		}
		samples, err := json.Marshal(redactObservedSamples(r.Observed))
		if err != nil {
			continue
		}
		e.recordSampleArtifact(ctx, runID, r.Name, samples, now)
	}
}

func (e *Engine) recordArtifact(ctx context.Context, runID string, kind model.ArtifactKind, contentType string, content []byte, now time.Time) {
	path, url, err := e.artifacts.Write(ctx, runID, writerKind(kind), "", contentType, content, now)
	if err != nil || path == "" {
		return
	}
	e.store.AppendArtifact(ctx, runID, model.Artifact{
		RunID:       runID,
		Kind:        kind,
		Path:        path,
		URL:         url,
		SizeBytes:   int64(len(content)),
		ContentType: contentType,
		CreatedAt:   now,
	})
}

func (e *Engine) recordSampleArtifact(ctx context.Context, runID, testName string, content []byte, now time.Time) {
	path, url, err := e.artifacts.Write(ctx, runID, artifact.KindSamples, testName, "application/json", content, now)
	if err != nil || path == "" {
		return
	}
	e.store.AppendArtifact(ctx, runID, model.Artifact{
		RunID:       runID,
		Kind:        model.ArtifactSamples,
		Path:        path,
		URL:         url,
		SizeBytes:   int64(len(content)),
		ContentType: "application/json",
		CreatedAt:   now,
	})
}

func writerKind(k model.ArtifactKind) artifact.Kind {
	switch k {
	case model.ArtifactReport:
		return artifact.KindReport
	case model.ArtifactLogs:
		return artifact.KindLogs
	default:
		return artifact.KindSamples
	}
}

func (e *Engine) publish(runID string, eventType model.ProgressEventType, payload map[string]any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(model.ProgressEvent{
		RunID:     runID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

// RedactSamples is exposed for callers (e.g. the status command) that
// need to re-redact sample rows read back from the run store before display.
func RedactSamples(rows []map[string]any) []map[string]any {
	return redact.RedactRows(rows)
}

// redactObservedSamples returns a shallow copy of observed with any
// "sample" rows passed through RedactSamples before the samples artifact
// is written. Evaluator outcomes that embed row samples (uniqueness,
// duplicate groups) must never reach object storage unredacted.
func redactObservedSamples(observed map[string]any) map[string]any {
	if observed == nil {
		return nil
	}
	rows, ok := observed["sample"].([]map[string]any)
	if !ok {
		return observed
	}
	out := make(map[string]any, len(observed))
	for k, v := range observed {
		out[k] = v
	}
	out["sample"] = RedactSamples(rows)
	return out
}
