// Package model holds the data shapes shared across every component:
// TestDefinition and TestSuite (user-declared), Run/RunTest/Artifact
// (durable records owned by the orchestrator and run store), and
// ProgressEvent (transient, never persisted).
package model

import "time"

// TestKind enumerates the supported assertion kinds. Unknown kinds fall
// back to row_count at compile time (see internal/compiler).
type TestKind string

const (
	KindUniqueness               TestKind = "uniqueness"
	KindNotNull                  TestKind = "not_null"
	KindRowCount                 TestKind = "row_count"
	KindFreshness                TestKind = "freshness"
	KindRule                     TestKind = "rule"
	KindSchema                   TestKind = "schema"
	KindReconciliation           TestKind = "reconciliation"
	KindDrift                    TestKind = "drift"
	KindJSONPathExists           TestKind = "json_path_exists"
	KindJSONArrayFlatten         TestKind = "json_array_flatten"
	KindJSONTypeCheck            TestKind = "json_type_check"
	KindJSONUniqueness           TestKind = "json_uniqueness"
	KindJSONMappingEquivalence   TestKind = "json_mapping_equivalence"
)

// Severity and Gate classify how a failing test should be treated by
// callers aggregating suite results; the engine itself always records the
// true pass/fail/error outcome regardless of gate.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityMajor   Severity = "major"
	SeverityMinor   Severity = "minor"
)

type Gate string

const (
	GateFail Gate = "fail"
	GateWarn Gate = "warn"
)

// Window selects the lookback or partition strategy for freshness and
// incremental checks.
type Window struct {
	LastDays  *int    `json:"last_days,omitempty"`
	LastHours *int    `json:"last_hours,omitempty"`
	BatchID   *string `json:"batch_id,omitempty"`
	Range     *string `json:"range,omitempty"`
}

// Tolerance bounds how far an observed value may drift from its expected
// value before a test is considered failing.
type Tolerance struct {
	Abs     *float64 `json:"abs,omitempty"`
	Pct     *float64 `json:"pct,omitempty"`
	DupRows *int     `json:"dup_rows,omitempty"`
	Hours   *float64 `json:"hours,omitempty"`
	MinRows *int     `json:"min_rows,omitempty"`
	MaxRows *int     `json:"max_rows,omitempty"`
}

// TestDefinition is an immutable, per-run value declaring one assertion
// against one dataset.
type TestDefinition struct {
	Name       string     `json:"name"`
	Kind       TestKind   `json:"kind"`
	Dataset    string     `json:"dataset"`
	Keys       []string   `json:"keys,omitempty"`
	Expression string     `json:"expression,omitempty"`
	Window     *Window    `json:"window,omitempty"`
	Filters    []string   `json:"filters,omitempty"`
	Tolerance  *Tolerance `json:"tolerance,omitempty"`
	Severity   Severity   `json:"severity"`
	Gate       Gate       `json:"gate"`

	// JSONPath, JSONType, and JSONColumn parameterize the json_* kinds:
	// the payload path every json_* kind inspects, the expected scalar
	// type for json_type_check, and the tabular column compared against
	// the JSON source for json_mapping_equivalence.
	JSONPath   string `json:"json_path,omitempty"`
	JSONType   string `json:"json_type,omitempty"`
	JSONColumn string `json:"json_column,omitempty"`
}

// TestSuite is an ordered collection of tests sharing one warehouse
// connection alias.
type TestSuite struct {
	Name       string           `json:"name"`
	Connection string           `json:"connection"`
	Tests      []TestDefinition `json:"tests"`
	Tags       []string         `json:"tags,omitempty"`
}

// Validate enforces the suite-level invariants from the data model: test
// names non-empty and unique within the suite, and every dataset
// non-empty. Dataset syntax is not checked here.
func (s *TestSuite) Validate() error {
	seen := make(map[string]bool, len(s.Tests))
	for _, t := range s.Tests {
		if t.Name == "" {
			return errEmptyTestName{}
		}
		if seen[t.Name] {
			return &duplicateTestNameError{Name: t.Name}
		}
		seen[t.Name] = true
		if t.Dataset == "" {
			return &emptyDatasetError{Test: t.Name}
		}
	}
	return nil
}

// RunStatus is the lifecycle state of a Run. Terminal states are
// monotonic: once completed, failed, or cancelled, a Run accepts no
// further mutation.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// Run is the durable record of one suite execution.
type Run struct {
	ID           string     `json:"id"`
	SuiteName    string     `json:"suite_name"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
	BytesScanned *int64     `json:"bytes_scanned,omitempty"`
	QueryIDs     []string   `json:"query_ids"`
	Environment  string     `json:"environment"`
	Connection   string     `json:"connection"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// RunTestStatus is the terminal outcome of one test within a run.
type RunTestStatus string

const (
	TestPass  RunTestStatus = "pass"
	TestFail  RunTestStatus = "fail"
	TestError RunTestStatus = "error"
	TestSkip  RunTestStatus = "skip"
)

// RunTest is the terminal record for one test within a Run. It is written
// exactly once, in its terminal state.
type RunTest struct {
	ID           string          `json:"id"`
	RunID        string          `json:"run_id"`
	Name         string          `json:"name"`
	Kind         TestKind        `json:"kind"`
	Status       RunTestStatus   `json:"status"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	DurationMs   int64           `json:"duration_ms"`
	Observed     map[string]any  `json:"observed,omitempty"`
	Expected     map[string]any  `json:"expected,omitempty"`
	QueryID      *string         `json:"query_id,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

// ArtifactKind enumerates the object kinds the artifact writer produces.
type ArtifactKind string

const (
	ArtifactReport  ArtifactKind = "report"
	ArtifactLogs    ArtifactKind = "logs"
	ArtifactSamples ArtifactKind = "samples"
)

// Artifact is an append-only, per-run pointer into object storage.
type Artifact struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id"`
	Kind        ArtifactKind `json:"kind"`
	Path        string     `json:"path"`
	URL         *string    `json:"url,omitempty"`
	SizeBytes   int64      `json:"size_bytes"`
	ContentType string     `json:"content_type"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ProgressEventType enumerates the live progress stream event types.
type ProgressEventType string

const (
	EventRunState     ProgressEventType = "run_state"
	EventRunStatus    ProgressEventType = "run_status"
	EventTestResult   ProgressEventType = "test_result"
	EventHeartbeat    ProgressEventType = "heartbeat"
	EventRunCompleted ProgressEventType = "run_completed"
)

// ProgressEvent is transient: it is fanned out to subscribers and never
// persisted.
type ProgressEvent struct {
	RunID     string            `json:"run_id"`
	Type      ProgressEventType `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]any    `json:"payload,omitempty"`
}

// Summary aggregates a run's RunTest outcomes for the report artifact.
// SuccessRate is left at its zero value (undefined) when Total is zero so
// callers never divide by zero.
type Summary struct {
	Total       int      `json:"total"`
	Passed      int      `json:"passed"`
	Failed      int      `json:"failed"`
	Error       int      `json:"error"`
	SuccessRate *float64 `json:"success_rate,omitempty"`
}

// NewSummary tallies statuses into a Summary, leaving SuccessRate nil for
// an empty set of tests per the empty-suite boundary behavior.
func NewSummary(tests []RunTest) Summary {
	s := Summary{}
	for _, t := range tests {
		s.Total++
		switch t.Status {
		case TestPass:
			s.Passed++
		case TestFail:
			s.Failed++
		case TestError:
			s.Error++
		}
	}
	if s.Total > 0 {
		rate := float64(s.Passed) / float64(s.Total)
		s.SuccessRate = &rate
	}
	return s
}

type duplicateTestNameError struct{ Name string }

func (e *duplicateTestNameError) Error() string {
	return "duplicate test name in suite: " + e.Name
}

type emptyDatasetError struct{ Test string }

func (e *emptyDatasetError) Error() string {
	return "test " + e.Test + " has no dataset"
}

type errEmptyTestName struct{}

func (errEmptyTestName) Error() string { return "test definition has an empty name" }
