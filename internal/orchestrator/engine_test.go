package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataflowguard/internal/artifact"
	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/model"
	"dataflowguard/internal/progress"
	"dataflowguard/internal/runstore"
	"dataflowguard/internal/warehouse"
)

func uniquenessSuite(filters []string, tolerance *model.Tolerance) model.TestSuite {
	return model.TestSuite{
		Name:       "nightly",
		Connection: "snowflake-prod",
		Tests: []model.TestDefinition{
			{
				Name:      "orders_unique",
				Kind:      model.KindUniqueness,
				Dataset:   "PROD.RAW.ORDERS",
				Keys:      []string{"ORDER_ID"},
				Filters:   filters,
				Tolerance: tolerance,
				Severity:  model.SeverityBlocker,
				Gate:      model.GateFail,
			},
		},
	}
}

func newTestEngine(t *testing.T, suite model.TestSuite, wh warehouse.Client) (*Engine, *runstore.Memory, *artifact.Memory) {
	t.Helper()
	store := runstore.NewMemory()
	mem := artifact.NewMemory()
	bus := progress.NewBus()
	resolver := NewStaticResolver(suite)
	return NewEngine(resolver, wh, store, mem, bus), store, mem
}

func TestSeedScenarioUniquenessPass(t *testing.T) {
	suite := uniquenessSuite(nil, nil)
	wh := warehouse.NewRecorded(nil)
	wh.SeedExplain("SELECT ORDER_ID, COUNT(*) AS duplicate_count FROM PROD.RAW.ORDERS GROUP BY ORDER_ID HAVING COUNT(*) > 1",
		warehouse.ExplainResult{PlanText: "plan"})
	wh.SeedSelect("SELECT ORDER_ID, COUNT(*) AS duplicate_count FROM PROD.RAW.ORDERS GROUP BY ORDER_ID HAVING COUNT(*) > 1",
		warehouse.SelectResult{QueryID: "q1", Rows: nil})

	engine, store, _ := newTestEngine(t, suite, wh)
	run, err := engine.Start(context.Background(), "nightly", Options{})
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)

	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, model.TestPass, tests[0].Status)
}

func TestSeedScenarioUniquenessFail(t *testing.T) {
	zero := 0
	suite := uniquenessSuite(nil, &model.Tolerance{DupRows: &zero})
	wh := warehouse.NewRecorded(nil)
	sql := "SELECT ORDER_ID, COUNT(*) AS duplicate_count FROM PROD.RAW.ORDERS GROUP BY ORDER_ID HAVING COUNT(*) > 1"
	wh.SeedExplain(sql, warehouse.ExplainResult{PlanText: "plan"})
	wh.SeedSelect(sql, warehouse.SelectResult{
		QueryID: "q1",
		Rows: []map[string]any{
			{"ORDER_ID": int64(1), "DUPLICATE_COUNT": int64(3)},
			{"ORDER_ID": int64(2), "DUPLICATE_COUNT": int64(2)},
		},
	})

	engine, store, mem := newTestEngine(t, suite, wh)
	run, err := engine.Start(context.Background(), "nightly", Options{})
	require.NoError(t, err)

	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, model.TestFail, tests[0].Status)

	artifacts, err := store.ListArtifacts(context.Background(), run.ID)
	require.NoError(t, err)
	foundSamples := false
	for _, a := range artifacts {
		if a.Kind != model.ArtifactSamples {
			continue
		}
		_, ok := mem.Get(a.Path)
		assert.True(t, ok, "artifact record %q points at nothing in the backing store", a.Path)
		foundSamples = true
	}
	assert.True(t, foundSamples, "expected a samples artifact for the failing test")
}

func TestSeedScenarioBudgetBlock(t *testing.T) {
	suite := uniquenessSuite(nil, nil)
	wh := warehouse.NewRecorded(nil)
	sql := "SELECT ORDER_ID, COUNT(*) AS duplicate_count FROM PROD.RAW.ORDERS GROUP BY ORDER_ID HAVING COUNT(*) > 1"
	wh.SeedExplainError(sql, dtoerrors.New(dtoerrors.KindBudgetExceeded, "estimated_bytes 2500000 exceeds scan_budget_bytes 1000000"))

	engine, store, _ := newTestEngine(t, suite, wh)
	run, err := engine.Start(context.Background(), "nightly", Options{})
	require.NoError(t, err)

	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, model.TestError, tests[0].Status)
	require.NotNil(t, tests[0].ErrorMessage)
	assert.Contains(t, *tests[0].ErrorMessage, string(dtoerrors.KindBudgetExceeded))
}

func TestSeedScenarioFreshness(t *testing.T) {
	hours := 24
	suite := model.TestSuite{
		Name:       "nightly",
		Connection: "snowflake-prod",
		Tests: []model.TestDefinition{{
			Name:     "orders_fresh",
			Kind:     model.KindFreshness,
			Dataset:  "PROD.RAW.ORDERS",
			Keys:     []string{"ORDER_TS"},
			Window:   &model.Window{LastHours: &hours},
			Severity: model.SeverityMajor,
			Gate:     model.GateWarn,
		}},
	}
	wh := warehouse.NewRecorded(nil)
	sql := "SELECT MAX(ORDER_TS) AS max_ts, CURRENT_TIMESTAMP() AS now, DATEDIFF('hour', MAX(ORDER_TS), CURRENT_TIMESTAMP()) AS hours_lag FROM PROD.RAW.ORDERS"
	wh.SeedExplain(sql, warehouse.ExplainResult{PlanText: "plan"})
	wh.SeedSelect(sql, warehouse.SelectResult{QueryID: "q1", Rows: []map[string]any{{"hours_lag": int64(2)}}})

	engine, store, _ := newTestEngine(t, suite, wh)
	run, err := engine.Start(context.Background(), "nightly", Options{})
	require.NoError(t, err)
	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, model.TestPass, tests[0].Status)
}

func TestEmptySuiteCompletesWithZeroSummary(t *testing.T) {
	suite := model.TestSuite{Name: "empty", Connection: "snowflake-prod"}
	engine, store, _ := newTestEngine(t, suite, warehouse.NewRecorded(nil))

	run, err := engine.Start(context.Background(), "empty", Options{})
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, tests)
}

func TestDryRunSkipsWarehouseCalls(t *testing.T) {
	suite := uniquenessSuite(nil, nil)
	wh := warehouse.NewRecorded(nil) // nothing seeded: any warehouse call would fail the test
	engine, store, _ := newTestEngine(t, suite, wh)

	run, err := engine.Start(context.Background(), "nightly", Options{DryRun: true})
	require.NoError(t, err)
	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, model.TestSkip, tests[0].Status)
}

func TestUnknownSuiteFailsFast(t *testing.T) {
	engine, _, _ := newTestEngine(t, uniquenessSuite(nil, nil), warehouse.NewRecorded(nil))
	_, err := engine.Start(context.Background(), "does-not-exist", Options{})
	assert.True(t, dtoerrors.Is(err, dtoerrors.KindSuiteNotFound))
}

func TestSeedScenarioJSONPathExists(t *testing.T) {
	suite := model.TestSuite{
		Name:       "nightly",
		Connection: "snowflake-prod",
		Tests: []model.TestDefinition{{
			Name:     "events_have_user_id",
			Kind:     model.KindJSONPathExists,
			Dataset:  "PROD.RAW.EVENTS",
			JSONPath: "$.user.id",
			Severity: model.SeverityMajor,
			Gate:     model.GateWarn,
		}},
	}
	wh := warehouse.NewRecorded(nil)
	sql := "SELECT COUNT(*) AS present, SUM(CASE WHEN GET_PATH(payload, 'user.id') IS NULL THEN 1 ELSE 0 END) AS missing FROM PROD.RAW.EVENTS"
	wh.SeedExplain(sql, warehouse.ExplainResult{PlanText: "plan"})
	wh.SeedSelect(sql, warehouse.SelectResult{QueryID: "q1", Rows: []map[string]any{{"present": int64(10), "missing": int64(0)}}})

	engine, store, _ := newTestEngine(t, suite, wh)
	run, err := engine.Start(context.Background(), "nightly", Options{})
	require.NoError(t, err)
	tests, err := store.ListTests(context.Background(), run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, model.TestPass, tests[0].Status)
}

func TestOnRunStartedFiresBeforeFirstTest(t *testing.T) {
	suite := uniquenessSuite(nil, nil)
	wh := warehouse.NewRecorded(nil)
	sql := "SELECT ORDER_ID, COUNT(*) AS duplicate_count FROM PROD.RAW.ORDERS GROUP BY ORDER_ID HAVING COUNT(*) > 1"
	wh.SeedExplain(sql, warehouse.ExplainResult{PlanText: "plan"})
	wh.SeedSelect(sql, warehouse.SelectResult{QueryID: "q1", Rows: nil})

	engine, store, _ := newTestEngine(t, suite, wh)
	var seenRunID string
	testsAtStart := -1
	_, err := engine.Start(context.Background(), "nightly", Options{
		OnRunStarted: func(runID string) {
			seenRunID = runID
			tests, _ := store.ListTests(context.Background(), runID, 10, 0)
			testsAtStart = len(tests)
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, seenRunID)
	assert.Equal(t, 0, testsAtStart)
}
