package evaluator

import (
	"testing"

	"dataflowguard/internal/model"
	"dataflowguard/internal/warehouse"
)

func TestEvaluateUniquenessPass(t *testing.T) {
	def := model.TestDefinition{Kind: model.KindUniqueness, Dataset: "PROD.RAW.ORDERS", Keys: []string{"ORDER_ID"}}
	out := Evaluate(def, nil, warehouse.Stats{})
	if out.Status != model.TestPass {
		t.Fatalf("expected pass, got %s", out.Status)
	}
	if out.Observed["duplicate_groups"] != 0 {
		t.Fatalf("expected duplicate_groups=0, got %v", out.Observed["duplicate_groups"])
	}
}

func TestEvaluateUniquenessFail(t *testing.T) {
	def := model.TestDefinition{Kind: model.KindUniqueness, Dataset: "PROD.RAW.ORDERS", Keys: []string{"ORDER_ID"}}
	rows := []map[string]any{
		{"ORDER_ID": 1, "DUPLICATE_COUNT": 3},
		{"ORDER_ID": 2, "DUPLICATE_COUNT": 2},
	}
	out := Evaluate(def, rows, warehouse.Stats{})
	if out.Status != model.TestFail {
		t.Fatalf("expected fail, got %s", out.Status)
	}
	if out.Violations != 2 {
		t.Fatalf("expected 2 violations, got %d", out.Violations)
	}
}

func TestEvaluateFreshnessScenario(t *testing.T) {
	hours := 24
	def := model.TestDefinition{Kind: model.KindFreshness, Dataset: "PROD.RAW.ORDERS", Window: &model.Window{LastHours: &hours}}
	rows := []map[string]any{{"hours_lag": 2.0}}
	out := Evaluate(def, rows, warehouse.Stats{})
	if out.Status != model.TestPass {
		t.Fatalf("expected pass with 2h lag and 24h window, got %s", out.Status)
	}

	oneHour := 1
	def.Window.LastHours = &oneHour
	out = Evaluate(def, rows, warehouse.Stats{})
	if out.Status != model.TestFail {
		t.Fatalf("expected fail with 2h lag and 1h window, got %s", out.Status)
	}
}

func TestEvaluateFreshnessEmptyInputFails(t *testing.T) {
	def := model.TestDefinition{Kind: model.KindFreshness, Dataset: "PROD.RAW.ORDERS"}
	out := Evaluate(def, nil, warehouse.Stats{})
	if out.Status != model.TestFail {
		t.Fatalf("expected fail on empty input, got %s", out.Status)
	}
	if out.Observed["error"] != "no_data" {
		t.Fatalf("expected no_data error, got %v", out.Observed)
	}
}

func TestEvaluateRowCountZeroRowsDeterministic(t *testing.T) {
	def := model.TestDefinition{Kind: model.KindRowCount, Dataset: "PROD.RAW.ORDERS"}
	rows := []map[string]any{{"row_count": int64(0)}}
	out1 := Evaluate(def, rows, warehouse.Stats{})
	out2 := Evaluate(def, rows, warehouse.Stats{})
	if out1.Status != out2.Status {
		t.Fatalf("expected deterministic evaluation, got %s vs %s", out1.Status, out2.Status)
	}
	if out1.Status != model.TestFail {
		t.Fatalf("expected fail for zero rows below min_rows=1, got %s", out1.Status)
	}
}

func TestEvaluateRowCountRespectsConfiguredBounds(t *testing.T) {
	minRows, maxRows := 5, 100
	def := model.TestDefinition{
		Kind: model.KindRowCount, Dataset: "PROD.RAW.ORDERS",
		Tolerance: &model.Tolerance{MinRows: &minRows, MaxRows: &maxRows},
	}

	below := Evaluate(def, []map[string]any{{"row_count": int64(3)}}, warehouse.Stats{})
	if below.Status != model.TestFail {
		t.Fatalf("expected fail below min_rows=5, got %s", below.Status)
	}

	above := Evaluate(def, []map[string]any{{"row_count": int64(101)}}, warehouse.Stats{})
	if above.Status != model.TestFail {
		t.Fatalf("expected fail above max_rows=100, got %s", above.Status)
	}

	within := Evaluate(def, []map[string]any{{"row_count": int64(50)}}, warehouse.Stats{})
	if within.Status != model.TestPass {
		t.Fatalf("expected pass within bounds, got %s", within.Status)
	}
}

func TestEvaluateJSONArrayFlatten(t *testing.T) {
	def := model.TestDefinition{Kind: model.KindJSONArrayFlatten, Dataset: "PROD.RAW.EVENTS"}
	rows := []map[string]any{{"source_rows": int64(10), "flattened_rows": int64(10)}}
	out := Evaluate(def, rows, warehouse.Stats{})
	if out.Status != model.TestPass {
		t.Fatalf("expected pass for matching cardinality, got %s", out.Status)
	}

	rows = []map[string]any{{"source_rows": int64(10), "flattened_rows": int64(12)}}
	out = Evaluate(def, rows, warehouse.Stats{})
	if out.Status != model.TestFail || out.Violations != 2 {
		t.Fatalf("expected fail with 2 violations, got %+v", out)
	}
}
