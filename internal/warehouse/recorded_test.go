package warehouse

import (
	"context"
	"testing"

	"dataflowguard/internal/dtoerrors"
)

func TestRecordedSelectReturnsSeededRows(t *testing.T) {
	r := NewRecorded(nil)
	r.SeedSelect("SELECT 1", SelectResult{QueryID: "q1", Rows: []map[string]any{{"x": 1}}})

	res, err := r.Select(context.Background(), "SELECT 1", 10)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if res.QueryID != "q1" || len(res.Rows) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRecordedSelectRejectsGuardrailViolation(t *testing.T) {
	r := NewRecorded(nil)
	_, err := r.Select(context.Background(), "DELETE FROM t", 10)
	if !dtoerrors.Is(err, dtoerrors.KindGuardrailViolation) {
		t.Fatalf("expected GuardrailViolation, got %v", err)
	}
}

func TestRecordedExplainBudgetScenario(t *testing.T) {
	r := NewRecorded(nil)
	r.SeedExplain("SELECT * FROM t", ExplainResult{PlanText: "plan", EstimatedBytes: 2_500_000})

	res, err := r.Explain(context.Background(), "SELECT * FROM t")
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if res.EstimatedBytes != 2_500_000 {
		t.Fatalf("unexpected estimated bytes: %d", res.EstimatedBytes)
	}
}
