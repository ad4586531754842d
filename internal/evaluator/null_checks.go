package evaluator

import "dataflowguard/internal/model"

func evaluateNotNull(t model.TestDefinition, rows []map[string]any) Outcome {
	count, ok := firstIntField(rows, "null_count")
	if !ok {
		return Outcome{Status: model.TestError, Observed: map[string]any{"error": "no_data"}}
	}
	expected := int64(0)
	status := model.TestPass
	if count != expected {
		status = model.TestFail
	}
	return Outcome{Status: status, Observed: map[string]any{"null_count": count}}
}

func evaluateUniqueness(t model.TestDefinition, rows []map[string]any) Outcome {
	tolerance := 0
	if t.Tolerance != nil && t.Tolerance.DupRows != nil {
		tolerance = *t.Tolerance.DupRows
	}
	violations := len(rows)
	status := model.TestPass
	if violations > tolerance {
		status = model.TestFail
	}
	return Outcome{
		Status:     status,
		Violations: violations,
		Observed:   map[string]any{"duplicate_groups": violations, "sample": sampleRows(rows)},
	}
}
