package evaluator

import "dataflowguard/internal/model"

func evaluateRule(t model.TestDefinition, rows []map[string]any) Outcome {
	violations, ok := firstIntField(rows, "violations")
	if !ok {
		return Outcome{Status: model.TestError, Observed: map[string]any{"error": "no_data"}}
	}
	avgDiff, _ := toFloat64(firstRowField(rows, "avg_diff"))

	status := model.TestPass
	if violations > 0 {
		if t.Tolerance != nil && withinTolerance(t, violations, avgDiff) {
			status = model.TestPass
		} else {
			status = model.TestFail
		}
	}
	return Outcome{
		Status:     status,
		Violations: int(violations),
		Observed:   map[string]any{"violations": violations, "avg_diff": avgDiff},
	}
}

func withinTolerance(t model.TestDefinition, violations int64, avgDiff float64) bool {
	if t.Tolerance.Pct != nil && avgDiff <= *t.Tolerance.Pct {
		return true
	}
	return false
}

func firstRowField(rows []map[string]any, field string) any {
	if len(rows) == 0 {
		return nil
	}
	return rows[0][field]
}
