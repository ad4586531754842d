package evaluator

import "dataflowguard/internal/model"

func evaluateFreshness(t model.TestDefinition, rows []map[string]any) Outcome {
	if len(rows) == 0 {
		return Outcome{Status: model.TestFail, Observed: map[string]any{"error": "no_data"}}
	}
	hoursLag, ok := toFloat64(rows[0]["hours_lag"])
	if !ok {
		return Outcome{Status: model.TestError, Observed: map[string]any{"error": "no_data"}}
	}

	maxHours := 24.0
	if t.Window != nil && t.Window.LastHours != nil {
		maxHours = float64(*t.Window.LastHours)
	}

	status := model.TestPass
	if hoursLag > maxHours {
		status = model.TestFail
	}
	return Outcome{Status: status, Observed: map[string]any{"hours_lag": hoursLag}}
}
