package evaluator

import "dataflowguard/internal/model"

func evaluateRowCount(t model.TestDefinition, rows []map[string]any) Outcome {
	count, ok := firstIntField(rows, "row_count")
	if !ok {
		return Outcome{Status: model.TestError, Observed: map[string]any{"error": "no_data"}}
	}

	minRows := int64(1)
	var maxRows *int64
	if t.Tolerance != nil {
		if t.Tolerance.MinRows != nil {
			minRows = int64(*t.Tolerance.MinRows)
		}
		if t.Tolerance.MaxRows != nil {
			max := int64(*t.Tolerance.MaxRows)
			maxRows = &max
		}
	}

	observed := map[string]any{"row_count": count}
	status := model.TestPass
	if count < minRows {
		status = model.TestFail
	}
	if maxRows != nil && count > *maxRows {
		status = model.TestFail
	}
	return Outcome{Status: status, Observed: observed}
}

func evaluateSchema(t model.TestDefinition, rows []map[string]any) Outcome {
	columns := make([]string, 0, len(rows))
	for _, r := range rows {
		if name, ok := r["COLUMN_NAME"].(string); ok {
			columns = append(columns, name)
		}
	}
	observed := map[string]any{"columns": columns}

	expectedCols := t.Keys // reuse Keys as the expected column name list
	if len(expectedCols) == 0 {
		return Outcome{Status: model.TestPass, Observed: observed}
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, want := range expectedCols {
		if !present[want] {
			return Outcome{Status: model.TestFail, Observed: observed}
		}
	}
	return Outcome{Status: model.TestPass, Observed: observed}
}
