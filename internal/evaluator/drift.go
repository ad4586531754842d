package evaluator

import "dataflowguard/internal/model"

// evaluateDrift computes the canonical signature of the dataset's current
// column set. It reports the signature as an observed value rather than
// pass/fail against a prior run: this core does not own baseline storage
// across runs, so comparing against a previous signature is left to the
// caller (e.g. a suite that declares two drift tests, one per snapshot).
func evaluateDrift(t model.TestDefinition, rows []map[string]any) Outcome {
	if len(rows) == 0 {
		return Outcome{Status: model.TestError, Observed: map[string]any{"error": "dataset has no columns"}}
	}

	columns := make([]model.Column, 0, len(rows))
	for _, r := range rows {
		name, _ := r["COLUMN_NAME"].(string)
		typ, _ := r["DATA_TYPE"].(string)
		nullable, _ := r["IS_NULLABLE"].(string)
		columns = append(columns, model.Column{
			Name:     name,
			Type:     typ,
			Nullable: nullable == "YES",
		})
	}

	sig := model.Signature(columns)
	return Outcome{
		Status: model.TestPass,
		Observed: map[string]any{
			"signature":    sig,
			"column_count": len(columns),
		},
	}
}
