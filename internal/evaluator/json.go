package evaluator

import "dataflowguard/internal/model"

// evaluateJSON covers all five JSON/VARIANT kinds: each reports a
// single zero-means-pass metric field, named per the compiler's dialect
// lowering for that kind.
func evaluateJSON(t model.TestDefinition, rows []map[string]any) Outcome {
	if t.Kind == model.KindJSONArrayFlatten {
		source, ok1 := firstIntField(rows, "source_rows")
		flattened, ok2 := firstIntField(rows, "flattened_rows")
		if !ok1 || !ok2 {
			return Outcome{Status: model.TestError, Observed: map[string]any{"error": "no_data"}}
		}
		diff := flattened - source
		if diff < 0 {
			diff = -diff
		}
		status := model.TestPass
		if diff != 0 {
			status = model.TestFail
		}
		return Outcome{Status: status, Violations: int(diff), Observed: map[string]any{"cardinality_diff": diff}}
	}

	field := jsonMetricField(t.Kind)
	value, ok := firstIntField(rows, field)
	if !ok {
		return Outcome{Status: model.TestError, Observed: map[string]any{"error": "no_data"}}
	}
	status := model.TestPass
	if value != 0 {
		status = model.TestFail
	}
	return Outcome{Status: status, Violations: int(value), Observed: map[string]any{field: value}}
}

func jsonMetricField(kind model.TestKind) string {
	switch kind {
	case model.KindJSONPathExists:
		return "missing"
	case model.KindJSONArrayFlatten:
		return "cardinality_diff"
	case model.KindJSONTypeCheck:
		return "wrong_type_count"
	case model.KindJSONUniqueness:
		return "duplicate_count"
	case model.KindJSONMappingEquivalence:
		return "mismatched_rows"
	default:
		return "invalid_count"
	}
}
