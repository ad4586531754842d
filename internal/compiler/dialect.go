package compiler

import (
	"fmt"

	"dataflowguard/internal/ir"
)

// CompilePlan lowers an IR Plan into dialect SQL. JSON/VARIANT assertions
// lower through Snowflake's GET_PATH/TRY_PARSE_JSON/TYPEOF/LATERAL
// FLATTEN surface; everything else lowers through the same shapes as
// template mode, keyed off the assertion kind rather than a TestKind.
func CompilePlan(p ir.Plan) (Compiled, error) {
	if p.Assertion.IsJSON() {
		return compileJSON(p)
	}
	return compileNonJSON(p)
}

func compileJSON(p ir.Plan) (Compiled, error) {
	table := p.Dataset
	a := p.Assertion

	switch a.Kind {
	case ir.AssertionJSONPathExists:
		path := a.JSONPathExists.Path
		sql := fmt.Sprintf(
			"SELECT COUNT(*) AS present, "+
				"SUM(CASE WHEN GET_PATH(payload, '%s') IS NULL THEN 1 ELSE 0 END) AS missing FROM %s",
			jsonPointer(path), table,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"missing": 0}}, nil

	case ir.AssertionJSONArrayFlatten:
		path := a.JSONArrayFlatten.Path
		sql := fmt.Sprintf(
			"SELECT (SELECT COUNT(*) FROM %s) AS source_rows, "+
				"(SELECT COUNT(*) FROM %s, LATERAL FLATTEN(input => GET_PATH(payload, '%s'))) AS flattened_rows",
			table, table, jsonPointer(path),
		)
		return Compiled{SQL: sql, Expected: map[string]any{"cardinality_diff": 0}}, nil

	case ir.AssertionJSONTypeCheck:
		path, typ := a.JSONTypeCheck.Path, a.JSONTypeCheck.Type
		sql := fmt.Sprintf(
			"SELECT COUNT(*) AS wrong_type_count FROM %s "+
				"WHERE TYPEOF(GET_PATH(payload, '%s')) != '%s'",
			table, jsonPointer(path), typ,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"wrong_type_count": 0}}, nil

	case ir.AssertionJSONUniqueness:
		path := a.JSONUniqueness.Path
		sql := fmt.Sprintf(
			"SELECT GET_PATH(payload, '%s') AS value, COUNT(*) AS duplicate_count FROM %s "+
				"GROUP BY GET_PATH(payload, '%s') HAVING COUNT(*) > 1",
			jsonPointer(path), table, jsonPointer(path),
		)
		return Compiled{SQL: sql, Expected: map[string]any{"duplicate_count": 0}}, nil

	case ir.AssertionJSONMappingEquivalence:
		path, col := a.JSONMappingEquivalence.Path, a.JSONMappingEquivalence.Column
		sql := fmt.Sprintf(
			"SELECT COUNT(*) AS mismatched_rows FROM %s "+
				"WHERE %s != GET_PATH(payload, '%s')",
			table, col, jsonPointer(path),
		)
		return Compiled{SQL: sql, Expected: map[string]any{"mismatched_rows": 0}}, nil

	case ir.AssertionJSONValidity:
		fallthrough
	default:
		sql := fmt.Sprintf(
			"SELECT COUNT(*) AS invalid_count FROM %s WHERE TRY_PARSE_JSON(payload) IS NULL",
			table,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"invalid_count": 0}}, nil
	}
}

func compileNonJSON(p ir.Plan) (Compiled, error) {
	table := p.Dataset
	a := p.Assertion

	switch a.Kind {
	case ir.AssertionUniqueness:
		keys := a.Uniqueness.Keys
		cols := joinIdents(keys)
		sql := fmt.Sprintf("SELECT %s, COUNT(*) AS duplicate_count FROM %s GROUP BY %s HAVING COUNT(*) > 1",
			cols, table, cols)
		return Compiled{SQL: sql, Expected: map[string]any{}}, nil
	case ir.AssertionNotNull:
		sql := fmt.Sprintf("SELECT COUNT(*) AS null_count FROM %s WHERE %s IS NULL", table, a.NotNull.Column)
		return Compiled{SQL: sql, Expected: map[string]any{"expected_nulls": 0}}, nil
	case ir.AssertionRowCountRange:
		sql := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", table)
		return Compiled{SQL: sql, Expected: map[string]any{"min": a.RowCountRange.Min, "max": a.RowCountRange.Max}}, nil
	case ir.AssertionFreshness:
		col := a.Freshness.Column
		sql := fmt.Sprintf(
			"SELECT MAX(%s) AS max_ts, CURRENT_TIMESTAMP() AS now, "+
				"DATEDIFF('hour', MAX(%s), CURRENT_TIMESTAMP()) AS hours_lag FROM %s",
			col, col, table,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"last_hours": a.Freshness.MaxHours}}, nil
	case ir.AssertionRule:
		tokens, err := LexRuleExpression(a.Rule.Expr)
		if err != nil {
			return Compiled{}, err
		}
		expr, err := RenderExpressionSQL(tokens)
		if err != nil {
			return Compiled{}, err
		}
		sql := fmt.Sprintf(
			"SELECT COUNT(*) AS violations, AVG(ABS(%s - (%s))) AS avg_diff FROM %s WHERE ABS(%s - (%s)) > %v",
			a.Rule.Left, expr, table, a.Rule.Left, expr, a.Rule.Tolerance,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"tolerance_abs": a.Rule.Tolerance}}, nil
	default:
		sql := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", table)
		return Compiled{SQL: sql, Expected: map[string]any{}, Warnings: []string{"unknown assertion kind, compiled as row_count"}}, nil
	}
}

func joinIdents(idents []string) string {
	out := ""
	for i, id := range idents {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}

// jsonPointer maps our "$.a.b[0]" JSON path grammar to Snowflake's
// GET_PATH dotted-path syntax ("a.b[0]").
func jsonPointer(path string) string {
	if len(path) >= 1 && path[0] == '$' {
		path = path[1:]
	}
	if len(path) >= 1 && path[0] == '.' {
		path = path[1:]
	}
	return path
}
