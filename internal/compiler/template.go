// Package compiler lowers high-level test definitions, in template mode,
// and IR plans, in dialect mode, into the single SQL statement the
// warehouse client executes. Compilation is pure: identical input always
// yields byte-identical SQL.
package compiler

import (
	"fmt"
	"strings"

	"dataflowguard/internal/model"
)

// Compiled is the result of compiling one TestDefinition: the SQL to run
// plus a small expected descriptor the evaluator consumes. No further
// state is threaded between compiler and evaluator.
type Compiled struct {
	SQL      string
	Expected map[string]any
	Warnings []string
}

// DatasetRef is a parsed db.schema.table reference. Database and Schema
// fall back to the current session's when the dataset omits them.
type DatasetRef struct {
	Database string
	Schema   string
	Table    string
}

// ParseDataset accepts db.schema.table, schema.table, or table.
func ParseDataset(dataset string) DatasetRef {
	parts := strings.Split(dataset, ".")
	switch len(parts) {
	case 3:
		return DatasetRef{Database: parts[0], Schema: parts[1], Table: parts[2]}
	case 2:
		return DatasetRef{Schema: parts[0], Table: parts[1]}
	default:
		return DatasetRef{Table: dataset}
	}
}

func (d DatasetRef) Qualified() string {
	switch {
	case d.Database != "" && d.Schema != "":
		return d.Database + "." + d.Schema + "." + d.Table
	case d.Schema != "":
		return d.Schema + "." + d.Table
	default:
		return d.Table
	}
}

func whereClause(filters []string) string {
	if len(filters) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(filters, " AND ")
}

// CompileTemplate lowers a TestDefinition in template mode. Unknown kinds
// fall back to row_count with a warning rather than failing compilation.
func CompileTemplate(t model.TestDefinition) (Compiled, error) {
	ref := ParseDataset(t.Dataset)
	table := ref.Qualified()

	switch t.Kind {
	case model.KindRowCount:
		sql := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s%s", table, whereClause(t.Filters))
		return Compiled{SQL: sql, Expected: rowCountExpected(t)}, nil

	case model.KindSchema, model.KindDrift:
		sql := fmt.Sprintf(
			"SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE FROM INFORMATION_SCHEMA.COLUMNS "+
				"WHERE TABLE_SCHEMA = %s AND TABLE_NAME = '%s' ORDER BY ORDINAL_POSITION",
			schemaOrCurrent(ref), strings.ToUpper(ref.Table),
		)
		return Compiled{SQL: sql, Expected: map[string]any{}}, nil

	case model.KindReconciliation:
		// Reconciliation proper needs a second dataset/connection that
		// TestDefinition does not model; it degrades to a row_count check
		// on the primary dataset (see the Open Question decision record).
		sql := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s%s", table, whereClause(t.Filters))
		return Compiled{SQL: sql, Expected: rowCountExpected(t)}, nil

	case model.KindNotNull:
		col := soleKey(t)
		sql := fmt.Sprintf("SELECT COUNT(*) AS null_count FROM %s WHERE %s IS NULL%s",
			table, col, andFilters(t.Filters))
		return Compiled{SQL: sql, Expected: map[string]any{"expected_nulls": 0}}, nil

	case model.KindUniqueness:
		keys := strings.Join(t.Keys, ", ")
		sql := fmt.Sprintf(
			"SELECT %s, COUNT(*) AS duplicate_count FROM %s%s GROUP BY %s HAVING COUNT(*) > 1",
			keys, table, whereClause(t.Filters), keys,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"tolerance_dup_rows": tolDupRows(t)}}, nil

	case model.KindFreshness:
		col := soleKey(t)
		sql := fmt.Sprintf(
			"SELECT MAX(%s) AS max_ts, CURRENT_TIMESTAMP() AS now, "+
				"DATEDIFF('hour', MAX(%s), CURRENT_TIMESTAMP()) AS hours_lag FROM %s%s",
			col, col, table, whereClause(t.Filters),
		)
		return Compiled{SQL: sql, Expected: map[string]any{"last_hours": windowHours(t)}}, nil

	case model.KindRule:
		tokens, err := LexRuleExpression(t.Expression)
		if err != nil {
			return Compiled{}, err
		}
		expr, err := RenderExpressionSQL(tokens)
		if err != nil {
			return Compiled{}, err
		}
		left := soleKey(t)
		tolAbs := 0.0
		if t.Tolerance != nil && t.Tolerance.Abs != nil {
			tolAbs = *t.Tolerance.Abs
		}
		sql := fmt.Sprintf(
			"SELECT COUNT(*) AS violations, AVG(ABS(%s - (%s))) AS avg_diff FROM %s%s WHERE ABS(%s - (%s)) > %v",
			left, expr, table, whereClause(t.Filters), left, expr, tolAbs,
		)
		return Compiled{SQL: sql, Expected: map[string]any{"tolerance_abs": tolAbs}}, nil

	default:
		sql := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s%s", table, whereClause(t.Filters))
		return Compiled{
			SQL:      sql,
			Expected: rowCountExpected(t),
			Warnings: []string{fmt.Sprintf("unknown test kind %q, compiled as row_count", t.Kind)},
		}, nil
	}
}

// schemaOrCurrent renders the TABLE_SCHEMA comparand: a quoted literal
// when the dataset names its schema, or the unquoted CURRENT_SCHEMA()
// call when it doesn't so unqualified datasets resolve against the
// session's schema instead of matching zero rows.
func schemaOrCurrent(ref DatasetRef) string {
	if ref.Schema != "" {
		return "'" + strings.ToUpper(ref.Schema) + "'"
	}
	return "CURRENT_SCHEMA()"
}

func soleKey(t model.TestDefinition) string {
	if len(t.Keys) > 0 {
		return t.Keys[0]
	}
	return "id"
}

func andFilters(filters []string) string {
	if len(filters) == 0 {
		return ""
	}
	return " AND " + strings.Join(filters, " AND ")
}

func tolDupRows(t model.TestDefinition) int {
	if t.Tolerance != nil && t.Tolerance.DupRows != nil {
		return *t.Tolerance.DupRows
	}
	return 0
}

func windowHours(t model.TestDefinition) int {
	if t.Window != nil && t.Window.LastHours != nil {
		return *t.Window.LastHours
	}
	return 24
}

func rowCountExpected(t model.TestDefinition) map[string]any {
	exp := map[string]any{"min_rows": 1}
	if t.Tolerance != nil {
		if t.Tolerance.MinRows != nil {
			exp["min_rows"] = *t.Tolerance.MinRows
		}
		if t.Tolerance.MaxRows != nil {
			exp["max_rows"] = *t.Tolerance.MaxRows
		}
		exp["tolerance"] = t.Tolerance
	}
	return exp
}
