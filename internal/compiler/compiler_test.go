package compiler

import (
	"strings"
	"testing"

	"dataflowguard/internal/ir"
	"dataflowguard/internal/model"
)

func TestCompileTemplateRowCountIsPure(t *testing.T) {
	def := model.TestDefinition{Name: "t1", Kind: model.KindRowCount, Dataset: "PROD.RAW.ORDERS"}
	c1, err := CompileTemplate(def)
	if err != nil {
		t.Fatalf("CompileTemplate returned error: %v", err)
	}
	c2, _ := CompileTemplate(def)
	if c1.SQL != c2.SQL {
		t.Fatalf("expected byte-identical SQL for identical input, got %q vs %q", c1.SQL, c2.SQL)
	}
	if !strings.Contains(c1.SQL, "SELECT COUNT(*) AS row_count FROM PROD.RAW.ORDERS") {
		t.Fatalf("unexpected SQL: %s", c1.SQL)
	}
}

func TestCompileTemplateUniqueness(t *testing.T) {
	def := model.TestDefinition{Name: "t1", Kind: model.KindUniqueness, Dataset: "PROD.RAW.ORDERS", Keys: []string{"ORDER_ID"}}
	c, err := CompileTemplate(def)
	if err != nil {
		t.Fatalf("CompileTemplate returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "GROUP BY ORDER_ID HAVING COUNT(*) > 1") {
		t.Fatalf("unexpected SQL: %s", c.SQL)
	}
}

func TestCompileTemplateUnknownKindFallsBackToRowCount(t *testing.T) {
	def := model.TestDefinition{Name: "t1", Kind: model.TestKind("not_a_real_kind"), Dataset: "PROD.RAW.ORDERS"}
	c, err := CompileTemplate(def)
	if err != nil {
		t.Fatalf("CompileTemplate returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "row_count") {
		t.Fatalf("expected fallback to row_count, got %s", c.SQL)
	}
	if len(c.Warnings) == 0 {
		t.Fatal("expected a warning for unknown kind")
	}
}

func TestCompileTemplateRuleNeverConcatenatesRawExpression(t *testing.T) {
	def := model.TestDefinition{
		Name: "t1", Kind: model.KindRule, Dataset: "PROD.RAW.ORDERS",
		Keys: []string{"revenue"}, Expression: "price * quantity",
	}
	c, err := CompileTemplate(def)
	if err != nil {
		t.Fatalf("CompileTemplate returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "PRICE * QUANTITY") {
		t.Fatalf("expected rendered identifiers upper-cased, got %s", c.SQL)
	}
}

func TestCompileTemplateRuleRejectsUnsupportedCharacters(t *testing.T) {
	def := model.TestDefinition{
		Name: "t1", Kind: model.KindRule, Dataset: "PROD.RAW.ORDERS",
		Keys: []string{"revenue"}, Expression: "price; DROP TABLE t",
	}
	if _, err := CompileTemplate(def); err == nil {
		t.Fatal("expected a lex error for an unsupported character in the expression")
	}
}

func TestCompileTemplateSchemaUnqualifiedDatasetUsesCurrentSchema(t *testing.T) {
	def := model.TestDefinition{Name: "t1", Kind: model.KindSchema, Dataset: "ORDERS"}
	c, err := CompileTemplate(def)
	if err != nil {
		t.Fatalf("CompileTemplate returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "TABLE_SCHEMA = CURRENT_SCHEMA()") {
		t.Fatalf("expected unquoted CURRENT_SCHEMA() call, got %s", c.SQL)
	}
}

func TestCompileTemplateSchemaQualifiedDatasetQuotesLiteral(t *testing.T) {
	def := model.TestDefinition{Name: "t1", Kind: model.KindSchema, Dataset: "RAW.ORDERS"}
	c, err := CompileTemplate(def)
	if err != nil {
		t.Fatalf("CompileTemplate returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "TABLE_SCHEMA = 'RAW'") {
		t.Fatalf("expected quoted schema literal, got %s", c.SQL)
	}
}

func TestCompilePlanJSONPathExists(t *testing.T) {
	p := ir.Plan{
		Dataset: "PROD.RAW.EVENTS",
		Assertion: ir.Assertion{
			Kind:           ir.AssertionJSONPathExists,
			JSONPathExists: &ir.JSONPathExists{Path: "$.user.id"},
		},
	}
	c, err := CompilePlan(p)
	if err != nil {
		t.Fatalf("CompilePlan returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "GET_PATH(payload, 'user.id')") {
		t.Fatalf("unexpected SQL: %s", c.SQL)
	}
}

func TestCompilePlanJSONArrayFlatten(t *testing.T) {
	p := ir.Plan{
		Dataset: "PROD.RAW.EVENTS",
		Assertion: ir.Assertion{
			Kind:             ir.AssertionJSONArrayFlatten,
			JSONArrayFlatten: &ir.JSONArrayFlatten{Path: "$.items"},
		},
	}
	c, err := CompilePlan(p)
	if err != nil {
		t.Fatalf("CompilePlan returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "LATERAL FLATTEN") {
		t.Fatalf("expected LATERAL FLATTEN in generated SQL, got %s", c.SQL)
	}
}

func TestParseDataset(t *testing.T) {
	cases := map[string]DatasetRef{
		"db.schema.table": {Database: "db", Schema: "schema", Table: "table"},
		"schema.table":    {Schema: "schema", Table: "table"},
		"table":           {Table: "table"},
	}
	for in, want := range cases {
		got := ParseDataset(in)
		if got != want {
			t.Errorf("ParseDataset(%q) = %+v, want %+v", in, got, want)
		}
	}
}
