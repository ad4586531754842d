package compiler

import (
	"strings"
	"testing"

	"dataflowguard/internal/model"
)

func TestCompileRoutesJSONKindsThroughCompilePlan(t *testing.T) {
	def := model.TestDefinition{
		Name: "t1", Kind: model.KindJSONPathExists, Dataset: "PROD.RAW.EVENTS",
		JSONPath: "$.user.id",
	}
	c, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "GET_PATH(payload, 'user.id')") {
		t.Fatalf("expected dialect lowering, got %s", c.SQL)
	}
}

func TestCompileRoutesJSONMappingEquivalence(t *testing.T) {
	def := model.TestDefinition{
		Name: "t1", Kind: model.KindJSONMappingEquivalence, Dataset: "PROD.RAW.EVENTS",
		JSONPath: "$.total", JSONColumn: "TOTAL_AMOUNT",
	}
	c, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "TOTAL_AMOUNT != GET_PATH(payload, 'total')") {
		t.Fatalf("unexpected SQL: %s", c.SQL)
	}
}

func TestCompileRejectsMalformedJSONPath(t *testing.T) {
	def := model.TestDefinition{
		Name: "t1", Kind: model.KindJSONTypeCheck, Dataset: "PROD.RAW.EVENTS",
		JSONPath: "not-a-path", JSONType: "STRING",
	}
	if _, err := Compile(def); err == nil {
		t.Fatal("expected a validation error for a malformed JSON path")
	}
}

func TestCompileNonJSONKindStillUsesTemplate(t *testing.T) {
	def := model.TestDefinition{Name: "t1", Kind: model.KindRowCount, Dataset: "PROD.RAW.ORDERS"}
	c, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.Contains(c.SQL, "SELECT COUNT(*) AS row_count FROM PROD.RAW.ORDERS") {
		t.Fatalf("unexpected SQL: %s", c.SQL)
	}
}
