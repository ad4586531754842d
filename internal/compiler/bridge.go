package compiler

import (
	"dataflowguard/internal/ir"
	"dataflowguard/internal/model"
)

// Compile lowers a TestDefinition to SQL, routing json_* kinds through the
// IR dialect lowering: GET_PATH/FLATTEN SQL needs the tagged Assertion
// shape CompilePlan consumes, not the row_count template CompileTemplate
// falls back to for kinds it doesn't special-case. Every other kind still
// lowers through CompileTemplate directly.
func Compile(t model.TestDefinition) (Compiled, error) {
	assertion, ok := jsonAssertion(t)
	if !ok {
		return CompileTemplate(t)
	}
	plan := ir.Plan{
		Dataset:   ParseDataset(t.Dataset).Qualified(),
		Filters:   t.Filters,
		Assertion: assertion,
		Dialect:   ir.DialectSnowflake,
	}
	if err := plan.Validate(); err != nil {
		return Compiled{}, err
	}
	return CompilePlan(plan)
}

// jsonAssertion bridges a TestDefinition's json_path/json_type/json_column
// attributes into the corresponding tagged ir.Assertion. The second return
// value is false for every non-JSON kind.
func jsonAssertion(t model.TestDefinition) (ir.Assertion, bool) {
	switch t.Kind {
	case model.KindJSONPathExists:
		return ir.Assertion{
			Kind:           ir.AssertionJSONPathExists,
			JSONPathExists: &ir.JSONPathExists{Path: t.JSONPath},
		}, true
	case model.KindJSONArrayFlatten:
		return ir.Assertion{
			Kind:             ir.AssertionJSONArrayFlatten,
			JSONArrayFlatten: &ir.JSONArrayFlatten{Path: t.JSONPath},
		}, true
	case model.KindJSONTypeCheck:
		return ir.Assertion{
			Kind:          ir.AssertionJSONTypeCheck,
			JSONTypeCheck: &ir.JSONTypeCheck{Path: t.JSONPath, Type: t.JSONType},
		}, true
	case model.KindJSONUniqueness:
		return ir.Assertion{
			Kind:           ir.AssertionJSONUniqueness,
			JSONUniqueness: &ir.JSONUniqueness{Path: t.JSONPath},
		}, true
	case model.KindJSONMappingEquivalence:
		return ir.Assertion{
			Kind: ir.AssertionJSONMappingEquivalence,
			JSONMappingEquivalence: &ir.JSONMappingEquivalence{
				Path: t.JSONPath, Column: t.JSONColumn,
			},
		}, true
	default:
		return ir.Assertion{}, false
	}
}
