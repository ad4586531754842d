package ir

import (
	"fmt"
	"regexp"
)

// reIdentifier is deliberately conservative: ASCII letters, digits, and
// underscore only. Non-ASCII table/column names are rejected up front
// rather than risking a guardrail bypass further down the pipeline.
var reIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

var reJSONPath = regexp.MustCompile(`^\$(\.[A-Za-z_][A-Za-z0-9_]*|\[\d+\])*$`)

// Validate checks structural invariants of a Plan: a well-formed dataset
// reference, exactly the fields implied by Assertion.Kind populated, and
// well-formed identifiers/paths within the populated variant.
func (p *Plan) Validate() error {
	if p.Dataset == "" {
		return fmt.Errorf("ir: plan has empty dataset")
	}
	if !reIdentifier.MatchString(p.Dataset) {
		return fmt.Errorf("ir: dataset %q is not a conservative ascii identifier", p.Dataset)
	}
	if p.Dialect == "" {
		p.Dialect = DialectSnowflake
	}
	return p.Assertion.validate()
}

func (a *Assertion) validate() error {
	switch a.Kind {
	case AssertionUniqueness:
		if a.Uniqueness == nil || len(a.Uniqueness.Keys) == 0 {
			return fmt.Errorf("ir: uniqueness assertion requires at least one key")
		}
		for _, k := range a.Uniqueness.Keys {
			if !reIdentifier.MatchString(k) {
				return fmt.Errorf("ir: uniqueness key %q is not a valid identifier", k)
			}
		}
	case AssertionNotNull:
		if a.NotNull == nil || !reIdentifier.MatchString(a.NotNull.Column) {
			return fmt.Errorf("ir: not_null assertion requires a valid column")
		}
	case AssertionRowCountRange:
		if a.RowCountRange == nil {
			return fmt.Errorf("ir: row_count_range assertion requires bounds")
		}
		if a.RowCountRange.Min < 0 {
			return fmt.Errorf("ir: row_count_range min must be >= 0")
		}
		if a.RowCountRange.Max != nil && *a.RowCountRange.Max < a.RowCountRange.Min {
			return fmt.Errorf("ir: row_count_range max must be >= min")
		}
	case AssertionFreshness:
		if a.Freshness == nil || !reIdentifier.MatchString(a.Freshness.Column) {
			return fmt.Errorf("ir: freshness assertion requires a valid column")
		}
		if a.Freshness.MaxHours <= 0 {
			return fmt.Errorf("ir: freshness max_hours must be > 0")
		}
	case AssertionRule:
		if a.Rule == nil || !reIdentifier.MatchString(a.Rule.Left) || a.Rule.Expr == "" {
			return fmt.Errorf("ir: rule assertion requires a left column and an expression")
		}
	case AssertionJSONPathExists:
		if a.JSONPathExists == nil || !reJSONPath.MatchString(a.JSONPathExists.Path) {
			return fmt.Errorf("ir: json_path_exists requires a well-formed $.path")
		}
	case AssertionJSONArrayFlatten:
		if a.JSONArrayFlatten == nil || !reJSONPath.MatchString(a.JSONArrayFlatten.Path) {
			return fmt.Errorf("ir: json_array_flatten requires a well-formed $.path")
		}
	case AssertionJSONTypeCheck:
		if a.JSONTypeCheck == nil || !reJSONPath.MatchString(a.JSONTypeCheck.Path) || a.JSONTypeCheck.Type == "" {
			return fmt.Errorf("ir: json_type_check requires a path and a type")
		}
	case AssertionJSONUniqueness:
		if a.JSONUniqueness == nil || !reJSONPath.MatchString(a.JSONUniqueness.Path) {
			return fmt.Errorf("ir: json_uniqueness requires a well-formed $.path")
		}
	case AssertionJSONMappingEquivalence:
		if a.JSONMappingEquivalence == nil || !reJSONPath.MatchString(a.JSONMappingEquivalence.Path) ||
			!reIdentifier.MatchString(a.JSONMappingEquivalence.Column) {
			return fmt.Errorf("ir: json_mapping_equivalence requires a path and a column")
		}
	case AssertionJSONValidity:
		// no payload to check beyond the kind tag itself
	default:
		return fmt.Errorf("ir: unknown assertion kind %q", a.Kind)
	}
	return nil
}
