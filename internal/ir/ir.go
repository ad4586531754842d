// Package ir defines the Intermediate Representation produced by the
// compiler (template mode or AI adapter) and consumed by SQL generation.
// Assertions are a tagged variant rather than a free-form map, so every
// shape the compiler emits is statically known and round-trips through a
// single on-disk JSON schema.
package ir

import "encoding/json"

// Dialect identifies the target warehouse SQL dialect.
type Dialect string

const (
	DialectSnowflake Dialect = "snowflake"
)

// Join describes one additional relation pulled into the generated query.
type Join struct {
	Table string `json:"table"`
	On    string `json:"on"`
	Kind  string `json:"kind,omitempty"` // inner, left, ...
}

// Aggregation describes one aggregate projection, e.g. COUNT(*), AVG(col).
type Aggregation struct {
	Func   string `json:"func"`
	Column string `json:"column,omitempty"`
	Alias  string `json:"alias,omitempty"`
}

// AssertionKind tags which variant field of Assertion is populated.
type AssertionKind string

const (
	AssertionUniqueness             AssertionKind = "uniqueness"
	AssertionNotNull                AssertionKind = "not_null"
	AssertionRowCountRange          AssertionKind = "row_count_range"
	AssertionFreshness              AssertionKind = "freshness"
	AssertionRule                   AssertionKind = "rule"
	AssertionJSONPathExists         AssertionKind = "json_path_exists"
	AssertionJSONArrayFlatten       AssertionKind = "json_array_flatten"
	AssertionJSONTypeCheck          AssertionKind = "json_type_check"
	AssertionJSONUniqueness         AssertionKind = "json_uniqueness"
	AssertionJSONMappingEquivalence AssertionKind = "json_mapping_equivalence"
	AssertionJSONValidity           AssertionKind = "json_validity"
)

// Uniqueness asserts no duplicate groups exist over Keys.
type Uniqueness struct {
	Keys []string `json:"keys"`
}

// NotNull asserts Column never holds NULL.
type NotNull struct {
	Column string `json:"column"`
}

// RowCountRange asserts a row count bound; Max is optional.
type RowCountRange struct {
	Min int  `json:"min"`
	Max *int `json:"max,omitempty"`
}

// Freshness asserts Column's maximum timestamp is within MaxHours of now.
type Freshness struct {
	Column   string  `json:"column"`
	MaxHours float64 `json:"max_hours"`
}

// Rule asserts a symbolic equality Left == Expr within Tolerance.
type Rule struct {
	Left      string  `json:"left"`
	Expr      string  `json:"expr"`
	Tolerance float64 `json:"tolerance"`
}

// JSONPathExists asserts Path is present in the JSON payload column.
type JSONPathExists struct {
	Path string `json:"path"`
}

// JSONArrayFlatten asserts the flattened row count matches source
// cardinality for the array at Path.
type JSONArrayFlatten struct {
	Path string `json:"path"`
}

// JSONTypeCheck asserts TYPEOF(GET_PATH(payload, Path)) equals Type.
type JSONTypeCheck struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// JSONUniqueness asserts no duplicate values at Path.
type JSONUniqueness struct {
	Path string `json:"path"`
}

// JSONMappingEquivalence asserts tabular Column matches its JSON source Path.
type JSONMappingEquivalence struct {
	Path   string `json:"path"`
	Column string `json:"column"`
}

// JSONValidity asserts the payload column parses as JSON.
type JSONValidity struct{}

// Assertion is the tagged variant. Exactly one of the typed fields is
// populated, selected by Kind. Replaces the Dict[str, Any] the source
// used for the same purpose with a single on-disk schema.
type Assertion struct {
	Kind AssertionKind `json:"kind"`

	Uniqueness             *Uniqueness             `json:"uniqueness,omitempty"`
	NotNull                *NotNull                `json:"not_null,omitempty"`
	RowCountRange          *RowCountRange          `json:"row_count_range,omitempty"`
	Freshness              *Freshness              `json:"freshness,omitempty"`
	Rule                   *Rule                   `json:"rule,omitempty"`
	JSONPathExists         *JSONPathExists         `json:"json_path_exists,omitempty"`
	JSONArrayFlatten       *JSONArrayFlatten       `json:"json_array_flatten,omitempty"`
	JSONTypeCheck          *JSONTypeCheck          `json:"json_type_check,omitempty"`
	JSONUniqueness         *JSONUniqueness         `json:"json_uniqueness,omitempty"`
	JSONMappingEquivalence *JSONMappingEquivalence `json:"json_mapping_equivalence,omitempty"`
	JSONValidity           *JSONValidity           `json:"json_validity,omitempty"`
}

// IsJSON reports whether the assertion targets a JSON/VARIANT payload
// column, the signal the compiler uses to switch into dialect lowering.
func (a Assertion) IsJSON() bool {
	switch a.Kind {
	case AssertionJSONPathExists, AssertionJSONArrayFlatten, AssertionJSONTypeCheck,
		AssertionJSONUniqueness, AssertionJSONMappingEquivalence, AssertionJSONValidity:
		return true
	default:
		return false
	}
}

// Plan is the full Intermediate Representation produced by the compiler
// or the AI adapter and consumed by SQL generation.
type Plan struct {
	Dataset      string        `json:"dataset"`
	Filters      []string      `json:"filters,omitempty"`
	Joins        []Join        `json:"joins,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty"`
	Assertion    Assertion     `json:"assertion"`
	PartitionBy  []string      `json:"partition_by,omitempty"`
	Dialect      Dialect       `json:"dialect"`
}

// ParsePlan decodes a Plan from its canonical JSON form and validates it.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &parseError{cause: err}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

type parseError struct{ cause error }

func (e *parseError) Error() string { return "ir: parse plan: " + e.cause.Error() }
func (e *parseError) Unwrap() error { return e.cause }
