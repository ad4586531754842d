// Package redact implements PII masking for warehouse result rows and
// prompt text, by column-name heuristic and by content pattern. It fails
// safe: any internal error replaces the payload rather than risk leaking
// raw values.
package redact

import (
	"regexp"
	"strings"
)

var piiColumnSubstrings = []string{
	"email", "phone", "ssn", "social security", "credit card",
	"address", "name", "dob", "birth date",
}

// IsPIIColumn reports whether a column name matches one of the
// case-insensitive PII substrings.
func IsPIIColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range piiColumnSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// NANP phone: optional country code, common separators.
	rePhone = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	reSSN   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	reCard  = regexp.MustCompile(`\b(?:\d[ -]?){15}\d\b`)
	reIPv4  = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d?\d)\b`)
)

type contentPattern struct {
	kind string
	re   *regexp.Regexp
}

var contentPatterns = []contentPattern{
	{"EMAIL", reEmail},
	{"PHONE", rePhone},
	{"SSN", reSSN},
	{"CARD", reCard},
	{"IPV4", reIPv4},
}

// RedactText substitutes any content-pattern match with
// "[REDACTED_<KIND>]". On internal failure it returns a sentinel string
// rather than the original text.
func RedactText(s string) (out string) {
	defer func() {
		if recover() != nil {
			out = "[REDACTED_ERROR]"
		}
	}()
	out = s
	for _, p := range contentPatterns {
		out = p.re.ReplaceAllString(out, "[REDACTED_"+p.kind+"]")
	}
	return out
}

// maskValue keeps a small prefix/suffix of s depending on its length
// (2/3/3 characters) and masks the middle with asterisks.
func maskValue(s string) string {
	switch {
	case len(s) <= 2:
		return strings.Repeat("*", len(s))
	case len(s) <= 6:
		return s[:2] + strings.Repeat("*", len(s)-2)
	default:
		keep := 3
		if len(s) < 2*keep+1 {
			keep = (len(s) - 1) / 2
		}
		return s[:keep] + strings.Repeat("*", len(s)-2*keep) + s[len(s)-keep:]
	}
}

// RedactRows returns a copy of rows with PII columns masked by the
// column-name heuristic and all string values additionally scanned for
// content patterns. On internal failure it returns an empty row set
// rather than risk forwarding raw values.
func RedactRows(rows []map[string]any) (out []map[string]any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	out = make([]map[string]any, len(rows))
	for i, row := range rows {
		redacted := make(map[string]any, len(row))
		for col, val := range row {
			redacted[col] = redactValue(col, val)
		}
		out[i] = redacted
	}
	return out
}

func redactValue(col string, val any) any {
	if val == nil {
		return nil
	}
	s, ok := val.(string)
	if !ok {
		return val
	}
	if IsPIIColumn(col) {
		return maskValue(s)
	}
	return RedactText(s)
}

// Warning is one advisory emitted by ValidateQueryForPII.
type Warning struct {
	Message string
}

// ValidateQueryForPII warns on "SELECT *" and on explicit PII column
// names present in the query, given a table-to-columns map describing
// the dataset's schema.
func ValidateQueryForPII(sql string, tableColumns map[string][]string) []Warning {
	var warnings []Warning
	upper := strings.ToUpper(sql)
	if strings.Contains(upper, "SELECT *") {
		warnings = append(warnings, Warning{Message: "query selects all columns; PII exposure cannot be statically bounded"})
	}
	for _, cols := range tableColumns {
		for _, c := range cols {
			if IsPIIColumn(c) && strings.Contains(upper, strings.ToUpper(c)) {
				warnings = append(warnings, Warning{Message: "query references PII column: " + c})
			}
		}
	}
	return warnings
}
