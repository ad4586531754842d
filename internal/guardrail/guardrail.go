// Package guardrail is the single boundary between user/AI-produced SQL
// text and the warehouse. It is purely lexical by design: zero dependency
// on a dialect parser, intentionally conservative, erring toward
// rejection on any ambiguity.
package guardrail

import (
	"regexp"
	"strings"
)

// ErrorKind enumerates every reason validate can reject a statement.
type ErrorKind string

const (
	EmptyStatement     ErrorKind = "EmptyStatement"
	MultipleStatements ErrorKind = "MultipleStatements"
	DisallowedPrefix   ErrorKind = "DisallowedPrefix"
	ForbiddenKeyword   ErrorKind = "ForbiddenKeyword"
	SchemaNotAllowed   ErrorKind = "SchemaNotAllowed"
)

// Violation is the single enumerated reason a candidate statement was
// rejected. It does not carry the rejected statement's text.
type Violation struct {
	Kind    ErrorKind
	Detail  string
	Keyword string
}

func (v *Violation) Error() string {
	if v.Keyword != "" {
		return string(v.Kind) + ": " + v.Keyword
	}
	if v.Detail != "" {
		return string(v.Kind) + ": " + v.Detail
	}
	return string(v.Kind)
}

var allowedPrefixes = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"EXPLAIN": true,
}

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "MERGE", "CREATE", "ALTER", "DROP",
	"RENAME", "TRUNCATE", "GRANT", "REVOKE", "CALL", "USE", "COPY",
	"PUT", "GET", "BEGIN", "COMMIT", "ROLLBACK", "SET", "UNSET",
	"EXECUTE", "VACUUM", "ANALYZE",
}

var forbiddenKeywordRe = buildForbiddenKeywordRegexp()

func buildForbiddenKeywordRegexp() *regexp.Regexp {
	escaped := make([]string, len(forbiddenKeywords))
	for i, kw := range forbiddenKeywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

var reLineComment = regexp.MustCompile(`--[^\n]*`)
var reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
var reWhitespace = regexp.MustCompile(`\s+`)

var reSchemaRef = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*)\.[A-Za-z_][A-Za-z0-9_]*`)

// Guardrail holds the optional schema allowlist configuration. A nil or
// empty AllowedSchemas disables the schema allowlist check entirely,
// matching the spec's "optional" step 5.
type Guardrail struct {
	AllowedSchemas map[string]bool
}

// New builds a Guardrail with the given allowed "db.schema" prefixes.
// Comparison is case-insensitive.
func New(allowedSchemas []string) *Guardrail {
	g := &Guardrail{AllowedSchemas: make(map[string]bool, len(allowedSchemas))}
	for _, s := range allowedSchemas {
		g.AllowedSchemas[strings.ToUpper(s)] = true
	}
	return g
}

// Normalize strips line and block comments and collapses whitespace. It
// is exported because the compiler and logging paths need the exact same
// normalized form the guardrail validated.
func Normalize(sql string) string {
	s := reLineComment.ReplaceAllString(sql, "")
	s = reBlockComment.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Validate runs the five-step algorithm in order and returns nil or a
// *Violation carrying exactly one ErrorKind.
func (g *Guardrail) Validate(sql string) *Violation {
	normalized := Normalize(sql)
	if normalized == "" {
		return &Violation{Kind: EmptyStatement}
	}

	statements := splitStatements(normalized)
	if len(statements) != 1 {
		return &Violation{Kind: MultipleStatements, Detail: "expected exactly one non-empty statement"}
	}
	stmt := statements[0]

	firstToken := firstWord(stmt)
	if !allowedPrefixes[strings.ToUpper(firstToken)] {
		return &Violation{Kind: DisallowedPrefix, Detail: firstToken}
	}

	if m := forbiddenKeywordRe.FindString(stmt); m != "" {
		return &Violation{Kind: ForbiddenKeyword, Keyword: strings.ToUpper(m)}
	}

	if len(g.AllowedSchemas) > 0 {
		if v := g.checkSchemaAllowlist(stmt); v != nil {
			return v
		}
	}

	return nil
}

func (g *Guardrail) checkSchemaAllowlist(stmt string) *Violation {
	matches := reSchemaRef.FindAllStringSubmatch(stmt, -1)
	for _, m := range matches {
		prefix := strings.ToUpper(m[2])
		if !g.AllowedSchemas[prefix] {
			return &Violation{Kind: SchemaNotAllowed, Detail: prefix}
		}
	}
	return nil
}

// splitStatements splits on ';' and drops empty/whitespace-only segments.
func splitStatements(normalized string) []string {
	raw := strings.Split(normalized, ";")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstWord(s string) string {
	i := strings.IndexAny(s, " \t\n(")
	if i == -1 {
		return s
	}
	return s[:i]
}
