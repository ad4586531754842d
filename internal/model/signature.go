package model

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Column is one entry of a catalog dataset's schema, as returned by the
// warehouse client's get_table_schema.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Signature computes the stable, order-independent dataset signature
// required by the data model invariant: SHA-256 over the canonical
// "name:type:nullable|..." encoding of columns sorted by name. Reordering
// the input slice never changes the result.
func Signature(columns []Column) string {
	sorted := make([]Column, len(columns))
	copy(sorted, columns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	parts := make([]string, len(sorted))
	for i, c := range sorted {
		parts[i] = c.Name + ":" + strings.ToLower(c.Type) + ":" + boolStr(c.Nullable)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
