// Package ai abstracts a text-generation capability behind a small,
// pure-from-the-core's-view contract. Composition, not inheritance: each
// Provider implements Health/Generate/CompileExpression directly, and a
// decorator can wrap one to record metadata without subclassing.
package ai

import "context"

// GenerateOptions controls one Generate call. Fields are passed through
// as given: the zero value means temperature 0, top_p 0, seed 0, and no
// max-token cap.
type GenerateOptions struct {
	Temperature float64
	TopP        float64
	Seed        int64
	MaxTokens   int
}

// HealthStatus is the result of a Health check.
type HealthStatus struct {
	OK     bool
	Detail string
}

// CompileExpressionRequest is the input to CompileExpression.
type CompileExpressionRequest struct {
	Expression     string
	Dataset        string
	TestType       string
	CatalogContext map[string]any
}

// CompileExpressionResult is the output of CompileExpression. IR is left
// as opaque JSON bytes here; ir.ParsePlan decodes it into ir.Plan,
// keeping this package free of a dependency on the compiler.
type CompileExpressionResult struct {
	IR          []byte
	SQLPreview  string
	Confidence  float64
	Warnings    []string
}

// Provider is the capability every AI-backed or stub adapter implements.
// The determinism contract binds Generate and CompileExpression: the same
// (prompt, seed, model) triple must produce the same output.
type Provider interface {
	Health(ctx context.Context) (HealthStatus, error)
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	CompileExpression(ctx context.Context, req CompileExpressionRequest) (CompileExpressionResult, error)
	Model() string
}
