package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Deterministic is the local stub used when external_ai_enabled is false
// or the upstream model is unreachable. It hashes (prompt|seed|model) and
// synthesizes a low-confidence response rather than ever call out, so the
// determinism contract holds trivially: the same triple always hashes to
// the same bytes.
type Deterministic struct {
	model string
}

// NewDeterministic builds a stub adapter pinned to the given model name
// for logging/attribution purposes; it never dials out.
func NewDeterministic(model string) *Deterministic {
	if model == "" {
		model = "deterministic-stub"
	}
	return &Deterministic{model: model}
}

func (d *Deterministic) Model() string { return d.model }

func (d *Deterministic) Health(ctx context.Context) (HealthStatus, error) {
	return HealthStatus{OK: true, Detail: "deterministic stub, no upstream dependency"}, nil
}

func (d *Deterministic) hash(prompt string, seed int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", prompt, seed, d.model)))
	return hex.EncodeToString(sum[:])
}

func (d *Deterministic) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	h := d.hash(prompt, opts.Seed)
	return fmt.Sprintf("stub-response:%s", h[:16]), nil
}

// CompileExpression returns a minimal IR stub: a rule plan over the
// requested dataset whose expression is the request's, clearly marked with low confidence and a warning so
// callers never mistake it for a model-backed compilation.
func (d *Deterministic) CompileExpression(ctx context.Context, req CompileExpressionRequest) (CompileExpressionResult, error) {
	h := d.hash(req.Expression+"|"+req.Dataset, 0)
	ir := fmt.Sprintf(`{"dataset":%q,"dialect":"snowflake","assertion":{"kind":"rule","rule":{"left":"value","expr":%q,"tolerance":0}}}`,
		req.Dataset, req.Expression)
	return CompileExpressionResult{
		IR:         []byte(ir),
		SQLPreview: "",
		Confidence: 0.1,
		Warnings:   []string{"deterministic stub used: " + h[:16]},
	}, nil
}
