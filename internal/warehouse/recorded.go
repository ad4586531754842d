package warehouse

import (
	"context"
	"fmt"
	"sync"

	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/guardrail"
)

// Recorded is an in-memory Client double: every Explain/Select answer is
// pre-seeded by the caller, keyed by exact SQL text. It still runs every
// statement through the guardrail, so guardrail-rejection tests exercise
// real validation logic against a fake warehouse.
type Recorded struct {
	mu           sync.Mutex
	guardrail    *guardrail.Guardrail
	explains     map[string]ExplainResult
	explainErrs  map[string]error
	selects      map[string]SelectResult
	schemas      map[string]TableSchema
	stats        map[string]TableStats
	closed       bool
}

// NewRecorded builds an empty double. Use Seed* to register responses
// before invoking the methods under test.
func NewRecorded(allowedSchemas []string) *Recorded {
	return &Recorded{
		guardrail:   guardrail.New(allowedSchemas),
		explains:    map[string]ExplainResult{},
		explainErrs: map[string]error{},
		selects:     map[string]SelectResult{},
		schemas:     map[string]TableSchema{},
		stats:       map[string]TableStats{},
	}
}

func (r *Recorded) SeedExplain(sql string, result ExplainResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.explains[guardrail.Normalize(sql)] = result
}

// SeedExplainError registers an error to return from Explain, e.g. a
// budget-exceeded failure a real warehouse client would have computed
// pre-flight.
func (r *Recorded) SeedExplainError(sql string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.explainErrs[guardrail.Normalize(sql)] = err
}

func (r *Recorded) SeedSelect(sql string, result SelectResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selects[guardrail.Normalize(sql)] = result
}

func (r *Recorded) SeedSchema(table string, schema TableSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[table] = schema
}

func (r *Recorded) SeedStats(table string, stats TableStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[table] = stats
}

func (r *Recorded) Connect(ctx context.Context, settings Settings) error { return nil }

func (r *Recorded) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Recorded) Explain(ctx context.Context, sql string) (ExplainResult, error) {
	if v := r.guardrail.Validate(sql); v != nil {
		return ExplainResult{}, dtoerrors.Wrap(dtoerrors.KindGuardrailViolation, v.Error(), v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.explainErrs[guardrail.Normalize(sql)]; ok {
		return ExplainResult{}, err
	}
	res, ok := r.explains[guardrail.Normalize(sql)]
	if !ok {
		return ExplainResult{}, fmt.Errorf("warehouse/recorded: no seeded explain for %q", sql)
	}
	return res, nil
}

func (r *Recorded) Select(ctx context.Context, sql string, limit int) (SelectResult, error) {
	if v := r.guardrail.Validate(sql); v != nil {
		return SelectResult{}, dtoerrors.Wrap(dtoerrors.KindGuardrailViolation, v.Error(), v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.selects[guardrail.Normalize(sql)]
	if !ok {
		return SelectResult{}, fmt.Errorf("warehouse/recorded: no seeded select for %q", sql)
	}
	return res, nil
}

func (r *Recorded) TestConnection(ctx context.Context) error { return nil }

func (r *Recorded) GetTableSchema(ctx context.Context, table string) (TableSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schemas[table]
	if !ok {
		return TableSchema{}, fmt.Errorf("warehouse/recorded: no seeded schema for %q", table)
	}
	return s, nil
}

func (r *Recorded) GetTableStats(ctx context.Context, table string) (TableStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[table]
	if !ok {
		return TableStats{}, fmt.Errorf("warehouse/recorded: no seeded stats for %q", table)
	}
	return s, nil
}
