package orchestrator

import (
	"context"

	"dataflowguard/internal/dtoerrors"
	"dataflowguard/internal/model"
)

// StaticResolver resolves suites from an in-process map. It is the
// resolver used by tests; the CLI's `run` command uses FileResolver
// instead. A database-backed resolver is out of scope (tenant/settings
// storage is a named non-goal).
type StaticResolver struct {
	suites map[string]model.TestSuite
}

func NewStaticResolver(suites ...model.TestSuite) *StaticResolver {
	m := make(map[string]model.TestSuite, len(suites))
	for _, s := range suites {
		m[s.Name] = s
	}
	return &StaticResolver{suites: m}
}

func (r *StaticResolver) Resolve(ctx context.Context, name string) (model.TestSuite, error) {
	s, ok := r.suites[name]
	if !ok {
		return model.TestSuite{}, dtoerrors.New(dtoerrors.KindSuiteNotFound, "no such suite: "+name)
	}
	return s, nil
}
