package artifact

import (
	"context"
	"sync"
	"time"
)

// Memory is the default Writer when no object-store bucket is
// configured: artifacts are held in a process-local map so `run`, `dry
// run`, and local development work without cloud credentials.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Write(ctx context.Context, runID string, kind Kind, name string, contentType string, content []byte, when time.Time) (string, *string, error) {
	key := Key(runID, kind, name, when)
	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()
	return key, nil, nil
}

// Get returns a previously written object's content, for test assertions.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.objects[key]
	return v, ok
}
