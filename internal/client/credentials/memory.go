package credentials

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is a mutex-guarded Store. It keeps a log of write operations
// ("set k1,k2" / "clear") so callers can assert exact write sequences.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
	ops    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStore) Set(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.values, values)
	keys := slices.Sorted(maps.Keys(values))
	m.ops = append(m.ops, "set "+strings.Join(keys, ","))
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range Keys {
		delete(m.values, k)
	}
	m.ops = append(m.ops, "clear")
	return nil
}

// Snapshot returns a copy of the stored values.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}

// Ops returns the write log.
func (m *MemoryStore) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.ops)
}
