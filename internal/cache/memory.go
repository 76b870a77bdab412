package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/dupeforge/dupeforge/models"
)

// Memory is an in-process map-backed Store, used for tests and as the
// default single-node backend.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.CacheEntry)}
}

func (m *Memory) Get(key string) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) Put(entry models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = entry
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// List returns entries for prefix ordered by StoredAt ascending, satisfying
// the Scan Cache's listRecent operation.
func (m *Memory) List(prefix string) ([]models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CacheEntry
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoredAt.Before(out[j].StoredAt) })
	return out, nil
}
