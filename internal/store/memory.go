package store

import (
	"context"
	"sync"

	"github.com/bennert/crypto-scanner/internal/models"
)

// Memory is the in-process Store used when no database is configured and
// in tests.
type Memory struct {
	mu   sync.RWMutex
	data map[models.TenantID]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[models.TenantID]map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, tenant models.TenantID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[tenant][key]
	if !ok {
		return nil, ErrNoValue
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(ctx context.Context, tenant models.TenantID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.data[tenant]
	if !ok {
		kv = make(map[string][]byte)
		m.data[tenant] = kv
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	kv[key] = cp
	return nil
}

func (m *Memory) Delete(ctx context.Context, tenant models.TenantID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[tenant], key)
	return nil
}

func (m *Memory) Tenants(ctx context.Context) ([]models.TenantID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]models.TenantID, 0, len(m.data))
	for t, kv := range m.data {
		if len(kv) > 0 {
			res = append(res, t)
		}
	}
	return res, nil
}
