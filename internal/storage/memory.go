package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV keeps values in process memory. It can be given a byte quota
// to model a store that rejects writes when full.
type MemoryKV struct {
	mu    sync.Mutex
	data  map[string][]byte
	quota int
}

// MemoryOption configures a MemoryKV.
type MemoryOption func(*MemoryKV)

// WithQuota caps the total number of value bytes held. Zero means unlimited.
func WithQuota(bytes int) MemoryOption {
	return func(m *MemoryKV) { m.quota = bytes }
}

func NewMemory(opts ...MemoryOption) *MemoryKV {
	m := &MemoryKV{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := len(value)
		for k, v := range m.data {
			if k != key {
				used += len(v)
			}
		}
		if used > m.quota {
			return fmt.Errorf("set %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
		}
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}
