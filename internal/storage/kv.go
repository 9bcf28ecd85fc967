// Package storage holds the durable local key space of a storefront session
// and the JSON adapter that mirrors in-memory collections into it.
package storage

import (
	"context"
	"errors"
	"sync"
)

// Fixed keys of the local key space.
const (
	KeyRecentlyViewed = "atelier:recentlyViewed"
	KeyCart           = "atelier:cart"
	KeyToken          = "atelier:token"
)

var (
	// ErrNotFound is returned when a key is absent.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable is returned when the backing medium cannot be used.
	ErrUnavailable = errors.New("storage unavailable")
)

// KV is a namespaced byte store. Writes overwrite the whole value.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process KV used in tests and for ephemeral sessions.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
