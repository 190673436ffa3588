package store

import (
	"context"
	"sync"
)

// Memory is an in-process DocumentStore for development and tests.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
}

var _ DocumentStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), doc...), nil
}

func (m *Memory) Put(_ context.Context, key string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), doc...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}
