package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStorage keeps objects in process memory. Used by tests and by
// deployments that only need the logical retention bookkeeping.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStorage) PutObject(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[objectName] = cp
	return objectName, nil
}

func (m *MemoryStorage) GetObject(_ context.Context, storageRef string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[storageRef]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", storageRef)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStorage) Delete(_ context.Context, storageRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, storageRef)
	return nil
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
