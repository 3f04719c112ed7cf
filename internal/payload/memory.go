package payload

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory keeps blobs in process memory. It is the default backend; the core
// accepts unbounded growth here and leaves retention to the host.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put copies data under a fresh reference. The input slice may be reused by
// the caller afterwards.
func (m *Memory) Put(_ context.Context, data []byte) (string, error) {
	ref := uuid.NewString()
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.blobs[ref] = cp
	m.mu.Unlock()
	return ref, nil
}

// Get returns a copy of the stored blob.
func (m *Memory) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.RLock()
	blob, ok := m.blobs[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}
