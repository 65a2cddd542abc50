package storage

import (
	"context"
	"strings"
	"sync"
)

// VolatileBackend is the in-process, non-persistent Database implementation
// used for tests and ephemeral scans. Behavior-equivalent to the other two
// backends except that its state is lost on process exit.
type VolatileBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewVolatileBackend constructs an empty in-memory backend.
func NewVolatileBackend() *VolatileBackend {
	return &VolatileBackend{data: make(map[string][]byte)}
}

func (b *VolatileBackend) Get(ctx context.Context, k string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[k]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (b *VolatileBackend) Put(ctx context.Context, k string, v []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[k] = append([]byte(nil), v...)
	return nil
}

func (b *VolatileBackend) Batch(ctx context.Context, ops []Op) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, op := range ops {
		switch op.Type {
		case OpPut:
			b.data[op.Key] = append([]byte(nil), op.Value...)
		case OpDelete:
			delete(b.data, op.Key)
		}
	}
	return nil
}

func (b *VolatileBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *VolatileBackend) Close() error { return nil }
