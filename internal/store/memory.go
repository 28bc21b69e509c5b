package store

import (
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process KV used by tests and one-shot CLI runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ KV = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *Memory) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *Memory) DeletePrefix(prefix []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := string(prefix)
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Scan(prefix []byte, fn func(key, value []byte) error) error {
	// Snapshot the matching keys so fn may write to the store.
	m.mu.RLock()
	p := string(prefix)
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		m.mu.RLock()
		v, ok := m.data[k]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) NewBatch() Batch {
	return &memoryBatch{m: m}
}

func (m *Memory) Close() error { return nil }

type memoryBatch struct {
	m   *Memory
	ops []memoryOp
}

type memoryOp struct {
	key    []byte
	value  []byte
	delete bool
}

func (b *memoryBatch) Set(key, value []byte) {
	b.ops = append(b.ops, memoryOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
}

func (b *memoryBatch) Commit() error {
	b.m.mu.Lock()
	defer b.m.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			delete(b.m.data, string(op.key))
			continue
		}
		b.m.data[string(op.key)] = op.value
	}
	b.ops = nil
	return nil
}

func (b *memoryBatch) Close() error {
	b.ops = nil
	return nil
}
