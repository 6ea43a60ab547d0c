package db

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// MemoryProvider keeps everything in a map. It backs tests and throwaway
// nodes; iteration is in ascending key order like the on-disk providers.
type MemoryProvider struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

func (p *MemoryProvider) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, fmt.Errorf("memory provider is closed")
	}
	value, ok := p.data[string(key)]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(value), nil
}

func (p *MemoryProvider) Put(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("memory provider is closed")
	}
	p.data[string(key)] = bytes.Clone(value)
	return nil
}

func (p *MemoryProvider) Delete(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, string(key))
	return nil
}

func (p *MemoryProvider) Has(key []byte) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.data[string(key)]
	return ok, nil
}

func (p *MemoryProvider) IteratePrefix(prefix []byte, callback func(key, value []byte) bool) error {
	p.mu.RLock()
	keys := make([]string, 0)
	for k := range p.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = bytes.Clone(p.data[k])
	}
	p.mu.RUnlock()

	for i, k := range keys {
		if !callback([]byte(k), values[i]) {
			break
		}
	}
	return nil
}

func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *MemoryProvider) Batch() DatabaseBatch {
	return &MemoryBatch{provider: p}
}

type memoryOp struct {
	key    string
	value  []byte
	delete bool
}

// MemoryBatch applies its operations under a single provider lock.
type MemoryBatch struct {
	provider *MemoryProvider
	ops      []memoryOp
}

func (b *MemoryBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: string(key), value: bytes.Clone(value)})
}

func (b *MemoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: string(key), delete: true})
}

func (b *MemoryBatch) Write() error {
	p := b.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("memory provider is closed")
	}
	for _, op := range b.ops {
		if op.delete {
			delete(p.data, op.key)
			continue
		}
		p.data[op.key] = op.value
	}
	return nil
}

func (b *MemoryBatch) Reset() {
	b.ops = b.ops[:0]
}

func (b *MemoryBatch) Close() error {
	b.ops = nil
	return nil
}
