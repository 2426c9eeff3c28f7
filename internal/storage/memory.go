package storage

import (
	"errors"
	"strings"
	"sync"
)

// MemoryDB implements DB using an in-memory map. Safe for concurrent use,
// since receiver/trampoline/wallet FSMs each own a namespace of the same
// underlying store.
type MemoryDB struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory creates a new in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errors.New("key not found")
	}
	return v, nil
}

// Put stores a key-value pair.
func (m *MemoryDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = value
	return nil
}

// Delete removes a key.
func (m *MemoryDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

// ForEach iterates over all keys with the given prefix.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.Lock()
	p := string(prefix)
	var keys, vals []string
	for k, v := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
			vals = append(vals, string(v))
		}
	}
	m.mu.Unlock()
	for i, k := range keys {
		if err := fn([]byte(k), []byte(vals[i])); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (m *MemoryDB) Close() error {
	return nil
}

// NewBatch returns a non-atomic Batch that applies its buffered writes in
// order on Commit — MemoryDB has no transaction log to make this atomic,
// but it gives callers a single interface across both DB implementations.
func (m *MemoryDB) NewBatch() Batch {
	return &memoryBatch{db: m}
}

type memoryBatch struct {
	db  *MemoryDB
	ops []struct {
		key   []byte
		value []byte // nil means delete
	}
}

func (mb *memoryBatch) Put(key, value []byte) error {
	mb.ops = append(mb.ops, struct {
		key   []byte
		value []byte
	}{append([]byte(nil), key...), append([]byte(nil), value...)})
	return nil
}

func (mb *memoryBatch) Delete(key []byte) error {
	mb.ops = append(mb.ops, struct {
		key   []byte
		value []byte
	}{append([]byte(nil), key...), nil})
	return nil
}

func (mb *memoryBatch) Commit() error {
	for _, op := range mb.ops {
		if op.value == nil {
			if err := mb.db.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := mb.db.Put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}
