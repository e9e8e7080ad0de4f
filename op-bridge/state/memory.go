package state

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps state in a map. Update stages writes in an overlay and
// folds them into the map only when the unit succeeds.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string][]byte
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (m *MemoryStore) View(fn func(Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return fn(&memTx{base: m.items})
}

func (m *MemoryStore) Update(fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	tx := &memTx{base: m.items, overlay: make(map[string]*[]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.overlay {
		if v == nil {
			delete(m.items, k)
			continue
		}
		m.items[k] = *v
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memTx struct {
	base map[string][]byte
	// nil entry marks a delete
	overlay map[string]*[]byte
}

func (t *memTx) Get(key []byte) ([]byte, bool, error) {
	if v, ok := t.overlay[string(key)]; ok {
		if v == nil {
			return nil, false, nil
		}
		return bytes.Clone(*v), true, nil
	}
	v, ok := t.base[string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (t *memTx) Set(key, value []byte) error {
	if t.overlay == nil {
		return ErrReadOnly
	}
	v := bytes.Clone(value)
	t.overlay[string(key)] = &v
	return nil
}

func (t *memTx) Delete(key []byte) error {
	if t.overlay == nil {
		return ErrReadOnly
	}
	t.overlay[string(key)] = nil
	return nil
}

func (t *memTx) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	keys := make([]string, 0)
	seen := make(map[string]struct{})
	for k := range t.overlay {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	for k := range t.base {
		if _, ok := seen[k]; !ok && strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok, _ := t.Get([]byte(k))
		if !ok {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
