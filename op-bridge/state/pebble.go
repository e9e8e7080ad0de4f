package state

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleStore persists state in a Pebble database. Every Update runs on an
// indexed batch that is committed with fsync on success and dropped otherwise.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

// OpenPebble opens (or creates) the database in dir.
func OpenPebble(dir string) (*PebbleStore, error) {
	return openPebble(dir, &pebble.Options{})
}

// OpenPebbleInMemory opens a database backed by an in-memory filesystem.
func OpenPebbleInMemory() (*PebbleStore, error) {
	return openPebble("", &pebble.Options{FS: vfs.NewMem()})
}

func openPebble(dir string, opts *pebble.Options) (*PebbleStore, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %q: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) View(fn func(Reader) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	batch := p.db.NewIndexedBatch()
	defer batch.Close()
	return fn(&pebbleTx{batch: batch, readOnly: true})
}

func (p *PebbleStore) Update(fn func(Tx) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return ErrClosed
	}
	batch := p.db.NewIndexedBatch()
	if err := fn(&pebbleTx{batch: batch}); err != nil {
		return errors.Join(err, batch.Close())
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Join(fmt.Errorf("failed to commit state batch: %w", err), batch.Close())
	}
	return batch.Close()
}

func (p *PebbleStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

type pebbleTx struct {
	batch    *pebble.Batch
	readOnly bool
}

func (t *pebbleTx) Get(key []byte) ([]byte, bool, error) {
	v, closer, err := t.batch.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return bytes.Clone(v), true, nil
}

func (t *pebbleTx) Set(key, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.batch.Set(key, value, nil)
}

func (t *pebbleTx) Delete(key []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	return t.batch.Delete(key, nil)
}

func (t *pebbleTx) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := t.batch.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	for valid := iter.First(); valid; valid = iter.Next() {
		if err := fn(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())); err != nil {
			return errors.Join(err, iter.Close())
		}
	}
	return iter.Close()
}
