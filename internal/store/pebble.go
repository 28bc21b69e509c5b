package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleOptions tune the on-disk backend.
type PebbleOptions struct {
	// CacheMB is the block cache size; 0 keeps pebble's default.
	CacheMB int
	// Sync forces an fsync on every commit. Index dumps are bulk,
	// rebuildable writes, so the default is false.
	Sync bool
}

// Pebble is the on-disk KV backend.
type Pebble struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

var _ KV = (*Pebble)(nil)

// OpenPebble opens (or creates) a pebble store in dir.
func OpenPebble(dir string, opts PebbleOptions) (*Pebble, error) {
	po := &pebble.Options{}
	if opts.CacheMB > 0 {
		cache := pebble.NewCache(int64(opts.CacheMB) << 20)
		defer cache.Unref()
		po.Cache = cache
	}
	db, err := pebble.Open(dir, po)
	if err != nil {
		return nil, fmt.Errorf("open pebble store %s: %w", dir, err)
	}
	wo := pebble.NoSync
	if opts.Sync {
		wo = pebble.Sync
	}
	return &Pebble{db: db, wo: wo}, nil
}

func (p *Pebble) Get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	out := make([]byte, len(val))
	copy(out, val)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pebble) Set(key, value []byte) error {
	return p.db.Set(key, value, p.wo)
}

func (p *Pebble) Delete(key []byte) error {
	return p.db.Delete(key, p.wo)
}

func (p *Pebble) DeletePrefix(prefix []byte) error {
	succ := prefixSucc(prefix)
	if succ == nil {
		// No representable upper bound; fall back to key-by-key.
		return p.Scan(prefix, func(key, _ []byte) error {
			return p.db.Delete(key, p.wo)
		})
	}
	return p.db.DeleteRange(prefix, succ, p.wo)
}

func (p *Pebble) Scan(prefix []byte, fn func(key, value []byte) error) error {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixSucc(prefix),
	})
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

func (p *Pebble) NewBatch() Batch {
	return &pebbleBatch{b: p.db.NewBatch(), wo: p.wo}
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

// Metrics exposes the engine counters for the prometheus collector.
func (p *Pebble) Metrics() *pebble.Metrics {
	return p.db.Metrics()
}

type pebbleBatch struct {
	b  *pebble.Batch
	wo *pebble.WriteOptions
}

func (b *pebbleBatch) Set(key, value []byte) {
	_ = b.b.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) {
	_ = b.b.Delete(key, nil)
}

func (b *pebbleBatch) Commit() error {
	return b.b.Commit(b.wo)
}

func (b *pebbleBatch) Close() error {
	return b.b.Close()
}
