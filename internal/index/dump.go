package index

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"leangraph/internal/decl"
	"leangraph/internal/store"
)

// Storage layout: one meta record under "M", one JSON-encoded
// declaration per "D"-prefixed key. The big-endian sequence number in
// the key keeps scan order equal to ingestion order.
var (
	metaKey    = []byte("M")
	declPrefix = []byte("D")
)

const dumpVersion = 1

// ErrNoDump reports that the store holds no persisted index yet.
var ErrNoDump = errors.New("no dump present")

type dumpMeta struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Version int    `json:"version"`
}

func declKey(seq int) []byte {
	key := make([]byte, 9)
	key[0] = declPrefix[0]
	binary.BigEndian.PutUint64(key[1:], uint64(seq))
	return key
}

// Dump persists the index to kv, replacing any previous dump. Deletes
// of the previous dump and all new writes commit as one batch, so a
// failed dump leaves the prior one intact.
func (ix *LibraryIndex) Dump(kv store.KV) error {
	b := kv.NewBatch()
	defer b.Close()
	if err := kv.Scan(declPrefix, func(key, _ []byte) error {
		b.Delete(key)
		return nil
	}); err != nil {
		return fmt.Errorf("dump index: clear previous: %w", err)
	}
	for i, name := range ix.names {
		data, err := json.Marshal(ix.decls[name])
		if err != nil {
			return fmt.Errorf("dump index: encode %s: %w", name, err)
		}
		b.Set(declKey(i), data)
	}
	m, err := json.Marshal(dumpMeta{Label: ix.label, Count: len(ix.names), Version: dumpVersion})
	if err != nil {
		return fmt.Errorf("dump index: encode meta: %w", err)
	}
	b.Set(metaKey, m)
	if err := b.Commit(); err != nil {
		return fmt.Errorf("dump index: commit: %w", err)
	}
	return nil
}

// Restore rebuilds an index from a previous Dump. Every declaration
// field round-trips exactly.
func Restore(kv store.KV) (*LibraryIndex, error) {
	raw, err := kv.Get(metaKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, fmt.Errorf("restore index: %w", ErrNoDump)
		}
		return nil, fmt.Errorf("restore index: read meta: %w", err)
	}
	var m dumpMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("restore index: decode meta: %w", err)
	}
	if m.Version != dumpVersion {
		return nil, fmt.Errorf("restore index: unsupported dump version %d", m.Version)
	}

	ix := &LibraryIndex{
		label: m.Label,
		names: make([]string, 0, m.Count),
		decls: make(map[string]*decl.Declaration, m.Count),
	}
	err = kv.Scan(declPrefix, func(key, value []byte) error {
		var d decl.Declaration
		if err := json.Unmarshal(value, &d); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		if _, dup := ix.decls[d.Name]; dup {
			return fmt.Errorf("duplicate declaration %s", d.Name)
		}
		ix.names = append(ix.names, d.Name)
		ix.decls[d.Name] = &d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	if len(ix.names) != m.Count {
		return nil, fmt.Errorf("restore index: dump truncated: %d of %d declarations", len(ix.names), m.Count)
	}
	return ix, nil
}
