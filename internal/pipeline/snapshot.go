package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"leangraph/internal/depgraph"
	"leangraph/internal/index"
	"leangraph/internal/stats"
	"leangraph/internal/store"
)

// Snapshot is one published view of the corpus: the index, the graph
// built over it, and precomputed statistics. Snapshots are immutable;
// readers holding an old one stay valid after a swap.
type Snapshot struct {
	Index *index.LibraryIndex
	Graph *depgraph.Graph
	Stats stats.CorpusStats
	Built time.Time
}

// Holder publishes the current snapshot behind an atomic pointer.
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

// Load returns the current snapshot, nil before the first publish.
func (h *Holder) Load() *Snapshot {
	return h.cur.Load()
}

// Publish swaps in a new snapshot.
func (h *Holder) Publish(s *Snapshot) {
	h.cur.Store(s)
}

// BuildSnapshot assembles a snapshot from a finished index.
func BuildSnapshot(ix *index.LibraryIndex, opts ...depgraph.BuildOption) (*Snapshot, error) {
	g, err := depgraph.Build(ix, opts...)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Index: ix,
		Graph: g,
		Stats: stats.Corpus(ix, g),
		Built: time.Now(),
	}, nil
}

// LoadSnapshot rebuilds the published snapshot from the persisted
// dump. It returns nil without error when the store holds no dump yet.
func LoadSnapshot(kv store.KV, opts ...depgraph.BuildOption) (*Snapshot, error) {
	ix, err := index.Restore(kv)
	if err != nil {
		if errors.Is(err, index.ErrNoDump) {
			return nil, nil
		}
		return nil, err
	}
	return BuildSnapshot(ix, opts...)
}
