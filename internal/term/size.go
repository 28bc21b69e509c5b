package term

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Size returns the raw size of t: every tree node counts once per
// occurrence, shared subterms included. A nil term has size 0.
func Size(t *Term) int {
	if t == nil {
		return 0
	}
	memo := make(map[*Term]int)
	return rawSize(t, memo)
}

func rawSize(t *Term, memo map[*Term]int) int {
	if n, ok := memo[t]; ok {
		return n
	}
	n := 1
	for _, a := range t.Args {
		n += rawSize(a, memo)
	}
	memo[t] = n
	return n
}

// DedupSize returns the number of structurally distinct subterms of t.
// The traversal carries a visited set keyed by a content hash of each
// subterm; a subterm whose hash is already in the set contributes 0 and
// is not descended into again. For any term DedupSize(t) <= Size(t),
// with equality exactly when t repeats no substructure.
func DedupSize(t *Term) int {
	if t == nil {
		return 0
	}
	d := &deduper{
		hashes: make(map[*Term]uint64),
		seen:   make(map[uint64]struct{}),
	}
	return d.visit(t)
}

// Fingerprint returns the content hash of t's structure. Structurally
// equal terms fingerprint identically regardless of pointer sharing.
func Fingerprint(t *Term) uint64 {
	if t == nil {
		return 0
	}
	d := &deduper{hashes: make(map[*Term]uint64)}
	return d.fingerprint(t)
}

type deduper struct {
	hashes map[*Term]uint64
	seen   map[uint64]struct{}
}

func (d *deduper) visit(t *Term) int {
	h := d.fingerprint(t)
	if _, dup := d.seen[h]; dup {
		return 0
	}
	n := 1
	for _, a := range t.Args {
		n += d.visit(a)
	}
	d.seen[h] = struct{}{}
	return n
}

// fingerprint hashes head and child fingerprints bottom-up, memoized by
// node identity so shared pointers hash once.
func (d *deduper) fingerprint(t *Term) uint64 {
	if h, ok := d.hashes[t]; ok {
		return h
	}
	dig := xxhash.New()
	_, _ = dig.WriteString(t.Head)
	_, _ = dig.Write([]byte{0})
	var buf [8]byte
	for _, a := range t.Args {
		binary.BigEndian.PutUint64(buf[:], d.fingerprint(a))
		_, _ = dig.Write(buf[:])
	}
	h := dig.Sum64()
	d.hashes[t] = h
	return h
}
