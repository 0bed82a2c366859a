// Package admission implements the relay's "seen-before" admission
// filter: a fixed 65,536-bit, 4-hash Bloom filter keyed by request path.
//
// The filter is monotonic — bits are only ever set — so check() never
// produces a false negative for a path that was previously add()-ed, and
// may produce a false positive with probability that grows with the
// number of distinct paths inserted. That tradeoff is deliberate: a
// false positive costs one extra upstream probe, while the alternative
// (an exact set) would cost unbounded memory for a working set of
// paths that can run into the tens of thousands.
package admission

import (
	"sync"

	"github.com/kelindar/bitmap"
)

// Bits is the fixed width of the filter's bit vector (8,192 bytes).
const Bits = 1 << 16

// Filter is a concurrency-safe 4-hash Bloom filter over request paths.
//
// add is exclusive; check is shared. A check concurrent with an add may
// observe a bit set by that add or not, but it never observes a torn
// word — the mutex matters only because kelindar/bitmap's Bitmap is a
// plain growable []uint64 with no internal synchronization of its own.
type Filter struct {
	mu  sync.RWMutex
	bmp bitmap.Bitmap
}

// New returns a zeroed filter, pre-grown to its full fixed width so
// that add/check never trigger a reallocation under lock.
func New() *Filter {
	f := &Filter{}
	f.bmp.Grow(Bits - 1)
	return f
}

// Add sets the four bits derived from path's hash seeds {3, 6, 2, 1}.
func (f *Filter) Add(path []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, seed := range hashSeeds {
		f.bmp.Set(bitIndex(seed, path))
	}
}

// Check reports whether all four bits derived from path are set. It
// never returns true for a path that was never added unless a collision
// with other inserted paths happened to set all four bits (a false
// positive); it never returns false for a path that was added.
func (f *Filter) Check(path []byte) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, seed := range hashSeeds {
		if !f.bmp.Contains(bitIndex(seed, path)) {
			return false
		}
	}
	return true
}

func bitIndex(seed uint16, path []byte) uint32 {
	return uint32(hash(seed, path))
}
