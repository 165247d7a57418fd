package buffer

import (
	"sync"
	"sync/atomic"
)

// chunkSize is the size class used for streaming plaintext/ciphertext
// chunks through a Transform; it equals the per-read chunk size
// internal/httpapi feeds into each Execute call.
const chunkSize = 64 * 1024

// Pool provides thread-safe pooling of byte slices by size class, to
// reduce allocations on the hot streaming path. Slices are zeroized
// before being returned to a pool so that recycled key, IV, or
// plaintext bytes never leak into an unrelated stream.
type Pool struct {
	small *sync.Pool // block-sized buffers (IVs, single cipher blocks)
	large *sync.Pool // chunk-sized buffers (in/out staging)

	hitsSmall, missesSmall int64
	hitsLarge, missesLarge int64
}

// NewPool returns a ready-to-use Pool.
func NewPool() *Pool {
	return &Pool{
		small: &sync.Pool{},
		large: &sync.Pool{},
	}
}

// Get returns a zero-length slice with capacity >= size.
func (p *Pool) Get(size int) []byte {
	if size <= 32 {
		if buf := p.small.Get(); buf != nil {
			atomic.AddInt64(&p.hitsSmall, 1)
			b := buf.([]byte)
			if cap(b) >= size {
				return b[:0]
			}
		}
		atomic.AddInt64(&p.missesSmall, 1)
		return make([]byte, 0, 32)
	}
	if size <= chunkSize {
		if buf := p.large.Get(); buf != nil {
			atomic.AddInt64(&p.hitsLarge, 1)
			b := buf.([]byte)
			if cap(b) >= size {
				return b[:0]
			}
		}
		atomic.AddInt64(&p.missesLarge, 1)
		return make([]byte, 0, chunkSize)
	}
	return make([]byte, 0, size)
}

// Put zeroizes buf and returns its backing storage to the appropriate
// pool, or discards it (letting the GC reclaim it) if its capacity
// doesn't match a tracked size class.
func (p *Pool) Put(buf []byte) {
	c := cap(buf)
	full := buf[:c]
	for i := range full {
		full[i] = 0
	}
	switch {
	case c == 32:
		p.small.Put(full) //nolint:staticcheck // pool stores the full-capacity slice
	case c == chunkSize:
		p.large.Put(full)
	}
}

// Metrics reports hit/miss counts per size class. A miss is a Get that
// found nothing pooled and allocated fresh storage.
type Metrics struct {
	HitsSmall, MissesSmall int64
	HitsLarge, MissesLarge int64
}

// Stats returns a snapshot of the pool's hit/miss counters.
func (p *Pool) Stats() Metrics {
	return Metrics{
		HitsSmall:   atomic.LoadInt64(&p.hitsSmall),
		MissesSmall: atomic.LoadInt64(&p.missesSmall),
		HitsLarge:   atomic.LoadInt64(&p.hitsLarge),
		MissesLarge: atomic.LoadInt64(&p.missesLarge),
	}
}

// HitRate returns the combined hit rate across both size classes.
func (m Metrics) HitRate() float64 {
	hits := m.HitsSmall + m.HitsLarge
	total := hits + m.MissesSmall + m.MissesLarge
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
