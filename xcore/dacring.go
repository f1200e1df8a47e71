package xcore

import "sync/atomic"

// DacRing carries raw DAC samples on a fast path that bypasses the command
// queue, so a dense stream of DAC writes cannot crowd register traffic out
// of the queue. Same single-producer single-consumer discipline as Queue:
// one slot kept empty, drop-and-count on full, never blocks.
type DacRing struct {
	buf  []int16
	mask uint32

	write atomic.Uint32
	_     [60]byte
	read  atomic.Uint32
	_     [60]byte

	stats *Stats
}

// NewDacRing returns a ring holding capacity-1 samples. Capacity must be a
// power of two.
func NewDacRing(capacity int, stats *Stats) *DacRing {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("xcore: dac ring capacity must be a power of two")
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &DacRing{
		buf:   make([]int16, capacity),
		mask:  uint32(capacity - 1),
		stats: stats,
	}
}

// Push appends one sample, dropping it when the ring is full.
func (r *DacRing) Push(sample int16) bool {
	w := r.write.Load()
	if (w+1)&r.mask == r.read.Load() {
		r.stats.Overflows.Add(1)
		return false
	}
	r.buf[w] = sample
	r.write.Store((w + 1) & r.mask)
	return true
}

// Pop removes the oldest sample. When it reports false the consumer should
// hold its previous value; the DAC is a sample-and-hold device.
func (r *DacRing) Pop() (int16, bool) {
	rd := r.read.Load()
	if rd == r.write.Load() {
		return 0, false
	}
	s := r.buf[rd]
	r.read.Store((rd + 1) & r.mask)
	return s, true
}

// Len reports how many samples are waiting.
func (r *DacRing) Len() int {
	return int((r.write.Load() - r.read.Load()) & r.mask)
}
