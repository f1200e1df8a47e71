package xcore

import (
	"runtime"
	"sync/atomic"
)

// DoubleBuffer hands completed audio frames from the emulation goroutine to
// the audio goroutine. The producer mixes into its write slot, publishes it
// and immediately starts on the other slot; the consumer drains the
// published slot in parallel. A second Publish blocks until the consumer
// releases the first, which bounds the pipeline to one frame in flight and
// is the backpressure the emulation loop paces itself against.
//
// Slot contents are plain memory published by the atomic ready store, so
// neither side needs a lock. Fresh buffers start with the consumer marked
// done: the very first Publish never blocks.
type DoubleBuffer struct {
	slots [2][]int16
	count [2]int
	write int

	ready        atomic.Int32
	consumerDone atomic.Bool
	closed       atomic.Bool
}

// NewDoubleBuffer returns a handoff whose slots hold slotCap samples each.
func NewDoubleBuffer(slotCap int) *DoubleBuffer {
	b := &DoubleBuffer{}
	b.slots[0] = make([]int16, slotCap)
	b.slots[1] = make([]int16, slotCap)
	b.ready.Store(-1)
	b.consumerDone.Store(true)
	return b
}

// WriteSlot returns the slot the producer currently owns. The producer may
// mix into it freely until Publish.
func (b *DoubleBuffer) WriteSlot() []int16 { return b.slots[b.write] }

// Publish marks the first n samples of the write slot ready and flips to
// the other slot. It blocks until the consumer has released the previous
// frame and reports false only when the handoff has been closed.
func (b *DoubleBuffer) Publish(n int) bool {
	for !b.consumerDone.Load() {
		if b.closed.Load() {
			return false
		}
		runtime.Gosched()
	}
	if b.closed.Load() {
		return false
	}
	b.consumerDone.Store(false)
	b.count[b.write] = n
	b.ready.Store(int32(b.write))
	b.write ^= 1
	return true
}

// Acquire blocks until a frame is ready and returns its samples. The slice
// stays stable until Release. It reports false when the handoff is closed
// and no frame is pending.
func (b *DoubleBuffer) Acquire() ([]int16, bool) {
	for {
		if s := b.ready.Load(); s >= 0 {
			b.ready.Store(-1)
			return b.slots[s][:b.count[s]], true
		}
		if b.closed.Load() {
			return nil, false
		}
		runtime.Gosched()
	}
}

// Release hands the consumed slot back so the producer can publish again.
func (b *DoubleBuffer) Release() {
	b.consumerDone.Store(true)
}

// Close unblocks both sides. Publish after Close reports false; Acquire
// still drains a frame published before the close.
func (b *DoubleBuffer) Close() {
	b.closed.Store(true)
}
