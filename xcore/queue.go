package xcore

import (
	"sync/atomic"
)

// Queue is a single-producer single-consumer ring of Commands. One slot is
// kept empty to tell full from empty, so a Queue of capacity N accepts N-1
// commands before dropping. Push and Pop never block: a Push against a full
// queue drops the command and counts an overflow, which keeps the emulation
// side realtime-safe when the consumer falls behind.
//
// The write index is owned by the producer and the read index by the
// consumer; each side only ever stores its own index. The indexes sit on
// separate cache lines so the two goroutines do not false-share.
type Queue struct {
	buf  []Command
	mask uint32

	write atomic.Uint32
	_     [60]byte
	read  atomic.Uint32
	_     [60]byte

	stats *Stats
}

// NewQueue returns a queue holding capacity-1 commands. Capacity must be a
// power of two. Overflows, processed counts and the high-water depth are
// reported through stats; pass nil to keep private counters.
func NewQueue(capacity int, stats *Stats) *Queue {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("xcore: queue capacity must be a power of two")
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Queue{
		buf:   make([]Command, capacity),
		mask:  uint32(capacity - 1),
		stats: stats,
	}
}

// Push appends cmd and reports whether it was accepted. Producer side only.
func (q *Queue) Push(cmd Command) bool {
	w := q.write.Load()
	r := q.read.Load()
	if (w+1)&q.mask == r {
		q.stats.Overflows.Add(1)
		return false
	}
	q.buf[w] = cmd
	q.write.Store((w + 1) & q.mask)
	q.stats.noteQueueDepth((w + 1 - r) & q.mask)
	return true
}

// Pop removes and returns the oldest command. Consumer side only.
func (q *Queue) Pop() (Command, bool) {
	r := q.read.Load()
	if r == q.write.Load() {
		return Command{}, false
	}
	cmd := q.buf[r]
	q.read.Store((r + 1) & q.mask)
	q.stats.Commands.Add(1)
	return cmd, true
}

// Len reports how many commands are waiting. It is exact on the consumer
// side; the producer may see a stale, lower value.
func (q *Queue) Len() int {
	return int((q.write.Load() - q.read.Load()) & q.mask)
}

// Cap reports how many commands the queue accepts before dropping.
func (q *Queue) Cap() int { return len(q.buf) - 1 }
