package xcore

import "sync/atomic"

// Stats is the shared bundle of realtime audio counters. Every field is
// monotonic and has exactly one writer: the queue producer owns Overflows
// and MaxQueueDepth, the queue consumer owns Commands, the output engine
// owns BuffersFilled, Underruns and IRQs, and the sample generator owns
// TotalSamples. Readers may snapshot from any goroutine.
type Stats struct {
	BuffersFilled atomic.Uint64
	Underruns     atomic.Uint64
	Commands      atomic.Uint64
	Overflows     atomic.Uint64
	IRQs          atomic.Uint64
	TotalSamples  atomic.Uint64
	MaxQueueDepth atomic.Uint32
}

// Snapshot is a plain copy of the counters, safe to print or compare.
type Snapshot struct {
	BuffersFilled uint64
	Underruns     uint64
	Commands      uint64
	Overflows     uint64
	IRQs          uint64
	TotalSamples  uint64
	MaxQueueDepth uint32
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		BuffersFilled: s.BuffersFilled.Load(),
		Underruns:     s.Underruns.Load(),
		Commands:      s.Commands.Load(),
		Overflows:     s.Overflows.Load(),
		IRQs:          s.IRQs.Load(),
		TotalSamples:  s.TotalSamples.Load(),
		MaxQueueDepth: s.MaxQueueDepth.Load(),
	}
}

// Reset zeroes every counter. Increments racing a reset land on whichever
// side of the zero they land on; the counters are diagnostics, not ledgers.
func (s *Stats) Reset() {
	s.BuffersFilled.Store(0)
	s.Underruns.Store(0)
	s.Commands.Store(0)
	s.Overflows.Store(0)
	s.IRQs.Store(0)
	s.TotalSamples.Store(0)
	s.MaxQueueDepth.Store(0)
}

func (s *Stats) noteQueueDepth(depth uint32) {
	for {
		cur := s.MaxQueueDepth.Load()
		if depth <= cur {
			return
		}
		if s.MaxQueueDepth.CompareAndSwap(cur, depth) {
			return
		}
	}
}
