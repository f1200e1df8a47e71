package dma

import (
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

// Ring is the single-region engine shape: one power-of-two circular buffer
// of packed stereo words. The producer owns the free-running write
// position, the device owns the read position, and fill is their
// difference. Writers spin before overwriting words the device has not
// consumed, keeping at least minHeadroom samples of safety margin, so the
// fill level after any write never exceeds size-minHeadroom.
type Ring struct {
	words []uint32
	mask  uint64
	size  int

	write atomic.Uint64
	_     [56]byte
	read  atomic.Uint64
	_     [56]byte

	started atomic.Bool
	closed  atomic.Bool
	atten   atomic.Uint32

	preRoll     int
	minHeadroom int
	stats       *xcore.Stats
	comp        chan Completion

	// device-side only
	inUnderrun bool
}

// NewRing returns a ring of size stereo pairs. Playback begins once
// preRoll pairs have been written; writers keep minHeadroom pairs of the
// ring free at all times. Size must be a power of two and large enough to
// hold the pre-roll on top of the headroom.
func NewRing(size, preRoll, minHeadroom int, stats *xcore.Stats) (*Ring, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("dma: ring size %d is not a power of two", size)
	}
	if minHeadroom < 1 || minHeadroom >= size {
		return nil, fmt.Errorf("dma: ring headroom %d out of range for size %d", minHeadroom, size)
	}
	if preRoll < 1 || preRoll > size-minHeadroom {
		return nil, fmt.Errorf("dma: pre-roll %d does not fit a %d-sample ring with %d headroom", preRoll, size, minHeadroom)
	}
	if stats == nil {
		stats = &xcore.Stats{}
	}
	return &Ring{
		words:       make([]uint32, size),
		mask:        uint64(size - 1),
		size:        size,
		preRoll:     preRoll,
		minHeadroom: minHeadroom,
		stats:       stats,
		comp:        make(chan Completion, 1),
	}, nil
}

// Write copies stereo pairs into the ring, spinning whenever the next
// stretch would intrude on the headroom margin. Pre-roll completion is
// detected here: the write that brings the fill to preRoll starts the
// device on real data, first written pair first.
func (r *Ring) Write(pcm []int16) int {
	samples := len(pcm) / 2
	shift := uint(r.atten.Load())
	written := 0
	for written < samples {
		w := r.write.Load()
		free := r.size - int(w-r.read.Load()) - r.minHeadroom
		if free <= 0 {
			if r.closed.Load() {
				return written
			}
			runtime.Gosched()
			continue
		}
		n := min(free, samples-written)
		for i := 0; i < n; i++ {
			l := pcm[(written+i)*2]
			rt := pcm[(written+i)*2+1]
			r.words[(w+uint64(i))&r.mask] = packSample(l, rt, shift)
		}
		r.write.Store(w + uint64(n))
		written += n
		if !r.started.Load() && int(w)+n >= r.preRoll {
			r.started.Store(true)
		}
	}
	if written > 0 {
		r.stats.BuffersFilled.Add(1)
	}
	return written
}

// Read drains packed words into s16le bytes. Before pre-roll completes it
// emits silence without consuming anything. Once started, a block that
// runs dry is padded with silence and counted as one underrun per dry
// spell; the read position never advances past delivered data, so nothing
// stale is ever replayed.
func (r *Ring) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	want := (len(p) / 4) * 4
	if want == 0 {
		return 0, nil
	}
	if !r.started.Load() {
		clear(p[:want])
		return want, nil
	}

	out := 0
	rd := r.read.Load()
	avail := int(r.write.Load() - rd)
	n := min(avail, want/4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(p[out:], r.words[(rd+uint64(i))&r.mask])
		out += 4
	}
	if n > 0 {
		r.read.Store(rd + uint64(n))
		r.inUnderrun = false
	}

	underrun := false
	if out < want {
		if !r.inUnderrun {
			r.inUnderrun = true
			r.stats.Underruns.Add(1)
		}
		underrun = true
		clear(p[out:want])
		out = want
	}

	r.stats.IRQs.Add(1)
	select {
	case r.comp <- Completion{Underrun: underrun}:
	default:
	}
	return out, nil
}

// Headroom reports how many stereo pairs fit without blocking.
func (r *Ring) Headroom() int {
	free := r.size - int(r.write.Load()-r.read.Load()) - r.minHeadroom
	if free < 0 {
		return 0
	}
	return free
}

// Started reports whether pre-roll has completed.
func (r *Ring) Started() bool { return r.started.Load() }

// Completions returns the block-completion channel.
func (r *Ring) Completions() <-chan Completion { return r.comp }

// SetAttenuation sets the right-shift applied during Write copies.
func (r *Ring) SetAttenuation(shift uint) {
	if shift > maxAttenuation {
		shift = maxAttenuation
	}
	r.atten.Store(uint32(shift))
}

// Drain spins until the device has consumed everything written.
func (r *Ring) Drain() {
	for r.started.Load() && !r.closed.Load() && r.write.Load() != r.read.Load() {
		runtime.Gosched()
	}
}

// Reset empties the ring and returns it to the pre-roll state. The device
// side must not be mid-Read.
func (r *Ring) Reset() {
	r.started.Store(false)
	r.write.Store(0)
	r.read.Store(0)
	r.inUnderrun = false
	clear(r.words)
	select {
	case <-r.comp:
	default:
	}
}

// Close unblocks writers; subsequent Reads report io.EOF.
func (r *Ring) Close() error {
	r.closed.Store(true)
	return nil
}
