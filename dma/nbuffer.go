package dma

import (
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

// MultiBuffer is the chained-buffer engine shape: n fixed buffers of
// packed stereo words consumed in rotation. Finishing a buffer is the
// re-arm interrupt: the device advances to the next filled buffer, posts a
// completion, and frees the finished slot for the producer. When no
// filled buffer is ready it re-arms onto a dedicated silent buffer and
// counts an underrun, so the device clock never stalls and never replays
// stale memory. NewPingPong builds the classic two-buffer chain.
type MultiBuffer struct {
	bufs       [][]uint32
	silent     []byte
	stage      []byte
	n          uint64
	bufSamples int

	filled   atomic.Uint64
	_        [56]byte
	consumed atomic.Uint64
	_        [56]byte

	started atomic.Bool
	closed  atomic.Bool
	atten   atomic.Uint32

	preRoll int
	stats   *xcore.Stats
	comp    chan Completion

	// producer-side only
	partial int

	// device-side only
	cur       []byte
	curOff    int
	curSilent bool
	curPre    bool
}

// NewMultiBuffer returns an engine of n buffers of bufSamples stereo pairs
// each. Playback begins once preRollBuffers buffers have been filled;
// preRollBuffers is clamped to [1, n-1] so the producer can always finish
// the pre-roll without waiting on the device.
func NewMultiBuffer(n, bufSamples, preRollBuffers int, stats *xcore.Stats) (*MultiBuffer, error) {
	if n < 2 {
		return nil, fmt.Errorf("dma: need at least 2 buffers, got %d", n)
	}
	if bufSamples <= 0 {
		return nil, fmt.Errorf("dma: buffer size %d must be positive", bufSamples)
	}
	if preRollBuffers < 1 {
		preRollBuffers = 1
	}
	if preRollBuffers > n-1 {
		preRollBuffers = n - 1
	}
	if stats == nil {
		stats = &xcore.Stats{}
	}
	m := &MultiBuffer{
		bufs:       make([][]uint32, n),
		silent:     make([]byte, bufSamples*4),
		stage:      make([]byte, bufSamples*4),
		n:          uint64(n),
		bufSamples: bufSamples,
		preRoll:    preRollBuffers,
		stats:      stats,
		comp:       make(chan Completion, 1),
	}
	for i := range m.bufs {
		m.bufs[i] = make([]uint32, bufSamples)
	}
	return m, nil
}

// NewPingPong returns a two-buffer chain of bufSamples stereo pairs each,
// starting as soon as the first buffer is full.
func NewPingPong(bufSamples int, stats *xcore.Stats) (*MultiBuffer, error) {
	return NewMultiBuffer(2, bufSamples, 1, stats)
}

// Write copies stereo pairs into the fill rotation. A buffer is published
// to the device only when completely full; entering a fresh buffer blocks
// until its slot has been consumed, so the producer never writes into a
// buffer the device may still be playing.
func (m *MultiBuffer) Write(pcm []int16) int {
	samples := len(pcm) / 2
	shift := uint(m.atten.Load())
	written := 0
	for written < samples {
		f := m.filled.Load()
		if m.partial == 0 {
			for f-m.consumed.Load() >= m.n {
				if m.closed.Load() {
					return written
				}
				runtime.Gosched()
			}
		}
		buf := m.bufs[f%m.n]
		n := min(m.bufSamples-m.partial, samples-written)
		for i := 0; i < n; i++ {
			l := pcm[(written+i)*2]
			r := pcm[(written+i)*2+1]
			buf[m.partial+i] = packSample(l, r, shift)
		}
		m.partial += n
		written += n
		if m.partial == m.bufSamples {
			m.partial = 0
			m.filled.Store(f + 1)
			m.stats.BuffersFilled.Add(1)
			if !m.started.Load() && f+1 >= uint64(m.preRoll) {
				m.started.Store(true)
			}
		}
	}
	return written
}

// Read drains the chain block by block. Crossing a buffer boundary is the
// completion interrupt: accounting and the completion message happen
// there, not per byte.
func (m *MultiBuffer) Read(p []byte) (int, error) {
	if m.closed.Load() {
		return 0, io.EOF
	}
	want := (len(p) / 4) * 4
	if want == 0 {
		return 0, nil
	}
	out := 0
	for out < want {
		if m.cur == nil {
			m.arm()
		}
		n := copy(p[out:want], m.cur[m.curOff:])
		m.curOff += n
		out += n
		if m.curOff == len(m.cur) {
			m.complete()
		}
	}
	return out, nil
}

// arm selects the next block for the device: the oldest filled buffer,
// or silence when none is ready.
func (m *MultiBuffer) arm() {
	m.curOff = 0
	m.curPre = false
	if !m.started.Load() {
		m.cur = m.silent
		m.curSilent = true
		m.curPre = true
		return
	}
	c := m.consumed.Load()
	if m.filled.Load() > c {
		words := m.bufs[c%m.n]
		for i, w := range words {
			binary.LittleEndian.PutUint32(m.stage[i*4:], w)
		}
		m.cur = m.stage
		m.curSilent = false
		return
	}
	m.stats.Underruns.Add(1)
	m.cur = m.silent
	m.curSilent = true
}

// complete retires the block the device just finished.
func (m *MultiBuffer) complete() {
	silent, pre := m.curSilent, m.curPre
	m.cur = nil
	m.curOff = 0
	if pre {
		// Pre-roll silence carries no interrupt.
		return
	}
	if !silent {
		m.consumed.Store(m.consumed.Load() + 1)
	}
	m.stats.IRQs.Add(1)
	select {
	case m.comp <- Completion{Underrun: silent}:
	default:
	}
}

// Headroom reports how many stereo pairs fit without blocking: the free
// remainder of the current fill buffer plus every wholly free slot.
func (m *MultiBuffer) Headroom() int {
	free := int(m.n) - int(m.filled.Load()-m.consumed.Load())
	if m.partial > 0 {
		free--
	}
	if free < 0 {
		free = 0
	}
	return free*m.bufSamples + (m.bufSamples-m.partial)%m.bufSamples
}

// Started reports whether pre-roll has completed.
func (m *MultiBuffer) Started() bool { return m.started.Load() }

// Completions returns the block-completion channel.
func (m *MultiBuffer) Completions() <-chan Completion { return m.comp }

// SetAttenuation sets the right-shift applied during Write copies.
func (m *MultiBuffer) SetAttenuation(shift uint) {
	if shift > maxAttenuation {
		shift = maxAttenuation
	}
	m.atten.Store(uint32(shift))
}

// Drain spins until every published buffer has been consumed. A partial
// fill buffer is not published and not waited for.
func (m *MultiBuffer) Drain() {
	for m.started.Load() && !m.closed.Load() && m.filled.Load() != m.consumed.Load() {
		runtime.Gosched()
	}
}

// Reset empties the chain and returns it to the pre-roll state. The
// device side must not be mid-Read.
func (m *MultiBuffer) Reset() {
	m.started.Store(false)
	m.filled.Store(0)
	m.consumed.Store(0)
	m.partial = 0
	m.cur = nil
	m.curOff = 0
	m.curSilent = false
	for _, b := range m.bufs {
		clear(b)
	}
	select {
	case <-m.comp:
	default:
	}
}

// Close unblocks writers; subsequent Reads report io.EOF.
func (m *MultiBuffer) Close() error {
	m.closed.Store(true)
	return nil
}
