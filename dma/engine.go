// Package dma streams mixed PCM to the host audio device the way the
// original hardware streams to its serial audio interface: a fixed region
// of packed stereo words that the device drains continuously while the
// producer refills behind it. The device side is an io.Reader pulled by
// the audio backend (little-endian signed 16-bit interleaved stereo), and
// each Read stands in for one DMA block transfer with its completion
// interrupt.
//
// Two region shapes implement the same contract: Ring, a single
// power-of-two circular buffer with a software write position chasing a
// device read position, and MultiBuffer, N fixed buffers consumed in
// rotation with block-granular re-arming (NewPingPong is the two-buffer
// construction). Both pre-roll a configured amount of audio before the
// first audible sample, substitute silence (never stale memory) when data
// runs out, count every underrun, and never let the writer overtake the
// device.
package dma

import "io"

// A sample throughout this package is one stereo pair: two int16 values in
// a Write slice, four bytes on the device side, one packed word in the
// region.

// Completion is posted on an engine's completion channel each time the
// device side finishes a block. It exists so producers can sleep until
// the engine has made room instead of polling; the channel is a wakeup,
// not a ledger — counts live in the shared stats.
type Completion struct {
	// Underrun reports that the finished block was silence played
	// because no data was ready.
	Underrun bool
}

// Engine is a DMA-backed audio output region.
//
// The producer pushes interleaved stereo int16 PCM through Write, which
// blocks while the region lacks headroom. The device pulls s16le bytes
// through Read. Construction fixes the region shape; it is not switched
// at runtime.
type Engine interface {
	io.Reader

	// Write copies interleaved stereo samples into the region, applying
	// the engine attenuation, blocking while headroom is insufficient.
	// It returns the number of stereo pairs written, short only when the
	// engine is closed mid-write.
	Write(pcm []int16) int

	// Headroom reports how many stereo pairs Write would currently
	// accept without blocking.
	Headroom() int

	// Started reports whether pre-roll has completed and the device is
	// consuming data.
	Started() bool

	// Completions returns the block-completion channel. It is never
	// closed; receivers must select against their own stop signal.
	Completions() <-chan Completion

	// SetAttenuation sets a right-shift applied to every sample during
	// the Write copy. Zero is unity gain.
	SetAttenuation(shift uint)

	// Drain blocks until the device has consumed everything written, or
	// the engine closes. Samples short of the engine's block size may
	// remain unpublished.
	Drain()

	// Reset returns the engine to its unstarted, empty state. The device
	// side must be quiescent: stop the player before resetting.
	Reset()

	// Close unblocks writers and makes Read report io.EOF.
	Close() error
}

const maxAttenuation = 15

func packSample(l, r int16, shift uint) uint32 {
	return uint32(uint16(l>>shift)) | uint32(uint16(r>>shift))<<16
}
