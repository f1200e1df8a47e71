package emu

import (
	"github.com/user-none/go-chip-sn76489"
)

const (
	psgBufferSize = 2048
	psgGain       = 1898.0
)

// MainCPU is the 68000-class processor driving the frame. StepCycles runs
// up to the given cycle budget and returns how many cycles were consumed;
// a return of 0 means the core cannot make progress this scanline.
type MainCPU interface {
	StepCycles(cycles int) int
	RaiseInterrupt(level int)
	Cycles() uint64
}

// SoundCPU is the Z80-class processor feeding the sound hardware. The
// INT line is level-triggered: the driver asserts it at vertical blank
// and releases it once IntEnabled reports the core has taken the
// interrupt (its enable flip-flop dropping).
type SoundCPU interface {
	StepCycles(cycles int) int
	SetINT(asserted bool, data uint8)
	IntEnabled() bool
}

// Video owns scanline rendering and the line-interrupt configuration.
// HIntInterval returns the line-counter reload value; a negative value
// disables line interrupts.
type Video interface {
	HIntInterval() int
	ActiveHeight() int
	RenderScanline(line int)
}

// FMChip produces the mono FM stream at the output sample rate. Run
// advances the chip by the given number of main-CPU cycles and returns
// how many samples are buffered for the current frame; Run(0) is a pure
// count query. GetBuffer hands back the buffered samples and the valid
// count. ResetBuffer starts a new frame's accumulation.
type FMChip interface {
	Write(port uint8, data uint8)
	Run(cycles int) int
	GetBuffer() ([]int16, int)
	ResetBuffer()
	Reset()
}

// PSG wraps the SN76489 core, converting its float output to int16 and
// adding exact per-frame sample accounting on top of the chip's
// cycle-driven generation.
type PSG struct {
	chip *sn76489.SN76489
	buf  []int16
}

// NewPSG returns a PSG clocked at the given Z80 rate, producing samples
// at the fixed output rate.
func NewPSG(clockHz int) *PSG {
	chip := sn76489.New(clockHz, SampleRate, psgBufferSize, sn76489.Sega)
	chip.SetGain(psgGain)
	return &PSG{
		chip: chip,
		buf:  make([]int16, psgBufferSize),
	}
}

// Write latches a register write, applied at the chip's current position
// in the frame.
func (p *PSG) Write(value uint8) {
	p.chip.Write(value)
}

// Run advances the chip by the given number of Z80 cycles and returns
// the number of samples buffered so far this frame.
func (p *PSG) Run(cycles int) int {
	if cycles > 0 {
		p.chip.Run(cycles)
	}
	_, n := p.chip.GetChannelBuffers()
	return n
}

// RunToSamples clocks the chip until at least target samples are
// buffered for the frame. The per-scanline cycle feed undershoots the
// frame's nominal sample count by a fraction of a sample; this tops the
// buffer up so every frame hands the mixer the same count.
func (p *PSG) RunToSamples(target int) {
	if target > psgBufferSize {
		target = psgBufferSize
	}
	have := p.Run(0)
	for have < target {
		need := target - have
		cycles := int(float64(need)*p.chip.ClocksPerSample()) + 1
		now := p.Run(cycles)
		if now == have {
			break
		}
		have = now
	}
}

// GetBuffer returns the frame's mixed mono samples as int16 and the
// valid count. The conversion truncates the chip's float output the same
// way the frame mixer consumes it.
func (p *PSG) GetBuffer() ([]int16, int) {
	f, n := p.chip.GetBuffer()
	if n > len(p.buf) {
		n = len(p.buf)
	}
	for i := 0; i < n; i++ {
		v := int32(f[i])
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		p.buf[i] = int16(v)
	}
	return p.buf, n
}

// ResetBuffer discards buffered samples and starts a new frame.
func (p *PSG) ResetBuffer() {
	p.chip.ResetBuffer()
}

// Reset returns the chip to its power-on register state.
func (p *PSG) Reset() {
	p.chip.Reset()
}
