package emu

import (
	"time"

	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

// dacLatch is the FM address whose data writes carry raw PCM. Those
// writes arrive at sample rate during PCM playback, far too often for the
// command queue, so they take a dedicated ring.
const dacLatch = 0x2A

// SoundPath is where the frame loop sends sound-chip traffic. Register
// writes carry the main CPU's cycle count so the receiving side can place
// them correctly within the frame. EndFrame closes out a frame's audio;
// control operations take effect from the next sample the path produces.
//
// Two implementations cover the two handoff protocols: DirectPath applies
// writes to chips it owns and publishes mixed frames to a double buffer,
// QueuedPath forwards everything to a worker on the other core.
type SoundPath interface {
	WriteFM(port, data uint8, cycle uint32)
	WritePSG(data uint8, cycle uint32)
	EndFrame(cycle uint32)

	// AudioWait reports how long the last EndFrame spent blocked on the
	// audio consumer. The pacer treats a long wait as proof the device
	// is the bottleneck rather than the emulation.
	AudioWait() time.Duration

	SetVolume(v int)
	SetEnabled(on bool)
	Reset()
}

// DirectPath runs the sound chips inline with the frame loop. Chip writes
// are applied cycle-accurately: the chips are first advanced to the
// write's cycle, so earlier audio is rendered with the old register
// state. EndFrame tops both chips up to the frame's nominal sample count,
// mixes, and publishes the frame, blocking if the consumer still holds
// the previous one.
type DirectPath struct {
	fm    FMChip
	psg   *PSG
	mixer *Mixer
	buf   *xcore.DoubleBuffer

	samplesPerFrame int
	frameCycles     int
	z80ClockHz      int
	m68kClockHz     int
	fmClocksPerSmp  float64

	frameStart uint32
	fmCycles   int
	psgCycles  int
	lastWait   time.Duration
}

// NewDirectPath returns a path mixing into buf. The chips belong to the
// path from here on; the caller must not run them itself.
func NewDirectPath(fm FMChip, psg *PSG, buf *xcore.DoubleBuffer, timing RegionTiming) *DirectPath {
	return &DirectPath{
		fm:              fm,
		psg:             psg,
		mixer:           NewMixer(),
		buf:             buf,
		samplesPerFrame: timing.SamplesPerFrame(),
		frameCycles:     timing.M68KClockHz / timing.FPS,
		z80ClockHz:      timing.Z80ClockHz,
		m68kClockHz:     timing.M68KClockHz,
		fmClocksPerSmp:  float64(timing.M68KClockHz) / float64(SampleRate),
	}
}

func (d *DirectPath) WriteFM(port, data uint8, cycle uint32) {
	d.advanceTo(cycle)
	d.fm.Write(port, data)
}

func (d *DirectPath) WritePSG(data uint8, cycle uint32) {
	d.advanceTo(cycle)
	d.psg.Write(data)
}

// advanceTo runs both chips up to the given main-CPU cycle so a register
// write lands at the right point in the frame's audio. Timestamps are
// deltas off the frame start; wrapped or garbage values clamp to one
// frame so a bad timestamp cannot stall the loop.
func (d *DirectPath) advanceTo(cycle uint32) {
	elapsed := int(cycle - d.frameStart)
	if elapsed < 0 || elapsed > d.frameCycles {
		elapsed = d.frameCycles
	}
	if delta := elapsed - d.fmCycles; delta > 0 {
		d.fm.Run(delta)
		d.fmCycles = elapsed
	}
	psgElapsed := int(int64(elapsed) * int64(d.z80ClockHz) / int64(d.m68kClockHz))
	if delta := psgElapsed - d.psgCycles; delta > 0 {
		d.psg.Run(delta)
		d.psgCycles = psgElapsed
	}
}

// EndFrame finishes the frame's audio: both chips are forced to exactly
// the nominal per-frame sample count, the streams are mixed into the
// write slot and the slot is published. The publish is the only blocking
// point; its duration is retained for the pacer.
func (d *DirectPath) EndFrame(cycle uint32) {
	target := d.samplesPerFrame
	d.fmRunTo(target)
	d.psg.RunToSamples(target)

	fmBuf, fmCount := d.fm.GetBuffer()
	psgBuf, psgCount := d.psg.GetBuffer()
	if fmCount > target {
		fmCount = target
	}
	if psgCount > target {
		psgCount = target
	}

	slot := d.buf.WriteSlot()
	n := d.mixer.MixInto(slot[:target*2], fmBuf, fmCount, psgBuf, psgCount)

	start := time.Now()
	d.buf.Publish(n * 2)
	d.lastWait = time.Since(start)

	d.fm.ResetBuffer()
	d.psg.ResetBuffer()
	d.frameStart = cycle
	d.fmCycles = 0
	d.psgCycles = 0
}

// fmRunTo clocks the FM chip until at least target samples are buffered.
func (d *DirectPath) fmRunTo(target int) {
	have := d.fm.Run(0)
	for have < target {
		need := target - have
		cycles := int(float64(need)*d.fmClocksPerSmp) + 1
		now := d.fm.Run(cycles)
		if now == have {
			break
		}
		have = now
	}
}

func (d *DirectPath) AudioWait() time.Duration { return d.lastWait }

func (d *DirectPath) SetVolume(v int)    { d.mixer.SetVolume(v) }
func (d *DirectPath) SetEnabled(on bool) { d.mixer.SetEnabled(on) }

// Reset returns the chips and mixer to power-on state and restarts the
// current frame's cycle accounting.
func (d *DirectPath) Reset() {
	d.fm.Reset()
	d.fm.ResetBuffer()
	d.psg.Reset()
	d.psg.ResetBuffer()
	d.mixer.Reset()
	d.fmCycles = 0
	d.psgCycles = 0
}

// QueuedPath forwards chip traffic to the audio worker over the shared
// queue, with one carve-out: FM data bytes addressed to the DAC while the
// part-I address latch holds the DAC register go straight to the sample
// ring. During PCM playback those writes arrive at sample rate and would
// swamp the queue; everything else, including the latch writes
// themselves and DAC-enable register writes, flows through the queue so
// the worker's chips track the same register state.
//
// Nothing here blocks. A full queue or ring drops the write and counts
// it; the emulation side never waits on the audio side.
type QueuedPath struct {
	q   *xcore.Queue
	dac *xcore.DacRing

	latch [2]uint8
}

// NewQueuedPath returns a path publishing to q, with DAC samples split
// out to dac.
func NewQueuedPath(q *xcore.Queue, dac *xcore.DacRing) *QueuedPath {
	return &QueuedPath{q: q, dac: dac}
}

func (p *QueuedPath) WriteFM(port, data uint8, cycle uint32) {
	if port&1 == 0 {
		p.latch[(port>>1)&1] = data
		p.q.Push(xcore.FMWrite(port, data, cycle))
		return
	}
	if port == 1 && p.latch[0] == dacLatch {
		p.dac.Push(dacToPCM(data))
		return
	}
	p.q.Push(xcore.FMWrite(port, data, cycle))
}

func (p *QueuedPath) WritePSG(data uint8, cycle uint32) {
	p.q.Push(xcore.PSGWrite(data, cycle))
}

// EndFrame marks the frame boundary so the worker can credit itself
// another frame's worth of samples.
func (p *QueuedPath) EndFrame(cycle uint32) {
	p.q.Push(xcore.FrameSyncCmd(cycle))
}

// AudioWait is always zero: this path drops rather than blocks.
func (p *QueuedPath) AudioWait() time.Duration { return 0 }

func (p *QueuedPath) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 128 {
		v = 128
	}
	p.q.Push(xcore.VolumeCmd(uint8(v), 0))
}

func (p *QueuedPath) SetEnabled(on bool) {
	p.q.Push(xcore.EnableCmd(on, 0))
}

func (p *QueuedPath) Reset() {
	p.latch = [2]uint8{}
	p.q.Push(xcore.ResetCmd(0))
}

// dacToPCM converts a raw 8-bit DAC byte to a signed 16-bit sample,
// centered and scaled to leave headroom for the FM channels on top.
func dacToPCM(v uint8) int16 {
	return (int16(v) - 0x80) << 6
}
