package emu

// Driver runs the machine one frame at a time: it hands each CPU its
// per-scanline cycle budget, injects the timed interrupts at the right
// scanline boundaries, gates rendering on the pacer's frame decision and
// closes each frame's audio through the sound path. It owns no chips
// itself; everything it touches arrives through the collaborator
// interfaces, so the same loop drives the real cores and the test fakes.
type Driver struct {
	cpu   MainCPU
	z80   SoundCPU
	video Video
	path  SoundPath

	m68kCyclesPerFrame    int
	m68kCyclesPerScanline int
	z80CyclesPerScanline  int

	region    Region
	timing    RegionTiming
	scanlines int

	// Z80 V-blank interrupt pending delivery. Set when vertical blanking
	// begins, cleared once the core's interrupt-enable flip-flop drops,
	// which marks the acknowledge. INT stays asserted across scanlines
	// until then, so a core sitting in DI still takes the interrupt
	// later, and never takes it twice after the handler re-enables.
	z80IntPending bool

	// Line-interrupt countdown, reloaded from the video's interval
	// register at the top of the frame and throughout vertical blanking.
	hintCounter int
}

// NewDriver wires a frame loop around the given cores for the region's
// timing. The sound path receives all chip traffic from this point on.
func NewDriver(cpu MainCPU, z80 SoundCPU, video Video, path SoundPath, region Region) *Driver {
	timing := GetTimingForRegion(region)

	m68kCyclesPerFrame := timing.M68KClockHz / timing.FPS
	m68kCyclesPerScanline := m68kCyclesPerFrame / timing.Scanlines
	z80CyclesPerScanline := (timing.Z80ClockHz / timing.FPS) / timing.Scanlines

	return &Driver{
		cpu:                   cpu,
		z80:                   z80,
		video:                 video,
		path:                  path,
		m68kCyclesPerFrame:    m68kCyclesPerFrame,
		m68kCyclesPerScanline: m68kCyclesPerScanline,
		z80CyclesPerScanline:  z80CyclesPerScanline,
		region:                region,
		timing:                timing,
		scanlines:             timing.Scanlines,
	}
}

// Region reports the driver's video region.
func (d *Driver) Region() Region { return d.region }

// Timing reports the region timing the frame loop runs against.
func (d *Driver) Timing() RegionTiming { return d.timing }

// RunFrame executes one frame of emulation. Rendering of active
// scanlines happens only when render is set; emulation, interrupt
// delivery and audio generation run identically either way, so a skipped
// frame is invisible to everything but the display.
func (d *Driver) RunFrame(render bool) {
	activeHeight := d.video.ActiveHeight()

	for line := 0; line < d.scanlines; line++ {
		// Line-interrupt counter: reloaded continuously outside the
		// active display, decremented once per line inside it. Expiry
		// within the active display raises IRQ 4 when the interval is
		// enabled (non-negative).
		if line == 0 || line > activeHeight {
			d.hintCounter = d.video.HIntInterval()
		}
		d.hintCounter--
		if d.hintCounter < 0 {
			if d.video.HIntInterval() >= 0 && line <= activeHeight {
				d.cpu.RaiseInterrupt(4)
			}
			d.hintCounter = d.video.HIntInterval()
		}

		// Vertical blanking starts. The main CPU gets its level-6
		// interrupt; the sound CPU's INT line is tied to the same edge.
		if line == activeHeight {
			d.cpu.RaiseInterrupt(6)
			d.z80IntPending = true
			d.z80.SetINT(true, 0xFF)
		}

		// Run the main CPU for this scanline using budget-based
		// execution.
		budget := d.m68kCyclesPerScanline
		for budget > 0 {
			consumed := d.cpu.StepCycles(budget)
			if consumed == 0 {
				break // core halted
			}
			budget -= consumed
		}

		// Run the sound CPU. While INT is pending, watch each step for
		// the enable flip-flop dropping, which marks the acknowledge.
		budget = d.z80CyclesPerScanline
		for budget > 0 {
			var prevEnabled bool
			if d.z80IntPending {
				prevEnabled = d.z80.IntEnabled()
			}

			consumed := d.z80.StepCycles(budget)
			if consumed == 0 {
				break // core halted
			}
			budget -= consumed

			if d.z80IntPending && prevEnabled && !d.z80.IntEnabled() {
				d.z80IntPending = false
				d.z80.SetINT(false, 0xFF)
			}
		}

		if render && line < activeHeight {
			d.video.RenderScanline(line)
		}
	}

	d.path.EndFrame(uint32(d.cpu.Cycles()))
}

// WriteFM routes a main-CPU write to the FM chip through the sound path,
// stamped with the CPU's current cycle.
func (d *Driver) WriteFM(port, data uint8) {
	d.path.WriteFM(port, data, uint32(d.cpu.Cycles()))
}

// WritePSG routes a PSG register write through the sound path, stamped
// with the main CPU's current cycle.
func (d *Driver) WritePSG(data uint8) {
	d.path.WritePSG(data, uint32(d.cpu.Cycles()))
}

// Reset drops any pending sound-CPU interrupt and resets the sound path.
// The cores themselves are reset by whoever owns them.
func (d *Driver) Reset() {
	if d.z80IntPending {
		d.z80IntPending = false
		d.z80.SetINT(false, 0xFF)
	}
	d.hintCounter = 0
	d.path.Reset()
}
