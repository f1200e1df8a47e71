package cli

import (
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"

	"github.com/rh1tech/murmgenesis-sub000/emu"
)

// Demo display dimensions.
const (
	demoWidth  = 320
	demoHeight = 224
)

// Demo bus layout: 64KB of RAM at the bottom of the map, FM ports in the
// usual 0xA04000 window, PSG data port at 0xC00011.
const (
	demoRAMSize  = 0x10000
	demoFMBase   = 0xA04000
	demoPSGPort  = 0xC00011
	demoZ80RAM   = 0x2000
	demoStackTop = 0x00FF00
	demoEntry    = 0x000400
	demoRTEAddr  = 0x000500
)

// chipSink receives the sound-chip writes a bus decodes. The driver
// implements it, stamping each write with the CPU's cycle count.
type chipSink interface {
	WriteFM(port, data uint8)
	WritePSG(data uint8)
}

// demoBus is a minimal m68k.Bus: RAM, the two sound-chip windows, and
// nothing else. Reads outside RAM return zero.
type demoBus struct {
	ram  [demoRAMSize]byte
	sink chipSink
}

// newDemoBus returns a bus seeded with reset vectors, an idle loop and
// RTE handlers for the two autovectored interrupt levels the driver
// raises.
func newDemoBus() *demoBus {
	b := &demoBus{}
	b.seed()
	return b
}

func (b *demoBus) seed() {
	putLong := func(addr uint32, v uint32) {
		b.ram[addr] = byte(v >> 24)
		b.ram[addr+1] = byte(v >> 16)
		b.ram[addr+2] = byte(v >> 8)
		b.ram[addr+3] = byte(v)
	}
	putWord := func(addr uint32, v uint16) {
		b.ram[addr] = byte(v >> 8)
		b.ram[addr+1] = byte(v)
	}

	putLong(0x00, demoStackTop) // initial SP
	putLong(0x04, demoEntry)    // initial PC
	putLong(0x70, demoRTEAddr)  // level 4 autovector
	putLong(0x78, demoRTEAddr)  // level 6 autovector

	putWord(demoEntry, 0x60FE)   // bra.s *  (idle loop)
	putWord(demoRTEAddr, 0x4E73) // rte
}

// setSink attaches the sound-write sink. The bus and the driver
// reference each other, so this happens after both exist.
func (b *demoBus) setSink(s chipSink) { b.sink = s }

// Read implements m68k.Bus.
func (b *demoBus) Read(s m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFFF
	switch s {
	case m68k.Byte:
		if addr >= demoRAMSize {
			return 0
		}
		return uint32(b.ram[addr])
	case m68k.Word:
		if addr+1 >= demoRAMSize {
			return 0
		}
		return uint32(b.ram[addr])<<8 | uint32(b.ram[addr+1])
	default:
		if addr+3 >= demoRAMSize {
			return 0
		}
		return uint32(b.ram[addr])<<24 | uint32(b.ram[addr+1])<<16 |
			uint32(b.ram[addr+2])<<8 | uint32(b.ram[addr+3])
	}
}

// Write implements m68k.Bus.
func (b *demoBus) Write(s m68k.Size, addr uint32, value uint32) {
	addr &= 0xFFFFFF
	if addr >= demoFMBase && addr < demoFMBase+4 {
		if b.sink != nil {
			b.sink.WriteFM(uint8(addr-demoFMBase), uint8(value))
		}
		return
	}
	if addr == demoPSGPort {
		if b.sink != nil {
			b.sink.WritePSG(uint8(value))
		}
		return
	}
	switch s {
	case m68k.Byte:
		if addr >= demoRAMSize {
			return
		}
		b.ram[addr] = byte(value)
	case m68k.Word:
		if addr+1 >= demoRAMSize {
			return
		}
		b.ram[addr] = byte(value >> 8)
		b.ram[addr+1] = byte(value)
	default:
		if addr+3 >= demoRAMSize {
			return
		}
		b.ram[addr] = byte(value >> 24)
		b.ram[addr+1] = byte(value >> 16)
		b.ram[addr+2] = byte(value >> 8)
		b.ram[addr+3] = byte(value)
	}
}

// Reset re-seeds RAM. Implements m68k.Bus.
func (b *demoBus) Reset() {
	clear(b.ram[:])
	b.seed()
}

// demoZ80Bus is the sound CPU's address space: 8KB of RAM seeded with a
// program that sets IM 1, enables interrupts and halts; the IM 1 handler
// at 0x38 re-enables and returns. This gives the driver's INT
// acknowledge tracking a real enable flip-flop transition every vblank.
type demoZ80Bus struct {
	ram [demoZ80RAM]byte
}

func newDemoZ80Bus() *demoZ80Bus {
	b := &demoZ80Bus{}
	b.seed()
	return b
}

func (b *demoZ80Bus) seed() {
	program := []byte{
		0xED, 0x56, // im 1
		0xFB,       // ei
		0x76,       // halt
		0x18, 0xFD, // jr halt
	}
	copy(b.ram[:], program)
	handler := []byte{
		0xFB,       // ei
		0xED, 0x4D, // reti
	}
	copy(b.ram[0x38:], handler)
}

func (b *demoZ80Bus) Fetch(addr uint16) uint8 { return b.Read(addr) }

func (b *demoZ80Bus) Read(addr uint16) uint8 {
	return b.ram[addr&(demoZ80RAM-1)]
}

func (b *demoZ80Bus) Write(addr uint16, val uint8) {
	b.ram[addr&(demoZ80RAM-1)] = val
}

func (b *demoZ80Bus) In(port uint16) uint8 { return 0xFF }

func (b *demoZ80Bus) Out(port uint16, val uint8) {}

// mainCPU adapts the M68K core to the driver's interface.
type mainCPU struct {
	cpu *m68k.CPU
}

func (c *mainCPU) StepCycles(cycles int) int { return c.cpu.StepCycles(cycles) }
func (c *mainCPU) RaiseInterrupt(level int)  { c.cpu.RequestInterrupt(uint8(level), nil) }
func (c *mainCPU) Cycles() uint64            { return c.cpu.Cycles() }

// soundCPU adapts the Z80 core to the driver's interface.
type soundCPU struct {
	cpu *z80.CPU
}

func (c *soundCPU) StepCycles(cycles int) int        { return c.cpu.StepCycles(cycles) }
func (c *soundCPU) SetINT(asserted bool, data uint8) { c.cpu.INT(asserted, data) }
func (c *soundCPU) IntEnabled() bool                 { return c.cpu.Registers().IFF1 }

// Machine is the demo hardware: real CPU cores idling on tiny seeded
// programs, a DAC-only FM chip, the PSG, and a test-pattern video. It
// exists to exercise the realtime pipeline end to end without a ROM.
type Machine struct {
	CPU   emu.MainCPU
	Z80   emu.SoundCPU
	Video *TestPattern
	FM    emu.FMChip
	PSG   *emu.PSG

	bus  *demoBus
	tune *tuneScript
}

// NewMachine builds the demo hardware for the given region.
func NewMachine(region emu.Region) *Machine {
	timing := emu.GetTimingForRegion(region)

	bus := newDemoBus()
	cpu := m68k.New(bus)
	z80CPU := z80.New(newDemoZ80Bus())

	return &Machine{
		CPU:   &mainCPU{cpu: cpu},
		Z80:   &soundCPU{cpu: z80CPU},
		Video: NewTestPattern(),
		FM:    NewDACChip(timing.M68KClockHz),
		PSG:   emu.NewPSG(timing.Z80ClockHz),
		bus:   bus,
		tune:  newTuneScript(),
	}
}

// AttachDriver routes bus-decoded sound writes through the driver so
// they pick up cycle timestamps.
func (m *Machine) AttachDriver(d *emu.Driver) {
	m.bus.setSink(d)
}

// TickTune applies the tune script's register writes scheduled for the
// given frame.
func (m *Machine) TickTune(frame int, d *emu.Driver) {
	m.tune.tick(frame, d)
}
