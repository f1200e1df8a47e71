// Package xcore provides the primitives that carry audio work between the
// emulation goroutine and the audio goroutine: a fixed-size command record,
// single-producer single-consumer rings for commands and DAC samples, a
// double-buffered frame handoff, and the shared realtime counters.
package xcore

// Command kinds.
const (
	CmdNop uint8 = iota
	CmdWrite
	CmdReset
	CmdVolume
	CmdEnable
	CmdFrameSync
	CmdDACSample
)

// Chip selectors for CmdWrite.
const (
	ChipFM uint8 = iota
	ChipPSG
)

// Command is a fixed eight-byte record describing one unit of audio work.
// Timestamp carries the low 32 bits of the main CPU cycle counter at the
// time the command was issued.
type Command struct {
	Kind      uint8
	Chip      uint8
	Port      uint8
	Data      uint8
	Timestamp uint32
}

// FMWrite describes a register write to the FM chip. Port follows the bus
// numbering: even ports latch an address, odd ports carry data.
func FMWrite(port, data uint8, cycle uint32) Command {
	return Command{Kind: CmdWrite, Chip: ChipFM, Port: port, Data: data, Timestamp: cycle}
}

// PSGWrite describes a write to the PSG's single data port.
func PSGWrite(data uint8, cycle uint32) Command {
	return Command{Kind: CmdWrite, Chip: ChipPSG, Data: data, Timestamp: cycle}
}

// ResetCmd asks the consumer to reset its chips and mixer state.
func ResetCmd(cycle uint32) Command {
	return Command{Kind: CmdReset, Timestamp: cycle}
}

// VolumeCmd sets the master volume, 0 through 128.
func VolumeCmd(vol uint8, cycle uint32) Command {
	return Command{Kind: CmdVolume, Data: vol, Timestamp: cycle}
}

// EnableCmd switches audio output on or off.
func EnableCmd(on bool, cycle uint32) Command {
	c := Command{Kind: CmdEnable, Timestamp: cycle}
	if on {
		c.Data = 1
	}
	return c
}

// FrameSyncCmd marks a frame boundary. The consumer converts each one into
// a frame's worth of sample budget.
func FrameSyncCmd(cycle uint32) Command {
	return Command{Kind: CmdFrameSync, Timestamp: cycle}
}

// DACSampleCmd carries one signed DAC sample through the command queue.
// Bulk DAC traffic should use the DacRing instead; this form exists for
// consumers that have no ring attached.
func DACSampleCmd(sample int16, cycle uint32) Command {
	return Command{
		Kind:      CmdDACSample,
		Port:      uint8(uint16(sample)),
		Data:      uint8(uint16(sample) >> 8),
		Timestamp: cycle,
	}
}

// DACValue unpacks the sample carried by a CmdDACSample command.
func (c Command) DACValue() int16 {
	return int16(uint16(c.Port) | uint16(c.Data)<<8)
}

// Enabled unpacks the flag carried by a CmdEnable command.
func (c Command) Enabled() bool { return c.Data != 0 }
