package cli

import "github.com/rh1tech/murmgenesis-sub000/emu"

// DAC control registers, reached through the part-I address latch.
const (
	regDACData   = 0x2A
	regDACEnable = 0x2B
)

const dacBufferSize = 2048

// DACChip is an FM chip stripped to its DAC: register writes latch an
// address on even ports and data on odd ports, and the only registers
// with any effect are the DAC sample and DAC enable. Output is the held
// sample while enabled, silence otherwise, produced at the output rate
// from main-CPU cycles. It feeds the demo machine and the autonomous
// worker's private FM slot.
type DACChip struct {
	latch   [2]uint8
	enabled bool
	level   int16

	clocksPerSample float64
	acc             float64
	buf             [dacBufferSize]int16
	have            int
}

// NewDACChip returns a chip clocked from the given main-CPU rate.
func NewDACChip(m68kClockHz int) *DACChip {
	return &DACChip{
		clocksPerSample: float64(m68kClockHz) / float64(emu.SampleRate),
	}
}

// Write latches an address or applies a data write.
func (c *DACChip) Write(port, data uint8) {
	if port&1 == 0 {
		c.latch[(port>>1)&1] = data
		return
	}
	if (port>>1)&1 != 0 {
		return // part II has no DAC registers
	}
	switch c.latch[0] {
	case regDACData:
		// 8-bit unsigned to signed PCM, scaled to leave headroom.
		c.level = (int16(data) - 0x80) << 6
	case regDACEnable:
		c.enabled = data&0x80 != 0
	}
}

// Run advances the chip by main-CPU cycles, accumulating one sample per
// sample period. Run(0) reports the buffered count without advancing.
func (c *DACChip) Run(cycles int) int {
	if cycles > 0 {
		c.acc += float64(cycles)
		for c.acc >= c.clocksPerSample && c.have < len(c.buf) {
			c.acc -= c.clocksPerSample
			if c.enabled {
				c.buf[c.have] = c.level
			} else {
				c.buf[c.have] = 0
			}
			c.have++
		}
	}
	return c.have
}

// GetBuffer returns the samples accumulated since the last ResetBuffer.
func (c *DACChip) GetBuffer() ([]int16, int) {
	return c.buf[:], c.have
}

// ResetBuffer starts a new accumulation window.
func (c *DACChip) ResetBuffer() {
	c.have = 0
}

// Reset returns the chip to power-on state.
func (c *DACChip) Reset() {
	c.latch = [2]uint8{}
	c.enabled = false
	c.level = 0
	c.acc = 0
	c.have = 0
}
