package emu

import (
	"strings"
	"time"
)

// Region selects the display timing standard.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

func (r Region) String() string {
	if r == RegionPAL {
		return "PAL"
	}
	return "NTSC"
}

// SampleRate is the audio output rate in Hz, chosen so an NTSC frame is an
// exact 888 samples.
const SampleRate = 53280

// RegionTiming holds timing constants for a specific region.
// The Genesis has two CPUs with different clock rates.
type RegionTiming struct {
	M68KClockHz int // Motorola 68000 clock frequency
	Z80ClockHz  int // Z80 sound CPU clock frequency
	Scanlines   int // Total scanlines per frame
	FPS         int // Frames per second
}

// NTSC timing: M68K 7.670454 MHz, Z80 3.579545 MHz, 262 scanlines, 60 Hz
var NTSCTiming = RegionTiming{
	M68KClockHz: 7670454,
	Z80ClockHz:  3579545,
	Scanlines:   262,
	FPS:         60,
}

// PAL timing: M68K 7.600489 MHz, Z80 3.546893 MHz, 313 scanlines, 50 Hz
var PALTiming = RegionTiming{
	M68KClockHz: 7600489,
	Z80ClockHz:  3546893,
	Scanlines:   313,
	FPS:         50,
}

// GetTimingForRegion returns the appropriate timing constants
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// SamplesPerFrame returns the nominal audio samples generated per frame:
// 888 for NTSC, 1065 for PAL.
func (t RegionTiming) SamplesPerFrame() int {
	return SampleRate / t.FPS
}

// FrameBudget returns the wall-clock time one frame may take.
func (t RegionTiming) FrameBudget() time.Duration {
	return time.Second / time.Duration(t.FPS)
}

// ParseRegion maps a command-line region name. Anything that is not PAL is
// NTSC.
func ParseRegion(s string) Region {
	if strings.EqualFold(s, "pal") {
		return RegionPAL
	}
	return RegionNTSC
}

// DefaultRegion returns the default region (NTSC).
func DefaultRegion() Region {
	return RegionNTSC
}
