package cli

import (
	"testing"

	"github.com/rh1tech/murmgenesis-sub000/emu"
)

func TestDACChipSampleRate(t *testing.T) {
	c := NewDACChip(emu.NTSCTiming.M68KClockHz)

	if got := c.Run(0); got != 0 {
		t.Errorf("Run(0) = %d before any cycles, want 0", got)
	}

	// One frame of CPU cycles produces one frame of samples, within
	// the one-sample rounding of the fractional divider.
	frameCycles := emu.NTSCTiming.M68KClockHz / emu.NTSCTiming.FPS
	got := c.Run(frameCycles)
	want := emu.NTSCTiming.SamplesPerFrame()
	if got < want-1 || got > want+1 {
		t.Errorf("one frame of cycles produced %d samples, want about %d", got, want)
	}
}

func TestDACChipLevelAndEnable(t *testing.T) {
	c := NewDACChip(emu.NTSCTiming.M68KClockHz)

	// Disabled DAC outputs silence regardless of the held level.
	c.Write(0, regDACData)
	c.Write(1, 0xC0)
	c.Run(1000)
	buf, n := c.GetBuffer()
	for i := 0; i < n; i++ {
		if buf[i] != 0 {
			t.Fatalf("sample %d = %d while disabled, want 0", i, buf[i])
		}
	}

	c.ResetBuffer()
	c.Write(0, regDACEnable)
	c.Write(1, 0x80)
	c.Run(1000)
	buf, n = c.GetBuffer()
	if n == 0 {
		t.Fatal("no samples after enable")
	}
	want := (int16(0xC0) - 0x80) << 6
	for i := 0; i < n; i++ {
		if buf[i] != want {
			t.Fatalf("sample %d = %d while enabled, want %d", i, buf[i], want)
		}
	}
}

func TestDACChipPartTwoIgnored(t *testing.T) {
	c := NewDACChip(emu.NTSCTiming.M68KClockHz)

	c.Write(0, regDACEnable)
	c.Write(1, 0x80)
	// Part II data writes must not disturb the DAC registers.
	c.Write(2, regDACEnable)
	c.Write(3, 0x00)

	if !c.enabled {
		t.Error("part II write cleared the DAC enable")
	}
}

func TestDACChipReset(t *testing.T) {
	c := NewDACChip(emu.NTSCTiming.M68KClockHz)

	c.Write(0, regDACEnable)
	c.Write(1, 0x80)
	c.Write(0, regDACData)
	c.Write(1, 0xFF)
	c.Run(10000)
	c.Reset()

	if c.enabled || c.level != 0 || c.have != 0 {
		t.Errorf("Reset left state behind: enabled=%v level=%d have=%d", c.enabled, c.level, c.have)
	}
}
