package cli

import "github.com/rh1tech/murmgenesis-sub000/emu"

// tuneScript drives the sound chips with a scheduled register sequence:
// a four-note PSG arpeggio with a periodic DAC thump. It stands in for a
// game's sound driver so the demo exercises timestamped writes, the DAC
// fast path and steady PSG traffic.
type tuneScript struct{}

func newTuneScript() *tuneScript { return &tuneScript{} }

// PSG tone periods for the arpeggio (chip clock / (32 * freq)).
var tuneNotes = [4]uint16{254, 202, 169, 127}

const (
	framesPerNote = 15
	framesPerBeat = 60
	drumSamples   = 24
)

func (s *tuneScript) tick(frame int, d *emu.Driver) {
	if frame == 0 {
		// Channel 0 at modest attenuation, everything else silent,
		// DAC on.
		d.WritePSG(0x92)
		d.WritePSG(0xBF)
		d.WritePSG(0xDF)
		d.WritePSG(0xFF)
		d.WriteFM(0, regDACEnable)
		d.WriteFM(1, 0x80)
	}

	if frame%framesPerNote == 0 {
		n := tuneNotes[(frame/framesPerNote)%len(tuneNotes)]
		d.WritePSG(0x80 | uint8(n&0x0F))
		d.WritePSG(uint8(n >> 4))
	}

	// A decaying DAC pulse on the downbeat.
	if frame%framesPerBeat == 0 {
		for i := 0; i < drumSamples; i++ {
			d.WriteFM(0, regDACData)
			d.WriteFM(1, uint8(0xC0-i*(0x40/drumSamples)))
		}
	}
}
