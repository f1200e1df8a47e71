package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/rh1tech/murmgenesis-sub000/emu"
)

// playerBufferBytes is oto's internal buffer: two frames of stereo int16
// at the output rate. Together with the engine's own region this sets
// the output latency floor.
const playerBufferBytes = 2 * (emu.SampleRate / 60) * 4

// Player drives the host audio device from an output engine. oto pulls
// s16le stereo bytes from the source on its own schedule, so the source's
// Read stands in for the hardware consuming DMA blocks.
type Player struct {
	player *oto.Player
}

// oto context singleton
var (
	otoCtx      *oto.Context
	otoInitOnce sync.Once
	otoInitErr  error
)

// ensureOtoContext initializes the oto audio context on first use.
func ensureOtoContext() (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   emu.SampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		<-readyChan
	})
	return otoCtx, otoInitErr
}

// NewPlayer starts playback pulling from src. Playback begins
// immediately; src is expected to hand out silence until it has real
// data.
func NewPlayer(src io.Reader) (*Player, error) {
	ctx, err := ensureOtoContext()
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	player := ctx.NewPlayer(src)
	player.SetBufferSize(playerBufferBytes)
	player.Play()

	return &Player{player: player}, nil
}

// SetVolume sets the host-side playback volume (0.0 = silent, 1.0 =
// full). This is independent of the emulated master volume.
func (p *Player) SetVolume(vol float64) {
	p.player.SetVolume(vol)
}

// Close stops playback and releases the device player. The shared oto
// context stays up for the life of the process.
func (p *Player) Close() {
	if p.player != nil {
		p.player.Close()
		p.player = nil
	}
}
