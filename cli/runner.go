// Package cli wires the realtime pipeline into a runnable program: the
// demo machine, the frame-paced emulation goroutine, the audio goroutine
// and the window front end. The emulation goroutine is the producer
// core, the audio goroutine the consumer core; which protocol couples
// them is fixed here at construction.
package cli

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/rh1tech/murmgenesis-sub000/audiocore"
	"github.com/rh1tech/murmgenesis-sub000/dma"
	"github.com/rh1tech/murmgenesis-sub000/emu"
	"github.com/rh1tech/murmgenesis-sub000/ui"
	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

// Engine shapes selectable on the command line.
const (
	ShapePingPong = "pingpong"
	ShapeRing     = "ring"
	ShapeNBuffer  = "nbuffer"
)

// Pipeline sizing. The ring engine holds 4096 stereo pairs with a
// three-frame pre-roll and one frame of writer headroom.
const (
	commandQueueCap = 512
	dacRingCap      = 2048
	ringSize        = 4096
	ringPreRollFr   = 3
	nBufferCount    = 4
	nBufferPreRoll  = 2

	statsInterval = 5 * time.Second
)

// Config selects the pipeline's fixed policies.
type Config struct {
	Region     emu.Region
	Autonomous bool   // command-queue protocol instead of the double buffer
	Shape      string // ShapePingPong, ShapeRing or ShapeNBuffer
	Headless   bool   // synthetic device instead of the host audio output
	Volume     int    // master volume, 0..128
	Atten      uint   // engine-level right-shift
	WeakBlink  bool   // weak parity protection in the pacer
}

// Runner owns the assembled pipeline. It implements ebiten.Game for the
// windowed build; the headless build drives it without ebiten.
type Runner struct {
	cfg    Config
	timing emu.RegionTiming

	machine *Machine
	driver  *emu.Driver
	pacer   *emu.Pacer
	path    emu.SoundPath
	eng     dma.Engine
	stats   *xcore.Stats
	fb      *ui.SharedFramebuffer

	buf    *xcore.DoubleBuffer
	feeder *audiocore.Feeder
	worker *audiocore.Worker

	player     *ui.Player
	pullerStop chan struct{}
	pullerDone chan struct{}
	tickerStop chan struct{}
	tickerDone chan struct{}

	control *Control
	emuDone chan struct{}

	offscreen *ebiten.Image
	drawOpts  ebiten.DrawImageOptions
	pauseKey  bool

	closeOnce sync.Once
}

// NewRunner builds the pipeline and starts the emulation and audio
// goroutines. Audio-device failure is non-fatal: the runner degrades to
// the synthetic device and keeps the pipeline honest.
func NewRunner(cfg Config) (*Runner, error) {
	timing := emu.GetTimingForRegion(cfg.Region)
	spf := timing.SamplesPerFrame()
	stats := &xcore.Stats{}

	eng, err := newEngine(cfg.Shape, spf, stats)
	if err != nil {
		return nil, err
	}
	eng.SetAttenuation(cfg.Atten)

	machine := NewMachine(cfg.Region)

	r := &Runner{
		cfg:        cfg,
		timing:     timing,
		machine:    machine,
		eng:        eng,
		stats:      stats,
		fb:         ui.NewSharedFramebuffer(demoWidth, demoHeight),
		pacer:      emu.NewPacer(timing.FrameBudget()),
		control:    NewControl(),
		emuDone:    make(chan struct{}),
		tickerStop: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}
	r.pacer.SetStrongBlinkProtection(!cfg.WeakBlink)

	if cfg.Autonomous {
		q := xcore.NewQueue(commandQueueCap, stats)
		dac := xcore.NewDacRing(dacRingCap, stats)
		r.path = emu.NewQueuedPath(q, dac)
		r.worker = audiocore.NewWorker(q, dac,
			NewDACChip(timing.M68KClockHz), emu.NewPSG(timing.Z80ClockHz),
			eng, timing, stats)
	} else {
		r.buf = xcore.NewDoubleBuffer(spf * 2)
		r.path = emu.NewDirectPath(machine.FM, machine.PSG, r.buf, timing)
		r.feeder = audiocore.NewFeeder(r.buf, eng, stats)
	}
	r.path.SetVolume(cfg.Volume)

	r.driver = emu.NewDriver(machine.CPU, machine.Z80, machine.Video, r.path, cfg.Region)
	machine.AttachDriver(r.driver)

	if r.worker != nil {
		r.worker.Start()
	} else {
		r.feeder.Start()
	}

	if !cfg.Headless {
		player, err := ui.NewPlayer(eng)
		if err != nil {
			log.Printf("Warning: audio initialization failed: %v", err)
		}
		r.player = player
	}
	if r.player == nil {
		r.startPuller()
	}

	go r.emulationLoop()
	go r.statsLoop()

	return r, nil
}

func newEngine(shape string, spf int, stats *xcore.Stats) (dma.Engine, error) {
	switch shape {
	case ShapePingPong, "":
		return dma.NewPingPong(spf, stats)
	case ShapeRing:
		return dma.NewRing(ringSize, ringPreRollFr*spf, spf, stats)
	case ShapeNBuffer:
		return dma.NewMultiBuffer(nBufferCount, spf, nBufferPreRoll, stats)
	default:
		return nil, fmt.Errorf("cli: unknown engine shape %q", shape)
	}
}

// emulationLoop is the producer core: one pacer decision and one emulated
// frame per iteration. On the double-buffer protocol the frame handoff
// blocks against the audio device, which is what paces the loop; the
// queued protocol never blocks, so the loop paces itself to wall clock.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	var work, audioWait time.Duration
	frame := 0
	for r.control.CheckFrame() {
		render := r.pacer.NextFrame(work, audioWait)

		start := time.Now()
		r.machine.TickTune(frame, r.driver)
		r.driver.RunFrame(render)
		if render {
			r.fb.Update(r.machine.Video.Pixels())
		}

		audioWait = r.path.AudioWait()
		work = time.Since(start) - audioWait
		if render {
			r.pacer.RecordRenderCost(work)
		}

		if r.cfg.Autonomous {
			if sleep := r.timing.FrameBudget() - time.Since(start); sleep > time.Millisecond {
				time.Sleep(sleep)
			}
		}
		frame++
	}
}

// startPuller stands in for the audio device: it drains the engine at
// wall-clock rate so pre-roll, underrun and backpressure behavior stay
// identical without host audio.
func (r *Runner) startPuller() {
	r.pullerStop = make(chan struct{})
	r.pullerDone = make(chan struct{})
	go func() {
		defer close(r.pullerDone)
		const pullEvery = 10 * time.Millisecond
		buf := make([]byte, emu.SampleRate/100*4)
		ticker := time.NewTicker(pullEvery)
		defer ticker.Stop()
		for {
			select {
			case <-r.pullerStop:
				return
			case <-ticker.C:
				if _, err := r.eng.Read(buf); err != nil {
					return
				}
			}
		}
	}()
}

func (r *Runner) statsLoop() {
	defer close(r.tickerDone)
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.tickerStop:
			return
		case <-ticker.C:
			s := r.stats.Snapshot()
			log.Printf("audio: buffers=%d underruns=%d commands=%d overflows=%d irqs=%d depth=%d samples=%d",
				s.BuffersFilled, s.Underruns, s.Commands, s.Overflows,
				s.IRQs, s.MaxQueueDepth, s.TotalSamples)
		}
	}
}

// Stats returns a snapshot of the pipeline counters.
func (r *Runner) Stats() xcore.Snapshot {
	return r.stats.Snapshot()
}

// ResetStats zeroes the pipeline counters.
func (r *Runner) ResetStats() {
	r.stats.Reset()
}

// SetMasterVolume adjusts the emulated master volume, 0..128.
func (r *Runner) SetMasterVolume(v int) {
	r.path.SetVolume(v)
}

// SetEnabled switches emulated audio output on or off.
func (r *Runner) SetEnabled(on bool) {
	r.path.SetEnabled(on)
}

// Close tears the pipeline down as a unit: emulation loop first, then
// the handoff, the engine, the audio goroutine, the device. Everything
// restartable afterward begins again from pre-roll.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		r.control.Stop()
		<-r.emuDone

		if r.buf != nil {
			r.buf.Close()
		}
		r.eng.Close()

		if r.worker != nil {
			r.worker.Stop()
		}
		if r.feeder != nil {
			r.feeder.Wait()
		}

		if r.pullerStop != nil {
			close(r.pullerStop)
			<-r.pullerDone
		}
		if r.player != nil {
			r.player.Close()
		}

		close(r.tickerStop)
		<-r.tickerDone

		s := r.stats.Snapshot()
		log.Printf("audio final: buffers=%d underruns=%d commands=%d overflows=%d samples=%d",
			s.BuffersFilled, s.Underruns, s.Commands, s.Overflows, s.TotalSamples)
	})
}

// Update implements ebiten.Game. Space toggles pause.
func (r *Runner) Update() error {
	pressed := ebiten.IsKeyPressed(ebiten.KeySpace)
	if pressed && !r.pauseKey {
		if r.control.IsPaused() {
			r.control.RequestResume()
		} else {
			r.control.RequestPause()
		}
	}
	r.pauseKey = pressed
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, ok := r.fb.Read()
	if !ok {
		return
	}

	if r.offscreen == nil {
		r.offscreen = ebiten.NewImage(demoWidth, demoHeight)
	}
	r.offscreen.WritePixels(pixels)

	// Scale to fit while preserving aspect ratio.
	screenW, screenH := screen.Bounds().Dx(), screen.Bounds().Dy()
	scaleX := float64(screenW) / demoWidth
	scaleY := float64(screenH) / demoHeight
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}
	offsetX := (float64(screenW) - demoWidth*scale) / 2
	offsetY := (float64(screenH) - demoHeight*scale) / 2

	r.drawOpts = ebiten.DrawImageOptions{}
	r.drawOpts.GeoM.Scale(scale, scale)
	r.drawOpts.GeoM.Translate(offsetX, offsetY)
	r.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(r.offscreen, &r.drawOpts)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return demoWidth, demoHeight
}
