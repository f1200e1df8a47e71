package audiocore

import (
	"github.com/rh1tech/murmgenesis-sub000/dma"
	"github.com/rh1tech/murmgenesis-sub000/emu"
	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

const (
	// chunkSamples is the worker's generation granularity. Small enough
	// that queued register writes land within a millisecond or so of
	// their place in the stream, large enough to amortize the chip-run
	// bookkeeping.
	chunkSamples = 64

	// budgetCapFrames bounds how far ahead of the producer the worker
	// may generate. FrameSync commands credit the budget one frame at a
	// time; a worker that outruns the producer parks on silence instead
	// of inventing audio the emulation never authorized.
	budgetCapFrames = 3

	// FM address-latch registers the worker tracks itself: DAC enable
	// and the DAC sample register.
	regDACEnable = 0x2B
)

// Worker is the autonomous audio loop. It owns private FM and PSG
// instances plus its own mixer, and reconstructs the audio stream from
// the command queue: register writes are replayed against the private
// chips, FrameSync commands meter out sample budget, and the DAC ring
// supplies raw PCM on the side. Nothing here is shared with the
// emulation goroutine's chips; the queue is the only coupling.
//
// The loop's pacing comes from the engine: Write blocks when the region
// is full, so the worker runs exactly as fast as the device drains.
type Worker struct {
	q     *xcore.Queue
	dac   *xcore.DacRing
	fm    emu.FMChip
	psg   *emu.PSG
	mixer *emu.Mixer
	eng   dma.Engine
	stats *xcore.Stats

	samplesPerFrame int
	fmClocksPerSmp  float64
	budget          int

	latch      [2]uint8
	dacEnabled bool
	dacLevel   int16

	scratch []int16
	out     []int16

	stop chan struct{}
	done chan struct{}
}

// NewWorker returns a worker generating into eng. The chips become the
// worker's private instances; nothing else may run them.
func NewWorker(q *xcore.Queue, dac *xcore.DacRing, fm emu.FMChip, psg *emu.PSG, eng dma.Engine, timing emu.RegionTiming, stats *xcore.Stats) *Worker {
	if stats == nil {
		stats = &xcore.Stats{}
	}
	return &Worker{
		q:               q,
		dac:             dac,
		fm:              fm,
		psg:             psg,
		mixer:           emu.NewMixer(),
		eng:             eng,
		stats:           stats,
		samplesPerFrame: timing.SamplesPerFrame(),
		fmClocksPerSmp:  float64(timing.M68KClockHz) / float64(emu.SampleRate),
		scratch:         make([]int16, chunkSamples),
		out:             make([]int16, chunkSamples*2),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Start launches the generation loop on its own goroutine.
func (w *Worker) Start() {
	go w.loop()
}

// Stop halts the loop and waits for it to exit. Close the engine first
// if the loop may be blocked mid-write.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		default:
		}
		w.runOnce()
	}
}

// runOnce drains every pending command, then produces one chunk: real
// samples while budget remains, fading silence otherwise. The silence
// path still writes to the engine so the device clock keeps running and
// the loop keeps its pacing.
func (w *Worker) runOnce() {
	for {
		cmd, ok := w.q.Pop()
		if !ok {
			break
		}
		w.apply(cmd)
	}

	n := chunkSamples
	if w.budget < n {
		n = w.budget
	}
	if n == 0 {
		w.mixer.MixInto(w.out, nil, 0, nil, 0)
		w.eng.Write(w.out)
		return
	}
	w.generate(n)
	w.budget -= n
	w.stats.TotalSamples.Add(uint64(n))
}

func (w *Worker) apply(cmd xcore.Command) {
	switch cmd.Kind {
	case xcore.CmdWrite:
		if cmd.Chip == xcore.ChipPSG {
			w.psg.Write(cmd.Data)
			return
		}
		// Shadow the address latches so DAC enable can be tracked
		// without asking the chip.
		if cmd.Port&1 == 0 {
			w.latch[(cmd.Port>>1)&1] = cmd.Data
		} else if (cmd.Port>>1)&1 == 0 && w.latch[0] == regDACEnable {
			w.dacEnabled = cmd.Data&0x80 != 0
		}
		w.fm.Write(cmd.Port, cmd.Data)
	case xcore.CmdReset:
		w.fm.Reset()
		w.fm.ResetBuffer()
		w.psg.Reset()
		w.psg.ResetBuffer()
		w.mixer.Reset()
		w.latch = [2]uint8{}
		w.dacEnabled = false
		w.dacLevel = 0
		w.budget = 0
	case xcore.CmdVolume:
		w.mixer.SetVolume(int(cmd.Data))
	case xcore.CmdEnable:
		w.mixer.SetEnabled(cmd.Enabled())
	case xcore.CmdFrameSync:
		w.budget += w.samplesPerFrame
		if limit := budgetCapFrames * w.samplesPerFrame; w.budget > limit {
			w.budget = limit
		}
	case xcore.CmdDACSample:
		w.dacLevel = cmd.DACValue()
	}
}

// generate runs the private chips for n samples, folds the DAC fast path
// into the FM stream, mixes and writes.
func (w *Worker) generate(n int) {
	w.fm.ResetBuffer()
	w.psg.ResetBuffer()
	w.fmRunTo(n)
	w.psg.RunToSamples(n)

	fm, fmCount := w.fm.GetBuffer()
	psg, psgCount := w.psg.GetBuffer()
	if fmCount > n {
		fmCount = n
	}
	if psgCount > n {
		psgCount = n
	}

	// One DAC sample per output sample, sample-and-hold across gaps.
	// The DAC sits a notch below the FM channels in the hardware mix.
	for i := 0; i < n; i++ {
		if v, ok := w.dac.Pop(); ok {
			w.dacLevel = v
		}
		var s int32
		if i < fmCount {
			s = int32(fm[i])
		}
		if w.dacEnabled {
			s += int32(w.dacLevel) >> 1
		}
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		w.scratch[i] = int16(s)
	}

	w.mixer.MixInto(w.out[:n*2], w.scratch[:n], n, psg, psgCount)
	w.eng.Write(w.out[:n*2])
}

// fmRunTo clocks the FM chip until at least target samples are buffered.
func (w *Worker) fmRunTo(target int) {
	have := w.fm.Run(0)
	for have < target {
		need := target - have
		cycles := int(float64(need)*w.fmClocksPerSmp) + 1
		now := w.fm.Run(cycles)
		if now == have {
			break
		}
		have = now
	}
}
