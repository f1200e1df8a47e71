// Package audiocore holds the audio goroutine's loops: the code that, on
// the original hardware, runs on the second core. Feeder services the
// double-buffered frame handoff; Worker is the autonomous variant that
// owns private sound chips and replays queued register writes against
// them. Exactly one of the two runs at a time, chosen when the pipeline
// is built.
package audiocore

import (
	"github.com/rh1tech/murmgenesis-sub000/dma"
	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

// Feeder moves published frames from the double buffer into the output
// engine. The loop is deliberately dumb: acquire, write, release. The
// engine's write-side backpressure propagates through the held slot to
// the producer's next Publish, which is how the emulation goroutine ends
// up paced by the audio device.
type Feeder struct {
	buf   *xcore.DoubleBuffer
	eng   dma.Engine
	stats *xcore.Stats
	done  chan struct{}
}

// NewFeeder returns a feeder connecting buf to eng.
func NewFeeder(buf *xcore.DoubleBuffer, eng dma.Engine, stats *xcore.Stats) *Feeder {
	if stats == nil {
		stats = &xcore.Stats{}
	}
	return &Feeder{
		buf:   buf,
		eng:   eng,
		stats: stats,
		done:  make(chan struct{}),
	}
}

// Start launches the feed loop on its own goroutine. The loop exits when
// the double buffer is closed; close the engine as well if the loop may
// be blocked mid-write.
func (f *Feeder) Start() {
	go f.loop()
}

func (f *Feeder) loop() {
	defer close(f.done)
	for {
		frame, ok := f.buf.Acquire()
		if !ok {
			return
		}
		n := f.eng.Write(frame)
		f.buf.Release()
		f.stats.TotalSamples.Add(uint64(n))
	}
}

// Wait blocks until the feed loop has exited.
func (f *Feeder) Wait() {
	<-f.done
}
