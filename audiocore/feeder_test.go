package audiocore

import (
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/rh1tech/murmgenesis-sub000/dma"
	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

const testFrameSamples = 888

// readPairs pulls n stereo pairs out of the engine's device side.
func readPairs(t *testing.T, eng dma.Engine, n int) []int16 {
	t.Helper()
	raw := make([]byte, n*4)
	got, err := eng.Read(raw)
	if err != nil {
		t.Fatalf("engine read: %v", err)
	}
	if got != len(raw) {
		t.Fatalf("engine read returned %d bytes, want %d", got, len(raw))
	}
	out := make([]int16, n*2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return out
}

// waitFill spins until the ring holds at least pairs stereo pairs.
func waitFill(eng dma.Engine, ringSize, minHeadroom, pairs int) {
	for ringSize-minHeadroom-eng.Headroom() < pairs {
		runtime.Gosched()
	}
}

func TestFeederMovesFramesInOrder(t *testing.T) {
	stats := &xcore.Stats{}
	eng, err := dma.NewRing(4096, testFrameSamples, 16, stats)
	if err != nil {
		t.Fatal(err)
	}
	buf := xcore.NewDoubleBuffer(testFrameSamples * 2)

	f := NewFeeder(buf, eng, stats)
	f.Start()

	for frame := 0; frame < 2; frame++ {
		slot := buf.WriteSlot()
		for i := 0; i < testFrameSamples; i++ {
			slot[i*2] = int16(frame*1000 + 7)
			slot[i*2+1] = int16(frame*1000 + 7)
		}
		if !buf.Publish(testFrameSamples * 2) {
			t.Fatalf("publish of frame %d failed", frame)
		}
	}
	waitFill(eng, 4096, 16, 2*testFrameSamples)

	for frame := 0; frame < 2; frame++ {
		pairs := readPairs(t, eng, testFrameSamples)
		for i, v := range pairs {
			if v != int16(frame*1000+7) {
				t.Fatalf("frame %d sample %d: got %d, want %d", frame, i, v, frame*1000+7)
			}
		}
	}

	buf.Close()
	eng.Close()
	f.Wait()

	if got := stats.TotalSamples.Load(); got != 2*testFrameSamples {
		t.Errorf("TotalSamples = %d, want %d", got, 2*testFrameSamples)
	}
}

func TestFeederExitsOnClose(t *testing.T) {
	stats := &xcore.Stats{}
	eng, err := dma.NewRing(4096, testFrameSamples, 16, stats)
	if err != nil {
		t.Fatal(err)
	}
	buf := xcore.NewDoubleBuffer(testFrameSamples * 2)

	f := NewFeeder(buf, eng, stats)
	f.Start()

	buf.Close()
	eng.Close()
	f.Wait()
}
