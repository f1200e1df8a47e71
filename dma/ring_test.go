package dma

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/rh1tech/murmgenesis-sub000/xcore"
)

var (
	_ Engine = (*Ring)(nil)
	_ Engine = (*MultiBuffer)(nil)
)

// readPairs pulls n stereo pairs from the device side and decodes the
// left channel of each.
func readPairs(t *testing.T, e Engine, n int) []int16 {
	t.Helper()
	buf := make([]byte, n*4)
	got, err := e.Read(buf)
	if err != nil {
		t.Fatalf("device read: %v", err)
	}
	if got != len(buf) {
		t.Fatalf("device read returned %d bytes, want %d", got, len(buf))
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*4:]))
	}
	return out
}

// stereo builds an interleaved buffer with both channels set to
// base, base+1, ...
func stereo(base, n int) []int16 {
	pcm := make([]int16, n*2)
	for i := 0; i < n; i++ {
		pcm[i*2] = int16(base + i)
		pcm[i*2+1] = int16(base + i)
	}
	return pcm
}

func TestRingPreRollStart(t *testing.T) {
	const frame = 888
	stats := &xcore.Stats{}
	r, err := NewRing(4096, 3*frame, frame, stats)
	if err != nil {
		t.Fatal(err)
	}

	r.Write(stereo(1000, frame))
	if r.Started() {
		t.Fatal("started after 1 of 3 pre-roll frames")
	}
	// Device pulls during pre-roll: silence, nothing consumed.
	for _, s := range readPairs(t, r, 64) {
		if s != 0 {
			t.Fatalf("pre-roll emitted %d, want silence", s)
		}
	}

	r.Write(stereo(2000, frame))
	if r.Started() {
		t.Fatal("started after 2 of 3 pre-roll frames")
	}

	r.Write(stereo(3000, frame))
	if !r.Started() {
		t.Fatal("not started after 3 pre-roll frames")
	}

	// The first audible sample is the first sample of the first write.
	got := readPairs(t, r, 4)
	for i, s := range got {
		if s != int16(1000+i) {
			t.Fatalf("audible sample %d = %d, want %d", i, s, 1000+i)
		}
	}
	if got := stats.Underruns.Load(); got != 0 {
		t.Errorf("underruns during pre-roll: %d", got)
	}
}

func TestRingHeadroomInvariant(t *testing.T) {
	const (
		size     = 1024
		headroom = 64
	)
	r, err := NewRing(size, 1, headroom, nil)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	next := 1
	expect := 1
	pending := 0
	for i := 0; i < 2000; i++ {
		if h := r.Headroom(); h > 0 {
			n := rng.Intn(min(h, 200)) + 1
			r.Write(stereo(next, n))
			next += n
			pending += n
		}
		if fill := int(r.write.Load() - r.read.Load()); fill > size-headroom {
			t.Fatalf("iteration %d: fill %d exceeds %d", i, fill, size-headroom)
		}
		if pending > 0 {
			n := rng.Intn(pending) + 1
			for j, s := range readPairs(t, r, n) {
				if s != int16(expect+j) {
					t.Fatalf("iteration %d: sample %d = %d, want %d", i, j, s, expect+j)
				}
			}
			expect += n
			pending -= n
		}
	}
}

func TestRingUnderrunRecovery(t *testing.T) {
	stats := &xcore.Stats{}
	r, err := NewRing(1024, 16, 16, stats)
	if err != nil {
		t.Fatal(err)
	}

	r.Write(stereo(100, 16))
	readPairs(t, r, 16)

	// Two dry reads are one dry spell: a single underrun.
	for _, s := range readPairs(t, r, 8) {
		if s != 0 {
			t.Fatalf("dry read emitted %d, want silence", s)
		}
	}
	readPairs(t, r, 8)
	if got := stats.Underruns.Load(); got != 1 {
		t.Errorf("underruns after one dry spell: got %d, want 1", got)
	}

	// Fresh data plays back exactly, with nothing stale in front of it.
	r.Write(stereo(500, 16))
	for i, s := range readPairs(t, r, 16) {
		if s != int16(500+i) {
			t.Fatalf("post-underrun sample %d = %d, want %d", i, s, 500+i)
		}
	}
	if got := stats.Underruns.Load(); got != 1 {
		t.Errorf("underruns after recovery: got %d, want 1", got)
	}
}

func TestRingWraparound(t *testing.T) {
	r, err := NewRing(64, 1, 1, nil)
	if err != nil {
		t.Fatal(err)
	}

	next := 1
	for round := 0; round < 40; round++ {
		r.Write(stereo(next, 48))
		for i, s := range readPairs(t, r, 48) {
			if s != int16(next+i) {
				t.Fatalf("round %d sample %d = %d, want %d", round, i, s, next+i)
			}
		}
		next += 48
	}
}

func TestRingAttenuation(t *testing.T) {
	r, err := NewRing(64, 1, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.SetAttenuation(2)

	r.Write([]int16{400, 400, -400, -400})
	got := readPairs(t, r, 2)
	if got[0] != 100 || got[1] != -100 {
		t.Errorf("attenuated samples = %d, %d, want 100, -100", got[0], got[1])
	}
}

func TestRingResetReturnsToPreRoll(t *testing.T) {
	r, err := NewRing(256, 32, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.Write(stereo(1, 64))
	if !r.Started() {
		t.Fatal("not started before reset")
	}

	r.Reset()
	if r.Started() {
		t.Fatal("still started after reset")
	}
	for _, s := range readPairs(t, r, 16) {
		if s != 0 {
			t.Fatalf("reset ring emitted %d", s)
		}
	}

	// Pre-roll applies again from scratch.
	r.Write(stereo(9, 32))
	if !r.Started() {
		t.Fatal("pre-roll did not restart playback after reset")
	}
	if got := readPairs(t, r, 1)[0]; got != 9 {
		t.Errorf("first sample after reset = %d, want 9", got)
	}
}
