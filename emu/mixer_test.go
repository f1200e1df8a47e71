package emu

import "testing"

const testFrameSamples = 888 // NTSC frame at 53280 Hz

// warmMixer burns through the startup silence window so subsequent
// frames produce audible output.
func warmMixer(t *testing.T, m *Mixer) {
	t.Helper()
	dst := make([]int16, testFrameSamples*2)
	frames := warmupSeconds * SampleRate / testFrameSamples
	for i := 0; i < frames; i++ {
		m.MixInto(dst, nil, 0, nil, 0)
	}
}

// settleMixer feeds constant FM/PSG input until the low-pass filter has
// converged on it.
func settleMixer(m *Mixer, fmVal, psgVal int16, frames int) {
	dst := make([]int16, testFrameSamples*2)
	fm := constSlice(testFrameSamples, fmVal)
	psg := constSlice(testFrameSamples, psgVal)
	for i := 0; i < frames; i++ {
		m.MixInto(dst, fm, len(fm), psg, len(psg))
	}
}

func constSlice(n int, v int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestMixerWarmupSilence(t *testing.T) {
	m := NewMixer()
	dst := make([]int16, testFrameSamples*2)
	fm := constSlice(testFrameSamples, 100)

	frames := warmupSeconds * SampleRate / testFrameSamples
	for f := 0; f < frames; f++ {
		n := m.MixInto(dst, fm, len(fm), nil, 0)
		if n != testFrameSamples {
			t.Fatalf("frame %d: MixInto returned %d pairs, want %d", f, n, testFrameSamples)
		}
		for i, v := range dst {
			if v != 0 {
				t.Fatalf("frame %d sample %d: got %d during warmup, want 0", f, i, v)
			}
		}
	}

	// First frame past the window carries signal.
	m.MixInto(dst, fm, len(fm), nil, 0)
	audible := false
	for _, v := range dst {
		if v != 0 {
			audible = true
			break
		}
	}
	if !audible {
		t.Fatal("no output after warmup window expired")
	}
}

func TestMixerSteadyStatePassesFMThrough(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	settleMixer(m, 100, 0, 2)

	// At steady state a full-volume FM stream with no PSG comes out
	// untouched: the filter has converged, the crossfade blends equal
	// values and the limiter is far from its knee.
	fm := []int16{100, 100, 100}
	dst := make([]int16, len(fm)*2)
	n := m.MixInto(dst, fm, len(fm), nil, 0)
	if n != len(fm) {
		t.Fatalf("MixInto returned %d pairs, want %d", n, len(fm))
	}
	for i := 0; i < n; i++ {
		if dst[i*2] != 100 || dst[i*2+1] != 100 {
			t.Errorf("pair %d: got (%d, %d), want (100, 100)", i, dst[i*2], dst[i*2+1])
		}
	}
}

func TestMixerSumsFMAndPSG(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	settleMixer(m, 100, 50, 2)

	fm := constSlice(testFrameSamples, 100)
	psg := constSlice(testFrameSamples, 50)
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm), psg, len(psg))
	if got := dst[testFrameSamples]; got != 150 {
		t.Errorf("summed output = %d, want 150", got)
	}
}

func TestMixerVolumeScaling(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	m.SetVolume(64)
	settleMixer(m, 200, 0, 2)

	fm := constSlice(testFrameSamples, 200)
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm), nil, 0)
	if got := dst[testFrameSamples]; got != 100 {
		t.Errorf("half-volume output = %d, want 100", got)
	}
}

func TestMixerVolumeClamped(t *testing.T) {
	m := NewMixer()
	m.SetVolume(300)
	if v := m.Volume(); v != 128 {
		t.Errorf("volume after SetVolume(300) = %d, want 128", v)
	}
	m.SetVolume(-5)
	if v := m.Volume(); v != 0 {
		t.Errorf("volume after SetVolume(-5) = %d, want 0", v)
	}
}

func TestMixerClipsAndLimits(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)

	// 20000 + 20000 clips to 32767 before filtering; the soft limiter
	// then halves the overshoot past its knee.
	settleMixer(m, 20000, 20000, 3)
	fm := constSlice(testFrameSamples, 20000)
	psg := constSlice(testFrameSamples, 20000)
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm), psg, len(psg))
	want := int16(limiterKnee + (32767-limiterKnee)/2)
	if got := dst[testFrameSamples]; got != want {
		t.Errorf("limited positive peak = %d, want %d", got, want)
	}

	settleMixer(m, -20000, -20000, 3)
	m.MixInto(dst, constSlice(testFrameSamples, -20000), testFrameSamples,
		constSlice(testFrameSamples, -20000), testFrameSamples)
	wantNeg := int16(-limiterKnee + (-32768+limiterKnee)/2)
	if got := dst[testFrameSamples]; got != wantNeg {
		t.Errorf("limited negative peak = %d, want %d", got, wantNeg)
	}
}

func TestMixerBadCountTreatedAsSilence(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	settleMixer(m, 100, 0, 2)

	// A count past the end of the stream means the chip handed us
	// garbage; that source must fall silent rather than read junk. With
	// both sources invalid the held state fades instead of snapping.
	fm := constSlice(16, 100)
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm)+1, nil, 3)
	first := dst[0]
	if first <= 0 || first > 100 {
		t.Fatalf("first fade sample = %d, want a positive value no higher than 100", first)
	}
	prev := first
	for i := 1; i < testFrameSamples; i++ {
		v := dst[i*2]
		if v > prev {
			t.Fatalf("sample %d: fade rose from %d to %d", i, prev, v)
		}
		prev = v
	}
	if prev >= 50 {
		t.Errorf("fade barely decayed over a frame: final sample = %d", prev)
	}
}

func TestMixerInvalidFMStillMixesPSG(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)

	dst := make([]int16, testFrameSamples*2)
	psg := constSlice(testFrameSamples, 80)
	for i := 0; i < 3; i++ {
		m.MixInto(dst, nil, 7, psg, len(psg))
	}
	if got := dst[testFrameSamples]; got != 80 {
		t.Errorf("PSG-only output with invalid FM count = %d, want 80", got)
	}
}

func TestMixerDisabledFadesToZero(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	settleMixer(m, 100, 0, 2)
	m.SetEnabled(false)

	dst := make([]int16, testFrameSamples*2)
	fm := constSlice(testFrameSamples, 100)
	prev := int16(101)
	for f := 0; f < 2; f++ {
		m.MixInto(dst, fm, len(fm), nil, 0)
		for i := 0; i < testFrameSamples; i++ {
			v := dst[i*2]
			if v > prev {
				t.Fatalf("frame %d sample %d: fade rose from %d to %d", f, i, prev, v)
			}
			prev = v
		}
	}
	if prev != 0 {
		t.Errorf("fade ended at %d, want exactly 0", prev)
	}
}

func TestMixerCrossfadeBridgesJump(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	settleMixer(m, 100, 0, 2)

	// The input jumps from 100 to 20000 at a frame boundary. The first
	// output sample must still be the previous frame's closing value,
	// and the ramp toward the new level must stay step-free.
	fm := constSlice(testFrameSamples, 20000)
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm), nil, 0)

	if dst[0] != 100 {
		t.Errorf("first sample after jump = %d, want 100 (previous frame's final value)", dst[0])
	}
	for i := 1; i < crossfadeSamples*2; i++ {
		d := int32(dst[i*2]) - int32(dst[(i-1)*2])
		if d > 3000 || d < -3000 {
			t.Errorf("sample %d: adjacent step of %d during crossfade", i, d)
		}
	}
	if got := dst[400*2]; got < 15000 {
		t.Errorf("sample 400 = %d, want near 20000 after settling", got)
	}
}

func TestMixerOutputIsDuplicatedStereo(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)

	fm := make([]int16, testFrameSamples)
	for i := range fm {
		fm[i] = int16(i % 500)
	}
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm), nil, 0)
	for i := 0; i < testFrameSamples; i++ {
		if dst[i*2] != dst[i*2+1] {
			t.Fatalf("pair %d: channels differ (%d, %d)", i, dst[i*2], dst[i*2+1])
		}
	}
}

func TestMixerResetRearmsWarmup(t *testing.T) {
	m := NewMixer()
	warmMixer(t, m)
	settleMixer(m, 100, 0, 2)

	m.Reset()
	fm := constSlice(testFrameSamples, 100)
	dst := make([]int16, testFrameSamples*2)
	m.MixInto(dst, fm, len(fm), nil, 0)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("sample %d after Reset = %d, want startup silence", i, v)
		}
	}
}
