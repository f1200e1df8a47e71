package emu

// Mixer post-processing tuning.
const (
	// 1-pole low-pass smoothing: normally half old/half new, much
	// steeper when the sample step exceeds the click threshold (end of
	// one-shot PCM playback, DAC retriggers).
	lpfShift       = 1
	lpfClickShift  = 3
	clickThreshold = 6000

	// Samples crossfaded from the previous frame's final output at each
	// frame boundary.
	crossfadeSamples = 32

	// Soft limiter knee; overshoot past it is halved.
	limiterKnee = 28000

	// Output is forced to true silence for this long after power-on or
	// reset, letting the output hardware settle.
	warmupSeconds = 2
)

// Mixer combines the FM and PSG streams into interleaved stereo PCM. The
// source is mono; both output channels carry the same signal. Scaling,
// clipping, filtering, crossfading and limiting happen in fixed order per
// sample, and the filter accumulator and previous frame's final sample
// survive across calls so frame boundaries stay inaudible. Not safe for
// concurrent use; each goroutine that mixes owns its own Mixer.
type Mixer struct {
	volume  int
	enabled bool

	// lpf carries 8 fractional bits so the filter settles exactly on a
	// steady input instead of one LSB under it.
	lpf    int32
	last   int32
	warmup int
}

// NewMixer returns a mixer at full volume, enabled, with the startup
// window armed.
func NewMixer() *Mixer {
	return &Mixer{
		volume:  128,
		enabled: true,
		warmup:  warmupSeconds * SampleRate,
	}
}

// SetVolume sets the master volume, clamped to 0..128. 128 is unity.
func (m *Mixer) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 128 {
		v = 128
	}
	m.volume = v
}

// Volume reports the master volume.
func (m *Mixer) Volume() int { return m.volume }

// SetEnabled switches output on or off. Disabling fades rather than cuts.
func (m *Mixer) SetEnabled(on bool) { m.enabled = on }

// Enabled reports whether output is on.
func (m *Mixer) Enabled() bool { return m.enabled }

// Reset clears the filter and crossfade state and re-arms the startup
// silence window.
func (m *Mixer) Reset() {
	m.lpf = 0
	m.last = 0
	m.warmup = warmupSeconds * SampleRate
}

// MixInto fills dst with len(dst)/2 interleaved stereo pairs mixed from
// the two mono chip streams and returns the pair count. fmCount and
// psgCount are the valid lengths reported by the chips; a count outside
// [0, len(stream)] is treated as zero valid samples, and indexes past a
// stream's count contribute silence. With no input at all, or while
// disabled, the held filter state fades to zero instead of snapping.
func (m *Mixer) MixInto(dst []int16, fm []int16, fmCount int, psg []int16, psgCount int) int {
	n := len(dst) / 2
	if n == 0 {
		return 0
	}

	if m.warmup > 0 {
		m.warmup -= n
		if m.warmup < 0 {
			m.warmup = 0
		}
		m.lpf = 0
		m.last = 0
		clear(dst[:n*2])
		return n
	}

	fmCount = validCount(fmCount, len(fm))
	psgCount = validCount(psgCount, len(psg))

	if !m.enabled || (fmCount == 0 && psgCount == 0) {
		m.fadeInto(dst, n)
		return n
	}

	prev := m.last
	for i := 0; i < n; i++ {
		var sum int32
		if i < fmCount {
			sum += int32(fm[i])
		}
		if i < psgCount {
			sum += int32(psg[i])
		}

		sum = sum * int32(m.volume) >> 7
		if sum > 32767 {
			sum = 32767
		} else if sum < -32768 {
			sum = -32768
		}

		shift := uint(lpfShift)
		if d := sum - m.lpf>>8; d > clickThreshold || d < -clickThreshold {
			shift = lpfClickShift
		}
		m.lpf = (sum<<8 + m.lpf*((1<<shift)-1)) >> shift
		cur := (m.lpf + 128) >> 8

		// Blend away from the previous frame's closing sample.
		if i < crossfadeSamples {
			a := int32(i * 256 / crossfadeSamples)
			cur = (prev*(256-a) + cur*a) >> 8
		}

		cur = softLimit(cur)
		m.last = cur
		dst[i*2] = int16(cur)
		dst[i*2+1] = int16(cur)
	}
	return n
}

// fadeInto decays the held filter state toward zero, one step per sample.
func (m *Mixer) fadeInto(dst []int16, n int) {
	for i := 0; i < n; i++ {
		m.lpf -= m.lpf >> 8
		if m.lpf > 0 {
			m.lpf--
		} else if m.lpf < 0 {
			m.lpf++
		}
		out := (m.lpf + 128) >> 8
		m.last = out
		dst[i*2] = int16(out)
		dst[i*2+1] = int16(out)
	}
}

func softLimit(s int32) int32 {
	if s > limiterKnee {
		return limiterKnee + (s-limiterKnee)>>1
	}
	if s < -limiterKnee {
		return -limiterKnee + (s+limiterKnee)>>1
	}
	return s
}

func validCount(count, capacity int) int {
	if count < 0 || count > capacity {
		return 0
	}
	return count
}
