package emu

import "time"

// Frameskip tuning. Emulation and audio run every frame; video rendering
// is what gets shed when the machine falls behind.
const (
	// renderCostDefault seeds the cost estimate before any render has
	// been measured.
	renderCostDefault = 4 * time.Millisecond
	// skipThresholdDiv: skip once backlog reaches 1/4 of a render cost.
	skipThresholdDiv = 4
	// A skip immediately pays 3/2 of the estimated render cost off the
	// backlog.
	skipPaydownNum = 3
	skipPaydownDen = 2
	// maxConsecutiveSkips caps a skip streak; the next frame is forced.
	maxConsecutiveSkips = 4
	// maxBacklogFrames clamps how much debt a stall can bank.
	maxBacklogFrames = 8
	// audioWaitFloor: a frame that blocked this long on the audio handoff
	// was paced by audio, not behind, so its backlog is discarded.
	audioWaitFloor = 500 * time.Microsecond
)

// Pacer is the adaptive frameskip controller for the emulation goroutine.
// Call NextFrame exactly once per frame, before the frame's work, with the
// previous frame's measurements. Skipping only ever suppresses video
// rendering, never emulation or audio, so audio cadence is unaffected.
//
// Blink protection biases the skip pattern across even/odd frames: games
// blink sprites by toggling visibility every frame, and a skip pattern
// that always samples one parity would hide them entirely. In strong mode
// the first opposite-parity frame after a skip renders regardless of
// backlog; in weak mode the bias engages only after two renders in a row
// landed on the same parity.
type Pacer struct {
	budget  time.Duration
	backlog time.Duration
	ema     time.Duration

	consecutiveSkips int
	frame            uint64
	lastParity       int // parity of the last rendered frame, -1 before any
	sameParity       int // renders in a row on the same parity
	strongBlink      bool
}

// NewPacer returns a controller targeting one frame per budget, with
// strong blink protection.
func NewPacer(budget time.Duration) *Pacer {
	return &Pacer{budget: budget, lastParity: -1, strongBlink: true}
}

// SetStrongBlinkProtection selects the strong (true) or weak (false)
// parity policy.
func (p *Pacer) SetStrongBlinkProtection(on bool) { p.strongBlink = on }

// NextFrame settles the ledger for the previous frame and reports whether
// the upcoming frame should render video. work is the previous frame's
// wall-clock cost excluding the audio handoff wait; audioWait is how long
// that handoff blocked. The first call should pass zeros.
func (p *Pacer) NextFrame(work, audioWait time.Duration) bool {
	if p.frame > 0 {
		p.backlog += work - p.budget
		if p.backlog < 0 {
			p.backlog = 0
		}
		if audioWait > audioWaitFloor {
			p.backlog = 0
		}
		if max := maxBacklogFrames * p.budget; p.backlog > max {
			p.backlog = max
		}
	}
	parity := int(p.frame & 1)
	p.frame++

	est := p.ema
	if est == 0 {
		est = renderCostDefault
	}

	render := p.backlog < est/skipThresholdDiv
	if p.consecutiveSkips >= maxConsecutiveSkips {
		render = true
	}
	if !render && p.lastParity >= 0 && parity != p.lastParity {
		if p.strongBlink {
			if p.consecutiveSkips >= 1 {
				render = true
			}
		} else if p.sameParity >= 1 {
			render = true
		}
	}

	if !render {
		p.consecutiveSkips++
		if p.backlog > 0 {
			paydown := est * skipPaydownNum / skipPaydownDen
			if p.backlog > paydown {
				p.backlog -= paydown
			} else {
				p.backlog = 0
			}
		}
		return false
	}

	p.consecutiveSkips = 0
	if parity == p.lastParity {
		p.sameParity++
	} else {
		p.sameParity = 0
	}
	p.lastParity = parity
	return true
}

// RecordRenderCost feeds one rendered frame's measured cost into the
// estimate, an EMA with 1/8 smoothing. Zero-cost measurements keep the
// previous estimate alive rather than poisoning it.
func (p *Pacer) RecordRenderCost(d time.Duration) {
	if p.ema == 0 {
		if d <= 0 {
			d = renderCostDefault
		}
		p.ema = d
		return
	}
	if d <= 0 {
		d = p.ema
	}
	p.ema = (p.ema*7 + d) / 8
}

// Reset clears backlog and streak state after a discontinuity such as a
// resolution change or a multi-second stall. The render cost estimate
// survives.
func (p *Pacer) Reset() {
	p.backlog = 0
	p.consecutiveSkips = 0
	p.lastParity = -1
	p.sameParity = 0
}

// Backlog reports the accumulated time debt.
func (p *Pacer) Backlog() time.Duration { return p.backlog }

// RenderCost reports the current render cost estimate.
func (p *Pacer) RenderCost() time.Duration {
	if p.ema == 0 {
		return renderCostDefault
	}
	return p.ema
}
