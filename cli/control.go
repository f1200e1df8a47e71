package cli

import (
	"sync"
	"time"
)

// Control coordinates pause/resume/stop between the window thread and
// the emulation goroutine. The emulation goroutine checks in once per
// frame; pause requests are acknowledged so the requester knows the
// frame in flight has finished before it proceeds.
type Control struct {
	mu       sync.Mutex
	pauseReq bool
	paused   bool
	running  bool
	ackCh    chan struct{}
}

// NewControl returns a control in the running state.
func NewControl() *Control {
	return &Control{
		running: true,
		ackCh:   make(chan struct{}, 1),
	}
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// acknowledges.
func (c *Control) RequestPause() {
	c.mu.Lock()
	if c.paused || c.pauseReq || !c.running {
		c.mu.Unlock()
		return
	}
	c.pauseReq = true
	c.mu.Unlock()

	<-c.ackCh
}

// RequestResume tells the emulation goroutine to resume.
func (c *Control) RequestResume() {
	c.mu.Lock()
	c.pauseReq = false
	c.paused = false
	c.mu.Unlock()
}

// CheckFrame is called by the emulation goroutine between frames. When a
// pause is pending it acknowledges and holds until resumed or stopped.
// It reports false once the goroutine should exit.
func (c *Control) CheckFrame() bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return false
	}
	if !c.pauseReq {
		c.mu.Unlock()
		return true
	}
	c.paused = true
	c.mu.Unlock()

	select {
	case c.ackCh <- struct{}{}:
	default:
	}

	for {
		c.mu.Lock()
		if !c.running {
			c.mu.Unlock()
			return false
		}
		if !c.pauseReq {
			c.paused = false
			c.mu.Unlock()
			return true
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
}

// Stop signals the emulation goroutine to exit, unblocking a pause hold.
func (c *Control) Stop() {
	c.mu.Lock()
	c.running = false
	c.pauseReq = false
	c.mu.Unlock()
}

// IsPaused reports whether the emulation goroutine is currently holding.
func (c *Control) IsPaused() bool {
	c.mu.Lock()
	p := c.paused
	c.mu.Unlock()
	return p
}
