// Package ui owns the host-facing surfaces: the oto audio player and the
// framebuffer shared between the emulation goroutine and the window
// thread.
package ui

import "sync"

// SharedFramebuffer holds pixel data written by the emulation goroutine
// and read by Ebiten's Draw() method. Uses separate write and read
// buffers so the emu goroutine can write new data while Draw uses the
// read copy.
type SharedFramebuffer struct {
	mu          sync.Mutex
	writePixels []byte // Written by emu goroutine under lock
	readPixels  []byte // Snapshot copied on Read for safe external use
	width       int
	height      int
	updated     bool
}

// NewSharedFramebuffer creates a pre-allocated RGBA framebuffer of the
// given dimensions.
func NewSharedFramebuffer(width, height int) *SharedFramebuffer {
	return &SharedFramebuffer{
		writePixels: make([]byte, width*height*4),
		readPixels:  make([]byte, width*height*4),
		width:       width,
		height:      height,
	}
}

// Size returns the framebuffer dimensions.
func (sf *SharedFramebuffer) Size() (width, height int) {
	return sf.width, sf.height
}

// Update copies framebuffer data from the emulation goroutine.
func (sf *SharedFramebuffer) Update(pixels []byte) {
	sf.mu.Lock()
	n := len(sf.writePixels)
	if n > len(pixels) {
		n = len(pixels)
	}
	copy(sf.writePixels[:n], pixels[:n])
	sf.updated = true
	sf.mu.Unlock()
}

// Read returns a snapshot of the current framebuffer state. It copies
// the write buffer into the read buffer under the lock, then returns the
// read buffer which is safe to use without holding the lock. ok is false
// until the first Update.
func (sf *SharedFramebuffer) Read() (pixels []byte, ok bool) {
	sf.mu.Lock()
	if !sf.updated {
		sf.mu.Unlock()
		return nil, false
	}
	copy(sf.readPixels, sf.writePixels)
	sf.mu.Unlock()
	return sf.readPixels, true
}
