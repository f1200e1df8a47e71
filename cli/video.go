package cli

// TestPattern is the demo's video collaborator: color bars with a
// scrolling band, rendered scanline by scanline into an RGBA buffer. A
// skipped frame simply leaves the previous image in place, which makes
// the pacer's skip decisions directly visible as reduced scroll rate.
type TestPattern struct {
	pixels []byte
	frame  int
}

// NewTestPattern returns a pattern at the demo resolution.
func NewTestPattern() *TestPattern {
	return &TestPattern{
		pixels: make([]byte, demoWidth*demoHeight*4),
	}
}

var barColors = [8][3]byte{
	{0xE0, 0xE0, 0xE0},
	{0xE0, 0xE0, 0x00},
	{0x00, 0xE0, 0xE0},
	{0x00, 0xE0, 0x00},
	{0xE0, 0x00, 0xE0},
	{0xE0, 0x00, 0x00},
	{0x00, 0x00, 0xE0},
	{0x20, 0x20, 0x20},
}

// HIntInterval reports no line interrupts for the demo.
func (t *TestPattern) HIntInterval() int { return -1 }

// ActiveHeight reports the displayed scanline count.
func (t *TestPattern) ActiveHeight() int { return demoHeight }

// RenderScanline draws one line of the pattern. Line 0 advances the
// animation, so the scroll speed tracks rendered frames.
func (t *TestPattern) RenderScanline(line int) {
	if line == 0 {
		t.frame++
	}
	band := (t.frame + line) % demoHeight
	row := t.pixels[line*demoWidth*4:]
	for x := 0; x < demoWidth; x++ {
		c := barColors[x*8/demoWidth]
		r, g, b := c[0], c[1], c[2]
		if band < 4 {
			r, g, b = 0xFF, 0xFF, 0xFF
		}
		row[x*4] = r
		row[x*4+1] = g
		row[x*4+2] = b
		row[x*4+3] = 0xFF
	}
}

// Pixels returns the RGBA framebuffer.
func (t *TestPattern) Pixels() []byte { return t.pixels }
