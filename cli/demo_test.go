package cli

import (
	"testing"

	"github.com/user-none/go-chip-m68k"
)

type sinkWrite struct {
	fm   bool
	port uint8
	data uint8
}

type fakeSink struct {
	writes []sinkWrite
}

func (s *fakeSink) WriteFM(port, data uint8) {
	s.writes = append(s.writes, sinkWrite{fm: true, port: port, data: data})
}

func (s *fakeSink) WritePSG(data uint8) {
	s.writes = append(s.writes, sinkWrite{fm: false, data: data})
}

func TestDemoBusVectors(t *testing.T) {
	b := newDemoBus()

	if got := b.Read(m68k.Long, 0x00); got != demoStackTop {
		t.Errorf("reset SP vector = %#x, want %#x", got, demoStackTop)
	}
	if got := b.Read(m68k.Long, 0x04); got != demoEntry {
		t.Errorf("reset PC vector = %#x, want %#x", got, demoEntry)
	}
	if got := b.Read(m68k.Word, demoEntry); got != 0x60FE {
		t.Errorf("entry opcode = %#x, want bra.s (0x60fe)", got)
	}
	if got := b.Read(m68k.Word, demoRTEAddr); got != 0x4E73 {
		t.Errorf("handler opcode = %#x, want rte (0x4e73)", got)
	}
}

func TestDemoBusSoundRouting(t *testing.T) {
	b := newDemoBus()
	sink := &fakeSink{}
	b.setSink(sink)

	b.Write(m68k.Byte, demoFMBase+1, 0x2A)
	b.Write(m68k.Byte, demoPSGPort, 0x9F)

	if len(sink.writes) != 2 {
		t.Fatalf("sink saw %d writes, want 2", len(sink.writes))
	}
	if w := sink.writes[0]; !w.fm || w.port != 1 || w.data != 0x2A {
		t.Errorf("FM routing = %+v, want port 1 data 0x2a", w)
	}
	if w := sink.writes[1]; w.fm || w.data != 0x9F {
		t.Errorf("PSG routing = %+v, want data 0x9f", w)
	}
}

func TestDemoBusRAMRoundTrip(t *testing.T) {
	b := newDemoBus()

	b.Write(m68k.Long, 0x1000, 0xDEADBEEF)
	if got := b.Read(m68k.Long, 0x1000); got != 0xDEADBEEF {
		t.Errorf("long round trip = %#x, want 0xdeadbeef", got)
	}
	if got := b.Read(m68k.Byte, 0x1002); got != 0xBE {
		t.Errorf("byte within long = %#x, want 0xbe (big endian)", got)
	}

	// Writes outside RAM and the chip windows fall away.
	b.Write(m68k.Word, 0x800000, 0x1234)
	if got := b.Read(m68k.Word, 0x800000); got != 0 {
		t.Errorf("unmapped read = %#x, want 0", got)
	}
}

func TestDemoZ80ProgramShape(t *testing.T) {
	b := newDemoZ80Bus()

	// im 1 / ei / halt at the entry, ei / reti at the IM 1 vector.
	entry := []byte{0xED, 0x56, 0xFB, 0x76}
	for i, want := range entry {
		if got := b.Read(uint16(i)); got != want {
			t.Errorf("entry byte %d = %#x, want %#x", i, got, want)
		}
	}
	handler := []byte{0xFB, 0xED, 0x4D}
	for i, want := range handler {
		if got := b.Read(uint16(0x38 + i)); got != want {
			t.Errorf("handler byte %d = %#x, want %#x", i, got, want)
		}
	}
}
