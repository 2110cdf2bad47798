package ili9341

import (
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/ili9341/image565"
)

// Transport moves command and data bytes to the controller.
//
// Writes are only issued between Start and End. End is the "last write" of a
// transaction: implementations flush anything still pending and release
// chip-select there. Bus errors are latched and reported by Err; they never
// interrupt a drawing call.
type Transport interface {
	// Begin validates the chip-select line for this transport and
	// configures the bus. It is called once, before any other method.
	Begin() error
	// Start asserts chip-select.
	Start()
	// End flushes pending writes and deasserts chip-select.
	End()
	// Command sends one opcode with D/C low.
	Command(c byte)
	// Data8 sends one argument byte with D/C high.
	Data8(b byte)
	// Data16 sends one big-endian word with D/C high.
	Data16(v uint16)
	// Run sends color c n times.
	Run(c image565.Color, n int)
	// Data sends raw bytes with D/C high.
	Data(p []byte)
	// Read clocks in len(p) bytes with D/C high.
	Read(p []byte)
	// Err returns the first bus error seen, if any.
	Err() error
}

// Burster is implemented by transports that stage pixels in a reusable
// scanline buffer and send the buffer in a single burst.
type Burster interface {
	Transport
	// Capacity is the buffer size in pixels.
	Capacity() int
	// Fill stages c in the first n buffer slots.
	Fill(c image565.Color, n int)
	// Stage stores c at buffer slot i.
	Stage(i int, c image565.Color)
	// Flush sends the first n staged pixels as one burst.
	Flush(n int)
}

// lines is the GPIO side of a transport: chip-select and data/command.
type lines struct {
	cs, dc  gpio.PinOut
	dcLevel gpio.Level
	dcKnown bool
	err     error
}

func (l *lines) fail(err error) {
	if err != nil && l.err == nil {
		l.err = err
	}
}

// setDC drives the data/command line, skipping redundant edges.
func (l *lines) setDC(level gpio.Level) {
	if l.dcKnown && l.dcLevel == level {
		return
	}
	l.fail(l.dc.Out(level))
	l.dcLevel = level
	l.dcKnown = true
}

// hasCS reports whether chip-select is driven by software.
func (l *lines) hasCS() bool {
	return l.cs != nil && l.cs != gpio.INVALID
}

// selectChip asserts (active low) or releases chip-select.
func (l *lines) selectChip(on bool) {
	if !l.hasCS() {
		return
	}
	l.fail(l.cs.Out(gpio.Level(!on)))
}

// idle puts both lines in their inactive state.
func (l *lines) idle() {
	l.selectChip(false)
	l.setDC(gpio.High)
}

func (l *lines) Err() error {
	return l.err
}

// maxTx returns the largest single transfer c accepts, or 0 if unbounded.
func maxTx(c spi.Conn) int {
	if lim, ok := c.(conn.Limits); ok {
		return lim.MaxTxSize()
	}
	return 0
}

// txChunked writes p, splitting it at the connection's transfer limit.
func txChunked(c spi.Conn, p []byte, limit int) error {
	for len(p) > 0 {
		n := len(p)
		if limit > 0 && n > limit {
			n = limit
		}
		if err := c.Tx(p[:n], nil); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
