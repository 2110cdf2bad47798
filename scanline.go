package ili9341

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/ili9341/image565"
)

// DefaultScanlinePixels is the scanline buffer size used when none is given.
const DefaultScanlinePixels = 640

// Scanline stages pixels in a reusable buffer and sends each run as one
// burst. Commands and arguments go out one unit at a time, as with Polled.
type Scanline struct {
	lines
	c     spi.Conn
	limit int
	w     [2]byte

	buf []byte
	// Color and count of the pattern currently in buf, so that repeated
	// fills of the same color skip the copy.
	filled  image565.Color
	filledN int
}

// NewScanline returns a burst transport with a buffer of pixels entries. The
// buffer is capped to the connection's transfer limit.
func NewScanline(c spi.Conn, cs, dc gpio.PinOut, pixels int) *Scanline {
	if pixels <= 0 {
		pixels = DefaultScanlinePixels
	}
	limit := maxTx(c)
	if limit > 0 && pixels > limit/2 {
		pixels = limit / 2
	}
	if pixels < 1 {
		pixels = 1
	}
	return &Scanline{lines: lines{cs: cs, dc: dc}, c: c, limit: limit, buf: make([]byte, 2*pixels)}
}

// Begin accepts any chip-select line.
func (s *Scanline) Begin() error {
	if s.c == nil {
		return errors.New("ili9341: scanline transport requires an SPI connection")
	}
	if s.dc == nil {
		return errNoDC
	}
	s.idle()
	return s.err
}

// Start asserts chip-select.
func (s *Scanline) Start() {
	s.selectChip(true)
}

// End releases chip-select. Bursts are synchronous so nothing is pending.
func (s *Scanline) End() {
	s.selectChip(false)
}

// Command sends opcode c.
func (s *Scanline) Command(c byte) {
	s.setDC(gpio.Low)
	s.w[0] = c
	s.fail(s.c.Tx(s.w[:1], nil))
}

// Data8 sends one data byte.
func (s *Scanline) Data8(b byte) {
	s.setDC(gpio.High)
	s.w[0] = b
	s.fail(s.c.Tx(s.w[:1], nil))
}

// Data16 sends one data word.
func (s *Scanline) Data16(v uint16) {
	s.setDC(gpio.High)
	s.w[0], s.w[1] = byte(v>>8), byte(v)
	s.fail(s.c.Tx(s.w[:2], nil))
}

// Run fills the buffer with c and bursts it until n pixels are sent.
func (s *Scanline) Run(c image565.Color, n int) {
	capacity := s.Capacity()
	for n > 0 {
		k := min(n, capacity)
		s.Fill(c, k)
		s.Flush(k)
		n -= k
	}
}

// Data sends p as-is, split at the transfer limit.
func (s *Scanline) Data(p []byte) {
	s.setDC(gpio.High)
	s.fail(txChunked(s.c, p, s.limit))
}

// Read clocks in len(p) bytes.
func (s *Scanline) Read(p []byte) {
	s.setDC(gpio.High)
	s.fail(s.c.Tx(make([]byte, len(p)), p))
}

// Capacity returns the buffer size in pixels.
func (s *Scanline) Capacity() int {
	return len(s.buf) / 2
}

// Fill stages c in the first n slots.
func (s *Scanline) Fill(c image565.Color, n int) {
	n = min(n, s.Capacity())
	start := 0
	if s.filledN > 0 && s.filled == c {
		if n <= s.filledN {
			return
		}
		start = s.filledN
	}
	hi, lo := c.Bytes()
	for i := 2 * start; i < 2*n; i += 2 {
		s.buf[i], s.buf[i+1] = hi, lo
	}
	s.filled, s.filledN = c, n
}

// Stage stores c in slot i.
func (s *Scanline) Stage(i int, c image565.Color) {
	s.filledN = 0
	s.buf[2*i], s.buf[2*i+1] = c.Bytes()
}

// Flush sends the first n staged pixels in one transfer.
func (s *Scanline) Flush(n int) {
	n = min(n, s.Capacity())
	if n <= 0 {
		return
	}
	s.setDC(gpio.High)
	s.fail(s.c.Tx(s.buf[:2*n], nil))
}

var _ Burster = &Scanline{}
