package ili9341

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/ili9341/image565"
)

// Polled sends every byte or word as its own synchronous transfer on a bus
// whose clock, mode and bit order are configured once for the whole port.
// Chip-select is a plain GPIO; pass gpio.INVALID or nil when the SPI
// controller drives it.
type Polled struct {
	lines
	c     spi.Conn
	limit int
	w     [2]byte
}

// NewPolled returns a polled transport on an already connected bus.
func NewPolled(c spi.Conn, cs, dc gpio.PinOut) *Polled {
	return &Polled{lines: lines{cs: cs, dc: dc}, c: c, limit: maxTx(c)}
}

// Begin accepts any chip-select line.
func (p *Polled) Begin() error {
	if p.c == nil {
		return errors.New("ili9341: polled transport requires an SPI connection")
	}
	if p.dc == nil {
		return errNoDC
	}
	p.idle()
	return p.err
}

// Start asserts chip-select.
func (p *Polled) Start() {
	p.selectChip(true)
}

// End releases chip-select.
func (p *Polled) End() {
	p.selectChip(false)
}

// Command sends opcode c.
func (p *Polled) Command(c byte) {
	p.setDC(gpio.Low)
	p.tx1(c)
}

// Data8 sends one data byte.
func (p *Polled) Data8(b byte) {
	p.setDC(gpio.High)
	p.tx1(b)
}

// Data16 sends one data word.
func (p *Polled) Data16(v uint16) {
	p.setDC(gpio.High)
	p.tx2(v)
}

// Run sends c n times, one word per transfer.
func (p *Polled) Run(c image565.Color, n int) {
	p.setDC(gpio.High)
	for ; n > 0; n-- {
		p.tx2(uint16(c))
	}
}

// Data sends p as-is.
func (p *Polled) Data(b []byte) {
	p.setDC(gpio.High)
	p.fail(txChunked(p.c, b, p.limit))
}

// Read clocks in len(b) bytes.
func (p *Polled) Read(b []byte) {
	p.setDC(gpio.High)
	p.fail(p.c.Tx(make([]byte, len(b)), b))
}

func (p *Polled) tx1(b byte) {
	p.w[0] = b
	p.fail(p.c.Tx(p.w[:1], nil))
}

func (p *Polled) tx2(v uint16) {
	p.w[0], p.w[1] = byte(v>>8), byte(v)
	p.fail(p.c.Tx(p.w[:2], nil))
}

var _ Transport = &Polled{}
