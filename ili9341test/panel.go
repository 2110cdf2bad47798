// Package ili9341test provides a software ILI9341 for tests.
//
// Panel implements spi.Port and spi.Conn. It decodes the command and data
// stream into a frame buffer and keeps a log of what the driver sent, so
// tests can check both the pixels and the bus traffic.
package ili9341test

import (
	"fmt"
	"image"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/ili9341/image565"
)

// Opcodes the panel interprets.
const (
	RDMODE     = 0x0A
	RDMADCTL   = 0x0B
	RDPIXFMT   = 0x0C
	RDIMGFMT   = 0x0D
	RDSELFDIAG = 0x0F
	SLPIN      = 0x10
	SLPOUT     = 0x11
	NORON      = 0x13
	INVOFF     = 0x20
	INVON      = 0x21
	DISPOFF    = 0x28
	DISPON     = 0x29
	CASET      = 0x2A
	PASET      = 0x2B
	RAMWR      = 0x2C
	RAMRD      = 0x2E
	VSCRDEF    = 0x33
	MADCTL     = 0x36
	VSCRSADD   = 0x37
	PIXFMT     = 0x3A
	READINDEX  = 0xD9
)

// FrameSize is the side of the square frame buffer. It holds the address
// space of every rotation.
const FrameSize = 320

// Command is one decoded command with its arguments.
type Command struct {
	Op     byte
	Args   []byte
	Pixels int // pixels written after RAMWR
}

// Panel is an emulated controller. The zero value is not usable; use New.
type Panel struct {
	mu sync.Mutex

	// Frame holds the pixels written through RAMWR, in window coordinates.
	Frame *image565.RGB565
	// Commands lists every command received while selected.
	Commands []Command
	// Windows lists the window active at each RAMWR.
	Windows []image.Rectangle
	// Transactions counts chip-select assertions.
	Transactions int
	// Stray counts bytes clocked while chip-select was released, and data
	// bytes received before any command.
	Stray int
	// Resets counts reset pulses.
	Resets int
	// Fail, when set, is returned by every transfer.
	Fail error
	// MaxTx is reported through conn.Limits; 0 means unbounded.
	MaxTx int

	// Bus settings from the last Connect.
	Freq physic.Frequency
	Mode spi.Mode
	Bits int

	cs, dc, rst *Pin
	csLow       bool // chip-select pin asserted
	hwSelected  bool // packet sequence holding chip-select

	op      byte // command that data bytes belong to
	haveOp  bool
	col     [2]int
	page    [2]int
	px, py  int
	half    bool
	hi      byte
	readPos int

	madctl   byte
	pixfmt   byte
	sleeping bool
	on       bool
	inverted bool
	index    byte
}

// New returns a panel in its power-on state.
func New() *Panel {
	p := &Panel{Frame: image565.NewRGB565(image.Rect(0, 0, FrameSize, FrameSize))}
	p.powerOn()
	return p
}

func (p *Panel) powerOn() {
	p.haveOp = false
	p.madctl = 0
	p.pixfmt = 0x66
	p.sleeping = true
	p.on = false
	p.inverted = false
	p.col = [2]int{0, 239}
	p.page = [2]int{0, 319}
}

// CS returns the chip-select pin wired to the panel, numbered 10.
func (p *Panel) CS() *Pin {
	if p.cs == nil {
		p.cs = &Pin{Pin: gpiotest.Pin{N: "CS", Num: 10, L: gpio.High}, panel: p, role: roleCS}
	}
	return p.cs
}

// DC returns the data/command pin wired to the panel.
func (p *Panel) DC() *Pin {
	if p.dc == nil {
		p.dc = &Pin{Pin: gpiotest.Pin{N: "DC", Num: 9, L: gpio.High}, panel: p, role: roleDC}
	}
	return p.dc
}

// RST returns the reset pin wired to the panel.
func (p *Panel) RST() *Pin {
	if p.rst == nil {
		p.rst = &Pin{Pin: gpiotest.Pin{N: "RST", Num: 8, L: gpio.High}, panel: p, role: roleRST}
	}
	return p.rst
}

// String implements spi.Port and conn.Conn.
func (p *Panel) String() string {
	return "ili9341test.Panel"
}

// LimitSpeed implements spi.Port.
func (p *Panel) LimitSpeed(f physic.Frequency) error {
	return nil
}

// Connect implements spi.Port.
func (p *Panel) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bits != 8 {
		return nil, fmt.Errorf("ili9341test: unsupported word size %d", bits)
	}
	p.Freq, p.Mode, p.Bits = f, mode, bits
	return p, nil
}

// Duplex implements conn.Conn.
func (p *Panel) Duplex() conn.Duplex {
	return conn.Half
}

// MaxTxSize implements conn.Limits.
func (p *Panel) MaxTxSize() int {
	return p.MaxTx
}

// Tx implements conn.Conn. A non-nil r makes the transfer a read; w is then
// ignored, as the controller ignores MOSI while it drives MISO.
func (p *Panel) Tx(w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return p.Fail
	}
	if p.MaxTx > 0 && max(len(w), len(r)) > p.MaxTx {
		return fmt.Errorf("ili9341test: transfer of %d bytes exceeds %d", max(len(w), len(r)), p.MaxTx)
	}
	p.transfer(w, r)
	return nil
}

// TxPackets implements spi.Conn. Chip-select is asserted for the first packet
// and released after the first packet without KeepCS.
func (p *Panel) TxPackets(pkts []spi.Packet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return p.Fail
	}
	for _, pkt := range pkts {
		if !p.hwSelected {
			p.hwSelected = true
			p.Transactions++
		}
		p.transfer(pkt.W, pkt.R)
		if !pkt.KeepCS {
			p.hwSelected = false
			p.endTransaction()
		}
	}
	return nil
}

// Selected reports whether chip-select is currently asserted, either on the
// CS pin or by an unfinished packet sequence.
func (p *Panel) Selected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.csLow || p.hwSelected
}

func (p *Panel) selected() bool {
	// Without a CS pin the controller is permanently selected, as when CS is
	// tied low, unless a packet sequence manages it.
	return p.csLow || p.hwSelected || p.cs == nil
}

func (p *Panel) transfer(w, r []byte) {
	if !p.selected() {
		p.Stray += max(len(w), len(r))
		return
	}
	if r != nil {
		p.read(r)
		return
	}
	dataMode := p.dc == nil || p.dc.level() == gpio.High
	for _, b := range w {
		if dataMode {
			p.data(b)
		} else {
			p.command(b)
		}
	}
}

func (p *Panel) command(op byte) {
	p.op, p.haveOp = op, true
	p.Commands = append(p.Commands, Command{Op: op})
	p.half = false
	switch op {
	case SLPIN:
		p.sleeping = true
	case SLPOUT:
		p.sleeping = false
	case DISPON:
		p.on = true
	case DISPOFF:
		p.on = false
	case INVON:
		p.inverted = true
	case INVOFF:
		p.inverted = false
	case RAMWR:
		p.Windows = append(p.Windows, image.Rect(p.col[0], p.page[0], p.col[1]+1, p.page[1]+1))
		p.px, p.py = p.col[0], p.page[0]
	case RAMRD:
		p.px, p.py = p.col[0], p.page[0]
		p.readPos = 0
	}
}

// last returns the log entry of the current command. A command that
// continues across ClearLog gets a new entry.
func (p *Panel) last() *Command {
	if len(p.Commands) == 0 {
		p.Commands = append(p.Commands, Command{Op: p.op})
	}
	return &p.Commands[len(p.Commands)-1]
}

func (p *Panel) data(b byte) {
	if !p.haveOp {
		p.Stray++
		return
	}
	if p.op == RAMWR {
		if !p.half {
			p.hi, p.half = b, true
			return
		}
		p.half = false
		p.writePixel(image565.Color(p.hi)<<8 | image565.Color(b))
		p.last().Pixels++
		return
	}
	c := p.last()
	c.Args = append(c.Args, b)
	switch p.op {
	case CASET:
		if len(c.Args) == 4 {
			p.col = [2]int{word(c.Args[0:]), word(c.Args[2:])}
		}
	case PASET:
		if len(c.Args) == 4 {
			p.page = [2]int{word(c.Args[0:]), word(c.Args[2:])}
		}
	case MADCTL:
		p.madctl = b
	case PIXFMT:
		p.pixfmt = b
	case READINDEX:
		p.index = b
	}
}

func word(b []byte) int {
	return int(b[0])<<8 | int(b[1])
}

// writePixel stores c at the write pointer and advances it through the
// window, wrapping at its end.
func (p *Panel) writePixel(c image565.Color) {
	p.Frame.SetRGB565(p.px, p.py, c)
	p.px++
	if p.px > p.col[1] {
		p.px = p.col[0]
		p.py++
		if p.py > p.page[1] {
			p.py = p.page[0]
		}
	}
}

func (p *Panel) read(r []byte) {
	if !p.haveOp {
		clear(r)
		return
	}
	switch p.op {
	case RAMRD:
		for i := range r {
			r[i] = p.ramByte()
		}
	default:
		v := p.register(p.op)
		for i := range r {
			r[i] = v
		}
	}
}

// ramByte returns the next byte of a memory read: one dummy byte, then three
// bytes per pixel.
func (p *Panel) ramByte() byte {
	pos := p.readPos
	p.readPos++
	if pos == 0 {
		return 0
	}
	ch := (pos - 1) % 3
	r, g, b := p.Frame.RGB565At(p.px, p.py).RGB()
	v := [3]byte{r, g, b}[ch]
	if ch == 2 {
		p.px++
		if p.px > p.col[1] {
			p.px = p.col[0]
			p.py++
		}
	}
	return v
}

func (p *Panel) register(op byte) byte {
	switch op {
	case RDMODE:
		// Booster on, normal mode, plus sleep-out and display-on.
		v := byte(0x88)
		if !p.sleeping {
			v |= 0x10
		}
		if p.on {
			v |= 0x04
		}
		if p.inverted {
			v |= 0x20
		}
		return v
	case RDMADCTL:
		return p.madctl
	case RDPIXFMT:
		return p.pixfmt
	case RDIMGFMT:
		return 0
	case RDSELFDIAG:
		return 0xC0
	}
	return 0
}

// endTransaction resets the serial interface. The current command stays in
// effect, so a memory write can continue in a later transaction.
func (p *Panel) endTransaction() {
	p.half = false
}

func (p *Panel) edge(r role, l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch r {
	case roleCS:
		if l == gpio.Low && !p.csLow {
			p.Transactions++
		}
		if l == gpio.High && p.csLow {
			p.endTransaction()
		}
		p.csLow = l == gpio.Low
	case roleRST:
		if l == gpio.Low {
			p.Resets++
			p.powerOn()
		}
	}
}

// At returns the pixel at (x, y) of the frame buffer.
func (p *Panel) At(x, y int) image565.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Frame.RGB565At(x, y)
}

// CountPixels returns how many pixels of r hold c.
func (p *Panel) CountPixels(r image.Rectangle, c image565.Color) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	r = r.Intersect(p.Frame.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if p.Frame.RGB565At(x, y) == c {
				n++
			}
		}
	}
	return n
}

// Count returns how many times op was received.
func (p *Panel) Count(op byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Written returns the total number of pixels written through RAMWR.
func (p *Panel) Written() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Commands {
		n += c.Pixels
	}
	return n
}

// MADCTL returns the memory access control register.
func (p *Panel) MADCTL() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.madctl
}

// Sleeping reports whether the controller is in sleep mode.
func (p *Panel) Sleeping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleeping
}

// On reports whether display output is on.
func (p *Panel) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// Inverted reports whether color inversion is on.
func (p *Panel) Inverted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inverted
}

// ClearLog forgets the recorded commands, windows and counters. The frame
// buffer and registers are kept.
func (p *Panel) ClearLog() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Commands = nil
	p.Windows = nil
	p.Transactions = 0
	p.Stray = 0
}

var (
	_ spi.Port    = &Panel{}
	_ spi.Conn    = &Panel{}
	_ conn.Limits = &Panel{}
)
