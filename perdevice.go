package ili9341

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/ili9341/image565"
)

// DeviceConfig is the bus configuration a PerDevice transport applies to its
// own chip-select, independently of other devices sharing the port.
type DeviceConfig struct {
	Frequency physic.Frequency
	Mode      spi.Mode
	Bits      int
	// ChipSelects lists the pin numbers the SPI controller can drive as a
	// hardware chip-select. Default: 4, 10 and 52.
	ChipSelects []int
}

// DefaultChipSelects are the hardware chip-select pins of the reference board.
var DefaultChipSelects = []int{4, 10, 52}

// maxPending bounds the packets queued before an intermediate flush.
const maxPending = 256

// PerDevice drives a hardware chip-select line. The controller keeps CS
// asserted between packets of a transaction (spi.Packet.KeepCS) and releases
// it after the last packet, which is sent by End.
type PerDevice struct {
	lines
	p     spi.Port
	cfg   DeviceConfig
	c     spi.Conn
	limit int

	pending []spi.Packet
	buf     []byte
	held    bool // CS kept asserted by a sent packet
}

// NewPerDevice returns a transport that connects p with cfg when it begins.
func NewPerDevice(p spi.Port, cs, dc gpio.PinOut, cfg DeviceConfig) *PerDevice {
	if cfg.Bits == 0 {
		cfg.Bits = 8
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	if cfg.ChipSelects == nil {
		cfg.ChipSelects = DefaultChipSelects
	}
	return &PerDevice{lines: lines{cs: cs, dc: dc}, p: p, cfg: cfg}
}

// Begin checks that cs is one of cfg.ChipSelects and connects the port.
func (t *PerDevice) Begin() error {
	if !t.validCS() {
		return fmt.Errorf("%w: %v is not one of %v", ErrInvalidChipSelect, t.cs, t.cfg.ChipSelects)
	}
	if t.dc == nil {
		return errNoDC
	}
	if t.p == nil {
		return errors.New("ili9341: per-device transport requires an SPI port")
	}
	c, err := t.p.Connect(t.cfg.Frequency, t.cfg.Mode, t.cfg.Bits)
	if err != nil {
		return fmt.Errorf("ili9341: failed to connect SPI port: %w", err)
	}
	t.c = c
	t.limit = maxTx(c)
	t.setDC(gpio.High)
	return t.err
}

func (t *PerDevice) validCS() bool {
	if !t.hasCS() {
		return false
	}
	n := t.cs.Number()
	for _, v := range t.cfg.ChipSelects {
		if v == n {
			return true
		}
	}
	return false
}

// Start is a no-op: the controller asserts CS with the first packet.
func (t *PerDevice) Start() {}

// End sends the queued packets with CS released after the last one.
func (t *PerDevice) End() {
	if len(t.pending) == 0 && t.held {
		// Nothing left to send; an empty packet releases CS.
		t.pending = append(t.pending, spi.Packet{})
	}
	t.flush(false)
}

// Command queues opcode c.
func (t *PerDevice) Command(c byte) {
	t.queue(gpio.Low, c)
}

// Data8 queues one data byte.
func (t *PerDevice) Data8(b byte) {
	t.queue(gpio.High, b)
}

// Data16 queues one data word.
func (t *PerDevice) Data16(v uint16) {
	t.queue(gpio.High, byte(v>>8), byte(v))
}

// Run queues c n times, one word per packet.
func (t *PerDevice) Run(c image565.Color, n int) {
	hi, lo := c.Bytes()
	for ; n > 0; n-- {
		t.queue(gpio.High, hi, lo)
	}
}

// Data queues p, one packet per transfer limit.
func (t *PerDevice) Data(p []byte) {
	for len(p) > 0 {
		n := len(p)
		if t.limit > 0 && n > t.limit {
			n = t.limit
		}
		t.queue(gpio.High, p[:n]...)
		p = p[n:]
	}
}

// Read flushes queued writes and reads len(p) bytes, keeping CS asserted.
func (t *PerDevice) Read(p []byte) {
	t.flush(true)
	t.setDC(gpio.High)
	if t.c == nil {
		return
	}
	t.fail(t.c.TxPackets([]spi.Packet{{W: make([]byte, len(p)), R: p, KeepCS: true}}))
	t.held = true
}

// queue appends one packet. D/C cannot change inside a TxPackets call, so a
// level change flushes what is already queued.
func (t *PerDevice) queue(level gpio.Level, b ...byte) {
	if len(t.pending) > 0 && (t.dcLevel != level || len(t.pending) >= maxPending) {
		t.flush(true)
	}
	t.setDC(level)
	start := len(t.buf)
	t.buf = append(t.buf, b...)
	t.pending = append(t.pending, spi.Packet{W: t.buf[start:len(t.buf):len(t.buf)], KeepCS: true})
}

func (t *PerDevice) flush(keepCS bool) {
	if len(t.pending) == 0 {
		return
	}
	t.pending[len(t.pending)-1].KeepCS = keepCS
	if t.c != nil {
		t.fail(t.c.TxPackets(t.pending))
	}
	t.held = keepCS
	t.pending = t.pending[:0]
	t.buf = t.buf[:0]
}

var _ Transport = &PerDevice{}
