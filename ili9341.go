package ili9341

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"golang.org/x/image/draw"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"periph.io/x/devices/v3/ili9341/font5x8"
	"periph.io/x/devices/v3/ili9341/image565"
)

// DefaultFrequency is the SPI clock used when Opts.Frequency is zero.
const DefaultFrequency = 10 * physic.MegaHertz

var (
	// ErrInvalidChipSelect is returned when the chip-select line cannot be
	// used with the selected transport.
	ErrInvalidChipSelect = errors.New("ili9341: invalid chip-select for transport")
	// ErrHalted is returned by operations on a halted display.
	ErrHalted = errors.New("ili9341: halted")
	// ErrBufferSize is returned when a raw pixel buffer does not match the
	// display size.
	ErrBufferSize = errors.New("ili9341: invalid buffer size")

	errInitTable = errors.New("ili9341: malformed init command table")
	errNoDC      = errors.New("ili9341: data/command pin is required")
)

// TransportKind selects the transport NewSPI builds.
type TransportKind int

const (
	// PolledSPI sends every byte or word as its own transfer.
	PolledSPI TransportKind = iota
	// PerDeviceSPI lets the SPI controller drive chip-select with its own
	// clock and mode settings.
	PerDeviceSPI
	// ScanlineDMA sends pixel runs as bursts from a scanline buffer.
	ScanlineDMA
)

func (k TransportKind) String() string {
	switch k {
	case PolledSPI:
		return "polled"
	case PerDeviceSPI:
		return "per-device"
	case ScanlineDMA:
		return "scanline"
	default:
		return fmt.Sprintf("TransportKind(%d)", int(k))
	}
}

// Opts is the configuration for the ILI9341 display.
type Opts struct {
	// Panel size in rotation 0 (default: 240x320).
	W int
	H int

	Rotation Rotation

	// Bus settings used by NewSPI.
	Transport      TransportKind
	Frequency      physic.Frequency // default: 10MHz
	Mode           spi.Mode
	ScanlinePixels int   // ScanlineDMA buffer size (default: 640)
	ChipSelects    []int // PerDeviceSPI hardware chip-selects (default: 4, 10, 52)

	// InitCommands replaces the power-on register table. Each entry is a
	// byte count (opcode included), the opcode and its arguments; a zero
	// count ends the table.
	InitCommands []byte

	Font font5x8.Face

	// Logger receives the diagnostic registers read during initialization.
	Logger *log.Logger
}

func (o *Opts) withDefaults() (Opts, error) {
	var r Opts
	if o != nil {
		r = *o
	}
	if r.W == 0 && r.H == 0 {
		r.W, r.H = nativeWidth, nativeHeight
	}
	if r.W <= 0 || r.W > nativeWidth {
		return r, fmt.Errorf("ili9341: width must be between 1 and %d", nativeWidth)
	}
	if r.H <= 0 || r.H > nativeHeight {
		return r, fmt.Errorf("ili9341: height must be between 1 and %d", nativeHeight)
	}
	if r.Frequency == 0 {
		r.Frequency = DefaultFrequency
	}
	if r.ScanlinePixels == 0 {
		r.ScanlinePixels = DefaultScanlinePixels
	}
	if r.ChipSelects == nil {
		r.ChipSelects = DefaultChipSelects
	}
	if r.InitCommands == nil {
		r.InitCommands = initCommands
	}
	if r.Font == nil {
		r.Font = font5x8.Default
	}
	return r, nil
}

// Dev is the device handle for the ILI9341 display.
//
// A Dev is not safe for concurrent use.
type Dev struct {
	// Communication
	t     Transport
	burst Burster // t, when it bursts
	rst   gpio.PinOut

	// Geometry
	nativeW, nativeH int
	width, height    int
	rotation         Rotation

	// Text state
	cursorX, cursorY int
	textFG, textBG   image565.Color
	textSize         int
	wrap             bool
	font             font5x8.Face

	init   []command
	logger *log.Logger

	// Transaction state
	depth    int
	selected bool

	halted bool
}

var sleep = time.Sleep

// NewSPI creates a new ILI9341 device connected via SPI and initializes it.
//
// cs is the chip-select line; pass gpio.INVALID when the SPI controller drives
// it (not valid with PerDeviceSPI, which needs the pin number). dc is the
// data/command line. rst may be nil.
//
// opts can be nil to use defaults (240x320, polled transport at 10MHz).
func NewSPI(p spi.Port, cs, dc, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("ili9341: SPI port is required")
	}

	var t Transport
	switch o.Transport {
	case PerDeviceSPI:
		t = NewPerDevice(p, cs, dc, DeviceConfig{
			Frequency:   o.Frequency,
			Mode:        o.Mode,
			Bits:        8,
			ChipSelects: o.ChipSelects,
		})
	case PolledSPI, ScanlineDMA:
		// ILI9341 samples on the rising edge: Mode0, MSB first.
		c, err := p.Connect(o.Frequency, o.Mode, 8)
		if err != nil {
			return nil, fmt.Errorf("ili9341: failed to connect SPI port: %w", err)
		}
		if o.Transport == ScanlineDMA {
			t = NewScanline(c, cs, dc, o.ScanlinePixels)
		} else {
			t = NewPolled(c, cs, dc)
		}
	default:
		return nil, fmt.Errorf("ili9341: unknown transport %v", o.Transport)
	}
	return newDev(t, rst, o)
}

// New creates a device on a caller-supplied transport and initializes it.
func New(t Transport, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("ili9341: transport is required")
	}
	return newDev(t, rst, o)
}

func newDev(t Transport, rst gpio.PinOut, o Opts) (*Dev, error) {
	cmds, err := parseInitTable(o.InitCommands)
	if err != nil {
		return nil, err
	}
	d := &Dev{
		t:        t,
		rst:      rst,
		nativeW:  o.W,
		nativeH:  o.H,
		width:    o.W,
		height:   o.H,
		textFG:   image565.White,
		textBG:   image565.White,
		textSize: 1,
		wrap:     true,
		font:     o.Font,
		init:     cmds,
		logger:   o.Logger,
	}
	if b, ok := t.(Burster); ok {
		d.burst = b
	}
	if err := d.begin(o.Rotation); err != nil {
		return nil, err
	}
	return d, nil
}

// begin brings the controller from power-on to a displaying state.
func (d *Dev) begin(r Rotation) error {
	if err := d.t.Begin(); err != nil {
		return err
	}
	if err := d.reset(); err != nil {
		return err
	}

	for _, c := range d.init {
		d.sendCommand(c.op, c.args...)
	}
	d.sendCommand(cmdSLPOUT)
	sleep(120 * time.Millisecond)
	d.sendCommand(cmdDISPON)
	sleep(120 * time.Millisecond)

	d.SetRotation(r)

	d.logf("ili9341: display power mode: 0x%02X", d.ReadCommand8(cmdRDMODE, 0))
	d.logf("ili9341: MADCTL mode: 0x%02X", d.ReadCommand8(cmdRDMADCTL, 0))
	d.logf("ili9341: pixel format: 0x%02X", d.ReadCommand8(cmdRDPIXFMT, 0))
	d.logf("ili9341: image format: 0x%02X", d.ReadCommand8(cmdRDIMGFMT, 0))
	d.logf("ili9341: self diagnostic: 0x%02X", d.ReadCommand8(cmdRDSELFDIAG, 0))

	if err := d.t.Err(); err != nil {
		return fmt.Errorf("ili9341: initialization failed: %w", err)
	}
	return nil
}

// reset pulses the reset line, if any.
func (d *Dev) reset() error {
	if d.rst == nil || d.rst == gpio.INVALID {
		return nil
	}
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("ili9341: failed to pull RST high: %w", err)
	}
	sleep(5 * time.Millisecond)
	if err := d.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("ili9341: failed to pull RST low: %w", err)
	}
	sleep(20 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("ili9341: failed to pull RST high: %w", err)
	}
	sleep(150 * time.Millisecond)
	return nil
}

func (d *Dev) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// scope is an open transaction. See Dev.transaction.
type scope struct{ d *Dev }

// transaction opens a transaction scope; use as
//
//	defer d.transaction().end()
//
// Scopes nest. Chip-select is asserted by the first write and released once,
// when the outermost scope ends, so a scope that writes nothing never touches
// the bus.
func (d *Dev) transaction() scope {
	d.depth++
	return scope{d}
}

func (s scope) end() {
	d := s.d
	d.depth--
	if d.depth == 0 && d.selected {
		d.selected = false
		d.t.End()
	}
}

func (d *Dev) sel() {
	if !d.selected {
		d.selected = true
		d.t.Start()
	}
}

func (d *Dev) command(c byte) {
	d.sel()
	d.t.Command(c)
}

func (d *Dev) data8(b byte) {
	d.sel()
	d.t.Data8(b)
}

func (d *Dev) data16(v uint16) {
	d.sel()
	d.t.Data16(v)
}

func (d *Dev) run(c image565.Color, n int) {
	if n <= 0 {
		return
	}
	d.sel()
	d.t.Run(c, n)
}

func (d *Dev) data(p []byte) {
	if len(p) == 0 {
		return
	}
	d.sel()
	d.t.Data(p)
}

func (d *Dev) read(p []byte) {
	d.sel()
	d.t.Read(p)
}

// sendCommand sends one command and its arguments as a transaction.
func (d *Dev) sendCommand(c byte, args ...byte) {
	defer d.transaction().end()
	d.command(c)
	for _, a := range args {
		d.data8(a)
	}
}

// setAddr selects the inclusive column and row range.
func (d *Dev) setAddr(x0, y0, x1, y1 int) {
	d.command(cmdCASET)
	d.data16(uint16(x0))
	d.data16(uint16(x1))
	d.command(cmdPASET)
	d.data16(uint16(y0))
	d.data16(uint16(y1))
}

// setWindow selects the inclusive range and starts a memory write.
func (d *Dev) setWindow(x0, y0, x1, y1 int) {
	d.setAddr(x0, y0, x1, y1)
	d.command(cmdRAMWR)
}

// Err returns the first bus error seen since the device was created.
// Drawing calls never fail; this is how callers learn the bus misbehaved.
func (d *Dev) Err() error {
	return d.t.Err()
}

// SetRotation sets the panel orientation. Values wrap modulo 4.
func (d *Dev) SetRotation(r Rotation) {
	r %= 4
	m, swap := r.madctl()
	d.sendCommand(cmdMADCTL, m)
	d.rotation = r
	d.width, d.height = d.nativeW, d.nativeH
	if swap {
		d.width, d.height = d.nativeH, d.nativeW
	}
}

// Rotation returns the current orientation.
func (d *Dev) Rotation() Rotation {
	return d.rotation
}

// InvertDisplay turns color inversion on or off.
func (d *Dev) InvertDisplay(invert bool) {
	if invert {
		d.sendCommand(cmdINVON)
	} else {
		d.sendCommand(cmdINVOFF)
	}
}

// SetScrollArea defines fixed top and bottom areas, in native rows; the rows
// between them scroll.
func (d *Dev) SetScrollArea(top, bottom int) error {
	if top < 0 || bottom < 0 || top+bottom > nativeHeight {
		return errors.New("ili9341: scroll area out of range")
	}
	defer d.transaction().end()
	d.command(cmdVSCRDEF)
	d.data16(uint16(top))
	d.data16(uint16(nativeHeight - top - bottom))
	d.data16(uint16(bottom))
	return nil
}

// SetScroll sets the frame memory row shown at the top of the scroll area.
func (d *Dev) SetScroll(line int) {
	defer d.transaction().end()
	d.command(cmdVSCRSADD)
	d.data16(uint16(line))
}

// StopScroll returns the display to normal mode.
func (d *Dev) StopScroll() {
	d.sendCommand(cmdNORON)
}

// Sleep enters or leaves sleep mode. The controller needs 120ms to settle in
// either direction.
func (d *Dev) Sleep(on bool) {
	if on {
		d.sendCommand(cmdSLPIN)
	} else {
		d.sendCommand(cmdSLPOUT)
	}
	sleep(120 * time.Millisecond)
}

// DisplayOn turns panel output on or off. Frame memory is kept.
func (d *Dev) DisplayOn(on bool) {
	if on {
		d.sendCommand(cmdDISPON)
	} else {
		d.sendCommand(cmdDISPOFF)
	}
}

// ReadCommand8 reads parameter index of a read register.
func (d *Dev) ReadCommand8(c, index byte) byte {
	defer d.transaction().end()
	d.command(cmdREADINDEX)
	d.data8(0x10 + index)
	d.command(c)
	var b [1]byte
	d.read(b[:])
	return b[0]
}

// ReadPixel returns the frame memory color at (x, y), or 0 outside the panel.
func (d *Dev) ReadPixel(x, y int) image565.Color {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return 0
	}
	defer d.transaction().end()
	d.setAddr(x, y, x, y)
	d.command(cmdRAMRD)
	// A dummy byte precedes the 18-bit pixel.
	var b [4]byte
	d.read(b[:])
	return image565.RGB(b[1], b[2], b[3])
}

// SetAddrWindow selects the inclusive window that PushColor and PushColors
// write to.
func (d *Dev) SetAddrWindow(x0, y0, x1, y1 int) {
	defer d.transaction().end()
	d.setWindow(x0, y0, x1, y1)
}

// PushColor writes one pixel at the window's write position.
func (d *Dev) PushColor(c image565.Color) {
	defer d.transaction().end()
	d.data16(uint16(c))
}

// PushColors writes colors[offset:offset+n] at the window's write position.
func (d *Dev) PushColors(colors []image565.Color, offset, n int) {
	if offset < 0 || offset >= len(colors) || n <= 0 {
		return
	}
	colors = colors[offset:min(offset+n, len(colors))]
	defer d.transaction().end()
	if d.burst == nil {
		for _, c := range colors {
			d.data16(uint16(c))
		}
		return
	}
	d.sel()
	capacity := d.burst.Capacity()
	for len(colors) > 0 {
		k := min(len(colors), capacity)
		for i, c := range colors[:k] {
			d.burst.Stage(i, c)
		}
		d.burst.Flush(k)
		colors = colors[k:]
	}
}

// WritePixels writes a full frame of big-endian RGB565 pixels, the layout of
// image565.RGB565.Pix. The buffer must be exactly 2*width*height bytes.
func (d *Dev) WritePixels(pix []byte) error {
	if d.halted {
		return ErrHalted
	}
	if len(pix) != 2*d.width*d.height {
		return ErrBufferSize
	}
	d.blit(&image565.RGB565{Pix: pix, Stride: 2 * d.width, Rect: d.Bounds()}, d.Bounds(), d.Bounds())
	return d.t.Err()
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image565.Model
}

// Bounds implements display.Drawer. The size follows the rotation.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.width, d.height)
}

// Draw implements display.Drawer.
//
// The visible part of dst is sent as one window. A *image565.RGB565 source is
// sent as-is; any other image is converted first.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	clipped := dst.Intersect(d.Bounds())
	if clipped.Empty() {
		return nil
	}
	sp = sp.Add(clipped.Min.Sub(dst.Min))

	// Fast path: the source already holds wire-order pixels.
	if img, ok := src.(*image565.RGB565); ok {
		sr := clipped.Sub(clipped.Min).Add(sp)
		if sr.In(img.Rect) {
			d.blit(img, sr, clipped)
			return d.t.Err()
		}
	}

	buf := image565.NewRGB565(clipped)
	draw.Draw(buf, clipped, src, sp, draw.Src)
	d.blit(buf, clipped, clipped)
	return d.t.Err()
}

// DrawScaled resamples the sr part of src into dst.
func (d *Dev) DrawScaled(dst image.Rectangle, src image.Image, sr image.Rectangle) error {
	if d.halted {
		return ErrHalted
	}
	clipped := dst.Intersect(d.Bounds())
	if clipped.Empty() || sr.Empty() {
		return nil
	}
	buf := image565.NewRGB565(dst)
	draw.ApproxBiLinear.Scale(buf, dst, src, sr, draw.Src, nil)
	d.blit(buf, clipped, clipped)
	return d.t.Err()
}

// blit sends the sr part of img into the display rectangle r of equal size.
func (d *Dev) blit(img *image565.RGB565, sr, r image.Rectangle) {
	defer d.transaction().end()
	d.setWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1)
	n := 2 * sr.Dx()
	if img.Stride == n {
		i := img.PixOffset(sr.Min.X, sr.Min.Y)
		d.data(img.Pix[i : i+n*sr.Dy()])
		return
	}
	for y := sr.Min.Y; y < sr.Max.Y; y++ {
		i := img.PixOffset(sr.Min.X, y)
		d.data(img.Pix[i : i+n])
	}
}

// Halt turns the display off and puts the controller to sleep.
// After calling Halt, Draw, Write and WritePixels fail with ErrHalted.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	d.sendCommand(cmdDISPOFF)
	d.sendCommand(cmdSLPIN)
	d.halted = true
	return d.t.Err()
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("ili9341.Dev{%dx%d}", d.width, d.height)
}

var _ display.Drawer = &Dev{}
