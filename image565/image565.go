// Package image565 provides a 16-bit RGB565 image format optimized for the ILI9341 display.
//
// The ILI9341 stores pixels as big-endian 16-bit words. This package provides
// the Color type and the RGB565 image implementation.
package image565

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a packed 16-bit RGB565 color. It has no alpha channel.
type Color uint16

// Common colors, as listed in the controller application notes.
const (
	Black       Color = 0x0000
	Navy        Color = 0x000F
	DarkGreen   Color = 0x03E0
	DarkCyan    Color = 0x03EF
	Maroon      Color = 0x7800
	Purple      Color = 0x780F
	Olive       Color = 0x7BE0
	LightGrey   Color = 0xC618
	DarkGrey    Color = 0x7BEF
	Blue        Color = 0x001F
	Green       Color = 0x07E0
	Cyan        Color = 0x07FF
	Red         Color = 0xF800
	Magenta     Color = 0xF81F
	Yellow      Color = 0xFFE0
	White       Color = 0xFFFF
	Orange      Color = 0xFD20
	GreenYellow Color = 0xAFE5
	Pink        Color = 0xF81F
)

// RGB packs 8-bit channels into a Color, dropping the low bits.
func RGB(r, g, b uint8) Color {
	return Color(uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3)
}

// RGB returns the color expanded back to 8-bit channels.
// The high bits are replicated into the low bits so that White maps to 0xFF.
func (c Color) RGB() (r, g, b uint8) {
	r5 := uint8(c>>11) & 0x1F
	g6 := uint8(c>>5) & 0x3F
	b5 := uint8(c) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB()
	return uint32(r8) * 0x101, uint32(g8) * 0x101, uint32(b8) * 0x101, 0xFFFF
}

// Bytes returns the color in wire order (high byte first).
func (c Color) Bytes() (hi, lo byte) {
	return byte(c >> 8), byte(c)
}

func toRGB565(c color.Color) color.Color {
	if v, ok := c.(Color); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Model converts colors to Color.
var Model = color.ModelFunc(toRGB565)

// Hex parses a "#rrggbb" string.
func Hex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return 0, err
	}
	return fromColorful(c), nil
}

// Blend mixes a and b in CIE L*a*b* space. t=0 returns a, t=1 returns b.
func Blend(a, b Color, t float64) Color {
	return fromColorful(toColorful(a).BlendLab(toColorful(b), t).Clamped())
}

// Gradient returns n colors evenly spaced between a and b, both included.
func Gradient(a, b Color, n int) []Color {
	if n <= 0 {
		return nil
	}
	out := make([]Color, n)
	if n == 1 {
		out[0] = a
		return out
	}
	for i := range out {
		out[i] = Blend(a, b, float64(i)/float64(n-1))
	}
	return out
}

func toColorful(c Color) colorful.Color {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.RGB255()
	return RGB(r, g, b)
}

// RGB565 is an image whose pixels are stored as big-endian RGB565 words,
// the exact byte stream the controller expects after a memory write command.
type RGB565 struct {
	Pix    []byte          // Pixel data (2 bytes per pixel)
	Stride int             // Bytes per row
	Rect   image.Rectangle // Image bounds
}

// NewRGB565 creates a new RGB565 image with the specified bounds.
func NewRGB565(r image.Rectangle) *RGB565 {
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return &RGB565{Rect: r}
	}
	return &RGB565{
		Pix:    make([]byte, 2*w*h),
		Stride: 2 * w,
		Rect:   r,
	}
}

// ColorModel returns the color model of the image.
func (p *RGB565) ColorModel() color.Model {
	return Model
}

// Bounds returns the image bounds.
func (p *RGB565) Bounds() image.Rectangle {
	return p.Rect
}

// At returns the color of the pixel at (x, y).
// It implements the image.Image interface.
func (p *RGB565) At(x, y int) color.Color {
	return p.RGB565At(x, y)
}

// RGB565At returns the Color of the pixel at (x, y).
func (p *RGB565) RGB565At(x, y int) Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	i := p.PixOffset(x, y)
	return Color(p.Pix[i])<<8 | Color(p.Pix[i+1])
}

// Set sets the color of the pixel at (x, y).
func (p *RGB565) Set(x, y int, c color.Color) {
	p.SetRGB565(x, y, Model.Convert(c).(Color))
}

// SetRGB565 sets the Color of the pixel at (x, y).
// This is faster than Set() as it doesn't require color conversion.
func (p *RGB565) SetRGB565(x, y int, c Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	p.Pix[i], p.Pix[i+1] = c.Bytes()
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (p *RGB565) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*2
}

// SubImage returns an image representing the portion of p visible through r.
// The returned value shares pixels with the original image.
func (p *RGB565) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &RGB565{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &RGB565{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}

// Opaque reports whether the image is fully opaque, which RGB565 always is.
func (p *RGB565) Opaque() bool {
	return true
}
