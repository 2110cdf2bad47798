package ili9341

import (
	"image"

	"periph.io/x/devices/v3/ili9341/font5x8"
	"periph.io/x/devices/v3/ili9341/image565"
)

// Character cell size at text size 1: a 5x8 glyph plus a one pixel gap on
// the right.
const (
	cellWidth  = font5x8.Width + 1
	cellHeight = font5x8.Height
)

// SetCursor moves the text cursor used by Write.
func (d *Dev) SetCursor(x, y int) {
	d.cursorX, d.cursorY = x, y
}

// Cursor returns the text cursor.
func (d *Dev) Cursor() (x, y int) {
	return d.cursorX, d.cursorY
}

// SetTextSize sets the integer text magnification. Sizes below 1 mean 1.
func (d *Dev) SetTextSize(s int) {
	d.textSize = max(s, 1)
}

// SetTextColor sets a transparent text color: the background is left as is.
func (d *Dev) SetTextColor(fg image565.Color) {
	d.textFG, d.textBG = fg, fg
}

// SetTextColors sets the text color and an opaque background.
func (d *Dev) SetTextColors(fg, bg image565.Color) {
	d.textFG, d.textBG = fg, bg
}

// SetTextWrap sets whether Write continues on the next line at the right
// edge of the panel.
func (d *Dev) SetTextWrap(w bool) {
	d.wrap = w
}

// row returns glyph row y as a 5-bit line, leftmost column in bit 4.
func row(g [font5x8.Width]byte, y int) byte {
	var line byte
	for _, col := range g {
		line <<= 1
		line |= col >> y & 1
	}
	return line
}

// DrawChar draws ch with its top left corner at (x, y).
//
// When fg equals bg only the set pixels are drawn; otherwise the whole
// 6*size by 8*size cell is painted.
func (d *Dev) DrawChar(x, y int, ch byte, fg, bg image565.Color, size int) {
	size = max(size, 1)
	if x >= d.width || y >= d.height || x+cellWidth*size-1 < 0 || y+cellHeight*size-1 < 0 {
		return
	}
	g := d.font.Glyph(ch)
	defer d.transaction().end()
	if fg == bg {
		d.transparentChar(x, y, g, fg, size)
	} else {
		d.opaqueChar(x, y, g, fg, bg, size)
	}
}

// transparentChar merges the set pixels of each row into runs. Rows are
// matched against the common shapes first so that most rows need one or two
// writes.
func (d *Dev) transparentChar(x, y int, g [font5x8.Width]byte, fg image565.Color, size int) {
	span := func(xoff, yoff, n int) {
		if size == 1 {
			d.hrun(x+xoff, y+yoff, n, fg)
		} else {
			d.fillRect(x+xoff*size, y+yoff*size, n*size, size, fg)
		}
	}
	for yoff := 0; yoff < font5x8.Height; yoff++ {
		line := row(g, yoff)
		xoff := 0
		for line != 0 {
			switch {
			case line == 0x1F:
				span(xoff, yoff, 5)
				line = 0
			case line == 0x1E:
				span(xoff, yoff, 4)
				line = 0
			case line&0x1C == 0x1C:
				span(xoff, yoff, 3)
				line <<= 4
				xoff += 4
			case line&0x18 == 0x18:
				span(xoff, yoff, 2)
				line <<= 3
				xoff += 3
			case line&0x10 == 0x10:
				span(xoff, yoff, 1)
				line <<= 2
				xoff += 2
			default:
				line <<= 1
				xoff++
			}
			line &= 0x1F
		}
	}
}

// opaqueChar paints the visible part of the cell through one window, row by
// row.
func (d *Dev) opaqueChar(x, y int, g [font5x8.Width]byte, fg, bg image565.Color, size int) {
	r := image.Rect(x, y, x+cellWidth*size, y+cellHeight*size).Intersect(d.Bounds())
	if r.Empty() {
		return
	}
	d.setWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1)
	staged := d.burst != nil && r.Dx() <= d.burst.Capacity()
	for py := r.Min.Y; py < r.Max.Y; py++ {
		line := row(g, (py-y)/size)
		for px := r.Min.X; px < r.Max.X; px++ {
			c := bg
			if col := (px - x) / size; col < font5x8.Width && line&(0x10>>col) != 0 {
				c = fg
			}
			if staged {
				d.burst.Stage(px-r.Min.X, c)
			} else {
				d.data16(uint16(c))
			}
		}
		if staged {
			d.burst.Flush(r.Dx())
		}
	}
}

// Write draws p as text at the cursor and advances it. '\n' starts a new
// line, '\r' is ignored. It implements io.Writer, so the display can be
// passed to fmt.Fprintf.
func (d *Dev) Write(p []byte) (int, error) {
	if d.halted {
		return 0, ErrHalted
	}
	defer d.transaction().end()
	for _, c := range p {
		d.writeByte(c)
	}
	return len(p), nil
}

// WriteString is Write for a string.
func (d *Dev) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

func (d *Dev) writeByte(c byte) {
	s := d.textSize
	switch c {
	case '\n':
		d.cursorY += cellHeight * s
		d.cursorX = 0
	case '\r':
	default:
		d.DrawChar(d.cursorX, d.cursorY, c, d.textFG, d.textBG, s)
		d.cursorX += cellWidth * s
		if d.wrap && d.cursorX > d.width-cellWidth*s {
			d.cursorY += cellHeight * s
			d.cursorX = 0
		}
	}
}
