package ili9341

import (
	"bytes"
	"image"

	"github.com/32bitkid/bitreader"

	"periph.io/x/devices/v3/ili9341/image565"
)

// Every public drawing call below clips against the current panel size and
// runs inside a single transaction.

// pixel writes one clipped pixel.
func (d *Dev) pixel(x, y int, c image565.Color) {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return
	}
	d.setWindow(x, y, x, y)
	d.data16(uint16(c))
}

// hrun writes a horizontal run of w pixels starting at (x, y), shortened to
// the visible part.
func (d *Dev) hrun(x, y, w int, c image565.Color) {
	if y < 0 || y >= d.height {
		return
	}
	if x < 0 {
		w += x
		x = 0
	}
	if x+w > d.width {
		w = d.width - x
	}
	if w <= 0 {
		return
	}
	d.setWindow(x, y, x+w-1, y)
	d.run(c, w)
}

// vrun is hrun along a column.
func (d *Dev) vrun(x, y, h int, c image565.Color) {
	if x < 0 || x >= d.width {
		return
	}
	if y < 0 {
		h += y
		y = 0
	}
	if y+h > d.height {
		h = d.height - y
	}
	if h <= 0 {
		return
	}
	d.setWindow(x, y, x, y+h-1)
	d.run(c, h)
}

// fillRect fills the visible part of a rectangle through one window.
func (d *Dev) fillRect(x, y, w, h int, c image565.Color) {
	r := image.Rect(x, y, x+w, y+h).Intersect(d.Bounds())
	if w <= 0 || h <= 0 || r.Empty() {
		return
	}
	w, h = r.Dx(), r.Dy()
	d.setWindow(r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1)
	if d.burst == nil {
		d.run(c, w*h)
		return
	}
	// Fill the buffer once with as many whole rows as fit, then resend it.
	rows := d.burst.Capacity() / w
	if rows == 0 {
		d.run(c, w*h)
		return
	}
	rows = min(rows, h)
	n := rows * w
	d.burst.Fill(c, n)
	for i := 0; i < h/rows; i++ {
		d.burst.Flush(n)
	}
	if rem := (h % rows) * w; rem > 0 {
		d.burst.Flush(rem)
	}
}

// DrawPixel sets one pixel. Points outside the panel are ignored.
func (d *Dev) DrawPixel(x, y int, c image565.Color) {
	defer d.transaction().end()
	d.pixel(x, y, c)
}

// DrawHLine draws a horizontal line of w pixels starting at (x, y).
func (d *Dev) DrawHLine(x, y, w int, c image565.Color) {
	defer d.transaction().end()
	d.hrun(x, y, w, c)
}

// DrawVLine draws a vertical line of h pixels starting at (x, y).
func (d *Dev) DrawVLine(x, y, h int, c image565.Color) {
	defer d.transaction().end()
	d.vrun(x, y, h, c)
}

// DrawLine draws a line between two points, both included.
//
// Each horizontal (or, for steep lines, vertical) step of the line is sent as
// one run, so the number of writes grows with the number of steps rather than
// with the length.
func (d *Dev) DrawLine(x0, y0, x1, y1 int, c image565.Color) {
	defer d.transaction().end()
	if y0 == y1 {
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		d.hrun(x0, y0, x1-x0+1, c)
		return
	}
	if x0 == x1 {
		if y1 < y0 {
			y0, y1 = y1, y0
		}
		d.vrun(x0, y0, y1-y0+1, c)
		return
	}

	steep := abs(y1-y0) > abs(x1-x0)
	if steep {
		x0, y0 = y0, x0
		x1, y1 = y1, x1
	}
	if x0 > x1 {
		x0, x1 = x1, x0
		y0, y1 = y1, y0
	}
	segment := d.hrun
	if steep {
		segment = func(x, y, n int, c image565.Color) { d.vrun(y, x, n, c) }
	}

	dx, dy := x1-x0, abs(y1-y0)
	e := dx / 2
	ystep := 1
	if y0 > y1 {
		ystep = -1
	}
	begin := x0
	for ; x0 <= x1; x0++ {
		e -= dy
		if e < 0 {
			segment(begin, y0, x0-begin+1, c)
			begin = x0 + 1
			y0 += ystep
			e += dx
		}
	}
	if x0 > begin {
		segment(begin, y0, x0-begin, c)
	}
}

// DrawRect draws the outline of a w by h rectangle.
func (d *Dev) DrawRect(x, y, w, h int, c image565.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	defer d.transaction().end()
	d.hrun(x, y, w, c)
	d.hrun(x, y+h-1, w, c)
	d.vrun(x, y, h, c)
	d.vrun(x+w-1, y, h, c)
}

// FillRect fills a w by h rectangle.
func (d *Dev) FillRect(x, y, w, h int, c image565.Color) {
	defer d.transaction().end()
	d.fillRect(x, y, w, h, c)
}

// FillScreen fills the whole panel.
func (d *Dev) FillScreen(c image565.Color) {
	d.FillRect(0, 0, d.width, d.height, c)
}

// midpoint walks one octant of a circle of radius r, calling fn with the
// offsets of each step after the first.
func midpoint(r int, fn func(x, y int)) {
	f := 1 - r
	ddx, ddy := 1, -2*r
	x, y := 0, r
	for x < y {
		if f >= 0 {
			y--
			ddy += 2
			f += ddy
		}
		x++
		ddx += 2
		f += ddx
		fn(x, y)
	}
}

// DrawCircle draws a circle outline of radius r centered on (x0, y0).
func (d *Dev) DrawCircle(x0, y0, r int, c image565.Color) {
	if r < 0 {
		return
	}
	defer d.transaction().end()
	d.pixel(x0, y0+r, c)
	d.pixel(x0, y0-r, c)
	d.pixel(x0+r, y0, c)
	d.pixel(x0-r, y0, c)
	midpoint(r, func(x, y int) {
		// The last step may cross the diagonal; its points are already drawn.
		if x > y {
			return
		}
		d.pixel(x0+x, y0+y, c)
		d.pixel(x0-x, y0+y, c)
		d.pixel(x0+x, y0-y, c)
		d.pixel(x0-x, y0-y, c)
		if x == y {
			return
		}
		d.pixel(x0+y, y0+x, c)
		d.pixel(x0-y, y0+x, c)
		d.pixel(x0+y, y0-x, c)
		d.pixel(x0-y, y0-x, c)
	})
}

// DrawCircleHelper draws the quarter circle arcs selected by corners.
func (d *Dev) DrawCircleHelper(x0, y0, r int, corners Corner, c image565.Color) {
	defer d.transaction().end()
	d.circleHelper(x0, y0, r, corners, c)
}

func (d *Dev) circleHelper(x0, y0, r int, corners Corner, c image565.Color) {
	midpoint(r, func(x, y int) {
		if x > y {
			return
		}
		if corners&CornerBottomRight != 0 {
			d.pixel(x0+x, y0+y, c)
			d.pixel(x0+y, y0+x, c)
		}
		if corners&CornerTopRight != 0 {
			d.pixel(x0+x, y0-y, c)
			d.pixel(x0+y, y0-x, c)
		}
		if corners&CornerBottomLeft != 0 {
			d.pixel(x0-y, y0+x, c)
			d.pixel(x0-x, y0+y, c)
		}
		if corners&CornerTopLeft != 0 {
			d.pixel(x0-y, y0-x, c)
			d.pixel(x0-x, y0-y, c)
		}
	})
}

// FillCircle fills a circle of radius r centered on (x0, y0).
func (d *Dev) FillCircle(x0, y0, r int, c image565.Color) {
	if r < 0 {
		return
	}
	defer d.transaction().end()
	d.vrun(x0, y0-r, 2*r+1, c)
	d.fillCircleHelper(x0, y0, r, SideRight|SideLeft, 0, c)
}

// FillCircleHelper fills the halves of a circle selected by sides with
// vertical runs. Each run is stretched by delta pixels downwards, which joins
// two half circles into a filled rounded rectangle.
func (d *Dev) FillCircleHelper(x0, y0, r int, sides Side, delta int, c image565.Color) {
	defer d.transaction().end()
	d.fillCircleHelper(x0, y0, r, sides, delta, c)
}

func (d *Dev) fillCircleHelper(x0, y0, r int, sides Side, delta int, c image565.Color) {
	midpoint(r, func(x, y int) {
		if sides&SideRight != 0 {
			d.vrun(x0+x, y0-y, 2*y+1+delta, c)
			d.vrun(x0+y, y0-x, 2*x+1+delta, c)
		}
		if sides&SideLeft != 0 {
			d.vrun(x0-x, y0-y, 2*y+1+delta, c)
			d.vrun(x0-y, y0-x, 2*x+1+delta, c)
		}
	})
}

// cornerRadius limits r so that opposite corners never overlap.
func cornerRadius(w, h, r int) int {
	return max(0, min(r, min(w, h)/2))
}

// DrawRoundRect draws the outline of a rectangle with corners of radius r.
func (d *Dev) DrawRoundRect(x, y, w, h, r int, c image565.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r = cornerRadius(w, h, r)
	defer d.transaction().end()
	d.hrun(x+r, y, w-2*r, c)
	d.hrun(x+r, y+h-1, w-2*r, c)
	d.vrun(x, y+r, h-2*r, c)
	d.vrun(x+w-1, y+r, h-2*r, c)
	d.circleHelper(x+r, y+r, r, CornerTopLeft, c)
	d.circleHelper(x+w-r-1, y+r, r, CornerTopRight, c)
	d.circleHelper(x+w-r-1, y+h-r-1, r, CornerBottomRight, c)
	d.circleHelper(x+r, y+h-r-1, r, CornerBottomLeft, c)
}

// FillRoundRect fills a rectangle with corners of radius r.
func (d *Dev) FillRoundRect(x, y, w, h, r int, c image565.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	r = cornerRadius(w, h, r)
	defer d.transaction().end()
	d.fillRect(x+r, y, w-2*r, h, c)
	d.fillCircleHelper(x+w-r-1, y+r, r, SideRight, h-2*r-1, c)
	d.fillCircleHelper(x+r, y+r, r, SideLeft, h-2*r-1, c)
}

// DrawTriangle draws the outline of a triangle.
func (d *Dev) DrawTriangle(x0, y0, x1, y1, x2, y2 int, c image565.Color) {
	defer d.transaction().end()
	d.DrawLine(x0, y0, x1, y1, c)
	d.DrawLine(x1, y1, x2, y2, c)
	d.DrawLine(x2, y2, x0, y0, c)
}

// FillTriangle fills a triangle with one horizontal run per scanline.
func (d *Dev) FillTriangle(x0, y0, x1, y1, x2, y2 int, c image565.Color) {
	// Sort by y so that y0 <= y1 <= y2.
	if y0 > y1 {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}
	if y1 > y2 {
		x1, y1, x2, y2 = x2, y2, x1, y1
	}
	if y0 > y1 {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}

	defer d.transaction().end()
	if y0 == y2 {
		a := min(x0, x1, x2)
		b := max(x0, x1, x2)
		d.hrun(a, y0, b-a+1, c)
		return
	}

	dx01, dy01 := x1-x0, y1-y0
	dx02, dy02 := x2-x0, y2-y0
	dx12, dy12 := x2-x1, y2-y1

	// Upper part: edges 0-1 and 0-2. A flat-bottomed triangle includes the
	// y1 scanline here and skips the lower loop, so neither loop divides
	// by zero.
	last := y1 - 1
	if y1 == y2 {
		last = y1
	}
	sa, sb := 0, 0
	y := y0
	for ; y <= last; y++ {
		a := x0 + sa/dy01
		b := x0 + sb/dy02
		sa += dx01
		sb += dx02
		if a > b {
			a, b = b, a
		}
		d.hrun(a, y, b-a+1, c)
	}

	// Lower part: edges 1-2 and 0-2.
	sa = dx12 * (y - y1)
	sb = dx02 * (y - y0)
	for ; y <= y2; y++ {
		a := x1 + sa/dy12
		b := x0 + sb/dy02
		sa += dx12
		sb += dx02
		if a > b {
			a, b = b, a
		}
		d.hrun(a, y, b-a+1, c)
	}
}

// DrawBitmap draws the set bits of a 1 bit per pixel bitmap in color c; clear
// bits are left untouched. Rows are MSB first and padded to a whole byte.
//
// On a bursting transport each run of set bits is sent as one burst; other
// transports write the set bits pixel by pixel.
func (d *Dev) DrawBitmap(x, y int, bitmap []byte, w, h int, c image565.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	stride := (w + 7) / 8
	h = min(h, len(bitmap)/stride)
	defer d.transaction().end()
	for j := 0; j < h; j++ {
		if y+j < 0 || y+j >= d.height {
			continue
		}
		br := bitreader.NewReader(bytes.NewReader(bitmap[j*stride : (j+1)*stride]))
		start := -1
		for i := 0; i <= w; i++ {
			set := false
			if i < w {
				bit, err := br.Read1()
				if err != nil {
					break
				}
				set = bit
			}
			switch {
			case set && start < 0:
				start = i
			case !set && start >= 0:
				d.bitmapSpan(x+start, y+j, i-start, c)
				start = -1
			}
		}
	}
}

func (d *Dev) bitmapSpan(x, y, n int, c image565.Color) {
	if d.burst != nil {
		d.hrun(x, y, n, c)
		return
	}
	for i := 0; i < n; i++ {
		d.pixel(x+i, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
