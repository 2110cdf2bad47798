package ili9341

import (
	"image"
	"testing"

	"periph.io/x/devices/v3/ili9341/ili9341test"
	"periph.io/x/devices/v3/ili9341/image565"
)

// painted returns the set of frame pixels holding c inside the panel.
func painted(p *ili9341test.Panel, c image565.Color) map[image.Point]bool {
	set := map[image.Point]bool{}
	for y := 0; y < ili9341test.FrameSize; y++ {
		for x := 0; x < ili9341test.FrameSize; x++ {
			if p.At(x, y) == c {
				set[image.Pt(x, y)] = true
			}
		}
	}
	return set
}

func samePoints(a, b map[image.Point]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for pt := range a {
		if !b[pt] {
			return false
		}
	}
	return true
}

func TestDrawPixelOutOfBounds(t *testing.T) {
	points := []image.Point{{-1, 0}, {0, -1}, {240, 0}, {0, 320}, {-100, -100}, {1000, 5}}
	for _, kind := range transports {
		t.Run(kind.String(), func(t *testing.T) {
			d, p := newPanelDev(t, kind, nil)
			for _, pt := range points {
				d.DrawPixel(pt.X, pt.Y, image565.White)
			}
			if p.Transactions != 0 || p.Written() != 0 {
				t.Errorf("out of bounds pixels: %d transactions, %d pixels written; want none",
					p.Transactions, p.Written())
			}
			d.DrawPixel(239, 319, image565.White)
			if got := p.At(239, 319); got != image565.White {
				t.Errorf("pixel (239, 319) = %#04x, want White", got)
			}
			checkIdle(t, p)
		})
	}
}

func TestRunClipping(t *testing.T) {
	tests := []struct {
		name       string
		vertical   bool
		x, y, n    int
		wantWindow image.Rectangle // empty: nothing sent
	}{
		{"h inside", false, 10, 10, 20, image.Rect(10, 10, 30, 11)},
		{"h past right edge", false, 230, 5, 20, image.Rect(230, 5, 240, 6)},
		{"h negative origin", false, -5, 5, 10, image.Rect(0, 5, 5, 6)},
		{"h starts right of panel", false, 240, 5, 10, image.Rectangle{}},
		{"h below panel", false, 0, 320, 10, image.Rectangle{}},
		{"h above panel", false, 0, -1, 10, image.Rectangle{}},
		{"h entirely left", false, -20, 5, 10, image.Rectangle{}},
		{"h zero length", false, 5, 5, 0, image.Rectangle{}},
		{"v inside", true, 10, 10, 20, image.Rect(10, 10, 11, 30)},
		{"v past bottom edge", true, 3, 310, 20, image.Rect(3, 310, 4, 320)},
		{"v negative origin", true, 3, -4, 10, image.Rect(3, 0, 4, 6)},
		{"v starts below panel", true, 3, 320, 5, image.Rectangle{}},
		{"v right of panel", true, 240, 0, 5, image.Rectangle{}},
		{"v negative length", true, 3, 3, -5, image.Rectangle{}},
	}

	for _, tt := range tests {
		for _, kind := range transports {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				d, p := newPanelDev(t, kind, nil)
				if tt.vertical {
					d.DrawVLine(tt.x, tt.y, tt.n, image565.Red)
				} else {
					d.DrawHLine(tt.x, tt.y, tt.n, image565.Red)
				}
				if tt.wantWindow.Empty() {
					if p.Transactions != 0 || len(p.Windows) != 0 {
						t.Errorf("clipped run sent %d windows in %d transactions, want none", len(p.Windows), p.Transactions)
					}
					return
				}
				if len(p.Windows) != 1 || p.Windows[0] != tt.wantWindow {
					t.Fatalf("Windows = %v, want [%v]", p.Windows, tt.wantWindow)
				}
				if want := tt.wantWindow.Dx() * tt.wantWindow.Dy(); p.Written() != want {
					t.Errorf("Written() = %d, want %d", p.Written(), want)
				}
				checkIdle(t, p)
			})
		}
	}
}

func TestDrawLineDirectionIndependent(t *testing.T) {
	lines := [][4]int{
		{0, 0, 50, 13},
		{10, 200, 3, 20},
		{100, 100, 20, 110},
		{5, 5, 45, 45},
		{230, 0, -20, 300},
		{7, 3, 7, 90},
		{60, 8, 2, 8},
	}
	for _, l := range lines {
		fwd, pf := newPanelDev(t, PolledSPI, nil)
		rev, pr := newPanelDev(t, PolledSPI, nil)
		fwd.DrawLine(l[0], l[1], l[2], l[3], image565.Yellow)
		rev.DrawLine(l[2], l[3], l[0], l[1], image565.Yellow)
		a, b := painted(pf, image565.Yellow), painted(pr, image565.Yellow)
		if len(a) == 0 {
			t.Errorf("line %v drew nothing", l)
		}
		if !samePoints(a, b) {
			t.Errorf("line %v: forward drew %d pixels, reverse %d, or sets differ", l, len(a), len(b))
		}
	}
}

func TestDrawLineEndpointsAndRuns(t *testing.T) {
	tests := []struct {
		name        string
		l           [4]int
		wantPixels  int
		wantWindows int
	}{
		{"horizontal", [4]int{0, 0, 9, 0}, 10, 1},
		{"vertical reversed", [4]int{4, 30, 4, 21}, 10, 1},
		{"single point", [4]int{8, 8, 8, 8}, 1, 1},
		{"one step shallow", [4]int{0, 0, 19, 1}, 20, 2},
		{"one step steep", [4]int{0, 0, 1, 19}, 20, 2},
		{"diagonal", [4]int{0, 0, 9, 9}, 10, 10},
	}

	for _, tt := range tests {
		for _, kind := range transports {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				d, p := newPanelDev(t, kind, nil)
				d.DrawLine(tt.l[0], tt.l[1], tt.l[2], tt.l[3], image565.Green)
				if p.Written() != tt.wantPixels {
					t.Errorf("Written() = %d, want %d", p.Written(), tt.wantPixels)
				}
				if len(p.Windows) != tt.wantWindows {
					t.Errorf("%d windows, want %d", len(p.Windows), tt.wantWindows)
				}
				if p.At(tt.l[0], tt.l[1]) != image565.Green || p.At(tt.l[2], tt.l[3]) != image565.Green {
					t.Error("line endpoints not drawn")
				}
				if p.Transactions != 1 {
					t.Errorf("Transactions = %d, want 1", p.Transactions)
				}
				checkIdle(t, p)
			})
		}
	}
}

func TestDrawCircleAxisPoints(t *testing.T) {
	for _, r := range []int{1, 2, 5, 17, 60} {
		d, p := newPanelDev(t, PolledSPI, nil)
		d.DrawCircle(120, 160, r, image565.Cyan)
		for _, pt := range []image.Point{{120 + r, 160}, {120 - r, 160}, {120, 160 + r}, {120, 160 - r}} {
			if p.At(pt.X, pt.Y) != image565.Cyan {
				t.Errorf("r=%d: axis point %v not drawn", r, pt)
			}
		}
	}
}

func TestDrawCircleNoDuplicates(t *testing.T) {
	for r := 1; r <= 100; r++ {
		d, p := newPanelDev(t, PolledSPI, nil)
		d.DrawCircle(120, 160, r, image565.Cyan)
		seen := map[image.Rectangle]bool{}
		for _, w := range p.Windows {
			if seen[w] {
				t.Errorf("r=%d: pixel %v written twice", r, w.Min)
				break
			}
			seen[w] = true
		}
		if n := len(painted(p, image565.Cyan)); n != len(p.Windows) {
			t.Errorf("r=%d: %d pixels painted by %d writes", r, n, len(p.Windows))
		}
		if p.Transactions != 1 {
			t.Errorf("r=%d: Transactions = %d, want 1", r, p.Transactions)
		}
	}
}

func TestDrawCircleHelperCorners(t *testing.T) {
	const x0, y0, r = 100, 100, 20
	tests := []struct {
		name    string
		corners Corner
		in      image.Rectangle // quadrant that must hold every pixel
	}{
		{"top left", CornerTopLeft, image.Rect(x0-r, y0-r, x0, y0)},
		{"top right", CornerTopRight, image.Rect(x0+1, y0-r, x0+r+1, y0)},
		{"bottom right", CornerBottomRight, image.Rect(x0+1, y0+1, x0+r+1, y0+r+1)},
		{"bottom left", CornerBottomLeft, image.Rect(x0-r, y0+1, x0, y0+r+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p := newPanelDev(t, PolledSPI, nil)
			d.DrawCircleHelper(x0, y0, r, tt.corners, image565.White)
			px := painted(p, image565.White)
			if len(px) == 0 {
				t.Fatal("nothing drawn")
			}
			for pt := range px {
				if !pt.In(tt.in) {
					t.Errorf("pixel %v outside quadrant %v", pt, tt.in)
				}
			}
		})
	}
}

func TestFillCircle(t *testing.T) {
	for _, kind := range transports {
		t.Run(kind.String(), func(t *testing.T) {
			d, p := newPanelDev(t, kind, nil)
			d.FillCircle(50, 60, 10, image565.Orange)
			for _, pt := range []image.Point{{50, 60}, {40, 60}, {60, 60}, {50, 50}, {50, 70}, {55, 65}} {
				if p.At(pt.X, pt.Y) != image565.Orange {
					t.Errorf("pixel %v not filled", pt)
				}
			}
			for _, pt := range []image.Point{{39, 60}, {41, 51}, {59, 69}, {50, 71}} {
				if p.At(pt.X, pt.Y) == image565.Orange {
					t.Errorf("pixel %v outside the circle filled", pt)
				}
			}
			if p.Transactions != 1 {
				t.Errorf("Transactions = %d, want 1", p.Transactions)
			}
			checkIdle(t, p)
		})
	}
}

func TestFillRectScenario(t *testing.T) {
	for _, kind := range transports {
		t.Run(kind.String(), func(t *testing.T) {
			d, p := newPanelDev(t, kind, nil)
			d.FillRect(-5, -5, 20, 20, image565.Purple)
			if len(p.Windows) != 1 || p.Windows[0] != image.Rect(0, 0, 15, 15) {
				t.Fatalf("Windows = %v, want [(0,0)-(15,15)]", p.Windows)
			}
			if p.Written() != 225 {
				t.Errorf("Written() = %d, want 225", p.Written())
			}
			if n := p.CountPixels(image.Rect(0, 0, 15, 15), image565.Purple); n != 225 {
				t.Errorf("%d pixels filled, want 225", n)
			}
			checkIdle(t, p)
		})
	}
}

func TestFillRectBursts(t *testing.T) {
	tests := []struct {
		name     string
		scanline int
		w, h     int
	}{
		{"whole rows with remainder", 50, 20, 7},
		{"buffer larger than rect", 640, 10, 10},
		{"row wider than buffer", 8, 30, 3},
		{"single row", 20, 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p := newPanelDev(t, ScanlineDMA, &Opts{ScanlinePixels: tt.scanline})
			d.FillRect(3, 4, tt.w, tt.h, image565.DarkCyan)
			r := image.Rect(3, 4, 3+tt.w, 4+tt.h)
			if len(p.Windows) != 1 || p.Windows[0] != r {
				t.Fatalf("Windows = %v, want [%v]", p.Windows, r)
			}
			if p.Written() != tt.w*tt.h {
				t.Errorf("Written() = %d, want %d", p.Written(), tt.w*tt.h)
			}
			if n := p.CountPixels(r, image565.DarkCyan); n != tt.w*tt.h {
				t.Errorf("%d pixels filled, want %d", n, tt.w*tt.h)
			}
		})
	}
}

func TestFillRectEmpty(t *testing.T) {
	d, p := newPanelDev(t, ScanlineDMA, nil)
	d.FillRect(10, 10, 0, 5, image565.Red)
	d.FillRect(10, 10, 5, -1, image565.Red)
	d.FillRect(240, 0, 5, 5, image565.Red)
	d.FillRect(-10, -10, 5, 5, image565.Red)
	if p.Transactions != 0 {
		t.Errorf("empty rectangles opened %d transactions, want 0", p.Transactions)
	}
}

func TestDrawRect(t *testing.T) {
	d, p := newPanelDev(t, PolledSPI, nil)
	d.DrawRect(10, 20, 30, 15, image565.Red)
	if len(p.Windows) != 4 {
		t.Errorf("%d windows, want 4 edges", len(p.Windows))
	}
	for _, pt := range []image.Point{{10, 20}, {39, 20}, {10, 34}, {39, 34}, {25, 20}, {10, 27}} {
		if p.At(pt.X, pt.Y) != image565.Red {
			t.Errorf("outline pixel %v not drawn", pt)
		}
	}
	if p.At(25, 27) == image565.Red {
		t.Error("DrawRect filled the inside")
	}
	if p.Transactions != 1 {
		t.Errorf("Transactions = %d, want 1", p.Transactions)
	}
}

func TestRoundRect(t *testing.T) {
	for _, kind := range transports {
		t.Run(kind.String(), func(t *testing.T) {
			d, p := newPanelDev(t, kind, nil)
			d.FillRoundRect(10, 10, 40, 30, 8, image565.Green)
			for _, pt := range []image.Point{{30, 25}, {10, 25}, {49, 25}, {30, 10}, {30, 39}} {
				if p.At(pt.X, pt.Y) != image565.Green {
					t.Errorf("FillRoundRect: pixel %v not filled", pt)
				}
			}
			for _, pt := range []image.Point{{10, 10}, {49, 10}, {10, 39}, {49, 39}} {
				if p.At(pt.X, pt.Y) == image565.Green {
					t.Errorf("FillRoundRect: corner %v filled", pt)
				}
			}

			d.DrawRoundRect(100, 100, 40, 30, 8, image565.Blue)
			for _, pt := range []image.Point{{120, 100}, {120, 129}, {100, 115}, {139, 115}} {
				if p.At(pt.X, pt.Y) != image565.Blue {
					t.Errorf("DrawRoundRect: edge pixel %v not drawn", pt)
				}
			}
			if p.At(100, 100) == image565.Blue || p.At(120, 115) == image565.Blue {
				t.Error("DrawRoundRect: drew the corner or the inside")
			}
			if p.Transactions != 2 {
				t.Errorf("Transactions = %d, want 2", p.Transactions)
			}
			checkIdle(t, p)
		})
	}
}

func TestCornerRadius(t *testing.T) {
	tests := []struct{ w, h, r, want int }{
		{40, 30, 8, 8},
		{40, 30, 20, 15},
		{10, 40, 50, 5},
		{40, 30, -3, 0},
	}
	for _, tt := range tests {
		if got := cornerRadius(tt.w, tt.h, tt.r); got != tt.want {
			t.Errorf("cornerRadius(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.r, got, tt.want)
		}
	}
}

func TestFillTriangleDegenerate(t *testing.T) {
	for _, kind := range transports {
		t.Run(kind.String(), func(t *testing.T) {
			d, p := newPanelDev(t, kind, nil)
			d.FillTriangle(20, 50, 10, 50, 35, 50, image565.Red)
			if len(p.Windows) != 1 || p.Windows[0] != image.Rect(10, 50, 36, 51) {
				t.Errorf("Windows = %v, want one run (10,50)-(35,50)", p.Windows)
			}
		})
	}
}

func TestFillTriangle(t *testing.T) {
	tests := []struct {
		name string
		v    [6]int
	}{
		{"general", [6]int{10, 10, 60, 30, 20, 70}},
		{"flat top", [6]int{10, 10, 50, 10, 30, 40}},
		{"flat bottom", [6]int{30, 10, 10, 40, 50, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, p := newPanelDev(t, PolledSPI, nil)
			v := tt.v
			d.FillTriangle(v[0], v[1], v[2], v[3], v[4], v[5], image565.Magenta)
			for i := 0; i < 6; i += 2 {
				if p.At(v[i], v[i+1]) != image565.Magenta {
					t.Errorf("vertex (%d, %d) not filled", v[i], v[i+1])
				}
			}
			minY := min(v[1], v[3], v[5])
			maxY := max(v[1], v[3], v[5])
			if want := maxY - minY + 1; len(p.Windows) != want {
				t.Errorf("%d runs, want one per scanline (%d)", len(p.Windows), want)
			}
			for _, w := range p.Windows {
				if w.Dy() != 1 {
					t.Errorf("run %v is not horizontal", w)
				}
			}
			if p.Transactions != 1 {
				t.Errorf("Transactions = %d, want 1", p.Transactions)
			}
		})
	}
}

func TestDrawTriangle(t *testing.T) {
	d, p := newPanelDev(t, PerDeviceSPI, nil)
	d.DrawTriangle(10, 10, 60, 30, 20, 70, image565.White)
	for _, pt := range []image.Point{{10, 10}, {60, 30}, {20, 70}} {
		if p.At(pt.X, pt.Y) != image565.White {
			t.Errorf("vertex %v not drawn", pt)
		}
	}
	if p.Transactions != 1 {
		t.Errorf("Transactions = %d, want 1", p.Transactions)
	}
	checkIdle(t, p)
}

func TestDrawBitmap(t *testing.T) {
	// 10x3, rows padded to 2 bytes.
	bitmap := []byte{
		0b11100001, 0b11000000, // ###....###
		0b00000000, 0b00000000, // ..........
		0b10101010, 0b01000000, // #.#.#.#..#
	}
	want := []string{
		"###....###",
		"..........",
		"#.#.#.#..#",
	}
	wantWindows := map[TransportKind]int{PolledSPI: 11, PerDeviceSPI: 11, ScanlineDMA: 7}

	for _, kind := range transports {
		t.Run(kind.String(), func(t *testing.T) {
			d, p := newPanelDev(t, kind, nil)
			d.FillRect(0, 0, 20, 10, image565.Navy)
			p.ClearLog()
			d.DrawBitmap(5, 4, bitmap, 10, 3, image565.Yellow)
			for j, row := range want {
				for i, ch := range row {
					got := p.At(5+i, 4+j)
					if ch == '#' && got != image565.Yellow {
						t.Errorf("pixel (%d, %d) = %#04x, want Yellow", i, j, got)
					}
					if ch == '.' && got != image565.Navy {
						t.Errorf("pixel (%d, %d) = %#04x, want untouched Navy", i, j, got)
					}
				}
			}
			if len(p.Windows) != wantWindows[kind] {
				t.Errorf("%d windows, want %d", len(p.Windows), wantWindows[kind])
			}
			if p.Transactions != 1 {
				t.Errorf("Transactions = %d, want 1", p.Transactions)
			}
			checkIdle(t, p)
		})
	}
}

func TestDrawBitmapClipped(t *testing.T) {
	d, p := newPanelDev(t, ScanlineDMA, nil)
	d.DrawBitmap(236, 318, []byte{0xFF, 0xFF, 0xFF, 0xFF}, 8, 4, image565.Red)
	if n := p.CountPixels(image.Rect(236, 318, 240, 320), image565.Red); n != 8 {
		t.Errorf("%d pixels drawn, want the 4x2 visible corner (8)", n)
	}
	if p.Written() != 8 {
		t.Errorf("Written() = %d, want 8", p.Written())
	}

	p.ClearLog()
	d.DrawBitmap(0, 0, []byte{0xFF}, 8, 4, image565.Red)
	if p.Written() != 8 {
		t.Errorf("short bitmap: Written() = %d, want 8 (rows present in the slice)", p.Written())
	}
}
