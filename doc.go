// Package ili9341 controls an ILI9341 TFT display via SPI.
//
// The ILI9341 is a 240×320 controller with 16-bit RGB565 frame memory. This
// driver implements the display.Drawer interface from periph.io and adds the
// usual immediate-mode primitives: pixels, lines, rectangles, circles,
// triangles, 1-bit bitmaps and 5×8 text.
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCK         → SPI Clock (SCLK)
//	SDI/MOSI    → SPI Data (MOSI)
//	SDO/MISO    → SPI Data (MISO), needed for ReadPixel and diagnostics
//	D/C         → GPIO (any available pin)
//	CS          → GPIO, or a controller chip-select
//	RESET       → Optional: GPIO for hardware reset
//
// # Transports
//
// The byte stream is the same for every bus; how it is clocked out is chosen
// with Opts.Transport:
//
//   - PolledSPI sends each command, argument and pixel as its own transfer and
//     drives CS as a GPIO.
//   - PerDeviceSPI leaves CS to the SPI controller and batches writes into
//     spi.Packet sequences that keep CS asserted until the transaction ends.
//     CS must be one of Opts.ChipSelects.
//   - ScanlineDMA fills a scanline buffer once and sends pixel runs as single
//     bursts. Large fills resend the same buffer.
//
// Any other bus can be used by implementing Transport and calling New.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"fmt"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/ili9341"
//		"periph.io/x/devices/v3/ili9341/image565"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//
//		port, _ := spireg.Open("")
//		defer port.Close()
//
//		dev, _ := ili9341.NewSPI(port,
//			gpioreg.ByName("GPIO8"),  // CS
//			gpioreg.ByName("GPIO25"), // D/C
//			gpioreg.ByName("GPIO24"), // RESET
//			&ili9341.Opts{Rotation: ili9341.Rotate90})
//		defer dev.Halt()
//
//		dev.FillScreen(image565.Navy)
//		dev.FillRoundRect(20, 20, 120, 60, 10, image565.Orange)
//		dev.DrawCircle(240, 120, 40, image565.White)
//
//		dev.SetCursor(10, 200)
//		dev.SetTextSize(2)
//		dev.SetTextColors(image565.Yellow, image565.Navy)
//		fmt.Fprintf(dev, "ready: %s\n", dev)
//	}
//
// # Transactions and Clipping
//
// Every drawing call clips against the rotated panel size and sends all of its
// writes inside one CS transaction. A call whose shape lies entirely outside
// the panel sends nothing.
//
// Drawing calls do not return errors. The first bus error is kept and
// reported by Dev.Err; Draw, WritePixels and Halt also return it.
//
// # Text
//
// Text uses a fixed 5×8 font in a 6×8 cell, scaled by SetTextSize. With
// SetTextColor the background is left untouched; with SetTextColors each cell
// is painted completely, which is faster. Dev implements io.Writer.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/ILI9341.pdf
package ili9341
