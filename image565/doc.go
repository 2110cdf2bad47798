// Package image565 provides a 16-bit RGB565 image format for the ILI9341 display controller.
//
// The ILI9341 receives pixels as 16-bit words: 5 bits of red, 6 bits of green
// and 5 bits of blue, most significant byte first on the wire.
//
// Memory layout example for a 2-pixel row:
//
//	Pixels: 0       1
//	Values: 0xF800  0x07E0
//	Bytes:  0xF8 0x00 0x07 0xE0
//	        (red)     (green)
//
// This package provides:
//
// - Color: a packed RGB565 value
// - Model: a color model for converting standard Go colors to Color
// - RGB565: an image.Image implementation whose Pix slice can be sent to the controller as-is
// - Hex and Blend: helpers backed by go-colorful for building palettes and gradients
//
// Example usage:
//
//	// Create a 240x320 image
//	img := image565.NewRGB565(image.Rect(0, 0, 240, 320))
//
//	// Set a pixel to pure red
//	img.SetRGB565(10, 20, image565.Red)
//
//	// Get a pixel
//	c := img.RGB565At(10, 20)
//	println(uint16(c)) // Output: 63488
//
//	// Use with standard Go image operations
//	draw.Draw(img, img.Bounds(), image.NewUniform(image565.Navy), image.Point{}, draw.Src)
package image565
