package ili9341

// Controller opcodes used by the driver. See the ILI9341 datasheet, section 8.
const (
	cmdNOP        = 0x00 // No operation
	cmdSWRESET    = 0x01 // Software reset
	cmdRDMODE     = 0x0A // Read display power mode
	cmdRDMADCTL   = 0x0B // Read memory access control
	cmdRDPIXFMT   = 0x0C // Read pixel format
	cmdRDIMGFMT   = 0x0D // Read image format
	cmdRDSELFDIAG = 0x0F // Read self-diagnostic result
	cmdSLPIN      = 0x10 // Enter sleep mode
	cmdSLPOUT     = 0x11 // Sleep out
	cmdNORON      = 0x13 // Normal display mode on
	cmdINVOFF     = 0x20 // Display inversion off
	cmdINVON      = 0x21 // Display inversion on
	cmdGAMMASET   = 0x26 // Gamma set
	cmdDISPOFF    = 0x28 // Display off
	cmdDISPON     = 0x29 // Display on
	cmdCASET      = 0x2A // Column address set
	cmdPASET      = 0x2B // Page (row) address set
	cmdRAMWR      = 0x2C // Memory write
	cmdRAMRD      = 0x2E // Memory read
	cmdVSCRDEF    = 0x33 // Vertical scrolling definition
	cmdMADCTL     = 0x36 // Memory access control
	cmdVSCRSADD   = 0x37 // Vertical scrolling start address
	cmdPIXFMT     = 0x3A // Interface pixel format
	cmdFRMCTR1    = 0xB1 // Frame rate control (normal mode)
	cmdDFUNCTR    = 0xB6 // Display function control
	cmdPWCTR1     = 0xC0 // Power control 1
	cmdPWCTR2     = 0xC1 // Power control 2
	cmdVMCTR1     = 0xC5 // VCOM control 1
	cmdVMCTR2     = 0xC7 // VCOM control 2
	cmdREADINDEX  = 0xD9 // Undocumented register index select for reads
	cmdGMCTRP1    = 0xE0 // Positive gamma correction
	cmdGMCTRN1    = 0xE1 // Negative gamma correction
)

// Memory access control bits.
const (
	madctlMY  = 0x80 // Row address order
	madctlMX  = 0x40 // Column address order
	madctlMV  = 0x20 // Row/column exchange
	madctlML  = 0x10 // Vertical refresh order
	madctlRGB = 0x00
	madctlBGR = 0x08 // Blue-green-red panel order
	madctlMH  = 0x04 // Horizontal refresh order
)

// Native panel geometry in rotation 0.
const (
	nativeWidth  = 240
	nativeHeight = 320
)

// initCommands is the power-on register table. Each entry is a byte count
// (opcode included), the opcode and its arguments. A zero count ends the table.
var initCommands = []byte{
	4, 0xEF, 0x03, 0x80, 0x02,
	4, 0xCF, 0x00, 0xC1, 0x30,
	5, 0xED, 0x64, 0x03, 0x12, 0x81,
	4, 0xE8, 0x85, 0x00, 0x78,
	6, 0xCB, 0x39, 0x2C, 0x00, 0x34, 0x02,
	2, 0xF7, 0x20,
	3, 0xEA, 0x00, 0x00,
	2, cmdPWCTR1, 0x23,       // Power control, VRH[5:0]
	2, cmdPWCTR2, 0x10,       // Power control, SAP[2:0] BT[3:0]
	3, cmdVMCTR1, 0x3E, 0x28, // VCM control
	2, cmdVMCTR2, 0x86,       // VCM control 2
	2, cmdMADCTL, madctlMX | madctlBGR,
	2, cmdPIXFMT, 0x55, // 16 bits per pixel
	3, cmdFRMCTR1, 0x00, 0x18,
	4, cmdDFUNCTR, 0x08, 0x82, 0x27,
	2, 0xF2, 0x00,        // 3 gamma function disable
	2, cmdGAMMASET, 0x01, // Gamma curve 1
	16, cmdGMCTRP1, 0x0F, 0x31, 0x2B, 0x0C, 0x0E, 0x08,
	0x4E, 0xF1, 0x37, 0x07, 0x10, 0x03, 0x0E, 0x09, 0x00,
	16, cmdGMCTRN1, 0x00, 0x0E, 0x14, 0x03, 0x11, 0x07,
	0x31, 0xC1, 0x48, 0x08, 0x0F, 0x0C, 0x31, 0x36, 0x0F,
	0,
}

// command is one decoded entry of an init table.
type command struct {
	op   byte
	args []byte
}

// parseInitTable splits a count-prefixed table into commands.
func parseInitTable(table []byte) ([]command, error) {
	var cmds []command
	for i := 0; ; {
		if i >= len(table) {
			return nil, errInitTable
		}
		n := int(table[i])
		i++
		if n == 0 {
			return cmds, nil
		}
		if i+n > len(table) {
			return nil, errInitTable
		}
		cmds = append(cmds, command{op: table[i], args: table[i+1 : i+n]})
		i += n
	}
}

// Rotation selects the panel orientation.
type Rotation uint8

// Rotations, clockwise.
const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// madctl returns the memory access control byte for r and whether the
// rotation swaps width and height.
func (r Rotation) madctl() (byte, bool) {
	switch r % 4 {
	case Rotate90:
		return madctlMV | madctlBGR, true
	case Rotate180:
		return madctlMY | madctlBGR, false
	case Rotate270:
		return madctlMX | madctlMY | madctlMV | madctlBGR, true
	default:
		return madctlMX | madctlBGR, false
	}
}

// Corner selects quarter circles for DrawCircleHelper.
type Corner uint8

// Corners.
const (
	CornerTopLeft     Corner = 0x1
	CornerTopRight    Corner = 0x2
	CornerBottomRight Corner = 0x4
	CornerBottomLeft  Corner = 0x8
)

// Side selects circle halves for FillCircleHelper.
type Side uint8

// Sides.
const (
	SideRight Side = 0x1
	SideLeft  Side = 0x2
)
