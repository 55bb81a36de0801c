// pkg/escpos/commands.go
package escpos

// Control characters
const (
	LF  byte = 0x0A
	CR  byte = 0x0D
	ESC byte = 0x1B
	GS  byte = 0x1D
)

// Justification selects text alignment (ESC a n). The printer keeps it as
// state; nothing is tracked client-side.
type Justification byte

const (
	JustifyLeft   Justification = 0x00
	JustifyCenter Justification = 0x01
	JustifyRight  Justification = 0x02
)

// String returns the justification name
func (j Justification) String() string {
	switch j {
	case JustifyLeft:
		return "left"
	case JustifyCenter:
		return "center"
	case JustifyRight:
		return "right"
	default:
		return "unknown"
	}
}

// UnderlineStyle selects underline thickness (ESC - n)
type UnderlineStyle byte

const (
	UnderlineNone   UnderlineStyle = 0x00
	UnderlineSingle UnderlineStyle = 0x01
	UnderlineDouble UnderlineStyle = 0x02
)

// CutMode selects the cutter action (GS V m)
type CutMode byte

const (
	CutFull    CutMode = 0x00
	CutPartial CutMode = 0x01
)

// String returns the cut mode name
func (m CutMode) String() string {
	if m == CutPartial {
		return "partial"
	}
	return "full"
}

// DrawerPin selects the drawer kick-out connector pin (ESC p m)
type DrawerPin byte

const (
	DrawerPin2 DrawerPin = 0x00
	DrawerPin5 DrawerPin = 0x01
)

// MaxTextScale is the largest width/height multiplier index accepted by GS !
const MaxTextScale = 7

// Fixed command sequences
var (
	cmdReset     = []byte{ESC, 0x40}       // ESC @
	cmdFeedLines = []byte{ESC, 0x64}       // ESC d + n
	cmdBold      = []byte{ESC, 0x45}       // ESC E + n
	cmdUnderline = []byte{ESC, 0x2D}       // ESC - + n
	cmdJustify   = []byte{ESC, 0x61}       // ESC a + n
	cmdTextSize  = []byte{GS, 0x21}        // GS ! + n
	cmdReverse   = []byte{GS, 0x42}        // GS B + n
	cmdCut       = []byte{GS, 0x56}        // GS V + m
	cmdRaster    = []byte{GS, 0x76, 0x30}  // GS v 0 + m xL xH yL yH
	cmdQR        = []byte{GS, 0x28, 0x6B}  // GS ( k + pL pH cn fn ...
	cmdDrawer    = []byte{ESC, 0x70}       // ESC p + m t1 t2
	lineEnding   = []byte{CR, LF}          // CR LF
	italicOff    = byte(0x34)              // ESC 4
	italicOn     = byte(0x35)              // ESC 5
	drawerPulse  = [2]byte{0x19, 0x19}     // 50ms on, 50ms off
	rasterNormal = byte(0x00)              // m = normal density
)

func command(prefix []byte, params ...byte) []byte {
	out := make([]byte, 0, len(prefix)+len(params))
	out = append(out, prefix...)
	return append(out, params...)
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}

// Reset returns ESC @, which restores the printer's power-on defaults
func Reset() []byte {
	return command(cmdReset)
}

// FeedLines returns ESC d n
func FeedLines(n uint8) []byte {
	return command(cmdFeedLines, n)
}

// Bold returns ESC E n
func Bold(on bool) []byte {
	return command(cmdBold, boolByte(on))
}

// Underline returns ESC - n. Styles above UnderlineDouble are clamped.
func Underline(style UnderlineStyle) []byte {
	if style > UnderlineDouble {
		style = UnderlineDouble
	}
	return command(cmdUnderline, byte(style))
}

// Justify returns ESC a n. Unknown values fall back to left.
func Justify(j Justification) []byte {
	switch j {
	case JustifyLeft, JustifyCenter, JustifyRight:
	default:
		j = JustifyLeft
	}
	return command(cmdJustify, byte(j))
}

// TextSize returns GS ! n with n = (width << 4) | height. Both multipliers
// are clamped to MaxTextScale.
func TextSize(width, height uint8) []byte {
	if width > MaxTextScale {
		width = MaxTextScale
	}
	if height > MaxTextScale {
		height = MaxTextScale
	}
	return command(cmdTextSize, width<<4|height)
}

// Reverse returns GS B n (white on black)
func Reverse(on bool) []byte {
	return command(cmdReverse, boolByte(on))
}

// Italic returns ESC 5 to enable and ESC 4 to disable
func Italic(on bool) []byte {
	if on {
		return []byte{ESC, italicOn}
	}
	return []byte{ESC, italicOff}
}

// Cut returns GS V m. Unknown modes are treated as a full cut.
func Cut(mode CutMode) []byte {
	if mode != CutPartial {
		mode = CutFull
	}
	return command(cmdCut, byte(mode))
}

// DrawerKick returns ESC p m t1 t2
func DrawerKick(pin DrawerPin) []byte {
	if pin != DrawerPin5 {
		pin = DrawerPin2
	}
	return command(cmdDrawer, byte(pin), drawerPulse[0], drawerPulse[1])
}

// Text returns the raw bytes of s. No codepage translation is applied.
func Text(s string) []byte {
	return []byte(s)
}

// Line returns the raw bytes of s followed by CR LF
func Line(s string) []byte {
	out := make([]byte, 0, len(s)+len(lineEnding))
	out = append(out, s...)
	return append(out, lineEnding...)
}
