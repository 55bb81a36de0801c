package escpos

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedCommands(t *testing.T) {
	testCases := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"Reset", Reset(), []byte{0x1B, 0x40}},
		{"Feed3", FeedLines(3), []byte{0x1B, 0x64, 0x03}},
		{"Feed255", FeedLines(255), []byte{0x1B, 0x64, 0xFF}},
		{"BoldOn", Bold(true), []byte{0x1B, 0x45, 0x01}},
		{"BoldOff", Bold(false), []byte{0x1B, 0x45, 0x00}},
		{"ReverseOn", Reverse(true), []byte{0x1D, 0x42, 0x01}},
		{"ReverseOff", Reverse(false), []byte{0x1D, 0x42, 0x00}},
		{"ItalicOn", Italic(true), []byte{0x1B, 0x35}},
		{"ItalicOff", Italic(false), []byte{0x1B, 0x34}},
		{"CutFull", Cut(CutFull), []byte{0x1D, 0x56, 0x00}},
		{"CutPartial", Cut(CutPartial), []byte{0x1D, 0x56, 0x01}},
		{"CutUnknown", Cut(CutMode(9)), []byte{0x1D, 0x56, 0x00}},
		{"DrawerPin2", DrawerKick(DrawerPin2), []byte{0x1B, 0x70, 0x00, 0x19, 0x19}},
		{"DrawerPin5", DrawerKick(DrawerPin5), []byte{0x1B, 0x70, 0x01, 0x19, 0x19}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestUnderlineClamps(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x2D, 0x00}, Underline(UnderlineNone))
	assert.Equal(t, []byte{0x1B, 0x2D, 0x01}, Underline(UnderlineSingle))
	assert.Equal(t, []byte{0x1B, 0x2D, 0x02}, Underline(UnderlineDouble))

	for _, style := range []UnderlineStyle{3, 7, 255} {
		assert.Equal(t, []byte{0x1B, 0x2D, 0x02}, Underline(style), "style %d", style)
	}
}

func TestJustifyFallsBackToLeft(t *testing.T) {
	assert.Equal(t, []byte{0x1B, 0x61, 0x00}, Justify(JustifyLeft))
	assert.Equal(t, []byte{0x1B, 0x61, 0x01}, Justify(JustifyCenter))
	assert.Equal(t, []byte{0x1B, 0x61, 0x02}, Justify(JustifyRight))

	for _, j := range []Justification{3, 4, 128, 255} {
		assert.Equal(t, []byte{0x1B, 0x61, 0x00}, Justify(j), "justification %d", j)
	}
}

func TestTextSizePacking(t *testing.T) {
	assert.Equal(t, []byte{0x1D, 0x21, 0x00}, TextSize(0, 0))
	assert.Equal(t, []byte{0x1D, 0x21, 0x12}, TextSize(1, 2))
	assert.Equal(t, []byte{0x1D, 0x21, 0x77}, TextSize(7, 7))
	assert.Equal(t, []byte{0x1D, 0x21, 0x77}, TextSize(8, 200))
	assert.Equal(t, []byte{0x1D, 0x21, 0x70}, TextSize(9, 0))
	assert.Equal(t, []byte{0x1D, 0x21, 0x07}, TextSize(0, 9))
}

func TestLineAppendsCRLF(t *testing.T) {
	assert.Equal(t, []byte("GRAND TEXTE\r\n"), Line("GRAND TEXTE"))
	assert.Equal(t, []byte{0x0D, 0x0A}, Line(""))
	assert.Equal(t, []byte("abc"), Text("abc"))
}

func TestEncodingIsDeterministic(t *testing.T) {
	first := [][]byte{Bold(true), TextSize(3, 4), Justify(JustifyRight), Underline(5)}
	// Interleave unrelated calls; outputs must not depend on call order.
	_ = Cut(CutPartial)
	_ = Reverse(true)
	second := [][]byte{Bold(true), TextSize(3, 4), Justify(JustifyRight), Underline(5)}

	assert.Equal(t, first, second)

	a := Bold(true)
	a[2] = 0xEE
	assert.Equal(t, []byte{0x1B, 0x45, 0x01}, Bold(true), "returned slices must not alias shared state")
}

func TestBitmapHeader(t *testing.T) {
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 0x02, 0x00, 0x10, 0x00}, BitmapHeader(16, 16))
	assert.Equal(t, 32, BitmapPayloadSize(16, 16))

	// 384 dots wide (48 bytes), 300 rows: yL = 300 % 256 = 44, yH = 1
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 48, 0, 44, 1}, BitmapHeader(384, 300))

	// 4096 bytes per row: xL = 0, xH = 16
	assert.Equal(t, []byte{0x1D, 0x76, 0x30, 0x00, 0, 16, 1, 0}, BitmapHeader(32768, 1))
}

func TestValidateBitmap(t *testing.T) {
	require.NoError(t, ValidateBitmap(make([]byte, 32), 16, 16))

	testCases := []struct {
		name   string
		size   int
		width  uint16
		height uint16
	}{
		{"Undersized", 31, 16, 16},
		{"Oversized", 33, 16, 16},
		{"NilData", 0, 16, 16},
		{"WidthNotMultipleOf8", 30, 15, 16},
		{"ZeroWidth", 0, 0, 16},
		{"ZeroHeight", 0, 16, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var data []byte
			if tc.size > 0 {
				data = make([]byte, tc.size)
			}
			err := ValidateBitmap(data, tc.width, tc.height)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidBitmap)
		})
	}
}

func TestQRCode(t *testing.T) {
	out, err := QRCode([]byte("https://example.com"), 4, QRLevelM)
	require.NoError(t, err)

	want := []byte{
		0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00, // model 2
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x04, // module size 4
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31, // level M
		0x1D, 0x28, 0x6B, 22, 0x00, 0x31, 0x50, 0x30, // store 19 + 3 bytes
	}
	want = append(want, "https://example.com"...)
	want = append(want, 0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30) // print

	assert.Equal(t, want, out)
}

func TestQRCodeLevels(t *testing.T) {
	testCases := []struct {
		level QRErrorCorrection
		code  byte
	}{
		{QRLevelL, 0x30},
		{QRLevelM, 0x31},
		{QRLevelQ, 0x32},
		{QRLevelH, 0x33},
		{QRErrorCorrection(9), 0x33},
	}

	for _, tc := range testCases {
		out, err := QRCode([]byte("x"), 3, tc.level)
		require.NoError(t, err)
		eccFrame := []byte{0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, tc.code}
		assert.True(t, bytes.Contains(out, eccFrame), "level %d", tc.level)
	}
}

func TestQRCodeLongPayloadLength(t *testing.T) {
	data := bytes.Repeat([]byte{'7'}, 300)
	out, err := QRCode(data, 6, QRLevelL)
	require.NoError(t, err)

	// 300 + 3 = 303 = 0x012F
	storeHeader := []byte{0x1D, 0x28, 0x6B, 0x2F, 0x01, 0x31, 0x50, 0x30}
	assert.True(t, bytes.Contains(out, storeHeader))
}

func TestQRCodeRejectsBadPayload(t *testing.T) {
	_, err := QRCode(nil, 4, QRLevelM)
	assert.ErrorIs(t, err, ErrInvalidQR)

	_, err = QRCode(make([]byte, QRMaxPayload+1), 4, QRLevelM)
	assert.ErrorIs(t, err, ErrInvalidQR)
}

func TestParseQRErrorCorrection(t *testing.T) {
	for in, want := range map[string]QRErrorCorrection{"L": QRLevelL, "m": QRLevelM, "": QRLevelM, "Q": QRLevelQ, "h": QRLevelH} {
		got, err := ParseQRErrorCorrection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseQRErrorCorrection("X")
	assert.Error(t, err)
}

func TestItemPriceLine(t *testing.T) {
	line := ItemPriceLine("Texte gauche", "32", 32)
	assert.Equal(t, "Texte gauche"+strings.Repeat(" ", 18)+"32", line)
	assert.Len(t, line, 32)

	assert.Equal(t, line, ItemPriceLine("Texte gauche", "32", 0), "non-positive width defaults to 32")
	assert.Equal(t, line, ItemPriceLine("Texte gauche", "32", -5))
}

func TestItemPriceLineOverflow(t *testing.T) {
	item := strings.Repeat("A", 30)
	line := ItemPriceLine(item, "12.50", 32)

	assert.Equal(t, item+" 12.50", line)
	assert.Greater(t, len(line), 32)
}

func TestSeparatorLine(t *testing.T) {
	assert.Equal(t, strings.Repeat("-", 32), SeparatorLine('-', 0))
	assert.Equal(t, strings.Repeat("=", 48), SeparatorLine('=', 48))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.Local)
	assert.Equal(t, "2024-03-09 07:05:01", Timestamp(ts))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "12.50", FormatPrice(decimal.RequireFromString("12.5")))
	assert.Equal(t, "3.00", FormatPrice(decimal.NewFromInt(3)))
}
