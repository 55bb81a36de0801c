// pkg/escpos/layout.go
package escpos

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLineWidth is the column count of a 58mm printer in font A
const DefaultLineWidth = 32

// TimestampLayout is the format used by Timestamp
const TimestampLayout = "2006-01-02 15:04:05"

func lineWidth(width int) int {
	if width <= 0 {
		return DefaultLineWidth
	}
	return width
}

// SeparatorLine returns c repeated to fill width columns
func SeparatorLine(c byte, width int) string {
	return strings.Repeat(string([]byte{c}), lineWidth(width))
}

// ItemPriceLine puts item on the left and price on the right of a line of
// width columns. At least one space is kept between them; when both do not
// fit the line is longer than width, nothing is truncated.
func ItemPriceLine(item, price string, width int) string {
	spaces := lineWidth(width) - len(item) - len(price)
	if spaces < 1 {
		spaces = 1
	}
	return item + strings.Repeat(" ", spaces) + price
}

// Timestamp formats t in local time as YYYY-MM-DD HH:MM:SS
func Timestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// FormatPrice renders an amount with two decimals
func FormatPrice(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
