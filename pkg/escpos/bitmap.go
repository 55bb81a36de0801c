// pkg/escpos/bitmap.go
package escpos

import (
	"errors"
	"fmt"
)

// ErrInvalidBitmap is returned when raster dimensions and payload disagree
var ErrInvalidBitmap = errors.New("invalid bitmap")

// BitmapPayloadSize returns the number of packed bytes GS v 0 expects for
// the given dimensions.
func BitmapPayloadSize(width, height uint16) int {
	return int(width/8) * int(height)
}

// BitmapHeader returns GS v 0 m xL xH yL yH. x is the row width in bytes,
// y the height in dots, both little-endian.
func BitmapHeader(width, height uint16) []byte {
	widthBytes := width / 8
	return command(cmdRaster,
		rasterNormal,
		byte(widthBytes%256), byte(widthBytes/256),
		byte(height%256), byte(height/256),
	)
}

// ValidateBitmap checks that data holds exactly one packed raster of
// width x height dots. width must be a multiple of 8.
func ValidateBitmap(data []byte, width, height uint16) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: empty dimensions %dx%d", ErrInvalidBitmap, width, height)
	}
	if width%8 != 0 {
		return fmt.Errorf("%w: width %d is not a multiple of 8", ErrInvalidBitmap, width)
	}
	if want := BitmapPayloadSize(width, height); len(data) != want {
		return fmt.Errorf("%w: payload is %d bytes, %dx%d needs %d", ErrInvalidBitmap, len(data), width, height, want)
	}
	return nil
}
