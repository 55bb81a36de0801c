// pkg/escpos/raster.go
package escpos

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// DefaultThreshold separates black from white dots on the 0-255 luminance scale
const DefaultThreshold uint8 = 128

// PackImage converts img into a GS v 0 raster: one bit per dot, row-major,
// most significant bit first, set bits printed black. The width is padded
// to a multiple of 8 with white dots.
func PackImage(img image.Image, threshold uint8) ([]byte, uint16, uint16, error) {
	if img == nil {
		return nil, 0, 0, fmt.Errorf("%w: nil image", ErrInvalidBitmap)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	padded := (w + 7) &^ 7
	if w == 0 || h == 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty image", ErrInvalidBitmap)
	}
	if padded > math.MaxUint16 || h > math.MaxUint16 {
		return nil, 0, 0, fmt.Errorf("%w: image %dx%d exceeds raster limits", ErrInvalidBitmap, w, h)
	}

	rowBytes := padded / 8
	data := make([]byte, rowBytes*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !isDark(img.At(bounds.Min.X+x, bounds.Min.Y+y), threshold) {
				continue
			}
			data[y*rowBytes+x/8] |= 0x80 >> uint(x%8)
		}
	}

	return data, uint16(padded), uint16(h), nil
}

// isDark treats transparent pixels as paper
func isDark(c color.Color, threshold uint8) bool {
	_, _, _, a := c.RGBA()
	if a < 0x8000 {
		return false
	}
	gray := color.GrayModel.Convert(c).(color.Gray)
	return gray.Y < threshold
}
