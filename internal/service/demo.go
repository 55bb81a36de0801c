// internal/service/demo.go
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"escpos-printer/pkg/escpos"
	"escpos-printer/pkg/printer"
)

// Bitmap is a packed GS v 0 raster
type Bitmap struct {
	Data   []byte
	Width  uint16
	Height uint16
}

// LoadBitmap decodes a PNG, JPEG or GIF file and packs it for printing
func LoadBitmap(path string, threshold uint8) (*Bitmap, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	data, width, height, err := escpos.PackImage(img, threshold)
	if err != nil {
		return nil, err
	}
	return &Bitmap{Data: data, Width: width, Height: height}, nil
}

// DemoLogo is the 16x16 test pattern printed by the demo
var DemoLogo = Bitmap{
	Data: []byte{
		0x00, 0x00, 0x3C, 0x3C, 0x42, 0x42, 0xA9, 0xA9,
		0x85, 0x85, 0xA9, 0xA9, 0x91, 0x91, 0x42, 0x42,
		0x3C, 0x3C, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	},
	Width:  16,
	Height: 16,
}

// RunDemo prints the sample receipt on p: a centred bold greeting,
// enlarged text, underlined text, an item/price line, a separator, the test
// logo and a partial cut. Flush timeouts along the way are not fatal.
func RunDemo(ctx context.Context, p printer.Printer) error {
	steps := []func() error{
		func() error { return p.JustifyCenter(ctx) },
		func() error { return p.SetBold(ctx, true) },
		func() error { return p.PrintLine(ctx, "Bonjour EM5820 !") },
		func() error { return p.SetBold(ctx, false) },

		func() error { return p.SetTextSize(ctx, 1, 2) },
		func() error { return p.PrintLine(ctx, "GRAND TEXTE") },
		func() error { return p.SetTextSize(ctx, 0, 0) },

		func() error { return p.SetUnderline(ctx, escpos.UnderlineSingle) },
		func() error { return p.PrintLine(ctx, "Sous-ligne") },
		func() error { return p.SetUnderline(ctx, escpos.UnderlineNone) },

		func() error { return p.PrintItemPrice(ctx, "Texte gauche", "32", escpos.DefaultLineWidth) },
		func() error { return flushTolerant(ctx, p) },

		func() error { return p.JustifyCenter(ctx) },
		func() error { return p.PrintSeparator(ctx, '-') },
		func() error { return flushTolerant(ctx, p) },

		func() error { return p.FeedLines(ctx, 3) },
		func() error { return p.PrintBitmap(ctx, DemoLogo.Data, DemoLogo.Width, DemoLogo.Height) },
		func() error { return p.FeedLines(ctx, 3) },

		func() error { return p.Cut(ctx, escpos.CutPartial) },
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// PrintDemo runs the sample receipt as one job
func (ps *PrintService) PrintDemo(ctx context.Context) (*JobResult, error) {
	return ps.run(ctx, JobDemo, RunDemo)
}

func flushTolerant(ctx context.Context, p printer.Printer) error {
	if err := p.Flush(ctx); err != nil && !errors.Is(err, printer.ErrFlushTimeout) {
		return err
	}
	return nil
}
