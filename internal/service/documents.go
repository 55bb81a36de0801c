// internal/service/documents.go
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"escpos-printer/pkg/escpos"
	"escpos-printer/pkg/printer"
)

// Job types
const (
	JobLines   = "lines"
	JobReceipt = "receipt"
	JobQR      = "qr"
	JobFeed    = "feed"
	JobCut     = "cut"
	JobDrawer  = "drawer"
	JobRaw     = "raw"
	JobDemo    = "demo"
)

// ErrPayloadTooLarge is returned when raw data exceeds the configured limit
var ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", printer.ErrInvalidArgument)

// DefaultQRModuleSize is used when a request leaves the module size unset
const DefaultQRModuleSize uint8 = 6

// LineSpec is one styled line of a document
type LineSpec struct {
	Text      string `json:"text"`
	Align     string `json:"align,omitempty"`
	Bold      bool   `json:"bold,omitempty"`
	Underline uint8  `json:"underline,omitempty"`
	Width     uint8  `json:"width,omitempty"`
	Height    uint8  `json:"height,omitempty"`
	Reverse   bool   `json:"reverse,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Separator string `json:"separator,omitempty"`
}

// PrintLinesRequest prints a list of styled lines
type PrintLinesRequest struct {
	Lines []LineSpec `json:"lines" binding:"required,min=1"`
	Feed  uint8      `json:"feed,omitempty"`
	Cut   string     `json:"cut,omitempty"`
}

// ReceiptItem is one receipt row. Quantity defaults to 1.
type ReceiptItem struct {
	Name     string          `json:"name" binding:"required"`
	Quantity int             `json:"qty,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// ReceiptRequest prints a receipt with a computed total
type ReceiptRequest struct {
	Header     string        `json:"header,omitempty"`
	Items      []ReceiptItem `json:"items" binding:"required,min=1,dive"`
	Currency   string        `json:"currency,omitempty"`
	Footer     string        `json:"footer,omitempty"`
	QR         string        `json:"qr,omitempty"`
	Logo       bool          `json:"logo,omitempty"`
	Timestamp  bool          `json:"timestamp,omitempty"`
	Cut        string        `json:"cut,omitempty"`
	OpenDrawer bool          `json:"open_drawer,omitempty"`
}

// ReceiptResult adds the computed total to the job result
type ReceiptResult struct {
	*JobResult
	Total string `json:"total"`
}

// QRRequest prints a QR symbol with an optional caption
type QRRequest struct {
	Data            string `json:"data" binding:"required"`
	ModuleSize      uint8  `json:"module_size,omitempty"`
	ErrorCorrection string `json:"error_correction,omitempty"`
	Align           string `json:"align,omitempty"`
	Caption         string `json:"caption,omitempty"`
}

// FeedRequest advances the paper
type FeedRequest struct {
	Lines uint8 `json:"lines" binding:"required,min=1"`
}

// CutRequest cuts the paper
type CutRequest struct {
	Mode string `json:"mode,omitempty"`
}

// DrawerRequest pulses a cash drawer pin (2 or 5)
type DrawerRequest struct {
	Pin int `json:"pin,omitempty"`
}

// RawRequest carries pre-encoded ESC/POS bytes, base64 encoded
type RawRequest struct {
	Data string `json:"data" binding:"required"`
}

// PrintLines prints styled lines and restores default styling afterwards
func (ps *PrintService) PrintLines(ctx context.Context, req *PrintLinesRequest) (*JobResult, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", printer.ErrInvalidArgument)
	}
	aligns := make([]escpos.Justification, len(req.Lines))
	for i, line := range req.Lines {
		align, err := escpos.ParseJustification(line.Align)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", printer.ErrInvalidArgument, i, err)
		}
		if len(line.Separator) > 1 {
			return nil, fmt.Errorf("%w: line %d: separator must be a single character", printer.ErrInvalidArgument, i)
		}
		aligns[i] = align
	}
	cut, cutRequested, err := parseOptionalCut(req.Cut)
	if err != nil {
		return nil, err
	}

	return ps.run(ctx, JobLines, func(ctx context.Context, p printer.Printer) error {
		for i, line := range req.Lines {
			if err := printStyledLine(ctx, p, line, aligns[i], ps.printerCfg.LineWidth); err != nil {
				return err
			}
		}
		if err := resetStyle(ctx, p); err != nil {
			return err
		}
		if req.Feed > 0 {
			if err := p.FeedLines(ctx, req.Feed); err != nil {
				return err
			}
		}
		if cutRequested {
			return p.Cut(ctx, cut)
		}
		return nil
	})
}

// PrintReceipt prints header, items, total and footer. Prices are summed
// with decimal arithmetic.
func (ps *PrintService) PrintReceipt(ctx context.Context, req *ReceiptRequest) (*ReceiptResult, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", printer.ErrInvalidArgument)
	}
	if req.Logo && ps.logo == nil {
		return nil, fmt.Errorf("%w: no logo configured", printer.ErrInvalidArgument)
	}
	for i, item := range req.Items {
		if item.Name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", printer.ErrInvalidArgument, i)
		}
		if item.Quantity < 0 {
			return nil, fmt.Errorf("%w: item %d has a negative quantity", printer.ErrInvalidArgument, i)
		}
	}
	if len(req.QR) > escpos.QRMaxPayload {
		return nil, fmt.Errorf("%w: qr payload too large", printer.ErrInvalidArgument)
	}
	cut, err := escpos.ParseCutMode(defaultString(req.Cut, "partial"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}

	width := ps.printerCfg.LineWidth
	lines, total := receiptLines(req, width)

	result, err := ps.run(ctx, JobReceipt, func(ctx context.Context, p printer.Printer) error {
		if req.Logo {
			if err := p.JustifyCenter(ctx); err != nil {
				return err
			}
			if err := p.PrintBitmap(ctx, ps.logo.Data, ps.logo.Width, ps.logo.Height); err != nil {
				return err
			}
			if err := p.FeedLines(ctx, 1); err != nil {
				return err
			}
		}

		if req.Header != "" {
			if err := p.JustifyCenter(ctx); err != nil {
				return err
			}
			if err := p.SetBold(ctx, true); err != nil {
				return err
			}
			if err := p.SetTextSize(ctx, 1, 1); err != nil {
				return err
			}
			if err := printTextBlock(ctx, p, req.Header); err != nil {
				return err
			}
			if err := p.SetTextSize(ctx, 0, 0); err != nil {
				return err
			}
			if err := p.SetBold(ctx, false); err != nil {
				return err
			}
		}
		if req.Timestamp {
			if err := p.JustifyCenter(ctx); err != nil {
				return err
			}
			if err := p.PrintTimestamp(ctx); err != nil {
				return err
			}
		}

		if err := p.JustifyLeft(ctx); err != nil {
			return err
		}
		if err := p.PrintLine(ctx, escpos.SeparatorLine('=', width)); err != nil {
			return err
		}
		for _, line := range lines.items {
			if err := p.PrintLine(ctx, line); err != nil {
				return err
			}
		}
		if err := p.PrintLine(ctx, escpos.SeparatorLine('-', width)); err != nil {
			return err
		}
		if err := p.SetBold(ctx, true); err != nil {
			return err
		}
		if err := p.PrintLine(ctx, lines.total); err != nil {
			return err
		}
		if err := p.SetBold(ctx, false); err != nil {
			return err
		}

		if req.Footer != "" {
			if err := p.FeedLines(ctx, 1); err != nil {
				return err
			}
			if err := p.JustifyCenter(ctx); err != nil {
				return err
			}
			if err := printTextBlock(ctx, p, req.Footer); err != nil {
				return err
			}
		}
		if req.QR != "" {
			if err := p.JustifyCenter(ctx); err != nil {
				return err
			}
			if err := p.PrintQR(ctx, []byte(req.QR), DefaultQRModuleSize, escpos.QRLevelM); err != nil {
				return err
			}
		}

		if err := p.JustifyLeft(ctx); err != nil {
			return err
		}
		if err := p.FeedLines(ctx, 3); err != nil {
			return err
		}
		if err := p.Cut(ctx, cut); err != nil {
			return err
		}
		if req.OpenDrawer {
			return p.OpenDrawer(ctx, escpos.DrawerPin2)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ReceiptResult{JobResult: result, Total: escpos.FormatPrice(total)}, nil
}

// PrintQR prints a QR symbol, centred by default
func (ps *PrintService) PrintQR(ctx context.Context, req *QRRequest) (*JobResult, error) {
	level, err := escpos.ParseQRErrorCorrection(req.ErrorCorrection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}
	align, err := escpos.ParseJustification(defaultString(req.Align, "center"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}
	if req.Data == "" || len(req.Data) > escpos.QRMaxPayload {
		return nil, fmt.Errorf("%w: qr payload must be 1 to %d bytes", printer.ErrInvalidArgument, escpos.QRMaxPayload)
	}
	moduleSize := req.ModuleSize
	if moduleSize == 0 {
		moduleSize = DefaultQRModuleSize
	}

	return ps.run(ctx, JobQR, func(ctx context.Context, p printer.Printer) error {
		if err := p.SetJustification(ctx, align); err != nil {
			return err
		}
		if err := p.PrintQR(ctx, []byte(req.Data), moduleSize, level); err != nil {
			return err
		}
		if err := p.PrintLine(ctx, req.Caption); err != nil {
			return err
		}
		return p.JustifyLeft(ctx)
	})
}

// Feed advances the paper
func (ps *PrintService) Feed(ctx context.Context, req *FeedRequest) (*JobResult, error) {
	if req.Lines == 0 {
		return nil, fmt.Errorf("%w: lines must be positive", printer.ErrInvalidArgument)
	}
	return ps.run(ctx, JobFeed, func(ctx context.Context, p printer.Printer) error {
		return p.FeedLines(ctx, req.Lines)
	})
}

// Cut cuts the paper, full by default
func (ps *PrintService) Cut(ctx context.Context, req *CutRequest) (*JobResult, error) {
	mode, err := escpos.ParseCutMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}
	return ps.run(ctx, JobCut, func(ctx context.Context, p printer.Printer) error {
		return p.Cut(ctx, mode)
	})
}

// OpenDrawer pulses the drawer kick connector
func (ps *PrintService) OpenDrawer(ctx context.Context, req *DrawerRequest) (*JobResult, error) {
	pin, err := escpos.ParseDrawerPin(req.Pin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}
	return ps.run(ctx, JobDrawer, func(ctx context.Context, p printer.Printer) error {
		return p.OpenDrawer(ctx, pin)
	})
}

// WriteRaw passes decoded bytes to the printer unchanged
func (ps *PrintService) WriteRaw(ctx context.Context, req *RawRequest, maxBytes int) (*JobResult, error) {
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: data is not valid base64: %w", printer.ErrInvalidArgument, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: data is empty", printer.ErrInvalidArgument)
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrPayloadTooLarge, len(data), maxBytes)
	}
	return ps.run(ctx, JobRaw, func(ctx context.Context, p printer.Printer) error {
		return p.Write(ctx, data)
	})
}

// Helper functions

type receiptText struct {
	items []string
	total string
}

// receiptLines lays out item rows and the total line
func receiptLines(req *ReceiptRequest, width int) (receiptText, decimal.Decimal) {
	var text receiptText
	total := decimal.Zero

	for _, item := range req.Items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		amount := item.Price.Mul(decimal.NewFromInt(int64(qty)))
		total = total.Add(amount)

		name := item.Name
		if qty > 1 {
			name = fmt.Sprintf("%d x %s", qty, item.Name)
		}
		text.items = append(text.items, escpos.ItemPriceLine(name, escpos.FormatPrice(amount), width))
	}

	totalText := escpos.FormatPrice(total)
	if req.Currency != "" {
		totalText += " " + req.Currency
	}
	text.total = escpos.ItemPriceLine("TOTAL", totalText, width)
	return text, total
}

func printStyledLine(ctx context.Context, p printer.Printer, line LineSpec, align escpos.Justification, width int) error {
	if err := p.SetJustification(ctx, align); err != nil {
		return err
	}
	if err := p.SetBold(ctx, line.Bold); err != nil {
		return err
	}
	if err := p.SetUnderline(ctx, escpos.UnderlineStyle(line.Underline)); err != nil {
		return err
	}
	if err := p.SetTextSize(ctx, line.Width, line.Height); err != nil {
		return err
	}
	if err := p.SetReverse(ctx, line.Reverse); err != nil {
		return err
	}
	if err := p.SetItalic(ctx, line.Italic); err != nil {
		return err
	}
	if line.Separator != "" {
		return p.PrintLine(ctx, escpos.SeparatorLine(line.Separator[0], width))
	}
	return p.PrintLine(ctx, line.Text)
}

// resetStyle returns every style to its power-on value without ESC @
func resetStyle(ctx context.Context, p printer.Printer) error {
	steps := []func(context.Context) error{
		func(ctx context.Context) error { return p.SetBold(ctx, false) },
		func(ctx context.Context) error { return p.SetUnderline(ctx, escpos.UnderlineNone) },
		func(ctx context.Context) error { return p.SetTextSize(ctx, 0, 0) },
		func(ctx context.Context) error { return p.SetReverse(ctx, false) },
		func(ctx context.Context) error { return p.SetItalic(ctx, false) },
		p.JustifyLeft,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// printTextBlock prints one line per newline. Blank lines become a one-line
// feed since PrintLine ignores empty text.
func printTextBlock(ctx context.Context, p printer.Printer, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if err := p.FeedLines(ctx, 1); err != nil {
				return err
			}
			continue
		}
		if err := p.PrintLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func parseOptionalCut(s string) (escpos.CutMode, bool, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return escpos.CutFull, false, nil
	}
	mode, err := escpos.ParseCutMode(s)
	if err != nil {
		return escpos.CutFull, false, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}
	return mode, true, nil
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
