// pkg/printer/printer.go
package printer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-printer/pkg/escpos"
)

// Printer is an open ESC/POS session that exclusively owns one transport.
//
// A Printer is not safe for concurrent use; callers serialise access. Every
// operation except Close returns ErrInvalidState without touching the
// transport once the session is closed. Success means the bytes were handed
// to the transport; the printer sends no acknowledgement.
type Printer interface {
	// Lifecycle
	Close() error
	Flush(ctx context.Context) error
	Reset(ctx context.Context) error

	// Formatting
	SetBold(ctx context.Context, on bool) error
	SetUnderline(ctx context.Context, style escpos.UnderlineStyle) error
	SetJustification(ctx context.Context, j escpos.Justification) error
	JustifyLeft(ctx context.Context) error
	JustifyCenter(ctx context.Context) error
	JustifyRight(ctx context.Context) error
	SetTextSize(ctx context.Context, width, height uint8) error
	SetReverse(ctx context.Context, on bool) error
	SetItalic(ctx context.Context, on bool) error

	// Printing
	PrintText(ctx context.Context, text string) error
	PrintLine(ctx context.Context, line string) error
	PrintSeparator(ctx context.Context, c byte) error
	PrintTimestamp(ctx context.Context) error
	PrintItemPrice(ctx context.Context, item, price string, width int) error
	PrintBitmap(ctx context.Context, data []byte, width, height uint16) error
	PrintQR(ctx context.Context, data []byte, moduleSize uint8, level escpos.QRErrorCorrection) error
	Write(ctx context.Context, raw []byte) error

	// Paper handling
	FeedLines(ctx context.Context, n uint8) error
	Cut(ctx context.Context, mode escpos.CutMode) error
	OpenDrawer(ctx context.Context, pin escpos.DrawerPin) error

	// Information
	ID() string
	Config() Config
	Initialized() bool
}

type session struct {
	cfg          Config
	id           string
	transport    Transport
	initialized  bool
	logger       *zap.Logger
	now          func() time.Time
	settleDelay  time.Duration
	flushTimeout time.Duration
}

// Open acquires a transport through dialer, resets the printer and waits for
// it to settle. On failure nothing stays acquired and no session is returned.
func Open(ctx context.Context, cfg Config, dialer Dialer, opts ...Option) (Printer, error) {
	if dialer == nil {
		return nil, fmt.Errorf("%w: dialer is required", ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &session{
		cfg:          cfg.withDefaults(),
		id:           uuid.NewString(),
		logger:       zap.NewNop(),
		now:          time.Now,
		settleDelay:  DefaultSettleDelay,
		flushTimeout: DefaultFlushTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(
		zap.String("session_id", s.id),
		zap.String("port", s.cfg.PortID),
	)

	s.logger.Info("Opening printer session",
		zap.Int("baud_rate", s.cfg.BaudRate),
		zap.Int("tx_buffer_size", s.cfg.TxBufferSize),
		zap.Int("tx_pin", s.cfg.TxPin),
		zap.Int("rx_pin", s.cfg.RxPin),
	)

	transport, err := dialer.Dial(ctx, s.cfg)
	if err != nil {
		s.logger.Error("Failed to acquire transport", zap.Error(err))
		if errors.Is(err, ErrResourceExhausted) {
			return nil, fmt.Errorf("failed to acquire %s: %w", s.cfg.PortID, err)
		}
		return nil, fmt.Errorf("%w: failed to acquire %s: %w", ErrTransport, s.cfg.PortID, err)
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: dialer returned no transport for %s", ErrTransport, s.cfg.PortID)
	}

	s.transport = transport
	s.initialized = true

	if err := s.send(ctx, "reset", escpos.Reset()); err != nil {
		s.release()
		return nil, err
	}
	if err := s.settle(ctx); err != nil {
		s.release()
		return nil, err
	}

	s.logger.Info("Printer session opened")
	return s, nil
}

// Close releases the transport. Calling it again is a no-op.
func (s *session) Close() error {
	if s == nil || !s.initialized {
		return nil
	}
	if err := s.release(); err != nil {
		return fmt.Errorf("%w: failed to release %s: %w", ErrTransport, s.cfg.PortID, err)
	}
	s.logger.Info("Printer session closed")
	return nil
}

// release marks the session closed and releases the transport exactly once
func (s *session) release() error {
	transport := s.transport
	s.transport = nil
	s.initialized = false
	if transport == nil {
		return nil
	}
	if err := transport.Close(); err != nil {
		s.logger.Error("Failed to release transport", zap.Error(err))
		return err
	}
	return nil
}

// Flush waits for the transport to drain, bounded by the flush timeout
func (s *session) Flush(ctx context.Context) error {
	if err := s.checkState("flush"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.flushTimeout)
	defer cancel()

	err := s.transport.Drain(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("Flush timed out", zap.Duration("timeout", s.flushTimeout))
		return fmt.Errorf("%w after %s: %w", ErrFlushTimeout, s.flushTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: drain failed: %w", ErrTransport, err)
	}
}

func (s *session) Reset(ctx context.Context) error {
	return s.exec(ctx, "reset", escpos.Reset())
}

func (s *session) SetBold(ctx context.Context, on bool) error {
	return s.exec(ctx, "set bold", escpos.Bold(on))
}

func (s *session) SetUnderline(ctx context.Context, style escpos.UnderlineStyle) error {
	return s.exec(ctx, "set underline", escpos.Underline(style))
}

func (s *session) SetJustification(ctx context.Context, j escpos.Justification) error {
	return s.exec(ctx, "set justification", escpos.Justify(j))
}

func (s *session) JustifyLeft(ctx context.Context) error {
	return s.SetJustification(ctx, escpos.JustifyLeft)
}

func (s *session) JustifyCenter(ctx context.Context) error {
	return s.SetJustification(ctx, escpos.JustifyCenter)
}

func (s *session) JustifyRight(ctx context.Context) error {
	return s.SetJustification(ctx, escpos.JustifyRight)
}

func (s *session) SetTextSize(ctx context.Context, width, height uint8) error {
	return s.exec(ctx, "set text size", escpos.TextSize(width, height))
}

func (s *session) SetReverse(ctx context.Context, on bool) error {
	return s.exec(ctx, "set reverse", escpos.Reverse(on))
}

func (s *session) SetItalic(ctx context.Context, on bool) error {
	return s.exec(ctx, "set italic", escpos.Italic(on))
}

// PrintText writes text without a line ending. Empty text writes nothing.
func (s *session) PrintText(ctx context.Context, text string) error {
	if err := s.checkState("print text"); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	return s.send(ctx, "print text", escpos.Text(text))
}

// PrintLine writes line followed by CR LF. Empty lines write nothing.
func (s *session) PrintLine(ctx context.Context, line string) error {
	if err := s.checkState("print line"); err != nil {
		return err
	}
	if line == "" {
		return nil
	}
	return s.send(ctx, "print line", escpos.Line(line))
}

func (s *session) PrintSeparator(ctx context.Context, c byte) error {
	return s.PrintLine(ctx, escpos.SeparatorLine(c, escpos.DefaultLineWidth))
}

// PrintTimestamp prints the clock's current local time as a line
func (s *session) PrintTimestamp(ctx context.Context) error {
	if err := s.checkState("print timestamp"); err != nil {
		return err
	}
	return s.PrintLine(ctx, escpos.Timestamp(s.now()))
}

func (s *session) PrintItemPrice(ctx context.Context, item, price string, width int) error {
	return s.PrintLine(ctx, escpos.ItemPriceLine(item, price, width))
}

// PrintBitmap sends a GS v 0 raster. data must hold exactly (width/8)*height
// bytes. Header and payload go out in one write so the printer never sees a
// header without its raster.
func (s *session) PrintBitmap(ctx context.Context, data []byte, width, height uint16) error {
	if err := s.checkState("print bitmap"); err != nil {
		return err
	}
	if err := escpos.ValidateBitmap(data, width, height); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	header := escpos.BitmapHeader(width, height)
	frame := make([]byte, 0, len(header)+len(data))
	frame = append(frame, header...)
	frame = append(frame, data...)
	return s.send(ctx, "print bitmap", frame)
}

func (s *session) PrintQR(ctx context.Context, data []byte, moduleSize uint8, level escpos.QRErrorCorrection) error {
	if err := s.checkState("print qr"); err != nil {
		return err
	}
	cmd, err := escpos.QRCode(data, moduleSize, level)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return s.send(ctx, "print qr", cmd)
}

// Write passes pre-encoded bytes through unchanged
func (s *session) Write(ctx context.Context, raw []byte) error {
	if err := s.checkState("write"); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return s.send(ctx, "write", raw)
}

func (s *session) FeedLines(ctx context.Context, n uint8) error {
	return s.exec(ctx, "feed lines", escpos.FeedLines(n))
}

// Cut waits for the settle delay so buffered text finishes before the blade fires
func (s *session) Cut(ctx context.Context, mode escpos.CutMode) error {
	if err := s.checkState("cut"); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}
	if err := s.send(ctx, "cut", escpos.Cut(mode)); err != nil {
		return err
	}
	s.logger.Debug("Paper cut", zap.Stringer("mode", mode))
	return nil
}

func (s *session) OpenDrawer(ctx context.Context, pin escpos.DrawerPin) error {
	return s.exec(ctx, "open drawer", escpos.DrawerKick(pin))
}

func (s *session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *session) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.cfg
}

func (s *session) Initialized() bool {
	return s != nil && s.initialized
}

// Helper methods

func (s *session) checkState(op string) error {
	if s == nil || !s.initialized {
		return fmt.Errorf("%s: %w", op, ErrInvalidState)
	}
	return nil
}

func (s *session) exec(ctx context.Context, op string, cmd []byte) error {
	if err := s.checkState(op); err != nil {
		return err
	}
	return s.send(ctx, op, cmd)
}

// send performs exactly one transport write. Partial writes fail the
// operation; the remainder is never resent.
func (s *session) send(ctx context.Context, op string, p []byte) error {
	if err := s.checkState(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := s.transport.Write(ctx, p)
	if err != nil {
		s.logger.Error("Transport write failed",
			zap.String("operation", op),
			zap.Int("bytes_to_write", len(p)),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	if n != len(p) {
		s.logger.Error("Incomplete transport write",
			zap.String("operation", op),
			zap.Int("bytes_written", n),
			zap.Int("bytes_to_write", len(p)),
		)
		return fmt.Errorf("%s: %w: %w: wrote %d of %d bytes", op, ErrTransport, ErrShortWrite, n, len(p))
	}

	s.logger.Debug("Command written",
		zap.String("operation", op),
		zap.Int("bytes_written", n),
		zap.Binary("data", p),
	)
	return nil
}

func (s *session) settle(ctx context.Context) error {
	if s.settleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.settleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
