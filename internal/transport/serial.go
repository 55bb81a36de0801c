// internal/transport/serial.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"escpos-printer/pkg/printer"
)

// SerialDialer opens UART printers with go.bug.st/serial
type SerialDialer struct {
	logger *zap.Logger
	open   func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialDialer creates a serial dialer
func NewSerialDialer(logger *zap.Logger) *SerialDialer {
	return &SerialDialer{
		logger: logger.With(zap.String("protocol", "serial")),
		open:   serial.Open,
	}
}

// Dial opens cfg.PortID at cfg.BaudRate, 8N1. Writes go straight to the
// driver's TX queue in chunks of at most cfg.TxBufferSize bytes.
func (d *SerialDialer) Dial(ctx context.Context, cfg printer.Config) (printer.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := d.logger.With(zap.String("port", cfg.PortID))
	logger.Info("Opening serial port",
		zap.Int("baud_rate", cfg.BaudRate),
		zap.Int("tx_buffer_size", cfg.TxBufferSize),
		zap.Int("tx_pin", cfg.TxPin),
		zap.Int("rx_pin", cfg.RxPin),
	)
	if !cfg.HasRxPin() {
		logger.Debug("No RX pin assigned, port used write-only")
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := d.open(cfg.PortID, mode)
	if err != nil {
		logger.Error("Failed to open serial port", zap.Error(err))
		if isPortBusy(err) {
			return nil, fmt.Errorf("%w: serial port %s: %w", printer.ErrResourceExhausted, cfg.PortID, err)
		}
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	logger.Info("Serial port opened successfully")
	return newSerialTransport(port, cfg.TxBufferSize, logger), nil
}

func isPortBusy(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortBusy
	}
	var portErrValue serial.PortError
	if errors.As(err, &portErrValue) {
		return portErrValue.Code() == serial.PortBusy
	}
	return false
}

type serialTransport struct {
	port      serial.Port
	chunkSize int
	logger    *zap.Logger
	mutex     sync.Mutex
	closed    bool
}

func newSerialTransport(port serial.Port, bufferSize int, logger *zap.Logger) *serialTransport {
	if bufferSize <= 0 {
		bufferSize = printer.DefaultTxBufferSize
	}
	return &serialTransport{
		port:      port,
		chunkSize: bufferSize,
		logger:    logger,
	}
}

// Write hands p to the port before returning. ctx is only checked before
// the first chunk so a command is never cut in half.
func (st *serialTransport) Write(ctx context.Context, p []byte) (int, error) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if st.closed {
		return 0, fmt.Errorf("serial port not open")
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	written := 0
	for written < len(p) {
		chunk := p[written:min(written+st.chunkSize, len(p))]
		n, err := st.port.Write(chunk)
		written += n
		if err != nil {
			st.logger.Error("Serial write failed",
				zap.Int("bytes_written", written),
				zap.Int("bytes_to_write", len(p)),
				zap.Error(err),
			)
			return written, fmt.Errorf("failed to write to serial port: %w", err)
		}
		if n != len(chunk) {
			st.logger.Warn("Incomplete serial write",
				zap.Int("bytes_written", written),
				zap.Int("bytes_to_write", len(p)),
			)
			return written, nil
		}
	}

	st.logger.Debug("Serial write completed", zap.Int("bytes", written))
	return written, nil
}

// Drain waits for the UART to empty. The wait is abandoned when ctx ends;
// the port keeps transmitting.
func (st *serialTransport) Drain(ctx context.Context) error {
	st.mutex.Lock()
	if st.closed {
		st.mutex.Unlock()
		return fmt.Errorf("serial port not open")
	}
	port := st.port
	st.mutex.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- port.Drain()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to drain serial port: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the port
func (st *serialTransport) Close() error {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if st.closed {
		return nil
	}
	st.closed = true

	if err := st.port.Close(); err != nil {
		st.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	st.logger.Info("Serial port closed successfully")
	return nil
}

// ListSerialPorts returns the serial ports present on the host
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
