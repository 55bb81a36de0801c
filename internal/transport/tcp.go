// internal/transport/tcp.go
package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"escpos-printer/pkg/printer"
)

// Raw TCP defaults
const (
	DefaultTCPPort      = 9100
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
)

// TCPDialer connects to network printers on their raw port. PortID is
// "host:port" or just "host" for port 9100.
type TCPDialer struct {
	logger       *zap.Logger
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

// NewTCPDialer creates a TCP dialer
func NewTCPDialer(logger *zap.Logger) *TCPDialer {
	return &TCPDialer{
		logger:       logger.With(zap.String("protocol", "tcp")),
		dialTimeout:  DefaultDialTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
}

// Dial opens the connection
func (d *TCPDialer) Dial(ctx context.Context, cfg printer.Config) (printer.Transport, error) {
	address, err := tcpAddress(cfg.PortID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", printer.ErrInvalidArgument, err)
	}

	logger := d.logger.With(zap.String("address", address))
	logger.Info("Opening TCP connection")

	dialer := &net.Dialer{
		Timeout:   d.dialTimeout,
		KeepAlive: 30 * time.Second,
	}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		logger.Error("Failed to open TCP connection", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	logger.Info("TCP connection opened successfully")
	return &tcpTransport{
		conn:         conn,
		writeTimeout: d.writeTimeout,
		logger:       logger,
	}, nil
}

// tcpAddress normalises a port id to host:port
func tcpAddress(portID string) (string, error) {
	if portID == "" {
		return "", fmt.Errorf("TCP host is required")
	}

	host, port, err := net.SplitHostPort(portID)
	if err != nil {
		// No port given
		return net.JoinHostPort(portID, strconv.Itoa(DefaultTCPPort)), nil
	}
	if host == "" {
		return "", fmt.Errorf("TCP host is required")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return "", fmt.Errorf("invalid port number: %s", port)
	}
	return net.JoinHostPort(host, port), nil
}

type tcpTransport struct {
	conn         net.Conn
	writeTimeout time.Duration
	logger       *zap.Logger
	mutex        sync.Mutex
	closed       bool
}

func (tt *tcpTransport) Write(ctx context.Context, p []byte) (int, error) {
	tt.mutex.Lock()
	defer tt.mutex.Unlock()

	if tt.closed {
		return 0, fmt.Errorf("TCP connection not open")
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	deadline := time.Now().Add(tt.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := tt.conn.SetWriteDeadline(deadline); err != nil {
		tt.logger.Warn("Failed to set write deadline", zap.Error(err))
	}

	n, err := tt.conn.Write(p)
	if err != nil {
		tt.logger.Error("TCP write failed", zap.Error(err))
		return n, fmt.Errorf("failed to write to TCP connection: %w", err)
	}

	tt.logger.Debug("TCP write completed", zap.Int("bytes", n))
	return n, nil
}

// Drain returns once the kernel has accepted every write. Raw port printers
// give no transmit-complete signal.
func (tt *tcpTransport) Drain(ctx context.Context) error {
	tt.mutex.Lock()
	defer tt.mutex.Unlock()

	if tt.closed {
		return fmt.Errorf("TCP connection not open")
	}
	return ctx.Err()
}

func (tt *tcpTransport) Close() error {
	tt.mutex.Lock()
	defer tt.mutex.Unlock()

	if tt.closed {
		return nil
	}
	tt.closed = true

	if err := tt.conn.Close(); err != nil {
		tt.logger.Error("Failed to close TCP connection", zap.Error(err))
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}

	tt.logger.Info("TCP connection closed successfully")
	return nil
}
