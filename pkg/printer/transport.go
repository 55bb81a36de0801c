// pkg/printer/transport.go
package printer

import "context"

// Transport is the byte sink a session writes to. The session never reads.
type Transport interface {
	// Write hands p to the transport and reports how many bytes it accepted
	Write(ctx context.Context, p []byte) (int, error)

	// Drain blocks until queued bytes have left the transport or ctx is done
	Drain(ctx context.Context) error

	// Close releases the transport
	Close() error
}

// Dialer acquires a transport configured from a resolved Config
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context, cfg Config) (Transport, error)

// Dial calls f(ctx, cfg)
func (f DialerFunc) Dial(ctx context.Context, cfg Config) (Transport, error) {
	return f(ctx, cfg)
}
