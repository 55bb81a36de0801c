// pkg/printer/errors.go
package printer

import "errors"

// Error kinds. Returned errors wrap one of these; test with errors.Is.
var (
	// ErrInvalidArgument reports missing or malformed input. No I/O was attempted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState reports an operation on a session that is not initialized
	ErrInvalidState = errors.New("printer session not initialized")

	// ErrTransport reports a configure or write failure from the transport.
	// The transport's own error stays in the chain.
	ErrTransport = errors.New("transport failure")

	// ErrResourceExhausted reports that the transport could not be acquired
	// because it is held elsewhere
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrFlushTimeout reports that queued bytes did not drain in time. The
	// session stays usable.
	ErrFlushTimeout = errors.New("flush timed out")

	// ErrShortWrite reports a write that accepted fewer bytes than requested
	ErrShortWrite = errors.New("short write")
)
