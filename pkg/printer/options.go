// pkg/printer/options.go
package printer

import (
	"time"

	"go.uber.org/zap"
)

// Option customises a session at Open
type Option func(*session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source used by PrintTimestamp
func WithClock(now func() time.Time) Option {
	return func(s *session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSettleDelay sets the wait after reset and before a cut. Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(s *session) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithFlushTimeout bounds Flush
func WithFlushTimeout(d time.Duration) Option {
	return func(s *session) {
		if d > 0 {
			s.flushTimeout = d
		}
	}
}
