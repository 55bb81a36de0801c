// Package printertest provides a recording transport for exercising
// printer sessions without hardware.
package printertest

import (
	"bytes"
	"context"
	"sync"

	"escpos-printer/pkg/printer"
)

// Recorder is an in-memory printer.Transport. It records every write and
// counts drains and closes. Failures can be injected through the exported
// fields before use.
type Recorder struct {
	mu sync.Mutex

	writes     [][]byte
	drainCount int
	closeCount int
	dialed     []printer.Config

	// WriteErr is returned by every Write when set
	WriteErr error
	// FailAfter makes writes fail with WriteErr once this many writes succeeded (0 = immediately)
	FailAfter int
	// ShortWrite makes Write accept one byte fewer than requested
	ShortWrite bool
	// DrainErr is returned by Drain when set
	DrainErr error
	// DrainBlocks makes Drain wait for ctx to finish
	DrainBlocks bool
	// CloseErr is returned by Close when set
	CloseErr error
	// DialErr is returned by Dial when set
	DialErr error
	// AfterWrite runs after every recorded write, outside the lock
	AfterWrite func()
}

// New returns an empty recorder
func New() *Recorder {
	return &Recorder{}
}

// Dial implements printer.Dialer and hands out the recorder itself
func (r *Recorder) Dial(ctx context.Context, cfg printer.Config) (printer.Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dialed = append(r.dialed, cfg)
	if r.DialErr != nil {
		return nil, r.DialErr
	}
	return r, nil
}

// Write records p
func (r *Recorder) Write(ctx context.Context, p []byte) (int, error) {
	r.mu.Lock()
	if r.WriteErr != nil && len(r.writes) >= r.FailAfter {
		r.mu.Unlock()
		return 0, r.WriteErr
	}
	n := len(p)
	if r.ShortWrite && n > 0 {
		n--
	}
	r.writes = append(r.writes, append([]byte(nil), p[:n]...))
	after := r.AfterWrite
	r.mu.Unlock()

	if after != nil {
		after()
	}
	return n, nil
}

// Drain counts the call
func (r *Recorder) Drain(ctx context.Context) error {
	r.mu.Lock()
	r.drainCount++
	blocks, err := r.DrainBlocks, r.DrainErr
	r.mu.Unlock()

	if blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// Close counts the call
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeCount++
	return r.CloseErr
}

// Writes returns a copy of every recorded write
func (r *Recorder) Writes() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, len(r.writes))
	for i, w := range r.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// WriteCount returns the number of recorded writes
func (r *Recorder) WriteCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

// Bytes returns all recorded writes concatenated
func (r *Recorder) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Join(r.writes, nil)
}

// Reset forgets recorded writes but keeps counters and injected failures
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
}

// DrainCount returns how many times Drain was called
func (r *Recorder) DrainCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drainCount
}

// CloseCount returns how many times Close was called
func (r *Recorder) CloseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCount
}

// Dialed returns the configurations passed to Dial
func (r *Recorder) Dialed() []printer.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]printer.Config(nil), r.dialed...)
}
