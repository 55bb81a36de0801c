package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"escpos-printer/pkg/escpos"
	"escpos-printer/pkg/printer"
)

// fakePort records what reaches the UART
type fakePort struct {
	mu         sync.Mutex
	written    bytes.Buffer
	writeCalls int
	writeTimes []time.Time
	writeErr   error
	drains     int
	closed     bool
	drainWait  chan struct{}
	drainErr   error
}

func (p *fakePort) SetMode(*serial.Mode) error { return nil }
func (p *fakePort) Read([]byte) (int, error)   { return 0, nil }
func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writeCalls++
	p.writeTimes = append(p.writeTimes, time.Now())
	return p.written.Write(b)
}
func (p *fakePort) Drain() error {
	p.mu.Lock()
	p.drains++
	wait, err := p.drainWait, p.drainErr
	p.mu.Unlock()
	if wait != nil {
		<-wait
	}
	return err
}
func (p *fakePort) ResetInputBuffer() error  { return nil }
func (p *fakePort) ResetOutputBuffer() error { return nil }
func (p *fakePort) SetDTR(bool) error        { return nil }
func (p *fakePort) SetRTS(bool) error        { return nil }
func (p *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}
func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }
func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
func (p *fakePort) Break(time.Duration) error { return nil }

func (p *fakePort) bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func (p *fakePort) times() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.writeTimes...)
}

func newTestSerialDialer(port *fakePort, openErr error) (*SerialDialer, *serial.Mode) {
	var gotMode serial.Mode
	d := NewSerialDialer(zap.NewNop())
	d.open = func(name string, mode *serial.Mode) (serial.Port, error) {
		gotMode = *mode
		if openErr != nil {
			return nil, openErr
		}
		return port, nil
	}
	return d, &gotMode
}

func TestSerialDialConfiguresPort(t *testing.T) {
	port := &fakePort{}
	d, mode := newTestSerialDialer(port, nil)

	tr, err := d.Dial(context.Background(), printer.Config{PortID: "/dev/ttyS0", BaudRate: 19200, TxBufferSize: 2048, RxPin: printer.NoPin})
	require.NoError(t, err)
	require.NotNil(t, tr)

	assert.Equal(t, 19200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
}

func TestSerialDialPortBusy(t *testing.T) {
	// The zero PortError carries the PortBusy code
	d, _ := newTestSerialDialer(nil, &serial.PortError{})

	_, err := d.Dial(context.Background(), printer.Config{PortID: "/dev/ttyS0", BaudRate: 19200})
	assert.ErrorIs(t, err, printer.ErrResourceExhausted)
}

func TestSerialDialOtherFailure(t *testing.T) {
	openErr := errors.New("no such device")
	d, _ := newTestSerialDialer(nil, openErr)

	_, err := d.Dial(context.Background(), printer.Config{PortID: "/dev/ttyS9", BaudRate: 19200})
	assert.ErrorIs(t, err, openErr)
	assert.NotErrorIs(t, err, printer.ErrResourceExhausted)
}

func TestSerialWritesReachPortImmediately(t *testing.T) {
	port := &fakePort{}
	tr := newSerialTransport(port, 64, zap.NewNop())
	ctx := context.Background()

	n, err := tr.Write(ctx, []byte{0x1B, 0x40})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{0x1B, 0x40}, port.bytes())

	n, err = tr.Write(ctx, []byte("hello\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, append([]byte{0x1B, 0x40}, "hello\r\n"...), port.bytes())
	assert.Zero(t, port.drains)
}

func TestSerialWriteChunksAtTxBufferSize(t *testing.T) {
	port := &fakePort{}
	tr := newSerialTransport(port, 4, zap.NewNop())

	payload := []byte("0123456789")
	n, err := tr.Write(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, port.bytes())
	assert.Equal(t, 3, port.writeCalls)
}

func TestSerialWriteFailure(t *testing.T) {
	writeErr := errors.New("input/output error")
	port := &fakePort{writeErr: writeErr}
	tr := newSerialTransport(port, 64, zap.NewNop())

	n, err := tr.Write(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, writeErr)
	assert.Zero(t, n)
}

func TestSerialWriteHonoursCancelledContext(t *testing.T) {
	port := &fakePort{}
	tr := newSerialTransport(port, 64, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Write(ctx, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, port.bytes())
}

func TestSerialDrainHonoursContext(t *testing.T) {
	port := &fakePort{drainWait: make(chan struct{})}
	defer close(port.drainWait)
	tr := newSerialTransport(port, 64, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tr.Drain(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSerialDrainFailure(t *testing.T) {
	drainErr := errors.New("tcdrain failed")
	port := &fakePort{drainErr: drainErr}
	tr := newSerialTransport(port, 64, zap.NewNop())

	assert.ErrorIs(t, tr.Drain(context.Background()), drainErr)
}

func TestSerialCloseIsIdempotent(t *testing.T) {
	port := &fakePort{}
	tr := newSerialTransport(port, 64, zap.NewNop())

	_, err := tr.Write(context.Background(), []byte("tail"))
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	assert.True(t, port.closed)
	assert.Equal(t, []byte("tail"), port.bytes())

	require.NoError(t, tr.Close())

	_, err = tr.Write(context.Background(), []byte("x"))
	assert.Error(t, err)
	assert.Error(t, tr.Drain(context.Background()))
}

func TestSerialSessionEndToEnd(t *testing.T) {
	port := &fakePort{}
	d, _ := newTestSerialDialer(port, nil)

	p, err := printer.Open(context.Background(), printer.Config{PortID: "/dev/ttyS0"}, d, printer.WithSettleDelay(0))
	require.NoError(t, err)

	require.NoError(t, p.PrintLine(context.Background(), "Hi"))
	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Close())

	assert.Equal(t, []byte{0x1B, 0x40, 'H', 'i', 0x0D, 0x0A}, port.bytes())
	assert.True(t, port.closed)
}

func TestSerialSettleDelaysFollowTransmission(t *testing.T) {
	const settle = 30 * time.Millisecond
	port := &fakePort{}
	d, _ := newTestSerialDialer(port, nil)
	ctx := context.Background()

	p, err := printer.Open(ctx, printer.Config{PortID: "/dev/ttyS0"}, d, printer.WithSettleDelay(settle))
	require.NoError(t, err)
	defer p.Close()
	opened := time.Now()

	require.Equal(t, []byte{0x1B, 0x40}, port.bytes(), "reset is on the wire when Open returns")
	assert.GreaterOrEqual(t, opened.Sub(port.times()[0]), settle, "settle starts after the reset is sent")

	require.NoError(t, p.PrintLine(ctx, "TEXT"))
	require.NoError(t, p.Cut(ctx, escpos.CutPartial))

	want := []byte{0x1B, 0x40, 'T', 'E', 'X', 'T', 0x0D, 0x0A, 0x1D, 0x56, 0x01}
	assert.Equal(t, want, port.bytes())

	times := port.times()
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), settle, "text is sent a full settle delay before the cut")
}

func TestSerialOpenReportsResetFailure(t *testing.T) {
	port := &fakePort{writeErr: errors.New("input/output error")}
	d, _ := newTestSerialDialer(port, nil)

	p, err := printer.Open(context.Background(), printer.Config{PortID: "/dev/ttyS0"}, d, printer.WithSettleDelay(0))
	assert.ErrorIs(t, err, printer.ErrTransport)
	assert.Nil(t, p)
	assert.True(t, port.closed)
}
