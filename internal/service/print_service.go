// internal/service/print_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-printer/internal/config"
	"escpos-printer/internal/utils"
	"escpos-printer/pkg/printer"
)

// PrintService owns the single printer session and serialises every job on
// it. A job holds the lock from its first command to its final flush, so two
// documents never interleave on paper.
type PrintService struct {
	mutex      sync.Mutex
	dialer     printer.Dialer
	sessionCfg printer.Config
	options    []printer.Option
	printerCfg config.PrinterConfig
	transport  string
	session    printer.Printer
	logo       *Bitmap

	logger        *utils.ServiceLogger
	printerLogger *utils.PrinterLogger

	jobsPrinted int64
	jobsFailed  int64
	lastJobAt   time.Time
	lastError   string
}

// NewPrintService creates a print service. The session is opened lazily by
// the first job or explicitly with Open. A configured logo is loaded here
// so a bad file fails startup instead of the first receipt.
func NewPrintService(cfg *config.Config, dialer printer.Dialer, logger *zap.Logger) (*PrintService, error) {
	if dialer == nil {
		return nil, fmt.Errorf("%w: dialer is required", printer.ErrInvalidArgument)
	}

	ps := &PrintService{
		dialer:        dialer,
		sessionCfg:    cfg.SessionConfig(),
		printerCfg:    cfg.Printer,
		transport:     cfg.Printer.Transport,
		logger:        utils.NewServiceLogger(logger, "print-service"),
		printerLogger: utils.NewPrinterLogger(logger, cfg.Printer.Transport, cfg.Printer.Port),
		options: []printer.Option{
			printer.WithLogger(logger.With(zap.String("component", "session"))),
			printer.WithSettleDelay(cfg.Printer.SettleDelay),
			printer.WithFlushTimeout(cfg.Printer.FlushTimeout),
		},
	}

	if cfg.Printer.LogoPath != "" {
		logo, err := LoadBitmap(cfg.Printer.LogoPath, uint8(cfg.Printer.LogoThreshold))
		if err != nil {
			return nil, fmt.Errorf("failed to load logo: %w", err)
		}
		ps.logo = logo
		ps.logger.Info("Logo loaded",
			zap.String("path", cfg.Printer.LogoPath),
			zap.Uint16("width", logo.Width),
			zap.Uint16("height", logo.Height),
		)
	}

	return ps, nil
}

// Open opens the printer session if it is not open yet
func (ps *PrintService) Open(ctx context.Context) error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	_, err := ps.ensureSession(ctx)
	return err
}

// Close releases the printer session
func (ps *PrintService) Close() error {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	return ps.closeSession()
}

// Ready reports whether a session is open
func (ps *PrintService) Ready() bool {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	return ps.session != nil && ps.session.Initialized()
}

// Status returns the session and job counters
func (ps *PrintService) Status() *PrinterStatus {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	status := &PrinterStatus{
		Transport:    ps.transport,
		Port:         ps.sessionCfg.PortID,
		BaudRate:     ps.sessionCfg.BaudRate,
		TxBufferSize: ps.sessionCfg.TxBufferSize,
		LineWidth:    ps.printerCfg.LineWidth,
		LogoLoaded:   ps.logo != nil,
		JobsPrinted:  ps.jobsPrinted,
		JobsFailed:   ps.jobsFailed,
		LastError:    ps.lastError,
	}
	if ps.session != nil && ps.session.Initialized() {
		status.Connected = true
		status.SessionID = ps.session.ID()
		cfg := ps.session.Config()
		status.BaudRate = cfg.BaudRate
		status.TxBufferSize = cfg.TxBufferSize
	}
	if !ps.lastJobAt.IsZero() {
		lastJobAt := ps.lastJobAt
		status.LastJobAt = &lastJobAt
	}
	return status
}

// run executes one job under the service lock and flushes afterwards.
// A transport failure drops the session so the next job redials.
func (ps *PrintService) run(ctx context.Context, jobType string, job func(ctx context.Context, p printer.Printer) error) (*JobResult, error) {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	opLogger := utils.NewOperationLogger(ps.logger.Logger, jobType, uuid.NewString())
	jobID := opLogger.ID()
	opLogger.Start()

	session, err := ps.ensureSession(ctx)
	if err != nil {
		ps.recordFailure(err)
		opLogger.Error(err)
		return nil, &JobError{JobID: jobID, Type: jobType, Err: err}
	}

	if err := job(ctx, session); err != nil {
		ps.recordFailure(err)
		ps.dropOnTransportFailure(err)
		opLogger.Error(err)
		ps.printerLogger.LogJob(jobType, jobID, opLogger.Elapsed(), err)
		return nil, &JobError{JobID: jobID, Type: jobType, Err: err}
	}

	flushed := true
	if err := session.Flush(ctx); err != nil {
		if !errors.Is(err, printer.ErrFlushTimeout) {
			ps.recordFailure(err)
			ps.dropOnTransportFailure(err)
			opLogger.Error(err)
			ps.printerLogger.LogJob(jobType, jobID, opLogger.Elapsed(), err)
			return nil, &JobError{JobID: jobID, Type: jobType, Err: err}
		}
		// The bytes are with the transport; the printer keeps going
		flushed = false
		ps.logger.Warn("Job flushed partially", zap.String("job_id", jobID), zap.Error(err))
	}

	ps.jobsPrinted++
	ps.lastJobAt = time.Now()
	ps.lastError = ""

	elapsed := opLogger.Elapsed()
	opLogger.Success(zap.Bool("flushed", flushed))
	ps.printerLogger.LogJob(jobType, jobID, elapsed, nil)

	return &JobResult{
		JobID:     jobID,
		Type:      jobType,
		SessionID: session.ID(),
		Flushed:   flushed,
		Duration:  elapsed.String(),
	}, nil
}

// ensureSession returns the open session, dialing a new one when needed.
// Caller holds the lock.
func (ps *PrintService) ensureSession(ctx context.Context) (printer.Printer, error) {
	if ps.session != nil && ps.session.Initialized() {
		return ps.session, nil
	}

	session, err := printer.Open(ctx, ps.sessionCfg, ps.dialer, ps.options...)
	if err != nil {
		ps.printerLogger.LogConnection("open", "", err)
		return nil, fmt.Errorf("failed to open printer: %w", err)
	}

	ps.session = session
	ps.printerLogger.LogConnection("open", session.ID(), nil)
	return session, nil
}

// closeSession releases the session. Caller holds the lock.
func (ps *PrintService) closeSession() error {
	if ps.session == nil {
		return nil
	}
	session := ps.session
	ps.session = nil

	err := session.Close()
	ps.printerLogger.LogConnection("close", session.ID(), err)
	return err
}

func (ps *PrintService) dropOnTransportFailure(err error) {
	if !errors.Is(err, printer.ErrTransport) {
		return
	}
	if closeErr := ps.closeSession(); closeErr != nil {
		utils.LogError(ps.logger.Logger, "Failed to release printer after transport failure", closeErr)
	}
}

func (ps *PrintService) recordFailure(err error) {
	ps.jobsFailed++
	ps.lastJobAt = time.Now()
	ps.lastError = err.Error()
}

// JobError is a print job that failed after it was accepted. It unwraps to
// the printer error so callers can classify it with errors.Is.
type JobError struct {
	JobID string
	Type  string
	Err   error
}

func (e *JobError) Error() string {
	return e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// JobResult describes a completed print job
type JobResult struct {
	JobID     string `json:"job_id"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Flushed   bool   `json:"flushed"`
	Duration  string `json:"duration"`
}

// PrinterStatus is a snapshot of the printer session
type PrinterStatus struct {
	Connected    bool       `json:"connected"`
	SessionID    string     `json:"session_id,omitempty"`
	Transport    string     `json:"transport"`
	Port         string     `json:"port"`
	BaudRate     int        `json:"baud_rate"`
	TxBufferSize int        `json:"tx_buffer_size"`
	LineWidth    int        `json:"line_width"`
	LogoLoaded   bool       `json:"logo_loaded"`
	JobsPrinted  int64      `json:"jobs_printed"`
	JobsFailed   int64      `json:"jobs_failed"`
	LastJobAt    *time.Time `json:"last_job_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}
