// cmd/printer/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"escpos-printer/internal/config"
	"escpos-printer/internal/routes"
	"escpos-printer/internal/service"
	"escpos-printer/internal/transport"
	"escpos-printer/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	printService *service.PrintService
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml (searched in ., ./config and /etc/escpos-printer when empty)")
	listPorts := flag.Bool("list-ports", false, "list serial ports and USB printers and exit")
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		app.logger.Error("Application failed", zap.Error(err))
		_ = utils.CloseLogger(app.logger)
		os.Exit(1)
	}
}

// printPorts lists candidate printer.port values for the serial and usb transports
func printPorts() error {
	ports, err := transport.ListSerialPorts()
	if err != nil {
		return err
	}
	for _, port := range ports {
		fmt.Printf("serial\t%s\n", port)
	}

	printers, err := transport.ListUSBPrinters()
	if err != nil {
		return err
	}
	for _, p := range printers {
		fmt.Printf("usb\t%s\t%s %s\n", p.PortID, p.Vendor, p.Model)
	}
	return nil
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "escpos-printer")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if cfg.App.Mode == config.ModeServe {
		app.initializeServer()
	}

	return app, nil
}

// initializeServices creates the transport dialer and the print service
func (app *Application) initializeServices() error {
	dialer, err := transport.NewDialer(app.config.TransportKind(), app.logger)
	if err != nil {
		return err
	}

	app.printService, err = service.NewPrintService(app.config, dialer, app.logger)
	if err != nil {
		return err
	}

	app.logger.Info("Services initialized successfully",
		zap.String("transport", app.config.Printer.Transport),
		zap.String("port", app.config.Printer.Port),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(app.config, app.logger, app.printService)
	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// Run executes the configured mode
func (app *Application) Run() error {
	if app.config.App.Mode == config.ModeDemo {
		return app.runDemo()
	}
	return app.serve()
}

// runDemo prints the sample receipt once and releases the printer
func (app *Application) runDemo() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if err := app.printService.Close(); err != nil {
			app.logger.Error("Printer close error", zap.Error(err))
		}
		_ = utils.CloseLogger(app.logger)
	}()

	result, err := app.printService.PrintDemo(ctx)
	if err != nil {
		return fmt.Errorf("demo failed: %w", err)
	}

	app.logger.Info("Demo printed",
		zap.String("job_id", result.JobID),
		zap.Bool("flushed", result.Flushed),
		zap.String("duration", result.Duration),
	)
	return nil
}

// serve runs the HTTP API until a shutdown signal arrives. The printer is
// opened eagerly so a missing device shows up in the logs at startup; a
// failure here is not fatal, the first job retries.
func (app *Application) serve() error {
	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := app.printService.Open(openCtx); err != nil {
		app.logger.Warn("Printer not available at startup", zap.Error(err))
	}
	cancel()

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	return app.waitForShutdown(serverErr)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown(serverErr <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}

	app.shutdown()
	return runErr
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "escpos-printer")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// In-flight jobs have finished once Shutdown returns
	if err := app.printService.Close(); err != nil {
		app.logger.Error("Printer close error", zap.Error(err))
	} else {
		app.logger.Info("Printer released")
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
