package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escpos-printer/internal/transport"
	"escpos-printer/pkg/printer"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "serial", cfg.Printer.Transport)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Printer.Port)
	assert.Equal(t, 19200, cfg.Printer.BaudRate)
	assert.Equal(t, 2048, cfg.Printer.TxBufferSize)
	assert.Equal(t, printer.NoPin, cfg.Printer.RxPin)
	assert.Equal(t, 100*time.Millisecond, cfg.Printer.SettleDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Printer.FlushTimeout)
	assert.Equal(t, 32, cfg.Printer.LineWidth)
	assert.Equal(t, 128, cfg.Printer.LogoThreshold)

	assert.Equal(t, "0.0.0.0:8084", cfg.GetServerAddr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, 65536, cfg.Security.MaxRawBytes)
	assert.Equal(t, int64(87384+16*1024), cfg.Security.MaxBodyBytes())
	assert.Equal(t, ModeServe, cfg.App.Mode)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsDebugEnabled())
	assert.Equal(t, transport.KindSerial, cfg.TransportKind())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printer.yaml")
	content := `
printer:
  transport: TCP
  port: 192.168.1.60:9100
  baud_rate: 9600
  flush_timeout: 250ms
  line_width: 48
server:
  port: "9090"
app:
  mode: demo
  environment: production
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Printer.Transport, "kind is normalised")
	assert.Equal(t, 250*time.Millisecond, cfg.Printer.FlushTimeout)
	assert.Equal(t, 48, cfg.Printer.LineWidth)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, ModeDemo, cfg.App.Mode)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDebugEnabled())

	session := cfg.SessionConfig()
	assert.Equal(t, "192.168.1.60:9100", session.PortID)
	assert.Equal(t, 9600, session.BaudRate)
	assert.Equal(t, 2048, session.TxBufferSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ESCPOS_PRINTER_TRANSPORT", "usb")
	t.Setenv("ESCPOS_PRINTER_PORT", "0416:5011")
	t.Setenv("ESCPOS_PRINTER_SETTLE_DELAY", "0s")
	t.Setenv("ESCPOS_SERVER_PORT", "8181")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, transport.KindUSB, cfg.TransportKind())
	assert.Equal(t, "0416:5011", cfg.Printer.Port)
	assert.Zero(t, cfg.Printer.SettleDelay)
	assert.Equal(t, "8181", cfg.Server.Port)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown transport", env: map[string]string{"ESCPOS_PRINTER_TRANSPORT": "bluetooth"}},
		{name: "bad usb port", env: map[string]string{"ESCPOS_PRINTER_TRANSPORT": "usb", "ESCPOS_PRINTER_PORT": "printer"}},
		{name: "zero flush timeout", env: map[string]string{"ESCPOS_PRINTER_FLUSH_TIMEOUT": "0s"}},
		{name: "threshold range", env: map[string]string{"ESCPOS_PRINTER_LOGO_THRESHOLD": "300"}},
		{name: "unknown mode", env: map[string]string{"ESCPOS_APP_MODE": "daemon"}},
		{name: "unknown environment", env: map[string]string{"ESCPOS_APP_ENVIRONMENT": "qa"}},
		{name: "unknown level", env: map[string]string{"ESCPOS_LOGGING_LEVEL": "trace"}},
		{name: "tls without cert", env: map[string]string{"ESCPOS_SERVER_TLS_ENABLED": "true"}},
		{name: "zero raw limit", env: map[string]string{"ESCPOS_SECURITY_MAX_RAW_BYTES": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
