// internal/config/config.go
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"escpos-printer/internal/transport"
	"escpos-printer/pkg/printer"
)

// Application modes
const (
	ModeServe = "serve"
	ModeDemo  = "demo"
)

// Config represents the application configuration
type Config struct {
	Printer  PrinterConfig  `mapstructure:"printer"`
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	App      AppConfig      `mapstructure:"app"`
}

// PrinterConfig represents the printer session and its transport
type PrinterConfig struct {
	Transport     string        `mapstructure:"transport"`
	Port          string        `mapstructure:"port"`
	TxPin         int           `mapstructure:"tx_pin"`
	RxPin         int           `mapstructure:"rx_pin"`
	BaudRate      int           `mapstructure:"baud_rate"`
	TxBufferSize  int           `mapstructure:"tx_buffer_size"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	FlushTimeout  time.Duration `mapstructure:"flush_timeout"`
	LineWidth     int           `mapstructure:"line_width"`
	LogoPath      string        `mapstructure:"logo_path"`
	LogoThreshold int           `mapstructure:"logo_threshold"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig     `mapstructure:"tls"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxRawBytes    int      `mapstructure:"max_raw_bytes"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Mode        string `mapstructure:"mode"`
	Debug       bool   `mapstructure:"debug"`
}

// Load reads configuration from path, or from config.yaml in the usual
// locations when path is empty, then applies ESCPOS_* environment overrides.
// A missing config file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/escpos-printer")
	}

	// Environment variable support
	v.SetEnvPrefix("ESCPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Printer defaults
	v.SetDefault("printer.transport", string(transport.KindSerial))
	v.SetDefault("printer.port", "/dev/ttyUSB0")
	v.SetDefault("printer.tx_pin", printer.NoPin)
	v.SetDefault("printer.rx_pin", printer.NoPin)
	v.SetDefault("printer.baud_rate", printer.DefaultBaudRate)
	v.SetDefault("printer.tx_buffer_size", printer.DefaultTxBufferSize)
	v.SetDefault("printer.settle_delay", printer.DefaultSettleDelay)
	v.SetDefault("printer.flush_timeout", printer.DefaultFlushTimeout)
	v.SetDefault("printer.line_width", 32)
	v.SetDefault("printer.logo_path", "")
	v.SetDefault("printer.logo_threshold", 128)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8084")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"*"})
	v.SetDefault("security.max_raw_bytes", 64*1024)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// App defaults
	v.SetDefault("app.name", "escpos-printer")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.mode", ModeServe)
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	kind, err := transport.ParseKind(config.Printer.Transport)
	if err != nil {
		return fmt.Errorf("printer.transport: %w", err)
	}
	config.Printer.Transport = string(kind)

	if err := transport.ValidatePortID(kind, config.Printer.Port); err != nil {
		return fmt.Errorf("printer.port: %w", err)
	}
	if config.Printer.SettleDelay < 0 {
		return fmt.Errorf("printer.settle_delay must not be negative")
	}
	if config.Printer.FlushTimeout <= 0 {
		return fmt.Errorf("printer.flush_timeout must be positive")
	}
	if config.Printer.LogoThreshold < 0 || config.Printer.LogoThreshold > 255 {
		return fmt.Errorf("printer.logo_threshold must be between 0 and 255")
	}

	// Validate mode
	validModes := []string{ModeServe, ModeDemo}
	if !slices.Contains(validModes, config.App.Mode) {
		return fmt.Errorf("app.mode must be one of: %v", validModes)
	}

	if config.App.Mode == ModeServe {
		if config.Server.Host == "" {
			return fmt.Errorf("server.host is required")
		}
		if config.Server.Port == "" {
			return fmt.Errorf("server.port is required")
		}
		if config.Server.TLS.Enabled && (config.Server.TLS.CertFile == "" || config.Server.TLS.KeyFile == "") {
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
		if config.Security.MaxRawBytes <= 0 {
			return fmt.Errorf("security.max_raw_bytes must be positive")
		}
	}

	// Validate environment
	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	// Validate logging level
	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// SessionConfig returns the printer session configuration
func (c *Config) SessionConfig() printer.Config {
	return printer.Config{
		PortID:       c.Printer.Port,
		TxPin:        c.Printer.TxPin,
		RxPin:        c.Printer.RxPin,
		BaudRate:     c.Printer.BaudRate,
		TxBufferSize: c.Printer.TxBufferSize,
	}
}

// TransportKind returns the validated transport kind
func (c *Config) TransportKind() transport.Kind {
	return transport.Kind(c.Printer.Transport)
}

// MaxBodyBytes bounds HTTP request bodies: a base64 raw payload of
// MaxRawBytes plus room for the JSON envelope
func (s SecurityConfig) MaxBodyBytes() int64 {
	return int64(base64.StdEncoding.EncodedLen(s.MaxRawBytes)) + bodyOverhead
}

const bodyOverhead = 16 * 1024

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
