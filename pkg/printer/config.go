// pkg/printer/config.go
package printer

import (
	"fmt"
	"time"
)

// Defaults applied when the corresponding Config field is unset or non-positive
const (
	DefaultBaudRate     = 19200
	DefaultTxBufferSize = 2048

	// NoPin marks an unused pin
	NoPin = -1
)

// Fixed waits around mechanical commands
const (
	DefaultSettleDelay  = 100 * time.Millisecond
	DefaultFlushTimeout = 100 * time.Millisecond
)

// Config describes the transport a session is opened on
type Config struct {
	PortID       string `json:"port_id" mapstructure:"port"`
	TxPin        int    `json:"tx_pin" mapstructure:"tx_pin"`
	RxPin        int    `json:"rx_pin" mapstructure:"rx_pin"`
	BaudRate     int    `json:"baud_rate" mapstructure:"baud_rate"`
	TxBufferSize int    `json:"tx_buffer_size" mapstructure:"tx_buffer_size"`
}

// HasRxPin reports whether an RX pin is assigned
func (c Config) HasRxPin() bool {
	return c.RxPin >= 0
}

// withDefaults returns a copy with baud rate and buffer size resolved
func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.TxBufferSize <= 0 {
		c.TxBufferSize = DefaultTxBufferSize
	}
	return c
}

func (c Config) validate() error {
	if c.PortID == "" {
		return fmt.Errorf("%w: port id is required", ErrInvalidArgument)
	}
	return nil
}
