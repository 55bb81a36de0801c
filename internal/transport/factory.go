// internal/transport/factory.go
package transport

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"escpos-printer/pkg/printer"
)

// Kind names a physical link to the printer
type Kind string

const (
	KindSerial Kind = "serial"
	KindUSB    Kind = "usb"
	KindTCP    Kind = "tcp"
)

// SupportedKinds lists every kind NewDialer accepts
func SupportedKinds() []Kind {
	return []Kind{KindSerial, KindUSB, KindTCP}
}

// ParseKind parses a kind name case-insensitively
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range SupportedKinds() {
		if kind == k {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unsupported transport type: %q", s)
}

// NewDialer creates the dialer for a transport kind
func NewDialer(kind Kind, logger *zap.Logger) (printer.Dialer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch kind {
	case KindSerial:
		logger.Debug("Creating serial dialer")
		return NewSerialDialer(logger), nil
	case KindUSB:
		logger.Debug("Creating USB dialer")
		return NewUSBDialer(logger), nil
	case KindTCP:
		logger.Debug("Creating TCP dialer")
		return NewTCPDialer(logger), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", kind)
	}
}

// ValidatePortID checks that a port id is well formed for kind without
// touching any hardware
func ValidatePortID(kind Kind, portID string) error {
	if portID == "" {
		return fmt.Errorf("%s port is required", kind)
	}

	switch kind {
	case KindSerial:
		return nil
	case KindUSB:
		_, _, _, err := ParseUSBPortID(portID)
		return err
	case KindTCP:
		_, err := tcpAddress(portID)
		return err
	default:
		return fmt.Errorf("unsupported transport type: %s", kind)
	}
}
